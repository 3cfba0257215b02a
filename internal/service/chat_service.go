package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/freshmanacadamy/Ver/internal/domain"
	"github.com/freshmanacadamy/Ver/internal/events"
	"github.com/freshmanacadamy/Ver/internal/gateway"
	"github.com/freshmanacadamy/Ver/internal/repository"
	apperrors "github.com/freshmanacadamy/Ver/pkg/util/errorutil"
)

// Reasons recorded when a pairing ends.
const (
	CloseByParty  = "ended_by_party"
	CloseByAdmin  = "closed_by_admin"
	CloseByBan    = "party_banned"
	CloseByExpiry = "idle_expired"
)

// ChatService brokers exclusive buyer/seller pairings.
type ChatService struct {
	chats      repository.ChatRepository
	listings   repository.ListingRepository
	identities repository.IdentityRepository
	audit      repository.AuditRepository
	admins     Admins
	gateway    gateway.Gateway
	dispatcher events.Dispatcher
	logger     *zap.Logger
	now        func() time.Time
}

// ChatDependencies bundles collaborators for the chat service.
type ChatDependencies struct {
	Chats      repository.ChatRepository
	Listings   repository.ListingRepository
	Identities repository.IdentityRepository
	Audit      repository.AuditRepository
	Admins     Admins
	Gateway    gateway.Gateway
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
	Clock      func() time.Time
}

// NewChatService constructs the service.
func NewChatService(deps ChatDependencies) *ChatService {
	return &ChatService{
		chats:      deps.Chats,
		listings:   deps.Listings,
		identities: deps.Identities,
		audit:      deps.Audit,
		admins:     deps.Admins,
		gateway:    deps.Gateway,
		dispatcher: deps.Dispatcher,
		logger:     loggerOrNop(deps.Logger),
		now:        clockOrNow(deps.Clock),
	}
}

// Open pairs initiator with counterpart around an approved listing. A zero
// counterpart means the listing owner. If the counterpart cannot be
// notified the pairing is rolled back.
func (s *ChatService) Open(ctx context.Context, initiatorID, counterpartID, listingID int64) (*domain.ChatSession, error) {
	listing, err := s.listings.Get(listingID)
	if err != nil {
		return nil, apperrors.NewMissing(err, map[string]any{"listing_id": listingID})
	}
	if listing.Status != domain.ListingApproved {
		return nil, apperrors.NewConflict(domain.ErrListingNotApproved, map[string]any{"listing_id": listingID})
	}
	if counterpartID == 0 {
		counterpartID = listing.OwnerID
	}
	if initiatorID == counterpartID {
		return nil, apperrors.NewConflict(domain.ErrSelfChat, nil)
	}

	now := s.now()
	session := domain.NewChatSession(initiatorID, counterpartID, listingID, now)
	if err := s.chats.Pair(session); err != nil {
		return nil, apperrors.NewConflict(err, map[string]any{"listing_id": listingID})
	}

	initiator, _ := s.identities.Get(initiatorID)
	counterpart, _ := s.identities.Get(counterpartID)

	if err := s.gateway.Send(ctx, counterpartID, chatOpenedNotice(listing, initiator, false)); err != nil {
		s.chats.Remove(session)
		s.logger.Warn("chat open rolled back",
			zap.Int64("identity_id", initiatorID),
			zap.Int64("counterpart_id", counterpartID),
			zap.Int64("listing_id", listingID),
			zap.Error(err))
		return nil, apperrors.NewDeliveryFailure(counterpartID, err)
	}
	if err := s.gateway.Send(ctx, initiatorID, chatOpenedNotice(listing, counterpart, true)); err != nil {
		s.logger.Warn("initiator chat notice failed", zap.Int64("identity_id", initiatorID), zap.Error(err))
	}

	s.logger.Info("chat opened",
		zap.Int64("identity_id", initiatorID),
		zap.Int64("counterpart_id", counterpartID),
		zap.Int64("listing_id", listingID))
	recordAudit(ctx, s.audit, s.logger, domain.AuditEntry{
		ActorID:   initiatorID,
		Action:    domain.AuditChatOpened,
		SubjectID: listingID,
		Details:   map[string]any{"counterpart_id": counterpartID},
		CreatedAt: now,
	})
	publish(ctx, s.dispatcher, s.logger, events.New(events.EventChatOpened, initiatorID, now,
		events.ChatOpenedPayload{
			InitiatorID:   initiatorID,
			CounterpartID: counterpartID,
			ListingID:     listingID,
			ListingTitle:  listing.Title,
		}))
	return session, nil
}

// Relay appends a message to the sender's pairing and forwards it verbatim.
// A failed forward stays in the log and is reported as a delivery failure.
func (s *ChatService) Relay(ctx context.Context, senderID int64, text, mediaRef string) (domain.ChatMessage, error) {
	session, ok := s.chats.Lookup(senderID)
	if !ok {
		return domain.ChatMessage{}, apperrors.NewConflict(domain.ErrNoActiveSession, nil)
	}
	msg, err := session.Append(senderID, text, mediaRef, s.now())
	if err != nil {
		return domain.ChatMessage{}, apperrors.NewConflict(err, nil)
	}

	partner := session.PartnerOf(senderID)
	content := gateway.Content{Text: text, MediaRef: mediaRef}
	if err := s.gateway.Send(ctx, partner, content); err != nil {
		s.logger.Warn("relay failed", zap.Int64("identity_id", senderID),
			zap.Int64("counterpart_id", partner), zap.Error(err))
		return msg, apperrors.NewDeliveryFailure(partner, err)
	}
	return msg, nil
}

// Close ends the caller's pairing and tells the other party.
func (s *ChatService) Close(ctx context.Context, identityID int64) (*domain.ChatSession, error) {
	session, ok := s.chats.RemoveFor(identityID)
	if !ok {
		return nil, apperrors.NewConflict(domain.ErrNoActiveSession, nil)
	}
	partner := session.PartnerOf(identityID)
	s.notify(ctx, partner, gateway.Text(textChatEnded))
	s.closed(ctx, identityID, session, CloseByParty)
	return session, nil
}

// ForceClose ends target's pairing on an admin's behalf and tells both parties.
func (s *ChatService) ForceClose(ctx context.Context, adminID, targetID int64) (*domain.ChatSession, error) {
	if !s.admins.IsAdmin(adminID) {
		return nil, apperrors.NewDenied(domain.ErrAdminRequired)
	}
	return s.closeFor(ctx, adminID, targetID, CloseByAdmin)
}

// CloseBanned ends the pairing of a freshly banned identity, if any.
func (s *ChatService) CloseBanned(ctx context.Context, adminID, targetID int64) bool {
	_, err := s.closeFor(ctx, adminID, targetID, CloseByBan)
	return err == nil
}

func (s *ChatService) closeFor(ctx context.Context, actorID, targetID int64, reason string) (*domain.ChatSession, error) {
	session, ok := s.chats.RemoveFor(targetID)
	if !ok {
		return nil, apperrors.NewConflict(domain.ErrNoActiveSession, map[string]any{"identity_id": targetID})
	}
	s.notify(ctx, session.InitiatorID, gateway.Text(textChatForceEnded))
	s.notify(ctx, session.CounterpartID, gateway.Text(textChatForceEnded))
	s.closed(ctx, actorID, session, reason)
	return session, nil
}

// Lookup returns the identity's live pairing.
func (s *ChatService) Lookup(identityID int64) (*domain.ChatSession, bool) {
	return s.chats.Lookup(identityID)
}

// Active returns every live pairing, oldest first. The sessions are shared
// and must only be read.
func (s *ChatService) Active() []*domain.ChatSession {
	return s.chats.Active()
}

// Count reports live pairings.
func (s *ChatService) Count() int {
	return s.chats.Count()
}

// ExpireIdle closes pairings with no message since before cutoff.
func (s *ChatService) ExpireIdle(ctx context.Context, cutoff time.Time) int {
	expired := 0
	for _, session := range s.chats.Active() {
		if !session.LastActive().Before(cutoff) {
			continue
		}
		if !s.chats.Remove(session) {
			continue
		}
		expired++
		s.notify(ctx, session.InitiatorID, gateway.Text(textChatExpired))
		s.notify(ctx, session.CounterpartID, gateway.Text(textChatExpired))
		s.closed(ctx, 0, session, CloseByExpiry)
	}
	return expired
}

func (s *ChatService) notify(ctx context.Context, recipient int64, content gateway.Content) {
	if err := s.gateway.Send(ctx, recipient, content); err != nil {
		s.logger.Warn("chat notice failed", zap.Int64("identity_id", recipient), zap.Error(err))
	}
}

func (s *ChatService) closed(ctx context.Context, actorID int64, session *domain.ChatSession, reason string) {
	now := s.now()
	messages := len(session.Messages())
	s.logger.Info("chat closed",
		zap.Int64("identity_id", session.InitiatorID),
		zap.Int64("counterpart_id", session.CounterpartID),
		zap.String("reason", reason),
		zap.Int("messages", messages))
	recordAudit(ctx, s.audit, s.logger, domain.AuditEntry{
		ActorID:   actorID,
		Action:    domain.AuditChatClosed,
		SubjectID: session.ListingID,
		Details: map[string]any{
			"initiator_id":   session.InitiatorID,
			"counterpart_id": session.CounterpartID,
			"reason":         reason,
		},
		CreatedAt: now,
	})
	publish(ctx, s.dispatcher, s.logger, events.New(events.EventChatClosed, actorID, now,
		events.ChatClosedPayload{
			InitiatorID:   session.InitiatorID,
			CounterpartID: session.CounterpartID,
			ListingID:     session.ListingID,
			Reason:        reason,
			Messages:      messages,
		}))
}
