package service

import (
	"context"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/freshmanacadamy/Ver/internal/domain"
	"github.com/freshmanacadamy/Ver/internal/events"
	"github.com/freshmanacadamy/Ver/internal/repository"
	apperrors "github.com/freshmanacadamy/Ver/pkg/util/errorutil"
)

// ConversationService drives the listing-creation dialogue. Callers must
// serialize calls for the same identity.
type ConversationService struct {
	sessions     repository.ConversationRepository
	listings     repository.ListingRepository
	identities   repository.IdentityRepository
	dispatcher   events.Dispatcher
	logger       *zap.Logger
	priceCeiling int64
	now          func() time.Time
}

// ConversationDependencies bundles collaborators for the conversation service.
type ConversationDependencies struct {
	Sessions     repository.ConversationRepository
	Listings     repository.ListingRepository
	Identities   repository.IdentityRepository
	Dispatcher   events.Dispatcher
	Logger       *zap.Logger
	PriceCeiling int64
	Clock        func() time.Time
}

// Step is the result of feeding one input to a session.
type Step struct {
	// State is where the session stands afterwards.
	State domain.SessionState
	// Ignored is set when the input did not apply to the current step.
	Ignored bool
	// Listing is set once the dialogue completes.
	Listing *domain.Listing
}

// NewConversationService constructs the service.
func NewConversationService(deps ConversationDependencies) *ConversationService {
	return &ConversationService{
		sessions:     deps.Sessions,
		listings:     deps.Listings,
		identities:   deps.Identities,
		dispatcher:   deps.Dispatcher,
		logger:       loggerOrNop(deps.Logger),
		priceCeiling: deps.PriceCeiling,
		now:          clockOrNow(deps.Clock),
	}
}

// Begin starts a fresh dialogue, discarding any unfinished one.
func (s *ConversationService) Begin(identityID int64) *domain.ConversationSession {
	session := domain.NewConversationSession(identityID, s.now())
	s.sessions.Put(session)
	return session
}

// Active returns the identity's open session.
func (s *ConversationService) Active(identityID int64) (*domain.ConversationSession, bool) {
	return s.sessions.Get(identityID)
}

// Count reports how many dialogues are open.
func (s *ConversationService) Count() int {
	return s.sessions.Count()
}

// HandleMedia feeds a photo to the session.
func (s *ConversationService) HandleMedia(identityID int64, ref string) (Step, error) {
	session, err := s.require(identityID)
	if err != nil {
		return Step{}, err
	}
	if session.State != domain.StateAwaitingImage || ref == "" {
		return Step{State: session.State, Ignored: true}, nil
	}
	session.Draft.MediaRef = ref
	return s.advance(session, domain.StateAwaitingTitle)
}

// HandleText feeds free text to the session. skip marks the literal skip command.
func (s *ConversationService) HandleText(identityID int64, text string, skip bool) (Step, error) {
	session, err := s.require(identityID)
	if err != nil {
		return Step{}, err
	}

	switch session.State {
	case domain.StateAwaitingTitle:
		if skip {
			return Step{State: session.State, Ignored: true}, nil
		}
		title := strings.TrimSpace(text)
		if title == "" {
			return Step{State: session.State}, apperrors.NewInvalid(domain.ErrEmptyTitle, nil)
		}
		session.Draft.Title = title
		return s.advance(session, domain.StateAwaitingPrice)

	case domain.StateAwaitingPrice:
		if skip {
			return Step{State: session.State, Ignored: true}, nil
		}
		price, err := ParsePrice(text, s.priceCeiling)
		if err != nil {
			return Step{State: session.State}, apperrors.NewInvalid(err, map[string]any{"input": text})
		}
		session.Draft.Price = price
		return s.advance(session, domain.StateAwaitingDescription)

	case domain.StateAwaitingDescription:
		if skip {
			session.Draft.Description = domain.NoDescription
		} else {
			session.Draft.Description = text
		}
		return s.advance(session, domain.StateAwaitingCategory)

	case domain.StateAwaitingCategory:
		return Step{State: session.State}, apperrors.NewInvalid(domain.ErrCategoryViaChoice, nil)

	default:
		return Step{State: session.State, Ignored: true}, nil
	}
}

// ChooseCategory completes the dialogue and files the listing as pending.
func (s *ConversationService) ChooseCategory(ctx context.Context, identityID int64, category domain.Category) (Step, error) {
	session, err := s.require(identityID)
	if err != nil {
		return Step{}, err
	}
	if session.State != domain.StateAwaitingCategory {
		return Step{State: session.State}, apperrors.NewConflict(domain.ErrInvalidTransition,
			map[string]any{"state": session.State})
	}

	session.Draft.Category = category
	if !session.Draft.Complete() {
		s.sessions.Delete(identityID)
		s.logger.Warn("discarding incomplete draft", zap.Int64("identity_id", identityID))
		return Step{State: domain.StateCancelled}, apperrors.NewInvalid(domain.ErrIncompleteDraft, nil)
	}

	now := s.now()
	listing, err := s.listings.Create(identityID, session.Draft, now)
	if err != nil {
		s.sessions.Delete(identityID)
		return Step{State: domain.StateCancelled}, apperrors.NewInvalid(err, nil)
	}
	if err := session.Advance(domain.StateCompleted, now); err != nil {
		return Step{}, apperrors.NewInternalError(err)
	}
	s.sessions.Delete(identityID)

	owner, _ := s.identities.Get(identityID)
	publish(ctx, s.dispatcher, s.logger, events.New(events.EventListingCreated, identityID, now,
		events.ListingCreatedPayload{Listing: listing, Owner: owner.Mention()}))

	return Step{State: domain.StateCompleted, Listing: &listing}, nil
}

// Cancel discards the dialogue without creating a listing.
func (s *ConversationService) Cancel(identityID int64) error {
	session, err := s.require(identityID)
	if err != nil {
		return err
	}
	if err := session.Advance(domain.StateCancelled, s.now()); err != nil {
		return apperrors.NewConflict(err, nil)
	}
	s.sessions.Delete(identityID)
	return nil
}

// Expire cancels the identity's session if it has been idle since before
// cutoff. The caller holds the identity's lock.
func (s *ConversationService) Expire(identityID int64, cutoff time.Time) bool {
	session, ok := s.sessions.Get(identityID)
	if !ok || !session.UpdatedAt.Before(cutoff) {
		return false
	}
	_ = session.Advance(domain.StateCancelled, s.now())
	s.sessions.Delete(identityID)
	return true
}

// IdleSince lists identities whose session was untouched since cutoff.
func (s *ConversationService) IdleSince(cutoff time.Time) []int64 {
	return s.sessions.IdleSince(cutoff)
}

func (s *ConversationService) require(identityID int64) (*domain.ConversationSession, error) {
	session, ok := s.sessions.Get(identityID)
	if !ok {
		return nil, apperrors.NewMissing(domain.ErrNoConversation, nil)
	}
	return session, nil
}

func (s *ConversationService) advance(session *domain.ConversationSession, next domain.SessionState) (Step, error) {
	if err := session.Advance(next, s.now()); err != nil {
		return Step{State: session.State}, apperrors.NewConflict(err, map[string]any{"state": session.State})
	}
	s.sessions.Touch(session.IdentityID, session.UpdatedAt)
	return Step{State: session.State}, nil
}

// ParsePrice keeps only the digits of raw and accepts 1..ceiling.
// A ceiling of zero or less means no upper bound.
func ParsePrice(raw string, ceiling int64) (int64, error) {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, raw)
	if digits == "" {
		return 0, domain.ErrInvalidPrice
	}
	price, err := strconv.ParseInt(digits, 10, 64)
	if err != nil || price <= 0 {
		return 0, domain.ErrInvalidPrice
	}
	if ceiling > 0 && price > ceiling {
		return 0, domain.ErrInvalidPrice
	}
	return price, nil
}
