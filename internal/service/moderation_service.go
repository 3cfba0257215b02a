package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/freshmanacadamy/Ver/internal/domain"
	"github.com/freshmanacadamy/Ver/internal/events"
	"github.com/freshmanacadamy/Ver/internal/gateway"
	"github.com/freshmanacadamy/Ver/internal/repository"
	apperrors "github.com/freshmanacadamy/Ver/pkg/util/errorutil"
)

// ModerationService applies admin decisions to pending listings.
type ModerationService struct {
	listings   repository.ListingRepository
	audit      repository.AuditRepository
	admins     Admins
	gateway    gateway.Gateway
	dispatcher events.Dispatcher
	channel    string
	logger     *zap.Logger
	now        func() time.Time
}

// ModerationDependencies bundles collaborators for the moderation service.
type ModerationDependencies struct {
	Listings   repository.ListingRepository
	Audit      repository.AuditRepository
	Admins     Admins
	Gateway    gateway.Gateway
	Dispatcher events.Dispatcher
	Channel    string
	Logger     *zap.Logger
	Clock      func() time.Time
}

// NewModerationService constructs the service.
func NewModerationService(deps ModerationDependencies) *ModerationService {
	return &ModerationService{
		listings:   deps.Listings,
		audit:      deps.Audit,
		admins:     deps.Admins,
		gateway:    deps.Gateway,
		dispatcher: deps.Dispatcher,
		channel:    deps.Channel,
		logger:     loggerOrNop(deps.Logger),
		now:        clockOrNow(deps.Clock),
	}
}

// Decide approves or rejects a pending listing. The decision is committed
// before the channel post and owner notice; their failures are only logged.
func (s *ModerationService) Decide(ctx context.Context, moderatorID, listingID int64, decision domain.Decision) (domain.Listing, error) {
	if !s.admins.IsAdmin(moderatorID) {
		return domain.Listing{}, apperrors.NewDenied(domain.ErrAdminRequired)
	}

	now := s.now()
	listing, err := s.listings.Decide(listingID, decision, moderatorID, now)
	switch {
	case errors.Is(err, domain.ErrListingNotFound):
		return domain.Listing{}, apperrors.NewMissing(err, map[string]any{"listing_id": listingID})
	case errors.Is(err, domain.ErrAlreadyDecided):
		return listing, apperrors.NewConflict(err, map[string]any{"listing_id": listingID, "status": listing.Status})
	case err != nil:
		return domain.Listing{}, apperrors.NewInternalError(err)
	}

	s.logger.Info("listing decided",
		zap.Int64("listing_id", listing.ID),
		zap.String("status", string(listing.Status)),
		zap.Int64("moderator_id", moderatorID))

	if listing.Status == domain.ListingApproved {
		if err := s.gateway.Publish(ctx, s.channel, channelAnnouncement(listing)); err != nil {
			s.logger.Warn("channel post failed", zap.Int64("listing_id", listing.ID), zap.Error(err))
		}
	}
	if err := s.gateway.Send(ctx, listing.OwnerID, decisionNotice(listing)); err != nil {
		s.logger.Warn("owner notice failed", zap.Int64("listing_id", listing.ID),
			zap.Int64("identity_id", listing.OwnerID), zap.Error(err))
	}

	action := domain.AuditListingApproved
	if listing.Status == domain.ListingRejected {
		action = domain.AuditListingRejected
	}
	recordAudit(ctx, s.audit, s.logger, domain.AuditEntry{
		ActorID:   moderatorID,
		Action:    action,
		SubjectID: listing.ID,
		Details:   map[string]any{"owner_id": listing.OwnerID},
		CreatedAt: now,
	})
	publish(ctx, s.dispatcher, s.logger, events.New(events.EventListingDecided, moderatorID, now,
		events.ListingDecidedPayload{
			ListingID:   listing.ID,
			OwnerID:     listing.OwnerID,
			NewStatus:   listing.Status,
			ModeratorID: moderatorID,
		}))

	return listing, nil
}

// Pending returns the review queue, newest first.
func (s *ModerationService) Pending(adminID int64) ([]domain.Listing, error) {
	if !s.admins.IsAdmin(adminID) {
		return nil, apperrors.NewDenied(domain.ErrAdminRequired)
	}
	return s.listings.ListByStatus(domain.ListingPending), nil
}
