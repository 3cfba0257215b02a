package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/freshmanacadamy/Ver/internal/domain"
	"github.com/freshmanacadamy/Ver/internal/repository"
	apperrors "github.com/freshmanacadamy/Ver/pkg/util/errorutil"
)

// IdentityService registers identities and applies bans.
type IdentityService struct {
	identities repository.IdentityRepository
	audit      repository.AuditRepository
	admins     Admins
	logger     *zap.Logger
	now        func() time.Time
}

// NewIdentityService constructs the service.
func NewIdentityService(identities repository.IdentityRepository, audit repository.AuditRepository, admins Admins, logger *zap.Logger, clock func() time.Time) *IdentityService {
	return &IdentityService{
		identities: identities,
		audit:      audit,
		admins:     admins,
		logger:     loggerOrNop(logger),
		now:        clockOrNow(clock),
	}
}

// Observe returns the identity behind p, registering it on first contact.
func (s *IdentityService) Observe(p domain.Profile) domain.Identity {
	identity, created := s.identities.Observe(p, s.now())
	if created {
		s.logger.Info("identity registered", zap.Int64("identity_id", identity.ID))
	}
	return identity
}

// Get looks up a known identity.
func (s *IdentityService) Get(id int64) (domain.Identity, error) {
	identity, err := s.identities.Get(id)
	if err != nil {
		return domain.Identity{}, apperrors.NewMissing(err, map[string]any{"identity_id": id})
	}
	return identity, nil
}

// Count reports known identities.
func (s *IdentityService) Count() int {
	return s.identities.Count()
}

// Page returns one zero-based page of identities in join order and the
// total number of identities.
func (s *IdentityService) Page(page, size int) ([]domain.Identity, int) {
	ids := s.identities.IDs()
	if page < 0 || size <= 0 {
		return nil, len(ids)
	}
	start := page * size
	if start >= len(ids) {
		return nil, len(ids)
	}
	end := start + size
	if end > len(ids) {
		end = len(ids)
	}
	out := make([]domain.Identity, 0, end-start)
	for _, id := range ids[start:end] {
		if identity, err := s.identities.Get(id); err == nil {
			out = append(out, identity)
		}
	}
	return out, len(ids)
}

// SetBanned toggles the ban flag. Admins cannot be banned.
func (s *IdentityService) SetBanned(ctx context.Context, adminID, targetID int64, banned bool) (domain.Identity, error) {
	if !s.admins.IsAdmin(adminID) {
		return domain.Identity{}, apperrors.NewDenied(domain.ErrAdminRequired)
	}
	if banned && s.admins.IsAdmin(targetID) {
		return domain.Identity{}, apperrors.NewValidationError("admins cannot be banned", map[string]any{"identity_id": targetID})
	}
	identity, err := s.identities.SetBanned(targetID, banned)
	if errors.Is(err, domain.ErrIdentityNotFound) {
		return domain.Identity{}, apperrors.NewMissing(err, map[string]any{"identity_id": targetID})
	}
	if err != nil {
		return domain.Identity{}, apperrors.NewInternalError(err)
	}

	action := domain.AuditIdentityBanned
	if !banned {
		action = domain.AuditIdentityUnban
	}
	s.logger.Info("ban flag changed", zap.Int64("identity_id", targetID), zap.Bool("banned", banned),
		zap.Int64("admin_id", adminID))
	recordAudit(ctx, s.audit, s.logger, domain.AuditEntry{
		ActorID:   adminID,
		Action:    action,
		SubjectID: targetID,
		CreatedAt: s.now(),
	})
	return identity, nil
}
