package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/freshmanacadamy/Ver/internal/domain"
	"github.com/freshmanacadamy/Ver/internal/gateway"
	"github.com/freshmanacadamy/Ver/internal/observability"
	"github.com/freshmanacadamy/Ver/internal/repository"
	apperrors "github.com/freshmanacadamy/Ver/pkg/util/errorutil"
)

// BroadcastService fans one message out to a recipient snapshot.
type BroadcastService struct {
	identities repository.IdentityRepository
	audit      repository.AuditRepository
	admins     Admins
	gateway    gateway.Gateway
	metrics    *observability.Metrics
	limiter    *rate.Limiter
	logger     *zap.Logger
	now        func() time.Time
}

// BroadcastDependencies bundles collaborators for the broadcast service.
type BroadcastDependencies struct {
	Identities repository.IdentityRepository
	Audit      repository.AuditRepository
	Admins     Admins
	Gateway    gateway.Gateway
	Metrics    *observability.Metrics
	// Delay is the minimum spacing between two sends; zero disables pacing.
	Delay  time.Duration
	Logger *zap.Logger
	Clock  func() time.Time
}

// NewBroadcastService constructs the service. Every job shares one limiter
// so concurrent broadcasts together respect the send ceiling.
func NewBroadcastService(deps BroadcastDependencies) *BroadcastService {
	limit := rate.Inf
	if deps.Delay > 0 {
		limit = rate.Every(deps.Delay)
	}
	return &BroadcastService{
		identities: deps.Identities,
		audit:      deps.Audit,
		admins:     deps.Admins,
		gateway:    deps.Gateway,
		metrics:    deps.Metrics,
		limiter:    rate.NewLimiter(limit, 1),
		logger:     loggerOrNop(deps.Logger),
		now:        clockOrNow(deps.Clock),
	}
}

// Submit validates a broadcast and snapshots its recipients.
func (s *BroadcastService) Submit(ctx context.Context, adminID int64, body string, scope domain.BroadcastScope) (domain.BroadcastJob, error) {
	if !s.admins.IsAdmin(adminID) {
		return domain.BroadcastJob{}, apperrors.NewDenied(domain.ErrAdminRequired)
	}
	body = strings.TrimSpace(body)
	if body == "" {
		return domain.BroadcastJob{}, apperrors.NewInvalid(domain.ErrEmptyBroadcast, nil)
	}

	var recipients []int64
	switch scope {
	case domain.ScopeAll, "":
		scope = domain.ScopeAll
		recipients = s.identities.IDs()
	case domain.ScopeAdmins:
		recipients = s.admins.IDs()
	case domain.ScopeTest:
		recipients = []int64{adminID}
	default:
		return domain.BroadcastJob{}, apperrors.NewInvalid(domain.ErrUnknownBroadcastScope, map[string]any{"scope": scope})
	}

	job := domain.BroadcastJob{
		ID:          uuid.NewString(),
		SubmittedBy: adminID,
		Scope:       scope,
		Body:        body,
		Recipients:  recipients,
		SubmittedAt: s.now(),
	}
	recordAudit(ctx, s.audit, s.logger, domain.AuditEntry{
		ActorID:   adminID,
		Action:    domain.AuditBroadcast,
		SubjectID: adminID,
		Details:   map[string]any{"job_id": job.ID, "scope": scope, "recipients": len(recipients)},
		CreatedAt: job.SubmittedAt,
	})
	return job, nil
}

// Deliver sends job to each recipient in snapshot order. A failed recipient
// is logged and skipped. Cancelling ctx stops before the next send.
func (s *BroadcastService) Deliver(ctx context.Context, job domain.BroadcastJob) domain.BroadcastSummary {
	content := broadcastContent(job.Scope, job.Body)
	var summary domain.BroadcastSummary
	for _, recipient := range job.Recipients {
		if err := s.limiter.Wait(ctx); err != nil {
			s.logger.Warn("broadcast interrupted", zap.String("job_id", job.ID),
				zap.Int("remaining", len(job.Recipients)-summary.Attempted), zap.Error(err))
			break
		}
		summary.Attempted++
		if err := s.gateway.Send(ctx, recipient, content); err != nil {
			summary.Failed++
			s.logger.Warn("broadcast delivery failed", zap.String("job_id", job.ID),
				zap.Int64("identity_id", recipient), zap.Error(err))
			continue
		}
		summary.Delivered++
	}
	s.metrics.RecordDelivery(summary.Delivered, summary.Failed)
	s.logger.Info("broadcast finished",
		zap.String("job_id", job.ID),
		zap.String("scope", string(job.Scope)),
		zap.Int("attempted", summary.Attempted),
		zap.Int("delivered", summary.Delivered),
		zap.Int("failed", summary.Failed))
	return summary
}
