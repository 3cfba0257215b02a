package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/freshmanacadamy/Ver/internal/domain"
	"github.com/freshmanacadamy/Ver/internal/events"
	"github.com/freshmanacadamy/Ver/internal/repository"
)

// Admins is the read-only admin allow-list.
type Admins interface {
	IsAdmin(id int64) bool
	IDs() []int64
}

func loggerOrNop(logger *zap.Logger) *zap.Logger {
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}

func clockOrNow(clock func() time.Time) func() time.Time {
	if clock == nil {
		return time.Now
	}
	return clock
}

func publish(ctx context.Context, dispatcher events.Dispatcher, logger *zap.Logger, event events.Event) {
	if dispatcher == nil {
		return
	}
	if err := dispatcher.Publish(ctx, event); err != nil {
		logger.Warn("event handler failed", zap.String("event_type", string(event.Type)), zap.Error(err))
	}
}

func recordAudit(ctx context.Context, audit repository.AuditRepository, logger *zap.Logger, entry domain.AuditEntry) {
	if audit == nil {
		return
	}
	if err := audit.Record(ctx, &entry); err != nil {
		logger.Warn("audit write failed", zap.String("action", string(entry.Action)),
			zap.Int64("subject_id", entry.SubjectID), zap.Error(err))
	}
}
