package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/freshmanacadamy/Ver/internal/domain"
)

// AuditRepository appends moderation and pairing actions to Postgres.
// Workflow state is never reloaded from it.
type AuditRepository interface {
	Record(ctx context.Context, entry *domain.AuditEntry) error
	ListBySubject(ctx context.Context, subjectID int64, limit int) ([]domain.AuditEntry, error)
}

type auditRepository struct {
	pool *pgxpool.Pool
}

// NewAuditRepository builds the repository. A nil pool makes every call a no-op.
func NewAuditRepository(pool *pgxpool.Pool) AuditRepository {
	return &auditRepository{pool: pool}
}

func (r *auditRepository) Record(ctx context.Context, entry *domain.AuditEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if r.pool == nil {
		return nil
	}
	details, err := json.Marshal(entry.Details)
	if err != nil {
		return fmt.Errorf("encode audit details: %w", err)
	}
	const query = `
        INSERT INTO audit_log (id, actor_id, action, subject_id, details)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING created_at`
	return r.pool.QueryRow(ctx, query,
		entry.ID,
		entry.ActorID,
		entry.Action,
		entry.SubjectID,
		details,
	).Scan(&entry.CreatedAt)
}

func (r *auditRepository) ListBySubject(ctx context.Context, subjectID int64, limit int) ([]domain.AuditEntry, error) {
	if r.pool == nil {
		return []domain.AuditEntry{}, nil
	}
	if limit <= 0 {
		limit = 50
	}
	const query = `
        SELECT id, actor_id, action, subject_id, details, created_at
        FROM audit_log WHERE subject_id=$1 ORDER BY created_at DESC LIMIT $2`
	rows, err := r.pool.Query(ctx, query, subjectID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []domain.AuditEntry{}
	for rows.Next() {
		var (
			entry   domain.AuditEntry
			details []byte
		)
		if err := rows.Scan(
			&entry.ID,
			&entry.ActorID,
			&entry.Action,
			&entry.SubjectID,
			&details,
			&entry.CreatedAt,
		); err != nil {
			return nil, err
		}
		if len(details) > 0 {
			if err := json.Unmarshal(details, &entry.Details); err != nil {
				return nil, fmt.Errorf("decode audit details: %w", err)
			}
		}
		result = append(result, entry)
	}
	return result, rows.Err()
}
