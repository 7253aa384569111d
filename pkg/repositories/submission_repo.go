package repositories

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/nimeshabuddhika/resilient-swap-go/pkg"
	"github.com/nimeshabuddhika/resilient-swap-go/pkg/database"
	"github.com/nimeshabuddhika/resilient-swap-go/pkg/models"
)

// DefaultHistoryLimit caps ListByForm when the caller passes no limit.
const DefaultHistoryLimit = 50

// SubmissionRepository is the audit trail of submit attempts.
type SubmissionRepository interface {
	Record(ctx context.Context, rec models.SubmissionRecord) error
	// ListByForm returns the attempts of one form, newest first.
	ListByForm(ctx context.Context, formID uuid.UUID, limit int) ([]models.SubmissionRecord, error)
}

type SubmissionRepositoryPostgres struct {
	db *database.DB
}

func NewSubmissionRepositoryPostgres(db *database.DB) SubmissionRepository {
	return &SubmissionRepositoryPostgres{db: db}
}

func (r *SubmissionRepositoryPostgres) Record(ctx context.Context, rec models.SubmissionRecord) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO form_submissions (id, form_id, trace_id, status, network, token, currency, amount, amount_received, rate, reason, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12) ON CONFLICT (id) DO NOTHING`,
		rec.ID,
		rec.FormID,
		rec.TraceID,
		string(rec.Status),
		rec.Network,
		rec.Token,
		rec.Currency,
		rec.Amount,
		rec.AmountReceived,
		rec.Rate,
		rec.Reason,
		rec.CreatedAt,
	)
	return err
}

func (r *SubmissionRepositoryPostgres) ListByForm(ctx context.Context, formID uuid.UUID, limit int) ([]models.SubmissionRecord, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, form_id, trace_id, status, network, token, currency, amount, amount_received, rate, reason, created_at
		FROM form_submissions
		WHERE form_id = $1
		ORDER BY created_at DESC
		LIMIT $2`, formID, historyLimit(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]models.SubmissionRecord, 0)
	for rows.Next() {
		var rec models.SubmissionRecord
		var status string
		if err := rows.Scan(&rec.ID, &rec.FormID, &rec.TraceID, &status, &rec.Network, &rec.Token, &rec.Currency,
			&rec.Amount, &rec.AmountReceived, &rec.Rate, &rec.Reason, &rec.CreatedAt); err != nil {
			return nil, err
		}
		rec.Status = pkg.SubmissionStatus(status)
		out = append(out, rec)
	}
	return out, rows.Err()
}

// SubmissionRepositoryMemory keeps the audit trail in process; used when no database is configured.
type SubmissionRepositoryMemory struct {
	mu      sync.RWMutex
	records map[uuid.UUID][]models.SubmissionRecord
}

func NewSubmissionRepositoryMemory() SubmissionRepository {
	return &SubmissionRepositoryMemory{records: make(map[uuid.UUID][]models.SubmissionRecord)}
}

func (r *SubmissionRepositoryMemory) Record(_ context.Context, rec models.SubmissionRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[rec.FormID] = append(r.records[rec.FormID], rec)
	return nil
}

func (r *SubmissionRepositoryMemory) ListByForm(_ context.Context, formID uuid.UUID, limit int) ([]models.SubmissionRecord, error) {
	r.mu.RLock()
	out := append([]models.SubmissionRecord(nil), r.records[formID]...)
	r.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if n := historyLimit(limit); len(out) > n {
		out = out[:n]
	}
	if out == nil {
		out = make([]models.SubmissionRecord, 0)
	}
	return out, nil
}

func historyLimit(limit int) int {
	if limit <= 0 || limit > DefaultHistoryLimit {
		return DefaultHistoryLimit
	}
	return limit
}
