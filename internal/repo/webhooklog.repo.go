package repo

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/web3nova/academy-payments/internal/domain"
)

type WebhookLogRepo struct {
	repo      *sqlx.DB
	tableName string
}

func NewWebhookLogRepo(db *sqlx.DB) *WebhookLogRepo {
	return &WebhookLogRepo{
		repo:      db,
		tableName: "webhook_logs",
	}
}

func (r *WebhookLogRepo) Insert(ctx context.Context, l *domain.WebhookLog) error {
	q := fmt.Sprintf(`INSERT INTO %s (id, provider, payload, signature, signature_valid, status, detail, created_at)
		VALUES (:id, :provider, :payload, :signature, :signature_valid, :status, :detail, :created_at)`, r.tableName)
	_, err := r.repo.NamedExecContext(ctx, q, l)
	return err
}

// SetOutcome appends the processing result to an already-persisted log entry.
// The raw payload and signature fields are never touched again.
func (r *WebhookLogRepo) SetOutcome(ctx context.Context, id uuid.UUID, status domain.WebhookStatus, detail string) error {
	q := fmt.Sprintf("UPDATE %s SET status = $1, detail = $2 WHERE id = $3", r.tableName)
	_, err := r.repo.ExecContext(ctx, q, status, detail, id)
	return err
}

func (r *WebhookLogRepo) ListFailed(ctx context.Context, limit int) ([]*domain.WebhookLog, error) {
	logs := []*domain.WebhookLog{}
	q := fmt.Sprintf("SELECT * FROM %s WHERE status = $1 ORDER BY created_at DESC LIMIT $2", r.tableName)
	if err := r.repo.SelectContext(ctx, &logs, q, domain.WebhookStatus_Failed, limit); err != nil {
		return nil, err
	}
	return logs, nil
}
