package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/web3nova/academy-payments/internal/domain"
)

// OutboxRepo stores notification events in the same database as the payments
// they describe, so a status change and its notification intent commit
// together.
type OutboxRepo struct {
	repo      *sqlx.DB
	tableName string
}

func NewOutboxRepo(db *sqlx.DB) *OutboxRepo {
	return &OutboxRepo{
		repo:      db,
		tableName: "notification_events",
	}
}

func (r *OutboxRepo) GetRepo() *sqlx.DB {
	return r.repo
}

func (r *OutboxRepo) Insert(ctx context.Context, tx *sqlx.Tx, e *domain.NotificationEvent) error {
	q := fmt.Sprintf(`INSERT INTO %s (event_id, event_type, reference, payload, status, created_at)
		VALUES (:event_id, :event_type, :reference, :payload, :status, :created_at)`, r.tableName)
	_, err := tx.NamedExecContext(ctx, q, e)
	return err
}

func (r *OutboxRepo) GetAllPending(ctx context.Context, tx *sqlx.Tx) ([]*domain.NotificationEvent, error) {
	events := []*domain.NotificationEvent{}
	q := fmt.Sprintf("SELECT * FROM %s WHERE status = $1 ORDER BY created_at", r.tableName)
	err := tx.SelectContext(ctx, &events, q, domain.EventStatus_Pending)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return events, nil
		}
		return nil, err
	}
	return events, nil
}

func (r *OutboxRepo) UpdateStatusByIds(ctx context.Context, tx *sqlx.Tx, ids []string, status domain.EventStatus) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	q := fmt.Sprintf("UPDATE %s SET status = $1 WHERE event_id = ANY($2::uuid[])", r.tableName)
	res, err := tx.ExecContext(ctx, q, status, pq.Array(ids))
	if err != nil {
		return 0, err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(rows), nil
}
