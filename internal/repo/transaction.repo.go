package repo

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/web3nova/academy-payments/internal/domain"
)

type TransactionRepo struct {
	repo      *sqlx.DB
	tableName string
}

func NewTransactionRepo(db *sqlx.DB) *TransactionRepo {
	return &TransactionRepo{
		repo:      db,
		tableName: "transactions",
	}
}

func (r *TransactionRepo) Insert(ctx context.Context, t *domain.Transaction) error {
	q := fmt.Sprintf(`INSERT INTO %s (id, payment_id, gateway_ref, amount, status, detail, created_at)
		VALUES (:id, :payment_id, :gateway_ref, :amount, :status, :detail, :created_at)`, r.tableName)
	_, err := r.repo.NamedExecContext(ctx, q, t)
	return err
}

func (r *TransactionRepo) ListByPayment(ctx context.Context, paymentID uuid.UUID) ([]*domain.Transaction, error) {
	txns := []*domain.Transaction{}
	q := fmt.Sprintf("SELECT * FROM %s WHERE payment_id = $1 ORDER BY created_at", r.tableName)
	if err := r.repo.SelectContext(ctx, &txns, q, paymentID); err != nil {
		return nil, err
	}
	return txns, nil
}

// markLatest updates the most recent transaction row for a payment; runs
// inside the settlement transaction.
func (r *TransactionRepo) markLatest(ctx context.Context, tx *sqlx.Tx, paymentID uuid.UUID, status domain.TransactionStatus, detail string) error {
	q := fmt.Sprintf(`UPDATE %s SET status = $1, detail = $2
		WHERE id = (SELECT id FROM %s WHERE payment_id = $3 ORDER BY created_at DESC LIMIT 1)`,
		r.tableName, r.tableName)
	_, err := tx.ExecContext(ctx, q, status, detail, paymentID)
	return err
}
