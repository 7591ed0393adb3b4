package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/web3nova/academy-payments/internal/domain"
	reposhared "github.com/web3nova/academy-payments/internal/repo/repo-shared"
)

// Settlement carries the gateway outcome applied to a payment when it leaves
// the pending state.
type Settlement struct {
	PaidAt        *time.Time
	PaymentMethod string
	ErrorMessage  string
	Detail        string
}

type PaymentRepo struct {
	repo         *sqlx.DB
	tableName    string
	transactions *TransactionRepo
	outbox       *OutboxRepo
}

func NewPaymentRepo(db *sqlx.DB, transactions *TransactionRepo, outbox *OutboxRepo) *PaymentRepo {
	return &PaymentRepo{
		repo:         db,
		tableName:    "payments",
		transactions: transactions,
		outbox:       outbox,
	}
}

func (r *PaymentRepo) Insert(ctx context.Context, p *domain.Payment) error {
	q := fmt.Sprintf(`INSERT INTO %s
		(id, enrollment_id, stage, amount, status, reference, gateway_ref, checkout_url, payment_method, error_message, paid_at, expires_at, created_at, updated_at)
		VALUES (:id, :enrollment_id, :stage, :amount, :status, :reference, :gateway_ref, :checkout_url, :payment_method, :error_message, :paid_at, :expires_at, :created_at, :updated_at)`,
		r.tableName)
	_, err := r.repo.NamedExecContext(ctx, q, p)
	return err
}

func (r *PaymentRepo) GetByReference(ctx context.Context, reference string) (*domain.Payment, error) {
	return r.getOne(ctx, "reference", reference)
}

func (r *PaymentRepo) GetByGatewayRef(ctx context.Context, gatewayRef string) (*domain.Payment, error) {
	return r.getOne(ctx, "gateway_ref", gatewayRef)
}

func (r *PaymentRepo) getOne(ctx context.Context, column, value string) (*domain.Payment, error) {
	p := &domain.Payment{}
	q := fmt.Sprintf("SELECT * FROM %s WHERE %s = $1", r.tableName, column)
	err := r.repo.GetContext(ctx, p, q, value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return p, nil
}

// ActiveForStage returns the pending payment for an enrollment stage, or nil.
// The engine uses it to refuse duplicate attempts while one is in flight.
func (r *PaymentRepo) ActiveForStage(ctx context.Context, enrollmentID uuid.UUID, stage int) (*domain.Payment, error) {
	p := &domain.Payment{}
	q := fmt.Sprintf("SELECT * FROM %s WHERE enrollment_id = $1 AND stage = $2 AND status = $3 LIMIT 1", r.tableName)
	err := r.repo.GetContext(ctx, p, q, enrollmentID, stage, domain.PaymentStatus_Pending)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return p, nil
}

func (r *PaymentRepo) AttachGateway(ctx context.Context, reference, gatewayRef, checkoutURL string) error {
	q := fmt.Sprintf("UPDATE %s SET gateway_ref = $1, checkout_url = $2, updated_at = $3 WHERE reference = $4", r.tableName)
	_, err := r.repo.ExecContext(ctx, q, gatewayRef, checkoutURL, time.Now().UTC(), reference)
	return err
}

func (r *PaymentRepo) AppendTransaction(ctx context.Context, t *domain.Transaction) error {
	return r.transactions.Insert(ctx, t)
}

func (r *PaymentRepo) ListTransactions(ctx context.Context, paymentID uuid.UUID) ([]*domain.Transaction, error) {
	return r.transactions.ListByPayment(ctx, paymentID)
}

// Settle applies a terminal status to a pending payment. The UPDATE is
// conditional on status = 'pending', so of two concurrent settlements exactly
// one wins; the loser gets applied=false and must treat it as a no-op.
// The payment update, the transaction-row update and the notification outbox
// row commit in one database transaction.
func (r *PaymentRepo) Settle(ctx context.Context, reference string, to domain.PaymentStatus, s Settlement) (bool, error) {
	if err := domain.ValidateTransition(domain.PaymentStatus_Pending, to); err != nil {
		return false, err
	}

	return reposhared.TxClosure(ctx, r.repo, func(ctx context.Context, tx *sqlx.Tx) (bool, error) {
		q := fmt.Sprintf(`UPDATE %s
			SET status = $1, payment_method = $2, error_message = $3, paid_at = $4, updated_at = $5
			WHERE reference = $6 AND status = $7
			RETURNING id, enrollment_id, stage, amount`, r.tableName)

		row := struct {
			ID           uuid.UUID `db:"id"`
			EnrollmentID uuid.UUID `db:"enrollment_id"`
			Stage        int       `db:"stage"`
			Amount       int64     `db:"amount"`
		}{}
		err := tx.GetContext(ctx, &row, q,
			to, s.PaymentMethod, s.ErrorMessage, s.PaidAt, time.Now().UTC(),
			reference, domain.PaymentStatus_Pending)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return false, nil
			}
			return false, err
		}

		txStatus := domain.TransactionStatus_Failed
		if to == domain.PaymentStatus_Completed {
			txStatus = domain.TransactionStatus_Successful
		}
		if err := r.transactions.markLatest(ctx, tx, row.ID, txStatus, s.Detail); err != nil {
			return false, err
		}

		payload, err := json.Marshal(map[string]any{
			"reference":     reference,
			"status":        to,
			"stage":         row.Stage,
			"amount":        row.Amount,
			"paymentMethod": s.PaymentMethod,
			"paidAt":        s.PaidAt,
		})
		if err != nil {
			return false, err
		}
		event := domain.NewNotificationEvent(domain.NotificationEventForStatus(to), reference, payload)
		if err := r.outbox.Insert(ctx, tx, event); err != nil {
			return false, err
		}

		return true, nil
	})
}

// ExpireStale moves every pending payment past its expiry to expired and
// queues a notification per row. Set-based and conditional on pending, so
// concurrent sweepers cannot double-apply.
func (r *PaymentRepo) ExpireStale(ctx context.Context, now time.Time) (int64, error) {
	return reposhared.TxClosure(ctx, r.repo, func(ctx context.Context, tx *sqlx.Tx) (int64, error) {
		q := fmt.Sprintf(`UPDATE %s SET status = $1, updated_at = $2
			WHERE status = $3 AND expires_at < $4
			RETURNING reference, stage, amount`, r.tableName)

		expired := []struct {
			Reference string `db:"reference"`
			Stage     int    `db:"stage"`
			Amount    int64  `db:"amount"`
		}{}
		err := tx.SelectContext(ctx, &expired, q,
			domain.PaymentStatus_Expired, now.UTC(), domain.PaymentStatus_Pending, now.UTC())
		if err != nil {
			return 0, err
		}

		for _, row := range expired {
			payload, err := json.Marshal(map[string]any{
				"reference": row.Reference,
				"status":    domain.PaymentStatus_Expired,
				"stage":     row.Stage,
				"amount":    row.Amount,
			})
			if err != nil {
				return 0, err
			}
			event := domain.NewNotificationEvent(domain.EventType_PaymentExpired, row.Reference, payload)
			if err := r.outbox.Insert(ctx, tx, event); err != nil {
				return 0, err
			}
		}

		return int64(len(expired)), nil
	})
}
