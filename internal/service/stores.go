package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/web3nova/academy-payments/internal/domain"
	"github.com/web3nova/academy-payments/internal/gateway"
	"github.com/web3nova/academy-payments/internal/repo"
)

// Store interfaces the services orchestrate over. The sqlx repositories in
// internal/repo satisfy them; tests use in-memory fakes.

type EnrollmentStore interface {
	Insert(ctx context.Context, e *domain.Enrollment) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Enrollment, error)
}

type PaymentStore interface {
	Insert(ctx context.Context, p *domain.Payment) error
	GetByReference(ctx context.Context, reference string) (*domain.Payment, error)
	GetByGatewayRef(ctx context.Context, gatewayRef string) (*domain.Payment, error)
	ActiveForStage(ctx context.Context, enrollmentID uuid.UUID, stage int) (*domain.Payment, error)
	AttachGateway(ctx context.Context, reference, gatewayRef, checkoutURL string) error
	AppendTransaction(ctx context.Context, t *domain.Transaction) error
	ListTransactions(ctx context.Context, paymentID uuid.UUID) ([]*domain.Transaction, error)
	Settle(ctx context.Context, reference string, to domain.PaymentStatus, s repo.Settlement) (bool, error)
	ExpireStale(ctx context.Context, now time.Time) (int64, error)
}

type WebhookLogStore interface {
	Insert(ctx context.Context, l *domain.WebhookLog) error
	SetOutcome(ctx context.Context, id uuid.UUID, status domain.WebhookStatus, detail string) error
	ListFailed(ctx context.Context, limit int) ([]*domain.WebhookLog, error)
}

type GatewayAPI interface {
	InitializeTransaction(ctx context.Context, r *gateway.InitRequest) (*gateway.InitResult, error)
	VerifyTransaction(ctx context.Context, paymentReference string) (*gateway.VerifyResult, error)
}
