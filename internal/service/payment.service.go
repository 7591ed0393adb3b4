package service

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/web3nova/academy-payments/internal/db/postgres"
	"github.com/web3nova/academy-payments/internal/domain"
	"github.com/web3nova/academy-payments/internal/gateway"
	"github.com/web3nova/academy-payments/internal/metrics"
	"github.com/web3nova/academy-payments/internal/pricing"
	"github.com/web3nova/academy-payments/internal/repo"
)

// PaymentService is the engine: it validates a stage-payment request, creates
// the local payment record, initializes the gateway transaction and persists
// the gateway references. It also owns the pull-based verification path.
type PaymentService struct {
	enrollments EnrollmentStore
	payments    PaymentStore
	gateway     GatewayAPI
	expiryDays  int
}

func NewPaymentService(enrollments EnrollmentStore, payments PaymentStore, gw GatewayAPI, expiryDays int) *PaymentService {
	return &PaymentService{
		enrollments: enrollments,
		payments:    payments,
		gateway:     gw,
		expiryDays:  expiryDays,
	}
}

type InitializeRequest struct {
	EnrollmentID  uuid.UUID
	Stage         int
	Amount        int64
	CustomerName  string
	CustomerEmail string
	CustomerPhone string
}

// InitializePayment creates a pending payment for an enrollment stage and
// opens a gateway checkout for it. The caller-supplied amount is validated
// server-side against the computed stage amount; client input is not trusted.
func (s *PaymentService) InitializePayment(ctx context.Context, req *InitializeRequest) (*domain.Payment, error) {
	enrollment, err := s.enrollments.GetByID(ctx, req.EnrollmentID)
	if err != nil {
		return nil, err
	}
	if enrollment == nil {
		metrics.PaymentsInitialized.WithLabelValues("not_found").Inc()
		return nil, domain.NewNotFoundError("enrollment", req.EnrollmentID.String())
	}

	expected, err := pricing.StageAmount(enrollment.Skill, enrollment.ScholarshipTier, req.Stage)
	if err != nil {
		metrics.PaymentsInitialized.WithLabelValues("invalid").Inc()
		return nil, err
	}
	if !pricing.WithinTolerance(req.Amount, expected) {
		metrics.PaymentsInitialized.WithLabelValues("invalid").Inc()
		return nil, domain.NewValidationError("amount",
			fmt.Sprintf("amount %d does not match stage %d amount %d", req.Amount, req.Stage, expected))
	}

	active, err := s.payments.ActiveForStage(ctx, enrollment.ID, req.Stage)
	if err != nil {
		return nil, err
	}
	if active != nil {
		metrics.PaymentsInitialized.WithLabelValues("conflict").Inc()
		return nil, domain.NewConflictError(active.Reference, req.Stage)
	}

	reference := newPaymentReference(enrollment.UserID, req.Stage)
	expiresAt := time.Now().UTC().AddDate(0, 0, s.expiryDays)
	payment := domain.NewPayment(enrollment.ID, req.Stage, expected, reference, expiresAt)
	if err := s.payments.Insert(ctx, payment); err != nil {
		if postgres.IsDuplicateKeyErr(err) {
			metrics.PaymentsInitialized.WithLabelValues("conflict").Inc()
			return nil, domain.NewConflictError(reference, req.Stage)
		}
		return nil, err
	}

	res, gwErr := s.gateway.InitializeTransaction(ctx, &gateway.InitRequest{
		Amount:           payment.Amount,
		CustomerName:     req.CustomerName,
		CustomerEmail:    req.CustomerEmail,
		CustomerPhone:    req.CustomerPhone,
		PaymentReference: reference,
		Description:      fmt.Sprintf("%s tuition, stage %d of %d", enrollment.Skill, req.Stage, pricing.StageCount),
		Metadata: map[string]string{
			"enrollmentId": enrollment.ID.String(),
			"stage":        fmt.Sprintf("%d", req.Stage),
		},
	})
	if gwErr != nil {
		txn := domain.NewTransaction(payment.ID, "", payment.Amount, domain.TransactionStatus_Failed, gwErr.Error())
		if err := s.payments.AppendTransaction(ctx, txn); err != nil {
			logrus.WithField("reference", reference).Errorf("unable to append transaction: %v", err)
		}
		if _, err := s.payments.Settle(ctx, reference, domain.PaymentStatus_Failed, repo.Settlement{
			ErrorMessage: gwErr.Error(),
			Detail:       "gateway initialization failed",
		}); err != nil {
			logrus.WithField("reference", reference).Errorf("unable to mark payment failed: %v", err)
		}
		metrics.PaymentsInitialized.WithLabelValues("gateway_error").Inc()
		return nil, gwErr
	}

	txn := domain.NewTransaction(payment.ID, res.TransactionReference, payment.Amount, domain.TransactionStatus_Pending, "gateway transaction initialized")
	if err := s.payments.AppendTransaction(ctx, txn); err != nil {
		return nil, err
	}
	if err := s.payments.AttachGateway(ctx, reference, res.TransactionReference, res.CheckoutURL); err != nil {
		return nil, err
	}
	payment.GatewayRef = res.TransactionReference
	payment.CheckoutURL = res.CheckoutURL

	logrus.WithFields(logrus.Fields{
		"reference": reference,
		"stage":     req.Stage,
		"amount":    payment.Amount,
	}).Info("payment initialized")
	metrics.PaymentsInitialized.WithLabelValues("ok").Inc()

	return payment, nil
}

// VerifyPayment polls the gateway for a payment's settlement outcome and
// applies it with the same idempotent rule as the webhook path: the first
// terminal write wins, later ones are no-ops.
func (s *PaymentService) VerifyPayment(ctx context.Context, reference string) (*domain.Payment, error) {
	payment, err := s.payments.GetByReference(ctx, reference)
	if err != nil {
		return nil, err
	}
	if payment == nil {
		return nil, domain.NewNotFoundError("payment", reference)
	}

	res, err := s.gateway.VerifyTransaction(ctx, reference)
	if err != nil {
		return nil, err
	}

	to, terminal, err := mapGatewayStatus(res.PaymentStatus)
	if err != nil {
		return nil, err
	}
	if !terminal || payment.Status.IsTerminal() {
		return payment, nil
	}

	settlement := repo.Settlement{
		PaymentMethod: res.PaymentMethod,
		Detail:        fmt.Sprintf("verified against gateway: %s", res.PaymentStatus),
	}
	if to == domain.PaymentStatus_Completed {
		now := time.Now().UTC()
		settlement.PaidAt = &now
	} else {
		settlement.ErrorMessage = fmt.Sprintf("gateway reported %s", res.PaymentStatus)
	}

	applied, err := s.payments.Settle(ctx, reference, to, settlement)
	if err != nil {
		return nil, err
	}
	if applied {
		logrus.WithFields(logrus.Fields{
			"reference": reference,
			"status":    to,
		}).Info("payment settled via verification")
	}

	return s.payments.GetByReference(ctx, reference)
}

// ListTransactions returns the gateway interaction history for a payment,
// oldest first.
func (s *PaymentService) ListTransactions(ctx context.Context, reference string) ([]*domain.Transaction, error) {
	payment, err := s.payments.GetByReference(ctx, reference)
	if err != nil {
		return nil, err
	}
	if payment == nil {
		return nil, domain.NewNotFoundError("payment", reference)
	}
	return s.payments.ListTransactions(ctx, payment.ID)
}

// mapGatewayStatus translates the gateway vocabulary into the internal enum.
// The second return is false while the gateway still considers the
// transaction open.
func mapGatewayStatus(status string) (domain.PaymentStatus, bool, error) {
	switch status {
	case gateway.GatewayStatus_Paid:
		return domain.PaymentStatus_Completed, true, nil
	case gateway.GatewayStatus_Pending, gateway.GatewayStatus_PartiallyPaid:
		return domain.PaymentStatus_Pending, false, nil
	case gateway.GatewayStatus_Failed:
		return domain.PaymentStatus_Failed, true, nil
	case gateway.GatewayStatus_Cancelled:
		return domain.PaymentStatus_Cancelled, true, nil
	case gateway.GatewayStatus_Expired:
		return domain.PaymentStatus_Expired, true, nil
	default:
		return "", false, domain.NewGatewayError(0, fmt.Sprintf("unrecognized gateway status %q", status), nil)
	}
}

// newPaymentReference builds the system reference:
// WEB3NOVA-{first8 of userID, uppercased}-{stage}-{unixMillis}-{4-digit random}.
func newPaymentReference(userID uuid.UUID, stage int) string {
	short := strings.ToUpper(userID.String()[:8])
	return fmt.Sprintf("WEB3NOVA-%s-%d-%d-%04d", short, stage, time.Now().UnixMilli(), rand.IntN(10_000))
}
