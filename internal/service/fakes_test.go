package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/web3nova/academy-payments/internal/domain"
	"github.com/web3nova/academy-payments/internal/gateway"
	"github.com/web3nova/academy-payments/internal/repo"
)

type fakeEnrollmentStore struct {
	enrollments map[uuid.UUID]*domain.Enrollment
}

func newFakeEnrollmentStore(enrollments ...*domain.Enrollment) *fakeEnrollmentStore {
	s := &fakeEnrollmentStore{enrollments: map[uuid.UUID]*domain.Enrollment{}}
	for _, e := range enrollments {
		s.enrollments[e.ID] = e
	}
	return s
}

// Insert enforces the (user, skill) uniqueness the database constraint would,
// surfacing the same pq error code.
func (s *fakeEnrollmentStore) Insert(_ context.Context, e *domain.Enrollment) error {
	for _, existing := range s.enrollments {
		if existing.UserID == e.UserID && existing.Skill == e.Skill {
			return &pq.Error{Code: "23505"}
		}
	}
	s.enrollments[e.ID] = e
	return nil
}

func (s *fakeEnrollmentStore) GetByID(_ context.Context, id uuid.UUID) (*domain.Enrollment, error) {
	return s.enrollments[id], nil
}

// fakePaymentStore mimics the conditional-update semantics of the sqlx repo:
// Settle only succeeds while the payment is still pending.
type fakePaymentStore struct {
	mu           sync.Mutex
	payments     map[string]*domain.Payment
	transactions []*domain.Transaction
	settleCount  int
}

func newFakePaymentStore(payments ...*domain.Payment) *fakePaymentStore {
	s := &fakePaymentStore{payments: map[string]*domain.Payment{}}
	for _, p := range payments {
		s.payments[p.Reference] = p
	}
	return s
}

// Insert enforces the one-pending-payment-per-stage partial unique index,
// surfacing the same pq error code the database would.
func (s *fakePaymentStore) Insert(_ context.Context, p *domain.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.payments {
		if existing.EnrollmentID == p.EnrollmentID && existing.Stage == p.Stage &&
			existing.Status == domain.PaymentStatus_Pending && p.Status == domain.PaymentStatus_Pending {
			return &pq.Error{Code: "23505"}
		}
	}
	s.payments[p.Reference] = p
	return nil
}

// Getters hand out copies, like rows scanned from the database would be.
func clonePayment(p *domain.Payment) *domain.Payment {
	if p == nil {
		return nil
	}
	cp := *p
	return &cp
}

func (s *fakePaymentStore) GetByReference(_ context.Context, reference string) (*domain.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return clonePayment(s.payments[reference]), nil
}

func (s *fakePaymentStore) GetByGatewayRef(_ context.Context, gatewayRef string) (*domain.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gatewayRef == "" {
		return nil, nil
	}
	for _, p := range s.payments {
		if p.GatewayRef == gatewayRef {
			return clonePayment(p), nil
		}
	}
	return nil, nil
}

func (s *fakePaymentStore) ActiveForStage(_ context.Context, enrollmentID uuid.UUID, stage int) (*domain.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.payments {
		if p.EnrollmentID == enrollmentID && p.Stage == stage && p.Status == domain.PaymentStatus_Pending {
			return clonePayment(p), nil
		}
	}
	return nil, nil
}

func (s *fakePaymentStore) AttachGateway(_ context.Context, reference, gatewayRef, checkoutURL string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.payments[reference]; ok {
		p.GatewayRef = gatewayRef
		p.CheckoutURL = checkoutURL
	}
	return nil
}

func (s *fakePaymentStore) AppendTransaction(_ context.Context, t *domain.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transactions = append(s.transactions, t)
	return nil
}

func (s *fakePaymentStore) ListTransactions(_ context.Context, paymentID uuid.UUID) ([]*domain.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var txns []*domain.Transaction
	for _, t := range s.transactions {
		if t.PaymentID == paymentID {
			txns = append(txns, t)
		}
	}
	return txns, nil
}

func (s *fakePaymentStore) Settle(_ context.Context, reference string, to domain.PaymentStatus, st repo.Settlement) (bool, error) {
	if err := domain.ValidateTransition(domain.PaymentStatus_Pending, to); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.payments[reference]
	if !ok || p.Status != domain.PaymentStatus_Pending {
		return false, nil
	}
	p.Status = to
	p.PaymentMethod = st.PaymentMethod
	p.ErrorMessage = st.ErrorMessage
	p.PaidAt = st.PaidAt
	p.UpdatedAt = time.Now().UTC()
	s.settleCount++
	return true, nil
}

func (s *fakePaymentStore) ExpireStale(_ context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var count int64
	for _, p := range s.payments {
		if p.Status == domain.PaymentStatus_Pending && p.ExpiresAt.Before(now) {
			p.Status = domain.PaymentStatus_Expired
			count++
		}
	}
	return count, nil
}

type fakeWebhookLogStore struct {
	mu   sync.Mutex
	logs []*domain.WebhookLog
}

func (s *fakeWebhookLogStore) Insert(_ context.Context, l *domain.WebhookLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logs = append(s.logs, l)
	return nil
}

func (s *fakeWebhookLogStore) SetOutcome(_ context.Context, id uuid.UUID, status domain.WebhookStatus, detail string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, l := range s.logs {
		if l.ID == id {
			l.Status = status
			l.Detail = detail
		}
	}
	return nil
}

func (s *fakeWebhookLogStore) ListFailed(_ context.Context, limit int) ([]*domain.WebhookLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var failed []*domain.WebhookLog
	for i := len(s.logs) - 1; i >= 0 && len(failed) < limit; i-- {
		if s.logs[i].Status == domain.WebhookStatus_Failed {
			failed = append(failed, s.logs[i])
		}
	}
	return failed, nil
}

func (s *fakeWebhookLogStore) last() *domain.WebhookLog {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.logs) == 0 {
		return nil
	}
	return s.logs[len(s.logs)-1]
}

type fakeGateway struct {
	initResult   *gateway.InitResult
	initErr      error
	lastInit     *gateway.InitRequest
	verifyResult *gateway.VerifyResult
	verifyErr    error
}

func (g *fakeGateway) InitializeTransaction(_ context.Context, r *gateway.InitRequest) (*gateway.InitResult, error) {
	g.lastInit = r
	if g.initErr != nil {
		return nil, g.initErr
	}
	return g.initResult, nil
}

func (g *fakeGateway) VerifyTransaction(_ context.Context, _ string) (*gateway.VerifyResult, error) {
	if g.verifyErr != nil {
		return nil, g.verifyErr
	}
	return g.verifyResult, nil
}
