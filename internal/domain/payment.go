// Package domain holds the tuition-payment entities and the status rules
// that every write path has to respect.
package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx/types"
)

type PaymentStatus string

const (
	PaymentStatus_Pending   PaymentStatus = "pending"
	PaymentStatus_Completed PaymentStatus = "completed"
	PaymentStatus_Failed    PaymentStatus = "failed"
	PaymentStatus_Cancelled PaymentStatus = "cancelled"
	PaymentStatus_Expired   PaymentStatus = "expired"
	PaymentStatus_Refunded  PaymentStatus = "refunded"
)

// IsTerminal reports whether a payment in this status accepts no further
// gateway outcome. Refunded is reachable only from completed.
func (s PaymentStatus) IsTerminal() bool {
	return s != PaymentStatus_Pending
}

type TransactionStatus string

const (
	TransactionStatus_Pending    TransactionStatus = "pending"
	TransactionStatus_Successful TransactionStatus = "successful"
	TransactionStatus_Failed     TransactionStatus = "failed"
)

// Enrollment is the immutable price basis a student pays against.
// One row per (user, skill); prices are fixed at enrollment time.
type Enrollment struct {
	ID              uuid.UUID `db:"id"`
	UserID          uuid.UUID `db:"user_id"`
	Skill           string    `db:"skill"`
	ScholarshipTier string    `db:"scholarship_tier"`
	BasePrice       int64     `db:"base_price"`
	FinalPrice      int64     `db:"final_price"`
	CreatedAt       time.Time `db:"created_at"`
}

func NewEnrollment(userID uuid.UUID, skill, tier string, basePrice, finalPrice int64) *Enrollment {
	return &Enrollment{
		ID:              uuid.New(),
		UserID:          userID,
		Skill:           skill,
		ScholarshipTier: tier,
		BasePrice:       basePrice,
		FinalPrice:      finalPrice,
		CreatedAt:       time.Now().UTC(),
	}
}

// Payment is a single stage-payment attempt against an enrollment.
type Payment struct {
	ID            uuid.UUID     `db:"id"`
	EnrollmentID  uuid.UUID     `db:"enrollment_id"`
	Stage         int           `db:"stage"`
	Amount        int64         `db:"amount"`
	Status        PaymentStatus `db:"status"`
	Reference     string        `db:"reference"`
	GatewayRef    string        `db:"gateway_ref"`
	CheckoutURL   string        `db:"checkout_url"`
	PaymentMethod string        `db:"payment_method"`
	ErrorMessage  string        `db:"error_message"`
	PaidAt        *time.Time    `db:"paid_at"`
	ExpiresAt     time.Time     `db:"expires_at"`
	CreatedAt     time.Time     `db:"created_at"`
	UpdatedAt     time.Time     `db:"updated_at"`
}

func NewPayment(enrollmentID uuid.UUID, stage int, amount int64, reference string, expiresAt time.Time) *Payment {
	now := time.Now().UTC()
	return &Payment{
		ID:           uuid.New(),
		EnrollmentID: enrollmentID,
		Stage:        stage,
		Amount:       amount,
		Status:       PaymentStatus_Pending,
		Reference:    reference,
		ExpiresAt:    expiresAt,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// Transaction is an append-only record of one gateway interaction.
// Its status is independent of the parent payment.
type Transaction struct {
	ID         uuid.UUID         `db:"id"`
	PaymentID  uuid.UUID         `db:"payment_id"`
	GatewayRef string            `db:"gateway_ref"`
	Amount     int64             `db:"amount"`
	Status     TransactionStatus `db:"status"`
	Detail     string            `db:"detail"`
	CreatedAt  time.Time         `db:"created_at"`
}

func NewTransaction(paymentID uuid.UUID, gatewayRef string, amount int64, status TransactionStatus, detail string) *Transaction {
	return &Transaction{
		ID:         uuid.New(),
		PaymentID:  paymentID,
		GatewayRef: gatewayRef,
		Amount:     amount,
		Status:     status,
		Detail:     detail,
		CreatedAt:  time.Now().UTC(),
	}
}

type WebhookStatus string

const (
	WebhookStatus_Received  WebhookStatus = "received"
	WebhookStatus_Processed WebhookStatus = "processed"
	WebhookStatus_Failed    WebhookStatus = "failed"
)

// WebhookLog keeps every inbound gateway event, including ones whose
// signature did not validate. Rows are only ever appended to with an outcome.
// Payload is the raw body as received; it may not even be valid JSON.
type WebhookLog struct {
	ID             uuid.UUID     `db:"id"`
	Provider       string        `db:"provider"`
	Payload        string        `db:"payload"`
	Signature      string        `db:"signature"`
	SignatureValid bool          `db:"signature_valid"`
	Status         WebhookStatus `db:"status"`
	Detail         string        `db:"detail"`
	CreatedAt      time.Time     `db:"created_at"`
}

func NewWebhookLog(provider string, payload []byte, signature string, valid bool) *WebhookLog {
	return &WebhookLog{
		ID:             uuid.New(),
		Provider:       provider,
		Payload:        string(payload),
		Signature:      signature,
		SignatureValid: valid,
		Status:         WebhookStatus_Received,
		CreatedAt:      time.Now().UTC(),
	}
}

type EventStatus string

const (
	EventStatus_Pending  EventStatus = "pending"
	EventStatus_Produced EventStatus = "produced"
)

type EventType string

const (
	EventType_PaymentCompleted EventType = "payment_completed"
	EventType_PaymentFailed    EventType = "payment_failed"
	EventType_PaymentCancelled EventType = "payment_cancelled"
	EventType_PaymentExpired   EventType = "payment_expired"
)

// NotificationEvent is an outbox row written in the same transaction as the
// payment status change it describes, and delivered asynchronously.
type NotificationEvent struct {
	EventID   uuid.UUID      `db:"event_id"`
	EventType EventType      `db:"event_type"`
	Reference string         `db:"reference"`
	Payload   types.JSONText `db:"payload"`
	Status    EventStatus    `db:"status"`
	CreatedAt time.Time      `db:"created_at"`
}

func NewNotificationEvent(eventType EventType, reference string, payload []byte) *NotificationEvent {
	return &NotificationEvent{
		EventID:   uuid.New(),
		EventType: eventType,
		Reference: reference,
		Payload:   types.JSONText(payload),
		Status:    EventStatus_Pending,
		CreatedAt: time.Now().UTC(),
	}
}

// NotificationEventForStatus picks the outbox event type matching a terminal
// payment status.
func NotificationEventForStatus(s PaymentStatus) EventType {
	switch s {
	case PaymentStatus_Completed:
		return EventType_PaymentCompleted
	case PaymentStatus_Cancelled:
		return EventType_PaymentCancelled
	case PaymentStatus_Expired:
		return EventType_PaymentExpired
	default:
		return EventType_PaymentFailed
	}
}
