package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/web3nova/academy-payments/internal/domain"
	"github.com/web3nova/academy-payments/internal/metrics"
	"github.com/web3nova/academy-payments/internal/pricing"
	"github.com/web3nova/academy-payments/internal/repo"
)

// Event type delivered by the gateway for a settled transaction.
const EventSuccessfulTransaction = "SUCCESSFUL_TRANSACTION"

// WebhookService verifies inbound gateway callbacks and applies settlement
// outcomes idempotently. Every event is logged before anything else happens;
// once the log row exists, processing failures stay internal and the HTTP
// boundary acks 200 to stop redelivery.
type WebhookService struct {
	logs     WebhookLogStore
	payments PaymentStore
	secret   []byte
}

func NewWebhookService(logs WebhookLogStore, payments PaymentStore, secret string) *WebhookService {
	return &WebhookService{
		logs:     logs,
		payments: payments,
		secret:   []byte(secret),
	}
}

type webhookEvent struct {
	EventType string `json:"eventType"`
	EventData struct {
		TransactionReference string `json:"transactionReference"`
		PaymentReference     string `json:"paymentReference"`
		AmountPaid           int64  `json:"amountPaid"`
		PaymentMethod        string `json:"paymentMethod"`
		PaidOn               string `json:"paidOn"`
	} `json:"eventData"`
}

// VerifySignature computes HMAC-SHA512 over the raw payload and compares it
// to the claimed hex signature in constant time. An empty signature never
// validates.
func (s *WebhookService) VerifySignature(payload []byte, signature string) bool {
	if signature == "" {
		return false
	}
	mac := hmac.New(sha512.New, s.secret)
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

// HandleEvent durably logs the raw event, then applies it. It returns an
// error only when the initial log write fails; anything after that is
// recorded on the log row and swallowed so the gateway is not retry-stormed.
func (s *WebhookService) HandleEvent(ctx context.Context, provider string, payload []byte, signature string) error {
	valid := s.VerifySignature(payload, signature)
	entry := domain.NewWebhookLog(provider, payload, signature, valid)
	if err := s.logs.Insert(ctx, entry); err != nil {
		return err
	}

	if !valid {
		metrics.WebhookEvents.WithLabelValues("invalid_signature").Inc()
		logrus.WithField("provider", provider).Warn("webhook signature invalid")
		s.setOutcome(ctx, entry, domain.WebhookStatus_Failed, "invalid signature")
		return nil
	}

	var event webhookEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		metrics.WebhookEvents.WithLabelValues("unparseable").Inc()
		s.setOutcome(ctx, entry, domain.WebhookStatus_Failed, fmt.Sprintf("unparseable payload: %v", err))
		return nil
	}

	if event.EventType != EventSuccessfulTransaction {
		metrics.WebhookEvents.WithLabelValues("ignored").Inc()
		s.setOutcome(ctx, entry, domain.WebhookStatus_Processed, fmt.Sprintf("ignored event type %s", event.EventType))
		return nil
	}

	payment, err := s.lookupPayment(ctx, &event)
	if err != nil {
		metrics.WebhookEvents.WithLabelValues("error").Inc()
		s.setOutcome(ctx, entry, domain.WebhookStatus_Failed, fmt.Sprintf("payment lookup failed: %v", err))
		return nil
	}
	if payment == nil {
		// The gateway may deliver events for unrelated or test transactions.
		metrics.WebhookEvents.WithLabelValues("unmatched").Inc()
		s.setOutcome(ctx, entry, domain.WebhookStatus_Processed,
			fmt.Sprintf("no payment for gateway reference %s", event.EventData.TransactionReference))
		return nil
	}

	if payment.Status.IsTerminal() {
		metrics.WebhookEvents.WithLabelValues("duplicate").Inc()
		s.setOutcome(ctx, entry, domain.WebhookStatus_Processed,
			fmt.Sprintf("payment %s already %s", payment.Reference, payment.Status))
		return nil
	}

	// A settlement for the wrong amount must not complete the stage at full
	// value; the payment stays pending for verification or manual review.
	if !pricing.WithinTolerance(event.EventData.AmountPaid, payment.Amount) {
		metrics.WebhookEvents.WithLabelValues("amount_mismatch").Inc()
		logrus.WithFields(logrus.Fields{
			"reference":  payment.Reference,
			"amountPaid": event.EventData.AmountPaid,
			"expected":   payment.Amount,
		}).Warn("webhook amount mismatch")
		s.setOutcome(ctx, entry, domain.WebhookStatus_Failed,
			fmt.Sprintf("amount mismatch: event paid %d, payment expects %d",
				event.EventData.AmountPaid, payment.Amount))
		return nil
	}

	now := time.Now().UTC()
	applied, err := s.payments.Settle(ctx, payment.Reference, domain.PaymentStatus_Completed, repo.Settlement{
		PaidAt:        &now,
		PaymentMethod: event.EventData.PaymentMethod,
		Detail:        "settled via webhook",
	})
	if err != nil {
		metrics.WebhookEvents.WithLabelValues("error").Inc()
		s.setOutcome(ctx, entry, domain.WebhookStatus_Failed, fmt.Sprintf("settlement failed: %v", err))
		return nil
	}

	outcome := "payment completed"
	if !applied {
		// Lost the race to a concurrent verify or webhook; already terminal.
		outcome = "already settled, no-op"
	}
	metrics.WebhookEvents.WithLabelValues("processed").Inc()
	logrus.WithFields(logrus.Fields{
		"reference": payment.Reference,
		"applied":   applied,
	}).Info("webhook processed")
	s.setOutcome(ctx, entry, domain.WebhookStatus_Processed, outcome)
	return nil
}

// ListFailures returns recent events whose signature or processing failed,
// most recent first. Operators use it to decide what to replay.
func (s *WebhookService) ListFailures(ctx context.Context, limit int) ([]*domain.WebhookLog, error) {
	return s.logs.ListFailed(ctx, limit)
}

func (s *WebhookService) lookupPayment(ctx context.Context, event *webhookEvent) (*domain.Payment, error) {
	payment, err := s.payments.GetByGatewayRef(ctx, event.EventData.TransactionReference)
	if err != nil {
		return nil, err
	}
	if payment == nil && event.EventData.PaymentReference != "" {
		return s.payments.GetByReference(ctx, event.EventData.PaymentReference)
	}
	return payment, nil
}

func (s *WebhookService) setOutcome(ctx context.Context, entry *domain.WebhookLog, status domain.WebhookStatus, detail string) {
	if err := s.logs.SetOutcome(ctx, entry.ID, status, detail); err != nil {
		logrus.WithField("webhookLog", entry.ID).Errorf("unable to record webhook outcome: %v", err)
	}
}
