package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/web3nova/academy-payments/internal/domain"
	"github.com/web3nova/academy-payments/internal/gateway"
)

const testSecret = "webhook-test-secret"

func sign(payload []byte) string {
	mac := hmac.New(sha512.New, []byte(testSecret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

func successEvent(gatewayRef string) []byte {
	return successEventPaying(gatewayRef, 20_000)
}

func successEventPaying(gatewayRef string, amountPaid int64) []byte {
	return fmt.Appendf(nil,
		`{"eventType":"SUCCESSFUL_TRANSACTION","eventData":{"transactionReference":"%s","paymentReference":"","amountPaid":%d,"paymentMethod":"CARD","paidOn":"2026-08-28 10:00:00"}}`,
		gatewayRef, amountPaid)
}

func TestVerifySignature(t *testing.T) {
	svc := NewWebhookService(&fakeWebhookLogStore{}, newFakePaymentStore(), testSecret)
	payload := successEvent("MNFY|100")

	assert.True(t, svc.VerifySignature(payload, sign(payload)))

	// Flipping any single byte invalidates the signature.
	tampered := append([]byte(nil), payload...)
	tampered[10] ^= 0x01
	assert.False(t, svc.VerifySignature(tampered, sign(payload)))

	assert.False(t, svc.VerifySignature(payload, ""))
	assert.False(t, svc.VerifySignature(payload, "deadbeef"))
}

func TestInvalidSignatureLoggedButNotApplied(t *testing.T) {
	p := domain.NewPayment(uuid.New(), 1, 20_000, "WEB3NOVA-AAAA0000-1-1-0001", time.Now().Add(time.Hour))
	p.GatewayRef = "MNFY|100"
	payments := newFakePaymentStore(p)
	logs := &fakeWebhookLogStore{}
	svc := NewWebhookService(logs, payments, testSecret)

	payload := successEvent("MNFY|100")
	err := svc.HandleEvent(context.Background(), "monnify", payload, "not-the-signature")
	require.NoError(t, err, "handler must stay green so the boundary can ack 200")

	entry := logs.last()
	require.NotNil(t, entry, "rejected events are still retained for audit")
	assert.False(t, entry.SignatureValid)
	assert.Equal(t, domain.WebhookStatus_Failed, entry.Status)
	assert.Contains(t, entry.Detail, "invalid signature")

	assert.Equal(t, domain.PaymentStatus_Pending, p.Status)
}

func TestUnmatchedReferenceIsProcessedNoop(t *testing.T) {
	payments := newFakePaymentStore()
	logs := &fakeWebhookLogStore{}
	svc := NewWebhookService(logs, payments, testSecret)

	payload := successEvent("MNFY|UNKNOWN")
	err := svc.HandleEvent(context.Background(), "monnify", payload, sign(payload))
	require.NoError(t, err)

	entry := logs.last()
	require.NotNil(t, entry)
	assert.True(t, entry.SignatureValid)
	assert.Equal(t, domain.WebhookStatus_Processed, entry.Status)
	assert.Contains(t, entry.Detail, "no payment")
	assert.Equal(t, 0, payments.settleCount)
}

func TestSuccessfulEventCompletesPayment(t *testing.T) {
	p := domain.NewPayment(uuid.New(), 1, 20_000, "WEB3NOVA-BBBB0000-1-1-0001", time.Now().Add(time.Hour))
	p.GatewayRef = "MNFY|200"
	payments := newFakePaymentStore(p)
	logs := &fakeWebhookLogStore{}
	svc := NewWebhookService(logs, payments, testSecret)

	payload := successEvent("MNFY|200")
	err := svc.HandleEvent(context.Background(), "monnify", payload, sign(payload))
	require.NoError(t, err)

	assert.Equal(t, domain.PaymentStatus_Completed, p.Status)
	assert.Equal(t, "CARD", p.PaymentMethod)
	require.NotNil(t, p.PaidAt)
	assert.Equal(t, domain.WebhookStatus_Processed, logs.last().Status)
}

func TestDuplicateDeliveryIsIdempotent(t *testing.T) {
	p := domain.NewPayment(uuid.New(), 1, 20_000, "WEB3NOVA-CCCC0000-1-1-0001", time.Now().Add(time.Hour))
	p.GatewayRef = "MNFY|300"
	payments := newFakePaymentStore(p)
	logs := &fakeWebhookLogStore{}
	svc := NewWebhookService(logs, payments, testSecret)

	payload := successEvent("MNFY|300")
	require.NoError(t, svc.HandleEvent(context.Background(), "monnify", payload, sign(payload)))
	firstPaidAt := p.PaidAt

	require.NoError(t, svc.HandleEvent(context.Background(), "monnify", payload, sign(payload)))

	assert.Equal(t, domain.PaymentStatus_Completed, p.Status)
	assert.Equal(t, firstPaidAt, p.PaidAt, "second delivery must not touch paid_at")
	assert.Equal(t, 1, payments.settleCount, "exactly one completed transition")
	assert.Contains(t, logs.last().Detail, "already")
}

func TestIgnoredEventType(t *testing.T) {
	payments := newFakePaymentStore()
	logs := &fakeWebhookLogStore{}
	svc := NewWebhookService(logs, payments, testSecret)

	payload := []byte(`{"eventType":"SETTLEMENT_COMPLETED","eventData":{}}`)
	require.NoError(t, svc.HandleEvent(context.Background(), "monnify", payload, sign(payload)))

	assert.Equal(t, domain.WebhookStatus_Processed, logs.last().Status)
	assert.Contains(t, logs.last().Detail, "ignored")
}

func TestUnparseablePayloadLoggedFailed(t *testing.T) {
	logs := &fakeWebhookLogStore{}
	svc := NewWebhookService(logs, newFakePaymentStore(), testSecret)

	payload := []byte(`{"eventType":`)
	require.NoError(t, svc.HandleEvent(context.Background(), "monnify", payload, sign(payload)))

	assert.Equal(t, domain.WebhookStatus_Failed, logs.last().Status)
	assert.Contains(t, logs.last().Detail, "unparseable")
}

func TestUnderpaidEventDoesNotComplete(t *testing.T) {
	p := domain.NewPayment(uuid.New(), 1, 20_000, "WEB3NOVA-EEEE0000-1-1-0001", time.Now().Add(time.Hour))
	p.GatewayRef = "MNFY|600"
	payments := newFakePaymentStore(p)
	logs := &fakeWebhookLogStore{}
	svc := NewWebhookService(logs, payments, testSecret)

	payload := successEventPaying("MNFY|600", 5_000)
	require.NoError(t, svc.HandleEvent(context.Background(), "monnify", payload, sign(payload)))

	assert.Equal(t, domain.PaymentStatus_Pending, p.Status)
	assert.Equal(t, 0, payments.settleCount)
	assert.Equal(t, domain.WebhookStatus_Failed, logs.last().Status)
	assert.Contains(t, logs.last().Detail, "amount mismatch")
}

func TestListFailuresReturnsOnlyFailedLogs(t *testing.T) {
	logs := &fakeWebhookLogStore{}
	svc := NewWebhookService(logs, newFakePaymentStore(), testSecret)

	good := successEvent("MNFY|500")
	require.NoError(t, svc.HandleEvent(context.Background(), "monnify", good, sign(good)))
	require.NoError(t, svc.HandleEvent(context.Background(), "monnify", good, "bad-signature"))

	failed, err := svc.ListFailures(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, domain.WebhookStatus_Failed, failed[0].Status)
	assert.False(t, failed[0].SignatureValid)
}

// Webhook and poll-verify racing for the same payment must produce exactly
// one terminal status.
func TestWebhookAndVerifyConverge(t *testing.T) {
	p := domain.NewPayment(uuid.New(), 1, 20_000, "WEB3NOVA-DDDD0000-1-1-0001", time.Now().Add(time.Hour))
	p.GatewayRef = "MNFY|400"
	payments := newFakePaymentStore(p)
	logs := &fakeWebhookLogStore{}

	webhookSvc := NewWebhookService(logs, payments, testSecret)
	gw := &fakeGateway{verifyResult: &gateway.VerifyResult{
		PaymentStatus: gateway.GatewayStatus_Paid,
		PaymentMethod: "ACCOUNT_TRANSFER",
	}}
	paymentSvc := NewPaymentService(newFakeEnrollmentStore(), payments, gw, 3)

	payload := successEvent("MNFY|400")
	sig := sign(payload)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_ = webhookSvc.HandleEvent(context.Background(), "monnify", payload, sig)
	}()
	go func() {
		defer wg.Done()
		_, _ = paymentSvc.VerifyPayment(context.Background(), p.Reference)
	}()
	wg.Wait()

	assert.Equal(t, domain.PaymentStatus_Completed, p.Status)
	assert.Equal(t, 1, payments.settleCount, "only one terminal write may land")
}
