package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPendingTransitions(t *testing.T) {
	for _, to := range []PaymentStatus{
		PaymentStatus_Completed,
		PaymentStatus_Failed,
		PaymentStatus_Cancelled,
		PaymentStatus_Expired,
	} {
		assert.True(t, CanTransition(PaymentStatus_Pending, to), "pending -> %s", to)
	}
	assert.False(t, CanTransition(PaymentStatus_Pending, PaymentStatus_Refunded))
}

func TestCompletedOnlyRefunds(t *testing.T) {
	assert.True(t, CanTransition(PaymentStatus_Completed, PaymentStatus_Refunded))
	for _, to := range []PaymentStatus{
		PaymentStatus_Pending,
		PaymentStatus_Failed,
		PaymentStatus_Cancelled,
		PaymentStatus_Expired,
	} {
		assert.False(t, CanTransition(PaymentStatus_Completed, to), "completed -> %s", to)
	}
}

func TestTerminalStatesStayTerminal(t *testing.T) {
	terminals := []PaymentStatus{
		PaymentStatus_Failed,
		PaymentStatus_Cancelled,
		PaymentStatus_Expired,
		PaymentStatus_Refunded,
	}
	all := []PaymentStatus{
		PaymentStatus_Pending,
		PaymentStatus_Completed,
		PaymentStatus_Failed,
		PaymentStatus_Cancelled,
		PaymentStatus_Expired,
		PaymentStatus_Refunded,
	}
	for _, from := range terminals {
		for _, to := range all {
			assert.False(t, CanTransition(from, to), "%s -> %s", from, to)
		}
	}
}

func TestValidateTransitionError(t *testing.T) {
	err := ValidateTransition(PaymentStatus_Expired, PaymentStatus_Completed)
	require.Error(t, err)
	var tErr *InvalidTransitionError
	require.ErrorAs(t, err, &tErr)
	assert.Equal(t, PaymentStatus_Expired, tErr.From)
	assert.Equal(t, PaymentStatus_Completed, tErr.To)

	assert.NoError(t, ValidateTransition(PaymentStatus_Pending, PaymentStatus_Completed))
}

func TestUnknownStatusNeverTransitions(t *testing.T) {
	assert.False(t, CanTransition(PaymentStatus("bogus"), PaymentStatus_Completed))
}

func TestNewPaymentStartsPending(t *testing.T) {
	p := NewPayment(uuid.New(), 2, 20_000, "WEB3NOVA-ABCD1234-2-1-0001", time.Now().Add(48*time.Hour))
	assert.Equal(t, PaymentStatus_Pending, p.Status)
	assert.False(t, p.Status.IsTerminal())
	assert.Equal(t, 2, p.Stage)
}

func TestNotificationEventForStatus(t *testing.T) {
	assert.Equal(t, EventType_PaymentCompleted, NotificationEventForStatus(PaymentStatus_Completed))
	assert.Equal(t, EventType_PaymentExpired, NotificationEventForStatus(PaymentStatus_Expired))
	assert.Equal(t, EventType_PaymentCancelled, NotificationEventForStatus(PaymentStatus_Cancelled))
	assert.Equal(t, EventType_PaymentFailed, NotificationEventForStatus(PaymentStatus_Failed))
}
