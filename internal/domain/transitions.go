package domain

// AllowedTransitions is the authoritative status table. A pending payment may
// settle in exactly one of four ways; completed may later be refunded; every
// other status is terminal.
var AllowedTransitions = map[PaymentStatus][]PaymentStatus{
	PaymentStatus_Pending: {
		PaymentStatus_Completed,
		PaymentStatus_Failed,
		PaymentStatus_Cancelled,
		PaymentStatus_Expired,
	},
	PaymentStatus_Completed: {
		PaymentStatus_Refunded,
	},
	PaymentStatus_Failed:    {},
	PaymentStatus_Cancelled: {},
	PaymentStatus_Expired:   {},
	PaymentStatus_Refunded:  {},
}

func CanTransition(from, to PaymentStatus) bool {
	allowed, ok := AllowedTransitions[from]
	if !ok {
		return false
	}
	for _, s := range allowed {
		if s == to {
			return true
		}
	}
	return false
}

// ValidateTransition is invoked by every write path before a status change is
// applied; ad hoc field updates must not move status around this guard.
func ValidateTransition(from, to PaymentStatus) error {
	if !CanTransition(from, to) {
		return NewInvalidTransitionError(from, to)
	}
	return nil
}
