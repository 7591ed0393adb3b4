package service

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/web3nova/academy-payments/internal/metrics"
)

// SweeperService expires stale pending payments. The underlying update is a
// single conditional statement, so overlapping runs are safe.
type SweeperService struct {
	payments PaymentStore
}

func NewSweeperService(payments PaymentStore) *SweeperService {
	return &SweeperService{payments: payments}
}

func (s *SweeperService) ExpireStale(ctx context.Context) (int64, error) {
	count, err := s.payments.ExpireStale(ctx, time.Now().UTC())
	if err != nil {
		return 0, err
	}
	if count > 0 {
		metrics.PaymentsExpired.Add(float64(count))
		logrus.WithField("count", count).Info("expired stale payments")
	}
	return count, nil
}

// Run sweeps on a ticker until the context is cancelled. A failed sweep is
// logged and retried on the next tick.
func (s *SweeperService) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.ExpireStale(ctx); err != nil {
				logrus.Errorf("sweep failed: %v", err)
			}
		}
	}
}
