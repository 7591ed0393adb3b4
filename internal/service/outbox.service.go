package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"

	"github.com/web3nova/academy-payments/internal/domain"
	"github.com/web3nova/academy-payments/internal/repo"
	reposhared "github.com/web3nova/academy-payments/internal/repo/repo-shared"
)

type Producer interface {
	Produce(msg []byte) error
}

// OutboxService drains pending notification events to the message broker.
// Delivery is decoupled from the payment write path: a failed publish leaves
// the row pending for the next tick.
type OutboxService struct {
	outbox   *repo.OutboxRepo
	producer Producer
}

func NewOutbox(outbox *repo.OutboxRepo, producer Producer) *OutboxService {
	return &OutboxService{
		outbox:   outbox,
		producer: producer,
	}
}

func (s *OutboxService) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.handlePending()
		}
	}
}

func (s *OutboxService) handlePending() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*30)
	defer cancel()

	db := s.outbox.GetRepo()
	_, err := reposhared.TxClosure(ctx, db, func(ctx context.Context, tx *sqlx.Tx) (int, error) {
		events, err := s.outbox.GetAllPending(ctx, tx)
		if err != nil {
			return 0, err
		}

		toUpdateIds := []string{}
		for _, e := range events {
			b, err := json.Marshal(e)
			if err != nil {
				logrus.Errorf("error marshalling event %v", err)
				continue
			}
			if err := s.producer.Produce(b); err != nil {
				logrus.Errorf("error producing event %v", err)
				continue
			}
			toUpdateIds = append(toUpdateIds, e.EventID.String())
		}

		rows, err := s.outbox.UpdateStatusByIds(ctx, tx, toUpdateIds, domain.EventStatus_Produced)
		if err != nil {
			return 0, err
		}
		if rows != len(toUpdateIds) {
			return 0, fmt.Errorf("updated row count didn't match: %d != %d", rows, len(toUpdateIds))
		}
		return rows, nil
	})

	if err != nil {
		logrus.Errorf("err outbox service %v", err)
	}
}
