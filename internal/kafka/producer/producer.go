package producer

import (
	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/sirupsen/logrus"

	"github.com/web3nova/academy-payments/internal/config"
)

type KafkaProducer struct {
	producer *kafka.Producer
	topic    string
}

func NewKafkaProducer(cfg *config.KafkaConfig) (*KafkaProducer, error) {
	p, err := kafka.NewProducer(&kafka.ConfigMap{"bootstrap.servers": cfg.Host})
	if err != nil {
		return nil, err
	}

	go func() {
		defer p.Close()
		for e := range p.Events() {
			if ev, ok := e.(kafka.Error); ok {
				logrus.WithFields(logrus.Fields{
					"CODE": ev.Code(),
				}).Warnf("kafka error: %v", ev)
			}
		}
	}()

	return &KafkaProducer{
		producer: p,
		topic:    cfg.NotificationsTopic,
	}, nil
}

// Produce blocks until the broker's delivery report arrives. An outbox row is
// only marked produced once delivery is confirmed; a refused message returns
// an error and the row stays pending for the next tick.
func (p *KafkaProducer) Produce(msg []byte) error {
	topic := p.topic
	deliveryChan := make(chan kafka.Event, 1)
	err := p.producer.Produce(&kafka.Message{
		TopicPartition: kafka.TopicPartition{Topic: &topic, Partition: kafka.PartitionAny},
		Value:          msg,
	}, deliveryChan)
	if err != nil {
		return err
	}

	e := <-deliveryChan
	if m, ok := e.(*kafka.Message); ok && m.TopicPartition.Error != nil {
		logrus.WithFields(logrus.Fields{
			"PRTN": m.TopicPartition,
		}).Warn("delivery failed")
		return m.TopicPartition.Error
	}
	logrus.WithField("topic", topic).Debug("delivery confirmed")
	return nil
}
