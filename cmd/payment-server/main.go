package main

import (
	"context"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/web3nova/academy-payments/internal/config"
	"github.com/web3nova/academy-payments/internal/db/postgres"
	"github.com/web3nova/academy-payments/internal/gateway"
	"github.com/web3nova/academy-payments/internal/httpapi"
	kafkaproducer "github.com/web3nova/academy-payments/internal/kafka/producer"
	"github.com/web3nova/academy-payments/internal/metrics"
	"github.com/web3nova/academy-payments/internal/repo"
	"github.com/web3nova/academy-payments/internal/service"
)

func main() {
	if err := godotenv.Load(); err != nil {
		logrus.Info("no .env file found, using environment variables")
	}
	metrics.Register()

	db, err := postgres.NewDBConn(config.NewPostgresConfig())
	if err != nil {
		logrus.Fatalf("unable to conn to db, err = %v", err)
	}
	defer db.Close()

	gwCfg := config.NewGatewayConfig()
	srvCfg := config.NewServerConfig()

	transactions := repo.NewTransactionRepo(db)
	outbox := repo.NewOutboxRepo(db)
	payments := repo.NewPaymentRepo(db, transactions, outbox)
	enrollments := repo.NewEnrollmentRepo(db)
	webhookLogs := repo.NewWebhookLogRepo(db)

	gw := gateway.NewClient(gwCfg)
	engine := service.NewPaymentService(enrollments, payments, gw, srvCfg.PaymentExpiryDays)
	registrar := service.NewEnrollmentService(enrollments)
	webhooks := service.NewWebhookService(webhookLogs, payments, gwCfg.WebhookSecret)

	producer, err := kafkaproducer.NewKafkaProducer(config.NewKafkaConfig())
	if err != nil {
		logrus.Fatalf("unable to create kafka producer, err = %v", err)
	}
	outboxSvc := service.NewOutbox(outbox, producer)
	go outboxSvc.Run(context.Background(), srvCfg.OutboxInterval)

	s := httpapi.NewServer(srvCfg.HTTPAddr, engine, registrar, webhooks)
	logrus.Fatal(s.ListenAndServe())
}
