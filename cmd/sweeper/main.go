package main

import (
	"context"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/web3nova/academy-payments/internal/config"
	"github.com/web3nova/academy-payments/internal/db/postgres"
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

	srvCfg := config.NewServerConfig()
	transactions := repo.NewTransactionRepo(db)
	outbox := repo.NewOutboxRepo(db)
	payments := repo.NewPaymentRepo(db, transactions, outbox)
	sweeper := service.NewSweeperService(payments)

	ctx := context.Background()
	if _, err := sweeper.ExpireStale(ctx); err != nil {
		logrus.Errorf("initial sweep failed: %v", err)
	}
	sweeper.Run(ctx, srvCfg.SweepInterval)
}
