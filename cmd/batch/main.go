// Command batch runs one pass over the due scheduled payments and exits.
// It is the CLI equivalent of the /cron/process-batch endpoint.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/meridianpay/payment-engine/internal/adapters/events"
	"github.com/meridianpay/payment-engine/internal/adapters/gateway/meridian"
	"github.com/meridianpay/payment-engine/internal/adapters/postgres"
	"github.com/meridianpay/payment-engine/internal/batch"
	"github.com/meridianpay/payment-engine/internal/config"
	"github.com/meridianpay/payment-engine/internal/logging"
	"github.com/meridianpay/payment-engine/internal/observability"
	"github.com/meridianpay/payment-engine/internal/schedule"
)

func main() {
	asOfFlag := flag.String("as-of", "", "process payments due at or before this date (YYYY-MM-DD, default today)")
	batchSize := flag.Int("batch-size", 100, "maximum scheduled payments to submit")
	flag.Parse()

	cfg, err := config.LoadFromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	zapLogger, err := logging.NewLogger(cfg.Logger.Level, cfg.Logger.Development)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger error: %v\n", err)
		os.Exit(1)
	}
	defer zapLogger.Sync()
	logger := logging.NewZapLogger(zapLogger)

	asOf := time.Now()
	if *asOfFlag != "" {
		asOf, err = time.Parse("2006-01-02", *asOfFlag)
		if err != nil {
			fmt.Fprintf(os.Stderr, "invalid -as-of date: %v\n", err)
			os.Exit(1)
		}
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, cfg.Database.ConnectionString())
	if err != nil {
		zapLogger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer pool.Close()

	db := postgres.NewDBExecutor(pool)
	payments := postgres.NewPaymentRepository(db)
	transactions := postgres.NewTransactionRepository(db)
	methods := postgres.NewPaymentMethodRepository(db)
	scheduled := postgres.NewScheduledPaymentRepository(db)
	invoices := postgres.NewInvoiceRepository(db)
	accounts := postgres.NewAccountRepository(db)

	metrics := observability.NewMetrics(prometheus.NewRegistry())
	gateway := meridian.NewAdapter(&meridian.Config{
		BaseURL:    cfg.Gateway.BaseURL,
		MerchantID: cfg.Gateway.MerchantID,
		APIKey:     cfg.Gateway.APIKey,
		Timeout:    time.Duration(cfg.Gateway.Timeout) * time.Second,
		MaxRetries: 3,
	}, zapLogger, metrics)

	bus := events.NewInMemoryBus(logger)
	guard := batch.NewGuard(payments, invoices, accounts, logger, batch.GuardConfig{
		MaxDeclinedAttempts: cfg.Batch.MaxDeclinedAttempts,
		DuplicateWindow:     time.Duration(cfg.Batch.DuplicateWindowDays) * 24 * time.Hour,
	})
	runner := batch.NewRunner(db, payments, methods, accounts, transactions, guard, gateway, bus, logger, metrics,
		batch.RunnerConfig{ChargeCurrency: cfg.Batch.ChargeCurrency})
	svc := schedule.NewService(scheduled, runner, bus, logger)

	processed, submitted, deferred, failed, errs := svc.ProcessDue(ctx, asOf, *batchSize)

	fmt.Printf("processed=%d submitted=%d deferred=%d failed=%d\n", processed, submitted, deferred, failed)
	for _, err := range errs {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
	}
	if failed > 0 {
		os.Exit(1)
	}
}
