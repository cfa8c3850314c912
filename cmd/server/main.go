package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/meridianpay/payment-engine/internal/adapters/events"
	"github.com/meridianpay/payment-engine/internal/adapters/gateway/meridian"
	"github.com/meridianpay/payment-engine/internal/adapters/postgres"
	"github.com/meridianpay/payment-engine/internal/adapters/secrets"
	"github.com/meridianpay/payment-engine/internal/batch"
	"github.com/meridianpay/payment-engine/internal/config"
	"github.com/meridianpay/payment-engine/internal/domain"
	"github.com/meridianpay/payment-engine/internal/domain/ports"
	cronHandler "github.com/meridianpay/payment-engine/internal/handlers/cron"
	"github.com/meridianpay/payment-engine/internal/logging"
	"github.com/meridianpay/payment-engine/internal/observability"
	"github.com/meridianpay/payment-engine/internal/refund"
	"github.com/meridianpay/payment-engine/internal/schedule"
)

func main() {
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

	zapLogger.Info("Starting payment engine",
		zap.String("version", "0.1.0"),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := initDatabase(ctx, cfg)
	if err != nil {
		zapLogger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer pool.Close()

	zapLogger.Info("Database connection established",
		zap.String("database", cfg.Database.Database),
	)

	// Gateway credentials come from the secret backend outside local dev.
	if err := resolveGatewayKey(ctx, cfg, zapLogger); err != nil {
		zapLogger.Fatal("Failed to resolve gateway credentials", zap.Error(err))
	}

	db := postgres.NewDBExecutor(pool)
	payments := postgres.NewPaymentRepository(db)
	transactions := postgres.NewTransactionRepository(db)
	methods := postgres.NewPaymentMethodRepository(db)
	scheduled := postgres.NewScheduledPaymentRepository(db)
	failedRefunds := postgres.NewFailedRefundRepository(db)
	invoices := postgres.NewInvoiceRepository(db)
	accounts := postgres.NewAccountRepository(db)

	metrics := observability.NewMetrics(prometheus.DefaultRegisterer)

	gateway := meridian.NewAdapter(&meridian.Config{
		BaseURL:    cfg.Gateway.BaseURL,
		MerchantID: cfg.Gateway.MerchantID,
		APIKey:     cfg.Gateway.APIKey,
		Timeout:    time.Duration(cfg.Gateway.Timeout) * time.Second,
		MaxRetries: 3,
	}, zapLogger, metrics)

	bus := events.NewInMemoryBus(logger)
	bus.Subscribe(domain.RefundFailed{}.EventName(), func(ctx context.Context, evt domain.Event) {
		if e, ok := evt.(domain.RefundFailed); ok {
			logger.Warn("refund failed",
				ports.String("original_payment_id", e.OriginalPaymentID),
				ports.String("refund_payment_id", e.RefundPaymentID),
				ports.String("reason", e.Reason))
		}
	})
	bus.Subscribe(domain.PaymentSkipped{}.EventName(), func(ctx context.Context, evt domain.Event) {
		if e, ok := evt.(domain.PaymentSkipped); ok {
			logger.Info("payment skipped",
				ports.String("account_id", e.AccountID),
				ports.String("reason", e.Reason))
		}
	})

	guard := batch.NewGuard(payments, invoices, accounts, logger, batch.GuardConfig{
		MaxDeclinedAttempts: cfg.Batch.MaxDeclinedAttempts,
		DuplicateWindow:     time.Duration(cfg.Batch.DuplicateWindowDays) * 24 * time.Hour,
	})
	runner := batch.NewRunner(db, payments, methods, accounts, transactions, guard, gateway, bus, logger, metrics,
		batch.RunnerConfig{ChargeCurrency: cfg.Batch.ChargeCurrency})
	scheduleService := schedule.NewService(scheduled, runner, bus, logger)

	cutoff, err := refund.NewCutoff(cfg.Refund.CutoffTimezone, cfg.Refund.CutoffHour, cfg.Refund.CutoffMinute)
	if err != nil {
		zapLogger.Fatal("Invalid refund cutoff configuration", zap.Error(err))
	}
	electronic := refund.NewElectronic(db, payments, methods, transactions, failedRefunds,
		gateway, bus, logger, metrics, refund.ElectronicConfig{
			Cutoff:     cutoff,
			WindowDays: cfg.Refund.WindowDays,
		})
	manual := refund.NewManual(db, payments, methods, bus, logger, metrics)

	handler := cronHandler.NewBatchHandler(scheduleService, electronic, manual, zapLogger, cfg.Server.CronSecret)

	mux := http.NewServeMux()
	mux.HandleFunc("/cron/process-batch", handler.ProcessBatch)
	mux.HandleFunc("/cron/process-refund", handler.ProcessRefund)
	mux.HandleFunc("/cron/health", handler.HealthCheck)

	server := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler: mux,
	}
	metricsServer := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.MetricsPort),
		Handler: promhttp.Handler(),
	}

	go func() {
		zapLogger.Info("Metrics server listening", zap.String("addr", metricsServer.Addr))
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLogger.Error("Metrics server failed", zap.Error(err))
		}
	}()
	go func() {
		zapLogger.Info("HTTP server listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLogger.Error("HTTP server failed", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	zapLogger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		zapLogger.Error("HTTP server shutdown failed", zap.Error(err))
	}
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		zapLogger.Error("Metrics server shutdown failed", zap.Error(err))
	}
}

func initDatabase(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.Database.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("parse database config: %w", err)
	}
	poolConfig.MaxConns = cfg.Database.MaxConns
	poolConfig.MinConns = cfg.Database.MinConns

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

// resolveGatewayKey replaces the environment-supplied gateway API key with
// the one held in the configured secret backend.
func resolveGatewayKey(ctx context.Context, cfg *config.Config, zapLogger *zap.Logger) error {
	var (
		manager ports.SecretManager
		path    string
		err     error
	)

	switch cfg.Secrets.Provider {
	case "local":
		if cfg.Secrets.LocalPath == "" {
			return nil // key comes straight from the environment
		}
		manager = secrets.NewLocalSecretManager(filepath.Dir(cfg.Secrets.LocalPath), zapLogger)
		path = filepath.Base(cfg.Secrets.LocalPath)

	case "vault":
		manager, err = secrets.NewVaultAdapter(
			secrets.DefaultVaultConfig(cfg.Secrets.VaultAddress, cfg.Secrets.VaultToken), zapLogger)
		path = cfg.Secrets.VaultPath

	case "aws":
		manager, err = secrets.NewAWSSecretsManagerAdapter(ctx,
			secrets.DefaultAWSSecretsManagerConfig(cfg.Secrets.AWSRegion), zapLogger)
		path = cfg.Secrets.AWSSecretID

	default:
		return fmt.Errorf("unknown secrets provider %q", cfg.Secrets.Provider)
	}
	if err != nil {
		return err
	}

	secret, err := manager.GetSecret(ctx, path)
	if err != nil {
		return err
	}
	cfg.Gateway.APIKey = secret.Value
	return nil
}
