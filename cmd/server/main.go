package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/subosito/gotenv"
	"go.uber.org/zap"

	"github.com/tworscontab/nfse-engine/internal/application/service"
	"github.com/tworscontab/nfse-engine/internal/config"
	httpserver "github.com/tworscontab/nfse-engine/internal/interfaces/http"
	"github.com/tworscontab/nfse-engine/internal/nfse"
	"github.com/tworscontab/nfse-engine/internal/notification"
	"github.com/tworscontab/nfse-engine/internal/repository"
	"github.com/tworscontab/nfse-engine/internal/worker"
	"github.com/tworscontab/nfse-engine/pkg/database"
	"github.com/tworscontab/nfse-engine/pkg/utils"
)

func main() {
	// Local development credentials live in .env; production sets real
	// environment variables.
	_ = gotenv.Load()

	cfg, err := config.Load("configs/config.yaml")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := utils.NewLogger(utils.LoggerConfig{
		Level:      cfg.Logger.Level,
		OutputPath: cfg.Logger.OutputPath,
		Format:     cfg.Logger.Format,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting NFSe engine",
		zap.String("version", "1.0.0"),
		zap.Int("port", cfg.Server.Port))

	db, err := database.New(database.Config{
		Path:            cfg.Database.Path,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer db.Close()

	migrator := database.NewMigrator(db, logger)
	if err := migrator.RunMigrations(cfg.Database.MigrationsDir); err != nil {
		logger.Fatal("Failed to run database migrations", zap.Error(err))
	}

	// Repositories
	invoiceRepo := repository.NewInvoiceRepository(db, logger)
	clientRepo := repository.NewClientRepository(db, logger)
	issuerRepo := repository.NewIssuerRepository(db, logger)
	activityRepo := repository.NewActivityRepository(db, logger)

	// Tax authority gateway
	authority := nfse.NewClient(nfse.Config{
		AccessKey: cfg.NFSe.AccessKey,
		ClientID:  cfg.NFSe.ClientID,
		URL:       cfg.NFSe.URL,
		Timeout:   cfg.NFSe.Timeout,
	}, logger)

	notifier := notification.NewAdminNotifier(logger)

	// Services
	reconciler := service.NewReconcileService(invoiceRepo, issuerRepo, authority, logger)
	invoiceService := service.NewInvoiceService(
		invoiceRepo, clientRepo, issuerRepo, activityRepo,
		authority, notifier, reconciler, db, logger,
	)
	reportService := service.NewReportService(invoiceRepo, issuerRepo, logger)

	// Optional background reconciliation on top of the inline pass
	if cfg.Reconciler.Enabled {
		reconcileWorker := worker.NewReconcileWorker(invoiceRepo, reconciler, cfg.Reconciler.Interval, logger)
		reconcileWorker.Start()
		defer reconcileWorker.Stop()
	}

	server := httpserver.NewServer(httpserver.ServerConfig{
		Host:         cfg.Server.Host,
		Port:         cfg.Server.Port,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}, invoiceService, reportService, issuerRepo, logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := server.Start(ctx); err != nil {
		logger.Fatal("HTTP server failed", zap.Error(err))
	}

	logger.Info("Server exited successfully")
}
