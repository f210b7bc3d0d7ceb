package main

import (
	"fmt"
	"log/slog"
	"time"

	recurringrepo "github.com/FACorreiaa/statement-pipeline/internal/domain/recurring/repository"
	statementrepo "github.com/FACorreiaa/statement-pipeline/internal/domain/statement/repository"

	"github.com/FACorreiaa/statement-pipeline/internal/domain/ingest"
	"github.com/FACorreiaa/statement-pipeline/internal/domain/recurring"
	"github.com/FACorreiaa/statement-pipeline/internal/domain/statement/fields"
	"github.com/FACorreiaa/statement-pipeline/internal/domain/statement/service"
	"github.com/FACorreiaa/statement-pipeline/internal/extractor/ocr"
	"github.com/FACorreiaa/statement-pipeline/internal/extractor/preprocess"

	"github.com/FACorreiaa/statement-pipeline/pkg/config"
	"github.com/FACorreiaa/statement-pipeline/pkg/cron"
	"github.com/FACorreiaa/statement-pipeline/pkg/db"
	"github.com/FACorreiaa/statement-pipeline/pkg/metrics"
	"github.com/FACorreiaa/statement-pipeline/pkg/notify"
	"github.com/FACorreiaa/statement-pipeline/pkg/storage"

	"github.com/prometheus/client_golang/prometheus"
)

// Dependencies holds all application dependencies
type Dependencies struct {
	Config  *config.Config
	DB      *db.DB
	Logger  *slog.Logger
	Metrics *metrics.Metrics

	// Stores
	TxStore    *statementrepo.TransactionStore
	GroupStore *recurringrepo.GroupStore
	TxSource   *recurringrepo.TransactionSource

	// Services
	OCREngine  *ocr.Engine
	Statements *service.Service
	Ingest     *ingest.Service
	Recurring  *recurring.Service
	Scheduler  *cron.Scheduler

	// Optional integrations, nil when not configured.
	Archive  *storage.LocalStore
	Notifier *notify.Webhook
}

// InitDependencies initializes all application dependencies
func InitDependencies(cfg *config.Config, logger *slog.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config:  cfg,
		Logger:  logger,
		Metrics: metrics.New(prometheus.DefaultRegisterer),
	}

	if err := deps.initDatabase(); err != nil {
		return nil, fmt.Errorf("failed to init database: %w", err)
	}

	if err := deps.initStores(); err != nil {
		return nil, fmt.Errorf("failed to init stores: %w", err)
	}

	if err := deps.initServices(); err != nil {
		return nil, fmt.Errorf("failed to init services: %w", err)
	}

	logger.Info("all dependencies initialized successfully")

	return deps, nil
}

// initDatabase initializes the database connection and runs migrations
func (d *Dependencies) initDatabase() error {
	database, err := db.New(db.Config{
		DSN:             d.Config.Database.DSN(),
		MaxConns:        25,
		MinConns:        5,
		MaxConnLifetime: 5 * time.Minute,
		MaxConnIdleTime: 10 * time.Minute,
	}, d.Logger)
	if err != nil {
		return err
	}

	d.DB = database

	if err := d.DB.RunMigrations(); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	d.Logger.Info("database connected and migrations completed successfully")
	return nil
}

// initStores initializes the storage layer
func (d *Dependencies) initStores() error {
	d.TxStore = statementrepo.NewTransactionStore(d.DB.Pool)
	d.GroupStore = recurringrepo.NewGroupStore(d.DB.Pool, d.Config.Pipeline.DefaultCurrency)
	d.TxSource = recurringrepo.NewTransactionSource(d.DB.Pool)

	d.Logger.Info("stores initialized")
	return nil
}

// initServices initializes all service layer dependencies
func (d *Dependencies) initServices() error {
	d.OCREngine = ocr.NewEngine(d.Logger)

	d.Statements = service.New(service.Config{
		Languages:           d.Config.OCR.Languages,
		Crop:                cropRegion(d.Config.OCR),
		ExpectedRowsPerPage: d.Config.Pipeline.ExpectedRowsPerPage,
		ParserOptions: fields.Options{
			DefaultCurrency:         d.Config.Pipeline.DefaultCurrency,
			DualDateDefaultNegative: true,
		},
	}, d.OCREngine, d.Logger, d.Metrics)

	d.Ingest = ingest.NewService(d.Logger)

	d.Recurring = recurring.NewService(d.TxSource, d.GroupStore, d.Logger)
	d.Scheduler = cron.NewScheduler(d.Recurring, d.Config.Rescan.Schedule, d.Logger)

	if d.Config.Archive.Enabled {
		archive, err := storage.NewLocalStore(d.Config.Archive.Path)
		if err != nil {
			return fmt.Errorf("failed to init archive: %w", err)
		}
		d.Archive = archive
	}
	if d.Config.Notify.WebhookURL != "" {
		d.Notifier = notify.NewWebhook(d.Config.Notify.WebhookURL, d.Logger)
	}

	d.Logger.Info("services initialized")
	return nil
}

// cropRegion converts the configured fractional margins; nil means no crop.
func cropRegion(cfg config.OCRConfig) *preprocess.CropRegion {
	if cfg.CropTop == 0 && cfg.CropLeft == 0 && cfg.CropRight == 0 && cfg.CropBottom == 0 {
		return nil
	}
	return &preprocess.CropRegion{
		Top:    cfg.CropTop,
		Left:   cfg.CropLeft,
		Right:  cfg.CropRight,
		Bottom: cfg.CropBottom,
	}
}

// Cleanup closes all resources
func (d *Dependencies) Cleanup() {
	if d.Scheduler != nil {
		d.Scheduler.Stop()
	}
	if d.OCREngine != nil {
		if err := d.OCREngine.Close(); err != nil {
			d.Logger.Warn("failed to close ocr engine", slog.Any("error", err))
		}
	}
	if d.DB != nil {
		d.DB.Close()
	}
	d.Logger.Info("cleanup completed")
}
