package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/jpcornejo/finanzas-tracker/internal/domain/category"
	"github.com/jpcornejo/finanzas-tracker/internal/domain/confirmation"
	importhandler "github.com/jpcornejo/finanzas-tracker/internal/domain/import/handler"
	importservice "github.com/jpcornejo/finanzas-tracker/internal/domain/import/service"
	"github.com/jpcornejo/finanzas-tracker/internal/domain/ledger"
	"github.com/jpcornejo/finanzas-tracker/internal/domain/rules"
	"github.com/jpcornejo/finanzas-tracker/internal/domain/staging"
	"github.com/jpcornejo/finanzas-tracker/pkg/config"
	"github.com/jpcornejo/finanzas-tracker/pkg/cron"
	"github.com/jpcornejo/finanzas-tracker/pkg/db"
	"github.com/jpcornejo/finanzas-tracker/pkg/metrics"
)

const maxUploadBytes = 10 << 20

// Dependencies holds all application dependencies
type Dependencies struct {
	Config *config.Config
	DB     *db.DB
	Logger *slog.Logger

	// Repositories
	RulesRepo        *rules.Repository
	StagingRepo      *staging.Repository
	ConfirmationRepo *confirmation.Repository
	CategoryStore    *category.PostgresStore
	LedgerWriter     *ledger.PostgresWriter

	// Services
	RulesService        *rules.Service
	StagingService      *staging.Service
	ConfirmationService *confirmation.Service
	ImportService       *importservice.Service

	// Handlers
	ImportHandler *importhandler.Handler

	// Infrastructure
	Metrics   *metrics.ImportMetrics
	Scheduler *cron.Scheduler
}

// InitDependencies initializes all application dependencies
func InitDependencies(cfg *config.Config, logger *slog.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config: cfg,
		Logger: logger,
	}

	if err := deps.initDatabase(); err != nil {
		return nil, fmt.Errorf("failed to init database: %w", err)
	}

	deps.initRepositories()
	deps.initServices()
	deps.initHandlers()

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

func (d *Dependencies) initRepositories() {
	d.CategoryStore = category.NewPostgresStore(d.DB.Pool)
	d.LedgerWriter = ledger.NewPostgresWriter()
	d.RulesRepo = rules.NewRepository(d.DB.Pool)
	d.StagingRepo = staging.NewRepository(d.DB.Pool)
	d.ConfirmationRepo = confirmation.NewRepository(d.DB.Pool, d.LedgerWriter)

	d.Logger.Info("repositories initialized")
}

func (d *Dependencies) initServices() {
	d.Metrics = metrics.New()

	d.RulesService = rules.NewService(d.RulesRepo, d.CategoryStore, d.Logger)
	d.StagingService = staging.NewService(d.StagingRepo, d.RulesService, d.CategoryStore, d.Logger)
	d.ConfirmationService = confirmation.NewService(d.ConfirmationRepo, d.CategoryStore, d.Metrics, d.Logger)
	d.ImportService = importservice.NewService(
		d.StagingService,
		d.Metrics,
		d.Logger,
		d.Config.Import.MaxRows,
		d.Config.Import.DateFormat,
	)

	d.Scheduler = cron.NewScheduler(
		d.StagingService,
		d.Config.Import.CleanupSchedule,
		d.Config.Import.StagingRetention,
		d.Logger,
	)
	d.Scheduler.OnPurged(func(count int64) {
		d.Metrics.PendingPurged.Add(float64(count))
	})

	d.Logger.Info("services initialized")
}

func (d *Dependencies) initHandlers() {
	d.ImportHandler = importhandler.New(
		d.ImportService,
		d.StagingService,
		d.ConfirmationService,
		d.RulesService,
		d.Logger,
		maxUploadBytes,
	)

	d.Logger.Info("handlers initialized")
}
