package tradewatch

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/tortaapp/tradewatch/tradewatch/api"
	"github.com/tortaapp/tradewatch/tradewatch/database"
	"github.com/tortaapp/tradewatch/tradewatch/database/repositories"
	"github.com/tortaapp/tradewatch/tradewatch/identity"
	"github.com/tortaapp/tradewatch/tradewatch/narrative"
	"github.com/tortaapp/tradewatch/tradewatch/notify"
	"github.com/tortaapp/tradewatch/tradewatch/parser"
	"github.com/tortaapp/tradewatch/tradewatch/pipeline"
	"github.com/tortaapp/tradewatch/tradewatch/pricing"
	"github.com/tortaapp/tradewatch/tradewatch/services"
	"github.com/tortaapp/tradewatch/tradewatch/storage"
)

const (
	reportTimeout  = 30 * time.Minute
	cleanupTimeout = 10 * time.Minute
)

func New(cfg Config, version string, commit string) *App {
	return &App{
		Cfg:     cfg,
		Version: version,
		Commit:  commit,
	}
}

type App struct {
	Cfg       Config
	Version   string
	Commit    string
	DB        *database.DB
	Directory *services.Directory
	Flusher   *services.Flusher
	Pipeline  *pipeline.Pipeline
	Notifier  *notify.PhaseNotifier
	API       *api.Server

	closeStore func(context.Context) error
	cron       *cron.Cron
}

// Setup builds every component from the config and loads saved profiles.
func (a *App) Setup(ctx context.Context) error {
	table, err := a.Cfg.Pricing.LoadTable()
	if err != nil {
		return err
	}
	loc, err := a.Cfg.Directory.Location()
	if err != nil {
		return err
	}

	store, closeStore, err := storage.Open(ctx, a.Cfg.Storage)
	if err != nil {
		return fmt.Errorf("failed to open profile store: %w", err)
	}
	a.closeStore = closeStore

	a.Directory = services.NewDirectory(
		a.Cfg.Engine.Services(a.Cfg.Directory.DuplicateTTL.Duration),
		services.NewClassifier(),
		store,
	)
	if err = a.Directory.Load(ctx); err != nil {
		return fmt.Errorf("failed to load service profiles: %w", err)
	}
	a.Flusher = services.NewFlusher(a.Directory, a.Cfg.Engine.PersistDebounce.Duration)

	engine := pricing.NewEngine(a.Cfg.Engine.Pricing(), table)
	prs := parser.NewParser(identity.NewResolver(a.Cfg.Directory.ResolverCache), table, a.Cfg.Directory.DefaultServer)

	var snapshots narrative.SnapshotStore = narrative.NewMemoryStore()
	opts := []pipeline.Option{
		pipeline.WithLocation(loc),
		pipeline.WithTradeRetention(a.Cfg.Directory.TradeRetention.Duration),
	}

	if a.Cfg.DB.Enabled {
		dbStart := time.Now()
		a.DB, err = database.New(ctx, a.Cfg.DB)
		if err != nil {
			return fmt.Errorf("database connection failed: %w", err)
		}
		if err = a.DB.InitializeSchema(ctx); err != nil {
			return fmt.Errorf("failed to initialize database schema: %w", err)
		}
		slog.Info("Database connected",
			slog.String("type", "db"),
			slog.String("database", a.Cfg.DB.Database),
			slog.Duration("took", time.Since(dbStart)))

		trades := repositories.NewTradeRepository(a.DB.BunDB())
		snapshots = repositories.NewSnapshotRepository(a.DB.BunDB())
		opts = append(opts, pipeline.WithTradeSink(trades), pipeline.WithRecordSource(trades))
	}

	if a.Cfg.Notify.Enabled {
		a.Notifier, err = notify.New(a.Cfg.Notify)
		if err != nil {
			return err
		}
		opts = append(opts, pipeline.WithNotifier(a.Notifier))
	}

	a.Pipeline = pipeline.New(prs, a.Directory, engine, snapshots, a.Cfg.Engine.ReportCache.Duration, opts...)
	if err = a.Pipeline.LoadCatalog(ctx); err != nil {
		slog.Warn("Failed to load item names", slog.String("type", "db"), slog.Any("error", err))
	}
	if err = a.Pipeline.SeedPhases(ctx); err != nil {
		slog.Warn("Failed to seed market phases", slog.String("type", "price"), slog.Any("error", err))
	}
	if a.Cfg.API.Enabled {
		a.API = api.NewServer(a.Cfg.API, a.Pipeline, a.Directory, a.Version, a.Commit)
	}

	slog.Info("TradeWatch ready",
		slog.String("version", a.Version),
		slog.String("commit", a.Commit),
		slog.String("storage", a.Cfg.Storage.Backend),
		slog.Bool("database", a.Cfg.DB.Enabled),
		slog.Bool("notify", a.Cfg.Notify.Enabled),
		slog.Bool("api", a.Cfg.API.Enabled),
		slog.Int("profiles", a.Directory.Len()))
	return nil
}

// StartSchedules runs the daily report and cleanup jobs until StopSchedules.
func (a *App) StartSchedules() error {
	c := cron.New()
	if spec := a.Cfg.Schedule.Report; spec != "" {
		if _, err := c.AddFunc(spec, a.runReport); err != nil {
			return fmt.Errorf("failed to schedule report: %w", err)
		}
	}
	if spec := a.Cfg.Schedule.Cleanup; spec != "" {
		if _, err := c.AddFunc(spec, a.runCleanup); err != nil {
			return fmt.Errorf("failed to schedule cleanup: %w", err)
		}
	}
	c.Start()
	a.cron = c
	return nil
}

// StopSchedules waits for running jobs to finish.
func (a *App) StopSchedules() {
	if a.cron == nil {
		return
	}
	<-a.cron.Stop().Done()
}

func (a *App) runReport() {
	ctx, cancel := context.WithTimeout(context.Background(), reportTimeout)
	defer cancel()

	start := time.Now()
	reports, err := a.Pipeline.Report(ctx, start)
	if err != nil {
		slog.Error("Scheduled report failed", slog.String("type", "price"), slog.Any("error", err))
		return
	}
	slog.Info("Scheduled report finished",
		slog.String("type", "price"),
		slog.Int("items", len(reports)),
		slog.Duration("took", time.Since(start)))
}

func (a *App) runCleanup() {
	ctx, cancel := context.WithTimeout(context.Background(), cleanupTimeout)
	defer cancel()

	if err := a.Pipeline.Cleanup(ctx, time.Now()); err != nil {
		slog.Error("Scheduled cleanup failed", slog.String("type", "sys"), slog.Any("error", err))
	}
}

// StartAPI serves the JSON API in the background. It is a no-op when the
// API is disabled.
func (a *App) StartAPI() {
	if a.API == nil {
		return
	}
	go func() {
		if err := a.API.Start(); err != nil {
			slog.Error("API server stopped", slog.String("type", "api"), slog.Any("error", err))
		}
	}()
}

// Close stops the API and releases the store and database. Stop the
// flusher first so the last write still has a store to go to.
func (a *App) Close(ctx context.Context) {
	if a.API != nil {
		if err := a.API.Shutdown(ctx); err != nil {
			slog.Error("API shutdown failed", slog.String("type", "api"), slog.Any("error", err))
		}
	}
	if a.Pipeline != nil {
		if err := a.Pipeline.FlushTrades(ctx); err != nil {
			slog.Error("Failed to store pending trades", slog.String("type", "db"), slog.Any("error", err))
		}
	}
	if a.closeStore != nil {
		if err := a.closeStore(ctx); err != nil {
			slog.Error("Failed to close profile store", slog.String("type", "service"), slog.Any("error", err))
		}
	}
	if a.DB != nil {
		a.DB.Close()
	}
}
