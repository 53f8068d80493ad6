// Command migrate creates the database schema and copies saved service
// profiles from one store backend to another.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"time"

	"github.com/tortaapp/tradewatch/tradewatch"
	"github.com/tortaapp/tradewatch/tradewatch/database"
	"github.com/tortaapp/tradewatch/tradewatch/logger"
	"github.com/tortaapp/tradewatch/tradewatch/services"
	"github.com/tortaapp/tradewatch/tradewatch/storage"
)

func main() {
	slog.SetDefault(slog.New(logger.NewHandler()))

	path := flag.String("config", "config.toml", "path to config")
	schema := flag.Bool("schema", true, "create the trade and snapshot tables")
	profilesFrom := flag.String("profiles-from", "", "JSON profile file to copy into the configured store")
	flag.Parse()

	cfg, err := tradewatch.LoadConfig(*path)
	if err != nil {
		slog.Error("Failed to load configuration", slog.Any("error", err))
		os.Exit(-1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	if *schema {
		if err = migrateSchema(ctx, cfg.DB); err != nil {
			logger.LogError("Schema migration failed", err)
			os.Exit(-1)
		}
	}

	if *profilesFrom != "" {
		if err = copyProfiles(ctx, storage.NewFileStore(*profilesFrom), cfg.Storage); err != nil {
			logger.LogError("Profile migration failed", err)
			os.Exit(-1)
		}
	}

	slog.Info("Migration completed successfully!")
}

func migrateSchema(ctx context.Context, cfg database.DBConfig) error {
	if !cfg.Enabled {
		slog.Info("Database disabled, skipping schema", slog.String("type", "db"))
		return nil
	}
	db, err := database.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	if err = db.Ping(ctx); err != nil {
		return err
	}
	return db.InitializeSchema(ctx)
}

func copyProfiles(ctx context.Context, from services.ProfileStore, cfg storage.Config) error {
	profiles, err := from.Load(ctx)
	if errors.Is(err, services.ErrNoProfiles) {
		slog.Info("No profiles to copy", slog.String("type", "service"))
		return nil
	}
	if err != nil {
		return err
	}

	to, closeStore, err := storage.Open(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore(ctx)

	if err = to.Save(ctx, profiles); err != nil {
		return err
	}
	slog.Info("Profiles copied",
		slog.String("type", "service"),
		slog.String("backend", cfg.Backend),
		slog.Int("profiles", len(profiles)))
	return nil
}
