// Package api serves the service directory and market reports as a
// read-only JSON API.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/tortaapp/tradewatch/tradewatch/identity"
	"github.com/tortaapp/tradewatch/tradewatch/narrative"
	"github.com/tortaapp/tradewatch/tradewatch/pipeline"
	"github.com/tortaapp/tradewatch/tradewatch/services"
)

type Config struct {
	Enabled      bool   `toml:"enabled"`
	Host         string `toml:"host"`
	Port         int    `toml:"port" validate:"required_if=Enabled true,gte=0,lte=65535"`
	AllowOrigins string `toml:"allow_origins"`
}

func DefaultConfig() Config {
	return Config{
		Host:         "127.0.0.1",
		Port:         8080,
		AllowOrigins: "*",
	}
}

func (c Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Market is the part of the pipeline the API reads from.
type Market interface {
	Book() *pipeline.Book
	Items(ctx context.Context) ([]identity.Identity, error)
	Search(query string, limit int) []identity.Identity
	Item(ctx context.Context, itemID string) (pipeline.MarketReport, error)
	Timeline(ctx context.Context, itemID string) ([]narrative.Snapshot, error)
}

type Directory interface {
	Profiles(filter services.Filter, now time.Time) []services.Profile
	Listing(filter services.Filter, now time.Time) []services.Profile
	Len() int
}

type Server struct {
	cfg       Config
	app       *fiber.App
	market    Market
	directory Directory
	version   string
	commit    string
	started   time.Time
	now       func() time.Time
}

func NewServer(cfg Config, market Market, directory Directory, version, commit string) *Server {
	s := &Server{
		cfg:       cfg,
		market:    market,
		directory: directory,
		version:   version,
		commit:    commit,
		now:       time.Now,
	}
	s.started = s.now()

	s.app = fiber.New(fiber.Config{
		AppName:               "TradeWatch API",
		ServerHeader:          "TradeWatch",
		ErrorHandler:          ErrorHandler,
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          30 * time.Second,
	})
	s.app.Use(recover.New())
	s.app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))
	s.app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.AllowOrigins,
		AllowMethods: "GET,OPTIONS",
	}))
	s.app.Use(LoggingMiddleware(slog.Default()))
	s.routes()
	return s
}

func (s *Server) routes() {
	s.app.Get("/health", s.handleHealth)

	api := s.app.Group("/api")
	api.Get("/categories", s.handleCategories)
	api.Get("/services", s.handleServices)
	api.Get("/items", s.handleItems)
	api.Get("/items/:id", s.handleItem)
	api.Get("/items/:id/timeline", s.handleTimeline)
}

// SetClock replaces the time source used for listing windows and uptime.
func (s *Server) SetClock(now func() time.Time) {
	s.now = now
	s.started = now()
}

func (s *Server) App() *fiber.App {
	return s.app
}

// Start listens until Shutdown is called.
func (s *Server) Start() error {
	slog.Info("Starting API server",
		slog.String("type", "api"),
		slog.String("address", s.cfg.Address()))
	if err := s.app.Listen(s.cfg.Address()); err != nil {
		return fmt.Errorf("failed to serve api: %w", err)
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}
