package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/tortaapp/tradewatch/tradewatch"
	"github.com/tortaapp/tradewatch/tradewatch/logger"
	"github.com/tortaapp/tradewatch/tradewatch/services"
)

var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	slog.SetDefault(slog.New(logger.NewHandler()))

	path := flag.String("config", "config.toml", "path to config")
	logs := flag.String("log", "", "comma separated chat log files to ingest")
	dayFlag := flag.String("day", "", "date of log lines before the first header, YYYY-MM-DD (default today)")
	once := flag.Bool("once", false, "ingest, report and exit instead of running schedules")
	printServices := flag.String("services", "", "print the service listing for a category (\"all\" for every category) and exit")
	flag.Parse()

	cfg, err := tradewatch.LoadConfig(*path)
	if err != nil {
		slog.Error("Failed to load configuration", slog.Any("error", err))
		os.Exit(-1)
	}
	slog.SetDefault(slog.New(logger.NewHandlerWithOptions(os.Stdout, logger.Options{
		Level:   logger.ParseLevel(cfg.Log.Level),
		Skip:    cfg.Log.Skip,
		NoColor: cfg.Log.NoColor,
	})))

	slog.Info("Starting TradeWatch",
		slog.String("version", version),
		slog.String("commit", commit))

	setupCtx, setupCancel := context.WithTimeout(context.Background(), 2*time.Minute)
	app := tradewatch.New(*cfg, version, commit)
	if err = app.Setup(setupCtx); err != nil {
		setupCancel()
		logger.LogError("Failed to start", err)
		os.Exit(-1)
	}
	setupCancel()

	runCtx, stop := context.WithCancel(context.Background())
	flushDone := app.Flusher.Start(runCtx)

	defer func() {
		stop()
		<-flushDone
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		app.Close(ctx)
	}()

	if *printServices != "" {
		writeServices(app, *printServices)
		return
	}

	day := time.Now()
	if *dayFlag != "" {
		if day, err = time.Parse("2006-01-02", *dayFlag); err != nil {
			logger.LogError("Invalid -day", err)
			return
		}
	}
	for _, file := range splitList(*logs) {
		ingestFile(runCtx, app, file, day)
	}

	if *once {
		reports, err := app.Pipeline.Report(runCtx, time.Now())
		if err != nil {
			logger.LogError("Report failed", err)
			return
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err = enc.Encode(reports); err != nil {
			logger.LogError("Failed to write report", err)
		}
		return
	}

	if err = app.StartSchedules(); err != nil {
		logger.LogError("Failed to start schedules", err)
		return
	}
	defer app.StopSchedules()
	app.StartAPI()

	logger.LogSystem("TradeWatch is running. Press CTRL-C to exit.", slog.Bool("api", app.API != nil))
	s := make(chan os.Signal, 1)
	signal.Notify(s, syscall.SIGINT, syscall.SIGTERM)
	<-s
	logger.LogSystem("Shutting down TradeWatch...")
}

func ingestFile(ctx context.Context, app *tradewatch.App, path string, day time.Time) {
	f, err := os.Open(path)
	if err != nil {
		logger.LogError("Failed to open chat log", err, slog.String("path", path))
		return
	}
	defer f.Close()

	start := time.Now()
	sum, err := app.Pipeline.IngestReader(ctx, f, day)
	if err != nil {
		logger.LogError("Failed to ingest chat log", err, slog.String("path", path))
	}
	logger.LogIngest(path, sum.Lines, sum.Trades, sum.Adverts, time.Since(start))
}

func writeServices(app *tradewatch.App, category string) {
	filter := services.Filter{}
	if category != "all" {
		c, ok := services.ParseCategory(category)
		if !ok {
			slog.Error("Unknown service category", slog.String("category", category))
			return
		}
		filter.Category = c
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(app.Directory.Listing(filter, time.Now())); err != nil {
		logger.LogError("Failed to write listing", err)
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
