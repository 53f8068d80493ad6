package services

import (
	"context"
	"log/slog"
	"time"
)

const shutdownFlushTimeout = 10 * time.Second

// Flusher persists a Directory on a fixed interval whenever it has unsaved
// changes, and once more when it stops. A failed flush is logged and left
// for the next tick.
type Flusher struct {
	dir      *Directory
	interval time.Duration
	logger   *slog.Logger
}

func NewFlusher(dir *Directory, interval time.Duration) *Flusher {
	if interval <= 0 {
		interval = 3 * time.Second
	}
	return &Flusher{
		dir:      dir,
		interval: interval,
		logger:   slog.Default(),
	}
}

// Run blocks until ctx is cancelled.
func (f *Flusher) Run(ctx context.Context) {
	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()

	f.logger.Info("Profile flusher started",
		slog.String("type", "service"),
		slog.Duration("interval", f.interval))

	for {
		select {
		case <-ctx.Done():
			// ctx is already done, so the last write gets its own deadline.
			flushCtx, cancel := context.WithTimeout(context.Background(), shutdownFlushTimeout)
			f.flush(flushCtx)
			cancel()
			f.logger.Info("Profile flusher stopped", slog.String("type", "service"))
			return
		case <-ticker.C:
			f.flush(ctx)
		}
	}
}

// Start runs the flusher in its own goroutine. The returned channel is
// closed once the final flush has finished.
func (f *Flusher) Start(ctx context.Context) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		f.Run(ctx)
	}()
	return done
}

func (f *Flusher) flush(ctx context.Context) {
	if !f.dir.Dirty() {
		return
	}
	if err := f.dir.Flush(ctx); err != nil {
		f.logger.Error("Failed to flush service profiles",
			slog.String("type", "service"),
			slog.Any("error", err))
	}
}
