package logger

import (
	"log/slog"
	"time"
)

// LogIngest logs the outcome of an ingest batch
func LogIngest(source string, lines, trades, adverts int, duration time.Duration) {
	slog.Info("Ingest finished",
		slog.String("type", "ingest"),
		slog.String("source", source),
		slog.Int("lines", lines),
		slog.Int("trades", trades),
		slog.Int("adverts", adverts),
		slog.Duration("took", duration),
	)
}

// LogSystem logs system events
func LogSystem(msg string, attrs ...any) {
	baseAttrs := []any{slog.String("type", "sys")}
	slog.Info(msg, append(baseAttrs, attrs...)...)
}

// LogError logs error events
func LogError(msg string, err error, attrs ...any) {
	baseAttrs := []any{
		slog.String("type", "error"),
		slog.Any("error", err),
	}
	slog.Error(msg, append(baseAttrs, attrs...)...)
}
