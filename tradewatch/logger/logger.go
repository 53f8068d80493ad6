package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"
)

const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorPurple = "\033[35m"
	colorWhite  = "\033[37m"
)

type LogType string

const (
	TypeIngest  LogType = "ING"
	TypePrice   LogType = "PRC"
	TypeService LogType = "SVC"
	TypeDB      LogType = "DB"
	TypeAPI     LogType = "API"
	TypeSystem  LogType = "SYS"
	TypeError   LogType = "ERR"
)

// Options configures a CustomHandler.
type Options struct {
	Level slog.Leveler
	// Skip drops records whose message contains any of these, case-insensitively.
	Skip    []string
	NoColor bool
}

type CustomHandler struct {
	opts  Options
	out   io.Writer
	mu    *sync.Mutex
	attrs []slog.Attr
	group string
}

func NewHandler() *CustomHandler {
	return NewHandlerWithOptions(os.Stdout, Options{Level: slog.LevelDebug})
}

func NewHandlerWithOptions(out io.Writer, opts Options) *CustomHandler {
	if opts.Level == nil {
		opts.Level = slog.LevelInfo
	}
	skip := make([]string, 0, len(opts.Skip))
	for _, s := range opts.Skip {
		skip = append(skip, strings.ToLower(s))
	}
	opts.Skip = skip
	return &CustomHandler{opts: opts, out: out, mu: &sync.Mutex{}}
}

func (h *CustomHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.opts.Level.Level()
}

func (h *CustomHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := *h
	next.attrs = make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	next.attrs = append(next.attrs, h.attrs...)
	for _, a := range attrs {
		next.attrs = append(next.attrs, h.qualify(a))
	}
	return &next
}

func (h *CustomHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	next := *h
	if next.group != "" {
		next.group += "." + name
	} else {
		next.group = name
	}
	return &next
}

func (h *CustomHandler) qualify(a slog.Attr) slog.Attr {
	if h.group == "" || a.Key == "type" {
		return a
	}
	a.Key = h.group + "." + a.Key
	return a
}

func (h *CustomHandler) Handle(_ context.Context, r slog.Record) error {
	if h.shouldSkip(r.Message) {
		return nil
	}

	all := make([]slog.Attr, 0, len(h.attrs)+r.NumAttrs())
	all = append(all, h.attrs...)
	r.Attrs(func(a slog.Attr) bool {
		all = append(all, h.qualify(a))
		return true
	})

	ts := r.Time
	if ts.IsZero() {
		ts = time.Now()
	}

	var levelColor, levelText string
	switch {
	case r.Level >= slog.LevelError:
		levelColor, levelText = colorRed, "ERROR"
	case r.Level >= slog.LevelWarn:
		levelColor, levelText = colorYellow, "WARN"
	case r.Level >= slog.LevelInfo:
		levelColor, levelText = colorGreen, "INFO"
	default:
		levelColor, levelText = colorPurple, "DEBUG"
	}

	message := r.Message
	if r.Level >= slog.LevelError {
		if errText := attrValue(all, "error"); errText != "" {
			message = fmt.Sprintf("%s: %s", message, errText)
		}
		if file, line := sourceLocation(r.PC); file != "" {
			message = fmt.Sprintf("%s (%s:%d)", message, file, line)
		}
	}

	var sb strings.Builder
	for _, a := range all {
		if a.Key == "type" || (r.Level >= slog.LevelError && a.Key == "error") {
			continue
		}
		fmt.Fprintf(&sb, " %s=%v", a.Key, a.Value)
	}

	white, reset, lc := colorWhite, colorReset, levelColor
	if h.opts.NoColor {
		white, reset, lc = "", "", ""
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := fmt.Fprintf(h.out, "%s[TradeWatch] [%s] [%s%s%s] [%s] %s%s%s\n",
		white,
		ts.Format("15:04:05"),
		lc,
		levelText,
		white,
		logType(all),
		message,
		sb.String(),
		reset,
	)
	return err
}

func (h *CustomHandler) shouldSkip(msg string) bool {
	if len(h.opts.Skip) == 0 {
		return false
	}
	lower := strings.ToLower(msg)
	for _, s := range h.opts.Skip {
		if strings.Contains(lower, s) {
			return true
		}
	}
	return false
}

func sourceLocation(pc uintptr) (string, int) {
	if pc == 0 {
		return "", 0
	}
	frame, _ := runtime.CallersFrames([]uintptr{pc}).Next()
	if frame.File == "" {
		return "", 0
	}
	return filepath.Base(frame.File), frame.Line
}

func logType(attrs []slog.Attr) LogType {
	switch attrValue(attrs, "type") {
	case "ingest":
		return TypeIngest
	case "price":
		return TypePrice
	case "service":
		return TypeService
	case "db":
		return TypeDB
	case "api":
		return TypeAPI
	case "error":
		return TypeError
	default:
		return TypeSystem
	}
}

// attrValue returns the last value of key, so record attrs override
// handler attrs.
func attrValue(attrs []slog.Attr, key string) string {
	var v string
	for _, a := range attrs {
		if a.Key == key {
			v = a.Value.String()
		}
	}
	return v
}

// ParseLevel maps a config string onto a slog level. Unknown values fall
// back to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
