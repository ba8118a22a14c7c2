package logger

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/m3rciful/tokenbot/core/buildinfo"
	coreconfig "github.com/m3rciful/tokenbot/core/config"
)

const (
	defaultSampleNum = 1
	defaultSampleDen = 50
)

var (
	initOnce sync.Once

	closeMu sync.Mutex
	closed  bool

	logWriter  *asyncWriter
	logClosers []io.Closer

	levelVar slog.LevelVar

	debugSampler  = newRatioSampler(defaultSampleNum, defaultSampleDen)
	traceOverride bool

	// L is the base logger; prefer the context-first helpers below.
	L *slog.Logger

	// DB logs database connectivity events.
	DB *slog.Logger
	// MIG logs database migration events.
	MIG *slog.Logger
	// TG logs Telegram transport events.
	TG *slog.Logger
	// TWire logs Telegram wiring steps.
	TWire *slog.Logger
	// HTTP logs the inbound HTTP server.
	HTTP *slog.Logger
	// OneShot logs calls to the 1Shot API.
	OneShot *slog.Logger
	// Deploy logs the token deployment conversation and submissions.
	Deploy *slog.Logger
	// Hook logs webhook authentication and correlation.
	Hook *slog.Logger
	// Chats logs chat membership tracking.
	Chats *slog.Logger
)

// components binds every package-level logger to its component name.
var components = []struct {
	name string
	dst  **slog.Logger
}{
	{"db", &DB},
	{"db.migrate", &MIG},
	{"tg", &TG},
	{"tg.wire", &TWire},
	{"http", &HTTP},
	{"oneshot", &OneShot},
	{"deploy", &Deploy},
	{"webhook", &Hook},
	{"chats", &Chats},
}

func init() {
	// Until InitLogger runs (tests, early startup) every logger discards output.
	install(slog.New(slog.DiscardHandler))
}

// InitLogger configures the global structured logger. Only the first call
// has any effect.
func InitLogger(cfg *coreconfig.Config) error {
	var initErr error
	initOnce.Do(func() {
		if cfg == nil {
			cfg = &coreconfig.Config{}
		}
		levelVar.Set(parseLevel(cfg.Logging.Level))
		debugSampler.Set(parseDebugSample(cfg.Logging.DebugSample))
		traceOverride = isTruthy(os.Getenv("TRACE")) || isTruthy(os.Getenv("LOG_TRACE"))

		outputs, closers, err := openOutputs(cfg.Logging.Dir, cfg.Logging.BotFile)
		if err != nil {
			initErr = err
			return
		}
		logClosers = closers
		logWriter = newAsyncWriter(outputs, 64*1024)

		install(slog.New(newStructuredHandler(handlerConfig{
			level:    &levelVar,
			writer:   logWriter,
			format:   parseFormat(cfg.Logging.Format, cfg.Logging.Profile),
			keyOrder: parseKeyOrder(cfg.Logging.KeysOrder),
			redact:   defaultRedactKeys,
		})))
		slog.SetDefault(L)
		logStartup(cfg)
	})
	return initErr
}

func install(base *slog.Logger) {
	L = base
	for _, c := range components {
		*c.dst = base.With("component", c.name)
	}
}

func logStartup(cfg *coreconfig.Config) {
	L.LogAttrs(context.Background(), slog.LevelInfo, "startup",
		slog.String("component", "app"),
		slog.String("event", "startup"),
		slog.String("version", buildinfo.String()),
		slog.String("go_version", runtime.Version()),
		slog.String("cfg_profile", profileName(cfg.Logging.Profile)),
		slog.String("mode", cfg.Telegram.RunMode),
		slog.String("chain_id", cfg.OneShot.ChainID),
		slog.String("driver", cfg.Database.Driver),
	)
}

// Shutdown flushes buffered log output and closes opened sinks.
func Shutdown() error {
	closeMu.Lock()
	defer closeMu.Unlock()
	if closed {
		return nil
	}
	closed = true

	var errs []error
	if logWriter != nil {
		errs = append(errs, logWriter.Flush(), logWriter.Close())
	}
	for _, c := range logClosers {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}

func parseFormat(format, profile string) logFormat {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "kv", "text", "pretty":
		return formatKV
	case "json":
		return formatJSON
	}
	switch profileName(profile) {
	case "debug", "dev":
		return formatKV
	}
	return formatJSON
}

func parseKeyOrder(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "default" {
		return append([]string(nil), defaultKeyOrder...)
	}
	var order []string
	for _, p := range strings.Split(raw, ",") {
		if key := strings.TrimSpace(p); key != "" {
			order = append(order, key)
		}
	}
	if len(order) == 0 {
		return append([]string(nil), defaultKeyOrder...)
	}
	return order
}

func parseLevel(raw string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// parseDebugSample reads a "num/den" or "den" ratio. An unparsable value
// yields 0/0, which turns sampling off so every debug event is kept;
// negative parts fall back to 1/50.
func parseDebugSample(raw string) (int, int) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return defaultSampleNum, defaultSampleDen
	}
	num, den := parseRatioSpec(raw)
	if num == 0 && den == 0 {
		return 0, 0
	}
	if num <= 0 || den <= 0 {
		return defaultSampleNum, defaultSampleDen
	}
	return num, den
}

// openOutputs always writes to stdout and additionally appends to dir/file
// when both are set.
func openOutputs(dir, file string) ([]io.Writer, []io.Closer, error) {
	writers := []io.Writer{os.Stdout}
	dir, file = strings.TrimSpace(dir), strings.TrimSpace(file)
	if dir == "" || file == "" {
		return writers, nil, nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, nil, fmt.Errorf("logger: create log dir %s: %w", dir, err)
	}
	path := filepath.Join(dir, file)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("logger: open log file %s: %w", path, err)
	}
	return append(writers, f), []io.Closer{f}, nil
}

func profileName(profile string) string {
	if p := strings.ToLower(strings.TrimSpace(profile)); p != "" {
		return p
	}
	return "prod"
}

func isTruthy(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "on", "yes":
		return true
	}
	return false
}

// LogEvent writes event with attrs through logg, falling back to the logger
// carried by ctx and then to L.
func LogEvent(ctx context.Context, logg *slog.Logger, level slog.Level, event string, attrs ...slog.Attr) {
	if logg == nil {
		logg = FromContext(ctx)
	}
	if logg == nil {
		logg = L
	}
	if event != "" {
		attrs = append([]slog.Attr{slog.String("event", event)}, attrs...)
	}
	logg.LogAttrs(ctx, level, "", attrs...)
}

// Component returns L scoped to the named component.
func Component(name string) *slog.Logger {
	name = strings.TrimSpace(name)
	if name == "" {
		return L
	}
	return L.With("component", name)
}

// Debug logs a debug-level event for the given component.
func Debug(ctx context.Context, component, event string, attrs ...slog.Attr) {
	LogEvent(ctx, Component(component), slog.LevelDebug, event, attrs...)
}

// Info logs an info-level event for the given component.
func Info(ctx context.Context, component, event string, attrs ...slog.Attr) {
	LogEvent(ctx, Component(component), slog.LevelInfo, event, attrs...)
}

// Warn logs a warn-level event for the given component.
func Warn(ctx context.Context, component, event string, attrs ...slog.Attr) {
	LogEvent(ctx, Component(component), slog.LevelWarn, event, attrs...)
}

// Error logs an error-level event for the given component.
func Error(ctx context.Context, component, event string, attrs ...slog.Attr) {
	LogEvent(ctx, Component(component), slog.LevelError, event, attrs...)
}

// ShouldSampleDebug reports whether a high-volume debug event should be
// logged this time. TRACE forces every event through.
func ShouldSampleDebug() bool {
	return traceOverride || debugSampler.Allow()
}

// TraceEnabled reports whether TRACE is forcing full debug output.
func TraceEnabled() bool {
	return traceOverride
}
