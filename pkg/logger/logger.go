// Package logger is cfboard's structured logger: a thin wrapper over
// go.uber.org/zap with typed field helpers and context propagation.
package logger

import (
	"context"
	"errors"
	"io"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Level is a zap level.
type Level = zapcore.Level

const (
	LevelDebug = zapcore.DebugLevel
	LevelInfo  = zapcore.InfoLevel
	LevelWarn  = zapcore.WarnLevel
	LevelError = zapcore.ErrorLevel
)

// ParseLevel accepts zap level names plus "warning". Anything else is info.
func ParseLevel(s string) Level {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "warning" {
		return LevelWarn
	}
	lvl, err := zapcore.ParseLevel(s)
	if err != nil {
		return LevelInfo
	}
	return lvl
}

// Format selects the encoder.
type Format string

const (
	FormatJSON    Format = "json"
	FormatConsole Format = "console"
)

// Options configures New.
type Options struct {
	Output    io.Writer
	Level     Level
	Format    Format
	AddCaller bool
}

// Logger is the application logger.
type Logger struct {
	z *zap.Logger
}

// New builds a logger writing to opts.Output, stdout by default.
func New(opts Options) *Logger {
	out := opts.Output
	if out == nil {
		out = os.Stdout
	}

	enc := zap.NewProductionEncoderConfig()
	enc.TimeKey = "timestamp"
	enc.MessageKey = "message"
	enc.EncodeTime = zapcore.ISO8601TimeEncoder
	enc.EncodeLevel = zapcore.CapitalLevelEncoder

	var encoder zapcore.Encoder = zapcore.NewJSONEncoder(enc)
	if opts.Format == FormatConsole {
		enc.EncodeLevel = zapcore.CapitalColorLevelEncoder
		encoder = zapcore.NewConsoleEncoder(enc)
	}

	zopts := []zap.Option{zap.AddStacktrace(zapcore.ErrorLevel)}
	if opts.AddCaller {
		zopts = append(zopts, zap.AddCaller(), zap.AddCallerSkip(1))
	}
	return &Logger{z: zap.New(zapcore.NewCore(encoder, zapcore.AddSync(out), opts.Level), zopts...)}
}

// ForEnvironment logs JSON in production and colored console lines
// elsewhere.
func ForEnvironment(env, level string) *Logger {
	format := FormatConsole
	if env == "production" {
		format = FormatJSON
	}
	return New(Options{Level: ParseLevel(level), Format: format, AddCaller: true})
}

// Default is an info level JSON logger on stdout.
func Default() *Logger {
	return New(Options{Level: LevelInfo, Format: FormatJSON, AddCaller: true})
}

// Nop discards everything.
func Nop() *Logger { return &Logger{z: zap.NewNop()} }

// FromZap wraps z. A nil z yields Nop.
func FromZap(z *zap.Logger) *Logger {
	if z == nil {
		return Nop()
	}
	return &Logger{z: z}
}

func (l *Logger) With(fields ...Field) *Logger {
	return &Logger{z: l.z.With(fields...)}
}

// WithLevel raises the minimum level. It cannot lower it.
func (l *Logger) WithLevel(level Level) *Logger {
	return &Logger{z: l.z.WithOptions(zap.IncreaseLevel(level))}
}

// WithRequestID tags every entry with the HTTP request id.
func (l *Logger) WithRequestID(id string) *Logger {
	return l.With(String(RequestIDKey, id))
}

func (l *Logger) Debug(msg string, fields ...Field) { l.z.Debug(msg, fields...) }
func (l *Logger) Info(msg string, fields ...Field)  { l.z.Info(msg, fields...) }
func (l *Logger) Warn(msg string, fields ...Field)  { l.z.Warn(msg, fields...) }
func (l *Logger) Error(msg string, fields ...Field) { l.z.Error(msg, fields...) }

// Sync flushes buffered entries. Sync errors on terminals are ignored.
func (l *Logger) Sync() {
	var pathErr *os.PathError
	if err := l.z.Sync(); err != nil && !errors.As(err, &pathErr) {
		l.z.Error("logger sync failed", zap.Error(err))
	}
}

type ctxKey struct{}

// WithContext attaches l to ctx.
func WithContext(ctx context.Context, l *Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// FromContext returns the logger attached to ctx, or Default.
func FromContext(ctx context.Context) *Logger {
	if l, ok := ctx.Value(ctxKey{}).(*Logger); ok {
		return l
	}
	return Default()
}

// ══════════════════════════════════════════════════════════════════════════════
// FIELDS
// ══════════════════════════════════════════════════════════════════════════════

// Field is a zap field.
type Field = zap.Field

func String(key, value string) Field                 { return zap.String(key, value) }
func Strings(key string, value []string) Field       { return zap.Strings(key, value) }
func Int(key string, value int) Field                { return zap.Int(key, value) }
func Float64(key string, value float64) Field        { return zap.Float64(key, value) }
func Bool(key string, value bool) Field              { return zap.Bool(key, value) }
func Duration(key string, value time.Duration) Field { return zap.Duration(key, value) }
func Time(key string, value time.Time) Field         { return zap.Time(key, value) }
func Any(key string, value any) Field                { return zap.Any(key, value) }

// Err is the "error" field. A nil err adds nothing.
func Err(err error) Field {
	if err == nil {
		return zap.Skip()
	}
	return zap.Error(err)
}

// RequestIDKey is the field carrying the HTTP request id.
const RequestIDKey = "request_id"

// Board domain fields.
func Handle(h string) Field         { return String("handle", h) }
func DayOffset(n int) Field         { return Int("day_offset", n) }
func TargetDate(d string) Field     { return String("target_date", d) }
func Attempt(n int) Field           { return Int("attempt", n) }
func Component(name string) Field   { return String("component", name) }
func Latency(d time.Duration) Field { return Duration("latency", d) }
func CacheKey(key string) Field     { return String("cache_key", key) }
func UpstreamMethod(m string) Field { return String("cf_method", m) }
