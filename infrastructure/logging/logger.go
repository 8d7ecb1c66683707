// Package logging is the service's structured logging front end: a
// logrus core bound to the service name, with trace and operator
// identity carried through request contexts so every entry emitted on
// behalf of a request can be correlated.
package logging

import (
	"context"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// ctxKey keys request-scoped identity values. Unexported so only this
// package's helpers can plant or read them.
type ctxKey struct{ name string }

var (
	traceKey    = ctxKey{"trace"}
	operatorKey = ctxKey{"operator"}
)

// Logger binds a logrus core to one service name. Every entry it
// produces carries the service field; request-scoped entries add the
// trace and operator fields found in the context.
type Logger struct {
	core  *logrus.Logger
	bound *logrus.Entry
}

// New builds a logger for the named service. An unparseable level
// degrades to info; any format other than "text" selects JSON.
func New(service, level, format string) *Logger {
	core := logrus.New()
	core.SetOutput(os.Stdout)
	core.SetLevel(parseLevel(level))
	core.SetFormatter(formatterFor(format))

	return &Logger{
		core:  core,
		bound: core.WithField("service", service),
	}
}

// NewFromEnv builds a logger from LOG_LEVEL and LOG_FORMAT, defaulting
// to info and JSON.
func NewFromEnv(service string) *Logger {
	return New(service, os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FORMAT"))
}

func parseLevel(level string) logrus.Level {
	parsed, err := logrus.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		return logrus.InfoLevel
	}
	return parsed
}

func formatterFor(format string) logrus.Formatter {
	if strings.EqualFold(strings.TrimSpace(format), "text") {
		// Text output is for terminals; everything shipped is JSON.
		return &logrus.TextFormatter{FullTimestamp: true, TimestampFormat: time.RFC3339}
	}
	return &logrus.JSONFormatter{
		TimestampFormat: time.RFC3339Nano,
		FieldMap: logrus.FieldMap{
			logrus.FieldKeyTime:  "timestamp",
			logrus.FieldKeyLevel: "level",
			logrus.FieldKeyMsg:   "message",
		},
	}
}

// SetOutput redirects the log stream; tests discard it.
func (l *Logger) SetOutput(w io.Writer) {
	l.core.SetOutput(w)
}

// Info emits a bare informational message.
func (l *Logger) Info(message string) {
	l.bound.Info(message)
}

// WithFields opens an entry with extra fields.
func (l *Logger) WithFields(fields map[string]interface{}) *logrus.Entry {
	return l.bound.WithFields(logrus.Fields(fields))
}

// WithError opens an entry tagged with an error.
func (l *Logger) WithError(err error) *logrus.Entry {
	return l.bound.WithError(err)
}

// WithContext opens an entry carrying the request identity found in
// the context: trace ID and, when the authorization hook ran, the
// operator subject.
func (l *Logger) WithContext(ctx context.Context) *logrus.Entry {
	entry := l.bound
	if trace := GetTraceID(ctx); trace != "" {
		entry = entry.WithField("trace_id", trace)
	}
	if operator := GetOperator(ctx); operator != "" {
		entry = entry.WithField("operator", operator)
	}
	return entry
}

// NewTraceID mints the identifier the request middleware stamps on a
// request and its response headers.
func NewTraceID() string {
	return uuid.NewString()
}

// WithTraceID plants a trace ID in the context.
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, traceKey, traceID)
}

// GetTraceID reads the trace ID, or "" when none was planted.
func GetTraceID(ctx context.Context) string {
	trace, _ := ctx.Value(traceKey).(string)
	return trace
}

// WithOperator plants the authenticated operator subject in the context.
func WithOperator(ctx context.Context, operator string) context.Context {
	return context.WithValue(ctx, operatorKey, operator)
}

// GetOperator reads the operator subject, or "" when the hook is off.
func GetOperator(ctx context.Context) string {
	operator, _ := ctx.Value(operatorKey).(string)
	return operator
}

// LogRequest records one served HTTP request.
func (l *Logger) LogRequest(ctx context.Context, method, path string, status int, elapsed time.Duration) {
	l.WithContext(ctx).WithFields(logrus.Fields{
		"method":     method,
		"path":       path,
		"status":     status,
		"elapsed_ms": elapsed.Milliseconds(),
	}).Info("request served")
}

// LogColdQuery records a cold-tier statement: debug when it succeeded,
// error with the cause when it did not.
func (l *Logger) LogColdQuery(ctx context.Context, statement string, elapsed time.Duration, err error) {
	entry := l.WithContext(ctx).WithFields(logrus.Fields{
		"statement":  statement,
		"elapsed_ms": elapsed.Milliseconds(),
	})
	if err != nil {
		entry.WithError(err).Error("cold store statement failed")
		return
	}
	entry.Debug("cold store statement")
}

// LogStrategy records which persistence strategy a call site chose.
func (l *Logger) LogStrategy(kind, strategy, key string) {
	l.bound.WithFields(logrus.Fields{
		"kind":     kind,
		"strategy": strategy,
		"key":      key,
	}).Debug("persistence strategy")
}

// The process-wide logger. InitDefault replaces it at startup; callers
// that run before initialization get an env-configured fallback.
var (
	defaultMu     sync.Mutex
	defaultLogger *Logger
)

// InitDefault installs the process-wide logger.
func InitDefault(service, level, format string) {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultLogger = New(service, level, format)
}

// Default returns the process-wide logger.
func Default() *Logger {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultLogger == nil {
		defaultLogger = NewFromEnv("tracking")
	}
	return defaultLogger
}
