// Package logging adapts zap to the types.Logger contract used across
// go-portfolio.
package logging

import (
	"fmt"
	"strings"

	"github.com/goliatone/go-portfolio/pkg/types"
	"go.uber.org/zap"
)

const redacted = "[REDACTED]"

// Logger wraps a zap SugaredLogger and redacts sensitive key/value pairs.
type Logger struct {
	SugaredLogger *zap.SugaredLogger
}

var _ types.Logger = (*Logger)(nil)

// New builds a logger for mode ("prod"/"production" or development).
func New(mode string) (*Logger, error) {
	var cfg zap.Config
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "prod", "production":
		cfg = zap.NewProductionConfig()
	default:
		cfg = zap.NewDevelopmentConfig()
	}
	zapLogger, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return Wrap(zapLogger), nil
}

// Wrap adapts an existing zap logger.
func Wrap(zapLogger *zap.Logger) *Logger {
	if zapLogger == nil {
		zapLogger = zap.NewNop()
	}
	return &Logger{SugaredLogger: zapLogger.Sugar()}
}

// Sync flushes buffered entries.
func (l *Logger) Sync() {
	_ = l.SugaredLogger.Sync()
}

func (l *Logger) Debug(msg string, fields ...any) {
	l.SugaredLogger.Debugw(msg, sanitizeKVs(fields)...)
}

func (l *Logger) Info(msg string, fields ...any) {
	l.SugaredLogger.Infow(msg, sanitizeKVs(fields)...)
}

func (l *Logger) Warn(msg string, fields ...any) {
	l.SugaredLogger.Warnw(msg, sanitizeKVs(fields)...)
}

// Error logs at error level with err attached under "error".
func (l *Logger) Error(msg string, err error, fields ...any) {
	kv := sanitizeKVs(fields)
	if err != nil {
		kv = append(kv, "error", err.Error())
	}
	l.SugaredLogger.Errorw(msg, kv...)
}

// With returns a child logger carrying the supplied pairs.
func (l *Logger) With(fields ...any) *Logger {
	return &Logger{SugaredLogger: l.SugaredLogger.With(sanitizeKVs(fields)...)}
}

func sanitizeKVs(kv []any) []any {
	if len(kv) == 0 {
		return kv
	}
	out := make([]any, 0, len(kv))
	for i := 0; i < len(kv); i += 2 {
		if i == len(kv)-1 {
			out = append(out, "extra", kv[i])
			break
		}
		key := toString(kv[i])
		out = append(out, key, sanitizeValue(strings.ToLower(strings.TrimSpace(key)), kv[i+1]))
	}
	return out
}

func sanitizeValue(key string, val any) any {
	if isRedactKey(key) {
		return redacted
	}
	switch v := val.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, inner := range v {
			out[k] = sanitizeValue(strings.ToLower(strings.TrimSpace(k)), inner)
		}
		return out
	case []any:
		out := make([]any, 0, len(v))
		for _, inner := range v {
			out = append(out, sanitizeValue("", inner))
		}
		return out
	default:
		return val
	}
}

func isRedactKey(key string) bool {
	if key == "" {
		return false
	}
	for _, needle := range []string{"email", "phone", "password", "secret", "token", "authorization"} {
		if strings.Contains(key, needle) {
			return true
		}
	}
	return false
}

func toString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	default:
		return fmt.Sprint(v)
	}
}
