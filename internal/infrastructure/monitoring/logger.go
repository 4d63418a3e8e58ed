// Package monitoring provides the zap-backed logger, Prometheus metrics, and
// OpenTelemetry tracing used by the service.
package monitoring

import (
	"context"
	"os"
	"strings"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/envseal/envseal/internal/config"
	"github.com/envseal/envseal/pkg/constants"
	"github.com/envseal/envseal/pkg/logger"
)

// sensitiveKeys are field-name fragments whose values are never logged.
var sensitiveKeys = []string{"plaintext", "secret", "token", "private_key", "password"}

type zapLogger struct {
	zl    *zap.Logger
	level zap.AtomicLevel
}

// NewZapLogger builds a logger.Logger backed by zap with a JSON production
// encoder. The returned logger's level can be changed at runtime via SetLevel.
func NewZapLogger(cfg *config.LogConfig) (logger.Logger, error) {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "timestamp"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	level := zap.NewAtomicLevel()
	if parsed, err := zapcore.ParseLevel(cfg.Level); err == nil {
		level.SetLevel(parsed)
	}

	var encoder zapcore.Encoder
	if cfg.Format == "console" {
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	} else {
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	}

	core := zapcore.NewCore(encoder, zapcore.AddSync(os.Stdout), level)
	return &zapLogger{
		zl:    zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1), zap.AddStacktrace(zapcore.ErrorLevel)),
		level: level,
	}, nil
}

// SetLevel changes the level of a zap-backed logger at runtime. Loggers of
// other types are left untouched.
func SetLevel(l logger.Logger, level string) {
	zl, ok := l.(*zapLogger)
	if !ok {
		return
	}
	if parsed, err := zapcore.ParseLevel(level); err == nil {
		zl.level.SetLevel(parsed)
	}
}

func (l *zapLogger) Debug(ctx context.Context, msg string, fields ...logger.Field) {
	l.zl.Debug(msg, l.convert(ctx, nil, fields)...)
}

func (l *zapLogger) Info(ctx context.Context, msg string, fields ...logger.Field) {
	l.zl.Info(msg, l.convert(ctx, nil, fields)...)
}

func (l *zapLogger) Warn(ctx context.Context, msg string, fields ...logger.Field) {
	l.zl.Warn(msg, l.convert(ctx, nil, fields)...)
}

func (l *zapLogger) Error(ctx context.Context, msg string, err error, fields ...logger.Field) {
	l.zl.Error(msg, l.convert(ctx, err, fields)...)
}

func (l *zapLogger) Fatal(ctx context.Context, msg string, err error, fields ...logger.Field) {
	l.zl.Fatal(msg, l.convert(ctx, err, fields)...)
}

func (l *zapLogger) WithFields(fields ...logger.Field) logger.Logger {
	return &zapLogger{zl: l.zl.With(l.convert(context.Background(), nil, fields)...), level: l.level}
}

func (l *zapLogger) WithComponent(component string) logger.Logger {
	return &zapLogger{zl: l.zl.With(zap.String("component", component)), level: l.level}
}

func (l *zapLogger) convert(ctx context.Context, err error, fields []logger.Field) []zap.Field {
	out := make([]zap.Field, 0, len(fields)+3)

	if ctx != nil {
		if span := trace.SpanFromContext(ctx); span.SpanContext().IsValid() {
			out = append(out,
				zap.String("trace_id", span.SpanContext().TraceID().String()),
				zap.String("span_id", span.SpanContext().SpanID().String()),
			)
		}
		if requestID, ok := ctx.Value(constants.ContextKeyRequestID).(string); ok {
			out = append(out, zap.String("request_id", requestID))
		}
	}

	for _, f := range fields {
		if isSensitive(f.Key) {
			out = append(out, zap.String(f.Key, "[REDACTED]"))
			continue
		}
		out = append(out, zap.Any(f.Key, f.Value))
	}

	if err != nil {
		out = append(out, zap.Error(err))
	}
	return out
}

func isSensitive(key string) bool {
	k := strings.ToLower(key)
	for _, s := range sensitiveKeys {
		if strings.Contains(k, s) {
			return true
		}
	}
	return false
}
