package observability

import (
	"fmt"
	"os"

	"go.opentelemetry.io/contrib/bridges/otelzap"
	"go.opentelemetry.io/otel/log/global"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger builds the JSON console logger. Unknown levels fall back to info.
func NewLogger(level, service string) *zap.Logger {
	return zap.New(consoleCore(parseLevel(level)),
		zap.AddCaller(),
		zap.AddStacktrace(zapcore.ErrorLevel),
		zap.Fields(zap.String("service.name", service)),
	)
}

// WithOTel tees the console logger into the global OTel logger provider, so
// every entry is also exported over OTLP.
func WithOTel(level, service string) *zap.Logger {
	otelCore := otelzap.NewCore(service, otelzap.WithLoggerProvider(global.GetLoggerProvider()))
	return zap.New(zapcore.NewTee(otelCore, consoleCore(parseLevel(level))),
		zap.AddCaller(),
		zap.AddStacktrace(zapcore.ErrorLevel),
		zap.Fields(zap.String("service.name", service)),
	)
}

func consoleCore(level zapcore.Level) zapcore.Core {
	enc := zap.NewProductionEncoderConfig()
	enc.EncodeTime = zapcore.ISO8601TimeEncoder
	return zapcore.NewCore(zapcore.NewJSONEncoder(enc), zapcore.Lock(os.Stdout), level)
}

func parseLevel(s string) zapcore.Level {
	lvl, err := zapcore.ParseLevel(s)
	if err != nil {
		fmt.Fprintf(os.Stderr, "unknown LOG_LEVEL %q, using info\n", s)
		return zapcore.InfoLevel
	}
	return lvl
}
