// Package observability builds the process-wide zap logger and the
// OpenTelemetry tracer provider.
package observability

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger returns a development logger for dev and test environments and
// a JSON production logger otherwise.
func NewLogger(env string) (*zap.Logger, error) {
	switch env {
	case "dev", "test", "local":
		cfg := zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		return cfg.Build()
	}
	cfg := zap.NewProductionConfig()
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	return cfg.Build(zap.Fields(zap.String("service", ServiceName)))
}
