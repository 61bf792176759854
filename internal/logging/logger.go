package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/samijaber1/aegis-watch/internal/config"
)

// New builds the process logger. verbose forces debug level.
func New(cfg config.Logging, verbose bool) (*zap.Logger, error) {
	var zcfg zap.Config
	switch cfg.Format {
	case "", "json":
		zcfg = zap.NewProductionConfig()
	case "console":
		zcfg = zap.NewDevelopmentConfig()
		zcfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	default:
		return nil, fmt.Errorf("unknown log format: %s", cfg.Format)
	}

	level := zapcore.InfoLevel
	if cfg.Level != "" {
		if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
		}
	}
	if verbose {
		level = zapcore.DebugLevel
	}
	zcfg.Level = zap.NewAtomicLevelAt(level)
	zcfg.EncoderConfig.TimeKey = "ts"
	zcfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := zcfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	return logger.Named("aegis-watch"), nil
}

// CronLogger adapts zap to the cron.Logger interface
type CronLogger struct {
	Logger *zap.Logger
}

// Info logs routine scheduler messages at debug level
func (l CronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.Logger.Sugar().Debugw(msg, keysAndValues...)
}

// Error logs scheduler failures
func (l CronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.Logger.Sugar().Errorw(msg, append(keysAndValues, "error", err)...)
}
