package logger

import (
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var ErrInvalidLogLevel = errors.New("invalid log level")

const DefaultServiceName = "zenith"

// Config mirrors LOG_LEVEL, LOG_FORMAT and LOG_OUTPUT.
type Config struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// New builds a zap logger. A nil config yields the production defaults.
func New(config *Config, serviceName string) (*zap.Logger, error) {
	if serviceName == "" {
		serviceName = DefaultServiceName
	}
	if config == nil {
		l, err := zap.NewProduction()
		if err != nil {
			return nil, fmt.Errorf("failed to create production logger: %w", err)
		}
		return l.With(zap.String(FieldService, serviceName)), nil
	}

	var zapConfig zap.Config
	if strings.EqualFold(config.Format, "console") {
		zapConfig = zap.NewDevelopmentConfig()
		zapConfig.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		zapConfig = zap.NewProductionConfig()
		zapConfig.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}

	level, err := ParseLevel(config.Level)
	if err != nil {
		return nil, err
	}
	zapConfig.Level = zap.NewAtomicLevelAt(level)

	switch {
	case config.Output != "" && config.Output != "stdout" && config.Output != "stderr":
		zapConfig.OutputPaths = []string{config.Output}
		zapConfig.ErrorOutputPaths = []string{config.Output}
	case config.Output == "stderr":
		zapConfig.OutputPaths = []string{"stderr"}
		zapConfig.ErrorOutputPaths = []string{"stderr"}
	default:
		zapConfig.OutputPaths = []string{"stdout"}
		zapConfig.ErrorOutputPaths = []string{"stderr"}
	}

	zapLogger, err := zapConfig.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	return zapLogger.With(zap.String(FieldService, serviceName)), nil
}

func ParseLevel(level string) (zapcore.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "", "info":
		return zapcore.InfoLevel, nil
	case "debug":
		return zapcore.DebugLevel, nil
	case "warn", "warning":
		return zapcore.WarnLevel, nil
	case "error":
		return zapcore.ErrorLevel, nil
	default:
		return zapcore.InfoLevel, fmt.Errorf("%w: %s", ErrInvalidLogLevel, level)
	}
}
