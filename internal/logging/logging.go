// Package logging builds the zap logger used by the command line tool.
package logging

import (
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Config struct {
	Level  string // debug, info, warn, error
	Format string // json, console
}

// DefaultConfig reads LOG_LEVEL and LOG_FORMAT, defaulting to warn/console.
func DefaultConfig() Config {
	return Config{
		Level:  getEnv("LOG_LEVEL", "warn"),
		Format: getEnv("LOG_FORMAT", "console"),
	}
}

// New builds a logger writing to stderr so command output on stdout stays
// machine readable.
func New(cfg Config) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil {
		return nil, fmt.Errorf("logging: %w", err)
	}
	format := strings.ToLower(cfg.Format)
	if format != "json" && format != "console" {
		return nil, fmt.Errorf("logging: unknown format %q", cfg.Format)
	}

	enc := zap.NewProductionEncoderConfig()
	enc.TimeKey = "timestamp"
	enc.EncodeTime = zapcore.ISO8601TimeEncoder
	enc.EncodeLevel = zapcore.CapitalLevelEncoder
	if format == "console" {
		enc.EncodeCaller = zapcore.ShortCallerEncoder
		enc.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
	}

	zc := zap.Config{
		Level:             zap.NewAtomicLevelAt(level),
		Encoding:          format,
		EncoderConfig:     enc,
		OutputPaths:       []string{"stderr"},
		ErrorOutputPaths:  []string{"stderr"},
		DisableStacktrace: level > zapcore.DebugLevel,
	}
	return zc.Build()
}

func getEnv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}
