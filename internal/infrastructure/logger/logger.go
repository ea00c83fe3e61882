package logger

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/shopcore/backend/internal/infrastructure/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const defaultTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// Config holds logger configuration
type Config struct {
	Level      string // debug, info, warn, error
	Format     string // json, console
	Output     string // stdout, stderr, or file path
	TimeFormat string
	// Sample keeps the first 100 identical entries per second, then every 100th
	Sample bool
}

// New creates a zap logger writing to cfg.Output
func New(cfg *Config) (*zap.Logger, error) {
	writer, err := openOutput(cfg.Output)
	if err != nil {
		return nil, err
	}

	core := zapcore.NewCore(encoder(cfg), writer, parseLevel(cfg.Level))
	if cfg.Sample {
		core = zapcore.NewSamplerWithOptions(core, time.Second, 100, 100)
	}
	return zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel)), nil
}

// NewFromAppConfig builds the service logger. Production always writes
// sampled JSON; elsewhere the log section may pick console output.
func NewFromAppConfig(app config.AppConfig, logCfg config.LogConfig) (*zap.Logger, error) {
	production := app.Env == "production"
	cfg := &Config{
		Level:  logCfg.Level,
		Format: logCfg.Format,
		Output: logCfg.Output,
		Sample: production,
	}
	if production || cfg.Format == "" {
		cfg.Format = "json"
		if !production {
			cfg.Format = "console"
		}
	}

	l, err := New(cfg)
	if err != nil {
		return nil, err
	}
	return l.With(zap.String("service", app.Name), zap.String("env", app.Env)), nil
}

func parseLevel(level string) zapcore.Level {
	level = strings.ToLower(strings.TrimSpace(level))
	if level == "warning" {
		return zapcore.WarnLevel
	}
	l, err := zapcore.ParseLevel(level)
	if err != nil || l < zapcore.DebugLevel || l > zapcore.ErrorLevel {
		return zapcore.InfoLevel
	}
	return l
}

func encoder(cfg *Config) zapcore.Encoder {
	layout := cfg.TimeFormat
	if layout == "" {
		layout = defaultTimeFormat
	}

	ec := zap.NewProductionEncoderConfig()
	ec.TimeKey = "time"
	ec.MessageKey = "msg"
	ec.EncodeTime = zapcore.TimeEncoderOfLayout(layout)
	ec.EncodeDuration = zapcore.MillisDurationEncoder

	if cfg.Format == "console" {
		ec.EncodeLevel = zapcore.CapitalColorLevelEncoder
		return zapcore.NewConsoleEncoder(ec)
	}
	return zapcore.NewJSONEncoder(ec)
}

func openOutput(output string) (zapcore.WriteSyncer, error) {
	switch strings.ToLower(output) {
	case "", "stdout":
		return zapcore.Lock(os.Stdout), nil
	case "stderr":
		return zapcore.Lock(os.Stderr), nil
	}
	f, err := os.OpenFile(output, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file %s: %w", output, err)
	}
	return zapcore.AddSync(f), nil
}
