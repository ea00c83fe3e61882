package logger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	gormlogger "gorm.io/gorm/logger"
)

// GormLogger routes gorm statements through zap, enriched with the request,
// user and trace ids of the calling context.
//
// Row-locking statements (SELECT ... FOR UPDATE) are measured against their
// own threshold: their duration includes the time spent queued behind another
// transaction holding the same order or product row.
type GormLogger struct {
	base        *zap.Logger
	level       gormlogger.LogLevel
	slowQuery   time.Duration
	lockWait    time.Duration
	logNotFound bool
}

// GormLoggerOption configures a GormLogger
type GormLoggerOption func(*GormLogger)

// WithSlowThreshold sets the duration after which a plain statement is logged as slow
func WithSlowThreshold(d time.Duration) GormLoggerOption {
	return func(l *GormLogger) { l.slowQuery = d }
}

// WithLockWaitThreshold sets the duration after which a row-locking statement is reported
func WithLockWaitThreshold(d time.Duration) GormLoggerOption {
	return func(l *GormLogger) { l.lockWait = d }
}

// WithRecordNotFound logs gorm.ErrRecordNotFound as an error. Lookups of
// unknown orders and products are ordinary 404s, so this is off by default.
func WithRecordNotFound(log bool) GormLoggerOption {
	return func(l *GormLogger) { l.logNotFound = log }
}

// NewGormLogger creates a gorm logger writing to zapLogger at the given level
func NewGormLogger(zapLogger *zap.Logger, level gormlogger.LogLevel, opts ...GormLoggerOption) *GormLogger {
	l := &GormLogger{
		base:      zapLogger.Named("gorm"),
		level:     level,
		slowQuery: 200 * time.Millisecond,
		lockWait:  time.Second,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// LogMode implements gormlogger.Interface
func (l *GormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	clone := *l
	clone.level = level
	return &clone
}

// Info implements gormlogger.Interface
func (l *GormLogger) Info(ctx context.Context, msg string, data ...any) {
	if l.level >= gormlogger.Info {
		WithLogger(ctx, l.base).Info(fmt.Sprintf(msg, data...))
	}
}

// Warn implements gormlogger.Interface
func (l *GormLogger) Warn(ctx context.Context, msg string, data ...any) {
	if l.level >= gormlogger.Warn {
		WithLogger(ctx, l.base).Warn(fmt.Sprintf(msg, data...))
	}
}

// Error implements gormlogger.Interface
func (l *GormLogger) Error(ctx context.Context, msg string, data ...any) {
	if l.level >= gormlogger.Error {
		WithLogger(ctx, l.base).Error(fmt.Sprintf(msg, data...))
	}
}

// Trace implements gormlogger.Interface
func (l *GormLogger) Trace(ctx context.Context, begin time.Time, fc func() (sql string, rowsAffected int64), err error) {
	if l.level <= gormlogger.Silent {
		return
	}

	elapsed := time.Since(begin)
	sql, rows := fc()
	locking := isRowLock(sql)
	log := WithLogger(ctx, l.base).With(
		zap.Duration("elapsed", elapsed),
		zap.Int64("rows", rows),
		zap.String("sql", sql),
	)
	if locking {
		log = log.With(zap.Bool("row_lock", true))
	}

	switch {
	case err != nil && l.level >= gormlogger.Error:
		if !l.logNotFound && errors.Is(err, gormlogger.ErrRecordNotFound) {
			return
		}
		log.Error("Statement failed", zap.Error(err))
	case locking && l.lockWait > 0 && elapsed >= l.lockWait && l.level >= gormlogger.Warn:
		log.Warn("Row lock held up statement", zap.Duration("threshold", l.lockWait))
	case !locking && l.slowQuery > 0 && elapsed >= l.slowQuery && l.level >= gormlogger.Warn:
		log.Warn("Slow statement", zap.Duration("threshold", l.slowQuery))
	case l.level >= gormlogger.Info:
		log.Debug("Statement")
	}
}

func isRowLock(sql string) bool {
	return strings.Contains(strings.ToUpper(sql), "FOR UPDATE")
}

var gormLevels = map[string]gormlogger.LogLevel{
	"silent": gormlogger.Silent,
	"error":  gormlogger.Error,
	"warn":   gormlogger.Warn,
	"info":   gormlogger.Info,
	"debug":  gormlogger.Info,
}

// MapGormLogLevel converts a configured level name into a gorm level.
// Unknown names fall back to warn.
func MapGormLogLevel(level string) gormlogger.LogLevel {
	if l, ok := gormLevels[strings.ToLower(strings.TrimSpace(level))]; ok {
		return l
	}
	return gormlogger.Warn
}
