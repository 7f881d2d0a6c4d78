package logger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	gorm_logger "gorm.io/gorm/logger"
)

// GormLoggerAdapter adapts Logger to GORM's logger.Interface. Statements
// are logged at TRACE, so they only show with module_levels: {datastore: trace}.
//
//	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
//	    Logger: logger.NewGormLoggerAdapter(log.Module("gorm"), 200*time.Millisecond),
//	})
type GormLoggerAdapter struct {
	logger        Logger
	slowThreshold time.Duration
}

// NewGormLoggerAdapter creates a GORM logger. Statements slower than
// slowThreshold are logged at WARN; 0 disables the check.
func NewGormLoggerAdapter(logger Logger, slowThreshold time.Duration) *GormLoggerAdapter {
	if logger == nil {
		logger = NewConsoleLogger("gorm", LogLevelInfo)
	}
	return &GormLoggerAdapter{logger: logger, slowThreshold: slowThreshold}
}

// LogMode returns the adapter unchanged; levels come from LoggingConfig.
func (a *GormLoggerAdapter) LogMode(_ gorm_logger.LogLevel) gorm_logger.Interface {
	return a
}

// Info maps GORM's chatty info level to DEBUG.
func (a *GormLoggerAdapter) Info(ctx context.Context, msg string, data ...any) {
	a.logger.WithContext(ctx).Debug(fmt.Sprintf(msg, data...))
}

func (a *GormLoggerAdapter) Warn(ctx context.Context, msg string, data ...any) {
	a.logger.WithContext(ctx).Warn(fmt.Sprintf(msg, data...))
}

func (a *GormLoggerAdapter) Error(ctx context.Context, msg string, data ...any) {
	a.logger.WithContext(ctx).Error(fmt.Sprintf(msg, data...))
}

// Trace logs one executed statement. ErrRecordNotFound is expected during
// upserts and is not treated as a failure.
func (a *GormLoggerAdapter) Trace(ctx context.Context, begin time.Time, fc func() (sql string, rowsAffected int64), err error) {
	elapsed := time.Since(begin)
	sql, rows := fc()
	log := a.logger.WithContext(ctx)

	switch {
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound):
		log.Warn("query error",
			String("sql", sql),
			Int64("rows_affected", rows),
			Int64("duration_ms", elapsed.Milliseconds()),
			Error(err))
	case a.slowThreshold > 0 && elapsed > a.slowThreshold:
		log.Warn("slow query",
			String("sql", sql),
			Int64("rows_affected", rows),
			Int64("duration_ms", elapsed.Milliseconds()),
			Duration("threshold", a.slowThreshold))
	default:
		log.Trace("sql query",
			String("sql", sql),
			Int64("rows_affected", rows),
			Int64("duration_ms", elapsed.Milliseconds()))
	}
}
