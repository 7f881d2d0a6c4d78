package datastore

import (
	"time"

	gormlogger "gorm.io/gorm/logger"

	"github.com/nutrilog/nutrilog/internal/logger"
)

// slowQueryThreshold marks queries logged as slow
const slowQueryThreshold = 200 * time.Millisecond

// getLogger returns the datastore module logger from the central logger
func getLogger() logger.Logger {
	return logger.Global().Module("datastore")
}

// createGormLogger routes gorm's SQL logging through the module logger
func createGormLogger(log logger.Logger) gormlogger.Interface {
	return logger.NewGormLoggerAdapter(log.Module("sql"), slowQueryThreshold)
}
