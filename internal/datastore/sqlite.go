package datastore

import (
	"path/filepath"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/nutrilog/nutrilog/internal/conf"
	"github.com/nutrilog/nutrilog/internal/errors"
	"github.com/nutrilog/nutrilog/internal/logger"
)

// SQLiteStore implements DataStore for SQLite
type SQLiteStore struct {
	DataStore
	Settings *conf.Settings
}

// Open opens the SQLite database file, creating its directory when needed,
// and migrates the schema.
func (store *SQLiteStore) Open() error {
	path := store.Settings.Output.SQLite.Path
	if path == "" {
		return errors.Newf("sqlite path is empty").
			Component("datastore").
			Category(errors.CategoryConfiguration).
			Context("setting", "output.sqlite.path").
			Build()
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return dbError(err, "resolve_sqlite_path", errors.PriorityHigh, "path", path)
	}
	if err := conf.EnsureDir(filepath.Dir(absPath)); err != nil {
		return err
	}

	db, err := gorm.Open(sqlite.Open(absPath), &gorm.Config{Logger: createGormLogger(store.log)})
	if err != nil {
		store.log.Error("Failed to open SQLite database",
			logger.String("path", absPath),
			logger.Error(err))
		return dbError(err, "open_sqlite", errors.PriorityCritical, "path", absPath)
	}

	store.DB = db
	return performAutoMigration(db, store.log, "SQLite", absPath)
}

// Close closes the SQLite database connection
func (store *SQLiteStore) Close() error {
	return store.closeDB("SQLite")
}
