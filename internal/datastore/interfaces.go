// Package datastore persists nutrition records in a relational database.
package datastore

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/nutrilog/nutrilog/internal/conf"
	"github.com/nutrilog/nutrilog/internal/errors"
	"github.com/nutrilog/nutrilog/internal/logger"
	"github.com/nutrilog/nutrilog/internal/parser"
)

// Interface abstracts the underlying database implementation.
type Interface interface {
	Open() error
	Close() error
	// UpsertRecords writes records keyed by (user_id, date) in one transaction
	// and returns the number of rows inserted or updated.
	UpsertRecords(ctx context.Context, records []parser.Record) (int, error)
	GetRecord(ctx context.Context, userID int64, date time.Time) (*parser.Record, error)
	CountRecords(ctx context.Context) (int64, error)
	ListUserRecords(ctx context.Context, userID int64) ([]parser.Record, error)
}

// DataStore implements Interface on top of a gorm connection. Backends embed
// it and provide Open.
type DataStore struct {
	DB  *gorm.DB
	log logger.Logger
}

// New creates a datastore for the backend enabled in settings.
func New(settings *conf.Settings) Interface {
	base := DataStore{log: getLogger()}

	switch {
	case settings.Output.MySQL.Enabled:
		return &MySQLStore{DataStore: base, Settings: settings}
	default:
		return &SQLiteStore{DataStore: base, Settings: settings}
	}
}

// UpsertRecords implements the natural-key upsert. Any failure rolls back the
// whole batch.
func (ds *DataStore) UpsertRecords(ctx context.Context, records []parser.Record) (int, error) {
	if ds.DB == nil {
		return 0, stateError("upsert_records", "database connection is not initialized")
	}

	start := time.Now()
	var inserted, updated int

	err := ds.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i := range records {
			rec := &records[i]
			created, err := upsertRecord(tx, rec)
			if err != nil {
				return dbError(err, "upsert_record", errors.PriorityHigh,
					"user_id", rec.UserID,
					"date", rec.Date.Format(time.DateOnly),
					"row", i)
			}
			if created {
				inserted++
			} else {
				updated++
			}
		}
		return nil
	})
	if err != nil {
		ds.log.Error("Upsert transaction rolled back",
			logger.Int("records", len(records)),
			logger.Error(err))
		if errors.IsCategory(err, errors.CategoryDatabase) {
			return 0, err
		}
		return 0, errors.New(err).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Priority(errors.PriorityHigh).
			Timing("upsert_transaction", time.Since(start)).
			Context("records", len(records)).
			Build()
	}

	ds.log.Info("Successfully inserted/updated records",
		logger.Int("records", inserted+updated),
		logger.Int("inserted", inserted),
		logger.Int("updated", updated),
		logger.Duration("duration", time.Since(start)))

	return inserted + updated, nil
}

// upsertRecord reports whether a new row was created.
func upsertRecord(tx *gorm.DB, rec *parser.Record) (bool, error) {
	date := dateOnly(rec.Date)

	var existing FitnessData
	err := tx.Where("user_id = ? AND date = ?", rec.UserID, date).Take(&existing).Error
	switch {
	case err == nil:
		existing.applyRecord(rec)
		return false, tx.Save(&existing).Error
	case errors.Is(err, gorm.ErrRecordNotFound):
		row := newFitnessData(rec)
		row.Date = date
		return true, tx.Create(row).Error
	default:
		return false, err
	}
}

// GetRecord returns the persisted record for (userID, date).
func (ds *DataStore) GetRecord(ctx context.Context, userID int64, date time.Time) (*parser.Record, error) {
	if ds.DB == nil {
		return nil, stateError("get_record", "database connection is not initialized")
	}

	var row FitnessData
	err := ds.DB.WithContext(ctx).
		Where("user_id = ? AND date = ?", userID, dateOnly(date)).
		Take(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFoundError("fitness_data", userID, date)
		}
		return nil, dbError(err, "get_record", errors.PriorityMedium, "user_id", userID)
	}

	rec := row.toRecord()
	return &rec, nil
}

// CountRecords returns the number of persisted rows.
func (ds *DataStore) CountRecords(ctx context.Context) (int64, error) {
	if ds.DB == nil {
		return 0, stateError("count_records", "database connection is not initialized")
	}

	var count int64
	if err := ds.DB.WithContext(ctx).Model(&FitnessData{}).Count(&count).Error; err != nil {
		return 0, dbError(err, "count_records", errors.PriorityLow)
	}
	return count, nil
}

// ListUserRecords returns a user's records ordered by date.
func (ds *DataStore) ListUserRecords(ctx context.Context, userID int64) ([]parser.Record, error) {
	if ds.DB == nil {
		return nil, stateError("list_user_records", "database connection is not initialized")
	}

	var rows []FitnessData
	err := ds.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("date ASC").
		Find(&rows).Error
	if err != nil {
		return nil, dbError(err, "list_user_records", errors.PriorityMedium, "user_id", userID)
	}

	records := make([]parser.Record, len(rows))
	for i := range rows {
		records[i] = rows[i].toRecord()
	}
	return records, nil
}

// closeDB releases the underlying connection pool.
func (ds *DataStore) closeDB(dbType string) error {
	if ds.DB == nil {
		return stateError("close", "database connection is not initialized")
	}

	sqlDB, err := ds.DB.DB()
	if err != nil {
		ds.log.Error("Failed to retrieve generic DB object", logger.Error(err))
		return dbError(err, "close", errors.PriorityLow, "db_type", dbType)
	}

	if err := sqlDB.Close(); err != nil {
		ds.log.Error("Failed to close database",
			logger.String("db_type", dbType),
			logger.Error(err))
		return dbError(err, "close", errors.PriorityLow, "db_type", dbType)
	}

	ds.log.Debug("Database connection closed", logger.String("db_type", dbType))
	return nil
}
