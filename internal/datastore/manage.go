package datastore

import (
	"slices"
	"time"

	"gorm.io/gorm"

	"github.com/nutrilog/nutrilog/internal/logger"
)

// maxColumnsForDetailedDisplay caps how many added column names are logged
const maxColumnsForDetailedDisplay = 20

// requiredColumn must exist in fitness_data for the schema to be usable.
// Tables written before per-user records lack it.
const requiredColumn = "user_id"

func performAutoMigration(db *gorm.DB, log logger.Logger, dbType, connectionInfo string) error {
	migrationStart := time.Now()
	migrationLogger := log.With(logger.String("db_type", dbType))

	migrationLogger.Debug("Starting database migration")

	if err := validateAndFixSchema(db, dbType, connectionInfo, migrationLogger); err != nil {
		return err
	}

	successCount, err := migrateTables(db, dbType, migrationLogger)
	if err != nil {
		return err
	}

	migrationLogger.Info("Database tables created successfully",
		logger.Duration("total_duration", time.Since(migrationStart)),
		logger.Int("tables_migrated", successCount))

	return nil
}

// validateAndFixSchema drops a fitness_data table that predates the user_id
// column so it is recreated from the current model. Existing rows are lost.
func validateAndFixSchema(db *gorm.DB, dbType, connectionInfo string, log logger.Logger) error {
	migrator := db.Migrator()

	if !migrator.HasTable(&FitnessData{}) {
		log.Debug("'fitness_data' table does not exist. AutoMigrate will create it")
		return nil
	}

	if migrator.HasColumn(&FitnessData{}, requiredColumn) {
		log.Debug("Schema for 'fitness_data' appears correct. Skipping drop")
		return nil
	}

	log.Warn("Existing table doesn't have user_id column. Recreating table",
		logger.String("table", "fitness_data"),
		logger.String("database", connectionInfo))

	if err := migrator.DropTable(&FitnessData{}); err != nil {
		enhancedErr := criticalError(err, "schema_validation", "legacy_table_drop_failed",
			"db_type", dbType,
			"table", "fitness_data")
		log.Error("Schema validation failed", logger.Error(enhancedErr))
		return enhancedErr
	}

	log.Info("Dropped existing fitness_data table")
	return nil
}

// migrateTables performs the actual table migrations
func migrateTables(db *gorm.DB, dbType string, log logger.Logger) (int, error) {
	tableMappings := []struct {
		model any
		name  string
	}{
		{&FitnessData{}, "fitness_data"},
	}

	successCount := 0
	for _, table := range tableMappings {
		if err := migrateTable(db, table.model, table.name, dbType, log); err != nil {
			return successCount, err
		}
		successCount++
	}

	return successCount, nil
}

// migrateTable migrates a single table with detailed logging
func migrateTable(db *gorm.DB, model any, tableName, dbType string, log logger.Logger) error {
	tableStart := time.Now()
	tableExists := db.Migrator().HasTable(model)

	log.Debug("Migrating table",
		logger.String("table", tableName),
		logger.Bool("exists", tableExists))

	columnsBefore := getTableColumns(db, model, tableExists)

	if err := db.AutoMigrate(model); err != nil {
		enhancedErr := criticalError(err, "auto_migrate_table", "schema_migration_failed",
			"db_type", dbType,
			"table", tableName)
		log.Error("Table migration failed",
			logger.String("table", tableName),
			logger.Error(enhancedErr))
		return enhancedErr
	}

	action, addedColumns := determineTableChanges(db, model, tableExists, columnsBefore)
	logTableMigration(log, tableName, action, addedColumns, time.Since(tableStart))

	return nil
}

// getTableColumns retrieves column names for a table
func getTableColumns(db *gorm.DB, model any, tableExists bool) []string {
	if !tableExists {
		return nil
	}
	var columns []string
	if cols, err := db.Migrator().ColumnTypes(model); err == nil {
		for _, col := range cols {
			columns = append(columns, col.Name())
		}
	}
	return columns
}

// determineTableChanges checks what changed after migration
func determineTableChanges(db *gorm.DB, model any, tableExists bool, columnsBefore []string) (action string, addedColumns []string) {
	cols, err := db.Migrator().ColumnTypes(model)
	if err != nil {
		return "updated", nil
	}

	for _, col := range cols {
		if !slices.Contains(columnsBefore, col.Name()) {
			addedColumns = append(addedColumns, col.Name())
		}
	}

	switch {
	case !tableExists:
		return "created", addedColumns
	case len(addedColumns) == 0:
		return "unchanged", nil
	default:
		return "updated", addedColumns
	}
}

// logTableMigration logs the result of a table migration
func logTableMigration(log logger.Logger, tableName, action string, addedColumns []string, duration time.Duration) {
	logFields := []logger.Field{
		logger.String("table", tableName),
		logger.String("action", action),
		logger.Duration("duration", duration),
	}

	if len(addedColumns) > 0 {
		logFields = append(logFields, logger.Int("columns_added", len(addedColumns)))
		if len(addedColumns) <= maxColumnsForDetailedDisplay {
			logFields = append(logFields, logger.Any("new_columns", addedColumns))
		}
	}

	log.Debug("Table migration completed", logFields...)
}
