package datastore

import (
	"net"
	"time"

	drivermysql "github.com/go-sql-driver/mysql"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/nutrilog/nutrilog/internal/conf"
	"github.com/nutrilog/nutrilog/internal/errors"
	"github.com/nutrilog/nutrilog/internal/logger"
)

// MySQLStore implements DataStore for MySQL
type MySQLStore struct {
	DataStore
	Settings *conf.Settings
}

// mysqlConfig builds the driver configuration from settings. Dates are read
// and written in UTC.
func mysqlConfig(settings *conf.MySQLSettings) *drivermysql.Config {
	cfg := drivermysql.NewConfig()
	cfg.User = settings.Username
	cfg.Passwd = settings.Password
	cfg.Net = "tcp"
	cfg.Addr = net.JoinHostPort(settings.Host, settings.Port)
	cfg.DBName = settings.Database
	cfg.ParseTime = true
	cfg.Loc = time.UTC
	cfg.Params = map[string]string{"charset": "utf8mb4"}
	return cfg
}

// Open connects to MySQL and migrates the schema.
func (store *MySQLStore) Open() error {
	settings := &store.Settings.Output.MySQL
	cfg := mysqlConfig(settings)

	db, err := gorm.Open(mysql.Open(cfg.FormatDSN()), &gorm.Config{Logger: createGormLogger(store.log)})
	if err != nil {
		store.log.Error("Failed to open MySQL database",
			logger.String("host", settings.Host),
			logger.String("port", settings.Port),
			logger.String("database", settings.Database),
			logger.Error(err))
		return dbError(err, "open_mysql", errors.PriorityCritical,
			"host", settings.Host,
			"database", settings.Database)
	}

	store.DB = db
	return performAutoMigration(db, store.log, "MySQL", cfg.Addr+"/"+cfg.DBName)
}

// Close closes the MySQL database connection
func (store *MySQLStore) Close() error {
	return store.closeDB("MySQL")
}
