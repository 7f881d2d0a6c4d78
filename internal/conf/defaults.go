// conf/defaults.go default values for settings
package conf

import (
	"github.com/spf13/viper"

	"github.com/nutrilog/nutrilog/internal/logger"
)

// DefaultMaxUploadSize caps request bodies at 16 MiB.
const DefaultMaxUploadSize = 16 * 1024 * 1024

// Sets default values for the configuration.
func setDefaultConfig() {
	viper.SetDefault("debug", false)
	viper.SetDefault("main.name", "nutrilog")

	viper.SetDefault("logging.default_level", logger.DefaultLogLevel)
	viper.SetDefault("logging.timezone", "Local")
	viper.SetDefault("logging.console.enabled", logger.DefaultConsoleEnabled)
	viper.SetDefault("logging.console.level", logger.DefaultLogLevel)
	viper.SetDefault("logging.file_output.enabled", logger.DefaultFileEnabled)
	viper.SetDefault("logging.file_output.path", logger.DefaultLogPath)
	viper.SetDefault("logging.file_output.level", logger.DefaultLogLevel)

	viper.SetDefault("webserver.port", "5000")
	viper.SetDefault("webserver.debug", false)
	viper.SetDefault("webserver.ratelimit", 5.0)
	viper.SetDefault("webserver.rateburst", 10)

	viper.SetDefault("upload.dir", "uploads")
	viper.SetDefault("upload.maxsize", DefaultMaxUploadSize)
	viper.SetDefault("upload.allowedextensions", []string{"csv"})

	viper.SetDefault("output.sqlite.enabled", true)
	viper.SetDefault("output.sqlite.path", "nutrilog.db")
	viper.SetDefault("output.mysql.enabled", false)
	viper.SetDefault("output.mysql.username", "nutrilog")
	viper.SetDefault("output.mysql.password", "")
	viper.SetDefault("output.mysql.host", "localhost")
	viper.SetDefault("output.mysql.port", "3306")
	viper.SetDefault("output.mysql.database", "nutrilog")

	viper.SetDefault("dashboard.url", "http://localhost:3001")

	viper.SetDefault("ingest.headerrow", false)
	viper.SetDefault("ingest.propagatemissing", false)

	viper.SetDefault("sentry.enabled", false)
	viper.SetDefault("sentry.dsn", "")
	viper.SetDefault("sentry.environment", "production")
}
