// Package conf loads nutrilog settings from config.yaml, environment
// variables and an optional .env file.
package conf

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/nutrilog/nutrilog/internal/errors"
	"github.com/nutrilog/nutrilog/internal/logger"
)

//go:embed config.yaml
var configFiles embed.FS

// Settings contains all configuration options for nutrilog.
type Settings struct {
	Debug bool `yaml:"debug"` // true to enable debug mode

	Main struct {
		Name string `yaml:"name"` // instance name, shown in health output
	} `yaml:"main"`

	Logging logger.LoggingConfig `yaml:"logging"`

	WebServer WebServerSettings `yaml:"webserver"`
	Upload    UploadSettings    `yaml:"upload"`
	Output    OutputSettings    `yaml:"output"`
	Dashboard DashboardSettings `yaml:"dashboard"`
	Ingest    IngestSettings    `yaml:"ingest"`
	Sentry    SentrySettings    `yaml:"sentry"`
}

// WebServerSettings contains settings for the HTTP upload server
type WebServerSettings struct {
	Port      string  `yaml:"port"`      // port to listen on
	Debug     bool    `yaml:"debug"`     // true to log every request
	RateLimit float64 `yaml:"ratelimit"` // upload requests per second per client, 0 disables limiting
	RateBurst int     `yaml:"rateburst"` // burst allowance for the rate limiter
}

// UploadSettings controls how uploaded files are accepted and staged
type UploadSettings struct {
	Dir               string   `yaml:"dir"`               // staging directory for uploaded files
	MaxSize           int64    `yaml:"maxsize"`           // maximum request body size in bytes
	AllowedExtensions []string `yaml:"allowedextensions"` // accepted file extensions without the dot
}

// OutputSettings selects the datastore backend
type OutputSettings struct {
	SQLite SQLiteSettings `yaml:"sqlite"`
	MySQL  MySQLSettings  `yaml:"mysql"`
}

// SQLiteSettings contains settings for the SQLite datastore
type SQLiteSettings struct {
	Enabled bool   `yaml:"enabled"` // true to store records in SQLite
	Path    string `yaml:"path"`    // path to the database file
}

// MySQLSettings contains settings for the MySQL datastore
type MySQLSettings struct {
	Enabled  bool   `yaml:"enabled"`  // true to store records in MySQL
	Username string `yaml:"username"` // database user
	Password string `yaml:"password"` // database password
	Host     string `yaml:"host"`     // database host
	Port     string `yaml:"port"`     // database port
	Database string `yaml:"database"` // database name
}

// DashboardSettings points at the external visualisation dashboard
type DashboardSettings struct {
	URL string `yaml:"url"` // target of the /grafana redirect
}

// IngestSettings tunes CSV interpretation
type IngestSettings struct {
	HeaderRow        bool `yaml:"headerrow"`        // skip the first CSV row
	PropagateMissing bool `yaml:"propagatemissing"` // keep absent inputs absent instead of zero-filling
}

// SentrySettings controls opt-in error reporting
type SentrySettings struct {
	Enabled     bool   `yaml:"enabled"`     // true to report server errors to Sentry
	DSN         string `yaml:"dsn"`         // project DSN, required when enabled
	Environment string `yaml:"environment"` // environment tag on reported events
}

var (
	settingsInstance *Settings
	settingsMutex    sync.RWMutex
	configFileFlag   string
)

// SetConfigFile forces Load to read path instead of searching the default locations.
func SetConfigFile(path string) {
	settingsMutex.Lock()
	defer settingsMutex.Unlock()
	configFileFlag = path
}

// Load reads the configuration file and environment variables into Settings.
func Load() (*Settings, error) {
	settingsMutex.Lock()
	defer settingsMutex.Unlock()

	if err := loadDotEnv(".env"); err != nil {
		return nil, err
	}

	if err := initViper(); err != nil {
		return nil, fmt.Errorf("error initializing viper: %w", err)
	}

	if err := bindEnvVars(); err != nil {
		return nil, errors.New(err).
			Category(errors.CategoryConfiguration).
			Context("operation", "bind-env").
			Build()
	}

	settings := &Settings{}
	if err := viper.Unmarshal(settings); err != nil {
		return nil, fmt.Errorf("error unmarshaling config into struct: %w", err)
	}

	if err := ValidateSettings(settings); err != nil {
		return nil, fmt.Errorf("error validating settings: %w", err)
	}

	settingsInstance = settings
	return settingsInstance, nil
}

// loadDotEnv exports variables from a .env file without overriding the
// real environment. A missing file is not an error.
func loadDotEnv(path string) error {
	err := godotenv.Load(path)
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return errors.New(err).
		Category(errors.CategoryConfiguration).
		Context("operation", "load-dotenv").
		Build()
}

// initViper registers defaults and reads the configuration file.
func initViper() error {
	viper.SetConfigType("yaml")
	setDefaultConfig()

	if configFileFlag != "" {
		viper.SetConfigFile(configFileFlag)
		if err := viper.ReadInConfig(); err != nil {
			return fmt.Errorf("error reading config file %s: %w", configFileFlag, err)
		}
		return nil
	}

	viper.SetConfigName("config")
	configPaths, err := GetDefaultConfigPaths()
	if err != nil {
		return fmt.Errorf("error getting default config paths: %w", err)
	}
	for _, path := range configPaths {
		viper.AddConfigPath(path)
	}

	err = viper.ReadInConfig()
	if err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if errors.As(err, &configFileNotFoundError) {
			return createDefaultConfig(configPaths[0])
		}
		return fmt.Errorf("fatal error reading config file: %w", err)
	}
	return nil
}

// createDefaultConfig writes the embedded config.yaml to dir and reads it.
func createDefaultConfig(dir string) error {
	configPath := filepath.Join(dir, "config.yaml")

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("error creating directories for config file: %w", err)
	}

	data, err := fs.ReadFile(configFiles, "config.yaml")
	if err != nil {
		return fmt.Errorf("error reading embedded config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		return fmt.Errorf("error writing default config file: %w", err)
	}

	logger.Global().Module("conf").Info("created default config file", logger.String("path", configPath))
	viper.SetConfigFile(configPath)
	return viper.ReadInConfig()
}

// GetSettings returns the settings from the last successful Load.
func GetSettings() *Settings {
	settingsMutex.RLock()
	defer settingsMutex.RUnlock()
	return settingsInstance
}

// Dump renders settings as YAML with the database password masked.
func Dump(settings *Settings) ([]byte, error) {
	masked := *settings
	if masked.Output.MySQL.Password != "" {
		masked.Output.MySQL.Password = "********"
	}
	if masked.Sentry.DSN != "" {
		masked.Sentry.DSN = "********"
	}
	data, err := yaml.Marshal(&masked)
	if err != nil {
		return nil, fmt.Errorf("error marshaling settings to YAML: %w", err)
	}
	return data, nil
}
