package logger

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	DefaultLevel string            `yaml:"default_level" json:"default_level" mapstructure:"default_level"` // default log level for all modules
	Timezone     string            `yaml:"timezone" json:"timezone" mapstructure:"timezone"`                // "Local", "UTC", or IANA name
	Console      *ConsoleOutput    `yaml:"console" json:"console" mapstructure:"console"`
	FileOutput   *FileOutput       `yaml:"file_output" json:"file_output" mapstructure:"file_output"`
	ModuleLevels map[string]string `yaml:"module_levels" json:"module_levels" mapstructure:"module_levels"` // e.g. datastore: trace
}

// ConsoleOutput configures human-readable stdout logging.
type ConsoleOutput struct {
	Enabled bool   `yaml:"enabled" json:"enabled" mapstructure:"enabled"`
	Level   string `yaml:"level" json:"level" mapstructure:"level"`
}

// FileOutput configures JSON file logging.
type FileOutput struct {
	Enabled bool   `yaml:"enabled" json:"enabled" mapstructure:"enabled"`
	Path    string `yaml:"path" json:"path" mapstructure:"path"`
	Level   string `yaml:"level" json:"level" mapstructure:"level"`
}

// Default values for logging configuration.
// These match the defaults in conf/defaults.go.
const (
	DefaultLogLevel       = "info"
	DefaultLogPath        = "logs/nutrilog.log"
	DefaultConsoleEnabled = true
	DefaultFileEnabled    = false
)

// applyConfigDefaults fills nil output sections so an older config file
// without them keeps logging to the console.
func applyConfigDefaults(cfg *LoggingConfig) {
	if cfg.DefaultLevel == "" {
		cfg.DefaultLevel = DefaultLogLevel
	}
	if cfg.Console == nil {
		cfg.Console = &ConsoleOutput{Enabled: DefaultConsoleEnabled, Level: cfg.DefaultLevel}
	}
	if cfg.Console.Level == "" {
		cfg.Console.Level = cfg.DefaultLevel
	}
	if cfg.FileOutput == nil {
		cfg.FileOutput = &FileOutput{Enabled: DefaultFileEnabled, Path: DefaultLogPath, Level: cfg.DefaultLevel}
	}
	if cfg.FileOutput.Path == "" {
		cfg.FileOutput.Path = DefaultLogPath
	}
	if cfg.FileOutput.Level == "" {
		cfg.FileOutput.Level = cfg.DefaultLevel
	}
}
