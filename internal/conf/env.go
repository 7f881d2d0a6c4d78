package conf

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

// envBinding holds metadata for environment variable bindings
type envBinding struct {
	ConfigKey string             // Viper config key
	EnvVar    string             // Environment variable name
	Validate  func(string) error // Optional validation function
}

// getEnvBindings returns all environment variable bindings with validation.
// DB_* names are kept for deployments that already export them.
func getEnvBindings() []envBinding {
	return []envBinding{
		{"debug", "NUTRILOG_DEBUG", validateEnvBool},

		{"webserver.port", "NUTRILOG_PORT", validateEnvPort},
		{"webserver.ratelimit", "NUTRILOG_RATE_LIMIT", validateEnvNonNegativeFloat},

		{"upload.dir", "NUTRILOG_UPLOAD_DIR", nil},
		{"upload.maxsize", "NUTRILOG_UPLOAD_MAX_SIZE", validateEnvPositiveInt},

		{"output.sqlite.enabled", "NUTRILOG_SQLITE_ENABLED", validateEnvBool},
		{"output.sqlite.path", "NUTRILOG_SQLITE_PATH", nil},
		{"output.mysql.enabled", "NUTRILOG_MYSQL_ENABLED", validateEnvBool},
		{"output.mysql.username", "DB_USER", nil},
		{"output.mysql.password", "DB_PASSWORD", nil},
		{"output.mysql.host", "DB_HOST", nil},
		{"output.mysql.port", "DB_PORT", validateEnvPort},
		{"output.mysql.database", "DB_NAME", nil},

		{"dashboard.url", "NUTRILOG_DASHBOARD_URL", validateEnvURL},

		{"ingest.headerrow", "NUTRILOG_HEADER_ROW", validateEnvBool},
		{"ingest.propagatemissing", "NUTRILOG_PROPAGATE_MISSING", validateEnvBool},

		{"logging.default_level", "NUTRILOG_LOG_LEVEL", validateEnvLogLevel},

		{"sentry.enabled", "NUTRILOG_SENTRY_ENABLED", validateEnvBool},
		{"sentry.dsn", "NUTRILOG_SENTRY_DSN", validateEnvURL},
	}
}

// bindEnvVars binds every environment variable and collects validation
// problems into one error.
func bindEnvVars() error {
	var warnings []string

	for _, binding := range getEnvBindings() {
		if err := viper.BindEnv(binding.ConfigKey, binding.EnvVar); err != nil {
			warnings = append(warnings, fmt.Sprintf("failed to bind %s: %v", binding.EnvVar, err))
			continue
		}

		if binding.Validate == nil {
			continue
		}
		if envValue := os.Getenv(binding.EnvVar); envValue != "" {
			if err := binding.Validate(envValue); err != nil {
				warnings = append(warnings, fmt.Sprintf("invalid %s value '%s': %v", binding.EnvVar, envValue, err))
			}
		}
	}

	if len(warnings) > 0 {
		return fmt.Errorf("environment variable issues:\n  - %s", strings.Join(warnings, "\n  - "))
	}
	return nil
}

func validateEnvBool(value string) error {
	if _, err := strconv.ParseBool(value); err != nil {
		return fmt.Errorf("must be true/false, 1/0, t/f")
	}
	return nil
}

func validateEnvPort(value string) error {
	port, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("port must be a number")
	}
	if port < 1 || port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", port)
	}
	return nil
}

func validateEnvPositiveInt(value string) error {
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return fmt.Errorf("must be an integer")
	}
	if n <= 0 {
		return fmt.Errorf("must be positive, got %d", n)
	}
	return nil
}

func validateEnvNonNegativeFloat(value string) error {
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fmt.Errorf("must be a number")
	}
	if f < 0 {
		return fmt.Errorf("must not be negative, got %g", f)
	}
	return nil
}

func validateEnvURL(value string) error {
	u, err := url.Parse(value)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("scheme must be http or https")
	}
	return nil
}

func validateEnvLogLevel(value string) error {
	switch strings.ToLower(value) {
	case "trace", "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("must be one of trace, debug, info, warn, error")
	}
}
