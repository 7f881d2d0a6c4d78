// conf/validate.go

package conf

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// ValidationError represents a collection of validation errors
type ValidationError struct {
	Errors []string
}

// Error returns a string representation of the validation errors
func (ve ValidationError) Error() string {
	return fmt.Sprintf("Validation errors: %v", ve.Errors)
}

// ValidateSettings validates the entire Settings struct
func ValidateSettings(settings *Settings) error {
	ve := ValidationError{}

	if err := validateWebServerSettings(&settings.WebServer); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}

	if err := validateUploadSettings(&settings.Upload); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}

	if err := validateOutputSettings(&settings.Output); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}

	if err := validateDashboardSettings(&settings.Dashboard); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}

	if settings.Sentry.Enabled && settings.Sentry.DSN == "" {
		ve.Errors = append(ve.Errors, "sentry: dsn must be set when sentry is enabled")
	}

	if len(ve.Errors) > 0 {
		return ve
	}
	return nil
}

func validateWebServerSettings(settings *WebServerSettings) error {
	if err := validatePort(settings.Port); err != nil {
		return fmt.Errorf("webserver: %w", err)
	}
	if settings.RateLimit < 0 {
		return fmt.Errorf("webserver: ratelimit must not be negative")
	}
	if settings.RateLimit > 0 && settings.RateBurst < 1 {
		return fmt.Errorf("webserver: rateburst must be at least 1 when rate limiting is enabled")
	}
	return nil
}

// validateUploadSettings normalises extensions to lower case without a dot.
func validateUploadSettings(settings *UploadSettings) error {
	if settings.Dir == "" {
		return fmt.Errorf("upload: dir must be set")
	}
	if settings.MaxSize <= 0 {
		return fmt.Errorf("upload: maxsize must be positive")
	}
	if len(settings.AllowedExtensions) == 0 {
		return fmt.Errorf("upload: at least one allowed extension is required")
	}
	for i, ext := range settings.AllowedExtensions {
		settings.AllowedExtensions[i] = strings.ToLower(strings.TrimPrefix(ext, "."))
	}
	return nil
}

func validateOutputSettings(settings *OutputSettings) error {
	switch {
	case settings.SQLite.Enabled && settings.MySQL.Enabled:
		return fmt.Errorf("output: only one of sqlite and mysql can be enabled")
	case !settings.SQLite.Enabled && !settings.MySQL.Enabled:
		return fmt.Errorf("output: one of sqlite or mysql must be enabled")
	case settings.SQLite.Enabled && settings.SQLite.Path == "":
		return fmt.Errorf("output: sqlite path must be set")
	case settings.MySQL.Enabled:
		if settings.MySQL.Host == "" || settings.MySQL.Database == "" || settings.MySQL.Username == "" {
			return fmt.Errorf("output: mysql host, database and username must be set")
		}
		if err := validatePort(settings.MySQL.Port); err != nil {
			return fmt.Errorf("output: mysql %w", err)
		}
	}
	return nil
}

func validateDashboardSettings(settings *DashboardSettings) error {
	if settings.URL == "" {
		return nil
	}
	u, err := url.Parse(settings.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("dashboard: url must be an absolute http(s) URL, got %q", settings.URL)
	}
	return nil
}

func validatePort(port string) error {
	n, err := strconv.Atoi(port)
	if err != nil || n < 1 || n > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %q", port)
	}
	return nil
}
