// Package api provides the HTTP upload server for nutrilog.
package api

import (
	"fmt"
	"strings"
	"time"

	"github.com/nutrilog/nutrilog/internal/conf"
	"github.com/nutrilog/nutrilog/internal/logger"
)

// GetLogger returns the api package logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("api")
}

// Default constants for the HTTP server.
const (
	DefaultReadTimeout     = 60 * time.Second
	DefaultWriteTimeout    = 60 * time.Second
	DefaultIdleTimeout     = 120 * time.Second
	DefaultShutdownTimeout = 10 * time.Second
)

// Config holds the HTTP server configuration.
// It consolidates settings from conf.Settings into a single structure.
type Config struct {
	// Server binding
	Host string // Host to bind to (empty for all interfaces)
	Port string // Port to listen on

	AllowedOrigins []string // CORS allowed origins

	// Timeouts
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	// Limits
	BodyLimit int64   // Maximum request body size in bytes
	RateLimit float64 // Upload requests per second per client, 0 disables limiting
	RateBurst int

	// Uploads
	UploadDir         string
	AllowedExtensions []string // lowercase, without the dot

	DashboardURL string

	Debug bool
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Port:              "5000",
		AllowedOrigins:    []string{"*"},
		ReadTimeout:       DefaultReadTimeout,
		WriteTimeout:      DefaultWriteTimeout,
		IdleTimeout:       DefaultIdleTimeout,
		ShutdownTimeout:   DefaultShutdownTimeout,
		BodyLimit:         conf.DefaultMaxUploadSize,
		UploadDir:         "uploads",
		AllowedExtensions: []string{"csv"},
	}
}

// ConfigFromSettings creates a Config from the application settings.
func ConfigFromSettings(settings *conf.Settings) *Config {
	cfg := DefaultConfig()

	if settings.WebServer.Port != "" {
		cfg.Port = settings.WebServer.Port
	}
	cfg.RateLimit = settings.WebServer.RateLimit
	cfg.RateBurst = settings.WebServer.RateBurst
	cfg.Debug = settings.WebServer.Debug || settings.Debug

	if settings.Upload.MaxSize > 0 {
		cfg.BodyLimit = settings.Upload.MaxSize
	}
	if settings.Upload.Dir != "" {
		cfg.UploadDir = settings.Upload.Dir
	}
	if len(settings.Upload.AllowedExtensions) > 0 {
		cfg.AllowedExtensions = settings.Upload.AllowedExtensions
	}
	cfg.DashboardURL = settings.Dashboard.URL

	return cfg
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("port is required")
	}
	if c.BodyLimit <= 0 {
		return fmt.Errorf("body limit must be positive")
	}
	if c.UploadDir == "" {
		return fmt.Errorf("upload directory is required")
	}
	if len(c.AllowedExtensions) == 0 {
		return fmt.Errorf("at least one upload extension must be allowed")
	}
	if c.ReadTimeout <= 0 || c.WriteTimeout <= 0 {
		return fmt.Errorf("timeouts must be positive")
	}
	return nil
}

// Address returns the full address string for the server to listen on.
func (c *Config) Address() string {
	return c.Host + ":" + c.Port
}

// allowedFile reports whether filename carries an accepted extension.
func (c *Config) allowedFile(filename string) bool {
	dot := strings.LastIndexByte(filename, '.')
	if dot < 0 {
		return false
	}
	ext := strings.ToLower(filename[dot+1:])
	for _, allowed := range c.AllowedExtensions {
		if ext == allowed {
			return true
		}
	}
	return false
}
