package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/bytes"
)

// SecurityConfig holds configuration for security middleware.
type SecurityConfig struct {
	// CORS settings
	AllowedOrigins   []string
	AllowCredentials bool

	// Content Security Policy
	ContentSecurityPolicy string
}

// DefaultSecurityConfig returns a SecurityConfig with sensible defaults.
func DefaultSecurityConfig() SecurityConfig {
	return SecurityConfig{
		AllowedOrigins: []string{"*"},
	}
}

// NewCORS creates a CORS middleware with the given configuration.
func NewCORS(config SecurityConfig) echo.MiddlewareFunc {
	return middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: config.AllowedOrigins,
		AllowMethods: []string{
			http.MethodGet,
			http.MethodHead,
			http.MethodPost,
			http.MethodOptions,
		},
		AllowHeaders: []string{
			echo.HeaderOrigin,
			echo.HeaderContentType,
			echo.HeaderAccept,
			"X-Requested-With",
		},
		AllowCredentials: config.AllowCredentials,
	})
}

// NewSecureHeaders creates a middleware that sets security-related HTTP headers.
func NewSecureHeaders(config SecurityConfig) echo.MiddlewareFunc {
	return middleware.SecureWithConfig(middleware.SecureConfig{
		XSSProtection:         "1; mode=block",
		ContentTypeNosniff:    "nosniff",
		XFrameOptions:         "SAMEORIGIN",
		ContentSecurityPolicy: config.ContentSecurityPolicy,
	})
}

// NewBodyLimit creates a middleware that limits the request body to limit bytes.
func NewBodyLimit(limit int64) echo.MiddlewareFunc {
	return middleware.BodyLimit(bytes.Format(limit))
}
