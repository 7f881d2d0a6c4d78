package api

import (
	"crypto/rand"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/nutrilog/nutrilog/internal/errors"
	"github.com/nutrilog/nutrilog/internal/logger"
	"github.com/nutrilog/nutrilog/internal/telemetry"
)

// ErrorResponse represents a standard error response
type ErrorResponse struct {
	Error         string `json:"error"`
	Message       string `json:"message"`
	Code          int    `json:"code"`
	CorrelationID string `json:"correlation_id"` // Unique identifier for tracking this error
}

// NewErrorResponse creates a new API error response
func NewErrorResponse(err error, message string, code int) *ErrorResponse {
	errorStr := message
	if err != nil {
		errorStr = err.Error()
	}

	return &ErrorResponse{
		Error:         errorStr,
		Message:       message,
		Code:          code,
		CorrelationID: generateCorrelationID(),
	}
}

// generateCorrelationID creates a short random identifier for error tracking
func generateCorrelationID() string {
	const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	const length = 8

	b := make([]byte, length)
	if _, err := rand.Read(b); err != nil {
		return "ERR-RAND"
	}

	for i := range b {
		b[i] = charset[int(b[i])%len(charset)]
	}
	return string(b)
}

// HandleError logs err and writes it as an ErrorResponse.
func (s *Server) HandleError(c echo.Context, err error, message string, code int) error {
	return s.writeError(c, err, NewErrorResponse(err, message, code))
}

// handleUploadFailure reports a failed upload. The client sees message in both
// the error and message fields; err is only logged.
func (s *Server) handleUploadFailure(c echo.Context, err error, message string, code int) error {
	return s.writeError(c, err, NewErrorResponse(nil, message, code))
}

func (s *Server) writeError(c echo.Context, err error, resp *ErrorResponse) error {
	message, code := resp.Message, resp.Code

	fields := []logger.Field{
		logger.String("correlation_id", resp.CorrelationID),
		logger.String("message", message),
		logger.Int("code", code),
		logger.String("path", c.Request().URL.Path),
		logger.String("method", c.Request().Method),
		logger.String("ip", c.RealIP()),
	}
	if err != nil {
		fields = append(fields, logger.Error(err))
	}

	log := s.log.WithContext(c.Request().Context())
	if code >= http.StatusInternalServerError {
		log.Error("API error", fields...)
		telemetry.CaptureError(err, "api")
	} else {
		log.Warn("API error", fields...)
	}

	return c.JSON(code, resp)
}

// statusFor maps an error category to an HTTP status.
func statusFor(err error) int {
	switch {
	case errors.IsValidation(err):
		return http.StatusBadRequest
	case errors.IsNotFound(err):
		return http.StatusNotFound
	case errors.IsCategory(err, errors.CategoryCancellation):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// httpErrorHandler renders errors escaping handlers, including those raised
// by middleware, as ErrorResponse.
func (s *Server) httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code := http.StatusInternalServerError
	message := http.StatusText(code)

	var he *echo.HTTPError
	if errors.As(err, &he) {
		code = he.Code
		if msg, ok := he.Message.(string); ok {
			message = msg
		} else {
			message = http.StatusText(code)
		}
		if he.Internal != nil {
			err = he.Internal
		} else {
			err = nil
		}
	}

	if c.Request().Method == http.MethodHead {
		if herr := c.NoContent(code); herr != nil {
			s.log.Warn("Failed to write error response", logger.Error(herr))
		}
		return
	}

	if herr := s.HandleError(c, err, message, code); herr != nil {
		s.log.Warn("Failed to write error response", logger.Error(herr))
	}
}
