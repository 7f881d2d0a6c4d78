// Package errors provides centralized error handling with categories and context
package errors

import (
	stderrors "errors"
	"fmt"
	"maps"
	"runtime"
	"strings"
	"sync"
	"time"
)

// ErrorCategory represents the type of error for better categorization
type ErrorCategory string

// CategorizedError is an interface for errors that can specify their own category
type CategorizedError interface {
	error
	ErrorCategory() ErrorCategory
}

const (
	CategoryValidation    ErrorCategory = "validation"
	CategoryFileIO        ErrorCategory = "file-io"
	CategoryFileParsing   ErrorCategory = "file-parsing"
	CategoryDatabase      ErrorCategory = "database"
	CategoryHTTP          ErrorCategory = "http-request"
	CategoryConfiguration ErrorCategory = "configuration"
	CategorySystem        ErrorCategory = "system-resource"
	CategoryGeneric       ErrorCategory = "generic"
	CategoryNotFound      ErrorCategory = "not-found"
	CategoryConflict      ErrorCategory = "conflict"
	CategoryProcessing    ErrorCategory = "processing"
	CategoryState         ErrorCategory = "state"
	CategoryLimit         ErrorCategory = "limit"

	CategoryTimeout      ErrorCategory = "timeout"      // Operation timeouts
	CategoryCancellation ErrorCategory = "cancellation" // Cancelled operations
)

// Priority constants for error prioritization
const (
	PriorityLow      = "low"
	PriorityMedium   = "medium"
	PriorityHigh     = "high"
	PriorityCritical = "critical"
)

// ComponentUnknown is used when the component cannot be determined.
const ComponentUnknown = "unknown"

// packagePath is skipped while walking the stack for component detection
const packagePath = "github.com/nutrilog/nutrilog/internal/errors"

// EnhancedError wraps an error with additional context and metadata
type EnhancedError struct {
	Err       error          // Original error
	component string         // Component where error occurred (lazily detected)
	Category  ErrorCategory  // Error category for better grouping
	Priority  string         // Explicit priority override (optional)
	Context   map[string]any // Additional context data
	Timestamp time.Time      // When the error occurred
	mu        sync.RWMutex   // Mutex to protect concurrent access
	detected  bool           // Whether component has been auto-detected
}

// Error implements the error interface
func (ee *EnhancedError) Error() string {
	return ee.Err.Error()
}

// Unwrap implements the error unwrapping interface
func (ee *EnhancedError) Unwrap() error {
	return ee.Err
}

// Is implements error type checking
func (ee *EnhancedError) Is(target error) bool {
	if ee2, ok := target.(*EnhancedError); ok {
		return ee.Category == ee2.Category
	}
	return Is(ee.Err, target)
}

// ErrorCategory implements CategorizedError
func (ee *EnhancedError) ErrorCategory() ErrorCategory {
	return ee.Category
}

// GetComponent returns the component name, detecting it lazily if needed
func (ee *EnhancedError) GetComponent() string {
	ee.mu.RLock()
	if ee.detected || ee.component != "" {
		component := ee.component
		ee.mu.RUnlock()
		return component
	}
	ee.mu.RUnlock()

	ee.mu.Lock()
	defer ee.mu.Unlock()

	if ee.component == "" && !ee.detected {
		ee.component = detectComponent()
		ee.detected = true
		if ee.component == "" {
			ee.component = ComponentUnknown
		}
	}

	return ee.component
}

// GetCategory returns the error category
func (ee *EnhancedError) GetCategory() string {
	return string(ee.Category)
}

// GetPriority returns the explicit priority if set, empty string otherwise
func (ee *EnhancedError) GetPriority() string {
	return ee.Priority
}

// GetContext returns a copy of the error context
func (ee *EnhancedError) GetContext() map[string]any {
	ee.mu.RLock()
	defer ee.mu.RUnlock()

	if ee.Context == nil {
		return nil
	}

	contextCopy := make(map[string]any, len(ee.Context))
	maps.Copy(contextCopy, ee.Context)
	return contextCopy
}

// GetMessage returns the error message
func (ee *EnhancedError) GetMessage() string {
	if ee.Err != nil {
		return ee.Err.Error()
	}
	return ""
}

// ErrorBuilder provides a fluent interface for creating enhanced errors
type ErrorBuilder struct {
	err       error
	component string
	category  ErrorCategory
	priority  string
	context   map[string]any
}

// New creates a new error with enhanced context
func New(err error) *ErrorBuilder {
	return &ErrorBuilder{err: err}
}

// Newf creates a new formatted error with enhanced context
func Newf(format string, args ...any) *ErrorBuilder {
	return New(fmt.Errorf(format, args...))
}

// Component sets the component name (auto-detected if not set)
func (eb *ErrorBuilder) Component(component string) *ErrorBuilder {
	eb.component = component
	return eb
}

// Category sets the error category for better grouping
func (eb *ErrorBuilder) Category(category ErrorCategory) *ErrorBuilder {
	eb.category = category
	return eb
}

// Priority sets the explicit priority override for the error.
// Unknown values fall back to medium.
func (eb *ErrorBuilder) Priority(priority string) *ErrorBuilder {
	switch priority {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		eb.priority = priority
	default:
		if priority != "" {
			eb.priority = PriorityMedium
		}
	}
	return eb
}

// Context adds context data to the error
func (eb *ErrorBuilder) Context(key string, value any) *ErrorBuilder {
	if eb.context == nil {
		eb.context = make(map[string]any)
	}
	eb.context[key] = value
	return eb
}

// FileContext adds file-specific context (path is anonymized)
func (eb *ErrorBuilder) FileContext(filePath string, fileSize int64) *ErrorBuilder {
	if filePath != "" {
		eb.Context("file_extension", getFileExtension(filePath))
	}
	if fileSize > 0 {
		eb.Context("file_size_category", categorizeFileSize(fileSize))
	}
	return eb
}

// Timing adds performance timing context
func (eb *ErrorBuilder) Timing(operation string, duration time.Duration) *ErrorBuilder {
	eb.Context("operation", operation)
	eb.Context("duration_ms", duration.Milliseconds())
	return eb
}

// Build creates the EnhancedError
func (eb *ErrorBuilder) Build() *EnhancedError {
	if eb.category == "" {
		eb.category = detectCategory(eb.err, eb.component)
	}

	ee := &EnhancedError{
		Err:       eb.err,
		component: eb.component,
		Category:  eb.category,
		Priority:  eb.priority,
		Context:   eb.context,
		Timestamp: time.Now(),
		detected:  eb.component != "",
	}

	return ee
}

// Component registry for dynamic component detection
var (
	componentRegistry = make(map[string]string)
	registryMutex     sync.RWMutex
)

// RegisterComponent registers a package path pattern with a component name
func RegisterComponent(packagePattern, componentName string) {
	registryMutex.Lock()
	defer registryMutex.Unlock()
	componentRegistry[packagePattern] = componentName
}

func init() {
	RegisterComponent("internal/parser", "parser")
	RegisterComponent("internal/transform", "transform")
	RegisterComponent("internal/datastore", "datastore")
	RegisterComponent("internal/ingest", "ingest")
	RegisterComponent("internal/api", "api")
	RegisterComponent("internal/conf", "configuration")
}

// detectComponent walks the call stack to find the first recognizable component
func detectComponent() string {
	pcs := make([]uintptr, 32)
	n := runtime.Callers(2, pcs)

	for i := range n {
		fn := runtime.FuncForPC(pcs[i])
		if fn == nil {
			continue
		}

		funcName := fn.Name()
		if strings.Contains(funcName, packagePath) {
			continue
		}

		if component := lookupComponent(funcName); component != ComponentUnknown {
			return component
		}
	}

	return ComponentUnknown
}

// lookupComponent searches the registry for a matching component
func lookupComponent(funcName string) string {
	registryMutex.RLock()
	defer registryMutex.RUnlock()

	for pattern, component := range componentRegistry {
		if strings.Contains(funcName, pattern) {
			return component
		}
	}

	return ComponentUnknown
}

// detectCategory derives a category from the wrapped error, falling back to
// message heuristics and finally the component
func detectCategory(err error, component string) ErrorCategory {
	if err == nil {
		return CategoryGeneric
	}

	var catErr CategorizedError
	if stderrors.As(err, &catErr) && catErr.ErrorCategory() != "" {
		return catErr.ErrorCategory()
	}

	errorMsg := strings.ToLower(err.Error())

	switch {
	case strings.Contains(errorMsg, "validation") || strings.Contains(errorMsg, "invalid"):
		return CategoryValidation
	case strings.Contains(errorMsg, "timeout") || strings.Contains(errorMsg, "deadline"):
		return CategoryTimeout
	case strings.Contains(errorMsg, "canceled") || strings.Contains(errorMsg, "cancelled"):
		return CategoryCancellation
	}

	switch component {
	case "datastore":
		return CategoryDatabase
	case "parser":
		return CategoryFileParsing
	case "api":
		return CategoryHTTP
	}

	return CategoryGeneric
}

// getFileExtension extracts file extension for categorization
func getFileExtension(path string) string {
	if lastDot := strings.LastIndex(path, "."); lastDot > 0 && lastDot < len(path)-1 {
		return strings.ToLower(path[lastDot+1:])
	}
	return "none"
}

// categorizeFileSize groups file sizes into categories
func categorizeFileSize(size int64) string {
	switch {
	case size < 1024:
		return "tiny"
	case size < 1024*1024:
		return "small"
	case size < 10*1024*1024:
		return "medium"
	default:
		return "large"
	}
}

// Convenience functions for common error patterns

// ValidationError creates a validation error
func ValidationError(message string) *EnhancedError {
	return New(NewStd(message)).
		Category(CategoryValidation).
		Build()
}

// FileError creates a file I/O error with appropriate context
func FileError(err error, filePath string, fileSize int64) *EnhancedError {
	return New(err).
		Category(CategoryFileIO).
		FileContext(filePath, fileSize).
		Build()
}

// Standard library passthrough functions

// NewStd creates a new standard error
func NewStd(text string) error {
	return stderrors.New(text)
}

// Is reports whether any error in err's tree matches target
func Is(err, target error) bool {
	return stderrors.Is(err, target)
}

// As finds the first error in err's tree that matches target
func As(err error, target any) bool {
	return stderrors.As(err, target)
}

// Unwrap returns the result of calling the Unwrap method on err
func Unwrap(err error) error {
	return stderrors.Unwrap(err)
}

// Join returns an error that wraps the given errors
func Join(errs ...error) error {
	return stderrors.Join(errs...)
}

// IsCategory checks if an error is an EnhancedError with the specified category.
func IsCategory(err error, category ErrorCategory) bool {
	var enhancedErr *EnhancedError
	return As(err, &enhancedErr) && enhancedErr.Category == category
}

// IsValidation checks if an error is a client-correctable validation error.
func IsValidation(err error) bool {
	return IsCategory(err, CategoryValidation)
}

// IsNotFound checks if an error is an EnhancedError with CategoryNotFound.
func IsNotFound(err error) bool {
	return IsCategory(err, CategoryNotFound)
}
