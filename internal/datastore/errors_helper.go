package datastore

import (
	"fmt"
	"time"

	"github.com/nutrilog/nutrilog/internal/errors"
)

// dbError creates a properly categorized database error with context
func dbError(err error, operation, priority string, context ...any) error {
	builder := errors.New(err).
		Component("datastore").
		Category(errors.CategoryDatabase).
		Context("operation", operation)

	if priority != "" {
		builder = builder.Priority(priority)
	}

	// Add context pairs
	for i := 0; i < len(context)-1; i += 2 {
		if key, ok := context[i].(string); ok {
			builder = builder.Context(key, context[i+1])
		}
	}

	return builder.Build()
}

// criticalError marks failures that leave the schema unusable
func criticalError(err error, operation, reason string, context ...any) error {
	return dbError(err, operation, errors.PriorityCritical, append([]any{"reason", reason}, context...)...)
}

// notFoundError reports a missing row for a natural key
func notFoundError(table string, userID int64, date time.Time) error {
	return errors.Newf("no %s row for user %d on %s", table, userID, date.Format(time.DateOnly)).
		Component("datastore").
		Category(errors.CategoryNotFound).
		Context("table", table).
		Context("user_id", userID).
		Context("date", date.Format(time.DateOnly)).
		Build()
}

// stateError reports use of the store in an invalid lifecycle state
func stateError(operation, message string) error {
	return errors.New(fmt.Errorf("%s", message)).
		Component("datastore").
		Category(errors.CategoryState).
		Context("operation", operation).
		Build()
}
