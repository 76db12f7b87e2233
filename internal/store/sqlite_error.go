package store

import "strings"

// isSQLiteError checks if err is a driver error whose message contains substr.
// This is more robust than strings.Contains on err.Error() because it first
// type-asserts to the driver's error type using errors.As.
func isSQLiteError(err error, substr string) bool {
	msg, ok := driverErrorMessage(err)
	return ok && strings.Contains(msg, substr)
}

// IsConstraintError reports whether err (or anything it wraps) is a
// constraint violation raised by the database, such as a foreign key
// referencing a missing row.
func IsConstraintError(err error) bool {
	return isConstraintError(err)
}
