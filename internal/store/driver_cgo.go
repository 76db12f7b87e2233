//go:build cgo_sqlite

package store

import (
	"errors"

	"github.com/mattn/go-sqlite3"
)

// DriverName is the database/sql driver the store opens. This build uses
// the cgo driver; FTS5 additionally needs the sqlite_fts5 build tag.
const DriverName = "sqlite3"

const defaultSQLiteParams = "?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=ON"

func dsn(dbPath string) string {
	return dbPath + defaultSQLiteParams
}

// driverErrorMessage extracts the message of a driver error, if err is one.
// Handles both value (sqlite3.Error) and pointer (*sqlite3.Error) forms.
func driverErrorMessage(err error) (string, bool) {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Error(), true
	}
	var sqliteErrPtr *sqlite3.Error
	if errors.As(err, &sqliteErrPtr) && sqliteErrPtr != nil {
		return sqliteErrPtr.Error(), true
	}
	return "", false
}

// isConstraintError reports whether err is a SQLite constraint violation.
func isConstraintError(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code == sqlite3.ErrConstraint
	}
	var sqliteErrPtr *sqlite3.Error
	if errors.As(err, &sqliteErrPtr) && sqliteErrPtr != nil {
		return sqliteErrPtr.Code == sqlite3.ErrConstraint
	}
	return false
}
