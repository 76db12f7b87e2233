//go:build !cgo_sqlite

package store

import (
	"errors"
	"path/filepath"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// DriverName is the database/sql driver the store opens. The default build
// uses the pure-Go driver, which ships FTS5; build with -tags cgo_sqlite
// (plus sqlite_fts5) to switch to the cgo driver.
const DriverName = "sqlite"

const defaultSQLiteParams = "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"

func dsn(dbPath string) string {
	return "file:" + filepath.ToSlash(dbPath) + defaultSQLiteParams
}

// driverErrorMessage extracts the message of a driver error, if err is one.
func driverErrorMessage(err error) (string, bool) {
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) && sqliteErr != nil {
		return sqliteErr.Error(), true
	}
	return "", false
}

// isConstraintError reports whether err is a SQLite constraint violation.
func isConstraintError(err error) bool {
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) && sqliteErr != nil {
		return sqliteErr.Code()&0xff == sqlite3.SQLITE_CONSTRAINT
	}
	return false
}
