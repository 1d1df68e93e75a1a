package db

import (
	"strings"

	"github.com/mattn/go-sqlite3"

	"github.com/teranos/measure/errors"
)

// ErrDatabaseClosed is returned when a run is interrupted after the
// connection was closed during shutdown
var ErrDatabaseClosed = errors.New("database is closed")

// IsDatabaseClosed matches both ErrDatabaseClosed and the driver's own
// "database is closed" errors, which cannot be wrapped at the source
func IsDatabaseClosed(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrDatabaseClosed) {
		return true
	}
	return strings.Contains(err.Error(), "database is closed")
}

// IsConstraintViolation reports whether err is a SQLite primary key or
// unique constraint failure
func IsConstraintViolation(err error) bool {
	var se sqlite3.Error
	if !errors.As(err, &se) {
		return false
	}
	return se.ExtendedCode == sqlite3.ErrConstraintPrimaryKey || se.ExtendedCode == sqlite3.ErrConstraintUnique
}
