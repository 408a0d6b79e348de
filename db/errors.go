package db

import (
	"strings"

	"github.com/teranos/smrt/errors"
)

// ErrDatabaseClosed is returned when operations are attempted on a closed database.
var ErrDatabaseClosed = errors.New("database is closed")

// IsDatabaseClosed checks if an error indicates the database connection is closed.
// Driver errors are not wrapped at the source, so their message is matched too.
func IsDatabaseClosed(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrDatabaseClosed) {
		return true
	}
	return strings.Contains(err.Error(), "database is closed")
}

// IsMissingTable checks if an error reports an absent table (SQLite or Postgres wording)
func IsMissingTable(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "no such table") ||
		(strings.Contains(msg, "relation") && strings.Contains(msg, "does not exist"))
}
