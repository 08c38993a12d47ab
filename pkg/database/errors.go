package database

import (
	"errors"
	"strings"

	"github.com/lib/pq"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// pqUniqueViolation is the SQLSTATE for unique_violation.
const pqUniqueViolation = "23505"

// ViolatedConstraint reports whether err is a unique-constraint violation
// and, if so, what the store says was violated. For postgres that is the
// constraint name; for sqlite it is the "table.column" list from the
// error message.
func ViolatedConstraint(err error) (string, bool) {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		if pqErr.Code == pqUniqueViolation {
			return pqErr.Constraint, true
		}
		return "", false
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		code := liteErr.Code()
		switch {
		case code == sqlite3.SQLITE_CONSTRAINT_UNIQUE, code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return sqliteConstraintTarget(liteErr.Error()), true
		case code&0xff == sqlite3.SQLITE_CONSTRAINT && strings.Contains(liteErr.Error(), "UNIQUE constraint failed"):
			// extended result codes disabled on this connection
			return sqliteConstraintTarget(liteErr.Error()), true
		}
	}
	return "", false
}

// IsUniqueViolation is ViolatedConstraint without the detail.
func IsUniqueViolation(err error) bool {
	_, ok := ViolatedConstraint(err)
	return ok
}

// sqliteConstraintTarget extracts "accounts.email" from
// "constraint failed: UNIQUE constraint failed: accounts.email (2067)".
func sqliteConstraintTarget(msg string) string {
	const marker = "UNIQUE constraint failed: "
	i := strings.LastIndex(msg, marker)
	if i < 0 {
		return msg
	}
	target := msg[i+len(marker):]
	if j := strings.Index(target, " ("); j >= 0 {
		target = target[:j]
	}
	return strings.TrimSpace(target)
}
