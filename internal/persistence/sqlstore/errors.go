package sqlstore

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"github.com/example/room-scheduler/internal/persistence"
)

// mapError translates driver errors into persistence sentinels. Errors that do
// not match a sentinel are wrapped in a StorageError for op.
func mapError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return persistence.ErrNotFound
	}
	if sentinel := classify(err); sentinel != nil {
		return fmt.Errorf("%w: %s: %w", sentinel, op, err)
	}
	return persistence.WrapStorage(op, err)
}

func classify(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code.Name() {
		case "unique_violation":
			return persistence.ErrDuplicate
		case "foreign_key_violation":
			return persistence.ErrForeignKeyViolation
		case "check_violation", "not_null_violation":
			return persistence.ErrConstraintViolation
		case "serialization_failure", "deadlock_detected", "lock_not_available":
			return persistence.ErrBusy
		}
		return nil
	}

	msg := err.Error()
	switch {
	case containsAny(msg, "FOREIGN KEY constraint failed"):
		return persistence.ErrForeignKeyViolation
	case containsAny(msg, "UNIQUE constraint failed", "PRIMARY KEY constraint failed"):
		return persistence.ErrDuplicate
	case containsAny(msg, "CHECK constraint failed", "NOT NULL constraint failed"):
		return persistence.ErrConstraintViolation
	case containsAny(msg, "database is locked", "database table is locked", "SQLITE_BUSY"):
		return persistence.ErrBusy
	}
	return nil
}

func containsAny(s string, substrings ...string) bool {
	for _, sub := range substrings {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
