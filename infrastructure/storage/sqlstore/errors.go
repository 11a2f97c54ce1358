package sqlstore

import (
	"context"
	"database/sql/driver"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/ahrav/go-tender/internal/ports"
)

// wrap converts a driver error into a *ports.StorageError whose cause is one
// of the ports sentinels when the failure is transient.
func wrap(op, key string, err error) error {
	if err == nil {
		return nil
	}
	return ports.NewStorageError(op, key, classify(err))
}

func classify(err error) error {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return errors.Join(ports.ErrTimeout, err)
	case errors.Is(err, driver.ErrBadConn):
		return errors.Join(ports.ErrStoreUnavailable, err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case pgErr.Code == "40001" || pgErr.Code == "40P01":
			return errors.Join(ports.ErrConflict, err)
		case len(pgErr.Code) == 5 && pgErr.Code[:2] == "08":
			return errors.Join(ports.ErrStoreUnavailable, err)
		}
		return err
	}
	if pgconn.Timeout(err) {
		return errors.Join(ports.ErrTimeout, err)
	}

	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		switch liteErr.Code() & 0xff {
		case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED:
			return errors.Join(ports.ErrConflict, err)
		}
	}
	return err
}

// isUniqueViolation reports whether err is a unique constraint failure on
// either dialect.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		switch liteErr.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return true
		case sqlite3.SQLITE_CONSTRAINT:
			// Extended codes disabled: fall back to the message.
			return strings.Contains(liteErr.Error(), "UNIQUE")
		}
	}
	return false
}
