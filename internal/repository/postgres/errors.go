package postgres

import (
	"database/sql"
	"errors"

	ierr "github.com/condohub/billing/internal/errors"
	"github.com/lib/pq"
)

const uniqueViolation = "23505"

// wrapError maps driver errors onto the error categories services branch on:
// no rows becomes notFound, a unique violation becomes ErrAlreadyExists and
// anything else is a database error.
func wrapError(err error, notFound error, details map[string]any) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return ierr.WithError(err).
			WithHint("Resource not found").
			WithReportableDetails(details).
			Mark(notFound)
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		if details == nil {
			details = map[string]any{}
		}
		details["constraint"] = pqErr.Constraint
		return ierr.WithError(err).
			WithHint("Resource already exists").
			WithReportableDetails(details).
			Mark(ierr.ErrAlreadyExists)
	}
	return ierr.WithError(err).
		WithHint("Database operation failed").
		WithReportableDetails(details).
		Mark(ierr.ErrDatabase)
}

// IsUniqueViolation reports whether err is a Postgres unique violation
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

// requireRows turns an update that touched nothing into notFound
func requireRows(res sql.Result, notFound error, details map[string]any) error {
	n, err := res.RowsAffected()
	if err != nil {
		return wrapError(err, notFound, details)
	}
	if n == 0 {
		return wrapError(sql.ErrNoRows, notFound, details)
	}
	return nil
}
