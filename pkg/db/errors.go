package db

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

// SQLSTATE codes the services branch on.
const (
	sqlStateUniqueViolation      = "23505"
	sqlStateCheckViolation       = "23514"
	sqlStateSerializationFailure = "40001"
	sqlStateDeadlockDetected     = "40P01"
)

// SQLState returns the Postgres error code and constraint carried by err, from
// either the pgx or the lib/pq driver. Both are empty for other errors.
func SQLState(err error) (code, constraint string) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code, pgErr.ConstraintName
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code), pqErr.Constraint
	}
	return "", ""
}

// IsUniqueViolation reports whether err is a unique constraint failure from
// Postgres or SQLite. With constraint names given, only those constraints match.
func IsUniqueViolation(err error, constraints ...string) bool {
	if err == nil {
		return false
	}
	names := make([]string, 0, len(constraints))
	for _, c := range constraints {
		if c != "" {
			names = append(names, c)
		}
	}

	code, constraint := SQLState(err)
	msg := err.Error()
	unique := code == sqlStateUniqueViolation ||
		strings.Contains(msg, "duplicate key value") ||
		strings.Contains(msg, "UNIQUE constraint failed")
	if !unique {
		return false
	}
	if len(names) == 0 {
		return true
	}
	for _, name := range names {
		if constraint == name || strings.Contains(msg, name) {
			return true
		}
	}
	return false
}

// IsCheckViolation reports a CHECK constraint failure, e.g. a quantity going
// negative past the ledger guards.
func IsCheckViolation(err error) bool {
	if err == nil {
		return false
	}
	code, _ := SQLState(err)
	return code == sqlStateCheckViolation || strings.Contains(err.Error(), "CHECK constraint failed")
}

// IsRetryable reports serialization failures and deadlocks, which succeed
// when the whole transaction is retried.
func IsRetryable(err error) bool {
	code, _ := SQLState(err)
	return code == sqlStateSerializationFailure || code == sqlStateDeadlockDetected
}
