package errors

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

// ErrorDump is the log-side view of a failure; it is never sent to clients.
type ErrorDump struct {
	TopMessage string   `json:"top_message"`
	Code       Code     `json:"code,omitempty"`
	Chain      []string `json:"chain,omitempty"`

	PGCode       string `json:"pg_code,omitempty"`
	PGConstraint string `json:"pg_constraint,omitempty"`
	PGTable      string `json:"pg_table,omitempty"`
	PGColumn     string `json:"pg_column,omitempty"`
	PGDetail     string `json:"pg_detail,omitempty"`
	PGMessage    string `json:"pg_message,omitempty"`
}

type pgFacts struct {
	code, constraint, table, column, detail, message string
}

// postgresFacts pulls driver details from either pgx or lib/pq errors.
func postgresFacts(err error) (pgFacts, bool) {
	var pgxErr *pgconn.PgError
	if errors.As(err, &pgxErr) {
		return pgFacts{
			code:       pgxErr.Code,
			constraint: pgxErr.ConstraintName,
			table:      pgxErr.TableName,
			column:     pgxErr.ColumnName,
			detail:     pgxErr.Detail,
			message:    pgxErr.Message,
		}, true
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pgFacts{
			code:       string(pqErr.Code),
			constraint: pqErr.Constraint,
			table:      pqErr.Table,
			column:     pqErr.Column,
			detail:     pqErr.Detail,
			message:    pqErr.Message,
		}, true
	}
	return pgFacts{}, false
}

// storageCode maps a SQLSTATE to the code a raw datastore failure should carry.
// Check violations mean a quantity/reserved guard was bypassed. An out of
// range number comes from the caller's input and is never worth retrying.
func storageCode(sqlState string) Code {
	switch sqlState {
	case "22003":
		return CodeValidation
	case "23505":
		return CodeConflict
	case "23514":
		return CodeInvariantViolation
	default:
		return CodeStorage
	}
}

func Dump(err error) ErrorDump {
	if err == nil {
		return ErrorDump{}
	}

	d := ErrorDump{TopMessage: err.Error()}
	if te := As(err); te != nil {
		d.Code = te.Code()
	}
	for e := err; e != nil; e = errors.Unwrap(e) {
		d.Chain = append(d.Chain, fmt.Sprintf("%T: %v", e, e))
	}

	if facts, ok := postgresFacts(err); ok {
		d.PGCode = facts.code
		d.PGConstraint = facts.constraint
		d.PGTable = facts.table
		d.PGColumn = facts.column
		d.PGDetail = facts.detail
		d.PGMessage = facts.message
	}
	return d
}
