// Package sqlxrepos implements the core repositories on PostgreSQL via sqlx.
package sqlxrepos

import (
	"database/sql"

	"github.com/lib/pq"
	"github.com/pkg/errors"
)

// uniqueViolation is the psql error code for unique constraint violations.
const uniqueViolation = "23505"

// trapNoRowsErr maps psql "no rows" err to the domain's notFound sentinel.
func trapNoRowsErr(err, notFound error, msg string) error {
	if err == sql.ErrNoRows {
		return notFound
	}
	return errors.Wrap(err, msg)
}

// violatedConstraint returns the name of the violated unique constraint, if any.
func violatedConstraint(err error) string {
	if pqErr, ok := errors.Cause(err).(*pq.Error); ok && pqErr.Code == uniqueViolation {
		return pqErr.Constraint
	}
	return ""
}
