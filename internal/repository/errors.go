package repository

import (
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var ErrDuplicateEmail = errors.New("email already registered")

const (
	uniqueViolation = "23505"
	checkViolation  = "23514"
)

func isConstraint(err error, code, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == code && (constraint == "" || pgErr.ConstraintName == constraint)
}

func isNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
