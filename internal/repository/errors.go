package repository

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrSessionNotFound     = errors.New("exam session not found")
	ErrDuplicateSession    = errors.New("exam session with this name and room already exists")
	ErrCourseNotFound      = errors.New("course instance not found")
	ErrModuleNotFound      = errors.New("course module not found")
	ErrProfileNotFound     = errors.New("user profile not found")
	ErrDuplicateEmail      = errors.New("user profile with this email already exists")
	ErrActiveAttemptExists = errors.New("student already has an active exam attempt")
	ErrNoActiveAttempt     = errors.New("student has no active exam attempt")
)

const pgUniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}
