package dberr

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

type Class string

const (
	ClassNone      Class = ""
	ClassNotFound  Class = "not_found"
	ClassConflict  Class = "conflict"
	ClassRetryable Class = "retryable"
	ClassTimeout   Class = "timeout"
	ClassFatal     Class = "fatal"
)

// Classify buckets a database error so callers can decide how to log or
// surface it without knowing which driver produced it.
func Classify(err error) Class {
	if err == nil {
		return ClassNone
	}
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ClassNotFound
	case errors.Is(err, context.DeadlineExceeded):
		return ClassTimeout
	case errors.Is(err, context.Canceled):
		return ClassRetryable
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch strings.TrimSpace(pgErr.Code) {
		case "23505":
			return ClassConflict // unique_violation
		case "40001", "40P01", "55P03":
			return ClassRetryable // serialization/deadlock/lock_not_available
		case "57014":
			return ClassTimeout // query_canceled (statement_timeout)
		}
		return ClassFatal
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "unique constraint"), strings.Contains(msg, "duplicate key"):
		return ClassConflict
	case strings.Contains(msg, "database is locked"), strings.Contains(msg, "deadlock"):
		return ClassRetryable
	}
	return ClassFatal
}

func IsRetryable(err error) bool {
	c := Classify(err)
	return c == ClassRetryable || c == ClassTimeout
}
