package db

import (
	"context"
	"errors"
	"net"
	"strings"

	"github.com/jackc/pgconn"
)

const uniqueViolation = "23505"

// IsUnavailable reports whether err means the server could not be reached,
// as opposed to the server rejecting a statement.
func IsUnavailable(err error) bool {
	if err == nil {
		return false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return false
	}

	var netErr net.Error
	if pgconn.Timeout(err) || errors.As(err, &netErr) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	return strings.Contains(err.Error(), "failed to connect to")
}

func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
