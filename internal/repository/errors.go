package repository

import (
	"errors"
	"net"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/puddle/v2"
)

// IsUnavailable reports whether err means the database could not be reached,
// as opposed to a statement that ran and failed.
func IsUnavailable(err error) bool {
	if err == nil {
		return false
	}

	var (
		connectErr *pgconn.ConnectError
		netErr     net.Error
	)
	switch {
	case errors.Is(err, puddle.ErrClosedPool),
		errors.As(err, &connectErr),
		errors.As(err, &netErr):
		return true
	default:
		return pgconn.SafeToRetry(err)
	}
}
