package store

import (
	"errors"
	"net"

	"github.com/jackc/pgx/v5/pgconn"
)

// deadlockCode is Postgres's SQLSTATE for deadlock_detected.
const deadlockCode = "40P01"

// IsDeadlock reports whether err is a Postgres deadlock error. The
// handle-event job retries these at a fixed 5s interval.
func IsDeadlock(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == deadlockCode
}

// IsConnectionNotEstablished reports whether err is a network-level
// failure reaching the database.
func IsConnectionNotEstablished(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var connErr *pgconn.ConnectError
	return errors.As(err, &connErr)
}
