package store

import "github.com/jackc/pgx/v5/pgxpool"

// Stores in this package hold the global *pgxpool.Pool directly and open
// an explicit transaction per find-or-create / find-or-initialize call so
// the select-then-write sequence is atomic for a single record.
type pooled struct {
	pool *pgxpool.Pool
}
