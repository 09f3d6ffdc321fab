package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PushEventStore persists push events. Rows are append-only: a second save
// of the same ID returns the existing row unchanged.
type PushEventStore struct {
	pooled
}

// NewPushEventStore creates a PushEventStore backed by the given pool.
func NewPushEventStore(pool *pgxpool.Pool) *PushEventStore {
	return &PushEventStore{pooled{pool: pool}}
}

const pushEventColumns = `id, actor_id, repository_id, push_id, ref, head, before, raw, created_at`

func scanPushEventRow(row pgx.Row) (PushEvent, error) {
	var e PushEvent
	err := row.Scan(&e.ID, &e.ActorID, &e.RepositoryID, &e.PushID, &e.Ref, &e.Head, &e.Before, &e.Raw, &e.CreatedAt)
	return e, err
}

// FindOrCreate returns the existing row for e.ID if one exists, otherwise
// inserts e and returns it. It never overwrites an existing row.
func (s *PushEventStore) FindOrCreate(ctx context.Context, e PushEvent) (PushEvent, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return PushEvent{}, fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	existing, err := scanPushEventRow(tx.QueryRow(ctx,
		`SELECT `+pushEventColumns+` FROM push_events WHERE id = $1`, e.ID))
	if err == nil {
		return existing, nil
	}
	if err != pgx.ErrNoRows {
		return PushEvent{}, fmt.Errorf("looking up push event: %w", err)
	}

	created, err := scanPushEventRow(tx.QueryRow(ctx,
		`INSERT INTO push_events (id, actor_id, repository_id, push_id, ref, head, before, raw)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8::json)
		RETURNING `+pushEventColumns,
		e.ID, e.ActorID, e.RepositoryID, e.PushID, e.Ref, e.Head, e.Before, e.Raw,
	))
	if err != nil {
		// A concurrent insert of the same id can deadlock or violate the
		// primary key here. The handle-event job policy retries a deadlock;
		// a primary-key violation is not retried.
		return PushEvent{}, fmt.Errorf("creating push event: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return PushEvent{}, fmt.Errorf("committing push event: %w", err)
	}
	return created, nil
}
