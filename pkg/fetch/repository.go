package fetch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/wisbric/ghingest/pkg/fetchguard"
	"github.com/wisbric/ghingest/pkg/githubapi"
	"github.com/wisbric/ghingest/pkg/store"
)

// RepositoryFetcher fetches and saves repositories.
type RepositoryFetcher struct {
	client *githubapi.Client
	store  *store.RepositoryStore
	guard  *fetchguard.Guard
	logger *slog.Logger
}

// NewRepositoryFetcher wires a RepositoryFetcher from its collaborators.
func NewRepositoryFetcher(client *githubapi.Client, repoStore *store.RepositoryStore, guard *fetchguard.Guard, logger *slog.Logger) *RepositoryFetcher {
	return &RepositoryFetcher{client: client, store: repoStore, guard: guard, logger: logger}
}

// Fetch returns the repository row for owner/name, consulting the fetch
// guard first.
func (f *RepositoryFetcher) Fetch(ctx context.Context, owner, name string) (store.Repository, error) {
	fullName := owner + "/" + name

	existing, err := f.store.GetByFullName(ctx, fullName)
	present := true
	if errors.Is(err, store.ErrRecordNotFound) {
		present = false
	} else if err != nil {
		return store.Repository{}, fmt.Errorf("looking up repository %q: %w", fullName, err)
	}

	if !f.guard.ShouldFetch(present, existing.UpdatedAt, time.Now()) {
		f.logger.Debug("skipping repository fetch, record is fresh", "full_name", fullName, "updated_at", existing.UpdatedAt)
		return existing, nil
	}

	upstream, err := f.client.GetRepository(ctx, owner, name)
	if err != nil {
		f.logger.Warn("fetching repository failed", "full_name", fullName, "error", err)
		return store.Repository{}, err
	}

	saved, err := f.store.Save(ctx, store.RepositoryFromUpstream(*upstream))
	if err != nil {
		return store.Repository{}, fmt.Errorf("saving repository %q: %w", fullName, err)
	}
	return saved, nil
}
