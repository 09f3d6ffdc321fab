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

// OrganizationFetcher fetches and saves organizations.
type OrganizationFetcher struct {
	client *githubapi.Client
	store  *store.OrganizationStore
	guard  *fetchguard.Guard
	logger *slog.Logger
}

// NewOrganizationFetcher wires an OrganizationFetcher from its
// collaborators.
func NewOrganizationFetcher(client *githubapi.Client, orgStore *store.OrganizationStore, guard *fetchguard.Guard, logger *slog.Logger) *OrganizationFetcher {
	return &OrganizationFetcher{client: client, store: orgStore, guard: guard, logger: logger}
}

// Fetch returns the organization row for login, consulting the fetch
// guard first.
func (f *OrganizationFetcher) Fetch(ctx context.Context, login string) (store.Organization, error) {
	existing, err := f.store.GetByLogin(ctx, login)
	present := true
	if errors.Is(err, store.ErrRecordNotFound) {
		present = false
	} else if err != nil {
		return store.Organization{}, fmt.Errorf("looking up organization %q: %w", login, err)
	}

	if !f.guard.ShouldFetch(present, existing.UpdatedAt, time.Now()) {
		f.logger.Debug("skipping organization fetch, record is fresh", "login", login, "updated_at", existing.UpdatedAt)
		return existing, nil
	}

	upstream, err := f.client.GetOrganization(ctx, login)
	if err != nil {
		f.logger.Warn("fetching organization failed", "login", login, "error", err)
		return store.Organization{}, err
	}

	saved, err := f.store.Save(ctx, store.OrganizationFromUpstream(*upstream))
	if err != nil {
		return store.Organization{}, fmt.Errorf("saving organization %q: %w", login, err)
	}
	return saved, nil
}
