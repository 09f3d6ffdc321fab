// Package fetch implements the three entity fetchers (user, repository,
// organization) that sit between the job runtime and the upstream client:
// each consults the fetch guard, calls the upstream client on a miss, and
// saves the result (spec.md §4.9).
package fetch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/wisbric/ghingest/pkg/avatar"
	"github.com/wisbric/ghingest/pkg/fetchguard"
	"github.com/wisbric/ghingest/pkg/githubapi"
	"github.com/wisbric/ghingest/pkg/jobs"
	"github.com/wisbric/ghingest/pkg/store"
)

// UserFetcher fetches and saves users, scheduling an avatar job whenever
// the saved row carries a non-empty avatar URL.
type UserFetcher struct {
	client *githubapi.Client
	store  *store.UserStore
	guard  *fetchguard.Guard
	queue  jobs.Queue
	logger *slog.Logger
}

// NewUserFetcher wires a UserFetcher from its collaborators.
func NewUserFetcher(client *githubapi.Client, userStore *store.UserStore, guard *fetchguard.Guard, queue jobs.Queue, logger *slog.Logger) *UserFetcher {
	return &UserFetcher{client: client, store: userStore, guard: guard, queue: queue, logger: logger}
}

// Fetch returns the user row for login, consulting the fetch guard first.
func (f *UserFetcher) Fetch(ctx context.Context, login string) (store.User, error) {
	existing, err := f.store.GetByLogin(ctx, login)
	present := true
	if errors.Is(err, store.ErrRecordNotFound) {
		present = false
	} else if err != nil {
		return store.User{}, fmt.Errorf("looking up user %q: %w", login, err)
	}

	if !f.guard.ShouldFetch(present, existing.UpdatedAt, time.Now()) {
		f.logger.Debug("skipping user fetch, record is fresh", "login", login, "updated_at", existing.UpdatedAt)
		return existing, nil
	}

	upstream, err := f.client.GetUser(ctx, login)
	if err != nil {
		f.logger.Warn("fetching user failed", "login", login, "error", err)
		return store.User{}, err
	}

	saved, err := f.store.Save(ctx, store.UserFromUpstream(*upstream))
	if err != nil {
		return store.User{}, fmt.Errorf("saving user %q: %w", login, err)
	}

	if saved.AvatarURL != "" {
		if _, err := f.queue.Enqueue(ctx, jobs.ClassProcessAvatar, avatar.Args{
			UserID:    saved.ID,
			AvatarURL: saved.AvatarURL,
		}, 0); err != nil {
			f.logger.Error("enqueuing avatar job", "user_id", saved.ID, "error", err)
		}
	}

	return saved, nil
}
