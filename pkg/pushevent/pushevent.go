// Package pushevent handles a decoded push event: it saves the event row
// and enqueues the follow-up fetch jobs its actor and repository call for
// (spec.md §4.10).
package pushevent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/wisbric/ghingest/internal/telemetry"
	"github.com/wisbric/ghingest/pkg/actor"
	"github.com/wisbric/ghingest/pkg/githubapi"
	"github.com/wisbric/ghingest/pkg/jobs"
	"github.com/wisbric/ghingest/pkg/store"
)

func decodePayload(raw json.RawMessage, out any) error {
	return json.Unmarshal(raw, out)
}

// fetchRepoArgs/fetchUserArgs/fetchOrgArgs are the job payloads the
// matching fetch job handlers decode.
type fetchRepoArgs struct {
	Owner string `json:"owner"`
	Name  string `json:"name"`
}

type fetchUserArgs struct {
	Login string `json:"login"`
}

type fetchOrgArgs struct {
	Login string `json:"login"`
}

// Handler saves push events and enqueues the fetch jobs they imply.
type Handler struct {
	store  *store.PushEventStore
	queue  jobs.Queue
	logger *slog.Logger
}

// NewHandler wires a Handler from its collaborators.
func NewHandler(pushEventStore *store.PushEventStore, queue jobs.Queue, logger *slog.Logger) *Handler {
	return &Handler{store: pushEventStore, queue: queue, logger: logger}
}

// Handle saves event and enqueues a repository-fetch job plus, depending
// on the actor's classification, a user-fetch or organization-fetch job.
func (h *Handler) Handle(ctx context.Context, event githubapi.Event) error {
	owner, name, ok := actor.SplitFullName(event.Repo.Name)
	if !ok {
		return fmt.Errorf("pushevent: malformed repository full name %q", event.Repo.Name)
	}

	var payload githubapi.PushPayload
	if err := decodePayload(event.Payload, &payload); err != nil {
		return fmt.Errorf("pushevent: decoding payload: %w", err)
	}

	if _, err := h.store.FindOrCreate(ctx, store.PushEvent{
		ID:           event.ID,
		ActorID:      event.Actor.ID,
		RepositoryID: payload.RepositoryID,
		PushID:       payload.PushID,
		Ref:          payload.Ref,
		Head:         payload.Head,
		Before:       payload.Before,
		Raw:          event.Raw,
	}); err != nil {
		return fmt.Errorf("pushevent: saving event %q: %w", event.ID, err)
	}

	if _, err := h.queue.Enqueue(ctx, jobs.ClassFetchRepo, fetchRepoArgs{Owner: owner, Name: name}, 0); err != nil {
		return fmt.Errorf("pushevent: enqueuing repo fetch: %w", err)
	}

	kind := actor.Classify(event.Actor.URL)
	switch kind {
	case actor.KindUser:
		if _, err := h.queue.Enqueue(ctx, jobs.ClassFetchUser, fetchUserArgs{Login: event.Actor.Login}, 0); err != nil {
			return fmt.Errorf("pushevent: enqueuing user fetch: %w", err)
		}
	case actor.KindOrganization:
		if _, err := h.queue.Enqueue(ctx, jobs.ClassFetchOrg, fetchOrgArgs{Login: event.Actor.Login}, 0); err != nil {
			return fmt.Errorf("pushevent: enqueuing org fetch: %w", err)
		}
	default:
		telemetry.FetchGuardSkipsTotal.WithLabelValues(string(kind)).Inc()
		h.logger.Info("skipping actor fetch", "event_id", event.ID, "actor_url", event.Actor.URL, "actor_kind", string(kind))
	}

	return nil
}
