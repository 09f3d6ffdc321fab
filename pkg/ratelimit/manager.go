package ratelimit

import (
	"log/slog"
	"sync"

	"github.com/wisbric/ghingest/pkg/kv"
)

// Manager lazily creates and caches one Coordinator per resource class,
// since the upstream API reports rate limits against several independent
// classes (core, search, graphql, ...).
type Manager struct {
	store  kv.Store
	logger *slog.Logger

	mu           sync.Mutex
	coordinators map[string]*Coordinator
}

// NewManager creates a Manager backed by store.
func NewManager(store kv.Store, logger *slog.Logger) *Manager {
	return &Manager{
		store:        store,
		logger:       logger,
		coordinators: make(map[string]*Coordinator),
	}
}

// For returns the Coordinator for the given resource class, creating it on
// first use. An empty resource defaults to "core".
func (m *Manager) For(resource string) *Coordinator {
	if resource == "" {
		resource = "core"
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.coordinators[resource]
	if !ok {
		c = New(m.store, m.logger, resource)
		m.coordinators[resource] = c
	}
	return c
}
