package notifications

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/swiftdrop/driver-backend/pkg/db/models"
	"github.com/swiftdrop/driver-backend/pkg/logger"
)

// Registry owns the live feeds for connected drivers. The consumer publishes
// stored notifications into it; stream handlers attach a feed per connection
// and detach when the connection ends. Concurrent connections from one driver
// share a single refcounted feed.
type Registry struct {
	service Service
	logg    *logger.Logger

	mu      sync.Mutex
	entries map[uuid.UUID]*registryEntry
}

type registryEntry struct {
	feed *Feed
	refs int
}

// NewRegistry builds an empty feed registry.
func NewRegistry(service Service, logg *logger.Logger) (*Registry, error) {
	if service == nil {
		return nil, errors.New("notifications service required")
	}
	if logg == nil {
		return nil, errors.New("logger required")
	}
	return &Registry{
		service: service,
		logg:    logg,
		entries: make(map[uuid.UUID]*registryEntry),
	}, nil
}

// Attach returns the driver's live feed, seeding and starting one on first
// use. Every Attach must be paired with a Detach.
func (r *Registry) Attach(ctx context.Context, driverID uuid.UUID, seedLimit int) (*Feed, error) {
	r.mu.Lock()
	if entry, ok := r.entries[driverID]; ok {
		entry.refs++
		r.mu.Unlock()
		return entry.feed, nil
	}
	r.mu.Unlock()

	feed, err := NewFeed(driverID, r.service, r.logg)
	if err != nil {
		return nil, err
	}
	if err := feed.Start(ctx, seedLimit); err != nil {
		return nil, err
	}

	r.mu.Lock()
	if entry, ok := r.entries[driverID]; ok {
		// a concurrent Attach seeded first; keep that feed
		entry.refs++
		r.mu.Unlock()
		feed.Stop()
		return entry.feed, nil
	}
	r.entries[driverID] = &registryEntry{feed: feed, refs: 1}
	r.mu.Unlock()
	return feed, nil
}

// Detach drops one reference; the last detach stops the feed.
func (r *Registry) Detach(driverID uuid.UUID) {
	r.mu.Lock()
	entry, ok := r.entries[driverID]
	if !ok {
		r.mu.Unlock()
		return
	}
	entry.refs--
	if entry.refs > 0 {
		r.mu.Unlock()
		return
	}
	delete(r.entries, driverID)
	r.mu.Unlock()
	entry.feed.Stop()
}

// Publish routes a stored notification to the driver's feed. Drivers without
// a live connection are a no-op.
func (r *Registry) Publish(ctx context.Context, notification models.Notification) error {
	r.mu.Lock()
	entry, ok := r.entries[notification.DriverID]
	r.mu.Unlock()
	if !ok {
		return nil
	}
	return entry.feed.Publish(ctx, notification)
}

// Close stops every attached feed.
func (r *Registry) Close() {
	r.mu.Lock()
	entries := r.entries
	r.entries = make(map[uuid.UUID]*registryEntry)
	r.mu.Unlock()

	for _, entry := range entries {
		entry.feed.Stop()
	}
}
