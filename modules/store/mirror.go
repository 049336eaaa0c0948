package store

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"
)

// Mirror writes presence transitions to every durable sink. The SQLite
// table is always written; the Redis cache only when configured.
type Mirror struct {
	repo  *Repository
	cache *PresenceCache
}

// NewMirror creates a presence mirror. cache may be nil.
func NewMirror(repo *Repository, cache *PresenceCache) *Mirror {
	return &Mirror{repo: repo, cache: cache}
}

// Apply writes the presence to all sinks concurrently and returns the first
// error encountered.
func (m *Mirror) Apply(ctx context.Context, userID string, isOnline bool, lastSeen time.Time) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return m.repo.UpsertPresence(ctx, userID, isOnline, lastSeen)
	})
	if m.cache != nil {
		g.Go(func() error {
			return m.cache.Set(ctx, userID, isOnline, lastSeen)
		})
	}

	return g.Wait()
}

// Lookup returns the mirrored presence of a user, preferring the cache and
// falling back to SQLite on a miss or cache error. It returns ErrNotFound
// when neither sink knows the user.
func (m *Mirror) Lookup(ctx context.Context, userID string) (*UserPresence, error) {
	if m.cache != nil {
		presence, found, err := m.cache.Get(ctx, userID)
		if err == nil && found {
			return &presence, nil
		}
	}

	return m.repo.FindPresence(ctx, userID)
}
