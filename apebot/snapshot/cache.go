package snapshot

import (
	"fmt"
	"log/slog"
	"sync/atomic"

	"golang.org/x/sync/singleflight"
)

// MarketCache owns the process's current Snapshot. Readers get the active
// snapshot with Current; a reload swaps the pointer atomically so an
// in-flight price query is never exposed to a half-updated collection.
// Concurrent refresh attempts collapse into a single reload.
type MarketCache struct {
	path        string
	pseudoTrait string
	logger      *slog.Logger

	current atomic.Pointer[Snapshot]
	group   singleflight.Group
}

// NewMarketCache creates a cache over the snapshot file at path.
func NewMarketCache(path, pseudoTrait string, logger *slog.Logger) *MarketCache {
	if logger == nil {
		logger = slog.Default()
	}
	return &MarketCache{
		path:        path,
		pseudoTrait: pseudoTrait,
		logger:      logger,
	}
}

// Load performs the initial snapshot load. A corrupt or missing file is
// returned to the caller; at startup that is fatal.
func (c *MarketCache) Load() error {
	assets, modTime, err := Load(c.path)
	if err != nil {
		return err
	}

	snap := New(assets, c.pseudoTrait, modTime)
	c.current.Store(snap)

	c.logger.Info("Snapshot loaded",
		slog.String("type", "sys"),
		slog.String("path", c.path),
		slog.Int("assets", snap.Len()),
		slog.Uint64("generation", snap.Generation))
	return nil
}

// Current returns the active snapshot. Nil until Load succeeds.
func (c *MarketCache) Current() *Snapshot {
	return c.current.Load()
}

// RefreshIfStale reloads the snapshot file if its modification time
// changed since the active snapshot was built, and returns the snapshot
// to use. Reload failures keep the previous snapshot in place.
func (c *MarketCache) RefreshIfStale() (*Snapshot, error) {
	snap := c.current.Load()
	if snap == nil {
		return nil, fmt.Errorf("snapshot not loaded")
	}

	stale, err := IsStale(c.path, snap.ModTime)
	if err != nil || !stale {
		return snap, err
	}

	v, err, _ := c.group.Do("reload", func() (any, error) {
		// Re-check under the flight: another caller may have swapped in
		// the fresh snapshot already.
		cur := c.current.Load()
		if stale, err := IsStale(c.path, cur.ModTime); err != nil || !stale {
			return cur, err
		}

		assets, modTime, err := Load(c.path)
		if err != nil {
			return cur, fmt.Errorf("reload snapshot: %w", err)
		}

		fresh := New(assets, c.pseudoTrait, modTime)
		c.current.Store(fresh)

		c.logger.Info("Snapshot reloaded due to file change",
			slog.String("type", "sys"),
			slog.String("path", c.path),
			slog.Int("assets", fresh.Len()),
			slog.Uint64("generation", fresh.Generation))
		return fresh, nil
	})
	if err != nil {
		return snap, err
	}
	return v.(*Snapshot), nil
}
