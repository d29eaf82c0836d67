// Package cache holds short-lived in-memory state with size and age limits.
package cache

import (
	"context"
	"time"

	"fintrack/internal/log"
)

// Sweeper is a cache that can drop its expired entries on demand.
type Sweeper interface {
	Sweep() int
}

// Manager periodically sweeps expired entries from registered caches.
type Manager struct {
	caches []namedSweeper
	logger *log.Logger
}

type namedSweeper struct {
	name string
	s    Sweeper
}

// NewManager creates a new cache manager
func NewManager(logger *log.Logger) *Manager {
	if logger == nil {
		logger = log.Default(log.ComponentCache)
	}
	return &Manager{logger: logger.WithComponent(log.ComponentCache)}
}

// Register adds a cache to the manager for cleanup. Register before Run.
func (m *Manager) Register(name string, s Sweeper) {
	m.caches = append(m.caches, namedSweeper{name: name, s: s})
}

// Sweep cleans every registered cache once and returns the number of
// entries removed.
func (m *Manager) Sweep() int {
	total := 0
	for _, ns := range m.caches {
		if n := ns.s.Sweep(); n > 0 {
			m.logger.Debug("Expired cache entries removed", "cache", ns.name, "count", n)
			total += n
		}
	}
	return total
}

// Run sweeps every interval until ctx is cancelled.
func (m *Manager) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	m.logger.InfoContext(ctx, "Cache cleanup started", "interval", interval.String(), "caches", len(m.caches))
	for {
		select {
		case <-ticker.C:
			m.Sweep()
		case <-ctx.Done():
			m.logger.InfoContext(ctx, "Cache cleanup stopped")
			return
		}
	}
}
