// Package cache provides an in-process TTL LRU and a janitor that sweeps
// expired entries.
package cache

import (
	"log/slog"
	"sync"
	"time"

	applog "trackify/internal/log"
)

// Cache defines a generic cache interface
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, data T)
	Delete(key string)
	// Clear drops every entry.
	Clear()
	Size() int
}

// Cleaner is implemented by caches that can sweep expired entries.
type Cleaner interface {
	CleanExpired() int
}

// Manager periodically sweeps registered caches.
type Manager struct {
	mu          sync.Mutex
	caches      []Cleaner
	stopCleanup chan struct{}
	cleanupDone chan struct{}
	running     bool
	logger      *slog.Logger
}

func NewManager(logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		logger: logger.With(applog.FieldComponent, applog.ComponentCache),
	}
}

// Register adds a cache to the sweep list.
func (m *Manager) Register(cache Cleaner) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.caches = append(m.caches, cache)
}

// StartCleanup begins sweeping every interval. Calling it twice is a no-op.
func (m *Manager) StartCleanup(interval time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return
	}
	m.running = true
	m.stopCleanup = make(chan struct{})
	m.cleanupDone = make(chan struct{})
	go m.cleanup(interval, m.stopCleanup, m.cleanupDone)
}

// Sweep runs one pass over every registered cache.
func (m *Manager) Sweep() int {
	m.mu.Lock()
	caches := append([]Cleaner(nil), m.caches...)
	m.mu.Unlock()

	total := 0
	for _, c := range caches {
		total += c.CleanExpired()
	}
	return total
}

func (m *Manager) cleanup(interval time.Duration, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if n := m.Sweep(); n > 0 {
				m.logger.Debug("Expired cache entries removed", applog.FieldCount, n)
			}
		case <-stop:
			return
		}
	}
}

// Stop halts the sweeper and waits for it to exit.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	m.running = false
	stop, done := m.stopCleanup, m.cleanupDone
	m.mu.Unlock()

	close(stop)
	<-done
}
