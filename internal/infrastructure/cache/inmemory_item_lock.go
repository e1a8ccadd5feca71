package cache

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/catalogsync/backend/internal/domain/integration"
)

type lockEntry struct {
	token     string
	expiresAt time.Time
}

// InMemoryItemLocker implements ItemLocker with a process-local map.
// Suitable for single-instance deployments and tests.
type InMemoryItemLocker struct {
	mu        sync.Mutex
	entries   map[string]lockEntry
	now       func() time.Time
	stopChan  chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewInMemoryItemLocker creates a locker and starts its expiry sweeper
func NewInMemoryItemLocker() *InMemoryItemLocker {
	l := &InMemoryItemLocker{
		entries:  make(map[string]lockEntry),
		now:      time.Now,
		stopChan: make(chan struct{}),
	}
	l.wg.Add(1)
	go l.cleanupLoop()
	return l
}

// Acquire claims the item unless an unexpired lock exists
func (l *InMemoryItemLocker) Acquire(ctx context.Context, sourceID string, ttl time.Duration) (string, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if e, exists := l.entries[sourceID]; exists && now.Before(e.expiresAt) {
		return "", false, nil
	}

	token := uuid.NewString()
	l.entries[sourceID] = lockEntry{token: token, expiresAt: now.Add(ttl)}
	return token, true, nil
}

// Release drops the lock if token still owns it
func (l *InMemoryItemLocker) Release(ctx context.Context, sourceID, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if e, exists := l.entries[sourceID]; exists && e.token == token {
		delete(l.entries, sourceID)
	}
	return nil
}

// Close stops the sweeper. Safe to call multiple times.
func (l *InMemoryItemLocker) Close() error {
	l.closeOnce.Do(func() {
		close(l.stopChan)
		l.wg.Wait()
	})
	return nil
}

func (l *InMemoryItemLocker) cleanupLoop() {
	defer l.wg.Done()

	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-l.stopChan:
			return
		case <-ticker.C:
			l.cleanup()
		}
	}
}

func (l *InMemoryItemLocker) cleanup() {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	for id, e := range l.entries {
		if !now.Before(e.expiresAt) {
			delete(l.entries, id)
		}
	}
}

// Size returns the number of held or expired-but-unswept locks
func (l *InMemoryItemLocker) Size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

var _ integration.ItemLocker = (*InMemoryItemLocker)(nil)
