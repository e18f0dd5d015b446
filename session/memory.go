package session

import (
	"context"
	"sync"
	"time"
)

const sweepInterval = 5 * time.Minute

type memoryEntry struct {
	values    map[string]string
	expiresAt time.Time
}

// MemoryBackend is a thread-safe in-memory Backend. Sessions are lost
// on process restart.
type MemoryBackend struct {
	mu       sync.RWMutex
	data     map[string]memoryEntry
	stopOnce sync.Once
	stopCh   chan struct{}
}

var _ Backend = (*MemoryBackend)(nil)

// NewMemoryBackend creates an in-memory backend with a background sweep
// of expired sessions. Call Close to stop the sweeper.
func NewMemoryBackend() *MemoryBackend {
	b := &MemoryBackend{
		data:   make(map[string]memoryEntry),
		stopCh: make(chan struct{}),
	}
	go b.sweepLoop()
	return b
}

// Close stops the background sweeper.
func (b *MemoryBackend) Close() {
	b.stopOnce.Do(func() { close(b.stopCh) })
}

func (b *MemoryBackend) Load(_ context.Context, id string) (map[string]string, error) {
	b.mu.RLock()
	entry, ok := b.data[id]
	b.mu.RUnlock()
	if !ok {
		return nil, ErrNoSession
	}
	if time.Now().After(entry.expiresAt) {
		b.mu.Lock()
		delete(b.data, id)
		b.mu.Unlock()
		return nil, ErrNoSession
	}
	values := make(map[string]string, len(entry.values))
	for k, v := range entry.values {
		values[k] = v
	}
	return values, nil
}

func (b *MemoryBackend) Save(_ context.Context, id string, values map[string]string, ttl time.Duration) error {
	cp := make(map[string]string, len(values))
	for k, v := range values {
		cp[k] = v
	}
	b.mu.Lock()
	b.data[id] = memoryEntry{values: cp, expiresAt: time.Now().Add(ttl)}
	b.mu.Unlock()
	return nil
}

func (b *MemoryBackend) Delete(_ context.Context, id string) error {
	b.mu.Lock()
	delete(b.data, id)
	b.mu.Unlock()
	return nil
}

func (b *MemoryBackend) sweepLoop() {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-b.stopCh:
			return
		case <-ticker.C:
			b.sweepExpired()
		}
	}
}

func (b *MemoryBackend) sweepExpired() {
	now := time.Now()
	b.mu.Lock()
	for id, entry := range b.data {
		if now.After(entry.expiresAt) {
			delete(b.data, id)
		}
	}
	b.mu.Unlock()
}
