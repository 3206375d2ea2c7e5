package cache

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

type memoryEntry struct {
	token   string
	expires time.Time
}

// MemoryLock is an in-process Locker used when Redis is not configured and in tests
type MemoryLock struct {
	mu     sync.Mutex
	data   map[string]memoryEntry
	prefix string
	now    func() time.Time
}

func NewMemoryLock(prefix string) *MemoryLock {
	return &MemoryLock{
		data:   make(map[string]memoryEntry),
		prefix: prefix,
		now:    time.Now,
	}
}

func (m *MemoryLock) Close() error {
	return nil
}

func (m *MemoryLock) Acquire(ctx context.Context, key string, ttl time.Duration) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if entry, exists := m.data[m.prefix+key]; exists && now.Before(entry.expires) {
		return "", false, nil
	}

	token := uuid.NewString()
	m.data[m.prefix+key] = memoryEntry{token: token, expires: now.Add(ttl)}
	return token, true, nil
}

func (m *MemoryLock) Release(ctx context.Context, key, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if entry, exists := m.data[m.prefix+key]; exists && entry.token == token {
		delete(m.data, m.prefix+key)
	}
	return nil
}
