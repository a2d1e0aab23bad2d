package review

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Store keeps live screens between the page load and the learner's
// follow-up actions.
type Store interface {
	Save(ctx context.Context, s *Screen) error
	Get(ctx context.Context, id uuid.UUID) (*Screen, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type RedisStore struct {
	client redis.Cmdable
	ttl    time.Duration
}

func NewRedisStore(client redis.Cmdable, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func screenKey(id uuid.UUID) string {
	return "review_screen:" + id.String()
}

func (r *RedisStore) Save(ctx context.Context, s *Screen) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to encode screen %s: %w", s.ID, err)
	}
	if err := r.client.Set(ctx, screenKey(s.ID), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save screen %s: %w", s.ID, err)
	}
	return nil
}

func (r *RedisStore) Get(ctx context.Context, id uuid.UUID) (*Screen, error) {
	data, err := r.client.Get(ctx, screenKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrScreenNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load screen %s: %w", id, err)
	}
	var s Screen
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to decode screen %s: %w", id, err)
	}
	return &s, nil
}

func (r *RedisStore) Delete(ctx context.Context, id uuid.UUID) error {
	return r.client.Del(ctx, screenKey(id)).Err()
}

// MemoryStore is the single-instance Store used when no Redis is configured.
type MemoryStore struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	screens map[uuid.UUID]memoryEntry
}

type memoryEntry struct {
	data      []byte
	expiresAt time.Time
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		ttl:     ttl,
		now:     time.Now,
		screens: make(map[uuid.UUID]memoryEntry),
	}
}

// Save stores a copy, so later mutation of s does not leak into the store.
func (m *MemoryStore) Save(ctx context.Context, s *Screen) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to encode screen %s: %w", s.ID, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	for id, e := range m.screens {
		if now.After(e.expiresAt) {
			delete(m.screens, id)
		}
	}
	m.screens[s.ID] = memoryEntry{data: data, expiresAt: now.Add(m.ttl)}
	return nil
}

func (m *MemoryStore) Get(ctx context.Context, id uuid.UUID) (*Screen, error) {
	m.mu.Lock()
	e, ok := m.screens[id]
	if ok && m.now().After(e.expiresAt) {
		delete(m.screens, id)
		ok = false
	}
	m.mu.Unlock()

	if !ok {
		return nil, ErrScreenNotFound
	}
	var s Screen
	if err := json.Unmarshal(e.data, &s); err != nil {
		return nil, fmt.Errorf("failed to decode screen %s: %w", id, err)
	}
	return &s, nil
}

func (m *MemoryStore) Delete(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.screens, id)
	return nil
}
