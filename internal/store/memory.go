package store

import (
	"context"
	"strconv"
	"sync"
	"time"
)

// Memory is an in-process Commander used by tests. It honors key expiry
// against an injectable clock so window-based behavior can be exercised
// without a live server.
type Memory struct {
	mu      sync.Mutex
	strings map[string]string
	lists   map[string][]string
	expiry  map[string]time.Time

	// Now is the clock used for expiry checks. Defaults to time.Now.
	Now func() time.Time
}

func NewMemory() *Memory {
	return &Memory{
		strings: make(map[string]string),
		lists:   make(map[string][]string),
		expiry:  make(map[string]time.Time),
		Now:     time.Now,
	}
}

// expireLocked drops key if its deadline has passed. Callers hold mu.
func (m *Memory) expireLocked(key string) {
	deadline, ok := m.expiry[key]
	if !ok {
		return
	}
	if m.Now().After(deadline) {
		delete(m.strings, key)
		delete(m.lists, key)
		delete(m.expiry, key)
	}
}

func (m *Memory) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.expireLocked(key)
	val, ok := m.strings[key]
	if !ok {
		return "", ErrNotFound
	}
	return val, nil
}

func (m *Memory) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.strings[key] = value
	delete(m.expiry, key)
	return nil
}

func (m *Memory) SetEx(_ context.Context, key, value string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.strings[key] = value
	m.expiry[key] = m.Now().Add(ttl)
	return nil
}

func (m *Memory) Del(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, key := range keys {
		delete(m.strings, key)
		delete(m.lists, key)
		delete(m.expiry, key)
	}
	return nil
}

func (m *Memory) Expire(_ context.Context, key string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.expiry[key] = m.Now().Add(ttl)
	return nil
}

func (m *Memory) Incr(_ context.Context, key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.incrLocked(key)
}

func (m *Memory) incrLocked(key string) (int64, error) {
	m.expireLocked(key)

	count := int64(0)
	if val, ok := m.strings[key]; ok {
		parsed, err := strconv.ParseInt(val, 10, 64)
		if err != nil {
			return 0, err
		}
		count = parsed
	}
	count++
	m.strings[key] = strconv.FormatInt(count, 10)
	return count, nil
}

func (m *Memory) RPush(_ context.Context, key string, values ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.expireLocked(key)
	m.lists[key] = append(m.lists[key], values...)
	return nil
}

func (m *Memory) LRange(_ context.Context, key string, start, stop int64) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.expireLocked(key)
	list := m.lists[key]
	n := int64(len(list))

	if start < 0 {
		start += n
		if start < 0 {
			start = 0
		}
	}
	if stop < 0 {
		stop += n
	}
	if start >= n || stop < start {
		return nil, nil
	}
	if stop >= n {
		stop = n - 1
	}

	out := make([]string, stop-start+1)
	copy(out, list[start:stop+1])
	return out, nil
}

func (m *Memory) IncrWithTTL(_ context.Context, key string) (int64, time.Duration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	count, err := m.incrLocked(key)
	if err != nil {
		return 0, 0, err
	}

	deadline, ok := m.expiry[key]
	if !ok {
		return count, -1, nil
	}
	return count, deadline.Sub(m.Now()), nil
}
