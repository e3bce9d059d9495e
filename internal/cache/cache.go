// Package cache stores serialized API responses keyed by their generation
// parameters. Redis is used when enabled; otherwise an in-process map.
package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store is a byte cache with per-entry expiry.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Close() error
}

// Options select and configure the backing store.
type Options struct {
	RedisEnabled bool
	RedisURL     string
	MaxEntries   int // memory store only; 0 means 512
}

// New returns a Redis store when enabled, or a memory store.
func New(ctx context.Context, opts Options) (Store, error) {
	if !opts.RedisEnabled {
		slog.Info("redis disabled, using in-memory cache")
		return NewMemory(opts.MaxEntries), nil
	}
	return Connect(ctx, opts.RedisURL)
}

type entry struct {
	value   []byte
	stored  time.Time
	expires time.Time // zero means never
}

// Memory is a bounded in-process store. When full, the oldest entry is
// evicted.
type Memory struct {
	mu    sync.Mutex
	items map[string]entry
	max   int
	now   func() time.Time
}

// NewMemory creates a memory store holding at most max entries.
func NewMemory(max int) *Memory {
	if max <= 0 {
		max = 512
	}
	return &Memory{items: make(map[string]entry), max: max, now: time.Now}
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.items[key]
	if !ok {
		return nil, false, nil
	}
	if !e.expires.IsZero() && !m.now().Before(e.expires) {
		delete(m.items, key)
		return nil, false, nil
	}
	return e.value, true, nil
}

func (m *Memory) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if _, exists := m.items[key]; !exists && len(m.items) >= m.max {
		m.evict(now)
	}
	e := entry{value: append([]byte(nil), value...), stored: now}
	if ttl > 0 {
		e.expires = now.Add(ttl)
	}
	m.items[key] = e
	return nil
}

// evict drops expired entries, or the oldest one if none have expired.
func (m *Memory) evict(now time.Time) {
	var oldestKey string
	var oldest time.Time
	for k, e := range m.items {
		if !e.expires.IsZero() && !now.Before(e.expires) {
			delete(m.items, k)
			continue
		}
		if oldestKey == "" || e.stored.Before(oldest) {
			oldestKey, oldest = k, e.stored
		}
	}
	if len(m.items) >= m.max && oldestKey != "" {
		delete(m.items, oldestKey)
	}
}

// Len returns the number of stored entries, expired or not.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}

func (m *Memory) Close() error { return nil }

// Redis stores entries in a Redis server under a key prefix.
type Redis struct {
	client *redis.Client
	prefix string
}

// Connect parses url, connects and pings the server.
func Connect(ctx context.Context, url string) (*Redis, error) {
	logger := slog.With("component", "redis", "operation", "connect")

	opts, err := redis.ParseURL(url)
	if err != nil {
		logger.Error("failed to parse redis URL", "error", err)
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}
	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second
	rdb := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		logger.Error("failed to ping redis", "error", err)
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	logger.Info("redis connection established")
	return &Redis{client: rdb, prefix: "metro:"}, nil
}

func (r *Redis) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := r.client.Get(ctx, r.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get: %w", err)
	}
	return val, true, nil
}

func (r *Redis) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := r.client.Set(ctx, r.prefix+key, value, ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (r *Redis) Close() error {
	if r == nil || r.client == nil {
		return nil
	}
	return r.client.Close()
}
