package cache

import (
	"context"
	"testing"
	"time"
)

func TestMemoryGetSet(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(4)

	if _, ok, _ := m.Get(ctx, "missing"); ok {
		t.Error("expected miss")
	}
	buf := []byte("city")
	if err := m.Set(ctx, "a", buf, 0); err != nil {
		t.Fatal(err)
	}
	buf[0] = 'X' // stored value must be a copy
	got, ok, err := m.Get(ctx, "a")
	if err != nil || !ok || string(got) != "city" {
		t.Errorf("expected city, got %q %v %v", got, ok, err)
	}
}

func TestMemoryExpiry(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(4)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }

	m.Set(ctx, "k", []byte("v"), time.Minute)
	now = now.Add(59 * time.Second)
	if _, ok, _ := m.Get(ctx, "k"); !ok {
		t.Error("expected hit before expiry")
	}
	now = now.Add(time.Second)
	if _, ok, _ := m.Get(ctx, "k"); ok {
		t.Error("expected miss at expiry")
	}
	if m.Len() != 0 {
		t.Errorf("expired entry should be removed, len %d", m.Len())
	}
}

func TestMemoryEvictsOldest(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(2)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	m.now = func() time.Time { now = now.Add(time.Second); return now }

	m.Set(ctx, "first", []byte("1"), 0)
	m.Set(ctx, "second", []byte("2"), 0)
	m.Set(ctx, "third", []byte("3"), 0)

	if m.Len() != 2 {
		t.Fatalf("expected 2 entries, got %d", m.Len())
	}
	if _, ok, _ := m.Get(ctx, "first"); ok {
		t.Error("oldest entry should have been evicted")
	}
	if _, ok, _ := m.Get(ctx, "third"); !ok {
		t.Error("newest entry missing")
	}
}

func TestNewWithoutRedis(t *testing.T) {
	s, err := New(context.Background(), Options{})
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	if _, ok := s.(*Memory); !ok {
		t.Errorf("expected memory store, got %T", s)
	}
}

func TestConnectBadURL(t *testing.T) {
	if _, err := Connect(context.Background(), "http://localhost:6379"); err == nil {
		t.Error("expected error for non-redis URL")
	}
}
