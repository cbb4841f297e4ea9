package store

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/i474232898/forecast-drift/internal/common"
	"github.com/i474232898/forecast-drift/internal/forecast"
)

var (
	// ErrNotFound is returned when no snapshot is available for a location.
	ErrNotFound = errors.New("no forecast snapshots for location")
)

// Retention bounds. Every limit handed to a store is clamped into this range.
const (
	MinRetention = 3
	MaxRetention = 50
)

// ClampRetention bounds a retention limit to [MinRetention, MaxRetention].
func ClampRetention(limit int) int {
	return common.ClampInt(limit, MinRetention, MaxRetention)
}

// MemoryStore is a concurrency-safe in-memory snapshot store.
type MemoryStore struct {
	mu sync.RWMutex

	// key: location id, value: snapshots newest first
	data map[string][]forecast.Snapshot

	retention int
	maxAge    time.Duration // 0 = unlimited
	now       func() time.Time
}

// NewMemoryStore creates a MemoryStore keeping up to retention snapshots per
// location (clamped to [3,50]).
func NewMemoryStore(retention int, maxAge time.Duration) *MemoryStore {
	return &MemoryStore{
		data:      make(map[string][]forecast.Snapshot),
		retention: ClampRetention(retention),
		maxAge:    maxAge,
		now:       time.Now,
	}
}

// SaveSnapshot stores a snapshot, replacing any with the same id, and
// enforces retention for its location.
func (s *MemoryStore) SaveSnapshot(_ context.Context, snapshot forecast.Snapshot) error {
	key := snapshot.Location.Key()

	s.mu.Lock()
	defer s.mu.Unlock()

	existing := s.data[key]
	merged := make([]forecast.Snapshot, 0, len(existing)+1)
	merged = append(merged, snapshot)
	for _, snap := range existing {
		if snap.ID != snapshot.ID {
			merged = append(merged, snap)
		}
	}
	sortNewestFirst(merged)
	s.data[key] = s.prune(merged, s.retention)
	return nil
}

// ListSnapshots returns the snapshots of a location, newest first. An unknown
// location yields an empty list.
func (s *MemoryStore) ListSnapshots(_ context.Context, locationID string) ([]forecast.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.data[locationID]), nil
}

// GetLatest returns the most recent snapshot for a location.
func (s *MemoryStore) GetLatest(_ context.Context, locationID string) (forecast.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history := s.data[locationID]
	if len(history) == 0 {
		return forecast.Snapshot{}, ErrNotFound
	}
	return history[0], nil
}

// GetRange returns snapshots fetched between from and to (inclusive), newest first.
func (s *MemoryStore) GetRange(_ context.Context, locationID string, from, to time.Time) ([]forecast.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []forecast.Snapshot
	for _, snap := range s.data[locationID] {
		if inRange(snap.FetchedAt, from, to) {
			result = append(result, snap)
		}
	}
	if len(result) == 0 {
		return nil, ErrNotFound
	}
	return result, nil
}

// ApplyRetention re-trims every location to limit and makes it the new default.
func (s *MemoryStore) ApplyRetention(_ context.Context, limit int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.retention = ClampRetention(limit)
	for key, history := range s.data {
		s.data[key] = s.prune(history, s.retention)
	}
	return nil
}

// prune trims a newest-first list by count and age. The newest snapshot is
// always kept.
func (s *MemoryStore) prune(history []forecast.Snapshot, limit int) []forecast.Snapshot {
	if len(history) > limit {
		history = history[:limit]
	}
	if s.maxAge > 0 && len(history) > 1 {
		cutoff := s.now().Add(-s.maxAge)
		i := 1
		for ; i < len(history); i++ {
			if history[i].FetchedAt.Before(cutoff) {
				break
			}
		}
		history = history[:i]
	}
	return history
}

func sortNewestFirst(snaps []forecast.Snapshot) {
	slices.SortStableFunc(snaps, func(a, b forecast.Snapshot) int {
		return b.FetchedAt.Compare(a.FetchedAt)
	})
}

func inRange(t, from, to time.Time) bool {
	return !t.Before(from) && !t.After(to)
}
