package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/dd0wney/cluso-sentinel/pkg/model"
)

// MemoryEdgeStore keeps the edge history in memory, optionally mirroring
// every insert to an append-only journal so history survives restarts.
type MemoryEdgeStore struct {
	mu      sync.RWMutex
	edges   []model.AuthEdge
	journal *Journal // nil = no durability
}

// NewMemoryEdgeStore creates an empty in-memory edge store.
func NewMemoryEdgeStore() *MemoryEdgeStore {
	return &MemoryEdgeStore{}
}

// NewJournaledEdgeStore creates an in-memory edge store that replays the
// journal at path and mirrors subsequent inserts to it.
func NewJournaledEdgeStore(path string) (*MemoryEdgeStore, error) {
	j, err := OpenJournal(path)
	if err != nil {
		return nil, err
	}
	edges, err := j.Replay()
	if err != nil {
		j.Close()
		return nil, err
	}
	return &MemoryEdgeStore{edges: edges, journal: j}, nil
}

func (s *MemoryEdgeStore) Insert(_ context.Context, edge model.AuthEdge) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.journal != nil {
		if err := s.journal.Append(edge); err != nil {
			return err
		}
	}
	s.edges = append(s.edges, edge)
	return nil
}

func (s *MemoryEdgeStore) AllForGraph(context.Context) ([]model.AuthEdge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.AuthEdge, len(s.edges))
	copy(out, s.edges)
	// Stable sort keeps insertion order among equal timestamps.
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	return out, nil
}

func (s *MemoryEdgeStore) RecentByHost(_ context.Context, hostID string, since time.Time) ([]model.AuthEdge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.AuthEdge
	for _, e := range s.edges {
		if e.HostID == hostID && !e.Timestamp.Before(since) {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	return out, nil
}

func (s *MemoryEdgeStore) Count(context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.edges), nil
}

// Close closes the underlying journal, if any.
func (s *MemoryEdgeStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.journal != nil {
		return s.journal.Close()
	}
	return nil
}

// MemoryAlertStore keeps fired alerts in memory.
type MemoryAlertStore struct {
	mu     sync.RWMutex
	alerts []model.Alert
	byID   map[string]int
}

// NewMemoryAlertStore creates an empty in-memory alert store.
func NewMemoryAlertStore() *MemoryAlertStore {
	return &MemoryAlertStore{byID: make(map[string]int)}
}

func (s *MemoryAlertStore) Insert(_ context.Context, alert model.Alert) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byID[alert.ID] = len(s.alerts)
	s.alerts = append(s.alerts, alert)
	return nil
}

func (s *MemoryAlertStore) List(_ context.Context, filter AlertFilter) ([]model.Alert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}

	var matched []model.Alert
	for _, a := range s.alerts {
		if filter.DetectionType != "" && a.DetectionType != filter.DetectionType {
			continue
		}
		if !filter.Since.IsZero() && a.TriggeredAt.Before(filter.Since) {
			continue
		}
		if filter.Acknowledged != nil && a.Acknowledged != *filter.Acknowledged {
			continue
		}
		matched = append(matched, a)
	}
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].TriggeredAt.After(matched[j].TriggeredAt)
	})

	if filter.Offset >= len(matched) {
		return nil, nil
	}
	matched = matched[filter.Offset:]
	if len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

func (s *MemoryAlertStore) Get(_ context.Context, id string) (model.Alert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx, ok := s.byID[id]
	if !ok {
		return model.Alert{}, ErrAlertNotFound
	}
	return s.alerts[idx], nil
}

func (s *MemoryAlertStore) Acknowledge(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx, ok := s.byID[id]
	if !ok {
		return ErrAlertNotFound
	}
	s.alerts[idx].Acknowledged = true
	return nil
}

func (s *MemoryAlertStore) Count(context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.alerts), nil
}
