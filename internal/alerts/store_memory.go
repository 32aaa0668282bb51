package alerts

import (
	"context"
	"sort"
	"sync"

	id "medledger/pkg/domain"
	"medledger/pkg/platform/sentinel"
)

// InMemoryStore keeps alerts in a map; dev and test backend.
type InMemoryStore struct {
	mu     sync.RWMutex
	alerts map[id.AlertID]*Alert
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{alerts: make(map[id.AlertID]*Alert)}
}

func (s *InMemoryStore) Insert(_ context.Context, alert *Alert) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *alert
	s.alerts[alert.ID] = &cp
	return nil
}

func (s *InMemoryStore) Get(_ context.Context, alertID id.AlertID) (*Alert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	alert, ok := s.alerts[alertID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *alert
	return &cp, nil
}

func (s *InMemoryStore) Update(_ context.Context, alert *Alert) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.alerts[alert.ID]; !ok {
		return sentinel.ErrNotFound
	}
	cp := *alert
	s.alerts[alert.ID] = &cp
	return nil
}

func (s *InMemoryStore) ListActive(_ context.Context, programID id.ProgramID, filter ListFilter) ([]*Alert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*Alert
	for _, alert := range s.alerts {
		if alert.ProgramID != programID || alert.Status != StatusActive {
			continue
		}
		if filter.Severity != "" && alert.Severity != filter.Severity {
			continue
		}
		if !filter.ResidentID.IsNil() && alert.ResidentID != filter.ResidentID {
			continue
		}
		if !filter.Since.IsZero() && alert.RaisedAt.Before(filter.Since) {
			continue
		}
		cp := *alert
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RaisedAt.After(out[j].RaisedAt) })
	return out, nil
}
