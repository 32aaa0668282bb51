package administration

import (
	"context"
	"sort"
	"sync"

	id "medledger/pkg/domain"
	"medledger/pkg/platform/sentinel"
)

// InMemoryStore keeps events in an append-only slice.
type InMemoryStore struct {
	mu     sync.RWMutex
	events []*Event
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

func (s *InMemoryStore) Append(_ context.Context, event *Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *event
	s.events = append(s.events, &cp)
	return nil
}

func (s *InMemoryStore) List(_ context.Context, programID id.ProgramID, filter ListFilter) (*Page, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []*Event
	for _, event := range s.events {
		if event.ProgramID != programID {
			continue
		}
		if !filter.Start.IsZero() && event.Date.Before(filter.Start) {
			continue
		}
		if !filter.End.IsZero() && event.Date.After(filter.End) {
			continue
		}
		if filter.Shift != "" && event.Shift != filter.Shift {
			continue
		}
		if filter.Action != "" && event.Action != filter.Action {
			continue
		}
		cp := *event
		matched = append(matched, &cp)
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	limit := filter.Limit
	if limit <= 0 {
		limit = DefaultPageSize
	}
	offset := max(0, filter.Offset)

	total := len(matched)
	if offset >= total {
		matched = nil
	} else {
		matched = matched[offset:min(offset+limit, total)]
	}
	return &Page{Events: matched, Total: total, Limit: limit, Offset: offset}, nil
}

func (s *InMemoryStore) LastByMedication(_ context.Context, medicationID id.MedicationID) (*Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var last *Event
	for _, event := range s.events {
		if event.MedicationID != medicationID {
			continue
		}
		if last == nil || event.CreatedAt.After(last.CreatedAt) {
			last = event
		}
	}
	if last == nil {
		return nil, sentinel.ErrNotFound
	}
	cp := *last
	return &cp, nil
}
