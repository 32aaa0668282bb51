package registry

import (
	"context"
	"sort"
	"sync"

	id "medledger/pkg/domain"
	"medledger/pkg/platform/sentinel"
)

// InMemoryStore keeps records in a map guarded by one mutex. Critical
// sections are short (no I/O under the lock), so a single lock serializes
// concurrent count mutations without measurable contention at this scale.
type InMemoryStore struct {
	mu      sync.RWMutex
	records map[id.MedicationID]*MedicationRecord
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{records: make(map[id.MedicationID]*MedicationRecord)}
}

func (s *InMemoryStore) Insert(_ context.Context, record *MedicationRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.records[record.ID]; exists {
		return sentinel.ErrConflict
	}
	cp := *record
	s.records[record.ID] = &cp
	return nil
}

func (s *InMemoryStore) Get(_ context.Context, medicationID id.MedicationID) (*MedicationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.records[medicationID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *record
	return &cp, nil
}

func (s *InMemoryStore) ListByProgram(_ context.Context, programID id.ProgramID) ([]*MedicationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*MedicationRecord
	for _, record := range s.records {
		if record.ProgramID == programID && record.Status != StatusDeleted {
			cp := *record
			out = append(out, &cp)
		}
	}
	sortByCreation(out)
	return out, nil
}

func (s *InMemoryStore) ListByResident(_ context.Context, residentID id.ResidentID) ([]*MedicationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*MedicationRecord
	for _, record := range s.records {
		if record.ResidentID == residentID && record.Status != StatusDeleted {
			cp := *record
			out = append(out, &cp)
		}
	}
	sortByCreation(out)
	return out, nil
}

func (s *InMemoryStore) Mutate(_ context.Context, medicationID id.MedicationID, fn func(*MedicationRecord) error) (*MedicationRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.records[medicationID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	working := *record
	if err := fn(&working); err != nil {
		return nil, err
	}
	s.records[medicationID] = &working
	cp := working
	return &cp, nil
}

func (s *InMemoryStore) MutateMany(_ context.Context, medicationIDs []id.MedicationID, fn func(*MedicationRecord) error) ([]*MedicationRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Stage every mutation before committing any, so one failing record
	// leaves the store untouched.
	staged := make([]*MedicationRecord, 0, len(medicationIDs))
	for _, medicationID := range medicationIDs {
		record, ok := s.records[medicationID]
		if !ok {
			return nil, sentinel.ErrNotFound
		}
		working := *record
		if err := fn(&working); err != nil {
			return nil, err
		}
		staged = append(staged, &working)
	}

	out := make([]*MedicationRecord, 0, len(staged))
	for _, record := range staged {
		s.records[record.ID] = record
		cp := *record
		out = append(out, &cp)
	}
	return out, nil
}

func sortByCreation(records []*MedicationRecord) {
	sort.Slice(records, func(i, j int) bool {
		if records[i].CreatedAt.Equal(records[j].CreatedAt) {
			return records[i].ID.String() < records[j].ID.String()
		}
		return records[i].CreatedAt.Before(records[j].CreatedAt)
	})
}
