package medaudit

import (
	"context"
	"sort"
	"sync"

	id "medledger/pkg/domain"
	"medledger/pkg/platform/sentinel"
)

// InMemoryStore keeps audit sessions in a map guarded by one mutex. Sessions
// are copied on every boundary crossing so callers never share line slices
// with the store.
type InMemoryStore struct {
	mu       sync.RWMutex
	sessions map[id.AuditSessionID]*AuditSession
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{sessions: make(map[id.AuditSessionID]*AuditSession)}
}

func (s *InMemoryStore) Insert(_ context.Context, session *AuditSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.sessions[session.ID]; exists {
		return sentinel.ErrConflict
	}
	for _, existing := range s.sessions {
		if existing.Status == StatusPending &&
			existing.ProgramID == session.ProgramID &&
			existing.Shift == session.Shift &&
			auditDay(existing.Date) == auditDay(session.Date) {
			return sentinel.ErrConflict
		}
	}
	s.sessions[session.ID] = cloneSession(session)
	return nil
}

func (s *InMemoryStore) Get(_ context.Context, sessionID id.AuditSessionID) (*AuditSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[sessionID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return cloneSession(session), nil
}

func (s *InMemoryStore) Update(_ context.Context, session *AuditSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[session.ID]; !ok {
		return sentinel.ErrNotFound
	}
	s.sessions[session.ID] = cloneSession(session)
	return nil
}

func (s *InMemoryStore) ListPending(_ context.Context, programID id.ProgramID) ([]*AuditSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*AuditSession
	for _, session := range s.sessions {
		if session.ProgramID == programID && session.Status == StatusPending {
			out = append(out, cloneSession(session))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID.String() < out[j].ID.String()
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func cloneSession(session *AuditSession) *AuditSession {
	cp := *session
	cp.Lines = make([]*AuditCountLine, len(session.Lines))
	for i, line := range session.Lines {
		lineCp := *line
		cp.Lines[i] = &lineCp
	}
	return &cp
}
