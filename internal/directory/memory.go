package directory

import (
	"context"
	"sync"

	id "medledger/pkg/domain"
	"medledger/pkg/platform/sentinel"
)

// InMemoryDirectory is a seedable Directory for dev and tests. The production
// deployment points this port at the case-management directory service.
type InMemoryDirectory struct {
	mu        sync.RWMutex
	residents map[id.ResidentID]*Resident
	staff     map[id.StaffID]*Staff
	programs  map[id.ProgramID]*Program
}

func NewInMemory() *InMemoryDirectory {
	return &InMemoryDirectory{
		residents: make(map[id.ResidentID]*Resident),
		staff:     make(map[id.StaffID]*Staff),
		programs:  make(map[id.ProgramID]*Program),
	}
}

// SeedResident registers a resident and returns it for test convenience.
func (d *InMemoryDirectory) SeedResident(residentID id.ResidentID, programID id.ProgramID, name string) *Resident {
	d.mu.Lock()
	defer d.mu.Unlock()
	r := &Resident{ID: residentID, ProgramID: programID, Name: name}
	d.residents[residentID] = r
	return r
}

// SeedStaff registers a staff member.
func (d *InMemoryDirectory) SeedStaff(staffID id.StaffID, name string) *Staff {
	d.mu.Lock()
	defer d.mu.Unlock()
	s := &Staff{ID: staffID, Name: name}
	d.staff[staffID] = s
	return s
}

// SeedProgram registers a program.
func (d *InMemoryDirectory) SeedProgram(programID id.ProgramID, name string) *Program {
	d.mu.Lock()
	defer d.mu.Unlock()
	p := &Program{ID: programID, Name: name}
	d.programs[programID] = p
	return p
}

func (d *InMemoryDirectory) Resident(_ context.Context, residentID id.ResidentID) (*Resident, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if r, ok := d.residents[residentID]; ok {
		cp := *r
		return &cp, nil
	}
	return nil, sentinel.ErrNotFound
}

func (d *InMemoryDirectory) Staff(_ context.Context, staffID id.StaffID) (*Staff, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if s, ok := d.staff[staffID]; ok {
		cp := *s
		return &cp, nil
	}
	return nil, sentinel.ErrNotFound
}

func (d *InMemoryDirectory) Program(_ context.Context, programID id.ProgramID) (*Program, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if p, ok := d.programs[programID]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, sentinel.ErrNotFound
}
