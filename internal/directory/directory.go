// Package directory is the port to the external resident/staff/program
// directory. The case-management system owns those records; this core only
// resolves references and write-time display names through it.
package directory

import (
	"context"

	id "medledger/pkg/domain"
)

// Resident is the minimal projection the core needs of a resident.
type Resident struct {
	ID        id.ResidentID
	ProgramID id.ProgramID
	Name      string
}

// Staff is the minimal projection the core needs of a staff member.
type Staff struct {
	ID   id.StaffID
	Name string
}

// Program is the minimal projection the core needs of a program.
type Program struct {
	ID   id.ProgramID
	Name string
}

// Directory resolves entity references against the authoritative directory
// service. Implementations return sentinel.ErrNotFound (possibly wrapped)
// when a reference does not resolve.
type Directory interface {
	Resident(ctx context.Context, residentID id.ResidentID) (*Resident, error)
	Staff(ctx context.Context, staffID id.StaffID) (*Staff, error)
	Program(ctx context.Context, programID id.ProgramID) (*Program, error)
}
