package access

import (
	"github.com/trezcool/campus/core/user"
)

// Scope restricts a role to a subset of records.
type Scope interface {
	// Allows reports whether `prof` may touch a record with attributes `rec`.
	Allows(rec Attributes, prof user.Profile) bool
	// Narrow returns the attributes list queries must be pinned to; false when `prof`
	// lacks the attribute the scope relies on.
	Narrow(prof user.Profile) (Attributes, bool)
}

type (
	// OwnerScope: the requester must be one of the record owners (students).
	OwnerScope struct{}
	// HostelBlockScope: the record must be in the block the requester is warden of.
	HostelBlockScope struct{}
	// FacultyScope: the requester must be the faculty of the class.
	FacultyScope struct{}
	// CreatorScope: the requester must have created the record.
	CreatorScope struct{}
)

func (OwnerScope) Allows(rec Attributes, prof user.Profile) bool {
	me := prof.ID.Hex()
	for _, id := range rec.OwnerIDs {
		if id == me {
			return true
		}
	}
	return false
}

func (OwnerScope) Narrow(prof user.Profile) (Attributes, bool) {
	if prof.ID.IsZero() {
		return Attributes{}, false
	}
	return Attributes{OwnerIDs: []string{prof.ID.Hex()}}, true
}

func (HostelBlockScope) Allows(rec Attributes, prof user.Profile) bool {
	return prof.HostelBlockNumber != "" && rec.HostelBlock == prof.HostelBlockNumber
}

func (HostelBlockScope) Narrow(prof user.Profile) (Attributes, bool) {
	if prof.HostelBlockNumber == "" {
		return Attributes{}, false
	}
	return Attributes{HostelBlock: prof.HostelBlockNumber}, true
}

func (FacultyScope) Allows(rec Attributes, prof user.Profile) bool {
	return !prof.ID.IsZero() && rec.FacultyID == prof.ID.Hex()
}

func (FacultyScope) Narrow(prof user.Profile) (Attributes, bool) {
	if prof.ID.IsZero() {
		return Attributes{}, false
	}
	return Attributes{FacultyID: prof.ID.Hex()}, true
}

func (CreatorScope) Allows(rec Attributes, prof user.Profile) bool {
	return !prof.ID.IsZero() && rec.CreatorID == prof.ID.Hex()
}

func (CreatorScope) Narrow(prof user.Profile) (Attributes, bool) {
	if prof.ID.IsZero() {
		return Attributes{}, false
	}
	return Attributes{CreatorID: prof.ID.Hex()}, true
}
