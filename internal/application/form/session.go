package form

import (
	"github.com/joserochalaredo-arch/8visas-sub000/internal/domain/form"
)

// Session holds the two copies of a record during one save: the confirmed copy
// last read from the gateway and a pending copy carrying unsaved changes.
// Pending is only promoted by Commit after the gateway accepted the write.
type Session struct {
	confirmed *form.FormRecord
	pending   *form.FormRecord
	fresh     bool
}

// NewSession starts a session from a stored record
func NewSession(confirmed *form.FormRecord) *Session {
	return &Session{confirmed: confirmed}
}

// NewFreshSession starts a session for a token that has no stored record yet
func NewFreshSession(record *form.FormRecord) *Session {
	return &Session{confirmed: record, fresh: true}
}

// Confirmed returns the last known remote state
func (s *Session) Confirmed() *form.FormRecord {
	return s.confirmed
}

// Pending returns the working copy, nil outside Begin/Commit
func (s *Session) Pending() *form.FormRecord {
	return s.pending
}

// IsFresh reports whether the record has never been stored
func (s *Session) IsFresh() bool {
	return s.fresh
}

// Begin clones the confirmed copy into a new pending copy. A fresh record keeps
// its creation event so it is published once the insert succeeds.
func (s *Session) Begin() *form.FormRecord {
	s.pending = s.confirmed.Clone()
	if s.fresh {
		for _, event := range s.confirmed.GetDomainEvents() {
			s.pending.AddDomainEvent(event)
		}
	}
	return s.pending
}

// Commit replaces the confirmed copy with the state read back after the write
func (s *Session) Commit(remote *form.FormRecord) {
	s.confirmed = remote
	s.pending = nil
	s.fresh = false
}

// Rollback drops the pending copy and leaves the confirmed copy untouched
func (s *Session) Rollback() {
	s.pending = nil
}
