// Package memory is an in-process RecordMirror used by tests and when no
// spreadsheet is configured.
package memory

import (
	"context"
	"sync"

	"fintrack/internal/core"
	ports "fintrack/internal/sheets"
)

type Store struct {
	mu   sync.Mutex
	rows [][]string
}

var _ ports.RecordMirror = (*Store)(nil)

func New() *Store {
	return &Store{}
}

// AppendRecord stores one row unless the record is already present.
func (s *Store) AppendRecord(_ context.Context, userID string, kind core.Kind, r core.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.indexLocked(r.ID) >= 0 {
		return nil
	}
	s.rows = append(s.rows, ports.Row(userID, kind, r))
	return nil
}

// DeleteRecord drops the row with the given record ID, if any.
func (s *Store) DeleteRecord(_ context.Context, recordID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexLocked(recordID); i >= 0 {
		s.rows = append(s.rows[:i:i], s.rows[i+1:]...)
	}
	return nil
}

// Rows returns a copy of the mirrored rows in Header column order.
func (s *Store) Rows() [][]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][]string, len(s.rows))
	for i, r := range s.rows {
		out[i] = append([]string(nil), r...)
	}
	return out
}

func (s *Store) indexLocked(id string) int {
	for i, r := range s.rows {
		if r[0] == id {
			return i
		}
	}
	return -1
}
