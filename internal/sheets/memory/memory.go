// Package memory is an in-process LedgerMirror for development and tests.
package memory

import (
	"context"
	"sort"
	"sync"

	"tally/internal/core"
	"tally/internal/sheets"
)

var _ sheets.LedgerMirror = (*Store)(nil)

type Store struct {
	mu     sync.Mutex
	tables map[string][][]string
	writes int
}

func New() *Store {
	return &Store{tables: make(map[string][][]string)}
}

func (s *Store) Mirror(_ context.Context, workspace string, rows []core.LedgerEntry) error {
	table := make([][]string, 0, len(rows)+1)
	table = append(table, append([]string(nil), sheets.Header...))
	for _, r := range rows {
		table = append(table, sheets.Row(r))
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tables[workspace] = table
	s.writes++
	return nil
}

func (s *Store) Remove(_ context.Context, workspace string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tables, workspace)
	return nil
}

// Table returns the mirrored rows of workspace, header first.
func (s *Store) Table(workspace string) ([][]string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tables[workspace]
	return t, ok
}

// Workspaces lists mirrored workspaces in sorted order.
func (s *Store) Workspaces() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.tables))
	for ws := range s.tables {
		out = append(out, ws)
	}
	sort.Strings(out)
	return out
}

// Writes counts successful Mirror calls.
func (s *Store) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}
