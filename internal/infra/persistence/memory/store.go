// Package memory keeps microdata in process memory.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"cpstables/pkg/domain"
)

// Store implements domain.MicrodataStore over maps. Writes replace whole
// years or tables, so readers never observe a partial swap.
type Store struct {
	mu     sync.RWMutex
	years  map[int][]domain.Observation
	tables map[string][]domain.AggregateRow
}

var _ domain.MicrodataStore = (*Store)(nil)

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		years:  make(map[int][]domain.Observation),
		tables: make(map[string][]domain.AggregateRow),
	}
}

// ReplaceYear swaps the stored observations of year.
func (s *Store) ReplaceYear(ctx context.Context, year int, obs []domain.Observation) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	for i, o := range obs {
		if o.Year != year {
			return fmt.Errorf("observation %d belongs to year %d, not %d", i, o.Year, year)
		}
	}
	cp := append([]domain.Observation(nil), obs...)
	s.mu.Lock()
	s.years[year] = cp
	s.mu.Unlock()
	return nil
}

// LoadObservations returns observations inside filter ordered by month key
// and natural key.
func (s *Store) LoadObservations(ctx context.Context, filter domain.MicrodataFilter) ([]domain.Observation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	var out []domain.Observation
	for _, obs := range s.years {
		for _, o := range obs {
			if filter.Includes(o.MonthKey) {
				out = append(out, o)
			}
		}
	}
	s.mu.RUnlock()
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.MonthKey != b.MonthKey {
			return a.MonthKey < b.MonthKey
		}
		if a.Key.SurveyID != b.Key.SurveyID {
			return a.Key.SurveyID < b.Key.SurveyID
		}
		return a.Key.LineNumber < b.Key.LineNumber
	})
	return out, nil
}

// ReplaceTable swaps the rows of the named table.
func (s *Store) ReplaceTable(ctx context.Context, name string, rows []domain.AggregateRow) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if name == "" {
		return fmt.Errorf("table name required")
	}
	cp := make([]domain.AggregateRow, len(rows))
	for i, r := range rows {
		cp[i] = r.Clone()
	}
	s.mu.Lock()
	s.tables[name] = cp
	s.mu.Unlock()
	return nil
}

// LoadTable returns a copy of the named table's rows.
func (s *Store) LoadTable(ctx context.Context, name string) ([]domain.AggregateRow, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows := s.tables[name]
	out := make([]domain.AggregateRow, len(rows))
	for i, r := range rows {
		out[i] = r.Clone()
	}
	return out, nil
}

// Close is a no-op.
func (s *Store) Close() error { return nil }
