package domain

import "context"

// MicrodataFilter narrows a microdata load to an inclusive month-key range.
// Zero bounds are open.
type MicrodataFilter struct {
	FromMonth int
	ToMonth   int
}

// Includes reports whether monthKey falls inside the filter.
func (f MicrodataFilter) Includes(monthKey int) bool {
	if f.FromMonth != 0 && monthKey < f.FromMonth {
		return false
	}
	if f.ToMonth != 0 && monthKey > f.ToMonth {
		return false
	}
	return true
}

// MicrodataStore is the persisted microdata artifact: recoded respondent-months
// kept for replay and audit, plus the published aggregate tables.
type MicrodataStore interface {
	// ReplaceYear atomically swaps every stored observation of year for obs.
	ReplaceYear(ctx context.Context, year int, obs []Observation) error
	// LoadObservations returns stored observations ordered by month key and natural key.
	LoadObservations(ctx context.Context, filter MicrodataFilter) ([]Observation, error)
	// ReplaceTable atomically swaps the stored rows of the named aggregate table.
	ReplaceTable(ctx context.Context, name string, rows []AggregateRow) error
	// LoadTable returns the stored rows of the named aggregate table in insertion order.
	LoadTable(ctx context.Context, name string) ([]AggregateRow, error)
	Close() error
}
