// Package sqlstore implements domain.MicrodataStore over database/sql. The
// sqlite and postgres packages supply the connection and dialect.
package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"sync"

	"cpstables/pkg/domain"
)

// Dialect captures the SQL differences between backends.
type Dialect struct {
	Name string
	// PayloadType is the column type holding JSON documents.
	PayloadType string
	// Placeholder renders the n-th (1-based) bind parameter.
	Placeholder func(n int) string
}

// Store keeps observations and aggregate rows as JSON payloads with the
// columns needed for filtering and ordering broken out.
type Store struct {
	db *sql.DB
	d  Dialect
	mu sync.Mutex
}

var _ domain.MicrodataStore = (*Store)(nil)

// New ensures the schema exists and returns a store over db.
func New(ctx context.Context, db *sql.DB, d Dialect) (*Store, error) {
	s := &Store{db: db, d: d}
	for _, stmt := range s.schema() {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return nil, fmt.Errorf("%s: ensure schema: %w", d.Name, err)
		}
	}
	return s, nil
}

func (s *Store) schema() []string {
	return []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS observations (
		year INTEGER NOT NULL,
		month_key INTEGER NOT NULL,
		survey_id BIGINT NOT NULL,
		line_number BIGINT NOT NULL,
		seq INTEGER NOT NULL,
		payload %s NOT NULL
	)`, s.d.PayloadType),
		`CREATE INDEX IF NOT EXISTS observations_year ON observations(year)`,
		`CREATE INDEX IF NOT EXISTS observations_month ON observations(month_key)`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS aggregate_rows (
		name TEXT NOT NULL,
		seq INTEGER NOT NULL,
		payload %s NOT NULL,
		PRIMARY KEY (name, seq)
	)`, s.d.PayloadType),
	}
}

func (s *Store) ph(n int) string { return s.d.Placeholder(n) }

func (s *Store) insert(table string, cols ...string) string {
	ps := make([]string, len(cols))
	for i := range cols {
		ps[i] = s.ph(i + 1)
	}
	return fmt.Sprintf("INSERT INTO %s(%s) VALUES(%s)", table, strings.Join(cols, ", "), strings.Join(ps, ", "))
}

// DB exposes the underlying handle for tests.
func (s *Store) DB() *sql.DB { return s.db }

// ReplaceYear deletes and reinserts a year's observations in one transaction.
func (s *Store) ReplaceYear(ctx context.Context, year int, obs []domain.Observation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM observations WHERE year = "+s.ph(1), year); err != nil {
			return fmt.Errorf("delete year %d: %w", year, err)
		}
		stmt := s.insert("observations", "year", "month_key", "survey_id", "line_number", "seq", "payload")
		for i, o := range obs {
			if o.Year != year {
				return fmt.Errorf("observation %d belongs to year %d, not %d", i, o.Year, year)
			}
			payload, err := json.Marshal(o)
			if err != nil {
				return fmt.Errorf("encode observation %d: %w", i, err)
			}
			if _, err := tx.ExecContext(ctx, stmt, year, o.MonthKey, o.Key.SurveyID, o.Key.LineNumber, i, payload); err != nil {
				return fmt.Errorf("insert observation %d: %w", i, err)
			}
		}
		return nil
	})
}

// LoadObservations returns observations inside filter ordered by month key
// and natural key.
func (s *Store) LoadObservations(ctx context.Context, filter domain.MicrodataFilter) ([]domain.Observation, error) {
	to := filter.ToMonth
	if to == 0 {
		to = math.MaxInt32
	}
	q := fmt.Sprintf("SELECT payload FROM observations WHERE month_key >= %s AND month_key <= %s ORDER BY month_key, survey_id, line_number, seq",
		s.ph(1), s.ph(2))
	rows, err := s.db.QueryContext(ctx, q, filter.FromMonth, to)
	if err != nil {
		return nil, fmt.Errorf("select observations: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var out []domain.Observation
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan observation: %w", err)
		}
		var o domain.Observation
		if err := json.Unmarshal(payload, &o); err != nil {
			return nil, fmt.Errorf("decode observation: %w", err)
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate observations: %w", err)
	}
	return out, nil
}

// ReplaceTable swaps the named table's rows in one transaction.
func (s *Store) ReplaceTable(ctx context.Context, name string, rows []domain.AggregateRow) error {
	if name == "" {
		return fmt.Errorf("table name required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM aggregate_rows WHERE name = "+s.ph(1), name); err != nil {
			return fmt.Errorf("delete table %s: %w", name, err)
		}
		stmt := s.insert("aggregate_rows", "name", "seq", "payload")
		for i, r := range rows {
			payload, err := json.Marshal(r)
			if err != nil {
				return fmt.Errorf("encode row %d: %w", i, err)
			}
			if _, err := tx.ExecContext(ctx, stmt, name, i, payload); err != nil {
				return fmt.Errorf("insert row %d: %w", i, err)
			}
		}
		return nil
	})
}

// LoadTable returns the named table's rows in insertion order.
func (s *Store) LoadTable(ctx context.Context, name string) ([]domain.AggregateRow, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT payload FROM aggregate_rows WHERE name = "+s.ph(1)+" ORDER BY seq", name)
	if err != nil {
		return nil, fmt.Errorf("select table %s: %w", name, err)
	}
	defer func() { _ = rows.Close() }()
	var out []domain.AggregateRow
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		var r domain.AggregateRow
		if err := json.Unmarshal(payload, &r); err != nil {
			return nil, fmt.Errorf("decode row: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate table %s: %w", name, err)
	}
	return out, nil
}

// Close closes the database handle.
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) inTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	committed = true
	return nil
}
