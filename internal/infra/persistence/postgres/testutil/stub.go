// Package testutil provides an in-memory database/sql driver that understands
// the handful of statements the microdata store issues against Postgres.
package testutil

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"sync/atomic"
)

// StubConn records statements and keeps table rows in memory.
type StubConn struct {
	Execs      []string
	Tables     map[string][]map[string]any
	FailExec   bool
	FailBegin  bool
	FailCommit bool
	RowsErr    error

	pending map[string][]map[string]any
}

var stubSeq atomic.Int64

// NewStubDB registers a uniquely named driver and opens a sql.DB on it.
func NewStubDB() (*sql.DB, *StubConn) {
	conn := &StubConn{Tables: make(map[string][]map[string]any)}
	name := fmt.Sprintf("stubpg%d", stubSeq.Add(1))
	sql.Register(name, &stubDriver{conn: conn})
	db, err := sql.Open(name, "stub")
	if err != nil {
		panic(err)
	}
	db.SetMaxOpenConns(1)
	return db, conn
}

type stubDriver struct {
	conn *StubConn
}

func (d *stubDriver) Open(string) (driver.Conn, error) { return d.conn, nil }

// Prepare implements driver.Conn.
func (c *StubConn) Prepare(string) (driver.Stmt, error) { return nil, fmt.Errorf("not implemented") }

// Close implements driver.Conn.
func (c *StubConn) Close() error { return nil }

// Begin implements driver.Conn.
func (c *StubConn) Begin() (driver.Tx, error) {
	return c.BeginTx(context.Background(), driver.TxOptions{})
}

// Ping implements driver.Pinger.
func (c *StubConn) Ping(context.Context) error {
	if c.FailExec {
		return fmt.Errorf("ping fail")
	}
	return nil
}

// BeginTx snapshots the tables so Rollback can restore them.
func (c *StubConn) BeginTx(context.Context, driver.TxOptions) (driver.Tx, error) {
	if c.FailBegin {
		return nil, fmt.Errorf("begin fail")
	}
	c.pending = make(map[string][]map[string]any, len(c.Tables))
	for k, v := range c.Tables {
		c.pending[k] = append([]map[string]any(nil), v...)
	}
	return &stubTx{conn: c}, nil
}

// ExecContext implements driver.ExecerContext.
func (c *StubConn) ExecContext(_ context.Context, query string, args []driver.NamedValue) (driver.Result, error) {
	c.Execs = append(c.Execs, query)
	if c.FailExec {
		return nil, fmt.Errorf("exec fail")
	}
	upper := strings.ToUpper(strings.TrimSpace(query))
	switch {
	case strings.HasPrefix(upper, "INSERT INTO"):
		table, cols, err := parseInsert(query)
		if err != nil {
			return nil, err
		}
		if len(cols) != len(args) {
			return nil, fmt.Errorf("column/arg mismatch for %s", table)
		}
		row := make(map[string]any, len(cols))
		for i, col := range cols {
			row[col] = args[i].Value
		}
		c.Tables[table] = append(c.Tables[table], row)
		return driver.RowsAffected(1), nil
	case strings.HasPrefix(upper, "DELETE FROM"):
		table, where, _, err := parseQuery(query, "delete from ")
		if err != nil {
			return nil, err
		}
		var kept []map[string]any
		var n int64
		for _, row := range c.Tables[table] {
			ok, err := where.match(row, args)
			if err != nil {
				return nil, err
			}
			if ok {
				n++
				continue
			}
			kept = append(kept, row)
		}
		c.Tables[table] = kept
		return driver.RowsAffected(n), nil
	}
	return driver.RowsAffected(0), nil
}

// QueryContext implements driver.QueryerContext for single-table selects with
// an optional AND-joined WHERE and ORDER BY.
func (c *StubConn) QueryContext(_ context.Context, query string, args []driver.NamedValue) (driver.Rows, error) {
	lower := strings.ToLower(strings.TrimSpace(query))
	if !strings.HasPrefix(lower, "select ") {
		return nil, fmt.Errorf("cannot parse select: %s", query)
	}
	fromIdx := strings.Index(lower, " from ")
	if fromIdx == -1 {
		return nil, fmt.Errorf("cannot parse select: %s", query)
	}
	cols := splitColumns(strings.TrimSpace(query)[len("select "):fromIdx])
	table, where, order, err := parseQuery(strings.TrimSpace(query)[fromIdx+1:], "from ")
	if err != nil {
		return nil, err
	}
	var matched []map[string]any
	for _, row := range c.Tables[table] {
		ok, err := where.match(row, args)
		if err != nil {
			return nil, err
		}
		if ok {
			matched = append(matched, row)
		}
	}
	sort.SliceStable(matched, func(i, j int) bool {
		for _, col := range order {
			if d := compare(matched[i][col], matched[j][col]); d != 0 {
				return d < 0
			}
		}
		return false
	})
	values := make([][]driver.Value, 0, len(matched))
	for _, row := range matched {
		vals := make([]driver.Value, len(cols))
		for i, col := range cols {
			vals[i] = row[col]
		}
		values = append(values, vals)
	}
	return &stubRows{cols: cols, rows: values, err: c.RowsErr}, nil
}

type stubTx struct {
	conn *StubConn
}

func (t *stubTx) Commit() error {
	if t.conn.FailCommit {
		t.conn.Tables = t.conn.pending
		return fmt.Errorf("commit fail")
	}
	t.conn.pending = nil
	return nil
}

func (t *stubTx) Rollback() error {
	if t.conn.pending != nil {
		t.conn.Tables = t.conn.pending
		t.conn.pending = nil
	}
	return nil
}

type stubRows struct {
	cols []string
	rows [][]driver.Value
	idx  int
	err  error
}

func (r *stubRows) Columns() []string { return r.cols }
func (r *stubRows) Close() error      { return nil }

func (r *stubRows) Next(dest []driver.Value) error {
	if r.idx >= len(r.rows) {
		if r.err != nil {
			return r.err
		}
		return io.EOF
	}
	copy(dest, r.rows[r.idx])
	r.idx++
	return nil
}

type predicate struct {
	col string
	op  string
	arg int
}

type predicates []predicate

func (ps predicates) match(row map[string]any, args []driver.NamedValue) (bool, error) {
	for _, p := range ps {
		if p.arg < 1 || p.arg > len(args) {
			return false, fmt.Errorf("missing bind parameter $%d", p.arg)
		}
		d := compare(row[p.col], args[p.arg-1].Value)
		var ok bool
		switch p.op {
		case "=":
			ok = d == 0
		case ">=":
			ok = d >= 0
		case "<=":
			ok = d <= 0
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

// parseQuery splits "<prefix>table [WHERE a op $n AND ...] [ORDER BY c, ...]".
func parseQuery(query, prefix string) (string, predicates, []string, error) {
	lower := strings.ToLower(query)
	if !strings.HasPrefix(lower, prefix) {
		return "", nil, nil, fmt.Errorf("cannot parse %q", query)
	}
	rest := strings.TrimSpace(query[len(prefix):])
	var order []string
	if i := strings.Index(strings.ToLower(rest), " order by "); i >= 0 {
		order = splitColumns(rest[i+len(" order by "):])
		rest = rest[:i]
	}
	var where predicates
	if i := strings.Index(strings.ToLower(rest), " where "); i >= 0 {
		for _, cond := range strings.Split(rest[i+len(" where "):], " AND ") {
			p, err := parsePredicate(cond)
			if err != nil {
				return "", nil, nil, err
			}
			where = append(where, p)
		}
		rest = rest[:i]
	}
	return strings.ToLower(strings.TrimSpace(rest)), where, order, nil
}

func parsePredicate(cond string) (predicate, error) {
	for _, op := range []string{">=", "<=", "="} {
		parts := strings.SplitN(cond, op, 2)
		if len(parts) != 2 {
			continue
		}
		n, err := strconv.Atoi(strings.TrimPrefix(strings.TrimSpace(parts[1]), "$"))
		if err != nil {
			return predicate{}, fmt.Errorf("cannot parse predicate %q", cond)
		}
		return predicate{col: strings.ToLower(strings.TrimSpace(parts[0])), op: op, arg: n}, nil
	}
	return predicate{}, fmt.Errorf("cannot parse predicate %q", cond)
}

func parseInsert(query string) (string, []string, error) {
	up := strings.ToUpper(query)
	intoIdx := strings.Index(up, "INTO ")
	if intoIdx == -1 {
		return "", nil, fmt.Errorf("cannot parse insert: %s", query)
	}
	rest := strings.TrimSpace(query[intoIdx+len("INTO "):])
	open := strings.Index(rest, "(")
	closeIdx := strings.Index(rest, ")")
	if open == -1 || closeIdx == -1 || closeIdx <= open {
		return "", nil, fmt.Errorf("cannot parse insert: %s", query)
	}
	return strings.ToLower(strings.TrimSpace(rest[:open])), splitColumns(rest[open+1 : closeIdx]), nil
}

func splitColumns(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		out = append(out, strings.ToLower(strings.TrimSpace(part)))
	}
	return out
}

func compare(a, b any) int {
	switch av := a.(type) {
	case int64:
		if bv, ok := b.(int64); ok {
			switch {
			case av < bv:
				return -1
			case av > bv:
				return 1
			}
			return 0
		}
	case string:
		if bv, ok := b.(string); ok {
			return strings.Compare(av, bv)
		}
	}
	return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
}
