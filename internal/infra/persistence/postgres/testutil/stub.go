// Package testutil provides a stub database/sql driver for postgres store tests.
// It understands the statement shapes the journal emits: keyed inserts with
// ON CONFLICT, single-column deletes and full-table selects.
package testutil

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"io"
	"maps"
	"regexp"
	"strings"
	"sync"
	"sync/atomic"
)

var (
	insertRe = regexp.MustCompile(`(?is)^\s*INSERT\s+INTO\s+(\w+)\s*\(([^)]*)\)`)
	deleteRe = regexp.MustCompile(`(?is)^\s*DELETE\s+FROM\s+(\w+)\s+WHERE\s+(\w+)\s*=`)
	selectRe = regexp.MustCompile(`(?is)^\s*SELECT\s+(.+?)\s+FROM\s+(\w+)`)
)

type row = map[string]any

// StubConn keeps table rows in memory. Writes made inside a transaction are
// staged and applied only when the commit succeeds.
type StubConn struct {
	mu     sync.Mutex
	tables map[string][]row
	staged []func()
	inTx   bool

	// FailCommit makes every commit fail.
	FailCommit bool
	// CommitErrs are returned, in order, by the next commits.
	CommitErrs []error
	// FailTables makes selects from the named tables fail.
	FailTables map[string]bool
	// Commits counts successful commits.
	Commits int
}

var stubSeq atomic.Int64

// NewStubDB registers a fresh driver and returns a sql.DB bound to it.
func NewStubDB() (*sql.DB, *StubConn) {
	conn := &StubConn{tables: make(map[string][]row)}
	name := fmt.Sprintf("genealogy-stub-%d", stubSeq.Add(1))
	sql.Register(name, stubDriver{conn})
	db, err := sql.Open(name, "")
	if err != nil {
		panic(err)
	}
	return db, conn
}

// Rows returns a copy of the committed rows of table.
func (c *StubConn) Rows(table string) []map[string]any {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]map[string]any, 0, len(c.tables[table]))
	for _, r := range c.tables[table] {
		out = append(out, maps.Clone(r))
	}
	return out
}

type stubDriver struct{ conn *StubConn }

func (d stubDriver) Open(string) (driver.Conn, error) { return d.conn, nil }

func (c *StubConn) Prepare(string) (driver.Stmt, error) {
	return nil, errors.New("stub: prepared statements are not supported")
}

func (c *StubConn) Close() error { return nil }

func (c *StubConn) Begin() (driver.Tx, error) {
	return c.BeginTx(context.Background(), driver.TxOptions{})
}

func (c *StubConn) Ping(context.Context) error { return nil }

func (c *StubConn) BeginTx(context.Context, driver.TxOptions) (driver.Tx, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.inTx, c.staged = true, nil
	return stubTx{c}, nil
}

func (c *StubConn) ExecContext(_ context.Context, query string, args []driver.NamedValue) (driver.Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	apply, err := c.mutation(query, args)
	if err != nil {
		return nil, err
	}
	if c.inTx {
		c.staged = append(c.staged, apply)
	} else {
		apply()
	}
	return driver.RowsAffected(1), nil
}

// mutation turns a write statement into a function that applies it.
// Statements of any other shape apply nothing.
func (c *StubConn) mutation(query string, args []driver.NamedValue) (func(), error) {
	if m := insertRe.FindStringSubmatch(query); m != nil {
		table, cols := strings.ToLower(m[1]), columns(m[2])
		if len(cols) != len(args) {
			return nil, fmt.Errorf("stub: %s has %d columns and %d args", table, len(cols), len(args))
		}
		r := make(row, len(cols))
		for i, col := range cols {
			r[col] = args[i].Value
		}
		upsert := strings.Contains(strings.ToUpper(query), "ON CONFLICT")
		return func() {
			if upsert {
				c.tables[table] = dropWhere(c.tables[table], cols[0], r[cols[0]])
			}
			c.tables[table] = append(c.tables[table], r)
		}, nil
	}
	if m := deleteRe.FindStringSubmatch(query); m != nil {
		if len(args) == 0 {
			return nil, fmt.Errorf("stub: delete from %s without a key", m[1])
		}
		table, col, key := strings.ToLower(m[1]), strings.ToLower(m[2]), args[0].Value
		return func() { c.tables[table] = dropWhere(c.tables[table], col, key) }, nil
	}
	return func() {}, nil
}

func (c *StubConn) QueryContext(_ context.Context, query string, _ []driver.NamedValue) (driver.Rows, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	m := selectRe.FindStringSubmatch(query)
	if m == nil {
		return nil, fmt.Errorf("stub: unsupported query %q", query)
	}
	table := strings.ToLower(m[2])
	if c.FailTables[table] {
		return nil, fmt.Errorf("stub: select from %s failed", table)
	}
	cols := columns(m[1])
	rows := &stubRows{cols: cols}
	for _, r := range c.tables[table] {
		vals := make([]driver.Value, len(cols))
		for i, col := range cols {
			vals[i] = r[col]
		}
		rows.values = append(rows.values, vals)
	}
	return rows, nil
}

func dropWhere(rows []row, col string, value any) []row {
	kept := rows[:0:0]
	for _, r := range rows {
		if r[col] != value {
			kept = append(kept, r)
		}
	}
	return kept
}

func columns(list string) []string {
	parts := strings.Split(list, ",")
	for i, p := range parts {
		parts[i] = strings.ToLower(strings.TrimSpace(p))
	}
	return parts
}

type stubTx struct{ c *StubConn }

func (t stubTx) Commit() error {
	c := t.c
	c.mu.Lock()
	defer c.mu.Unlock()
	staged := c.staged
	c.inTx, c.staged = false, nil
	switch {
	case c.FailCommit:
		return errors.New("stub: commit failed")
	case len(c.CommitErrs) > 0:
		err := c.CommitErrs[0]
		c.CommitErrs = c.CommitErrs[1:]
		return err
	}
	for _, apply := range staged {
		apply()
	}
	c.Commits++
	return nil
}

func (t stubTx) Rollback() error {
	t.c.mu.Lock()
	defer t.c.mu.Unlock()
	t.c.inTx, t.c.staged = false, nil
	return nil
}

type stubRows struct {
	cols   []string
	values [][]driver.Value
	next   int
}

func (r *stubRows) Columns() []string { return r.cols }
func (r *stubRows) Close() error      { return nil }

func (r *stubRows) Next(dest []driver.Value) error {
	if r.next >= len(r.values) {
		return io.EOF
	}
	copy(dest, r.values[r.next])
	r.next++
	return nil
}
