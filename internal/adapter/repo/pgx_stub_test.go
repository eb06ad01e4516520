package repo

import (
	"context"
	"fmt"
	"reflect"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// stubCall is one query seen by stubSQL.
type stubCall struct {
	query string
	args  []any
}

// stubSQL answers queries from per-query handlers keyed by the sqlinline
// constant.
type stubSQL struct {
	exec  map[string]func(args []any) (pgconn.CommandTag, error)
	row   map[string]func(args []any) pgx.Row
	rows  map[string]func(args []any) (pgx.Rows, error)
	calls []stubCall
}

func newStubSQL() *stubSQL {
	return &stubSQL{
		exec: map[string]func([]any) (pgconn.CommandTag, error){},
		row:  map[string]func([]any) pgx.Row{},
		rows: map[string]func([]any) (pgx.Rows, error){},
	}
}

func (s *stubSQL) Exec(_ context.Context, query string, args ...any) (pgconn.CommandTag, error) {
	s.calls = append(s.calls, stubCall{query, args})
	if h, ok := s.exec[query]; ok {
		return h(args)
	}
	return pgconn.CommandTag{}, fmt.Errorf("unexpected exec: %s", query)
}

func (s *stubSQL) QueryRow(_ context.Context, query string, args ...any) pgx.Row {
	s.calls = append(s.calls, stubCall{query, args})
	if h, ok := s.row[query]; ok {
		return h(args)
	}
	return valueRow{err: fmt.Errorf("unexpected query row: %s", query)}
}

func (s *stubSQL) Query(_ context.Context, query string, args ...any) (pgx.Rows, error) {
	s.calls = append(s.calls, stubCall{query, args})
	if h, ok := s.rows[query]; ok {
		return h(args)
	}
	return nil, fmt.Errorf("unexpected query: %s", query)
}

func (s *stubSQL) count(query string) int {
	n := 0
	for _, c := range s.calls {
		if c.query == query {
			n++
		}
	}
	return n
}

func (s *stubSQL) last(query string) []any {
	for i := len(s.calls) - 1; i >= 0; i-- {
		if s.calls[i].query == query {
			return s.calls[i].args
		}
	}
	return nil
}

func tag(s string) pgconn.CommandTag { return pgconn.NewCommandTag(s) }

// valueRow scans fixed values into the destinations by reflection.
type valueRow struct {
	values []any
	err    error
}

func (r valueRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	if len(dest) != len(r.values) {
		return fmt.Errorf("scan: %d destinations for %d values", len(dest), len(r.values))
	}
	for i, v := range r.values {
		target := reflect.ValueOf(dest[i]).Elem()
		if v == nil {
			target.Set(reflect.Zero(target.Type()))
			continue
		}
		target.Set(reflect.ValueOf(v))
	}
	return nil
}

func noRow() pgx.Row { return valueRow{err: pgx.ErrNoRows} }

type testRowsBase struct{}

func (testRowsBase) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (testRowsBase) Conn() *pgx.Conn                              { return nil }
func (testRowsBase) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (testRowsBase) Values() ([]any, error) {
	return nil, fmt.Errorf("values not supported in test rows")
}
func (testRowsBase) RawValues() [][]byte { return nil }

// valueRows iterates a fixed result set.
type valueRows struct {
	testRowsBase
	rows   [][]any
	idx    int
	closed bool
}

func newRows(rows ...[]any) *valueRows { return &valueRows{rows: rows} }

func (r *valueRows) Next() bool {
	if r.idx >= len(r.rows) {
		return false
	}
	r.idx++
	return true
}

func (r *valueRows) Scan(dest ...any) error {
	if r.idx == 0 || r.idx > len(r.rows) {
		return pgx.ErrNoRows
	}
	return valueRow{values: r.rows[r.idx-1]}.Scan(dest...)
}

func (r *valueRows) Close()     { r.closed = true }
func (r *valueRows) Err() error { return nil }
