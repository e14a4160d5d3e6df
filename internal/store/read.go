package store

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
)

// Result is a fully materialized query result. Every cell is rendered as
// text; SQL NULL becomes "NULL".
type Result struct {
	Columns []string
	Rows    [][]string
}

// Query runs an arbitrary read-only statement against the mirror.
func (m *Mirror) Query(ctx context.Context, query string, args ...any) (*Result, error) {
	rows, err := m.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("query columns: %w", err)
	}

	res := &Result{Columns: cols, Rows: [][]string{}}
	for rows.Next() {
		cells := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range cells {
			ptrs[i] = &cells[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}

		row := make([]string, len(cols))
		for i, c := range cells {
			row[i] = formatCell(c)
		}
		res.Rows = append(res.Rows, row)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return res, nil
}

// EventCount returns the number of mirrored events.
func (m *Mirror) EventCount(ctx context.Context) (int, error) {
	var n int
	if err := m.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM events").Scan(&n); err != nil {
		return 0, fmt.Errorf("count events: %w", err)
	}
	return n, nil
}

// IntervalRow is one row of the intervals table.
type IntervalRow struct {
	Category string
	Subject  string
	StartTS  int64
	EndTS    sql.NullInt64
	Pending  bool
}

// Intervals returns the mirrored intervals of category ordered by start
// time, then insertion order.
func (m *Mirror) Intervals(ctx context.Context, category string) ([]IntervalRow, error) {
	rows, err := m.db.QueryContext(ctx, `
		SELECT category, subject, start_ts, end_ts, pending
		FROM intervals
		WHERE category = ?
		ORDER BY start_ts ASC, id ASC
	`, category)
	if err != nil {
		return nil, fmt.Errorf("query intervals: %w", err)
	}
	defer rows.Close()

	out := []IntervalRow{}
	for rows.Next() {
		var r IntervalRow
		if err := rows.Scan(&r.Category, &r.Subject, &r.StartTS, &r.EndTS, &r.Pending); err != nil {
			return nil, fmt.Errorf("scan interval: %w", err)
		}
		out = append(out, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate intervals: %w", err)
	}
	return out, nil
}

func formatCell(v any) string {
	switch val := v.(type) {
	case nil:
		return "NULL"
	case []byte:
		return string(val)
	case string:
		return val
	case int64:
		return strconv.FormatInt(val, 10)
	case float64:
		return strconv.FormatFloat(val, 'g', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return fmt.Sprint(val)
	}
}
