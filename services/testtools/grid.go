// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package testtools

import (
	"context"
	"database/sql"
	"log/slog"
	"strconv"
	"time"
)

// queryTimeout bounds each grid query.
const queryTimeout = 30 * time.Second

// Table is one result grid rendered by the frontend. A query failure
// fills Error and leaves the grid empty so the remaining tables still
// render.
type Table struct {
	Name        string           `json:"name"`
	DisplayName string           `json:"displayName"`
	Source      string           `json:"source"`
	Group       string           `json:"group"`
	Columns     []string         `json:"columns"`
	Rows        []map[string]any `json:"rows"`
	RowCount    int              `json:"rowCount"`
	Error       string           `json:"error,omitempty"`
}

// tableSpec is the plan for one grid: identity plus the query to run.
type tableSpec struct {
	name        string
	displayName string
	source      string
	group       string
	query       string
	args        []any
}

// runSpecs executes each spec against the handle, converting failures
// into error grids instead of aborting the lookup.
func runSpecs(ctx context.Context, db *sql.DB, specs []tableSpec) []Table {
	tables := make([]Table, 0, len(specs))
	for _, spec := range specs {
		tables = append(tables, queryGrid(ctx, db, spec))
	}
	return tables
}

// rowQuerier is satisfied by both *sql.DB and *sql.Tx.
type rowQuerier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// queryRows runs a query and returns its rows as ordered maps.
func queryRows(ctx context.Context, q rowQuerier, query string, args ...any) ([]map[string]any, error) {
	qctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	rows, err := q.QueryContext(qctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	names := dedupColumns(cols)

	out := []map[string]any{}
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		row := make(map[string]any, len(cols))
		for i, name := range names {
			row[name] = normalizeValue(values[i])
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// rowExists reports whether the query returns at least one row.
func rowExists(ctx context.Context, q rowQuerier, query string, args ...any) (bool, error) {
	qctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	rows, err := q.QueryContext(qctx, query, args...)
	if err != nil {
		return false, err
	}
	defer rows.Close()

	exists := rows.Next()
	return exists, rows.Err()
}

func queryGrid(ctx context.Context, db *sql.DB, spec tableSpec) Table {
	t := Table{
		Name:        spec.name,
		DisplayName: spec.displayName,
		Source:      spec.source,
		Group:       spec.group,
		Columns:     []string{},
		Rows:        []map[string]any{},
	}

	qctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	rows, err := db.QueryContext(qctx, spec.query, spec.args...)
	if err != nil {
		slog.Warn("Grid query failed", "table", spec.name, "error", err)
		t.Error = err.Error()
		return t
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		t.Error = err.Error()
		return t
	}
	t.Columns = dedupColumns(cols)

	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			t.Error = err.Error()
			return t
		}
		row := make(map[string]any, len(cols))
		for i, col := range t.Columns {
			row[col] = normalizeValue(values[i])
		}
		t.Rows = append(t.Rows, row)
	}
	if err := rows.Err(); err != nil {
		t.Error = err.Error()
	}
	t.RowCount = len(t.Rows)
	return t
}

// dedupColumns suffixes repeated column names with their ordinal so
// "SELECT extra_col, *" projections keep every column addressable.
func dedupColumns(cols []string) []string {
	seen := make(map[string]bool, len(cols))
	out := make([]string, len(cols))
	for i, col := range cols {
		name := col
		if seen[name] {
			name = name + "_" + strconv.Itoa(i+1)
		}
		seen[name] = true
		out[i] = name
	}
	return out
}

// normalizeValue makes a scanned value JSON friendly: timestamps become
// strings, numeric byte slices (how the driver hands back DECIMAL)
// render as their digits, and anything else binary is masked.
func normalizeValue(v any) any {
	switch val := v.(type) {
	case time.Time:
		return val.Format("2006-01-02 15:04:05")
	case []byte:
		if isNumericBytes(val) {
			return string(val)
		}
		return "[binary]"
	default:
		return v
	}
}

func isNumericBytes(b []byte) bool {
	if len(b) == 0 {
		return false
	}
	for i, c := range b {
		if c >= '0' && c <= '9' {
			continue
		}
		if c == '.' || (c == '-' && i == 0) {
			continue
		}
		return false
	}
	return true
}
