// Package table implements the flat tabular working set produced by the
// harvesters: nested-object flattening, column cleanup rules, and CSV/JSONL
// persistence.
package table

import "sort"

// Row maps column names to values. Values come straight from decoded JSON,
// so scalars are string, bool, float64, or nil.
type Row map[string]any

// Table is an ordered set of columns over a slice of rows. Column order is
// deterministic: object keys are ingested sorted, derived columns keep
// append order.
type Table struct {
	cols []string
	rows []Row
}

// New returns an empty table with no columns.
func New() *Table {
	return &Table{}
}

// FromObjects builds a table from decoded JSON objects. The column set is
// the sorted union of all keys; missing keys read as nil.
func FromObjects(objects []map[string]any) *Table {
	seen := make(map[string]struct{})
	var cols []string
	rows := make([]Row, 0, len(objects))
	for _, obj := range objects {
		row := make(Row, len(obj))
		for k, v := range obj {
			row[k] = v
			if _, ok := seen[k]; !ok {
				seen[k] = struct{}{}
				cols = append(cols, k)
			}
		}
		rows = append(rows, row)
	}
	sort.Strings(cols)
	return &Table{cols: cols, rows: rows}
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return len(t.rows)
}

// Columns returns a copy of the column order.
func (t *Table) Columns() []string {
	out := make([]string, len(t.cols))
	copy(out, t.cols)
	return out
}

// HasColumn reports whether the table carries the named column.
func (t *Table) HasColumn(name string) bool {
	for _, c := range t.cols {
		if c == name {
			return true
		}
	}
	return false
}

// Value returns the cell at row i, or nil when the column is absent.
func (t *Table) Value(i int, col string) any {
	if i < 0 || i >= len(t.rows) {
		return nil
	}
	return t.rows[i][col]
}

// Set writes a cell, appending the column if it is new.
func (t *Table) Set(i int, col string, value any) {
	if i < 0 || i >= len(t.rows) {
		return
	}
	if !t.HasColumn(col) {
		t.cols = append(t.cols, col)
	}
	t.rows[i][col] = value
}

// SetConst tags every row with a constant value, appending the column if
// it is new.
func (t *Table) SetConst(col string, value any) {
	if !t.HasColumn(col) {
		t.cols = append(t.cols, col)
	}
	for _, row := range t.rows {
		row[col] = value
	}
}

// DropEmptyColumns removes columns whose value is nil in every row.
func (t *Table) DropEmptyColumns() {
	kept := t.cols[:0]
	for _, col := range t.cols {
		empty := true
		for _, row := range t.rows {
			if row[col] != nil {
				empty = false
				break
			}
		}
		if empty {
			for _, row := range t.rows {
				delete(row, col)
			}
			continue
		}
		kept = append(kept, col)
	}
	t.cols = kept
}

// FlattenColumn expands a record-valued column into one scalar column per
// subkey, named <col>_<subkey> with subkeys sorted. Rows whose value is not
// an object contribute nil. The source column is left in place; the caller's
// deny-list removes it. An absent column is silently skipped.
func (t *Table) FlattenColumn(col string) {
	if !t.HasColumn(col) {
		return
	}

	seen := make(map[string]struct{})
	var subkeys []string
	for _, row := range t.rows {
		obj, ok := row[col].(map[string]any)
		if !ok {
			continue
		}
		for k := range obj {
			if _, dup := seen[k]; !dup {
				seen[k] = struct{}{}
				subkeys = append(subkeys, k)
			}
		}
	}
	sort.Strings(subkeys)

	for _, sub := range subkeys {
		target := col + "_" + sub
		if !t.HasColumn(target) {
			t.cols = append(t.cols, target)
		}
		for _, row := range t.rows {
			if obj, ok := row[col].(map[string]any); ok {
				row[target] = obj[sub]
			} else {
				row[target] = nil
			}
		}
	}
}

// DropColumns removes the listed columns; absent names are ignored.
func (t *Table) DropColumns(names ...string) {
	drop := make(map[string]struct{}, len(names))
	for _, name := range names {
		drop[name] = struct{}{}
	}

	kept := t.cols[:0]
	for _, col := range t.cols {
		if _, ok := drop[col]; ok {
			for _, row := range t.rows {
				delete(row, col)
			}
			continue
		}
		kept = append(kept, col)
	}
	t.cols = kept
}

// Concat appends the rows of other, extending the column set with any
// columns this table has not seen yet.
func (t *Table) Concat(other *Table) {
	if other == nil || other.Len() == 0 {
		return
	}
	for _, col := range other.cols {
		if !t.HasColumn(col) {
			t.cols = append(t.cols, col)
		}
	}
	t.rows = append(t.rows, other.rows...)
}
