/*
Package record implements the persistence base layer: a Record with column
dirty-tracking whose loads read through the cache and whose saves write only
dirty columns before refreshing the cache, plus a lazily-materialized Set of
records.
*/
package record

import (
	"errors"
	"sort"
)

// ErrNotFound is returned when no row exists for the requested key.
var ErrNotFound = errors.New("record not found")

// Row is one table row keyed by column name.
type Row map[string]any

// Table identifies a table, its primary key column, and the pool it lives in.
type Table struct {
	Pool string
	Name string
	PK   string
}

// Record is a single row with dirty-column tracking. Obtain records through
// Store.Load or Store.New; the zero value is not usable.
type Record struct {
	table Table
	cols  Row
	dirty map[string]struct{}
	fresh bool
}

// ID returns the primary key value.
func (r *Record) ID() any {
	return r.cols[r.table.PK]
}

// Get returns a column value, nil when the column is absent.
func (r *Record) Get(col string) any {
	return r.cols[col]
}

// Set assigns a column and marks it dirty when the value changed.
func (r *Record) Set(col string, v any) {
	if cur, ok := r.cols[col]; ok && cur == v {
		return
	}
	r.cols[col] = v
	r.dirty[col] = struct{}{}
}

// Dirty returns the modified column names in stable order.
func (r *Record) Dirty() []string {
	out := make([]string, 0, len(r.dirty))
	for c := range r.dirty {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// Fresh reports whether the record has never been persisted.
func (r *Record) Fresh() bool {
	return r.fresh
}

// Columns returns a copy of the row.
func (r *Record) Columns() Row {
	out := make(Row, len(r.cols))
	for k, v := range r.cols {
		out[k] = v
	}
	return out
}

func (r *Record) clearDirty() {
	r.dirty = make(map[string]struct{})
	r.fresh = false
}
