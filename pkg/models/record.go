package models

// Record is one raw row from a statement file, keyed by source column name.
// Column order is preserved so hashing and grouping stay deterministic for
// a given input.
type Record struct {
	columns []string
	values  map[string]string
}

// NewRecord builds a record from a header row and a value row. Missing
// trailing values become empty strings, extra values are dropped.
func NewRecord(columns, values []string) Record {
	m := make(map[string]string, len(columns))
	for i, c := range columns {
		if i < len(values) {
			m[c] = values[i]
		} else {
			m[c] = ""
		}
	}
	return Record{columns: columns, values: m}
}

// Get returns the value for a column and whether the column exists.
func (r Record) Get(name string) (string, bool) {
	v, ok := r.values[name]
	return v, ok
}

// Columns returns the column names in source order.
func (r Record) Columns() []string {
	return r.columns
}
