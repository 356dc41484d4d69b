// Package mappings holds per-institution field mappings: declarative
// lookups from source CSV columns to the semantic transaction fields the
// converter understands. A mapping is plain data, not a type hierarchy;
// each field is either a constant or a pure function over one record.
package mappings

import (
	"strings"

	"github.com/reubano/csv2ofx/pkg/models"
)

// FieldFunc resolves one semantic field from a raw record.
type FieldFunc func(models.Record) (string, error)

// FilterFunc decides whether a record should be converted at all.
type FilterFunc func(models.Record) bool

// Column returns a FieldFunc reading one source column verbatim. A missing
// column is a MissingFieldError: it signals the mapping does not match the
// file, not a blank value.
func Column(name string) FieldFunc {
	return func(rec models.Record) (string, error) {
		v, ok := rec.Get(name)
		if !ok {
			return "", &models.MissingFieldError{Column: name}
		}
		return v, nil
	}
}

// Const returns a FieldFunc yielding a fixed value for every record.
func Const(value string) FieldFunc {
	return func(models.Record) (string, error) {
		return value, nil
	}
}

// Coalesce returns the first non-empty result of the given funcs. Useful
// for banks that put debits and credits in separate columns.
func Coalesce(funcs ...FieldFunc) FieldFunc {
	return func(rec models.Record) (string, error) {
		for _, f := range funcs {
			v, err := f(rec)
			if err != nil {
				return "", err
			}
			if strings.TrimSpace(v) != "" {
				return v, nil
			}
		}
		return "", nil
	}
}

// Mapping is the full per-institution configuration. Nil field funcs fall
// back to documented defaults at enrichment time (currency "USD", type
// inferred from the amount sign, generated ids).
type Mapping struct {
	Name      string
	HasHeader bool
	IsSplit   bool
	Delimiter rune   // zero means comma
	DateFmt   string // QIF output date layout; empty means 01/02/06
	ParseFmt  string // input date layout tried before the builtin ones

	// Row/column slicing for files with preamble junk.
	FirstRow int
	LastRow  int // negative trims rows off the end
	FirstCol int

	Account      FieldFunc
	AccountID    FieldFunc
	Bank         FieldFunc
	BankID       FieldFunc
	Date         FieldFunc
	Amount       FieldFunc
	Type         FieldFunc
	Payee        FieldFunc
	Desc         FieldFunc
	Notes        FieldFunc
	Class        FieldFunc
	CheckNum     FieldFunc
	ID           FieldFunc
	SplitAccount FieldFunc
	Currency     FieldFunc
	Balance      FieldFunc

	Shares     FieldFunc
	Symbol     FieldFunc
	Price      FieldFunc
	Commission FieldFunc
	Category   FieldFunc

	Filter FilterFunc
}

// Resolve evaluates a field func, treating nil as unset.
func Resolve(f FieldFunc, rec models.Record) (string, error) {
	if f == nil {
		return "", nil
	}
	return f(rec)
}

// ResolveDefault evaluates a field func, substituting def when the field is
// unset or resolves to an empty string.
func ResolveDefault(f FieldFunc, rec models.Record, def string) (string, error) {
	v, err := Resolve(f, rec)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(v) == "" {
		return def, nil
	}
	return v, nil
}
