// Package reader turns statement files into a stream of raw records. Rows
// are pulled one at a time so large exports never sit in memory whole.
package reader

import (
	"fmt"
	"io"

	"github.com/reubano/csv2ofx/pkg/models"
)

// RecordReader is a pull-based record source. Next returns io.EOF when the
// input is exhausted.
type RecordReader interface {
	Next() (models.Record, error)
}

// Options control row and column slicing. They usually come straight from
// the active mapping but the CLI may override them.
type Options struct {
	HasHeader bool
	Delimiter rune // zero means comma
	FirstRow  int  // rows to drop from the top, before the header
	LastRow   int  // when negative, rows to drop from the bottom
	FirstCol  int  // columns to drop from the left
}

// rowSource yields raw string rows; io.EOF at end.
type rowSource interface {
	next() ([]string, error)
}

// records adapts a rowSource into a RecordReader, applying the slicing
// options and header handling shared by every file format.
type records struct {
	src     rowSource
	opts    Options
	columns []string
	row     int
	started bool
	// holdback buffer for negative LastRow: a row is only emitted once
	// enough rows are queued behind it to cover the trimmed tail.
	pending [][]string
}

func newRecords(src rowSource, opts Options) *records {
	return &records{src: src, opts: opts}
}

func (r *records) Next() (models.Record, error) {
	if !r.started {
		if err := r.start(); err != nil {
			return models.Record{}, err
		}
		r.started = true
	}

	for {
		row, err := r.take()
		if err != nil {
			return models.Record{}, err
		}
		if r.opts.FirstCol > 0 {
			if r.opts.FirstCol >= len(row) {
				row = nil
			} else {
				row = row[r.opts.FirstCol:]
			}
		}
		if len(row) == 0 {
			continue
		}
		return models.NewRecord(r.columns, row), nil
	}
}

func (r *records) start() error {
	for i := 0; i < r.opts.FirstRow; i++ {
		if _, err := r.src.next(); err != nil {
			return err
		}
		r.row++
	}

	head, err := r.src.next()
	if err != nil {
		return err
	}
	r.row++

	cols := head
	if r.opts.FirstCol > 0 && r.opts.FirstCol < len(cols) {
		cols = cols[r.opts.FirstCol:]
	}

	if r.opts.HasHeader {
		r.columns = cols
		return nil
	}

	// Headerless input: synthesize column names and replay the first row
	// as data. The row is queued unsliced; Next applies FirstCol to every
	// data row exactly once.
	r.columns = make([]string, len(cols))
	for i := range cols {
		r.columns[i] = fmt.Sprintf("column_%d", i)
	}
	r.pending = append(r.pending, head)
	return nil
}

// take returns the next data row, honoring the LastRow bound.
func (r *records) take() ([]string, error) {
	if r.opts.LastRow > 0 && r.row >= r.opts.LastRow {
		return nil, io.EOF
	}

	trim := 0
	if r.opts.LastRow < 0 {
		trim = -r.opts.LastRow
	}

	for len(r.pending) <= trim {
		row, err := r.src.next()
		if err == io.EOF {
			// Whatever is still pending is the trimmed tail.
			return nil, io.EOF
		}
		if err != nil {
			return nil, err
		}
		r.row++
		r.pending = append(r.pending, row)
	}

	row := r.pending[0]
	r.pending = r.pending[1:]
	return row, nil
}
