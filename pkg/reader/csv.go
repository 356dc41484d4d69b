package reader

import (
	"encoding/csv"
	"fmt"
	"io"
)

type csvSource struct {
	r *csv.Reader
}

func (s *csvSource) next() ([]string, error) {
	row, err := s.r.Read()
	if err == io.EOF {
		return nil, io.EOF
	}
	if err != nil {
		return nil, fmt.Errorf("error reading CSV record: %w", err)
	}
	return row, nil
}

// NewCSV returns a record reader over a CSV statement.
func NewCSV(r io.Reader, opts Options) RecordReader {
	cr := csv.NewReader(r)
	cr.Comma = ','
	if opts.Delimiter != 0 {
		cr.Comma = opts.Delimiter
	}
	cr.FieldsPerRecord = -1 // bank exports love ragged rows
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true
	return newRecords(&csvSource{r: cr}, opts)
}
