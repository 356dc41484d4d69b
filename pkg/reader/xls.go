package reader

import (
	"fmt"
	"io"

	"github.com/extrame/xls"
)

// maxXLSRows bounds how much of a worksheet is read. Statement exports are
// small; anything past this is junk rows.
const maxXLSRows = 65536

type xlsSource struct {
	rows [][]string
	pos  int
}

func (s *xlsSource) next() ([]string, error) {
	if s.pos >= len(s.rows) {
		return nil, io.EOF
	}
	row := s.rows[s.pos]
	s.pos++
	return row, nil
}

// NewXLS returns a record reader over a legacy XLS statement. The charset
// is the workbook codepage, typically "utf-8" or "cp1252".
func NewXLS(r io.ReadSeeker, charset string, opts Options) (RecordReader, error) {
	if charset == "" {
		charset = "utf-8"
	}
	workbook, err := xls.OpenReader(r, charset)
	if err != nil {
		return nil, fmt.Errorf("error opening workbook: %w", err)
	}

	rows := workbook.ReadAllCells(maxXLSRows)
	if len(rows) == 0 {
		return nil, fmt.Errorf("no data found in sheet")
	}

	return newRecords(&xlsSource{rows: rows}, opts), nil
}
