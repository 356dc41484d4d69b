// Package convert wires the conversion pipeline: chunked grouping, split
// resolution, enrichment, and serialization. Every stage works record by
// record; only one chunk of raw records is ever held in memory.
package convert

import (
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/reubano/csv2ofx/pkg/mappings"
	"github.com/reubano/csv2ofx/pkg/models"
	"github.com/reubano/csv2ofx/pkg/reader"
)

// DefaultChunkSize bounds peak memory for very large statements.
const DefaultChunkSize = 1_000_000

// Options are the run-level conversion settings.
type Options struct {
	// AccountTypes and DefType come from the target format: OFX and QIF
	// classify accounts with different keyword tables.
	AccountTypes models.AccountTypes
	DefType      string

	// Date window; zero values leave the corresponding bound open.
	Start time.Time
	End   time.Time

	// Collapse names the column used to merge split legs that belong to
	// the same side of a double-entry transaction.
	Collapse string

	// SplitAccount names a column holding a synthetic transfer
	// destination for single-entry statements.
	SplitAccount string

	ChunkSize int
}

// Serializer is one output format. Header and Footer frame the document;
// Transaction is called once per entry in emission order and may carry
// state between calls (previous group, balance statistics).
type Serializer interface {
	Header(w io.Writer) error
	Transaction(w io.Writer, e Entry) error
	Footer(w io.Writer) error
}

// Converter runs the pipeline for one statement with one mapping.
type Converter struct {
	logger  *log.Logger
	mapping *mappings.Mapping
	opts    Options
}

// New builds a converter. The mapping is copied when the split-account
// option overrides its transfer destination field.
func New(mapping *mappings.Mapping, opts Options, logger *log.Logger) (*Converter, error) {
	if mapping.IsSplit && mapping.ID == nil {
		return nil, fmt.Errorf("mapping %q is marked split but has no id field to group legs by", mapping.Name)
	}
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = DefaultChunkSize
	}
	if opts.SplitAccount != "" {
		m := *mapping
		m.SplitAccount = mappings.Column(opts.SplitAccount)
		mapping = &m
	}
	return &Converter{logger: logger, mapping: mapping, opts: opts}, nil
}

// Convert streams records from src through the pipeline into w. Output is
// written incrementally; a fatal validation error mid-stream aborts with
// partial output already flushed, which is why all errors abort the run.
func (c *Converter) Convert(w io.Writer, src reader.RecordReader, s Serializer) error {
	if err := s.Header(w); err != nil {
		return err
	}

	// In split mode a group's legs must land in one chunk. Tracking the
	// keys already emitted turns silent mis-grouping into a hard error.
	var seen map[string]bool
	if c.mapping.IsSplit {
		seen = make(map[string]bool)
	}

	chunks := 0
	for {
		chunk, err := readChunk(src, c.opts.ChunkSize)
		if err != nil {
			return err
		}
		if len(chunk) == 0 {
			break
		}
		chunks++

		groups, err := c.groupChunk(chunk)
		if err != nil {
			return err
		}
		c.logger.Debug("processing chunk", "chunk", chunks, "records", len(chunk), "groups", len(groups))

		for _, g := range groups {
			if seen != nil {
				if seen[g.key] {
					return &models.SplitSpansChunksError{Group: g.key}
				}
				seen[g.key] = true
			}

			entries, err := c.resolveGroup(g)
			if err != nil {
				return err
			}
			for _, e := range entries {
				if err := s.Transaction(w, e); err != nil {
					return err
				}
			}
		}
	}

	return s.Footer(w)
}
