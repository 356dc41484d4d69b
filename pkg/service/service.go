// Package service assembles the conversion pipeline from the run
// configuration: mapping lookup, input reader selection, output format,
// and the converter itself.
package service

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/reubano/csv2ofx/pkg/config"
	"github.com/reubano/csv2ofx/pkg/convert"
	"github.com/reubano/csv2ofx/pkg/mappings"
	"github.com/reubano/csv2ofx/pkg/ofx"
	"github.com/reubano/csv2ofx/pkg/qif"
	"github.com/reubano/csv2ofx/pkg/reader"
)

// Processor converts statements according to one configuration.
type Processor struct {
	config *config.Config
	logger *log.Logger
}

func NewProcessor(cfg *config.Config, logger *log.Logger) *Processor {
	return &Processor{config: cfg, logger: logger}
}

// Mapping resolves the configured mapping. A mapping file beats the
// builtin registry.
func (p *Processor) Mapping() (*mappings.Mapping, error) {
	if p.config.MappingFile != "" {
		return mappings.LoadFile(p.config.MappingFile)
	}
	return mappings.Lookup(p.config.Mapping)
}

// options builds the converter options for one run.
func (p *Processor) options(format string) (convert.Options, error) {
	start, end, err := p.config.Window()
	if err != nil {
		return convert.Options{}, err
	}

	opts := convert.Options{
		Start:        start,
		End:          end,
		Collapse:     p.config.Collapse,
		SplitAccount: p.config.SplitAccount,
		ChunkSize:    p.config.ChunkSize,
		DefType:      p.config.DefType,
	}

	switch format {
	case "ofx":
		opts.AccountTypes = ofx.AccountTypes
		if opts.DefType == "" {
			opts.DefType = ofx.DefaultAccountType
		}
	case "qif":
		opts.AccountTypes = qif.AccountTypes
		if opts.DefType == "" {
			opts.DefType = qif.DefaultAccountType
		}
	default:
		return convert.Options{}, fmt.Errorf("unknown output format %q", format)
	}
	return opts, nil
}

// serializer builds the output serializer for one run.
func (p *Processor) serializer(mapping *mappings.Mapping, serverDate time.Time, opts convert.Options) convert.Serializer {
	isSplit := mapping.IsSplit
	hasSplitAccount := mapping.SplitAccount != nil || p.config.SplitAccount != ""

	if p.config.Format == "qif" {
		dateFmt := mapping.DateFmt
		if dateFmt == "" {
			dateFmt = p.config.DateFormat
		}
		return qif.New(qif.Config{
			IsSplit:         isSplit,
			HasSplitAccount: hasSplitAccount,
			DateFmt:         dateFmt,
		})
	}

	return ofx.New(ofx.Config{
		IsSplit:         isSplit,
		HasSplitAccount: hasSplitAccount,
		MSMoney:         p.config.MSMoney,
		StrictBalance:   p.config.StrictBalance,
		Language:        p.config.Language,
		ServerDate:      serverDate,
		Start:           opts.Start,
		End:             opts.End,
	})
}

// ConvertReader converts one statement. The name picks the input parser
// by extension; serverDate lands in the OFX DTSERVER field.
func (p *Processor) ConvertReader(w io.Writer, r io.ReadSeeker, name string, serverDate time.Time) error {
	mapping, err := p.Mapping()
	if err != nil {
		return err
	}
	opts, err := p.options(p.config.Format)
	if err != nil {
		return err
	}

	readerOpts := reader.Options{
		HasHeader: mapping.HasHeader,
		Delimiter: mapping.Delimiter,
		FirstRow:  mapping.FirstRow,
		LastRow:   mapping.LastRow,
		FirstCol:  mapping.FirstCol,
	}

	var src reader.RecordReader
	if strings.EqualFold(filepath.Ext(name), ".xls") {
		if src, err = reader.NewXLS(r, p.config.Encoding, readerOpts); err != nil {
			return fmt.Errorf("opening %s: %w", name, err)
		}
	} else {
		src = reader.NewCSV(r, readerOpts)
	}

	converter, err := convert.New(mapping, opts, p.logger)
	if err != nil {
		return err
	}

	p.logger.Debug("converting statement", "name", name, "mapping", mapping.Name, "format", p.config.Format)
	return converter.Convert(w, src, p.serializer(mapping, serverDate, opts))
}

// ProcessFile converts one statement file. The file's mtime stands in for
// the statement date, keeping output stable across runs.
func (p *Processor) ProcessFile(w io.Writer, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}

	return p.ConvertReader(w, f, path, info.ModTime())
}
