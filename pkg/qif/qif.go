// Package qif emits QIF statements with one !Account block per source
// account and Quicken investment records where the input warrants them.
package qif

import (
	"fmt"
	"io"
	"strings"

	"github.com/reubano/csv2ofx/pkg/convert"
	"github.com/reubano/csv2ofx/pkg/models"
)

// AccountTypes classifies accounts by name for the !Type: line. Ordered:
// first keyword match wins.
var AccountTypes = models.AccountTypes{
	{Type: "Invst", Keywords: []string{"roth", "ira", "401k", "vanguard"}},
	{Type: "Bank", Keywords: []string{"checking", "savings", "market", "income"}},
	{Type: "Oth A", Keywords: []string{"receivable"}},
	{Type: "Oth L", Keywords: []string{"payable"}},
	{Type: "CCard", Keywords: []string{"visa", "master", "express", "discover", "platinum"}},
	{Type: "Cash", Keywords: []string{"cash", "expenses"}},
}

// DefaultAccountType is used when no keyword matches.
const DefaultAccountType = "Bank"

// DefaultDateFmt is the Quicken-classic date layout.
const DefaultDateFmt = "01/02/06"

// Config controls one QIF serialization run.
type Config struct {
	IsSplit         bool
	HasSplitAccount bool

	// DateFmt is a Go time layout for the D line. Defaults to
	// DefaultDateFmt.
	DateFmt string
}

// Serializer tracks the previous account and group so account blocks and
// split records are opened and closed at the right boundaries.
type Serializer struct {
	cfg         Config
	prevAccount string
	prevGroup   string
	hasGroup    bool
}

func New(cfg Config) *Serializer {
	if cfg.DateFmt == "" {
		cfg.DateFmt = DefaultDateFmt
	}
	return &Serializer{cfg: cfg}
}

// Header writes nothing. QIF files have no preamble.
func (s *Serializer) Header(w io.Writer) error {
	return nil
}

// splitMemo merges the memo and class for the E line.
func splitMemo(d *models.Transaction) string {
	if d.Memo != "" && d.Class != "" {
		return d.Memo + " " + d.Class
	}
	if d.Memo != "" {
		return d.Memo
	}
	return d.Class
}

// Transaction emits one entry.
func (s *Serializer) Transaction(w io.Writer, e convert.Entry) error {
	d := e.Trxn
	var b strings.Builder

	if s.hasGroup && s.prevGroup != e.Group && s.cfg.IsSplit {
		b.WriteString("^\n")
	}

	if e.IsMain && s.prevAccount != d.Account {
		s.accountStart(&b, d)
	}

	if !s.cfg.IsSplit || e.IsMain {
		s.transaction(&b, d)
		s.prevAccount = d.Account
	}

	if (s.cfg.IsSplit && !e.IsMain) || s.cfg.HasSplitAccount {
		s.splitContent(&b, d)
	}

	if !s.cfg.IsSplit {
		b.WriteString("^\n")
	}

	s.prevGroup = e.Group
	s.hasGroup = true

	_, err := io.WriteString(w, b.String())
	return err
}

func (s *Serializer) accountStart(b *strings.Builder, d *models.Transaction) {
	fmt.Fprintf(b, "!Account\nN%s\nT%s\n^\n", d.Account, d.AccountType)
}

func (s *Serializer) transaction(b *strings.Builder, d *models.Transaction) {
	fmt.Fprintf(b, "!Type:%s\n", d.AccountType)
	if !d.IsInvestment && d.CheckNum != "" {
		fmt.Fprintf(b, "N%s\n", d.CheckNum)
	}
	fmt.Fprintf(b, "D%s\n", d.Date.Format(s.cfg.DateFmt))

	if d.IsInvestment {
		if s.cfg.HasSplitAccount {
			fmt.Fprintf(b, "N%s\n", d.XAction)
		} else {
			fmt.Fprintf(b, "N%s\n", d.Action)
		}
		fmt.Fprintf(b, "Y%s\n", d.Symbol)
		fmt.Fprintf(b, "I%s\n", d.Price.String())
		fmt.Fprintf(b, "Q%s\n", d.Shares.String())
		b.WriteString("Cc\n")
	} else {
		if d.Payee != "" {
			fmt.Fprintf(b, "P%s\n", d.Payee)
		}
		if d.Class != "" {
			fmt.Fprintf(b, "L%s\n", d.Class)
		}
	}

	if d.Memo != "" {
		fmt.Fprintf(b, "M%s\n", d.Memo)
	}
	if d.IsInvestment && !d.Commission.IsZero() {
		fmt.Fprintf(b, "O%s\n", d.Commission.String())
	}
	fmt.Fprintf(b, "T%s\n", d.Amount.StringFixed(2))
}

func (s *Serializer) splitContent(b *strings.Builder, d *models.Transaction) {
	switch {
	case d.IsInvestment && s.cfg.HasSplitAccount:
		fmt.Fprintf(b, "L%s\n", d.SplitAccount)
	case d.IsInvestment && s.cfg.IsSplit:
		fmt.Fprintf(b, "L%s\n", d.Account)
	case !d.IsInvestment && d.SplitAccount != "":
		fmt.Fprintf(b, "S%s\n", d.SplitAccount)
	case !d.IsInvestment:
		fmt.Fprintf(b, "S%s\n", d.Account)
	default:
		return
	}

	if memo := splitMemo(d); memo != "" {
		fmt.Fprintf(b, "E%s\n", memo)
	}

	amount := d.Amount
	if s.cfg.IsSplit {
		// Double-entry legs carry the counterparty's sign; the split
		// record mirrors it back to the main account's perspective.
		amount = amount.Neg()
	}
	fmt.Fprintf(b, "$%s\n", amount.StringFixed(2))
}

// Footer closes the last split record.
func (s *Serializer) Footer(w io.Writer) error {
	if s.cfg.IsSplit && s.hasGroup {
		_, err := io.WriteString(w, "^\n")
		return err
	}
	return nil
}
