// Package ofx emits OFX (SGML flavored) statements. Tag layout follows the
// historical csv2ofx output byte for byte, including the MS Money quirks.
package ofx

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/reubano/csv2ofx/pkg/convert"
	"github.com/reubano/csv2ofx/pkg/models"
)

// AccountTypes classifies accounts by name for OFX ACCTTYPE tags. Ordered:
// first keyword match wins.
var AccountTypes = models.AccountTypes{
	{Type: "CHECKING", Keywords: []string{"checking", "income", "receivable", "payable"}},
	{Type: "SAVINGS", Keywords: []string{"savings"}},
	{Type: "MONEYMRKT", Keywords: []string{"market", "cash", "expenses"}},
	{Type: "CREDITLINE", Keywords: []string{"visa", "master", "express", "discover"}},
}

// DefaultAccountType is used when no keyword matches.
const DefaultAccountType = "CHECKING"

// Config controls one OFX serialization run.
type Config struct {
	IsSplit         bool
	HasSplitAccount bool

	// MSMoney switches on the stricter header, noon-GMT timestamps,
	// 32-char payees, and a mandatory ledger balance.
	MSMoney bool
	// StrictBalance makes a missing ledger balance fatal even outside
	// MS Money mode.
	StrictBalance bool

	Language   string
	ServerDate time.Time
	Start      time.Time
	End        time.Time
}

// Serializer holds the cross-transaction state: the previous group for
// block framing and the running statistics for balance-order inference.
type Serializer struct {
	cfg       Config
	respType  string
	prevGroup string
	hasGroup  bool
	lastData  *models.Transaction
	stats     balanceStats
}

// New builds an OFX serializer. Zero Start/End default to the epoch and
// the server date.
func New(cfg Config) *Serializer {
	if cfg.Language == "" {
		cfg.Language = "ENG"
	}
	if cfg.ServerDate.IsZero() {
		cfg.ServerDate = time.Now()
	}
	if cfg.Start.IsZero() {
		cfg.Start = time.Unix(0, 0).UTC()
	}
	if cfg.End.IsZero() {
		cfg.End = cfg.ServerDate
	}

	respType := "STMTTRNRS"
	if cfg.HasSplitAccount {
		respType = "INTRATRNRS"
	}
	return &Serializer{cfg: cfg, respType: respType}
}

var escaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

func esc(s string) string {
	return escaper.Replace(s)
}

func stamp(t time.Time) string {
	return t.Format("20060102150405")
}

// Header writes the signon block.
func (s *Serializer) Header(w io.Writer) error {
	var b strings.Builder
	if s.cfg.MSMoney {
		b.WriteString("OFXHEADER:100\n")
	}
	b.WriteString("DATA:OFXSGML\n")
	if s.cfg.MSMoney {
		b.WriteString("VERSION:102\n")
		b.WriteString("SECURITY:NONE\n")
		b.WriteString("ENCODING:USASCII\n")
		b.WriteString("CHARSET:1252\n")
		b.WriteString("COMPRESSION:NONE\n")
		b.WriteString("OLDFILEUID:NONE\n")
		b.WriteString("NEWFILEUID:NONE\n")
	} else {
		b.WriteString("ENCODING:UTF-8\n")
	}
	b.WriteString("<OFX>\n")
	b.WriteString("\t<SIGNONMSGSRSV1>\n")
	b.WriteString("\t\t<SONRS>\n")
	b.WriteString("\t\t\t<STATUS>\n")
	b.WriteString("\t\t\t\t<CODE>0</CODE>\n")
	b.WriteString("\t\t\t\t<SEVERITY>INFO</SEVERITY>\n")
	b.WriteString("\t\t\t</STATUS>\n")
	fmt.Fprintf(&b, "\t\t\t<DTSERVER>%s</DTSERVER>\n", stamp(s.cfg.ServerDate))
	fmt.Fprintf(&b, "\t\t\t<LANGUAGE>%s</LANGUAGE>\n", s.cfg.Language)
	b.WriteString("\t\t</SONRS>\n")
	b.WriteString("\t</SIGNONMSGSRSV1>\n")
	b.WriteString("\t<BANKMSGSRSV1>\n")
	fmt.Fprintf(&b, "\t\t<%s>\n", s.respType)
	if s.cfg.MSMoney {
		b.WriteString("\t\t\t<TRNUID>1</TRNUID>\n")
	} else {
		b.WriteString("\t\t\t<TRNUID></TRNUID>\n")
	}
	b.WriteString("\t\t\t<STATUS>\n")
	b.WriteString("\t\t\t\t<CODE>0</CODE>\n")
	b.WriteString("\t\t\t\t<SEVERITY>INFO</SEVERITY>\n")
	b.WriteString("\t\t\t</STATUS>\n")

	_, err := io.WriteString(w, b.String())
	return err
}

// transactionData finalizes one transaction for emission: class folded
// into the memo, and the MS Money payee and timestamp rules.
func (s *Serializer) transactionData(t *models.Transaction) *models.Transaction {
	d := *t
	if d.Memo != "" && d.Class != "" {
		d.Memo = d.Memo + " " + d.Class
	} else if d.Memo == "" {
		d.Memo = d.Class
	}
	if s.cfg.MSMoney {
		if runes := []rune(d.Payee); len(runes) > 32 {
			d.Payee = string(runes[:32])
		}
		// Per the MS Money OFX troubleshooting guide, midnight datetimes
		// display off-by-one-day in western timezones; noon GMT does not.
		if h, m, sec := d.Date.Clock(); h == 0 && m == 0 && sec == 0 {
			d.Date = d.Date.Add(12 * time.Hour)
		}
	}
	return &d
}

// Transaction emits one entry, closing and opening account or transfer
// blocks at group boundaries.
func (s *Serializer) Transaction(w io.Writer, e convert.Entry) error {
	if s.cfg.IsSplit && e.Legs > 2 {
		return &models.TooManySplitsError{Group: e.Group, Legs: e.Legs}
	}

	data := s.transactionData(e.Trxn)
	splitLike := s.cfg.IsSplit || s.cfg.HasSplitAccount
	fullSplit := s.cfg.IsSplit && s.cfg.HasSplitAccount
	newGroup := s.hasGroup && s.prevGroup != e.Group

	var b strings.Builder

	if newGroup && fullSplit {
		s.transferEnd(&b, data.Date)
	} else if newGroup && !splitLike {
		if err := s.accountClose(&b, data.Date, data.Balance); err != nil {
			return err
		}
	}

	switch {
	case s.cfg.HasSplitAccount:
		s.transfer(&b, data)
		s.splitContent(&b, data)
		s.transferEnd(&b, data.Date)
	case s.cfg.IsSplit && e.IsMain:
		s.transfer(&b, data)
	case s.cfg.IsSplit:
		s.splitContent(&b, data)
	case e.IsMain:
		s.stats.observe(data)
		s.accountStart(&b, data)
		s.transaction(&b, data)
	default:
		s.stats.observe(data)
		s.transaction(&b, data)
	}

	s.prevGroup = e.Group
	s.hasGroup = true
	s.lastData = data

	_, err := io.WriteString(w, b.String())
	return err
}

// rangeStamp formats DTSTART/DTEND values. MS Money gets a fixed noon
// time suffix, plain OFX a bare date.
func (s *Serializer) rangeStamp(t time.Time) string {
	if s.cfg.MSMoney {
		return t.Format("20060102") + "120000"
	}
	return t.Format("20060102")
}

func (s *Serializer) accountStart(b *strings.Builder, d *models.Transaction) {
	b.WriteString("\t\t\t<STMTRS>\n")
	fmt.Fprintf(b, "\t\t\t\t<CURDEF>%s</CURDEF>\n", esc(d.Currency))
	b.WriteString("\t\t\t\t<BANKACCTFROM>\n")
	fmt.Fprintf(b, "\t\t\t\t\t<BANKID>%s</BANKID>\n", esc(d.BankID))
	fmt.Fprintf(b, "\t\t\t\t\t<ACCTID>%s</ACCTID>\n", esc(d.AccountID))
	fmt.Fprintf(b, "\t\t\t\t\t<ACCTTYPE>%s</ACCTTYPE>\n", d.AccountType)
	b.WriteString("\t\t\t\t</BANKACCTFROM>\n")
	b.WriteString("\t\t\t\t<BANKTRANLIST>\n")
	fmt.Fprintf(b, "\t\t\t\t\t<DTSTART>%s</DTSTART>\n", s.rangeStamp(s.cfg.Start))
	fmt.Fprintf(b, "\t\t\t\t\t<DTEND>%s</DTEND>\n", s.rangeStamp(s.cfg.End))
}

func (s *Serializer) transaction(b *strings.Builder, d *models.Transaction) {
	b.WriteString("\t\t\t\t\t<STMTTRN>\n")
	fmt.Fprintf(b, "\t\t\t\t\t\t<TRNTYPE>%s</TRNTYPE>\n", d.Type)
	fmt.Fprintf(b, "\t\t\t\t\t\t<DTPOSTED>%s</DTPOSTED>\n", stamp(d.Date))
	fmt.Fprintf(b, "\t\t\t\t\t\t<TRNAMT>%s</TRNAMT>\n", d.Amount.StringFixed(2))
	fmt.Fprintf(b, "\t\t\t\t\t\t<FITID>%s</FITID>\n", esc(d.ID))
	if d.CheckNum != "" {
		fmt.Fprintf(b, "\t\t\t\t\t\t<CHECKNUM>%s</CHECKNUM>\n", esc(d.CheckNum))
	}
	if d.Payee != "" {
		fmt.Fprintf(b, "\t\t\t\t\t\t<NAME>%s</NAME>\n", esc(d.Payee))
	}
	if d.Memo != "" {
		fmt.Fprintf(b, "\t\t\t\t\t\t<MEMO>%s</MEMO>\n", esc(d.Memo))
	}
	b.WriteString("\t\t\t\t\t</STMTTRN>\n")
}

func (s *Serializer) accountEnd(b *strings.Builder, date time.Time, balance *decimal.Decimal) {
	b.WriteString("\t\t\t\t</BANKTRANLIST>\n")
	if balance != nil {
		b.WriteString("\t\t\t\t<LEDGERBAL>\n")
		fmt.Fprintf(b, "\t\t\t\t\t<BALAMT>%s</BALAMT>\n", balance.StringFixed(2))
		fmt.Fprintf(b, "\t\t\t\t\t<DTASOF>%s</DTASOF>\n", stamp(date))
		b.WriteString("\t\t\t\t</LEDGERBAL>\n")
	}
	b.WriteString("\t\t\t</STMTRS>\n")
}

func (s *Serializer) transfer(b *strings.Builder, d *models.Transaction) {
	b.WriteString("\t\t\t<INTRARS>\n")
	fmt.Fprintf(b, "\t\t\t\t<CURDEF>%s</CURDEF>\n", esc(d.Currency))
	fmt.Fprintf(b, "\t\t\t\t<SRVRTID>%s</SRVRTID>\n", esc(d.ID))
	b.WriteString("\t\t\t\t<XFERINFO>\n")
	fmt.Fprintf(b, "\t\t\t\t\t<TRNAMT>%s</TRNAMT>\n", d.Amount.StringFixed(2))
	b.WriteString("\t\t\t\t\t<BANKACCTFROM>\n")
	fmt.Fprintf(b, "\t\t\t\t\t\t<BANKID>%s</BANKID>\n", esc(d.BankID))
	fmt.Fprintf(b, "\t\t\t\t\t\t<ACCTID>%s</ACCTID>\n", esc(d.AccountID))
	fmt.Fprintf(b, "\t\t\t\t\t\t<ACCTTYPE>%s</ACCTTYPE>\n", d.AccountType)
	b.WriteString("\t\t\t\t\t</BANKACCTFROM>\n")
}

func (s *Serializer) splitContent(b *strings.Builder, d *models.Transaction) {
	b.WriteString("\t\t\t\t\t<BANKACCTTO>\n")
	fmt.Fprintf(b, "\t\t\t\t\t\t<BANKID>%s</BANKID>\n", esc(d.BankID))
	if d.SplitAccount != "" {
		fmt.Fprintf(b, "\t\t\t\t\t\t<ACCTID>%s</ACCTID>\n", esc(d.SplitAccountID))
		fmt.Fprintf(b, "\t\t\t\t\t\t<ACCTTYPE>%s</ACCTTYPE>\n", d.SplitAccountType)
	} else {
		fmt.Fprintf(b, "\t\t\t\t\t\t<ACCTID>%s</ACCTID>\n", esc(d.AccountID))
		fmt.Fprintf(b, "\t\t\t\t\t\t<ACCTTYPE>%s</ACCTTYPE>\n", d.AccountType)
	}
	b.WriteString("\t\t\t\t\t</BANKACCTTO>\n")
}

func (s *Serializer) transferEnd(b *strings.Builder, date time.Time) {
	b.WriteString("\t\t\t\t</XFERINFO>\n")
	fmt.Fprintf(b, "\t\t\t\t<DTPOSTED>%s</DTPOSTED>\n", stamp(date))
	b.WriteString("\t\t\t</INTRARS>\n")
}

// Footer closes any open block, emitting the ledger balance when one was
// declared or could be inferred from transaction order.
func (s *Serializer) Footer(w io.Writer) error {
	var b strings.Builder

	switch {
	case s.cfg.IsSplit:
		date := s.cfg.ServerDate
		if s.lastData != nil {
			date = s.lastData.Date
		}
		s.transferEnd(&b, date)
	case !s.cfg.HasSplitAccount:
		if err := s.accountClose(&b, s.cfg.ServerDate, nil); err != nil {
			return err
		}
	}

	fmt.Fprintf(&b, "\t\t</%s>\n\t</BANKMSGSRSV1>\n</OFX>\n", s.respType)
	_, err := io.WriteString(w, b.String())
	return err
}

// accountClose closes an account block. A declared balance wins; otherwise
// the balance-order inference picks one from the observed transactions. A
// missing balance is fatal only when the MS Money or strict profile demands
// one.
func (s *Serializer) accountClose(b *strings.Builder, date time.Time, balance *decimal.Decimal) error {
	if balance == nil {
		endTrxn, reason := s.stats.infer()
		if endTrxn != nil && endTrxn.Balance != nil {
			balance = endTrxn.Balance
			date = endTrxn.Date
		} else if s.cfg.MSMoney || s.cfg.StrictBalance {
			// MS Money refuses statements without a LEDGERBAL block.
			return &models.BalanceError{Reason: reason}
		}
	}

	s.accountEnd(b, date, balance)
	return nil
}
