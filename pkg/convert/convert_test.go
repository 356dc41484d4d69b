package convert

import (
	"io"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reubano/csv2ofx/pkg/mappings"
	"github.com/reubano/csv2ofx/pkg/models"
	"github.com/reubano/csv2ofx/pkg/reader"
)

// capture records everything a conversion run emits.
type capture struct {
	entries []Entry
	footers int
}

func (c *capture) Header(io.Writer) error { return nil }
func (c *capture) Footer(io.Writer) error { c.footers++; return nil }
func (c *capture) Transaction(_ io.Writer, e Entry) error {
	c.entries = append(c.entries, e)
	return nil
}

func testLogger() *log.Logger {
	return log.New(io.Discard)
}

func run(t *testing.T, mapping *mappings.Mapping, opts Options, csv string) (*capture, error) {
	t.Helper()
	c, err := New(mapping, opts, testLogger())
	require.NoError(t, err)

	src := reader.NewCSV(strings.NewReader(csv), reader.Options{
		HasHeader: mapping.HasHeader,
		Delimiter: mapping.Delimiter,
		FirstRow:  mapping.FirstRow,
		LastRow:   mapping.LastRow,
		FirstCol:  mapping.FirstCol,
	})

	got := &capture{}
	err = c.Convert(io.Discard, src, got)
	return got, err
}

func mustMapping(t *testing.T, name string) *mappings.Mapping {
	t.Helper()
	m, err := mappings.Lookup(name)
	require.NoError(t, err)
	return m
}

const defaultHeader = "Account,Date,Amount,Reference,Description,Notes,Num,Row,Category\n"

// defaultRow builds a row for the default mapping with the optional
// columns blank.
func defaultRow(account, date, amt, payee string) string {
	return strings.Join([]string{account, date, amt, "", payee, "", "", "", ""}, ",") + "\n"
}

const xeroHeader = "AccountName,JournalDate,NetAmount,Description,Product,Resource,JournalNumber,Reference,Category\n"

func xeroRow(account, date, amt, payee, journal, category string) string {
	return strings.Join([]string{account, date, amt, payee, "", "", journal, "", category}, ",") + "\n"
}

func TestConvertGroupsByAccount(t *testing.T) {
	csv := defaultHeader +
		defaultRow("A", "2010-06-12", "10", "first") +
		defaultRow("B", "2010-06-12", "20", "second") +
		defaultRow("A", "2010-06-13", "30", "third")

	got, err := run(t, mustMapping(t, "default"), Options{}, csv)
	require.NoError(t, err)
	require.Len(t, got.entries, 3)

	// Groups are emitted in key order; members keep source order.
	assert.Equal(t, "A", got.entries[0].Trxn.Account)
	assert.Equal(t, "first", got.entries[0].Trxn.Payee)
	assert.True(t, got.entries[0].IsMain)
	assert.Equal(t, "A", got.entries[1].Trxn.Account)
	assert.Equal(t, "third", got.entries[1].Trxn.Payee)
	assert.False(t, got.entries[1].IsMain)
	assert.Equal(t, "B", got.entries[2].Trxn.Account)
	assert.True(t, got.entries[2].IsMain)
	assert.Equal(t, 1, got.footers)
}

func TestConvertIDsAreDeterministic(t *testing.T) {
	csv := defaultHeader +
		defaultRow("A", "2010-06-12", "10", "coffee") +
		defaultRow("A", "2010-06-12", "10", "coffee again")

	first, err := run(t, mustMapping(t, "default"), Options{}, csv)
	require.NoError(t, err)
	second, err := run(t, mustMapping(t, "default"), Options{}, csv)
	require.NoError(t, err)

	require.Len(t, first.entries, 2)
	require.Len(t, second.entries, 2)
	for i := range first.entries {
		assert.Equal(t, first.entries[i].Trxn.ID, second.entries[i].Trxn.ID)
	}
	// Rows differing in content get different ids.
	assert.NotEqual(t, first.entries[0].Trxn.ID, first.entries[1].Trxn.ID)
}

func TestConvertSplitMainLeg(t *testing.T) {
	csv := xeroHeader +
		xeroRow("Groceries", "2010-06-12", "350", "weekly shop", "7", "") +
		xeroRow("Checking", "2010-06-12", "-450", "weekly shop", "7", "") +
		xeroRow("Cashback", "2010-06-12", "100", "weekly shop", "7", "")

	got, err := run(t, mustMapping(t, "xero"), Options{}, csv)
	require.NoError(t, err)
	require.Len(t, got.entries, 3)

	// The largest absolute amount leads; the rest keep source order.
	assert.True(t, got.entries[0].IsMain)
	assert.Equal(t, "Checking", got.entries[0].Trxn.Account)
	assert.Equal(t, "Groceries", got.entries[1].Trxn.Account)
	assert.Equal(t, "Cashback", got.entries[2].Trxn.Account)
	for _, e := range got.entries {
		assert.Equal(t, 3, e.Legs)
	}
}

func TestConvertSplitUnbalanced(t *testing.T) {
	csv := xeroHeader +
		xeroRow("Groceries", "2010-06-12", "350", "shop", "7", "") +
		xeroRow("Checking", "2010-06-12", "-400", "shop", "7", "")

	_, err := run(t, mustMapping(t, "xero"), Options{}, csv)
	var uerr *models.UnbalancedSplitError
	require.ErrorAs(t, err, &uerr)
	assert.Equal(t, "7", uerr.Group)
	assert.Equal(t, "-50", uerr.Sum.String())
}

func TestConvertSplitSpanningChunks(t *testing.T) {
	// Chunk size 2 lands the legs of journal 7 in different chunks.
	csv := xeroHeader +
		xeroRow("Groceries", "2010-06-12", "0", "a", "7", "") +
		xeroRow("Rent", "2010-06-12", "0", "b", "8", "") +
		xeroRow("Checking", "2010-06-12", "0", "c", "7", "")

	_, err := run(t, mustMapping(t, "xero"), Options{ChunkSize: 2}, csv)
	var serr *models.SplitSpansChunksError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, "7", serr.Group)
}

func TestConvertDateWindow(t *testing.T) {
	csv := defaultHeader +
		defaultRow("A", "2010-06-12", "10", "in") +
		defaultRow("A", "2011-06-12", "20", "out")

	opts := Options{
		Start: time.Date(2010, 1, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2010, 12, 31, 0, 0, 0, 0, time.UTC),
	}
	got, err := run(t, mustMapping(t, "default"), opts, csv)
	require.NoError(t, err)
	require.Len(t, got.entries, 1)
	assert.Equal(t, "in", got.entries[0].Trxn.Payee)
	assert.True(t, got.entries[0].IsMain)
}

func TestConvertCollapse(t *testing.T) {
	// Two expense legs in the same category fold into one.
	csv := xeroHeader +
		xeroRow("Groceries", "2010-06-12", "100", "shop", "7", "food") +
		xeroRow("Groceries", "2010-06-12", "50", "shop", "7", "food") +
		xeroRow("Checking", "2010-06-12", "-150", "shop", "7", "cash")

	got, err := run(t, mustMapping(t, "xero"), Options{Collapse: "Category"}, csv)
	require.NoError(t, err)
	require.Len(t, got.entries, 2)

	assert.True(t, got.entries[0].IsMain)
	assert.Equal(t, "-150", got.entries[0].Trxn.Amount.String())
	assert.Equal(t, "150", got.entries[1].Trxn.Amount.String())
	for _, e := range got.entries {
		assert.Equal(t, 2, e.Legs)
	}
}

func TestConvertSplitAccountOverride(t *testing.T) {
	csv := defaultHeader +
		strings.Join([]string{"A", "2010-06-12", "-25", "", "dinner", "", "", "", "Restaurants"}, ",") + "\n"

	got, err := run(t, mustMapping(t, "default"), Options{SplitAccount: "Category"}, csv)
	require.NoError(t, err)
	require.Len(t, got.entries, 1)
	assert.Equal(t, "Restaurants", got.entries[0].Trxn.SplitAccount)
	assert.NotEmpty(t, got.entries[0].Trxn.SplitAccountID)
}

func TestConvertSignConvention(t *testing.T) {
	csv := defaultHeader +
		defaultRow("A", "2010-06-12", "-1000", "rent") +
		defaultRow("A", "2010-06-13", "500", "salary")

	got, err := run(t, mustMapping(t, "default"), Options{}, csv)
	require.NoError(t, err)
	require.Len(t, got.entries, 2)
	assert.Equal(t, "DEBIT", got.entries[0].Trxn.Type)
	assert.Equal(t, "-1000", got.entries[0].Trxn.Amount.String())
	assert.Equal(t, "CREDIT", got.entries[1].Trxn.Type)
	assert.Equal(t, "500", got.entries[1].Trxn.Amount.String())
}

func TestConvertExplicitDebitType(t *testing.T) {
	m := &mappings.Mapping{
		Name:      "typed",
		HasHeader: true,
		Account:   mappings.Column("account"),
		Date:      mappings.Column("date"),
		Amount:    mappings.Column("amount"),
		Type:      mappings.Column("type"),
	}
	csv := "account,date,amount,type\n" +
		"Checking,2010-06-12,1000,debit\n"

	got, err := run(t, m, Options{}, csv)
	require.NoError(t, err)
	require.Len(t, got.entries, 1)
	assert.Equal(t, "DEBIT", got.entries[0].Trxn.Type)
	assert.Equal(t, "-1000", got.entries[0].Trxn.Amount.String(), "debit rows are negated regardless of input sign")
}

func TestConvertInvestmentDetection(t *testing.T) {
	m := &mappings.Mapping{
		Name:      "brokerage",
		HasHeader: true,
		Account:   mappings.Column("account"),
		Date:      mappings.Column("date"),
		Amount:    mappings.Column("amount"),
		Shares:    mappings.Column("shares"),
		Symbol:    mappings.Column("symbol"),
		Category:  mappings.Column("category"),
	}
	csv := "account,date,amount,shares,symbol,category\n" +
		"Vanguard Roth IRA,2010-06-12,-1000,10,VTSAX,buy investment\n"

	got, err := run(t, m, Options{}, csv)
	require.NoError(t, err)
	require.Len(t, got.entries, 1)

	trxn := got.entries[0].Trxn
	assert.True(t, trxn.IsInvestment)
	assert.Equal(t, "1000", trxn.Amount.String(), "investment amounts are positive")
	assert.Equal(t, "100", trxn.Price.String(), "price derived from amount and shares")
	assert.Equal(t, "Buy", trxn.Action)
	assert.Equal(t, "BuyX", trxn.XAction)
}

func TestNewRejectsSplitMappingWithoutID(t *testing.T) {
	m := &mappings.Mapping{
		Name:    "bad",
		IsSplit: true,
		Account: mappings.Column("a"),
		Date:    mappings.Column("d"),
		Amount:  mappings.Column("m"),
	}
	_, err := New(m, Options{}, testLogger())
	require.Error(t, err)
}
