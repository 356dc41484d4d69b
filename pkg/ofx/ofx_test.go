package ofx

import (
	"io"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/charmbracelet/log"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reubano/csv2ofx/pkg/convert"
	"github.com/reubano/csv2ofx/pkg/mappings"
	"github.com/reubano/csv2ofx/pkg/models"
	"github.com/reubano/csv2ofx/pkg/reader"
)

var serverDate = time.Date(2012, 1, 1, 0, 0, 0, 0, time.UTC)

func convertCSV(t *testing.T, name, csv string, cfg Config, opts convert.Options) (string, error) {
	t.Helper()
	mapping, err := mappings.Lookup(name)
	require.NoError(t, err)

	opts.AccountTypes = AccountTypes
	if opts.DefType == "" {
		opts.DefType = DefaultAccountType
	}

	c, err := convert.New(mapping, opts, log.New(io.Discard))
	require.NoError(t, err)

	src := reader.NewCSV(strings.NewReader(csv), reader.Options{HasHeader: mapping.HasHeader})

	var out strings.Builder
	err = c.Convert(&out, src, New(cfg))
	return out.String(), err
}

const statementHeader = "Account,Date,Amount,Reference,Description,Notes,Num,Row,Category\n"

func TestHeader(t *testing.T) {
	var out strings.Builder
	s := New(Config{ServerDate: serverDate, Language: "ENG"})
	require.NoError(t, s.Header(&out))

	got := out.String()
	assert.True(t, strings.HasPrefix(got, "DATA:OFXSGML\nENCODING:UTF-8\n<OFX>\n"))
	assert.Contains(t, got, "<DTSERVER>20120101000000</DTSERVER>")
	assert.Contains(t, got, "<LANGUAGE>ENG</LANGUAGE>")
	assert.Contains(t, got, "<STMTTRNRS>")
	assert.Contains(t, got, "<TRNUID></TRNUID>")
	assert.NotContains(t, got, "OFXHEADER:100")
}

func TestHeaderMSMoney(t *testing.T) {
	var out strings.Builder
	s := New(Config{ServerDate: serverDate, MSMoney: true})
	require.NoError(t, s.Header(&out))

	got := out.String()
	assert.True(t, strings.HasPrefix(got, "OFXHEADER:100\nDATA:OFXSGML\nVERSION:102\n"))
	assert.Contains(t, got, "ENCODING:USASCII")
	assert.Contains(t, got, "CHARSET:1252")
	assert.Contains(t, got, "NEWFILEUID:NONE")
	assert.Contains(t, got, "<TRNUID>1</TRNUID>")
}

func TestStatement(t *testing.T) {
	csv := statementHeader +
		"Super Checking,2010-06-12,-1000,,rent,,,,\n" +
		"Super Checking,2010-06-13,500,,salary,,,,\n"

	got, err := convertCSV(t, "default", csv, Config{ServerDate: serverDate}, convert.Options{})
	require.NoError(t, err)

	assert.Contains(t, got, "<STMTRS>")
	assert.Contains(t, got, "<CURDEF>USD</CURDEF>")
	assert.Contains(t, got, "<ACCTTYPE>CHECKING</ACCTTYPE>")
	assert.Contains(t, got, "<TRNTYPE>DEBIT</TRNTYPE>")
	assert.Contains(t, got, "<DTPOSTED>20100612000000</DTPOSTED>")
	assert.Contains(t, got, "<TRNAMT>-1000.00</TRNAMT>")
	assert.Contains(t, got, "<TRNTYPE>CREDIT</TRNTYPE>")
	assert.Contains(t, got, "<TRNAMT>500.00</TRNAMT>")
	assert.Contains(t, got, "<NAME>rent</NAME>")
	assert.True(t, strings.HasSuffix(got, "</STMTTRNRS>\n\t</BANKMSGSRSV1>\n</OFX>\n"))

	// No declared balances and no usable order: no ledger block.
	assert.NotContains(t, got, "<LEDGERBAL>")
}

func TestStatementInfersEndingBalance(t *testing.T) {
	mapping := &mappings.Mapping{
		Name:      "running",
		HasHeader: true,
		Account:   mappings.Column("account"),
		Date:      mappings.Column("date"),
		Amount:    mappings.Column("amount"),
		Balance:   mappings.Column("balance"),
	}
	csv := "account,date,amount,balance\n" +
		"Checking,2010-06-12,100,1100\n" +
		"Checking,2010-06-13,-50,1050\n"

	c, err := convert.New(mapping, convert.Options{AccountTypes: AccountTypes, DefType: DefaultAccountType}, log.New(io.Discard))
	require.NoError(t, err)

	var out strings.Builder
	src := reader.NewCSV(strings.NewReader(csv), reader.Options{HasHeader: true})
	require.NoError(t, c.Convert(&out, src, New(Config{ServerDate: serverDate})))

	got := out.String()
	assert.Contains(t, got, "<LEDGERBAL>")
	assert.Contains(t, got, "<BALAMT>1050.00</BALAMT>")
	assert.Contains(t, got, "<DTASOF>20100613000000</DTASOF>")
}

func TestStatementInfersBalanceAtAccountBoundary(t *testing.T) {
	mapping := &mappings.Mapping{
		Name:      "running",
		HasHeader: true,
		Account:   mappings.Column("account"),
		Date:      mappings.Column("date"),
		Amount:    mappings.Column("amount"),
		Balance:   mappings.Column("balance"),
	}
	csv := "account,date,amount,balance\n" +
		"Checking,2010-06-12,100,1100\n" +
		"Checking,2010-06-13,-50,1050\n" +
		"Savings,2010-06-14,10,\n"

	c, err := convert.New(mapping, convert.Options{AccountTypes: AccountTypes, DefType: DefaultAccountType}, log.New(io.Discard))
	require.NoError(t, err)

	var out strings.Builder
	src := reader.NewCSV(strings.NewReader(csv), reader.Options{HasHeader: true})
	require.NoError(t, c.Convert(&out, src, New(Config{ServerDate: serverDate})))

	// The first Savings row carries no balance, so closing the Checking
	// block must fall back to the inferred ending balance.
	got := out.String()
	first := got[:strings.Index(got, "</STMTRS>")]
	assert.Contains(t, first, "<LEDGERBAL>")
	assert.Contains(t, first, "<BALAMT>1050.00</BALAMT>")
	assert.Contains(t, first, "<DTASOF>20100613000000</DTASOF>")
}

func TestTransfer(t *testing.T) {
	csv := statementHeader +
		"Super Checking,2010-06-12,-25,,dinner,,,,Restaurants\n"

	cfg := Config{ServerDate: serverDate, HasSplitAccount: true}
	got, err := convertCSV(t, "split_account", csv, cfg, convert.Options{})
	require.NoError(t, err)

	assert.Contains(t, got, "<INTRATRNRS>")
	assert.Contains(t, got, "<INTRARS>")
	assert.Contains(t, got, "<XFERINFO>")
	assert.Contains(t, got, "<TRNAMT>-25.00</TRNAMT>")
	assert.Contains(t, got, "<BANKACCTFROM>")
	assert.Contains(t, got, "<BANKACCTTO>")
	assert.True(t, strings.HasSuffix(got, "</INTRATRNRS>\n\t</BANKMSGSRSV1>\n</OFX>\n"))
}

func TestSplitStatement(t *testing.T) {
	csv := "AccountName,JournalDate,NetAmount,Description,Product,Resource,JournalNumber,Reference\n" +
		"Dining,2010-06-12,100,dinner,,,7,\n" +
		"Checking,2010-06-12,-100,dinner,,,7,\n"

	cfg := Config{ServerDate: serverDate, IsSplit: true}
	got, err := convertCSV(t, "xero", csv, cfg, convert.Options{})
	require.NoError(t, err)

	// Main leg becomes the transfer source, the other leg the recipient.
	assert.Contains(t, got, "<INTRARS>")
	assert.Contains(t, got, "<TRNAMT>100.00</TRNAMT>")
	assert.Contains(t, got, "<BANKACCTTO>")
	assert.Contains(t, got, "</INTRARS>")
}

func TestSplitStatementTooManyLegs(t *testing.T) {
	csv := "AccountName,JournalDate,NetAmount,Description,Product,Resource,JournalNumber,Reference\n" +
		"Dining,2010-06-12,60,dinner,,,7,\n" +
		"Drinks,2010-06-12,40,dinner,,,7,\n" +
		"Checking,2010-06-12,-100,dinner,,,7,\n"

	cfg := Config{ServerDate: serverDate, IsSplit: true}
	_, err := convertCSV(t, "xero", csv, cfg, convert.Options{})

	var terr *models.TooManySplitsError
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, 3, terr.Legs)
}

func TestMSMoneyTransactionData(t *testing.T) {
	s := New(Config{ServerDate: serverDate, MSMoney: true})
	d := s.transactionData(&models.Transaction{
		Payee: strings.Repeat("x", 40),
		Date:  time.Date(2010, 6, 12, 0, 0, 0, 0, time.UTC),
	})
	assert.Len(t, d.Payee, 32)
	assert.Equal(t, 12, d.Date.Hour())

	// Non-midnight datetimes pass through.
	d = s.transactionData(&models.Transaction{
		Date: time.Date(2010, 6, 12, 9, 30, 0, 0, time.UTC),
	})
	assert.Equal(t, 9, d.Date.Hour())
}

func TestMSMoneyDateRange(t *testing.T) {
	start := time.Date(2010, 6, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2010, 6, 30, 0, 0, 0, 0, time.UTC)
	trxn := &models.Transaction{Currency: "USD", AccountType: "CHECKING"}

	var b strings.Builder
	s := New(Config{ServerDate: serverDate, MSMoney: true, Start: start, End: end})
	s.accountStart(&b, trxn)
	assert.Contains(t, b.String(), "<DTSTART>20100601120000</DTSTART>")
	assert.Contains(t, b.String(), "<DTEND>20100630120000</DTEND>")

	b.Reset()
	s = New(Config{ServerDate: serverDate, Start: start, End: end})
	s.accountStart(&b, trxn)
	assert.Contains(t, b.String(), "<DTSTART>20100601</DTSTART>")
	assert.Contains(t, b.String(), "<DTEND>20100630</DTEND>")
}

func TestMSMoneyPayeeTruncatesOnRuneBoundary(t *testing.T) {
	s := New(Config{ServerDate: serverDate, MSMoney: true})
	d := s.transactionData(&models.Transaction{
		Payee: strings.Repeat("é", 40),
		Date:  time.Date(2010, 6, 12, 9, 0, 0, 0, time.UTC),
	})
	assert.Equal(t, strings.Repeat("é", 32), d.Payee)
	assert.True(t, utf8.ValidString(d.Payee))
}

func TestMSMoneyRequiresBalance(t *testing.T) {
	csv := statementHeader +
		"Super Checking,2010-06-12,-1000,,rent,,,,\n" +
		"Super Checking,2010-06-13,500,,salary,,,,\n"

	cfg := Config{ServerDate: serverDate, MSMoney: true}
	_, err := convertCSV(t, "default", csv, cfg, convert.Options{})

	var berr *models.BalanceError
	require.ErrorAs(t, err, &berr)
}

func TestEscapesMarkup(t *testing.T) {
	csv := statementHeader +
		"Super Checking,2010-06-12,-10,,Barnes & Noble <web>,,,,\n"

	got, err := convertCSV(t, "default", csv, Config{ServerDate: serverDate}, convert.Options{})
	require.NoError(t, err)
	assert.Contains(t, got, "<NAME>Barnes &amp; Noble &lt;web&gt;</NAME>")
}

func trxn(day int, amt string, bal string) *models.Transaction {
	t := &models.Transaction{
		Date:   time.Date(2010, 6, day, 0, 0, 0, 0, time.UTC),
		Amount: decimal.RequireFromString(amt),
	}
	if bal != "" {
		b := decimal.RequireFromString(bal)
		t.Balance = &b
	}
	return t
}

func TestBalanceStatsUniqueLatestDate(t *testing.T) {
	var s balanceStats
	s.observe(trxn(13, "10", "1010"))
	s.observe(trxn(12, "20", "1000"))

	end, _ := s.infer()
	require.NotNil(t, end)
	assert.Equal(t, "1010", end.Balance.String())
}

func TestBalanceStatsAscendingDates(t *testing.T) {
	var s balanceStats
	s.observe(trxn(12, "10", "1000"))
	s.observe(trxn(13, "20", "1020"))
	s.observe(trxn(13, "5", "1025"))

	end, _ := s.infer()
	require.NotNil(t, end)
	assert.Equal(t, "1025", end.Balance.String())
}

func TestBalanceStatsDescendingDates(t *testing.T) {
	var s balanceStats
	s.observe(trxn(13, "10", "1030"))
	s.observe(trxn(13, "20", "1020"))
	s.observe(trxn(12, "5", "1000"))

	end, _ := s.infer()
	require.NotNil(t, end)
	assert.Equal(t, "1030", end.Balance.String())
}

func TestBalanceStatsMixedDates(t *testing.T) {
	var s balanceStats
	s.observe(trxn(12, "10", "1000"))
	s.observe(trxn(14, "10", "1010"))
	s.observe(trxn(13, "10", "1005"))
	s.observe(trxn(14, "10", "1010"))

	end, reason := s.infer()
	assert.Nil(t, end)
	assert.Equal(t, "transactions have both ascending and descending dates", reason)
}

func TestBalanceStatsBalanceOrder(t *testing.T) {
	// Same-day rows: date order says nothing, balances do.
	var s balanceStats
	s.observe(trxn(12, "10", "1010"))
	s.observe(trxn(12, "20", "1030"))
	s.observe(trxn(12, "-5", "1025"))

	end, _ := s.infer()
	require.NotNil(t, end)
	assert.Equal(t, "1025", end.Balance.String())
}

func TestBalanceStatsNoData(t *testing.T) {
	var s balanceStats
	end, reason := s.infer()
	assert.Nil(t, end)
	assert.Equal(t, "not enough information to determine ending balance", reason)
}
