package mappings

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/reubano/csv2ofx/pkg/models"
)

// The builtin registry. Each entry describes how one institution's CSV
// export maps onto the semantic transaction fields.
var builtin = map[string]*Mapping{
	"default": {
		Name:      "default",
		HasHeader: true,
		Bank:      Const("Bank"),
		Currency:  Const("USD"),
		Account:   Column("Account"),
		Date:      Column("Date"),
		Amount:    Column("Amount"),
		Desc:      Column("Reference"),
		Payee:     Column("Description"),
		Notes:     Column("Notes"),
		CheckNum:  Column("Num"),
		ID:        Column("Row"),
	},

	// Same export shape as default but with a category column used as a
	// synthetic transfer destination.
	"split_account": {
		Name:         "split_account",
		HasHeader:    true,
		Bank:         Const("Bank"),
		Currency:     Const("USD"),
		SplitAccount: Column("Category"),
		Account:      Column("Account"),
		Date:         Column("Date"),
		Amount:       Column("Amount"),
		Desc:         Column("Reference"),
		Payee:        Column("Description"),
		Notes:        Column("Notes"),
		CheckNum:     Column("Num"),
		ID:           Column("Row"),
	},

	"mint": {
		Name:         "mint",
		HasHeader:    true,
		SplitAccount: Column("Category"),
		Account:      Column("Account Name"),
		Date:         Column("Date"),
		Type:         Column("Transaction Type"),
		Amount:       Column("Amount"),
		Desc:         Column("Original Description"),
		Payee:        Column("Description"),
		Notes:        Column("Notes"),
	},

	// mint.com data pulled through the mintapi scraper; carries the
	// investment columns.
	"mintapi": {
		Name:         "mintapi",
		HasHeader:    true,
		Account:      Column("account"),
		Category:     Column("category"),
		SplitAccount: Column("category"),
		Type: func(rec models.Record) (string, error) {
			v, _ := rec.Get("isDebit")
			if v == "TRUE" {
				return "debit", nil
			}
			return "credit", nil
		},
		Date:     Column("odate"),
		Amount:   Column("amount"),
		Desc:     Column("omerchant"),
		Payee:    Column("merchant"),
		Notes:    Column("note"),
		Bank:     Column("fi"),
		Currency: Const("USD"),
		ID:       Column("id"),
		Shares:   Column("shares"),
		Symbol:   Column("symbol"),
	},

	"capitalone": {
		Name:      "capitalone",
		HasHeader: true,
		Bank:      Const("CapitalOne"),
		Currency:  Const("USD"),
		Account:   Column("Card No."),
		Date:      Column("Posted Date"),
		Type: func(rec models.Record) (string, error) {
			if v, _ := rec.Get("Debit"); strings.TrimSpace(v) != "" {
				return "DEBIT", nil
			}
			return "CREDIT", nil
		},
		Amount: Coalesce(Column("Debit"), Column("Credit")),
		Desc:   Column("Description"),
		Payee:  Column("Description"),
	},

	"ubs": {
		Name:      "ubs",
		HasHeader: true,
		Delimiter: ';',
		Bank:      Const("UBS"),
		Currency:  Column("Ccy."),
		Type: func(rec models.Record) (string, error) {
			if v, _ := rec.Get("Debit"); strings.TrimSpace(v) != "" {
				return "debit", nil
			}
			return "credit", nil
		},
		Amount: Coalesce(Column("Debit"), Column("Credit")),
		Notes: func(rec models.Record) (string, error) {
			var parts []string
			for _, col := range []string{"Description 1", "Description 2", "Description 3"} {
				if v, _ := rec.Get(col); v != "" {
					parts = append(parts, v)
				}
			}
			return strings.Join(parts, " / "), nil
		},
		Date:  Column("Value date"),
		Desc:  Column("Description"),
		Payee: Coalesce(Column("Recipient"), Column("Entered by")),
	},

	// Schwab prepends three lines of prose which otherwise break date
	// parsing; the filter drops the rows that have no Type.
	"schwabchecking": {
		Name:      "schwabchecking",
		FirstRow:  1,
		HasHeader: true,
		Filter: func(rec models.Record) bool {
			v, _ := rec.Get("Type")
			return v != ""
		},
		Bank:      Const("Charles Schwab Bank, N.A."),
		BankID:    Const("121202211"),
		AccountID: Const("12345"),
		Currency:  Const("USD"),
		Account:   Const("Charles Schwab Checking"),
		Date:      Column("Date"),
		CheckNum:  Column("Check #"),
		Payee:     Column("Description"),
		Desc:      Column("Description"),
		Type: func(rec models.Record) (string, error) {
			if v, _ := rec.Get("Withdrawal (-)"); v != "" {
				return "debit", nil
			}
			return "credit", nil
		},
		Amount:  Coalesce(Column("Deposit (+)"), Column("Withdrawal (-)")),
		Balance: Column("RunningBalance"),
	},

	"n26": {
		Name:      "n26",
		HasHeader: true,
		Bank:      Const("N26"),
		Currency:  Const("EUR"),
		Account:   Const("N26 checking"),
		Date:      Column("Date"),
		Amount:    Column("Amount (EUR)"),
		Payee:     Column("Payee"),
		Notes:     Column("Payment reference"),
		Class:     Column("Category"),
	},

	"starling": {
		Name:      "starling",
		HasHeader: true,
		ParseFmt:  "02/01/2006",
		Bank:      Const("Starling"),
		Currency:  Const("GBP"),
		Account:   Const("Starling"),
		Date:      Column("Date"),
		Amount:    Column("Amount (GBP)"),
		Desc:      Column("Reference"),
		Payee:     Column("Counter Party"),
	},

	// Payoneer exports carry non-numeric summary rows; the filter keeps
	// only rows whose debit or credit column parses as a number.
	"payoneer": {
		Name:      "payoneer",
		HasHeader: true,
		ParseFmt:  "1/2/2006 15:04:05",
		DateFmt:   "20060102150405",
		Bank:      Const("Payoneer Global Inc"),
		BankID:    Const("123"),
		Currency:  Column("Currency"),
		Account: func(models.Record) (string, error) {
			if v := os.Getenv("PAYONEER_ACCOUNT"); v != "" {
				return v, nil
			}
			return "1000001", nil
		},
		Date: func(rec models.Record) (string, error) {
			d, _ := rec.Get("Transaction Date")
			tm, _ := rec.Get("Transaction Time")
			return d + " " + tm, nil
		},
		Type: func(rec models.Record) (string, error) {
			if v, _ := rec.Get("Debit Amount"); strings.TrimSpace(v) != "" {
				return "debit", nil
			}
			return "credit", nil
		},
		Amount: func(rec models.Record) (string, error) {
			if v, _ := rec.Get("Debit Amount"); strings.TrimSpace(v) != "" {
				return "-" + v, nil
			}
			v, _ := rec.Get("Credit Amount")
			return v, nil
		},
		Desc:    Column("Description"),
		Payee:   Column("Target"),
		Balance: Column("Running Balance"),
		ID:      Column("Transaction ID"),
		Filter: func(rec models.Record) bool {
			v, _ := rec.Get("Credit Amount")
			if strings.TrimSpace(v) == "" {
				v, _ = rec.Get("Debit Amount")
			}
			_, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
			return err == nil
		},
	},

	"ingdirect": {
		Name:      "ingdirect",
		HasHeader: true,
		Account:   Column("Account"),
		Date:      Column("Date"),
		Amount:    Coalesce(Column("Credit"), Column("Debit")),
		Desc:      Column("Description"),
	},

	// Xero journal reports are double entry: the legs of one journal
	// share a JournalNumber and sum to zero.
	"xero": {
		Name:      "xero",
		HasHeader: true,
		IsSplit:   true,
		Account:   Column("AccountName"),
		Date:      Column("JournalDate"),
		Amount:    Column("NetAmount"),
		Payee:     Column("Description"),
		Notes:     Column("Product"),
		Class:     Column("Resource"),
		ID:        Column("JournalNumber"),
		CheckNum:  Column("Reference"),
	},

	"amazon": {
		Name:      "amazon",
		HasHeader: true,
		LastRow:   -1, // trailing totals row
		Bank:      Const("Amazon Purchases"),
		AccountID: Const("100000001"),
		Date:      Column("date"),
		Amount:    Column("total"),
		Payee:     Const("Amazon"),
		Desc:      Column("items"),
		ID:        Column("order id"),
		Type:      Const("DEBIT"),
	},
}

// Lookup returns a builtin mapping by name.
func Lookup(name string) (*Mapping, error) {
	m, ok := builtin[name]
	if !ok {
		return nil, fmt.Errorf("unknown mapping %q (available: %s)", name, strings.Join(Names(), ", "))
	}
	return m, nil
}

// Names lists the builtin mapping names, sorted.
func Names() []string {
	names := make([]string, 0, len(builtin))
	for name := range builtin {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
