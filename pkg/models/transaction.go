package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transaction is the canonical enriched record produced from one raw row.
// Amounts follow the statement sign convention: debits negative, credits
// positive. Investment transactions always carry a positive amount with the
// action encoded separately.
type Transaction struct {
	Date      time.Time
	RawDate   string
	Type      string // CREDIT or DEBIT
	Amount    decimal.Decimal
	RawAmount string

	ID       string
	CheckNum string
	Payee    string
	Memo     string
	Class    string

	Account     string
	AccountID   string
	AccountType string
	Bank        string
	BankID      string

	SplitAccount     string
	SplitAccountID   string
	SplitAccountType string

	Currency string
	Balance  *decimal.Decimal

	IsInvestment bool
	Shares       decimal.Decimal
	Price        decimal.Decimal
	Commission   decimal.Decimal
	Symbol       string
	Category     string
	Action       string
	XAction      string
}
