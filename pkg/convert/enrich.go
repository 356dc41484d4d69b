package convert

import (
	"crypto/sha256"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/reubano/csv2ofx/pkg/amount"
	"github.com/reubano/csv2ofx/pkg/mappings"
	"github.com/reubano/csv2ofx/pkg/models"
)

// contentHash builds a deterministic short id from record content, so the
// same input yields the same ids across runs.
func contentHash(parts ...string) string {
	sum := sha256.Sum256([]byte(strings.Join(parts, "-")))
	return fmt.Sprintf("%x", sum)[:16]
}

// skip reports whether a record falls outside the configured date window or
// is rejected by the mapping's filter. Skipping is a normal outcome, not an
// error.
func (c *Converter) skip(rec models.Record) (bool, error) {
	if c.mapping.Filter != nil && !c.mapping.Filter(rec) {
		return true, nil
	}

	if c.opts.Start.IsZero() && c.opts.End.IsZero() {
		return false, nil
	}

	rawDate, err := mappings.Resolve(c.mapping.Date, rec)
	if err != nil {
		return false, err
	}
	date, err := ParseDate(rawDate, c.mapping.ParseFmt)
	if err != nil {
		return false, err
	}

	if !c.opts.Start.IsZero() && date.Before(c.opts.Start) {
		return true, nil
	}
	if !c.opts.End.IsZero() && date.After(c.opts.End) {
		return true, nil
	}
	return false, nil
}

// enrich converts one raw record into the canonical transaction, applying
// field defaults, the sign convention, investment detection, and id
// generation.
func (c *Converter) enrich(rec models.Record) (*models.Transaction, error) {
	m := c.mapping

	account, err := mappings.Resolve(m.Account, rec)
	if err != nil {
		return nil, err
	}
	accountID, err := mappings.ResolveDefault(m.AccountID, rec, contentHash(account))
	if err != nil {
		return nil, err
	}
	bank, err := mappings.ResolveDefault(m.Bank, rec, account)
	if err != nil {
		return nil, err
	}
	bankID, err := mappings.ResolveDefault(m.BankID, rec, contentHash(bank))
	if err != nil {
		return nil, err
	}
	currency, err := mappings.ResolveDefault(m.Currency, rec, "USD")
	if err != nil {
		return nil, err
	}

	rawAmount, err := mappings.Resolve(m.Amount, rec)
	if err != nil {
		return nil, err
	}
	amt, err := amount.Normalize(rawAmount)
	if err != nil {
		return nil, err
	}

	tranType, err := mappings.Resolve(m.Type, rec)
	if err != nil {
		return nil, err
	}
	if tranType != "" {
		if strings.EqualFold(tranType, "debit") {
			amt = amt.Abs().Neg()
		}
		tranType = strings.ToUpper(tranType)
	} else if amt.Sign() > 0 {
		tranType = "CREDIT"
	} else {
		tranType = "DEBIT"
	}

	rawDate, err := mappings.Resolve(m.Date, rec)
	if err != nil {
		return nil, err
	}
	date, err := ParseDate(rawDate, m.ParseFmt)
	if err != nil {
		return nil, err
	}

	payee, err := mappings.Resolve(m.Payee, rec)
	if err != nil {
		return nil, err
	}
	desc, err := mappings.Resolve(m.Desc, rec)
	if err != nil {
		return nil, err
	}
	notes, err := mappings.Resolve(m.Notes, rec)
	if err != nil {
		return nil, err
	}
	class, err := mappings.Resolve(m.Class, rec)
	if err != nil {
		return nil, err
	}
	checkNum, err := mappings.Resolve(m.CheckNum, rec)
	if err != nil {
		return nil, err
	}

	memo := desc
	if desc != "" && notes != "" {
		memo = desc + " " + notes
	} else if notes != "" {
		memo = notes
	}

	trxn := &models.Transaction{
		Date:      date,
		RawDate:   rawDate,
		Type:      tranType,
		Amount:    amt,
		RawAmount: rawAmount,
		CheckNum:  checkNum,
		Payee:     payee,
		Memo:      memo,
		Class:     class,
		Account:   account,
		AccountID: accountID,
		Bank:      bank,
		BankID:    bankID,
		Currency:  currency,
	}

	if err := c.enrichInvestment(rec, trxn); err != nil {
		return nil, err
	}

	splitAccount, err := mappings.Resolve(m.SplitAccount, rec)
	if err != nil {
		return nil, err
	}
	if splitAccount != "" {
		trxn.SplitAccount = splitAccount
		trxn.SplitAccountID = contentHash(splitAccount)
		trxn.SplitAccountType = c.opts.AccountTypes.Lookup(splitAccount, c.opts.DefType)
	}
	trxn.AccountType = c.opts.AccountTypes.Lookup(account, c.opts.DefType)

	rawBalance, err := mappings.Resolve(m.Balance, rec)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(rawBalance) != "" {
		bal, err := amount.Normalize(rawBalance)
		if err != nil {
			return nil, err
		}
		trxn.Balance = &bal
	}

	id, err := mappings.Resolve(m.ID, rec)
	if err != nil {
		return nil, err
	}
	if id == "" {
		id = checkNum
	}
	if id == "" {
		id = contentHash(rawDate, rawAmount, payee, memo)
	}
	trxn.ID = id

	return trxn, nil
}

// enrichInvestment detects investment transactions and fills the action
// fields. Investment amounts are always positive; shares and price are
// derived from each other and the amount when only one is present.
func (c *Converter) enrichInvestment(rec models.Record, trxn *models.Transaction) error {
	m := c.mapping

	shares, err := c.optionalDecimal(m.Shares, rec)
	if err != nil {
		return err
	}
	price, err := c.optionalDecimal(m.Price, rec)
	if err != nil {
		return err
	}
	symbol, err := mappings.Resolve(m.Symbol, rec)
	if err != nil {
		return err
	}
	category, err := mappings.Resolve(m.Category, rec)
	if err != nil {
		return err
	}

	trxn.Symbol = symbol
	trxn.Category = category

	hasSymbol := symbol != "" && !strings.EqualFold(symbol, "N/A")
	isInvestment := !shares.IsZero() || hasSymbol ||
		strings.Contains(strings.ToLower(category), "invest")
	if !isInvestment {
		return nil
	}

	trxn.IsInvestment = true
	trxn.Amount = trxn.Amount.Abs()

	switch {
	case shares.IsZero() && !price.IsZero():
		shares = trxn.Amount.Div(price)
	case price.IsZero() && !shares.IsZero():
		price = trxn.Amount.Div(shares)
	}

	commission, err := c.optionalDecimal(m.Commission, rec)
	if err != nil {
		return err
	}

	trxn.Shares = shares
	trxn.Price = price
	trxn.Commission = commission
	trxn.Action = GetAction(category, false)
	trxn.XAction = GetAction(category, true)
	return nil
}

func (c *Converter) optionalDecimal(f mappings.FieldFunc, rec models.Record) (decimal.Decimal, error) {
	raw, err := mappings.Resolve(f, rec)
	if err != nil {
		return decimal.Zero, err
	}
	if strings.TrimSpace(raw) == "" {
		return decimal.Zero, nil
	}
	return amount.Normalize(raw)
}
