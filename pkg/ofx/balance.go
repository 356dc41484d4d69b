package ofx

import "github.com/reubano/csv2ofx/pkg/models"

// balanceStats analyzes pairs of transactions to determine which one, if
// any, carries the ending balance for the LEDGERBAL block. Statements come
// in both ascending and descending date order and nothing in the input
// says which, so the order is inferred from dates first and running
// balances second.
type balanceStats struct {
	first  *models.Transaction
	last   *models.Transaction
	latest *models.Transaction

	latestDateCount    int
	datesAscending     int
	datesDescending    int
	balancesAscending  int
	balancesDescending int
}

// observe feeds one transaction into the statistics. Transactions without
// a declared balance are ignored.
func (s *balanceStats) observe(t *models.Transaction) {
	if t.Balance == nil {
		return
	}

	if s.first == nil {
		s.first = t
	}

	switch {
	case s.latest == nil:
		s.latest = t
		s.latestDateCount = 1
	case t.Date.After(s.latest.Date):
		s.latest = t
		s.latestDateCount = 1
	case t.Date.Equal(s.latest.Date):
		s.latestDateCount++
	}

	if s.last != nil {
		s.checkDateOrder(t)
		s.checkBalanceOrder(t)
	}
	s.last = t
}

func (s *balanceStats) checkDateOrder(t *models.Transaction) {
	if t.Date.After(s.last.Date) {
		s.datesAscending++
	} else if t.Date.Before(s.last.Date) {
		s.datesDescending++
	}
}

func (s *balanceStats) checkBalanceOrder(t *models.Transaction) {
	if s.last.Balance.Add(t.Amount).Equal(*t.Balance) {
		s.balancesAscending++
	}
	if t.Balance.Add(s.last.Amount).Equal(*s.last.Balance) {
		s.balancesDescending++
	}
}

// infer picks the transaction holding the ending balance:
//
//  1. A unique latest date wins outright.
//  2. Dates both ascending and descending: give up.
//  3. Dates ascending: last transaction.
//  4. Dates descending: first transaction.
//  5. More balances consistent with ascending order: last transaction.
//  6. More balances consistent with descending order: first transaction.
//  7. Otherwise give up.
//
// When no transaction qualifies, the returned reason says why.
func (s *balanceStats) infer() (*models.Transaction, string) {
	switch {
	case s.latestDateCount == 1:
		return s.latest, ""
	case s.datesAscending > 0 && s.datesDescending > 0:
		return nil, "transactions have both ascending and descending dates"
	case s.datesAscending > 0:
		return s.last, ""
	case s.datesDescending > 0:
		return s.first, ""
	case s.balancesAscending > s.balancesDescending:
		return s.last, ""
	case s.balancesDescending > s.balancesAscending:
		return s.first, ""
	default:
		return nil, "not enough information to determine ending balance"
	}
}
