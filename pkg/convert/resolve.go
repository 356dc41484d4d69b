package convert

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/reubano/csv2ofx/pkg/models"
)

// Entry is one transaction ready for serialization, annotated with its
// group context. The main leg of a group comes first in emission order.
type Entry struct {
	Group  string
	Trxn   *models.Transaction
	IsMain bool
	Legs   int
}

// resolveGroup turns one raw group into ordered entries: collapse, date
// window, zero-sum check, and main-leg selection.
func (c *Converter) resolveGroup(g group) ([]Entry, error) {
	if c.mapping.IsSplit {
		return c.resolveSplitGroup(g)
	}

	// Ordinary statements: drop skippable rows individually; the first
	// survivor opens the account block.
	var entries []Entry
	for _, rec := range g.records {
		skip, err := c.skip(rec)
		if err != nil {
			return nil, err
		}
		if skip {
			continue
		}
		trxn, err := c.enrich(rec)
		if err != nil {
			return nil, err
		}
		entries = append(entries, Entry{
			Group:  g.key,
			Trxn:   trxn,
			IsMain: len(entries) == 0,
		})
	}
	for i := range entries {
		entries[i].Legs = len(entries)
	}
	return entries, nil
}

func (c *Converter) resolveSplitGroup(g group) ([]Entry, error) {
	// Split groups are all-or-nothing: the window check looks at the
	// first leg only.
	skip, err := c.skip(g.records[0])
	if err != nil {
		return nil, err
	}
	if skip {
		c.logger.Debug("skipping split group outside date window", "group", g.key)
		return nil, nil
	}

	trxns := make([]*models.Transaction, len(g.records))
	for i, rec := range g.records {
		if trxns[i], err = c.enrich(rec); err != nil {
			return nil, err
		}
	}

	if c.opts.Collapse != "" {
		if trxns, err = c.collapse(g.records, trxns); err != nil {
			return nil, err
		}
	}

	sum := decimal.Zero
	for _, trxn := range trxns {
		sum = sum.Add(trxn.Amount)
	}
	if !sum.IsZero() {
		return nil, &models.UnbalancedSplitError{Group: g.key, Sum: sum}
	}

	mainPos := maxSplit(trxns)

	entries := make([]Entry, len(trxns))
	for i, trxn := range trxns {
		entries[i] = Entry{
			Group:  g.key,
			Trxn:   trxn,
			IsMain: i == mainPos,
			Legs:   len(trxns),
		}
	}
	// Main leg first; the rest keep their relative order.
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].IsMain && !entries[j].IsMain
	})
	return entries, nil
}

// maxSplit returns the position of the leg with the largest absolute
// amount. Ties go to the earliest leg.
func maxSplit(trxns []*models.Transaction) int {
	pos := 0
	for i, trxn := range trxns {
		if trxn.Amount.Abs().GreaterThan(trxns[pos].Amount.Abs()) {
			pos = i
		}
	}
	return pos
}

// collapse merges legs sharing the same value of the collapse field by
// summing their amounts, keeping the first leg's identity. Used for double
// entry exports that split one side across several rows.
func (c *Converter) collapse(records []models.Record, trxns []*models.Transaction) ([]*models.Transaction, error) {
	type leg struct {
		key  string
		trxn *models.Transaction
	}

	legs := make([]leg, len(trxns))
	for i, rec := range records {
		key, _ := rec.Get(c.opts.Collapse)
		legs[i] = leg{key: key, trxn: trxns[i]}
	}
	sort.SliceStable(legs, func(i, j int) bool { return legs[i].key < legs[j].key })

	var merged []*models.Transaction
	var lastKey string
	for i, l := range legs {
		if i > 0 && l.key == lastKey {
			prev := merged[len(merged)-1]
			prev.Amount = prev.Amount.Add(l.trxn.Amount)
			prev.RawAmount = prev.Amount.String()
			continue
		}
		merged = append(merged, l.trxn)
		lastKey = l.key
	}
	return merged, nil
}
