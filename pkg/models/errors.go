package models

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// FormatError means an amount string could not be classified as either
// comma-decimal or point-decimal. Amounts are load-bearing for the split
// zero-sum check, so this aborts the run.
type FormatError struct {
	Raw string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("invalid number format for %q", e.Raw)
}

// UnbalancedSplitError means the legs of a split group do not sum to zero.
type UnbalancedSplitError struct {
	Group string
	Sum   decimal.Decimal
}

func (e *UnbalancedSplitError) Error() string {
	return fmt.Sprintf("splits for group %q do not sum to zero (got %s)", e.Group, e.Sum)
}

// TooManySplitsError means a split group has more than two legs. OFX
// transfers model exactly two parties.
type TooManySplitsError struct {
	Group string
	Legs  int
}

func (e *TooManySplitsError) Error() string {
	return fmt.Sprintf("group %q has too many splits (%d legs, OFX supports 2)", e.Group, e.Legs)
}

// MissingFieldError means a mapping referenced a column that the source
// file's header does not carry. Usually a mapping misconfiguration.
type MissingFieldError struct {
	Column  string
	Mapping string
}

func (e *MissingFieldError) Error() string {
	if e.Mapping != "" {
		return fmt.Sprintf("mapping %q references column %q which is not present in the input; check the mapping against the file header", e.Mapping, e.Column)
	}
	return fmt.Sprintf("column %q is not present in the input; check the mapping against the file header", e.Column)
}

// BalanceError means a ledger balance was required (ms-money or strict
// mode) but none was declared and none could be inferred.
type BalanceError struct {
	Reason string
}

func (e *BalanceError) Error() string {
	return fmt.Sprintf("ending balance not specified and %s", e.Reason)
}

// SplitSpansChunksError means the legs of one split transaction landed in
// different processing chunks, so they cannot be grouped. Raising the chunk
// size fixes it.
type SplitSpansChunksError struct {
	Group string
}

func (e *SplitSpansChunksError) Error() string {
	return fmt.Sprintf("split group %q spans multiple chunks; increase the chunk size", e.Group)
}
