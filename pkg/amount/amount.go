// Package amount converts locale-ambiguous numeric strings into exact
// decimal values.
package amount

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/reubano/csv2ofx/pkg/models"
)

// Statement exports rarely label their locale, so the separator roles have
// to be inferred from the digit pattern itself.
var stripper = strings.NewReplacer("$", "", "£", "", "€", "", " ", "", " ", "")

// Normalize parses a raw amount string, deciding whether comma or point is
// the decimal separator by counting the digits that follow each one. A
// string that fits neither convention is a FormatError, which is fatal for
// the run: amounts feed the split zero-sum check and cannot be skipped.
func Normalize(raw string) (decimal.Decimal, error) {
	s := stripper.Replace(strings.TrimSpace(raw))
	if s == "" {
		return decimal.Zero, &models.FormatError{Raw: raw}
	}

	afterComma := afterish(s, ',')
	afterPoint := afterish(s, '.')

	var thousands, dec byte
	switch {
	case in(afterComma, -1, 0, 3) && in(afterPoint, -1, 0, 1, 2):
		thousands, dec = ',', '.'
	case in(afterPoint, -1, 0, 3) && in(afterComma, -1, 0, 1, 2):
		thousands, dec = '.', ','
	default:
		return decimal.Zero, &models.FormatError{Raw: raw}
	}

	s = strings.ReplaceAll(s, string(thousands), "")
	if dec == ',' {
		s = strings.ReplaceAll(s, ",", ".")
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, &models.FormatError{Raw: raw}
	}
	return d, nil
}

// afterish returns how many digits immediately follow the last occurrence
// of sep, or -1 when sep is absent.
func afterish(s string, sep byte) int {
	idx := strings.LastIndexByte(s, sep)
	if idx < 0 {
		return -1
	}
	n := 0
	for i := idx + 1; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			break
		}
		n++
	}
	return n
}

func in(n int, set ...int) bool {
	for _, v := range set {
		if n == v {
			return true
		}
	}
	return false
}
