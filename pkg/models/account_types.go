package models

import "strings"

// AccountTypeRule maps one account type to the keywords that select it.
type AccountTypeRule struct {
	Type     string
	Keywords []string
}

// AccountTypes is an ordered keyword table. Order matters: matching is by
// substring and some keywords are substrings of others, so the first rule
// that matches wins.
type AccountTypes []AccountTypeRule

// Lookup returns the type whose keywords match the account name, or defType
// when nothing matches.
func (ts AccountTypes) Lookup(account, defType string) string {
	lower := strings.ToLower(account)
	for _, rule := range ts {
		for _, kw := range rule.Keywords {
			if strings.Contains(lower, kw) {
				return rule.Type
			}
		}
	}
	return defType
}
