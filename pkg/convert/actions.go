package convert

import "strings"

// actionRule maps one QIF investment action to category keywords. The
// table is ordered and matched by substring, so "reinvest" must sit above
// "invest" or it would never be reached.
type actionRule struct {
	Action   string
	Keywords []string
}

var actionTypes = []actionRule{
	{"ShrsIn", []string{"deposit"}},
	{"ShrsOut", []string{"withdraw"}},
	{"ReinvDiv", []string{"reinvest"}},
	{"Buy", []string{"buy", "invest"}},
	{"Div", []string{"dividend"}},
	{"Int", []string{"interest"}},
	{"Sell", []string{"sell"}},
	{"StkSplit", []string{"split"}},
}

// Actions that have an account-transfer variant (BuyX, DivX, ...).
var transferable = map[string]bool{
	"Buy":  true,
	"Div":  true,
	"Int":  true,
	"Sell": true,
}

// GetAction derives the investment action from a transaction category.
// When transfer is true the X variant is returned for actions that have
// one.
func GetAction(category string, transfer bool) string {
	action := "ShrsIn"
	lower := strings.ToLower(category)

	for _, rule := range actionTypes {
		matched := false
		for _, kw := range rule.Keywords {
			if strings.Contains(lower, kw) {
				matched = true
				break
			}
		}
		if matched {
			action = rule.Action
			break
		}
	}

	if transfer && transferable[action] {
		return action + "X"
	}
	return action
}
