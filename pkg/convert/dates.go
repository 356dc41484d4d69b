package convert

import (
	"fmt"
	"strings"
	"time"
)

// Layouts tried in order when the mapping does not pin a parse format.
// US month-first comes before day-first, matching how the historical tool
// resolved ambiguous slash dates.
var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	time.RFC3339,
	"1/2/06",
	"1/2/2006",
	"2006/01/02",
	"2.1.2006",
	"1-2-2006",
	"Jan 2, 2006",
}

// ParseDate parses a statement date string. parseFmt, when non-empty, is a
// Go layout tried before the builtin list.
func ParseDate(raw, parseFmt string) (time.Time, error) {
	s := strings.TrimSpace(raw)
	if parseFmt != "" {
		if t, err := time.Parse(parseFmt, s); err == nil {
			return t, nil
		}
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable date %q", raw)
}
