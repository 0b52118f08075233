package scraper

import (
	"strconv"
	"strings"
	"time"
)

var frenchMonths = map[string]time.Month{
	"janvier":   time.January,
	"février":   time.February,
	"fevrier":   time.February,
	"mars":      time.March,
	"avril":     time.April,
	"mai":       time.May,
	"juin":      time.June,
	"juillet":   time.July,
	"août":      time.August,
	"aout":      time.August,
	"septembre": time.September,
	"octobre":   time.October,
	"novembre":  time.November,
	"décembre":  time.December,
	"decembre":  time.December,
}

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"02/01/2006",
	"02-01-2006",
	"02.01.2006",
	"2 January 2006",
	"January 2, 2006",
}

// ParseDate reads ISO, day-first numeric and French long-form dates ("27 février 2026").
// It returns nil when nothing matches.
func ParseDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			t = t.UTC()
			return &t
		}
	}

	parts := strings.Fields(strings.ToLower(s))
	if len(parts) >= 3 {
		// "le 27 février 2026" and "1er mars 2026"
		if parts[0] == "le" && len(parts) >= 4 {
			parts = parts[1:]
		}
		day, derr := strconv.Atoi(strings.TrimSuffix(parts[0], "er"))
		month, ok := frenchMonths[strings.TrimSuffix(parts[1], ",")]
		year, yerr := strconv.Atoi(strings.TrimSuffix(parts[2], ","))
		if derr == nil && yerr == nil && ok && day >= 1 && day <= 31 {
			t := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
			return &t
		}
	}
	return nil
}
