// Package dates handles the calendar-date arithmetic used throughout the
// service. The upstream publishes one archive per calendar day in Croatian
// local time, so "today" is always computed in Europe/Zagreb. Dates are ISO
// YYYY-MM-DD strings everywhere and compare lexically.
package dates

import (
	"sort"
	"strings"
	"time"
)

// Layout is the ISO date layout used for all date strings.
const Layout = "2006-01-02"

var zagreb = loadZagreb()

func loadZagreb() *time.Location {
	loc, err := time.LoadLocation("Europe/Zagreb")
	if err != nil {
		// No tzdata on the host. CET is close enough: the upstream publishes
		// by calendar date and the drift window around midnight is tolerable.
		return time.FixedZone("CET", 3600)
	}
	return loc
}

// Today returns the current date in the upstream's locale.
func Today() string {
	return time.Now().In(zagreb).Format(Layout)
}

// IsValid reports whether s is a well-formed YYYY-MM-DD date.
func IsValid(s string) bool {
	_, err := time.Parse(Layout, s)
	return err == nil
}

// Compare orders two ISO dates. Lexical order matches chronological order
// for well-formed YYYY-MM-DD strings.
func Compare(a, b string) int {
	return strings.Compare(a, b)
}

// SortAsc sorts ISO dates oldest first.
func SortAsc(ds []string) {
	sort.Strings(ds)
}
