// Package aggregate builds the daily balance series and monthly summary
// (including the weighted Average Daily Balance) from reconstructed
// transaction rows.
package aggregate

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Statement date patterns, tried in order. Year-first forms are unambiguous
// so they go first; slash forms are month-first, dash forms day-first.
var (
	ymdPattern  = regexp.MustCompile(`\b(\d{4})[/-](\d{1,2})[/-](\d{1,2})\b`)
	mdyPattern  = regexp.MustCompile(`\b(\d{1,2})/(\d{1,2})/(\d{2,4})\b`)
	dmyPattern  = regexp.MustCompile(`\b(\d{1,2})-(\d{1,2})-(\d{2,4})\b`)
	dMonPattern = regexp.MustCompile(`(?i)\b(\d{1,2})\s+(jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)[a-z]*\s+(\d{2,4})\b`)
)

var monthAbbr = map[string]time.Month{
	"jan": time.January, "feb": time.February, "mar": time.March,
	"apr": time.April, "may": time.May, "jun": time.June,
	"jul": time.July, "aug": time.August, "sep": time.September,
	"oct": time.October, "nov": time.November, "dec": time.December,
}

// ParseStatementDate extracts a calendar date from noisy statement text.
// Accepted forms: yyyy/mm/dd, yyyy-mm-dd, mm/dd/yyyy, dd-mm-yyyy and
// "dd MON yyyy" with a 3-letter month. Two-digit years pivot at 79/80.
// Calendar-impossible dates (month 13, Feb 30) are rejected, never clamped.
func ParseStatementDate(text string) (time.Time, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return time.Time{}, false
	}

	if m := ymdPattern.FindStringSubmatch(text); m != nil {
		return calendarDate(atoi(m[1]), atoi(m[2]), atoi(m[3]))
	}
	if m := mdyPattern.FindStringSubmatch(text); m != nil {
		return calendarDate(pivotYear(m[3]), atoi(m[1]), atoi(m[2]))
	}
	if m := dmyPattern.FindStringSubmatch(text); m != nil {
		return calendarDate(pivotYear(m[3]), atoi(m[2]), atoi(m[1]))
	}
	if m := dMonPattern.FindStringSubmatch(text); m != nil {
		month := monthAbbr[strings.ToLower(m[2])]
		return calendarDate(pivotYear(m[3]), int(month), atoi(m[1]))
	}
	return time.Time{}, false
}

// pivotYear expands a 2-digit year: 00-79 map to 2000-2079, 80-99 to
// 1980-1999. Four-digit years pass through.
func pivotYear(raw string) int {
	y := atoi(raw)
	if len(raw) > 2 {
		return y
	}
	if y <= 79 {
		return 2000 + y
	}
	return 1900 + y
}

// calendarDate builds a UTC midnight date and verifies the components were
// not normalized away (time.Date turns Feb 30 into Mar 2).
func calendarDate(year, month, day int) (time.Time, bool) {
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}, false
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if t.Year() != year || t.Month() != time.Month(month) || t.Day() != day {
		return time.Time{}, false
	}
	return t, true
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
