// Package dates normalizes the date strings found in Unified Agenda
// timetables. Vintages write dates as MM/DD/YYYY, MM/00/YYYY, MM/YYYY, a bare
// year, or sentinels like "To Be Determined". Normalization is best-effort:
// a string that cannot be read yields "" and never fails the record.
package dates

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	reFull      = regexp.MustCompile(`^(\d{1,2})/(\d{1,2})/(\d{4})$`)
	reMonthYear = regexp.MustCompile(`^(\d{1,2})/(\d{4})$`)
	reYearOnly  = regexp.MustCompile(`^(\d{4})$`)
)

// fallbackLayouts cover occasional prose-style dates in newer files.
var fallbackLayouts = []string{
	"2006-01-02",
	"January 2, 2006",
	"Jan 2, 2006",
}

// Normalize returns the ISO YYYY-MM-DD form of a timetable date, or "" when
// the string is blank, a "to be determined" sentinel, or unparseable.
//
// Partial dates anchor to the earliest instant of their range: MM/00/YYYY and
// MM/YYYY become day 01, a bare year becomes January 01. Anchoring low keeps
// max-selection conservative: a partial date never outranks a fully specified
// date in the same period.
func Normalize(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ""
	}
	lower := strings.ToLower(s)
	if strings.HasPrefix(lower, "to be") || strings.HasPrefix(lower, "tbd") {
		return ""
	}

	if m := reFull.FindStringSubmatch(s); m != nil {
		mm, _ := strconv.Atoi(m[1])
		dd, _ := strconv.Atoi(m[2])
		yyyy, _ := strconv.Atoi(m[3])
		if mm < 1 || mm > 12 {
			return ""
		}
		if dd == 0 {
			dd = 1
		}
		if dd > 31 {
			return ""
		}
		return fmt.Sprintf("%04d-%02d-%02d", yyyy, mm, dd)
	}

	if m := reMonthYear.FindStringSubmatch(s); m != nil {
		mm, _ := strconv.Atoi(m[1])
		yyyy, _ := strconv.Atoi(m[2])
		if mm < 1 || mm > 12 {
			return ""
		}
		return fmt.Sprintf("%04d-%02d-01", yyyy, mm)
	}

	if m := reYearOnly.FindStringSubmatch(s); m != nil {
		return fmt.Sprintf("%s-01-01", m[1])
	}

	for _, layout := range fallbackLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("2006-01-02")
		}
	}
	return ""
}

// Season maps a YYYYMM publication id to the agenda season ("Spring" for 04,
// "Fall" for 10, "" otherwise).
func Season(ym string) string {
	if len(ym) != 6 {
		return ""
	}
	if _, err := strconv.Atoi(ym); err != nil {
		return ""
	}
	switch ym[4:] {
	case "04":
		return "Spring"
	case "10":
		return "Fall"
	default:
		return ""
	}
}
