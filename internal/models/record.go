package models

import "strings"

// Record is one flat row: one RIN as it appeared in one publication issue.
// Keys are Unified Schema column names; absent fields simply have no entry
// and render as blank when projected against the registry's column order.
type Record map[string]string

// Get returns the trimmed value for a column, "" when absent.
func (r Record) Get(col string) string {
	return strings.TrimSpace(r[col])
}

// Blank reports whether a column is absent or whitespace-only.
func (r Record) Blank(col string) bool {
	return r.Get(col) == ""
}

// Clone returns an independent copy of the record.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// TimetableEntry is one dated action inside a record's own timetable.
// DateISO is the normalized form of DateRaw, "" when unparseable.
type TimetableEntry struct {
	Action     string
	DateRaw    string
	DateISO    string
	FRCitation string
}

// BackfillEntry is the audit row written for every backfill the selector
// performs. Entries are only ever appended, never rewritten.
type BackfillEntry struct {
	RIN               string
	Field             string
	Value             string
	FromPublicationID string
	FromSourceXML     string
	LastPublicationID string
	LastSourceXML     string
}

// DocumentCount is the per-document row-count line in the sanity summary.
type DocumentCount struct {
	SourceXML string
	Rows      int
	Recovered bool
	Skipped   bool
	Error     string
}
