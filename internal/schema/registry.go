// Package schema owns the Unified Agenda superset schema: the stable column
// order shared by every output table, the set of top-level tags the flattener
// handles explicitly, and the append-only registry that absorbs any extra
// top-level scalar a vintage happens to carry.
package schema

import (
	"log/slog"
	"sync"
)

// Column names the pipeline logic depends on directly.
const (
	ColRIN              = "RIN"
	ColPublicationID    = "PUBLICATION_ID"
	ColPublicationTitle = "PUBLICATION_TITLE"
	ColSourceXML        = "source_xml"
	ColPubSeason        = "pub_season"
	ColLatestAction     = "Latest_Action"
	ColLatestActionDate = "latest_action_date"
	ColTimetableList    = "TIMETABLE_LIST"
	ColLegalDlineList   = "LEGAL_DLINE_LIST"
	ColHasStatutoryDl   = "has_statutory_deadline"
	ColEO13771          = "EO_13771_DESIGNATION"
)

// baselineColumns is the stable superset order: 1995 baseline + 2018-era
// additions + derived columns. Every table always carries all of these;
// fields a vintage lacks stay blank. Never remove an entry.
var baselineColumns = []string{
	ColRIN,
	ColPublicationID, ColPublicationTitle,
	ColSourceXML, ColPubSeason,
	"AGENCY_CODE", "AGENCY_NAME", "AGENCY_ACRONYM",
	"PARENT_AGENCY_CODE", "PARENT_AGENCY_NAME", "PARENT_AGENCY_ACRONYM",
	"RULE_TITLE", "ABSTRACT", "PRIORITY_CATEGORY", "RIN_STATUS", "RULE_STAGE",
	// 2018-era scalars (blank in 1995 files)
	"MAJOR", ColEO13771, "FEDERALISM",
	"UNFUNDED_MANDATE_LIST",
	"CFR_LIST", "LEGAL_AUTHORITY_LIST",
	ColLegalDlineList, ColHasStatutoryDl,
	"RPLAN_ENTRY",
	"RPLAN_INFO_STMT_OF_NEED", "RPLAN_INFO_LEGAL_BASIS",
	"RPLAN_INFO_ALTERNATIVES", "RPLAN_INFO_COSTS_AND_BENEFITS", "RPLAN_INFO_RISKS",
	ColTimetableList,
	ColLatestAction, ColLatestActionDate,
	"RFA_REQUIRED",
	"SMALL_ENTITY_LIST", "GOVT_LEVEL_LIST",
	"PRINT_PAPER", "INTERNATIONAL_INTEREST",
	"RELATED_RIN_LIST", "CHILD_RIN_LIST",
	"AGENCY_CONTACT_LIST",
	"REINVENT_GOVT", "ADDITIONAL_INFO", "PROCUREMENT", "SIC_DESC", "PARENT_RIN",
	"COMPLIANCE_COST_BASE_YEAR", "COMPLIANCE_COST_INITIAL_PUBLIC_COST", "COMPLIANCE_COST_RECURRING_PUBLIC_COST",
}

// knownTopLevel lists the RIN_INFO children the flattener extracts explicitly.
// Anything outside this set that is a scalar leaf gets promoted to a dynamic
// column so no vintage quirk is silently dropped.
var knownTopLevel = map[string]bool{
	"RIN": true, "PUBLICATION": true, "AGENCY": true, "PARENT_AGENCY": true,
	"RULE_TITLE": true, "ABSTRACT": true, "PRIORITY_CATEGORY": true,
	"RIN_STATUS": true, "RULE_STAGE": true,
	"MAJOR": true, "EO_13771_DESIGNATION": true, "FEDERALISM": true,
	"UNFUNDED_MANDATE_LIST": true, "CFR_LIST": true, "LEGAL_AUTHORITY_LIST": true,
	"LEGAL_DLINE_LIST": true, "RPLAN_ENTRY": true, "RPLAN_INFO": true,
	"TIMETABLE_LIST": true, "RFA_REQUIRED": true, "SMALL_ENTITY_LIST": true,
	"GOVT_LEVEL_LIST": true, "PRINT_PAPER": true, "INTERNATIONAL_INTEREST": true,
	"RELATED_RIN_LIST": true, "CHILD_RIN_LIST": true, "AGENCY_CONTACT_LIST": true,
	"REINVENT_GOVT": true, "ADDITIONAL_INFO": true, "PROCUREMENT": true,
	"SIC_DESC": true, "PARENT_RIN": true, "COMPLIANCE_COST": true,
}

// ListFamilies maps each list container tag to its repeating item tag.
var ListFamilies = map[string]string{
	"UNFUNDED_MANDATE_LIST": "UNFUNDED_MANDATE",
	"CFR_LIST":              "CFR",
	"LEGAL_AUTHORITY_LIST":  "LEGAL_AUTHORITY",
	"LEGAL_DLINE_LIST":      "LEGAL_DLINE_INFO",
	"TIMETABLE_LIST":        "TIMETABLE",
	"SMALL_ENTITY_LIST":     "SMALL_ENTITY",
	"GOVT_LEVEL_LIST":       "GOVT_LEVEL",
	"RELATED_RIN_LIST":      "RELATED_RIN",
	"CHILD_RIN_LIST":        "CHILD_RIN",
	"AGENCY_CONTACT_LIST":   "CONTACT",
}

// DefaultBackfillFields are the administrative scalars the selector backfills
// from earlier issues when blank on a RIN's last appearance.
var DefaultBackfillFields = []string{ColEO13771}

// IsKnownTopLevel reports whether the flattener handles this tag explicitly.
func IsKnownTopLevel(name string) bool { return knownTopLevel[name] }

// Registry is the process-wide, append-only column registry. It starts from
// the baseline superset and grows as documents surface previously-unseen
// top-level scalars. Columns are never removed or reordered once added.
type Registry struct {
	mu      sync.Mutex
	columns []string
	index   map[string]bool
}

// NewRegistry returns a registry seeded with the baseline superset.
func NewRegistry() *Registry {
	r := &Registry{
		columns: make([]string, 0, len(baselineColumns)+8),
		index:   make(map[string]bool, len(baselineColumns)+8),
	}
	for _, c := range baselineColumns {
		r.columns = append(r.columns, c)
		r.index[c] = true
	}
	return r
}

// Register adds a column if it is not already known. It returns true when the
// column is new, which callers treat as schema drift (informational, never an
// error). Safe for concurrent use.
func (r *Registry) Register(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.index[name] {
		return false
	}
	r.columns = append(r.columns, name)
	r.index[name] = true
	slog.Info("Schema drift: registered new column.", "column", name)
	return true
}

// Has reports whether a column is already registered.
func (r *Registry) Has(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.index[name]
}

// Columns returns a snapshot of the current column order.
func (r *Registry) Columns() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.columns))
	copy(out, r.columns)
	return out
}

// Len returns the current number of registered columns.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.columns)
}
