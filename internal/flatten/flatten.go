// Package flatten maps one walked Unified Agenda unit to one flat record
// under the superset schema. It also owns the timetable reduction that
// derives Latest_Action / latest_action_date from a record's own timetable,
// and the lossless JSON encoding of list families.
package flatten

import (
	"fmt"
	"sort"
	"strings"

	"github.com/dolphinsdn29000/UA-and-FedReg-Compiler/internal/dates"
	"github.com/dolphinsdn29000/UA-and-FedReg-Compiler/internal/models"
	"github.com/dolphinsdn29000/UA-and-FedReg-Compiler/internal/schema"
	"github.com/dolphinsdn29000/UA-and-FedReg-Compiler/internal/walker"
)

// UnitName is the repeating element that carries one RIN entry.
const UnitName = "RIN_INFO"

// Document parses one UA XML file into flat records, one per RIN_INFO unit
// bearing a RIN. Unknown top-level scalars extend the shared registry.
// A non-nil report with Recovered set means trailing content was lost to a
// markup defect but the returned records are complete.
func Document(path string, reg *schema.Registry) ([]models.Record, *walker.Report, error) {
	var records []models.Record
	report, err := walker.WalkFile(path, UnitName, func(n *walker.Node) error {
		rec := Unit(n, reg)
		if rec != nil {
			records = append(records, rec)
		}
		return nil
	})
	if err != nil {
		return nil, report, err
	}
	return records, report, nil
}

// Unit flattens one RIN_INFO tree. Units without a RIN are not records and
// yield nil. Every known field the unit lacks is simply absent from the map;
// projection against the registry renders it blank, never omitted.
func Unit(n *walker.Node, reg *schema.Registry) models.Record {
	rin := n.ChildText("RIN")
	if rin == "" {
		return nil
	}
	rec := models.Record{schema.ColRIN: rin}

	if pub := n.Child("PUBLICATION"); pub != nil {
		rec[schema.ColPublicationID] = pub.ChildText("PUBLICATION_ID")
		rec[schema.ColPublicationTitle] = pub.ChildText("PUBLICATION_TITLE")
		rec[schema.ColPubSeason] = dates.Season(rec[schema.ColPublicationID])
	}
	flattenAgency(n, "AGENCY", "AGENCY", rec)
	flattenAgency(n, "PARENT_AGENCY", "PARENT_AGENCY", rec)

	for _, tag := range []string{
		"RULE_TITLE", "ABSTRACT", "PRIORITY_CATEGORY", "RIN_STATUS", "RULE_STAGE",
		"MAJOR", "EO_13771_DESIGNATION", "FEDERALISM",
		"RPLAN_ENTRY", "RFA_REQUIRED", "PRINT_PAPER", "INTERNATIONAL_INTEREST",
		"REINVENT_GOVT", "ADDITIONAL_INFO", "PROCUREMENT", "SIC_DESC", "PARENT_RIN",
	} {
		rec[tag] = n.ChildText(tag)
	}

	if rplan := n.Child("RPLAN_INFO"); rplan != nil {
		rec["RPLAN_INFO_STMT_OF_NEED"] = rplan.ChildText("STMT_OF_NEED")
		rec["RPLAN_INFO_LEGAL_BASIS"] = rplan.ChildText("LEGAL_BASIS")
		rec["RPLAN_INFO_ALTERNATIVES"] = rplan.ChildText("ALTERNATIVES")
		rec["RPLAN_INFO_COSTS_AND_BENEFITS"] = rplan.ChildText("COSTS_AND_BENEFITS")
		rec["RPLAN_INFO_RISKS"] = rplan.ChildText("RISKS")
	}
	if cc := n.Child("COMPLIANCE_COST"); cc != nil {
		rec["COMPLIANCE_COST_BASE_YEAR"] = cc.ChildText("BASE_YEAR")
		rec["COMPLIANCE_COST_INITIAL_PUBLIC_COST"] = cc.ChildText("INITIAL_PUBLIC_COST")
		rec["COMPLIANCE_COST_RECURRING_PUBLIC_COST"] = cc.ChildText("RECURRING_PUBLIC_COST")
	}

	for listTag, itemTag := range schema.ListFamilies {
		if listTag == schema.ColTimetableList {
			continue // handled below with date normalization
		}
		rec[listTag] = EncodeEntries(collectListEntries(n, listTag, itemTag))
	}
	rec[schema.ColHasStatutoryDl] = statutoryDeadlineFlag(n)

	tt := Timetable(n)
	rec[schema.ColTimetableList] = EncodeTimetable(tt)
	action, iso := ReduceTimetable(tt)
	rec[schema.ColLatestAction] = action
	rec[schema.ColLatestActionDate] = iso

	// Promote any extra top-level scalar leaf to a dynamic column so vintage
	// quirks are surfaced instead of dropped.
	for _, ch := range n.Children {
		upper := strings.ToUpper(ch.Name)
		if schema.IsKnownTopLevel(upper) || len(ch.Children) > 0 {
			continue
		}
		if _, taken := rec[upper]; taken {
			continue
		}
		reg.Register(upper)
		rec[upper] = strings.TrimSpace(ch.Text)
	}

	return rec
}

func flattenAgency(n *walker.Node, tag, prefix string, rec models.Record) {
	blk := n.Child(tag)
	if blk == nil {
		return
	}
	rec[prefix+"_CODE"] = blk.ChildText("CODE")
	rec[prefix+"_NAME"] = blk.ChildText("NAME")
	rec[prefix+"_ACRONYM"] = blk.ChildText("ACRONYM")
}

func collectListEntries(n *walker.Node, listTag, itemTag string) []Entry {
	parent := n.Child(listTag)
	if parent == nil {
		return nil
	}
	items := parent.ChildrenNamed(itemTag)
	entries := make([]Entry, 0, len(items))
	for _, it := range items {
		entries = append(entries, entryFromNode(it))
	}
	return entries
}

// statutoryDeadlineFlag is "1" when any legal deadline is statutory, else "0".
func statutoryDeadlineFlag(n *walker.Node) string {
	parent := n.Child(schema.ColLegalDlineList)
	if parent != nil {
		for _, info := range parent.ChildrenNamed("LEGAL_DLINE_INFO") {
			if strings.HasPrefix(strings.ToLower(info.ChildText("DLINE_TYPE")), "statutory") {
				return "1"
			}
		}
	}
	return "0"
}

// Timetable extracts a unit's dated actions in document order, normalizing
// each date. Legacy vintages name the fields ACTION/DATE instead of
// TTBL_ACTION/TTBL_DATE; both spellings are accepted.
func Timetable(n *walker.Node) []models.TimetableEntry {
	parent := n.Child(schema.ColTimetableList)
	if parent == nil {
		return nil
	}
	items := parent.ChildrenNamed("TIMETABLE")
	entries := make([]models.TimetableEntry, 0, len(items))
	for _, it := range items {
		action := it.ChildText("TTBL_ACTION")
		if action == "" {
			action = it.ChildText("ACTION")
		}
		raw := it.ChildText("TTBL_DATE")
		if raw == "" {
			raw = it.ChildText("DATE")
		}
		entries = append(entries, models.TimetableEntry{
			Action:     action,
			DateRaw:    raw,
			DateISO:    dates.Normalize(raw),
			FRCitation: it.ChildText("FR_CITATION"),
		})
	}
	return entries
}

// EncodeTimetable serializes timetable entries with the normalized date kept
// alongside the raw one, so downstream consumers never re-parse dates.
func EncodeTimetable(entries []models.TimetableEntry) string {
	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		out = append(out, Entry{Fields: []Field{
			{Key: "TTBL_ACTION", Text: e.Action},
			{Key: "TTBL_DATE", Text: e.DateRaw},
			{Key: "TTBL_DATE_ISO", Text: e.DateISO},
			{Key: "FR_CITATION", Text: e.FRCitation},
		}})
	}
	return EncodeEntries(out)
}

// DecodeTimetable parses a TIMETABLE_LIST column back into entries.
func DecodeTimetable(s string) ([]models.TimetableEntry, error) {
	raw, err := DecodeEntries(s)
	if err != nil {
		return nil, fmt.Errorf("timetable column: %w", err)
	}
	entries := make([]models.TimetableEntry, 0, len(raw))
	for _, e := range raw {
		var tt models.TimetableEntry
		for _, f := range e.Fields {
			switch f.Key {
			case "TTBL_ACTION":
				tt.Action = f.Text
			case "TTBL_DATE":
				tt.DateRaw = f.Text
			case "TTBL_DATE_ISO":
				tt.DateISO = f.Text
			case "FR_CITATION":
				tt.FRCitation = f.Text
			}
		}
		entries = append(entries, tt)
	}
	return entries, nil
}

// ReduceTimetable picks the entry with the maximum normalized date within
// this one list. Entries without a parseable date never win; if none has
// one, both outputs are blank. Equal dates break by action text so the
// choice is deterministic. The reduction never looks outside the list it is
// given: a record must not reflect a later issue's plans.
func ReduceTimetable(entries []models.TimetableEntry) (action, dateISO string) {
	dated := make([]models.TimetableEntry, 0, len(entries))
	for _, e := range entries {
		if e.DateISO != "" {
			dated = append(dated, e)
		}
	}
	if len(dated) == 0 {
		return "", ""
	}
	sort.SliceStable(dated, func(i, j int) bool {
		if dated[i].DateISO != dated[j].DateISO {
			return dated[i].DateISO < dated[j].DateISO
		}
		return dated[i].Action < dated[j].Action
	})
	last := dated[len(dated)-1]
	return last.Action, last.DateISO
}
