package services

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strconv"

	"github.com/dolphinsdn29000/UA-and-FedReg-Compiler/internal/dataset"
	"github.com/dolphinsdn29000/UA-and-FedReg-Compiler/internal/models"
	"github.com/dolphinsdn29000/UA-and-FedReg-Compiler/internal/schema"
)

var (
	reSixDigits     = regexp.MustCompile(`(\d{6})`)
	reSourceVintage = regexp.MustCompile(`(?i)REGINFO_RIN_DATA_(\d{6})\.xml$`)
)

// SelectorConfig holds configuration for last-per-RIN selection.
// WindowStart/WindowEnd bound the eligible publication issues (inclusive,
// YYYYMM); zero means unbounded. BackfillFields defaults to the standard
// administrative set when empty.
type SelectorConfig struct {
	BackfillFields []string
	WindowStart    int
	WindowEnd      int
}

// Selection is the outcome of a selector pass: one record per RIN plus the
// audit log of every backfilled value.
type Selection struct {
	Last  *dataset.Dataset
	Audit []models.BackfillEntry
}

// SelectorService reduces a flat dataset to each RIN's latest appearance and
// backfills designated administrative fields from earlier issues when the
// latest appearance left them blank.
type SelectorService struct {
	config SelectorConfig
}

// NewSelector creates a selector with the given configuration.
func NewSelector(config SelectorConfig) *SelectorService {
	if len(config.BackfillFields) == 0 {
		config.BackfillFields = schema.DefaultBackfillFields
	}
	return &SelectorService{config: config}
}

// candidate pairs a record with its ordering key and input position.
type candidate struct {
	rec models.Record
	key int
	ord int
}

// after reports whether c orders after o: higher key wins, ties go to the
// later input position. This makes selection deterministic for any input.
func (c candidate) after(o candidate) bool {
	if c.key != o.key {
		return c.key > o.key
	}
	return c.ord > o.ord
}

// resolveOrderingKey derives a record's YYYYMM ordering key. PUBLICATION_ID
// is authoritative; records without a usable one fall back to the vintage
// encoded in their source filename. A record with neither stays eligible
// with key -1, ordering before every dated appearance.
func resolveOrderingKey(rec models.Record) int {
	if m := reSixDigits.FindStringSubmatch(rec.Get(schema.ColPublicationID)); m != nil {
		key, _ := strconv.Atoi(m[1])
		return key
	}
	if m := reSourceVintage.FindStringSubmatch(rec.Get(schema.ColSourceXML)); m != nil {
		key, _ := strconv.Atoi(m[1])
		return key
	}
	return -1
}

// Process selects the last appearance of every RIN. Records without a RIN
// were never admitted to the dataset, so every record participates.
func (s *SelectorService) Process(ctx context.Context, ds *dataset.Dataset) (*Selection, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("selection interrupted: %w", err)
	}

	byRIN := make(map[string][]candidate)
	rins := make([]string, 0)
	for i, rec := range ds.Records {
		key := resolveOrderingKey(rec)
		if !s.inWindow(key) {
			continue
		}
		rin := rec.Get(schema.ColRIN)
		if _, seen := byRIN[rin]; !seen {
			rins = append(rins, rin)
		}
		byRIN[rin] = append(byRIN[rin], candidate{rec: rec, key: key, ord: i})
	}
	sort.Strings(rins)

	out := dataset.New(ds.Registry)
	var audit []models.BackfillEntry
	for _, rin := range rins {
		group := byRIN[rin]
		last := group[0]
		for _, c := range group[1:] {
			if c.after(last) {
				last = c
			}
		}
		rec := last.rec.Clone()
		audit = append(audit, s.backfill(rin, rec, last, group)...)
		out.Append(rec)
	}

	slog.Info("Selection complete.",
		"records", len(ds.Records), "distinctRins", out.Len(), "backfills", len(audit))
	return &Selection{Last: out, Audit: audit}, nil
}

// backfill fills each designated field that is blank on the last appearance
// from the most recent strictly-earlier issue that carries a value. Every
// fill appends an audit entry; the flat dataset itself is never touched.
func (s *SelectorService) backfill(rin string, rec models.Record, last candidate, group []candidate) []models.BackfillEntry {
	var entries []models.BackfillEntry
	for _, field := range s.config.BackfillFields {
		if !rec.Blank(field) {
			continue
		}
		var donor candidate
		found := false
		for _, c := range group {
			if c.key >= last.key || c.rec.Blank(field) {
				continue
			}
			if !found || c.after(donor) {
				donor = c
				found = true
			}
		}
		if !found {
			continue
		}
		value := donor.rec.Get(field)
		rec[field] = value
		entries = append(entries, models.BackfillEntry{
			RIN:               rin,
			Field:             field,
			Value:             value,
			FromPublicationID: donor.rec.Get(schema.ColPublicationID),
			FromSourceXML:     donor.rec.Get(schema.ColSourceXML),
			LastPublicationID: last.rec.Get(schema.ColPublicationID),
			LastSourceXML:     last.rec.Get(schema.ColSourceXML),
		})
	}
	return entries
}

// inWindow applies the optional inclusive YYYYMM bounds. Records whose key
// could not be resolved pass an unbounded window but never a bounded one.
func (s *SelectorService) inWindow(key int) bool {
	if s.config.WindowStart == 0 && s.config.WindowEnd == 0 {
		return true
	}
	if key < 0 {
		return false
	}
	if s.config.WindowStart != 0 && key < s.config.WindowStart {
		return false
	}
	if s.config.WindowEnd != 0 && key > s.config.WindowEnd {
		return false
	}
	return true
}
