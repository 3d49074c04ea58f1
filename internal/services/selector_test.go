package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dolphinsdn29000/UA-and-FedReg-Compiler/internal/dataset"
	"github.com/dolphinsdn29000/UA-and-FedReg-Compiler/internal/models"
	"github.com/dolphinsdn29000/UA-and-FedReg-Compiler/internal/schema"
)

func newFlat(records ...models.Record) *dataset.Dataset {
	ds := dataset.New(schema.NewRegistry())
	ds.Append(records...)
	return ds
}

func selectLast(t *testing.T, cfg SelectorConfig, records ...models.Record) *Selection {
	t.Helper()
	sel, err := NewSelector(cfg).Process(context.Background(), newFlat(records...))
	require.NoError(t, err)
	return sel
}

func TestSelectorPicksHighestPublicationID(t *testing.T) {
	sel := selectLast(t, SelectorConfig{},
		models.Record{"RIN": "2060-AA01", "PUBLICATION_ID": "201906", "RULE_STAGE": "Final Rule Stage"},
		models.Record{"RIN": "2060-AA01", "PUBLICATION_ID": "201801", "RULE_STAGE": "Proposed Rule Stage"},
	)
	require.Equal(t, 1, sel.Last.Len())
	assert.Equal(t, "Final Rule Stage", sel.Last.Records[0]["RULE_STAGE"])
}

func TestSelectorFilenameFallbackForBlankPublicationID(t *testing.T) {
	// A record with no PUBLICATION_ID takes its vintage from the filename and
	// competes on equal terms: 201907 beats 201906.
	sel := selectLast(t, SelectorConfig{},
		models.Record{"RIN": "2060-AA01", "PUBLICATION_ID": "201801", "RULE_STAGE": "A"},
		models.Record{"RIN": "2060-AA01", "source_xml": "REGINFO_RIN_DATA_201907.xml", "RULE_STAGE": "B"},
		models.Record{"RIN": "2060-AA01", "PUBLICATION_ID": "201906", "RULE_STAGE": "C"},
	)
	require.Equal(t, 1, sel.Last.Len())
	assert.Equal(t, "B", sel.Last.Records[0]["RULE_STAGE"])

	// When the fallback vintage is older than a dated appearance, the dated
	// appearance still wins.
	sel = selectLast(t, SelectorConfig{},
		models.Record{"RIN": "2060-AA02", "source_xml": "REGINFO_RIN_DATA_201904.xml", "RULE_STAGE": "B"},
		models.Record{"RIN": "2060-AA02", "PUBLICATION_ID": "201906", "RULE_STAGE": "C"},
	)
	assert.Equal(t, "C", sel.Last.Records[0]["RULE_STAGE"])
}

func TestSelectorTieBreaksByInputOrder(t *testing.T) {
	sel := selectLast(t, SelectorConfig{},
		models.Record{"RIN": "2060-AA01", "PUBLICATION_ID": "201810", "RULE_STAGE": "first"},
		models.Record{"RIN": "2060-AA01", "PUBLICATION_ID": "201810", "RULE_STAGE": "second"},
	)
	assert.Equal(t, "second", sel.Last.Records[0]["RULE_STAGE"])
}

func TestSelectorOutputSortedByRIN(t *testing.T) {
	sel := selectLast(t, SelectorConfig{},
		models.Record{"RIN": "3150-AB11", "PUBLICATION_ID": "201810"},
		models.Record{"RIN": "0910-AH53", "PUBLICATION_ID": "201810"},
		models.Record{"RIN": "2060-AA01", "PUBLICATION_ID": "201810"},
	)
	require.Equal(t, 3, sel.Last.Len())
	assert.Equal(t, "0910-AH53", sel.Last.Records[0]["RIN"])
	assert.Equal(t, "2060-AA01", sel.Last.Records[1]["RIN"])
	assert.Equal(t, "3150-AB11", sel.Last.Records[2]["RIN"])
}

func TestSelectorBackfillsFromMostRecentEarlierIssue(t *testing.T) {
	sel := selectLast(t, SelectorConfig{},
		models.Record{"RIN": "2060-AA01", "PUBLICATION_ID": "201606",
			"source_xml": "REGINFO_RIN_DATA_201606.xml"},
		models.Record{"RIN": "2060-AA01", "PUBLICATION_ID": "201712",
			"source_xml": "REGINFO_RIN_DATA_201712.xml", "EO_13771_DESIGNATION": "Yes"},
		models.Record{"RIN": "2060-AA01", "PUBLICATION_ID": "201801",
			"source_xml": "REGINFO_RIN_DATA_201801.xml"},
	)
	rec := sel.Last.Records[0]
	assert.Equal(t, "201801", rec["PUBLICATION_ID"])
	assert.Equal(t, "Yes", rec["EO_13771_DESIGNATION"])

	require.Len(t, sel.Audit, 1)
	entry := sel.Audit[0]
	assert.Equal(t, "2060-AA01", entry.RIN)
	assert.Equal(t, "EO_13771_DESIGNATION", entry.Field)
	assert.Equal(t, "Yes", entry.Value)
	assert.Equal(t, "201712", entry.FromPublicationID)
	assert.Equal(t, "201801", entry.LastPublicationID)
}

func TestSelectorNoBackfillWhenLastHasValue(t *testing.T) {
	sel := selectLast(t, SelectorConfig{},
		models.Record{"RIN": "2060-AA01", "PUBLICATION_ID": "201712", "EO_13771_DESIGNATION": "Other"},
		models.Record{"RIN": "2060-AA01", "PUBLICATION_ID": "201801", "EO_13771_DESIGNATION": "Deregulatory"},
	)
	assert.Equal(t, "Deregulatory", sel.Last.Records[0]["EO_13771_DESIGNATION"])
	assert.Empty(t, sel.Audit)
}

func TestSelectorNoBackfillWhenNoEarlierValueExists(t *testing.T) {
	sel := selectLast(t, SelectorConfig{},
		models.Record{"RIN": "2060-AA01", "PUBLICATION_ID": "201606"},
		models.Record{"RIN": "2060-AA01", "PUBLICATION_ID": "201801"},
	)
	assert.Equal(t, "", sel.Last.Records[0].Get("EO_13771_DESIGNATION"))
	assert.Empty(t, sel.Audit)
}

func TestSelectorBackfillIgnoresSameIssueDonors(t *testing.T) {
	// A donor from the same publication key as the winner is not "earlier".
	sel := selectLast(t, SelectorConfig{},
		models.Record{"RIN": "2060-AA01", "PUBLICATION_ID": "201801", "EO_13771_DESIGNATION": "Yes"},
		models.Record{"RIN": "2060-AA01", "PUBLICATION_ID": "201801"},
	)
	assert.Equal(t, "", sel.Last.Records[0].Get("EO_13771_DESIGNATION"))
	assert.Empty(t, sel.Audit)
}

func TestSelectorWindowBoundsIssues(t *testing.T) {
	sel := selectLast(t, SelectorConfig{WindowStart: 201001, WindowEnd: 201512},
		models.Record{"RIN": "2060-AA01", "PUBLICATION_ID": "200904", "RULE_STAGE": "too early"},
		models.Record{"RIN": "2060-AA01", "PUBLICATION_ID": "201504", "RULE_STAGE": "in window"},
		models.Record{"RIN": "2060-AA01", "PUBLICATION_ID": "201810", "RULE_STAGE": "too late"},
		models.Record{"RIN": "3150-AB11", "PUBLICATION_ID": "201810"},
	)
	require.Equal(t, 1, sel.Last.Len())
	assert.Equal(t, "in window", sel.Last.Records[0]["RULE_STAGE"])
}

func TestSelectorCustomBackfillFields(t *testing.T) {
	sel := selectLast(t, SelectorConfig{BackfillFields: []string{"FEDERALISM"}},
		models.Record{"RIN": "2060-AA01", "PUBLICATION_ID": "201712", "FEDERALISM": "No", "EO_13771_DESIGNATION": "Yes"},
		models.Record{"RIN": "2060-AA01", "PUBLICATION_ID": "201801"},
	)
	rec := sel.Last.Records[0]
	assert.Equal(t, "No", rec["FEDERALISM"])
	assert.Equal(t, "", rec.Get("EO_13771_DESIGNATION"))
	require.Len(t, sel.Audit, 1)
	assert.Equal(t, "FEDERALISM", sel.Audit[0].Field)
}

func TestSelectorUnresolvableKeyStillEligible(t *testing.T) {
	sel := selectLast(t, SelectorConfig{},
		models.Record{"RIN": "2060-AA01", "RULE_STAGE": "undated only"},
	)
	require.Equal(t, 1, sel.Last.Len())
	assert.Equal(t, "undated only", sel.Last.Records[0]["RULE_STAGE"])
}
