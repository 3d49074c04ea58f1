package walker

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collect(t *testing.T, doc string) ([]*Node, *Report) {
	t.Helper()
	var units []*Node
	report, err := Walk(strings.NewReader(doc), "RIN_INFO", func(n *Node) error {
		units = append(units, n)
		return nil
	})
	require.NoError(t, err)
	return units, report
}

func TestWalkYieldsUnitsInDocumentOrder(t *testing.T) {
	doc := `<?xml version="1.0"?>
<AGENDA>
  <RIN_INFO><RIN>2060-AA01</RIN><RULE_STAGE>Final Rule Stage</RULE_STAGE></RIN_INFO>
  <RIN_INFO><RIN>2060-AA02</RIN></RIN_INFO>
</AGENDA>`
	units, report := collect(t, doc)
	require.Len(t, units, 2)
	assert.Equal(t, 2, report.Units)
	assert.False(t, report.Recovered)
	assert.Equal(t, "2060-AA01", units[0].ChildText("RIN"))
	assert.Equal(t, "Final Rule Stage", units[0].ChildText("RULE_STAGE"))
	assert.Equal(t, "2060-AA02", units[1].ChildText("RIN"))
}

func TestWalkIgnoresNamespacesAndPrefixes(t *testing.T) {
	doc := `<?xml version="1.0"?>
<ua:AGENDA xmlns:ua="http://reginfo.gov/ua">
  <ua:RIN_INFO><ua:RIN>3150-AB11</ua:RIN></ua:RIN_INFO>
</ua:AGENDA>`
	units, _ := collect(t, doc)
	require.Len(t, units, 1)
	assert.Equal(t, "3150-AB11", units[0].ChildText("RIN"))
}

func TestWalkRecoversAfterTrailingDefect(t *testing.T) {
	// A complete unit followed by a file truncated mid-tag: the unit
	// survives and the walk reports recovery rather than failure.
	doc := `<AGENDA><RIN_INFO><RIN>2060-AA01</RIN></RIN_INFO><RIN_INFO><RIN`
	var units []*Node
	report, err := Walk(strings.NewReader(doc), "RIN_INFO", func(n *Node) error {
		units = append(units, n)
		return nil
	})
	require.NoError(t, err)
	require.Len(t, units, 1)
	assert.True(t, report.Recovered)
	assert.Equal(t, 1, report.Units)
}

func TestWalkUnreadableDocument(t *testing.T) {
	_, err := Walk(strings.NewReader("<<<< not xml at all"), "RIN_INFO", func(*Node) error { return nil })
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDocumentUnreadable)
}

func TestWalkEmptyDocumentHasNoUnits(t *testing.T) {
	units, report := collect(t, `<AGENDA><PUBLICATION/></AGENDA>`)
	assert.Empty(t, units)
	assert.Equal(t, 0, report.Units)
}

func TestNodePairs(t *testing.T) {
	doc := `<AGENDA><RIN_INFO><RIN>X</RIN><AGENCY><CODE>2060</CODE><NAME>EPA</NAME></AGENCY></RIN_INFO></AGENDA>`
	units, _ := collect(t, doc)
	require.Len(t, units, 1)
	pairs := units[0].Pairs()
	require.Len(t, pairs, 3)
	assert.Equal(t, Pair{Path: "RIN_INFO/RIN", Value: "X"}, pairs[0])
	assert.Equal(t, Pair{Path: "RIN_INFO/AGENCY/CODE", Value: "2060"}, pairs[1])
	assert.Equal(t, Pair{Path: "RIN_INFO/AGENCY/NAME", Value: "EPA"}, pairs[2])
}

func TestWalkHTMLEntitiesInText(t *testing.T) {
	doc := `<AGENDA><RIN_INFO><RIN>X</RIN><ABSTRACT>costs &amp; benefits&nbsp;review</ABSTRACT></RIN_INFO></AGENDA>`
	units, _ := collect(t, doc)
	require.Len(t, units, 1)
	assert.Contains(t, units[0].ChildText("ABSTRACT"), "costs & benefits")
}
