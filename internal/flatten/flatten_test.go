package flatten

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dolphinsdn29000/UA-and-FedReg-Compiler/internal/models"
	"github.com/dolphinsdn29000/UA-and-FedReg-Compiler/internal/schema"
	"github.com/dolphinsdn29000/UA-and-FedReg-Compiler/internal/walker"
)

func writeTempXML(t *testing.T, name, doc string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))
	return path
}

func flattenOne(t *testing.T, unit string) models.Record {
	t.Helper()
	doc := `<?xml version="1.0"?><AGENDA>` + unit + `</AGENDA>`
	var rec models.Record
	_, err := walker.Walk(strings.NewReader(doc), UnitName, func(n *walker.Node) error {
		rec = Unit(n, schema.NewRegistry())
		return nil
	})
	require.NoError(t, err)
	return rec
}

func TestDocumentFlattensEveryRINUnit(t *testing.T) {
	path := writeTempXML(t, "REGINFO_RIN_DATA_201810.xml", `<?xml version="1.0"?>
<RIN_DATA>
  <RIN_INFO>
    <RIN>2060-AT55</RIN>
    <PUBLICATION><PUBLICATION_ID>201810</PUBLICATION_ID><PUBLICATION_TITLE>Fall 2018</PUBLICATION_TITLE></PUBLICATION>
    <AGENCY><CODE>2060</CODE><NAME>Environmental Protection Agency</NAME><ACRONYM>EPA</ACRONYM></AGENCY>
    <RULE_TITLE>Emission Standards Review</RULE_TITLE>
    <RULE_STAGE>Proposed Rule Stage</RULE_STAGE>
    <EO_13771_DESIGNATION>Deregulatory</EO_13771_DESIGNATION>
    <CFR_LIST><CFR>40 CFR 60</CFR><CFR>40 CFR 63</CFR></CFR_LIST>
    <TIMETABLE_LIST>
      <TIMETABLE><TTBL_ACTION>NPRM</TTBL_ACTION><TTBL_DATE>08/00/2018</TTBL_DATE><FR_CITATION>83 FR 1234</FR_CITATION></TIMETABLE>
      <TIMETABLE><TTBL_ACTION>Final Rule</TTBL_ACTION><TTBL_DATE>06/2019</TTBL_DATE></TIMETABLE>
    </TIMETABLE_LIST>
  </RIN_INFO>
  <RIN_INFO>
    <RIN>2060-AT56</RIN>
    <PUBLICATION><PUBLICATION_ID>201810</PUBLICATION_ID></PUBLICATION>
  </RIN_INFO>
</RIN_DATA>`)

	reg := schema.NewRegistry()
	records, report, err := Document(path, reg)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, 2, report.Units)
	assert.False(t, report.Recovered)

	rec := records[0]
	assert.Equal(t, "2060-AT55", rec[schema.ColRIN])
	assert.Equal(t, "201810", rec[schema.ColPublicationID])
	assert.Equal(t, "Fall 2018", rec[schema.ColPublicationTitle])
	assert.Equal(t, "Fall", rec[schema.ColPubSeason])
	assert.Equal(t, "EPA", rec["AGENCY_ACRONYM"])
	assert.Equal(t, "Emission Standards Review", rec["RULE_TITLE"])
	assert.Equal(t, "Deregulatory", rec[schema.ColEO13771])
	assert.Equal(t, `["40 CFR 60","40 CFR 63"]`, rec["CFR_LIST"])
	assert.Equal(t, "Final Rule", rec[schema.ColLatestAction])
	assert.Equal(t, "2019-06-01", rec[schema.ColLatestActionDate])

	// Fields the second unit lacks read as blank, never as missing columns.
	assert.Equal(t, "", records[1].Get("RULE_TITLE"))
	assert.Equal(t, "[]", records[1][schema.ColTimetableList])
}

func TestUnitSkipsEntriesWithoutRIN(t *testing.T) {
	rec := flattenOne(t, `<RIN_INFO><RULE_TITLE>Orphan</RULE_TITLE></RIN_INFO>`)
	assert.Nil(t, rec)
}

func TestUnitPromotesUnknownScalarLeaves(t *testing.T) {
	doc := `<?xml version="1.0"?><AGENDA>
<RIN_INFO><RIN>0910-AH53</RIN><naics_desc>Food Manufacturing</naics_desc></RIN_INFO>
</AGENDA>`
	reg := schema.NewRegistry()
	var rec models.Record
	_, err := walker.Walk(strings.NewReader(doc), UnitName, func(n *walker.Node) error {
		rec = Unit(n, reg)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "Food Manufacturing", rec["NAICS_DESC"])
	assert.True(t, reg.Has("NAICS_DESC"))
}

func TestUnitLegalDeadlineFlag(t *testing.T) {
	statutory := flattenOne(t, `<RIN_INFO><RIN>1018-BC01</RIN>
<LEGAL_DLINE_LIST><LEGAL_DLINE_INFO><DLINE_TYPE>Statutory</DLINE_TYPE><DLINE_DATE>12/31/2020</DLINE_DATE></LEGAL_DLINE_INFO></LEGAL_DLINE_LIST>
</RIN_INFO>`)
	assert.Equal(t, "1", statutory[schema.ColHasStatutoryDl])

	judicial := flattenOne(t, `<RIN_INFO><RIN>1018-BC02</RIN>
<LEGAL_DLINE_LIST><LEGAL_DLINE_INFO><DLINE_TYPE>Judicial</DLINE_TYPE></LEGAL_DLINE_INFO></LEGAL_DLINE_LIST>
</RIN_INFO>`)
	assert.Equal(t, "0", judicial[schema.ColHasStatutoryDl])

	none := flattenOne(t, `<RIN_INFO><RIN>1018-BC03</RIN></RIN_INFO>`)
	assert.Equal(t, "0", none[schema.ColHasStatutoryDl])
}

func TestTimetableAcceptsLegacyTagNames(t *testing.T) {
	rec := flattenOne(t, `<RIN_INFO><RIN>3150-AB11</RIN>
<TIMETABLE_LIST><TIMETABLE><ACTION>ANPRM</ACTION><DATE>03/1996</DATE></TIMETABLE></TIMETABLE_LIST>
</RIN_INFO>`)
	assert.Equal(t, "ANPRM", rec[schema.ColLatestAction])
	assert.Equal(t, "1996-03-01", rec[schema.ColLatestActionDate])

	entries, err := DecodeTimetable(rec[schema.ColTimetableList])
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "03/1996", entries[0].DateRaw)
	assert.Equal(t, "1996-03-01", entries[0].DateISO)
}

func TestLatestActionIsolatedPerIssue(t *testing.T) {
	early := flattenOne(t, `<RIN_INFO><RIN>2120-AA10</RIN>
<PUBLICATION><PUBLICATION_ID>201504</PUBLICATION_ID></PUBLICATION>
<TIMETABLE_LIST><TIMETABLE><TTBL_ACTION>NPRM</TTBL_ACTION><TTBL_DATE>01/15/2015</TTBL_DATE></TIMETABLE></TIMETABLE_LIST>
</RIN_INFO>`)
	late := flattenOne(t, `<RIN_INFO><RIN>2120-AA10</RIN>
<PUBLICATION><PUBLICATION_ID>202006</PUBLICATION_ID></PUBLICATION>
<TIMETABLE_LIST>
  <TIMETABLE><TTBL_ACTION>NPRM</TTBL_ACTION><TTBL_DATE>01/15/2015</TTBL_DATE></TIMETABLE>
  <TIMETABLE><TTBL_ACTION>Final Rule</TTBL_ACTION><TTBL_DATE>06/10/2020</TTBL_DATE></TIMETABLE>
</TIMETABLE_LIST>
</RIN_INFO>`)

	assert.Equal(t, "NPRM", early[schema.ColLatestAction])
	assert.Equal(t, "2015-01-15", early[schema.ColLatestActionDate])
	assert.Equal(t, "Final Rule", late[schema.ColLatestAction])
	assert.Equal(t, "2020-06-10", late[schema.ColLatestActionDate])
}

func TestReduceTimetable(t *testing.T) {
	t.Run("unparseable dates never win", func(t *testing.T) {
		action, iso := ReduceTimetable([]models.TimetableEntry{
			{Action: "NPRM", DateRaw: "04/20/2017", DateISO: "2017-04-20"},
			{Action: "Final Rule", DateRaw: "To Be Determined", DateISO: ""},
		})
		assert.Equal(t, "NPRM", action)
		assert.Equal(t, "2017-04-20", iso)
	})

	t.Run("all dates unparseable yields blanks", func(t *testing.T) {
		action, iso := ReduceTimetable([]models.TimetableEntry{
			{Action: "Next Action Undetermined", DateRaw: "TBD"},
		})
		assert.Equal(t, "", action)
		assert.Equal(t, "", iso)
	})

	t.Run("equal dates break by action text", func(t *testing.T) {
		action, _ := ReduceTimetable([]models.TimetableEntry{
			{Action: "NPRM Comment Period End", DateISO: "2018-05-01"},
			{Action: "Final Rule", DateISO: "2018-05-01"},
		})
		assert.Equal(t, "NPRM Comment Period End", action)
	})

	t.Run("partial date loses to later full date", func(t *testing.T) {
		action, iso := ReduceTimetable([]models.TimetableEntry{
			{Action: "Final Rule", DateISO: "2019-06-01"},
			{Action: "Correction", DateISO: "2019-06-15"},
		})
		assert.Equal(t, "Correction", action)
		assert.Equal(t, "2019-06-15", iso)
	})
}

func TestEncodeTimetableRoundTrip(t *testing.T) {
	in := []models.TimetableEntry{
		{Action: "NPRM", DateRaw: "08/00/2018", DateISO: "2018-08-01", FRCitation: "83 FR 1234"},
		{Action: "Final Rule", DateRaw: "06/2019", DateISO: "2019-06-01"},
	}
	out, err := DecodeTimetable(EncodeTimetable(in))
	require.NoError(t, err)
	assert.Equal(t, in, out)
}
