// Package output writes the compile artifacts as CSV. Writes are
// deterministic: each file takes one registry snapshot for its header, rows
// keep their dataset order, and rewriting the same inputs produces the same
// bytes.
package output

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dolphinsdn29000/UA-and-FedReg-Compiler/internal/dataset"
	"github.com/dolphinsdn29000/UA-and-FedReg-Compiler/internal/flatten"
	"github.com/dolphinsdn29000/UA-and-FedReg-Compiler/internal/models"
	"github.com/dolphinsdn29000/UA-and-FedReg-Compiler/internal/schema"
)

// Artifact filenames.
const (
	FileFlat        = "ua_all_flat.csv"
	FileCounts      = "ua_all_counts_by_file.csv"
	FileLast        = "ua_all_last_per_rin.csv"
	FileBackfillLog = "ua_all_last_per_rin_backfill_log.csv"
	FileTimetables  = "ua_timetables.csv"
)

// Writer writes compile artifacts into one output directory.
type Writer struct {
	dir string
}

// NewWriter creates the output directory if needed.
func NewWriter(dir string) (*Writer, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory %s: %w", dir, err)
	}
	return &Writer{dir: dir}, nil
}

// Dir returns the output directory.
func (w *Writer) Dir() string { return w.dir }

func (w *Writer) writeCSV(name string, header []string, rows [][]string) (string, error) {
	path := filepath.Join(w.dir, name)
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %w", path, err)
	}
	cw := csv.NewWriter(f)
	if err := cw.Write(header); err != nil {
		f.Close()
		return "", fmt.Errorf("failed to write header of %s: %w", name, err)
	}
	if err := cw.WriteAll(rows); err != nil {
		f.Close()
		return "", fmt.Errorf("failed to write rows of %s: %w", name, err)
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		f.Close()
		return "", fmt.Errorf("failed to flush %s: %w", name, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("failed to close %s: %w", name, err)
	}
	return path, nil
}

// WriteDataset writes a dataset under the given filename, projecting every
// row against one column snapshot.
func (w *Writer) WriteDataset(name string, ds *dataset.Dataset) (string, error) {
	columns, rows := ds.Rows()
	return w.writeCSV(name, columns, rows)
}

// WriteCounts writes the per-document sanity summary.
func (w *Writer) WriteCounts(counts []models.DocumentCount) (string, error) {
	header := []string{"source_xml", "rows", "recovered", "skipped", "error"}
	rows := make([][]string, 0, len(counts))
	for _, c := range counts {
		rows = append(rows, []string{
			c.SourceXML,
			strconv.Itoa(c.Rows),
			strconv.FormatBool(c.Recovered),
			strconv.FormatBool(c.Skipped),
			c.Error,
		})
	}
	return w.writeCSV(FileCounts, header, rows)
}

// WriteBackfillLog writes the selector's audit trail.
func (w *Writer) WriteBackfillLog(entries []models.BackfillEntry) (string, error) {
	header := []string{
		"RIN", "field", "value",
		"from_publication_id", "from_source_xml",
		"last_publication_id", "last_source_xml",
	}
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, []string{
			e.RIN, e.Field, e.Value,
			e.FromPublicationID, e.FromSourceXML,
			e.LastPublicationID, e.LastSourceXML,
		})
	}
	return w.writeCSV(FileBackfillLog, header, rows)
}

// WriteTimetables writes one long table with a row per timetable entry, in
// dataset order with a per-record sequence number.
func (w *Writer) WriteTimetables(ds *dataset.Dataset) (string, error) {
	header := []string{
		"RIN", "PUBLICATION_ID", "source_xml", "seq",
		"action", "date_raw", "date_iso", "fr_citation",
	}
	var rows [][]string
	for _, rec := range ds.Records {
		entries, err := flatten.DecodeTimetable(rec[schema.ColTimetableList])
		if err != nil {
			return "", fmt.Errorf("record %s from %s: %w",
				rec.Get(schema.ColRIN), rec.Get(schema.ColSourceXML), err)
		}
		for i, e := range entries {
			rows = append(rows, []string{
				rec.Get(schema.ColRIN),
				rec.Get(schema.ColPublicationID),
				rec.Get(schema.ColSourceXML),
				strconv.Itoa(i + 1),
				e.Action, e.DateRaw, e.DateISO, e.FRCitation,
			})
		}
	}
	return w.writeCSV(FileTimetables, header, rows)
}

// WritePerDocument splits the flat dataset by source document and writes one
// <base>_flat.csv per document, all sharing the full superset header.
func (w *Writer) WritePerDocument(ds *dataset.Dataset) ([]string, error) {
	columns := ds.Registry.Columns()
	grouped := make(map[string][][]string)
	var order []string
	for _, rec := range ds.Records {
		source := rec.Get(schema.ColSourceXML)
		if _, seen := grouped[source]; !seen {
			order = append(order, source)
		}
		grouped[source] = append(grouped[source], dataset.Row(rec, columns))
	}

	paths := make([]string, 0, len(order))
	for _, source := range order {
		base := strings.TrimSuffix(source, filepath.Ext(source))
		path, err := w.writeCSV(base+"_flat.csv", columns, grouped[source])
		if err != nil {
			return nil, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}
