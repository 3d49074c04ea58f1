// Command agenda-checker cross-checks the CSV artifacts of a compile run:
// row counts against the per-file summary, distinct sorted RINs in the
// last-per-RIN table, matching headers, and backfill log referential
// integrity.
package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/dolphinsdn29000/UA-and-FedReg-Compiler/internal/output"
)

func main() {
	dir := flag.String("dir", "output", "directory holding the compile artifacts")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	problems := check(*dir)
	if len(problems) > 0 {
		for _, p := range problems {
			slog.Error("Consistency check failed.", "problem", p)
		}
		os.Exit(1)
	}
	slog.Info("All consistency checks passed.", "dir", *dir)
}

func check(dir string) []string {
	var problems []string

	flatHeader, flatRows, err := readTable(filepath.Join(dir, output.FileFlat))
	if err != nil {
		return []string{err.Error()}
	}
	lastHeader, lastRows, err := readTable(filepath.Join(dir, output.FileLast))
	if err != nil {
		return []string{err.Error()}
	}
	_, countRows, err := readTable(filepath.Join(dir, output.FileCounts))
	if err != nil {
		return []string{err.Error()}
	}
	_, backfillRows, err := readTable(filepath.Join(dir, output.FileBackfillLog))
	if err != nil {
		return []string{err.Error()}
	}

	if len(flatHeader) != len(lastHeader) {
		problems = append(problems, fmt.Sprintf(
			"header width differs: flat has %d columns, last-per-RIN has %d",
			len(flatHeader), len(lastHeader)))
	}

	declared := 0
	for _, row := range countRows {
		n, err := strconv.Atoi(row[1])
		if err != nil {
			problems = append(problems, fmt.Sprintf("bad row count %q for %s", row[1], row[0]))
			continue
		}
		declared += n
	}
	if declared != len(flatRows) {
		problems = append(problems, fmt.Sprintf(
			"flat table has %d rows but the summary declares %d", len(flatRows), declared))
	}

	rinIdx := indexOf(flatHeader, "RIN")
	if rinIdx < 0 {
		return append(problems, "flat table has no RIN column")
	}
	flatRINs := map[string]bool{}
	for _, row := range flatRows {
		flatRINs[row[rinIdx]] = true
	}

	lastRINs := make([]string, 0, len(lastRows))
	seen := map[string]bool{}
	for _, row := range lastRows {
		rin := row[rinIdx]
		if seen[rin] {
			problems = append(problems, fmt.Sprintf("RIN %s appears twice in the last-per-RIN table", rin))
		}
		seen[rin] = true
		lastRINs = append(lastRINs, rin)
		if !flatRINs[rin] {
			problems = append(problems, fmt.Sprintf("RIN %s is in the last-per-RIN table but not in the flat table", rin))
		}
	}
	if !sort.StringsAreSorted(lastRINs) {
		problems = append(problems, "last-per-RIN table is not sorted by RIN")
	}
	// A selection window may legitimately drop RINs, so only more distinct
	// RINs than the flat table is flagged.
	if len(seen) > len(flatRINs) {
		problems = append(problems, fmt.Sprintf(
			"flat table has %d distinct RINs but the last-per-RIN table has %d", len(flatRINs), len(seen)))
	}

	for _, row := range backfillRows {
		if !seen[row[0]] {
			problems = append(problems, fmt.Sprintf("backfill log references unknown RIN %s", row[0]))
		}
	}
	return problems
}

func readTable(path string) (header []string, rows [][]string, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()
	all, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if len(all) == 0 {
		return nil, nil, fmt.Errorf("%s is empty", path)
	}
	return all[0], all[1:], nil
}

func indexOf(header []string, name string) int {
	for i, c := range header {
		if c == name {
			return i
		}
	}
	return -1
}
