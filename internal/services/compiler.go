package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/dolphinsdn29000/UA-and-FedReg-Compiler/internal/dataset"
	"github.com/dolphinsdn29000/UA-and-FedReg-Compiler/internal/flatten"
	"github.com/dolphinsdn29000/UA-and-FedReg-Compiler/internal/models"
	"github.com/dolphinsdn29000/UA-and-FedReg-Compiler/internal/schema"
	"github.com/dolphinsdn29000/UA-and-FedReg-Compiler/internal/walker"
)

// reCorpusFile matches the agenda naming convention REGINFO_RIN_DATA_YYYYMM.xml.
var reCorpusFile = regexp.MustCompile(`(?i)^REGINFO_RIN_DATA_(\d{6})\.xml$`)

// ManifestRecorder persists per-document processing status. Recording is
// best-effort: a recorder failure is logged and never fails the compile.
type ManifestRecorder interface {
	RecordDocument(ctx context.Context, doc *models.Document) error
}

// CompilerConfig holds configuration for the compile pass.
type CompilerConfig struct {
	Parallelism int
	ExecutionID string
}

// CompilerService turns a corpus of agenda XML documents into one flat
// dataset. Documents are flattened independently; the shared registry is the
// only cross-document state, so results are identical whether documents are
// processed sequentially or in parallel.
type CompilerService struct {
	registry *schema.Registry
	manifest ManifestRecorder
	config   CompilerConfig
}

// NewCompiler creates a compiler over the given registry. The recorder may be
// nil for local runs.
func NewCompiler(reg *schema.Registry, manifest ManifestRecorder, config CompilerConfig) *CompilerService {
	if config.Parallelism < 1 {
		config.Parallelism = 1
	}
	return &CompilerService{registry: reg, manifest: manifest, config: config}
}

// DiscoverCorpus lists the documents to compile from a directory. Files
// matching the REGINFO_RIN_DATA_YYYYMM.xml convention are preferred; if none
// match, every .xml file is taken. The result is sorted by filename so runs
// are reproducible.
func DiscoverCorpus(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read corpus directory %s: %w", dir, err)
	}
	var conventional, anyXML []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if reCorpusFile.MatchString(name) {
			conventional = append(conventional, filepath.Join(dir, name))
		}
		if strings.EqualFold(filepath.Ext(name), ".xml") {
			anyXML = append(anyXML, filepath.Join(dir, name))
		}
	}
	paths := conventional
	if len(paths) == 0 {
		paths = anyXML
	}
	sort.Strings(paths)
	if len(paths) == 0 {
		return nil, fmt.Errorf("no XML documents found in %s", dir)
	}
	return paths, nil
}

type docResult struct {
	records []models.Record
	count   models.DocumentCount
}

// Process flattens every document and appends the results in input order.
// Unreadable documents are logged and skipped; the run only fails on context
// cancellation.
func (s *CompilerService) Process(ctx context.Context, paths []string) (*dataset.Dataset, []models.DocumentCount, error) {
	results := make([]docResult, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.config.Parallelism)
	for i, path := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = s.processDocument(gctx, path)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, fmt.Errorf("compile interrupted: %w", err)
	}

	ds := dataset.New(s.registry)
	counts := make([]models.DocumentCount, 0, len(paths))
	for _, r := range results {
		ds.Append(r.records...)
		counts = append(counts, r.count)
	}
	return ds, counts, nil
}

func (s *CompilerService) processDocument(ctx context.Context, path string) docResult {
	source := filepath.Base(path)
	logCtx := slog.With("sourceXml", source, "executionId", s.config.ExecutionID)
	logCtx.Info("Parsing document.")
	s.record(ctx, source, models.StatusParsing, 0, "")

	records, report, err := flatten.Document(path, s.registry)
	if err != nil {
		if errors.Is(err, walker.ErrDocumentUnreadable) {
			logCtx.Warn("Document is unreadable, skipping.", "error", err)
		} else {
			logCtx.Error("Failed to process document, skipping.", "error", err)
		}
		s.record(ctx, source, models.StatusSkipped, 0, err.Error())
		return docResult{count: models.DocumentCount{SourceXML: source, Skipped: true, Error: err.Error()}}
	}

	for _, rec := range records {
		rec[schema.ColSourceXML] = source
	}

	status := models.StatusParsed
	count := models.DocumentCount{SourceXML: source, Rows: len(records)}
	if report.Recovered {
		logCtx.Warn("Document recovered partially.", "rows", len(records), "error", report.RecoverErr)
		status = models.StatusRecovered
		count.Recovered = true
		count.Error = report.RecoverErr.Error()
	} else {
		logCtx.Info("Document parsed.", "rows", len(records))
	}
	s.record(ctx, source, status, len(records), count.Error)
	return docResult{records: records, count: count}
}

func (s *CompilerService) record(ctx context.Context, source, status string, rows int, detail string) {
	if s.manifest == nil {
		return
	}
	doc := &models.Document{
		SourceXML:    source,
		Status:       status,
		Rows:         rows,
		ErrorDetails: detail,
		ExecutionID:  s.config.ExecutionID,
	}
	if err := s.manifest.RecordDocument(ctx, doc); err != nil {
		slog.Warn("Failed to record document manifest.", "sourceXml", source, "error", err)
	}
}
