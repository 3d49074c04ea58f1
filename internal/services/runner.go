package services

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"cloud.google.com/go/storage"

	"github.com/dolphinsdn29000/UA-and-FedReg-Compiler/internal/config"
	"github.com/dolphinsdn29000/UA-and-FedReg-Compiler/internal/dataset"
	"github.com/dolphinsdn29000/UA-and-FedReg-Compiler/internal/gcp"
	"github.com/dolphinsdn29000/UA-and-FedReg-Compiler/internal/models"
	"github.com/dolphinsdn29000/UA-and-FedReg-Compiler/internal/output"
	"github.com/dolphinsdn29000/UA-and-FedReg-Compiler/internal/schema"
)

// GCSEvent is the storage-notification payload the watcher receives.
type GCSEvent struct {
	Bucket string `json:"bucket"`
	Name   string `json:"name"`
}

// Runner drives one full compile: corpus discovery, flattening, selection,
// and artifact writing, plus the optional GCS upload and manifest recording.
type Runner struct {
	config        config.Config
	manifest      ManifestRecorder
	storageClient *storage.Client
}

// NewRunner creates a runner. The manifest recorder and storage client may be
// nil; the corresponding stages are then skipped.
func NewRunner(cfg config.Config, manifest ManifestRecorder, storageClient *storage.Client) *Runner {
	return &Runner{config: cfg, manifest: manifest, storageClient: storageClient}
}

// NewCloudRunner builds a runner from the environment for hosted entry
// points: configuration comes from UA_CONFIG (optional) plus env overrides,
// and the GCP clients are created eagerly so a bad deployment fails at cold
// start instead of mid-run.
func NewCloudRunner(ctx context.Context) (*Runner, error) {
	cfg, err := config.Load(gcp.GetEnv("UA_CONFIG", ""))
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if cfg.GCS.Bucket == "" {
		return nil, fmt.Errorf("CORPUS_BUCKET must be set for hosted runs")
	}

	storageClient, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}

	var manifest ManifestRecorder
	if cfg.Firestore.ProjectID != "" {
		fsClient, err := gcp.NewFirestoreClient(ctx, cfg.Firestore.ProjectID)
		if err != nil {
			return nil, err
		}
		collection := cfg.Firestore.Collection
		if collection == "" {
			collection = "agenda-documents"
		}
		manifest = gcp.NewManifest(fsClient, collection)
	}

	return &Runner{config: cfg, manifest: manifest, storageClient: storageClient}, nil
}

// Config returns the runner's effective configuration.
func (r *Runner) Config() config.Config { return r.config }

// WithConfig returns a runner that shares this runner's clients but uses the
// given configuration. Per-request overrides never mutate the shared runner.
func (r *Runner) WithConfig(cfg config.Config) *Runner {
	return &Runner{config: cfg, manifest: r.manifest, storageClient: r.storageClient}
}

// Run executes one compile end to end and returns its summary.
func (r *Runner) Run(ctx context.Context, executionID string) (*models.CompileResponse, error) {
	logCtx := slog.With("executionId", executionID)

	paths, err := r.corpusPaths(ctx)
	if err != nil {
		return nil, err
	}
	logCtx.Info("Corpus resolved.", "documents", len(paths))

	reg := schema.NewRegistry()
	compiler := NewCompiler(reg, r.manifest, CompilerConfig{
		Parallelism: r.config.Parallelism,
		ExecutionID: executionID,
	})
	ds, counts, err := compiler.Process(ctx, paths)
	if err != nil {
		return nil, err
	}

	selector := NewSelector(SelectorConfig{
		BackfillFields: r.config.BackfillFields,
		WindowStart:    r.config.Window.Start,
		WindowEnd:      r.config.Window.End,
	})
	selection, err := selector.Process(ctx, ds)
	if err != nil {
		return nil, err
	}

	artifacts, err := r.writeArtifacts(ds, selection, counts)
	if err != nil {
		return nil, err
	}
	logCtx.Info("Artifacts written.", "directory", r.config.OutputDir, "files", len(artifacts))

	uri := ""
	if r.storageClient != nil && r.config.GCS.OutputBucket != "" {
		uri, err = gcp.UploadArtifacts(ctx, r.storageClient, r.config.GCS.OutputBucket,
			"runs/"+executionID, artifacts)
		if err != nil {
			return nil, err
		}
		logCtx.Info("Artifacts uploaded.", "uri", uri)
	}

	skipped := 0
	for _, c := range counts {
		if c.Skipped {
			skipped++
		}
	}
	return &models.CompileResponse{
		Status:       "OK",
		ExecutionID:  executionID,
		Documents:    len(counts),
		SkippedDocs:  skipped,
		Rows:         ds.Len(),
		DistinctRINs: selection.Last.Len(),
		Backfills:    len(selection.Audit),
		ArtifactsURI: uri,
	}, nil
}

// corpusPaths resolves the input documents, staging a GCS corpus locally
// when one is configured.
func (r *Runner) corpusPaths(ctx context.Context) ([]string, error) {
	if r.config.GCS.Bucket != "" && r.storageClient != nil {
		staging, err := os.MkdirTemp("", "agenda-corpus-*")
		if err != nil {
			return nil, fmt.Errorf("failed to create staging directory: %w", err)
		}
		store := gcp.NewCorpusStore(r.storageClient, r.config.GCS.Bucket, r.config.GCS.Prefix)
		if _, err := store.Download(ctx, staging); err != nil {
			return nil, err
		}
		return DiscoverCorpus(staging)
	}
	return DiscoverCorpus(r.config.InputDir)
}

func (r *Runner) writeArtifacts(ds *dataset.Dataset, selection *Selection, counts []models.DocumentCount) ([]string, error) {
	w, err := output.NewWriter(r.config.OutputDir)
	if err != nil {
		return nil, err
	}
	var artifacts []string

	path, err := w.WriteDataset(output.FileFlat, ds)
	if err != nil {
		return nil, err
	}
	artifacts = append(artifacts, path)

	if path, err = w.WriteCounts(counts); err != nil {
		return nil, err
	}
	artifacts = append(artifacts, path)

	if path, err = w.WriteDataset(output.FileLast, selection.Last); err != nil {
		return nil, err
	}
	artifacts = append(artifacts, path)

	if path, err = w.WriteBackfillLog(selection.Audit); err != nil {
		return nil, err
	}
	artifacts = append(artifacts, path)

	if r.config.TimetableCSV {
		if path, err = w.WriteTimetables(ds); err != nil {
			return nil, err
		}
		artifacts = append(artifacts, path)
	}
	if r.config.PerDocumentCSV {
		perDoc, err := w.WritePerDocument(ds)
		if err != nil {
			return nil, err
		}
		artifacts = append(artifacts, perDoc...)
	}
	return artifacts, nil
}
