// Command agenda-compiler compiles a local (or GCS-hosted) Unified Agenda
// XML corpus into the flat and last-per-RIN CSV artifacts.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"

	"cloud.google.com/go/storage"
	"github.com/google/uuid"

	"github.com/dolphinsdn29000/UA-and-FedReg-Compiler/internal/config"
	"github.com/dolphinsdn29000/UA-and-FedReg-Compiler/internal/gcp"
	"github.com/dolphinsdn29000/UA-and-FedReg-Compiler/internal/services"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file (optional)")
	inputDir := flag.String("input", "", "directory of agenda XML documents (overrides config)")
	outputDir := flag.String("output", "", "directory for CSV artifacts (overrides config)")
	perDoc := flag.Bool("per-doc", false, "also write one flat CSV per source document")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("Invalid configuration.", "error", err)
		os.Exit(1)
	}
	if *inputDir != "" {
		cfg.InputDir = *inputDir
	}
	if *outputDir != "" {
		cfg.OutputDir = *outputDir
	}
	if *perDoc {
		cfg.PerDocumentCSV = true
	}

	ctx := context.Background()
	executionID := uuid.NewString()

	var storageClient *storage.Client
	if cfg.GCS.Bucket != "" || cfg.GCS.OutputBucket != "" {
		if storageClient, err = storage.NewClient(ctx); err != nil {
			slog.Error("Failed to create storage client.", "error", err)
			os.Exit(1)
		}
	}

	var manifest services.ManifestRecorder
	if cfg.Firestore.ProjectID != "" {
		fsClient, err := gcp.NewFirestoreClient(ctx, cfg.Firestore.ProjectID)
		if err != nil {
			slog.Error("Failed to create firestore client.", "error", err)
			os.Exit(1)
		}
		defer fsClient.Close()
		collection := cfg.Firestore.Collection
		if collection == "" {
			collection = "agenda-documents"
		}
		manifest = gcp.NewManifest(fsClient, collection)
	}

	runner := services.NewRunner(cfg, manifest, storageClient)
	resp, err := runner.Run(ctx, executionID)
	if err != nil {
		slog.Error("Compile failed.", "executionId", executionID, "error", err)
		os.Exit(1)
	}
	slog.Info("Compile finished.",
		"executionId", resp.ExecutionID,
		"documents", resp.Documents,
		"skippedDocs", resp.SkippedDocs,
		"rows", resp.Rows,
		"distinctRins", resp.DistinctRINs,
		"backfills", resp.Backfills,
		"outputDir", cfg.OutputDir)
}
