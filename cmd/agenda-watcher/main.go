package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/GoogleCloudPlatform/functions-framework-go/functions"
	cloudevents "github.com/cloudevents/sdk-go/v2"
	"github.com/google/uuid"

	"github.com/dolphinsdn29000/UA-and-FedReg-Compiler/internal/services"
)

var (
	runnerInstance *services.Runner
	once           sync.Once
	initErr        error
)

func init() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	functions.CloudEvent("RecompileOnUpload", recompileOnUpload)
}

// main is required by the Go Functions Framework.
func main() {}

// recompileOnUpload recompiles the corpus whenever a new agenda XML lands in
// the watched bucket. Non-XML uploads are acknowledged and ignored.
func recompileOnUpload(ctx context.Context, e cloudevents.Event) error {
	once.Do(func() {
		runnerInstance, initErr = services.NewCloudRunner(context.Background())
	})
	if initErr != nil {
		slog.Error("Critical error during function initialization", "error", initErr)
		return initErr
	}

	var gcsEvent services.GCSEvent
	if err := json.Unmarshal(e.Data(), &gcsEvent); err != nil {
		slog.Error("Failed to unmarshal event data", "error", err, "data", string(e.Data()))
		return fmt.Errorf("json.Unmarshal: %w", err)
	}

	if !strings.EqualFold(filepath.Ext(gcsEvent.Name), ".xml") {
		slog.Info("Ignoring non-XML upload.", "object", gcsEvent.Name)
		return nil
	}

	executionID := uuid.NewString()
	slog.Info("Agenda upload detected, recompiling corpus.",
		"bucket", gcsEvent.Bucket, "object", gcsEvent.Name, "executionId", executionID)

	resp, err := runnerInstance.Run(ctx, executionID)
	if err != nil {
		slog.Error("Recompile failed.", "executionId", executionID, "error", err)
		return err
	}
	slog.Info("Recompile finished.",
		"executionId", resp.ExecutionID, "rows", resp.Rows,
		"distinctRins", resp.DistinctRINs, "artifactsUri", resp.ArtifactsURI)
	return nil
}
