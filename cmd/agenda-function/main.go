package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"sync"

	"github.com/GoogleCloudPlatform/functions-framework-go/functions"
	"github.com/google/uuid"

	"github.com/dolphinsdn29000/UA-and-FedReg-Compiler/internal/models"
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

	// "CompileAgenda" is the entry point name configured in GCP.
	functions.HTTP("CompileAgenda", compileAgenda)
}

// main is required by the Go Functions Framework.
func main() {}

// compileAgenda is the HTTP handler for on-demand compile runs.
func compileAgenda(w http.ResponseWriter, r *http.Request) {
	once.Do(func() {
		runnerInstance, initErr = services.NewCloudRunner(context.Background())
	})
	if initErr != nil {
		slog.Error("Runner initialization failed.", "error", initErr)
		http.Error(w, "Internal Server Error: failed to initialize service", http.StatusInternalServerError)
		return
	}

	var req models.CompileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Error("Could not decode request body.", "error", err)
		http.Error(w, "Bad Request: could not parse JSON", http.StatusBadRequest)
		return
	}
	if req.ExecutionID == "" {
		req.ExecutionID = uuid.NewString()
	}

	runner := runnerInstance
	cfg := runner.Config()
	if req.Bucket != "" && req.Bucket != cfg.GCS.Bucket ||
		req.Prefix != "" && req.Prefix != cfg.GCS.Prefix ||
		req.OutputBucket != "" && req.OutputBucket != cfg.GCS.OutputBucket {
		if req.Bucket != "" {
			cfg.GCS.Bucket = req.Bucket
		}
		if req.Prefix != "" {
			cfg.GCS.Prefix = req.Prefix
		}
		if req.OutputBucket != "" {
			cfg.GCS.OutputBucket = req.OutputBucket
		}
		runner = runner.WithConfig(cfg)
	}

	resp, err := runner.Run(r.Context(), req.ExecutionID)
	if err != nil {
		slog.Error("Compile failed.", "executionId", req.ExecutionID, "error", err)
		http.Error(w, "Internal Server Error: compile failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("Failed to write response.", "error", err)
		http.Error(w, "Internal Server Error: failed to encode response", http.StatusInternalServerError)
	}
}
