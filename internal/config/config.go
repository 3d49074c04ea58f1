// Package config loads compiler configuration from an optional YAML file and
// overlays environment variables, so the same binary drives local runs and
// hosted deployments.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/dolphinsdn29000/UA-and-FedReg-Compiler/internal/gcp"
	"github.com/dolphinsdn29000/UA-and-FedReg-Compiler/internal/schema"
)

// Window bounds the publication issues admitted to selection, inclusive,
// as YYYYMM integers. Zero means unbounded on that side.
type Window struct {
	Start int `yaml:"start"`
	End   int `yaml:"end"`
}

// GCSConfig locates a hosted corpus and the artifact destination.
type GCSConfig struct {
	Bucket       string `yaml:"bucket"`
	Prefix       string `yaml:"prefix"`
	OutputBucket string `yaml:"outputBucket"`
}

// FirestoreConfig locates the run manifest.
type FirestoreConfig struct {
	ProjectID  string `yaml:"projectId"`
	Collection string `yaml:"collection"`
}

// Config is the full compiler configuration.
type Config struct {
	InputDir       string          `yaml:"inputDir"`
	OutputDir      string          `yaml:"outputDir"`
	PerDocumentCSV bool            `yaml:"perDocumentCsv"`
	TimetableCSV   bool            `yaml:"timetableCsv"`
	Parallelism    int             `yaml:"parallelism"`
	Window         Window          `yaml:"window"`
	BackfillFields []string        `yaml:"backfillFields"`
	GCS            GCSConfig       `yaml:"gcs"`
	Firestore      FirestoreConfig `yaml:"firestore"`
}

// Default returns the configuration used when no file or environment says
// otherwise.
func Default() Config {
	return Config{
		InputDir:       "input_xml",
		OutputDir:      "output",
		TimetableCSV:   true,
		Parallelism:    1,
		BackfillFields: append([]string(nil), schema.DefaultBackfillFields...),
	}
}

// Load reads the YAML file at path (when non-empty), overlays environment
// variables, and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// applyEnv overlays environment variables onto the loaded configuration.
func (c *Config) applyEnv() {
	c.InputDir = gcp.GetEnv("UA_INPUT_DIR", c.InputDir)
	c.OutputDir = gcp.GetEnv("UA_OUTPUT_DIR", c.OutputDir)
	c.GCS.Bucket = gcp.GetEnv("CORPUS_BUCKET", c.GCS.Bucket)
	c.GCS.Prefix = gcp.GetEnv("CORPUS_PREFIX", c.GCS.Prefix)
	c.GCS.OutputBucket = gcp.GetEnv("ARTIFACT_BUCKET", c.GCS.OutputBucket)
	c.Firestore.ProjectID = gcp.GetEnv("PROJECT_ID", c.Firestore.ProjectID)
	c.Firestore.Collection = gcp.GetEnv("MANIFEST_COLLECTION", c.Firestore.Collection)

	if v := gcp.GetEnv("UA_PARALLELISM", ""); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Parallelism = n
		}
	}
	if v := gcp.GetEnv("UA_WINDOW_START", ""); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Window.Start = n
		}
	}
	if v := gcp.GetEnv("UA_WINDOW_END", ""); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Window.End = n
		}
	}
	if v := gcp.GetEnv("UA_BACKFILL_FIELDS", ""); v != "" {
		fields := strings.Split(v, ",")
		c.BackfillFields = c.BackfillFields[:0]
		for _, f := range fields {
			if f = strings.TrimSpace(f); f != "" {
				c.BackfillFields = append(c.BackfillFields, f)
			}
		}
	}
}

// Validate rejects configurations the pipeline cannot run with. A bad
// configuration halts the run; it is never patched over silently.
func (c *Config) Validate() error {
	if c.InputDir == "" && c.GCS.Bucket == "" {
		return fmt.Errorf("either inputDir or gcs.bucket must be set")
	}
	if c.OutputDir == "" {
		return fmt.Errorf("outputDir must be set")
	}
	if c.Parallelism < 1 {
		return fmt.Errorf("parallelism must be at least 1, got %d", c.Parallelism)
	}
	if err := validateWindowBound(c.Window.Start, "window.start"); err != nil {
		return err
	}
	if err := validateWindowBound(c.Window.End, "window.end"); err != nil {
		return err
	}
	if c.Window.Start != 0 && c.Window.End != 0 && c.Window.Start > c.Window.End {
		return fmt.Errorf("window.start %d is after window.end %d", c.Window.Start, c.Window.End)
	}
	if len(c.BackfillFields) == 0 {
		return fmt.Errorf("backfillFields must not be empty")
	}
	return nil
}

func validateWindowBound(v int, name string) error {
	if v == 0 {
		return nil
	}
	if v < 100000 || v > 999999 {
		return fmt.Errorf("%s must be a YYYYMM value, got %d", name, v)
	}
	if mm := v % 100; mm < 1 || mm > 12 {
		return fmt.Errorf("%s has an invalid month: %d", name, v)
	}
	return nil
}
