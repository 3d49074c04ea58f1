package models

// These structs define the JSON payloads for the hosted compile entry points.

// CompileRequest asks the hosted function to compile a GCS-hosted corpus.
// OutputBucket defaults to the function's configured artifact bucket.
type CompileRequest struct {
	Bucket       string `json:"bucket"`
	Prefix       string `json:"prefix"`
	OutputBucket string `json:"outputBucket"`
	ExecutionID  string `json:"executionId"`
}

// CompileResponse is the hosted function's summary of a compile run.
type CompileResponse struct {
	Status       string `json:"status"`
	ExecutionID  string `json:"executionId"`
	Documents    int    `json:"documents"`
	SkippedDocs  int    `json:"skippedDocs"`
	Rows         int    `json:"rows"`
	DistinctRINs int    `json:"distinctRins"`
	Backfills    int    `json:"backfills"`
	ArtifactsURI string `json:"artifactsUri"`
}
