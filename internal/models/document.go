package models

import "time"

// Document statuses recorded in the run manifest.
const (
	StatusParsing   = "PARSING"
	StatusParsed    = "PARSED"
	StatusRecovered = "RECOVERED"
	StatusSkipped   = "SKIPPED"
)

// Document is the run-manifest record for one source XML in Firestore.
// It tracks the per-document outcome and row count of a compile run.
type Document struct {
	SourceXML    string    `firestore:"sourceXml,omitempty"`
	Status       string    `firestore:"status,omitempty"`
	Rows         int       `firestore:"rows,omitempty"`
	ErrorDetails string    `firestore:"errorDetails,omitempty"`
	ExecutionID  string    `firestore:"executionId,omitempty"` // For traceability
	CreatedAt    time.Time `firestore:"createdAt,omitempty"`
}
