package gcp

import (
	"context"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/firestore"

	"github.com/dolphinsdn29000/UA-and-FedReg-Compiler/internal/models"
)

// NewFirestoreClient creates and returns a new Firestore client for the given project ID.
// It centralizes client creation for all services.
func NewFirestoreClient(ctx context.Context, projectID string) (*firestore.Client, error) {
	if projectID == "" {
		return nil, fmt.Errorf("projectID must be provided to create a firestore client")
	}

	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to create Firestore client: %w", err)
	}

	return client, nil
}

// Manifest records per-document compile status in Firestore. One document per
// (execution, source file) pair, keyed deterministically so a status update
// overwrites the previous stage rather than stacking duplicates.
type Manifest struct {
	client     *firestore.Client
	collection string
}

// NewManifest creates a manifest recorder over the given collection.
func NewManifest(client *firestore.Client, collection string) *Manifest {
	return &Manifest{client: client, collection: collection}
}

// RecordDocument upserts one manifest entry, stamping the write time.
func (m *Manifest) RecordDocument(ctx context.Context, doc *models.Document) error {
	doc.CreatedAt = time.Now().UTC()
	id := manifestID(doc.ExecutionID, doc.SourceXML)
	if _, err := m.client.Collection(m.collection).Doc(id).Set(ctx, doc); err != nil {
		return fmt.Errorf("failed to record manifest for %s: %w", doc.SourceXML, err)
	}
	return nil
}

// manifestID builds a Firestore-safe document ID.
func manifestID(executionID, sourceXML string) string {
	safe := strings.ReplaceAll(sourceXML, "/", "_")
	if executionID == "" {
		return safe
	}
	return executionID + "_" + safe
}
