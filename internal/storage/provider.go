// Package storage defines the interface for archiving finished export
// artifacts. The abstraction keeps the exporter independent of a
// specific backend (Google Cloud Storage today, possibly S3 later).
package storage

import (
	"context"
)

// ArtifactStore uploads a finished local artifact under an object name
// and returns the resulting remote URI.
type ArtifactStore interface {
	Upload(ctx context.Context, localPath, objectName string) (string, error)
}

// NoOpStore is an artifact store that performs no operations. It is the
// default: exports stay on the local filesystem only.
type NoOpStore struct{}

// Upload for NoOpStore does nothing and reports an empty URI.
func (n *NoOpStore) Upload(_ context.Context, _ string, _ string) (string, error) {
	return "", nil
}
