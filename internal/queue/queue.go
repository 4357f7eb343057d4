// Package queue defines the interface for announcing finished export
// runs. The abstraction keeps the application independent of a specific
// message broker (GCP Pub/Sub today).
package queue

import (
	"context"
	"time"
)

// RunEvent describes one completed export run. It is serialized as JSON
// for downstream consumers.
type RunEvent struct {
	RunID       string    `json:"run_id"`
	Mode        string    `json:"mode"`
	PeerID      int64     `json:"peer_id"`
	PostID      int64     `json:"post_id,omitempty"`
	Records     int64     `json:"records"`
	Requests    int       `json:"requests"`
	Dropped     int64     `json:"dropped"`
	RateLimited bool      `json:"rate_limited"`
	WaitSeconds int       `json:"wait_seconds,omitempty"`
	OutputPath  string    `json:"output_path"`
	ArtifactURI string    `json:"artifact_uri,omitempty"`
	CompletedAt time.Time `json:"completed_at"`
}

// Provider publishes run events to a configured destination.
type Provider interface {
	// Publish announces a completed run.
	Publish(ctx context.Context, event RunEvent) error

	// Close cleans up any client connections and resources.
	Close() error
}

// NoOpProvider is a queue provider that performs no operations. It is
// the default: runs complete without announcing anything.
type NoOpProvider struct{}

// Publish for NoOpProvider does nothing and returns nil.
func (n *NoOpProvider) Publish(_ context.Context, _ RunEvent) error { return nil }

// Close for NoOpProvider does nothing and returns nil.
func (n *NoOpProvider) Close() error { return nil }
