package telegram

import (
	"context"
	"io"
)

// NoOpClient is a transport stub that answers every call with empty
// history. It backs the default `telegram.provider: noop` wiring so the
// pipeline can be exercised end to end without a live session.
type NoOpClient struct{}

// Me returns a placeholder account entity.
func (NoOpClient) Me(_ context.Context) (Entity, error) {
	return Entity{ID: 0, Kind: "user", Username: "noop"}, nil
}

// ResolveEntity echoes the requested peer id back as a channel entity.
func (NoOpClient) ResolveEntity(_ context.Context, peerID int64) (Entity, error) {
	return Entity{ID: peerID, Kind: "channel", Title: "noop"}, nil
}

// SearchMessages returns an empty batch, the end-of-history sentinel.
func (NoOpClient) SearchMessages(_ context.Context, _ SearchRequest) ([]RawMessage, error) {
	return nil, nil
}

// GetMessage returns an empty item carrying only the requested id.
func (NoOpClient) GetMessage(_ context.Context, _ Entity, id int64) (RawMessage, error) {
	return RawMessage{ID: id}, nil
}

// IterateThread returns an already exhausted iterator.
func (NoOpClient) IterateThread(_ context.Context, _ Entity, _ int64) (ThreadIterator, error) {
	return emptyThread{}, nil
}

// Close does nothing and returns no error.
func (NoOpClient) Close() error { return nil }

type emptyThread struct{}

func (emptyThread) Next(_ context.Context) (RawMessage, error) {
	return RawMessage{}, io.EOF
}

// NoOpSessionProvider hands out a NoOpClient without touching any
// session state. Useful for dry runs and tests.
type NoOpSessionProvider struct{}

// Authenticate returns a NoOpClient and never fails.
func (NoOpSessionProvider) Authenticate(_ context.Context) (Client, error) {
	return NoOpClient{}, nil
}
