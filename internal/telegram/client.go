package telegram

import (
	"context"
)

// Client is the remote API surface the exporter consumes. Connection,
// encryption and request framing belong to the implementation; every
// method issues at most one logical RPC exchange.
type Client interface {
	// Me returns the account that owns the session.
	Me(ctx context.Context) (Entity, error)

	// ResolveEntity maps a numeric peer id to a usable entity.
	// Returns *NotFoundError when the peer does not exist or is not
	// reachable from this account.
	ResolveEntity(ctx context.Context, peerID int64) (Entity, error)

	// SearchMessages fetches one page of chat history, newest-first is
	// typical but not guaranteed. Returns *RateLimitedError when the
	// service throttles the account.
	SearchMessages(ctx context.Context, req SearchRequest) ([]RawMessage, error)

	// GetMessage fetches a single message by id.
	GetMessage(ctx context.Context, entity Entity, id int64) (RawMessage, error)

	// IterateThread opens a forward pass over all replies to the given
	// anchor post. The transport resolves the discussion chat itself.
	IterateThread(ctx context.Context, entity Entity, anchorID int64) (ThreadIterator, error)

	// Close releases the underlying transport.
	Close() error
}

// SessionProvider yields an authenticated client from stored session
// state. Authenticate is invoked once per process; there is no
// re-authentication path, a dead session fails with ErrNotAuthorized.
type SessionProvider interface {
	Authenticate(ctx context.Context) (Client, error)
}
