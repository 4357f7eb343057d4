// Package telegram defines the boundary to the remote messaging service.
//
// The actual MTProto transport lives behind the Client interface; this
// module only consumes resolved entities and dynamically shaped message
// items. Implementations are registered as providers in internal/app,
// mirroring how the other external collaborators (database, artifact
// store, event queue) are wired.
package telegram

import (
	"context"
	"strconv"
	"time"
)

// Entity is a resolved peer: a user, basic group, or channel/supergroup.
type Entity struct {
	ID       int64
	Kind     string // "user", "chat", or "channel"
	Title    string
	Username string
}

// DisplayName picks the friendliest available label for logs and output
// file naming, falling back to the numeric id.
func (e Entity) DisplayName(peerID int64) string {
	if e.Title != "" {
		return e.Title
	}
	if e.Username != "" {
		return e.Username
	}
	return formatPeerID(peerID)
}

// Descriptor returns the entity as plain named fields, suitable for
// normalization into a record's peer identity column.
func (e Entity) Descriptor() map[string]any {
	return map[string]any{
		"_":        "Peer" + titleKind(e.Kind),
		"id":       e.ID,
		"kind":     e.Kind,
		"title":    e.Title,
		"username": e.Username,
	}
}

// RawMessage is one remote history item. ID and Date are the only fields
// every component needs typed access to; everything else the service
// attaches (media, forwards, reactions, service actions, ...) rides in
// Attrs with whatever shape the transport produced.
type RawMessage struct {
	ID   int64
	Date time.Time
	// Attrs holds the remaining attributes by name. Values may be
	// scalars, []byte, time.Time, maps, slices, or objects exposing a
	// decompose-to-mapping capability; the normalizer accepts them all.
	Attrs map[string]any
}

// Attr looks up a named attribute. The typed ID and Date fields are
// addressable under their wire names so projectors can treat every
// field uniformly.
func (m RawMessage) Attr(name string) (any, bool) {
	switch name {
	case "id":
		return m.ID, true
	case "date":
		if m.Date.IsZero() {
			return nil, false
		}
		return m.Date, true
	}
	v, ok := m.Attrs[name]
	return v, ok
}

// HasDate reports whether the item carries a timestamp. Items without
// one (empty or deleted placeholders) are skipped by the engine, as the
// service emits them inside otherwise valid batches.
func (m RawMessage) HasDate() bool {
	return !m.Date.IsZero()
}

// SearchRequest parameterizes one backward-pagination page over a whole
// chat. MinDate/MaxDate are epoch seconds; the window is half-open
// [MinDate, MaxDate). OffsetID zero means "from the newest message".
type SearchRequest struct {
	Entity   Entity
	Query    string
	OffsetID int64
	MinDate  int64
	MaxDate  int64
	Limit    int
}

// ThreadIterator yields the replies anchored at one post, oldest first
// or newest first at the transport's discretion. Next returns io.EOF
// after the final reply. The iterator is finite and not restartable;
// a *RateLimitedError may surface at any point.
type ThreadIterator interface {
	Next(ctx context.Context) (RawMessage, error)
}

func formatPeerID(peerID int64) string {
	return strconv.FormatInt(peerID, 10)
}

func titleKind(kind string) string {
	switch kind {
	case "user":
		return "User"
	case "chat":
		return "Chat"
	case "channel":
		return "Channel"
	default:
		return "Unknown"
	}
}
