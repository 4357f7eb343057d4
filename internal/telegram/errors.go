package telegram

import (
	"errors"
	"fmt"
	"time"
)

// ErrNotAuthorized indicates the stored session is missing or expired.
// The exporter never re-authenticates; the operator runs `tgexport auth`
// (or the external login flow) and retries.
var ErrNotAuthorized = errors.New("telegram session is not authorized")

// NotFoundError reports a peer or message that does not exist on the
// remote side. Fatal for the run that needed it.
type NotFoundError struct {
	Kind string
	ID   int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("telegram %s %d not found", e.Kind, e.ID)
}

// RateLimitedError carries the server-advertised flood wait. The engine
// treats it as a terminal outcome for the current run, never as a cue to
// sleep and retry.
type RateLimitedError struct {
	Wait time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("telegram rate limited: wait %s", e.Wait)
}

// Seconds returns the advertised wait rounded to whole seconds.
func (e *RateLimitedError) Seconds() int {
	return int(e.Wait / time.Second)
}
