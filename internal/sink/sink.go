// Package sink defines where mirrored entries and digests are published.
package sink

import (
	"context"
	"errors"

	"github.com/fakeyudi/termtrace/internal/entry"
)

// ErrUnavailable means the destination cannot be reached or is misconfigured.
// The engine stops using a sink once it reports this.
var ErrUnavailable = errors.New("sink unavailable")

// Sink receives every non-control entry for its Full Log and every non-empty
// digest for its Summary.
type Sink interface {
	Name() string
	MirrorEntries(ctx context.Context, entries []entry.Entry) error
	PublishDigest(ctx context.Context, digest string) error
}

func mirrored(entries []entry.Entry) []entry.Entry {
	out := make([]entry.Entry, 0, len(entries))
	for _, e := range entries {
		if !e.IsControl() {
			out = append(out, e)
		}
	}
	return out
}
