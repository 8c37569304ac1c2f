package sink

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fakeyudi/termtrace/internal/docsync"
	"github.com/fakeyudi/termtrace/internal/entry"
)

// Appender is the part of docsync.Sync the document sink needs.
type Appender interface {
	Append(ctx context.Context, heading, text string) error
}

var _ Appender = (*docsync.Sync)(nil)

// Document publishes to the Full Log and Summary sections of a synced
// document.
type Document struct {
	doc Appender
	loc *time.Location
}

var _ Sink = (*Document)(nil)

// NewDocument wraps doc. Timestamps are shown in loc, or local time if nil.
func NewDocument(doc Appender, loc *time.Location) *Document {
	if loc == nil {
		loc = time.Local
	}
	return &Document{doc: doc, loc: loc}
}

func (d *Document) Name() string { return "document" }

func (d *Document) MirrorEntries(ctx context.Context, entries []entry.Entry) error {
	entries = mirrored(entries)
	if len(entries) == 0 {
		return nil
	}
	parts := make([]string, len(entries))
	for i, e := range entries {
		parts[i] = entry.DocText(e, d.loc)
	}
	return classify(d.doc.Append(ctx, docsync.FullLogHeading, strings.Join(parts, "\n")))
}

func (d *Document) PublishDigest(ctx context.Context, digest string) error {
	if strings.TrimSpace(digest) == "" {
		return nil
	}
	return classify(d.doc.Append(ctx, docsync.SummaryHeading, digest))
}

func classify(err error) error {
	if err != nil && errors.Is(err, docsync.ErrUnavailable) {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return err
}
