// Package out defines outbound ports (driven ports) for the application.
package out

import (
	"context"

	"digest_server/core/domain"
)

// MailProvider is the outbound port for the external mail service.
type MailProvider interface {
	// ListRecent returns all messages newer than the given number of days.
	ListRecent(ctx context.Context, days int) ([]domain.Message, error)
}

// TextGenerator is the outbound port for the text-generation service.
// Errors propagate to the caller; there is no retry layer, the dedup check
// makes re-invocation on the next run the retry mechanism.
type TextGenerator interface {
	Summarize(ctx context.Context, text string) (summary string, tokenCount int, err error)
	GenerateTags(ctx context.Context, summary string) (string, error)
}

// ListFilter restricts a record listing. Zero value means no filtering.
type ListFilter struct {
	// Day restricts to records whose received_date_time parses to this
	// calendar date (format "2006-01-02"). Records with unparseable
	// timestamps are excluded while the filter is active.
	Day string
	// Senders restricts to records whose canonical sender is in the set.
	Senders []string
}

// RecordStore is the single source of truth for "already processed".
type RecordStore interface {
	Exists(id string) bool
	// Load returns the record for id, or ok=false if it does not exist or
	// cannot be parsed.
	Load(id string) (rec *domain.Record, ok bool)
	Save(rec *domain.Record) error
	// ListMatching scans all records, applies the filter, and returns them
	// ordered by received_date_time descending. Corrupt files are skipped.
	ListMatching(filter ListFilter) ([]*domain.Record, error)
}

// CloudRenderer renders a wordcloud image for a summary and returns the
// image path. Implementations may be a no-op when rendering is disabled.
type CloudRenderer interface {
	Render(ctx context.Context, summary, id, sender, day string) (path string, err error)
}
