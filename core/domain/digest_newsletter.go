package domain

import "time"

// Message is an email as delivered by the mail provider. Read-only input;
// the provider owns it and this system never writes it back.
type Message struct {
	ID      string
	Sender  string // raw "From" header, e.g. `Mike Allen <mike@axios.com>`
	Subject string
	Date    time.Time
	HTML    string
}

// Record is the persisted per-message structure: raw content plus the
// derived summary, tags, and usage metrics. One JSON file per Record,
// keyed by ID.
type Record struct {
	ID                string `json:"id"`
	Sender            string `json:"sender"`
	Subject           string `json:"subject"`
	ReceivedDay       string `json:"received_day"`
	ReceivedDateTime  string `json:"received_date_time"`
	Body              string `json:"body"`
	BodySummary       string `json:"body_summary,omitempty"`
	SummaryTokenCount int    `json:"summary_token_count,omitempty"`
	Tags              string `json:"tags,omitempty"`
	PublisherID       *int   `json:"publisher_id,omitempty"`
	SummaryImagePath  string `json:"summary_image_path,omitempty"`
}

// Summarized reports whether this record already carries a summary.
// Once true the record is never re-summarized.
func (r *Record) Summarized() bool {
	return r != nil && r.BodySummary != ""
}

// ReceivedDayFormat is the human-readable day format, e.g. "Jan 05 2024".
const ReceivedDayFormat = "Jan 02 2006"

// OutcomeStatus classifies what happened to a single message during a run.
type OutcomeStatus string

const (
	OutcomeSummarized        OutcomeStatus = "summarized"
	OutcomeStored            OutcomeStatus = "stored" // raw record persisted, summary pending
	OutcomeAlreadySummarized OutcomeStatus = "already_summarized"
	OutcomeNotSelected       OutcomeStatus = "not_selected"
	OutcomeNotAllowed        OutcomeStatus = "not_allowed"
	OutcomeFailed            OutcomeStatus = "failed"
)

// Outcome is the per-message processing result. Failures carry the reason
// instead of aborting the surrounding run.
type Outcome struct {
	MessageID string        `json:"message_id"`
	Sender    string        `json:"sender"`
	Status    OutcomeStatus `json:"status"`
	Reason    string        `json:"reason,omitempty"`
}

// RunReport aggregates the outcomes of one orchestrator run.
type RunReport struct {
	Outcomes     []Outcome `json:"outcomes"`
	FallbackUsed bool      `json:"fallback_used"`
}

// Count returns how many outcomes have the given status.
func (r *RunReport) Count(status OutcomeStatus) int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Status == status {
			n++
		}
	}
	return n
}
