// Package digest orchestrates newsletter processing: it decides, per
// fetched message, whether to skip, summarize, or persist, and aggregates
// the per-message outcomes.
package digest

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"digest_server/core/domain"
	"digest_server/core/extract"
	"digest_server/core/port/out"
	"digest_server/core/sender"
	"digest_server/pkg/logger"
)

type Service struct {
	mail    out.MailProvider
	gen     out.TextGenerator
	store   out.RecordStore
	cloud   out.CloudRenderer
	senders *sender.Table

	fetchDays int
}

func NewService(
	mail out.MailProvider,
	gen out.TextGenerator,
	store out.RecordStore,
	cloud out.CloudRenderer,
	senders *sender.Table,
	fetchDays int,
) *Service {
	if fetchDays < 1 {
		fetchDays = 1
	}
	return &Service{
		mail:      mail,
		gen:       gen,
		store:     store,
		cloud:     cloud,
		senders:   senders,
		fetchDays: fetchDays,
	}
}

// TodayMessages fetches the recent window and narrows it to messages from
// the current local day. When nothing in the window is from today, the
// whole window is returned with fallback=true so the caller can surface
// that the shown senders are older.
func (s *Service) TodayMessages(ctx context.Context) ([]domain.Message, bool, error) {
	messages, err := s.mail.ListRecent(ctx, s.fetchDays)
	if err != nil {
		return nil, false, fmt.Errorf("failed to fetch messages: %w", err)
	}

	dayStart := startOfDay(time.Now())
	if len(messages) > 0 {
		dayStart = startOfDay(messages[0].Date)
	}

	todays := make([]domain.Message, 0, len(messages))
	for _, msg := range messages {
		if !msg.Date.Before(dayStart) {
			todays = append(todays, msg)
		}
	}

	if len(todays) > 0 {
		return todays, false, nil
	}
	return messages, true, nil
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// SenderCount pairs a canonical sender name with its message count.
type SenderCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// SenderCounts tallies messages per canonical sender, sorted
// case-insensitively by name.
func (s *Service) SenderCounts(messages []domain.Message) []SenderCount {
	counts := make(map[string]int)
	for _, msg := range messages {
		counts[s.senders.Normalize(msg.Sender)]++
	}

	result := make([]SenderCount, 0, len(counts))
	for name, count := range counts {
		result = append(result, SenderCount{Name: name, Count: count})
	}
	sort.Slice(result, func(i, j int) bool {
		return strings.ToLower(result[i].Name) < strings.ToLower(result[j].Name)
	})
	return result
}

// ProcessSelected runs the interactive flow over the fetched messages:
// messages whose canonical sender is in the selection and which are not
// already summarized get extracted, summarized, tagged, and persisted.
// A failure in one message never aborts the rest.
func (s *Service) ProcessSelected(ctx context.Context, messages []domain.Message, selected []string, fallbackUsed bool) *domain.RunReport {
	selectedSet := make(map[string]struct{}, len(selected))
	for _, name := range selected {
		selectedSet[name] = struct{}{}
	}

	report := &domain.RunReport{FallbackUsed: fallbackUsed}
	for _, msg := range messages {
		name := s.senders.Normalize(msg.Sender)

		if _, ok := selectedSet[name]; !ok {
			report.Outcomes = append(report.Outcomes, domain.Outcome{
				MessageID: msg.ID, Sender: name, Status: domain.OutcomeNotSelected,
			})
			continue
		}

		// Dedup contract: a record bearing a summary is never reprocessed.
		if rec, ok := s.store.Load(msg.ID); ok && rec.Summarized() {
			report.Outcomes = append(report.Outcomes, domain.Outcome{
				MessageID: msg.ID, Sender: name, Status: domain.OutcomeAlreadySummarized,
			})
			continue
		}

		if err := s.summarizeAndSave(ctx, msg, name); err != nil {
			logger.WithError(err).WithField("id", msg.ID).Warn("message processing failed, will retry next run")
			report.Outcomes = append(report.Outcomes, domain.Outcome{
				MessageID: msg.ID, Sender: name, Status: domain.OutcomeFailed, Reason: err.Error(),
			})
			continue
		}

		report.Outcomes = append(report.Outcomes, domain.Outcome{
			MessageID: msg.ID, Sender: name, Status: domain.OutcomeSummarized,
		})
	}
	return report
}

func (s *Service) summarizeAndSave(ctx context.Context, msg domain.Message, name string) error {
	body := fmt.Sprintf("%s Email - %s", name, extract.Text(msg.HTML))

	summary, tokens, err := s.gen.Summarize(ctx, body)
	if err != nil {
		return fmt.Errorf("summarization failed: %w", err)
	}
	tags, err := s.gen.GenerateTags(ctx, summary)
	if err != nil {
		return fmt.Errorf("tag generation failed: %w", err)
	}

	rec := &domain.Record{
		ID:                msg.ID,
		Sender:            name,
		Subject:           msg.Subject,
		ReceivedDay:       msg.Date.Format(domain.ReceivedDayFormat),
		ReceivedDateTime:  msg.Date.Format(time.RFC3339),
		Body:              body,
		BodySummary:       summary,
		SummaryTokenCount: tokens,
		Tags:              tags,
	}
	if err := s.store.Save(rec); err != nil {
		return fmt.Errorf("failed to persist record: %w", err)
	}
	return nil
}

// Summaries lists the stored records matching the selection. The date
// filter is dropped when the fallback window was used, mirroring what the
// user was shown.
func (s *Service) Summaries(selected []string, fallbackUsed bool) ([]*domain.Record, error) {
	filter := out.ListFilter{Senders: selected}
	if !fallbackUsed {
		filter.Day = time.Now().Format("2006-01-02")
	}
	return s.store.ListMatching(filter)
}
