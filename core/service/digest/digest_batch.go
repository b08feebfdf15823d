package digest

import (
	"context"
	"fmt"
	"time"

	"digest_server/core/domain"
	"digest_server/core/extract"
	"digest_server/pkg/logger"
)

// RunBatch executes the allow-listed ingestion flow in two stages, the way
// a scheduled run works: first persist raw records for every new allowed
// message, then summarize, tag, and render a wordcloud for each record
// still lacking a summary. Store failures in stage one log and continue so
// one bad message cannot stall the run.
func (s *Service) RunBatch(ctx context.Context) (*domain.RunReport, error) {
	messages, err := s.mail.ListRecent(ctx, s.fetchDays)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch messages: %w", err)
	}

	report := &domain.RunReport{}

	// Candidates: allowed senders whose record is not yet summarized.
	candidates := make([]domain.Message, 0, len(messages))
	for _, msg := range messages {
		name := s.senders.Normalize(msg.Sender)
		if !s.senders.Allowed(name) {
			report.Outcomes = append(report.Outcomes, domain.Outcome{
				MessageID: msg.ID, Sender: name, Status: domain.OutcomeNotAllowed,
			})
			continue
		}
		if rec, ok := s.store.Load(msg.ID); ok && rec.Summarized() {
			report.Outcomes = append(report.Outcomes, domain.Outcome{
				MessageID: msg.ID, Sender: name, Status: domain.OutcomeAlreadySummarized,
			})
			continue
		}
		candidates = append(candidates, msg)
		logger.WithField("sender", name).Info("queued: %s", msg.Subject)
	}

	// Stage one: persist raw records for unseen messages.
	for _, msg := range candidates {
		if s.store.Exists(msg.ID) {
			continue
		}
		if err := s.storeRaw(msg); err != nil {
			logger.WithError(err).WithField("id", msg.ID).Error("failed to store message locally")
		}
	}

	// Stage two: summarize records that still lack a summary.
	for _, msg := range candidates {
		name := s.senders.Normalize(msg.Sender)

		// On cancellation the raw record survives; the next run picks it up.
		if ctx.Err() != nil {
			report.Outcomes = append(report.Outcomes, domain.Outcome{
				MessageID: msg.ID, Sender: name, Status: domain.OutcomeStored,
				Reason: "run interrupted before summarization",
			})
			continue
		}

		rec, ok := s.store.Load(msg.ID)
		if !ok {
			report.Outcomes = append(report.Outcomes, domain.Outcome{
				MessageID: msg.ID, Sender: name, Status: domain.OutcomeFailed,
				Reason: "local record not found",
			})
			continue
		}
		if rec.Summarized() {
			report.Outcomes = append(report.Outcomes, domain.Outcome{
				MessageID: msg.ID, Sender: name, Status: domain.OutcomeAlreadySummarized,
			})
			continue
		}

		if err := s.summarizeRecord(ctx, rec, msg); err != nil {
			logger.WithError(err).WithField("id", msg.ID).Warn("batch summarization failed, will retry next run")
			report.Outcomes = append(report.Outcomes, domain.Outcome{
				MessageID: msg.ID, Sender: name, Status: domain.OutcomeFailed, Reason: err.Error(),
			})
			continue
		}

		report.Outcomes = append(report.Outcomes, domain.Outcome{
			MessageID: msg.ID, Sender: name, Status: domain.OutcomeSummarized,
		})
	}

	return report, nil
}

func (s *Service) storeRaw(msg domain.Message) error {
	name := s.senders.Normalize(msg.Sender)
	body := fmt.Sprintf("%s Newsletter - %s", name, extract.TextStripEmoji(msg.HTML))

	rec := &domain.Record{
		ID:               msg.ID,
		Sender:           name,
		Subject:          msg.Subject,
		ReceivedDay:      msg.Date.Format(domain.ReceivedDayFormat),
		ReceivedDateTime: msg.Date.Format(time.RFC3339),
		Body:             body,
		PublisherID:      s.senders.PublisherID(name),
	}
	if err := s.store.Save(rec); err != nil {
		return err
	}
	logger.WithField("sender", name).Info("stored record %s", msg.ID)
	return nil
}

func (s *Service) summarizeRecord(ctx context.Context, rec *domain.Record, msg domain.Message) error {
	name := rec.Sender
	body := fmt.Sprintf("%s Newsletter - %s", name, extract.TextStripEmoji(msg.HTML))

	summary, tokens, err := s.gen.Summarize(ctx, body)
	if err != nil {
		return fmt.Errorf("summarization failed: %w", err)
	}
	tags, err := s.gen.GenerateTags(ctx, summary)
	if err != nil {
		return fmt.Errorf("tag generation failed: %w", err)
	}

	rec.BodySummary = summary
	rec.SummaryTokenCount = tokens
	rec.Tags = tags

	imagePath, err := s.cloud.Render(ctx, summary, rec.ID, name, rec.ReceivedDay)
	if err != nil {
		// The summary is still worth keeping; the image can be regenerated.
		logger.WithError(err).WithField("id", rec.ID).Warn("wordcloud rendering failed")
	} else {
		rec.SummaryImagePath = imagePath
	}

	if err := s.store.Save(rec); err != nil {
		return fmt.Errorf("failed to persist record: %w", err)
	}
	return nil
}
