package digest

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"digest_server/core/domain"
	"digest_server/core/port/out"
	"digest_server/core/sender"
)

// ---------------------------------------------------------------------------
// Fakes
// ---------------------------------------------------------------------------

type fakeMail struct {
	messages []domain.Message
	err      error
}

func (f *fakeMail) ListRecent(ctx context.Context, days int) ([]domain.Message, error) {
	return f.messages, f.err
}

type fakeGen struct {
	summarizeCalls int
	tagCalls       int
	failOn         string // substring of text that triggers an error
}

func (f *fakeGen) Summarize(ctx context.Context, text string) (string, int, error) {
	f.summarizeCalls++
	if f.failOn != "" && strings.Contains(text, f.failOn) {
		return "", 0, errors.New("service unavailable")
	}
	return "summary of " + text[:min(20, len(text))], 42, nil
}

func (f *fakeGen) GenerateTags(ctx context.Context, summary string) (string, error) {
	f.tagCalls++
	return "#news #digest", nil
}

type fakeStore struct {
	records map[string]domain.Record
	saveErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{records: make(map[string]domain.Record)}
}

func (f *fakeStore) Exists(id string) bool {
	_, ok := f.records[id]
	return ok
}

func (f *fakeStore) Load(id string) (*domain.Record, bool) {
	rec, ok := f.records[id]
	if !ok {
		return nil, false
	}
	copy := rec
	return &copy, true
}

func (f *fakeStore) Save(rec *domain.Record) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.records[rec.ID] = *rec
	return nil
}

func (f *fakeStore) ListMatching(filter out.ListFilter) ([]*domain.Record, error) {
	var result []*domain.Record
	for _, rec := range f.records {
		copy := rec
		result = append(result, &copy)
	}
	return result, nil
}

type fakeCloud struct {
	calls int
	err   error
}

func (f *fakeCloud) Render(ctx context.Context, summary, id, sender, day string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return "local_data/word_cloud/" + id + "_" + sender + "_" + day + "_wordcloud.png", nil
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func newTestService(mail *fakeMail, gen *fakeGen, store *fakeStore, cloud *fakeCloud) *Service {
	return NewService(mail, gen, store, cloud, sender.NewTable(), 1)
}

func msgAt(id, from, subject string, date time.Time) domain.Message {
	return domain.Message{
		ID:      id,
		Sender:  from,
		Subject: subject,
		Date:    date,
		HTML:    "<p>Hello <b>World</b></p>",
	}
}

func outcomeFor(t *testing.T, report *domain.RunReport, id string) domain.Outcome {
	t.Helper()
	for _, o := range report.Outcomes {
		if o.MessageID == id {
			return o
		}
	}
	t.Fatalf("no outcome for message %s", id)
	return domain.Outcome{}
}

// ---------------------------------------------------------------------------
// Interactive flow
// ---------------------------------------------------------------------------

func TestProcessSelectedSummarizesNewMessage(t *testing.T) {
	store := newFakeStore()
	gen := &fakeGen{}
	svc := newTestService(&fakeMail{}, gen, store, &fakeCloud{})

	now := time.Date(2024, 1, 5, 8, 30, 0, 0, time.UTC)
	msg := msgAt("m1", "Morning Brew <crew@morningbrew.com>", "Markets today", now)

	report := svc.ProcessSelected(context.Background(), []domain.Message{msg}, []string{"Morning Brew"}, false)

	if got := outcomeFor(t, report, "m1"); got.Status != domain.OutcomeSummarized {
		t.Fatalf("expected summarized outcome, got %s (%s)", got.Status, got.Reason)
	}

	rec, ok := store.Load("m1")
	if !ok {
		t.Fatal("expected record to be persisted")
	}
	if !strings.HasPrefix(rec.Body, "Morning Brew Email - ") {
		t.Errorf("body missing sender prefix: %q", rec.Body)
	}
	if !strings.Contains(rec.Body, "Hello World") {
		t.Errorf("body missing extracted text: %q", rec.Body)
	}
	if rec.BodySummary == "" || rec.Tags == "" {
		t.Errorf("expected summary and tags, got %+v", rec)
	}
	if rec.SummaryTokenCount != 42 {
		t.Errorf("expected token count 42, got %d", rec.SummaryTokenCount)
	}
	if rec.ReceivedDay != "Jan 05 2024" {
		t.Errorf("unexpected received_day %q", rec.ReceivedDay)
	}
	if rec.ReceivedDateTime != "2024-01-05T08:30:00Z" {
		t.Errorf("unexpected received_date_time %q", rec.ReceivedDateTime)
	}
}

func TestProcessSelectedIdempotent(t *testing.T) {
	store := newFakeStore()
	gen := &fakeGen{}
	svc := newTestService(&fakeMail{}, gen, store, &fakeCloud{})

	existing := domain.Record{
		ID:          "m1",
		Sender:      "Morning Brew",
		Body:        "Morning Brew Email - old body",
		BodySummary: "already summarized",
		Tags:        "#old",
	}
	store.records["m1"] = existing

	msg := msgAt("m1", "Morning Brew <crew@morningbrew.com>", "Markets today", time.Now())
	report := svc.ProcessSelected(context.Background(), []domain.Message{msg}, []string{"Morning Brew"}, false)

	if got := outcomeFor(t, report, "m1"); got.Status != domain.OutcomeAlreadySummarized {
		t.Fatalf("expected already_summarized, got %s", got.Status)
	}
	if gen.summarizeCalls != 0 || gen.tagCalls != 0 {
		t.Errorf("text generator must not be invoked again (summarize=%d, tags=%d)", gen.summarizeCalls, gen.tagCalls)
	}
	if store.records["m1"] != existing {
		t.Errorf("record must stay byte-identical, got %+v", store.records["m1"])
	}
}

func TestProcessSelectedSkipsUnselectedSenders(t *testing.T) {
	store := newFakeStore()
	gen := &fakeGen{}
	svc := newTestService(&fakeMail{}, gen, store, &fakeCloud{})

	msg := msgAt("m1", "TLDR <dan@tldrnewsletter.com>", "TLDR", time.Now())
	report := svc.ProcessSelected(context.Background(), []domain.Message{msg}, []string{"Morning Brew"}, false)

	if got := outcomeFor(t, report, "m1"); got.Status != domain.OutcomeNotSelected {
		t.Fatalf("expected not_selected, got %s", got.Status)
	}
	if gen.summarizeCalls != 0 {
		t.Error("unselected sender must not be summarized")
	}
	if store.Exists("m1") {
		t.Error("unselected sender must not be persisted")
	}
}

func TestProcessSelectedFailureDoesNotAbortBatch(t *testing.T) {
	store := newFakeStore()
	gen := &fakeGen{failOn: "Axios"}
	svc := newTestService(&fakeMail{}, gen, store, &fakeCloud{})

	now := time.Now()
	messages := []domain.Message{
		{ID: "m1", Sender: "Mike Allen <mike@axios.com>", Subject: "AM", Date: now, HTML: "<p>Axios content</p>"},
		msgAt("m2", "Morning Brew <crew@morningbrew.com>", "Markets", now),
	}

	report := svc.ProcessSelected(context.Background(), messages, []string{"Axios AM PM", "Morning Brew"}, false)

	if got := outcomeFor(t, report, "m1"); got.Status != domain.OutcomeFailed || got.Reason == "" {
		t.Errorf("expected failed outcome with reason, got %+v", got)
	}
	if got := outcomeFor(t, report, "m2"); got.Status != domain.OutcomeSummarized {
		t.Errorf("second message must still be processed, got %s", got.Status)
	}
	if store.Exists("m1") {
		t.Error("failed message must retain its unsummarized state")
	}
	if !store.Exists("m2") {
		t.Error("successful message must be persisted")
	}
}

func TestTodayMessagesFallback(t *testing.T) {
	now := time.Now()
	yesterday := now.AddDate(0, 0, -1)

	tests := []struct {
		name         string
		messages     []domain.Message
		wantCount    int
		wantFallback bool
	}{
		{
			name: "today messages only returned",
			messages: []domain.Message{
				msgAt("m1", "A <a@x.com>", "s", now),
				msgAt("m2", "B <b@x.com>", "s", yesterday),
			},
			wantCount:    1,
			wantFallback: false,
		},
		{
			name: "nothing from today falls back to whole window",
			messages: []domain.Message{
				msgAt("m1", "A <a@x.com>", "s", yesterday),
				msgAt("m2", "B <b@x.com>", "s", yesterday.Add(-2*time.Hour)),
			},
			wantCount:    2,
			wantFallback: true,
		},
		{
			name:         "empty window",
			messages:     nil,
			wantCount:    0,
			wantFallback: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestService(&fakeMail{messages: tt.messages}, &fakeGen{}, newFakeStore(), &fakeCloud{})
			got, fallback, err := svc.TodayMessages(context.Background())
			if err != nil {
				t.Fatalf("TodayMessages: %v", err)
			}
			if len(got) != tt.wantCount {
				t.Errorf("expected %d messages, got %d", tt.wantCount, len(got))
			}
			if fallback != tt.wantFallback {
				t.Errorf("expected fallback=%v, got %v", tt.wantFallback, fallback)
			}
		})
	}
}

func TestSenderCounts(t *testing.T) {
	svc := newTestService(&fakeMail{}, &fakeGen{}, newFakeStore(), &fakeCloud{})
	now := time.Now()

	counts := svc.SenderCounts([]domain.Message{
		msgAt("m1", "Mike Allen <mike@axios.com>", "s", now),
		msgAt("m2", "Morning Brew <crew@morningbrew.com>", "s", now),
		msgAt("m3", "Mike Allen <mike@axios.com>", "s", now),
		msgAt("m4", "zeta <z@z.com>", "s", now),
	})

	if len(counts) != 3 {
		t.Fatalf("expected 3 senders, got %d", len(counts))
	}
	// Case-insensitive name order: Axios AM PM, Morning Brew, zeta.
	if counts[0].Name != "Axios AM PM" || counts[0].Count != 2 {
		t.Errorf("unexpected first entry %+v", counts[0])
	}
	if counts[2].Name != "zeta" {
		t.Errorf("expected case-insensitive sort to place zeta last, got %q", counts[2].Name)
	}
}
