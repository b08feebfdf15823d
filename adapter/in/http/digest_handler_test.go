package http

import (
	"context"
	"io"
	nethttp "net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"digest_server/core/domain"
	"digest_server/core/port/out"
	"digest_server/core/sender"
	"digest_server/core/service/digest"
	"digest_server/infra/middleware"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
)

type stubMail struct {
	messages []domain.Message
}

func (s *stubMail) ListRecent(ctx context.Context, days int) ([]domain.Message, error) {
	return s.messages, nil
}

type stubGen struct{}

func (stubGen) Summarize(ctx context.Context, text string) (string, int, error) {
	return "a short summary", 10, nil
}

func (stubGen) GenerateTags(ctx context.Context, summary string) (string, error) {
	return "#tag", nil
}

type stubStore struct {
	records map[string]domain.Record
}

func (s *stubStore) Exists(id string) bool { _, ok := s.records[id]; return ok }

func (s *stubStore) Load(id string) (*domain.Record, bool) {
	rec, ok := s.records[id]
	if !ok {
		return nil, false
	}
	copy := rec
	return &copy, true
}

func (s *stubStore) Save(rec *domain.Record) error {
	s.records[rec.ID] = *rec
	return nil
}

func (s *stubStore) ListMatching(filter out.ListFilter) ([]*domain.Record, error) {
	var result []*domain.Record
	for _, rec := range s.records {
		copy := rec
		result = append(result, &copy)
	}
	return result, nil
}

type stubCloud struct{}

func (stubCloud) Render(ctx context.Context, summary, id, sender, day string) (string, error) {
	return "", nil
}

func newTestApp(mail *stubMail) *fiber.App {
	svc := digest.NewService(mail, stubGen{}, &stubStore{records: map[string]domain.Record{}}, stubCloud{}, sender.NewTable(), 1)
	app := fiber.New(fiber.Config{
		ErrorHandler: middleware.ErrorHandler(),
		JSONEncoder:  json.Marshal,
		JSONDecoder:  json.Unmarshal,
	})
	NewDigestHandler(svc).Register(app.Group("/api/v1"))
	return app
}

func decodeBody(t *testing.T, resp *nethttp.Response, v any) {
	t.Helper()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("reading body: %v", err)
	}
	if err := json.Unmarshal(body, v); err != nil {
		t.Fatalf("decoding body %s: %v", body, err)
	}
}

func TestListSendersSurfacesFallbackFlag(t *testing.T) {
	yesterday := time.Now().AddDate(0, 0, -1)
	app := newTestApp(&stubMail{messages: []domain.Message{
		{ID: "m1", Sender: "Morning Brew <crew@morningbrew.com>", Date: yesterday, HTML: "<p>x</p>"},
	}})

	req := httptest.NewRequest("GET", "/api/v1/digest/senders", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var payload struct {
		Success bool            `json:"success"`
		Data    SendersResponse `json:"data"`
	}
	decodeBody(t, resp, &payload)

	if !payload.Success {
		t.Error("expected success response")
	}
	if !payload.Data.FallbackUsed {
		t.Error("expected fallback_used=true when nothing is from today")
	}
	if len(payload.Data.Senders) != 1 || payload.Data.Senders[0].Name != "Morning Brew" {
		t.Errorf("unexpected senders: %+v", payload.Data.Senders)
	}
}

func TestSummarizeRendersEmptyListWhenNothingMatches(t *testing.T) {
	app := newTestApp(&stubMail{})

	req := httptest.NewRequest("POST", "/api/v1/digest/summarize", strings.NewReader(`{"senders":["Morning Brew"]}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200 even with zero summaries, got %d", resp.StatusCode)
	}

	var payload struct {
		Data SummarizeResponse `json:"data"`
	}
	decodeBody(t, resp, &payload)

	if payload.Data.Summaries == nil || len(payload.Data.Summaries) != 0 {
		t.Errorf("expected empty summaries list, got %v", payload.Data.Summaries)
	}
	if !payload.Data.FallbackUsed {
		t.Error("expected fallback_used=true for an empty window")
	}
}

func TestSummarizeRejectsEmptySelection(t *testing.T) {
	app := newTestApp(&stubMail{})

	req := httptest.NewRequest("POST", "/api/v1/digest/summarize", strings.NewReader(`{"senders":[]}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != 400 {
		t.Fatalf("expected 400 for empty selection, got %d", resp.StatusCode)
	}
}
