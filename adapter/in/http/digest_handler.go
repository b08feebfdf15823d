package http

import (
	"digest_server/core/domain"
	"digest_server/core/service/digest"
	"digest_server/pkg/apperr"

	"github.com/gofiber/fiber/v2"
)

// DigestHandler exposes the interactive digest flow: list today's senders,
// then summarize a selected subset.
type DigestHandler struct {
	service *digest.Service
}

func NewDigestHandler(service *digest.Service) *DigestHandler {
	return &DigestHandler{service: service}
}

func (h *DigestHandler) Register(app fiber.Router) {
	g := app.Group("/digest")
	g.Get("/senders", h.ListSenders)
	g.Post("/summarize", h.Summarize)
}

// SendersResponse lists today's senders with counts. fallback_used signals
// that nothing in the fetch window was from today, so the whole window is
// shown instead.
type SendersResponse struct {
	Senders      []digest.SenderCount `json:"senders"`
	FallbackUsed bool                 `json:"fallback_used"`
}

func (h *DigestHandler) ListSenders(c *fiber.Ctx) error {
	messages, fallbackUsed, err := h.service.TodayMessages(c.Context())
	if err != nil {
		return apperr.ExternalError("mail", err)
	}

	return SuccessResponse(c, SendersResponse{
		Senders:      h.service.SenderCounts(messages),
		FallbackUsed: fallbackUsed,
	})
}

type SummarizeRequest struct {
	Senders []string `json:"senders"`
}

type SummarizeResponse struct {
	Senders         []digest.SenderCount `json:"senders"`
	Summaries       []*domain.Record     `json:"summaries"`
	Outcomes        []domain.Outcome     `json:"outcomes"`
	SelectedSenders []string             `json:"selected_senders"`
	FallbackUsed    bool                 `json:"fallback_used"`
}

func (h *DigestHandler) Summarize(c *fiber.Ctx) error {
	var req SummarizeRequest
	if err := c.BodyParser(&req); err != nil {
		return apperr.BadRequest("invalid request body")
	}
	if len(req.Senders) == 0 {
		return apperr.BadRequest("no senders selected")
	}

	messages, fallbackUsed, err := h.service.TodayMessages(c.Context())
	if err != nil {
		return apperr.ExternalError("mail", err)
	}

	report := h.service.ProcessSelected(c.Context(), messages, req.Senders, fallbackUsed)

	summaries, err := h.service.Summaries(req.Senders, fallbackUsed)
	if err != nil {
		return apperr.InternalWithError(err)
	}
	if summaries == nil {
		summaries = []*domain.Record{}
	}

	return SuccessResponse(c, SummarizeResponse{
		Senders:         h.service.SenderCounts(messages),
		Summaries:       summaries,
		Outcomes:        report.Outcomes,
		SelectedSenders: req.Senders,
		FallbackUsed:    fallbackUsed,
	})
}
