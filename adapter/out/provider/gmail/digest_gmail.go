// Package gmail provides the Gmail API mail provider adapter.
package gmail

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"time"

	"digest_server/core/domain"
	"digest_server/core/port/out"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gmailapi "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

// Provider implements out.MailProvider for a single Gmail account using
// locally stored OAuth credentials (credentials.json + token.json).
type Provider struct {
	service *gmailapi.Service
	log     zerolog.Logger
}

var _ out.MailProvider = (*Provider)(nil)

// NewProvider builds the Gmail service from the credential and token files.
func NewProvider(ctx context.Context, credentialsFile, tokenFile string, log zerolog.Logger) (*Provider, error) {
	creds, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read credentials file: %w", err)
	}
	oauthConfig, err := google.ConfigFromJSON(creds, gmailapi.GmailReadonlyScope)
	if err != nil {
		return nil, fmt.Errorf("failed to parse credentials: %w", err)
	}

	token, err := loadToken(tokenFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load oauth token: %w", err)
	}

	client := oauthConfig.Client(ctx, token)
	service, err := gmailapi.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("failed to create gmail service: %w", err)
	}

	return &Provider{service: service, log: log}, nil
}

func loadToken(path string) (*oauth2.Token, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var token oauth2.Token
	if err := json.Unmarshal(data, &token); err != nil {
		return nil, err
	}
	return &token, nil
}

// ListRecent returns all messages newer than the given number of days,
// fully fetched. Individual message fetch failures are logged and dropped;
// the list call itself failing is an error.
func (p *Provider) ListRecent(ctx context.Context, days int) ([]domain.Message, error) {
	query := fmt.Sprintf("newer_than:%dd", days)

	var ids []string
	pageToken := ""
	for {
		req := p.service.Users.Messages.List("me").Q(query)
		if pageToken != "" {
			req = req.PageToken(pageToken)
		}
		resp, err := req.Context(ctx).Do()
		if err != nil {
			return nil, fmt.Errorf("failed to list messages: %w", err)
		}
		for _, m := range resp.Messages {
			ids = append(ids, m.Id)
		}
		if resp.NextPageToken == "" {
			break
		}
		pageToken = resp.NextPageToken
	}

	if len(ids) == 0 {
		return []domain.Message{}, nil
	}

	// Bounded parallel fetch to avoid rate limiting.
	const maxConcurrency = 5
	type result struct {
		index int
		msg   *domain.Message
		err   error
	}

	results := make(chan result, len(ids))
	semaphore := make(chan struct{}, maxConcurrency)

	for i, id := range ids {
		go func(idx int, msgID string) {
			semaphore <- struct{}{}
			defer func() { <-semaphore }()

			msg, err := p.getMessage(ctx, msgID)
			results <- result{index: idx, msg: msg, err: err}
		}(i, id)
	}

	ordered := make([]*domain.Message, len(ids))
	for range ids {
		r := <-results
		if r.err != nil {
			p.log.Warn().Str("id", ids[r.index]).Err(r.err).Msg("dropping message that failed to fetch")
			continue
		}
		ordered[r.index] = r.msg
	}

	messages := make([]domain.Message, 0, len(ids))
	for _, msg := range ordered {
		if msg != nil {
			messages = append(messages, *msg)
		}
	}
	return messages, nil
}

func (p *Provider) getMessage(ctx context.Context, id string) (*domain.Message, error) {
	msg, err := p.service.Users.Messages.Get("me", id).
		Format("full").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("failed to get message %s: %w", id, err)
	}
	return parseMessage(msg), nil
}

func parseMessage(msg *gmailapi.Message) *domain.Message {
	m := &domain.Message{
		ID:   msg.Id,
		Date: time.Unix(msg.InternalDate/1000, 0),
	}

	if msg.Payload != nil {
		for _, header := range msg.Payload.Headers {
			switch header.Name {
			case "From":
				m.Sender = header.Value
			case "Subject":
				m.Subject = header.Value
			}
		}
		m.HTML = parseHTMLBody(msg.Payload)
	}

	return m
}

// parseHTMLBody walks the MIME tree and returns the first text/html part.
func parseHTMLBody(payload *gmailapi.MessagePart) string {
	if payload == nil {
		return ""
	}
	if payload.MimeType == "text/html" && payload.Body != nil {
		// Gmail serves body data as base64url, usually without padding.
		data, err := base64.RawURLEncoding.DecodeString(payload.Body.Data)
		if err != nil {
			data, _ = base64.URLEncoding.DecodeString(payload.Body.Data)
		}
		return string(data)
	}
	for _, part := range payload.Parts {
		if html := parseHTMLBody(part); html != "" {
			return html
		}
	}
	return ""
}
