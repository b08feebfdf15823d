// Package llm wraps the OpenAI chat completion API for summary and tag
// generation.
package llm

import (
	"context"
	"regexp"
	"strings"

	"digest_server/core/port/out"

	openai "github.com/sashabaranov/go-openai"
)

const DefaultModel = "gpt-3.5-turbo-0125"

// Summary prompts. The interactive flow summarizes a single email; the
// batch flow summarizes a newsletter issue. Both demand a short,
// TTS-narratable script confined strictly to the given content.
const (
	EmailSummaryPrompt = `Generate a short, well-structured summary script based on the provided email content. Provide an engaging and clear narrative, similar to a professional analyst. Ensure the response is suitable for narration through a Text-to-Speech (TTS) system API. The goal is to deliver informative content with a conversational tone, drawing exclusively from the provided email content and without incorporating outside knowledge.
Please note:
- Do not include any stage directions such as [Opening Music], [Transition Music], [Host]. Those will be manually added as per the requirements into the TTS generated audio file.
- Keep it short and informative by limiting the response to a few points, covering all the highlights from the topic, so that users listening to this as a voice clip will stay attentive to details and will not be irritated.`

	NewsletterSummaryPrompt = `Generate a news letters analysis script on the topic of [User Custom Topic]. Provide an engaging and well-structured narrative, similar to a professional news letters analyzer. Ensure the response is suitable for narration through a Text-to-Speech (TTS) system API. The goal is to deliver informative content with a conversational tone, drawing exclusively from the provided topic and without incorporating outside knowledge.
Please note:
- Do not include any stage directions such as [Opening Music], [Transition Music], [Host]. Those will be manually added as per the requirements into the TTS generated audio file.
- Keep it short and informative by limiting the response to a few points, covering all the highlights from the topic, so that users listening to this as a voice clip will stay attentive to details and will not be irritated.`

	EmailTagPrompt = `Generate concise and engaging keyword tags for an email summary, offering users a preview of the content. Craft tags based on the provided summary to create an enticing snapshot. Each highlight should be represented by a single tag. Format: #tag.`

	NewsletterTagPrompt = `Generate concise and engaging keyword tags for a newsletter, offering users a preview of the content. Craft tags based on the provided newsletter content to create an enticing snapshot. Each highlight should be represented by a single tag. Format: #tag.`
)

// Client implements out.TextGenerator against a pinned model. Transport
// errors propagate unchanged; the orchestrator's dedup check makes the next
// run the retry path.
type Client struct {
	client        *openai.Client
	model         string
	summaryPrompt string
	tagPrompt     string
}

var _ out.TextGenerator = (*Client)(nil)

type ClientConfig struct {
	APIKey        string
	Model         string
	SummaryPrompt string
	TagPrompt     string
}

func NewClient(cfg ClientConfig) *Client {
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	summaryPrompt := cfg.SummaryPrompt
	if summaryPrompt == "" {
		summaryPrompt = EmailSummaryPrompt
	}
	tagPrompt := cfg.TagPrompt
	if tagPrompt == "" {
		tagPrompt = EmailTagPrompt
	}
	return &Client{
		client:        openai.NewClient(cfg.APIKey),
		model:         model,
		summaryPrompt: summaryPrompt,
		tagPrompt:     tagPrompt,
	}
}

// Summarize produces a narrative summary for the plain-text body and the
// total token usage reported by the service.
func (c *Client) Summarize(ctx context.Context, text string) (string, int, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: c.summaryPrompt},
			{Role: openai.ChatMessageRoleUser, Content: text},
		},
	})
	if err != nil {
		return "", 0, err
	}
	if len(resp.Choices) == 0 {
		return "", resp.Usage.TotalTokens, nil
	}
	return cleanGenerated(resp.Choices[0].Message.Content), resp.Usage.TotalTokens, nil
}

// GenerateTags turns a summary into hashtag-formatted keyword tags.
func (c *Client) GenerateTags(ctx context.Context, summary string) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: c.tagPrompt},
			{Role: openai.ChatMessageRoleUser, Content: summary},
		},
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return cleanGenerated(resp.Choices[0].Message.Content), nil
}

var asteriskRuns = regexp.MustCompile(`\*+`)

// cleanGenerated flattens raw model output into a single line: newlines
// become spaces, backslashes and markdown emphasis runs are removed.
func cleanGenerated(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, `\`, "")
	return asteriskRuns.ReplaceAllString(s, "")
}
