package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/go-resty/resty/v2"
	openai "github.com/sashabaranov/go-openai"
)

const (
	DefaultGroqBaseURL = "https://api.groq.com/openai/v1"
	DefaultGroqModel   = "mistral-saba-24b"
)

// GroqConfig configures the OpenAI-style chat-completions client.
type GroqConfig struct {
	APIKey  string
	Model   string
	BaseURL string
	Timeout time.Duration
}

// Groq talks to an OpenAI-compatible /chat/completions endpoint with a bearer token.
type Groq struct {
	cfg    GroqConfig
	client *resty.Client
}

var _ model.BaseChatModel = (*Groq)(nil)

// NewGroq builds a client; empty Model and BaseURL fall back to the defaults.
func NewGroq(cfg GroqConfig) *Groq {
	if cfg.Model == "" {
		cfg.Model = DefaultGroqModel
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultGroqBaseURL
	}

	client := resty.New().SetBaseURL(strings.TrimRight(cfg.BaseURL, "/"))
	if cfg.Timeout > 0 {
		client.SetTimeout(cfg.Timeout)
	}

	return &Groq{cfg: cfg, client: client}
}

// Model returns the configured model name.
func (g *Groq) Model() string {
	return g.cfg.Model
}

// Generate sends the messages and returns the first choice's message content.
func (g *Groq) Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	options := model.GetCommonOptions(&model.Options{Model: &g.cfg.Model}, opts...)

	body := openai.ChatCompletionRequest{
		Model:    *options.Model,
		Messages: make([]openai.ChatCompletionMessage, 0, len(input)),
	}
	for _, msg := range input {
		if msg == nil {
			continue
		}
		body.Messages = append(body.Messages, openai.ChatCompletionMessage{
			Role:    string(msg.Role),
			Content: msg.Content,
		})
	}
	if options.Temperature != nil {
		body.Temperature = *options.Temperature
	}
	if options.TopP != nil {
		body.TopP = *options.TopP
	}
	if options.MaxTokens != nil {
		body.MaxTokens = *options.MaxTokens
	}

	resp, err := g.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetAuthToken(g.cfg.APIKey).
		SetBody(body).
		Post("/chat/completions")
	if err != nil {
		return nil, fmt.Errorf("groq request failed: %w", err)
	}

	if resp.StatusCode() != http.StatusOK {
		return nil, &StatusError{Provider: NameGroq, StatusCode: resp.StatusCode(), Body: resp.String()}
	}

	var parsed openai.ChatCompletionResponse
	if err := json.Unmarshal(resp.Body(), &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse groq response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return nil, fmt.Errorf("%s: %w", NameGroq, ErrEmptyReply)
	}

	choice := parsed.Choices[0]
	reply := schema.AssistantMessage(choice.Message.Content, nil)
	reply.ResponseMeta = &schema.ResponseMeta{
		FinishReason: string(choice.FinishReason),
		Usage: &schema.TokenUsage{
			PromptTokens:     parsed.Usage.PromptTokens,
			CompletionTokens: parsed.Usage.CompletionTokens,
			TotalTokens:      parsed.Usage.TotalTokens,
		},
	}
	return reply, nil
}

// Stream wraps Generate; replies are requested without server-side streaming.
func (g *Groq) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	reply, err := g.Generate(ctx, input, opts...)
	if err != nil {
		return nil, err
	}
	return schema.StreamReaderFromArray([]*schema.Message{reply}), nil
}
