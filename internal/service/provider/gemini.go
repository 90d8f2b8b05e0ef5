package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/go-resty/resty/v2"
)

const (
	DefaultGeminiBaseURL = "https://generativelanguage.googleapis.com"
	DefaultGeminiModel   = "gemini-2.0-flash-lite"
)

// GeminiConfig configures the generative-content client.
type GeminiConfig struct {
	APIKey          string
	Model           string
	BaseURL         string
	Temperature     *float32
	TopP            *float32
	TopK            *int
	MaxOutputTokens *int
	Timeout         time.Duration
}

// Gemini talks to the generateContent endpoint. The API key travels in the query string.
type Gemini struct {
	cfg    GeminiConfig
	client *resty.Client
}

var _ model.BaseChatModel = (*Gemini)(nil)

// NewGemini builds a client; empty Model and BaseURL fall back to the defaults.
func NewGemini(cfg GeminiConfig) *Gemini {
	if cfg.Model == "" {
		cfg.Model = DefaultGeminiModel
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultGeminiBaseURL
	}

	client := resty.New().SetBaseURL(strings.TrimRight(cfg.BaseURL, "/"))
	if cfg.Timeout > 0 {
		client.SetTimeout(cfg.Timeout)
	}

	return &Gemini{cfg: cfg, client: client}
}

// Model returns the configured model name.
func (g *Gemini) Model() string {
	return g.cfg.Model
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiGenerationConfig struct {
	Temperature     *float32 `json:"temperature,omitempty"`
	TopP            *float32 `json:"topP,omitempty"`
	TopK            *int     `json:"topK,omitempty"`
	MaxOutputTokens *int     `json:"maxOutputTokens,omitempty"`
}

type geminiRequest struct {
	Contents          []geminiContent         `json:"contents"`
	SystemInstruction *geminiContent          `json:"systemInstruction,omitempty"`
	GenerationConfig  *geminiGenerationConfig `json:"generationConfig,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content      geminiContent `json:"content"`
		FinishReason string        `json:"finishReason"`
	} `json:"candidates"`
	UsageMetadata *struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
		TotalTokenCount      int `json:"totalTokenCount"`
	} `json:"usageMetadata"`
}

// Generate sends the conversation and returns the first candidate's first text part.
func (g *Gemini) Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	options := model.GetCommonOptions(&model.Options{
		Model:       &g.cfg.Model,
		Temperature: g.cfg.Temperature,
		TopP:        g.cfg.TopP,
		MaxTokens:   g.cfg.MaxOutputTokens,
	}, opts...)

	body := g.buildRequest(input, options)

	resp, err := g.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetQueryParam("key", g.cfg.APIKey).
		SetPathParam("model", *options.Model).
		SetBody(body).
		Post("/v1/models/{model}:generateContent")
	if err != nil {
		return nil, fmt.Errorf("gemini request failed: %w", redactKey(err))
	}

	if resp.StatusCode() != http.StatusOK {
		return nil, &StatusError{Provider: NameGemini, StatusCode: resp.StatusCode(), Body: resp.String()}
	}

	var parsed geminiResponse
	if err := json.Unmarshal(resp.Body(), &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse gemini response: %w", err)
	}
	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("%s: %w", NameGemini, ErrEmptyReply)
	}

	candidate := parsed.Candidates[0]
	reply := schema.AssistantMessage(candidate.Content.Parts[0].Text, nil)
	reply.ResponseMeta = &schema.ResponseMeta{FinishReason: candidate.FinishReason}
	if usage := parsed.UsageMetadata; usage != nil {
		reply.ResponseMeta.Usage = &schema.TokenUsage{
			PromptTokens:     usage.PromptTokenCount,
			CompletionTokens: usage.CandidatesTokenCount,
			TotalTokens:      usage.TotalTokenCount,
		}
	}
	return reply, nil
}

// Stream wraps Generate; the endpoint used here answers in one piece.
func (g *Gemini) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	reply, err := g.Generate(ctx, input, opts...)
	if err != nil {
		return nil, err
	}
	return schema.StreamReaderFromArray([]*schema.Message{reply}), nil
}

func (g *Gemini) buildRequest(input []*schema.Message, options *model.Options) geminiRequest {
	req := geminiRequest{Contents: make([]geminiContent, 0, len(input))}

	var system []geminiPart
	for _, msg := range input {
		if msg == nil {
			continue
		}
		switch msg.Role {
		case schema.System:
			system = append(system, geminiPart{Text: msg.Content})
		case schema.Assistant:
			req.Contents = append(req.Contents, geminiContent{Role: "model", Parts: []geminiPart{{Text: msg.Content}}})
		default:
			req.Contents = append(req.Contents, geminiContent{Role: "user", Parts: []geminiPart{{Text: msg.Content}}})
		}
	}
	if len(system) > 0 {
		req.SystemInstruction = &geminiContent{Parts: system}
	}

	if options.Temperature != nil || options.TopP != nil || g.cfg.TopK != nil || options.MaxTokens != nil {
		req.GenerationConfig = &geminiGenerationConfig{
			Temperature:     options.Temperature,
			TopP:            options.TopP,
			TopK:            g.cfg.TopK,
			MaxOutputTokens: options.MaxTokens,
		}
	}
	return req
}

// ListModels returns the model names visible to the configured key.
func (g *Gemini) ListModels(ctx context.Context) ([]string, error) {
	resp, err := g.client.R().
		SetContext(ctx).
		SetQueryParam("key", g.cfg.APIKey).
		Get("/v1/models")
	if err != nil {
		return nil, fmt.Errorf("gemini list models failed: %w", redactKey(err))
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, &StatusError{Provider: NameGemini, StatusCode: resp.StatusCode(), Body: resp.String()}
	}

	var parsed struct {
		Models []struct {
			Name string `json:"name"`
		} `json:"models"`
	}
	if err := json.Unmarshal(resp.Body(), &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse gemini models: %w", err)
	}

	names := make([]string, 0, len(parsed.Models))
	for _, m := range parsed.Models {
		names = append(names, m.Name)
	}
	return names, nil
}

// redactKey strips the key query parameter from transport errors, which
// otherwise quote the full request URL. Only the *url.Error is kept so no
// outer wrapping can repeat the URL.
func redactKey(err error) error {
	var urlErr *url.Error
	if !errors.As(err, &urlErr) {
		return err
	}

	redacted := *urlErr
	redacted.URL = ""
	if u, parseErr := url.Parse(urlErr.URL); parseErr == nil {
		query := u.Query()
		query.Del("key")
		u.RawQuery = query.Encode()
		redacted.URL = u.String()
	}
	return &redacted
}
