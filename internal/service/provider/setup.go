package provider

import (
	"context"
	"log"

	"github.com/zhouzirui/polyglot-chat/backend/internal/config"
)

// FromConfig registers every provider whose credentials are configured. The
// Gemini client is also returned so callers can list its models; it is nil
// when Gemini is disabled. An Ark model that fails to initialise is skipped
// with a warning.
func FromConfig(ctx context.Context, cfg config.ProvidersConfig) (*Registry, *Gemini) {
	registry := NewRegistry(cfg.Default)

	var gemini *Gemini
	if cfg.Gemini.Enabled() {
		gemini = NewGemini(GeminiConfig{
			APIKey:          cfg.Gemini.APIKey,
			Model:           cfg.Gemini.Model,
			BaseURL:         cfg.Gemini.BaseURL,
			Temperature:     cfg.Gemini.Temperature,
			TopP:            cfg.Gemini.TopP,
			TopK:            cfg.Gemini.TopK,
			MaxOutputTokens: cfg.Gemini.MaxOutputTokens,
			Timeout:         cfg.Timeout,
		})
		registry.Register(NameGemini, gemini.Model(), gemini)
	} else {
		log.Println("[provider] GEMINI_API_KEY not set, skipping gemini")
	}

	if cfg.Groq.Enabled() {
		groq := NewGroq(GroqConfig{
			APIKey:  cfg.Groq.APIKey,
			Model:   cfg.Groq.Model,
			BaseURL: cfg.Groq.BaseURL,
			Timeout: cfg.Timeout,
		})
		registry.Register(NameGroq, groq.Model(), groq)
	} else {
		log.Println("[provider] GROQ_API_KEY not set, skipping groq")
	}

	if cfg.Ark.Enabled() {
		arkModel, err := cfg.Ark.NewChatModel(ctx)
		if err != nil {
			log.Printf("[provider] warning: failed to initialize ark model: %v", err)
		} else {
			registry.Register(NameArk, cfg.Ark.Model, arkModel)
		}
	}

	return registry, gemini
}
