package provider

import (
	"context"
	"testing"
	"time"

	"github.com/zhouzirui/polyglot-chat/backend/internal/config"
)

func TestFromConfigRegistersConfiguredProviders(t *testing.T) {
	cfg := config.ProvidersConfig{
		Default: NameGroq,
		Timeout: 5 * time.Second,
		Gemini:  config.GeminiConfig{APIKey: "g", Model: "gemini-test"},
		Groq:    config.GroqConfig{APIKey: "q"},
	}

	registry, gemini := FromConfig(context.Background(), cfg)
	if gemini == nil || gemini.Model() != "gemini-test" {
		t.Fatalf("expected gemini client with configured model")
	}

	infos := registry.List()
	if len(infos) != 2 {
		t.Fatalf("expected 2 providers, got %d", len(infos))
	}
	if infos[1].Name != NameGroq || infos[1].Model != DefaultGroqModel || !infos[1].Default {
		t.Fatalf("unexpected groq info: %+v", infos[1])
	}
}

func TestFromConfigWithoutKeys(t *testing.T) {
	registry, gemini := FromConfig(context.Background(), config.ProvidersConfig{Default: NameGemini})
	if gemini != nil {
		t.Fatalf("expected nil gemini client")
	}
	if registry.Len() != 0 {
		t.Fatalf("expected empty registry, got %d", registry.Len())
	}
}
