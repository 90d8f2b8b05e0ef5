package provider

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cloudwego/eino/schema"
)

func TestGroqGenerateExtractsFirstChoice(t *testing.T) {
	var gotAuth, gotPath string
	var gotBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		json.NewDecoder(r.Body).Decode(&gotBody)
		resp := map[string]any{
			"choices": []map[string]any{
				{"index": 0, "message": map[string]any{"role": "assistant", "content": "Bonjour"}, "finish_reason": "stop"},
				{"index": 1, "message": map[string]any{"role": "assistant", "content": "Salut"}},
			},
			"usage": map[string]any{"prompt_tokens": 5, "completion_tokens": 2, "total_tokens": 7},
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := NewGroq(GroqConfig{APIKey: "test-key", BaseURL: server.URL})
	reply, err := client.Generate(context.Background(), []*schema.Message{schema.UserMessage("hello")})
	if err != nil {
		t.Fatalf("Generate err: %v", err)
	}

	if reply.Content != "Bonjour" {
		t.Fatalf("unexpected reply: %q", reply.Content)
	}
	if gotAuth != "Bearer test-key" {
		t.Fatalf("unexpected auth header: %q", gotAuth)
	}
	if gotPath != "/chat/completions" {
		t.Fatalf("unexpected path: %s", gotPath)
	}
	if gotBody["model"] != DefaultGroqModel {
		t.Fatalf("unexpected model: %v", gotBody["model"])
	}
	messages, ok := gotBody["messages"].([]any)
	if !ok || len(messages) != 1 {
		t.Fatalf("unexpected messages: %v", gotBody["messages"])
	}
	first := messages[0].(map[string]any)
	if first["role"] != "user" || first["content"] != "hello" {
		t.Fatalf("unexpected message: %v", first)
	}
	if reply.ResponseMeta.Usage.TotalTokens != 7 {
		t.Fatalf("usage not mapped: %+v", reply.ResponseMeta.Usage)
	}
}

func TestGroqGenerateNonOKReturnsStatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte("rate limited"))
	}))
	defer server.Close()

	client := NewGroq(GroqConfig{APIKey: "k", BaseURL: server.URL})
	_, err := client.Generate(context.Background(), []*schema.Message{schema.UserMessage("hi")})

	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected StatusError, got %v", err)
	}
	if statusErr.StatusCode != http.StatusTooManyRequests || statusErr.Body != "rate limited" || statusErr.Provider != NameGroq {
		t.Fatalf("unexpected status error: %+v", statusErr)
	}
}

func TestGroqGenerateEmptyChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices": []}`))
	}))
	defer server.Close()

	client := NewGroq(GroqConfig{APIKey: "k", BaseURL: server.URL})
	if _, err := client.Generate(context.Background(), []*schema.Message{schema.UserMessage("hi")}); !errors.Is(err, ErrEmptyReply) {
		t.Fatalf("expected ErrEmptyReply, got %v", err)
	}
}
