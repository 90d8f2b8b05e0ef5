package stream

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/polyglot-chat/backend/internal/model/language"
	aiservice "github.com/zhouzirui/polyglot-chat/backend/internal/service/ai"
	documentservice "github.com/zhouzirui/polyglot-chat/backend/internal/service/document"
	"github.com/zhouzirui/polyglot-chat/backend/internal/service/history"
	"github.com/zhouzirui/polyglot-chat/backend/internal/service/provider"
)

func setupRouter(t *testing.T, status int, body string) (*chi.Mux, *history.FileStore) {
	t.Helper()
	groq := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(groq.Close)

	registry := provider.NewRegistry(provider.NameGroq)
	registry.Register(provider.NameGroq, "test", provider.NewGroq(provider.GroqConfig{APIKey: "k", BaseURL: groq.URL}))
	store := history.NewFileStore(filepath.Join(t.TempDir(), history.DefaultFile))
	aiSvc := aiservice.NewService(registry, language.NewMemoryCatalog(language.Seed()), store)

	r := chi.NewRouter()
	New(aiSvc, documentservice.NewService()).RegisterRoutes(r)
	return r, store
}

func readEvents(t *testing.T, body string) []StreamResponse {
	t.Helper()
	var events []StreamResponse
	scanner := bufio.NewScanner(strings.NewReader(body))
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		var event StreamResponse
		if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &event); err != nil {
			t.Fatalf("decode event %q: %v", line, err)
		}
		events = append(events, event)
	}
	return events
}

func TestStreamEmitsReplyAndStoresTurn(t *testing.T) {
	r, store := setupRouter(t, http.StatusOK, `{"choices": [{"message": {"role": "assistant", "content": "Hallo"}}]}`)

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/stream?message=hello&language=de", nil))

	events := readEvents(t, resp.Body.String())
	var kinds []string
	for _, e := range events {
		kinds = append(kinds, e.Event)
	}
	if strings.Join(kinds, ",") != "start,delta,message,end" {
		t.Fatalf("unexpected events: %v", kinds)
	}
	if events[2].Content != "Hallo" {
		t.Fatalf("unexpected message: %+v", events[2])
	}

	turns, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("Load err: %v", err)
	}
	if len(turns) != 1 || turns[0].BotReply != "Hallo" {
		t.Fatalf("unexpected turns: %+v", turns)
	}
}

func TestStreamProviderErrorSendsErrorEvent(t *testing.T) {
	r, store := setupRouter(t, http.StatusUnauthorized, "invalid api key")

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/stream?message=hello", nil))

	events := readEvents(t, resp.Body.String())
	last := events[len(events)-1]
	if last.Event != "error" || !strings.Contains(last.Error, "invalid api key") {
		t.Fatalf("unexpected last event: %+v", last)
	}

	turns, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("Load err: %v", err)
	}
	if len(turns) != 0 {
		t.Fatalf("expected no stored turns, got %d", len(turns))
	}
}

func TestStreamRequiresMessage(t *testing.T) {
	r, _ := setupRouter(t, http.StatusOK, "{}")

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/stream", nil))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}
