package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/zhouzirui/polyglot-chat/backend/internal/model/chat"
	"github.com/zhouzirui/polyglot-chat/backend/internal/model/language"
	aiservice "github.com/zhouzirui/polyglot-chat/backend/internal/service/ai"
	documentservice "github.com/zhouzirui/polyglot-chat/backend/internal/service/document"
	"github.com/zhouzirui/polyglot-chat/backend/internal/service/history"
	"github.com/zhouzirui/polyglot-chat/backend/internal/service/provider"
)

type received struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type failingStore struct{}

func (failingStore) Append(context.Context, string, string) error {
	return errors.New("disk full")
}

func (failingStore) Load(context.Context) ([]chat.Turn, error) {
	return []chat.Turn{}, nil
}

type testSetup struct {
	status       int
	body         string
	providerWait time.Duration
	readTimeout  time.Duration
	store        history.Store
}

func dial(t *testing.T, setup testSetup) (*websocket.Conn, *documentservice.Service) {
	t.Helper()
	gemini := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(setup.providerWait)
		w.WriteHeader(setup.status)
		w.Write([]byte(setup.body))
	}))
	t.Cleanup(gemini.Close)

	registry := provider.NewRegistry(provider.NameGemini)
	registry.Register(provider.NameGemini, "test", provider.NewGemini(provider.GeminiConfig{APIKey: "k", BaseURL: gemini.URL}))
	documents := documentservice.NewService()
	aiSvc := aiservice.NewService(registry, language.NewMemoryCatalog(language.Seed()), setup.store)

	h := New(aiSvc, documents)
	if setup.readTimeout > 0 {
		h.readTimeout = setup.readTimeout
	}
	r := chi.NewRouter()
	h.RegisterRoutes(r)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	wsConn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { wsConn.Close() })
	wsConn.SetReadDeadline(time.Now().Add(5 * time.Second))

	if msg := readMessage(t, wsConn); msg.Type != "connected" {
		t.Fatalf("expected connected message, got %s", msg.Type)
	}
	return wsConn, documents
}

func newFileStore(t *testing.T) *history.FileStore {
	t.Helper()
	return history.NewFileStore(filepath.Join(t.TempDir(), history.DefaultFile))
}

func sendText(t *testing.T, wsConn *websocket.Conn, data map[string]string) {
	t.Helper()
	if err := wsConn.WriteJSON(map[string]any{"type": "text", "data": data}); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func readMessage(t *testing.T, wsConn *websocket.Conn) received {
	t.Helper()
	var msg received
	if err := wsConn.ReadJSON(&msg); err != nil {
		t.Fatalf("read: %v", err)
	}
	return msg
}

const okBody = `{"candidates": [{"content": {"parts": [{"text": "Bonjour"}]}}]}`

func TestTextMessageReturnsReply(t *testing.T) {
	store := newFileStore(t)
	wsConn, documents := dial(t, testSetup{status: http.StatusOK, body: okBody, store: store})
	doc := documents.Ingest(context.Background(), "notes.txt", "text/plain", []byte("notes"))

	sendText(t, wsConn, map[string]string{"text": "hello", "language": "fr", "documentId": doc.ID})

	msg := readMessage(t, wsConn)
	if msg.Type != "reply" {
		t.Fatalf("expected reply, got %s: %s", msg.Type, msg.Data)
	}
	var reply aiservice.Reply
	if err := json.Unmarshal(msg.Data, &reply); err != nil {
		t.Fatalf("decode reply: %v", err)
	}
	if reply.Content != "Bonjour" || reply.Language != "fr" {
		t.Fatalf("unexpected reply: %+v", reply)
	}

	turns, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("Load err: %v", err)
	}
	if len(turns) != 1 || turns[0].UserMessage != "hello" {
		t.Fatalf("unexpected turns: %+v", turns)
	}
}

func TestProviderErrorIsReported(t *testing.T) {
	store := newFileStore(t)
	wsConn, _ := dial(t, testSetup{status: http.StatusForbidden, body: "quota exceeded", store: store})

	sendText(t, wsConn, map[string]string{"text": "hello"})

	msg := readMessage(t, wsConn)
	if msg.Type != "error" || !strings.Contains(string(msg.Data), "Error from API: quota exceeded") {
		t.Fatalf("unexpected message: %s %s", msg.Type, msg.Data)
	}

	turns, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("Load err: %v", err)
	}
	if len(turns) != 0 {
		t.Fatalf("expected empty log, got %d turns", len(turns))
	}
}

func TestPersistFailureStillSendsReply(t *testing.T) {
	wsConn, _ := dial(t, testSetup{status: http.StatusOK, body: okBody, store: failingStore{}})

	sendText(t, wsConn, map[string]string{"text": "hello"})

	msg := readMessage(t, wsConn)
	if msg.Type != "reply" || !strings.Contains(string(msg.Data), "Bonjour") {
		t.Fatalf("expected reply first, got %s %s", msg.Type, msg.Data)
	}
	msg = readMessage(t, wsConn)
	if msg.Type != "error" || !strings.Contains(string(msg.Data), "disk full") {
		t.Fatalf("expected persist error, got %s %s", msg.Type, msg.Data)
	}
}

func TestSlowReplyKeepsConnectionOpen(t *testing.T) {
	wsConn, _ := dial(t, testSetup{
		status:       http.StatusOK,
		body:         okBody,
		providerWait: 400 * time.Millisecond,
		readTimeout:  200 * time.Millisecond,
		store:        newFileStore(t),
	})

	for i := 0; i < 2; i++ {
		sendText(t, wsConn, map[string]string{"text": "hello"})
		if msg := readMessage(t, wsConn); msg.Type != "reply" {
			t.Fatalf("exchange %d: expected reply, got %s %s", i, msg.Type, msg.Data)
		}
	}
}

func TestUnsupportedMessageType(t *testing.T) {
	wsConn, _ := dial(t, testSetup{status: http.StatusOK, body: "{}", store: newFileStore(t)})

	if err := wsConn.WriteJSON(map[string]any{"type": "audio"}); err != nil {
		t.Fatalf("write: %v", err)
	}

	if msg := readMessage(t, wsConn); msg.Type != "error" {
		t.Fatalf("expected error, got %s", msg.Type)
	}
}
