package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	aiService "github.com/zhouzirui/polyglot-chat/backend/internal/service/ai"
	documentService "github.com/zhouzirui/polyglot-chat/backend/internal/service/document"
	"github.com/zhouzirui/polyglot-chat/backend/internal/service/provider"
)

const (
	defaultReadTimeout = 60 * time.Second
	pingInterval       = 54 * time.Second
	writeTimeout       = 10 * time.Second
)

// Handler serves chat over a WebSocket connection.
type Handler struct {
	aiSvc       *aiService.Service
	documents   *documentService.Service
	upgrader    websocket.Upgrader
	readTimeout time.Duration
}

// New creates a WebSocket chat handler.
func New(aiSvc *aiService.Service, documents *documentService.Service) *Handler {
	return &Handler{
		aiSvc:       aiSvc,
		documents:   documents,
		readTimeout: defaultReadTimeout,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// RegisterRoutes mounts the WebSocket endpoint.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/ws", h.handleWebSocket)
}

type inboundMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// TextMessage is the payload of an inbound "text" message.
type TextMessage struct {
	Text       string `json:"text"`
	Language   string `json:"language"`
	Provider   string `json:"provider"`
	DocumentID string `json:"documentId"`
}

type outgoingMessage struct {
	Type      string `json:"type"`
	Data      any    `json:"data,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

// conn serialises writes; gorilla allows one concurrent writer.
type conn struct {
	ws *websocket.Conn
	mu sync.Mutex
}

func (c *conn) send(msgType string, data any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.ws.SetWriteDeadline(time.Now().Add(writeTimeout))
	msg := outgoingMessage{Type: msgType, Data: data, Timestamp: time.Now().Unix()}
	if err := c.ws.WriteJSON(msg); err != nil {
		log.Printf("[websocket] write %s failed: %v", msgType, err)
	}
}

func (c *conn) sendError(message string) {
	c.send("error", map[string]string{"message": message})
}

func (h *Handler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	wsConn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[websocket] upgrade failed: %v", err)
		return
	}
	defer wsConn.Close()

	c := &conn{ws: wsConn}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	wsConn.SetReadDeadline(time.Now().Add(h.readTimeout))
	wsConn.SetPongHandler(func(string) error {
		wsConn.SetReadDeadline(time.Now().Add(h.readTimeout))
		return nil
	})

	go pingLoop(ctx, wsConn)

	c.send("connected", map[string]any{
		"providers": h.aiSvc.Providers(),
		"languages": h.aiSvc.Languages(),
	})

	for {
		var msg inboundMessage
		if err := wsConn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[websocket] read error: %v", err)
			}
			return
		}
		h.handleMessage(ctx, c, &msg)
		// Pongs are not read while a provider call runs, so the deadline restarts
		// once the exchange is over.
		wsConn.SetReadDeadline(time.Now().Add(h.readTimeout))
	}
}

func (h *Handler) handleMessage(ctx context.Context, c *conn, msg *inboundMessage) {
	switch msg.Type {
	case "text":
		h.handleTextMessage(ctx, c, msg.Data)
	case "ping":
		c.send("pong", nil)
	default:
		c.sendError("unsupported message type: " + msg.Type)
	}
}

func (h *Handler) handleTextMessage(ctx context.Context, c *conn, raw json.RawMessage) {
	var payload TextMessage
	if err := json.Unmarshal(raw, &payload); err != nil {
		c.sendError("invalid text payload")
		return
	}

	req := aiService.Request{
		Provider: payload.Provider,
		Language: payload.Language,
		Message:  payload.Text,
	}
	if payload.DocumentID != "" {
		doc, err := h.documents.Get(ctx, payload.DocumentID)
		if err != nil {
			c.sendError(err.Error())
			return
		}
		req.Document = doc.Text
	}

	reply, err := h.aiSvc.Respond(ctx, req)
	var statusErr *provider.StatusError
	switch {
	case err == nil:
		c.send("reply", reply)
	case errors.As(err, &statusErr):
		c.sendError("Error from API: " + statusErr.Body)
	case errors.Is(err, aiService.ErrPersistFailed):
		log.Printf("[websocket] %v", err)
		c.send("reply", reply)
		c.sendError(err.Error())
	default:
		c.sendError(err.Error())
	}
}

func pingLoop(ctx context.Context, wsConn *websocket.Conn) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := wsConn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout)); err != nil {
				return
			}
		}
	}
}
