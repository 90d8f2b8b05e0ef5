package stream

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	aiService "github.com/zhouzirui/polyglot-chat/backend/internal/service/ai"
	documentService "github.com/zhouzirui/polyglot-chat/backend/internal/service/document"
	"github.com/zhouzirui/polyglot-chat/backend/pkg/utils"
)

// Handler streams chat replies via Server-Sent Events.
type Handler struct {
	aiService *aiService.Service
	documents *documentService.Service
}

// New creates a new stream handler.
func New(aiSvc *aiService.Service, documents *documentService.Service) *Handler {
	return &Handler{aiService: aiSvc, documents: documents}
}

// RegisterRoutes mounts the streaming endpoint.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/stream", h.handleStream)
}

// StreamResponse is one SSE frame.
type StreamResponse struct {
	Event    string `json:"event"`
	Content  string `json:"content,omitempty"`
	Provider string `json:"provider,omitempty"`
	Finished bool   `json:"finished,omitempty"`
	Error    string `json:"error,omitempty"`
}

func (h *Handler) handleStream(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	if query.Get("message") == "" {
		utils.RespondError(w, http.StatusBadRequest, "message query parameter is required")
		return
	}

	req := aiService.Request{
		Provider: query.Get("provider"),
		Language: query.Get("language"),
		Message:  query.Get("message"),
	}
	if documentID := query.Get("documentId"); documentID != "" {
		doc, err := h.documents.Get(r.Context(), documentID)
		if err != nil {
			utils.RespondError(w, http.StatusNotFound, err.Error())
			return
		}
		req.Document = doc.Text
	}

	if err := h.HandleStreamRequest(r.Context(), w, req); err != nil {
		log.Printf("[stream] error handling request: %v", err)
	}
}

// HandleStreamRequest writes start, delta*, message and end frames, or an error frame.
func (h *Handler) HandleStreamRequest(ctx context.Context, w http.ResponseWriter, req aiService.Request) error {
	flusher, ok := w.(http.Flusher)
	if !ok {
		utils.RespondError(w, http.StatusInternalServerError, "streaming unsupported")
		return fmt.Errorf("streaming unsupported")
	}

	utils.SetupSSEHeaders(w)

	h.sendSSE(w, flusher, StreamResponse{Event: "start"})

	reply, err := h.aiService.StreamRespond(ctx, req, func(delta string) {
		h.sendSSE(w, flusher, StreamResponse{Event: "delta", Content: delta})
	})
	if err != nil {
		h.sendSSE(w, flusher, StreamResponse{Event: "error", Error: err.Error(), Content: reply.Content})
		return err
	}

	h.sendSSE(w, flusher, StreamResponse{Event: "message", Provider: reply.Provider, Content: reply.Content})
	h.sendSSE(w, flusher, StreamResponse{Event: "end", Provider: reply.Provider, Finished: true})

	log.Printf("[stream] completed response provider=%s", reply.Provider)
	return nil
}

func (h *Handler) sendSSE(w http.ResponseWriter, flusher http.Flusher, response StreamResponse) {
	utils.SendSSEChunk(w, flusher, response)
}
