package chat

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"mime"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/polyglot-chat/backend/internal/model/language"
	aiService "github.com/zhouzirui/polyglot-chat/backend/internal/service/ai"
	documentService "github.com/zhouzirui/polyglot-chat/backend/internal/service/document"
	"github.com/zhouzirui/polyglot-chat/backend/internal/service/provider"
	"github.com/zhouzirui/polyglot-chat/backend/pkg/utils"
)

// Handler serves chat exchanges and the conversation history.
type Handler struct {
	aiSvc          *aiService.Service
	documents      *documentService.Service
	maxUploadBytes int64
	historyLimit   int
}

// New creates the chat handler.
func New(aiSvc *aiService.Service, documents *documentService.Service, maxUploadBytes int64, historyLimit int) *Handler {
	return &Handler{
		aiSvc:          aiSvc,
		documents:      documents,
		maxUploadBytes: maxUploadBytes,
		historyLimit:   historyLimit,
	}
}

// RegisterRoutes mounts the chat routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/chat", h.handleChat)
	r.Get("/history", h.handleHistory)
}

type chatPayload struct {
	Message    string `json:"message"`
	Language   string `json:"language"`
	Provider   string `json:"provider"`
	Document   string `json:"document"`
	DocumentID string `json:"documentId"`
}

type chatResponse struct {
	aiService.Reply
	Warning string `json:"warning,omitempty"`
}

// handleChat accepts a JSON body or a multipart form with an optional "file" upload.
func (h *Handler) handleChat(w http.ResponseWriter, r *http.Request) {
	req, warning, status, err := h.decodeRequest(w, r)
	if err != nil {
		utils.RespondError(w, status, err.Error())
		return
	}

	reply, err := h.aiSvc.Respond(r.Context(), req)
	if err != nil {
		RespondChatError(w, reply, err)
		return
	}

	utils.RespondJSON(w, http.StatusOK, chatResponse{Reply: reply, Warning: warning})
}

func (h *Handler) decodeRequest(w http.ResponseWriter, r *http.Request) (aiService.Request, string, int, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		return h.decodeMultipart(w, r)
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	var payload chatPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return aiService.Request{}, "", http.StatusRequestEntityTooLarge, errors.New("request body too large")
		}
		return aiService.Request{}, "", http.StatusBadRequest, errors.New("invalid request body")
	}

	req := aiService.Request{
		Provider: payload.Provider,
		Language: payload.Language,
		Message:  payload.Message,
		Document: payload.Document,
	}

	if payload.DocumentID != "" {
		doc, err := h.documents.Get(r.Context(), payload.DocumentID)
		if err != nil {
			return aiService.Request{}, "", http.StatusNotFound, err
		}
		req.Document = doc.Text
		return req, doc.Warning, 0, nil
	}

	return req, "", 0, nil
}

func (h *Handler) decodeMultipart(w http.ResponseWriter, r *http.Request) (aiService.Request, string, int, error) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		return aiService.Request{}, "", http.StatusBadRequest, errors.New("failed to parse multipart form: " + err.Error())
	}
	defer r.MultipartForm.RemoveAll()

	req := aiService.Request{
		Provider: r.FormValue("provider"),
		Language: r.FormValue("language"),
		Message:  r.FormValue("message"),
		Document: r.FormValue("document"),
	}

	file, header, err := r.FormFile("file")
	if errors.Is(err, http.ErrMissingFile) {
		return req, "", 0, nil
	}
	if err != nil {
		return aiService.Request{}, "", http.StatusBadRequest, errors.New("invalid file upload")
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return aiService.Request{}, "", http.StatusBadRequest, errors.New("failed to read uploaded file")
	}

	doc := h.documents.Ingest(r.Context(), header.Filename, header.Header.Get("Content-Type"), data)
	if doc.Warning != "" {
		log.Printf("[chat] document %s extraction failed, continuing without it: %s", header.Filename, doc.Warning)
	}
	req.Document = doc.Text
	return req, doc.Warning, 0, nil
}

// handleHistory returns the most recent turns as [[user, bot], ...].
func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := h.historyLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			utils.RespondError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = parsed
	}

	turns, err := h.aiSvc.History(r.Context(), limit)
	if err != nil {
		log.Printf("[chat] failed to load history: %v", err)
		utils.RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	utils.RespondJSON(w, http.StatusOK, turns)
}

// RespondChatError maps orchestrator errors to HTTP responses.
// Provider failures surface the provider's status and body verbatim.
func RespondChatError(w http.ResponseWriter, reply aiService.Reply, err error) {
	var statusErr *provider.StatusError
	switch {
	case errors.Is(err, aiService.ErrMessageRequired),
		errors.Is(err, language.ErrUnsupported),
		errors.Is(err, provider.ErrUnknownProvider):
		utils.RespondError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &statusErr):
		utils.RespondJSON(w, http.StatusBadGateway, map[string]any{
			"error":          "Error from API: " + statusErr.Body,
			"provider":       statusErr.Provider,
			"providerStatus": statusErr.StatusCode,
			"providerBody":   statusErr.Body,
		})
	case errors.Is(err, aiService.ErrPersistFailed):
		log.Printf("[chat] %v", err)
		utils.RespondJSON(w, http.StatusInternalServerError, map[string]any{
			"error":    err.Error(),
			"reply":    reply.Content,
			"provider": reply.Provider,
		})
	default:
		log.Printf("[chat] provider call failed: %v", err)
		utils.RespondError(w, http.StatusBadGateway, err.Error())
	}
}
