package document

import (
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	documentService "github.com/zhouzirui/polyglot-chat/backend/internal/service/document"
	"github.com/zhouzirui/polyglot-chat/backend/pkg/utils"
)

// Handler accepts document uploads for later use as chat context.
type Handler struct {
	documents      *documentService.Service
	maxUploadBytes int64
}

// New creates the document handler.
func New(documents *documentService.Service, maxUploadBytes int64) *Handler {
	return &Handler{documents: documents, maxUploadBytes: maxUploadBytes}
}

// RegisterRoutes mounts the document routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/documents", h.handleUpload)
	r.Get("/documents/{documentID}", h.handleGet)
}

// handleUpload extracts text from the "file" field. Extraction failures still
// produce a document, with empty text and a warning.
func (h *Handler) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "failed to parse multipart form: "+err.Error())
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, "failed to read uploaded file")
		return
	}

	doc := h.documents.Ingest(r.Context(), header.Filename, header.Header.Get("Content-Type"), data)
	if doc.Warning != "" {
		log.Printf("[document] extraction failed for %s: %s", header.Filename, doc.Warning)
	} else {
		log.Printf("[document] stored %s id=%s chars=%d", header.Filename, doc.ID, len(doc.Text))
	}

	utils.RespondJSON(w, http.StatusCreated, doc)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	doc, err := h.documents.Get(r.Context(), chi.URLParam(r, "documentID"))
	if errors.Is(err, documentService.ErrDocumentNotFound) {
		utils.RespondError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		utils.RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	utils.RespondJSON(w, http.StatusOK, doc)
}
