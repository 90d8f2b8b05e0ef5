package language

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/polyglot-chat/backend/internal/model/language"
	"github.com/zhouzirui/polyglot-chat/backend/pkg/utils"
)

// Handler lists the selectable reply languages.
type Handler struct {
	languages language.Catalog
}

// New creates the language handler.
func New(languages language.Catalog) *Handler {
	return &Handler{languages: languages}
}

// RegisterRoutes mounts the language routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/languages", h.handleListLanguages)
}

func (h *Handler) handleListLanguages(w http.ResponseWriter, r *http.Request) {
	utils.RespondJSON(w, http.StatusOK, h.languages.List())
}
