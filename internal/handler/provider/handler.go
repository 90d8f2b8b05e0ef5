package provider

import (
	"context"
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	providerService "github.com/zhouzirui/polyglot-chat/backend/internal/service/provider"
	"github.com/zhouzirui/polyglot-chat/backend/pkg/utils"
)

// ModelLister enumerates the models a provider account can use.
type ModelLister interface {
	ListModels(ctx context.Context) ([]string, error)
}

// Handler exposes provider discovery.
type Handler struct {
	registry *providerService.Registry
	gemini   ModelLister
}

// New creates the provider handler. gemini may be nil when Gemini is not configured.
func New(registry *providerService.Registry, gemini ModelLister) *Handler {
	return &Handler{registry: registry, gemini: gemini}
}

// RegisterRoutes mounts the provider routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/providers", h.handleListProviders)
	r.Get("/providers/gemini/models", h.handleListGeminiModels)
}

func (h *Handler) handleListProviders(w http.ResponseWriter, r *http.Request) {
	utils.RespondJSON(w, http.StatusOK, h.registry.List())
}

func (h *Handler) handleListGeminiModels(w http.ResponseWriter, r *http.Request) {
	if h.gemini == nil {
		utils.RespondError(w, http.StatusServiceUnavailable, "gemini provider not configured")
		return
	}

	models, err := h.gemini.ListModels(r.Context())
	if err != nil {
		log.Printf("[provider] list gemini models failed: %v", err)
		var statusErr *providerService.StatusError
		if errors.As(err, &statusErr) {
			utils.RespondJSON(w, http.StatusBadGateway, map[string]any{
				"error":          "Error from API: " + statusErr.Body,
				"providerStatus": statusErr.StatusCode,
			})
			return
		}
		utils.RespondError(w, http.StatusBadGateway, err.Error())
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]any{"models": models})
}
