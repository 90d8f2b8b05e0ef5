package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/zhouzirui/polyglot-chat/backend/internal/handler/chat"
	"github.com/zhouzirui/polyglot-chat/backend/internal/handler/document"
	languageHandler "github.com/zhouzirui/polyglot-chat/backend/internal/handler/language"
	providerHandler "github.com/zhouzirui/polyglot-chat/backend/internal/handler/provider"
	"github.com/zhouzirui/polyglot-chat/backend/internal/handler/stream"
	"github.com/zhouzirui/polyglot-chat/backend/internal/handler/ws"
	middlewarePkg "github.com/zhouzirui/polyglot-chat/backend/internal/middleware"
	"github.com/zhouzirui/polyglot-chat/backend/internal/model/language"
	aiService "github.com/zhouzirui/polyglot-chat/backend/internal/service/ai"
	documentService "github.com/zhouzirui/polyglot-chat/backend/internal/service/document"
	providerService "github.com/zhouzirui/polyglot-chat/backend/internal/service/provider"
	"github.com/zhouzirui/polyglot-chat/backend/pkg/utils"
)

// Deps bundles what the router needs to build its handlers.
type Deps struct {
	AI             *aiService.Service
	Providers      *providerService.Registry
	GeminiModels   providerHandler.ModelLister
	Documents      *documentService.Service
	Languages      language.Catalog
	MaxUploadBytes int64
	HistoryLimit   int
}

// NewRouter wires HTTP routes to core services.
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)

	chatHandler := chat.New(deps.AI, deps.Documents, deps.MaxUploadBytes, deps.HistoryLimit)
	documentHandler := document.New(deps.Documents, deps.MaxUploadBytes)
	streamHandler := stream.New(deps.AI, deps.Documents)
	wsHandler := ws.New(deps.AI, deps.Documents)

	r.Route("/api", func(api chi.Router) {
		api.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			utils.RespondJSON(w, http.StatusOK, map[string]any{
				"status":    "ok",
				"providers": deps.Providers.Len(),
			})
		})

		languageHandler.New(deps.Languages).RegisterRoutes(api)
		providerHandler.New(deps.Providers, deps.GeminiModels).RegisterRoutes(api)
		chatHandler.RegisterRoutes(api)
		documentHandler.RegisterRoutes(api)
		streamHandler.RegisterRoutes(api)
		wsHandler.RegisterRoutes(api)
	})

	return r
}
