package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/zhouzirui/polyglot-chat/backend/internal/config"
	"github.com/zhouzirui/polyglot-chat/backend/internal/handler"
	providerHandler "github.com/zhouzirui/polyglot-chat/backend/internal/handler/provider"
	"github.com/zhouzirui/polyglot-chat/backend/internal/model/language"
	"github.com/zhouzirui/polyglot-chat/backend/internal/service/ai"
	"github.com/zhouzirui/polyglot-chat/backend/internal/service/document"
	"github.com/zhouzirui/polyglot-chat/backend/internal/service/history"
	"github.com/zhouzirui/polyglot-chat/backend/internal/service/provider"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("warning: failed to load .env file: %v", err)
		log.Println("continuing with system environment variables only")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	store, closer, err := history.Open(cfg.History.Backend, cfg.History.File, cfg.History.DB)
	if err != nil {
		log.Fatalf("failed to open conversation log: %v", err)
	}
	defer closer.Close()
	log.Printf("conversation log backend=%s", cfg.History.Backend)

	registry, gemini := provider.FromConfig(ctx, cfg.Providers)
	if registry.Len() == 0 {
		log.Println("warning: no completion provider configured, set GEMINI_API_KEY or GROQ_API_KEY")
	}

	catalog := language.NewMemoryCatalog(language.Seed())
	aiService := ai.NewService(registry, catalog, store)

	// A nil *Gemini must not become a non-nil interface.
	var geminiModels providerHandler.ModelLister
	if gemini != nil {
		geminiModels = gemini
	}

	router := handler.NewRouter(handler.Deps{
		AI:             aiService,
		Providers:      registry,
		GeminiModels:   geminiModels,
		Documents:      document.NewBoundedService(cfg.Document.MaxStored),
		Languages:      catalog,
		MaxUploadBytes: cfg.Document.MaxBytes,
		HistoryLimit:   cfg.History.ViewLimit,
	})

	startServer(ctx, cfg.Server, router)
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler) {
	addr := serverCfg.Addr
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Printf("polyglot-chat backend listening on %s", addr)
	if err := runServer(ctx, srv); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
