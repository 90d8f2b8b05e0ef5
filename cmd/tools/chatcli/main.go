package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/zhouzirui/polyglot-chat/backend/internal/config"
	"github.com/zhouzirui/polyglot-chat/backend/internal/model/language"
	"github.com/zhouzirui/polyglot-chat/backend/internal/service/ai"
	"github.com/zhouzirui/polyglot-chat/backend/internal/service/document"
	"github.com/zhouzirui/polyglot-chat/backend/internal/service/history"
	"github.com/zhouzirui/polyglot-chat/backend/internal/service/provider"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	if err := godotenv.Load(); err != nil {
		log.Printf("[WARN] failed to load .env, using system environment: %v", err)
	}

	providerName := flag.String("provider", "", "provider to use: gemini, groq or ark (default from PROVIDER_DEFAULT)")
	lang := flag.String("lang", "", "reply language code or name (default English)")
	filePath := flag.String("file", "", "text or PDF document to include with every message")
	showHistory := flag.Bool("history", false, "print previous conversations and exit")
	listModels := flag.Bool("models", false, "list available Gemini models and exit")
	timeout := flag.Duration("timeout", 0, "per-request timeout, overrides PROVIDER_TIMEOUT")

	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}
	if *timeout > 0 {
		cfg.Providers.Timeout = *timeout
	}

	store, closer, err := history.Open(cfg.History.Backend, cfg.History.File, cfg.History.DB)
	if err != nil {
		log.Fatalf("failed to open conversation log: %v", err)
	}
	defer closer.Close()

	ctx := context.Background()
	registry, gemini := provider.FromConfig(ctx, cfg.Providers)
	svc := ai.NewService(registry, language.NewMemoryCatalog(language.Seed()), store)

	switch {
	case *listModels:
		if gemini == nil {
			log.Fatal("GEMINI_API_KEY is not set")
		}
		if err := printModels(ctx, gemini, os.Stdout); err != nil {
			log.Fatalf("list models failed: %v", err)
		}
		return
	case *showHistory:
		if err := printHistory(ctx, svc, cfg.History.ViewLimit, os.Stdout); err != nil {
			log.Fatalf("read history failed: %v", err)
		}
		return
	}

	if registry.Len() == 0 {
		log.Fatal("no provider configured, set GEMINI_API_KEY or GROQ_API_KEY")
	}

	session := &chatSession{
		svc:      svc,
		provider: *providerName,
		language: *lang,
	}
	if *filePath != "" {
		session.document = loadDocument(*filePath, os.Stderr)
	}

	if err := session.run(ctx, os.Stdin, os.Stdout); err != nil {
		log.Fatalf("chat loop failed: %v", err)
	}
}

type chatSession struct {
	svc      *ai.Service
	provider string
	language string
	document string
}

// run reads one message per line until EOF or "exit".
func (s *chatSession) run(ctx context.Context, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	fmt.Fprint(out, "You: ")
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "exit" || line == "quit" {
			return nil
		}
		if line != "" {
			s.send(ctx, line, out)
		}
		fmt.Fprint(out, "You: ")
	}
	fmt.Fprintln(out)
	return scanner.Err()
}

func (s *chatSession) send(ctx context.Context, message string, out io.Writer) {
	reply, err := s.svc.Respond(ctx, ai.Request{
		Provider: s.provider,
		Language: s.language,
		Message:  message,
		Document: s.document,
	})

	var statusErr *provider.StatusError
	switch {
	case err == nil:
		fmt.Fprintf(out, "Bot: %s\n", reply.Content)
	case errors.As(err, &statusErr):
		fmt.Fprintf(out, "Error from API: %s\n", statusErr.Body)
	case errors.Is(err, ai.ErrPersistFailed):
		fmt.Fprintf(out, "Bot: %s\n", reply.Content)
		fmt.Fprintf(out, "warning: reply not saved: %v\n", err)
	default:
		fmt.Fprintf(out, "error: %v\n", err)
	}
}

// loadDocument extracts the file's text. Failures are reported and yield empty text.
func loadDocument(path string, warn io.Writer) string {
	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(warn, "warning: could not read %s: %v\n", path, err)
		return ""
	}
	text, err := document.Extract(filepath.Base(path), "", data)
	if err != nil {
		fmt.Fprintf(warn, "warning: could not extract text from %s: %v\n", path, err)
		return ""
	}
	return text
}

func printHistory(ctx context.Context, svc *ai.Service, limit int, out io.Writer) error {
	turns, err := svc.History(ctx, limit)
	if err != nil {
		return err
	}
	if len(turns) == 0 {
		fmt.Fprintln(out, "No previous conversations.")
		return nil
	}
	for _, turn := range turns {
		fmt.Fprintf(out, "You: %s\nBot: %s\n\n", turn.UserMessage, turn.BotReply)
	}
	return nil
}

func printModels(ctx context.Context, gemini *provider.Gemini, out io.Writer) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	models, err := gemini.ListModels(ctx)
	if err != nil {
		return err
	}
	for _, name := range models {
		fmt.Fprintln(out, name)
	}
	return nil
}
