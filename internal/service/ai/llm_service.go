package ai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"

	"github.com/zhouzirui/polyglot-chat/backend/internal/model/chat"
	"github.com/zhouzirui/polyglot-chat/backend/internal/model/language"
	"github.com/zhouzirui/polyglot-chat/backend/internal/service/history"
	"github.com/zhouzirui/polyglot-chat/backend/internal/service/provider"
)

var (
	ErrMessageRequired = errors.New("message is required")
	// ErrPersistFailed wraps log store failures that happen after a provider replied.
	ErrPersistFailed = errors.New("failed to store conversation turn")
)

// Request carries everything one chat exchange needs. Nothing is kept between requests.
type Request struct {
	Provider string
	Language string
	Message  string
	Document string
}

// Reply is the outcome of a successful exchange.
type Reply struct {
	Provider string `json:"provider"`
	Language string `json:"language"`
	Content  string `json:"reply"`
}

// Service builds prompts, dispatches them to a provider and records successful turns.
type Service struct {
	providers *provider.Registry
	languages language.Catalog
	history   history.Store
	template  prompt.ChatTemplate
}

// NewService wires the orchestrator to its collaborators.
func NewService(providers *provider.Registry, languages language.Catalog, store history.Store) *Service {
	return &Service{
		providers: providers,
		languages: languages,
		history:   store,
		template:  newChatTemplate(),
	}
}

type preparedRequest struct {
	provider  string
	chatModel model.BaseChatModel
	language  language.Language
	messages  []*schema.Message
}

// Respond runs one exchange. A provider failure returns the error and stores nothing.
// When the provider answers but the turn cannot be stored, the reply is returned
// together with an error wrapping ErrPersistFailed.
func (s *Service) Respond(ctx context.Context, req Request) (Reply, error) {
	prepared, err := s.prepare(ctx, req)
	if err != nil {
		return Reply{}, err
	}

	response, err := prepared.chatModel.Generate(ctx, prepared.messages)
	if err != nil {
		return Reply{}, fmt.Errorf("failed to generate reply: %w", err)
	}

	return s.complete(ctx, req, prepared, response.Content)
}

// StreamRespond is Respond over the provider's stream. onDelta receives each
// non-empty chunk; the turn is stored once the stream ends cleanly.
func (s *Service) StreamRespond(ctx context.Context, req Request, onDelta func(string)) (Reply, error) {
	prepared, err := s.prepare(ctx, req)
	if err != nil {
		return Reply{}, err
	}

	stream, err := prepared.chatModel.Stream(ctx, prepared.messages)
	if err != nil {
		return Reply{}, fmt.Errorf("failed to stream reply: %w", err)
	}
	defer stream.Close()

	chunks := make([]*schema.Message, 0, 8)
	for {
		chunk, recvErr := stream.Recv()
		if errors.Is(recvErr, io.EOF) {
			break
		}
		if recvErr != nil {
			return Reply{}, fmt.Errorf("failed to stream reply: %w", recvErr)
		}
		if chunk == nil {
			continue
		}

		chunks = append(chunks, chunk)
		if chunk.Content != "" && onDelta != nil {
			onDelta(chunk.Content)
		}
	}
	if len(chunks) == 0 {
		return Reply{}, fmt.Errorf("%s: %w", prepared.provider, provider.ErrEmptyReply)
	}

	response, err := schema.ConcatMessages(chunks)
	if err != nil {
		return Reply{}, fmt.Errorf("failed to assemble streamed reply: %w", err)
	}

	return s.complete(ctx, req, prepared, response.Content)
}

// History returns the last limit stored turns; limit <= 0 returns all.
func (s *Service) History(ctx context.Context, limit int) ([]chat.Turn, error) {
	turns, err := s.history.Load(ctx)
	if err != nil {
		return nil, err
	}
	return history.Recent(turns, limit), nil
}

// Providers lists the configured providers.
func (s *Service) Providers() []provider.Info {
	return s.providers.List()
}

// Languages lists the selectable reply languages.
func (s *Service) Languages() []language.Language {
	return s.languages.List()
}

func (s *Service) prepare(ctx context.Context, req Request) (preparedRequest, error) {
	if strings.TrimSpace(req.Message) == "" {
		return preparedRequest{}, ErrMessageRequired
	}

	lang, err := s.languages.Resolve(req.Language)
	if err != nil {
		return preparedRequest{}, fmt.Errorf("%w: %q", err, req.Language)
	}

	name, chatModel, err := s.providers.Resolve(req.Provider)
	if err != nil {
		return preparedRequest{}, err
	}

	messages, err := s.template.Format(ctx, buildPromptInput(lang.Name, req.Document, req.Message))
	if err != nil {
		return preparedRequest{}, fmt.Errorf("failed to build prompt: %w", err)
	}

	return preparedRequest{provider: name, chatModel: chatModel, language: lang, messages: messages}, nil
}

func (s *Service) complete(ctx context.Context, req Request, prepared preparedRequest, content string) (Reply, error) {
	reply := Reply{Provider: prepared.provider, Language: prepared.language.Code, Content: content}

	if err := s.history.Append(ctx, req.Message, content); err != nil {
		return reply, fmt.Errorf("%w: %w", ErrPersistFailed, err)
	}

	log.Printf("[ai] reply from provider=%s language=%s length=%d", prepared.provider, prepared.language.Code, len(content))
	return reply, nil
}
