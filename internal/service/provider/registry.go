package provider

import (
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/model"
)

// Provider names as accepted from clients (case-insensitive).
const (
	NameGemini = "gemini"
	NameGroq   = "groq"
	NameArk    = "ark"
)

// Info describes a registered provider for listing.
type Info struct {
	Name    string `json:"name"`
	Model   string `json:"model"`
	Default bool   `json:"default"`
}

type entry struct {
	info  Info
	model model.BaseChatModel
}

// Registry resolves provider names to chat models.
type Registry struct {
	entries     map[string]entry
	order       []string
	defaultName string
}

// NewRegistry returns an empty registry whose fallback provider is defaultName.
func NewRegistry(defaultName string) *Registry {
	return &Registry{
		entries:     make(map[string]entry),
		defaultName: normalize(defaultName),
	}
}

// Register adds or replaces a provider.
func (r *Registry) Register(name, modelName string, chatModel model.BaseChatModel) {
	key := normalize(name)
	if _, exists := r.entries[key]; !exists {
		r.order = append(r.order, key)
	}
	r.entries[key] = entry{info: Info{Name: key, Model: modelName}, model: chatModel}
}

// Resolve returns the canonical name and model for name. An empty name selects
// the default provider, or the first registered one when no default is set.
func (r *Registry) Resolve(name string) (string, model.BaseChatModel, error) {
	key := normalize(name)
	if key == "" {
		key = r.fallback()
	}

	e, ok := r.entries[key]
	if !ok {
		return "", nil, fmt.Errorf("%w: %q", ErrUnknownProvider, name)
	}
	return key, e.model, nil
}

// List returns registered providers in registration order.
func (r *Registry) List() []Info {
	fallback := r.fallback()
	infos := make([]Info, 0, len(r.order))
	for _, key := range r.order {
		info := r.entries[key].info
		info.Default = key == fallback
		infos = append(infos, info)
	}
	return infos
}

// Len reports how many providers are registered.
func (r *Registry) Len() int {
	return len(r.order)
}

func (r *Registry) fallback() string {
	if _, ok := r.entries[r.defaultName]; ok {
		return r.defaultName
	}
	if len(r.order) > 0 {
		return r.order[0]
	}
	return ""
}

func normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
