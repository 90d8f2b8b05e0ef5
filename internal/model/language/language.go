package language

import (
	"errors"
	"strings"
)

// ErrUnsupported is returned when a language cannot be matched by code or name.
var ErrUnsupported = errors.New("unsupported language")

// Language is a reply language the user can pick.
type Language struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// Default is used when the caller does not choose a language.
var Default = Language{Code: "en", Name: "English"}

// Seed returns the selectable languages.
func Seed() []Language {
	return []Language{
		Default,
		{Code: "es", Name: "Spanish"},
		{Code: "fr", Name: "French"},
		{Code: "de", Name: "German"},
		{Code: "zh", Name: "Chinese"},
		{Code: "ur", Name: "Urdu"},
		{Code: "tr", Name: "Turkish"},
		{Code: "hi", Name: "Hindi"},
		{Code: "ar", Name: "Arabic"},
	}
}

// Catalog exposes language lookup for handlers and the orchestrator.
type Catalog interface {
	List() []Language
	Resolve(value string) (Language, error)
}

// MemoryCatalog implements Catalog over a fixed slice.
type MemoryCatalog struct {
	items []Language
}

// NewMemoryCatalog returns a catalog preloaded with the supplied languages.
func NewMemoryCatalog(items []Language) *MemoryCatalog {
	return &MemoryCatalog{items: append([]Language(nil), items...)}
}

// List returns the languages in display order.
func (c *MemoryCatalog) List() []Language {
	return append([]Language(nil), c.items...)
}

// Resolve matches a code ("es") or a name ("Spanish"), ignoring case.
// An empty value resolves to Default.
func (c *MemoryCatalog) Resolve(value string) (Language, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return Default, nil
	}
	for _, item := range c.items {
		if strings.EqualFold(item.Code, value) || strings.EqualFold(item.Name, value) {
			return item, nil
		}
	}
	return Language{}, ErrUnsupported
}
