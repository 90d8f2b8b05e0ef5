package language

import (
	"errors"
	"testing"
)

func TestResolveByCodeAndName(t *testing.T) {
	catalog := NewMemoryCatalog(Seed())

	for _, input := range []string{"es", "ES", "Spanish", " spanish "} {
		got, err := catalog.Resolve(input)
		if err != nil {
			t.Fatalf("Resolve(%q) err: %v", input, err)
		}
		if got.Name != "Spanish" {
			t.Fatalf("Resolve(%q) = %+v", input, got)
		}
	}
}

func TestResolveEmptyIsDefault(t *testing.T) {
	catalog := NewMemoryCatalog(Seed())

	got, err := catalog.Resolve("")
	if err != nil {
		t.Fatalf("Resolve err: %v", err)
	}
	if got != Default {
		t.Fatalf("expected default language, got %+v", got)
	}
}

func TestResolveUnknown(t *testing.T) {
	catalog := NewMemoryCatalog(Seed())

	if _, err := catalog.Resolve("klingon"); !errors.Is(err, ErrUnsupported) {
		t.Fatalf("expected ErrUnsupported, got %v", err)
	}
}
