package document

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestExtractPlainText(t *testing.T) {
	text, err := Extract("notes.txt", "", []byte("line one\nline two"))
	if err != nil {
		t.Fatalf("Extract err: %v", err)
	}
	if text != "line one\nline two" {
		t.Fatalf("unexpected text: %q", text)
	}
}

func TestExtractTextByContentType(t *testing.T) {
	text, err := Extract("upload", "text/plain; charset=utf-8", []byte("hola"))
	if err != nil {
		t.Fatalf("Extract err: %v", err)
	}
	if text != "hola" {
		t.Fatalf("unexpected text: %q", text)
	}
}

func TestExtractRejectsInvalidUTF8(t *testing.T) {
	if _, err := Extract("bad.txt", "", []byte{0xff, 0xfe, 0xfd}); !errors.Is(err, ErrInvalidText) {
		t.Fatalf("expected ErrInvalidText, got %v", err)
	}
}

func TestExtractUnsupportedType(t *testing.T) {
	if _, err := Extract("image.png", "image/png", []byte{0x89, 'P', 'N', 'G'}); !errors.Is(err, ErrUnsupportedType) {
		t.Fatalf("expected ErrUnsupportedType, got %v", err)
	}
}

func TestExtractBrokenPDF(t *testing.T) {
	if _, err := Extract("broken.pdf", "application/pdf", []byte("not a pdf")); err == nil {
		t.Fatal("expected error for broken pdf")
	}
}

func readFixture(t *testing.T, name string) []byte {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", name))
	if err != nil {
		t.Fatalf("read fixture %s: %v", name, err)
	}
	return data
}

func TestExtractPDFJoinsPages(t *testing.T) {
	text, err := Extract("two_pages.pdf", "application/pdf", readFixture(t, "two_pages.pdf"))
	if err != nil {
		t.Fatalf("Extract err: %v", err)
	}
	if text != "Page one\nPage two" {
		t.Fatalf("unexpected text: %q", text)
	}
}

func TestExtractPDFSkipsDanglingPages(t *testing.T) {
	// /Count claims three pages; the nested node holds one page and a missing reference.
	data := readFixture(t, "dangling_page.pdf")

	done := make(chan struct{})
	var (
		text string
		err  error
	)
	go func() {
		defer close(done)
		text, err = Extract("dangling_page.pdf", "", data)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("extraction did not finish")
	}
	if err != nil {
		t.Fatalf("Extract err: %v", err)
	}
	if text != "Page one\nPage two" {
		t.Fatalf("unexpected text: %q", text)
	}
}

func TestIngestFallsBackToEmptyText(t *testing.T) {
	svc := NewService()
	ctx := context.Background()

	doc := svc.Ingest(ctx, "broken.pdf", "application/pdf", []byte("not a pdf"))
	if doc.Text != "" {
		t.Fatalf("expected empty text, got %q", doc.Text)
	}
	if doc.Warning == "" {
		t.Fatal("expected extraction warning")
	}

	got, err := svc.Get(ctx, doc.ID)
	if err != nil {
		t.Fatalf("Get err: %v", err)
	}
	if got.ID != doc.ID {
		t.Fatalf("unexpected document: %+v", got)
	}
}

func TestIngestText(t *testing.T) {
	svc := NewService()

	doc := svc.Ingest(context.Background(), "notes.md", "", []byte("# title"))
	if doc.Text != "# title" || doc.Warning != "" || doc.ID == "" {
		t.Fatalf("unexpected document: %+v", doc)
	}
}

func TestGetMissingDocument(t *testing.T) {
	svc := NewService()
	if _, err := svc.Get(context.Background(), "missing"); !errors.Is(err, ErrDocumentNotFound) {
		t.Fatalf("expected ErrDocumentNotFound, got %v", err)
	}
}

func TestIngestEvictsOldestDocument(t *testing.T) {
	svc := NewBoundedService(2)
	ctx := context.Background()

	first := svc.Ingest(ctx, "a.txt", "", []byte("a"))
	second := svc.Ingest(ctx, "b.txt", "", []byte("b"))
	third := svc.Ingest(ctx, "c.txt", "", []byte("c"))

	if _, err := svc.Get(ctx, first.ID); !errors.Is(err, ErrDocumentNotFound) {
		t.Fatalf("expected oldest document evicted, got %v", err)
	}
	for _, doc := range []Document{second, third} {
		if _, err := svc.Get(ctx, doc.ID); err != nil {
			t.Fatalf("expected %s retained: %v", doc.Name, err)
		}
	}
}
