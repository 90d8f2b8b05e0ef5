package document

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

var ErrDocumentNotFound = errors.New("document not found")

// Document is an uploaded file reduced to its text.
type Document struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Text      string    `json:"text"`
	Warning   string    `json:"warning,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// DefaultMaxStored is how many documents NewService retains.
const DefaultMaxStored = 100

// Service keeps uploaded documents in memory so chat requests can refer to them by id.
// Only the most recent uploads are retained; older ones are evicted first in, first out.
type Service struct {
	mu        sync.RWMutex
	items     map[string]Document
	order     []string
	maxStored int
}

// NewService returns an empty document registry holding DefaultMaxStored documents.
func NewService() *Service {
	return NewBoundedService(DefaultMaxStored)
}

// NewBoundedService returns an empty registry that keeps at most maxStored documents.
// maxStored <= 0 selects DefaultMaxStored.
func NewBoundedService(maxStored int) *Service {
	if maxStored <= 0 {
		maxStored = DefaultMaxStored
	}
	return &Service{
		items:     make(map[string]Document),
		order:     make([]string, 0, maxStored),
		maxStored: maxStored,
	}
}

// Ingest extracts text from the upload and stores the result.
// Extraction failures do not fail the upload: the document is kept with empty
// text and the failure is reported in Warning.
func (s *Service) Ingest(_ context.Context, name, contentType string, data []byte) Document {
	doc := Document{
		ID:        uuid.NewString(),
		Name:      name,
		CreatedAt: time.Now().UTC(),
	}

	text, err := Extract(name, contentType, data)
	if err != nil {
		doc.Warning = err.Error()
	} else {
		doc.Text = text
	}

	s.mu.Lock()
	for len(s.order) >= s.maxStored {
		delete(s.items, s.order[0])
		s.order = s.order[1:]
	}
	s.items[doc.ID] = doc
	s.order = append(s.order, doc.ID)
	s.mu.Unlock()

	return doc
}

// Get retrieves a stored document.
func (s *Service) Get(_ context.Context, id string) (Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.items[id]
	if !ok {
		return Document{}, ErrDocumentNotFound
	}
	return doc, nil
}
