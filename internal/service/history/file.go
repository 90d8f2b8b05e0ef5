package history

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"

	"github.com/google/renameio/v2"

	"github.com/zhouzirui/polyglot-chat/backend/internal/model/chat"
)

// DefaultFile is the backing file name used when none is configured.
const DefaultFile = "chat_history.json"

// FileStore keeps the whole log as one JSON array of [user, bot] pairs.
//
// Every Append is a full read-modify-write of the file. Appends through the same
// FileStore are serialized; separate processes sharing the file are not coordinated
// and can lose a write (last writer wins).
type FileStore struct {
	path string
	mu   sync.Mutex
}

// NewFileStore returns a store backed by path. The file is created on first Append.
func NewFileStore(path string) *FileStore {
	if path == "" {
		path = DefaultFile
	}
	return &FileStore{path: path}
}

// Path reports the backing file location.
func (s *FileStore) Path() string {
	return s.path
}

// Load reads the full log. A missing file is an empty log.
func (s *FileStore) Load(_ context.Context) ([]chat.Turn, error) {
	return s.read()
}

// Append loads the log, adds the turn and rewrites the file atomically.
// A malformed file is left untouched and the parse error is returned.
func (s *FileStore) Append(_ context.Context, userMessage, botReply string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	turns, err := s.read()
	if err != nil {
		return err
	}
	turns = append(turns, chat.NewTurn(userMessage, botReply))

	return s.write(turns)
}

func (s *FileStore) read() ([]chat.Turn, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return []chat.Turn{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read conversation log %s: %w", s.path, err)
	}

	var turns []chat.Turn
	if err := json.Unmarshal(data, &turns); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformedLog, s.path, err)
	}
	// A literal null decodes to a nil slice without error; it is not an array.
	if turns == nil {
		return nil, fmt.Errorf("%w: %s: not a JSON array", ErrMalformedLog, s.path)
	}
	return turns, nil
}

func (s *FileStore) write(turns []chat.Turn) error {
	pairs := make([][2]string, len(turns))
	for i, turn := range turns {
		pairs[i] = turn.Pair()
	}

	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	encoder.SetEscapeHTML(false)
	if err := encoder.Encode(pairs); err != nil {
		return fmt.Errorf("encode conversation log: %w", err)
	}

	if err := renameio.WriteFile(s.path, bytes.TrimRight(buf.Bytes(), "\n"), 0o644); err != nil {
		return fmt.Errorf("write conversation log %s: %w", s.path, err)
	}
	return nil
}
