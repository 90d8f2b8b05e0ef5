package history

import (
	"fmt"
	"io"
	"strings"
)

// Backend names accepted by Open.
const (
	BackendJSON   = "json"
	BackendSQLite = "sqlite"
)

// Open builds the store selected by backend. The returned closer releases any
// resources the store holds; it is a no-op for the JSON file store.
func Open(backend, filePath, dbPath string) (Store, io.Closer, error) {
	switch strings.ToLower(strings.TrimSpace(backend)) {
	case "", BackendJSON:
		return NewFileStore(filePath), nopCloser{}, nil
	case BackendSQLite:
		store, err := OpenSQLiteStore(dbPath)
		if err != nil {
			return nil, nil, err
		}
		return store, store, nil
	default:
		return nil, nil, fmt.Errorf("unknown history backend %q", backend)
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
