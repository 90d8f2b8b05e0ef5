package history

import (
	"context"
	"errors"

	"github.com/zhouzirui/polyglot-chat/backend/internal/model/chat"
)

// ErrMalformedLog marks a backing log that exists but cannot be parsed.
// Neither Load nor Append attempts to recover from it.
var ErrMalformedLog = errors.New("conversation log is malformed")

// Store persists the conversation log in insertion order.
type Store interface {
	// Append adds one turn to the end of the log, creating it on first use.
	Append(ctx context.Context, userMessage, botReply string) error
	// Load returns every stored turn, oldest first. A missing log yields an empty slice.
	Load(ctx context.Context) ([]chat.Turn, error)
}

// Recent returns the last n turns. n <= 0 returns all of them.
func Recent(turns []chat.Turn, n int) []chat.Turn {
	if n <= 0 || len(turns) <= n {
		return turns
	}
	return turns[len(turns)-n:]
}
