package chat

import (
	"bytes"
	"encoding/json"
	"errors"
)

// ErrInvalidTurn is returned when a serialized turn is not a [user, bot] string pair.
var ErrInvalidTurn = errors.New("turn must be a two-element array of strings")

// Turn is one user message and the bot reply it produced.
// It serializes as a two-element JSON array: ["user message", "bot reply"].
type Turn struct {
	UserMessage string
	BotReply    string
}

// NewTurn builds a Turn from its two halves.
func NewTurn(userMessage, botReply string) Turn {
	return Turn{UserMessage: userMessage, BotReply: botReply}
}

// Pair returns the turn as its on-disk representation.
func (t Turn) Pair() [2]string {
	return [2]string{t.UserMessage, t.BotReply}
}

// MarshalJSON encodes the turn as a two-element array.
func (t Turn) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.Pair())
}

// UnmarshalJSON accepts exactly a two-element array of strings.
func (t *Turn) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return ErrInvalidTurn
	}

	var pair []*string
	if err := json.Unmarshal(data, &pair); err != nil {
		return errors.Join(ErrInvalidTurn, err)
	}
	if len(pair) != 2 || pair[0] == nil || pair[1] == nil {
		return ErrInvalidTurn
	}

	t.UserMessage = *pair[0]
	t.BotReply = *pair[1]
	return nil
}
