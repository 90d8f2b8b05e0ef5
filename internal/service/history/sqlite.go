package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"github.com/zhouzirui/polyglot-chat/backend/internal/model/chat"
)

// DefaultDB is the SQLite database used when HISTORY_BACKEND=sqlite and no path is set.
const DefaultDB = "chat_history.db"

// SQLiteStore keeps turns in a single table ordered by rowid.
// SQLite's own locking makes concurrent appends from several processes safe.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLiteStore opens (or creates) the database at path and ensures the schema exists.
func OpenSQLiteStore(path string) (*SQLiteStore, error) {
	if path == "" {
		path = DefaultDB
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create db directory %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open db at %s: %w", path, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping db at %s: %w", path, err)
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS turns (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_message TEXT NOT NULL,
			bot_reply TEXT NOT NULL
		);
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to init schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Append inserts one turn.
func (s *SQLiteStore) Append(ctx context.Context, userMessage, botReply string) error {
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO turns (user_message, bot_reply) VALUES (?, ?)`,
		userMessage, botReply,
	); err != nil {
		return fmt.Errorf("insert turn: %w", err)
	}
	return nil
}

// Load returns all turns in insertion order.
func (s *SQLiteStore) Load(ctx context.Context) ([]chat.Turn, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT user_message, bot_reply FROM turns ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("query turns: %w", err)
	}
	defer rows.Close()

	turns := []chat.Turn{}
	for rows.Next() {
		var turn chat.Turn
		if err := rows.Scan(&turn.UserMessage, &turn.BotReply); err != nil {
			return nil, fmt.Errorf("scan turn: %w", err)
		}
		turns = append(turns, turn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate turns: %w", err)
	}
	return turns, nil
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
