package mesh

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Message is one mesh message, inbound or outbound.
type Message struct {
	Hash        string         `json:"hash"`
	Direction   string         `json:"direction"` // "in" or "out"
	Source      string         `json:"source,omitempty"`
	Destination string         `json:"destination,omitempty"`
	Title       string         `json:"title,omitempty"`
	Content     string         `json:"content"`
	Fields      map[string]any `json:"fields,omitempty"`
	Timestamp   time.Time      `json:"timestamp"`
}

// Store persists mesh messages in a SQLite database so queued traffic
// survives backend restarts.
type Store struct {
	db   *sql.DB
	path string
}

// OpenStore initializes the message database at path.
func OpenStore(ctx context.Context, path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("open message store: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open message store: %w", err)
	}
	s := &Store{db: db, path: path}
	if err := s.init(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) init(ctx context.Context) error {
	stmts := []string{
		"PRAGMA journal_mode = WAL;",
		"PRAGMA busy_timeout = 5000;",
		`CREATE TABLE IF NOT EXISTS messages (
			hash TEXT PRIMARY KEY,
			direction TEXT NOT NULL CHECK (direction IN ('in','out')),
			source TEXT,
			destination TEXT,
			title TEXT,
			content TEXT NOT NULL,
			fields TEXT,
			created_at INTEGER NOT NULL,
			read INTEGER NOT NULL DEFAULT 0
		);`,
		`CREATE INDEX IF NOT EXISTS idx_messages_unread ON messages(direction, read, created_at);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("init message store: %w", err)
		}
	}
	return nil
}

// Path returns the underlying database file path.
func (s *Store) Path() string { return s.path }

// Close releases database resources.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Append stores one message.
func (s *Store) Append(ctx context.Context, msg Message) error {
	var fields []byte
	if msg.Fields != nil {
		var err error
		fields, err = json.Marshal(msg.Fields)
		if err != nil {
			return fmt.Errorf("append message %s: %w", msg.Hash, err)
		}
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO messages (hash, direction, source, destination, title, content, fields, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		msg.Hash, msg.Direction, msg.Source, msg.Destination, msg.Title, msg.Content,
		string(fields), msg.Timestamp.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("append message %s: %w", msg.Hash, err)
	}
	return nil
}

// NextUnread returns the oldest unread inbound message and marks it read,
// or (nil, nil) when none is pending.
func (s *Store) NextUnread(ctx context.Context) (*Message, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT hash, source, destination, title, content, fields, created_at
		 FROM messages WHERE direction = 'in' AND read = 0
		 ORDER BY created_at ASC LIMIT 1`)

	var (
		msg       Message
		fields    sql.NullString
		createdAt int64
	)
	err := row.Scan(&msg.Hash, &msg.Source, &msg.Destination, &msg.Title, &msg.Content, &fields, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("next unread message: %w", err)
	}

	msg.Direction = "in"
	msg.Timestamp = time.UnixMilli(createdAt).UTC()
	if fields.Valid && fields.String != "" {
		if err := json.Unmarshal([]byte(fields.String), &msg.Fields); err != nil {
			return nil, fmt.Errorf("next unread message %s: %w", msg.Hash, err)
		}
	}

	if _, err := s.db.ExecContext(ctx, `UPDATE messages SET read = 1 WHERE hash = ?`, msg.Hash); err != nil {
		return nil, fmt.Errorf("mark message %s read: %w", msg.Hash, err)
	}
	return &msg, nil
}

// Counts reports how many messages are queued outbound and unread inbound.
func (s *Store) Counts(ctx context.Context) (outbound, unread int, err error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT
			COUNT(CASE WHEN direction = 'out' THEN 1 END),
			COUNT(CASE WHEN direction = 'in' AND read = 0 THEN 1 END)
		 FROM messages`)
	if err := row.Scan(&outbound, &unread); err != nil {
		return 0, 0, fmt.Errorf("count messages: %w", err)
	}
	return outbound, unread, nil
}
