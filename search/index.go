// Package search maintains a full-text index over persisted conversation
// messages. The index is derived data: the JSON conversation records remain
// the source of truth, and the index can be rebuilt from them at any time.
package search

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"llm-app-lab/memory"
)

// Index wraps the SQLite FTS5 database.
type Index struct {
	conn *sql.DB
}

// Hit is one full-text search result.
type Hit struct {
	ConversationID string
	Role           string
	Timestamp      string
	Snippet        string
}

// Open opens (or creates) the index database.
func Open(dbPath string) (*Index, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create index directory: %w", err)
	}

	conn, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open index database: %w", err)
	}

	// SQLite works best with a single connection.
	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)

	idx := &Index{conn: conn}
	if err := idx.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to run index migrations: %w", err)
	}
	return idx, nil
}

// Close closes the index database.
func (idx *Index) Close() error {
	return idx.conn.Close()
}

func (idx *Index) migrate() error {
	_, err := idx.conn.Exec(`CREATE VIRTUAL TABLE IF NOT EXISTS messages_fts USING fts5(
		content,
		conversation_id UNINDEXED,
		role UNINDEXED,
		created_at UNINDEXED
	)`)
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	return nil
}

// IndexMessage adds one message to the index.
func (idx *Index) IndexMessage(conversationID, role, content, timestamp string) error {
	_, err := idx.conn.Exec(
		"INSERT INTO messages_fts (content, conversation_id, role, created_at) VALUES (?, ?, ?, ?)",
		content, conversationID, role, timestamp,
	)
	if err != nil {
		return fmt.Errorf("failed to index message: %w", err)
	}
	return nil
}

// RemoveConversation drops every indexed message of a conversation.
func (idx *Index) RemoveConversation(conversationID string) error {
	_, err := idx.conn.Exec("DELETE FROM messages_fts WHERE conversation_id = ?", conversationID)
	if err != nil {
		return fmt.Errorf("failed to remove conversation from index: %w", err)
	}
	return nil
}

// Search performs a full-text query and returns ranked hits with snippets.
func (idx *Index) Search(query string, limit int) ([]*Hit, error) {
	rows, err := idx.conn.Query(`
		SELECT conversation_id, role, created_at,
		       snippet(messages_fts, 0, '<mark>', '</mark>', '...', 32) AS snippet
		FROM messages_fts
		WHERE messages_fts MATCH ?
		ORDER BY rank
		LIMIT ?
	`, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search messages: %w", err)
	}
	defer rows.Close()

	var hits []*Hit
	for rows.Next() {
		var hit Hit
		if err := rows.Scan(&hit.ConversationID, &hit.Role, &hit.Timestamp, &hit.Snippet); err != nil {
			return nil, fmt.Errorf("failed to scan search result: %w", err)
		}
		hits = append(hits, &hit)
	}
	return hits, rows.Err()
}

// Rebuild drops the index and repopulates it from the given conversations.
// Called at startup so the index never drifts from the JSON records.
func (idx *Index) Rebuild(conversations []*memory.Conversation) error {
	tx, err := idx.conn.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin rebuild: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM messages_fts"); err != nil {
		return fmt.Errorf("failed to clear index: %w", err)
	}
	for _, conv := range conversations {
		for _, msg := range conv.Messages {
			_, err := tx.Exec(
				"INSERT INTO messages_fts (content, conversation_id, role, created_at) VALUES (?, ?, ?, ?)",
				msg.Content, conv.ID, msg.Role, msg.Timestamp,
			)
			if err != nil {
				return fmt.Errorf("failed to index message: %w", err)
			}
		}
	}
	return tx.Commit()
}
