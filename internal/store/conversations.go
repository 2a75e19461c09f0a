package store

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/txray-labs/txray/internal/chat"
)

// SaveConversations replaces the persisted conversation list with the given
// snapshot. Positions preserve list order so startup restores the UI exactly.
// Implements chat.Saver.
func (s *Store) SaveConversations(convs []*chat.Conversation) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM conversations"); err != nil {
		return fmt.Errorf("clear conversations: %w", err)
	}

	for i, conv := range convs {
		messages, err := json.Marshal(conv.Messages)
		if err != nil {
			return fmt.Errorf("marshal messages for %s: %w", conv.ID, err)
		}
		if _, err := tx.Exec(`
			INSERT INTO conversations (id, title, messages, last_update, position)
			VALUES (?, ?, ?, ?, ?)
		`, conv.ID, conv.Title, string(messages), conv.LastUpdate, i); err != nil {
			return fmt.Errorf("insert conversation %s: %w", conv.ID, err)
		}
	}

	return tx.Commit()
}

// LoadConversations returns the persisted conversation list in saved order.
func (s *Store) LoadConversations() ([]*chat.Conversation, error) {
	rows, err := s.db.Query(`
		SELECT id, title, messages, last_update
		FROM conversations
		ORDER BY position ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query conversations: %w", err)
	}
	defer rows.Close()

	var convs []*chat.Conversation
	for rows.Next() {
		conv := &chat.Conversation{}
		var messages string
		if err := rows.Scan(&conv.ID, &conv.Title, &messages, &conv.LastUpdate); err != nil {
			return nil, fmt.Errorf("scan conversation: %w", err)
		}
		if err := json.Unmarshal([]byte(messages), &conv.Messages); err != nil {
			return nil, fmt.Errorf("unmarshal messages for %s: %w", conv.ID, err)
		}
		convs = append(convs, conv)
	}

	return convs, rows.Err()
}

const tokenKey = "bearer_token"

// GetToken returns the stored bearer token, or "" if none is set.
func (s *Store) GetToken() (string, error) {
	var value string
	err := s.db.QueryRow("SELECT value FROM settings WHERE key = ?", tokenKey).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("query token: %w", err)
	}
	return value, nil
}

// SetToken stores the bearer token. An empty token clears it.
func (s *Store) SetToken(token string) error {
	if token == "" {
		_, err := s.db.Exec("DELETE FROM settings WHERE key = ?", tokenKey)
		return err
	}
	_, err := s.db.Exec(`
		INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, tokenKey, token)
	return err
}
