package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
)

const defaultHistoryLimit = 50

func (s *sqlxStore) EnsureChatSession(ctx context.Context, sessionID string) error {
	if strings.TrimSpace(sessionID) == "" {
		return fmt.Errorf("session_id cannot be empty")
	}

	ts := nowUTC()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO chat_sessions (session_id, created_at, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(session_id) DO UPDATE SET updated_at = excluded.updated_at`,
		sessionID, ts, ts)
	if err != nil {
		return s.queryErr(ctx, "ensure chat session", err, "session_id", sessionID)
	}
	return nil
}

func (s *sqlxStore) AddChatMessage(ctx context.Context, msg *ChatMessage) error {
	if msg == nil {
		return fmt.Errorf("cannot save nil chat message")
	}
	if msg.SessionID == "" {
		return fmt.Errorf("chat message must have a session_id")
	}
	if msg.Role != RoleUser && msg.Role != RoleAssistant {
		return fmt.Errorf("invalid chat message role %q", msg.Role)
	}
	if msg.Content == "" {
		return fmt.Errorf("chat message must have non-empty content")
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = nowUTC()
	}
	// Timestamps compare as text in SQLite, so they must share a zone.
	msg.CreatedAt = msg.CreatedAt.UTC()

	return s.withTx(ctx, "add chat message", func(tx *sqlx.Tx) error {
		res, err := tx.NamedExecContext(ctx, `
			INSERT INTO chat_messages (session_id, role, content, intent, agent, created_at)
			VALUES (:session_id, :role, :content, :intent, :agent, :created_at)`, msg)
		if err != nil {
			return s.queryErr(ctx, "save chat message", err, "session_id", msg.SessionID)
		}

		if id, err := res.LastInsertId(); err == nil {
			msg.ID = id
		} else {
			s.logger.WarnContext(ctx, "Could not retrieve last insert ID after saving chat message",
				"session_id", msg.SessionID, "error", err)
		}

		_, err = tx.ExecContext(ctx, `UPDATE chat_sessions SET updated_at = ? WHERE session_id = ?`, msg.CreatedAt, msg.SessionID)
		if err != nil {
			return s.queryErr(ctx, "touch chat session", err, "session_id", msg.SessionID)
		}
		return nil
	})
}

func (s *sqlxStore) GetChatHistory(ctx context.Context, sessionID string, limit int) ([]ChatMessage, error) {
	if limit <= 0 || limit > maxPageSize {
		limit = defaultHistoryLimit
	}

	messages := []ChatMessage{}
	err := s.db.SelectContext(ctx, &messages, `
		SELECT id, session_id, role, content, intent, agent, created_at FROM (
			SELECT * FROM chat_messages WHERE session_id = ? ORDER BY id DESC LIMIT ?
		) ORDER BY id ASC`, sessionID, limit)
	if err != nil {
		return nil, s.queryErr(ctx, "get chat history", err, "session_id", sessionID)
	}

	s.logger.DebugContext(ctx, "Fetched chat history", "session_id", sessionID, "count", len(messages))
	return messages, nil
}

func (s *sqlxStore) DeleteChatHistory(ctx context.Context, sessionID string) error {
	return s.withTx(ctx, "delete chat history", func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM chat_messages WHERE session_id = ?`, sessionID); err != nil {
			return s.queryErr(ctx, "delete chat messages", err, "session_id", sessionID)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM chat_sessions WHERE session_id = ?`, sessionID); err != nil {
			return s.queryErr(ctx, "delete chat session", err, "session_id", sessionID)
		}
		return nil
	})
}

func (s *sqlxStore) PruneChatMessages(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM chat_messages WHERE created_at < ?`, cutoff.UTC())
	if err != nil {
		return 0, s.queryErr(ctx, "prune chat messages", err)
	}
	n, _ := res.RowsAffected()

	if _, err := s.db.ExecContext(ctx, `
		DELETE FROM chat_sessions
		WHERE NOT EXISTS (SELECT 1 FROM chat_messages m WHERE m.session_id = chat_sessions.session_id)
		AND updated_at < ?`, cutoff.UTC()); err != nil {
		return n, s.queryErr(ctx, "prune chat sessions", err)
	}

	s.logger.InfoContext(ctx, "Pruned chat messages", "deleted", n, "cutoff", cutoff)
	return n, nil
}
