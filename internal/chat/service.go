// Package chat runs one conversational exchange: it loads the session's
// history, asks the assistant for a reply and persists both sides.
package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/edgard/baristabot/internal/assistant"
	"github.com/edgard/baristabot/internal/database"
)

const (
	defaultHistoryTurns = 5
	saveAttempts        = 3
	saveTimeout         = 5 * time.Second
)

// ErrEmptyMessage is returned for blank user messages.
var ErrEmptyMessage = errors.New("message cannot be empty")

// Responder produces the assistant's reply. *assistant.Assistant satisfies it.
type Responder interface {
	Respond(ctx context.Context, query string, history []assistant.ChatTurn) (*assistant.Reply, error)
}

// Store is the part of database.Store the service needs.
type Store interface {
	EnsureChatSession(ctx context.Context, sessionID string) error
	AddChatMessage(ctx context.Context, msg *database.ChatMessage) error
	GetChatHistory(ctx context.Context, sessionID string, limit int) ([]database.ChatMessage, error)
}

// Options configure a Service.
type Options struct {
	// HistoryTurns is how many prior exchanges are loaded. Zero means 5.
	HistoryTurns int
	// BlockedMessage replaces the reply to unsafe queries.
	BlockedMessage string
	// RetryDelay is the base wait between failed saves. Zero means 500ms.
	RetryDelay time.Duration
	Logger     *slog.Logger
}

// Service is safe for concurrent use.
type Service struct {
	responder Responder
	store     Store
	opts      Options
	log       *slog.Logger
}

func NewService(responder Responder, store Store, opts Options) *Service {
	if opts.HistoryTurns <= 0 {
		opts.HistoryTurns = defaultHistoryTurns
	}
	if opts.BlockedMessage == "" {
		opts.BlockedMessage = assistant.BlockedMessage
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = 500 * time.Millisecond
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		responder: responder,
		store:     store,
		opts:      opts,
		log:       log.With("component", "chat"),
	}
}

// Result is the outcome of one exchange.
type Result struct {
	SessionID string
	Text      string
	Intent    string
	Agent     string
	Products  []assistant.ProductMention
	Sources   int
	Blocked   bool
	// Reply is nil for blocked queries.
	Reply *assistant.Reply
	// History is the loaded history followed by this exchange.
	History []database.ChatMessage
}

// NewSessionID returns a fresh random session identifier.
func NewSessionID() string {
	return uuid.NewString()
}

// Handle answers message within sessionID, creating the session when
// sessionID is empty. The user's message is stored before generation, so
// a failed generation still leaves it in the history. Messages the safety
// filter rejects are stored tagged as blocked and never replayed to the model.
func (s *Service) Handle(ctx context.Context, sessionID, message string) (*Result, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, ErrEmptyMessage
	}
	if sessionID == "" {
		sessionID = NewSessionID()
	}
	log := s.log.With("session_id", sessionID)

	if err := s.store.EnsureChatSession(ctx, sessionID); err != nil {
		return nil, fmt.Errorf("failed to open chat session: %w", err)
	}

	history, err := s.store.GetChatHistory(ctx, sessionID, 2*s.opts.HistoryTurns)
	if err != nil {
		log.ErrorContext(ctx, "Failed to retrieve chat history, continuing without it", "error", err)
		history = []database.ChatMessage{}
	}

	userMsg := &database.ChatMessage{SessionID: sessionID, Role: database.RoleUser, Content: message}
	if !assistant.IsSafe(message) {
		userMsg.Intent = assistant.BlockedIntent
	}
	s.saveWithRetry(ctx, userMsg, "user message")

	res := &Result{SessionID: sessionID}

	reply, err := s.responder.Respond(ctx, message, Turns(history))
	switch {
	case errors.Is(err, assistant.ErrUnsafeQuery):
		log.WarnContext(ctx, "Query blocked by safety filter")
		res.Blocked = true
		res.Text = s.opts.BlockedMessage
		res.Intent = assistant.BlockedIntent
		res.Agent = assistant.BlockedAgent
		res.Products = []assistant.ProductMention{}
	case err != nil:
		return nil, fmt.Errorf("failed to generate reply: %w", err)
	default:
		res.Reply = reply
		res.Text = reply.Text
		res.Intent = reply.Intent.String()
		res.Agent = reply.Agent
		res.Products = reply.Products
		res.Sources = len(reply.Sources)
	}

	botMsg := &database.ChatMessage{
		SessionID: sessionID,
		Role:      database.RoleAssistant,
		Content:   res.Text,
		Intent:    res.Intent,
		Agent:     res.Agent,
	}
	s.saveWithRetry(ctx, botMsg, "assistant reply")

	res.History = append(history, *userMsg, *botMsg)
	return res, nil
}

// saveWithRetry stores msg, retrying a few times before giving up. A lost
// message only degrades later context, so failures are logged, not returned.
func (s *Service) saveWithRetry(ctx context.Context, msg *database.ChatMessage, kind string) {
	var err error
	for i := range saveAttempts {
		if ctx.Err() != nil {
			s.log.WarnContext(ctx, "Context cancelled, aborting save", "kind", kind, "error", ctx.Err(), "attempt", i+1)
			return
		}

		dbCtx, cancel := context.WithTimeout(ctx, saveTimeout)
		err = s.store.AddChatMessage(dbCtx, msg)
		cancel()
		if err == nil {
			s.log.DebugContext(ctx, "Saved chat message", "kind", kind, "message_id", msg.ID)
			return
		}

		s.log.ErrorContext(ctx, "Failed to save chat message, retrying", "kind", kind, "error", err, "attempt", i+1)
		if i == saveAttempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(time.Duration(i+1) * s.opts.RetryDelay):
		}
	}
	s.log.ErrorContext(ctx, "Giving up on chat message", "kind", kind, "attempts", saveAttempts, "last_error", err)
}

// Turns pairs stored messages into exchanges, oldest first. A user message
// without a reply, or a reply without a preceding user message, becomes a
// half-filled turn. Blocked exchanges are left out so rejected text never
// reaches a later prompt.
func Turns(messages []database.ChatMessage) []assistant.ChatTurn {
	turns := make([]assistant.ChatTurn, 0, len(messages)/2+1)
	for i := 0; i < len(messages); i++ {
		m := messages[i]
		switch m.Role {
		case database.RoleUser:
			turn := assistant.ChatTurn{User: m.Content}
			blocked := m.Intent == assistant.BlockedIntent
			if i+1 < len(messages) && messages[i+1].Role == database.RoleAssistant {
				turn.Assistant = messages[i+1].Content
				blocked = blocked || messages[i+1].Intent == assistant.BlockedIntent
				i++
			}
			if !blocked {
				turns = append(turns, turn)
			}
		case database.RoleAssistant:
			if m.Intent != assistant.BlockedIntent {
				turns = append(turns, assistant.ChatTurn{Assistant: m.Content})
			}
		}
	}
	return turns
}
