package handlers

import (
	"context"
	"log/slog"

	"github.com/edgard/baristabot/internal/chat"
	"github.com/edgard/baristabot/internal/config"
	"github.com/edgard/baristabot/internal/database"
)

// ChatService answers a message within a conversation. *chat.Service satisfies it.
type ChatService interface {
	Handle(ctx context.Context, sessionID, message string) (*chat.Result, error)
}

// HandlerDeps provides dependencies for Telegram command handlers.
type HandlerDeps struct {
	Logger *slog.Logger
	Config *config.Config
	Store  database.Store
	Chat   ChatService
}
