package handlers

import (
	"context"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

const resetTimeout = 30 * time.Second

// NewResetHandler returns a handler for the /reset command, which clears
// the conversation history of the chat it is sent in.
func NewResetHandler(deps HandlerDeps) bot.HandlerFunc {
	return resetHandler{deps}.Handle
}

type resetHandler struct {
	deps HandlerDeps
}

func (h resetHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "reset")
	if update.Message == nil || update.Message.From == nil {
		log.ErrorContext(ctx, "Reset handler called with nil Message or From", "update_id", update.ID)
		return
	}

	chatID := update.Message.Chat.ID
	sessionID := SessionID(chatID)
	log.InfoContext(ctx, "Admin requested history reset", "chat_id", chatID, "session_id", sessionID)

	timeoutCtx, cancel := context.WithTimeout(ctx, resetTimeout)
	defer cancel()

	text := h.deps.Config.Messages.HistoryReset
	if err := h.deps.Store.DeleteChatHistory(timeoutCtx, sessionID); err != nil {
		log.ErrorContext(ctx, "Failed to reset chat history", "error", err, "chat_id", chatID)
		text = h.deps.Config.Messages.GeneralError
	}

	if _, err := b.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: text}); err != nil {
		log.ErrorContext(ctx, "Failed to send reset reply", "error", err, "chat_id", chatID)
	}
}
