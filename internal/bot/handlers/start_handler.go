package handlers

import (
	"context"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/baristabot/internal/config"
)

// NewStartHandler returns a handler for the /start command.
func NewStartHandler(deps HandlerDeps) bot.HandlerFunc {
	return textReplyHandler{deps: deps, name: "start", text: func(c *config.Config) string { return c.Messages.Welcome }}.Handle
}

// NewHelpHandler returns a handler for the /help command.
func NewHelpHandler(deps HandlerDeps) bot.HandlerFunc {
	return textReplyHandler{deps: deps, name: "help", text: func(c *config.Config) string { return c.Messages.Help }}.Handle
}

// textReplyHandler answers a command with a fixed configured message.
type textReplyHandler struct {
	deps HandlerDeps
	name string
	text func(*config.Config) string
}

func (h textReplyHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", h.name)

	if update.Message == nil || update.Message.From == nil {
		log.WarnContext(ctx, "Handler received update with nil message or sender", "update_id", update.ID)
		return
	}

	chatID := update.Message.Chat.ID
	log.InfoContext(ctx, "Handling command", "chat_id", chatID, "user_id", update.Message.From.ID)

	text := withBotName(h.text(h.deps.Config), h.deps.Config.Telegram.BotInfo)
	if _, err := b.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: text}); err != nil {
		log.ErrorContext(ctx, "Failed to send command reply", "error", err, "chat_id", chatID)
		return
	}
	log.DebugContext(ctx, "Sent command reply", "chat_id", chatID)
}

// withBotName substitutes @botname in configured messages.
func withBotName(text string, info *models.User) string {
	if info == nil || info.Username == "" {
		return text
	}
	return strings.ReplaceAll(text, "@botname", "@"+info.Username)
}
