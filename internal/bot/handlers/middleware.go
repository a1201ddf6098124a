// Package handlers contains the Telegram command and message handlers,
// their registration and middleware.
package handlers

import (
	"context"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// AdminOnly lets only the configured admin through. Anyone else gets the
// not-authorized message and the handler is skipped.
func AdminOnly(deps HandlerDeps) tgbot.Middleware {
	return func(next tgbot.HandlerFunc) tgbot.HandlerFunc {
		return func(ctx context.Context, bot *tgbot.Bot, update *models.Update) {
			if update.Message == nil || update.Message.From == nil {
				next(ctx, bot, update)
				return
			}

			userID := update.Message.From.ID
			if isAdmin(deps, userID) {
				next(ctx, bot, update)
				return
			}

			chatID := update.Message.Chat.ID
			log := deps.Logger.With("middleware", "AdminOnly")
			log.WarnContext(ctx, "Unauthorized access attempt", "user_id", userID, "chat_id", chatID)

			_, err := bot.SendMessage(ctx, &tgbot.SendMessageParams{
				ChatID: chatID,
				Text:   deps.Config.Messages.NotAuthorized,
			})
			if err != nil {
				log.ErrorContext(ctx, "Failed to send unauthorized message", "error", err, "chat_id", chatID)
			}
		}
	}
}

func isAdmin(deps HandlerDeps, userID int64) bool {
	adminID := deps.Config.Telegram.AdminID
	return adminID != 0 && userID == adminID
}
