package handlers

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/baristabot/internal/assistant"
	"github.com/edgard/baristabot/internal/chat"
	"github.com/edgard/baristabot/internal/sanitize"
)

const (
	chatProcessingTimeout = 2 * time.Minute
	sendMessageTimeout    = 10 * time.Second
)

// Replies are sent without a parse mode, so markdown is flattened first.
var plainText = sanitize.NewPlainTextPolicy()

// SessionID is the chat session used for a Telegram chat. Each chat has one
// conversation, shared by everyone in a group.
func SessionID(chatID int64) string {
	return "telegram:" + strconv.FormatInt(chatID, 10)
}

type messageHandler struct {
	deps HandlerDeps
}

// NewMessageHandler creates the default handler for plain messages. It
// answers every message in private chats, and in groups only messages that
// mention the bot or reply to it.
func NewMessageHandler(deps HandlerDeps) bot.HandlerFunc {
	return messageHandler{deps}.Handle
}

func (h messageHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "message")

	msg := update.Message
	if msg == nil || msg.From == nil || strings.TrimSpace(msg.Text) == "" {
		log.DebugContext(ctx, "Ignoring update without text or sender", "update_id", update.ID)
		return
	}
	if strings.HasPrefix(msg.Text, "/") {
		log.DebugContext(ctx, "Ignoring unknown command", "chat_id", msg.Chat.ID, "text", msg.Text)
		return
	}

	info := h.deps.Config.Telegram.BotInfo
	if !shouldHandle(msg, info) {
		log.DebugContext(ctx, "Bot not addressed, skipping", "chat_id", msg.Chat.ID)
		return
	}

	text := msg.Text
	if info != nil {
		text = stripMention(text, info.Username)
	}

	chatID := msg.Chat.ID
	if strings.TrimSpace(text) == "" {
		h.send(ctx, b, chatID, msg.ID, withBotName(h.deps.Config.Messages.Help, info))
		return
	}

	log.InfoContext(ctx, "Handling message", "chat_id", chatID, "message_id", msg.ID)
	_, _ = b.SendChatAction(ctx, &bot.SendChatActionParams{ChatID: chatID, Action: models.ChatActionTyping})

	chatCtx, cancel := context.WithTimeout(ctx, chatProcessingTimeout)
	defer cancel()

	res, err := h.deps.Chat.Handle(chatCtx, SessionID(chatID), text)
	if err != nil {
		log.ErrorContext(ctx, "Chat processing failed", "error", err, "chat_id", chatID)
		h.send(ctx, b, chatID, msg.ID, h.deps.Config.Messages.GeneralError)
		return
	}

	h.send(ctx, b, chatID, msg.ID, formatReply(res, h.deps.Config.Telegram.StoreURL))
}

func (h messageHandler) send(ctx context.Context, b *bot.Bot, chatID int64, replyTo int, text string) {
	log := h.deps.Logger.With("handler", "message")
	if ctx.Err() != nil {
		log.ErrorContext(ctx, "Context cancelled before sending reply", "error", ctx.Err(), "chat_id", chatID)
		return
	}

	sendCtx, cancel := context.WithTimeout(ctx, sendMessageTimeout)
	defer cancel()
	sent, err := b.SendMessage(sendCtx, &bot.SendMessageParams{
		ChatID:          chatID,
		Text:            text,
		ReplyParameters: &models.ReplyParameters{MessageID: replyTo},
	})
	if err != nil {
		log.ErrorContext(ctx, "Failed to send reply message", "error", err, "chat_id", chatID)
		return
	}
	log.InfoContext(ctx, "Sent reply", "chat_id", chatID, "message_id", sent.ID)
}

// shouldHandle reports whether msg is addressed to the bot.
func shouldHandle(msg *models.Message, info *models.User) bool {
	if msg == nil {
		return false
	}
	if msg.Chat.Type == models.ChatTypePrivate {
		return true
	}
	if info == nil {
		return false
	}

	if msg.ReplyToMessage != nil && msg.ReplyToMessage.From != nil && msg.ReplyToMessage.From.ID == info.ID {
		return true
	}
	if info.Username == "" {
		return false
	}

	username := strings.ToLower(info.Username)
	for _, w := range strings.Fields(strings.ToLower(msg.Text)) {
		if strings.TrimFunc(w, unicode.IsPunct) == username {
			return true
		}
	}
	return false
}

// stripMention removes @username mentions of the bot from text.
func stripMention(text, username string) string {
	if username == "" {
		return strings.TrimSpace(text)
	}
	mention := "@" + strings.ToLower(username)

	words := strings.Fields(text)
	kept := words[:0]
	for _, w := range words {
		if strings.TrimRightFunc(strings.ToLower(w), unicode.IsPunct) == mention {
			continue
		}
		kept = append(kept, w)
	}
	return strings.Join(kept, " ")
}

// formatReply renders a chat result for Telegram, listing the products it
// mentions with links into the storefront.
func formatReply(res *chat.Result, storeURL string) string {
	if res == nil {
		return ""
	}
	text := plainText.PlainText(res.Text)
	if len(res.Products) == 0 {
		return text
	}

	var sb strings.Builder
	sb.WriteString(text)
	sb.WriteString("\n")
	for _, p := range res.Products {
		fmt.Fprintf(&sb, "\n• %s ($%.2f): %s", p.Name, p.Price, strings.TrimSuffix(storeURL, "/")+assistant.ProductLink(p.ID))
	}
	return sb.String()
}
