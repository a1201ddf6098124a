package handlers

import (
	"strings"
	"testing"

	"github.com/go-telegram/bot/models"
	"github.com/stretchr/testify/assert"

	"github.com/edgard/baristabot/internal/assistant"
	"github.com/edgard/baristabot/internal/chat"
	"github.com/edgard/baristabot/internal/config"
)

func TestSessionID(t *testing.T) {
	assert.Equal(t, "telegram:42", SessionID(42))
	assert.Equal(t, "telegram:-100123", SessionID(-100123))
}

func TestShouldHandle(t *testing.T) {
	botUser := &models.User{ID: 99, Username: "BaristaBot"}
	group := models.Chat{ID: -1, Type: models.ChatTypeGroup}

	tests := []struct {
		name string
		msg  *models.Message
		info *models.User
		want bool
	}{
		{
			name: "nil message",
			want: false,
		},
		{
			name: "private chat",
			msg:  &models.Message{Chat: models.Chat{ID: 1, Type: models.ChatTypePrivate}, Text: "hello"},
			info: botUser,
			want: true,
		},
		{
			name: "group without mention",
			msg:  &models.Message{Chat: group, Text: "anyone up for coffee?"},
			info: botUser,
			want: false,
		},
		{
			name: "group mention is case insensitive",
			msg:  &models.Message{Chat: group, Text: "@baristabot, what's your best espresso?"},
			info: botUser,
			want: true,
		},
		{
			name: "group reply to the bot",
			msg: &models.Message{Chat: group, Text: "and decaf?", ReplyToMessage: &models.Message{
				From: &models.User{ID: 99},
			}},
			info: botUser,
			want: true,
		},
		{
			name: "group reply to someone else",
			msg: &models.Message{Chat: group, Text: "agreed", ReplyToMessage: &models.Message{
				From: &models.User{ID: 7},
			}},
			info: botUser,
			want: false,
		},
		{
			name: "group before bot info is known",
			msg:  &models.Message{Chat: group, Text: "@baristabot hi"},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, shouldHandle(tt.msg, tt.info))
		})
	}
}

func TestStripMention(t *testing.T) {
	assert.Equal(t, "what's your best espresso?", stripMention("@BaristaBot, what's your best espresso?", "baristabot"))
	assert.Equal(t, "hi there", stripMention("hi @baristabot there", "BaristaBot"))
	assert.Equal(t, "", stripMention("@baristabot", "baristabot"))
	assert.Equal(t, "hello", stripMention("  hello ", ""))
}

func TestFormatReply(t *testing.T) {
	assert.Empty(t, formatReply(nil, ""))

	plain := &chat.Result{Text: "We open at 7am."}
	assert.Equal(t, "We open at 7am.", formatReply(plain, "https://shop.example"))

	withProducts := &chat.Result{
		Text: "Try **Espresso Roast** (ID: 1) - $14.50",
		Products: []assistant.ProductMention{
			{ID: "1", Name: "Espresso Roast", Price: 14.5},
		},
	}
	got := formatReply(withProducts, "https://shop.example/")
	assert.True(t, strings.HasPrefix(got, "Try Espresso Roast (ID: 1) - $14.50\n\n"), "markdown is flattened: %q", got)
	assert.Contains(t, got, "• Espresso Roast ($14.50): https://shop.example/product/1")

	assert.Contains(t, formatReply(withProducts, ""), ": /product/1")
}

func TestWithBotName(t *testing.T) {
	assert.Equal(t, "Ask @barista", withBotName("Ask @botname", &models.User{Username: "barista"}))
	assert.Equal(t, "Ask @botname", withBotName("Ask @botname", nil))
}

func TestIsAdmin(t *testing.T) {
	cfg := &config.Config{}
	deps := HandlerDeps{Config: cfg}
	assert.False(t, isAdmin(deps, 0), "unset admin matches nobody")

	cfg.Telegram.AdminID = 5
	assert.True(t, isAdmin(deps, 5))
	assert.False(t, isAdmin(deps, 6))
}
