package httpapi

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/edgard/baristabot/internal/assistant"
	"github.com/edgard/baristabot/internal/chat"
)

type chatRequest struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message" binding:"required"`
}

type historyMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	SessionID    string                     `json:"session_id"`
	Response     string                     `json:"response"`
	Intent       string                     `json:"intent"`
	Agent        string                     `json:"agent"`
	Products     []assistant.ProductMention `json:"products"`
	Metadata     *assistant.Metadata        `json:"metadata,omitempty"`
	SourcesCount int                        `json:"sources_count"`
	ChatHistory  []historyMessage           `json:"chat_history"`
}

type chatbotResponse struct {
	Reply     string `json:"reply"`
	SessionID string `json:"session_id"`
	Intent    string `json:"intent"`
}

// runChat binds the request and runs the exchange, writing the error
// response itself. It returns nil when a response has been written.
func (h *handlers) runChat(c *gin.Context) *chat.Result {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, codeBadRequest, err)
		return nil
	}

	ctx := c.Request.Context()
	if h.deps.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.deps.RequestTimeout)
		defer cancel()
	}

	res, err := h.deps.Chat.Handle(ctx, req.SessionID, req.Message)
	switch {
	case errors.Is(err, chat.ErrEmptyMessage):
		respondError(c, http.StatusBadRequest, codeBadRequest, err)
		return nil
	case err != nil:
		h.log.ErrorContext(ctx, "Error processing chat request", "session_id", req.SessionID, "error", err)
		respondError(c, http.StatusInternalServerError, codeInternal, errors.New("error processing request"))
		return nil
	}
	return res
}

func (h *handlers) chat(c *gin.Context) {
	res := h.runChat(c)
	if res == nil {
		return
	}

	resp := chatResponse{
		SessionID:    res.SessionID,
		Response:     res.Text,
		Intent:       res.Intent,
		Agent:        res.Agent,
		Products:     res.Products,
		SourcesCount: res.Sources,
		ChatHistory:  make([]historyMessage, 0, len(res.History)),
	}
	if res.Reply != nil {
		md := res.Reply.Metadata
		resp.Metadata = &md
	}
	for _, m := range res.History {
		resp.ChatHistory = append(resp.ChatHistory, historyMessage{Role: m.Role, Content: m.Content})
	}
	respondOK(c, resp)
}

// chatbot is the reduced response shape used by the storefront widget.
func (h *handlers) chatbot(c *gin.Context) {
	res := h.runChat(c)
	if res == nil {
		return
	}
	respondOK(c, chatbotResponse{Reply: res.Text, SessionID: res.SessionID, Intent: res.Intent})
}

func (h *handlers) newSession(c *gin.Context) {
	sessionID := chat.NewSessionID()
	if err := h.deps.Store.EnsureChatSession(c.Request.Context(), sessionID); err != nil {
		respondStoreError(c, "session", err)
		return
	}
	respondOK(c, gin.H{"session_id": sessionID})
}
