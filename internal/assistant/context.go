package assistant

import (
	"context"
	"strings"
)

const (
	retrievedLabel    = "Retrieved Information:"
	conversationLabel = "Previous Conversation:"
	productLabel      = "Product Information:"
)

// ChatTurn is one prior exchange, oldest first in any slice of turns.
type ChatTurn struct {
	User      string `json:"user"`
	Assistant string `json:"assistant"`
}

// ContextProvider supplies the optional conversation and product sections
// of a prompt. Implementations may perform I/O; an error makes the caller
// drop that section rather than fail the request.
type ContextProvider interface {
	// ChatHistoryContext renders prior turns as prompt text.
	ChatHistoryContext(ctx context.Context, history []ChatTurn) (string, error)
	// ProductContext resolves references such as "that coffee" in query.
	ProductContext(ctx context.Context, query string, history []ChatTurn) (string, error)
}

// NopContextProvider contributes nothing. It is the default provider.
type NopContextProvider struct{}

func (NopContextProvider) ChatHistoryContext(context.Context, []ChatTurn) (string, error) {
	return "", nil
}

func (NopContextProvider) ProductContext(context.Context, string, []ChatTurn) (string, error) {
	return "", nil
}

// FormatRagContext joins the non-empty sections in authority order:
// retrieved documents, then conversation, then product detail. A section
// whose body is empty is omitted together with its label.
func FormatRagContext(retrievedDocs []string, chatContext, productContext string) string {
	var parts []string

	docs := make([]string, 0, len(retrievedDocs))
	for _, d := range retrievedDocs {
		if strings.TrimSpace(d) != "" {
			docs = append(docs, d)
		}
	}
	if len(docs) > 0 {
		parts = append(parts, retrievedLabel)
		parts = append(parts, docs...)
	}

	if strings.TrimSpace(chatContext) != "" {
		parts = append(parts, "\n"+conversationLabel, chatContext)
	}

	if strings.TrimSpace(productContext) != "" {
		parts = append(parts, "\n"+productLabel, productContext)
	}

	return strings.Join(parts, "\n")
}
