package assistant

import (
	"log/slog"
	"strings"
)

// shortQueryWords is the word count at or below which a query is assumed
// to lean on earlier turns ("ok", "the second one please").
const shortQueryWords = 5

var productContextKeywords = []string{
	"this", "that", "it", "the one", "same", "different", "another",
	"previous", "last", "earlier", "mentioned", "discussed",
	"compare", "vs", "versus", "difference between",
	"similar", "like that", "alternative",
}

var productReferenceKeywords = []string{
	"this product", "that coffee", "the beans", "same order",
	"my order", "my coffee", "my purchase", "what i bought",
}

var continuationKeywords = []string{
	"continue", "also", "what about", "how about",
	"yes", "okay", "sure", "thanks", "thank you",
	"previous", "earlier", "before", "last time",
	"again", "still", "more", "else", "other",
}

// ShouldResolveProductContext decides whether product references in the
// query are worth resolving. Refund flows always resolve; sales flows only
// when the query points at something ("this", "compare", "my order");
// support and general never do.
func ShouldResolveProductContext(query string, intent Intent) bool {
	switch intent {
	case IntentRefund:
		slog.Debug("Product context needed for refund query", "query_preview", preview(query))
		return true
	case IntentSales:
		lower := strings.ToLower(query)
		if kw, ok := containsAny(lower, productContextKeywords); ok {
			slog.Debug("Product context needed for sales query", "keyword", kw, "query_preview", preview(query))
			return true
		}
		if kw, ok := containsAny(lower, productReferenceKeywords); ok {
			slog.Debug("Product context needed for sales query", "keyword", kw, "query_preview", preview(query))
			return true
		}
	}
	return false
}

// ShouldUseChatHistory decides whether prior turns belong in the prompt.
func ShouldUseChatHistory(query string, intent Intent) bool {
	if len(strings.Fields(query)) <= shortQueryWords {
		slog.Debug("Chat history needed for short query", "query_preview", preview(query))
		return true
	}
	if kw, ok := containsAny(strings.ToLower(query), continuationKeywords); ok {
		slog.Debug("Chat history needed for contextual query", "keyword", kw, "query_preview", preview(query))
		return true
	}
	if intent == IntentRefund {
		slog.Debug("Chat history needed for refund query", "query_preview", preview(query))
		return true
	}
	return false
}
