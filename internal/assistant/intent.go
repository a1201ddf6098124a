package assistant

import (
	"log/slog"
	"strings"
)

// Intent is the coarse category of a customer request. It selects the
// persona, prompt template and post-processing applied to a reply.
type Intent string

const (
	IntentSales   Intent = "sales"
	IntentRefund  Intent = "refund"
	IntentSupport Intent = "support"
	IntentGeneral Intent = "general"
)

// intentPriority is the order in which keyword sets are tested. The first
// set with a hit wins, so a query mentioning both "coffee" and "refund"
// is a sales query.
var intentPriority = []Intent{IntentSales, IntentRefund, IntentSupport}

var intentKeywords = map[Intent][]string{
	IntentSales: {
		"buy", "purchase", "price", "cost", "order", "product", "coffee", "beans",
		"available", "stock", "catalog", "shop", "store", "wholesale", "retail",
		"discount", "offer", "promo", "new", "recommendation", "suggest",
	},
	IntentRefund: {
		"refund", "return", "exchange", "cancel", "money back", "replacement",
		"damaged", "defective", "wrong", "mistake", "complaint", "issue",
	},
	IntentSupport: {
		"help", "support", "contact", "hours", "location", "delivery",
		"shipping", "payment", "account", "login", "register",
	},
}

// Intents returns every intent, keyword-bearing ones first in priority order.
func Intents() []Intent {
	return []Intent{IntentSales, IntentRefund, IntentSupport, IntentGeneral}
}

// IntentKeywords returns a copy of the trigger substrings for intent.
// IntentGeneral and unknown intents have none.
func IntentKeywords(intent Intent) []string {
	kws := intentKeywords[intent]
	out := make([]string, len(kws))
	copy(out, kws)
	return out
}

// Valid reports whether i is one of the four known intents.
func (i Intent) Valid() bool {
	switch i {
	case IntentSales, IntentRefund, IntentSupport, IntentGeneral:
		return true
	}
	return false
}

func (i Intent) String() string { return string(i) }

// ClassifyIntent maps a raw query to an intent using case-insensitive
// substring matching. Matching is deliberately boundary-free: "restore"
// contains "store" and is therefore a sales query.
func ClassifyIntent(query string) Intent {
	lower := strings.ToLower(query)
	for _, intent := range intentPriority {
		if kw, ok := containsAny(lower, intentKeywords[intent]); ok {
			slog.Debug("Classified query intent", "intent", intent, "keyword", kw, "query_preview", preview(query))
			return intent
		}
	}
	slog.Debug("Classified query intent", "intent", IntentGeneral, "query_preview", preview(query))
	return IntentGeneral
}

// containsAny returns the first keyword found in s. s must already be lower-case.
func containsAny(s string, keywords []string) (string, bool) {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return kw, true
		}
	}
	return "", false
}

func preview(s string) string {
	const maxLen = 50
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen]) + "..."
}
