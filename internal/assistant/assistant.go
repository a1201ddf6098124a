// Package assistant turns a customer query into a grounded prompt and a
// structured reply. It classifies intent with keyword rules, decides which
// context sections are worth including, assembles the prompt and parses
// product mentions back out of the model's answer.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/edgard/baristabot/internal/metrics"
)

// ErrUnsafeQuery is returned by Respond when the safety filter rejects a query.
var ErrUnsafeQuery = errors.New("query rejected by safety filter")

const (
	// BlockedIntent and BlockedAgent label replies to unsafe queries.
	BlockedIntent  = "blocked"
	BlockedAgent   = "Safety Filter"
	BlockedMessage = "I cannot provide information on harmful or dangerous topics."

	defaultTopK = 5
)

// Retriever returns the k documents most relevant to query.
type Retriever interface {
	Retrieve(ctx context.Context, query string, k int) ([]string, error)
}

// Completer generates text for a fully built prompt.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Options configure an Assistant. Completer is required.
type Options struct {
	Retriever Retriever
	Completer Completer
	Context   ContextProvider
	TopK      int
	Logger    *slog.Logger
}

// Reply is a Response plus the pipeline's diagnostics.
type Reply struct {
	Response

	Sources              []string `json:"sources"`
	Context              string   `json:"context"`
	ChatHistoryUsed      bool     `json:"chat_history_used"`
	ProductContextUsed   bool     `json:"product_context_used"`
	ChatContextActual    bool     `json:"chat_context_actual"`
	ProductContextActual bool     `json:"product_context_actual"`
}

// Assistant runs the full answer pipeline. It holds no per-request state
// and may be shared between goroutines.
type Assistant struct {
	retriever Retriever
	completer Completer
	provider  ContextProvider
	topK      int
	log       *slog.Logger
}

// New creates an Assistant. A nil Retriever yields no documents and a nil
// ContextProvider contributes no conversation or product sections.
func New(opts Options) (*Assistant, error) {
	if opts.Completer == nil {
		return nil, errors.New("assistant: completer is required")
	}

	a := &Assistant{
		retriever: opts.Retriever,
		completer: opts.Completer,
		provider:  opts.Context,
		topK:      opts.TopK,
		log:       opts.Logger,
	}
	if a.provider == nil {
		a.provider = NopContextProvider{}
	}
	if a.topK <= 0 {
		a.topK = defaultTopK
	}
	if a.log == nil {
		a.log = slog.Default()
	}
	a.log = a.log.With("component", "assistant")

	return a, nil
}

// Respond answers query given the prior turns. Unsafe queries return
// ErrUnsafeQuery before any retrieval or prompt is built. Retrieval and
// context-provider failures degrade to empty sections; only a failed
// completion is returned as an error.
func (a *Assistant) Respond(ctx context.Context, query string, history []ChatTurn) (*Reply, error) {
	start := time.Now()

	if !IsSafe(query) {
		metrics.ChatBlocked.Inc()
		return nil, ErrUnsafeQuery
	}

	intent := ClassifyIntent(query)
	useHistory := ShouldUseChatHistory(query, intent)
	useProducts := ShouldResolveProductContext(query, intent)

	docs := a.retrieve(ctx, query)

	var chatContext, productContext string
	if useHistory {
		text, err := a.provider.ChatHistoryContext(ctx, history)
		if err != nil {
			a.log.WarnContext(ctx, "Chat history context unavailable", "error", err)
		} else {
			chatContext = text
		}
	}
	if useProducts {
		text, err := a.provider.ProductContext(ctx, query, history)
		if err != nil {
			a.log.WarnContext(ctx, "Product context unavailable", "error", err)
		} else {
			productContext = text
		}
	}

	ragContext := FormatRagContext(docs, chatContext, productContext)
	prompt := BuildPrompt(intent, ragContext, query)

	text, err := a.completer.Complete(ctx, prompt)
	if err != nil {
		metrics.LLMErrors.Inc()
		return nil, fmt.Errorf("failed to generate %s reply: %w", intent, err)
	}

	resp := FormatResponse(text, intent)

	metrics.ChatRequests.WithLabelValues(intent.String()).Inc()
	metrics.ExtractedProducts.Add(float64(len(resp.Products)))
	metrics.ChatDuration.WithLabelValues(intent.String()).Observe(time.Since(start).Seconds())

	a.log.InfoContext(ctx, "Generated reply",
		"intent", intent,
		"sources", len(docs),
		"chat_history_used", useHistory,
		"product_context_used", useProducts,
		"products", len(resp.Products),
		"duration_ms", time.Since(start).Milliseconds())

	if docs == nil {
		docs = []string{}
	}

	return &Reply{
		Response:             resp,
		Sources:              docs,
		Context:              ragContext,
		ChatHistoryUsed:      useHistory,
		ProductContextUsed:   useProducts,
		ChatContextActual:    chatContext != "",
		ProductContextActual: productContext != "",
	}, nil
}

func (a *Assistant) retrieve(ctx context.Context, query string) []string {
	if a.retriever == nil {
		return nil
	}
	docs, err := a.retriever.Retrieve(ctx, query, a.topK)
	if err != nil {
		a.log.WarnContext(ctx, "Retrieval failed, continuing without documents", "error", err)
		return nil
	}
	a.log.DebugContext(ctx, "Retrieved documents", "count", len(docs))
	return docs
}
