package assistant

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

const defaultHistoryTurns = 5

// ProductDetail is what a ProductLookup knows about a catalog product.
type ProductDetail struct {
	ID          string
	Name        string
	Description string
	Category    string
	Price       float64
	InStock     bool
}

// ProductLookup resolves a product identifier taken from an earlier reply.
type ProductLookup interface {
	LookupProduct(ctx context.Context, id string) (ProductDetail, error)
}

// ConversationProvider is the ContextProvider backed by the request's own
// history. Products are resolved from mentions in earlier assistant turns.
type ConversationProvider struct {
	// MaxTurns bounds how many trailing turns are used. Zero means 5.
	MaxTurns int
	// Lookup enriches mentioned products. When nil, the mention itself is used.
	Lookup ProductLookup
	Logger *slog.Logger
}

// turns returns the trailing turns worth quoting. Turns whose user text
// would be rejected by the safety filter are dropped with their reply.
func (p *ConversationProvider) turns(history []ChatTurn) []ChatTurn {
	limit := p.MaxTurns
	if limit <= 0 {
		limit = defaultHistoryTurns
	}

	safe := make([]ChatTurn, 0, len(history))
	for _, turn := range history {
		if _, unsafe := containsAny(strings.ToLower(turn.User), bannedTerms); unsafe {
			continue
		}
		safe = append(safe, turn)
	}
	if len(safe) > limit {
		return safe[len(safe)-limit:]
	}
	return safe
}

func (p *ConversationProvider) logger() *slog.Logger {
	if p.Logger != nil {
		return p.Logger
	}
	return slog.Default()
}

// ChatHistoryContext renders the trailing turns as alternating
// "User:" and "Assistant:" lines.
func (p *ConversationProvider) ChatHistoryContext(_ context.Context, history []ChatTurn) (string, error) {
	var b strings.Builder
	for _, turn := range p.turns(history) {
		if strings.TrimSpace(turn.User) != "" {
			if b.Len() > 0 {
				b.WriteByte('\n')
			}
			b.WriteString("User: ")
			b.WriteString(strings.TrimSpace(turn.User))
		}
		if strings.TrimSpace(turn.Assistant) != "" {
			if b.Len() > 0 {
				b.WriteByte('\n')
			}
			b.WriteString("Assistant: ")
			b.WriteString(strings.TrimSpace(turn.Assistant))
		}
	}
	return b.String(), nil
}

// ProductContext lists the products mentioned in recent assistant turns,
// most recent first, so that "that coffee" has something to bind to.
func (p *ConversationProvider) ProductContext(ctx context.Context, query string, history []ChatTurn) (string, error) {
	recent := p.turns(history)
	seen := make(map[string]bool)
	var lines []string

	for i := len(recent) - 1; i >= 0; i-- {
		for _, m := range ExtractProductInfo(recent[i].Assistant).Products {
			if seen[m.ID] {
				continue
			}
			seen[m.ID] = true
			lines = append(lines, p.describe(ctx, m))
		}
	}

	if len(lines) == 0 {
		p.logger().DebugContext(ctx, "No product references found in history", "query_preview", preview(query))
		return "", nil
	}

	p.logger().DebugContext(ctx, "Resolved product references", "count", len(lines), "query_preview", preview(query))
	return strings.Join(lines, "\n"), nil
}

func (p *ConversationProvider) describe(ctx context.Context, m ProductMention) string {
	if p.Lookup == nil {
		return "- " + FormatProductMention(m.Name, m.ID, m.Price)
	}

	d, err := p.Lookup.LookupProduct(ctx, m.ID)
	if err != nil {
		p.logger().WarnContext(ctx, "Product lookup failed, using mention", "product_id", m.ID, "error", err)
		return "- " + FormatProductMention(m.Name, m.ID, m.Price)
	}

	line := "- " + FormatProductMention(d.Name, d.ID, d.Price)
	if d.Category != "" {
		line += fmt.Sprintf(" [%s]", d.Category)
	}
	if d.Description != "" {
		line += ": " + d.Description
	}
	if !d.InStock {
		line += " (out of stock)"
	}
	return line
}
