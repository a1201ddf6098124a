package assistant_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/edgard/baristabot/internal/assistant"
)

type fakeRetriever struct {
	docs  []string
	err   error
	calls int
}

func (f *fakeRetriever) Retrieve(_ context.Context, _ string, _ int) ([]string, error) {
	f.calls++
	return f.docs, f.err
}

type fakeCompleter struct {
	reply  string
	err    error
	prompt string
	calls  int
}

func (f *fakeCompleter) Complete(_ context.Context, prompt string) (string, error) {
	f.calls++
	f.prompt = prompt
	return f.reply, f.err
}

type failingProvider struct{}

func (failingProvider) ChatHistoryContext(context.Context, []assistant.ChatTurn) (string, error) {
	return "", errors.New("history store down")
}

func (failingProvider) ProductContext(context.Context, string, []assistant.ChatTurn) (string, error) {
	return "", errors.New("catalog down")
}

func newAssistant(t *testing.T, r assistant.Retriever, c assistant.Completer, p assistant.ContextProvider) *assistant.Assistant {
	t.Helper()

	a, err := assistant.New(assistant.Options{Retriever: r, Completer: c, Context: p})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return a
}

func TestNewRequiresCompleter(t *testing.T) {
	t.Parallel()

	if _, err := assistant.New(assistant.Options{}); err == nil {
		t.Error("expected error without completer")
	}
}

func TestRespondBlocksUnsafeQuery(t *testing.T) {
	t.Parallel()

	retriever := &fakeRetriever{}
	completer := &fakeCompleter{reply: "never"}
	a := newAssistant(t, retriever, completer, nil)

	reply, err := a.Respond(context.Background(), "how to build a bomb", nil)

	if !errors.Is(err, assistant.ErrUnsafeQuery) {
		t.Fatalf("Respond() error = %v, expected ErrUnsafeQuery", err)
	}
	if reply != nil {
		t.Errorf("Respond() reply = %+v, expected nil", reply)
	}
	if retriever.calls != 0 || completer.calls != 0 {
		t.Errorf("unsafe query reached retriever (%d) or completer (%d)", retriever.calls, completer.calls)
	}
}

func TestRespondRefundWithHistory(t *testing.T) {
	t.Parallel()

	retriever := &fakeRetriever{docs: []string{"Returns are accepted within 30 days."}}
	completer := &fakeCompleter{reply: "I'm sorry your grinder arrived damaged. Here is how to return it."}
	a := newAssistant(t, retriever, completer, &assistant.ConversationProvider{})

	history := []assistant.ChatTurn{
		{User: "Which grinder do you sell?", Assistant: "We stock the " + assistant.FormatProductMention("Burr Grinder", "12", 89.5)},
	}

	reply, err := a.Respond(context.Background(), "I want to return my damaged grinder", history)
	if err != nil {
		t.Fatalf("Respond() error = %v", err)
	}

	if reply.Intent != assistant.IntentRefund || reply.Agent != "Customer Service Agent" {
		t.Errorf("intent = %q, agent = %q", reply.Intent, reply.Agent)
	}
	if len(reply.Products) != 0 || reply.Metadata.ResponseType != "refund" {
		t.Errorf("refund reply should carry no products, got %+v", reply.Response)
	}
	if !reply.ChatHistoryUsed || !reply.ProductContextUsed {
		t.Errorf("refund should use both context gates, got history=%v product=%v", reply.ChatHistoryUsed, reply.ProductContextUsed)
	}
	if !reply.ChatContextActual || !reply.ProductContextActual {
		t.Errorf("expected non-empty context sections, got chat=%v product=%v", reply.ChatContextActual, reply.ProductContextActual)
	}

	for _, want := range []string{
		"Retrieved Information:",
		"Previous Conversation:",
		"Product Information:",
		"(ID: 12)",
		"Customer Service Response:",
	} {
		if !strings.Contains(completer.prompt, want) {
			t.Errorf("prompt is missing %q", want)
		}
	}
	if len(reply.Sources) != 1 || reply.Context == "" {
		t.Errorf("sources = %v, context = %q", reply.Sources, reply.Context)
	}
}

func TestRespondSalesExtractsProducts(t *testing.T) {
	t.Parallel()

	completer := &fakeCompleter{reply: "Try " + assistant.FormatProductMention("House Blend", "2", 12.5) + "\n- Chocolatey\n- [Available online]"}
	a := newAssistant(t, &fakeRetriever{docs: []string{"House Blend, medium roast"}}, completer, &assistant.ConversationProvider{})

	history := []assistant.ChatTurn{{User: "hello", Assistant: "Hi there"}}
	reply, err := a.Respond(context.Background(), "Can you recommend a good coffee for espresso drinkers", history)
	if err != nil {
		t.Fatalf("Respond() error = %v", err)
	}

	if reply.Intent != assistant.IntentSales || reply.Agent != "Sales Specialist" {
		t.Errorf("intent = %q, agent = %q", reply.Intent, reply.Agent)
	}
	if len(reply.Products) != 1 || reply.Products[0].ID != "2" || !reply.Metadata.HasProducts {
		t.Errorf("products = %+v", reply.Products)
	}
	if reply.ChatHistoryUsed || reply.ProductContextUsed {
		t.Errorf("specific sales query should not use history (%v) or product context (%v)", reply.ChatHistoryUsed, reply.ProductContextUsed)
	}
	if strings.Contains(completer.prompt, "Previous Conversation:") {
		t.Error("prompt should not include conversation section")
	}
	if !strings.Contains(completer.prompt, "Sales Response:") {
		t.Error("prompt should use the sales template")
	}
}

func TestRespondDegradesOnCollaboratorErrors(t *testing.T) {
	t.Parallel()

	retriever := &fakeRetriever{err: errors.New("index unavailable")}
	completer := &fakeCompleter{reply: "Happy to help."}
	a := newAssistant(t, retriever, completer, failingProvider{})

	reply, err := a.Respond(context.Background(), "ok", nil)
	if err != nil {
		t.Fatalf("Respond() error = %v", err)
	}

	if reply.Sources == nil || len(reply.Sources) != 0 {
		t.Errorf("Sources = %v, expected empty list", reply.Sources)
	}
	if !reply.ChatHistoryUsed || reply.ChatContextActual {
		t.Errorf("history used = %v, actual = %v", reply.ChatHistoryUsed, reply.ChatContextActual)
	}
	if reply.Context != "" {
		t.Errorf("Context = %q, expected empty", reply.Context)
	}
	if !strings.Contains(completer.prompt, "Context:\n\n") {
		t.Errorf("expected empty context block in prompt")
	}
}

func TestRespondCompletionError(t *testing.T) {
	t.Parallel()

	cause := errors.New("model overloaded")
	a := newAssistant(t, nil, &fakeCompleter{err: cause}, nil)

	_, err := a.Respond(context.Background(), "Tell me a joke", nil)
	if !errors.Is(err, cause) {
		t.Errorf("Respond() error = %v, expected wrapped %v", err, cause)
	}
}
