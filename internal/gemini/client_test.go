package gemini

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"google.golang.org/genai"

	"github.com/edgard/baristabot/internal/resilience"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func TestWithRetries(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name      string
		errs      []error
		maxRetry  int
		wantCalls int
		wantErr   bool
	}{
		{
			name:      "success first try",
			errs:      []error{nil},
			maxRetry:  3,
			wantCalls: 1,
		},
		{
			name:      "retries server errors",
			errs:      []error{genai.APIError{Code: 503}, genai.APIError{Code: 500}, nil},
			maxRetry:  3,
			wantCalls: 3,
		},
		{
			name:      "client error is not retried",
			errs:      []error{genai.APIError{Code: 400}},
			maxRetry:  3,
			wantCalls: 1,
			wantErr:   true,
		},
		{
			name:      "plain error is not retried",
			errs:      []error{errors.New("dial tcp: refused")},
			maxRetry:  3,
			wantCalls: 1,
			wantErr:   true,
		},
		{
			name:      "gives up after max retries",
			errs:      []error{genai.APIError{Code: 500}, genai.APIError{Code: 500}, genai.APIError{Code: 500}},
			maxRetry:  2,
			wantCalls: 3,
			wantErr:   true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			calls := 0
			got, err := withRetries(context.Background(), discard, "test", tc.maxRetry, 0, func() (string, error) {
				err := tc.errs[calls]
				calls++
				if err != nil {
					return "", err
				}
				return "ok", nil
			})

			if calls != tc.wantCalls {
				t.Errorf("calls = %d, expected %d", calls, tc.wantCalls)
			}
			if (err != nil) != tc.wantErr {
				t.Errorf("error = %v, wantErr %v", err, tc.wantErr)
			}
			if err == nil && got != "ok" {
				t.Errorf("result = %q, expected ok", got)
			}
		})
	}
}

func TestWithRetriesHonoursContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := withRetries(ctx, discard, "test", 5, 1e9, func() (int, error) {
		return 0, genai.APIError{Code: 503}
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, expected context.Canceled", err)
	}
}

func TestEmbeddingValues(t *testing.T) {
	t.Parallel()

	resp := &genai.EmbedContentResponse{Embeddings: []*genai.ContentEmbedding{
		{Values: []float32{0.1, 0.2}},
		{Values: []float32{0.3, 0.4}},
	}}

	vecs, err := embeddingValues(resp, 2)
	if err != nil {
		t.Fatalf("embeddingValues() error = %v", err)
	}
	if len(vecs) != 2 || vecs[1][0] != 0.3 {
		t.Errorf("embeddingValues() = %v", vecs)
	}

	if _, err := embeddingValues(resp, 3); err == nil {
		t.Error("expected error on count mismatch")
	}
	if _, err := embeddingValues(nil, 1); err == nil {
		t.Error("expected error on nil response")
	}
	empty := &genai.EmbedContentResponse{Embeddings: []*genai.ContentEmbedding{{}}}
	if _, err := embeddingValues(empty, 1); err == nil {
		t.Error("expected error on empty embedding")
	}
}

func TestExtractTextFromResponse(t *testing.T) {
	t.Parallel()

	c := &Client{log: discard}
	ctx := context.Background()

	ok := &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
		Content: &genai.Content{Parts: []*genai.Part{{Text: "Try the house blend."}}},
	}}}
	text, err := c.extractTextFromResponse(ctx, ok)
	if err != nil || text != "Try the house blend." {
		t.Errorf("extractTextFromResponse() = %q, %v", text, err)
	}

	blocked := &genai.GenerateContentResponse{PromptFeedback: &genai.GenerateContentResponsePromptFeedback{
		BlockReason:        genai.BlockedReasonSafety,
		BlockReasonMessage: "unsafe",
	}}
	if _, err := c.extractTextFromResponse(ctx, blocked); err == nil {
		t.Error("expected error for blocked prompt")
	}

	if _, err := c.extractTextFromResponse(ctx, &genai.GenerateContentResponse{}); err == nil {
		t.Error("expected error for missing candidates")
	}
}

func TestIsServiceFailure(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name string
		err  error
		want bool
	}{
		{name: "server error", err: genai.APIError{Code: 503}, want: true},
		{name: "rate limited", err: &genai.APIError{Code: 429}, want: true},
		{name: "bad request", err: genai.APIError{Code: 400}, want: false},
		{name: "cancelled", err: fmt.Errorf("wrapped: %w", context.Canceled), want: false},
		{name: "transport error", err: errors.New("connection reset"), want: true},
	}

	for _, tc := range testCases {
		if got := isServiceFailure(tc.err); got != tc.want {
			t.Errorf("%s: isServiceFailure() = %v, expected %v", tc.name, got, tc.want)
		}
	}
}

func TestCallFailsFastWhenOpen(t *testing.T) {
	t.Parallel()

	c := &Client{
		log: discard,
		breaker: resilience.NewCircuitBreaker(resilience.BreakerConfig{
			Name:        "gemini_test",
			MaxFailures: 1,
			Cooldown:    time.Hour,
			IsFailure:   isServiceFailure,
			Logger:      discard,
		}),
	}

	calls := 0
	fn := func() (string, error) {
		calls++
		return "", genai.APIError{Code: 500}
	}

	if _, err := call(context.Background(), c, "completion", fn); err == nil {
		t.Fatal("expected first call to fail")
	}
	_, err := call(context.Background(), c, "completion", fn)
	if !errors.Is(err, resilience.ErrCircuitOpen) {
		t.Errorf("error = %v, expected ErrCircuitOpen", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, expected 1", calls)
	}
}
