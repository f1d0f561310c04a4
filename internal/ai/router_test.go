package ai

import (
	"context"
	"errors"
	"testing"
)

type stubProvider struct {
	reply string
	err   error
	calls int
}

func (s *stubProvider) Complete(ctx context.Context, req ChatRequest) (string, error) {
	s.calls++
	return s.reply, s.err
}

func TestFamilyForModel(t *testing.T) {
	testCases := []struct {
		model string
		want  string
	}{
		{"gemini-1.5-flash", FamilyGoogle},
		{"gemini-2.0-pro", FamilyGoogle},
		{"meta-llama/llama-4-scout-17b-16e-instruct", FamilyGroq},
		{"llama-3.3-70b-versatile", FamilyGroq},
		{"claude-sonnet-4-5", FamilyAnthropic},
		{"claude-opus-4-1", FamilyAnthropic},
		{"GEMINI-1.5-PRO", FamilyGoogle},
		{"", FamilyAnthropic},
		{"gpt-4o", FamilyAnthropic},
	}

	for _, tc := range testCases {
		t.Run(tc.model, func(t *testing.T) {
			if got := FamilyForModel(tc.model); got != tc.want {
				t.Errorf("FamilyForModel(%q) = %s, want %s", tc.model, got, tc.want)
			}
		})
	}
}

func TestRouter_Complete_RoutesByModel(t *testing.T) {
	anthropic := &stubProvider{reply: "from claude"}
	google := &stubProvider{reply: "from gemini"}
	groq := &stubProvider{reply: "from llama"}
	r := NewRouter(anthropic, google, groq)

	testCases := []struct {
		model string
		want  string
	}{
		{"claude-sonnet-4-5", "from claude"},
		{"gemini-1.5-flash", "from gemini"},
		{"meta-llama/llama-4-scout-17b-16e-instruct", "from llama"},
	}

	for _, tc := range testCases {
		got, err := r.Complete(context.Background(), ChatRequest{Model: tc.model})
		if err != nil {
			t.Fatalf("Complete(%s) error = %v", tc.model, err)
		}
		if got != tc.want {
			t.Errorf("Complete(%s) = %q, want %q", tc.model, got, tc.want)
		}
	}
}

func TestRouter_Complete_UnconfiguredFamily(t *testing.T) {
	r := NewRouter(&stubProvider{reply: "ok"}, nil, nil)

	_, err := r.Complete(context.Background(), ChatRequest{Model: "gemini-1.5-flash"})
	if !errors.Is(err, ErrModelNotFound) {
		t.Errorf("expected ErrModelNotFound for unconfigured family, got %v", err)
	}
}

func TestShouldFallback(t *testing.T) {
	testCases := []struct {
		name string
		err  error
		want bool
	}{
		{"model not found", ErrModelNotFound, true},
		{"overloaded", ErrOverloaded, true},
		{"rate limited", ErrRateLimited, false},
		{"unauthorized", ErrUnauthorized, false},
		{"invalid request", ErrInvalidRequest, false},
		{"wrapped", WrapError("complete", ErrModelNotFound), true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ShouldFallback(tc.err); got != tc.want {
				t.Errorf("ShouldFallback(%v) = %v, want %v", tc.err, got, tc.want)
			}
		})
	}
}
