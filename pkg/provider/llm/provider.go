// Package llm defines the Provider interface for Large Language Model backends.
//
// An LLM provider wraps a remote model API (e.g., Google Gemini or an
// OpenAI-compatible endpoint) and exposes a uniform interface for the
// Bottega orchestrator to generate character replies without coupling to
// any specific SDK or wire format.
//
// Implementations must be safe for concurrent use.
package llm

import "context"

// Provider is the abstraction over any LLM backend.
//
// Implementations must be safe for concurrent use from multiple
// goroutines and must propagate context cancellation promptly. Failures
// are reported as *apierr.Error so callers can branch on the failure
// class rather than the provider.
type Provider interface {
	// Complete sends req to the model and waits for the full reply.
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)

	// Name returns the stable provider identifier used in logs, metrics
	// and configuration (e.g., "gemini").
	Name() string
}
