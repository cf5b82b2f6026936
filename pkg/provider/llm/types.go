package llm

// CompletionRequest carries everything the LLM needs to produce a reply.
// Prompt is the fully rendered character prompt, persona and history
// included; providers send it verbatim.
type CompletionRequest struct {
	// Prompt is the complete input text. Must be non-empty.
	Prompt string

	// Temperature controls output randomness in the range [0.0, 2.0].
	Temperature float64

	// TopK limits sampling to the k most likely tokens. Zero means use
	// the provider default. Providers without top-k sampling ignore it.
	TopK int

	// TopP is the nucleus sampling threshold (0.0–1.0]. Zero means use
	// the provider default.
	TopP float64

	// MaxTokens caps the number of tokens the model may generate.
	// Zero means use the provider default.
	MaxTokens int

	// StopSequences makes the model stop before generating any of the
	// given strings. Used to keep the model from speaking for the visitor.
	StopSequences []string
}

// CompletionResponse is the model's reply.
type CompletionResponse struct {
	// Content is the raw reply text, marker envelope included.
	Content string

	// Model is the backend model identifier that produced the reply.
	Model string
}
