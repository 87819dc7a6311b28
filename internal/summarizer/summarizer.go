// Package summarizer turns text into a natural-language summary through a chat-model backend.
package summarizer

import (
	"context"
	"fmt"
)

// Summarizer produces a summary of text. Implementations return *SummarizationError when the
// backend fails.
type Summarizer interface {
	Summarize(ctx context.Context, text string) (string, error)
}

// Func adapts an ordinary function to the Summarizer interface.
type Func func(ctx context.Context, text string) (string, error)

// Summarize calls summarize(ctx, text).
func (summarize Func) Summarize(ctx context.Context, text string) (string, error) {
	return summarize(ctx, text)
}

const summarizationErrorFormat = "summarization failed (provider %s, model %s): %v"

// SummarizationError reports a backend failure such as a network error, an exhausted quota, or
// a malformed response.
type SummarizationError struct {
	Provider string
	Model    string
	Err      error
}

func (summarizationError *SummarizationError) Error() string {
	return fmt.Sprintf(summarizationErrorFormat, summarizationError.Provider, summarizationError.Model, summarizationError.Err)
}

// Unwrap returns the underlying backend error.
func (summarizationError *SummarizationError) Unwrap() error {
	return summarizationError.Err
}
