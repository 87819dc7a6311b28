// Package tokenizer estimates token counts of summarizer traffic.
package tokenizer

import (
	"errors"
	"fmt"
	"strings"

	"github.com/pkoukk/tiktoken-go"
)

// Counter estimates token counts for text content.
type Counter interface {
	Name() string
	CountString(input string) (int, error)
}

// Config captures tokenizer selection parameters.
type Config struct {
	Model string
}

const (
	defaultModel        = "gpt-4o"
	defaultEncodingName = "cl100k_base"

	errorFallbackEncodingFormat = "initialize fallback tokenizer: %w"
)

var (
	errNilEncoding = errors.New("nil tiktoken encoding")

	// openAIModelPrefixes name the model families tiktoken publishes encodings for.
	openAIModelPrefixes = []string{"gpt-", "text-embedding", "davinci", "curie", "babbage", "ada", "code-", "o1", "o3"}
)

// encodingCounter counts tokens with a tiktoken encoding.
type encodingCounter struct {
	encoding *tiktoken.Tiktoken
	name     string
}

func (counter encodingCounter) Name() string {
	return counter.name
}

func (counter encodingCounter) CountString(input string) (int, error) {
	if counter.encoding == nil {
		return 0, errNilEncoding
	}
	return len(counter.encoding.Encode(input, nil, nil)), nil
}

// NewCounter returns a Counter for the requested model along with the name of the encoding
// actually used. Models without a published tiktoken encoding, such as Mistral, Claude, or
// Gemini models, are approximated with cl100k_base.
func NewCounter(cfg Config) (Counter, string, error) {
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = defaultModel
	}
	lowerModel := strings.ToLower(model)

	if hasOpenAIEncoding(lowerModel) {
		if encoding, err := tiktoken.EncodingForModel(lowerModel); err == nil && encoding != nil {
			return encodingCounter{encoding: encoding, name: lowerModel}, model, nil
		}
	}
	fallback, fallbackErr := tiktoken.GetEncoding(defaultEncodingName)
	if fallbackErr != nil {
		return nil, "", fmt.Errorf(errorFallbackEncodingFormat, fallbackErr)
	}
	return encodingCounter{encoding: fallback, name: defaultEncodingName}, defaultEncodingName, nil
}

func hasOpenAIEncoding(model string) bool {
	for _, prefix := range openAIModelPrefixes {
		if strings.HasPrefix(model, prefix) {
			return true
		}
	}
	return false
}
