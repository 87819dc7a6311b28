package summarizer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

const (
	// PromptTemplate wraps the text sent to the chat model.
	PromptTemplate = "Summarize the following text from a code github repo:\n<text> %s </text>\nOutput the summary and only the summary."
)

// ErrEmptyResponse is reported when the backend answers without any content.
var ErrEmptyResponse = errors.New("empty response from chat model")

// ChatSummarizer sends every text as a single user message to a chat model.
type ChatSummarizer struct {
	chatModel      model.BaseChatModel
	provider       string
	model          string
	requestTimeout time.Duration
}

// NewChatSummarizer wraps chatModel. A zero requestTimeout disables the per-request deadline.
func NewChatSummarizer(chatModel model.BaseChatModel, provider string, modelName string, requestTimeout time.Duration) *ChatSummarizer {
	return &ChatSummarizer{
		chatModel:      chatModel,
		provider:       provider,
		model:          modelName,
		requestTimeout: requestTimeout,
	}
}

// New resolves config, builds the provider chat model, and wraps it.
func New(ctx context.Context, config Config) (*ChatSummarizer, error) {
	resolved, resolveError := config.Resolve()
	if resolveError != nil {
		return nil, resolveError
	}
	chatModel, chatModelError := NewChatModel(ctx, resolved)
	if chatModelError != nil {
		return nil, chatModelError
	}
	return NewChatSummarizer(chatModel, resolved.Provider, resolved.Model, resolved.RequestTimeout), nil
}

// Model returns the model name used for cache keys and error reports.
func (chatSummarizer *ChatSummarizer) Model() string {
	return chatSummarizer.model
}

// Provider returns the backend provider name.
func (chatSummarizer *ChatSummarizer) Provider() string {
	return chatSummarizer.provider
}

// Summarize implements Summarizer.
func (chatSummarizer *ChatSummarizer) Summarize(ctx context.Context, text string) (string, error) {
	requestContext := ctx
	if chatSummarizer.requestTimeout > 0 {
		var cancel context.CancelFunc
		requestContext, cancel = context.WithTimeout(ctx, chatSummarizer.requestTimeout)
		defer cancel()
	}

	prompt := fmt.Sprintf(PromptTemplate, text)
	response, generateError := chatSummarizer.chatModel.Generate(requestContext, []*schema.Message{schema.UserMessage(prompt)})
	if generateError != nil {
		return "", chatSummarizer.wrap(generateError)
	}
	if response == nil || strings.TrimSpace(response.Content) == "" {
		return "", chatSummarizer.wrap(ErrEmptyResponse)
	}
	return strings.TrimSpace(response.Content), nil
}

func (chatSummarizer *ChatSummarizer) wrap(err error) error {
	return &SummarizationError{Provider: chatSummarizer.provider, Model: chatSummarizer.model, Err: err}
}
