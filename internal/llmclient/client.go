// Package llmclient wraps a chat-completion style LLM client shared by the
// llm reranker tier and the multi-query expander: ordered messages in, text
// plus token usage out, with JSON-mode support.
package llmclient

import (
	"context"

	"github.com/convomem/retrieval-engine/internal/pkg/errors"
	openai "github.com/sashabaranov/go-openai"
)

// Message is one role/content pair in a chat completion request.
type Message struct {
	Role    string
	Content string
}

// Response is the text and token accounting returned by a completion.
type Response struct {
	Text             string
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Client issues chat completions, optionally forcing JSON-object output.
type Client struct {
	inner *openai.Client
	model string
}

// New constructs a Client for model, authenticating with apiKey against
// baseURL (empty baseURL uses the provider's default).
func New(apiKey, baseURL, model string) *Client {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &Client{inner: openai.NewClientWithConfig(cfg), model: model}
}

// Complete issues a chat completion. When jsonMode is true, the provider is
// asked to emit a single JSON object as its entire response.
func (c *Client) Complete(ctx context.Context, messages []Message, jsonMode bool) (Response, error) {
	req := openai.ChatCompletionRequest{
		Model:    c.model,
		Messages: make([]openai.ChatCompletionMessage, len(messages)),
	}
	for i, m := range messages {
		req.Messages[i] = openai.ChatCompletionMessage{Role: m.Role, Content: m.Content}
	}
	if jsonMode {
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	resp, err := c.inner.CreateChatCompletion(ctx, req)
	if err != nil {
		return Response{}, errors.UnavailableError("llm provider", err)
	}
	if len(resp.Choices) == 0 {
		return Response{}, errors.InternalError("llm provider returned no choices", nil)
	}

	return Response{
		Text:             resp.Choices[0].Message.Content,
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
		TotalTokens:      resp.Usage.TotalTokens,
	}, nil
}
