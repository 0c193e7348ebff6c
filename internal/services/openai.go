// OpenAI chat completions implementation of [Completer]
package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/desertthunder/spottyg/internal/shared"
	openai "github.com/sashabaranov/go-openai"
)

// OpenAICompleter implements [Completer] with the OpenAI chat completions API.
type OpenAICompleter struct {
	client      *openai.Client
	model       string
	temperature float32
	maxTokens   int
}

// CompleterOption configures an [OpenAICompleter].
type CompleterOption func(*openai.ClientConfig)

// WithHTTPClient sets the HTTP client used for API calls.
func WithHTTPClient(c *http.Client) CompleterOption {
	return func(cfg *openai.ClientConfig) { cfg.HTTPClient = c }
}

// NewOpenAICompleter creates an [OpenAICompleter] from the configured credentials.
func NewOpenAICompleter(cfg shared.OpenAIConfig, opts ...CompleterOption) (*OpenAICompleter, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: missing openai api_key", shared.ErrMissingCredentials)
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")
	}
	for _, opt := range opts {
		opt(&clientConfig)
	}

	model := cfg.Model
	if model == "" {
		model = openai.GPT4
	}

	return &OpenAICompleter{
		client:      openai.NewClientWithConfig(clientConfig),
		model:       model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
	}, nil
}

func (c *OpenAICompleter) request(req CompletionRequest) openai.ChatCompletionRequest {
	messages := make([]openai.ChatCompletionMessage, len(req.Messages))
	for i, m := range req.Messages {
		messages[i] = openai.ChatCompletionMessage{Role: m.Role, Content: m.Content}
	}

	out := openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
	}
	if req.Temperature > 0 {
		out.Temperature = req.Temperature
	}
	if req.MaxTokens > 0 {
		out.MaxTokens = req.MaxTokens
	}
	return out
}

// Complete implements [Completer].
func (c *OpenAICompleter) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, c.request(req))
	if err != nil {
		return "", classifyOpenAIError(ctx, err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: completion had no choices", shared.ErrEmptyResponse)
	}

	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", fmt.Errorf("%w: completion had no content", shared.ErrEmptyResponse)
	}
	return text, nil
}

// Stream implements [Completer].
func (c *OpenAICompleter) Stream(ctx context.Context, req CompletionRequest) (TokenStream, error) {
	stream, err := c.client.CreateChatCompletionStream(ctx, c.request(req))
	if err != nil {
		return nil, classifyOpenAIError(ctx, err)
	}
	return &openAIStream{ctx: ctx, stream: stream}, nil
}

type openAIStream struct {
	ctx    context.Context
	stream *openai.ChatCompletionStream
}

// Recv returns the next non-empty content fragment.
func (s *openAIStream) Recv() (string, error) {
	for {
		resp, err := s.stream.Recv()
		if errors.Is(err, io.EOF) {
			return "", io.EOF
		}
		if err != nil {
			return "", classifyOpenAIError(s.ctx, err)
		}

		for _, choice := range resp.Choices {
			if choice.Delta.Content != "" {
				return choice.Delta.Content, nil
			}
		}
	}
}

func (s *openAIStream) Close() error {
	s.stream.Close()
	return nil
}

func classifyOpenAIError(ctx context.Context, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: openai: %v", shared.ErrTimeout, err)
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("%w: openai: status %d: %s", shared.ErrServiceUnavailable, apiErr.HTTPStatusCode, apiErr.Message)
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return fmt.Errorf("%w: openai: status %d", shared.ErrServiceUnavailable, reqErr.HTTPStatusCode)
	}
	return fmt.Errorf("%w: openai: %v", shared.ErrServiceUnavailable, err)
}
