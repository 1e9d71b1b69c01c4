package llm

import (
	"context"
	"errors"
	"fmt"
	"io"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIClient implements Client against an OpenAI-compatible endpoint
// via sashabaranov/go-openai, the second LLM backend named in
// SPEC_FULL.md's DOMAIN STACK section — selected when
// llm_config.provider is "openai", alongside the teacher's existing
// LMStudioClient (_examples/billie-coop-loco/internal/llm/client.go) for
// "lmstudio".
type OpenAIClient struct {
	client *openai.Client
	model  string
}

// NewOpenAIClient builds an OpenAIClient for the given model, reading the
// API key from apiKey (empty is valid for local OpenAI-compatible
// servers that don't enforce auth) and overriding the base URL when
// baseURL is non-empty.
func NewOpenAIClient(apiKey, baseURL, model string) *OpenAIClient {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAIClient{client: openai.NewClientWithConfig(cfg), model: model}
}

func toOpenAIMessages(messages []Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		out = append(out, openai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}
	return out
}

// Complete sends messages and returns the full response, applying opts
// (spec.md §4.1's llm_config.temperature/max_tokens). MaxTokens <= 0
// means "no limit," which OpenAI's API expresses by omitting the field.
func (c *OpenAIClient) Complete(ctx context.Context, messages []Message, opts CompleteOptions) (string, error) {
	req := openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    toOpenAIMessages(messages),
		Temperature: float32(opts.Temperature),
	}
	if opts.MaxTokens > 0 {
		req.MaxTokens = opts.MaxTokens
	}
	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("openai: chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai: no choices returned")
	}
	return resp.Choices[0].Message.Content, nil
}

// Stream sends messages and streams the response chunk by chunk.
func (c *OpenAIClient) Stream(ctx context.Context, messages []Message, onChunk func(string)) error {
	stream, err := c.client.CreateChatCompletionStream(ctx, openai.ChatCompletionRequest{
		Model:    c.model,
		Messages: toOpenAIMessages(messages),
		Stream:   true,
	})
	if err != nil {
		return fmt.Errorf("openai: create stream: %w", err)
	}
	defer stream.Close()

	for {
		resp, err := stream.Recv()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("openai: stream recv: %w", err)
		}
		if len(resp.Choices) > 0 {
			onChunk(resp.Choices[0].Delta.Content)
		}
	}
}
