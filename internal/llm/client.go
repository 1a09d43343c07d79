package llm

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// Client wraps the OpenAI API for the pipeline's chat and embedding
// calls. Every chat call requests JSON-object output; parsing into the
// tagged result types lives in types.go so each call site has exactly one
// parse step with explicit error handling.

const (
	maxRetries     = 3
	initialBackoff = 1 * time.Second
	embeddingDims  = 1536
)

type Client struct {
	api            *openai.Client
	chatModel      string
	embeddingModel openai.EmbeddingModel
}

func NewClient(apiKey, chatModel, embeddingModel string) *Client {
	return &Client{
		api:            openai.NewClient(apiKey),
		chatModel:      chatModel,
		embeddingModel: openai.EmbeddingModel(embeddingModel),
	}
}

// Complete runs one chat call and returns the raw text of the first
// choice. Retries transient upstream failures with exponential backoff;
// non-retryable errors surface immediately.
func (c *Client) Complete(ctx context.Context, prompt string, jsonMode bool) (string, error) {
	req := openai.ChatCompletionRequest{
		Model:       c.chatModel,
		Temperature: 0.2,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	}
	if jsonMode {
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			backoff := initialBackoff * time.Duration(math.Pow(2, float64(attempt-1)))
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}

		resp, err := c.api.CreateChatCompletion(ctx, req)
		if err == nil {
			if len(resp.Choices) == 0 {
				return "", errors.New("chat completion returned no choices")
			}
			return resp.Choices[0].Message.Content, nil
		}

		lastErr = err
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		if !isRetryable(err) {
			return "", fmt.Errorf("non-retryable chat error: %w", err)
		}
	}
	return "", fmt.Errorf("chat failed after %d retries: %w", maxRetries+1, lastErr)
}

// Embed generates embeddings for a batch of texts in a single call. The
// result preserves input order and every vector has 1536 dimensions.
func (c *Client) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			backoff := initialBackoff * time.Duration(math.Pow(2, float64(attempt-1)))
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		resp, err := c.api.CreateEmbeddings(ctx, openai.EmbeddingRequestStrings{
			Input: texts,
			Model: c.embeddingModel,
		})
		if err == nil {
			if len(resp.Data) != len(texts) {
				return nil, fmt.Errorf("embedding batch size mismatch: sent %d, got %d", len(texts), len(resp.Data))
			}
			vectors := make([][]float32, len(resp.Data))
			for _, d := range resp.Data {
				if len(d.Embedding) != embeddingDims {
					return nil, fmt.Errorf("unexpected embedding dimension %d", len(d.Embedding))
				}
				vectors[d.Index] = d.Embedding
			}
			return vectors, nil
		}

		lastErr = err
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if !isRetryable(err) {
			return nil, fmt.Errorf("non-retryable embedding error: %w", err)
		}
	}
	return nil, fmt.Errorf("embedding failed after %d retries: %w", maxRetries+1, lastErr)
}

func isRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == 429 || apiErr.HTTPStatusCode >= 500
	}
	return false
}
