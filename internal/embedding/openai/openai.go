package openai

import (
	"context"
	"errors"
	"fmt"
	"os"

	openai "github.com/sashabaranov/go-openai"

	"medisearch/internal/embedding"
)

// Client embeds text through the OpenAI embeddings API.
type Client struct {
	client    *openai.Client
	model     string
	dimension int
}

// Config configures the OpenAI embeddings client.
type Config struct {
	APIKeyEnv string
	Model     string
}

// NewClient creates an embeddings client. The API key is read from the
// environment variable named by APIKeyEnv.
func NewClient(cfg Config) (*Client, error) {
	keyEnv := cfg.APIKeyEnv
	if keyEnv == "" {
		keyEnv = "OPENAI_API_KEY"
	}
	key := os.Getenv(keyEnv)
	if key == "" {
		return nil, fmt.Errorf("missing API key in env %s", keyEnv)
	}
	model := cfg.Model
	if model == "" {
		model = string(openai.SmallEmbedding3)
	}
	return &Client{
		client: openai.NewClient(key),
		model:  model,
	}, nil
}

// Name returns the identifier of this embedder implementation.
func (c *Client) Name() string { return "openai" }

// Prepare is a no-op; remote models need no corpus pass. The dimension is
// learned lazily from the first embedding.
func (c *Client) Prepare(corpus []string) error { return nil }

// Dimension returns the dimensionality of the produced embedding vectors.
func (c *Client) Dimension() int { return c.dimension }

// Embed returns a unit-length embedding vector for the given text.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := c.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Model: openai.EmbeddingModel(c.model),
		Input: []string{text},
	})
	if err != nil {
		return nil, fmt.Errorf("openai embeddings: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, errors.New("no embedding data returned from API")
	}
	vec := make([]float32, len(resp.Data[0].Embedding))
	copy(vec, resp.Data[0].Embedding)
	embedding.Normalize(vec)
	if c.dimension == 0 {
		c.dimension = len(vec)
	}
	return vec, nil
}

var _ embedding.Embedder = (*Client)(nil)
