package ai

import (
	"context"

	openai "github.com/sashabaranov/go-openai"
)

// EmbeddingClient generates text embeddings through an OpenAI-compatible
// endpoint. Segment texts at ingestion time and query texts at search time go
// through the same model so they land in the same vector space.
type EmbeddingClient struct {
	client *openai.Client
	model  string
}

func NewEmbeddingClient(baseURL, apiKey, model string) *EmbeddingClient {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &EmbeddingClient{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
	}
}

func (c *EmbeddingClient) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	resp, err := c.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Model: openai.EmbeddingModel(c.model),
		Input: texts,
	})
	if err != nil {
		return nil, &UpstreamError{Service: "embedding", Err: err}
	}

	vectors := make([][]float32, len(resp.Data))
	for i, d := range resp.Data {
		vectors[i] = d.Embedding
	}
	return vectors, nil
}

func (c *EmbeddingClient) EmbedText(ctx context.Context, text string) ([]float32, error) {
	vectors, err := c.EmbedTexts(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}
