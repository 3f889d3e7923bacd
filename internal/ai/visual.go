package ai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

// VisualClient talks to a sidecar serving a shared image/text embedding model
// (SigLIP-style). Frames are embedded at ingestion time, query text at search
// time, into the same space.
type VisualClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewVisualClient(baseURL string) *VisualClient {
	return &VisualClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
	}
}

type embedImagesRequest struct {
	Images []string `json:"images"` // base64-encoded JPEG
}

type embedTextRequest struct {
	Text string `json:"text"`
}

type embedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
	Error      string      `json:"error,omitempty"`
}

func (c *VisualClient) EmbedImages(ctx context.Context, paths []string) ([][]float32, error) {
	images := make([]string, len(paths))
	for i, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read frame %s: %w", path, err)
		}
		images[i] = base64.StdEncoding.EncodeToString(data)
	}

	resp, err := c.post(ctx, "/embed/images", embedImagesRequest{Images: images})
	if err != nil {
		return nil, err
	}
	if len(resp.Embeddings) != len(paths) {
		return nil, &UpstreamError{
			Service: "visual-embedding",
			Err:     fmt.Errorf("expected %d embeddings, got %d", len(paths), len(resp.Embeddings)),
		}
	}
	return resp.Embeddings, nil
}

func (c *VisualClient) EmbedText(ctx context.Context, text string) ([]float32, error) {
	resp, err := c.post(ctx, "/embed/text", embedTextRequest{Text: text})
	if err != nil {
		return nil, err
	}
	if len(resp.Embeddings) == 0 {
		return nil, &UpstreamError{Service: "visual-embedding", Err: fmt.Errorf("empty embedding response")}
	}
	return resp.Embeddings[0], nil
}

func (c *VisualClient) post(ctx context.Context, path string, payload any) (*embedResponse, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &UpstreamError{Service: "visual-embedding", Err: err}
	}
	defer httpResp.Body.Close()

	data, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, &UpstreamError{Service: "visual-embedding", Err: err}
	}

	var resp embedResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, &UpstreamError{Service: "visual-embedding", Err: fmt.Errorf("invalid response: %w", err)}
	}
	if resp.Error != "" {
		return nil, &UpstreamError{Service: "visual-embedding", Err: fmt.Errorf("%s", resp.Error)}
	}
	if httpResp.StatusCode != http.StatusOK {
		return nil, &UpstreamError{Service: "visual-embedding", Err: fmt.Errorf("unexpected status %d", httpResp.StatusCode)}
	}
	return &resp, nil
}
