package ai

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/kdimtricp/vsearch/internal/models"
)

// WhisperClient talks to a whisper-compatible transcription server through the
// OpenAI audio API.
type WhisperClient struct {
	client *openai.Client
}

func NewWhisperClient(baseURL, apiKey string) *WhisperClient {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &WhisperClient{client: openai.NewClientWithConfig(cfg)}
}

// Transcribe runs speech-to-text over the extracted audio and returns the
// spans as transcript segments, ids numbered in transcript order.
func (c *WhisperClient) Transcribe(ctx context.Context, videoID, audioPath, model string) ([]models.TranscriptSegment, error) {
	if model == "" {
		model = "base"
	}

	resp, err := c.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    model,
		FilePath: audioPath,
		Format:   openai.AudioResponseFormatVerboseJSON,
	})
	if err != nil {
		return nil, &UpstreamError{Service: "transcription", Err: err}
	}

	segments := make([]models.TranscriptSegment, 0, len(resp.Segments))
	for i, seg := range resp.Segments {
		text := strings.TrimSpace(seg.Text)
		if text == "" {
			continue
		}
		segments = append(segments, models.TranscriptSegment{
			ID:      fmt.Sprintf("%s_%d", videoID, i),
			VideoID: videoID,
			Start:   seg.Start,
			End:     seg.End,
			Text:    text,
		})
	}
	return segments, nil
}
