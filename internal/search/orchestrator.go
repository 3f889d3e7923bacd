package search

import (
	"context"
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"sort"
	"strings"

	"github.com/kdimtricp/vsearch/internal/ai"
	"github.com/kdimtricp/vsearch/internal/index"
	"github.com/kdimtricp/vsearch/internal/library"
	"github.com/kdimtricp/vsearch/internal/models"
)

var (
	ErrEmptyQuery        = errors.New("search query is empty")
	ErrNoVideosInScope   = errors.New("no completed videos in search scope")
	ErrInvalidSearchType = errors.New("invalid search type")
	ErrModelNotLoaded    = errors.New("no language model is loaded")
)

const (
	defaultTopK = 5

	// Number of semantic hits handed to the model as synthesis context.
	llmContextSize = 12

	// Visual search over-fetches frames, then keeps the best frame per
	// segment, so topK distinct segments survive deduplication.
	visualOverfetch = 3
)

type Request struct {
	Question string            `json:"question"`
	VideoIDs []string          `json:"videoIds,omitempty"`
	TopK     int               `json:"topK,omitempty"`
	Type     models.SearchType `json:"searchType,omitempty"`
}

type Response struct {
	Question     string                `json:"question"`
	VideoIDs     []string              `json:"videoIds"`
	SearchType   models.SearchType     `json:"searchType"`
	Results      []models.SearchResult `json:"results"`
	Summary      string                `json:"summary,omitempty"`
	NotAddressed *bool                 `json:"notAddressed,omitempty"`
	ModelID      string                `json:"modelId,omitempty"`
}

type QueryEmbedder interface {
	EmbedText(ctx context.Context, text string) ([]float32, error)
}

type Synthesizer interface {
	Active() (string, bool)
	GenerateAnswer(ctx context.Context, question string, segments []models.SearchResult) (ai.Answer, error)
}

// Orchestrator resolves the search scope, dispatches to one retrieval
// strategy and shapes the hits into wire results. Strategies never touch the
// registry or the indices directly beyond reads, so searches run concurrently
// with ingestion.
type Orchestrator struct {
	registry       *library.Registry
	indexes        *index.Set
	textEmbedder   QueryEmbedder
	visualEmbedder QueryEmbedder
	synthesizer    Synthesizer
}

func NewOrchestrator(
	registry *library.Registry,
	indexes *index.Set,
	textEmbedder QueryEmbedder,
	visualEmbedder QueryEmbedder,
	synthesizer Synthesizer,
) *Orchestrator {
	return &Orchestrator{
		registry:       registry,
		indexes:        indexes,
		textEmbedder:   textEmbedder,
		visualEmbedder: visualEmbedder,
		synthesizer:    synthesizer,
	}
}

func (o *Orchestrator) Query(ctx context.Context, req Request) (*Response, error) {
	question := strings.TrimSpace(req.Question)
	if question == "" {
		return nil, ErrEmptyQuery
	}

	scope := o.registry.CompletedIDs(req.VideoIDs)
	if len(scope) == 0 {
		return nil, ErrNoVideosInScope
	}

	topK := req.TopK
	if topK <= 0 {
		topK = defaultTopK
	}

	searchType := req.Type
	if searchType == "" {
		searchType = models.SearchLexical
	}

	resp := &Response{
		Question:   question,
		VideoIDs:   scope,
		SearchType: searchType,
	}

	switch searchType {
	case models.SearchLexical:
		resp.Results = o.lexical(question, scope, topK)
	case models.SearchSemantic:
		results, err := o.semantic(ctx, question, scope, topK)
		if err != nil {
			return nil, err
		}
		resp.Results = results
	case models.SearchVisual:
		results, err := o.visual(ctx, question, scope, topK)
		if err != nil {
			return nil, err
		}
		resp.Results = results
	case models.SearchSynthesized:
		if err := o.synthesized(ctx, question, scope, topK, resp); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("%w: %s", ErrInvalidSearchType, searchType)
	}

	if resp.Results == nil {
		resp.Results = []models.SearchResult{}
	}
	return resp, nil
}

func (o *Orchestrator) lexical(question string, scope []string, topK int) []models.SearchResult {
	entries := o.indexes.Lexical.Match(question, scope, topK)
	results := make([]models.SearchResult, len(entries))
	for i, entry := range entries {
		results[i] = models.SearchResult{
			SegmentID:  entry.SegmentID,
			VideoID:    entry.VideoID,
			VideoTitle: o.title(entry.VideoID),
			StartTime:  entry.Start,
			EndTime:    entry.End,
			Text:       entry.Text,
			SearchType: models.SearchLexical,
		}
	}
	return results
}

func (o *Orchestrator) semantic(ctx context.Context, question string, scope []string, topK int) ([]models.SearchResult, error) {
	query, err := o.textEmbedder.EmbedText(ctx, question)
	if err != nil {
		return nil, err
	}

	hits := o.indexes.Semantic.Search(query, scope, topK)
	results := make([]models.SearchResult, len(hits))
	for i, hit := range hits {
		score := relevance(hit.Score)
		results[i] = models.SearchResult{
			SegmentID:      hit.SegmentID,
			VideoID:        hit.VideoID,
			VideoTitle:     o.title(hit.VideoID),
			StartTime:      hit.Start,
			EndTime:        hit.End,
			Text:           hit.Text,
			RelevanceScore: &score,
			SearchType:     models.SearchSemantic,
		}
	}
	return results, nil
}

// visual embeds the question into the image/text space, over-fetches frame
// hits, keeps the best frame per segment and returns the topK segments.
func (o *Orchestrator) visual(ctx context.Context, question string, scope []string, topK int) ([]models.SearchResult, error) {
	query, err := o.visualEmbedder.EmbedText(ctx, question)
	if err != nil {
		return nil, err
	}

	hits := o.indexes.Visual.Search(query, scope, topK*visualOverfetch)

	best := make(map[string]index.FrameHit)
	var order []string
	for _, hit := range hits {
		prev, seen := best[hit.SegmentID]
		if !seen {
			best[hit.SegmentID] = hit
			order = append(order, hit.SegmentID)
			continue
		}
		if hit.Score > prev.Score {
			best[hit.SegmentID] = hit
		}
	}

	results := make([]models.SearchResult, 0, len(order))
	for _, segmentID := range order {
		hit := best[segmentID]
		score := relevance(hit.Score)
		ts := hit.Timestamp

		result := models.SearchResult{
			SegmentID:      segmentID,
			VideoID:        hit.VideoID,
			VideoTitle:     o.title(hit.VideoID),
			RelevanceScore: &score,
			FrameTimestamp: &ts,
			FramePath:      frameURL(hit.VideoID, hit.Path),
			SearchType:     models.SearchVisual,
		}
		if entry, ok := o.indexes.Lexical.Segment(hit.VideoID, segmentID); ok {
			result.StartTime = entry.Start
			result.EndTime = entry.End
			result.Text = entry.Text
		} else {
			result.StartTime = ts
			result.EndTime = ts
		}
		results = append(results, result)
	}

	sort.SliceStable(results, func(i, j int) bool {
		return *results[i].RelevanceScore > *results[j].RelevanceScore
	})
	if len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

// synthesized retrieves semantically and asks the active model for an answer.
// The context window is a fixed cut of the best hits, independent of how many
// results the caller asked to see.
func (o *Orchestrator) synthesized(ctx context.Context, question string, scope []string, topK int, resp *Response) error {
	if _, ok := o.synthesizer.Active(); !ok {
		return ErrModelNotLoaded
	}

	contextResults, err := o.semantic(ctx, question, scope, llmContextSize)
	if err != nil {
		return err
	}

	answer, err := o.synthesizer.GenerateAnswer(ctx, question, contextResults)
	if err != nil {
		return err
	}

	shown := contextResults
	if len(shown) > topK {
		shown = shown[:topK]
	}
	for i := range shown {
		shown[i].SearchType = models.SearchSynthesized
	}

	resp.Results = shown
	resp.Summary = answer.Summary
	resp.NotAddressed = &answer.NotAddressed
	resp.ModelID = answer.ModelID
	return nil
}

func (o *Orchestrator) title(videoID string) string {
	video, err := o.registry.Get(videoID)
	if err != nil {
		return ""
	}
	return video.Title
}

// relevance maps cosine similarity to the 0-100 score shown to users.
func relevance(similarity float64) float64 {
	return math.Round(similarity*100*100) / 100
}

func frameURL(videoID, framePath string) string {
	return fmt.Sprintf("/media/frames/%s/%s", videoID, filepath.Base(framePath))
}
