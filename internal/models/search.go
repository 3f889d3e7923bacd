package models

type SearchType string

const (
	SearchLexical     SearchType = "lexical"
	SearchSemantic    SearchType = "semantic"
	SearchVisual      SearchType = "visual"
	SearchSynthesized SearchType = "synthesized"
)

// SearchResult is a transient value assembled by the search orchestrator; it is
// never persisted. RelevanceScore is nil for lexical matches, which are unscored.
type SearchResult struct {
	SegmentID      string     `json:"segmentId"`
	VideoID        string     `json:"videoId"`
	VideoTitle     string     `json:"videoTitle,omitempty"`
	StartTime      float64    `json:"startTime"`
	EndTime        float64    `json:"endTime"`
	Text           string     `json:"text"`
	RelevanceScore *float64   `json:"relevanceScore,omitempty"`
	FrameTimestamp *float64   `json:"frameTimestamp,omitempty"`
	FramePath      string     `json:"framePath,omitempty"`
	SearchType     SearchType `json:"searchType,omitempty"`
}
