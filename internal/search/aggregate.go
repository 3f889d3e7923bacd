package search

import "github.com/kdimtricp/vsearch/internal/models"

const maxResultsPerVideo = 3

// VideoResults is one video's slice of a result set, strongest hits first.
type VideoResults struct {
	VideoID    string                `json:"videoId"`
	VideoTitle string                `json:"videoTitle"`
	Results    []models.SearchResult `json:"results"`
}

// GroupByVideo buckets results by source video, preserving the order in which
// videos first appear and the order of results within each video. Each video
// keeps at most maxResultsPerVideo results so one long video cannot drown out
// the rest of the scope.
func GroupByVideo(results []models.SearchResult) []VideoResults {
	byVideo := make(map[string]int)
	var groups []VideoResults

	for _, result := range results {
		i, ok := byVideo[result.VideoID]
		if !ok {
			i = len(groups)
			byVideo[result.VideoID] = i
			groups = append(groups, VideoResults{
				VideoID:    result.VideoID,
				VideoTitle: result.VideoTitle,
			})
		}
		if len(groups[i].Results) >= maxResultsPerVideo {
			continue
		}
		groups[i].Results = append(groups[i].Results, result)
	}
	return groups
}
