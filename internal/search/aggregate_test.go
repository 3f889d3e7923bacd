package search

import (
	"testing"

	"github.com/kdimtricp/vsearch/internal/models"
)

func result(videoID, segmentID string) models.SearchResult {
	return models.SearchResult{
		SegmentID:  segmentID,
		VideoID:    videoID,
		VideoTitle: "Title " + videoID,
	}
}

func TestGroupByVideo_Empty(t *testing.T) {
	if groups := GroupByVideo(nil); len(groups) != 0 {
		t.Errorf("Expected no groups, got %d", len(groups))
	}
}

func TestGroupByVideo_FirstAppearanceOrder(t *testing.T) {
	results := []models.SearchResult{
		result("b", "b1"),
		result("a", "a1"),
		result("b", "b2"),
		result("c", "c1"),
		result("a", "a2"),
	}

	groups := GroupByVideo(results)
	if len(groups) != 3 {
		t.Fatalf("Expected 3 groups, got %d", len(groups))
	}

	wantOrder := []string{"b", "a", "c"}
	for i, want := range wantOrder {
		if groups[i].VideoID != want {
			t.Errorf("Group %d: expected video %s, got %s", i, want, groups[i].VideoID)
		}
	}

	if len(groups[0].Results) != 2 {
		t.Errorf("Expected 2 results for video b, got %d", len(groups[0].Results))
	}
	if groups[0].Results[0].SegmentID != "b1" || groups[0].Results[1].SegmentID != "b2" {
		t.Error("Expected within-group order preserved")
	}
}

func TestGroupByVideo_CapsPerVideo(t *testing.T) {
	var results []models.SearchResult
	for _, seg := range []string{"s1", "s2", "s3", "s4", "s5"} {
		results = append(results, result("a", seg))
	}
	results = append(results, result("b", "b1"))

	groups := GroupByVideo(results)
	if len(groups) != 2 {
		t.Fatalf("Expected 2 groups, got %d", len(groups))
	}
	if len(groups[0].Results) != maxResultsPerVideo {
		t.Errorf("Expected group capped at %d, got %d", maxResultsPerVideo, len(groups[0].Results))
	}
	if groups[0].Results[2].SegmentID != "s3" {
		t.Errorf("Expected the cap to keep the strongest (earliest) results, got %s", groups[0].Results[2].SegmentID)
	}
	if len(groups[1].Results) != 1 {
		t.Errorf("Expected 1 result for video b, got %d", len(groups[1].Results))
	}
}
