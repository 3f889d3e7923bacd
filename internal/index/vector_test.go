package index

import (
	"math"
	"testing"
)

func TestCosine(t *testing.T) {
	cases := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 0}, []float32{1, 0}, 1},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, -1},
		{"mismatched lengths", []float32{1, 0}, []float32{1}, 0},
		{"zero vector", []float32{0, 0}, []float32{1, 0}, 0},
	}

	for _, tc := range cases {
		if got := Cosine(tc.a, tc.b); math.Abs(got-tc.want) > 1e-9 {
			t.Errorf("%s: expected %v, got %v", tc.name, tc.want, got)
		}
	}
}

func TestVectorIndex_SearchOrdersByScore(t *testing.T) {
	idx := NewVectorIndex()
	idx.Put("v1", []VectorEntry{
		{SegmentID: "far", VideoID: "v1", Vector: []float32{0, 1, 0}},
		{SegmentID: "near", VideoID: "v1", Vector: []float32{1, 0, 0}},
		{SegmentID: "mid", VideoID: "v1", Vector: []float32{1, 1, 0}},
	})

	hits := idx.Search([]float32{1, 0, 0}, []string{"v1"}, 0)
	if len(hits) != 3 {
		t.Fatalf("Expected 3 hits, got %d", len(hits))
	}
	if hits[0].SegmentID != "near" || hits[1].SegmentID != "mid" || hits[2].SegmentID != "far" {
		t.Errorf("Unexpected order: %s, %s, %s", hits[0].SegmentID, hits[1].SegmentID, hits[2].SegmentID)
	}
}

func TestVectorIndex_SearchTopK(t *testing.T) {
	idx := NewVectorIndex()
	idx.Put("v1", []VectorEntry{
		{SegmentID: "a", VideoID: "v1", Vector: []float32{1, 0}},
		{SegmentID: "b", VideoID: "v1", Vector: []float32{0, 1}},
	})

	hits := idx.Search([]float32{1, 0}, []string{"v1"}, 1)
	if len(hits) != 1 || hits[0].SegmentID != "a" {
		t.Errorf("Expected best hit only, got %v", hits)
	}
}

func TestVectorIndex_SearchScope(t *testing.T) {
	idx := NewVectorIndex()
	idx.Put("v1", []VectorEntry{{SegmentID: "a", VideoID: "v1", Vector: []float32{1, 0}}})
	idx.Put("v2", []VectorEntry{{SegmentID: "b", VideoID: "v2", Vector: []float32{1, 0}}})

	hits := idx.Search([]float32{1, 0}, []string{"v2"}, 0)
	if len(hits) != 1 || hits[0].VideoID != "v2" {
		t.Errorf("Expected only v2 hits, got %v", hits)
	}
}

func TestSet_RemoveVideo(t *testing.T) {
	set := NewSet()
	set.Lexical.Put("v1", []LexicalEntry{{SegmentID: "s", VideoID: "v1", Text: "hello"}})
	set.Semantic.Put("v1", []VectorEntry{{SegmentID: "s", VideoID: "v1", Vector: []float32{1}}})
	set.Visual.Put("v1", []FrameEntry{{FrameID: "f", SegmentID: "s", VideoID: "v1", Vector: []float32{1}}})

	set.RemoveVideo("v1")

	if matches := set.Lexical.Match("hello", []string{"v1"}, 0); len(matches) != 0 {
		t.Error("Expected lexical entries removed")
	}
	if hits := set.Semantic.Search([]float32{1}, []string{"v1"}, 0); len(hits) != 0 {
		t.Error("Expected semantic entries removed")
	}
	if hits := set.Visual.Search([]float32{1}, []string{"v1"}, 0); len(hits) != 0 {
		t.Error("Expected visual entries removed")
	}
}
