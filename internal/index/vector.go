package index

import (
	"math"
	"sort"
	"sync"
)

type VectorEntry struct {
	SegmentID string
	VideoID   string
	Start     float64
	End       float64
	Text      string
	Vector    []float32
}

type VectorHit struct {
	VectorEntry
	Score float64 // cosine similarity, -1..1
}

// VectorIndex is a flat in-process nearest-neighbor index over segment
// embeddings. Library sizes here are small enough that a linear scan beats the
// operational cost of an external vector store.
type VectorIndex struct {
	mu      sync.RWMutex
	byVideo map[string][]VectorEntry
}

func NewVectorIndex() *VectorIndex {
	return &VectorIndex{byVideo: make(map[string][]VectorEntry)}
}

func (idx *VectorIndex) Put(videoID string, entries []VectorEntry) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.byVideo[videoID] = entries
}

func (idx *VectorIndex) RemoveVideo(videoID string) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	delete(idx.byVideo, videoID)
}

func (idx *VectorIndex) Search(query []float32, videoIDs []string, topK int) []VectorHit {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	var hits []VectorHit
	for _, videoID := range videoIDs {
		for _, entry := range idx.byVideo[videoID] {
			hits = append(hits, VectorHit{VectorEntry: entry, Score: Cosine(query, entry.Vector)})
		}
	}

	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if topK > 0 && len(hits) > topK {
		hits = hits[:topK]
	}
	return hits
}

func Cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
