package index

import (
	"sort"
	"sync"
)

type FrameEntry struct {
	FrameID   string
	SegmentID string
	VideoID   string
	Timestamp float64
	Path      string
	Vector    []float32
}

type FrameHit struct {
	FrameEntry
	Score float64
}

// VisualIndex holds embeddings of frames sampled during ingestion. Queries are
// text embeddings in the same image/text space.
type VisualIndex struct {
	mu      sync.RWMutex
	byVideo map[string][]FrameEntry
}

func NewVisualIndex() *VisualIndex {
	return &VisualIndex{byVideo: make(map[string][]FrameEntry)}
}

func (idx *VisualIndex) Put(videoID string, entries []FrameEntry) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.byVideo[videoID] = entries
}

func (idx *VisualIndex) RemoveVideo(videoID string) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	delete(idx.byVideo, videoID)
}

func (idx *VisualIndex) Search(query []float32, videoIDs []string, topK int) []FrameHit {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	var hits []FrameHit
	for _, videoID := range videoIDs {
		for _, entry := range idx.byVideo[videoID] {
			hits = append(hits, FrameHit{FrameEntry: entry, Score: Cosine(query, entry.Vector)})
		}
	}

	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if topK > 0 && len(hits) > topK {
		hits = hits[:topK]
	}
	return hits
}
