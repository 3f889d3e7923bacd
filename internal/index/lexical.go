package index

import (
	"strings"
	"sync"
)

type LexicalEntry struct {
	SegmentID string
	VideoID   string
	Start     float64
	End       float64
	Text      string
}

// LexicalIndex keeps each video's segment text for plain substring matching.
// Entries for a video are committed wholesale so readers never observe a
// partially indexed transcript.
type LexicalIndex struct {
	mu      sync.RWMutex
	byVideo map[string][]LexicalEntry
}

func NewLexicalIndex() *LexicalIndex {
	return &LexicalIndex{byVideo: make(map[string][]LexicalEntry)}
}

func (idx *LexicalIndex) Put(videoID string, entries []LexicalEntry) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.byVideo[videoID] = entries
}

func (idx *LexicalIndex) RemoveVideo(videoID string) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	delete(idx.byVideo, videoID)
}

// Segment looks one indexed segment up by id, used to attach transcript text
// and timing to results found through other indices.
func (idx *LexicalIndex) Segment(videoID, segmentID string) (LexicalEntry, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	for _, entry := range idx.byVideo[videoID] {
		if entry.SegmentID == segmentID {
			return entry, true
		}
	}
	return LexicalEntry{}, false
}

// Match returns segments whose text contains the query, case-insensitively.
// Videos are visited in the order given and segments in transcript order, so
// identical inputs always produce identical output.
func (idx *LexicalIndex) Match(query string, videoIDs []string, limit int) []LexicalEntry {
	needle := strings.ToLower(query)

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	var matches []LexicalEntry
	for _, videoID := range videoIDs {
		for _, entry := range idx.byVideo[videoID] {
			if strings.Contains(strings.ToLower(entry.Text), needle) {
				matches = append(matches, entry)
				if limit > 0 && len(matches) >= limit {
					return matches
				}
			}
		}
	}
	return matches
}
