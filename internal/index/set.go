package index

// Set bundles the three per-video indices so callers that only care about
// lifecycle (build, drop) can treat them as one unit.
type Set struct {
	Lexical  *LexicalIndex
	Semantic *VectorIndex
	Visual   *VisualIndex
}

func NewSet() *Set {
	return &Set{
		Lexical:  NewLexicalIndex(),
		Semantic: NewVectorIndex(),
		Visual:   NewVisualIndex(),
	}
}

func (s *Set) RemoveVideo(videoID string) {
	s.Lexical.RemoveVideo(videoID)
	s.Semantic.RemoveVideo(videoID)
	s.Visual.RemoveVideo(videoID)
}
