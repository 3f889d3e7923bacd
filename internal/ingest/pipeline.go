package ingest

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/kdimtricp/vsearch/internal/index"
	"github.com/kdimtricp/vsearch/internal/library"
	"github.com/kdimtricp/vsearch/internal/media"
	"github.com/kdimtricp/vsearch/internal/models"
	"github.com/kdimtricp/vsearch/internal/storage"
)

type MediaProcessor interface {
	Download(ctx context.Context, videoURL, outputPath string) error
	Probe(ctx context.Context, videoPath string) (float64, error)
	ExtractAudio(ctx context.Context, videoPath, audioPath string) error
	SampleFrames(ctx context.Context, videoPath, outDir string, segments []media.SegmentSpan, rate float64) ([]media.Frame, error)
	Thumbnail(ctx context.Context, videoPath, outPath string, duration float64) error
}

type Transcriber interface {
	Transcribe(ctx context.Context, videoID, audioPath, model string) ([]models.TranscriptSegment, error)
}

type TextEmbedder interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

type VisualEmbedder interface {
	EmbedImages(ctx context.Context, paths []string) ([][]float32, error)
}

// StageError records which pipeline stage failed so the video's failure detail
// tells the operator where to look.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string { return fmt.Sprintf("%s: %v", e.Stage, e.Err) }
func (e *StageError) Unwrap() error { return e.Err }

// Pipeline turns a raw video into a searchable one: materialize the file,
// extract audio, transcribe, then build the lexical, semantic and visual
// indices. All durable writes go through the registry; the indices are
// committed last and wholesale, so a searcher never sees a half-indexed video.
type Pipeline struct {
	registry    *library.Registry
	store       storage.Storage
	media       MediaProcessor
	transcriber Transcriber
	embedder    TextEmbedder
	visual      VisualEmbedder
	indexes     *index.Set
	frameRate   float64
}

func NewPipeline(
	registry *library.Registry,
	store storage.Storage,
	mediaProc MediaProcessor,
	transcriber Transcriber,
	embedder TextEmbedder,
	visual VisualEmbedder,
	indexes *index.Set,
	frameRate float64,
) *Pipeline {
	if frameRate <= 0 {
		frameRate = 0.5
	}
	return &Pipeline{
		registry:    registry,
		store:       store,
		media:       mediaProc,
		transcriber: transcriber,
		embedder:    embedder,
		visual:      visual,
		indexes:     indexes,
		frameRate:   frameRate,
	}
}

// Process runs every stage for one video. The returned error is a StageError
// except when the context was cancelled or the video disappeared underneath us.
func (p *Pipeline) Process(ctx context.Context, videoID string) error {
	video, err := p.registry.Get(videoID)
	if err != nil {
		return err
	}

	// Stage 1: make sure the file is on disk and read its duration.
	if video.Source == models.SourceYouTube {
		if _, err := os.Stat(video.FilePath); err != nil {
			log.Printf("Downloading %s for video %s", video.YouTubeURL, videoID)
			if err := p.media.Download(ctx, video.YouTubeURL, video.FilePath); err != nil {
				return p.stageErr(ctx, "download", err)
			}
		}
	}
	if _, err := os.Stat(video.FilePath); err != nil {
		return p.stageErr(ctx, "materialize", err)
	}
	var duration *float64
	if d, err := p.media.Probe(ctx, video.FilePath); err != nil {
		// Duration is informational; a probe failure does not block indexing.
		log.Printf("Failed to probe duration of video %s: %v", videoID, err)
	} else {
		duration = &d
	}

	// Stage 2: extract the audio track. The mp3 is an intermediate artifact,
	// removed once transcription is done.
	audioPath := p.store.AudioPath(videoID)
	if err := p.media.ExtractAudio(ctx, video.FilePath, audioPath); err != nil {
		return p.stageErr(ctx, "audio extraction", err)
	}
	defer os.Remove(audioPath)

	// Stage 3: transcribe and commit the transcript.
	segments, err := p.transcriber.Transcribe(ctx, videoID, audioPath, video.WhisperModel)
	if err != nil {
		return p.stageErr(ctx, "transcription", err)
	}
	if err := p.registry.ReplaceSegments(ctx, videoID, segments); err != nil {
		return p.stageErr(ctx, "transcription", err)
	}
	log.Printf("Transcribed video %s into %d segments", videoID, len(segments))

	// Stage 4: lexical index.
	lexical := make([]index.LexicalEntry, len(segments))
	for i, seg := range segments {
		lexical[i] = index.LexicalEntry{
			SegmentID: seg.ID,
			VideoID:   videoID,
			Start:     seg.Start,
			End:       seg.End,
			Text:      seg.Text,
		}
	}
	p.indexes.Lexical.Put(videoID, lexical)

	// Stage 5: semantic index.
	if len(segments) > 0 {
		texts := make([]string, len(segments))
		for i, seg := range segments {
			texts[i] = seg.Text
		}
		vectors, err := p.embedder.EmbedTexts(ctx, texts)
		if err != nil {
			return p.stageErr(ctx, "semantic indexing", err)
		}
		if len(vectors) != len(segments) {
			return p.stageErr(ctx, "semantic indexing",
				fmt.Errorf("expected %d embeddings, got %d", len(segments), len(vectors)))
		}
		entries := make([]index.VectorEntry, len(segments))
		for i, seg := range segments {
			entries[i] = index.VectorEntry{
				SegmentID: seg.ID,
				VideoID:   videoID,
				Start:     seg.Start,
				End:       seg.End,
				Text:      seg.Text,
				Vector:    vectors[i],
			}
		}
		p.indexes.Semantic.Put(videoID, entries)
	}

	// Stage 6: sample frames per segment and build the visual index.
	if len(segments) > 0 {
		spans := make([]media.SegmentSpan, len(segments))
		for i, seg := range segments {
			spans[i] = media.SegmentSpan{ID: seg.ID, Start: seg.Start, End: seg.End}
		}
		frames, err := p.media.SampleFrames(ctx, video.FilePath, p.store.FramesDir(videoID), spans, p.frameRate)
		if err != nil {
			return p.stageErr(ctx, "frame sampling", err)
		}
		if len(frames) > 0 {
			paths := make([]string, len(frames))
			for i, frame := range frames {
				paths[i] = frame.Path
			}
			vectors, err := p.visual.EmbedImages(ctx, paths)
			if err != nil {
				return p.stageErr(ctx, "visual indexing", err)
			}
			entries := make([]index.FrameEntry, len(frames))
			for i, frame := range frames {
				entries[i] = index.FrameEntry{
					FrameID:   fmt.Sprintf("%s_%.2f", frame.SegmentID, frame.Timestamp),
					SegmentID: frame.SegmentID,
					VideoID:   videoID,
					Timestamp: frame.Timestamp,
					Path:      frame.Path,
					Vector:    vectors[i],
				}
			}
			p.indexes.Visual.Put(videoID, entries)
			log.Printf("Indexed %d frames for video %s", len(frames), videoID)
		}
	}

	// Stage 7: thumbnail and media info. Last because it is cosmetic and must
	// not block searchability.
	thumbPath := p.store.ThumbnailPath(videoID)
	var d float64
	if duration != nil {
		d = *duration
	}
	if err := p.media.Thumbnail(ctx, video.FilePath, thumbPath, d); err != nil {
		log.Printf("Failed to generate thumbnail for video %s: %v", videoID, err)
		thumbPath = ""
	}
	if duration != nil || thumbPath != "" {
		if err := p.registry.SetMediaInfo(ctx, videoID, duration, thumbPath); err != nil {
			return p.stageErr(ctx, "media info", err)
		}
	}
	return nil
}

// stageErr surfaces cancellation as-is so the worker can tell an interrupted
// run from a failed one.
func (p *Pipeline) stageErr(ctx context.Context, stage string, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return &StageError{Stage: stage, Err: err}
}

// Discard removes intermediate artifacts of an abandoned run. The source video
// file stays; deletion of the entity removes it separately.
func (p *Pipeline) Discard(videoID string) {
	if err := p.store.Remove(p.store.AudioPath(videoID)); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("Failed to remove audio for video %s: %v", videoID, err)
	}
	if err := p.store.RemoveFrames(videoID); err != nil {
		log.Printf("Failed to remove frames for video %s: %v", videoID, err)
	}
}
