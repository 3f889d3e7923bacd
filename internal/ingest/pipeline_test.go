package ingest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/kdimtricp/vsearch/internal/database"
	"github.com/kdimtricp/vsearch/internal/index"
	"github.com/kdimtricp/vsearch/internal/library"
	"github.com/kdimtricp/vsearch/internal/media"
	"github.com/kdimtricp/vsearch/internal/models"
	"github.com/kdimtricp/vsearch/internal/storage"
)

type fakeMedia struct{}

func (f *fakeMedia) Download(ctx context.Context, videoURL, outputPath string) error {
	return os.WriteFile(outputPath, []byte("downloaded"), 0644)
}

func (f *fakeMedia) Probe(ctx context.Context, videoPath string) (float64, error) {
	return 120.0, nil
}

func (f *fakeMedia) ExtractAudio(ctx context.Context, videoPath, audioPath string) error {
	return os.WriteFile(audioPath, []byte("audio"), 0644)
}

func (f *fakeMedia) SampleFrames(ctx context.Context, videoPath, outDir string, segments []media.SegmentSpan, rate float64) ([]media.Frame, error) {
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return nil, err
	}
	var frames []media.Frame
	for _, seg := range segments {
		path := filepath.Join(outDir, fmt.Sprintf("%s_%.2f.jpg", seg.ID, seg.Start))
		if err := os.WriteFile(path, []byte("jpeg"), 0644); err != nil {
			return nil, err
		}
		frames = append(frames, media.Frame{SegmentID: seg.ID, Timestamp: seg.Start, Path: path})
	}
	return frames, nil
}

func (f *fakeMedia) Thumbnail(ctx context.Context, videoPath, outPath string, duration float64) error {
	return os.WriteFile(outPath, []byte("thumb"), 0644)
}

type fakeTranscriber struct {
	err error
	// When set, Transcribe blocks until the context is cancelled or the
	// channel is closed.
	block chan struct{}
}

func (f *fakeTranscriber) Transcribe(ctx context.Context, videoID, audioPath, model string) ([]models.TranscriptSegment, error) {
	if f.block != nil {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-f.block:
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return []models.TranscriptSegment{
		{ID: videoID + "_0", VideoID: videoID, Start: 0, End: 5, Text: "hello world"},
		{ID: videoID + "_1", VideoID: videoID, Start: 5, End: 10, Text: "goodbye world"},
	}, nil
}

type fakeEmbedder struct{}

func (f *fakeEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i := range texts {
		vectors[i] = []float32{1, 0, 0}
	}
	return vectors, nil
}

type fakeVisualEmbedder struct{}

func (f *fakeVisualEmbedder) EmbedImages(ctx context.Context, paths []string) ([][]float32, error) {
	vectors := make([][]float32, len(paths))
	for i := range paths {
		vectors[i] = []float32{0, 1, 0}
	}
	return vectors, nil
}

type fixture struct {
	registry *library.Registry
	store    storage.Storage
	indexes  *index.Set
	queue    *Queue
	pool     *Pool
}

func setupFixture(t *testing.T, transcriber Transcriber) *fixture {
	t.Helper()

	db, err := database.NewDB(database.Config{
		Type:       "sqlite",
		SQLitePath: filepath.Join(t.TempDir(), "test.db"),
	})
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	registry := library.NewRegistry(database.NewVideoRepository(db), database.NewSegmentRepository(db))

	store, err := storage.NewLocalStorage(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to initialize storage: %v", err)
	}

	indexes := index.NewSet()
	queue := NewQueue(10)
	pipeline := NewPipeline(registry, store, &fakeMedia{}, transcriber, &fakeEmbedder{}, &fakeVisualEmbedder{}, indexes, 0.5)
	pool := NewPool(queue, pipeline, registry, 1)
	pool.Start()
	t.Cleanup(pool.Stop)

	return &fixture{registry: registry, store: store, indexes: indexes, queue: queue, pool: pool}
}

func (f *fixture) addVideo(t *testing.T) *models.Video {
	t.Helper()
	video := models.NewVideo("Test Video", models.SourceUploaded, "", "", "base")
	video.FilePath = f.store.VideoPath(video.ID, ".mp4")
	if err := os.WriteFile(video.FilePath, []byte("fake video"), 0644); err != nil {
		t.Fatalf("Failed to write video file: %v", err)
	}
	if err := f.registry.Create(context.Background(), video); err != nil {
		t.Fatalf("Failed to create video: %v", err)
	}
	return video
}

func waitForStatus(t *testing.T, registry *library.Registry, id string, want models.ProcessingStatus) *models.Video {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		video, err := registry.Get(id)
		if err != nil {
			t.Fatalf("Failed to get video: %v", err)
		}
		if video.Status == want {
			return video
		}
		time.Sleep(10 * time.Millisecond)
	}
	video, _ := registry.Get(id)
	t.Fatalf("Timed out waiting for status %s, video is %s (%q)", want, video.Status, video.ErrorMessage)
	return nil
}

func TestIngestion_FullSuccess(t *testing.T) {
	f := setupFixture(t, &fakeTranscriber{})
	video := f.addVideo(t)

	f.queue.Enqueue(video.ID)
	got := waitForStatus(t, f.registry, video.ID, models.StatusCompleted)

	if got.CompletedAt == nil {
		t.Error("Expected CompletedAt to be stamped")
	}
	if got.Duration == nil || *got.Duration != 120.0 {
		t.Errorf("Expected probed duration 120, got %v", got.Duration)
	}
	if got.ThumbnailPath == "" {
		t.Error("Expected a thumbnail path")
	}

	segments, err := f.registry.Segments(context.Background(), video.ID)
	if err != nil {
		t.Fatalf("Failed to list segments: %v", err)
	}
	if len(segments) != 2 {
		t.Fatalf("Expected 2 segments, got %d", len(segments))
	}

	if hits := f.indexes.Lexical.Match("hello", []string{video.ID}, 0); len(hits) != 1 {
		t.Errorf("Expected lexical index to match, got %d hits", len(hits))
	}
	if hits := f.indexes.Semantic.Search([]float32{1, 0, 0}, []string{video.ID}, 0); len(hits) != 2 {
		t.Errorf("Expected 2 semantic entries, got %d", len(hits))
	}
	if hits := f.indexes.Visual.Search([]float32{0, 1, 0}, []string{video.ID}, 0); len(hits) == 0 {
		t.Error("Expected visual index entries")
	}

	// The intermediate audio file is cleaned up.
	if _, err := os.Stat(f.store.AudioPath(video.ID)); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Expected audio artifact removed, stat err: %v", err)
	}
}

func TestIngestion_TranscriptionFailure(t *testing.T) {
	f := setupFixture(t, &fakeTranscriber{err: errors.New("speech service unreachable")})
	video := f.addVideo(t)

	f.queue.Enqueue(video.ID)
	got := waitForStatus(t, f.registry, video.ID, models.StatusFailed)

	if !strings.HasPrefix(got.ErrorMessage, "transcription:") {
		t.Errorf("Expected failure detail to name the stage, got %q", got.ErrorMessage)
	}

	segments, err := f.registry.Segments(context.Background(), video.ID)
	if err != nil {
		t.Fatalf("Failed to list segments: %v", err)
	}
	if len(segments) != 0 {
		t.Errorf("Expected no segments persisted, got %d", len(segments))
	}

	// Nothing was indexed for the failed video.
	if hits := f.indexes.Lexical.Match("hello", []string{video.ID}, 0); len(hits) != 0 {
		t.Errorf("Expected no lexical entries, got %d", len(hits))
	}

	// The failed video can be retried.
	if err := f.registry.Transition(context.Background(), video.ID, models.StatusPending, ""); err != nil {
		t.Errorf("Expected failed -> pending to be legal: %v", err)
	}
}

func TestIngestion_DeleteMidProcessing(t *testing.T) {
	transcriber := &fakeTranscriber{block: make(chan struct{})}
	f := setupFixture(t, transcriber)
	video := f.addVideo(t)

	svc := library.NewService(f.registry, f.store, f.queue, f.indexes, nil)

	f.queue.Enqueue(video.ID)
	waitForStatus(t, f.registry, video.ID, models.StatusProcessing)

	// Worker is parked inside transcription; delete must interrupt it, wait
	// for it to let go and leave no trace.
	if err := svc.Delete(context.Background(), video.ID); err != nil {
		t.Fatalf("Failed to delete mid-processing video: %v", err)
	}

	if _, err := f.registry.Get(video.ID); !errors.Is(err, library.ErrNotFound) {
		t.Errorf("Expected ErrNotFound after delete, got %v", err)
	}

	// The worker has abandoned the video; no status write may land after the
	// delete acknowledged.
	time.Sleep(50 * time.Millisecond)
	if _, err := f.registry.Get(video.ID); !errors.Is(err, library.ErrNotFound) {
		t.Errorf("Expected video to stay deleted, got %v", err)
	}

	queueLength, processing := f.queue.Status()
	if queueLength != 0 || len(processing) != 0 {
		t.Errorf("Expected idle queue, got length=%d processing=%v", queueLength, processing)
	}
}
