package library

import (
	"context"
	"errors"
	"math/rand"
	"path/filepath"
	"testing"

	"github.com/kdimtricp/vsearch/internal/database"
	"github.com/kdimtricp/vsearch/internal/models"
)

func setupRegistry(t *testing.T) *Registry {
	t.Helper()

	db, err := database.NewDB(database.Config{
		Type:       "sqlite",
		SQLitePath: filepath.Join(t.TempDir(), "test.db"),
	})
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	return NewRegistry(database.NewVideoRepository(db), database.NewSegmentRepository(db))
}

func addVideo(t *testing.T, r *Registry) *models.Video {
	t.Helper()
	video := models.NewVideo("Test Video", models.SourceUploaded, "/data/videos/v.mp4", "", "base")
	if err := r.Create(context.Background(), video); err != nil {
		t.Fatalf("Failed to create video: %v", err)
	}
	return video
}

func TestRegistry_GetUnknown(t *testing.T) {
	r := setupRegistry(t)

	if _, err := r.Get("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestRegistry_TransitionHappyPath(t *testing.T) {
	r := setupRegistry(t)
	ctx := context.Background()
	video := addVideo(t, r)

	if err := r.Transition(ctx, video.ID, models.StatusProcessing, ""); err != nil {
		t.Fatalf("pending -> processing failed: %v", err)
	}
	if err := r.Transition(ctx, video.ID, models.StatusCompleted, ""); err != nil {
		t.Fatalf("processing -> completed failed: %v", err)
	}

	got, err := r.Get(video.ID)
	if err != nil {
		t.Fatalf("Failed to get video: %v", err)
	}
	if got.Status != models.StatusCompleted {
		t.Errorf("Expected completed, got %s", got.Status)
	}
	if got.CompletedAt == nil {
		t.Error("Expected CompletedAt to be stamped")
	}
}

func TestRegistry_TransitionFailureAndRetry(t *testing.T) {
	r := setupRegistry(t)
	ctx := context.Background()
	video := addVideo(t, r)

	if err := r.Transition(ctx, video.ID, models.StatusProcessing, ""); err != nil {
		t.Fatalf("pending -> processing failed: %v", err)
	}
	if err := r.Transition(ctx, video.ID, models.StatusFailed, "transcription: no audio"); err != nil {
		t.Fatalf("processing -> failed failed: %v", err)
	}

	got, _ := r.Get(video.ID)
	if got.ErrorMessage != "transcription: no audio" {
		t.Errorf("Expected failure detail, got %q", got.ErrorMessage)
	}

	if err := r.Transition(ctx, video.ID, models.StatusPending, ""); err != nil {
		t.Fatalf("failed -> pending failed: %v", err)
	}
	got, _ = r.Get(video.ID)
	if got.ErrorMessage != "" {
		t.Errorf("Expected retry to clear failure detail, got %q", got.ErrorMessage)
	}
	if got.CompletedAt != nil {
		t.Error("Expected retry to clear CompletedAt")
	}
}

// Drives random transition sequences and verifies the registry only ever
// accepts legal edges, whatever order they arrive in.
func TestRegistry_TransitionLegality(t *testing.T) {
	legal := map[models.ProcessingStatus][]models.ProcessingStatus{
		models.StatusPending:    {models.StatusProcessing},
		models.StatusProcessing: {models.StatusCompleted, models.StatusFailed},
		models.StatusFailed:     {models.StatusPending},
		models.StatusCompleted:  {},
	}
	all := []models.ProcessingStatus{
		models.StatusPending, models.StatusProcessing, models.StatusCompleted, models.StatusFailed,
	}

	r := setupRegistry(t)
	ctx := context.Background()
	rng := rand.New(rand.NewSource(42))

	for run := 0; run < 20; run++ {
		video := addVideo(t, r)
		state := models.StatusPending

		for step := 0; step < 25; step++ {
			next := all[rng.Intn(len(all))]
			err := r.Transition(ctx, video.ID, next, "detail")

			allowed := false
			for _, to := range legal[state] {
				if to == next {
					allowed = true
				}
			}

			if allowed && err != nil {
				t.Fatalf("Legal edge %s -> %s rejected: %v", state, next, err)
			}
			if !allowed && !errors.Is(err, ErrInvalidTransition) {
				t.Fatalf("Illegal edge %s -> %s accepted (err=%v)", state, next, err)
			}
			if allowed {
				state = next
			}

			got, gerr := r.Get(video.ID)
			if gerr != nil {
				t.Fatalf("Failed to get video: %v", gerr)
			}
			if got.Status != state {
				t.Fatalf("State diverged: registry has %s, expected %s", got.Status, state)
			}
		}
	}
}

func TestRegistry_CompletedIDs(t *testing.T) {
	r := setupRegistry(t)
	ctx := context.Background()

	done := addVideo(t, r)
	r.Transition(ctx, done.ID, models.StatusProcessing, "")
	r.Transition(ctx, done.ID, models.StatusCompleted, "")

	pending := addVideo(t, r)

	scope := r.CompletedIDs(nil)
	if len(scope) != 1 || scope[0] != done.ID {
		t.Errorf("Expected scope [%s], got %v", done.ID, scope)
	}

	scope = r.CompletedIDs([]string{pending.ID, done.ID, "missing"})
	if len(scope) != 1 || scope[0] != done.ID {
		t.Errorf("Expected explicit scope filtered to [%s], got %v", done.ID, scope)
	}
}

func TestRegistry_RemoveDropsSegments(t *testing.T) {
	r := setupRegistry(t)
	ctx := context.Background()
	video := addVideo(t, r)

	segments := []models.TranscriptSegment{
		{ID: video.ID + "_0", VideoID: video.ID, Start: 0, End: 5, Text: "hello"},
	}
	if err := r.ReplaceSegments(ctx, video.ID, segments); err != nil {
		t.Fatalf("Failed to replace segments: %v", err)
	}

	if _, err := r.Remove(ctx, video.ID); err != nil {
		t.Fatalf("Failed to remove video: %v", err)
	}

	if _, err := r.Get(video.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound after remove, got %v", err)
	}
	if err := r.Transition(ctx, video.ID, models.StatusProcessing, ""); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected transitions after remove to fail with ErrNotFound, got %v", err)
	}
	if err := r.ReplaceSegments(ctx, video.ID, segments); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected segment writes after remove to fail with ErrNotFound, got %v", err)
	}
}

func TestRegistry_LoadResetsOrphanedProcessing(t *testing.T) {
	db, err := database.NewDB(database.Config{
		Type:       "sqlite",
		SQLitePath: filepath.Join(t.TempDir(), "test.db"),
	})
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	videoRepo := database.NewVideoRepository(db)
	segmentRepo := database.NewSegmentRepository(db)
	ctx := context.Background()

	video := models.NewVideo("Orphan", models.SourceUploaded, "/data/videos/v.mp4", "", "base")
	video.Status = models.StatusProcessing
	if err := videoRepo.Insert(ctx, video); err != nil {
		t.Fatalf("Failed to insert video: %v", err)
	}

	r := NewRegistry(videoRepo, segmentRepo)
	if err := r.Load(ctx); err != nil {
		t.Fatalf("Failed to load registry: %v", err)
	}

	got, err := r.Get(video.ID)
	if err != nil {
		t.Fatalf("Failed to get video: %v", err)
	}
	if got.Status != models.StatusPending {
		t.Errorf("Expected orphaned processing video reset to pending, got %s", got.Status)
	}
}
