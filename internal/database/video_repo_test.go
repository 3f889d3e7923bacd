package database

import (
	"context"
	"testing"

	"github.com/kdimtricp/vsearch/internal/models"
)

func TestVideoRepository_InsertAndList(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewVideoRepository(db)
	ctx := context.Background()

	video := models.NewVideo("Test Video", models.SourceUploaded, "/data/videos/v.mp4", "", "base")
	if err := repo.Insert(ctx, video); err != nil {
		t.Fatalf("Failed to insert video: %v", err)
	}

	videos, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("Failed to list videos: %v", err)
	}
	if len(videos) != 1 {
		t.Fatalf("Expected 1 video, got %d", len(videos))
	}

	got := videos[0]
	if got.ID != video.ID {
		t.Errorf("Expected id %s, got %s", video.ID, got.ID)
	}
	if got.Title != video.Title {
		t.Errorf("Expected title %s, got %s", video.Title, got.Title)
	}
	if got.Status != models.StatusPending {
		t.Errorf("Expected status pending, got %s", got.Status)
	}
	if got.Duration != nil {
		t.Errorf("Expected nil duration, got %v", *got.Duration)
	}
}

func TestVideoRepository_Update(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewVideoRepository(db)
	ctx := context.Background()

	video := models.NewVideo("Test Video", models.SourceYouTube, "/data/videos/v.mp4", "https://youtube.com/watch?v=x", "base")
	if err := repo.Insert(ctx, video); err != nil {
		t.Fatalf("Failed to insert video: %v", err)
	}

	duration := 123.45
	video.Duration = &duration
	video.Status = models.StatusFailed
	video.ErrorMessage = "transcription: boom"
	if err := repo.Update(ctx, video); err != nil {
		t.Fatalf("Failed to update video: %v", err)
	}

	videos, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("Failed to list videos: %v", err)
	}
	got := videos[0]
	if got.Status != models.StatusFailed {
		t.Errorf("Expected status failed, got %s", got.Status)
	}
	if got.ErrorMessage != "transcription: boom" {
		t.Errorf("Expected error message to round-trip, got %q", got.ErrorMessage)
	}
	if got.Duration == nil || *got.Duration != duration {
		t.Errorf("Expected duration %v, got %v", duration, got.Duration)
	}
}

func TestVideoRepository_Delete(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewVideoRepository(db)
	ctx := context.Background()

	video := models.NewVideo("Test Video", models.SourceUploaded, "/data/videos/v.mp4", "", "base")
	if err := repo.Insert(ctx, video); err != nil {
		t.Fatalf("Failed to insert video: %v", err)
	}
	if err := repo.Delete(ctx, video.ID); err != nil {
		t.Fatalf("Failed to delete video: %v", err)
	}

	videos, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("Failed to list videos: %v", err)
	}
	if len(videos) != 0 {
		t.Errorf("Expected empty library, got %d videos", len(videos))
	}
}
