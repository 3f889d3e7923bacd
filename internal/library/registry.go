package library

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/kdimtricp/vsearch/internal/database"
	"github.com/kdimtricp/vsearch/internal/models"
)

// Registry is the authoritative store of video entities and their transcript
// segments. Entities live in memory and are written through to the database;
// status changes go through Transition, which enforces the processing state
// machine. Only the ingestion worker that owns a video mutates it while it is
// processing, so the mutex here only guards the map and the state-machine edge
// checks.
type Registry struct {
	mu          sync.RWMutex
	videos      map[string]*models.Video
	videoRepo   *database.VideoRepository
	segmentRepo *database.SegmentRepository
}

func NewRegistry(videoRepo *database.VideoRepository, segmentRepo *database.SegmentRepository) *Registry {
	return &Registry{
		videos:      make(map[string]*models.Video),
		videoRepo:   videoRepo,
		segmentRepo: segmentRepo,
	}
}

// Load reads all videos from the database. Videos left in processing by a
// previous run are reset to pending so they can be re-enqueued.
func (r *Registry) Load(ctx context.Context) error {
	videos, err := r.videoRepo.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to load video library: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, video := range videos {
		if video.Status == models.StatusProcessing {
			video.Status = models.StatusPending
			if err := r.videoRepo.Update(ctx, video); err != nil {
				log.Printf("Failed to reset orphaned video %s: %v", video.ID, err)
			}
		}
		r.videos[video.ID] = video
	}
	log.Printf("Video library loaded with %d videos", len(r.videos))
	return nil
}

func (r *Registry) Create(ctx context.Context, video *models.Video) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.videos[video.ID]; exists {
		return fmt.Errorf("video %s already exists", video.ID)
	}
	if err := r.videoRepo.Insert(ctx, video); err != nil {
		return err
	}
	clone := *video
	r.videos[video.ID] = &clone
	return nil
}

func (r *Registry) Get(id string) (*models.Video, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	video, ok := r.videos[id]
	if !ok {
		return nil, ErrNotFound
	}
	clone := *video
	return &clone, nil
}

func (r *Registry) List() []*models.Video {
	r.mu.RLock()
	defer r.mu.RUnlock()

	videos := make([]*models.Video, 0, len(r.videos))
	for _, video := range r.videos {
		clone := *video
		videos = append(videos, &clone)
	}
	sort.Slice(videos, func(i, j int) bool { return videos[i].CreatedAt.Before(videos[j].CreatedAt) })
	return videos
}

// ListGrouped returns videos grouped by source kind, group order fixed.
func (r *Registry) ListGrouped() []VideoGroup {
	groups := []VideoGroup{
		{Name: "YouTube"},
		{Name: "Uploaded"},
	}
	for _, video := range r.List() {
		if video.Source == models.SourceYouTube {
			groups[0].Videos = append(groups[0].Videos, video)
		} else {
			groups[1].Videos = append(groups[1].Videos, video)
		}
	}
	return groups
}

type VideoGroup struct {
	Name   string          `json:"name"`
	Videos []*models.Video `json:"videos"`
}

// CompletedIDs resolves a search scope: the given ids filtered down to
// completed videos, or every completed video when ids is empty. Order follows
// the request, or creation time for the full library.
func (r *Registry) CompletedIDs(ids []string) []string {
	var scope []string
	if len(ids) == 0 {
		for _, video := range r.List() {
			if video.Status == models.StatusCompleted {
				scope = append(scope, video.ID)
			}
		}
		return scope
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, id := range ids {
		if video, ok := r.videos[id]; ok && video.Status == models.StatusCompleted {
			scope = append(scope, id)
		}
	}
	return scope
}

// Transition moves a video along one edge of the processing state machine:
//
//	pending -> processing -> completed
//	                      -> failed -> pending (retry)
//
// Any other edge is rejected with ErrInvalidTransition. Entering failed
// records the detail; entering completed stamps CompletedAt; re-entering
// pending (retry) clears both.
func (r *Registry) Transition(ctx context.Context, id string, status models.ProcessingStatus, detail string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	video, ok := r.videos[id]
	if !ok {
		return ErrNotFound
	}
	if !legalEdge(video.Status, status) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, video.Status, status)
	}

	video.Status = status
	switch status {
	case models.StatusCompleted:
		now := time.Now()
		video.CompletedAt = &now
		video.ErrorMessage = ""
	case models.StatusFailed:
		video.ErrorMessage = detail
	case models.StatusPending:
		video.ErrorMessage = ""
		video.CompletedAt = nil
	}

	if err := r.videoRepo.Update(ctx, video); err != nil {
		return fmt.Errorf("failed to persist status: %w", err)
	}
	log.Printf("Video %s -> %s", id, status)
	return nil
}

func legalEdge(from, to models.ProcessingStatus) bool {
	switch from {
	case models.StatusPending:
		return to == models.StatusProcessing
	case models.StatusProcessing:
		return to == models.StatusCompleted || to == models.StatusFailed
	case models.StatusFailed:
		return to == models.StatusPending
	default:
		return false
	}
}

func (r *Registry) SetMediaInfo(ctx context.Context, id string, duration *float64, thumbnailPath string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	video, ok := r.videos[id]
	if !ok {
		return ErrNotFound
	}
	if duration != nil {
		d := *duration
		video.Duration = &d
	}
	if thumbnailPath != "" {
		video.ThumbnailPath = thumbnailPath
	}
	if err := r.videoRepo.Update(ctx, video); err != nil {
		return fmt.Errorf("failed to persist media info: %w", err)
	}
	return nil
}

// ReplaceSegments commits a video's transcript atomically.
func (r *Registry) ReplaceSegments(ctx context.Context, id string, segments []models.TranscriptSegment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.videos[id]; !ok {
		return ErrNotFound
	}
	return r.segmentRepo.ReplaceForVideo(ctx, id, segments)
}

func (r *Registry) Segments(ctx context.Context, id string) ([]models.TranscriptSegment, error) {
	if _, err := r.Get(id); err != nil {
		return nil, err
	}
	return r.segmentRepo.ListByVideo(ctx, id)
}

// TranscriptText joins a video's segments into one string.
func (r *Registry) TranscriptText(ctx context.Context, id string) (string, int, error) {
	segments, err := r.Segments(ctx, id)
	if err != nil {
		return "", 0, err
	}
	parts := make([]string, 0, len(segments))
	for _, seg := range segments {
		parts = append(parts, strings.TrimSpace(seg.Text))
	}
	return strings.Join(parts, " "), len(segments), nil
}

// Remove deletes the entity and its segments. After Remove returns, any
// Transition, SetMediaInfo or ReplaceSegments for this id fails with
// ErrNotFound without writing, which is what lets deletion guarantee no
// further mutations once acknowledged.
func (r *Registry) Remove(ctx context.Context, id string) (*models.Video, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	video, ok := r.videos[id]
	if !ok {
		return nil, ErrNotFound
	}
	if err := r.segmentRepo.DeleteByVideo(ctx, id); err != nil {
		return nil, err
	}
	if err := r.videoRepo.Delete(ctx, id); err != nil {
		return nil, err
	}
	delete(r.videos, id)
	clone := *video
	return &clone, nil
}
