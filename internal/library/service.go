package library

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/kdimtricp/vsearch/internal/models"
	"github.com/kdimtricp/vsearch/internal/storage"
)

var supportedVideoExtensions = map[string]bool{
	".mp4": true, ".mkv": true, ".avi": true, ".webm": true, ".mov": true, ".m4v": true,
}

// Ingestor is the queue side of the ingestion pipeline as the library sees it.
type Ingestor interface {
	Enqueue(videoID string) bool
	// Cancel removes queued work for the video, or interrupts the owning
	// worker and waits for it to let go. Unknown ids are a no-op.
	Cancel(videoID string)
	Status() (queueLength int, processing []string)
}

// IndexSet is the part of the search indices the library needs for cleanup.
type IndexSet interface {
	RemoveVideo(videoID string)
}

// TitleLookup resolves a human title for a remote video URL.
type TitleLookup interface {
	Title(ctx context.Context, url string) (string, error)
}

// Service ties the registry to storage, the ingestion queue and the index set.
// It owns video creation, deletion and retry.
type Service struct {
	registry *Registry
	storage  storage.Storage
	ingestor Ingestor
	indexes  IndexSet
	titles   TitleLookup
}

func NewService(registry *Registry, store storage.Storage, ingestor Ingestor, indexes IndexSet, titles TitleLookup) *Service {
	return &Service{
		registry: registry,
		storage:  store,
		ingestor: ingestor,
		indexes:  indexes,
		titles:   titles,
	}
}

func (s *Service) Registry() *Registry { return s.registry }

func (s *Service) AddYouTubeVideo(ctx context.Context, rawURL, whisperModel string) (*models.Video, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidURL, rawURL)
	}

	video := models.NewVideo("", models.SourceYouTube, "", rawURL, whisperModel)
	video.FilePath = s.storage.VideoPath(video.ID, ".mp4")

	title := ""
	if s.titles != nil {
		if title, err = s.titles.Title(ctx, rawURL); err != nil {
			log.Printf("Failed to resolve title for %s: %v", rawURL, err)
			title = ""
		}
	}
	if title == "" {
		title = "YouTube Video " + video.ID[:8]
	}
	video.Title = title

	if err := s.registry.Create(ctx, video); err != nil {
		return nil, err
	}
	s.ingestor.Enqueue(video.ID)
	log.Printf("Added YouTube video %s (%s)", video.Title, video.ID)
	return video, nil
}

func (s *Service) AddUploadedVideo(ctx context.Context, filename string, content io.Reader, whisperModel string) (*models.Video, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if !supportedVideoExtensions[ext] {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFile, ext)
	}

	title := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	video := models.NewVideo(title, models.SourceUploaded, "", "", whisperModel)

	path, err := s.storage.SaveVideo(video.ID, ext, content)
	if err != nil {
		return nil, err
	}
	video.FilePath = path

	if err := s.registry.Create(ctx, video); err != nil {
		s.storage.Remove(path)
		return nil, err
	}
	s.ingestor.Enqueue(video.ID)
	log.Printf("Added uploaded video %s (%s)", video.Title, video.ID)
	return video, nil
}

// Delete cancels any queued or in-flight work for the video, then removes its
// index entries, the registry entity and finally the files on disk. Index
// entries go before the registry entry so a concurrent search never resolves
// the id back to a half-deleted video.
func (s *Service) Delete(ctx context.Context, id string) error {
	if _, err := s.registry.Get(id); err != nil {
		return err
	}

	s.ingestor.Cancel(id)
	s.indexes.RemoveVideo(id)

	video, err := s.registry.Remove(ctx, id)
	if err != nil {
		return err
	}

	s.removeFiles(video)
	log.Printf("Deleted video %s", id)
	return nil
}

func (s *Service) removeFiles(video *models.Video) {
	if video.FilePath != "" {
		if err := s.storage.Remove(video.FilePath); err != nil && !errors.Is(err, os.ErrNotExist) {
			log.Printf("Failed to remove video file %s: %v", video.FilePath, err)
		}
	}
	if video.ThumbnailPath != "" {
		if err := s.storage.Remove(video.ThumbnailPath); err != nil && !errors.Is(err, os.ErrNotExist) {
			log.Printf("Failed to remove thumbnail %s: %v", video.ThumbnailPath, err)
		}
	}
	if err := s.storage.RemoveFrames(video.ID); err != nil {
		log.Printf("Failed to remove frames for %s: %v", video.ID, err)
	}
}

// Retry re-queues a failed video. The pending transition is only legal from
// failed, so anything else is rejected before it can race an in-flight worker.
func (s *Service) Retry(ctx context.Context, id string) error {
	if err := s.registry.Transition(ctx, id, models.StatusPending, ""); err != nil {
		return err
	}
	s.ingestor.Enqueue(id)
	return nil
}

type ClearError struct {
	VideoID string `json:"videoId"`
	Error   string `json:"error"`
}

// Clear deletes every video, collecting per-item errors instead of stopping.
func (s *Service) Clear(ctx context.Context) (int, []ClearError) {
	deleted := 0
	var errs []ClearError
	for _, video := range s.registry.List() {
		if err := s.Delete(ctx, video.ID); err != nil {
			errs = append(errs, ClearError{VideoID: video.ID, Error: err.Error()})
			continue
		}
		deleted++
	}
	return deleted, errs
}

// Resume re-enqueues videos that were pending when the process last stopped.
func (s *Service) Resume() {
	for _, video := range s.registry.List() {
		if video.Status == models.StatusPending {
			s.ingestor.Enqueue(video.ID)
		}
	}
}

func (s *Service) Status() (int, []string) {
	return s.ingestor.Status()
}
