package models

import (
	"time"

	"github.com/google/uuid"
)

type ProcessingStatus string

const (
	StatusPending    ProcessingStatus = "pending"
	StatusProcessing ProcessingStatus = "processing"
	StatusCompleted  ProcessingStatus = "completed"
	StatusFailed     ProcessingStatus = "failed"
)

type VideoSource string

const (
	SourceYouTube  VideoSource = "youtube"
	SourceUploaded VideoSource = "uploaded"
)

type Video struct {
	ID            string           `json:"id"`
	Title         string           `json:"title"`
	Source        VideoSource      `json:"source"`
	FilePath      string           `json:"filePath"`
	YouTubeURL    string           `json:"youtubeUrl,omitempty"`
	Duration      *float64         `json:"duration,omitempty"`
	ThumbnailPath string           `json:"thumbnailPath,omitempty"`
	WhisperModel  string           `json:"whisperModel"`
	Status        ProcessingStatus `json:"status"`
	ErrorMessage  string           `json:"errorMessage,omitempty"`
	CreatedAt     time.Time        `json:"createdAt"`
	CompletedAt   *time.Time       `json:"completedAt,omitempty"`
}

func NewVideo(title string, source VideoSource, filePath, youtubeURL, whisperModel string) *Video {
	if whisperModel == "" {
		whisperModel = "base"
	}
	return &Video{
		ID:           uuid.New().String(),
		Title:        title,
		Source:       source,
		FilePath:     filePath,
		YouTubeURL:   youtubeURL,
		WhisperModel: whisperModel,
		Status:       StatusPending,
		CreatedAt:    time.Now(),
	}
}

// TranscriptSegment is one time-bounded span of speech. Segments are created in
// bulk by the transcription stage and are immutable afterward; they are removed
// together with their owning video.
type TranscriptSegment struct {
	ID      string  `json:"segmentId"`
	VideoID string  `json:"videoId"`
	Start   float64 `json:"startTime"`
	End     float64 `json:"endTime"`
	Text    string  `json:"text"`
}
