package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/kdimtricp/vsearch/internal/models"
)

type VideoRepository struct {
	db *DB
}

func NewVideoRepository(db *DB) *VideoRepository {
	return &VideoRepository{db: db}
}

func (r *VideoRepository) Insert(ctx context.Context, video *models.Video) error {
	query := `
		INSERT INTO videos (
			id, title, source, file_path, youtube_url, duration, thumbnail_path,
			whisper_model, status, error_message, created_at, completed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err := r.db.conn.ExecContext(ctx, query,
		video.ID,
		video.Title,
		string(video.Source),
		video.FilePath,
		video.YouTubeURL,
		video.Duration,
		video.ThumbnailPath,
		video.WhisperModel,
		string(video.Status),
		video.ErrorMessage,
		video.CreatedAt,
		video.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert video: %w", err)
	}
	return nil
}

func (r *VideoRepository) Update(ctx context.Context, video *models.Video) error {
	query := `
		UPDATE videos SET
			title = $2, duration = $3, thumbnail_path = $4,
			status = $5, error_message = $6, completed_at = $7
		WHERE id = $1`

	_, err := r.db.conn.ExecContext(ctx, query,
		video.ID,
		video.Title,
		video.Duration,
		video.ThumbnailPath,
		string(video.Status),
		video.ErrorMessage,
		video.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update video: %w", err)
	}
	return nil
}

func (r *VideoRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.conn.ExecContext(ctx, `DELETE FROM videos WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete video: %w", err)
	}
	return nil
}

func (r *VideoRepository) List(ctx context.Context) ([]*models.Video, error) {
	query := `
		SELECT id, title, source, file_path, youtube_url, duration, thumbnail_path,
			   whisper_model, status, error_message, created_at, completed_at
		FROM videos
		ORDER BY created_at`

	rows, err := r.db.conn.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list videos: %w", err)
	}
	defer rows.Close()

	var videos []*models.Video
	for rows.Next() {
		video, err := scanVideo(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan video: %w", err)
		}
		videos = append(videos, video)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return videos, nil
}

func scanVideo(rows *sql.Rows) (*models.Video, error) {
	video := &models.Video{}
	var source, status string
	var duration sql.NullFloat64
	var completedAt sql.NullTime
	var createdAt time.Time

	err := rows.Scan(
		&video.ID,
		&video.Title,
		&source,
		&video.FilePath,
		&video.YouTubeURL,
		&duration,
		&video.ThumbnailPath,
		&video.WhisperModel,
		&status,
		&video.ErrorMessage,
		&createdAt,
		&completedAt,
	)
	if err != nil {
		return nil, err
	}

	video.Source = models.VideoSource(source)
	video.Status = models.ProcessingStatus(status)
	video.CreatedAt = createdAt
	if duration.Valid {
		video.Duration = &duration.Float64
	}
	if completedAt.Valid {
		t := completedAt.Time
		video.CompletedAt = &t
	}
	return video, nil
}
