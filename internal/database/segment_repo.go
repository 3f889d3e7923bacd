package database

import (
	"context"
	"fmt"

	"github.com/kdimtricp/vsearch/internal/models"
)

type SegmentRepository struct {
	db *DB
}

func NewSegmentRepository(db *DB) *SegmentRepository {
	return &SegmentRepository{db: db}
}

// ReplaceForVideo commits a video's segments in a single transaction so a
// half-written transcript is never visible.
func (r *SegmentRepository) ReplaceForVideo(ctx context.Context, videoID string, segments []models.TranscriptSegment) error {
	tx, err := r.db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM transcript_segments WHERE video_id = $1`, videoID); err != nil {
		return fmt.Errorf("failed to clear segments: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO transcript_segments (id, video_id, seq, start_time, end_time, text)
		VALUES ($1, $2, $3, $4, $5, $6)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, seg := range segments {
		if _, err := stmt.ExecContext(ctx, seg.ID, videoID, i, seg.Start, seg.End, seg.Text); err != nil {
			return fmt.Errorf("failed to insert segment %s: %w", seg.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit segments: %w", err)
	}
	return nil
}

func (r *SegmentRepository) ListByVideo(ctx context.Context, videoID string) ([]models.TranscriptSegment, error) {
	query := `
		SELECT id, video_id, start_time, end_time, text
		FROM transcript_segments
		WHERE video_id = $1
		ORDER BY seq`

	rows, err := r.db.conn.QueryContext(ctx, query, videoID)
	if err != nil {
		return nil, fmt.Errorf("failed to query segments: %w", err)
	}
	defer rows.Close()

	var segments []models.TranscriptSegment
	for rows.Next() {
		var seg models.TranscriptSegment
		if err := rows.Scan(&seg.ID, &seg.VideoID, &seg.Start, &seg.End, &seg.Text); err != nil {
			return nil, fmt.Errorf("failed to scan segment: %w", err)
		}
		segments = append(segments, seg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return segments, nil
}

func (r *SegmentRepository) DeleteByVideo(ctx context.Context, videoID string) error {
	if _, err := r.db.conn.ExecContext(ctx, `DELETE FROM transcript_segments WHERE video_id = $1`, videoID); err != nil {
		return fmt.Errorf("failed to delete segments: %w", err)
	}
	return nil
}
