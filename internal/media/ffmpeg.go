package media

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

// Frame is one sampled still, tied to the transcript segment whose time span
// it was taken from.
type Frame struct {
	SegmentID string
	Timestamp float64
	Path      string
}

const maxFramesPerSegment = 8

// Processor wraps the ffmpeg/ffprobe/yt-dlp binaries. Every call takes a
// context and runs through exec.CommandContext so in-flight work can be
// interrupted when its video is deleted.
type Processor struct {
	ffmpegPath  string
	ffprobePath string
	ytdlpPath   string
}

func NewProcessor() (*Processor, error) {
	ffmpegPath, err := exec.LookPath("ffmpeg")
	if err != nil {
		return nil, fmt.Errorf("ffmpeg not found in PATH: %w", err)
	}

	p := &Processor{ffmpegPath: ffmpegPath}

	if ffprobePath, err := exec.LookPath("ffprobe"); err == nil {
		p.ffprobePath = ffprobePath
	}
	if ytdlpPath, err := exec.LookPath("yt-dlp"); err == nil {
		p.ytdlpPath = ytdlpPath
	} else {
		log.Printf("yt-dlp not found in PATH, remote videos will fail to download")
	}

	return p, nil
}

// Download fetches a remote video with yt-dlp, capped at 720p and avoiding
// AV1, which many players cannot decode.
func (p *Processor) Download(ctx context.Context, videoURL, outputPath string) error {
	if p.ytdlpPath == "" {
		return fmt.Errorf("yt-dlp not available")
	}

	cmd := exec.CommandContext(ctx, p.ytdlpPath,
		"-f", "bestvideo[height<=720][vcodec^=avc]+bestaudio/bestvideo[height<=720][vcodec!=av01]+bestaudio/best[height<=720]/best",
		"-o", outputPath,
		videoURL,
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("yt-dlp failed: %s: %w", strings.TrimSpace(stderr.String()), err)
	}

	if _, err := os.Stat(outputPath); err == nil {
		return nil
	}

	// yt-dlp may have appended its own extension; adopt the first match.
	dir := filepath.Dir(outputPath)
	base := strings.TrimSuffix(filepath.Base(outputPath), filepath.Ext(outputPath))
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("failed to locate downloaded file: %w", err)
	}
	for _, entry := range entries {
		if strings.HasPrefix(entry.Name(), base) {
			return os.Rename(filepath.Join(dir, entry.Name()), outputPath)
		}
	}
	return fmt.Errorf("downloaded file not found at %s", outputPath)
}

var titleSanitizer = regexp.MustCompile(`[<>:"/\\|?*]`)

func (p *Processor) Title(ctx context.Context, videoURL string) (string, error) {
	if p.ytdlpPath == "" {
		return "", fmt.Errorf("yt-dlp not available")
	}

	var stdout bytes.Buffer
	cmd := exec.CommandContext(ctx, p.ytdlpPath, "--get-title", videoURL)
	cmd.Stdout = &stdout
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("yt-dlp --get-title failed: %w", err)
	}

	title := titleSanitizer.ReplaceAllString(strings.TrimSpace(stdout.String()), "")
	if len(title) > 100 {
		title = title[:100]
	}
	return title, nil
}

func (p *Processor) Probe(ctx context.Context, videoPath string) (float64, error) {
	if p.ffprobePath != "" {
		var stdout bytes.Buffer
		cmd := exec.CommandContext(ctx, p.ffprobePath,
			"-v", "error",
			"-show_entries", "format=duration",
			"-of", "default=noprint_wrappers=1:nokey=1",
			videoPath)
		cmd.Stdout = &stdout

		if err := cmd.Run(); err == nil {
			if duration, err := strconv.ParseFloat(strings.TrimSpace(stdout.String()), 64); err == nil && duration > 0 {
				return duration, nil
			}
		}
	}

	// Fall back to scraping ffmpeg's banner output.
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, p.ffmpegPath, "-i", videoPath, "-f", "null", "-")
	cmd.Stderr = &stderr
	_ = cmd.Run()

	output := stderr.String()
	start := strings.Index(output, "Duration: ")
	if start == -1 {
		return 0, fmt.Errorf("duration not found in ffmpeg output")
	}
	start += len("Duration: ")
	end := strings.Index(output[start:], ",")
	if end == -1 {
		return 0, fmt.Errorf("invalid duration format")
	}

	parts := strings.Split(output[start:start+end], ":")
	if len(parts) != 3 {
		return 0, fmt.Errorf("invalid duration format: %s", output[start:start+end])
	}
	hours, err := strconv.ParseFloat(parts[0], 64)
	if err != nil {
		return 0, err
	}
	minutes, err := strconv.ParseFloat(parts[1], 64)
	if err != nil {
		return 0, err
	}
	seconds, err := strconv.ParseFloat(parts[2], 64)
	if err != nil {
		return 0, err
	}
	return hours*3600 + minutes*60 + seconds, nil
}

// ExtractAudio pulls the audio track out as 16 kHz mono mp3, the sample rate
// the transcription models expect.
func (p *Processor) ExtractAudio(ctx context.Context, videoPath, audioPath string) error {
	cmd := exec.CommandContext(ctx, p.ffmpegPath,
		"-i", videoPath,
		"-vn",
		"-acodec", "libmp3lame",
		"-ar", "16000",
		"-ac", "1",
		"-b:a", "128k",
		"-y",
		audioPath,
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg audio extraction failed: %s: %w", strings.TrimSpace(stderr.String()), err)
	}

	info, err := os.Stat(audioPath)
	if err != nil {
		return fmt.Errorf("audio file was not created: %w", err)
	}
	if info.Size() < 1000 {
		return fmt.Errorf("audio file is too small (%d bytes), the video may not contain audio", info.Size())
	}
	return nil
}

// SampleFrames extracts stills across each segment's time span at the given
// rate (frames per second, e.g. 0.5 for one frame every two seconds).
func (p *Processor) SampleFrames(ctx context.Context, videoPath, outDir string, segments []SegmentSpan, rate float64) ([]Frame, error) {
	if rate <= 0 {
		rate = 0.5
	}
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create frames directory: %w", err)
	}

	interval := 1.0 / rate
	var frames []Frame
	for _, seg := range segments {
		count := 0
		for ts := seg.Start; ts < seg.End && count < maxFramesPerSegment; ts += interval {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			framePath := filepath.Join(outDir, fmt.Sprintf("%s_%.2f.jpg", seg.ID, ts))
			if err := p.extractStill(ctx, videoPath, ts, framePath); err != nil {
				log.Printf("Failed to extract frame at %.2fs: %v", ts, err)
				continue
			}
			frames = append(frames, Frame{SegmentID: seg.ID, Timestamp: ts, Path: framePath})
			count++
		}
	}
	return frames, nil
}

// SegmentSpan is the slice of a transcript segment SampleFrames needs.
type SegmentSpan struct {
	ID    string
	Start float64
	End   float64
}

func (p *Processor) extractStill(ctx context.Context, videoPath string, timestamp float64, outPath string) error {
	cmd := exec.CommandContext(ctx, p.ffmpegPath,
		"-ss", fmt.Sprintf("%.2f", timestamp),
		"-i", videoPath,
		"-vframes", "1",
		"-vf", "scale=512:-1",
		"-q:v", "2",
		"-y",
		outPath,
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to extract frame at %.2f: %s: %w", timestamp, strings.TrimSpace(stderr.String()), err)
	}
	return nil
}

// Thumbnail captures one frame at 10% of the duration, scaled to 320px wide.
func (p *Processor) Thumbnail(ctx context.Context, videoPath, outPath string, duration float64) error {
	timestamp := 5.0
	if duration > 0 {
		timestamp = duration * 0.1
	}

	cmd := exec.CommandContext(ctx, p.ffmpegPath,
		"-i", videoPath,
		"-ss", fmt.Sprintf("%.2f", timestamp),
		"-vframes", "1",
		"-vf", "scale=320:-1",
		"-y",
		outPath,
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("thumbnail generation failed: %s: %w", strings.TrimSpace(stderr.String()), err)
	}
	return nil
}
