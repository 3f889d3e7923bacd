package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

type LocalStorage struct {
	basePath string
}

func NewLocalStorage(basePath string) (*LocalStorage, error) {
	for _, dir := range []string{basePath, filepath.Join(basePath, "videos"), filepath.Join(basePath, "thumbnails"), filepath.Join(basePath, "frames")} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create storage directory: %w", err)
		}
	}
	return &LocalStorage{basePath: basePath}, nil
}

func (ls *LocalStorage) SaveVideo(videoID, ext string, r io.Reader) (string, error) {
	if ext == "" {
		ext = ".mp4"
	}
	fullPath := ls.VideoPath(videoID, ext)

	dst, err := os.Create(fullPath)
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, r); err != nil {
		os.Remove(fullPath)
		return "", fmt.Errorf("failed to save file: %w", err)
	}

	return fullPath, nil
}

func (ls *LocalStorage) VideoPath(videoID, ext string) string {
	if ext == "" {
		ext = ".mp4"
	}
	return filepath.Join(ls.basePath, "videos", videoID+ext)
}

func (ls *LocalStorage) AudioPath(videoID string) string {
	return filepath.Join(ls.basePath, "videos", videoID+".mp3")
}

func (ls *LocalStorage) ThumbnailPath(videoID string) string {
	return filepath.Join(ls.basePath, "thumbnails", videoID+".jpg")
}

func (ls *LocalStorage) FramesDir(videoID string) string {
	return filepath.Join(ls.basePath, "frames", videoID)
}

// FramePath resolves a frame image inside a video's frames directory, rejecting
// anything that would escape it.
func (ls *LocalStorage) FramePath(videoID, filename string) (string, error) {
	if strings.Contains(videoID, "..") || strings.Contains(filename, "..") ||
		strings.ContainsAny(filename, `/\`) {
		return "", fmt.Errorf("invalid path")
	}
	return filepath.Join(ls.FramesDir(videoID), filepath.Clean(filename)), nil
}

func (ls *LocalStorage) Open(path string) (io.ReadSeekCloser, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	return file, nil
}

func (ls *LocalStorage) Remove(path string) error {
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

func (ls *LocalStorage) RemoveFrames(videoID string) error {
	if strings.Contains(videoID, "..") {
		return fmt.Errorf("invalid path")
	}
	if err := os.RemoveAll(ls.FramesDir(videoID)); err != nil {
		return fmt.Errorf("failed to delete frames: %w", err)
	}
	return nil
}
