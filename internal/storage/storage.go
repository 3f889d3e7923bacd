package storage

import "io"

// Storage abstracts where video files, thumbnails and sampled frames live.
type Storage interface {
	SaveVideo(videoID, ext string, r io.Reader) (string, error)
	VideoPath(videoID, ext string) string
	AudioPath(videoID string) string
	ThumbnailPath(videoID string) string
	FramesDir(videoID string) string
	FramePath(videoID, filename string) (string, error)
	Open(path string) (io.ReadSeekCloser, error)
	Remove(path string) error
	RemoveFrames(videoID string) error
}
