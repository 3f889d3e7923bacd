package library

import "errors"

var (
	ErrNotFound          = errors.New("video not found")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrUnsupportedFile   = errors.New("unsupported video file type")
	ErrInvalidURL        = errors.New("invalid video URL")
)
