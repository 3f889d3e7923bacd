package api

import (
	"net/http"
	"os"
	"path/filepath"

	"github.com/go-chi/chi/v5"
)

var videoContentTypes = map[string]string{
	".mp4":  "video/mp4",
	".mkv":  "video/x-matroska",
	".avi":  "video/x-msvideo",
	".webm": "video/webm",
	".mov":  "video/quicktime",
	".m4v":  "video/x-m4v",
}

// StreamVideoHandler serves the raw video file. ServeContent handles Range
// requests, so players can seek without downloading the whole file.
func (app *App) StreamVideoHandler(w http.ResponseWriter, r *http.Request) {
	videoID := chi.URLParam(r, "id")

	video, err := app.Library.Registry().Get(videoID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	file, err := app.Storage.Open(video.FilePath)
	if err != nil {
		writeError(w, http.StatusNotFound, "not_found", "video file not found")
		return
	}
	defer file.Close()

	stat, err := file.(interface{ Stat() (os.FileInfo, error) }).Stat()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "error accessing video file")
		return
	}

	ext := filepath.Ext(video.FilePath)
	if contentType, ok := videoContentTypes[ext]; ok {
		w.Header().Set("Content-Type", contentType)
	}
	http.ServeContent(w, r, filepath.Base(video.FilePath), stat.ModTime(), file)
}

func (app *App) ThumbnailHandler(w http.ResponseWriter, r *http.Request) {
	videoID := chi.URLParam(r, "id")

	video, err := app.Library.Registry().Get(videoID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if video.ThumbnailPath == "" {
		writeError(w, http.StatusNotFound, "not_found", "video has no thumbnail")
		return
	}

	w.Header().Set("Cache-Control", "public, max-age=3600")
	http.ServeFile(w, r, video.ThumbnailPath)
}

// FrameHandler serves one sampled frame image. The filename comes from the
// URL, so it goes through storage.FramePath, which rejects traversal.
func (app *App) FrameHandler(w http.ResponseWriter, r *http.Request) {
	videoID := chi.URLParam(r, "videoId")
	filename := chi.URLParam(r, "filename")

	if _, err := app.Library.Registry().Get(videoID); err != nil {
		writeDomainError(w, err)
		return
	}

	framePath, err := app.Storage.FramePath(videoID, filename)
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_error", "invalid frame name")
		return
	}
	if _, err := os.Stat(framePath); err != nil {
		writeError(w, http.StatusNotFound, "not_found", "frame not found")
		return
	}

	w.Header().Set("Cache-Control", "public, max-age=3600")
	http.ServeFile(w, r, framePath)
}

