package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kdimtricp/vsearch/internal/ai"
	"github.com/kdimtricp/vsearch/internal/library"
	"github.com/kdimtricp/vsearch/internal/models"
	"github.com/kdimtricp/vsearch/internal/search"
	"github.com/kdimtricp/vsearch/internal/storage"
)

type App struct {
	Library       *library.Service
	Search        *search.Orchestrator
	LLM           *ai.LLMService
	Storage       storage.Storage
	MaxUploadSize int64
}

type addYouTubeRequest struct {
	URL   string `json:"url"`
	Model string `json:"model,omitempty"`
}

func (app *App) AddYouTubeHandler(w http.ResponseWriter, r *http.Request) {
	var req addYouTubeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "validation_error", "invalid JSON body")
		return
	}

	video, err := app.Library.AddYouTubeVideo(r.Context(), req.URL, req.Model)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]any{
		"videoId": video.ID,
		"title":   video.Title,
		"status":  video.Status,
	})
}

type uploadError struct {
	Filename string `json:"filename"`
	Error    string `json:"error"`
}

func (app *App) UploadHandler(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, app.MaxUploadSize)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeError(w, http.StatusBadRequest, "validation_error", "invalid multipart body or file too large")
		return
	}

	whisperModel := r.FormValue("model")

	var added []*models.Video
	var failed []uploadError
	for _, header := range r.MultipartForm.File["videos"] {
		file, err := header.Open()
		if err != nil {
			failed = append(failed, uploadError{Filename: header.Filename, Error: err.Error()})
			continue
		}
		video, err := app.Library.AddUploadedVideo(r.Context(), header.Filename, file, whisperModel)
		file.Close()
		if err != nil {
			failed = append(failed, uploadError{Filename: header.Filename, Error: err.Error()})
			continue
		}
		added = append(added, video)
	}

	if added == nil {
		added = []*models.Video{}
	}
	if failed == nil {
		failed = []uploadError{}
	}
	status := http.StatusAccepted
	if len(added) == 0 && len(failed) > 0 {
		status = http.StatusBadRequest
	}
	writeJSON(w, status, map[string]any{
		"added":  added,
		"errors": failed,
	})
}

func (app *App) ListVideosHandler(w http.ResponseWriter, r *http.Request) {
	videos := app.Library.Registry().List()
	processing := 0
	for _, video := range videos {
		if video.Status == models.StatusProcessing || video.Status == models.StatusPending {
			processing++
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"videos":          videos,
		"processingCount": processing,
		"totalCount":      len(videos),
	})
}

func (app *App) ListGroupedHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"groups": app.Library.Registry().ListGrouped(),
	})
}

func (app *App) VideoDetailHandler(w http.ResponseWriter, r *http.Request) {
	videoID := chi.URLParam(r, "id")

	video, err := app.Library.Registry().Get(videoID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	transcript, segmentCount, err := app.Library.Registry().TranscriptText(r.Context(), videoID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"video":        video,
		"transcript":   transcript,
		"segmentCount": segmentCount,
	})
}

func (app *App) TranscriptHandler(w http.ResponseWriter, r *http.Request) {
	videoID := chi.URLParam(r, "id")

	segments, err := app.Library.Registry().Segments(r.Context(), videoID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if segments == nil {
		segments = []models.TranscriptSegment{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"videoId":  videoID,
		"segments": segments,
	})
}

func (app *App) DeleteVideoHandler(w http.ResponseWriter, r *http.Request) {
	videoID := chi.URLParam(r, "id")

	if err := app.Library.Delete(r.Context(), videoID); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": videoID})
}

func (app *App) RetryVideoHandler(w http.ResponseWriter, r *http.Request) {
	videoID := chi.URLParam(r, "id")

	if err := app.Library.Retry(r.Context(), videoID); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"videoId": videoID, "status": models.StatusPending})
}

func (app *App) LibraryStatusHandler(w http.ResponseWriter, r *http.Request) {
	queueLength, processing := app.Library.Status()
	if processing == nil {
		processing = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"queueLength": queueLength,
		"processing":  processing,
	})
}

func (app *App) ClearLibraryHandler(w http.ResponseWriter, r *http.Request) {
	deleted, errs := app.Library.Clear(r.Context())
	if errs == nil {
		errs = []library.ClearError{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"deleted": deleted,
		"errors":  errs,
	})
}
