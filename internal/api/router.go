package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func NewRouter(app *App) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/ping", PingHandler)

	r.Route("/library", func(r chi.Router) {
		r.Post("/videos/youtube", app.AddYouTubeHandler)
		r.Post("/videos/upload", app.UploadHandler)
		r.Get("/videos", app.ListVideosHandler)
		r.Get("/videos/grouped", app.ListGroupedHandler)
		r.Get("/videos/{id}", app.VideoDetailHandler)
		r.Get("/videos/{id}/transcript", app.TranscriptHandler)
		r.Delete("/videos/{id}", app.DeleteVideoHandler)
		r.Post("/videos/{id}/retry", app.RetryVideoHandler)
		r.Get("/status", app.LibraryStatusHandler)
		r.Delete("/clear", app.ClearLibraryHandler)
	})

	r.Post("/search/query", app.SearchHandler)

	r.Get("/llms", app.ListModelsHandler)
	r.Post("/llms/select", app.SelectModelHandler)

	r.Post("/summarize", app.SummarizeHandler)

	r.Route("/media", func(r chi.Router) {
		r.Get("/video/{id}", app.StreamVideoHandler)
		r.Get("/thumbnail/{id}", app.ThumbnailHandler)
		r.Get("/frames/{videoId}/{filename}", app.FrameHandler)
	})

	return r
}

func PingHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("pong"))
}
