package api

import (
	"net/http"

	"github.com/kdimtricp/vsearch/internal/models"
	"github.com/kdimtricp/vsearch/internal/search"
)

func (app *App) SearchHandler(w http.ResponseWriter, r *http.Request) {
	var req search.Request
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "validation_error", "invalid JSON body")
		return
	}

	resp, err := app.Search.Query(r.Context(), req)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"question":       resp.Question,
		"videoIds":       resp.VideoIDs,
		"searchType":     resp.SearchType,
		"results":        resp.Results,
		"resultsByVideo": search.GroupByVideo(resp.Results),
		"summary":        resp.Summary,
		"notAddressed":   resp.NotAddressed,
		"modelId":        resp.ModelID,
	})
}

func (app *App) ListModelsHandler(w http.ResponseWriter, r *http.Request) {
	infos, activeID, hasAccelerator := app.LLM.List()
	writeJSON(w, http.StatusOK, map[string]any{
		"models":         infos,
		"activeModelId":  activeID,
		"hasAccelerator": hasAccelerator,
	})
}

type selectModelRequest struct {
	ModelID string `json:"modelId"`
}

func (app *App) SelectModelHandler(w http.ResponseWriter, r *http.Request) {
	var req selectModelRequest
	if err := decodeJSON(r, &req); err != nil || req.ModelID == "" {
		writeError(w, http.StatusBadRequest, "validation_error", "modelId is required")
		return
	}

	if err := app.LLM.Select(r.Context(), req.ModelID); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"activeModelId": req.ModelID})
}

type summarizeRequest struct {
	VideoID string `json:"videoId"`
}

func (app *App) SummarizeHandler(w http.ResponseWriter, r *http.Request) {
	var req summarizeRequest
	if err := decodeJSON(r, &req); err != nil || req.VideoID == "" {
		writeError(w, http.StatusBadRequest, "validation_error", "videoId is required")
		return
	}

	video, err := app.Library.Registry().Get(req.VideoID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if video.Status != models.StatusCompleted {
		writeError(w, http.StatusConflict, "conflict", "video is not processed yet")
		return
	}

	transcript, _, err := app.Library.Registry().TranscriptText(r.Context(), req.VideoID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	summary, err := app.LLM.GenerateSummary(r.Context(), transcript)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"videoId": req.VideoID,
		"summary": summary,
	})
}
