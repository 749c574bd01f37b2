package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/postervoice/talkinghead-api/internal/job"
	"github.com/postervoice/talkinghead-api/internal/pipeline"
	"github.com/postervoice/talkinghead-api/internal/request"
	"github.com/postervoice/talkinghead-api/internal/stage"
)

// Handlers contains the HTTP handlers for the API.
type Handlers struct {
	orch   *pipeline.Orchestrator
	logger *slog.Logger
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(orch *pipeline.Orchestrator, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{orch: orch, logger: logger}
}

// Health handles GET /health requests.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// Generate handles POST /generate requests: submit an async full-pipeline
// run and return the job to poll. Duplicate in-flight requests share a job.
func (h *Handlers) Generate(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decode(w, r)
	if !ok {
		return
	}

	snap, err := h.orch.Submit(r.Context(), req.toRaw())
	if err != nil {
		h.writeSubmitError(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, SubmitResponse{
		ID:     snap.ID,
		Status: string(snap.Status),
	})
}

// GenerateAd handles POST /ad requests: the full stage chain driven by a text
// brief instead of a catalog subject.
func (h *Handlers) GenerateAd(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decode(w, r)
	if !ok {
		return
	}

	raw := req.toRaw()
	raw.Entry = request.EntryAd

	snap, err := h.orch.Submit(r.Context(), raw)
	if err != nil {
		h.writeSubmitError(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, SubmitResponse{
		ID:     snap.ID,
		Status: string(snap.Status),
	})
}

// GenerateSync handles POST /generate/sync requests: run the full pipeline
// and block until the terminal state.
func (h *Handlers) GenerateSync(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decode(w, r)
	if !ok {
		return
	}

	res, err := h.orch.GenerateFull(r.Context(), req.toRaw())
	if err != nil {
		h.writeSubmitError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, ResultResponse{
		JobID:         res.JobID,
		Script:        res.Script,
		AudioURL:      res.AudioURL,
		AudioDuration: res.AudioDuration,
		VideoURL:      res.VideoURL,
		VideoDuration: res.VideoDuration,
		Sources:       sourcesDTO(res.Sources),
	})
}

// GetJob handles GET /jobs/{id} requests.
func (h *Handlers) GetJob(w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("id")
	if jobID == "" {
		writeError(w, http.StatusBadRequest, "job ID is required", "MISSING_JOB_ID")
		return
	}

	snap, err := h.orch.GetJob(jobID)
	if err != nil {
		if errors.Is(err, job.ErrJobNotFound) {
			writeError(w, http.StatusNotFound, "job not found", "JOB_NOT_FOUND")
			return
		}
		h.logger.Error("failed to get job",
			slog.String("job_id", jobID),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to get job", "JOB_FETCH_FAILED")
		return
	}

	resp := JobResponse{
		ID:            snap.ID,
		Status:        string(snap.Status),
		Script:        snap.Script,
		AudioURL:      snap.AudioURL,
		AudioDuration: snap.AudioDuration,
		VideoURL:      snap.VideoURL,
		VideoDuration: snap.VideoDuration,
		Sources:       sourcesDTO(snap.Sources),
		Attempts:      attemptsDTO(snap.Attempts),
	}
	if snap.Error != nil {
		resp.Error = &JobErrorInfo{
			Stage:   string(snap.Error.Stage),
			Class:   snap.Error.Class,
			Message: snap.Error.Message,
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

// Script handles POST /script requests.
func (h *Handlers) Script(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decode(w, r)
	if !ok {
		return
	}

	res, err := h.orch.GenerateScript(r.Context(), req.toRaw())
	if err != nil {
		h.writeStageError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, ScriptResponse{
		Script: res.Script,
		Source: string(res.Source),
	})
}

// Audio handles POST /audio requests.
func (h *Handlers) Audio(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decode(w, r)
	if !ok {
		return
	}

	res, err := h.orch.GenerateAudio(r.Context(), req.toRaw())
	if err != nil {
		h.writeStageError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, AudioResponse{
		AudioURL: res.AudioURL,
		Duration: res.Duration,
		Source:   string(res.Source),
	})
}

// Video handles POST /video requests.
func (h *Handlers) Video(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decode(w, r)
	if !ok {
		return
	}

	res, err := h.orch.GenerateVideo(r.Context(), req.toRaw())
	if err != nil {
		h.writeStageError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, VideoResponse{
		VideoURL: res.VideoURL,
		Duration: res.Duration,
		Source:   string(res.Source),
	})
}

// decode parses the JSON request body, writing a 400 on failure.
func (h *Handlers) decode(w http.ResponseWriter, r *http.Request) (GenerateRequest, bool) {
	var req GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("failed to decode request body",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadRequest, "invalid JSON body", "INVALID_JSON")
		return GenerateRequest{}, false
	}
	return req, true
}

// writeSubmitError maps orchestration entry errors onto HTTP responses.
func (h *Handlers) writeSubmitError(w http.ResponseWriter, err error) {
	switch {
	case request.IsValidation(err):
		writeError(w, http.StatusBadRequest, err.Error(), "VALIDATION_ERROR")
	case errors.Is(err, pipeline.ErrUnsupportedEntry):
		writeError(w, http.StatusBadRequest, err.Error(), "UNSUPPORTED_ENTRY")
	default:
		var jobErr *pipeline.JobError
		if errors.As(err, &jobErr) {
			writeError(w, http.StatusBadGateway, jobErr.Error(), "GENERATION_FAILED")
			return
		}
		h.logger.Error("generation failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "generation failed", "INTERNAL_ERROR")
	}
}

// writeStageError maps single-stage errors onto HTTP responses.
func (h *Handlers) writeStageError(w http.ResponseWriter, err error) {
	switch {
	case request.IsValidation(err):
		writeError(w, http.StatusBadRequest, err.Error(), "VALIDATION_ERROR")
	case stage.IsTransient(err):
		writeError(w, http.StatusServiceUnavailable, err.Error(), "PROVIDER_UNAVAILABLE")
	case stage.IsPermanent(err):
		writeError(w, http.StatusBadGateway, err.Error(), "GENERATION_FAILED")
	default:
		h.logger.Error("stage generation failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "generation failed", "INTERNAL_ERROR")
	}
}

func sourcesDTO(src map[stage.Kind]stage.Source) map[string]string {
	if len(src) == 0 {
		return nil
	}
	out := make(map[string]string, len(src))
	for k, v := range src {
		out[string(k)] = string(v)
	}
	return out
}

func attemptsDTO(att map[stage.Kind]int) map[string]int {
	if len(att) == 0 {
		return nil
	}
	out := make(map[string]int, len(att))
	for k, v := range att {
		out[string(k)] = v
	}
	return out
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
	}
}

// writeError writes an error response in the standard format.
func writeError(w http.ResponseWriter, status int, message, code string) {
	writeJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}
