package handlers

import (
	"net/http"

	"github.com/akolanti/docmind/internal/adapter"
	"github.com/akolanti/docmind/internal/adapter/utils"
	"github.com/akolanti/docmind/internal/api"
	"github.com/akolanti/docmind/internal/apperr"
	"github.com/akolanti/docmind/internal/pipeline"
)

// Handler serves the REST surface on top of one orchestrator.
type Handler struct {
	orch           *pipeline.Orchestrator
	maxUploadBytes int64
	ready          func(r *http.Request) error
}

func NewHandler(orch *pipeline.Orchestrator, maxUploadBytes int64, ready func(r *http.Request) error) *Handler {
	return &Handler{orch: orch, maxUploadBytes: maxUploadBytes, ready: ready}
}

// Health godoc
// @Summary      Liveness and readiness
// @Tags         Health
// @Produce      json
// @Success      200  {object}  api.HealthResponse
// @Failure      503  {object}  api.ErrorResponse "Database unreachable"
// @Router       /healthz [get]
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if h.ready != nil {
		if err := h.ready(r); err != nil {
			logRH.FromContext(r.Context()).Error("readiness check failed", "error", err)
			WriteErrorResponse(w, http.StatusServiceUnavailable, string(apperr.UpstreamUnavailable), "database unreachable", true)
			return
		}
	}
	writeJsonResponse(w, http.StatusOK, api.HealthResponse{Status: "ok"})
}

// GetJobStatus godoc
// @Summary      Get job status
// @Description  Retrieves the current status of an extraction or annotation job owned by the caller.
// @Tags         Jobs
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Job ID"
// @Success      200  {object}  api.JobResponse   "The current status of the job"
// @Failure      404  {object}  api.ErrorResponse "Job not found"
// @Router       /jobs/{id} [get]
func (h *Handler) GetJobStatus(w http.ResponseWriter, r *http.Request) {
	owner, err := ownerFrom(r.Context())
	if err != nil {
		WriteError(w, r, err)
		return
	}
	j, err := h.orch.Job(r.Context(), owner, utils.GetChiURLParam(r, "id"))
	if err != nil {
		WriteError(w, r, err)
		return
	}
	writeJsonResponse(w, http.StatusOK, adapter.ToJobResponse(j))
}
