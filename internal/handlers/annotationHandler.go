package handlers

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/akolanti/docmind/internal/adapter"
	"github.com/akolanti/docmind/internal/adapter/utils"
	"github.com/akolanti/docmind/internal/api"
	"github.com/akolanti/docmind/internal/apperr"
	"github.com/akolanti/docmind/internal/domain/documentModel"
	"github.com/akolanti/docmind/internal/pipeline"
)

// GetRestructured godoc
// @Summary      Get AI restructured text
// @Tags         Annotations
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Document ID"
// @Success      200  {object}  api.TextResponse
// @Failure      404  {object}  api.ErrorResponse "Not generated yet"
// @Router       /documents/{id}/ai/restructure [get]
func (h *Handler) GetRestructured(w http.ResponseWriter, r *http.Request) {
	owner, err := ownerFrom(r.Context())
	if err != nil {
		WriteError(w, r, err)
		return
	}
	id := utils.GetChiURLParam(r, "id")
	text, err := h.orch.RestructuredText(r.Context(), owner, id)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	writeJsonResponse(w, http.StatusOK, api.TextResponse{Id: id, Text: text})
}

// GetSummaries godoc
// @Summary      Get summaries
// @Tags         Annotations
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string  true   "Document ID"
// @Param        type  query     string  false  "brief, standard or detailed"
// @Success      200   {array}   api.SummaryResponse
// @Failure      404   {object}  api.ErrorResponse "None generated yet"
// @Router       /documents/{id}/ai/summary [get]
func (h *Handler) GetSummaries(w http.ResponseWriter, r *http.Request) {
	owner, err := ownerFrom(r.Context())
	if err != nil {
		WriteError(w, r, err)
		return
	}
	summaryType := documentModel.SummaryType(strings.ToLower(r.URL.Query().Get("type")))
	summaries, err := h.orch.Summaries(r.Context(), owner, utils.GetChiURLParam(r, "id"), summaryType)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	writeJsonResponse(w, http.StatusOK, adapter.ToSummaryResponses(summaries))
}

// GetConcepts godoc
// @Summary      Get concepts
// @Tags         Annotations
// @Produce      json
// @Security     BearerAuth
// @Param        id          path      string  true   "Document ID"
// @Param        category    query     string  false  "person, place, concept, term, formula, theory or other"
// @Param        importance  query     int     false  "Minimum importance 1-5"
// @Param        limit       query     int     false  "Maximum number of concepts"
// @Success      200  {array}   api.ConceptResponse
// @Failure      404  {object}  api.ErrorResponse "None generated yet"
// @Router       /documents/{id}/ai/concepts [get]
func (h *Handler) GetConcepts(w http.ResponseWriter, r *http.Request) {
	owner, err := ownerFrom(r.Context())
	if err != nil {
		WriteError(w, r, err)
		return
	}
	importance, err := queryInt(r, "importance", 0)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	concepts, err := h.orch.Concepts(r.Context(), owner, utils.GetChiURLParam(r, "id"), documentModel.ConceptFilter{
		Category:      strings.ToLower(r.URL.Query().Get("category")),
		MinImportance: importance,
		Limit:         limit,
	})
	if err != nil {
		WriteError(w, r, err)
		return
	}
	writeJsonResponse(w, http.StatusOK, adapter.ToConceptResponses(concepts))
}

// GenerateExercises godoc
// @Summary      Generate an exercise set
// @Tags         Annotations
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string               true  "Document ID"
// @Param        request  body      api.ExerciseRequest  true  "Count, types, difficulty and language"
// @Success      200      {object}  api.ExerciseSetResponse
// @Failure      400      {object}  api.ErrorResponse "Invalid request or text not extracted yet"
// @Failure      502      {object}  api.ErrorResponse "Model unavailable or malformed output"
// @Router       /documents/{id}/ai/exercises [post]
func (h *Handler) GenerateExercises(w http.ResponseWriter, r *http.Request) {
	owner, err := ownerFrom(r.Context())
	if err != nil {
		WriteError(w, r, err)
		return
	}
	var req api.ExerciseRequest
	if err = decodeJSON(w, r, &req); err != nil {
		WriteError(w, r, err)
		return
	}
	types := make([]documentModel.ExerciseType, 0, len(req.Types))
	for _, t := range req.Types {
		types = append(types, documentModel.ExerciseType(strings.ToLower(strings.TrimSpace(t))))
	}
	set, err := h.orch.GenerateExercises(r.Context(), owner, utils.GetChiURLParam(r, "id"), pipeline.ExerciseRequest{
		Count:      req.Count,
		Types:      types,
		Difficulty: req.Difficulty,
		Language:   req.Language,
	})
	if err != nil {
		WriteError(w, r, err)
		return
	}
	writeJsonResponse(w, http.StatusOK, adapter.ToExerciseSetResponse(*set))
}

// ListExercises godoc
// @Summary      List generated exercise sets
// @Tags         Annotations
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Document ID"
// @Success      200  {array}   api.ExerciseSetResponse
// @Failure      404  {object}  api.ErrorResponse
// @Router       /documents/{id}/ai/exercises [get]
func (h *Handler) ListExercises(w http.ResponseWriter, r *http.Request) {
	owner, err := ownerFrom(r.Context())
	if err != nil {
		WriteError(w, r, err)
		return
	}
	sets, err := h.orch.ExerciseSets(r.Context(), owner, utils.GetChiURLParam(r, "id"))
	if err != nil {
		WriteError(w, r, err)
		return
	}
	writeJsonResponse(w, http.StatusOK, adapter.ToExerciseSetResponses(sets))
}

// GenerateMindMap godoc
// @Summary      Generate a mind map diagram
// @Description  The diagram is stored together with its validation result; an invalid diagram is still returned.
// @Tags         Annotations
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string              true   "Document ID"
// @Param        request  body      api.MindMapRequest  false  "Node budget, language and style"
// @Success      200      {object}  api.MindMapResponse
// @Failure      400      {object}  api.ErrorResponse "Text not extracted yet"
// @Failure      502      {object}  api.ErrorResponse
// @Router       /documents/{id}/ai/mindmap [post]
func (h *Handler) GenerateMindMap(w http.ResponseWriter, r *http.Request) {
	owner, err := ownerFrom(r.Context())
	if err != nil {
		WriteError(w, r, err)
		return
	}
	var req api.MindMapRequest
	// the body is optional
	if err = decodeJSON(w, r, &req); err != nil && !errors.Is(err, io.EOF) {
		WriteError(w, r, err)
		return
	}
	mm, err := h.orch.GenerateMindMap(r.Context(), owner, utils.GetChiURLParam(r, "id"), pipeline.MindMapRequest{
		MaxNodes: req.MaxNodes,
		Language: req.Language,
		Style:    req.Style,
	})
	if err != nil {
		WriteError(w, r, err)
		return
	}
	writeJsonResponse(w, http.StatusOK, adapter.ToMindMapResponse(mm))
}

// GetMindMap godoc
// @Summary      Get the latest mind map
// @Tags         Annotations
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Document ID"
// @Success      200  {object}  api.MindMapResponse
// @Failure      404  {object}  api.ErrorResponse
// @Router       /documents/{id}/ai/mindmap [get]
func (h *Handler) GetMindMap(w http.ResponseWriter, r *http.Request) {
	owner, err := ownerFrom(r.Context())
	if err != nil {
		WriteError(w, r, err)
		return
	}
	mm, err := h.orch.MindMap(r.Context(), owner, utils.GetChiURLParam(r, "id"))
	if err != nil {
		WriteError(w, r, err)
		return
	}
	writeJsonResponse(w, http.StatusOK, adapter.ToMindMapResponse(mm))
}

// SearchDocument godoc
// @Summary      Semantic search within a document
// @Tags         Annotations
// @Produce      json
// @Security     BearerAuth
// @Param        id     path      string  true   "Document ID"
// @Param        q      query     string  true   "Search text"
// @Param        limit  query     int     false  "Maximum hits, at most 20"
// @Success      200    {object}  api.SearchResponse
// @Failure      404    {object}  api.ErrorResponse "Not indexed yet"
// @Failure      503    {object}  api.ErrorResponse "Vector index unavailable"
// @Router       /documents/{id}/ai/search [get]
func (h *Handler) SearchDocument(w http.ResponseWriter, r *http.Request) {
	owner, err := ownerFrom(r.Context())
	if err != nil {
		WriteError(w, r, err)
		return
	}
	limit, err := queryInt(r, "limit", 5)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	hits, err := h.orch.Search(r.Context(), owner, utils.GetChiURLParam(r, "id"), query, limit)
	if apperr.IsKind(err, apperr.UpstreamUnavailable) {
		WriteErrorResponse(w, http.StatusServiceUnavailable, string(apperr.UpstreamUnavailable), apperr.PublicMessage(err), true)
		return
	}
	if err != nil {
		WriteError(w, r, err)
		return
	}
	writeJsonResponse(w, http.StatusOK, adapter.ToSearchResponse(query, hits))
}
