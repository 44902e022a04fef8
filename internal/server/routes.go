package server

import (
	"github.com/akolanti/docmind/internal/adapter/utils"
	"github.com/akolanti/docmind/internal/handlers"
	"github.com/akolanti/docmind/internal/middleware"
	"github.com/go-chi/chi/v5"
)

// Routes mounts every endpoint. Only /healthz, /metrics and the swagger UI skip auth.
func Routes(h *handlers.Handler, mw *middleware.Middleware) *chi.Mux {
	r := utils.NewRouter()

	r.Get("/healthz", mw.Public(h.Health))
	r.Get("/jobs/{id}", mw.Wrap(h.GetJobStatus))

	r.Post("/documents", mw.Wrap(h.UploadDocument))
	r.Post("/documents:url", mw.Wrap(h.CreateURLDocument))
	r.Get("/documents", mw.Wrap(h.ListDocuments))

	r.Route("/documents/{id}", func(r chi.Router) {
		r.Get("/", mw.Wrap(h.GetDocument))
		r.Delete("/", mw.Wrap(h.DeleteDocument))
		r.Get("/download", mw.Wrap(h.DownloadDocument))
		r.Get("/extractedText", mw.Wrap(h.GetExtractedText))
		r.Post("/reprocess", mw.Wrap(h.ReprocessDocument))

		r.Get("/ai/restructure", mw.Wrap(h.GetRestructured))
		r.Get("/ai/summary", mw.Wrap(h.GetSummaries))
		r.Get("/ai/concepts", mw.Wrap(h.GetConcepts))
		r.Post("/ai/exercises", mw.Wrap(h.GenerateExercises))
		r.Get("/ai/exercises", mw.Wrap(h.ListExercises))
		r.Post("/ai/mindmap", mw.Wrap(h.GenerateMindMap))
		r.Get("/ai/mindmap", mw.Wrap(h.GetMindMap))
		r.Get("/ai/search", mw.Wrap(h.SearchDocument))
	})

	return r
}
