package adapter

import (
	"github.com/akolanti/docmind/internal/api"
	"github.com/akolanti/docmind/internal/domain/documentModel"
	"github.com/akolanti/docmind/internal/semantic/qdrantDB"
)

func ToDocumentResponse(doc *documentModel.Document, jobID string) api.DocumentResponse {
	meta := doc.Meta()
	tags := []string(doc.Tags)
	if tags == nil {
		tags = []string{}
	}
	return api.DocumentResponse{
		Id:                  doc.ID,
		Title:               doc.Title,
		OriginalFormat:      string(doc.OriginalFormat),
		SourceURL:           doc.SourceURL,
		Status:              string(doc.Status),
		ProcessingError:     doc.ProcessingError,
		HasRestructuredText: doc.RestructuredText != nil && *doc.RestructuredText != "",
		Metadata: api.DocumentMetadata{
			OriginalFilename: meta.OriginalFilename,
			SizeBytes:        meta.SizeBytes,
			MimeType:         meta.MimeType,
			WordCount:        meta.WordCount,
			PageCount:        meta.PageCount,
			Author:           meta.Author,
			Warnings:         meta.Warnings,
		},
		Tags:      tags,
		Version:   doc.Version,
		JobId:     jobID,
		CreatedAt: doc.CreatedAt,
		UpdatedAt: doc.UpdatedAt,
	}
}

func ToDocumentListResponse(docs []documentModel.Document) api.DocumentListResponse {
	out := make([]api.DocumentResponse, 0, len(docs))
	for i := range docs {
		out = append(out, ToDocumentResponse(&docs[i], ""))
	}
	return api.DocumentListResponse{Documents: out, Count: len(out)}
}

func ToSummaryResponses(summaries []documentModel.Summary) []api.SummaryResponse {
	out := make([]api.SummaryResponse, 0, len(summaries))
	for _, s := range summaries {
		out = append(out, api.SummaryResponse{
			Id:               s.ID,
			DocumentId:       s.DocumentID,
			Type:             string(s.Type),
			Language:         s.Language,
			IncludeKeyPoints: s.IncludeKeyPoints,
			Content:          s.Content,
			UpdatedAt:        s.UpdatedAt,
		})
	}
	return out
}

func ToConceptResponses(concepts []documentModel.Concept) []api.ConceptResponse {
	out := make([]api.ConceptResponse, 0, len(concepts))
	for _, c := range concepts {
		occ := make([]api.Occurrence, 0, len(c.Occurrences))
		for _, o := range c.Occurrences {
			occ = append(occ, api.Occurrence{Position: o.Position, Context: o.Context, Confidence: o.Confidence})
		}
		related := []string(c.RelatedTerms)
		if related == nil {
			related = []string{}
		}
		out = append(out, api.ConceptResponse{
			Id:           c.ID,
			Term:         c.Term,
			Definition:   c.Definition,
			Category:     c.Category,
			Importance:   c.Importance,
			Occurrences:  occ,
			RelatedTerms: related,
		})
	}
	return out
}

func ToExerciseSetResponse(set documentModel.ExerciseSet) api.ExerciseSetResponse {
	exercises := make([]api.Exercise, 0, len(set.Exercises))
	for _, e := range set.Exercises {
		exercises = append(exercises, api.Exercise{
			Type:          string(e.Type),
			Question:      e.Question,
			Options:       e.Options,
			CorrectAnswer: e.CorrectAnswer,
			Explanation:   e.Explanation,
		})
	}
	return api.ExerciseSetResponse{
		Id:         set.ID,
		DocumentId: set.DocumentID,
		Difficulty: set.Difficulty,
		Language:   set.Language,
		Exercises:  exercises,
		CreatedAt:  set.CreatedAt,
	}
}

func ToExerciseSetResponses(sets []documentModel.ExerciseSet) []api.ExerciseSetResponse {
	out := make([]api.ExerciseSetResponse, 0, len(sets))
	for _, s := range sets {
		out = append(out, ToExerciseSetResponse(s))
	}
	return out
}

func ToMindMapResponse(m *documentModel.MindMap) api.MindMapResponse {
	errs := []string(m.ValidationErrors)
	if errs == nil {
		errs = []string{}
	}
	return api.MindMapResponse{
		Id:               m.ID,
		DocumentId:       m.DocumentID,
		Title:            m.Title,
		Style:            m.Style,
		Language:         m.Language,
		DiagramSource:    m.DiagramSource,
		Valid:            m.Valid,
		ValidationErrors: errs,
		CreatedAt:        m.CreatedAt,
	}
}

func ToSearchResponse(query string, hits []qdrantDB.Hit) api.SearchResponse {
	out := make([]api.SearchHit, 0, len(hits))
	for _, h := range hits {
		out = append(out, api.SearchHit{ChunkId: h.ChunkId, ChunkOrder: h.ChunkOrder, Content: h.Content, Score: h.Score})
	}
	return api.SearchResponse{Query: query, Hits: out}
}
