package api

import "time"

// responses---------------------

type ErrorResponse struct {
	Error OutgoingError `json:"error"`
}

type OutgoingError struct {
	Code    int    `json:"code" example:"404"`
	Kind    string `json:"kind" example:"not_found"`
	Message string `json:"message" example:"document not found"`
	Retry   bool   `json:"can_retry" example:"false"`
}

type DocumentMetadata struct {
	OriginalFilename string   `json:"original_filename,omitempty" example:"biology.pdf"`
	SizeBytes        int64    `json:"size_bytes" example:"48213"`
	MimeType         string   `json:"mime_type,omitempty" example:"application/pdf"`
	WordCount        int      `json:"word_count" example:"5120"`
	PageCount        int      `json:"page_count" example:"12"`
	Author           string   `json:"author,omitempty"`
	Warnings         []string `json:"warnings,omitempty"`
}

type DocumentResponse struct {
	Id                  string           `json:"id" example:"4c1f0d1e-3b9b-4f7b-9d8e-2b8f0a0c6f11"`
	Title               string           `json:"title" example:"Cell biology"`
	OriginalFormat      string           `json:"original_format" example:"pdf"`
	SourceURL           string           `json:"source_url,omitempty"`
	Status              string           `json:"status" example:"completed"`
	ProcessingError     *string          `json:"processing_error"`
	HasRestructuredText bool             `json:"has_restructured_text"`
	Metadata            DocumentMetadata `json:"metadata"`
	Tags                []string         `json:"tags"`
	Version             int64            `json:"version" example:"3"`
	JobId               string           `json:"job_id,omitempty"`
	CreatedAt           time.Time        `json:"created_at"`
	UpdatedAt           time.Time        `json:"updated_at"`
}

type DocumentListResponse struct {
	Documents []DocumentResponse `json:"documents"`
	Count     int                `json:"count"`
}

type TextResponse struct {
	Id        string `json:"id"`
	Text      string `json:"text"`
	WordCount int    `json:"word_count,omitempty"`
	PageCount int    `json:"page_count,omitempty"`
}

type SummaryResponse struct {
	Id               string    `json:"id"`
	DocumentId       string    `json:"document_id"`
	Type             string    `json:"type" example:"standard"`
	Language         string    `json:"language" example:"en"`
	IncludeKeyPoints bool      `json:"include_key_points"`
	Content          string    `json:"content"`
	UpdatedAt        time.Time `json:"updated_at"`
}

type Occurrence struct {
	Position   int     `json:"position"`
	Context    string  `json:"context"`
	Confidence float64 `json:"confidence"`
}

type ConceptResponse struct {
	Id           string       `json:"id"`
	Term         string       `json:"term" example:"mitochondria"`
	Definition   string       `json:"definition"`
	Category     string       `json:"category" example:"concept"`
	Importance   int          `json:"importance" example:"4"`
	Occurrences  []Occurrence `json:"occurrences"`
	RelatedTerms []string     `json:"related_terms"`
}

type Exercise struct {
	Type          string   `json:"type" example:"multiple_choice"`
	Question      string   `json:"question"`
	Options       []string `json:"options,omitempty"`
	CorrectAnswer string   `json:"correctAnswer"`
	Explanation   string   `json:"explanation"`
}

type ExerciseSetResponse struct {
	Id         string     `json:"id"`
	DocumentId string     `json:"document_id"`
	Difficulty string     `json:"difficulty"`
	Language   string     `json:"language"`
	Exercises  []Exercise `json:"exercises"`
	CreatedAt  time.Time  `json:"created_at"`
}

type MindMapResponse struct {
	Id               string    `json:"id"`
	DocumentId       string    `json:"document_id"`
	Title            string    `json:"title"`
	Style            string    `json:"style,omitempty"`
	Language         string    `json:"language"`
	DiagramSource    string    `json:"diagramSource"`
	Valid            bool      `json:"valid"`
	ValidationErrors []string  `json:"validation_errors"`
	CreatedAt        time.Time `json:"created_at"`
}

type SearchHit struct {
	ChunkId    string  `json:"chunk_id"`
	ChunkOrder int     `json:"chunk_order"`
	Content    string  `json:"content"`
	Score      float32 `json:"score"`
}

type SearchResponse struct {
	Query string      `json:"query"`
	Hits  []SearchHit `json:"hits"`
}

type JobResponse struct {
	Id         string         `json:"id" example:"job_cz109"`
	DocumentId string         `json:"document_id"`
	Type       string         `json:"type" example:"Extract"`
	Status     string         `json:"status" example:"RUNNING"`
	Step       string         `json:"step" example:"Extracting"`
	Error      *OutgoingError `json:"error,omitempty"`
	StartTime  time.Time      `json:"start_time"`
	EndTime    *time.Time     `json:"end_time,omitempty"`
}

type HealthResponse struct {
	Status string `json:"status" example:"ok"`
}

// requests---------------------

type URLDocumentRequest struct {
	URL   string   `json:"url" validate:"required" example:"https://example.com/article"`
	Title string   `json:"title,omitempty"`
	Tags  []string `json:"tags,omitempty"`
}

type ExerciseRequest struct {
	Count      int      `json:"count" example:"5"`
	Types      []string `json:"types,omitempty" example:"multiple_choice,true_false"`
	Difficulty string   `json:"difficulty,omitempty" example:"medium"`
	Language   string   `json:"language,omitempty" example:"en"`
}

type MindMapRequest struct {
	MaxNodes int    `json:"maxNodes,omitempty" example:"30"`
	Language string `json:"language,omitempty" example:"en"`
	Style    string `json:"style,omitempty" example:"hierarchical"`
}
