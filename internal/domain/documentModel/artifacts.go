package documentModel

import (
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type SummaryType string

const (
	SummaryBrief    SummaryType = "brief"
	SummaryStandard SummaryType = "standard"
	SummaryDetailed SummaryType = "detailed"
)

func (t SummaryType) Valid() bool {
	return t == SummaryBrief || t == SummaryStandard || t == SummaryDetailed
}

// Summary holds at most one row per (document, type).
type Summary struct {
	ID               string      `gorm:"primaryKey;type:varchar(36)"`
	DocumentID       string      `gorm:"type:varchar(36);not null;uniqueIndex:idx_summary_document_type"`
	OwnerID          string      `gorm:"type:varchar(64);not null;index"`
	Type             SummaryType `gorm:"type:varchar(16);not null;uniqueIndex:idx_summary_document_type"`
	Language         string      `gorm:"type:varchar(16)"`
	IncludeKeyPoints bool
	Content          string `gorm:"type:text;not null"`
	CreatedAt        time.Time
	UpdatedAt        time.Time
	DeletedAt        gorm.DeletedAt `gorm:"index"`
}

var ConceptCategories = []string{"person", "place", "concept", "term", "formula", "theory", "other"}

type Occurrence struct {
	Position   int     `json:"position"`
	Context    string  `json:"context"`
	Confidence float64 `json:"confidence"`
}

// Concept is unique per (document, term key); repeated terms merge occurrences.
type Concept struct {
	ID           string                          `gorm:"primaryKey;type:varchar(36)"`
	DocumentID   string                          `gorm:"type:varchar(36);not null;uniqueIndex:idx_concept_document_term"`
	OwnerID      string                          `gorm:"type:varchar(64);not null;index"`
	Term         string                          `gorm:"not null"`
	TermKey      string                          `gorm:"not null;uniqueIndex:idx_concept_document_term"`
	Definition   string                          `gorm:"type:text"`
	Category     string                          `gorm:"type:varchar(16);not null;index"`
	Importance   int                             `gorm:"not null;index"`
	Occurrences  datatypes.JSONSlice[Occurrence] `gorm:"not null"`
	RelatedTerms datatypes.JSONSlice[string]     `gorm:"not null"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
	DeletedAt    gorm.DeletedAt `gorm:"index"`
}

func TermKey(term string) string {
	return strings.ToLower(strings.Join(strings.Fields(term), " "))
}

type ConceptFilter struct {
	Category      string
	MinImportance int
	Limit         int
}

type ExerciseType string

const (
	MultipleChoice ExerciseType = "multiple_choice"
	TrueFalse      ExerciseType = "true_false"
	ShortAnswer    ExerciseType = "short_answer"
)

var ExerciseTypes = []ExerciseType{MultipleChoice, TrueFalse, ShortAnswer}

type Exercise struct {
	Type          ExerciseType `json:"type"`
	Question      string       `json:"question"`
	Options       []string     `json:"options,omitempty"`
	CorrectAnswer string       `json:"correctAnswer"`
	Explanation   string       `json:"explanation"`
}

// ExerciseSet is append-only: every generation is a new row.
type ExerciseSet struct {
	ID         string                        `gorm:"primaryKey;type:varchar(36)"`
	DocumentID string                        `gorm:"type:varchar(36);not null;index"`
	OwnerID    string                        `gorm:"type:varchar(64);not null;index"`
	Difficulty string                        `gorm:"type:varchar(16)"`
	Language   string                        `gorm:"type:varchar(16)"`
	Exercises  datatypes.JSONSlice[Exercise] `gorm:"not null"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
	DeletedAt  gorm.DeletedAt `gorm:"index"`
}

type MindMap struct {
	ID               string                      `gorm:"primaryKey;type:varchar(36)"`
	DocumentID       string                      `gorm:"type:varchar(36);not null;index"`
	OwnerID          string                      `gorm:"type:varchar(64);not null;index"`
	Title            string                      `gorm:"not null"`
	Style            string                      `gorm:"type:varchar(32)"`
	Language         string                      `gorm:"type:varchar(16)"`
	DiagramSource    string                      `gorm:"type:text;not null"`
	Valid            bool                        `gorm:"not null"`
	ValidationErrors datatypes.JSONSlice[string] `gorm:"not null"`
	CreatedAt        time.Time
	UpdatedAt        time.Time
	DeletedAt        gorm.DeletedAt `gorm:"index"`
}
