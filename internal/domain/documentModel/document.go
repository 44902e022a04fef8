package documentModel

import (
	"time"

	"github.com/akolanti/docmind/internal/domain/commonModels"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

type Metadata struct {
	OriginalFilename string   `json:"original_filename,omitempty"`
	SizeBytes        int64    `json:"size_bytes"`
	MimeType         string   `json:"mime_type,omitempty"`
	WordCount        int      `json:"word_count"`
	PageCount        int      `json:"page_count"`
	Author           string   `json:"author,omitempty"`
	Warnings         []string `json:"warnings,omitempty"`
}

// Document is the root record. Status, ExtractedText and ProcessingError are only
// written through Apply so the state invariants hold on every persisted row.
type Document struct {
	ID               string                        `gorm:"primaryKey;type:varchar(36)"`
	OwnerID          string                        `gorm:"type:varchar(64);not null;index"`
	Title            string                        `gorm:"not null"`
	OriginalFormat   commonModels.Format           `gorm:"type:varchar(16);not null;index"`
	SourceURL        string                        `gorm:"type:text"`
	StorageKey       *string                       `gorm:"type:varchar(255)"`
	ExtractedText    string                        `gorm:"type:text"`
	RestructuredText *string                       `gorm:"type:text"`
	Status           Status                        `gorm:"type:varchar(16);not null;index"`
	ProcessingError  *string                       `gorm:"type:text"`
	Metadata         datatypes.JSONType[Metadata]  `gorm:"not null"`
	Tags             datatypes.JSONSlice[string]   `gorm:"not null"`
	Version          int64                         `gorm:"not null;default:1"`
	CreatedAt        time.Time
	UpdatedAt        time.Time
	DeletedAt        gorm.DeletedAt `gorm:"index"`
}

// NewDocument returns a pending record with version 1.
func NewDocument(id, ownerID, title string, format commonModels.Format, meta Metadata, tags []string) *Document {
	if tags == nil {
		tags = []string{}
	}
	d := &Document{
		ID:             id,
		OwnerID:        ownerID,
		Title:          title,
		OriginalFormat: format,
		Metadata:       datatypes.NewJSONType(meta),
		Tags:           datatypes.NewJSONSlice(tags),
		Version:        1,
	}
	d.Apply(Pending{})
	return d
}

func (d *Document) Meta() Metadata {
	return d.Metadata.Data()
}

func (d *Document) SetMeta(m Metadata) {
	d.Metadata = datatypes.NewJSONType(m)
}

func (d *Document) StorageKeyValue() string {
	if d.StorageKey == nil {
		return ""
	}
	return *d.StorageKey
}

func (d *Document) IsExtracted() bool {
	_, ok := d.State().(Completed)
	return ok
}

type ListFilter struct {
	Format commonModels.Format
	Status Status
	Search string
	Limit  int
	Offset int
}
