package commonModels

import (
	"path/filepath"
	"strings"
	"time"
)

type Format string

const (
	PDF   Format = "pdf"
	DOCX  Format = "docx"
	PPTX  Format = "pptx"
	IMAGE Format = "image"
	URL   Format = "url"
	TEXT  Format = "text"
	ERR   Format = ""
)

var AllFormats = []Format{PDF, DOCX, PPTX, IMAGE, URL, TEXT}

func (f Format) Valid() bool {
	for _, known := range AllFormats {
		if f == known {
			return true
		}
	}
	return false
}

// FormatFromName maps a file name and declared mime type to a format. URL records
// never come from uploads, so URL is not returned here.
func FormatFromName(fileName string, mimeType string) Format {
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".pdf":
		return PDF
	case ".docx", ".odt", ".rtf":
		return DOCX
	case ".pptx":
		return PPTX
	case ".png", ".jpg", ".jpeg", ".gif", ".webp", ".tif", ".tiff", ".bmp":
		return IMAGE
	case ".txt", ".md", ".markdown", ".text":
		return TEXT
	}

	mt := strings.ToLower(strings.TrimSpace(strings.Split(mimeType, ";")[0]))
	switch {
	case mt == "application/pdf":
		return PDF
	case mt == "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
		mt == "application/vnd.oasis.opendocument.text", mt == "application/rtf":
		return DOCX
	case mt == "application/vnd.openxmlformats-officedocument.presentationml.presentation":
		return PPTX
	case strings.HasPrefix(mt, "image/"):
		return IMAGE
	case mt == "text/plain", mt == "text/markdown":
		return TEXT
	}
	return ERR
}

// DocChunk is one slice of extracted text sent to the semantic index.
type DocChunk struct {
	DocumentId     string    `json:"document_id"`
	OwnerId        string    `json:"owner_id"`
	Title          string    `json:"title"`
	ChunkId        string    `json:"chunk_id"`
	Chunk          string    `json:"content"`
	ChunkOrder     int       `json:"chunk_order"`
	EmbeddingModel string    `json:"embedding_model"`
	IndexedAt      time.Time `json:"indexed_at"`
}
