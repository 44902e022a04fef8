package extract

import (
	"context"
	"unicode/utf8"

	"github.com/akolanti/docmind/internal/apperr"
)

type textHandler struct{}

func (h *textHandler) extract(ctx context.Context, in Input) (raw, error) {
	if !utf8.Valid(in.Data) {
		return raw{}, apperr.New(apperr.MalformedInput, "text file is not valid utf-8")
	}
	return raw{Body: string(in.Data), PageCount: 1}, nil
}

// imageHandler has no OCR; images complete with the placeholder text.
type imageHandler struct{}

func (h *imageHandler) extract(ctx context.Context, in Input) (raw, error) {
	return raw{PageCount: 1, Warnings: []string{"image content requires OCR, which is not available"}}, nil
}
