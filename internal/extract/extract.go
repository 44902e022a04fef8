// Package extract turns stored document bytes into normalized text.
package extract

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/akolanti/docmind/internal/apperr"
	"github.com/akolanti/docmind/internal/domain/commonModels"
	"github.com/akolanti/docmind/internal/metrics"
	"github.com/akolanti/docmind/pkg/logger_i"
)

const NoTextPlaceholder = "[no extractable text]"

type Input struct {
	Data     []byte
	Format   commonModels.Format
	MimeType string
	Filename string
	URL      string
}

type Result struct {
	Text      string
	PageCount int
	WordCount int
	Warnings  []string
	Title     string
	Author    string
}

// raw is what a format handler produces before normalization.
type raw struct {
	Body      string
	PageCount int
	Title     string
	Author    string
	Warnings  []string
	// Structured enables heading detection and front matter.
	Structured bool
}

type handler interface {
	extract(ctx context.Context, in Input) (raw, error)
}

type Service struct {
	handlers map[commonModels.Format]handler
	logger   *logger_i.Logger
}

// NewService registers the built-in handlers. httpClient is used for url records.
func NewService(httpClient *http.Client) *Service {
	s := &Service{
		handlers: make(map[commonModels.Format]handler),
		logger:   logger_i.NewLogger("Extractor"),
	}
	pdfh := &pdfHandler{}
	s.register(commonModels.PDF, pdfh)
	s.register(commonModels.DOCX, &officeHandler{})
	s.register(commonModels.PPTX, &pptxHandler{})
	s.register(commonModels.TEXT, &textHandler{})
	s.register(commonModels.IMAGE, &imageHandler{})
	s.register(commonModels.URL, &urlHandler{client: httpClient, pdf: pdfh})
	return s
}

func (s *Service) register(format commonModels.Format, h handler) {
	s.handlers[format] = h
}

// Extract fails with UnsupportedMediaType when no handler exists for the format and
// with MalformedInput when the parser cannot read the input at all.
func (s *Service) Extract(ctx context.Context, in Input) (Result, error) {
	log := s.logger.FromContext(ctx).With("format", in.Format, "file", in.Filename)

	h, ok := s.handlers[in.Format]
	if !ok {
		metrics.RecordExtraction(string(in.Format), "unsupported")
		return Result{}, apperr.Newf(apperr.UnsupportedMediaType, "no extractor registered for format %q", in.Format)
	}

	r, err := h.extract(ctx, in)
	if err != nil {
		metrics.RecordExtraction(string(in.Format), "failed")
		log.Warn("extraction failed", "error", err)
		if apperr.KindOf(err) == apperr.Internal {
			if ctx.Err() != nil {
				return Result{}, apperr.Wrap(apperr.Internal, "extraction cancelled", ctx.Err())
			}
			return Result{}, apperr.Wrap(apperr.MalformedInput, "could not extract text", err)
		}
		return Result{}, err
	}

	res := finish(r)
	metrics.RecordExtraction(string(in.Format), "completed")
	log.Debug("extraction complete", "pages", res.PageCount, "words", res.WordCount, "warnings", len(res.Warnings))
	return res, nil
}

func finish(r raw) Result {
	body := Normalize(r.Body)
	warnings := r.Warnings
	if body == "" {
		body = NoTextPlaceholder
		warnings = append(warnings, "no extractable text found")
	}
	res := Result{
		PageCount: r.PageCount,
		WordCount: CountWords(body),
		Warnings:  warnings,
		Title:     strings.TrimSpace(r.Title),
		Author:    strings.TrimSpace(r.Author),
	}
	if body == NoTextPlaceholder {
		res.WordCount = 0
	}
	if r.Structured && body != NoTextPlaceholder {
		body = MarkHeadings(body)
	}
	if r.Structured {
		body = frontMatter(res) + body
	}
	res.Text = body
	return res
}

func frontMatter(r Result) string {
	var b strings.Builder
	b.WriteString("---\n")
	fmt.Fprintf(&b, "pages: %d\n", r.PageCount)
	if r.Title != "" {
		fmt.Fprintf(&b, "title: %s\n", r.Title)
	}
	if r.Author != "" {
		fmt.Fprintf(&b, "author: %s\n", r.Author)
	}
	b.WriteString("---\n\n")
	return b.String()
}
