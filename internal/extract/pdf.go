package extract

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/akolanti/docmind/internal/apperr"
	"github.com/akolanti/docmind/internal/config"
	"github.com/dslipak/pdf"
)

type pdfHandler struct {
	pageTimeout time.Duration
}

func (h *pdfHandler) extract(ctx context.Context, in Input) (out raw, err error) {
	if len(in.Data) == 0 {
		return raw{}, apperr.New(apperr.MalformedInput, "empty pdf")
	}
	defer func() {
		if p := recover(); p != nil {
			err = apperr.Wrap(apperr.MalformedInput, "corrupt pdf", fmt.Errorf("%v", p))
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(in.Data), int64(len(in.Data)))
	if err != nil {
		return raw{}, apperr.Wrap(apperr.MalformedInput, "failed to open pdf", err)
	}

	numPages := r.NumPage()
	if numPages == 0 {
		return raw{}, apperr.New(apperr.MalformedInput, "pdf has no pages")
	}

	out = raw{PageCount: numPages, Structured: true}
	out.Title, out.Author = pdfInfo(r)

	var body strings.Builder
	failed := 0
	for i := 1; i <= numPages; i++ {
		if err = ctx.Err(); err != nil {
			return raw{}, apperr.Wrap(apperr.Internal, "extraction cancelled", err)
		}
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		content, err := h.protectExtract(ctx, page)
		if err != nil {
			failed++
			out.Warnings = append(out.Warnings, fmt.Sprintf("page %d: %v", i, err))
			continue
		}
		if strings.TrimSpace(content) == "" {
			continue
		}
		if body.Len() > 0 {
			body.WriteString("\n\n")
		}
		body.WriteString(content)
	}
	if failed == numPages {
		return raw{}, apperr.New(apperr.MalformedInput, "no page of the pdf could be read")
	}
	out.Body = body.String()
	return out, nil
}

func pdfInfo(r *pdf.Reader) (title string, author string) {
	defer func() {
		if recover() != nil {
			title, author = "", ""
		}
	}()
	info := r.Trailer().Key("Info")
	if info.IsNull() {
		return "", ""
	}
	return info.Key("Title").Text(), info.Key("Author").Text()
}

// protectExtract bounds a single page; malformed content streams can hang or panic.
func (h *pdfHandler) protectExtract(ctx context.Context, page pdf.Page) (string, error) {
	type result struct {
		content string
		err     error
	}
	timeout := h.pageTimeout
	if timeout <= 0 {
		timeout = config.PDFPageTimeout
	}
	resChan := make(chan result, 1)

	go func() {
		defer func() {
			if p := recover(); p != nil {
				resChan <- result{err: fmt.Errorf("page parse panic: %v", p)}
			}
		}()
		content, err := page.GetPlainText(nil)
		resChan <- result{content, err}
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case r := <-resChan:
		return r.content, r.err
	case <-timer.C:
		return "", fmt.Errorf("timeout after %s", timeout)
	case <-ctx.Done():
		return "", ctx.Err()
	}
}
