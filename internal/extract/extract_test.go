package extract

import (
	"archive/zip"
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/akolanti/docmind/internal/apperr"
	"github.com/akolanti/docmind/internal/domain/commonModels"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fiveHundredWords() string {
	words := []string{"alpha", "beta", "gamma", "delta", "epsilon"}
	var b strings.Builder
	for i := 0; i < 500; i++ {
		b.WriteString(words[i%len(words)])
		if i%20 == 19 {
			b.WriteString(".\n")
		} else {
			b.WriteString(" ")
		}
	}
	return b.String()
}

func TestExtract_PlainText(t *testing.T) {
	s := NewService(nil)
	res, err := s.Extract(context.Background(), Input{Data: []byte(fiveHundredWords()), Format: commonModels.TEXT})
	require.NoError(t, err)

	assert.NotEmpty(t, res.Text)
	assert.InDelta(t, 500, res.WordCount, 25)
	assert.NotContains(t, res.Text, "#", "plain text must not get heading markers")
	assert.False(t, strings.HasPrefix(res.Text, "---"))
}

func TestExtract_InvalidPDF(t *testing.T) {
	s := NewService(nil)
	_, err := s.Extract(context.Background(), Input{Data: []byte("%PDF-1.4 invalid"), Format: commonModels.PDF})
	require.Error(t, err)
	assert.Equal(t, apperr.MalformedInput, apperr.KindOf(err))
}

func TestExtract_UnsupportedFormat(t *testing.T) {
	s := NewService(nil)
	_, err := s.Extract(context.Background(), Input{Data: []byte("x"), Format: commonModels.Format("xls")})
	assert.Equal(t, apperr.UnsupportedMediaType, apperr.KindOf(err))
}

func TestExtract_InvalidUTF8(t *testing.T) {
	s := NewService(nil)
	_, err := s.Extract(context.Background(), Input{Data: []byte{0xff, 0xfe, 0xfd}, Format: commonModels.TEXT})
	assert.Equal(t, apperr.MalformedInput, apperr.KindOf(err))
}

func TestExtract_ImagePlaceholder(t *testing.T) {
	s := NewService(nil)
	res, err := s.Extract(context.Background(), Input{Data: []byte{0x89, 'P', 'N', 'G'}, Format: commonModels.IMAGE})
	require.NoError(t, err)
	assert.Equal(t, NoTextPlaceholder, res.Text)
	assert.Equal(t, 0, res.WordCount)
	assert.NotEmpty(t, res.Warnings)
}

func TestExtract_PPTX(t *testing.T) {
	slide := func(lines ...string) string {
		var b strings.Builder
		b.WriteString(`<?xml version="1.0" encoding="UTF-8"?><p:sld xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main" xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main"><p:cSld><p:spTree>`)
		for _, l := range lines {
			b.WriteString(`<p:sp><p:txBody><a:p><a:r><a:t>` + l + `</a:t></a:r></a:p></p:txBody></p:sp>`)
		}
		b.WriteString(`</p:spTree></p:cSld></p:sld>`)
		return b.String()
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, body := range map[string]string{
		"ppt/slides/slide2.xml":  slide("Second slide"),
		"ppt/slides/slide1.xml":  slide("Title slide", "by someone"),
		"ppt/slides/slide10.xml": slide("Tenth"),
		"ppt/presentation.xml":   "<p/>",
	} {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(body))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())

	res, err := NewService(nil).Extract(context.Background(), Input{Data: buf.Bytes(), Format: commonModels.PPTX})
	require.NoError(t, err)
	assert.Equal(t, 3, res.PageCount)
	assert.Equal(t, "Title slide\nby someone\n\nSecond slide\n\nTenth", res.Text)
}

func TestExtract_URL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(`<html><head><title>Cells</title><style>p{}</style></head>
<body><script>var x = 1;</script><h1>Cell biology</h1><p>Cells are   small.</p><p>They divide.</p></body></html>`))
	}))
	defer srv.Close()

	res, err := NewService(srv.Client()).Extract(context.Background(), Input{Format: commonModels.URL, URL: srv.URL})
	require.NoError(t, err)
	assert.Equal(t, "Cells", res.Title)
	assert.Contains(t, res.Text, "Cell biology")
	assert.Contains(t, res.Text, "Cells are small.")
	assert.NotContains(t, res.Text, "var x")
	assert.NotContains(t, res.Text, "p{}")
}

func TestExtract_URLStatusError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	_, err := NewService(srv.Client()).Extract(context.Background(), Input{Format: commonModels.URL, URL: srv.URL})
	assert.Equal(t, apperr.MalformedInput, apperr.KindOf(err))
}

func TestFinish_StructuredFrontMatter(t *testing.T) {
	res := finish(raw{
		Body:       "INTRODUCTION\n\nSome body text here.",
		PageCount:  2,
		Title:      "Report",
		Structured: true,
	})
	assert.True(t, strings.HasPrefix(res.Text, "---\npages: 2\ntitle: Report\n---\n\n"))
	assert.Contains(t, res.Text, "# INTRODUCTION")
	assert.Equal(t, 5, res.WordCount)
}

func TestFinish_EmptyStructuredBody(t *testing.T) {
	res := finish(raw{PageCount: 3, Structured: true})
	assert.Contains(t, res.Text, NoTextPlaceholder)
	assert.NotEmpty(t, res.Warnings)
}
