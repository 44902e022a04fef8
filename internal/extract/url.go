package extract

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/akolanti/docmind/internal/apperr"
	"github.com/akolanti/docmind/internal/config"
	"golang.org/x/net/html"
)

type urlHandler struct {
	client *http.Client
	pdf    *pdfHandler
}

func (h *urlHandler) extract(ctx context.Context, in Input) (raw, error) {
	if in.URL == "" {
		return raw{}, apperr.New(apperr.MalformedInput, "url record has no url")
	}
	client := h.client
	if client == nil {
		client = http.DefaultClient
	}

	ctx, cancel := context.WithTimeout(ctx, config.URLFetchTimeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, in.URL, nil)
	if err != nil {
		return raw{}, apperr.Wrap(apperr.MalformedInput, "invalid url", err)
	}
	req.Header.Set("User-Agent", "docmind/1.0")
	req.Header.Set("Accept", "text/html,text/plain;q=0.9,application/pdf;q=0.8")

	resp, err := client.Do(req)
	if err != nil {
		return raw{}, apperr.Wrap(apperr.UpstreamUnavailable, "could not fetch url", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return raw{}, apperr.Newf(apperr.MalformedInput, "url returned status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, config.MaxURLFetchBytes+1))
	if err != nil {
		return raw{}, apperr.Wrap(apperr.UpstreamUnavailable, "could not read url body", err)
	}
	if int64(len(data)) > config.MaxURLFetchBytes {
		return raw{}, apperr.Newf(apperr.MalformedInput, "url content exceeds %d bytes", config.MaxURLFetchBytes)
	}

	mediaType, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if mediaType == "" {
		mediaType, _, _ = mime.ParseMediaType(http.DetectContentType(data))
	}
	switch {
	case mediaType == "application/pdf":
		return h.pdf.extract(ctx, Input{Data: data, Format: in.Format, URL: in.URL})
	case mediaType == "text/html" || mediaType == "application/xhtml+xml":
		title, body, err := htmlText(data)
		if err != nil {
			return raw{}, apperr.Wrap(apperr.MalformedInput, "could not parse html", err)
		}
		return raw{Body: body, Title: title, PageCount: 1}, nil
	case strings.HasPrefix(mediaType, "text/"):
		return (&textHandler{}).extract(ctx, Input{Data: data})
	}
	return raw{}, apperr.New(apperr.UnsupportedMediaType, fmt.Sprintf("unsupported url content type %q", mediaType))
}

var skipElements = map[string]bool{
	"script": true, "style": true, "noscript": true, "template": true,
	"svg": true, "nav": true, "footer": true, "iframe": true,
}

var blockElements = map[string]bool{
	"p": true, "div": true, "br": true, "li": true, "tr": true, "section": true, "article": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"blockquote": true, "pre": true, "table": true, "ul": true, "ol": true, "header": true, "main": true,
}

// htmlText returns the document title and its visible text, one block per line.
func htmlText(data []byte) (string, string, error) {
	doc, err := html.Parse(strings.NewReader(string(data)))
	if err != nil {
		return "", "", err
	}

	var title string
	var b strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if n.Data == "title" {
				if title == "" && n.FirstChild != nil {
					title = strings.TrimSpace(n.FirstChild.Data)
				}
				return
			}
			if skipElements[n.Data] {
				return
			}
		}
		if n.Type == html.TextNode {
			if t := strings.Join(strings.Fields(n.Data), " "); t != "" {
				b.WriteString(t)
				b.WriteString(" ")
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if n.Type == html.ElementNode && blockElements[n.Data] {
			b.WriteString("\n\n")
		}
	}
	walk(doc)

	lines := strings.Split(b.String(), "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSpace(l)
	}
	return title, strings.Join(lines, "\n"), nil
}
