package extract

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"io"
	"path"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/akolanti/docmind/internal/apperr"
	"github.com/lu4p/cat"
)

// officeHandler covers docx, odt and rtf.
type officeHandler struct{}

func (h *officeHandler) extract(ctx context.Context, in Input) (raw, error) {
	text, err := cat.FromBytes(in.Data)
	if err != nil {
		return raw{}, apperr.Wrap(apperr.MalformedInput, "failed to read document", err)
	}
	return raw{Body: text, PageCount: 1}, nil
}

const drawingMLNamespace = "http://schemas.openxmlformats.org/drawingml/2006/main"

var slideName = regexp.MustCompile(`^ppt/slides/slide(\d+)\.xml$`)

type pptxHandler struct{}

type slideFile struct {
	number int
	file   *zip.File
}

func (h *pptxHandler) extract(ctx context.Context, in Input) (raw, error) {
	zr, err := zip.NewReader(bytes.NewReader(in.Data), int64(len(in.Data)))
	if err != nil {
		return raw{}, apperr.Wrap(apperr.MalformedInput, "failed to open pptx", err)
	}

	var slides []slideFile
	for _, f := range zr.File {
		m := slideName.FindStringSubmatch(path.Clean(f.Name))
		if m == nil {
			continue
		}
		n, _ := strconv.Atoi(m[1])
		slides = append(slides, slideFile{number: n, file: f})
	}
	if len(slides) == 0 {
		return raw{}, apperr.New(apperr.MalformedInput, "pptx contains no slides")
	}
	sort.Slice(slides, func(i, j int) bool { return slides[i].number < slides[j].number })

	out := raw{PageCount: len(slides)}
	var body strings.Builder
	for _, s := range slides {
		text, err := slideText(s.file)
		if err != nil {
			out.Warnings = append(out.Warnings, "slide "+strconv.Itoa(s.number)+": "+err.Error())
			continue
		}
		if text == "" {
			continue
		}
		if body.Len() > 0 {
			body.WriteString("\n\n")
		}
		body.WriteString(text)
	}
	out.Body = body.String()
	return out, nil
}

// slideText collects <a:t> runs, one line per <a:p> paragraph.
func slideText(f *zip.File) (string, error) {
	rc, err := f.Open()
	if err != nil {
		return "", err
	}
	defer rc.Close()

	dec := xml.NewDecoder(rc)
	var b strings.Builder
	var para strings.Builder
	inText := false
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Space == drawingMLNamespace && t.Name.Local == "t" {
				inText = true
			}
		case xml.EndElement:
			if t.Name.Space != drawingMLNamespace {
				continue
			}
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				if line := strings.TrimSpace(para.String()); line != "" {
					b.WriteString(line)
					b.WriteString("\n")
				}
				para.Reset()
			}
		case xml.CharData:
			if inText {
				para.Write(t)
			}
		}
	}
	return strings.TrimSpace(b.String()), nil
}
