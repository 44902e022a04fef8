package handlers

import (
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/akolanti/docmind/internal/adapter"
	"github.com/akolanti/docmind/internal/adapter/utils"
	"github.com/akolanti/docmind/internal/api"
	"github.com/akolanti/docmind/internal/apperr"
	"github.com/akolanti/docmind/internal/domain/commonModels"
	"github.com/akolanti/docmind/internal/domain/documentModel"
	"github.com/akolanti/docmind/internal/pipeline"
)

// multipart framing on top of the file itself
const multipartOverhead = 1 << 20

// UploadDocument godoc
// @Summary      Upload a document
// @Description  Stores the file, creates a pending record and queues text extraction.
// @Tags         Documents
// @Accept       multipart/form-data
// @Produce      json
// @Security     BearerAuth
// @Param        document  formData  file    true   "PDF, DOCX, PPTX, image or text file"
// @Param        title     formData  string  false  "Display title, defaults to the file name"
// @Param        tags      formData  string  false  "Comma separated tags"
// @Success      201  {object}  api.DocumentResponse "Record created in pending state"
// @Failure      400  {object}  api.ErrorResponse "Missing file, unsupported type or oversized"
// @Failure      401  {object}  api.ErrorResponse
// @Router       /documents [post]
func (h *Handler) UploadDocument(w http.ResponseWriter, r *http.Request) {
	owner, err := ownerFrom(r.Context())
	if err != nil {
		WriteError(w, r, err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes+multipartOverhead)
	if err = r.ParseMultipartForm(32 << 20); err != nil {
		if isMaxBytes(err) {
			WriteError(w, r, apperr.Newf(apperr.Validation, "document exceeds the %d byte upload limit", h.maxUploadBytes))
			return
		}
		WriteError(w, r, apperr.Wrap(apperr.Validation, "expected a multipart form", err))
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	fileReader, fileMetadata, err := r.FormFile("document")
	if err != nil {
		WriteError(w, r, apperr.New(apperr.Validation, "document file is required"))
		return
	}
	defer fileReader.Close()

	data, err := io.ReadAll(io.LimitReader(fileReader, h.maxUploadBytes+1))
	if err != nil {
		WriteError(w, r, apperr.Wrap(apperr.Validation, "could not read uploaded file", err))
		return
	}

	created, err := h.orch.CreateUpload(r.Context(), owner, pipeline.UploadInput{
		Title:    r.FormValue("title"),
		Tags:     splitTags(r.MultipartForm.Value["tags"]),
		FileName: fileMetadata.Filename,
		MimeType: fileMetadata.Header.Get("Content-Type"),
		Data:     data,
	})
	if err != nil {
		WriteError(w, r, err)
		return
	}
	writeJsonResponse(w, http.StatusCreated, adapter.ToDocumentResponse(created.Document, created.JobID))
}

// CreateURLDocument godoc
// @Summary      Register a URL
// @Description  Creates a url-type record; the page is fetched and extracted in the background.
// @Tags         Documents
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request  body      api.URLDocumentRequest  true  "URL, title and tags"
// @Success      201      {object}  api.DocumentResponse
// @Failure      400      {object}  api.ErrorResponse "Invalid URL"
// @Router       /documents:url [post]
func (h *Handler) CreateURLDocument(w http.ResponseWriter, r *http.Request) {
	owner, err := ownerFrom(r.Context())
	if err != nil {
		WriteError(w, r, err)
		return
	}
	var req api.URLDocumentRequest
	if err = decodeJSON(w, r, &req); err != nil {
		WriteError(w, r, err)
		return
	}
	created, err := h.orch.CreateURL(r.Context(), owner, pipeline.URLInput{URL: req.URL, Title: req.Title, Tags: req.Tags})
	if err != nil {
		WriteError(w, r, err)
		return
	}
	writeJsonResponse(w, http.StatusCreated, adapter.ToDocumentResponse(created.Document, created.JobID))
}

// ListDocuments godoc
// @Summary      List documents
// @Tags         Documents
// @Produce      json
// @Security     BearerAuth
// @Param        format  query  string  false  "pdf, docx, pptx, image, url or text"
// @Param        status  query  string  false  "pending, processing, completed or failed"
// @Param        search  query  string  false  "Case insensitive title search"
// @Param        limit   query  int     false  "Page size, at most 100"
// @Param        offset  query  int     false  "Rows to skip"
// @Success      200  {object}  api.DocumentListResponse
// @Failure      400  {object}  api.ErrorResponse
// @Router       /documents [get]
func (h *Handler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	owner, err := ownerFrom(r.Context())
	if err != nil {
		WriteError(w, r, err)
		return
	}
	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	offset, err := queryInt(r, "offset", 0)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	q := r.URL.Query()
	docs, err := h.orch.List(r.Context(), owner, documentModel.ListFilter{
		Format: commonModels.Format(strings.ToLower(q.Get("format"))),
		Status: documentModel.Status(strings.ToLower(q.Get("status"))),
		Search: q.Get("search"),
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		WriteError(w, r, err)
		return
	}
	writeJsonResponse(w, http.StatusOK, adapter.ToDocumentListResponse(docs))
}

// GetDocument godoc
// @Summary      Get one document
// @Tags         Documents
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Document ID"
// @Success      200  {object}  api.DocumentResponse
// @Failure      404  {object}  api.ErrorResponse "Not found or not owned"
// @Router       /documents/{id} [get]
func (h *Handler) GetDocument(w http.ResponseWriter, r *http.Request) {
	owner, err := ownerFrom(r.Context())
	if err != nil {
		WriteError(w, r, err)
		return
	}
	doc, err := h.orch.Get(r.Context(), owner, utils.GetChiURLParam(r, "id"))
	if err != nil {
		WriteError(w, r, err)
		return
	}
	writeJsonResponse(w, http.StatusOK, adapter.ToDocumentResponse(doc, ""))
}

// DownloadDocument godoc
// @Summary      Download the original file
// @Tags         Documents
// @Produce      octet-stream
// @Security     BearerAuth
// @Param        id   path      string  true  "Document ID"
// @Success      200  {file}    binary
// @Failure      404  {object}  api.ErrorResponse
// @Router       /documents/{id}/download [get]
func (h *Handler) DownloadDocument(w http.ResponseWriter, r *http.Request) {
	owner, err := ownerFrom(r.Context())
	if err != nil {
		WriteError(w, r, err)
		return
	}
	doc, rc, err := h.orch.Download(r.Context(), owner, utils.GetChiURLParam(r, "id"))
	if err != nil {
		WriteError(w, r, err)
		return
	}
	defer rc.Close()

	meta := doc.Meta()
	contentType := meta.MimeType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	name := meta.OriginalFilename
	if name == "" {
		name = doc.ID
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": name}))
	if meta.SizeBytes > 0 {
		w.Header().Set("Content-Length", fmt.Sprint(meta.SizeBytes))
	}
	w.WriteHeader(http.StatusOK)
	if _, err = io.Copy(w, rc); err != nil {
		logRH.FromContext(r.Context()).Error("download interrupted", "documentId", doc.ID, "error", err)
	}
}

// GetExtractedText godoc
// @Summary      Get the normalized extracted text
// @Tags         Documents
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Document ID"
// @Success      200  {object}  api.TextResponse
// @Failure      404  {object}  api.ErrorResponse "Not found or extraction not completed"
// @Router       /documents/{id}/extractedText [get]
func (h *Handler) GetExtractedText(w http.ResponseWriter, r *http.Request) {
	owner, err := ownerFrom(r.Context())
	if err != nil {
		WriteError(w, r, err)
		return
	}
	doc, err := h.orch.ExtractedText(r.Context(), owner, utils.GetChiURLParam(r, "id"))
	if err != nil {
		WriteError(w, r, err)
		return
	}
	meta := doc.Meta()
	writeJsonResponse(w, http.StatusOK, api.TextResponse{Id: doc.ID, Text: doc.ExtractedText, WordCount: meta.WordCount, PageCount: meta.PageCount})
}

// ReprocessDocument godoc
// @Summary      Re-run extraction
// @Description  Runs one more extraction attempt and waits for its outcome.
// @Tags         Documents
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Document ID"
// @Success      200  {object}  api.DocumentResponse
// @Failure      400  {object}  api.ErrorResponse "Document is currently processing"
// @Failure      404  {object}  api.ErrorResponse
// @Failure      500  {object}  api.ErrorResponse "Extraction failed again"
// @Router       /documents/{id}/reprocess [post]
func (h *Handler) ReprocessDocument(w http.ResponseWriter, r *http.Request) {
	owner, err := ownerFrom(r.Context())
	if err != nil {
		WriteError(w, r, err)
		return
	}
	doc, err := h.orch.Reprocess(r.Context(), owner, utils.GetChiURLParam(r, "id"))
	if err != nil {
		WriteError(w, r, err)
		return
	}
	writeJsonResponse(w, http.StatusOK, adapter.ToDocumentResponse(doc, ""))
}

// DeleteDocument godoc
// @Summary      Soft delete a document
// @Tags         Documents
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Document ID"
// @Success      200  {object}  map[string]string
// @Failure      404  {object}  api.ErrorResponse
// @Router       /documents/{id} [delete]
func (h *Handler) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	owner, err := ownerFrom(r.Context())
	if err != nil {
		WriteError(w, r, err)
		return
	}
	id := utils.GetChiURLParam(r, "id")
	if err = h.orch.Delete(r.Context(), owner, id); err != nil {
		WriteError(w, r, err)
		return
	}
	writeJsonResponse(w, http.StatusOK, map[string]string{"id": id, "status": "deleted"})
}

func splitTags(values []string) []string {
	var out []string
	for _, v := range values {
		for _, t := range strings.Split(v, ",") {
			if t = strings.TrimSpace(t); t != "" {
				out = append(out, t)
			}
		}
	}
	return out
}
