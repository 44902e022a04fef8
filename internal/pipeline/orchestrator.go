// Package pipeline drives documents from upload through extraction to
// annotation and serves the owner scoped reads over the results.
package pipeline

import (
	"bytes"
	"context"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/akolanti/docmind/internal/annotate"
	"github.com/akolanti/docmind/internal/apperr"
	"github.com/akolanti/docmind/internal/config"
	"github.com/akolanti/docmind/internal/data/objectStore"
	"github.com/akolanti/docmind/internal/domain/commonModels"
	"github.com/akolanti/docmind/internal/domain/documentModel"
	"github.com/akolanti/docmind/internal/domain/jobModel"
	"github.com/akolanti/docmind/internal/extract"
	"github.com/akolanti/docmind/internal/job"
	"github.com/akolanti/docmind/internal/semantic/qdrantDB"
	"github.com/akolanti/docmind/pkg/logger_i"
	"github.com/google/uuid"
)

type Extractor interface {
	Extract(ctx context.Context, in extract.Input) (extract.Result, error)
}

type Annotator interface {
	Restructure(ctx context.Context, text string, o annotate.RestructureOptions) (string, error)
	Summarize(ctx context.Context, text string, o annotate.SummaryOptions) (string, error)
	ExtractConcepts(ctx context.Context, text string, o annotate.ConceptOptions) ([]documentModel.Concept, error)
	GenerateExercises(ctx context.Context, text string, o annotate.ExerciseOptions) ([]documentModel.Exercise, error)
	GenerateMindMap(ctx context.Context, text string, o annotate.MindMapOptions) (annotate.MindMap, error)
}

type SemanticIndex interface {
	IndexDocument(ctx context.Context, doc *documentModel.Document) (int, error)
	Search(ctx context.Context, documentID string, query string, limit int) ([]qdrantDB.Hit, error)
	DeleteDocument(ctx context.Context, documentID string) error
}

// ErrSearchDisabled is returned by Search when no vector index is configured.
var ErrSearchDisabled = apperr.New(apperr.UpstreamUnavailable, "semantic search is not configured")

type Deps struct {
	Documents documentModel.DocumentStore
	Artifacts documentModel.ArtifactStore
	Blobs     objectStore.Store
	Extractor Extractor
	// Annotator and Semantic are optional; without them annotation is skipped.
	Annotator Annotator
	Semantic  SemanticIndex
	Jobs      *job.Service
	// InlineAnnotation runs annotation right after extraction instead of
	// queueing it. Used by the admin tool which has no worker pool.
	InlineAnnotation bool
	MaxUploadBytes   int64
}

type Orchestrator struct {
	docs             documentModel.DocumentStore
	artifacts        documentModel.ArtifactStore
	blobs            objectStore.Store
	extractor        Extractor
	annotator        Annotator
	semantic         SemanticIndex
	jobs             *job.Service
	inlineAnnotation bool
	maxUploadBytes   int64

	inflightMu sync.Mutex
	inflight   map[string]struct{}

	logger *logger_i.Logger
}

func New(d Deps) *Orchestrator {
	if d.MaxUploadBytes <= 0 {
		d.MaxUploadBytes = config.MaxUploadSize
	}
	return &Orchestrator{
		docs:             d.Documents,
		artifacts:        d.Artifacts,
		blobs:            d.Blobs,
		extractor:        d.Extractor,
		annotator:        d.Annotator,
		semantic:         d.Semantic,
		jobs:             d.Jobs,
		inlineAnnotation: d.InlineAnnotation,
		maxUploadBytes:   d.MaxUploadBytes,
		inflight:         make(map[string]struct{}),
		logger:           logger_i.NewLogger("Pipeline"),
	}
}

type UploadInput struct {
	Title    string
	Tags     []string
	FileName string
	MimeType string
	Data     []byte
}

type URLInput struct {
	URL   string
	Title string
	Tags  []string
}

// Created is the record plus the extraction job queued for it. JobID is empty
// when the queue refused the job; the record then stays pending.
type Created struct {
	Document *documentModel.Document
	JobID    string
}

// CreateUpload stores the blob, then the pending record, then queues extraction.
func (o *Orchestrator) CreateUpload(ctx context.Context, ownerID string, in UploadInput) (Created, error) {
	if len(in.Data) == 0 {
		return Created{}, apperr.New(apperr.Validation, "document file is required")
	}
	if int64(len(in.Data)) > o.maxUploadBytes {
		return Created{}, apperr.Newf(apperr.Validation, "document exceeds the %d byte upload limit", o.maxUploadBytes)
	}
	format := DetectFormat(in.FileName, in.MimeType, in.Data)
	if format == commonModels.ERR || format == commonModels.URL {
		return Created{}, apperr.Newf(apperr.Validation, "unsupported document type %q", in.FileName)
	}
	mime := in.MimeType
	if mime == "" || mime == "application/octet-stream" {
		mime = http.DetectContentType(in.Data)
	}

	title := strings.TrimSpace(in.Title)
	if title == "" {
		title = in.FileName
	}
	doc := documentModel.NewDocument(uuid.NewString(), ownerID, title, format, documentModel.Metadata{
		OriginalFilename: in.FileName,
		SizeBytes:        int64(len(in.Data)),
		MimeType:         mime,
	}, cleanTags(in.Tags))

	key := objectStore.DocumentKey(ownerID, doc.ID, in.FileName)
	if err := o.blobs.Put(ctx, key, bytes.NewReader(in.Data), int64(len(in.Data)), mime); err != nil {
		return Created{}, err
	}
	doc.StorageKey = &key

	if err := o.docs.Create(ctx, doc); err != nil {
		if delErr := o.blobs.Delete(context.WithoutCancel(ctx), key); delErr != nil {
			o.logger.FromContext(ctx).Error("could not remove orphaned blob", "key", key, "error", delErr)
		}
		return Created{}, err
	}
	return Created{Document: doc, JobID: o.submitExtract(ctx, doc)}, nil
}

func (o *Orchestrator) CreateURL(ctx context.Context, ownerID string, in URLInput) (Created, error) {
	u, err := url.Parse(strings.TrimSpace(in.URL))
	if err != nil || !u.IsAbs() || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return Created{}, apperr.New(apperr.Validation, "url must be an absolute http or https URL")
	}
	title := strings.TrimSpace(in.Title)
	if title == "" {
		title = u.Host
	}
	doc := documentModel.NewDocument(uuid.NewString(), ownerID, title, commonModels.URL, documentModel.Metadata{}, cleanTags(in.Tags))
	doc.SourceURL = u.String()

	if err = o.docs.Create(ctx, doc); err != nil {
		return Created{}, err
	}
	return Created{Document: doc, JobID: o.submitExtract(ctx, doc)}, nil
}

// submitExtract queues extraction bounded by the request context. Failure is
// logged only; the pending record can be picked up again with Reprocess.
func (o *Orchestrator) submitExtract(ctx context.Context, doc *documentModel.Document) string {
	j := job.NewJob(jobModel.JobTypeExtract, doc.ID, doc.OwnerID, doc.Version, traceID(ctx))
	if err := o.jobs.Enqueue(ctx, j); err != nil {
		o.logger.FromContext(ctx).Warn("could not queue extraction, record stays pending", "documentId", doc.ID, "error", err)
		return ""
	}
	return j.Id
}

// DetectFormat uses the extension and declared type first, then magic bytes.
func DetectFormat(fileName, mimeType string, data []byte) commonModels.Format {
	if f := commonModels.FormatFromName(fileName, mimeType); f != commonModels.ERR {
		return f
	}
	if bytes.HasPrefix(data, []byte("%PDF-")) {
		return commonModels.PDF
	}
	return commonModels.FormatFromName("", http.DetectContentType(data))
}

func (o *Orchestrator) acquire(documentID string) bool {
	o.inflightMu.Lock()
	defer o.inflightMu.Unlock()
	if _, busy := o.inflight[documentID]; busy {
		return false
	}
	o.inflight[documentID] = struct{}{}
	return true
}

func (o *Orchestrator) release(documentID string) {
	o.inflightMu.Lock()
	defer o.inflightMu.Unlock()
	delete(o.inflight, documentID)
}

func (o *Orchestrator) busy(documentID string) bool {
	o.inflightMu.Lock()
	defer o.inflightMu.Unlock()
	_, ok := o.inflight[documentID]
	return ok
}

func cleanTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]bool, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

func traceID(ctx context.Context) string {
	if v, ok := ctx.Value(config.TRACE_ID_KEY).(string); ok {
		return v
	}
	return ""
}
