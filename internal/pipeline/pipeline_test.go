package pipeline

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/akolanti/docmind/internal/annotate"
	"github.com/akolanti/docmind/internal/annotate/diagram"
	"github.com/akolanti/docmind/internal/apperr"
	"github.com/akolanti/docmind/internal/data/database"
	"github.com/akolanti/docmind/internal/data/objectStore"
	"github.com/akolanti/docmind/internal/data/store"
	"github.com/akolanti/docmind/internal/domain/commonModels"
	"github.com/akolanti/docmind/internal/domain/documentModel"
	"github.com/akolanti/docmind/internal/domain/jobModel"
	"github.com/akolanti/docmind/internal/extract"
	"github.com/akolanti/docmind/internal/job"
	"github.com/akolanti/docmind/internal/worker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeAnnotator answers every operation with fixed content. summaryGate, when
// set, holds Summarize until it is closed.
type fakeAnnotator struct {
	summaryGate chan struct{}
	conceptErr  error

	mu    sync.Mutex
	calls map[string]int
}

func (f *fakeAnnotator) record(op string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls == nil {
		f.calls = map[string]int{}
	}
	f.calls[op]++
}

func (f *fakeAnnotator) Restructure(ctx context.Context, text string, o annotate.RestructureOptions) (string, error) {
	f.record("restructure")
	return "# Restructured\n\n" + text[:min(len(text), 40)], nil
}

func (f *fakeAnnotator) Summarize(ctx context.Context, text string, o annotate.SummaryOptions) (string, error) {
	f.record("summary")
	if f.summaryGate != nil {
		select {
		case <-f.summaryGate:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return "A short summary.", nil
}

func (f *fakeAnnotator) ExtractConcepts(ctx context.Context, text string, o annotate.ConceptOptions) ([]documentModel.Concept, error) {
	f.record("concepts")
	if f.conceptErr != nil {
		return nil, f.conceptErr
	}
	return []documentModel.Concept{
		{Term: "Cell", Category: "concept", Importance: 4, Occurrences: []documentModel.Occurrence{{Position: 1, Context: "a cell"}}},
		{Term: "cell", Category: "concept", Importance: 5, Occurrences: []documentModel.Occurrence{{Position: 9, Context: "the cell"}}},
	}, nil
}

func (f *fakeAnnotator) GenerateExercises(ctx context.Context, text string, o annotate.ExerciseOptions) ([]documentModel.Exercise, error) {
	f.record("exercises")
	return []documentModel.Exercise{{Type: documentModel.TrueFalse, Question: "Cells exist?", CorrectAnswer: "true", Options: []string{"true", "false"}}}, nil
}

func (f *fakeAnnotator) GenerateMindMap(ctx context.Context, text string, o annotate.MindMapOptions) (annotate.MindMap, error) {
	f.record("mindmap")
	src := "mindmap\n  root\n    Cells\n    Tissues"
	return annotate.MindMap{Title: "Biology", DiagramSource: src, Validation: diagram.Validate(src)}, nil
}

// gatedExtractor holds every extraction until release is closed.
type gatedExtractor struct {
	started chan struct{}
	release chan struct{}
}

func newGatedExtractor() *gatedExtractor {
	return &gatedExtractor{started: make(chan struct{}, 1), release: make(chan struct{})}
}

func (g *gatedExtractor) Extract(ctx context.Context, in extract.Input) (extract.Result, error) {
	select {
	case g.started <- struct{}{}:
	default:
	}
	select {
	case <-g.release:
	case <-ctx.Done():
		return extract.Result{}, ctx.Err()
	}
	return extract.Result{Text: string(in.Data), WordCount: len(strings.Fields(string(in.Data)))}, nil
}

// flakyBlobs fails Delete while failDelete is set.
type flakyBlobs struct {
	*objectStore.MemoryStore
	failDelete atomic.Bool
}

func (f *flakyBlobs) Delete(ctx context.Context, key string) error {
	if f.failDelete.Load() {
		return apperr.New(apperr.UpstreamUnavailable, "object store unavailable")
	}
	return f.MemoryStore.Delete(ctx, key)
}

type harness struct {
	orch  *Orchestrator
	docs  *store.GormDocumentStore
	blobs *objectStore.MemoryStore
	jobs  *job.Service
}

// harnessOptions overrides pieces of the default harness. blobs wraps the
// memory store the harness keeps for direct inspection.
type harnessOptions struct {
	annotator Annotator
	extractor Extractor
	blobs     func(*objectStore.MemoryStore) objectStore.Store
}

func newHarness(t *testing.T, ann Annotator) *harness {
	t.Helper()
	return newHarnessWith(t, harnessOptions{annotator: ann})
}

func newHarnessWith(t *testing.T, opts harnessOptions) *harness {
	t.Helper()
	name := strings.ReplaceAll(t.Name(), "/", "_")
	db, err := database.Open(fmt.Sprintf("sqlite:file:pipeline_%s?mode=memory&cache=shared", name))
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	jobs := job.InitJobService(job.ServiceConfig{
		JobChannel:        make(chan jobModel.Job, 16),
		DispatcherChannel: make(chan bool, 4),
		JobStore:          store.InitInMemoryJobStore(),
	})
	h := &harness{
		docs:  store.NewGormDocumentStore(db),
		blobs: objectStore.NewMemoryStore(),
		jobs:  jobs,
	}
	var blobs objectStore.Store = h.blobs
	if opts.blobs != nil {
		blobs = opts.blobs(h.blobs)
	}
	var extractor Extractor = extract.NewService(http.DefaultClient)
	if opts.extractor != nil {
		extractor = opts.extractor
	}
	h.orch = New(Deps{
		Documents: h.docs,
		Artifacts: store.NewGormArtifactStore(db),
		Blobs:     blobs,
		Extractor: extractor,
		Annotator: opts.annotator,
		Jobs:      jobs,
	})
	pool := worker.NewPool(jobs, h.orch, worker.PoolConfig{MinWorkers: 2, MaxWorkers: 4, IdleTimeout: time.Minute})
	pool.Start()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = pool.Stop(ctx)
		database.Close(db)
	})
	return h
}

func (h *harness) waitForStatus(t *testing.T, owner, id string, want documentModel.Status) *documentModel.Document {
	t.Helper()
	var doc *documentModel.Document
	require.Eventually(t, func() bool {
		d, err := h.orch.Get(context.Background(), owner, id)
		if err != nil {
			return false
		}
		doc = d
		return d.Status == want
	}, 5*time.Second, 10*time.Millisecond)
	return doc
}

func words(n int) string {
	var b strings.Builder
	for i := 0; i < n; i++ {
		if i > 0 && i%20 == 0 {
			b.WriteString("\n")
		} else if i > 0 {
			b.WriteString(" ")
		}
		fmt.Fprintf(&b, "word%d", i)
	}
	return b.String()
}

func TestUploadPlainText_CompletesThenAnnotates(t *testing.T) {
	ann := &fakeAnnotator{summaryGate: make(chan struct{})}
	h := newHarness(t, ann)
	ctx := context.Background()

	created, err := h.orch.CreateUpload(ctx, "owner-1", UploadInput{
		Title: "Notes", FileName: "notes.txt", MimeType: "text/plain", Data: []byte(words(500)),
	})
	require.NoError(t, err)
	assert.Equal(t, documentModel.StatusPending, created.Document.Status)
	assert.NotEmpty(t, created.JobID)

	doc := h.waitForStatus(t, "owner-1", created.Document.ID, documentModel.StatusCompleted)
	assert.NotEmpty(t, doc.ExtractedText)
	assert.Nil(t, doc.ProcessingError)
	assert.InDelta(t, 500, doc.Meta().WordCount, 25)
	assert.NotContains(t, doc.ExtractedText, "#")

	_, err = h.orch.Summaries(ctx, "owner-1", doc.ID, "")
	assert.True(t, apperr.IsKind(err, apperr.NotFound), "summary must be absent before annotation finishes")

	close(ann.summaryGate)
	var summaries []documentModel.Summary
	require.Eventually(t, func() bool {
		summaries, err = h.orch.Summaries(ctx, "owner-1", doc.ID, "")
		return err == nil
	}, 5*time.Second, 10*time.Millisecond)
	require.Len(t, summaries, 1)
	assert.Equal(t, documentModel.SummaryStandard, summaries[0].Type)

	require.Eventually(t, func() bool {
		_, err := h.orch.RestructuredText(ctx, "owner-1", doc.ID)
		return err == nil
	}, 5*time.Second, 10*time.Millisecond)

	var concepts []documentModel.Concept
	require.Eventually(t, func() bool {
		concepts, err = h.orch.Concepts(ctx, "owner-1", doc.ID, documentModel.ConceptFilter{})
		return err == nil
	}, 5*time.Second, 10*time.Millisecond)
	require.Len(t, concepts, 1)
	assert.Equal(t, 5, concepts[0].Importance)
	assert.Len(t, concepts[0].Occurrences, 2)

	j, err := h.orch.Job(ctx, "owner-1", created.JobID)
	require.NoError(t, err)
	assert.Equal(t, jobModel.JobStatusComplete, j.Status)
	_, err = h.orch.Job(ctx, "owner-2", created.JobID)
	assert.True(t, apperr.IsKind(err, apperr.NotFound))
}

func TestUploadInvalidPDF_Fails(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	created, err := h.orch.CreateUpload(ctx, "owner-1", UploadInput{
		FileName: "broken.pdf", MimeType: "application/pdf", Data: []byte("%PDF-1.4 invalid"),
	})
	require.NoError(t, err)
	assert.Equal(t, commonModels.PDF, created.Document.OriginalFormat)

	doc := h.waitForStatus(t, "owner-1", created.Document.ID, documentModel.StatusFailed)
	require.NotNil(t, doc.ProcessingError)
	assert.NotEmpty(t, *doc.ProcessingError)
	assert.Empty(t, doc.ExtractedText)

	_, err = h.orch.ExtractedText(ctx, "owner-1", doc.ID)
	assert.True(t, apperr.IsKind(err, apperr.NotFound))

	// reprocessing unchanged bytes fails the same way every time
	for i := 0; i < 2; i++ {
		_, err = h.orch.Reprocess(ctx, "owner-1", doc.ID)
		assert.True(t, apperr.IsKind(err, apperr.MalformedInput), "attempt %d: %v", i, err)
		again, getErr := h.orch.Get(ctx, "owner-1", doc.ID)
		require.NoError(t, getErr)
		assert.Equal(t, documentModel.StatusFailed, again.Status)
		assert.Equal(t, *doc.ProcessingError, *again.ProcessingError)
	}
}

func TestReprocess(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	created, err := h.orch.CreateUpload(ctx, "owner-1", UploadInput{FileName: "a.txt", Data: []byte("hello there world")})
	require.NoError(t, err)
	doc := h.waitForStatus(t, "owner-1", created.Document.ID, documentModel.StatusCompleted)

	again, err := h.orch.Reprocess(ctx, "owner-1", doc.ID)
	require.NoError(t, err)
	assert.Equal(t, documentModel.StatusCompleted, again.Status)
	assert.Equal(t, doc.ExtractedText, again.ExtractedText)
	assert.Greater(t, again.Version, doc.Version)

	_, err = h.orch.Reprocess(ctx, "owner-2", doc.ID)
	assert.True(t, apperr.IsKind(err, apperr.NotFound))

}

func TestReprocessRecoversInterruptedExtraction(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	created, err := h.orch.CreateUpload(ctx, "owner-1", UploadInput{FileName: "a.txt", Data: []byte("hello there world")})
	require.NoError(t, err)
	doc := h.waitForStatus(t, "owner-1", created.Document.ID, documentModel.StatusCompleted)

	// left in processing by a run that never finished
	stuck := func() {
		d, err := h.docs.GetByID(ctx, doc.ID)
		require.NoError(t, err)
		d.Apply(documentModel.Processing{})
		require.NoError(t, h.docs.Update(ctx, d, d.Version))
		require.False(t, h.orch.busy(doc.ID))
	}

	stuck()
	again, err := h.orch.Reprocess(ctx, "owner-1", doc.ID)
	require.NoError(t, err)
	assert.Equal(t, documentModel.StatusCompleted, again.Status)
	assert.Equal(t, doc.ExtractedText, again.ExtractedText)
	assert.Nil(t, again.ProcessingError)

	stuck()
	again, err = h.orch.ReprocessNow(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, documentModel.StatusCompleted, again.Status)
}

func TestReprocessRejectedWhileExtractionInFlight(t *testing.T) {
	gate := newGatedExtractor()
	h := newHarnessWith(t, harnessOptions{extractor: gate})
	ctx := context.Background()

	created, err := h.orch.CreateUpload(ctx, "owner-1", UploadInput{FileName: "a.txt", Data: []byte("slow to parse")})
	require.NoError(t, err)
	id := created.Document.ID

	select {
	case <-gate.started:
	case <-time.After(5 * time.Second):
		t.Fatal("extraction never started")
	}
	require.True(t, h.orch.busy(id))

	_, err = h.orch.Reprocess(ctx, "owner-1", id)
	assert.True(t, apperr.IsKind(err, apperr.Validation), "got %v", err)
	assert.Equal(t, http.StatusBadRequest, apperr.HTTPStatus(err))
	_, err = h.orch.ReprocessNow(ctx, id)
	assert.True(t, apperr.IsKind(err, apperr.Validation), "got %v", err)

	inFlight, err := h.orch.Get(ctx, "owner-1", id)
	require.NoError(t, err)
	assert.Equal(t, documentModel.StatusProcessing, inFlight.Status)

	close(gate.release)
	doc := h.waitForStatus(t, "owner-1", id, documentModel.StatusCompleted)
	assert.Equal(t, "slow to parse", doc.ExtractedText)
}

func TestStaleExtractJobIsSkipped(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	doc := documentModel.NewDocument("", "owner-1", "manual", commonModels.TEXT, documentModel.Metadata{}, nil)
	require.NoError(t, h.docs.Create(ctx, doc))

	result := make(chan error, 1)
	j := job.NewJob(jobModel.JobTypeExtract, doc.ID, "owner-1", doc.Version+5, "")
	j.Result = result
	require.NoError(t, h.jobs.Enqueue(ctx, j))

	err := <-result
	assert.True(t, errors.Is(err, job.ErrSkipped))
	stored, err := h.orch.Get(ctx, "owner-1", doc.ID)
	require.NoError(t, err)
	assert.Equal(t, documentModel.StatusPending, stored.Status)
}

func TestAnnotationFailuresAreIsolated(t *testing.T) {
	ann := &fakeAnnotator{conceptErr: apperr.New(apperr.ResponseFormat, "bad concepts")}
	h := newHarness(t, ann)
	ctx := context.Background()

	created, err := h.orch.CreateUpload(ctx, "owner-1", UploadInput{FileName: "a.md", Data: []byte("cells and tissues")})
	require.NoError(t, err)
	doc := h.waitForStatus(t, "owner-1", created.Document.ID, documentModel.StatusCompleted)

	require.Eventually(t, func() bool {
		_, err := h.orch.Summaries(ctx, "owner-1", doc.ID, documentModel.SummaryStandard)
		return err == nil
	}, 5*time.Second, 10*time.Millisecond)

	_, err = h.orch.Concepts(ctx, "owner-1", doc.ID, documentModel.ConceptFilter{})
	assert.True(t, apperr.IsKind(err, apperr.NotFound))

	final, err := h.orch.Get(ctx, "owner-1", doc.ID)
	require.NoError(t, err)
	assert.Equal(t, documentModel.StatusCompleted, final.Status)
}

func TestOnDemandGeneration(t *testing.T) {
	h := newHarness(t, &fakeAnnotator{})
	ctx := context.Background()

	pending := documentModel.NewDocument("", "owner-1", "pending", commonModels.TEXT, documentModel.Metadata{}, nil)
	require.NoError(t, h.docs.Create(ctx, pending))
	_, err := h.orch.GenerateExercises(ctx, "owner-1", pending.ID, ExerciseRequest{Count: 1})
	assert.True(t, apperr.IsKind(err, apperr.Validation))
	_, err = h.orch.GenerateMindMap(ctx, "owner-1", pending.ID, MindMapRequest{})
	assert.True(t, apperr.IsKind(err, apperr.Validation))

	created, err := h.orch.CreateUpload(ctx, "owner-1", UploadInput{FileName: "bio.txt", Data: []byte("cells build tissues")})
	require.NoError(t, err)
	doc := h.waitForStatus(t, "owner-1", created.Document.ID, documentModel.StatusCompleted)

	_, err = h.orch.ExerciseSets(ctx, "owner-1", doc.ID)
	assert.True(t, apperr.IsKind(err, apperr.NotFound))

	set, err := h.orch.GenerateExercises(ctx, "owner-1", doc.ID, ExerciseRequest{Count: 1})
	require.NoError(t, err)
	assert.Len(t, set.Exercises, 1)
	sets, err := h.orch.ExerciseSets(ctx, "owner-1", doc.ID)
	require.NoError(t, err)
	assert.Len(t, sets, 1)

	mm, err := h.orch.GenerateMindMap(ctx, "owner-1", doc.ID, MindMapRequest{})
	require.NoError(t, err)
	assert.True(t, mm.Valid)
	latest, err := h.orch.MindMap(ctx, "owner-1", doc.ID)
	require.NoError(t, err)
	assert.Equal(t, mm.ID, latest.ID)

	_, err = h.orch.Search(ctx, "owner-1", doc.ID, "cells", 5)
	assert.True(t, errors.Is(err, ErrSearchDisabled))
}

func TestSoftDeleteAndPurge(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	created, err := h.orch.CreateUpload(ctx, "owner-1", UploadInput{FileName: "a.txt", Data: []byte("some words")})
	require.NoError(t, err)
	doc := h.waitForStatus(t, "owner-1", created.Document.ID, documentModel.StatusCompleted)

	require.NoError(t, h.orch.Delete(ctx, "owner-1", doc.ID))
	_, err = h.orch.Get(ctx, "owner-1", doc.ID)
	assert.True(t, apperr.IsKind(err, apperr.NotFound))
	list, err := h.orch.List(ctx, "owner-1", documentModel.ListFilter{})
	require.NoError(t, err)
	assert.Empty(t, list)

	// the blob survives soft delete
	rc, err := h.blobs.Get(ctx, doc.StorageKeyValue())
	require.NoError(t, err)
	rc.Close()

	purged, err := h.orch.PurgeDeletedBefore(ctx, time.Now().Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, []string{doc.ID}, purged)

	_, err = h.blobs.Get(ctx, doc.StorageKeyValue())
	assert.True(t, apperr.IsKind(err, apperr.NotFound))
	_, err = h.docs.GetByID(ctx, doc.ID)
	assert.True(t, apperr.IsKind(err, apperr.NotFound))
}

func TestPurgeKeepsRecordWhenBlobDeleteFails(t *testing.T) {
	var blobs *flakyBlobs
	h := newHarnessWith(t, harnessOptions{blobs: func(m *objectStore.MemoryStore) objectStore.Store {
		blobs = &flakyBlobs{MemoryStore: m}
		return blobs
	}})
	ctx := context.Background()

	created, err := h.orch.CreateUpload(ctx, "owner-1", UploadInput{FileName: "a.txt", Data: []byte("some words")})
	require.NoError(t, err)
	doc := h.waitForStatus(t, "owner-1", created.Document.ID, documentModel.StatusCompleted)
	require.NoError(t, h.orch.Delete(ctx, "owner-1", doc.ID))

	blobs.failDelete.Store(true)
	purged, err := h.orch.PurgeDeletedBefore(ctx, time.Now().Add(time.Minute))
	assert.True(t, apperr.IsKind(err, apperr.UpstreamUnavailable))
	assert.Empty(t, purged)

	pending, err := h.docs.ListDeletedBefore(ctx, time.Now().Add(time.Minute))
	require.NoError(t, err)
	require.Len(t, pending, 1)
	rc, err := h.blobs.Get(ctx, doc.StorageKeyValue())
	require.NoError(t, err)
	rc.Close()

	blobs.failDelete.Store(false)
	purged, err = h.orch.PurgeDeletedBefore(ctx, time.Now().Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, []string{doc.ID}, purged)

	_, err = h.blobs.Get(ctx, doc.StorageKeyValue())
	assert.True(t, apperr.IsKind(err, apperr.NotFound))
	_, err = h.orch.Purge(ctx, doc.ID)
	assert.True(t, apperr.IsKind(err, apperr.NotFound))
}

func TestCreateValidation(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	_, err := h.orch.CreateUpload(ctx, "o", UploadInput{FileName: "x.exe", MimeType: "application/x-msdownload", Data: []byte{0x4d, 0x5a, 0x00, 0x01}})
	assert.True(t, apperr.IsKind(err, apperr.Validation))

	_, err = h.orch.CreateUpload(ctx, "o", UploadInput{FileName: "x.txt"})
	assert.True(t, apperr.IsKind(err, apperr.Validation))

	for _, raw := range []string{"", "ftp://example.com/a", "/relative/path", "http://"} {
		_, err = h.orch.CreateURL(ctx, "o", URLInput{URL: raw})
		assert.True(t, apperr.IsKind(err, apperr.Validation), raw)
	}
}

func TestDetectFormat(t *testing.T) {
	assert.Equal(t, commonModels.PDF, DetectFormat("upload", "", []byte("%PDF-1.7 ...")))
	assert.Equal(t, commonModels.TEXT, DetectFormat("upload", "", []byte("plain words here")))
	assert.Equal(t, commonModels.DOCX, DetectFormat("essay.docx", "", nil))
}
