package pipeline

import (
	"context"
	"errors"
	"io"

	"github.com/akolanti/docmind/internal/apperr"
	"github.com/akolanti/docmind/internal/domain/documentModel"
	"github.com/akolanti/docmind/internal/domain/jobModel"
	"github.com/akolanti/docmind/internal/job"
)

func (o *Orchestrator) Get(ctx context.Context, ownerID, id string) (*documentModel.Document, error) {
	return o.docs.Get(ctx, ownerID, id)
}

func (o *Orchestrator) List(ctx context.Context, ownerID string, filter documentModel.ListFilter) ([]documentModel.Document, error) {
	if filter.Format != "" && !filter.Format.Valid() {
		return nil, apperr.Newf(apperr.Validation, "unknown format %q", filter.Format)
	}
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, apperr.Newf(apperr.Validation, "unknown status %q", filter.Status)
	}
	return o.docs.List(ctx, ownerID, filter)
}

func (o *Orchestrator) Delete(ctx context.Context, ownerID, id string) error {
	return o.docs.SoftDelete(ctx, ownerID, id)
}

func (o *Orchestrator) Job(ctx context.Context, ownerID, id string) (jobModel.Job, error) {
	return o.jobs.Get(ctx, ownerID, id)
}

// Download opens the original bytes. URL records have none.
func (o *Orchestrator) Download(ctx context.Context, ownerID, id string) (*documentModel.Document, io.ReadCloser, error) {
	doc, err := o.docs.Get(ctx, ownerID, id)
	if err != nil {
		return nil, nil, err
	}
	key := doc.StorageKeyValue()
	if key == "" {
		return nil, nil, apperr.New(apperr.NotFound, "document has no stored file")
	}
	rc, err := o.blobs.Get(ctx, key)
	if err != nil {
		return nil, nil, err
	}
	return doc, rc, nil
}

func (o *Orchestrator) ExtractedText(ctx context.Context, ownerID, id string) (*documentModel.Document, error) {
	doc, err := o.docs.Get(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	if !doc.IsExtracted() {
		return nil, apperr.New(apperr.NotFound, "extracted text is not available yet")
	}
	return doc, nil
}

func (o *Orchestrator) RestructuredText(ctx context.Context, ownerID, id string) (string, error) {
	doc, err := o.docs.Get(ctx, ownerID, id)
	if err != nil {
		return "", err
	}
	if doc.RestructuredText == nil || *doc.RestructuredText == "" {
		return "", apperr.New(apperr.NotFound, "restructured text has not been generated yet")
	}
	return *doc.RestructuredText, nil
}

func (o *Orchestrator) Summaries(ctx context.Context, ownerID, id string, summaryType documentModel.SummaryType) ([]documentModel.Summary, error) {
	if summaryType != "" && !summaryType.Valid() {
		return nil, apperr.Newf(apperr.Validation, "unknown summary type %q", summaryType)
	}
	if _, err := o.docs.Get(ctx, ownerID, id); err != nil {
		return nil, err
	}
	out, err := o.artifacts.ListSummaries(ctx, id, summaryType)
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, apperr.New(apperr.NotFound, "summary has not been generated yet")
	}
	return out, nil
}

func (o *Orchestrator) Concepts(ctx context.Context, ownerID, id string, filter documentModel.ConceptFilter) ([]documentModel.Concept, error) {
	if filter.MinImportance < 0 || filter.MinImportance > 5 {
		return nil, apperr.New(apperr.Validation, "importance must be between 1 and 5")
	}
	if _, err := o.docs.Get(ctx, ownerID, id); err != nil {
		return nil, err
	}
	out, err := o.artifacts.ListConcepts(ctx, id, filter)
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, apperr.New(apperr.NotFound, "concepts have not been generated yet")
	}
	return out, nil
}

func (o *Orchestrator) ExerciseSets(ctx context.Context, ownerID, id string) ([]documentModel.ExerciseSet, error) {
	if _, err := o.docs.Get(ctx, ownerID, id); err != nil {
		return nil, err
	}
	out, err := o.artifacts.ListExerciseSets(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, apperr.New(apperr.NotFound, "no exercises have been generated")
	}
	return out, nil
}

func (o *Orchestrator) MindMap(ctx context.Context, ownerID, id string) (*documentModel.MindMap, error) {
	if _, err := o.docs.Get(ctx, ownerID, id); err != nil {
		return nil, err
	}
	return o.artifacts.LatestMindMap(ctx, id)
}

// Reprocess runs one more extraction attempt and waits for it.
func (o *Orchestrator) Reprocess(ctx context.Context, ownerID, id string) (*documentModel.Document, error) {
	doc, err := o.docs.Get(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	if o.busy(doc.ID) {
		return nil, apperr.New(apperr.Validation, "document is currently processing")
	}
	if err = o.recoverInterrupted(ctx, doc); err != nil {
		return nil, err
	}
	if _, err = documentModel.Transition(doc.State(), documentModel.Start{}); err != nil {
		return nil, err
	}

	result := make(chan error, 1)
	j := job.NewJob(jobModel.JobTypeExtract, doc.ID, doc.OwnerID, doc.Version, traceID(ctx))
	j.Result = result
	if err = o.jobs.Enqueue(ctx, j); err != nil {
		return nil, err
	}

	select {
	case err = <-result:
	case <-ctx.Done():
		return nil, apperr.Wrap(apperr.UpstreamUnavailable, "reprocessing did not finish in time", ctx.Err())
	}
	if errors.Is(err, job.ErrSkipped) {
		return nil, apperr.New(apperr.Conflict, "document changed while reprocessing was queued")
	}
	if err != nil {
		return nil, err
	}
	return o.docs.Get(ctx, ownerID, id)
}

// ReprocessNow extracts in the calling goroutine, bypassing the queue.
func (o *Orchestrator) ReprocessNow(ctx context.Context, id string) (*documentModel.Document, error) {
	doc, err := o.docs.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err = o.recoverInterrupted(ctx, doc); err != nil {
		return nil, err
	}
	if _, err = documentModel.Transition(doc.State(), documentModel.Start{}); err != nil {
		return nil, err
	}
	j := job.NewJob(jobModel.JobTypeExtract, doc.ID, doc.OwnerID, doc.Version, traceID(ctx))
	err = o.RunJob(ctx, j)
	if errors.Is(err, job.ErrSkipped) {
		return nil, apperr.New(apperr.Conflict, "document is being processed elsewhere")
	}
	if err != nil {
		return nil, err
	}
	return o.docs.GetByID(ctx, id)
}

// recoverInterrupted fails a processing record that no extraction in this
// process holds, such as one left behind by a crash, so it can start again.
// Records with an extraction in flight are left alone.
func (o *Orchestrator) recoverInterrupted(ctx context.Context, doc *documentModel.Document) error {
	if doc.Status != documentModel.StatusProcessing || o.busy(doc.ID) {
		return nil
	}
	o.logger.FromContext(ctx).Warn("recovering interrupted extraction", "documentId", doc.ID)
	return o.settle(ctx, doc, documentModel.Fail{Reason: "extraction interrupted"})
}
