package pipeline

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/akolanti/docmind/internal/annotate"
	"github.com/akolanti/docmind/internal/apperr"
	"github.com/akolanti/docmind/internal/config"
	"github.com/akolanti/docmind/internal/domain/documentModel"
	"github.com/akolanti/docmind/internal/domain/jobModel"
	"github.com/akolanti/docmind/internal/extract"
	"github.com/akolanti/docmind/internal/job"
	"github.com/akolanti/docmind/internal/metrics"
	"golang.org/x/sync/errgroup"
)

// RunJob is called by the worker pool.
func (o *Orchestrator) RunJob(ctx context.Context, j jobModel.Job) error {
	switch j.JobType {
	case jobModel.JobTypeExtract:
		return o.runExtract(ctx, &j)
	case jobModel.JobTypeAnnotate:
		return o.runAnnotate(ctx, &j)
	}
	return apperr.Newf(apperr.Internal, "unknown job type %q", j.JobType)
}

// Abort settles a document whose extraction panicked so it does not stay processing.
func (o *Orchestrator) Abort(ctx context.Context, j jobModel.Job, cause error) {
	if j.JobType != jobModel.JobTypeExtract {
		return
	}
	doc, err := o.docs.GetByID(ctx, j.DocumentId)
	if err != nil {
		return
	}
	if _, ok := doc.State().(documentModel.Processing); !ok {
		return
	}
	if err = o.settle(ctx, doc, documentModel.Fail{Reason: "extraction aborted: " + apperr.PublicMessage(cause)}); err != nil {
		o.logger.FromContext(ctx).Error("could not mark aborted document as failed", "documentId", doc.ID, "error", err)
	}
}

func (o *Orchestrator) step(ctx context.Context, j *jobModel.Job, s jobModel.InternalStatus) {
	j.CurrentStep = s
	j.Status = jobModel.JobStatusRunning
	if o.jobs != nil {
		o.jobs.Save(ctx, *j)
	}
}

// settle applies one state machine event and persists it against the version just read.
func (o *Orchestrator) settle(ctx context.Context, doc *documentModel.Document, ev documentModel.Event) error {
	next, err := documentModel.Transition(doc.State(), ev)
	if err != nil {
		return err
	}
	expected := doc.Version
	doc.Apply(next)
	return o.docs.Update(ctx, doc, expected)
}

func (o *Orchestrator) runExtract(ctx context.Context, j *jobModel.Job) error {
	log := o.logger.FromContext(ctx).With("documentId", j.DocumentId, "jobId", j.Id)

	if !o.acquire(j.DocumentId) {
		log.Info("extraction already running for document")
		return job.ErrSkipped
	}
	defer o.release(j.DocumentId)

	doc, err := o.docs.GetByID(ctx, j.DocumentId)
	if apperr.IsKind(err, apperr.NotFound) {
		return job.ErrSkipped
	}
	if err != nil {
		return err
	}
	if j.DocumentVersion != 0 && doc.Version != j.DocumentVersion {
		log.Info("document changed since the job was queued", "queued", j.DocumentVersion, "current", doc.Version)
		return job.ErrSkipped
	}

	if err = o.settle(ctx, doc, documentModel.Start{}); err != nil {
		return err
	}

	o.step(ctx, j, jobModel.FetchBlob)
	in, err := o.input(ctx, doc)
	var res extract.Result
	if err == nil {
		o.step(ctx, j, jobModel.Extracting)
		res, err = o.extractor.Extract(ctx, in)
	}

	o.step(ctx, j, jobModel.DocumentUpdate)
	// the job context may be expired after a slow parse; the outcome still has to land
	writeCtx := context.WithoutCancel(ctx)
	if err != nil {
		log.Warn("extraction failed", "kind", apperr.KindOf(err), "error", err)
		if uErr := o.settle(writeCtx, doc, documentModel.Fail{Reason: apperr.PublicMessage(err)}); uErr != nil {
			return uErr
		}
		return err
	}

	meta := doc.Meta()
	if meta.Author == "" {
		meta.Author = res.Author
	}
	doc.SetMeta(meta)
	if err = o.settle(writeCtx, doc, documentModel.Succeed{
		Text:      res.Text,
		PageCount: res.PageCount,
		WordCount: res.WordCount,
		Warnings:  res.Warnings,
	}); err != nil {
		return err
	}
	log.Info("extraction completed", "words", res.WordCount, "pages", res.PageCount)

	o.followUp(ctx, j, doc)
	return nil
}

func (o *Orchestrator) input(ctx context.Context, doc *documentModel.Document) (extract.Input, error) {
	meta := doc.Meta()
	in := extract.Input{
		Format:   doc.OriginalFormat,
		MimeType: meta.MimeType,
		Filename: meta.OriginalFilename,
		URL:      doc.SourceURL,
	}
	key := doc.StorageKeyValue()
	if key == "" {
		return in, nil
	}
	rc, err := o.blobs.Get(ctx, key)
	if err != nil {
		return in, err
	}
	defer rc.Close()
	in.Data, err = io.ReadAll(io.LimitReader(rc, o.maxUploadBytes+1))
	if err != nil {
		return in, apperr.Wrap(apperr.UpstreamUnavailable, "could not read stored document", err)
	}
	return in, nil
}

// followUp hands the completed document to annotation without gating the extraction job.
func (o *Orchestrator) followUp(ctx context.Context, j *jobModel.Job, doc *documentModel.Document) {
	if o.annotator == nil && o.semantic == nil {
		return
	}
	next := job.NewJob(jobModel.JobTypeAnnotate, doc.ID, doc.OwnerID, doc.Version, j.TraceId)
	if !o.inlineAnnotation && o.jobs != nil && o.jobs.TryEnqueue(ctx, next) {
		return
	}

	actx, cancel := context.WithTimeout(context.WithoutCancel(ctx), config.AnnotateJobTimeout)
	defer cancel()
	if err := o.runAnnotate(actx, &next); err != nil && !errors.Is(err, job.ErrSkipped) {
		o.logger.FromContext(ctx).Warn("inline annotation incomplete", "documentId", doc.ID, "error", err)
	}
}

type artifactOutcome struct {
	name string
	err  error
}

// runAnnotate derives the background artifacts concurrently. Each artifact succeeds
// or fails on its own; failures are logged and reported on the job only.
func (o *Orchestrator) runAnnotate(ctx context.Context, j *jobModel.Job) error {
	log := o.logger.FromContext(ctx).With("documentId", j.DocumentId, "jobId", j.Id)

	doc, err := o.docs.GetByID(ctx, j.DocumentId)
	if apperr.IsKind(err, apperr.NotFound) {
		return job.ErrSkipped
	}
	if err != nil {
		return err
	}
	if !doc.IsExtracted() || (j.DocumentVersion != 0 && doc.Version != j.DocumentVersion) {
		log.Info("document no longer matches the annotation job", "status", doc.Status, "version", doc.Version)
		return job.ErrSkipped
	}
	o.step(ctx, j, jobModel.Annotating)

	text := doc.ExtractedText
	// only the restructure step touches doc; everything else reads the snapshot
	snapshot := *doc
	outcomes := make(chan artifactOutcome, 4)
	var g errgroup.Group

	run := func(name string, fn func() error) {
		g.Go(func() error {
			start := time.Now()
			err := fn()
			metrics.CaptureExecutionMetrics("annotate_"+name, time.Since(start))
			outcomes <- artifactOutcome{name: name, err: err}
			return nil
		})
	}

	if o.annotator != nil {
		run("restructure", func() error {
			out, err := o.annotator.Restructure(ctx, text, annotate.RestructureOptions{})
			if err != nil {
				return err
			}
			expected := doc.Version
			doc.RestructuredText = &out
			return o.docs.Update(ctx, doc, expected)
		})
		run("summary", func() error {
			content, err := o.annotator.Summarize(ctx, text, annotate.SummaryOptions{
				Type:             documentModel.SummaryType(config.DefaultSummaryType),
				Language:         config.DefaultLanguage,
				IncludeKeyPoints: true,
			})
			if err != nil {
				return err
			}
			_, err = o.artifacts.UpsertSummary(ctx, &documentModel.Summary{
				DocumentID:       snapshot.ID,
				OwnerID:          snapshot.OwnerID,
				Type:             documentModel.SummaryType(config.DefaultSummaryType),
				Language:         config.DefaultLanguage,
				IncludeKeyPoints: true,
				Content:          content,
			})
			return err
		})
		run("concepts", func() error {
			concepts, err := o.annotator.ExtractConcepts(ctx, text, annotate.ConceptOptions{
				MaxConcepts: config.DefaultMaxConcepts,
				Language:    config.DefaultLanguage,
			})
			if err != nil {
				return err
			}
			_, err = o.artifacts.MergeConcepts(ctx, snapshot.ID, snapshot.OwnerID, concepts)
			return err
		})
	}
	if o.semantic != nil {
		run("semantic_index", func() error {
			_, err := o.semantic.IndexDocument(ctx, &snapshot)
			return err
		})
	}

	_ = g.Wait()
	close(outcomes)

	var failed []string
	var last error
	for oc := range outcomes {
		if oc.err != nil {
			metrics.RecordAnnotation(oc.name, "failed")
			log.Error("annotation artifact failed", "artifact", oc.name, "kind", apperr.KindOf(oc.err), "error", oc.err)
			failed = append(failed, oc.name)
			last = oc.err
			continue
		}
		metrics.RecordAnnotation(oc.name, "completed")
		log.Debug("annotation artifact stored", "artifact", oc.name)
	}
	if len(failed) > 0 {
		return apperr.Wrap(apperr.KindOf(last), "annotation incomplete: "+strings.Join(failed, ", "), last)
	}
	return nil
}
