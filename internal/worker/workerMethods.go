package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/akolanti/docmind/internal/apperr"
	"github.com/akolanti/docmind/internal/config"
	jobmodel "github.com/akolanti/docmind/internal/domain/jobModel"
	"github.com/akolanti/docmind/internal/job"
	"github.com/akolanti/docmind/internal/metrics"
)

func jobTimeout(t jobmodel.JobType) time.Duration {
	if t == jobmodel.JobTypeAnnotate {
		return config.AnnotateJobTimeout
	}
	return config.ExtractJobTimeout
}

func (p *Pool) executeJob(j jobmodel.Job) {
	start := time.Now()
	ctx := context.WithValue(context.Background(), config.TRACE_ID_KEY, j.TraceId)
	ctx = context.WithValue(ctx, config.OWNER_ID_KEY, j.OwnerId)
	ctx, cancel := context.WithTimeout(ctx, jobTimeout(j.JobType))
	defer cancel()

	log := p.logger.FromContext(ctx).With("jobId", j.Id, "type", j.JobType, "documentId", j.DocumentId)
	log.Debug("Processing job")

	j.Status = jobmodel.JobStatusRunning
	p.jobs.Save(ctx, j)

	err := p.runSafely(ctx, j)

	j.EndTime = time.Now().UTC()
	switch {
	case err == nil:
		j.Status = jobmodel.JobStatusComplete
		j.CurrentStep = jobmodel.Complete
	case errors.Is(err, job.ErrSkipped):
		j.Status = jobmodel.JobStatusSkipped
		j.CurrentStep = jobmodel.Complete
		log.Info("job skipped")
	default:
		j.Status = jobmodel.JobStatusError
		j.CurrentStep = jobmodel.Error
		j.Error = &jobmodel.JobError{
			Kind:    string(apperr.KindOf(err)),
			Message: apperr.PublicMessage(err),
			Retry:   apperr.Retryable(err),
		}
		log.Error("job failed", "error", err)
	}
	// the job context may already be expired; the final state must still land
	p.jobs.Save(context.WithoutCancel(ctx), j)
	metrics.CaptureJobMetrics(string(j.JobType), string(j.Status), time.Since(start))

	if j.Result != nil {
		j.Result <- err
	}
}

func (p *Pool) runSafely(ctx context.Context, j jobmodel.Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = apperr.New(apperr.Internal, fmt.Sprintf("job panicked: %v", r))
			p.logger.FromContext(ctx).Error("recovered panic in job", "jobId", j.Id, "panic", r)
			p.runner.Abort(context.WithoutCancel(ctx), j, err)
		}
	}()
	return p.runner.RunJob(ctx, j)
}
