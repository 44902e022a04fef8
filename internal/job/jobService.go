package job

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/akolanti/docmind/internal/apperr"
	"github.com/akolanti/docmind/internal/config"
	"github.com/akolanti/docmind/internal/domain/jobModel"
	"github.com/akolanti/docmind/internal/metrics"
	"github.com/akolanti/docmind/pkg/logger_i"
	"github.com/google/uuid"
)

// ErrSkipped is returned by a runner when a job no longer applies, e.g. the
// document moved on to a newer version while the job waited in the queue.
var ErrSkipped = errors.New("job skipped")

type Service struct {
	JobChannel        chan jobModel.Job
	RequestCount      int64
	DispatcherChannel chan bool
	JobStore          jobModel.JobStore
	logger            *logger_i.Logger
}

type ServiceConfig struct {
	JobChannel        chan jobModel.Job
	DispatcherChannel chan bool
	JobStore          jobModel.JobStore
}

func InitJobService(cfg ServiceConfig) *Service {
	return &Service{
		JobChannel:        cfg.JobChannel,
		DispatcherChannel: cfg.DispatcherChannel,
		JobStore:          cfg.JobStore,
		logger:            logger_i.NewLogger("JobService"),
	}
}

// NewService builds a service with channels sized from cfg.
func NewService(cfg *config.Config, store jobModel.JobStore) *Service {
	return InitJobService(ServiceConfig{
		JobChannel:        make(chan jobModel.Job, cfg.QueueSize),
		DispatcherChannel: make(chan bool, cfg.MaxWorkers),
		JobStore:          store,
	})
}

func NewJob(jobType jobModel.JobType, documentID, ownerID string, version int64, traceID string) jobModel.Job {
	if traceID == "" {
		traceID = uuid.NewString()
	}
	return jobModel.Job{
		Id:              uuid.NewString(),
		TraceId:         traceID,
		DocumentId:      documentID,
		OwnerId:         ownerID,
		DocumentVersion: version,
		JobType:         jobType,
		CreatedTime:     time.Now().UTC(),
		Status:          jobModel.JobStatusQueued,
		CurrentStep:     jobModel.Init,
	}
}

// Enqueue records the job and blocks until the queue accepts it or ctx ends.
func (s *Service) Enqueue(ctx context.Context, j jobModel.Job) error {
	s.Save(ctx, j)
	select {
	case s.JobChannel <- j:
	case <-ctx.Done():
		s.markUnqueued(j, ctx.Err())
		return apperr.Wrap(apperr.UpstreamUnavailable, "job queue is full", ctx.Err())
	}
	s.accepted(ctx, j)
	return nil
}

// TryEnqueue never blocks. Workers use it for follow-up jobs so a full queue
// cannot stall the pool.
func (s *Service) TryEnqueue(ctx context.Context, j jobModel.Job) bool {
	s.Save(ctx, j)
	select {
	case s.JobChannel <- j:
		s.accepted(ctx, j)
		return true
	default:
		s.markUnqueued(j, errors.New("queue full"))
		return false
	}
}

func (s *Service) accepted(ctx context.Context, j jobModel.Job) {
	metrics.IncrementJobsInQueue()
	s.logger.FromContext(ctx).Info("queued job", "jobId", j.Id, "type", j.JobType, "documentId", j.DocumentId)

	// a new worker every few requests, or straight away for extraction
	count := atomic.AddInt64(&s.RequestCount, 1)
	if count%config.RequestsPerNewWorkerCount == 0 || j.JobType == jobModel.JobTypeExtract {
		select {
		case s.DispatcherChannel <- true:
			metrics.StartDispatcherSignalCount()
		default:
		}
	}
}

func (s *Service) markUnqueued(j jobModel.Job, cause error) {
	j.Status = jobModel.JobStatusError
	j.CurrentStep = jobModel.Error
	j.EndTime = time.Now().UTC()
	j.Error = &jobModel.JobError{Kind: string(apperr.UpstreamUnavailable), Message: "could not queue job: " + cause.Error(), Retry: true}
	s.Save(context.Background(), j)
}

// Save persists j. A progress update never reopens a job whose stored record
// already reached a terminal status.
func (s *Service) Save(ctx context.Context, j jobModel.Job) {
	if !j.Finished() {
		if prev, ok := s.JobStore.GetJob(ctx, j.Id); ok && prev.Finished() {
			s.logger.FromContext(ctx).Debug("ignoring update to finished job", "jobId", j.Id, "status", j.Status)
			return
		}
	}
	if err := s.JobStore.SaveJob(ctx, j); err != nil {
		s.logger.FromContext(ctx).Error("failed to save job state", "jobId", j.Id, "error", err)
	}
}

// Get returns the job only to its owner.
func (s *Service) Get(ctx context.Context, ownerID, id string) (jobModel.Job, error) {
	j, found := s.JobStore.GetJob(ctx, id)
	if !found || j.OwnerId != ownerID {
		return jobModel.Job{}, apperr.New(apperr.NotFound, "job not found")
	}
	return j, nil
}
