package worker

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/akolanti/docmind/internal/apperr"
	"github.com/akolanti/docmind/internal/domain/jobModel"
	"github.com/akolanti/docmind/internal/job"
)

// MockRunner tracks executed jobs
type MockRunner struct {
	ProcessedCount int32
	AbortCount     int32
	OnRunJob       func(ctx context.Context, j jobModel.Job) error
}

func (m *MockRunner) RunJob(ctx context.Context, j jobModel.Job) error {
	atomic.AddInt32(&m.ProcessedCount, 1)
	if m.OnRunJob != nil {
		return m.OnRunJob(ctx, j)
	}
	return nil
}

func (m *MockRunner) Abort(ctx context.Context, j jobModel.Job, cause error) {
	atomic.AddInt32(&m.AbortCount, 1)
}

type MockJobStore struct {
	mu   sync.Mutex
	jobs map[string]jobModel.Job
}

func newMockJobStore() *MockJobStore {
	return &MockJobStore{jobs: map[string]jobModel.Job{}}
}

func (m *MockJobStore) GetJob(ctx context.Context, jobId string) (jobModel.Job, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[jobId]
	return j, ok
}

func (m *MockJobStore) DeleteJob(ctx context.Context, jobID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.jobs, jobID)
}

func (m *MockJobStore) SaveJob(ctx context.Context, j jobModel.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	j.Result = nil
	m.jobs[j.Id] = j
	return nil
}

func newJobService(store jobModel.JobStore) *job.Service {
	return job.InitJobService(job.ServiceConfig{
		JobChannel:        make(chan jobModel.Job, 10),
		DispatcherChannel: make(chan bool, 10),
		JobStore:          store,
	})
}

func TestWorkerPool_Flow(t *testing.T) {
	store := newMockJobStore()
	jobSvc := newJobService(store)
	runner := &MockRunner{}
	pool := NewPool(jobSvc, runner, PoolConfig{MinWorkers: 1, MaxWorkers: 3, IdleTimeout: time.Minute})
	pool.Start()

	t.Run("Starts minimum workers", func(t *testing.T) {
		if count := pool.WorkerCount(); count != 1 {
			t.Errorf("Expected 1 worker, got %d", count)
		}
	})

	t.Run("Dispatcher creates worker on signal and respects max", func(t *testing.T) {
		for i := 0; i < 5; i++ {
			jobSvc.DispatcherChannel <- true
		}
		time.Sleep(50 * time.Millisecond)

		if count := pool.WorkerCount(); count != 3 {
			t.Errorf("Expected 3 workers, got %d", count)
		}
	})

	t.Run("Worker processes a job and records the outcome", func(t *testing.T) {
		result := make(chan error, 1)
		j := job.NewJob(jobModel.JobTypeExtract, "doc-1", "owner-1", 1, "trace-1")
		j.Result = result
		if err := jobSvc.Enqueue(context.Background(), j); err != nil {
			t.Fatalf("enqueue: %v", err)
		}

		select {
		case err := <-result:
			if err != nil {
				t.Errorf("Expected no error, got %v", err)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("job did not finish")
		}

		saved, ok := store.GetJob(context.Background(), j.Id)
		if !ok || saved.Status != jobModel.JobStatusComplete {
			t.Errorf("Expected COMPLETE job in store, got %+v", saved)
		}
		if atomic.LoadInt32(&runner.ProcessedCount) != 1 {
			t.Errorf("Expected 1 job processed, got %d", runner.ProcessedCount)
		}
	})

	t.Run("Stop signal retires workers", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := pool.Stop(ctx); err != nil {
			t.Errorf("Workers did not stop within timeout: %v", err)
		}
		if count := pool.WorkerCount(); count != 0 {
			t.Errorf("Expected 0 workers after stop, got %d", count)
		}
	})
}

func TestWorker_PanicAndErrorAreRecorded(t *testing.T) {
	store := newMockJobStore()
	jobSvc := newJobService(store)
	runner := &MockRunner{OnRunJob: func(ctx context.Context, j jobModel.Job) error {
		switch j.DocumentId {
		case "panic":
			panic("boom")
		case "fail":
			return apperr.New(apperr.UpstreamUnavailable, "model offline")
		case "skip":
			return job.ErrSkipped
		}
		return nil
	}}
	pool := NewPool(jobSvc, runner, PoolConfig{MinWorkers: 1, MaxWorkers: 1, IdleTimeout: time.Minute})
	pool.Start()
	defer pool.Stop(context.Background())

	run := func(docID string) (jobModel.Job, error) {
		result := make(chan error, 1)
		j := job.NewJob(jobModel.JobTypeAnnotate, docID, "owner", 1, "")
		j.Result = result
		if err := jobSvc.Enqueue(context.Background(), j); err != nil {
			t.Fatalf("enqueue: %v", err)
		}
		err := <-result
		saved, _ := store.GetJob(context.Background(), j.Id)
		return saved, err
	}

	saved, err := run("panic")
	if !apperr.IsKind(err, apperr.Internal) || saved.Status != jobModel.JobStatusError {
		t.Errorf("panic: got err %v status %s", err, saved.Status)
	}
	if atomic.LoadInt32(&runner.AbortCount) != 1 {
		t.Errorf("Expected Abort to be called once")
	}

	saved, _ = run("fail")
	if saved.Error == nil || !saved.Error.Retry || saved.Error.Kind != string(apperr.UpstreamUnavailable) {
		t.Errorf("fail: unexpected job error %+v", saved.Error)
	}

	saved, _ = run("skip")
	if saved.Status != jobModel.JobStatusSkipped {
		t.Errorf("skip: expected SKIPPED, got %s", saved.Status)
	}

	// the pool survives a panic
	if pool.WorkerCount() != 1 {
		t.Errorf("Expected worker to survive, got %d", pool.WorkerCount())
	}
}

func TestWorker_IdleTimeout(t *testing.T) {
	jobSvc := newJobService(newMockJobStore())
	pool := NewPool(jobSvc, &MockRunner{}, PoolConfig{MinWorkers: 1, MaxWorkers: 3, IdleTimeout: 50 * time.Millisecond})
	pool.Start()
	defer pool.Stop(context.Background())

	jobSvc.DispatcherChannel <- true
	jobSvc.DispatcherChannel <- true
	time.Sleep(20 * time.Millisecond)
	if count := pool.WorkerCount(); count != 3 {
		t.Fatalf("Expected 3 workers, got %d", count)
	}

	time.Sleep(300 * time.Millisecond)
	if count := pool.WorkerCount(); count != 1 {
		t.Errorf("Idle workers should retire down to the minimum, got %d", count)
	}
}
