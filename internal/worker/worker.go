package worker

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/akolanti/docmind/internal/config"
	"github.com/akolanti/docmind/internal/domain/jobModel"
	"github.com/akolanti/docmind/internal/job"
	"github.com/akolanti/docmind/internal/metrics"
	"github.com/akolanti/docmind/pkg/logger_i"
)

// Runner executes one job. Abort is called when RunJob panicked so the runner
// can settle whatever the job left half done.
type Runner interface {
	RunJob(ctx context.Context, j jobModel.Job) error
	Abort(ctx context.Context, j jobModel.Job, cause error)
}

type PoolConfig struct {
	MinWorkers  int64
	MaxWorkers  int64
	IdleTimeout time.Duration
}

func PoolConfigFrom(cfg *config.Config) PoolConfig {
	return PoolConfig{
		MinWorkers:  cfg.MinWorkers,
		MaxWorkers:  cfg.MaxWorkers,
		IdleTimeout: config.IdleWorkerTimeout,
	}
}

type Pool struct {
	jobs               *job.Service
	runner             Runner
	cfg                PoolConfig
	currentWorkerCount int64
	stopWorkerChannel  chan struct{}
	stopOnce           sync.Once
	workerWaitGroup    sync.WaitGroup
	logger             *logger_i.Logger
}

func NewPool(jobs *job.Service, runner Runner, cfg PoolConfig) *Pool {
	if cfg.MinWorkers < 1 {
		cfg.MinWorkers = 1
	}
	if cfg.MaxWorkers < cfg.MinWorkers {
		cfg.MaxWorkers = cfg.MinWorkers
	}
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = config.IdleWorkerTimeout
	}
	return &Pool{
		jobs:              jobs,
		runner:            runner,
		cfg:               cfg,
		stopWorkerChannel: make(chan struct{}),
		logger:            logger_i.NewLogger("WorkerPool"),
	}
}

func (p *Pool) Start() {
	p.logger.Info("Initializing worker pool", "min", p.cfg.MinWorkers, "max", p.cfg.MaxWorkers)
	for i := int64(0); i < p.cfg.MinWorkers; i++ {
		p.tryCreateWorker()
	}
	go p.dispatcher()
}

// Stop signals every worker and waits for running jobs to finish or ctx to end.
func (p *Pool) Stop(ctx context.Context) error {
	p.stopOnce.Do(func() { close(p.stopWorkerChannel) })
	done := make(chan struct{})
	go func() {
		p.workerWaitGroup.Wait()
		close(done)
	}()
	select {
	case <-done:
		p.logger.Info("worker pool stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Pool) WorkerCount() int64 {
	return atomic.LoadInt64(&p.currentWorkerCount)
}

func (p *Pool) dispatcher() {
	p.logger.Info("Dispatcher started")
	for {
		select {
		case <-p.jobs.DispatcherChannel:
			p.tryCreateWorker()
		case <-p.stopWorkerChannel:
			return
		}
	}
}

func (p *Pool) tryCreateWorker() bool {
	for {
		current := atomic.LoadInt64(&p.currentWorkerCount)
		if current >= p.cfg.MaxWorkers {
			return false
		}
		if atomic.CompareAndSwapInt64(&p.currentWorkerCount, current, current+1) {
			break
		}
	}
	p.workerWaitGroup.Add(1)
	metrics.IncrementActiveWorkerCount()
	go p.worker()
	p.logger.Debug("Created new worker", "workerCount", p.WorkerCount())
	return true
}

// tryRetire gives up a slot only while the pool stays above its minimum.
func (p *Pool) tryRetire() bool {
	for {
		current := atomic.LoadInt64(&p.currentWorkerCount)
		if current <= p.cfg.MinWorkers {
			return false
		}
		if atomic.CompareAndSwapInt64(&p.currentWorkerCount, current, current-1) {
			return true
		}
	}
}

func (p *Pool) worker() {
	defer p.workerWaitGroup.Done()
	idle := time.NewTimer(p.cfg.IdleTimeout)
	defer idle.Stop()

	for {
		select {
		case <-p.stopWorkerChannel:
			p.removeWorker("Stop worker signal received")
			return

		case currentJob := <-p.jobs.JobChannel:
			metrics.DecrementJobsInQueue()
			p.executeJob(currentJob)
			resetTimer(idle, p.cfg.IdleTimeout)

		case <-idle.C:
			if p.tryRetire() {
				metrics.DecrementActiveWorkerCount()
				p.logger.Info("Idle worker timeout - Removed worker", "workerCount", p.WorkerCount())
				return
			}
			idle.Reset(p.cfg.IdleTimeout)
		}
	}
}

func (p *Pool) removeWorker(reason string) {
	atomic.AddInt64(&p.currentWorkerCount, -1)
	metrics.DecrementActiveWorkerCount()
	p.logger.Info("Removed worker", "reason", reason, "workerCount", p.WorkerCount())
}

func resetTimer(t *time.Timer, d time.Duration) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
	t.Reset(d)
}
