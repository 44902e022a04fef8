package store

import (
	"context"
	"sync"
	"testing"

	"github.com/akolanti/docmind/internal/config"
	"github.com/akolanti/docmind/internal/data/redisStore"
	"github.com/akolanti/docmind/internal/domain/jobModel"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestRedisJobStore_Lifecycle(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	jobStore := NewRedisJobStore(redisStore.NewStoreFromClient(client))

	ctx := context.WithValue(context.Background(), config.TRACE_ID_KEY, "test-trace")
	jobID := "job_abc_123"

	testJob := jobModel.Job{
		Id:         jobID,
		DocumentId: "doc-1",
		JobType:    jobModel.JobTypeExtract,
		Status:     jobModel.JobStatusRunning,
	}

	t.Run("Save and Get Roundtrip", func(t *testing.T) {
		if err := jobStore.SaveJob(ctx, testJob); err != nil {
			t.Fatalf("SaveJob failed: %v", err)
		}

		retrievedJob, found := jobStore.GetJob(ctx, jobID)
		if !found {
			t.Fatal("Job was saved but not found in Redis")
		}
		if retrievedJob.DocumentId != testJob.DocumentId || retrievedJob.JobType != jobModel.JobTypeExtract {
			t.Errorf("Data mismatch! Got %+v", retrievedJob)
		}
		if ttl := mr.TTL(jobKeyPrefix + jobID); ttl != config.RedisJobStoreTTL {
			t.Errorf("expected ttl %v, got %v", config.RedisJobStoreTTL, ttl)
		}
	})

	t.Run("Get Non-Existent Job", func(t *testing.T) {
		if _, found := jobStore.GetJob(ctx, "ghost-id"); found {
			t.Error("Expected found=false for non-existent key")
		}
	})

	t.Run("Delete Job", func(t *testing.T) {
		jobStore.DeleteJob(ctx, jobID)
		if mr.Exists(jobKeyPrefix + jobID) {
			t.Error("Job still exists in Redis after DeleteJob call")
		}
	})
}

func TestNewRedisJobStore_NilFallback(t *testing.T) {
	if NewRedisJobStore(nil) != nil {
		t.Fatal("expected nil store when redis is unavailable")
	}
}

func TestInMemoryJobStore_Concurrent(t *testing.T) {
	jobStore := InitInMemoryJobStore()
	ctx := context.Background()
	result := make(chan error, 1)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = jobStore.SaveJob(ctx, jobModel.Job{Id: "race-job", Result: result})
			_, _ = jobStore.GetJob(ctx, "race-job")
		}()
	}
	wg.Wait()

	job, found := jobStore.GetJob(ctx, "race-job")
	if !found {
		t.Fatal("job not found")
	}
	if job.Result != nil {
		t.Error("result channel must not be persisted")
	}

	jobStore.DeleteJob(ctx, "race-job")
	if _, found = jobStore.GetJob(ctx, "race-job"); found {
		t.Error("job still present after delete")
	}
}
