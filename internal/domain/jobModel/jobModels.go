package jobModel

import (
	"context"
	"time"
)

type JobStatus string
type InternalStatus string

type JobType string

const (
	JobStatusQueued   JobStatus = "QUEUED"
	JobStatusRunning  JobStatus = "RUNNING"
	JobStatusComplete JobStatus = "COMPLETE"
	JobStatusError    JobStatus = "Error"
	JobStatusSkipped  JobStatus = "SKIPPED"

	Init           InternalStatus = "Init"
	FetchBlob      InternalStatus = "FetchBlob"
	Extracting     InternalStatus = "Extracting"
	Annotating     InternalStatus = "Annotating"
	DocumentUpdate InternalStatus = "DocumentUpdate"
	Error          InternalStatus = "Error"
	Complete       InternalStatus = "Complete"

	JobTypeExtract  JobType = "Extract"
	JobTypeAnnotate JobType = "Annotate"
)

type Job struct {
	Id              string         `json:"id"`
	TraceId         string         `json:"trace_id"`
	DocumentId      string         `json:"document_id"`
	OwnerId         string         `json:"owner_id"`
	DocumentVersion int64          `json:"document_version"`
	JobType         JobType        `json:"job_type"`
	Error           *JobError      `json:"error,omitempty"`
	CreatedTime     time.Time      `json:"created_time"`
	EndTime         time.Time      `json:"end_time,omitempty"`
	Status          JobStatus      `json:"status"`
	CurrentStep     InternalStatus `json:"current_step"`

	// Result, when set, receives the job outcome exactly once. Only synchronous
	// callers (reprocess) set it; it never leaves the process.
	Result chan<- error `json:"-"`
}

type JobError struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
	Retry   bool   `json:"retry"`
}

func (j Job) Finished() bool {
	return j.Status == JobStatusComplete || j.Status == JobStatusError || j.Status == JobStatusSkipped
}

type JobStore interface {
	GetJob(ctx context.Context, jobId string) (Job, bool)
	SaveJob(ctx context.Context, job Job) error
	DeleteJob(ctx context.Context, jobID string)
}
