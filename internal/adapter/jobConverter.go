package adapter

import (
	"net/http"
	"time"

	"github.com/akolanti/docmind/internal/api"
	"github.com/akolanti/docmind/internal/apperr"
	"github.com/akolanti/docmind/internal/domain/jobModel"
)

func ToJobResponse(job jobModel.Job) api.JobResponse {
	var errorPtr *api.OutgoingError
	if job.Error != nil {
		errorPtr = &api.OutgoingError{
			Code:    apperr.HTTPStatus(apperr.New(apperr.Kind(job.Error.Kind), job.Error.Message)),
			Kind:    job.Error.Kind,
			Message: job.Error.Message,
			Retry:   job.Error.Retry,
		}
	}

	var end *time.Time
	if !job.EndTime.IsZero() {
		t := job.EndTime
		end = &t
	}

	return api.JobResponse{
		Id:         job.Id,
		DocumentId: job.DocumentId,
		Type:       string(job.JobType),
		Status:     string(job.Status),
		Step:       string(job.CurrentStep),
		Error:      errorPtr,
		StartTime:  job.CreatedTime,
		EndTime:    end,
	}
}

// ToErrorResponse hides internal details; only the kind's public message leaves.
func ToErrorResponse(err error) (int, api.ErrorResponse) {
	code := apperr.HTTPStatus(err)
	return code, ErrorBody(code, string(apperr.KindOf(err)), apperr.PublicMessage(err), apperr.Retryable(err))
}

func ErrorBody(code int, kind string, message string, retry bool) api.ErrorResponse {
	if message == "" {
		message = http.StatusText(code)
	}
	return api.ErrorResponse{Error: api.OutgoingError{Code: code, Kind: kind, Message: message, Retry: retry}}
}
