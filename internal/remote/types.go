// Package remote implements the client side of server-based scenario
// processing: uploading input layers through presigned URLs, submitting the
// scenario to the CPLUS API, following the job to a terminal state by
// polling (or by socket.io status events when the server streams them),
// cancelling, and downloading result rasters.
package remote

import (
	"fmt"

	"github.com/kartoza/cplus-engine/internal/model"
)

// JobState is the server-side lifecycle of a submitted scenario.
type JobState string

const (
	JobPending   JobState = "pending"
	JobQueued    JobState = "queued"
	JobRunning   JobState = "running"
	JobCompleted JobState = "completed"
	JobFailed    JobState = "failed"
	JobCancelled JobState = "cancelled"
)

// Terminal reports whether the job has finished, one way or another.
func (s JobState) Terminal() bool {
	switch s {
	case JobCompleted, JobFailed, JobCancelled:
		return true
	default:
		return false
	}
}

// ScenarioState maps the server state onto the history enum.
func (s JobState) ScenarioState() model.ScenarioState {
	switch s {
	case JobPending, JobQueued:
		return model.StatePending
	case JobRunning:
		return model.StateRunning
	case JobCompleted:
		return model.StateCompleted
	case JobCancelled:
		return model.StateCancelled
	default:
		return model.StateFailed
	}
}

// JobStatus is the payload of the status endpoint and of socket.io status
// events.
type JobStatus struct {
	JobID    string   `json:"uuid"`
	State    JobState `json:"state"`
	Progress float64  `json:"progress"`
	Message  string   `json:"message"`
}

// uploadTarget is the response of the upload-url endpoint.
type uploadTarget struct {
	LayerUUID string `json:"layer_uuid"`
	URL       string `json:"url"`
}

// submitResponse is the response of the scenario submission endpoint.
type submitResponse struct {
	JobID string `json:"uuid"`
}

// ResultFile is one downloadable output of a completed job.
type ResultFile struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// APIError is a non-2xx response from the CPLUS API.
type APIError struct {
	Status int
	Detail string
}

// Error implements the error interface for APIError.
func (e *APIError) Error() string {
	return fmt.Sprintf("cplus api: status %d: %s", e.Status, e.Detail)
}
