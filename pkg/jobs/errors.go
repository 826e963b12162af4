package jobs

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

////////////////////////////////////////////////////////////////////////////////
// TYPES

// TimeoutError is the result of a job whose handler did not return within
// its lease
type TimeoutError struct {
	JobId   uint64        `json:"jobId"`
	Timeout time.Duration `json:"timeout"`
}

// RejectedError is returned when waiting on a job which was rejected. The
// result holds the serialized error recorded by the runner.
type RejectedError struct {
	JobId  uint64          `json:"jobId"`
	Result json.RawMessage `json:"result"`
}

// PanicError is the result of a job whose handler panicked
type PanicError struct {
	Value string `json:"value"`
}

////////////////////////////////////////////////////////////////////////////////
// GLOBALS

var (
	ErrInvalidSchema    = errors.New("schema must be a valid identifier")
	ErrInvalidTimeout   = errors.New("timeout must be >= 1ms")
	ErrInvalidPeriod    = errors.New("period must be >= 1ms")
	ErrInvalidWorker    = errors.New("worker id must not be empty")
	ErrInvalidJobType   = errors.New("job type must not be empty")
	ErrInvalidHandler   = errors.New("handler must not be nil")
	ErrDuplicateJobType = errors.New("job type is already registered")
	ErrUnknownJobType   = errors.New("no handler registered for job type")
	ErrContention       = errors.New("lost race with another runner")
	ErrDestroyed        = errors.New("destroyed")
)

////////////////////////////////////////////////////////////////////////////////
// STRINGIFY

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("job %d timed out after %v", e.JobId, e.Timeout)
}

func (e *PanicError) Error() string {
	return "panic: " + e.Value
}

// Error returns the message recorded with the rejection when there is one
func (e *RejectedError) Error() string {
	var result struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(e.Result, &result); err == nil && result.Message != "" {
		return fmt.Sprintf("job %d rejected: %s", e.JobId, result.Message)
	}
	return fmt.Sprintf("job %d rejected", e.JobId)
}
