package jobs

import (
	"context"
	"encoding/json"
	"sync"

	// Packages
	schema "github.com/mutablelogic/go-pgjobs/pkg/jobs/schema"
)

////////////////////////////////////////////////////////////////////////////////
// TYPES

// Job is a ticket for a published job. It is settled once, when the job
// is resolved or rejected.
type Job[T any] struct {
	id     uint64
	future *future
}

// future holds the finished row for a job
type future struct {
	once sync.Once
	done chan struct{}
	job  schema.Job
}

////////////////////////////////////////////////////////////////////////////////
// LIFECYCLE

func newFuture() *future {
	return &future{done: make(chan struct{})}
}

////////////////////////////////////////////////////////////////////////////////
// PUBLIC METHODS

// Id returns the job id
func (j *Job[T]) Id() uint64 {
	return j.id
}

// Done returns a channel which is closed when the job is settled
func (j *Job[T]) Done() <-chan struct{} {
	return j.future.done
}

// Status returns the status of the job, which is unfulfilled until
// the job is settled
func (j *Job[T]) Status() schema.Status {
	select {
	case <-j.future.done:
		return j.future.job.Status
	default:
		return schema.StatusUnfulfilled
	}
}

// Wait blocks until the job is settled or the context is done, and returns
// the result. A rejected job returns a *RejectedError.
func (j *Job[T]) Wait(ctx context.Context) (T, error) {
	var result T
	select {
	case <-ctx.Done():
		return result, ctx.Err()
	case <-j.future.done:
	}

	job := j.future.job
	switch job.Status {
	case schema.StatusResolved:
		if len(job.Result) > 0 {
			if err := json.Unmarshal(job.Result, &result); err != nil {
				return result, err
			}
		}
		return result, nil
	default:
		return result, &RejectedError{JobId: job.Id, Result: job.Result}
	}
}

////////////////////////////////////////////////////////////////////////////////
// PRIVATE METHODS

// settle records the finished job. Returns false if it was already settled.
func (f *future) settle(job schema.Job) bool {
	settled := false
	f.once.Do(func() {
		f.job = job
		close(f.done)
		settled = true
	})
	return settled
}
