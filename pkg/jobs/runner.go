package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	// Packages
	otel "github.com/mutablelogic/go-client/pkg/otel"
	pg "github.com/mutablelogic/go-pgjobs"
	schema "github.com/mutablelogic/go-pgjobs/pkg/jobs/schema"
	workloop "github.com/mutablelogic/go-pgjobs/pkg/workloop"
	attribute "go.opentelemetry.io/otel/attribute"
)

////////////////////////////////////////////////////////////////////////////////
// TYPES

// Handler runs a job. The args are the JSON args of the job, with a jobInfo
// field added when they are an object. The returned value is encoded as
// JSON and becomes the result of a resolved job; an error becomes the
// result of a rejected job.
type Handler func(ctx context.Context, args json.RawMessage) (any, error)

// Runner claims jobs, runs their handlers and commits their results
type Runner struct {
	manager *Manager
	opts    opts
	loop    *workloop.WorkLoop

	mu       sync.RWMutex
	handlers map[string]Handler
}

// Claim is a job reserved by a runner
type Claim struct {
	Job         schema.Job         `json:"job"`
	Reservation schema.Reservation `json:"reservation"`

	// Time before the reservation was inserted, which is no later than
	// the start of its lease
	claimed time.Time
}

// Outcome is the terminal status and result of a job
type Outcome struct {
	Status schema.Status   `json:"status"`
	Result json.RawMessage `json:"result,omitempty"`
}

////////////////////////////////////////////////////////////////////////////////
// GLOBALS

// Number of times a commit is retried on a serialization failure
const commitRetries = 5

// errSkip rolls back a commit which lost a race
var errSkip = errors.New("skip")

////////////////////////////////////////////////////////////////////////////////
// LIFECYCLE

// NewRunner returns a runner which uses the manager's connection
func (manager *Manager) NewRunner(opt ...Opt) (*Runner, error) {
	o, err := manager.opts.apply(opt...)
	if err != nil {
		return nil, err
	}
	if o.workerId == "" {
		o.workerId = defaultWorkerId()
	}
	loop, err := workloop.New("runner", o.pollInterval)
	if err != nil {
		return nil, err
	}
	return &Runner{
		manager:  manager,
		opts:     o,
		loop:     loop,
		handlers: make(map[string]Handler),
	}, nil
}

// Destroy requests the loop to stop, and waits for the current iteration
// to finish. A handler which is running is not cancelled. Returns the error
// which stopped the loop, if any.
func (r *Runner) Destroy() error {
	return r.loop.ShutDown()
}

////////////////////////////////////////////////////////////////////////////////
// STRINGIFY

func (c Claim) String() string {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err.Error()
	}
	return string(data)
}

////////////////////////////////////////////////////////////////////////////////
// PUBLIC METHODS

// WorkerId returns the identifier recorded with reservations
func (r *Runner) WorkerId() string {
	return r.opts.workerId
}

// Register sets the handler for a job type
func (r *Runner) Register(jobType string, handler Handler) error {
	if jobType = strings.TrimSpace(jobType); jobType == "" {
		return ErrInvalidJobType
	} else if handler == nil {
		return ErrInvalidHandler
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.handlers[jobType]; exists {
		return fmt.Errorf("%w: %q", ErrDuplicateJobType, jobType)
	}
	r.handlers[jobType] = handler
	return nil
}

// RegisterFunc sets the handler for a job type, decoding the args as A
func RegisterFunc[A, R any](r *Runner, jobType string, fn func(context.Context, A) (R, error)) error {
	if fn == nil {
		return ErrInvalidHandler
	}
	return r.Register(jobType, func(ctx context.Context, args json.RawMessage) (any, error) {
		var a A
		if len(args) > 0 {
			if err := json.Unmarshal(args, &a); err != nil {
				return nil, err
			}
		}
		return fn(ctx, a)
	})
}

// Start runs the loop in the background until Destroy is called, the
// context is cancelled, or a database error stops it
func (r *Runner) Start(ctx context.Context) error {
	return r.loop.Run(ctx, r.run)
}

// Run runs the loop until the context is cancelled. The iteration in
// progress when the context is cancelled is completed, and its result
// committed, before Run returns.
func (r *Runner) Run(ctx context.Context) error {
	if err := r.Start(context.WithoutCancel(ctx)); err != nil {
		return err
	}
	select {
	case <-ctx.Done():
	case <-r.loop.Done():
	}
	return r.Destroy()
}

// Next claims a job, executes it and commits the outcome. Returns true
// if a job was processed, or a race was lost, so that the caller should
// call Next again without waiting. Returns false when there is no job to
// claim.
func (r *Runner) Next(ctx context.Context) (bool, error) {
	claim, err := r.Claim(ctx)
	if errors.Is(err, ErrContention) {
		return true, nil
	} else if err != nil {
		return false, err
	} else if claim == nil {
		return false, nil
	}

	outcome := r.Execute(ctx, claim)
	if _, err := r.Commit(ctx, claim, outcome); err != nil {
		return false, err
	}

	return true, nil
}

// Claim reserves the oldest job which the runner may claim. Returns nil
// when there is no such job, and ErrContention when another runner claimed
// a job at the same time.
func (r *Runner) Claim(ctx context.Context) (_ *Claim, err error) {
	ctx, endspan := otel.StartSpan(r.opts.tracer, ctx, spanName("claim"),
		attribute.String("worker", r.opts.workerId),
		attribute.Int("priority", r.opts.priority),
	)
	defer func() { endspan(err) }()

	claim := Claim{claimed: time.Now()}
	err = r.manager.conn.Serializable(ctx, func(conn pg.Conn) error {
		if err := conn.Get(ctx, &claim.Job, schema.JobClaim{Priority: r.opts.priority}); err != nil {
			return err
		}
		return conn.Insert(ctx, &claim.Reservation, schema.ReservationMeta{
			JobId:      claim.Job.Id,
			WorkerId:   r.opts.workerId,
			MaxTimeout: r.opts.maxTimeout,
		})
	})
	switch {
	case errors.Is(err, pg.ErrNotFound):
		return nil, nil
	case pg.IsSerializationFailure(err):
		logFromContext(ctx).With("worker", r.opts.workerId).Debug(ctx, "claim: ", ErrContention)
		return nil, ErrContention
	case err != nil:
		return nil, err
	}

	return &claim, nil
}

// Execute runs the handler for a claimed job, racing it against the job
// timeout capped at the runner's maximum timeout. When the timeout wins, the handler's context
// is cancelled but the handler is not waited for. A handler which panics
// or returns an error, and a handler which times out, all reject the job.
func (r *Runner) Execute(ctx context.Context, claim *Claim) (outcome Outcome) {
	job := claim.Job
	log := logFromContext(ctx).With("job", job.Id, "job_type", job.JobType, "worker", r.opts.workerId)

	ctx, endspan := otel.StartSpan(r.opts.tracer, ctx, spanName("execute"),
		attribute.Int64("job", int64(job.Id)),
		attribute.String("job_type", job.JobType),
		attribute.Int64("reservation", int64(claim.Reservation.Id)),
	)
	defer func() {
		if outcome.Status == schema.StatusRejected {
			endspan(&RejectedError{JobId: job.Id, Result: outcome.Result})
		} else {
			endspan(nil)
		}
	}()

	// Unknown job types are a misconfiguration, and are reported
	r.mu.RLock()
	handler, exists := r.handlers[job.JobType]
	r.mu.RUnlock()
	if !exists {
		err := fmt.Errorf("%w: %q", ErrUnknownJobType, job.JobType)
		log.Print(ctx, err)
		r.opts.report(ctx, err)
		return reject(err)
	}

	// Run the handler in the background
	info := JobInfo{JobId: job.Id, ReservationId: claim.Reservation.Id, WorkerId: r.opts.workerId}
	args := withJobInfoArgs(job.Args, info)
	hctx, cancel := context.WithCancel(withJobInfo(ctx, info))
	defer cancel()

	type response struct {
		result any
		err    error
	}
	ch := make(chan response, 1)
	go func() {
		defer func() {
			if v := recover(); v != nil {
				err := &PanicError{Value: fmt.Sprint(v)}
				log.Print(ctx, err)
				r.opts.report(ctx, err)
				ch <- response{err: err}
			}
		}()
		result, err := handler(hctx, args)
		ch <- response{result, err}
	}()

	// Race the handler against the lease, which is the lesser of the job
	// timeout and the runner's maximum timeout. The timer ends before the
	// lease does, so that no other runner can claim the job, or a job in
	// the same group, while the handler runs.
	timeout := r.opts.maxTimeout
	if t := job.TimeoutDuration(); t > 0 && t < timeout {
		timeout = t
	}
	claimed := claim.claimed
	if claimed.IsZero() {
		claimed = time.Now()
	}
	timer := time.NewTimer(time.Until(claimed.Add(timeout)))
	defer timer.Stop()
	select {
	case resp := <-ch:
		if resp.err != nil {
			log.Debug(ctx, "rejected: ", resp.err)
			return reject(resp.err)
		}
		data, err := json.Marshal(resp.result)
		if err != nil {
			return reject(fmt.Errorf("result: %w", err))
		}
		return Outcome{Status: schema.StatusResolved, Result: data}
	case <-timer.C:
		err := &TimeoutError{JobId: job.Id, Timeout: timeout}
		log.Print(ctx, err)
		return reject(err)
	}
}

// Commit records the outcome of a job. Returns false without an error when
// the job was already finished, the reservation was already completed, or
// the reservation expired and the job was claimed again. Serialization
// failures are retried.
func (r *Runner) Commit(ctx context.Context, claim *Claim, outcome Outcome) (committed bool, err error) {
	ctx, endspan := otel.StartSpan(r.opts.tracer, ctx, spanName("commit"),
		attribute.Int64("job", int64(claim.Job.Id)),
		attribute.String("status", string(outcome.Status)),
	)
	defer func() { endspan(err) }()

	log := logFromContext(ctx).With("job", claim.Job.Id, "worker", r.opts.workerId)
	for attempt := 0; ; attempt++ {
		committed, err = r.commit(ctx, claim, outcome)
		switch {
		case errors.Is(err, errSkip):
			log.Debug(ctx, "commit: ", err)
			return false, nil
		case pg.IsSerializationFailure(err) && attempt < commitRetries:
			log.Debug(ctx, "commit: retry ", attempt+1, ": ", err)
			continue
		case pg.IsSerializationFailure(err):
			// The reservation will expire, and the job will be claimed again
			log.Print(ctx, "commit: ", err)
			return false, nil
		default:
			return committed, err
		}
	}
}

////////////////////////////////////////////////////////////////////////////////
// PRIVATE METHODS

// run is the body of the runner loop
func (r *Runner) run(ctx context.Context, loop *workloop.WorkLoop) error {
	log := logFromContext(ctx).With("loop", loop.Name(), "worker", r.opts.workerId)
	stop := listen(ctx, r.manager.conn, schema.ChannelJobs, loop, log, r.opts.pollInterval)
	defer stop()

	log.Debug(ctx, "started")
	defer log.Debug(ctx, "stopped")

	for !loop.ShuttingDown() {
		// Process jobs until there are none to claim
		for !loop.ShuttingDown() {
			more, err := r.Next(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				r.opts.report(ctx, err)
				return err
			} else if !more {
				break
			}
		}
		loop.Sleep(ctx)
		if ctx.Err() != nil {
			return nil
		}
	}
	return nil
}

// commit is a single attempt to record the outcome of a job
func (r *Runner) commit(ctx context.Context, claim *Claim, outcome Outcome) (bool, error) {
	err := r.manager.conn.Serializable(ctx, func(conn pg.Conn) error {
		// The job must still be unfulfilled
		var job schema.Job
		if err := conn.Get(ctx, &job, schema.JobId(claim.Job.Id)); err != nil {
			return err
		} else if job.Status != schema.StatusUnfulfilled {
			return fmt.Errorf("%w: job is %s", errSkip, job.Status)
		}

		// The reservation must not be completed, or expired and superseded
		var state schema.ReservationState
		if err := conn.Get(ctx, &state, schema.ReservationStateRequest(claim.Reservation.Id)); err != nil {
			return err
		} else if state.Completed {
			return fmt.Errorf("%w: reservation is completed", errSkip)
		} else if state.Expired && state.Superseded {
			return fmt.Errorf("%w: reservation is expired and superseded", errSkip)
		}

		// Finish the job, complete the reservation and notify publishers
		if err := conn.Update(ctx, &job, schema.JobFinish{
			Id:     claim.Job.Id,
			Status: outcome.Status,
			Result: outcome.Result,
		}, nil); err != nil {
			return err
		}
		if err := conn.Update(ctx, &claim.Reservation, schema.ReservationId(claim.Reservation.Id), nil); err != nil {
			return err
		}
		claim.Job = job
		return notifyFinished(ctx, conn, job.Id)
	})
	if err != nil {
		return false, err
	}
	return true, nil
}

func reject(err error) Outcome {
	return Outcome{Status: schema.StatusRejected, Result: SerializeError(err)}
}

func spanName(op string) string {
	return schema.SchemaName + "." + op
}
