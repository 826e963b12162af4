package jobs

import (
	"context"
	"encoding/json"
	"maps"
	"slices"
	"sync"

	// Packages
	otel "github.com/mutablelogic/go-client/pkg/otel"
	schema "github.com/mutablelogic/go-pgjobs/pkg/jobs/schema"
	workloop "github.com/mutablelogic/go-pgjobs/pkg/workloop"
	attribute "go.opentelemetry.io/otel/attribute"
)

////////////////////////////////////////////////////////////////////////////////
// TYPES

// Publisher inserts jobs and settles their tickets when they finish. A
// single drain loop, started with the first job, waits for notifications
// that jobs have finished and reads the finished rows for the jobs it is
// waiting on.
type Publisher struct {
	manager *Manager
	opts    opts
	loop    *workloop.WorkLoop

	// Held for reading while a job is published, and for writing by Destroy
	life sync.RWMutex

	mu        sync.Mutex
	waiters   map[uint64]*future
	started   bool
	destroyed bool
}

////////////////////////////////////////////////////////////////////////////////
// LIFECYCLE

// NewPublisher returns a publisher which uses the manager's connection
func (manager *Manager) NewPublisher(opt ...Opt) (*Publisher, error) {
	o, err := manager.opts.apply(opt...)
	if err != nil {
		return nil, err
	}
	loop, err := workloop.New("publisher", o.pollInterval)
	if err != nil {
		return nil, err
	}
	return &Publisher{
		manager: manager,
		opts:    o,
		loop:    loop,
		waiters: make(map[uint64]*future),
	}, nil
}

// Destroy stops the drain loop, after waiting for jobs which are being
// published. Tickets which have not been settled are left unsettled.
func (p *Publisher) Destroy() error {
	p.life.Lock()
	defer p.life.Unlock()
	p.mu.Lock()
	p.destroyed = true
	p.mu.Unlock()
	return p.loop.ShutDown()
}

////////////////////////////////////////////////////////////////////////////////
// PUBLIC METHODS

// Publish inserts a job, notifies runners and returns a ticket for the
// job's result
func (p *Publisher) Publish(ctx context.Context, meta schema.JobMeta) (*Job[json.RawMessage], error) {
	return Publish[json.RawMessage](ctx, p, meta)
}

// Publish inserts a job, notifies runners and returns a ticket which
// decodes the job's result as T. Returns ErrDestroyed without inserting
// the job when the publisher has been destroyed.
func Publish[T any](ctx context.Context, p *Publisher, meta schema.JobMeta) (*Job[T], error) {
	p.life.RLock()
	defer p.life.RUnlock()
	if p.isDestroyed() {
		return nil, ErrDestroyed
	}

	ctx, endspan := otel.StartSpan(p.opts.tracer, ctx, spanName("publish"),
		attribute.String("job_type", meta.JobType),
	)

	// Insert the job and notify runners in one transaction
	job, err := p.manager.CreateJob(ctx, meta)
	endspan(err)
	if err != nil {
		return nil, err
	}

	// Register the waiter, and wake the drain loop in case the job finished
	// before the waiter was registered
	future, err := p.wait(ctx, job.Id)
	if err != nil {
		return nil, err
	}
	p.loop.Wake()

	return &Job[T]{id: job.Id, future: future}, nil
}

// Waiting returns the ids of jobs whose tickets have not been settled
func (p *Publisher) Waiting() []uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	ids := slices.Collect(maps.Keys(p.waiters))
	slices.Sort(ids)
	return ids
}

////////////////////////////////////////////////////////////////////////////////
// PRIVATE METHODS

func (p *Publisher) isDestroyed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.destroyed
}

// wait registers a future for a job, and starts the drain loop if it is
// not already running
func (p *Publisher) wait(ctx context.Context, id uint64) (*future, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.destroyed {
		return nil, ErrDestroyed
	}
	f, exists := p.waiters[id]
	if !exists {
		f = newFuture()
		p.waiters[id] = f
	}
	if !p.started {
		// The loop outlives the context of the first call to Publish
		if err := p.loop.Run(context.WithoutCancel(ctx), p.drain); err != nil {
			return nil, err
		}
		p.started = true
	}
	return f, nil
}

// remove returns and removes the future for a job
func (p *Publisher) remove(id uint64) *future {
	p.mu.Lock()
	defer p.mu.Unlock()
	f := p.waiters[id]
	delete(p.waiters, id)
	return f
}

// drain is the body of the drain loop
func (p *Publisher) drain(ctx context.Context, loop *workloop.WorkLoop) error {
	log := logFromContext(ctx).With("loop", loop.Name())
	stop := listen(ctx, p.manager.conn, schema.ChannelJobsFinished, loop, log, p.opts.pollInterval)
	defer stop()

	for !loop.ShuttingDown() {
		if err := p.settle(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			// Database errors are retried on the next poll
			log.Print(ctx, "settle: ", err)
		}
		loop.Sleep(ctx)
		if ctx.Err() != nil {
			return nil
		}
	}
	return nil
}

// settle reads the finished rows for the jobs being waited on, and
// settles each of their futures
func (p *Publisher) settle(ctx context.Context) error {
	ids := p.Waiting()
	if len(ids) == 0 {
		return nil
	}

	var jobs schema.Jobs
	if err := p.manager.conn.List(ctx, &jobs, schema.JobSettledRequest{Ids: ids}); err != nil {
		return err
	}
	for _, job := range jobs {
		if f := p.remove(job.Id); f != nil {
			f.settle(job)
		}
	}
	return nil
}
