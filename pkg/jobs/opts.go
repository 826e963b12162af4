package jobs

import (
	"context"
	"os"
	"strings"
	"time"

	// Packages
	uuid "github.com/google/uuid"
	schema "github.com/mutablelogic/go-pgjobs/pkg/jobs/schema"
	types "github.com/mutablelogic/go-pgjobs/pkg/types"
	trace "go.opentelemetry.io/otel/trace"
	noop "go.opentelemetry.io/otel/trace/noop"
)

////////////////////////////////////////////////////////////////////////////////
// TYPES

// Opt is a functional option for the manager, publishers and runners.
// Options given to NewPublisher and NewRunner are applied on top of those
// given to New.
type Opt func(*opts) error

// ErrorReporter receives errors which indicate a misconfiguration or a
// failure of the runner itself, rather than the failure of a job
type ErrorReporter func(ctx context.Context, err error)

type opts struct {
	schema       string
	workerId     string
	maxTimeout   time.Duration
	priority     int
	pollInterval time.Duration
	reporter     ErrorReporter
	tracer       trace.Tracer
}

////////////////////////////////////////////////////////////////////////////////
// OPTIONS

// WithSchema sets the schema which holds the jobs and reservations tables.
// Returns ErrInvalidSchema if the name is not a valid identifier.
func WithSchema(name string) Opt {
	return func(o *opts) error {
		if name = strings.TrimSpace(name); !types.IsIdentifier(name) {
			return ErrInvalidSchema
		}
		o.schema = name
		return nil
	}
}

// WithWorkerId sets the identifier recorded with each reservation made by
// a runner. Defaults to the hostname with a random suffix.
func WithWorkerId(id string) Opt {
	return func(o *opts) error {
		if id = strings.TrimSpace(id); id == "" {
			return ErrInvalidWorker
		}
		o.workerId = id
		return nil
	}
}

// WithMaxTimeout sets the longest a runner waits for a handler, and the
// longest lease it takes on a job. Returns ErrInvalidTimeout if d < 1ms.
func WithMaxTimeout(d time.Duration) Opt {
	return func(o *opts) error {
		if d < time.Millisecond {
			return ErrInvalidTimeout
		}
		o.maxTimeout = d
		return nil
	}
}

// WithPriority sets the minimum priority of jobs which a runner claims
func WithPriority(priority int) Opt {
	return func(o *opts) error {
		o.priority = priority
		return nil
	}
}

// WithPollInterval sets how often runners and publishers check the
// database when no notification is received. Returns ErrInvalidPeriod
// if d < 1ms.
func WithPollInterval(d time.Duration) Opt {
	return func(o *opts) error {
		if d < time.Millisecond {
			return ErrInvalidPeriod
		}
		o.pollInterval = d
		return nil
	}
}

// WithErrorReporter sets a function which receives unknown job types,
// handler panics and errors which stop a runner
func WithErrorReporter(fn ErrorReporter) Opt {
	return func(o *opts) error {
		o.reporter = fn
		return nil
	}
}

// WithTracer sets the tracer for claim, execute and commit spans
func WithTracer(tracer trace.Tracer) Opt {
	return func(o *opts) error {
		o.tracer = tracer
		return nil
	}
}

////////////////////////////////////////////////////////////////////////////////
// PRIVATE METHODS

func defaultOpts() opts {
	return opts{
		schema:       schema.SchemaName,
		maxTimeout:   schema.DefaultMaxTimeout,
		pollInterval: schema.DefaultPollInterval,
		tracer:       noop.NewTracerProvider().Tracer(schema.SchemaName),
	}
}

// apply returns a copy of the options with opt applied
func (o opts) apply(opt ...Opt) (opts, error) {
	for _, fn := range opt {
		if err := fn(&o); err != nil {
			return opts{}, err
		}
	}
	if o.tracer == nil {
		o.tracer = noop.NewTracerProvider().Tracer(schema.SchemaName)
	}
	return o, nil
}

// defaultWorkerId returns the hostname with a random suffix, so that
// several runners on one host are distinguished
func defaultWorkerId() string {
	hostname, err := os.Hostname()
	if err != nil || hostname == "" {
		hostname = "worker"
	}
	return hostname + "-" + strings.SplitN(uuid.NewString(), "-", 2)[0]
}

func (o opts) report(ctx context.Context, err error) {
	if o.reporter != nil && err != nil {
		o.reporter(ctx, err)
	}
}
