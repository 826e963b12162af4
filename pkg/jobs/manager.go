package jobs

import (
	"context"
	"strconv"
	"strings"

	// Packages
	pg "github.com/mutablelogic/go-pgjobs"
	schema "github.com/mutablelogic/go-pgjobs/pkg/jobs/schema"
	sql "github.com/mutablelogic/go-pgjobs/pkg/jobs/sql"
	trace "go.opentelemetry.io/otel/trace"
)

////////////////////////////////////////////////////////////////////////////////
// TYPES

// Manager holds a connection bound to a schema, and creates publishers
// and runners which share it
type Manager struct {
	conn pg.PoolConn
	opts opts
}

////////////////////////////////////////////////////////////////////////////////
// LIFECYCLE

// New creates a manager, and creates the schema objects if they do not
// already exist. Several processes may call New at the same time.
func New(ctx context.Context, conn pg.PoolConn, opt ...Opt) (*Manager, error) {
	self := new(Manager)

	// Check connection
	if conn == nil {
		return nil, pg.ErrBadParameter.With("connection is nil")
	}

	// Apply options
	o, err := defaultOpts().apply(opt...)
	if err != nil {
		return nil, err
	} else {
		self.opts = o
	}

	// Parse query SQL
	queries, err := pg.NewQueries(strings.NewReader(sql.Queries))
	if err != nil {
		return nil, err
	}

	// Parse object SQL
	objects, err := pg.NewQueries(strings.NewReader(sql.Objects))
	if err != nil {
		return nil, err
	}

	// Bind the queries and the schema name
	self.conn = conn.WithQueries(queries).With("schema", o.schema).(pg.PoolConn)

	// Create the objects, holding an advisory lock
	if err := self.conn.Tx(ctx, func(conn pg.Conn) error {
		for _, key := range objects.Keys() {
			if err := conn.Exec(ctx, objects.Get(key)); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		return nil, err
	}

	// Return success
	return self, nil
}

////////////////////////////////////////////////////////////////////////////////
// PUBLIC METHODS

// Schema returns the schema name
func (manager *Manager) Schema() string {
	return manager.opts.schema
}

// Conn returns the connection, bound to the schema
func (manager *Manager) Conn() pg.PoolConn {
	return manager.conn
}

// Tracer returns the tracer used for spans
func (manager *Manager) Tracer() trace.Tracer {
	return manager.opts.tracer
}

// CreateJob inserts a job and notifies runners, without waiting for it to
// finish. Use a Publisher to wait for the result.
func (manager *Manager) CreateJob(ctx context.Context, meta schema.JobMeta) (*schema.Job, error) {
	var job schema.Job
	if err := manager.conn.Tx(ctx, func(conn pg.Conn) error {
		if err := conn.Insert(ctx, &job, meta); err != nil {
			return err
		}
		return conn.Get(ctx, nil, schema.Notify{
			Channel: schema.ChannelJobs,
			Payload: job.JobType,
		})
	}); err != nil {
		return nil, err
	}
	return &job, nil
}

// GetJob returns a job
func (manager *Manager) GetJob(ctx context.Context, id uint64) (*schema.Job, error) {
	var job schema.Job
	if err := manager.conn.Get(ctx, &job, schema.JobId(id)); err != nil {
		return nil, err
	}
	return &job, nil
}

// ListJobs returns jobs, newest first, with optional filtering
func (manager *Manager) ListJobs(ctx context.Context, req schema.JobListRequest) (*schema.JobList, error) {
	list := schema.JobList{JobListRequest: req}
	if err := manager.conn.List(ctx, &list, req); err != nil {
		return nil, err
	}
	list.OffsetLimit.Clamp(schema.JobListLimit)
	return &list, nil
}

// ListReservations returns the reservations for a job, oldest first.
// Returns ErrNotFound if the job does not exist.
func (manager *Manager) ListReservations(ctx context.Context, job uint64) (*schema.ReservationList, error) {
	list := schema.ReservationList{ReservationListRequest: schema.ReservationListRequest{JobId: job}}
	if err := manager.conn.Tx(ctx, func(conn pg.Conn) error {
		if err := conn.Get(ctx, new(schema.Job), schema.JobId(job)); err != nil {
			return err
		}
		return conn.List(ctx, &list, list.ReservationListRequest)
	}); err != nil {
		return nil, err
	}
	return &list, nil
}

// ListJobStatuses returns the number of jobs for each job type and status
func (manager *Manager) ListJobStatuses(ctx context.Context) ([]schema.JobStatusCount, error) {
	var list schema.JobStatusList
	if err := manager.conn.List(ctx, &list, schema.JobStatusRequest{}); err != nil {
		return nil, err
	}
	return list.Body, nil
}

// CountActiveReservations returns the number of reservations which are
// neither completed nor expired
func (manager *Manager) CountActiveReservations(ctx context.Context) (uint64, error) {
	var count schema.Count
	if err := manager.conn.Get(ctx, &count, schema.ActiveReservationRequest{}); err != nil {
		return 0, err
	}
	return uint64(count), nil
}

////////////////////////////////////////////////////////////////////////////////
// PRIVATE METHODS

// notifyFinished sends the id of a finished job to publishers
func notifyFinished(ctx context.Context, conn pg.Conn, id uint64) error {
	return conn.Get(ctx, nil, schema.Notify{
		Channel: schema.ChannelJobsFinished,
		Payload: strconv.FormatUint(id, 10),
	})
}
