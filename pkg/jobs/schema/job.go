package schema

import (
	"encoding/json"
	"strings"
	"time"

	// Packages
	pg "github.com/mutablelogic/go-pgjobs"
	httpresponse "github.com/mutablelogic/go-server/pkg/httpresponse"
)

////////////////////////////////////////////////////////////////////////////////
// TYPES

type JobId uint64

// JobMeta describes a job to be published. Timeout is in seconds and
// must be greater than zero. Args are encoded as JSON.
type JobMeta struct {
	JobType          string  `json:"job_type"`
	ConcurrencyGroup *string `json:"concurrency_group,omitempty"`
	Timeout          uint64  `json:"timeout"`
	Priority         int     `json:"priority,omitempty"`
	Args             any     `json:"args,omitempty"`
}

// Job is a row in the jobs table
type Job struct {
	Id               uint64          `json:"id"`
	JobType          string          `json:"job_type"`
	ConcurrencyGroup *string         `json:"concurrency_group,omitempty"`
	Timeout          uint64          `json:"timeout"`
	Priority         int             `json:"priority"`
	Args             json.RawMessage `json:"args,omitempty"`
	Status           Status          `json:"status"`
	CreatedAt        time.Time       `json:"created_at"`
	FinishedAt       *time.Time      `json:"finished_at,omitempty"`
	Result           json.RawMessage `json:"result,omitempty"`
}

// JobListRequest filters the list of jobs, newest first
type JobListRequest struct {
	pg.OffsetLimit
	Status  Status `json:"status,omitempty"`
	JobType string `json:"job_type,omitempty"`
}

type JobList struct {
	JobListRequest
	Count uint64 `json:"count"`
	Body  []Job  `json:"body,omitempty"`
}

// JobSettledRequest selects those jobs which are no longer unfulfilled
type JobSettledRequest struct {
	Ids []uint64
}

// Jobs is a reader for a list of jobs without a count
type Jobs []Job

// JobClaim selects the next job which a runner may reserve
type JobClaim struct {
	Priority int
}

// JobFinish moves an unfulfilled job to a terminal status
type JobFinish struct {
	Id     uint64
	Status Status
	Result json.RawMessage
}

////////////////////////////////////////////////////////////////////////////////
// STRINGIFY

func (j Job) String() string {
	return stringify(j)
}

func (j JobMeta) String() string {
	return stringify(j)
}

func (j JobList) String() string {
	return stringify(j)
}

////////////////////////////////////////////////////////////////////////////////
// PUBLIC METHODS

// TimeoutDuration returns the timeout as a duration
func (j Job) TimeoutDuration() time.Duration {
	return time.Duration(j.Timeout) * time.Second
}

////////////////////////////////////////////////////////////////////////////////
// READER

func (j *Job) Scan(row pg.Row) error {
	var status string
	if err := row.Scan(&j.Id, &j.JobType, &j.ConcurrencyGroup, &j.Timeout, &j.Priority, &j.Args, &status, &j.CreatedAt, &j.FinishedAt, &j.Result); err != nil {
		return err
	}
	j.Status = Status(status)
	return nil
}

func (l *JobList) Scan(row pg.Row) error {
	var job Job
	if err := job.Scan(row); err != nil {
		return err
	}
	l.Body = append(l.Body, job)
	return nil
}

func (l *JobList) ScanCount(row pg.Row) error {
	return row.Scan(&l.Count)
}

func (l *Jobs) Scan(row pg.Row) error {
	var job Job
	if err := job.Scan(row); err != nil {
		return err
	}
	*l = append(*l, job)
	return nil
}

////////////////////////////////////////////////////////////////////////////////
// WRITER

func (j JobMeta) Insert(bind *pg.Bind) (string, error) {
	if jobType := strings.TrimSpace(j.JobType); jobType == "" {
		return "", httpresponse.ErrBadRequest.With("missing job_type")
	} else {
		bind.Set("job_type", jobType)
	}
	if j.ConcurrencyGroup != nil && strings.TrimSpace(*j.ConcurrencyGroup) != "" {
		bind.Set("concurrency_group", strings.TrimSpace(*j.ConcurrencyGroup))
	} else {
		bind.Set("concurrency_group", nil)
	}
	if j.Timeout == 0 {
		return "", httpresponse.ErrBadRequest.With("timeout must be greater than zero")
	} else if j.Timeout > maxTimeoutSeconds {
		return "", httpresponse.ErrBadRequest.Withf("timeout must be at most %d seconds", maxTimeoutSeconds)
	} else {
		bind.Set("timeout", int64(j.Timeout))
	}
	bind.Set("priority", j.Priority)

	// Args are stored as JSON, and null when not set
	if data, err := json.Marshal(j.Args); err != nil {
		return "", httpresponse.ErrBadRequest.Withf("args: %v", err)
	} else {
		bind.Set("args", string(data))
	}

	return bind.Query("pgjobs.job_insert"), nil
}

func (j JobMeta) Update(bind *pg.Bind) error {
	return httpresponse.ErrNotImplemented.With("jobs cannot be updated")
}

////////////////////////////////////////////////////////////////////////////////
// SELECTOR

func (j JobId) Select(bind *pg.Bind, op pg.Op) (string, error) {
	if j == 0 {
		return "", httpresponse.ErrBadRequest.With("missing job id")
	}
	bind.Set("job_id", uint64(j))

	switch op {
	case pg.Get:
		return bind.Query("pgjobs.job_get"), nil
	default:
		return "", httpresponse.ErrInternalError.Withf("unsupported JobId operation %q", op)
	}
}

func (l JobListRequest) Select(bind *pg.Bind, op pg.Op) (string, error) {
	var where []string
	if l.Status != "" {
		if !l.Status.Valid() {
			return "", httpresponse.ErrBadRequest.Withf("invalid status %q", l.Status)
		}
		where = append(where, `status = `+bind.Set("status", string(l.Status))+`::${"schema"}.job_statuses`)
	}
	if jobType := strings.TrimSpace(l.JobType); jobType != "" {
		where = append(where, `job_type = `+bind.Set("job_type", jobType))
	}
	if len(where) == 0 {
		bind.Set("where", "")
	} else {
		bind.Set("where", "WHERE "+strings.Join(where, " AND "))
	}
	l.OffsetLimit.Bind(bind, JobListLimit)

	switch op {
	case pg.List:
		return bind.Query("pgjobs.job_list"), nil
	default:
		return "", httpresponse.ErrInternalError.Withf("unsupported JobListRequest operation %q", op)
	}
}

func (r JobSettledRequest) Select(bind *pg.Bind, op pg.Op) (string, error) {
	ids := make([]int64, 0, len(r.Ids))
	for _, id := range r.Ids {
		ids = append(ids, int64(id))
	}
	bind.Set("job_ids", ids)

	switch op {
	case pg.List:
		return bind.Query("pgjobs.job_settled"), nil
	default:
		return "", httpresponse.ErrInternalError.Withf("unsupported JobSettledRequest operation %q", op)
	}
}

func (c JobClaim) Select(bind *pg.Bind, op pg.Op) (string, error) {
	bind.Set("priority", c.Priority)

	switch op {
	case pg.Get:
		return bind.Query("pgjobs.job_claim"), nil
	default:
		return "", httpresponse.ErrInternalError.Withf("unsupported JobClaim operation %q", op)
	}
}

func (f JobFinish) Select(bind *pg.Bind, op pg.Op) (string, error) {
	if f.Id == 0 {
		return "", httpresponse.ErrBadRequest.With("missing job id")
	} else {
		bind.Set("job_id", f.Id)
	}
	if !f.Status.Terminal() {
		return "", httpresponse.ErrBadRequest.Withf("invalid terminal status %q", f.Status)
	} else {
		bind.Set("status", string(f.Status))
	}
	if len(f.Result) == 0 {
		bind.Set("result", "null")
	} else if !json.Valid(f.Result) {
		return "", httpresponse.ErrBadRequest.With("result is not valid JSON")
	} else {
		bind.Set("result", string(f.Result))
	}

	switch op {
	case pg.Update:
		return bind.Query("pgjobs.job_finish"), nil
	default:
		return "", httpresponse.ErrInternalError.Withf("unsupported JobFinish operation %q", op)
	}
}
