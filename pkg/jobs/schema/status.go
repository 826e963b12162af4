package schema

import (
	"slices"

	// Packages
	pg "github.com/mutablelogic/go-pgjobs"
	httpresponse "github.com/mutablelogic/go-server/pkg/httpresponse"
)

////////////////////////////////////////////////////////////////////////////////
// TYPES

// Status of a job. A job starts unfulfilled and moves once to either
// resolved or rejected.
type Status string

// JobStatusRequest selects the count of jobs by type and status
type JobStatusRequest struct{}

// JobStatusCount is the number of jobs of one type in one status
type JobStatusCount struct {
	JobType string `json:"job_type"`
	Status  Status `json:"status"`
	Count   uint64 `json:"count"`
}

type JobStatusList struct {
	Body []JobStatusCount `json:"body,omitempty"`
}

// ActiveReservationRequest selects the count of valid reservations
type ActiveReservationRequest struct{}

// Count is a reader for a single count
type Count uint64

////////////////////////////////////////////////////////////////////////////////
// GLOBALS

const (
	StatusUnfulfilled Status = "unfulfilled"
	StatusResolved    Status = "resolved"
	StatusRejected    Status = "rejected"
)

var (
	statuses = []Status{StatusUnfulfilled, StatusResolved, StatusRejected}
)

////////////////////////////////////////////////////////////////////////////////
// PUBLIC METHODS

// Statuses returns all job statuses
func Statuses() []Status {
	return slices.Clone(statuses)
}

// Valid returns true for a known status
func (s Status) Valid() bool {
	return slices.Contains(statuses, s)
}

// Terminal returns true if the job has finished
func (s Status) Terminal() bool {
	return s == StatusResolved || s == StatusRejected
}

func (l JobStatusList) String() string {
	return stringify(l)
}

////////////////////////////////////////////////////////////////////////////////
// READER

func (c *JobStatusCount) Scan(row pg.Row) error {
	var status string
	if err := row.Scan(&c.JobType, &status, &c.Count); err != nil {
		return err
	}
	c.Status = Status(status)
	return nil
}

func (l *JobStatusList) Scan(row pg.Row) error {
	var count JobStatusCount
	if err := count.Scan(row); err != nil {
		return err
	}
	l.Body = append(l.Body, count)
	return nil
}

func (c *Count) Scan(row pg.Row) error {
	var n uint64
	if err := row.Scan(&n); err != nil {
		return err
	}
	*c = Count(n)
	return nil
}

////////////////////////////////////////////////////////////////////////////////
// SELECTOR

func (JobStatusRequest) Select(bind *pg.Bind, op pg.Op) (string, error) {
	switch op {
	case pg.List:
		return bind.Query("pgjobs.job_status_counts"), nil
	default:
		return "", httpresponse.ErrInternalError.Withf("unsupported JobStatusRequest operation %q", op)
	}
}

func (ActiveReservationRequest) Select(bind *pg.Bind, op pg.Op) (string, error) {
	switch op {
	case pg.Get:
		return bind.Query("pgjobs.reservation_active_count"), nil
	default:
		return "", httpresponse.ErrInternalError.Withf("unsupported ActiveReservationRequest operation %q", op)
	}
}
