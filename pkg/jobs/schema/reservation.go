package schema

import (
	"time"

	// Packages
	pg "github.com/mutablelogic/go-pgjobs"
	httpresponse "github.com/mutablelogic/go-server/pkg/httpresponse"
)

////////////////////////////////////////////////////////////////////////////////
// TYPES

type ReservationId uint64

// ReservationMeta is a claim on a job by a runner. The lease is the lesser
// of the job timeout and MaxTimeout.
type ReservationMeta struct {
	JobId      uint64
	WorkerId   string
	MaxTimeout time.Duration
}

// Reservation is a row in the job_reservations table
type Reservation struct {
	Id          uint64     `json:"id"`
	JobId       uint64     `json:"job_id"`
	WorkerId    string     `json:"worker_id"`
	CreatedAt   time.Time  `json:"created_at"`
	LockedUntil time.Time  `json:"locked_until"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// ReservationListRequest selects the reservations for a job, oldest first
type ReservationListRequest struct {
	JobId uint64 `json:"job_id"`
}

type ReservationList struct {
	ReservationListRequest
	Count uint64        `json:"count"`
	Body  []Reservation `json:"body,omitempty"`
}

// ReservationStateRequest selects the state of a reservation when a
// runner commits the outcome of a job
type ReservationStateRequest uint64

// ReservationState is the state of a reservation, evaluated in the
// committing transaction
type ReservationState struct {
	Completed  bool
	Expired    bool
	Superseded bool
}

////////////////////////////////////////////////////////////////////////////////
// STRINGIFY

func (r Reservation) String() string {
	return stringify(r)
}

func (r ReservationList) String() string {
	return stringify(r)
}

////////////////////////////////////////////////////////////////////////////////
// PUBLIC METHODS

// Valid returns true if the reservation is neither completed nor expired
func (r Reservation) Valid(now time.Time) bool {
	return r.CompletedAt == nil && r.LockedUntil.After(now)
}

// Active returns the reservations which are valid at the given time
func (l ReservationList) Active(now time.Time) []Reservation {
	var result []Reservation
	for _, r := range l.Body {
		if r.Valid(now) {
			result = append(result, r)
		}
	}
	return result
}

////////////////////////////////////////////////////////////////////////////////
// READER

func (r *Reservation) Scan(row pg.Row) error {
	return row.Scan(&r.Id, &r.JobId, &r.WorkerId, &r.CreatedAt, &r.LockedUntil, &r.CompletedAt)
}

func (l *ReservationList) Scan(row pg.Row) error {
	var r Reservation
	if err := r.Scan(row); err != nil {
		return err
	}
	l.Body = append(l.Body, r)
	return nil
}

func (l *ReservationList) ScanCount(row pg.Row) error {
	return row.Scan(&l.Count)
}

func (s *ReservationState) Scan(row pg.Row) error {
	return row.Scan(&s.Completed, &s.Expired, &s.Superseded)
}

////////////////////////////////////////////////////////////////////////////////
// WRITER

func (r ReservationMeta) Insert(bind *pg.Bind) (string, error) {
	if r.JobId == 0 {
		return "", httpresponse.ErrBadRequest.With("missing job id")
	} else {
		bind.Set("job_id", r.JobId)
	}
	if r.WorkerId == "" {
		return "", httpresponse.ErrBadRequest.With("missing worker id")
	} else {
		bind.Set("worker_id", r.WorkerId)
	}
	if r.MaxTimeout <= 0 {
		return "", httpresponse.ErrBadRequest.With("max timeout must be greater than zero")
	} else {
		bind.Set("max_timeout", r.MaxTimeout.Seconds())
	}
	return bind.Query("pgjobs.reservation_insert"), nil
}

func (r ReservationMeta) Update(bind *pg.Bind) error {
	return httpresponse.ErrNotImplemented.With("reservations cannot be updated")
}

////////////////////////////////////////////////////////////////////////////////
// SELECTOR

// Mark a reservation as completed
func (r ReservationId) Select(bind *pg.Bind, op pg.Op) (string, error) {
	if r == 0 {
		return "", httpresponse.ErrBadRequest.With("missing reservation id")
	}
	bind.Set("reservation_id", uint64(r))

	switch op {
	case pg.Update:
		return bind.Query("pgjobs.reservation_complete"), nil
	default:
		return "", httpresponse.ErrInternalError.Withf("unsupported ReservationId operation %q", op)
	}
}

func (r ReservationStateRequest) Select(bind *pg.Bind, op pg.Op) (string, error) {
	if r == 0 {
		return "", httpresponse.ErrBadRequest.With("missing reservation id")
	}
	bind.Set("reservation_id", uint64(r))

	switch op {
	case pg.Get:
		return bind.Query("pgjobs.reservation_state"), nil
	default:
		return "", httpresponse.ErrInternalError.Withf("unsupported ReservationStateRequest operation %q", op)
	}
}

func (r ReservationListRequest) Select(bind *pg.Bind, op pg.Op) (string, error) {
	if r.JobId == 0 {
		return "", httpresponse.ErrBadRequest.With("missing job id")
	}
	bind.Set("job_id", r.JobId)
	(&pg.OffsetLimit{}).Bind(bind, ReservationListLimit)

	switch op {
	case pg.List:
		return bind.Query("pgjobs.reservation_list"), nil
	default:
		return "", httpresponse.ErrInternalError.Withf("unsupported ReservationListRequest operation %q", op)
	}
}
