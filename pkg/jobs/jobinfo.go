package jobs

import (
	"context"
	"encoding/json"
	"strings"
)

////////////////////////////////////////////////////////////////////////////////
// TYPES

// JobInfo identifies the job and reservation for a running handler. A
// handler can use it to detect that its reservation has been superseded.
type JobInfo struct {
	JobId         uint64 `json:"jobId"`
	ReservationId uint64 `json:"reservationId"`
	WorkerId      string `json:"workerId,omitempty"`
}

type jobInfoKey struct{}

////////////////////////////////////////////////////////////////////////////////
// GLOBALS

// Key added to args which are a JSON object
const jobInfoField = "jobInfo"

////////////////////////////////////////////////////////////////////////////////
// PUBLIC METHODS

// JobInfoFromContext returns the job info for a running handler
func JobInfoFromContext(ctx context.Context) (JobInfo, bool) {
	info, ok := ctx.Value(jobInfoKey{}).(JobInfo)
	return info, ok
}

////////////////////////////////////////////////////////////////////////////////
// PRIVATE METHODS

func withJobInfo(ctx context.Context, info JobInfo) context.Context {
	return context.WithValue(ctx, jobInfoKey{}, info)
}

// withJobInfoArgs returns the args with a jobInfo field added when they
// are a JSON object. Any other args are returned unchanged.
func withJobInfoArgs(args json.RawMessage, info JobInfo) json.RawMessage {
	if !strings.HasPrefix(strings.TrimSpace(string(args)), "{") {
		return args
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(args, &fields); err != nil || fields == nil {
		return args
	}
	data, err := json.Marshal(struct {
		JobId         uint64 `json:"jobId"`
		ReservationId uint64 `json:"reservationId"`
	}{info.JobId, info.ReservationId})
	if err != nil {
		return args
	}
	fields[jobInfoField] = data
	if result, err := json.Marshal(fields); err == nil {
		return result
	}
	return args
}
