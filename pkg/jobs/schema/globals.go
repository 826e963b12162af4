package schema

import (
	"encoding/json"
	"time"
)

////////////////////////////////////////////////////////////////////////////////
// GLOBALS

const (
	// Default schema name for jobs and reservations
	SchemaName = "pgjobs"

	// Notification channels. These are database-wide and not qualified by
	// the schema name.
	ChannelJobs         = "jobs"
	ChannelJobsFinished = "jobs_finished"

	// Maximum number of rows returned by a list
	JobListLimit         = 100
	ReservationListLimit = 1000

	// Defaults for runners and publishers
	DefaultMaxTimeout   = 5 * time.Minute
	DefaultPollInterval = 10 * time.Second

	// Upper bound on a job timeout in seconds, which fits in an INTEGER
	maxTimeoutSeconds = 1<<31 - 1
)

////////////////////////////////////////////////////////////////////////////////
// STRINGIFY

func stringify[T any](v T) string {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err.Error()
	}
	return string(data)
}
