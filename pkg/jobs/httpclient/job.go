package httpclient

import (
	"context"
	"fmt"

	// Packages
	client "github.com/mutablelogic/go-client"
	schema "github.com/mutablelogic/go-pgjobs/pkg/jobs/schema"
)

///////////////////////////////////////////////////////////////////////////////
// PUBLIC METHODS

// ListJobs returns jobs, newest first (GET /job).
func (c *Client) ListJobs(ctx context.Context, opts ...Opt) (*schema.JobList, error) {
	req := client.NewRequest()

	// Apply options
	opt, err := applyOpts(opts...)
	if err != nil {
		return nil, err
	}

	// Perform request
	var response schema.JobList
	if err := c.DoWithContext(ctx, req, &response, client.OptPath("job"), client.OptQuery(opt.Values)); err != nil {
		return nil, err
	}

	// Return the responses
	return &response, nil
}

// CreateJob publishes a job, without waiting for it to finish (POST /job).
func (c *Client) CreateJob(ctx context.Context, meta schema.JobMeta) (*schema.Job, error) {
	req, err := client.NewJSONRequest(meta)
	if err != nil {
		return nil, err
	}

	// Perform request
	var response schema.Job
	if err := c.DoWithContext(ctx, req, &response, client.OptPath("job")); err != nil {
		return nil, err
	}

	// Return the responses
	return &response, nil
}

// GetJob returns a job (GET /job/{id}).
func (c *Client) GetJob(ctx context.Context, id uint64) (*schema.Job, error) {
	req := client.NewRequest()

	var response schema.Job
	if err := c.DoWithContext(ctx, req, &response, client.OptPath("job", fmt.Sprint(id))); err != nil {
		return nil, err
	}

	return &response, nil
}

// ListReservations returns the reservations for a job, oldest first
// (GET /job/{id}/reservation).
func (c *Client) ListReservations(ctx context.Context, id uint64) (*schema.ReservationList, error) {
	req := client.NewRequest()

	var response schema.ReservationList
	if err := c.DoWithContext(ctx, req, &response, client.OptPath("job", fmt.Sprint(id), "reservation")); err != nil {
		return nil, err
	}

	return &response, nil
}
