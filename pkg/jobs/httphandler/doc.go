/*
Package httphandler provides HTTP handlers for the jobs package.

# Job Endpoints

	GET    /job                   - List jobs (optional ?status, ?job_type, ?offset, ?limit)
	POST   /job                   - Publish a job, without waiting for it to finish
	GET    /job/{id}              - Get a job
	GET    /job/{id}/reservation  - List the reservations for a job

# Metrics Endpoint

	GET    /metrics               - Prometheus metrics

# Usage

	manager, _ := jobs.New(ctx, conn)
	router := http.NewServeMux()
	httphandler.RegisterBackendHandlers(router, "/api", manager)
*/
package httphandler
