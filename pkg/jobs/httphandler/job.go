package httphandler

import (
	"net/http"
	"strconv"

	// Packages
	jobs "github.com/mutablelogic/go-pgjobs/pkg/jobs"
	schema "github.com/mutablelogic/go-pgjobs/pkg/jobs/schema"
	httprequest "github.com/mutablelogic/go-server/pkg/httprequest"
	httpresponse "github.com/mutablelogic/go-server/pkg/httpresponse"
)

///////////////////////////////////////////////////////////////////////////////
// PUBLIC METHODS

// RegisterJobHandlers registers HTTP handlers for job operations
func RegisterJobHandlers(router *http.ServeMux, prefix string, manager *jobs.Manager) {
	if manager == nil {
		panic("manager is nil")
	}

	// GET /job lists jobs (with optional status/job_type/offset/limit params)
	// POST /job creates a new job
	router.HandleFunc(joinPath(prefix, "job"), func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			_ = jobList(w, r, manager)
		case http.MethodPost:
			_ = jobCreate(w, r, manager)
		default:
			_ = httpresponse.Error(w, httpresponse.Err(http.StatusMethodNotAllowed), r.Method)
		}
	})

	// GET /job/{id} returns a job
	router.HandleFunc(joinPath(prefix, "job/{id}"), func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseUint(r.PathValue("id"), 10, 64)
		if err != nil || id == 0 {
			_ = httpresponse.Error(w, httpresponse.ErrBadRequest.With("invalid job id"), r.PathValue("id"))
			return
		}

		switch r.Method {
		case http.MethodGet:
			_ = jobGet(w, r, manager, id)
		default:
			_ = httpresponse.Error(w, httpresponse.Err(http.StatusMethodNotAllowed), r.Method)
		}
	})

	// GET /job/{id}/reservation lists the reservations for a job
	router.HandleFunc(joinPath(prefix, "job/{id}/reservation"), func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseUint(r.PathValue("id"), 10, 64)
		if err != nil || id == 0 {
			_ = httpresponse.Error(w, httpresponse.ErrBadRequest.With("invalid job id"), r.PathValue("id"))
			return
		}

		switch r.Method {
		case http.MethodGet:
			_ = reservationList(w, r, manager, id)
		default:
			_ = httpresponse.Error(w, httpresponse.Err(http.StatusMethodNotAllowed), r.Method)
		}
	})
}

///////////////////////////////////////////////////////////////////////////////
// PRIVATE METHODS

func jobList(w http.ResponseWriter, r *http.Request, manager *jobs.Manager) error {
	// Parse request
	var req schema.JobListRequest
	if err := httprequest.Query(r.URL.Query(), &req); err != nil {
		return httpresponse.Error(w, err)
	}

	// List the jobs
	response, err := manager.ListJobs(r.Context(), req)
	if err != nil {
		return httpresponse.Error(w, httperr(err))
	}

	// Return success
	return httpresponse.JSON(w, http.StatusOK, httprequest.Indent(r), response)
}

func jobCreate(w http.ResponseWriter, r *http.Request, manager *jobs.Manager) error {
	// Parse request
	var req schema.JobMeta
	if err := httprequest.Read(r, &req); err != nil {
		return httpresponse.Error(w, err)
	}

	// Create the job
	job, err := manager.CreateJob(r.Context(), req)
	if err != nil {
		return httpresponse.Error(w, httperr(err))
	}

	// Return success
	return httpresponse.JSON(w, http.StatusCreated, httprequest.Indent(r), job)
}

func jobGet(w http.ResponseWriter, r *http.Request, manager *jobs.Manager, id uint64) error {
	job, err := manager.GetJob(r.Context(), id)
	if err != nil {
		return httpresponse.Error(w, httperr(err))
	}
	return httpresponse.JSON(w, http.StatusOK, httprequest.Indent(r), job)
}

func reservationList(w http.ResponseWriter, r *http.Request, manager *jobs.Manager, id uint64) error {
	response, err := manager.ListReservations(r.Context(), id)
	if err != nil {
		return httpresponse.Error(w, httperr(err))
	}
	return httpresponse.JSON(w, http.StatusOK, httprequest.Indent(r), response)
}
