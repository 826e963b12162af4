package httphandler

import (
	"errors"
	"net/http"

	// Packages
	pg "github.com/mutablelogic/go-pgjobs"
	jobs "github.com/mutablelogic/go-pgjobs/pkg/jobs"
	httpresponse "github.com/mutablelogic/go-server/pkg/httpresponse"
	types "github.com/mutablelogic/go-server/pkg/types"
)

///////////////////////////////////////////////////////////////////////////////
// PUBLIC METHODS

// RegisterBackendHandlers registers all job HTTP handlers on the provided
// router with the given path prefix. The manager must be non-nil.
func RegisterBackendHandlers(router *http.ServeMux, prefix string, manager *jobs.Manager) {
	RegisterJobHandlers(router, prefix, manager)
	RegisterMetricsHandler(router, prefix, manager)
}

///////////////////////////////////////////////////////////////////////////////
// PRIVATE METHODS

func joinPath(prefix, path string) string {
	return types.JoinPath(prefix, path)
}

// httperr converts pg errors to HTTP errors. An error which is already an
// httpresponse.Err is returned as-is.
func httperr(err error) error {
	if err == nil {
		return nil
	}

	var httpErr httpresponse.Err
	if errors.As(err, &httpErr) {
		return err
	}

	switch {
	case errors.Is(err, pg.ErrNotFound):
		return httpresponse.ErrNotFound.With(err.Error())
	case errors.Is(err, pg.ErrBadParameter):
		return httpresponse.ErrBadRequest.With(err.Error())
	case errors.Is(err, pg.ErrConflict):
		return httpresponse.ErrConflict.With(err.Error())
	case errors.Is(err, pg.ErrNotImplemented), errors.Is(err, pg.ErrNotAvailable):
		return httpresponse.ErrNotImplemented.With(err.Error())
	default:
		return httpresponse.ErrInternalError.With(err.Error())
	}
}
