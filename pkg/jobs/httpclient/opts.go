package httpclient

import (
	"fmt"
	"net/url"

	// Packages
	schema "github.com/mutablelogic/go-pgjobs/pkg/jobs/schema"
)

////////////////////////////////////////////////////////////////////////////////
// TYPES

type opt struct {
	url.Values
}

// Opt is an option to set on the client request.
type Opt func(*opt) error

////////////////////////////////////////////////////////////////////////////////
// LIFECYCLE

func applyOpts(opts ...Opt) (*opt, error) {
	o := new(opt)
	o.Values = make(url.Values)
	for _, fn := range opts {
		if err := fn(o); err != nil {
			return nil, err
		}
	}
	return o, nil
}

////////////////////////////////////////////////////////////////////////////////
// OPTIONS

// WithOffsetLimit sets offset and limit query parameters.
func WithOffsetLimit(offset uint64, limit *uint64) Opt {
	return func(o *opt) error {
		if offset > 0 {
			o.Set("offset", fmt.Sprint(offset))
		}
		if limit != nil {
			o.Set("limit", fmt.Sprint(*limit))
		}
		return nil
	}
}

// WithStatus filters jobs by status.
func WithStatus(status schema.Status) Opt {
	return func(o *opt) error {
		if status == "" {
			return nil
		} else if !status.Valid() {
			return fmt.Errorf("invalid status %q", status)
		}
		o.Set("status", string(status))
		return nil
	}
}

// WithJobType filters jobs by job type.
func WithJobType(jobType string) Opt {
	return func(o *opt) error {
		if jobType != "" {
			o.Set("job_type", jobType)
		}
		return nil
	}
}
