package pg

import (
	"fmt"
)

////////////////////////////////////////////////////////////////////////////////
// TYPES

// OffsetLimit pages through the results of a list
type OffsetLimit struct {
	Offset uint64  `json:"offset,omitempty"`
	Limit  *uint64 `json:"limit,omitempty"`
}

////////////////////////////////////////////////////////////////////////////////
// PUBLIC METHODS

// Bind sets the "offsetlimit" variable. A nil or zero limit, or one above
// max, is clamped to max. A max of zero means no limit.
func (r *OffsetLimit) Bind(bind *Bind, max uint64) {
	var clause string
	limit := max
	if r.Limit != nil && *r.Limit > 0 && (max == 0 || *r.Limit < max) {
		limit = *r.Limit
	}
	if limit > 0 {
		clause = fmt.Sprintf("LIMIT %d", limit)
	}
	if r.Offset > 0 {
		if clause != "" {
			clause += " "
		}
		clause += fmt.Sprintf("OFFSET %d", r.Offset)
	}
	bind.Set("offsetlimit", clause)
}

// Clamp returns the limit which Bind would apply, so it can be reported
// back to the caller
func (r *OffsetLimit) Clamp(max uint64) {
	if r.Limit == nil || *r.Limit == 0 || (max > 0 && *r.Limit > max) {
		if max == 0 {
			r.Limit = nil
		} else {
			v := max
			r.Limit = &v
		}
	}
}
