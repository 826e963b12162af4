package schema

import (
	"strings"

	// Packages
	pg "github.com/mutablelogic/go-pgjobs"
	httpresponse "github.com/mutablelogic/go-server/pkg/httpresponse"
)

////////////////////////////////////////////////////////////////////////////////
// TYPES

// Notify sends a notification on a channel. Within a transaction the
// notification is delivered on commit.
type Notify struct {
	Channel string
	Payload string
}

////////////////////////////////////////////////////////////////////////////////
// SELECTOR

func (n Notify) Select(bind *pg.Bind, op pg.Op) (string, error) {
	if channel := strings.TrimSpace(n.Channel); channel == "" {
		return "", httpresponse.ErrBadRequest.With("missing channel")
	} else {
		bind.Set("channel", channel)
	}
	bind.Set("payload", n.Payload)

	switch op {
	case pg.Get:
		return bind.Query("pgjobs.notify"), nil
	default:
		return "", httpresponse.ErrInternalError.Withf("unsupported Notify operation %q", op)
	}
}
