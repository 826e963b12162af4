package httpclient

import (
	// Packages
	client "github.com/mutablelogic/go-client"
	pg "github.com/mutablelogic/go-pgjobs"
)

////////////////////////////////////////////////////////////////////////////////
// TYPES

// Client is a client for the jobs REST API
type Client struct {
	*client.Client
}

////////////////////////////////////////////////////////////////////////////////
// LIFECYCLE

// New creates a client for the API at url, which includes any path prefix
func New(url string, opts ...client.ClientOpt) (*Client, error) {
	if url == "" {
		return nil, pg.ErrBadParameter.With("missing url")
	}
	c, err := client.New(append([]client.ClientOpt{client.OptEndpoint(url)}, opts...)...)
	if err != nil {
		return nil, err
	}
	return &Client{c}, nil
}
