package main

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"os"
	"os/signal"
	"syscall"

	// Packages
	kong "github.com/alecthomas/kong"
	client "github.com/mutablelogic/go-client"
	httpclient "github.com/mutablelogic/go-pgjobs/pkg/jobs/httpclient"
)

///////////////////////////////////////////////////////////////////////////////
// TYPES

type Globals struct {
	Debug   bool             `name:"debug" help:"Enable debug logging"`
	Version kong.VersionFlag `name:"version" help:"Print version and exit"`

	// The run command listens on the address, and the job commands connect
	// to it unless an endpoint is given
	HTTP struct {
		Prefix   string `name:"prefix" help:"HTTP path prefix" default:"/api/v1"`
		Addr     string `name:"addr" env:"PGJOBS_ADDR" help:"HTTP Listen address" default:":8080"`
		Endpoint string `name:"endpoint" env:"PGJOBS_ENDPOINT" help:"API endpoint for job commands, including the path prefix"`
	} `embed:"" prefix:"http."`

	ctx    context.Context
	cancel context.CancelFunc
}

type CLI struct {
	Globals
	JobCommands
	ServerCommands
	VersionCommands
}

///////////////////////////////////////////////////////////////////////////////
// LIFECYCLE

func main() {
	cli := new(CLI)
	parser := kong.Parse(cli,
		kong.Name("pgjobs"),
		kong.Description("Postgres job queue"),
		kong.Vars{"version": VersionJSON()},
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{Compact: true}),
	)

	// Commands are cancelled on interrupt or terminate
	cli.Globals.ctx, cli.Globals.cancel = signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := parser.Run(&cli.Globals)
	cli.Globals.cancel()
	parser.FatalIfErrorf(err)
}

///////////////////////////////////////////////////////////////////////////////
// PRIVATE METHODS

// Client returns a client for the API endpoint
func (g *Globals) Client() (*httpclient.Client, error) {
	endpoint, err := g.endpoint()
	if err != nil {
		return nil, err
	}
	var opts []client.ClientOpt
	if g.Debug {
		opts = append(opts, client.OptTrace(os.Stderr, true))
	}
	return httpclient.New(endpoint, opts...)
}

// endpoint returns the API endpoint, or derives it from the listen address
// with localhost for an empty host
func (g *Globals) endpoint() (string, error) {
	if g.HTTP.Endpoint != "" {
		return g.HTTP.Endpoint, nil
	}
	host, port, err := net.SplitHostPort(g.HTTP.Addr)
	if err != nil {
		return "", fmt.Errorf("addr: %w", err)
	} else if host == "" {
		host = "localhost"
	}
	u := url.URL{Scheme: "http", Host: net.JoinHostPort(host, port), Path: g.HTTP.Prefix}
	if port == "443" {
		u.Scheme = "https"
	}
	return u.String(), nil
}
