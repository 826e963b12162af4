package main

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"sync"
	"time"

	// Packages
	pg "github.com/mutablelogic/go-pgjobs"
	jobs "github.com/mutablelogic/go-pgjobs/pkg/jobs"
	httphandler "github.com/mutablelogic/go-pgjobs/pkg/jobs/httphandler"
	version "github.com/mutablelogic/go-pgjobs/pkg/version"
	httpserver "github.com/mutablelogic/go-server/pkg/httpserver"
)

///////////////////////////////////////////////////////////////////////////////
// TYPES

type ServerCommands struct {
	RunServer RunServer `cmd:"" name:"run" help:"Run runner and server." group:"SERVER"`
}

type RunServer struct {
	URL string `arg:"" name:"url" env:"PG_URL" help:"Database URL" default:""`

	// Postgres options
	PG struct {
		User     string `name:"user" env:"PG_USER" help:"Database user"`
		Password string `name:"password" env:"PG_PASSWORD" help:"Database password"`
		Schema   string `name:"schema" env:"PG_SCHEMA" help:"Schema for the jobs tables" default:"pgjobs"`
		MaxConns int    `name:"max-conns" env:"PG_MAX_CONNS" help:"Maximum number of pooled connections" default:"10"`
	} `embed:"" prefix:"pg."`

	// Runner options
	Runner struct {
		Worker       string        `name:"worker" env:"PGJOBS_WORKER" help:"Worker identifier (defaults to hostname)"`
		MaxTimeout   time.Duration `name:"max-timeout" env:"PGJOBS_MAX_TIMEOUT" help:"Maximum time a handler may run" default:"5m"`
		Priority     int           `name:"priority" env:"PGJOBS_PRIORITY" help:"Minimum priority of jobs to run" default:"0"`
		PollInterval time.Duration `name:"poll" env:"PGJOBS_POLL" help:"Interval to check for jobs without a notification" default:"10s"`
	} `embed:"" prefix:"runner."`

	// TLS server options
	TLS struct {
		ServerName string `name:"name" help:"TLS server name"`
		CertFile   string `name:"cert" help:"TLS certificate file"`
		KeyFile    string `name:"key" help:"TLS key file"`
	} `embed:"" prefix:"tls."`
}

///////////////////////////////////////////////////////////////////////////////
// COMMANDS

func (cmd *RunServer) Run(ctx *Globals) error {
	opts := []pg.Opt{
		pg.WithURL(cmd.URL),
		pg.WithApplicationName(version.ExecName()),
		pg.WithMaxConns(cmd.PG.MaxConns),
	}
	if cmd.PG.User != "" || cmd.PG.Password != "" {
		opts = append(opts, pg.WithCredentials(cmd.PG.User, cmd.PG.Password))
	}
	if ctx.Debug {
		opts = append(opts, pg.WithTrace(func(ctx context.Context, query string, args any, err error) {
			fmt.Println("PG TRACE:", query, args, err)
		}))
	}

	// Create a pool connection
	conn, err := pg.NewPool(ctx.ctx, opts...)
	if err != nil {
		return err
	}
	defer conn.Close()

	// Ping the database
	if err := conn.Ping(ctx.ctx); err != nil {
		return err
	}

	// Create the manager and the runner
	jobopts := []jobs.Opt{
		jobs.WithSchema(cmd.PG.Schema),
		jobs.WithMaxTimeout(cmd.Runner.MaxTimeout),
		jobs.WithPriority(cmd.Runner.Priority),
		jobs.WithPollInterval(cmd.Runner.PollInterval),
		jobs.WithErrorReporter(func(_ context.Context, err error) {
			fmt.Fprintln(os.Stderr, "runner error:", err)
		}),
	}
	if cmd.Runner.Worker != "" {
		jobopts = append(jobopts, jobs.WithWorkerId(cmd.Runner.Worker))
	}
	manager, err := jobs.New(ctx.ctx, conn, jobopts...)
	if err != nil {
		return err
	}
	runner, err := manager.NewRunner()
	if err != nil {
		return err
	}
	if err := registerHandlers(runner); err != nil {
		return err
	}

	// Register HTTP handlers
	router := http.NewServeMux()
	httphandler.RegisterBackendHandlers(router, ctx.HTTP.Prefix, manager)

	// Create a TLS config
	var tlsconfig *tls.Config
	if cmd.TLS.CertFile != "" || cmd.TLS.KeyFile != "" {
		tlsconfig, err = httpserver.TLSConfig(cmd.TLS.ServerName, true, cmd.TLS.CertFile, cmd.TLS.KeyFile)
		if err != nil {
			return err
		}
	}

	// Create a HTTP server
	server, err := httpserver.New(ctx.HTTP.Addr, router, tlsconfig)
	if err != nil {
		return err
	}

	// We run the runner and the server concurrently
	var wg sync.WaitGroup
	var mu sync.Mutex
	var result error
	fmt.Println(version.ExecName(), version.Version(), "worker", runner.WorkerId())

	wg.Add(1)
	go func() {
		defer wg.Done()

		if err := runner.Run(ctx.ctx); err != nil {
			mu.Lock()
			result = errors.Join(result, fmt.Errorf("runner error: %w", err))
			mu.Unlock()
		}
		ctx.cancel()
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()

		fmt.Println("...listening on", ctx.HTTP.Addr+ctx.HTTP.Prefix)
		if err := server.Run(ctx.ctx); err != nil {
			if !errors.Is(err, context.Canceled) {
				mu.Lock()
				result = errors.Join(result, fmt.Errorf("server error: %w", err))
				mu.Unlock()
			}
			ctx.cancel()
		}
	}()

	// Wait for both to finish
	wg.Wait()

	// Terminated message
	if result == nil {
		fmt.Println(version.ExecName(), "terminated")
	}

	// Return any error
	return result
}

///////////////////////////////////////////////////////////////////////////////
// PRIVATE METHODS

// registerHandlers registers the built-in job types: "echo" resolves with
// its args, and "sleep" waits for a duration such as {"duration":"2s"}
func registerHandlers(runner *jobs.Runner) error {
	if err := runner.Register("echo", func(_ context.Context, args json.RawMessage) (any, error) {
		return args, nil
	}); err != nil {
		return err
	}
	return jobs.RegisterFunc(runner, "sleep", func(ctx context.Context, args struct {
		Duration string `json:"duration"`
	}) (string, error) {
		d, err := time.ParseDuration(args.Duration)
		if err != nil {
			return "", err
		}
		select {
		case <-time.After(d):
			return d.String(), nil
		case <-ctx.Done():
			return "", ctx.Err()
		}
	})
}
