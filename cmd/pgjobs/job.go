package main

import (
	"encoding/json"
	"fmt"
	"time"

	// Packages
	httpclient "github.com/mutablelogic/go-pgjobs/pkg/jobs/httpclient"
	schema "github.com/mutablelogic/go-pgjobs/pkg/jobs/schema"
)

///////////////////////////////////////////////////////////////////////////////
// TYPES

type JobCommands struct {
	Jobs         ListJobsCommand         `cmd:"" name:"jobs" help:"List jobs with optional filters." group:"JOB"`
	Job          GetJobCommand           `cmd:"" name:"job" help:"Get job." group:"JOB"`
	Publish      PublishCommand          `cmd:"" name:"publish" help:"Publish job, without waiting for the result." group:"JOB"`
	Reservations ListReservationsCommand `cmd:"" name:"reservations" help:"List the reservations for a job." group:"JOB"`
}

type ListJobsCommand struct {
	JobType string `name:"type" help:"Filter by job type"`
	Status  string `name:"status" help:"Filter by status (unfulfilled, resolved, rejected)"`
	Offset  uint64 `name:"offset" help:"Pagination offset" default:"0"`
	Limit   uint64 `name:"limit" help:"Pagination limit" default:"100"`
}

type GetJobCommand struct {
	Id uint64 `arg:"" name:"id" help:"Job ID"`
}

type PublishCommand struct {
	JobType  string `arg:"" name:"type" help:"Job type"`
	Args     string `name:"args" help:"Job arguments (JSON)"`
	Timeout  uint64 `name:"timeout" help:"Timeout in seconds" default:"60"`
	Group    string `name:"group" help:"Concurrency group"`
	Priority int    `name:"priority" help:"Priority" default:"0"`
}

type ListReservationsCommand struct {
	Id     uint64 `arg:"" name:"id" help:"Job ID"`
	Active bool   `name:"active" help:"Only list reservations which are neither completed nor expired"`
}

///////////////////////////////////////////////////////////////////////////////
// COMMANDS

func (cmd *ListJobsCommand) Run(ctx *Globals) error {
	client, err := ctx.Client()
	if err != nil {
		return err
	}

	// List jobs
	jobs, err := client.ListJobs(ctx.ctx,
		httpclient.WithJobType(cmd.JobType),
		httpclient.WithStatus(schema.Status(cmd.Status)),
		httpclient.WithOffsetLimit(cmd.Offset, &cmd.Limit),
	)
	if err != nil {
		return err
	}

	// Print
	fmt.Println(jobs)
	return nil
}

func (cmd *GetJobCommand) Run(ctx *Globals) error {
	client, err := ctx.Client()
	if err != nil {
		return err
	}

	job, err := client.GetJob(ctx.ctx, cmd.Id)
	if err != nil {
		return err
	}

	fmt.Println(job)
	return nil
}

func (cmd *PublishCommand) Run(ctx *Globals) error {
	client, err := ctx.Client()
	if err != nil {
		return err
	}

	// Parse args
	var args any
	if cmd.Args != "" {
		if err := json.Unmarshal([]byte(cmd.Args), &args); err != nil {
			return fmt.Errorf("invalid args JSON: %w", err)
		}
	}
	meta := schema.JobMeta{
		JobType:  cmd.JobType,
		Timeout:  cmd.Timeout,
		Priority: cmd.Priority,
		Args:     args,
	}
	if cmd.Group != "" {
		meta.ConcurrencyGroup = &cmd.Group
	}

	// Publish job
	job, err := client.CreateJob(ctx.ctx, meta)
	if err != nil {
		return err
	}

	// Print
	fmt.Println(job)
	return nil
}

func (cmd *ListReservationsCommand) Run(ctx *Globals) error {
	client, err := ctx.Client()
	if err != nil {
		return err
	}

	reservations, err := client.ListReservations(ctx.ctx, cmd.Id)
	if err != nil {
		return err
	}

	// Filter reservations which hold a lease
	if cmd.Active {
		reservations.Body = reservations.Active(time.Now())
		reservations.Count = uint64(len(reservations.Body))
	}

	fmt.Println(reservations)
	return nil
}
