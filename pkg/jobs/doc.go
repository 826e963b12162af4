/*
Package jobs provides a durable job queue backed by PostgreSQL. Jobs are
published with a type, timeout, optional concurrency group and priority,
and are executed exactly once by one of any number of runners, in any
number of processes, which share the database.

# Manager

Create a manager, which creates the schema if it does not exist:

	mgr, err := jobs.New(ctx, pool, jobs.WithSchema("pgjobs"))
	if err != nil {
		panic(err)
	}

# Publisher

Publish a job and wait for its result:

	publisher, err := mgr.NewPublisher()
	if err != nil {
		panic(err)
	}
	defer publisher.Destroy()

	job, err := jobs.Publish[Reply](ctx, publisher, schema.JobMeta{
		JobType: "email",
		Timeout: 60,
		Args:    map[string]any{"to": "user@example.com"},
	})
	reply, err := job.Wait(ctx)

A job which fails is settled with a *RejectedError which holds the
serialized error.

# Runner

Register handlers and run the claim, execute and commit loop until the
context is cancelled:

	runner, err := mgr.NewRunner(jobs.WithMaxTimeout(time.Minute))
	if err != nil {
		panic(err)
	}
	jobs.RegisterFunc(runner, "email", func(ctx context.Context, args Email) (Reply, error) {
		info, _ := jobs.JobInfoFromContext(ctx)
		...
	})
	err = runner.Run(ctx)

Runners coordinate only through SERIALIZABLE transactions. A job is claimed
with a reservation which expires after the lesser of the job timeout and
the runner's maximum timeout, so that a job held by a runner which crashed
is claimed again once the reservation expires.

# Subpackages

  - schema: Data types, request/response structures, and SQL generation
  - sql: Embedded schema objects and queries
  - httphandler: REST API handlers and prometheus metrics
  - httpclient: Typed Go client for the REST API
*/
package jobs
