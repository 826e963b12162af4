// Package httpclient provides a typed Go client for the jobs REST API.
//
// Create a client with:
//
//	client, err := httpclient.New("http://localhost:8080/api")
//	if err != nil {
//	   panic(err)
//	}
//
// Then use the client to publish and query jobs:
//
//	job, err := client.CreateJob(ctx, schema.JobMeta{JobType: "echo", Timeout: 60})
//	jobs, err := client.ListJobs(ctx, httpclient.WithStatus(schema.StatusRejected))
//	reservations, err := client.ListReservations(ctx, job.Id)
package httpclient
