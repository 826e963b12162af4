package jobs_test

import (
	"context"
	"encoding/json"
	"errors"
	"slices"
	"sync"
	"testing"
	"time"

	// Packages
	jobs "github.com/mutablelogic/go-pgjobs/pkg/jobs"
	schema "github.com/mutablelogic/go-pgjobs/pkg/jobs/schema"
	types "github.com/mutablelogic/go-pgjobs/pkg/types"
	assert "github.com/stretchr/testify/assert"
)

// expire moves the lease of every reservation into the past
func expire(t *testing.T, manager *jobs.Manager) {
	t.Helper()
	if err := manager.Conn().Exec(context.TODO(), `UPDATE ${"schema"}.job_reservations SET locked_until = now() - INTERVAL '1 second'`); err != nil {
		t.Fatal(err)
	}
}

// resultOf decodes the result of a finished job
func resultOf(t *testing.T, manager *jobs.Manager, id uint64) (*schema.Job, map[string]any) {
	t.Helper()
	job, err := manager.GetJob(context.TODO(), id)
	if err != nil {
		t.Fatal(err)
	}
	var result map[string]any
	_ = json.Unmarshal(job.Result, &result)
	return job, result
}

// span is the wall time of a handler
type span struct {
	start, end time.Time
}

// spans records the wall time of handlers which run concurrently
type spans struct {
	sync.Mutex
	list []span
}

// add records a handler which started at start and ends now. Call as
// defer spans.add(time.Now()) at the top of a handler.
func (s *spans) add(start time.Time) {
	s.Lock()
	defer s.Unlock()
	s.list = append(s.list, span{start, time.Now()})
}

// overlapping returns true if any two spans overlap
func (s *spans) overlapping() bool {
	s.Lock()
	defer s.Unlock()
	list := slices.Clone(s.list)
	slices.SortFunc(list, func(a, b span) int {
		return a.start.Compare(b.start)
	})
	for i := 1; i < len(list); i++ {
		if list[i].start.Before(list[i-1].end) {
			return true
		}
	}
	return false
}

// drain calls Next on every runner at once, pausing between polls which
// find no work, until the jobs are finished
func drain(t *testing.T, manager *jobs.Manager, runners []*jobs.Runner, ids []uint64, pause time.Duration) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.TODO(), 30*time.Second)
	defer cancel()

	finished := func() bool {
		for _, id := range ids {
			job, err := manager.GetJob(ctx, id)
			if err != nil || job.Status == schema.StatusUnfulfilled {
				return false
			}
		}
		return true
	}

	var wg sync.WaitGroup
	for _, runner := range runners {
		wg.Add(1)
		go func(runner *jobs.Runner) {
			defer wg.Done()
			for ctx.Err() == nil {
				more, err := runner.Next(ctx)
				if err != nil {
					if ctx.Err() == nil {
						t.Error(err)
					}
					return
				} else if more {
					continue
				} else if finished() {
					return
				}
				time.Sleep(pause)
			}
		}(runner)
	}
	wg.Wait()
}

////////////////////////////////////////////////////////////////////////////////
// REGISTER TESTS

func Test_Runner_Register(t *testing.T) {
	assert := assert.New(t)
	conn := conn.Begin(t)
	defer conn.Close()
	manager := newManager(t, conn)

	runner, err := manager.NewRunner(jobs.WithWorkerId("worker"))
	if !assert.NoError(err) {
		t.FailNow()
	}
	assert.Equal("worker", runner.WorkerId())

	handler := func(context.Context, json.RawMessage) (any, error) { return nil, nil }
	assert.NoError(runner.Register("a", handler))
	assert.ErrorIs(runner.Register("a", handler), jobs.ErrDuplicateJobType)
	assert.ErrorIs(runner.Register(" ", handler), jobs.ErrInvalidJobType)
	assert.ErrorIs(runner.Register("b", nil), jobs.ErrInvalidHandler)
	assert.ErrorIs(jobs.RegisterFunc[int, int](runner, "c", nil), jobs.ErrInvalidHandler)

	other, err := manager.NewRunner()
	assert.NoError(err)
	assert.NotEmpty(other.WorkerId())
	assert.NotEqual(runner.WorkerId(), other.WorkerId())

	_, err = manager.NewRunner(jobs.WithMaxTimeout(0))
	assert.ErrorIs(err, jobs.ErrInvalidTimeout)
}

////////////////////////////////////////////////////////////////////////////////
// CLAIM, EXECUTE AND COMMIT TESTS

func Test_Runner_Next(t *testing.T) {
	assert := assert.New(t)
	conn := conn.Begin(t)
	defer conn.Close()
	manager := newManager(t, conn)
	ctx := context.TODO()

	runner, err := manager.NewRunner()
	if !assert.NoError(err) {
		t.FailNow()
	}
	assert.NoError(jobs.RegisterFunc(runner, "double", func(ctx context.Context, args struct {
		N       int          `json:"n"`
		JobInfo jobs.JobInfo `json:"jobInfo"`
	}) (int, error) {
		info, ok := jobs.JobInfoFromContext(ctx)
		if !ok || info.JobId != args.JobInfo.JobId || info.ReservationId != args.JobInfo.ReservationId {
			return 0, errors.New("job info mismatch")
		}
		return args.N * 2, nil
	}))
	assert.NoError(runner.Register("fail", func(context.Context, json.RawMessage) (any, error) {
		return nil, errors.New("nope")
	}))

	t.Run("Empty", func(t *testing.T) {
		more, err := runner.Next(ctx)
		assert.NoError(err)
		assert.False(more)
	})

	t.Run("Resolve", func(t *testing.T) {
		job, err := manager.CreateJob(ctx, schema.JobMeta{JobType: "double", Timeout: 60, Args: map[string]int{"n": 21}})
		assert.NoError(err)

		more, err := runner.Next(ctx)
		assert.NoError(err)
		assert.True(more)

		finished, _ := resultOf(t, manager, job.Id)
		assert.Equal(schema.StatusResolved, finished.Status)
		assert.JSONEq(`42`, string(finished.Result))
		assert.NotNil(finished.FinishedAt)

		list, err := manager.ListReservations(ctx, job.Id)
		if assert.NoError(err) && assert.Len(list.Body, 1) {
			assert.Equal(runner.WorkerId(), list.Body[0].WorkerId)
			assert.NotNil(list.Body[0].CompletedAt)
		}
	})

	t.Run("Reject", func(t *testing.T) {
		job, err := manager.CreateJob(ctx, schema.JobMeta{JobType: "fail", Timeout: 60})
		assert.NoError(err)

		more, err := runner.Next(ctx)
		assert.NoError(err)
		assert.True(more)

		finished, result := resultOf(t, manager, job.Id)
		assert.Equal(schema.StatusRejected, finished.Status)
		assert.Equal("nope", result["message"])
	})

	t.Run("Drained", func(t *testing.T) {
		more, err := runner.Next(ctx)
		assert.NoError(err)
		assert.False(more)
	})
}

func Test_Runner_Priority(t *testing.T) {
	assert := assert.New(t)
	conn := conn.Begin(t)
	defer conn.Close()
	manager := newManager(t, conn)
	ctx := context.TODO()

	var ids []uint64
	for _, priority := range []int{5, 1, 5} {
		job, err := manager.CreateJob(ctx, schema.JobMeta{JobType: "p", Timeout: 60, Priority: priority})
		assert.NoError(err)
		ids = append(ids, job.Id)
	}

	runner, err := manager.NewRunner(jobs.WithPriority(5))
	if !assert.NoError(err) {
		t.FailNow()
	}

	// Jobs of priority 5 are claimed in order, and the job of priority 1 is not
	for _, expected := range []uint64{ids[0], ids[2]} {
		claim, err := runner.Claim(ctx)
		if assert.NoError(err) && assert.NotNil(claim) {
			assert.Equal(expected, claim.Job.Id)
			committed, err := runner.Commit(ctx, claim, jobs.Outcome{Status: schema.StatusResolved})
			assert.NoError(err)
			assert.True(committed)
		}
	}
	claim, err := runner.Claim(ctx)
	assert.NoError(err)
	assert.Nil(claim)

	// A runner with the default priority claims the remaining job
	low, err := manager.NewRunner()
	assert.NoError(err)
	claim, err = low.Claim(ctx)
	if assert.NoError(err) && assert.NotNil(claim) {
		assert.Equal(ids[1], claim.Job.Id)
	}
}

func Test_Runner_ConcurrencyGroup(t *testing.T) {
	assert := assert.New(t)
	conn := conn.Begin(t)
	defer conn.Close()
	manager := newManager(t, conn)
	ctx := context.TODO()

	first, err := manager.CreateJob(ctx, schema.JobMeta{JobType: "g", Timeout: 60, ConcurrencyGroup: types.Ptr("group")})
	assert.NoError(err)
	second, err := manager.CreateJob(ctx, schema.JobMeta{JobType: "g", Timeout: 60, ConcurrencyGroup: types.Ptr("group")})
	assert.NoError(err)
	other, err := manager.CreateJob(ctx, schema.JobMeta{JobType: "g", Timeout: 60, ConcurrencyGroup: types.Ptr("other")})
	assert.NoError(err)

	a, err := manager.NewRunner()
	assert.NoError(err)
	b, err := manager.NewRunner()
	assert.NoError(err)

	// The first job holds the group, so the second runner skips to the other group
	claimA, err := a.Claim(ctx)
	if !assert.NoError(err) || !assert.NotNil(claimA) {
		t.FailNow()
	}
	assert.Equal(first.Id, claimA.Job.Id)

	claimB, err := b.Claim(ctx)
	if assert.NoError(err) && assert.NotNil(claimB) {
		assert.Equal(other.Id, claimB.Job.Id)
	}

	claim, err := b.Claim(ctx)
	assert.NoError(err)
	assert.Nil(claim)

	count, err := manager.CountActiveReservations(ctx)
	assert.NoError(err)
	assert.Equal(uint64(2), count)

	// Finishing the first job releases the group
	committed, err := a.Commit(ctx, claimA, jobs.Outcome{Status: schema.StatusResolved})
	assert.NoError(err)
	assert.True(committed)

	claim, err = b.Claim(ctx)
	if assert.NoError(err) && assert.NotNil(claim) {
		assert.Equal(second.Id, claim.Job.Id)
	}
}

func Test_Runner_Timeout(t *testing.T) {
	assert := assert.New(t)
	conn := conn.Begin(t)
	defer conn.Close()
	manager := newManager(t, conn)
	ctx := context.TODO()

	runner, err := manager.NewRunner(jobs.WithMaxTimeout(100 * time.Millisecond))
	if !assert.NoError(err) {
		t.FailNow()
	}
	cancelled := make(chan struct{})
	assert.NoError(runner.Register("slow", func(ctx context.Context, _ json.RawMessage) (any, error) {
		select {
		case <-ctx.Done():
			close(cancelled)
			return nil, ctx.Err()
		case <-time.After(10 * time.Second):
			return "late", nil
		}
	}))

	job, err := manager.CreateJob(ctx, schema.JobMeta{JobType: "slow", Timeout: 60})
	assert.NoError(err)

	start := time.Now()
	more, err := runner.Next(ctx)
	assert.NoError(err)
	assert.True(more)
	assert.Less(time.Since(start), 5*time.Second)

	finished, result := resultOf(t, manager, job.Id)
	assert.Equal(schema.StatusRejected, finished.Status)
	assert.Equal("*jobs.TimeoutError", result["type"])

	select {
	case <-cancelled:
	case <-time.After(5 * time.Second):
		t.Error("handler context was not cancelled")
	}

	// The lease is the lesser of the job timeout and the maximum timeout
	list, err := manager.ListReservations(ctx, job.Id)
	if assert.NoError(err) && assert.Len(list.Body, 1) {
		r := list.Body[0]
		assert.LessOrEqual(r.LockedUntil.Sub(r.CreatedAt), time.Second)
	}

	// The job is finished, so no other runner can claim it
	other, err := manager.NewRunner()
	assert.NoError(err)
	claim, err := other.Claim(ctx)
	assert.NoError(err)
	assert.Nil(claim)
}

func Test_Runner_JobTimeout(t *testing.T) {
	assert := assert.New(t)
	conn := conn.Begin(t)
	defer conn.Close()
	manager := newManager(t, conn)
	ctx := context.TODO()

	// The job timeout is shorter than the runner's maximum timeout
	var spans spans
	hold := func(ctx context.Context, _ json.RawMessage) (any, error) {
		defer spans.add(time.Now())
		<-ctx.Done()
		return nil, ctx.Err()
	}
	sibling := func(ctx context.Context, _ json.RawMessage) (any, error) {
		defer spans.add(time.Now())
		return "sibling", nil
	}
	var runners []*jobs.Runner
	for i := 0; i < 2; i++ {
		runner, err := manager.NewRunner(jobs.WithMaxTimeout(time.Minute))
		if !assert.NoError(err) {
			t.FailNow()
		}
		assert.NoError(runner.Register("hold", hold))
		assert.NoError(runner.Register("sibling", sibling))
		runners = append(runners, runner)
	}

	first, err := manager.CreateJob(ctx, schema.JobMeta{JobType: "hold", Timeout: 1, ConcurrencyGroup: types.Ptr("group")})
	assert.NoError(err)
	second, err := manager.CreateJob(ctx, schema.JobMeta{JobType: "sibling", Timeout: 60, ConcurrencyGroup: types.Ptr("group")})
	assert.NoError(err)

	// Both runners poll until both jobs are finished
	start := time.Now()
	drain(t, manager, runners, []uint64{first.Id, second.Id}, 20*time.Millisecond)
	assert.Less(time.Since(start), 30*time.Second)

	finished, result := resultOf(t, manager, first.Id)
	assert.Equal(schema.StatusRejected, finished.Status)
	assert.Equal("*jobs.TimeoutError", result["type"])
	finished, _ = resultOf(t, manager, second.Id)
	assert.Equal(schema.StatusResolved, finished.Status)

	// The sibling did not start until the first handler had stopped
	assert.GreaterOrEqual(len(spans.list), 2)
	assert.False(spans.overlapping(), "handlers in the same group overlap: %v", spans.list)
}

func Test_Runner_UnknownJobType(t *testing.T) {
	assert := assert.New(t)
	conn := conn.Begin(t)
	defer conn.Close()
	manager := newManager(t, conn)
	ctx := context.TODO()

	var mu sync.Mutex
	var reported []error
	runner, err := manager.NewRunner(jobs.WithErrorReporter(func(_ context.Context, err error) {
		mu.Lock()
		defer mu.Unlock()
		reported = append(reported, err)
	}))
	if !assert.NoError(err) {
		t.FailNow()
	}
	assert.NoError(runner.Register("panic", func(context.Context, json.RawMessage) (any, error) {
		panic("oops")
	}))

	unknown, err := manager.CreateJob(ctx, schema.JobMeta{JobType: "unknown", Timeout: 60})
	assert.NoError(err)
	panicked, err := manager.CreateJob(ctx, schema.JobMeta{JobType: "panic", Timeout: 60})
	assert.NoError(err)

	for i := 0; i < 2; i++ {
		more, err := runner.Next(ctx)
		assert.NoError(err)
		assert.True(more)
	}

	finished, result := resultOf(t, manager, unknown.Id)
	assert.Equal(schema.StatusRejected, finished.Status)
	assert.Contains(result["message"], "unknown")

	finished, result = resultOf(t, manager, panicked.Id)
	assert.Equal(schema.StatusRejected, finished.Status)
	assert.Equal("*jobs.PanicError", result["type"])
	assert.Equal("oops", result["value"])

	mu.Lock()
	defer mu.Unlock()
	if assert.Len(reported, 2) {
		assert.ErrorIs(reported[0], jobs.ErrUnknownJobType)
		var panicErr *jobs.PanicError
		assert.ErrorAs(reported[1], &panicErr)
	}
}

func Test_Runner_CrashRecovery(t *testing.T) {
	assert := assert.New(t)
	conn := conn.Begin(t)
	defer conn.Close()
	manager := newManager(t, conn)
	ctx := context.TODO()

	crashed, err := manager.NewRunner(jobs.WithWorkerId("crashed"))
	assert.NoError(err)
	recovered, err := manager.NewRunner(jobs.WithWorkerId("recovered"))
	assert.NoError(err)

	job, err := manager.CreateJob(ctx, schema.JobMeta{JobType: "crash", Timeout: 60})
	assert.NoError(err)

	// The job is not claimed again while the lease is valid
	claim1, err := crashed.Claim(ctx)
	if !assert.NoError(err) || !assert.NotNil(claim1) {
		t.FailNow()
	}
	claim, err := recovered.Claim(ctx)
	assert.NoError(err)
	assert.Nil(claim)

	// Once the lease expires, the job is claimed again
	expire(t, manager)
	claim2, err := recovered.Claim(ctx)
	if !assert.NoError(err) || !assert.NotNil(claim2) {
		t.FailNow()
	}
	assert.Equal(job.Id, claim2.Job.Id)
	assert.Greater(claim2.Reservation.Id, claim1.Reservation.Id)

	t.Run("ExpiredAndSuperseded", func(t *testing.T) {
		committed, err := crashed.Commit(ctx, claim1, jobs.Outcome{Status: schema.StatusResolved, Result: json.RawMessage(`"stale"`)})
		assert.NoError(err)
		assert.False(committed)
	})

	t.Run("Current", func(t *testing.T) {
		committed, err := recovered.Commit(ctx, claim2, jobs.Outcome{Status: schema.StatusResolved, Result: json.RawMessage(`"fresh"`)})
		assert.NoError(err)
		assert.True(committed)
	})

	t.Run("AlreadyFinished", func(t *testing.T) {
		committed, err := recovered.Commit(ctx, claim2, jobs.Outcome{Status: schema.StatusRejected})
		assert.NoError(err)
		assert.False(committed)
	})

	finished, _ := resultOf(t, manager, job.Id)
	assert.Equal(schema.StatusResolved, finished.Status)
	assert.JSONEq(`"fresh"`, string(finished.Result))

	list, err := manager.ListReservations(ctx, job.Id)
	if assert.NoError(err) && assert.Len(list.Body, 2) {
		assert.Equal("crashed", list.Body[0].WorkerId)
		assert.Nil(list.Body[0].CompletedAt)
		assert.Equal("recovered", list.Body[1].WorkerId)
		assert.NotNil(list.Body[1].CompletedAt)
	}
}

func Test_Runner_ExpiredNotSuperseded(t *testing.T) {
	assert := assert.New(t)
	conn := conn.Begin(t)
	defer conn.Close()
	manager := newManager(t, conn)
	ctx := context.TODO()

	runner, err := manager.NewRunner()
	assert.NoError(err)
	job, err := manager.CreateJob(ctx, schema.JobMeta{JobType: "late", Timeout: 60})
	assert.NoError(err)

	claim, err := runner.Claim(ctx)
	if !assert.NoError(err) || !assert.NotNil(claim) {
		t.FailNow()
	}

	// A late result is accepted when nobody else has claimed the job
	expire(t, manager)
	committed, err := runner.Commit(ctx, claim, jobs.Outcome{Status: schema.StatusResolved})
	assert.NoError(err)
	assert.True(committed)

	finished, _ := resultOf(t, manager, job.Id)
	assert.Equal(schema.StatusResolved, finished.Status)
	assert.JSONEq(`null`, string(finished.Result))
}

func Test_Runner_Race(t *testing.T) {
	assert := assert.New(t)
	conn := conn.Begin(t)
	defer conn.Close()
	manager := newManager(t, conn)
	ctx := context.TODO()

	const numJobs = 20
	const numRunners = 4

	// Each runner is in its own process, with its own pool
	var mu sync.Mutex
	executed := make(map[uint64]int)
	handler := func(ctx context.Context, _ json.RawMessage) (any, error) {
		info, _ := jobs.JobInfoFromContext(ctx)
		mu.Lock()
		defer mu.Unlock()
		executed[info.JobId]++
		return info.WorkerId, nil
	}
	var runners []*jobs.Runner
	for i := 0; i < numRunners; i++ {
		m, err := jobs.New(ctx, conn.NewPool(t), jobs.WithSchema(conn.Schema()), jobs.WithPollInterval(50*time.Millisecond))
		if !assert.NoError(err) {
			t.FailNow()
		}
		runner, err := m.NewRunner()
		assert.NoError(err)
		assert.NoError(runner.Register("race", handler))
		runners = append(runners, runner)
	}

	var ids []uint64
	for i := 0; i < numJobs; i++ {
		job, err := manager.CreateJob(ctx, schema.JobMeta{JobType: "race", Timeout: 60})
		assert.NoError(err)
		ids = append(ids, job.Id)
	}

	// Drain the queue from all runners at once
	var wg sync.WaitGroup
	for _, runner := range runners {
		wg.Add(1)
		go func(runner *jobs.Runner) {
			defer wg.Done()
			for {
				more, err := runner.Next(ctx)
				if err != nil {
					t.Error(err)
					return
				} else if !more {
					return
				}
			}
		}(runner)
	}
	wg.Wait()

	for _, id := range ids {
		job, _ := resultOf(t, manager, id)
		assert.Equal(schema.StatusResolved, job.Status)
		assert.Equal(1, executed[id])

		list, err := manager.ListReservations(ctx, id)
		if assert.NoError(err) {
			completed := 0
			for _, r := range list.Body {
				if r.CompletedAt != nil {
					completed++
				}
			}
			assert.Equal(1, completed)
		}
	}
}

func Test_Runner_RaceGroup(t *testing.T) {
	assert := assert.New(t)
	conn := conn.Begin(t)
	defer conn.Close()
	manager := newManager(t, conn)
	ctx := context.TODO()

	const numJobs = 10
	const numRunners = 4

	// Every job is in the same group, so no two handlers run at once
	var spans spans
	handler := func(ctx context.Context, _ json.RawMessage) (any, error) {
		defer spans.add(time.Now())
		time.Sleep(10 * time.Millisecond)
		return nil, nil
	}
	var runners []*jobs.Runner
	for i := 0; i < numRunners; i++ {
		m, err := jobs.New(ctx, conn.NewPool(t), jobs.WithSchema(conn.Schema()), jobs.WithPollInterval(50*time.Millisecond))
		if !assert.NoError(err) {
			t.FailNow()
		}
		runner, err := m.NewRunner()
		assert.NoError(err)
		assert.NoError(runner.Register("race", handler))
		runners = append(runners, runner)
	}

	var ids []uint64
	for i := 0; i < numJobs; i++ {
		job, err := manager.CreateJob(ctx, schema.JobMeta{JobType: "race", Timeout: 60, ConcurrencyGroup: types.Ptr("group")})
		assert.NoError(err)
		ids = append(ids, job.Id)
	}

	drain(t, manager, runners, ids, 5*time.Millisecond)
	for _, id := range ids {
		job, _ := resultOf(t, manager, id)
		assert.Equal(schema.StatusResolved, job.Status)
	}
	assert.Len(spans.list, numJobs)
	assert.False(spans.overlapping(), "handlers in the same group overlap: %v", spans.list)
}

func Test_Runner_CommitRace(t *testing.T) {
	assert := assert.New(t)
	conn := conn.Begin(t)
	defer conn.Close()
	manager := newManager(t, conn)
	ctx := context.TODO()

	runner, err := manager.NewRunner()
	assert.NoError(err)
	_, err = manager.CreateJob(ctx, schema.JobMeta{JobType: "commit", Timeout: 60})
	assert.NoError(err)
	claim, err := runner.Claim(ctx)
	if !assert.NoError(err) || !assert.NotNil(claim) {
		t.FailNow()
	}

	// The same claim committed concurrently is recorded once
	const n = 5
	results := make(chan bool, n)
	for i := 0; i < n; i++ {
		c := *claim
		go func() {
			committed, err := runner.Commit(ctx, &c, jobs.Outcome{Status: schema.StatusResolved})
			assert.NoError(err)
			results <- committed
		}()
	}
	committed := 0
	for i := 0; i < n; i++ {
		if <-results {
			committed++
		}
	}
	assert.Equal(1, committed)
}

func Test_Runner_Run(t *testing.T) {
	assert := assert.New(t)
	conn := conn.Begin(t)
	defer conn.Close()
	manager := newManager(t, conn)

	runner, err := manager.NewRunner()
	assert.NoError(err)
	done := make(chan struct{})
	assert.NoError(runner.Register("signal", func(context.Context, json.RawMessage) (any, error) {
		close(done)
		return nil, nil
	}))

	ctx, cancel := context.WithCancel(context.TODO())
	errs := make(chan error, 1)
	go func() {
		errs <- runner.Run(ctx)
	}()

	_, err = manager.CreateJob(context.TODO(), schema.JobMeta{JobType: "signal", Timeout: 60})
	assert.NoError(err)
	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Error("job was not run")
	}

	cancel()
	select {
	case err := <-errs:
		assert.NoError(err)
	case <-time.After(10 * time.Second):
		t.Error("runner did not stop")
	}
}
