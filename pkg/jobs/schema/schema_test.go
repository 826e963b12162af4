package schema_test

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	// Packages
	pg "github.com/mutablelogic/go-pgjobs"
	schema "github.com/mutablelogic/go-pgjobs/pkg/jobs/schema"
	sql "github.com/mutablelogic/go-pgjobs/pkg/jobs/sql"
	types "github.com/mutablelogic/go-pgjobs/pkg/types"
	httpresponse "github.com/mutablelogic/go-server/pkg/httpresponse"
	assert "github.com/stretchr/testify/assert"
)

// newBind returns a bind with the named queries and a schema
func newBind(t *testing.T) *pg.Bind {
	t.Helper()
	queries, err := pg.NewQueries(strings.NewReader(sql.Queries))
	if err != nil {
		t.Fatal(err)
	}
	bind := pg.NewBind("schema", "test")
	for _, key := range queries.Keys() {
		bind.Set(key, queries.Get(key))
	}
	return bind
}

func Test_Schema_Queries(t *testing.T) {
	assert := assert.New(t)

	t.Run("Objects", func(t *testing.T) {
		objects, err := pg.NewQueries(strings.NewReader(sql.Objects))
		if assert.NoError(err) {
			assert.Equal("pgjobs.lock", objects.Keys()[0])
			assert.Contains(objects.Keys(), "pgjobs.jobs")
			assert.Contains(objects.Keys(), "pgjobs.job_reservations")
		}
	})

	t.Run("Schema", func(t *testing.T) {
		bind := newBind(t)
		query := bind.Query("pgjobs.job_get")
		assert.Contains(query, `"test".jobs`)
		assert.NotContains(query, "${")
	})
}

func Test_Schema_JobMeta(t *testing.T) {
	assert := assert.New(t)

	t.Run("Insert", func(t *testing.T) {
		bind := newBind(t)
		query, err := schema.JobMeta{
			JobType:          " echo ",
			ConcurrencyGroup: types.Ptr("group"),
			Timeout:          10,
			Priority:         5,
			Args:             map[string]any{"a": 1},
		}.Insert(bind)
		if assert.NoError(err) {
			assert.Contains(query, `INSERT INTO "test".jobs`)
			assert.Equal("echo", bind.Get("job_type"))
			assert.Equal("group", bind.Get("concurrency_group"))
			assert.Equal(int64(10), bind.Get("timeout"))
			assert.Equal(5, bind.Get("priority"))
			assert.JSONEq(`{"a":1}`, bind.Get("args").(string))
			assert.Equal("pgjobs.job_insert", bind.Get(pg.TraceSpanNameArg))
		}
	})

	t.Run("NullArgs", func(t *testing.T) {
		bind := newBind(t)
		_, err := schema.JobMeta{JobType: "echo", Timeout: 1}.Insert(bind)
		assert.NoError(err)
		assert.Equal("null", bind.Get("args"))
		assert.Nil(bind.Get("concurrency_group"))
	})

	t.Run("EmptyGroupIsNull", func(t *testing.T) {
		bind := newBind(t)
		_, err := schema.JobMeta{JobType: "echo", Timeout: 1, ConcurrencyGroup: types.Ptr("  ")}.Insert(bind)
		assert.NoError(err)
		assert.Nil(bind.Get("concurrency_group"))
	})

	t.Run("Invalid", func(t *testing.T) {
		tests := []schema.JobMeta{
			{Timeout: 1},
			{JobType: "echo"},
			{JobType: "echo", Timeout: 1 << 40},
			{JobType: "echo", Timeout: 1, Args: func() {}},
		}
		for _, meta := range tests {
			_, err := meta.Insert(newBind(t))
			assert.ErrorIs(err, httpresponse.ErrBadRequest)
		}
	})

	t.Run("Update", func(t *testing.T) {
		assert.Error(schema.JobMeta{}.Update(newBind(t)))
	})
}

func Test_Schema_Selectors(t *testing.T) {
	assert := assert.New(t)

	t.Run("JobId", func(t *testing.T) {
		bind := newBind(t)
		_, err := schema.JobId(0).Select(bind, pg.Get)
		assert.ErrorIs(err, httpresponse.ErrBadRequest)
		query, err := schema.JobId(1).Select(bind, pg.Get)
		assert.NoError(err)
		assert.Contains(query, "id = @job_id")
		_, err = schema.JobId(1).Select(bind, pg.Update)
		assert.ErrorIs(err, httpresponse.ErrInternalError)
	})

	t.Run("JobListRequest", func(t *testing.T) {
		bind := newBind(t)
		_, err := schema.JobListRequest{Status: schema.StatusRejected, JobType: "echo"}.Select(bind, pg.List)
		assert.NoError(err)
		assert.Equal(`WHERE status = @status::${"schema"}.job_statuses AND job_type = @job_type`, bind.Get("where"))
		assert.Equal("LIMIT 100", bind.Get("offsetlimit"))

		bind = newBind(t)
		_, err = schema.JobListRequest{}.Select(bind, pg.List)
		assert.NoError(err)
		assert.Equal("", bind.Get("where"))

		_, err = schema.JobListRequest{Status: "unknown"}.Select(newBind(t), pg.List)
		assert.ErrorIs(err, httpresponse.ErrBadRequest)
	})

	t.Run("JobSettledRequest", func(t *testing.T) {
		bind := newBind(t)
		query, err := schema.JobSettledRequest{Ids: []uint64{3, 1}}.Select(bind, pg.List)
		assert.NoError(err)
		assert.Equal([]int64{3, 1}, bind.Get("job_ids"))
		assert.Contains(query, "status <> 'unfulfilled'")
	})

	t.Run("JobClaim", func(t *testing.T) {
		bind := newBind(t)
		query, err := schema.JobClaim{Priority: 5}.Select(bind, pg.Get)
		assert.NoError(err)
		assert.Equal(5, bind.Get("priority"))
		assert.Contains(query, "LIMIT 1")
	})

	t.Run("JobFinish", func(t *testing.T) {
		bind := newBind(t)
		_, err := schema.JobFinish{Id: 1, Status: schema.StatusResolved, Result: json.RawMessage(`{"ok":true}`)}.Select(bind, pg.Update)
		assert.NoError(err)
		assert.Equal("resolved", bind.Get("status"))
		assert.Equal(`{"ok":true}`, bind.Get("result"))

		_, err = schema.JobFinish{Id: 1, Status: schema.StatusUnfulfilled}.Select(newBind(t), pg.Update)
		assert.ErrorIs(err, httpresponse.ErrBadRequest)
		_, err = schema.JobFinish{Id: 1, Status: schema.StatusResolved, Result: json.RawMessage(`{`)}.Select(newBind(t), pg.Update)
		assert.ErrorIs(err, httpresponse.ErrBadRequest)

		bind = newBind(t)
		_, err = schema.JobFinish{Id: 1, Status: schema.StatusRejected}.Select(bind, pg.Update)
		assert.NoError(err)
		assert.Equal("null", bind.Get("result"))
	})

	t.Run("ReservationMeta", func(t *testing.T) {
		bind := newBind(t)
		query, err := schema.ReservationMeta{JobId: 1, WorkerId: "w", MaxTimeout: 1500 * time.Millisecond}.Insert(bind)
		assert.NoError(err)
		assert.Equal(1.5, bind.Get("max_timeout"))
		assert.Contains(query, "LEAST(")

		_, err = schema.ReservationMeta{JobId: 1, MaxTimeout: time.Second}.Insert(newBind(t))
		assert.ErrorIs(err, httpresponse.ErrBadRequest)
		_, err = schema.ReservationMeta{JobId: 1, WorkerId: "w"}.Insert(newBind(t))
		assert.ErrorIs(err, httpresponse.ErrBadRequest)
	})

	t.Run("ReservationId", func(t *testing.T) {
		_, err := schema.ReservationId(1).Select(newBind(t), pg.Get)
		assert.Error(err)
		_, err = schema.ReservationId(0).Select(newBind(t), pg.Update)
		assert.ErrorIs(err, httpresponse.ErrBadRequest)
		update, err := schema.ReservationId(1).Select(newBind(t), pg.Update)
		assert.NoError(err)
		assert.Contains(update, "completed_at = now()")
	})

	t.Run("Notify", func(t *testing.T) {
		bind := newBind(t)
		query, err := schema.Notify{Channel: schema.ChannelJobs, Payload: "echo"}.Select(bind, pg.Get)
		assert.NoError(err)
		assert.Contains(query, "pg_notify")
		assert.Equal("jobs", bind.Get("channel"))
		_, err = schema.Notify{}.Select(newBind(t), pg.Get)
		assert.ErrorIs(err, httpresponse.ErrBadRequest)
	})
}

func Test_Schema_Status(t *testing.T) {
	assert := assert.New(t)
	assert.True(schema.StatusResolved.Valid())
	assert.False(schema.Status("done").Valid())
	assert.False(schema.StatusUnfulfilled.Terminal())
	assert.True(schema.StatusRejected.Terminal())
	assert.Len(schema.Statuses(), 3)

	now := time.Now()
	assert.True(schema.Reservation{LockedUntil: now.Add(time.Second)}.Valid(now))
	assert.False(schema.Reservation{LockedUntil: now.Add(-time.Second)}.Valid(now))
	assert.False(schema.Reservation{LockedUntil: now.Add(time.Second), CompletedAt: &now}.Valid(now))

	list := schema.ReservationList{Body: []schema.Reservation{
		{Id: 1, LockedUntil: now.Add(-time.Second)},
		{Id: 2, LockedUntil: now.Add(time.Second), CompletedAt: &now},
		{Id: 3, LockedUntil: now.Add(time.Second)},
	}}
	if active := list.Active(now); assert.Len(active, 1) {
		assert.Equal(uint64(3), active[0].Id)
	}
	assert.Empty(schema.ReservationList{}.Active(now))
}
