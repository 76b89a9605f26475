package orchestrator

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func waitAll(t *testing.T, q *Queue) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, q.Wait(ctx))
}

func TestQueueRunsJobs(t *testing.T) {
	var ran atomic.Int32
	q := NewQueue(context.Background(), 3, func(ctx context.Context, job Job) Result {
		ran.Add(1)
		if job.DeviceID == 2 {
			return Result{Error: "device 2 failed"}
		}
		return Result{Message: "ok", Count: 1}
	}, nil)
	defer q.Close()

	ok, err := q.Submit(context.Background(), JobInteractiveSync, 1)
	require.NoError(t, err)
	bad, err := q.Submit(context.Background(), JobSNMPSync, 2)
	require.NoError(t, err)
	again, err := q.Submit(context.Background(), JobInteractiveSync, 1)
	require.NoError(t, err)

	_, err = uuid.Parse(ok)
	assert.NoError(t, err, "handles are uuids")
	assert.NotEqual(t, ok, again, "resubmitting runs a new job")

	waitAll(t, q)
	assert.Equal(t, int32(3), ran.Load())

	st, err := q.Status(ok)
	require.NoError(t, err)
	assert.Equal(t, StateSuccess, st.State)
	assert.Equal(t, "ok", st.Result.Message)
	assert.False(t, st.Finished.IsZero())

	st, err = q.Status(bad)
	require.NoError(t, err)
	assert.Equal(t, StateFailure, st.State)
	assert.Equal(t, "device 2 failed", st.Result.Error)
	assert.Equal(t, JobSNMPSync, st.Type)
}

func TestQueueStatusLifecycle(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	var once sync.Once
	q := NewQueue(context.Background(), 1, func(ctx context.Context, job Job) Result {
		once.Do(func() { close(started) })
		<-release
		return Result{Message: "done"}
	}, nil)
	defer q.Close()

	first, err := q.Submit(context.Background(), JobProbe, 0)
	require.NoError(t, err)
	<-started

	second, err := q.Submit(context.Background(), JobProbe, 0)
	require.NoError(t, err)

	st, _ := q.Status(first)
	assert.Equal(t, StateRunning, st.State)
	st, _ = q.Status(second)
	assert.Equal(t, StatePending, st.State)

	close(release)
	waitAll(t, q)

	st, _ = q.Status(second)
	assert.Equal(t, StateSuccess, st.State)
}

func TestQueueRecoversPanics(t *testing.T) {
	q := NewQueue(context.Background(), 1, func(ctx context.Context, job Job) Result {
		panic("boom")
	}, nil)
	defer q.Close()

	id, err := q.Submit(context.Background(), JobFullSync, 0)
	require.NoError(t, err)
	waitAll(t, q)

	st, err := q.Status(id)
	require.NoError(t, err)
	assert.Equal(t, StateFailure, st.State)
	assert.Contains(t, st.Result.Error, "boom")
}

func TestQueueUnknownAndClosed(t *testing.T) {
	q := NewQueue(context.Background(), 1, func(ctx context.Context, job Job) Result {
		return Result{Message: "ok"}
	}, nil)

	_, err := q.Status("nope")
	assert.ErrorIs(t, err, ErrUnknownJob)

	q.Close()
	q.Close()
	_, err = q.Submit(context.Background(), JobProbe, 0)
	assert.ErrorIs(t, err, ErrQueueClosed)
}

func TestQueueRejectsJobsAfterContextEnds(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	q := NewQueue(ctx, 2, func(ctx context.Context, job Job) Result {
		return Result{Message: "ok"}
	}, nil)
	defer q.Close()

	cancel()
	time.Sleep(50 * time.Millisecond)

	for i := 0; i < 50; i++ {
		id, err := q.Submit(context.Background(), JobInteractiveSync, int64(i))
		if err != nil {
			assert.ErrorIs(t, err, ErrQueueClosed)
			continue
		}
		st, err := q.Status(id)
		require.NoError(t, err)
		assert.NotEqual(t, StatePending, st.State)
	}
	waitAll(t, q)
}

func TestQueueFailsBufferedJobsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	started := make(chan struct{})
	var once sync.Once
	q := NewQueue(ctx, 1, func(ctx context.Context, job Job) Result {
		once.Do(func() { close(started) })
		<-ctx.Done()
		return Result{Error: ctx.Err().Error()}
	}, nil)
	defer q.Close()

	var ids []string
	for i := 0; i < 5; i++ {
		id, err := q.Submit(context.Background(), JobSNMPSync, int64(i))
		require.NoError(t, err)
		ids = append(ids, id)
	}
	<-started
	cancel()
	waitAll(t, q)

	for _, id := range ids {
		st, err := q.Status(id)
		require.NoError(t, err)
		assert.Equal(t, StateFailure, st.State)
		assert.Contains(t, st.Result.Error, context.Canceled.Error())
	}
}
