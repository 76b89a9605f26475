package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nanoncore/nano-onusync/logger"
)

// JobType names a unit of background work.
type JobType string

const (
	JobInteractiveSync JobType = "interactive_sync"
	JobSNMPSync        JobType = "snmp_sync"
	JobFullSync        JobType = "full_sync"
	JobProbe           JobType = "probe"
)

// JobState is the lifecycle position of a job.
type JobState string

const (
	StatePending JobState = "pending"
	StateRunning JobState = "running"
	StateSuccess JobState = "success"
	StateFailure JobState = "failure"
)

// Job is one submitted unit of work. DeviceID is zero for fleet-wide jobs.
type Job struct {
	ID       string
	Type     JobType
	DeviceID int64
}

// JobStatus is what Status reports for a handle.
type JobStatus struct {
	Job
	State     JobState
	Result    Result
	Submitted time.Time
	Finished  time.Time
}

// Handler executes one job.
type Handler func(ctx context.Context, job Job) Result

// ErrQueueClosed is returned by Submit after Close.
var ErrQueueClosed = errors.New("queue closed")

// ErrUnknownJob is returned by Status for a handle never issued.
var ErrUnknownJob = errors.New("unknown job")

// Queue runs submitted jobs on a fixed pool of workers. Submitting the
// same (type, device) twice runs it twice.
type Queue struct {
	handler Handler
	log     logger.Logger
	ctx     context.Context

	jobs chan Job
	wg   sync.WaitGroup

	// closeMu orders sends on jobs against Close
	closeMu sync.RWMutex

	mu      sync.Mutex
	status  map[string]*JobStatus
	pending sync.WaitGroup
	closed  bool

	// stopped is set once ctx ends; no job is accepted after that
	stopped bool
}

// NewQueue starts workers goroutines running handler. They stop when ctx
// is cancelled or the queue is closed.
func NewQueue(ctx context.Context, workers int, handler Handler, log logger.Logger) *Queue {
	if workers <= 0 {
		workers = 1
	}
	if log == nil {
		log = logger.NewTestLogger()
	}
	q := &Queue{
		handler: handler,
		log:     log.WithComponent("queue"),
		ctx:     ctx,
		jobs:    make(chan Job, 1024),
		status:  map[string]*JobStatus{},
	}
	for i := 0; i < workers; i++ {
		q.wg.Add(1)
		go q.worker(ctx)
	}
	context.AfterFunc(ctx, q.shutdown)
	return q
}

// Submit enqueues a job and returns its handle.
func (q *Queue) Submit(ctx context.Context, jobType JobType, deviceID int64) (string, error) {
	job := Job{ID: uuid.NewString(), Type: jobType, DeviceID: deviceID}

	q.closeMu.RLock()
	defer q.closeMu.RUnlock()

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return "", ErrQueueClosed
	}
	if q.stopped {
		q.mu.Unlock()
		return "", fmt.Errorf("%w: %v", ErrQueueClosed, q.ctx.Err())
	}
	q.status[job.ID] = &JobStatus{Job: job, State: StatePending, Submitted: time.Now()}
	q.pending.Add(1)
	q.mu.Unlock()

	select {
	case q.jobs <- job:
	case <-ctx.Done():
		q.finish(job.ID, failure(fmt.Errorf("submit: %w", ctx.Err())))
		return "", ctx.Err()
	case <-q.ctx.Done():
		q.finish(job.ID, failure(ErrQueueClosed))
		return "", ErrQueueClosed
	}

	q.log.Debug().Str("job_id", job.ID).Str("type", string(jobType)).Int64("device_id", deviceID).Msg("job submitted")
	return job.ID, nil
}

// Status returns a snapshot of the job behind handle.
func (q *Queue) Status(handle string) (JobStatus, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	st, ok := q.status[handle]
	if !ok {
		return JobStatus{}, fmt.Errorf("%w: %s", ErrUnknownJob, handle)
	}
	return *st, nil
}

// Wait blocks until every submitted job has finished or ctx ends.
func (q *Queue) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		q.pending.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting jobs and waits for the workers to drain.
func (q *Queue) Close() {
	q.closeMu.Lock()
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		q.closeMu.Unlock()
		return
	}
	q.closed = true
	close(q.jobs)
	q.mu.Unlock()
	q.closeMu.Unlock()
	q.wg.Wait()
}

func (q *Queue) worker(ctx context.Context) {
	defer q.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case job, ok := <-q.jobs:
			if !ok {
				return
			}
			q.run(ctx, job)
		}
	}
}

// shutdown runs once the queue context ends. It stops intake, waits for
// the workers to exit and fails every job still buffered so waiters are
// released.
func (q *Queue) shutdown() {
	q.closeMu.Lock()
	q.mu.Lock()
	q.stopped = true
	q.mu.Unlock()
	q.closeMu.Unlock()

	q.wg.Wait()
	for {
		select {
		case job, ok := <-q.jobs:
			if !ok {
				return
			}
			q.finish(job.ID, failure(q.ctx.Err()))
		default:
			return
		}
	}
}

func (q *Queue) run(ctx context.Context, job Job) {
	q.mu.Lock()
	if st, ok := q.status[job.ID]; ok {
		st.State = StateRunning
	}
	q.mu.Unlock()

	log := q.log.WithFields(map[string]interface{}{
		"job_id":    job.ID,
		"type":      string(job.Type),
		"device_id": job.DeviceID,
	})
	start := time.Now()

	res := q.safeRun(ctx, job)
	q.finish(job.ID, res)

	if res.OK() {
		log.Info().Dur("took", time.Since(start)).Str("message", res.Message).Msg("job succeeded")
	} else {
		log.Warn().Dur("took", time.Since(start)).Str("error", res.Error).Msg("job failed")
	}
}

func (q *Queue) safeRun(ctx context.Context, job Job) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			res = Result{Error: fmt.Sprintf("job panicked: %v", r)}
		}
	}()
	return q.handler(ctx, job)
}

func (q *Queue) finish(id string, res Result) {
	q.mu.Lock()
	defer q.mu.Unlock()
	st, ok := q.status[id]
	if !ok || st.State == StateSuccess || st.State == StateFailure {
		return
	}
	st.Result = res
	st.Finished = time.Now()
	if res.OK() {
		st.State = StateSuccess
	} else {
		st.State = StateFailure
	}
	q.pending.Done()
}
