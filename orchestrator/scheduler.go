package orchestrator

import (
	"context"
	"time"

	"github.com/nanoncore/nano-onusync/logger"
)

// Scheduler defaults
const (
	DefaultProbeInterval = 60 * time.Second
	DefaultSyncInterval  = 30 * time.Minute
)

// Scheduler periodically submits probe and full sync jobs.
type Scheduler struct {
	submitter     Submitter
	probeInterval time.Duration
	syncInterval  time.Duration
	log           logger.Logger
}

// NewScheduler creates a Scheduler; zero intervals take the defaults.
func NewScheduler(sub Submitter, probeInterval, syncInterval time.Duration, log logger.Logger) *Scheduler {
	if probeInterval <= 0 {
		probeInterval = DefaultProbeInterval
	}
	if syncInterval <= 0 {
		syncInterval = DefaultSyncInterval
	}
	if log == nil {
		log = logger.NewTestLogger()
	}
	return &Scheduler{
		submitter:     sub,
		probeInterval: probeInterval,
		syncInterval:  syncInterval,
		log:           log.WithComponent("scheduler"),
	}
}

// Start runs the schedule until ctx is cancelled. A probe is submitted
// immediately so the first full sync has reachability to work from.
func (s *Scheduler) Start(ctx context.Context) error {
	s.log.Info().Dur("probe_interval", s.probeInterval).Dur("sync_interval", s.syncInterval).
		Msg("Starting scheduler")

	probeTicker := time.NewTicker(s.probeInterval)
	defer probeTicker.Stop()

	syncTicker := time.NewTicker(s.syncInterval)
	defer syncTicker.Stop()

	s.submit(ctx, JobProbe)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-probeTicker.C:
			s.submit(ctx, JobProbe)
		case <-syncTicker.C:
			s.submit(ctx, JobFullSync)
		}
	}
}

func (s *Scheduler) submit(ctx context.Context, jt JobType) {
	id, err := s.submitter.Submit(ctx, jt, 0)
	if err != nil {
		if ctx.Err() == nil {
			s.log.Error().Err(err).Str("type", string(jt)).Msg("Scheduled submit failed")
		}
		return
	}
	s.log.Debug().Str("job_id", id).Str("type", string(jt)).Msg("Scheduled job submitted")
}
