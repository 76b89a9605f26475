// Package orchestrator turns adapter output into persisted ONU records:
// sync jobs, the job queue, reachability probing and the scheduler.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nanoncore/nano-onusync/logger"
	"github.com/nanoncore/nano-onusync/store"
	"github.com/nanoncore/nano-onusync/types"
)

// Resolver builds the fetcher for a device and sync method. catalog is
// the OID table loaded for the device's (vendor, model); interactive
// fetchers ignore it.
type Resolver interface {
	Resolve(endpoint *types.DeviceEndpoint, method types.Method, catalog types.OIDTable) (types.Fetcher, error)
}

// Submitter queues background jobs.
type Submitter interface {
	Submit(ctx context.Context, jobType JobType, deviceID int64) (string, error)
}

// Service defaults
const (
	DefaultJobTimeout       = 5 * time.Minute
	DefaultProbeParallelism = 16
)

// Config tunes the Service.
type Config struct {
	JobTimeout       time.Duration
	ProbeParallelism int
}

// Service runs sync and probe jobs. Job-boundary methods never return an
// error; failures are reported in the Result.
type Service struct {
	store    store.Store
	resolver Resolver
	prober   Prober
	cfg      Config
	log      logger.Logger

	submitter Submitter
}

// NewService creates a Service.
func NewService(st store.Store, resolver Resolver, prober Prober, cfg Config, log logger.Logger) *Service {
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = DefaultJobTimeout
	}
	if cfg.ProbeParallelism <= 0 {
		cfg.ProbeParallelism = DefaultProbeParallelism
	}
	if log == nil {
		log = logger.NewTestLogger()
	}
	if prober == nil {
		prober = ExecPinger{}
	}
	return &Service{
		store:    st,
		resolver: resolver,
		prober:   prober,
		cfg:      cfg,
		log:      log.WithComponent("orchestrator"),
	}
}

// SetSubmitter wires the queue RunFullSync submits to.
func (s *Service) SetSubmitter(sub Submitter) {
	s.submitter = sub
}

// Handle dispatches a queued job.
func (s *Service) Handle(ctx context.Context, job Job) Result {
	switch job.Type {
	case JobInteractiveSync:
		return s.RunInteractiveSync(ctx, job.DeviceID)
	case JobSNMPSync:
		return s.RunSNMPSync(ctx, job.DeviceID)
	case JobFullSync:
		return s.RunFullSync(ctx)
	case JobProbe:
		return s.ProbeReachability(ctx)
	}
	return Result{Error: fmt.Sprintf("unknown job type %q", job.Type)}
}

type syncStats struct {
	fetched int
	created int
	updated int
	unknown int
	skipped int
}

// RunInteractiveSync polls the device shell and upserts every record.
func (s *Service) RunInteractiveSync(ctx context.Context, deviceID int64) Result {
	return s.runSync(ctx, deviceID, types.MethodInteractive, s.applyInteractive)
}

// RunSNMPSync walks the device agent and attaches SNMP details to the
// records an interactive sync already created. It never inserts.
func (s *Service) RunSNMPSync(ctx context.Context, deviceID int64) Result {
	return s.runSync(ctx, deviceID, types.MethodSNMP, s.applySNMP)
}

type applyFunc func(ctx context.Context, tx store.SyncTx, records []types.ONURecord, log logger.Logger) (syncStats, error)

func (s *Service) runSync(ctx context.Context, deviceID int64, method types.Method, apply applyFunc) Result {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.JobTimeout)
	defer cancel()

	log := s.log.WithFields(map[string]interface{}{
		"device_id": deviceID,
		"method":    string(method),
	})
	start := time.Now()

	stats, err := s.syncDevice(ctx, deviceID, method, apply, log)
	if err != nil {
		log.Error().Err(err).Dur("took", time.Since(start)).Msg("sync failed")
		return failure(err)
	}

	log.Info().Int("fetched", stats.fetched).Int("created", stats.created).
		Int("updated", stats.updated).Int("unknown", stats.unknown).
		Dur("took", time.Since(start)).Msg("sync committed")

	msg := fmt.Sprintf("%s sync of device %d: %d ONUs fetched, %d created, %d updated",
		method, deviceID, stats.fetched, stats.created, stats.updated)
	if stats.unknown > 0 {
		msg += fmt.Sprintf(", %d unknown discarded", stats.unknown)
	}
	return Result{Message: msg, Count: stats.created + stats.updated}
}

func (s *Service) syncDevice(ctx context.Context, deviceID int64, method types.Method, apply applyFunc, log logger.Logger) (syncStats, error) {
	ep, err := s.store.GetDevice(ctx, deviceID)
	if err != nil {
		return syncStats{}, err
	}

	var catalog types.OIDTable
	if method == types.MethodSNMP {
		catalog, err = s.store.GetOIDTable(ctx, ep.Vendor, ep.Model)
		if err != nil {
			return syncStats{}, fmt.Errorf("load OID catalog: %w", err)
		}
	}

	fetcher, err := s.resolver.Resolve(ep, method, catalog)
	if err != nil {
		return syncStats{}, err
	}

	records, err := fetcher.Fetch(ctx, ep)
	if err != nil {
		return syncStats{}, fmt.Errorf("fetch from %s: %w", ep.Name, err)
	}
	if len(records) == 0 {
		return syncStats{}, ErrNoRecords
	}

	tx, err := s.store.BeginSync(ctx, deviceID)
	if err != nil {
		return syncStats{}, err
	}
	defer tx.Rollback()

	stats, err := apply(ctx, tx, records, log)
	if err != nil {
		return syncStats{}, err
	}
	stats.fetched = len(records)

	if err := ctx.Err(); err != nil {
		return syncStats{}, fmt.Errorf("job deadline: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return syncStats{}, fmt.Errorf("commit: %w", err)
	}
	return stats, nil
}

func (s *Service) applyInteractive(ctx context.Context, tx store.SyncTx, records []types.ONURecord, log logger.Logger) (syncStats, error) {
	var st syncStats
	for _, rec := range records {
		if rec.Identifier == "" {
			st.skipped++
			log.Warn().Str("interface", rec.Interface).Msg("record without identifier skipped")
			continue
		}
		created, err := tx.UpsertONU(ctx, rec)
		if err != nil {
			return st, err
		}
		if created {
			st.created++
		} else {
			st.updated++
		}
	}
	return st, nil
}

func (s *Service) applySNMP(ctx context.Context, tx store.SyncTx, records []types.ONURecord, log logger.Logger) (syncStats, error) {
	var st syncStats
	for _, rec := range records {
		if rec.Identifier == "" {
			st.skipped++
			continue
		}
		found, err := tx.UpdateSNMPDetails(ctx, rec.Identifier, rec.SNMPDetails, rec.LastSeen)
		if err != nil {
			return st, err
		}
		if !found {
			st.unknown++
			log.Debug().Str("identifier", rec.Identifier).Msg("SNMP record for unknown ONU discarded")
			continue
		}
		st.updated++
	}
	return st, nil
}

// RunFullSync queues an interactive and an SNMP sync for every device
// currently marked reachable.
func (s *Service) RunFullSync(ctx context.Context) Result {
	if s.submitter == nil {
		return Result{Error: "no job queue configured"}
	}
	devices, err := s.store.ListReachable(ctx)
	if err != nil {
		return failure(err)
	}

	queued := 0
	for _, d := range devices {
		for _, jt := range []JobType{JobInteractiveSync, JobSNMPSync} {
			if _, err := s.submitter.Submit(ctx, jt, d.ID); err != nil {
				s.log.Error().Err(err).Int64("device_id", d.ID).Str("type", string(jt)).Msg("submit failed")
				continue
			}
			queued++
		}
	}

	s.log.Info().Int("devices", len(devices)).Int("jobs", queued).Msg("full sync queued")
	return Result{
		Message: fmt.Sprintf("queued %d sync jobs for %d reachable devices", queued, len(devices)),
		Count:   queued,
	}
}

// ProbeReachability pings every registered device and records the result.
func (s *Service) ProbeReachability(ctx context.Context) Result {
	devices, err := s.store.ListDevices(ctx)
	if err != nil {
		return failure(err)
	}

	results := make([]types.Reachability, len(devices))
	var g errgroup.Group
	g.SetLimit(s.cfg.ProbeParallelism)
	for i, d := range devices {
		g.Go(func() error {
			up, err := s.prober.Probe(ctx, d.Address)
			if err != nil {
				s.log.Warn().Err(err).Int64("device_id", d.ID).Msg("probe failed")
			}
			results[i] = types.ReachabilityOffline
			if up {
				results[i] = types.ReachabilityOnline
			}
			return nil
		})
	}
	_ = g.Wait()

	online := 0
	var errs []error
	now := time.Now()
	for i, d := range devices {
		if results[i] == types.ReachabilityOnline {
			online++
		}
		if err := s.store.SetReachability(ctx, d.ID, results[i], now); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return failure(err)
	}

	s.log.Info().Int("devices", len(devices)).Int("online", online).Msg("probe complete")
	return Result{
		Message: fmt.Sprintf("probed %d devices, %d online", len(devices), online),
		Count:   online,
	}
}
