// Command onusync polls OLTs for their ONU tables and keeps the record
// store current.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	onusync "github.com/nanoncore/nano-onusync"
	"github.com/nanoncore/nano-onusync/config"
	"github.com/nanoncore/nano-onusync/drivers/snmp"
	"github.com/nanoncore/nano-onusync/logger"
	"github.com/nanoncore/nano-onusync/orchestrator"
	"github.com/nanoncore/nano-onusync/store/sqlite"
	"github.com/nanoncore/nano-onusync/types"
	"github.com/nanoncore/nano-onusync/vendors/adapter"
)

func main() {
	configPath := flag.String("config", "", "config file path (default: search $ONUSYNC_CONFIG, ./onusync.yaml, /etc/onusync/config.yaml)")
	once := flag.Bool("once", false, "probe, run one full sync, wait for its jobs and exit")
	probe := flag.Bool("probe", false, "probe device reachability once and exit")
	deviceID := flag.Int64("device", 0, "sync a single device and exit")
	method := flag.String("method", string(types.MethodInteractive), "sync method for -device: interactive or snmp")
	flag.Parse()

	if err := run(*configPath, *once, *probe, *deviceID, types.Method(*method)); err != nil {
		fmt.Fprintf(os.Stderr, "onusync: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string, once, probe bool, deviceID int64, method types.Method) error {
	cfg, usedPath, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	log, err := logger.New(cfg.Logging)
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	log.Info().Str("config", usedPath).Str("database", cfg.Database.Path).Msg("Starting onusync")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repo, err := sqlite.New(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer repo.Close()

	if err := seed(ctx, repo, cfg.Seed, log); err != nil {
		return err
	}

	factory := onusync.NewFactory(adapter.Options{
		Logger:      log,
		WaitTimeout: cfg.Session.WaitTimeout.Duration(),
		ReadTimeout: cfg.Session.ReadTimeout.Duration(),
		DialTimeout: cfg.Session.DialTimeout.Duration(),
		SNMP: snmp.Options{
			Timeout: cfg.SNMP.Timeout.Duration(),
			Retries: cfg.SNMP.Retries,
		},
		Parallelism: cfg.SNMP.Parallelism,
	})
	pinger := orchestrator.ExecPinger{
		Count:   cfg.Probe.Count,
		Wait:    cfg.Probe.Wait.Duration(),
		Timeout: cfg.Probe.Timeout.Duration(),
	}
	svc := orchestrator.NewService(repo, factory, pinger, orchestrator.Config{
		JobTimeout:       cfg.Jobs.Timeout.Duration(),
		ProbeParallelism: cfg.Probe.Parallelism,
	}, log)

	switch {
	case deviceID > 0:
		return report(syncOne(ctx, svc, deviceID, method))
	case probe:
		return report(svc.ProbeReachability(ctx))
	case once:
		return runOnce(ctx, svc, cfg, log)
	}
	return serve(ctx, svc, cfg, log)
}

func loadConfig(path string) (*config.Config, string, error) {
	if path != "" {
		return config.LoadFromPath(path)
	}
	return config.Load()
}

func syncOne(ctx context.Context, svc *orchestrator.Service, deviceID int64, method types.Method) orchestrator.Result {
	switch method {
	case types.MethodInteractive:
		return svc.RunInteractiveSync(ctx, deviceID)
	case types.MethodSNMP:
		return svc.RunSNMPSync(ctx, deviceID)
	}
	return orchestrator.Result{Error: fmt.Sprintf("unknown method %q", method)}
}

// report prints a result payload and turns a failed result into an error.
func report(res orchestrator.Result) error {
	fmt.Println(res.JSON())
	if !res.OK() {
		return errors.New(res.Error)
	}
	return nil
}

// runOnce probes, queues a full sync and prints every job result.
func runOnce(ctx context.Context, svc *orchestrator.Service, cfg *config.Config, log logger.Logger) error {
	queue := orchestrator.NewQueue(ctx, cfg.Jobs.Workers, svc.Handle, log)
	defer queue.Close()

	tracker := &handleTracker{queue: queue}
	svc.SetSubmitter(tracker)

	if err := report(svc.ProbeReachability(ctx)); err != nil {
		return err
	}
	if err := report(svc.RunFullSync(ctx)); err != nil {
		return err
	}
	if err := queue.Wait(ctx); err != nil {
		return err
	}

	failed := 0
	for _, handle := range tracker.Handles() {
		st, err := queue.Status(handle)
		if err != nil {
			return err
		}
		fmt.Println(st.Result.JSON())
		if st.State == orchestrator.StateFailure {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d sync jobs failed", failed)
	}
	return nil
}

// serve runs the scheduler until a signal arrives.
func serve(ctx context.Context, svc *orchestrator.Service, cfg *config.Config, log logger.Logger) error {
	queue := orchestrator.NewQueue(ctx, cfg.Jobs.Workers, svc.Handle, log)
	defer queue.Close()
	svc.SetSubmitter(queue)

	sched := orchestrator.NewScheduler(queue, cfg.Scheduler.ProbeInterval.Duration(), cfg.Scheduler.SyncInterval.Duration(), log)
	err := sched.Start(ctx)
	log.Info().Msg("Shutting down")
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// handleTracker remembers the handles of submitted jobs.
type handleTracker struct {
	queue *orchestrator.Queue

	mu      sync.Mutex
	handles []string
}

func (t *handleTracker) Submit(ctx context.Context, jobType orchestrator.JobType, deviceID int64) (string, error) {
	id, err := t.queue.Submit(ctx, jobType, deviceID)
	if err != nil {
		return "", err
	}
	t.mu.Lock()
	t.handles = append(t.handles, id)
	t.mu.Unlock()
	return id, nil
}

func (t *handleTracker) Handles() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.handles...)
}
