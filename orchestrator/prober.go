package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"time"
)

// Prober decides whether a host answers.
type Prober interface {
	Probe(ctx context.Context, host string) (bool, error)
}

// ProberFunc adapts a function to Prober
type ProberFunc func(ctx context.Context, host string) (bool, error)

// Probe calls f(ctx, host)
func (f ProberFunc) Probe(ctx context.Context, host string) (bool, error) {
	return f(ctx, host)
}

// Probe defaults
const (
	DefaultProbeCount   = 5
	DefaultProbeWait    = 2 * time.Second
	DefaultProbeTimeout = 15 * time.Second
)

// ExecPinger probes with the system ping binary.
type ExecPinger struct {
	// Binary defaults to "ping"
	Binary  string
	Count   int
	Wait    time.Duration
	Timeout time.Duration
}

func (p ExecPinger) args(host string) []string {
	count, wait := p.Count, p.Wait
	if count <= 0 {
		count = DefaultProbeCount
	}
	if wait <= 0 {
		wait = DefaultProbeWait
	}
	secs := int(wait.Round(time.Second) / time.Second)
	if secs < 1 {
		secs = 1
	}
	return []string{"-c", strconv.Itoa(count), "-W", strconv.Itoa(secs), host}
}

// Probe runs ping and reports success on exit status 0. A non-zero exit
// or the timeout expiring means offline; failing to run ping is an error.
func (p ExecPinger) Probe(ctx context.Context, host string) (bool, error) {
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = DefaultProbeTimeout
	}
	binary := p.Binary
	if binary == "" {
		binary = "ping"
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, binary, p.args(host)...)
	err := cmd.Run()
	if err == nil {
		return true, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) || ctx.Err() != nil {
		return false, nil
	}
	return false, fmt.Errorf("run %s: %w", binary, err)
}
