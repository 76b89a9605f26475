package mock

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"
	"time"
)

// Exchange is one scripted turn of a Shell: read what the client sends
// (a line, or a single key when Key is set), then write Reply.
// An empty Expect without Key writes Reply immediately (banners, prompts).
type Exchange struct {
	Expect string
	Key    bool
	Reply  string
	Delay  time.Duration
}

// Shell is a scripted line-oriented device for driving a session in tests.
type Shell struct {
	script []Exchange

	mu       sync.Mutex
	received []string
	errs     []string
	done     chan struct{}
	doneOnce sync.Once
}

// NewShell creates a shell serving one connection with script.
func NewShell(script ...Exchange) *Shell {
	return &Shell{script: script, done: make(chan struct{})}
}

// Dial returns the client end of an in-memory connection served by the script.
func (s *Shell) Dial(ctx context.Context) (net.Conn, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	client, server := net.Pipe()
	go s.serve(server)
	return client, nil
}

// Received returns everything the client sent, one entry per line or key.
func (s *Shell) Received() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.received...)
}

// Err reports script mismatches.
func (s *Shell) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.errs) == 0 {
		return nil
	}
	return fmt.Errorf("shell: %s", strings.Join(s.errs, "; "))
}

// Done is closed once the client hangs up.
func (s *Shell) Done() <-chan struct{} {
	return s.done
}

func (s *Shell) serve(conn net.Conn) {
	defer s.doneOnce.Do(func() { close(s.done) })
	defer conn.Close()
	r := bufio.NewReader(conn)

	for _, ex := range s.script {
		switch {
		case ex.Key:
			b, err := r.ReadByte()
			if err != nil {
				return
			}
			s.record(string(b), ex.Expect)
		case ex.Expect != "":
			line, err := r.ReadString('\n')
			if err != nil {
				return
			}
			s.record(strings.TrimRight(line, "\r\n"), ex.Expect)
		}

		if ex.Delay > 0 {
			time.Sleep(ex.Delay)
		}
		if ex.Reply != "" {
			if _, err := io.WriteString(conn, ex.Reply); err != nil {
				return
			}
		}
	}

	// drain until the client hangs up
	for {
		line, err := r.ReadString('\n')
		if line != "" {
			s.record(strings.TrimRight(line, "\r\n"), "")
		}
		if err != nil {
			return
		}
	}
}

func (s *Shell) record(got, want string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.received = append(s.received, got)
	if want != "" && got != want {
		s.errs = append(s.errs, fmt.Sprintf("got %q, want %q", got, want))
	}
}
