package cli

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	expect "github.com/google/goexpect"

	"github.com/nanoncore/nano-onusync/logger"
	"github.com/nanoncore/nano-onusync/vendors/common"
)

// Session defaults
const (
	DefaultWaitTimeout = 15 * time.Second
	DefaultReadTimeout = 5 * time.Second
	DefaultPagerReply  = " "
	DefaultNewline     = "\n"

	// maxPages bounds a runaway pager loop
	maxPages = 10000

	redacted = "<redacted>"
)

// DefaultPromptPattern matches common CLI prompts like "hostname#" or "hostname>"
var DefaultPromptPattern = regexp.MustCompile(`[\w\-\[\]()/]+[#>]\s*$`)

// authFailurePattern ends a login step early instead of waiting out the timeout.
var authFailurePattern = regexp.MustCompile(`(?i)(login incorrect|authentication failed|bad password|password error|access denied)`)

// Answer is an optional intermediate prompt and its reply.
type Answer struct {
	Match  *regexp.Regexp
	Send   string
	Secret bool
}

// Step is one login script entry: wait for Expect, then write Send.
// Send is written verbatim, include the line terminator. Answers are
// replied to if they show up before Expect. Secret sends are left out
// of the wire log.
type Step struct {
	Name    string
	Expect  *regexp.Regexp
	Send    string
	Secret  bool
	Timeout time.Duration
	Answers []Answer
}

// Config holds configuration for creating a Session
type Config struct {
	Transport Transport

	// Login is run in order by Connect
	Login []Step

	// Logout is written by Disconnect before the transport is closed
	Logout string

	Newline    string
	Pager      *regexp.Regexp
	PagerReply string

	// WaitTimeout bounds each login step and WaitFor call
	WaitTimeout time.Duration

	// ReadTimeout is the per-read silence after which Execute treats
	// command output as complete
	ReadTimeout time.Duration

	// CommandDelay is slept after writing a command
	CommandDelay time.Duration

	Logger logger.Logger
}

// Session is one sequential conversation with one device. It is not
// reusable: once closed it stays closed.
type Session struct {
	cfg Config
	log logger.Logger

	mu     sync.Mutex
	exp    expect.Expecter
	closed bool
	stop   func() bool
}

// NewSession creates a session; no I/O happens until Connect.
func NewSession(cfg Config) *Session {
	if cfg.Newline == "" {
		cfg.Newline = DefaultNewline
	}
	if cfg.Pager == nil {
		cfg.Pager = common.PagerRegex
	}
	if cfg.PagerReply == "" {
		cfg.PagerReply = DefaultPagerReply
	}
	if cfg.WaitTimeout == 0 {
		cfg.WaitTimeout = DefaultWaitTimeout
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = DefaultReadTimeout
	}
	log := cfg.Logger
	if log == nil {
		log = logger.NewTestLogger()
	}
	if cfg.Transport != nil {
		log = log.WithFields(map[string]interface{}{"target": cfg.Transport.String()})
	}
	return &Session{cfg: cfg, log: log}
}

// Connect opens the transport and runs the login script. Any failure
// closes the session. Cancelling ctx later also closes it, which unblocks
// any pending read.
func (s *Session) Connect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || s.exp != nil {
		return &SessionError{Kind: KindClosed, Human: "Session already used", Err: ErrSessionClosed}
	}
	if s.cfg.Transport == nil {
		return &SessionError{Kind: KindTransport, Human: "No transport", Err: errors.New("transport is required")}
	}

	exp, err := s.cfg.Transport.Spawn(ctx, s.cfg.WaitTimeout,
		expect.Verbose(false),
		expect.CheckDuration(100*time.Millisecond),
		expect.SendTimeout(s.cfg.WaitTimeout),
		expect.PartialMatch(true),
		expect.Tee(&wireLog{log: s.log}),
	)
	if err != nil {
		s.closed = true
		return transportError("connect", err)
	}
	s.exp = exp
	s.stop = context.AfterFunc(ctx, func() {
		s.log.Debug().Msg("context done, closing transport")
		_ = exp.Close()
	})
	s.log.Debug().Msg("transport open")

	for _, step := range s.cfg.Login {
		if err := s.runStep(step); err != nil {
			s.closeLocked()
			return err
		}
	}
	s.log.Debug().Int("steps", len(s.cfg.Login)).Msg("login complete")
	return nil
}

func (s *Session) runStep(step Step) error {
	timeout := step.Timeout
	if timeout == 0 {
		timeout = s.cfg.WaitTimeout
	}

	cases := make([]expect.Caser, 0, len(step.Answers)+2)
	for _, a := range step.Answers {
		cases = append(cases, &expect.Case{R: a.Match, T: expect.OK()})
	}
	cases = append(cases,
		&expect.Case{R: authFailurePattern, T: expect.OK()},
		&expect.Case{R: step.Expect, T: expect.OK()},
	)
	authIdx := len(step.Answers)

	// each answer may be used at most once
	for round := 0; round <= len(step.Answers); round++ {
		out, _, idx, err := s.exp.ExpectSwitchCase(cases, timeout)
		if err != nil {
			if isTimeout(err) {
				return waitError(step.Name, out, err)
			}
			return transportError(step.Name, err)
		}

		switch {
		case idx < authIdx:
			s.log.Debug().Str("step", step.Name).Int("answer", idx).Msg("intermediate prompt")
			if err := s.sendMasked(step.Answers[idx].Send, step.Answers[idx].Secret); err != nil {
				return transportError(step.Name, err)
			}
			continue
		case idx == authIdx:
			return &SessionError{Kind: KindAuth, Step: step.Name, Human: "Authentication failed", Err: fmt.Errorf("%w: %q", ErrAuthRejected, strings.TrimSpace(out))}
		}

		if step.Send != "" {
			if err := s.sendMasked(step.Send, step.Secret); err != nil {
				return transportError(step.Name, err)
			}
		}
		return nil
	}
	return waitError(step.Name, "", fmt.Errorf("too many intermediate prompts"))
}

// Send writes raw bytes.
func (s *Session) Send(raw string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.usable(); err != nil {
		return err
	}
	if err := s.send(raw); err != nil {
		s.closeLocked()
		return transportError("send", err)
	}
	return nil
}

// SendLine writes line followed by the configured newline.
func (s *Session) SendLine(line string) error {
	return s.Send(line + s.cfg.Newline)
}

// WaitFor blocks until re matches the incoming stream. A timeout is
// returned as a KindTimeout error and leaves the session usable.
func (s *Session) WaitFor(re *regexp.Regexp, timeout time.Duration) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.usable(); err != nil {
		return "", err
	}
	if timeout == 0 {
		timeout = s.cfg.WaitTimeout
	}

	out, _, err := s.exp.Expect(re, timeout)
	if err != nil {
		if isTimeout(err) {
			return out, waitError(re.String(), out, err)
		}
		s.closeLocked()
		return out, transportError(re.String(), err)
	}
	return out, nil
}

// Command writes a line and waits for prompt, failing on timeout.
func (s *Session) Command(line string, prompt *regexp.Regexp, timeout time.Duration) (string, error) {
	if err := s.SendLine(line); err != nil {
		return "", err
	}
	return s.WaitFor(prompt, timeout)
}

// Execute writes command and collects its output until terminator
// matches. Pagination banners are removed and answered. When the device
// goes quiet for ReadTimeout the output gathered so far is returned as
// complete.
func (s *Session) Execute(command string, terminator *regexp.Regexp) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.usable(); err != nil {
		return "", err
	}
	if terminator == nil {
		terminator = DefaultPromptPattern
	}

	if err := s.send(command + s.cfg.Newline); err != nil {
		s.closeLocked()
		return "", transportError(command, err)
	}
	if s.cfg.CommandDelay > 0 {
		time.Sleep(s.cfg.CommandDelay)
	}

	cases := []expect.Caser{
		&expect.Case{R: s.cfg.Pager, T: expect.OK()},
		&expect.Case{R: terminator, T: expect.OK()},
	}

	var output strings.Builder
	for pages := 0; pages < maxPages; pages++ {
		chunk, _, idx, err := s.exp.ExpectSwitchCase(cases, s.cfg.ReadTimeout)
		if err != nil {
			if isTimeout(err) {
				output.WriteString(chunk)
				s.log.Debug().Str("command", command).Int("pages", pages).
					Msg("read timeout, treating output as complete")
				return output.String(), nil
			}
			s.closeLocked()
			return output.String(), transportError(command, err)
		}

		if idx == 0 {
			output.WriteString(s.cfg.Pager.ReplaceAllString(chunk, ""))
			if err := s.send(s.cfg.PagerReply); err != nil {
				s.closeLocked()
				return output.String(), transportError(command, err)
			}
			continue
		}

		output.WriteString(chunk)
		return output.String(), nil
	}
	return output.String(), fmt.Errorf("command %q: more than %d pages", command, maxPages)
}

// Disconnect writes the logout command if the session is still usable and
// always releases the transport.
func (s *Session) Disconnect() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	if s.exp != nil && s.cfg.Logout != "" {
		if err := s.send(s.cfg.Logout + s.cfg.Newline); err != nil {
			s.log.Debug().Err(err).Msg("logout failed")
		}
	}
	return s.closeLocked()
}

// Closed reports whether the session has been torn down.
func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *Session) usable() error {
	if s.closed {
		return &SessionError{Kind: KindClosed, Human: "Session closed", Err: ErrSessionClosed}
	}
	if s.exp == nil {
		return &SessionError{Kind: KindClosed, Human: "Session not connected", Err: ErrSessionClosed}
	}
	return nil
}

func (s *Session) send(raw string) error {
	return s.sendMasked(raw, false)
}

func (s *Session) sendMasked(raw string, secret bool) error {
	if secret {
		s.log.Debug().Str("data", redacted).Int("bytes", len(raw)).Msg("send")
	} else {
		s.log.Debug().Str("data", strconv.Quote(raw)).Msg("send")
	}
	return s.exp.Send(raw)
}

func (s *Session) closeLocked() error {
	if s.closed {
		return nil
	}
	s.closed = true
	if s.stop != nil {
		s.stop()
	}
	if s.exp == nil {
		return nil
	}
	s.log.Debug().Msg("transport closed")
	return s.exp.Close()
}

func isTimeout(err error) bool {
	var te expect.TimeoutError
	return errors.As(err, &te)
}

// wireLog records received bytes at debug level with control characters escaped.
type wireLog struct {
	log logger.Logger
}

func (w *wireLog) Write(p []byte) (int, error) {
	w.log.Debug().Str("data", strconv.Quote(string(p))).Msg("recv")
	return len(p), nil
}

func (w *wireLog) Close() error {
	return nil
}
