package cli

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors, wrapped by SessionError.
var (
	ErrPromptNotObserved = errors.New("prompt not observed")
	ErrAuthRejected      = errors.New("authentication rejected")
	ErrSessionClosed     = errors.New("session closed")
)

// ErrorKind classifies session failures
type ErrorKind string

const (
	KindTransport ErrorKind = "transport"
	KindAuth      ErrorKind = "auth"
	KindTimeout   ErrorKind = "timeout"
	KindClosed    ErrorKind = "closed"
)

// SessionError is returned by every failing Session operation
type SessionError struct {
	Kind ErrorKind

	// Step names the login step or command that failed
	Step string

	// Human is a short operator-facing description
	Human string

	Err error
}

func (e *SessionError) Error() string {
	if e.Step == "" {
		return fmt.Sprintf("[%s] %s: %v", e.Kind, e.Human, e.Err)
	}
	return fmt.Sprintf("[%s] %s at %q: %v", e.Kind, e.Human, e.Step, e.Err)
}

func (e *SessionError) Unwrap() error {
	return e.Err
}

// KindOf returns the kind of a session error, or "" for foreign errors.
func KindOf(err error) ErrorKind {
	var se *SessionError
	if errors.As(err, &se) {
		return se.Kind
	}
	return ""
}

// IsFatal reports whether the session can no longer be used after err.
func IsFatal(err error) bool {
	switch KindOf(err) {
	case KindTransport, KindAuth, KindClosed:
		return true
	}
	return false
}

type failurePattern struct {
	Pattern string
	Kind    ErrorKind
	Human   string
}

// failurePatterns maps text seen on the wire or in transport errors to a
// failure kind. Checked in order, first match wins.
var failurePatterns = []failurePattern{
	{Pattern: "login incorrect", Kind: KindAuth, Human: "Authentication failed"},
	{Pattern: "authentication failed", Kind: KindAuth, Human: "Authentication failed"},
	{Pattern: "bad password", Kind: KindAuth, Human: "Authentication failed"},
	{Pattern: "password error", Kind: KindAuth, Human: "Authentication failed"},
	{Pattern: "access denied", Kind: KindAuth, Human: "Access denied"},
	{Pattern: "unable to authenticate", Kind: KindAuth, Human: "Authentication failed"},
	{Pattern: "connection refused", Kind: KindTransport, Human: "Connection to OLT refused"},
	{Pattern: "no route to host", Kind: KindTransport, Human: "OLT unreachable"},
	{Pattern: "i/o timeout", Kind: KindTransport, Human: "OLT unreachable"},
	{Pattern: "no such host", Kind: KindTransport, Human: "OLT address did not resolve"},
	{Pattern: "connection reset", Kind: KindTransport, Human: "Lost connection to OLT"},
	{Pattern: "broken pipe", Kind: KindTransport, Human: "Lost connection to OLT"},
	{Pattern: "process not running", Kind: KindTransport, Human: "Lost connection to OLT"},
}

// classify inspects text for a known failure signature.
func classify(text string) (failurePattern, bool) {
	lower := strings.ToLower(text)
	for _, p := range failurePatterns {
		if strings.Contains(lower, p.Pattern) {
			return p, true
		}
	}
	return failurePattern{}, false
}

// transportError wraps an I/O level failure.
func transportError(step string, err error) *SessionError {
	human := "Transport failure"
	if p, ok := classify(err.Error()); ok {
		human = p.Human
	}
	return &SessionError{Kind: KindTransport, Step: step, Human: human, Err: err}
}

// waitError builds the error for a wait that did not see its pattern.
// The buffered text decides between a rejected login and a plain timeout.
func waitError(step, buffered string, err error) *SessionError {
	if p, ok := classify(buffered); ok && p.Kind == KindAuth {
		return &SessionError{Kind: KindAuth, Step: step, Human: p.Human, Err: fmt.Errorf("%w: %v", ErrAuthRejected, err)}
	}
	return &SessionError{Kind: KindTimeout, Step: step, Human: "Prompt not observed", Err: fmt.Errorf("%w: %v", ErrPromptNotObserved, err)}
}
