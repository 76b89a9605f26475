package cli

import (
	"context"
	"fmt"
	"net"
	"slices"
	"strconv"
	"sync"
	"time"

	expect "github.com/google/goexpect"
	"github.com/ziutek/telnet"
	"golang.org/x/crypto/ssh"
)

// DefaultDialTimeout bounds TCP connect and SSH handshake.
const DefaultDialTimeout = 10 * time.Second

// Transport opens the byte stream a Session drives.
type Transport interface {
	Spawn(ctx context.Context, timeout time.Duration, opts ...expect.Option) (expect.Expecter, error)
	String() string
}

// StreamTransport spawns an expecter over any net.Conn.
type StreamTransport struct {
	Name string

	// Dial opens the connection
	Dial func(ctx context.Context) (net.Conn, error)

	// Wrap optionally decorates the connection (e.g. telnet negotiation)
	Wrap func(net.Conn) (net.Conn, error)
}

func (t *StreamTransport) String() string {
	return t.Name
}

// Spawn dials and attaches an expecter to the connection.
func (t *StreamTransport) Spawn(ctx context.Context, timeout time.Duration, opts ...expect.Option) (expect.Expecter, error) {
	conn, err := t.Dial(ctx)
	if err != nil {
		return nil, err
	}
	if t.Wrap != nil {
		wrapped, err := t.Wrap(conn)
		if err != nil {
			conn.Close()
			return nil, err
		}
		conn = wrapped
	}
	return spawnConn(conn, timeout, opts...)
}

// spawnConn attaches a goexpect session to conn. Closing the expecter
// closes the connection.
func spawnConn(conn net.Conn, timeout time.Duration, opts ...expect.Option) (expect.Expecter, error) {
	done := make(chan struct{})
	var once sync.Once
	var closeErr error
	closeFn := func() error {
		once.Do(func() {
			closeErr = conn.Close()
			close(done)
		})
		return closeErr
	}

	exp, _, err := expect.SpawnGeneric(&expect.GenOptions{
		In:  conn,
		Out: conn,
		Wait: func() error {
			<-done
			return nil
		},
		Close: closeFn,
		Check: func() bool {
			select {
			case <-done:
				return false
			default:
				return true
			}
		},
	}, timeout, opts...)
	if err != nil {
		_ = closeFn()
		return nil, fmt.Errorf("failed to spawn expect session: %w", err)
	}
	return exp, nil
}

// NewTelnetTransport dials host:port over TCP and speaks minimal telnet.
func NewTelnetTransport(host string, port int, dialTimeout time.Duration) *StreamTransport {
	if dialTimeout == 0 {
		dialTimeout = DefaultDialTimeout
	}
	addr := net.JoinHostPort(host, strconv.Itoa(port))
	return &StreamTransport{
		Name: "telnet://" + addr,
		Dial: func(ctx context.Context) (net.Conn, error) {
			d := net.Dialer{Timeout: dialTimeout}
			return d.DialContext(ctx, "tcp", addr)
		},
		Wrap: wrapTelnet,
	}
}

// wrapTelnet answers option negotiation: echo and suppress-go-ahead are
// accepted, every other option is refused.
func wrapTelnet(c net.Conn) (net.Conn, error) {
	tc, err := telnet.NewConn(c)
	if err != nil {
		return nil, fmt.Errorf("telnet: %w", err)
	}
	return tc, nil
}

// SSHTransport opens an interactive shell over SSH.
type SSHTransport struct {
	Host     string
	Port     int
	Username string
	Password string

	DialTimeout time.Duration

	// Legacy enables the insecure key exchanges, ciphers and host key
	// types older OLT firmware still requires (diffie-hellman-group1-sha1,
	// aes128-cbc, 3des-cbc, ssh-rsa, ssh-dss).
	Legacy bool
}

func (t *SSHTransport) String() string {
	return "ssh://" + net.JoinHostPort(t.Host, strconv.Itoa(t.Port))
}

var (
	legacyOnce   sync.Once
	legacyConfig ssh.Config
	legacyHosts  []string
)

func legacyAlgorithms() (ssh.Config, []string) {
	legacyOnce.Do(func() {
		supported := ssh.SupportedAlgorithms()
		insecure := ssh.InsecureAlgorithms()
		legacyConfig = ssh.Config{
			KeyExchanges: slices.Concat(supported.KeyExchanges, insecure.KeyExchanges),
			Ciphers:      slices.Concat(supported.Ciphers, insecure.Ciphers),
			MACs:         slices.Concat(supported.MACs, insecure.MACs),
		}
		legacyHosts = slices.Concat(supported.HostKeys, insecure.HostKeys)
	})
	return legacyConfig, legacyHosts
}

// clientConfig builds the SSH client configuration. Some OLTs only offer
// keyboard-interactive, so both password methods are tried.
func (t *SSHTransport) clientConfig() *ssh.ClientConfig {
	keyboardInteractive := ssh.KeyboardInteractive(func(user, instruction string, questions []string, echos []bool) ([]string, error) {
		answers := make([]string, len(questions))
		for i := range questions {
			answers[i] = t.Password
		}
		return answers, nil
	})

	cfg := &ssh.ClientConfig{
		User: t.Username,
		Auth: []ssh.AuthMethod{
			ssh.Password(t.Password),
			keyboardInteractive,
		},
		Timeout:         t.DialTimeout,
		HostKeyCallback: ssh.InsecureIgnoreHostKey(), //nolint:gosec // OLT host keys are not provisioned
	}
	if t.Legacy {
		cfg.Config, cfg.HostKeyAlgorithms = legacyAlgorithms()
	}
	return cfg
}

// Spawn connects, authenticates and starts a shell.
func (t *SSHTransport) Spawn(ctx context.Context, timeout time.Duration, opts ...expect.Option) (expect.Expecter, error) {
	dialTimeout := t.DialTimeout
	if dialTimeout == 0 {
		dialTimeout = DefaultDialTimeout
	}
	addr := net.JoinHostPort(t.Host, strconv.Itoa(t.Port))

	d := net.Dialer{Timeout: dialTimeout}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to dial SSH: %w", err)
	}

	deadline := time.Now().Add(dialTimeout)
	if dl, ok := ctx.Deadline(); ok && dl.Before(deadline) {
		deadline = dl
	}
	_ = conn.SetDeadline(deadline)

	c, chans, reqs, err := ssh.NewClientConn(conn, addr, t.clientConfig())
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("ssh handshake: %w", err)
	}
	_ = conn.SetDeadline(time.Time{})

	client := ssh.NewClient(c, chans, reqs)
	exp, _, err := expect.SpawnSSH(client, timeout, opts...)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to spawn SSH expect session: %w", err)
	}
	return &sshExpecter{Expecter: exp, client: client}, nil
}

// sshExpecter also tears down the client when the shell closes.
type sshExpecter struct {
	expect.Expecter
	client *ssh.Client
}

func (e *sshExpecter) Close() error {
	err := e.Expecter.Close()
	if cerr := e.client.Close(); err == nil {
		err = cerr
	}
	return err
}
