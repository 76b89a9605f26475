package snmp

import (
	"context"
	"fmt"
	"time"

	"github.com/gosnmp/gosnmp"

	"github.com/nanoncore/nano-onusync/types"
)

// Defaults for agent conversations
const (
	DefaultTimeout = 10 * time.Second
	DefaultRetries = 3
)

// WalkFunc receives every PDU under the walked subtree
type WalkFunc func(pdu gosnmp.SnmpPDU) error

// Walker performs subtree walks against one agent
type Walker interface {
	Walk(ctx context.Context, rootOID string, fn WalkFunc) error
}

// Options tunes a Client
type Options struct {
	Timeout time.Duration
	Retries int
}

// Client is a Walker backed by gosnmp. Each walk opens its own socket, so
// one Client may be shared by concurrent walks.
type Client struct {
	target    string
	port      uint16
	community string
	version   gosnmp.SnmpVersion
	username  string
	password  string
	timeout   time.Duration
	retries   int
}

// NewClient creates a client for endpoint
func NewClient(endpoint *types.DeviceEndpoint, opts Options) (*Client, error) {
	if endpoint == nil {
		return nil, fmt.Errorf("endpoint is required")
	}
	if endpoint.Address == "" {
		return nil, fmt.Errorf("address is required")
	}

	// Get SNMP version from metadata (default v2c)
	version := gosnmp.Version2c
	if v, ok := endpoint.Metadata["snmp_version"]; ok {
		switch v {
		case "1":
			version = gosnmp.Version1
		case "2c":
			version = gosnmp.Version2c
		case "3":
			version = gosnmp.Version3
		}
	}

	community := endpoint.Community
	if community == "" {
		community = types.DefaultCommunity
	}

	port := endpoint.PortFor(types.ProtocolSNMP)
	if port <= 0 || port > 65535 {
		port = types.DefaultSNMPPort
	}

	if opts.Timeout == 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Retries == 0 {
		opts.Retries = DefaultRetries
	}

	return &Client{
		target:    endpoint.Address,
		port:      uint16(port), //nolint:gosec // validated above
		community: community,
		version:   version,
		username:  endpoint.Username,
		password:  endpoint.Password,
		timeout:   opts.Timeout,
		retries:   opts.Retries,
	}, nil
}

func (c *Client) session(ctx context.Context) *gosnmp.GoSNMP {
	g := &gosnmp.GoSNMP{
		Target:    c.target,
		Port:      c.port,
		Community: c.community,
		Version:   c.version,
		Timeout:   c.timeout,
		Retries:   c.retries,
		Context:   ctx,
	}

	// For SNMPv3, set security parameters
	if c.version == gosnmp.Version3 {
		g.SecurityModel = gosnmp.UserSecurityModel
		g.SecurityParameters = &gosnmp.UsmSecurityParameters{
			UserName:                 c.username,
			AuthenticationProtocol:   gosnmp.SHA,
			AuthenticationPassphrase: c.password,
			PrivacyProtocol:          gosnmp.AES,
			PrivacyPassphrase:        c.password,
		}
		g.MsgFlags = gosnmp.AuthPriv
	}
	return g
}

// Walk walks rootOID, using GETBULK where the version allows it.
func (c *Client) Walk(ctx context.Context, rootOID string, fn WalkFunc) error {
	g := c.session(ctx)
	if err := g.Connect(); err != nil {
		return fmt.Errorf("failed to connect SNMP: %w", err)
	}
	defer g.Conn.Close()

	var err error
	if c.version == gosnmp.Version1 {
		err = g.Walk(rootOID, gosnmp.WalkFunc(fn))
	} else {
		err = g.BulkWalk(rootOID, gosnmp.WalkFunc(fn))
	}
	if err != nil {
		return fmt.Errorf("SNMP WALK %s failed: %w", rootOID, err)
	}
	return nil
}

var _ Walker = (*Client)(nil)
