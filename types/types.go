package types

import (
	"context"
	"time"
)

// Protocol represents the southbound protocol used to reach an OLT
type Protocol string

const (
	ProtocolTelnet Protocol = "telnet"
	ProtocolSSH    Protocol = "ssh"
	ProtocolSNMP   Protocol = "snmp"
)

// Vendor represents the OLT vendor
type Vendor string

const (
	VendorHioso Vendor = "hioso"
	VendorHSGQ  Vendor = "hsgq"
	VendorVSOL  Vendor = "vsol"
	VendorMock  Vendor = "mock" // For testing/simulation
)

// Model is the OLT variant (PON technology) within a vendor
type Model string

const (
	ModelAny  Model = ""
	ModelGPON Model = "gpon"
	ModelEPON Model = "epon"
)

// Method selects which kind of sync an adapter performs
type Method string

const (
	// MethodInteractive drives the device shell over Telnet or SSH
	MethodInteractive Method = "interactive"

	// MethodSNMP walks the device SNMP agent
	MethodSNMP Method = "snmp"
)

// Reachability is the last known probe result for a device
type Reachability string

const (
	ReachabilityUnknown Reachability = ""
	ReachabilityOnline  Reachability = "online"
	ReachabilityOffline Reachability = "offline"
)

// DeviceEndpoint describes one OLT as handed out by the device registry.
// It is treated as immutable for the duration of a sync attempt.
type DeviceEndpoint struct {
	// ID is the registry key
	ID int64

	// Name is a human readable label
	Name string

	Vendor Vendor
	Model  Model

	// Address is the management IP/hostname
	Address string

	TelnetPort int
	SSHPort    int
	SNMPPort   int

	// Username and Password are used for shell login and privilege escalation
	Username string
	Password string

	// Community is the SNMP v2c community string
	Community string

	// ReadTimeout bounds a single read while collecting command output
	ReadTimeout time.Duration

	// CommandDelay is waited after writing a command before reading output
	CommandDelay time.Duration

	Reachability Reachability
	LastChecked  time.Time

	// Metadata contains vendor-specific configuration
	Metadata map[string]string
}

// Default management ports
const (
	DefaultTelnetPort = 23
	DefaultSSHPort    = 22
	DefaultSNMPPort   = 161
	DefaultCommunity  = "public"
)

// PortFor returns the configured port for a protocol, or its default.
func (e *DeviceEndpoint) PortFor(p Protocol) int {
	switch p {
	case ProtocolTelnet:
		if e.TelnetPort > 0 {
			return e.TelnetPort
		}
		return DefaultTelnetPort
	case ProtocolSSH:
		if e.SSHPort > 0 {
			return e.SSHPort
		}
		return DefaultSSHPort
	case ProtocolSNMP:
		if e.SNMPPort > 0 {
			return e.SNMPPort
		}
		return DefaultSNMPPort
	}
	return 0
}

// ONURecord is the canonical record for one ONU reported by an OLT.
// Identity within a device is the normalized Identifier.
type ONURecord struct {
	// Identifier is a normalized MAC (lower-case, colon separated) or serial number
	Identifier string

	// Interface locates the ONU on the OLT (e.g. "1/1:3")
	Interface string

	// VendorTag names the adapter family that produced the record
	VendorTag string

	// Details holds every column the adapter observed
	Details Details

	// SNMPDetails is only populated by SNMP sync
	SNMPDetails Details

	LastSeen time.Time
}

// Fetcher is the uniform adapter capability: query one device and return
// the canonical records it reports.
type Fetcher interface {
	Fetch(ctx context.Context, endpoint *DeviceEndpoint) ([]ONURecord, error)
}

// FetcherFunc adapts a function to the Fetcher interface
type FetcherFunc func(ctx context.Context, endpoint *DeviceEndpoint) ([]ONURecord, error)

// Fetch calls f(ctx, endpoint)
func (f FetcherFunc) Fetch(ctx context.Context, endpoint *DeviceEndpoint) ([]ONURecord, error) {
	return f(ctx, endpoint)
}
