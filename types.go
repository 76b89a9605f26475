package onusync

// Re-export types from the types sub-package so callers can stay on the
// root package for dispatch.

import (
	"github.com/nanoncore/nano-onusync/types"
)

// Type aliases
type (
	Protocol       = types.Protocol
	Vendor         = types.Vendor
	Model          = types.Model
	Method         = types.Method
	DeviceEndpoint = types.DeviceEndpoint
	ONURecord      = types.ONURecord
	OIDTable       = types.OIDTable
	Fetcher        = types.Fetcher
)

// Re-export constants
const (
	ProtocolTelnet = types.ProtocolTelnet
	ProtocolSSH    = types.ProtocolSSH
	ProtocolSNMP   = types.ProtocolSNMP

	VendorHioso = types.VendorHioso
	VendorHSGQ  = types.VendorHSGQ
	VendorVSOL  = types.VendorVSOL
	VendorMock  = types.VendorMock

	ModelAny  = types.ModelAny
	ModelGPON = types.ModelGPON
	ModelEPON = types.ModelEPON

	MethodInteractive = types.MethodInteractive
	MethodSNMP        = types.MethodSNMP
)
