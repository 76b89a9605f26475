package onusync

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/nanoncore/nano-onusync/drivers/mock"
	"github.com/nanoncore/nano-onusync/vendors/adapter"
	"github.com/nanoncore/nano-onusync/vendors/hioso"
	"github.com/nanoncore/nano-onusync/vendors/hsgq"
	"github.com/nanoncore/nano-onusync/vendors/vsol"
)

// ErrNoAdapter is returned when no adapter is registered for a
// (vendor, model, method) combination.
var ErrNoAdapter = errors.New("no adapter for vendor/model/method")

// VendorCapabilities defines what methods and models a vendor supports
type VendorCapabilities struct {
	Models  []Model
	Methods []Method

	// InteractiveByModel is the shell transport per model
	InteractiveByModel map[Model]Protocol
}

// CapabilityMatrix defines what each vendor supports
var CapabilityMatrix = map[Vendor]VendorCapabilities{
	VendorHioso: {
		Models:  []Model{ModelAny},
		Methods: []Method{MethodInteractive, MethodSNMP},
		InteractiveByModel: map[Model]Protocol{
			ModelAny: ProtocolTelnet,
		},
	},
	VendorHSGQ: {
		Models:  []Model{ModelGPON, ModelEPON},
		Methods: []Method{MethodInteractive, MethodSNMP},
		InteractiveByModel: map[Model]Protocol{
			ModelGPON: ProtocolSSH,
			ModelEPON: ProtocolSSH,
		},
	},
	VendorVSOL: {
		Models:  []Model{ModelGPON},
		Methods: []Method{MethodInteractive, MethodSNMP},
		InteractiveByModel: map[Model]Protocol{
			ModelGPON: ProtocolSSH,
		},
	},
	VendorMock: {
		Models:  []Model{ModelAny},
		Methods: []Method{MethodInteractive, MethodSNMP},
	},
}

type dispatchKey struct {
	vendor Vendor
	model  Model
	method Method
}

type constructor func(opts adapter.Options) Fetcher

// dispatch maps (vendor, model, method) to an adapter. ModelAny entries
// match every model of the vendor.
var dispatch = map[dispatchKey]constructor{
	{VendorHioso, ModelAny, MethodInteractive}: func(o adapter.Options) Fetcher { return hioso.NewTelnetAdapter(o) },
	{VendorHioso, ModelAny, MethodSNMP}:        func(o adapter.Options) Fetcher { return hioso.NewSNMPAdapter(o) },
	{VendorHSGQ, ModelGPON, MethodInteractive}: func(o adapter.Options) Fetcher { return hsgq.NewGPONAdapter(o) },
	{VendorHSGQ, ModelEPON, MethodInteractive}: func(o adapter.Options) Fetcher { return hsgq.NewEPONAdapter(o) },
	{VendorHSGQ, ModelGPON, MethodSNMP}:        func(o adapter.Options) Fetcher { return hsgq.NewGPONSNMPAdapter(o) },
	{VendorHSGQ, ModelEPON, MethodSNMP}:        func(o adapter.Options) Fetcher { return hsgq.NewEPONSNMPAdapter(o) },
	{VendorVSOL, ModelAny, MethodInteractive}:  func(o adapter.Options) Fetcher { return vsol.NewGPONAdapter(o) },
	{VendorVSOL, ModelAny, MethodSNMP}:         func(o adapter.Options) Fetcher { return vsol.NewSNMPAdapter(o) },
	{VendorMock, ModelAny, MethodInteractive}:  func(adapter.Options) Fetcher { return mock.NewFetcher(MethodInteractive) },
	{VendorMock, ModelAny, MethodSNMP}:         func(adapter.Options) Fetcher { return mock.NewFetcher(MethodSNMP) },
}

// NewFetcher creates the adapter for a vendor, model and sync method.
func NewFetcher(vendor Vendor, model Model, method Method, opts adapter.Options) (Fetcher, error) {
	vendor = Vendor(strings.ToLower(string(vendor)))
	model = Model(strings.ToLower(string(model)))

	if _, ok := CapabilityMatrix[vendor]; !ok {
		return nil, fmt.Errorf("%w: unsupported vendor %q", ErrNoAdapter, vendor)
	}

	build, ok := dispatch[dispatchKey{vendor, model, method}]
	if !ok {
		build, ok = dispatch[dispatchKey{vendor, ModelAny, method}]
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s/%s/%s", ErrNoAdapter, vendor, modelName(model), method)
	}
	return build(opts), nil
}

func modelName(m Model) string {
	if m == ModelAny {
		return "any"
	}
	return string(m)
}

// Factory resolves device endpoints into adapters sharing one set of options.
type Factory struct {
	Options adapter.Options
}

// NewFactory creates a factory with base adapter options.
func NewFactory(opts adapter.Options) *Factory {
	return &Factory{Options: opts}
}

// Resolve creates the adapter for an endpoint and method, handing it the
// OID catalog loaded for the endpoint's vendor and model.
func (f *Factory) Resolve(endpoint *DeviceEndpoint, method Method, catalog OIDTable) (Fetcher, error) {
	if endpoint == nil {
		return nil, fmt.Errorf("endpoint is required")
	}
	opts := f.Options
	opts.Catalog = catalog
	return NewFetcher(endpoint.Vendor, endpoint.Model, method, opts)
}

// GetSupportedVendors returns a sorted list of all supported vendors
func GetSupportedVendors() []Vendor {
	vendors := make([]Vendor, 0, len(CapabilityMatrix))
	for v := range CapabilityMatrix {
		vendors = append(vendors, v)
	}
	sort.Slice(vendors, func(i, j int) bool { return vendors[i] < vendors[j] })
	return vendors
}

// GetVendorCapabilities returns the capabilities for a vendor
func GetVendorCapabilities(vendor Vendor) (VendorCapabilities, bool) {
	caps, ok := CapabilityMatrix[vendor]
	return caps, ok
}
