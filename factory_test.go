package onusync

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nanoncore/nano-onusync/drivers/mock"
	"github.com/nanoncore/nano-onusync/types"
	"github.com/nanoncore/nano-onusync/vendors/adapter"
	"github.com/nanoncore/nano-onusync/vendors/hioso"
	"github.com/nanoncore/nano-onusync/vendors/hsgq"
	"github.com/nanoncore/nano-onusync/vendors/vsol"
)

func TestNewFetcherDispatch(t *testing.T) {
	tests := []struct {
		vendor Vendor
		model  Model
		method Method
		want   interface{}
	}{
		{VendorHioso, ModelAny, MethodInteractive, &hioso.TelnetAdapter{}},
		{VendorHioso, ModelEPON, MethodInteractive, &hioso.TelnetAdapter{}},
		{VendorHioso, ModelAny, MethodSNMP, &hioso.SNMPAdapter{}},
		{VendorHSGQ, ModelGPON, MethodInteractive, &hsgq.GPONAdapter{}},
		{VendorHSGQ, ModelEPON, MethodInteractive, &hsgq.EPONAdapter{}},
		{VendorHSGQ, ModelGPON, MethodSNMP, &hsgq.GPONSNMPAdapter{}},
		{VendorHSGQ, ModelEPON, MethodSNMP, &hsgq.EPONSNMPAdapter{}},
		{"HSGQ", "GPON", MethodSNMP, &hsgq.GPONSNMPAdapter{}},
		{VendorVSOL, ModelGPON, MethodInteractive, &vsol.GPONAdapter{}},
		{VendorVSOL, ModelAny, MethodSNMP, &vsol.SNMPAdapter{}},
		{VendorMock, ModelAny, MethodSNMP, &mock.Fetcher{}},
	}

	for _, tt := range tests {
		t.Run(string(tt.vendor)+"/"+modelName(tt.model)+"/"+string(tt.method), func(t *testing.T) {
			f, err := NewFetcher(tt.vendor, tt.model, tt.method, adapter.Options{})
			require.NoError(t, err)
			assert.IsType(t, tt.want, f)
		})
	}
}

func TestNewFetcherUnsupported(t *testing.T) {
	tests := []struct {
		name   string
		vendor Vendor
		model  Model
		method Method
	}{
		{"unknown vendor", "acme", ModelAny, MethodSNMP},
		{"hsgq needs a model", VendorHSGQ, ModelAny, MethodInteractive},
		{"unknown method", VendorHioso, ModelAny, "netconf"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewFetcher(tt.vendor, tt.model, tt.method, adapter.Options{})
			assert.True(t, errors.Is(err, ErrNoAdapter), "got %v", err)
		})
	}
}

func TestFactoryResolve(t *testing.T) {
	f := NewFactory(adapter.Options{})

	ep := &DeviceEndpoint{ID: 3, Name: "demo", Vendor: VendorMock, Address: "127.0.0.1"}
	fetcher, err := f.Resolve(ep, MethodSNMP, OIDTable{})
	require.NoError(t, err)

	records, err := fetcher.Fetch(context.Background(), ep)
	require.NoError(t, err)
	assert.Len(t, records, mock.DefaultONUCount)
	for _, rec := range records {
		assert.Zero(t, rec.Details.Len())
		assert.Positive(t, rec.SNMPDetails.Len())
	}

	_, err = f.Resolve(nil, MethodSNMP, OIDTable{})
	assert.Error(t, err)
}

func TestFactoryResolvePassesCatalog(t *testing.T) {
	f := NewFactory(adapter.Options{})
	ep := &DeviceEndpoint{ID: 1, Name: "olt", Vendor: VendorHioso, Address: "192.0.2.1"}

	fetcher, err := f.Resolve(ep, MethodSNMP, OIDTable{})
	require.NoError(t, err)
	_, err = fetcher.Fetch(context.Background(), ep)
	assert.ErrorIs(t, err, adapter.ErrNoOIDCatalog)

	assert.True(t, f.Options.Catalog.Empty(), "base options are not mutated")
}

func TestCapabilities(t *testing.T) {
	assert.Equal(t, []Vendor{VendorHioso, VendorHSGQ, VendorMock, VendorVSOL}, GetSupportedVendors())

	caps, ok := GetVendorCapabilities(VendorHSGQ)
	require.True(t, ok)
	assert.Equal(t, ProtocolSSH, caps.InteractiveByModel[types.ModelEPON])
	assert.Contains(t, caps.Methods, MethodSNMP)

	_, ok = GetVendorCapabilities("acme")
	assert.False(t, ok)
}
