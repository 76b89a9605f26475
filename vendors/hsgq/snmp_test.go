package hsgq

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nanoncore/nano-onusync/drivers/mock"
	"github.com/nanoncore/nano-onusync/drivers/snmp"
	"github.com/nanoncore/nano-onusync/types"
	"github.com/nanoncore/nano-onusync/vendors/adapter"
)

func walkerOptions(w *mock.Walker, table types.OIDTable) adapter.Options {
	return adapter.Options{
		Catalog: table,
		Walker: func(*types.DeviceEndpoint) (snmp.Walker, error) {
			return w, nil
		},
	}
}

const (
	snOID    = "1.3.6.1.4.1.50224.3.12.2.1.4"
	rxOIDG   = "1.3.6.1.4.1.50224.3.12.3.1.5"
	eponBase = "1.3.6.1.4.1.50224.3.3"
)

func TestGPONSNMPFetch(t *testing.T) {
	w := mock.NewWalker(
		mock.StringPDU(snOID+".1", "HWTC1A2B3C4D"),
		mock.StringPDU(snOID+".2", "zteg00001111"),
		mock.StringPDU(rxOIDG+".1", "-2155"),
		mock.StringPDU(rxOIDG+".3", "-2010"),
	)
	table := types.OIDTable{Entries: []types.OIDEntry{
		{Field: types.FieldSerialNumber, OID: snOID},
		{Field: types.FieldRxPower, OID: rxOIDG},
	}}
	a := NewGPONSNMPAdapter(walkerOptions(w, table))

	recs, err := a.Fetch(context.Background(), testEndpoint(types.ModelGPON))
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "HWTC1A2B3C4D", recs[0].Identifier)
	assert.Equal(t, "ZTEG00001111", recs[1].Identifier)
	rx, _ := recs[0].SNMPDetails.Get(types.FieldRxPower)
	assert.Equal(t, "-2155", rx)
}

func TestGPONSNMPFetchRequiresCatalog(t *testing.T) {
	a := NewGPONSNMPAdapter(walkerOptions(mock.NewWalker(), types.OIDTable{}))
	_, err := a.Fetch(context.Background(), testEndpoint(types.ModelGPON))
	assert.ErrorIs(t, err, adapter.ErrNoOIDCatalog)
}

func TestEPONSNMPFetchDefaultTable(t *testing.T) {
	w := mock.NewWalker(
		mock.StringPDU(eponBase+".2.1.2.1", "onu-1"),
		mock.OctetPDU(eponBase+".2.1.7.1", []byte{0xe0, 0x67, 0xb3, 0x01, 0x02, 0x03}),
		mock.IntegerPDU(eponBase+".2.1.8.1", 1),
		mock.IntegerPDU(eponBase+".2.1.15.1", 1250),
		mock.IntegerPDU(eponBase+".3.1.4.1", 231),
		mock.IntegerPDU(eponBase+".3.1.5.1", -1234),

		mock.StringPDU(eponBase+".2.1.7.2", "0xe067b3010204"),
		mock.IntegerPDU(eponBase+".2.1.8.2", 5),

		mock.StringPDU(eponBase+".2.1.7.3", "e0:67:b3"),
	)
	a := NewEPONSNMPAdapter(walkerOptions(w, types.OIDTable{}))

	recs, err := a.Fetch(context.Background(), testEndpoint(types.ModelEPON))
	require.NoError(t, err)
	require.Len(t, recs, 2, "index with a short MAC is skipped")
	assert.Len(t, w.Walked(), len(DefaultEPONTable.Entries))

	first := recs[0]
	assert.Equal(t, "e0:67:b3:01:02:03", first.Identifier)
	assert.Equal(t, "N/A", first.Interface)
	assert.Equal(t, EPONSNMPTag, first.VendorTag)

	want := map[types.Field]string{
		types.FieldONUIndex:   "1",
		types.FieldName:       "onu-1",
		types.FieldStatus:     "Online",
		types.FieldDistance:   "1250 m",
		types.FieldTxPower:    "2.31 dBm",
		types.FieldRxPower:    "-12.34 dBm",
		types.FieldMACAddress: "e0:67:b3:01:02:03",
	}
	for f, v := range want {
		got, _ := first.SNMPDetails.Get(f)
		assert.Equal(t, v, got, "field %s", f)
	}

	second := recs[1]
	assert.Equal(t, "e0:67:b3:01:02:04", second.Identifier)
	for f, v := range map[types.Field]string{
		types.FieldName:     "N/A",
		types.FieldStatus:   "Unknown",
		types.FieldDistance: "N/A",
		types.FieldTxPower:  "N/A",
		types.FieldRxPower:  "N/A",
	} {
		got, _ := second.SNMPDetails.Get(f)
		assert.Equal(t, v, got, "field %s", f)
	}
}

func TestEPONSNMPFetchUsesCatalog(t *testing.T) {
	macOID := "1.3.6.1.4.1.50224.9.9.1"
	w := mock.NewWalker(mock.StringPDU(macOID+".4", "E0-67-B3-01-02-05"))
	table := types.OIDTable{Entries: []types.OIDEntry{{Field: types.FieldMACAddress, OID: macOID}}}
	a := NewEPONSNMPAdapter(walkerOptions(w, table))

	recs, err := a.Fetch(context.Background(), testEndpoint(types.ModelEPON))
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "e0:67:b3:01:02:05", recs[0].Identifier)
	assert.Equal(t, []string{macOID}, w.Walked())
}
