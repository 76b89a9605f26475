package hsgq

import (
	"context"
	"strings"
	"time"

	"github.com/nanoncore/nano-onusync/drivers/snmp"
	"github.com/nanoncore/nano-onusync/logger"
	"github.com/nanoncore/nano-onusync/types"
	"github.com/nanoncore/nano-onusync/vendors/adapter"
	"github.com/nanoncore/nano-onusync/vendors/common"
)

// DefaultEPONTable is walked when the catalog has no HSGQ EPON entries.
var DefaultEPONTable = types.OIDTable{
	Entries: []types.OIDEntry{
		{Field: types.FieldName, OID: "1.3.6.1.4.1.50224.3.3.2.1.2"},
		{Field: types.FieldTxPower, OID: "1.3.6.1.4.1.50224.3.3.3.1.4"},
		{Field: types.FieldRxPower, OID: "1.3.6.1.4.1.50224.3.3.3.1.5"},
		{Field: types.FieldStatus, OID: "1.3.6.1.4.1.50224.3.3.2.1.8"},
		{Field: types.FieldDistance, OID: "1.3.6.1.4.1.50224.3.3.2.1.15"},
		{Field: types.FieldMACAddress, OID: "1.3.6.1.4.1.50224.3.3.2.1.7"},
	},
	Identifier: types.FieldMACAddress,
}

// GPONSNMPAdapter walks the catalog OIDs of an HSGQ GPON agent in parallel.
type GPONSNMPAdapter struct {
	opts adapter.Options
	log  logger.Logger
}

// NewGPONSNMPAdapter creates the HSGQ GPON SNMP adapter
func NewGPONSNMPAdapter(opts adapter.Options) *GPONSNMPAdapter {
	return &GPONSNMPAdapter{opts: opts, log: opts.Log("hsgq-gpon-snmp")}
}

// Fetch walks and correlates the catalog. The identifier column defaults
// to the ONT serial number.
func (a *GPONSNMPAdapter) Fetch(ctx context.Context, ep *types.DeviceEndpoint) ([]types.ONURecord, error) {
	table := a.opts.Catalog
	if table.Empty() {
		return nil, adapter.ErrNoOIDCatalog
	}
	walker, err := a.opts.WalkerFor(ep)
	if err != nil {
		return nil, err
	}

	identifier := table.IdentifierOr(types.FieldSerialNumber)
	c := &snmp.Correlator{
		Walker:      walker,
		Policy:      snmp.Concurrent,
		Parallelism: a.opts.Parallelism,
		Index:       snmp.TrailingIndex,
		Identifier:  identifier,
		Logger:      a.log,
	}
	rows, err := c.Collect(ctx, table)
	if err != nil {
		return nil, err
	}

	records := adapter.SNMPRecords(rows, identifier, VendorTag, a.log)
	a.log.Info().Str("device", ep.Name).Int("onus", len(records)).Msg("snmp poll complete")
	return records, nil
}

// EPONSNMPAdapter walks an HSGQ EPON agent one column at a time. Power
// readings arrive in hundredths of a dBm and status as an integer code.
type EPONSNMPAdapter struct {
	opts adapter.Options
	log  logger.Logger
}

// NewEPONSNMPAdapter creates the HSGQ EPON SNMP adapter
func NewEPONSNMPAdapter(opts adapter.Options) *EPONSNMPAdapter {
	return &EPONSNMPAdapter{opts: opts, log: opts.Log("hsgq-epon-snmp")}
}

func (a *EPONSNMPAdapter) table() types.OIDTable {
	if a.opts.Catalog.Empty() {
		a.log.Warn().Msg("no catalog entries for hsgq/epon, using built-in OIDs")
		return DefaultEPONTable
	}
	return a.opts.Catalog
}

// Fetch walks sequentially and converts raw readings into display values.
func (a *EPONSNMPAdapter) Fetch(ctx context.Context, ep *types.DeviceEndpoint) ([]types.ONURecord, error) {
	table := a.table()
	walker, err := a.opts.WalkerFor(ep)
	if err != nil {
		return nil, err
	}

	c := &snmp.Correlator{
		Walker:     walker,
		Policy:     snmp.Sequential,
		Index:      snmp.TrailingIndex,
		Identifier: types.FieldMACAddress,
		Logger:     a.log,
	}
	rows, err := c.Collect(ctx, table)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	records := make([]types.ONURecord, 0, len(rows))
	for _, row := range rows {
		raw, _ := row.Values.Get(types.FieldMACAddress)
		mac, err := common.NormalizeMAC(raw)
		if err != nil {
			a.log.Warn().Err(err).Str("index", row.Index).Msg("skipping index with invalid MAC")
			continue
		}
		records = append(records, types.ONURecord{
			Identifier:  mac,
			Interface:   notApplicable,
			VendorTag:   EPONSNMPTag,
			SNMPDetails: a.convert(row, mac),
			LastSeen:    now,
		})
	}

	a.log.Info().Str("device", ep.Name).Int("onus", len(records)).Msg("snmp poll complete")
	return records, nil
}

func (a *EPONSNMPAdapter) convert(row snmp.Row, mac string) types.Details {
	d := row.Values
	d.Set(types.FieldONUIndex, row.Index)
	d.Set(types.FieldMACAddress, mac)

	if v, ok := d.Get(types.FieldName); !ok || strings.TrimSpace(v) == "" {
		d.Set(types.FieldName, notApplicable)
	}
	for _, f := range []types.Field{types.FieldTxPower, types.FieldRxPower} {
		raw, ok := d.Get(f)
		if !ok {
			d.Set(f, notApplicable)
			continue
		}
		v, err := common.CentiUnit(raw, "dBm")
		if err != nil {
			a.log.Warn().Err(err).Str("index", row.Index).Str("field", string(f)).Msg("unparseable power level")
			v = notApplicable
		}
		d.Set(f, v)
	}
	status, _ := d.Get(types.FieldStatus)
	d.Set(types.FieldStatus, common.StatusText(status))

	if v, ok := d.Get(types.FieldDistance); ok && strings.TrimSpace(v) != "" {
		d.Set(types.FieldDistance, v+" m")
	} else {
		d.Set(types.FieldDistance, notApplicable)
	}
	return d
}
