package vsol

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/nanoncore/nano-onusync/drivers/snmp"
	"github.com/nanoncore/nano-onusync/logger"
	"github.com/nanoncore/nano-onusync/types"
	"github.com/nanoncore/nano-onusync/vendors/adapter"
	"github.com/nanoncore/nano-onusync/vendors/common"
)

// V-SOL enterprise 37950 ONU tables, indexed {pon_idx}.{onu_idx}
const (
	oidONUInfo    = "1.3.6.1.4.1.37950.1.1.6.1.1.2.1"
	oidONUOptical = "1.3.6.1.4.1.37950.1.1.6.1.1.3.1"
)

// DefaultTable is walked when the catalog has no V-SOL entries.
var DefaultTable = types.OIDTable{
	Entries: []types.OIDEntry{
		{Field: types.FieldAuthMode, OID: oidONUInfo + ".4"},
		{Field: types.FieldSerialNumber, OID: oidONUInfo + ".5"},
		{Field: types.FieldVersion, OID: oidONUInfo + ".9"},
		{Field: types.FieldStatus, OID: oidONUInfo + ".10"},
		{Field: types.FieldUptime, OID: oidONUInfo + ".12"},
		{Field: types.FieldTemperature, OID: oidONUOptical + ".3"},
		{Field: types.FieldVoltage, OID: oidONUOptical + ".4"},
		{Field: types.FieldBias, OID: oidONUOptical + ".5"},
		{Field: types.FieldTxPower, OID: oidONUOptical + ".6"},
		{Field: types.FieldRxPower, OID: oidONUOptical + ".7"},
		{Field: types.FieldDistance, OID: oidONUOptical + ".8"},
	},
	Identifier: types.FieldSerialNumber,
}

// optical readings and the divisor older integer firmware scales them by
var opticalUnits = []struct {
	field   types.Field
	unit    string
	divisor float64
}{
	{types.FieldTemperature, "C", 1000},
	{types.FieldVoltage, "V", 100},
	{types.FieldBias, "mA", 1000},
	{types.FieldTxPower, "dBm", 1000},
	{types.FieldRxPower, "dBm", 1000},
}

// SNMPAdapter walks a V-SOL GPON agent in parallel.
type SNMPAdapter struct {
	opts adapter.Options
	log  logger.Logger
}

// NewSNMPAdapter creates the V-SOL SNMP adapter
func NewSNMPAdapter(opts adapter.Options) *SNMPAdapter {
	return &SNMPAdapter{opts: opts, log: opts.Log("vsol-snmp")}
}

func (a *SNMPAdapter) table() types.OIDTable {
	if a.opts.Catalog.Empty() {
		a.log.Debug().Msg("no catalog entries for vsol, using built-in OIDs")
		return DefaultTable
	}
	return a.opts.Catalog
}

// Fetch walks the table and renders optical readings with their units.
func (a *SNMPAdapter) Fetch(ctx context.Context, ep *types.DeviceEndpoint) ([]types.ONURecord, error) {
	table := a.table()
	walker, err := a.opts.WalkerFor(ep)
	if err != nil {
		return nil, err
	}

	identifier := table.IdentifierOr(types.FieldSerialNumber)
	c := &snmp.Correlator{
		Walker:      walker,
		Policy:      snmp.Concurrent,
		Parallelism: a.opts.Parallelism,
		Index:       snmp.LastTwoComponents,
		Identifier:  identifier,
		Logger:      a.log,
	}
	rows, err := c.Collect(ctx, table)
	if err != nil {
		return nil, err
	}

	records := adapter.SNMPRecords(rows, identifier, VendorTag, a.log)
	for i := range records {
		rec := &records[i]
		if iface, ok := interfaceOf(rec.Interface); ok {
			rec.Interface = iface
			rec.SNMPDetails.Set(types.FieldPONInterface, iface)
		}
		a.convert(rec)
	}

	a.log.Info().Str("device", ep.Name).Int("onus", len(records)).Msg("snmp poll complete")
	return records, nil
}

func (a *SNMPAdapter) convert(rec *types.ONURecord) {
	d := &rec.SNMPDetails
	for _, u := range opticalUnits {
		raw, ok := d.Get(u.field)
		if !ok {
			continue
		}
		v, err := opticalText(raw, u.unit, u.divisor)
		if err != nil {
			a.log.Debug().Err(err).Str("onu", rec.Identifier).Str("field", string(u.field)).Msg("no optical reading")
			delete(d.Fields, u.field)
			continue
		}
		d.Set(u.field, v)
	}
	if v, ok := d.Get(types.FieldDistance); ok && strings.TrimSpace(v) != "" {
		d.Set(types.FieldDistance, v+" m")
	}
}

// interfaceOf maps a "{pon_idx}.{onu_idx}" index to "0/{pon}:{onu}".
func interfaceOf(index string) (string, bool) {
	pon, onu, ok := strings.Cut(index, ".")
	if !ok {
		return "", false
	}
	if _, err := strconv.Atoi(pon); err != nil {
		return "", false
	}
	if _, err := strconv.Atoi(onu); err != nil {
		return "", false
	}
	return "0/" + pon + ":" + onu, true
}

// opticalText renders a V-SOL optical reading with its unit. Current
// firmware answers "-28.530(dBm)"; older firmware answers integers scaled
// by divisor, with zero meaning no reading.
func opticalText(raw, unit string, divisor float64) (string, error) {
	v := strings.TrimSpace(raw)
	if i := strings.Index(v, "("); i > 0 {
		f, err := strconv.ParseFloat(strings.TrimSpace(v[:i]), 64)
		if err != nil {
			return "", fmt.Errorf("parse %q: %w", raw, err)
		}
		return fmt.Sprintf("%.2f %s", f, unit), nil
	}

	n, ok := common.ParseIntSNMPValue(v)
	if !ok {
		return "", fmt.Errorf("parse %q: not a number", raw)
	}
	if n == 0 {
		return "", fmt.Errorf("no reading")
	}
	return fmt.Sprintf("%.2f %s", float64(n)/divisor, unit), nil
}
