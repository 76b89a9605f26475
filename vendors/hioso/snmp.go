package hioso

import (
	"context"

	"github.com/nanoncore/nano-onusync/drivers/snmp"
	"github.com/nanoncore/nano-onusync/logger"
	"github.com/nanoncore/nano-onusync/types"
	"github.com/nanoncore/nano-onusync/vendors/adapter"
)

// SNMPAdapter walks the Hioso agent. Rows are indexed by PON port and ONU
// id, the last two OID components.
type SNMPAdapter struct {
	opts adapter.Options
	log  logger.Logger
}

// NewSNMPAdapter creates the Hioso SNMP adapter
func NewSNMPAdapter(opts adapter.Options) *SNMPAdapter {
	return &SNMPAdapter{opts: opts, log: opts.Log("hioso-snmp")}
}

// Fetch walks the catalog OIDs concurrently.
func (a *SNMPAdapter) Fetch(ctx context.Context, ep *types.DeviceEndpoint) ([]types.ONURecord, error) {
	table := a.opts.Catalog
	if table.Empty() {
		return nil, adapter.ErrNoOIDCatalog
	}

	walker, err := a.opts.WalkerFor(ep)
	if err != nil {
		return nil, err
	}

	identifier := table.IdentifierOr(types.FieldMACAddress)
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
	a.log.Info().Str("device", ep.Name).Int("onus", len(records)).Msg("snmp poll complete")
	return records, nil
}
