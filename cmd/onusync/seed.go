package main

import (
	"context"
	"fmt"

	"github.com/nanoncore/nano-onusync/config"
	"github.com/nanoncore/nano-onusync/logger"
	"github.com/nanoncore/nano-onusync/types"
)

// seedStore is the part of the repository seeding writes to.
type seedStore interface {
	ListDevices(ctx context.Context) ([]*types.DeviceEndpoint, error)
	CreateDevice(ctx context.Context, d *types.DeviceEndpoint) (int64, error)
	PutOIDTable(ctx context.Context, vendor types.Vendor, model types.Model, table types.OIDTable) error
}

// seed loads configured devices and OID catalogs into the store. Seeded
// devices are matched by id, or by name when no id is given, and updated
// in place on every start.
func seed(ctx context.Context, st seedStore, cfg config.SeedConfig, log logger.Logger) error {
	existing, err := st.ListDevices(ctx)
	if err != nil {
		return fmt.Errorf("seed: %w", err)
	}
	byName := make(map[string]int64, len(existing))
	for _, d := range existing {
		byName[d.Name] = d.ID
	}

	for _, d := range cfg.Devices {
		ep := d.Endpoint()
		if ep.ID == 0 {
			ep.ID = byName[ep.Name]
		}
		id, err := st.CreateDevice(ctx, ep)
		if err != nil {
			return fmt.Errorf("seed device %s: %w", d.Name, err)
		}
		log.Debug().Int64("device_id", id).Str("device", d.Name).Msg("Seeded device")
	}
	for _, o := range cfg.OIDs {
		table := o.Table()
		if err := st.PutOIDTable(ctx, types.Vendor(o.Vendor), types.Model(o.Model), table); err != nil {
			return fmt.Errorf("seed oids %s/%s: %w", o.Vendor, o.Model, err)
		}
		log.Debug().Str("vendor", o.Vendor).Str("model", o.Model).Int("fields", len(table.Entries)).Msg("Seeded OID catalog")
	}
	if n := len(cfg.Devices) + len(cfg.OIDs); n > 0 {
		log.Info().Int("devices", len(cfg.Devices)).Int("catalogs", len(cfg.OIDs)).Msg("Seed applied")
	}
	return nil
}
