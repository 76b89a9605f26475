// Package adapter holds what every vendor adapter shares: construction
// options, session and walker wiring, and identifier normalization.
package adapter

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nanoncore/nano-onusync/drivers/cli"
	"github.com/nanoncore/nano-onusync/drivers/snmp"
	"github.com/nanoncore/nano-onusync/logger"
	"github.com/nanoncore/nano-onusync/types"
	"github.com/nanoncore/nano-onusync/vendors/common"
)

// ErrNoOIDCatalog is returned by SNMP adapters that have neither a catalog
// nor a built-in default table.
var ErrNoOIDCatalog = errors.New("no OID catalog for vendor/model")

// TransportFunc builds the shell transport for an endpoint.
type TransportFunc func(endpoint *types.DeviceEndpoint) cli.Transport

// WalkerFunc builds the SNMP walker for an endpoint.
type WalkerFunc func(endpoint *types.DeviceEndpoint) (snmp.Walker, error)

// Options configures an adapter. Zero values fall back to defaults.
type Options struct {
	Logger logger.Logger

	// Session timing defaults; endpoint values take precedence
	WaitTimeout time.Duration
	ReadTimeout time.Duration
	DialTimeout time.Duration

	SNMP snmp.Options

	// Parallelism bounds concurrent walks
	Parallelism int

	// Catalog is the OID catalog loaded for the adapter's (vendor, model)
	Catalog types.OIDTable

	// Transport and Walker replace the network dialers (tests, proxies)
	Transport TransportFunc
	Walker    WalkerFunc
}

// Log returns the adapter logger tagged with component.
func (o Options) Log(component string) logger.Logger {
	if o.Logger == nil {
		return logger.NewTestLogger()
	}
	return o.Logger.WithComponent(component)
}

// TransportFor returns the override transport, or def.
func (o Options) TransportFor(endpoint *types.DeviceEndpoint, def func() cli.Transport) cli.Transport {
	if o.Transport != nil {
		return o.Transport(endpoint)
	}
	return def()
}

// WalkerFor returns the override walker, or a gosnmp client.
func (o Options) WalkerFor(endpoint *types.DeviceEndpoint) (snmp.Walker, error) {
	if o.Walker != nil {
		return o.Walker(endpoint)
	}
	return snmp.NewClient(endpoint, o.SNMP)
}

// SessionConfig fills the timing and logging part of a session config.
func (o Options) SessionConfig(endpoint *types.DeviceEndpoint, log logger.Logger) cli.Config {
	cfg := cli.Config{
		WaitTimeout: o.WaitTimeout,
		ReadTimeout: o.ReadTimeout,
		Logger: log.WithFields(map[string]interface{}{
			"device_id": endpoint.ID,
			"device":    endpoint.Name,
		}),
	}
	if endpoint.ReadTimeout > 0 {
		cfg.ReadTimeout = endpoint.ReadTimeout
	}
	if endpoint.CommandDelay > 0 {
		cfg.CommandDelay = endpoint.CommandDelay
	}
	return cfg
}

// Identify normalizes raw into a record identifier according to the kind
// of field it came from.
func Identify(field types.Field, raw string) (string, error) {
	switch field {
	case types.FieldMACAddress:
		return common.NormalizeMAC(raw)
	case types.FieldSerialNumber:
		return common.NormalizeSerial(raw)
	}
	v := strings.TrimSpace(raw)
	if v == "" {
		return "", fmt.Errorf("empty %s", field)
	}
	return v, nil
}

// SNMPRecords turns correlated rows into records with the identifier taken
// from field. Rows whose identifier does not normalize are dropped.
func SNMPRecords(rows []snmp.Row, field types.Field, vendorTag string, log logger.Logger) []types.ONURecord {
	now := time.Now()
	records := make([]types.ONURecord, 0, len(rows))
	for _, row := range rows {
		raw, _ := row.Values.Get(field)
		id, err := Identify(field, raw)
		if err != nil {
			log.Warn().Err(err).Str("index", row.Index).Msg("skipping index with unusable identifier")
			continue
		}
		details := row.Values
		details.Set(types.FieldONUIndex, row.Index)
		details.Set(field, id)

		records = append(records, types.ONURecord{
			Identifier:  id,
			Interface:   row.Index,
			VendorTag:   vendorTag,
			SNMPDetails: details,
			LastSeen:    now,
		})
	}
	return records
}
