// Package store defines the persistence boundaries of the sync engine:
// the device registry, the OID catalog and the ONU record store.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/nanoncore/nano-onusync/types"
)

var (
	// ErrDeviceNotFound is returned for an unknown device id
	ErrDeviceNotFound = errors.New("device not found")
)

// DeviceRegistry hands out device endpoints.
type DeviceRegistry interface {
	GetDevice(ctx context.Context, id int64) (*types.DeviceEndpoint, error)
	ListDevices(ctx context.Context) ([]*types.DeviceEndpoint, error)

	// ListReachable returns devices whose last probe found them online
	ListReachable(ctx context.Context) ([]*types.DeviceEndpoint, error)
	SetReachability(ctx context.Context, id int64, r types.Reachability, checked time.Time) error
}

// OIDCatalog resolves the OID table of a (vendor, model). A missing
// catalog is an empty table, not an error.
type OIDCatalog interface {
	GetOIDTable(ctx context.Context, vendor types.Vendor, model types.Model) (types.OIDTable, error)
}

// StoredONU is a persisted ONU record.
type StoredONU struct {
	ID       int64
	DeviceID int64
	types.ONURecord
	CreatedAt time.Time
	UpdatedAt time.Time
}

// RecordStore persists ONU records.
type RecordStore interface {
	// BeginSync opens the transaction one sync job writes through
	BeginSync(ctx context.Context, deviceID int64) (SyncTx, error)

	ListONUs(ctx context.Context, deviceID int64) ([]StoredONU, error)
}

// SyncTx is the unit of work of one sync job. Nothing is visible to other
// jobs until Commit. Rollback after Commit is a no-op.
type SyncTx interface {
	// UpsertONU inserts rec or overwrites the primary details and last
	// seen of the existing (device, identifier) record.
	UpsertONU(ctx context.Context, rec types.ONURecord) (created bool, err error)

	// UpdateSNMPDetails replaces the secondary details of an existing
	// record. It never inserts; found is false for unknown identifiers.
	UpdateSNMPDetails(ctx context.Context, identifier string, details types.Details, seen time.Time) (found bool, err error)

	Commit() error
	Rollback() error
}

// Store is everything the orchestrator needs.
type Store interface {
	DeviceRegistry
	OIDCatalog
	RecordStore
	Close() error
}
