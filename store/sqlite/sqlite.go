// Package sqlite implements the store interfaces on SQLite.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/nanoncore/nano-onusync/store"
	"github.com/nanoncore/nano-onusync/types"
)

// Repository implements store.Store using SQLite
type Repository struct {
	db *sql.DB
}

var _ store.Store = (*Repository)(nil)

// New opens (creating if needed) the database at dbPath. ":memory:" gives
// a private in-memory database.
func New(dbPath string) (*Repository, error) {
	dsn := dbPath
	if dbPath != ":memory:" && !strings.Contains(dbPath, "?") {
		dsn = dbPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// :memory: databases live and die with their connection
	db.SetMaxOpenConns(1)

	repo := &Repository{db: db}
	if err := repo.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return repo, nil
}

func (r *Repository) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS devices (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		vendor TEXT NOT NULL,
		model TEXT NOT NULL DEFAULT '',
		address TEXT NOT NULL,
		telnet_port INTEGER NOT NULL DEFAULT 0,
		ssh_port INTEGER NOT NULL DEFAULT 0,
		snmp_port INTEGER NOT NULL DEFAULT 0,
		username TEXT NOT NULL DEFAULT '',
		password TEXT NOT NULL DEFAULT '',
		community TEXT NOT NULL DEFAULT '',
		read_timeout_ms INTEGER NOT NULL DEFAULT 0,
		command_delay_ms INTEGER NOT NULL DEFAULT 0,
		reachability TEXT NOT NULL DEFAULT '',
		last_checked INTEGER,
		metadata JSON NOT NULL DEFAULT '{}'
	);

	CREATE TABLE IF NOT EXISTS oids (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		vendor TEXT NOT NULL,
		model TEXT NOT NULL DEFAULT '',
		field TEXT NOT NULL,
		oid TEXT NOT NULL,
		UNIQUE (vendor, model, field)
	);

	CREATE TABLE IF NOT EXISTS onus (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		device_id INTEGER NOT NULL,
		identifier TEXT NOT NULL,
		interface TEXT NOT NULL DEFAULT '',
		vendor_tag TEXT NOT NULL DEFAULT '',
		details JSON NOT NULL DEFAULT '{}',
		snmp_details JSON,
		last_seen INTEGER NOT NULL,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL,
		UNIQUE (device_id, identifier),
		FOREIGN KEY (device_id) REFERENCES devices(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_devices_reachability ON devices(reachability);
	CREATE INDEX IF NOT EXISTS idx_onus_device ON onus(device_id);
	`

	_, err := r.db.Exec(schema)
	return err
}

// Close closes the database
func (r *Repository) Close() error {
	return r.db.Close()
}

const deviceColumns = `id, name, vendor, model, address, telnet_port, ssh_port, snmp_port,
	username, password, community, read_timeout_ms, command_delay_ms,
	reachability, last_checked, metadata`

func scanDevice(row interface{ Scan(...any) error }) (*types.DeviceEndpoint, error) {
	var (
		d                    types.DeviceEndpoint
		vendor, model, reach string
		readMS, delayMS      int64
		lastChecked          sql.NullInt64
		metadata             sql.NullString
	)
	err := row.Scan(&d.ID, &d.Name, &vendor, &model, &d.Address,
		&d.TelnetPort, &d.SSHPort, &d.SNMPPort,
		&d.Username, &d.Password, &d.Community, &readMS, &delayMS,
		&reach, &lastChecked, &metadata)
	if err != nil {
		return nil, err
	}

	d.Vendor = types.Vendor(vendor)
	d.Model = types.Model(model)
	d.Reachability = types.Reachability(reach)
	d.ReadTimeout = time.Duration(readMS) * time.Millisecond
	d.CommandDelay = time.Duration(delayMS) * time.Millisecond
	d.LastChecked = nullToTime(lastChecked)
	if err := unmarshalJSONField(metadata, &d.Metadata); err != nil {
		return nil, fmt.Errorf("device %d metadata: %w", d.ID, err)
	}
	return &d, nil
}

// GetDevice returns the device with id or store.ErrDeviceNotFound.
func (r *Repository) GetDevice(ctx context.Context, id int64) (*types.DeviceEndpoint, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+deviceColumns+` FROM devices WHERE id = ?`, id)
	d, err := scanDevice(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %d", store.ErrDeviceNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query device: %w", err)
	}
	return d, nil
}

// ListDevices returns every registered device ordered by id.
func (r *Repository) ListDevices(ctx context.Context) ([]*types.DeviceEndpoint, error) {
	return r.listDevices(ctx, `SELECT `+deviceColumns+` FROM devices ORDER BY id`)
}

// ListReachable returns the devices marked online by the last probe.
func (r *Repository) ListReachable(ctx context.Context) ([]*types.DeviceEndpoint, error) {
	return r.listDevices(ctx, `SELECT `+deviceColumns+` FROM devices WHERE reachability = ? ORDER BY id`,
		string(types.ReachabilityOnline))
}

func (r *Repository) listDevices(ctx context.Context, query string, args ...any) ([]*types.DeviceEndpoint, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query devices: %w", err)
	}
	defer rows.Close()

	var devices []*types.DeviceEndpoint
	for rows.Next() {
		d, err := scanDevice(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan device: %w", err)
		}
		devices = append(devices, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating devices: %w", err)
	}
	return devices, nil
}

// SetReachability records a probe result.
func (r *Repository) SetReachability(ctx context.Context, id int64, reach types.Reachability, checked time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE devices SET reachability = ?, last_checked = ? WHERE id = ?`,
		string(reach), timeToUnix(checked), id)
	if err != nil {
		return fmt.Errorf("failed to update reachability: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %d", store.ErrDeviceNotFound, id)
	}
	return nil
}

// CreateDevice registers d and returns its id. A non-zero d.ID is kept.
func (r *Repository) CreateDevice(ctx context.Context, d *types.DeviceEndpoint) (int64, error) {
	metadata, err := marshalJSON(d.Metadata)
	if err != nil {
		return 0, err
	}

	var id any
	if d.ID != 0 {
		id = d.ID
	}
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO devices (id, name, vendor, model, address, telnet_port, ssh_port, snmp_port,
			username, password, community, read_timeout_ms, command_delay_ms, reachability, metadata)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name, vendor = excluded.vendor, model = excluded.model,
			address = excluded.address, telnet_port = excluded.telnet_port,
			ssh_port = excluded.ssh_port, snmp_port = excluded.snmp_port,
			username = excluded.username, password = excluded.password,
			community = excluded.community, read_timeout_ms = excluded.read_timeout_ms,
			command_delay_ms = excluded.command_delay_ms, metadata = excluded.metadata
	`, id, d.Name, string(d.Vendor), string(d.Model), d.Address,
		d.TelnetPort, d.SSHPort, d.SNMPPort, d.Username, d.Password, d.Community,
		d.ReadTimeout.Milliseconds(), d.CommandDelay.Milliseconds(), string(d.Reachability), metadata)
	if err != nil {
		return 0, fmt.Errorf("failed to insert device: %w", err)
	}
	if d.ID != 0 {
		return d.ID, nil
	}
	return res.LastInsertId()
}

// GetOIDTable returns the catalog of (vendor, model). Entries stored
// under the empty model apply to every model of the vendor.
func (r *Repository) GetOIDTable(ctx context.Context, vendor types.Vendor, model types.Model) (types.OIDTable, error) {
	table, err := r.oidTable(ctx, vendor, model)
	if err != nil || !table.Empty() || model == types.ModelAny {
		return table, err
	}
	return r.oidTable(ctx, vendor, types.ModelAny)
}

func (r *Repository) oidTable(ctx context.Context, vendor types.Vendor, model types.Model) (types.OIDTable, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT field, oid FROM oids WHERE vendor = ? AND model = ? ORDER BY id`,
		string(vendor), string(model))
	if err != nil {
		return types.OIDTable{}, fmt.Errorf("failed to query oids: %w", err)
	}
	defer rows.Close()

	var table types.OIDTable
	for rows.Next() {
		var field, oid string
		if err := rows.Scan(&field, &oid); err != nil {
			return types.OIDTable{}, fmt.Errorf("failed to scan oid: %w", err)
		}
		if field == types.IdentifierKey {
			table.Identifier = types.Field(oid)
			continue
		}
		table.Entries = append(table.Entries, types.OIDEntry{Field: types.Field(field), OID: oid})
	}
	if err := rows.Err(); err != nil {
		return types.OIDTable{}, fmt.Errorf("error iterating oids: %w", err)
	}
	return table, nil
}

// PutOIDTable replaces the catalog of (vendor, model).
func (r *Repository) PutOIDTable(ctx context.Context, vendor types.Vendor, model types.Model, table types.OIDTable) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM oids WHERE vendor = ? AND model = ?`,
		string(vendor), string(model)); err != nil {
		return fmt.Errorf("failed to clear oids: %w", err)
	}

	insert := `INSERT INTO oids (vendor, model, field, oid) VALUES (?, ?, ?, ?)`
	for _, e := range table.Entries {
		if _, err := tx.ExecContext(ctx, insert, string(vendor), string(model), string(e.Field), e.OID); err != nil {
			return fmt.Errorf("failed to insert oid %s: %w", e.Field, err)
		}
	}
	if table.Identifier != "" {
		if _, err := tx.ExecContext(ctx, insert, string(vendor), string(model), types.IdentifierKey, string(table.Identifier)); err != nil {
			return fmt.Errorf("failed to insert identifier key: %w", err)
		}
	}
	return tx.Commit()
}

// ListONUs returns the records of a device ordered by identifier.
func (r *Repository) ListONUs(ctx context.Context, deviceID int64) ([]store.StoredONU, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, device_id, identifier, interface, vendor_tag, details, snmp_details,
			last_seen, created_at, updated_at
		FROM onus WHERE device_id = ? ORDER BY identifier
	`, deviceID)
	if err != nil {
		return nil, fmt.Errorf("failed to query onus: %w", err)
	}
	defer rows.Close()

	var onus []store.StoredONU
	for rows.Next() {
		var (
			o                          store.StoredONU
			details, snmpDetails       sql.NullString
			lastSeen, created, updated int64
		)
		if err := rows.Scan(&o.ID, &o.DeviceID, &o.Identifier, &o.Interface, &o.VendorTag,
			&details, &snmpDetails, &lastSeen, &created, &updated); err != nil {
			return nil, fmt.Errorf("failed to scan onu: %w", err)
		}
		if err := unmarshalJSONField(details, &o.Details); err != nil {
			return nil, fmt.Errorf("onu %s details: %w", o.Identifier, err)
		}
		if err := unmarshalJSONField(snmpDetails, &o.SNMPDetails); err != nil {
			return nil, fmt.Errorf("onu %s snmp details: %w", o.Identifier, err)
		}
		o.LastSeen = unixToTime(lastSeen)
		o.CreatedAt = unixToTime(created)
		o.UpdatedAt = unixToTime(updated)
		onus = append(onus, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating onus: %w", err)
	}
	return onus, nil
}

// BeginSync opens a write transaction scoped to deviceID.
func (r *Repository) BeginSync(ctx context.Context, deviceID int64) (store.SyncTx, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return &syncTx{tx: tx, deviceID: deviceID}, nil
}

type syncTx struct {
	tx       *sql.Tx
	deviceID int64
}

func (t *syncTx) UpsertONU(ctx context.Context, rec types.ONURecord) (bool, error) {
	if rec.Identifier == "" {
		return false, errors.New("record without identifier")
	}
	details, err := marshalJSON(rec.Details)
	if err != nil {
		return false, err
	}

	var existing int64
	err = t.tx.QueryRowContext(ctx,
		`SELECT id FROM onus WHERE device_id = ? AND identifier = ?`,
		t.deviceID, rec.Identifier).Scan(&existing)
	created := errors.Is(err, sql.ErrNoRows)
	if err != nil && !created {
		return false, fmt.Errorf("failed to look up onu: %w", err)
	}

	now := timeToUnix(time.Now())
	seen := timeToUnix(rec.LastSeen)
	if rec.LastSeen.IsZero() {
		seen = now
	}
	_, err = t.tx.ExecContext(ctx, `
		INSERT INTO onus (device_id, identifier, interface, vendor_tag, details, last_seen, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(device_id, identifier) DO UPDATE SET
			details = excluded.details,
			last_seen = excluded.last_seen,
			updated_at = excluded.updated_at
	`, t.deviceID, rec.Identifier, rec.Interface, rec.VendorTag, details, seen, now, now)
	if err != nil {
		return false, fmt.Errorf("failed to upsert onu %s: %w", rec.Identifier, err)
	}
	return created, nil
}

func (t *syncTx) UpdateSNMPDetails(ctx context.Context, identifier string, details types.Details, seen time.Time) (bool, error) {
	payload, err := marshalJSON(details)
	if err != nil {
		return false, err
	}
	now := time.Now()
	if seen.IsZero() {
		seen = now
	}
	res, err := t.tx.ExecContext(ctx, `
		UPDATE onus SET snmp_details = ?, last_seen = ?, updated_at = ?
		WHERE device_id = ? AND identifier = ?
	`, payload, timeToUnix(seen), timeToUnix(now), t.deviceID, identifier)
	if err != nil {
		return false, fmt.Errorf("failed to update snmp details of %s: %w", identifier, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (t *syncTx) Commit() error {
	return t.tx.Commit()
}

func (t *syncTx) Rollback() error {
	err := t.tx.Rollback()
	if errors.Is(err, sql.ErrTxDone) {
		return nil
	}
	return err
}
