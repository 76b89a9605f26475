package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nanoncore/nano-onusync/store"
	"github.com/nanoncore/nano-onusync/types"
)

// newTestRepo creates an in-memory SQLite repository for testing
func newTestRepo(t *testing.T) *Repository {
	t.Helper()
	repo, err := New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func seedDevice(t *testing.T, repo *Repository) int64 {
	t.Helper()
	id, err := repo.CreateDevice(context.Background(), &types.DeviceEndpoint{
		Name:        "olt-1",
		Vendor:      types.VendorHSGQ,
		Model:       types.ModelEPON,
		Address:     "192.0.2.1",
		SSHPort:     2222,
		Username:    "admin",
		Password:    "secret",
		Community:   "public",
		ReadTimeout: 3 * time.Second,
		Metadata:    map[string]string{"optical_ports": "4"},
	})
	require.NoError(t, err)
	return id
}

func record(id, status string) types.ONURecord {
	d := types.NewDetails()
	d.Set(types.FieldStatus, status)
	d.SetExtra("auth", "TRUE")
	return types.ONURecord{Identifier: id, Interface: "0/1", VendorTag: "hsgq", Details: d, LastSeen: time.Now()}
}

func TestDeviceRegistry(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	id := seedDevice(t, repo)

	d, err := repo.GetDevice(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "olt-1", d.Name)
	assert.Equal(t, types.ModelEPON, d.Model)
	assert.Equal(t, 2222, d.PortFor(types.ProtocolSSH))
	assert.Equal(t, 3*time.Second, d.ReadTimeout)
	assert.Equal(t, "4", d.Metadata["optical_ports"])
	assert.Equal(t, types.ReachabilityUnknown, d.Reachability)
	assert.True(t, d.LastChecked.IsZero())

	_, err = repo.GetDevice(ctx, id+100)
	assert.ErrorIs(t, err, store.ErrDeviceNotFound)

	reachable, err := repo.ListReachable(ctx)
	require.NoError(t, err)
	assert.Empty(t, reachable)

	checked := time.Now().Truncate(time.Millisecond)
	require.NoError(t, repo.SetReachability(ctx, id, types.ReachabilityOnline, checked))
	reachable, err = repo.ListReachable(ctx)
	require.NoError(t, err)
	require.Len(t, reachable, 1)
	assert.True(t, checked.Equal(reachable[0].LastChecked))

	assert.ErrorIs(t, repo.SetReachability(ctx, id+100, types.ReachabilityOffline, checked), store.ErrDeviceNotFound)

	all, err := repo.ListDevices(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestCreateDeviceWithExplicitID(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	ep := &types.DeviceEndpoint{ID: 42, Name: "a", Vendor: types.VendorHioso, Address: "192.0.2.2"}
	id, err := repo.CreateDevice(ctx, ep)
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)

	ep.Name = "b"
	_, err = repo.CreateDevice(ctx, ep)
	require.NoError(t, err)

	d, err := repo.GetDevice(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, "b", d.Name)
}

func TestOIDCatalog(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	table, err := repo.GetOIDTable(ctx, types.VendorHSGQ, types.ModelGPON)
	require.NoError(t, err)
	assert.True(t, table.Empty())

	gpon := types.OIDTable{
		Entries: []types.OIDEntry{
			{Field: types.FieldSerialNumber, OID: "1.3.6.1.4.1.50224.3.12.2.1.4"},
			{Field: types.FieldRxPower, OID: "1.3.6.1.4.1.50224.3.12.3.1.5"},
		},
		Identifier: types.FieldSerialNumber,
	}
	require.NoError(t, repo.PutOIDTable(ctx, types.VendorHSGQ, types.ModelGPON, gpon))

	table, err = repo.GetOIDTable(ctx, types.VendorHSGQ, types.ModelGPON)
	require.NoError(t, err)
	assert.Equal(t, gpon, table)

	// replacing drops old entries
	require.NoError(t, repo.PutOIDTable(ctx, types.VendorHSGQ, types.ModelGPON, types.OIDTable{
		Entries: gpon.Entries[:1],
	}))
	table, err = repo.GetOIDTable(ctx, types.VendorHSGQ, types.ModelGPON)
	require.NoError(t, err)
	assert.Len(t, table.Entries, 1)
	assert.Equal(t, types.Field(""), table.Identifier)

	// vendor-wide entries apply to every model
	require.NoError(t, repo.PutOIDTable(ctx, types.VendorHioso, types.ModelAny, types.OIDTable{
		Entries: []types.OIDEntry{{Field: types.FieldMACAddress, OID: "1.3.6.1.4.1.25355.3.2.6.1.1.3"}},
	}))
	table, err = repo.GetOIDTable(ctx, types.VendorHioso, types.ModelEPON)
	require.NoError(t, err)
	assert.Len(t, table.Entries, 1)
}

func TestUpsertONU(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	dev := seedDevice(t, repo)

	tx, err := repo.BeginSync(ctx, dev)
	require.NoError(t, err)
	created, err := tx.UpsertONU(ctx, record("e0:67:b3:01:02:03", "Online"))
	require.NoError(t, err)
	assert.True(t, created)
	require.NoError(t, tx.Commit())

	tx, err = repo.BeginSync(ctx, dev)
	require.NoError(t, err)
	created, err = tx.UpsertONU(ctx, record("e0:67:b3:01:02:03", "Offline"))
	require.NoError(t, err)
	assert.False(t, created)
	require.NoError(t, tx.Commit())

	onus, err := repo.ListONUs(ctx, dev)
	require.NoError(t, err)
	require.Len(t, onus, 1)
	status, _ := onus[0].Details.Get(types.FieldStatus)
	assert.Equal(t, "Offline", status)
	assert.Equal(t, "TRUE", onus[0].Details.Extra["auth"])
	assert.Zero(t, onus[0].SNMPDetails.Len())
}

func TestUpsertRejectsEmptyIdentifier(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	dev := seedDevice(t, repo)

	tx, err := repo.BeginSync(ctx, dev)
	require.NoError(t, err)
	defer tx.Rollback()
	_, err = tx.UpsertONU(ctx, record("", "Online"))
	assert.Error(t, err)
}

func TestRollbackDiscardsWrites(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	dev := seedDevice(t, repo)

	tx, err := repo.BeginSync(ctx, dev)
	require.NoError(t, err)
	_, err = tx.UpsertONU(ctx, record("e0:67:b3:01:02:03", "Online"))
	require.NoError(t, err)
	require.NoError(t, tx.Rollback())
	require.NoError(t, tx.Rollback(), "second rollback is a no-op")

	onus, err := repo.ListONUs(ctx, dev)
	require.NoError(t, err)
	assert.Empty(t, onus)
}

func TestUpdateSNMPDetailsNeverInserts(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	dev := seedDevice(t, repo)

	tx, err := repo.BeginSync(ctx, dev)
	require.NoError(t, err)
	_, err = tx.UpsertONU(ctx, record("e0:67:b3:01:02:03", "Online"))
	require.NoError(t, err)
	require.NoError(t, tx.Commit())

	snmp := types.NewDetails()
	snmp.Set(types.FieldRxPower, "-12.34 dBm")

	tx, err = repo.BeginSync(ctx, dev)
	require.NoError(t, err)
	found, err := tx.UpdateSNMPDetails(ctx, "e0:67:b3:01:02:03", snmp, time.Now())
	require.NoError(t, err)
	assert.True(t, found)
	found, err = tx.UpdateSNMPDetails(ctx, "e0:67:b3:ff:ff:ff", snmp, time.Now())
	require.NoError(t, err)
	assert.False(t, found)
	require.NoError(t, tx.Commit())

	onus, err := repo.ListONUs(ctx, dev)
	require.NoError(t, err)
	require.Len(t, onus, 1)
	rx, _ := onus[0].SNMPDetails.Get(types.FieldRxPower)
	assert.Equal(t, "-12.34 dBm", rx)
	status, _ := onus[0].Details.Get(types.FieldStatus)
	assert.Equal(t, "Online", status)
}

func TestRecordsAreScopedByDevice(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	a := seedDevice(t, repo)
	b := seedDevice(t, repo)

	for _, dev := range []int64{a, b} {
		tx, err := repo.BeginSync(ctx, dev)
		require.NoError(t, err)
		created, err := tx.UpsertONU(ctx, record("e0:67:b3:01:02:03", "Online"))
		require.NoError(t, err)
		assert.True(t, created)
		require.NoError(t, tx.Commit())
	}

	onus, err := repo.ListONUs(ctx, a)
	require.NoError(t, err)
	assert.Len(t, onus, 1)
}
