package mock

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nanoncore/nano-onusync/types"
)

func identifiers(records []types.ONURecord) []string {
	ids := make([]string, len(records))
	for i, r := range records {
		ids[i] = r.Identifier
	}
	return ids
}

func TestFetcherIsDeterministic(t *testing.T) {
	ctx := context.Background()
	ep := &types.DeviceEndpoint{ID: 9, Name: "demo", Vendor: types.VendorMock}

	cli := NewFetcher(types.MethodInteractive)
	first, err := cli.Fetch(ctx, ep)
	require.NoError(t, err)
	second, err := cli.Fetch(ctx, ep)
	require.NoError(t, err)
	assert.Equal(t, identifiers(first), identifiers(second))
	assert.Equal(t, 2, cli.Calls())

	walked, err := NewFetcher(types.MethodSNMP).Fetch(ctx, ep)
	require.NoError(t, err)
	assert.Equal(t, identifiers(first), identifiers(walked), "both methods report the same ONUs")

	for i := range first {
		assert.Positive(t, first[i].Details.Len())
		assert.Zero(t, first[i].SNMPDetails.Len())
		assert.Zero(t, walked[i].Details.Len())
		rx, ok := walked[i].SNMPDetails.Get(types.FieldRxPower)
		assert.True(t, ok)
		assert.Contains(t, rx, "dBm")
	}
}

func TestFetcherMetadata(t *testing.T) {
	ctx := context.Background()
	f := NewFetcher(types.MethodInteractive)

	records, err := f.Fetch(ctx, &types.DeviceEndpoint{ID: 1, Metadata: map[string]string{"mock_onus": "12"}})
	require.NoError(t, err)
	assert.Len(t, records, 12)

	_, err = f.Fetch(ctx, &types.DeviceEndpoint{ID: 1, Metadata: map[string]string{"mock_error": "boom"}})
	assert.ErrorContains(t, err, "boom")

	_, err = f.Fetch(ctx, nil)
	assert.Error(t, err)
}

func TestFetcherHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewFetcher(types.MethodSNMP).Fetch(ctx, &types.DeviceEndpoint{ID: 1})
	assert.ErrorIs(t, err, context.Canceled)
}
