package mock

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/nanoncore/nano-onusync/types"
	"github.com/nanoncore/nano-onusync/vendors/common"
)

// DefaultONUCount is used when the endpoint does not set "mock_onus".
const DefaultONUCount = 5

// Fetcher simulates an OLT without connecting to real equipment. Output is
// a deterministic function of the endpoint ID so repeated syncs are stable.
type Fetcher struct {
	method types.Method
	delay  time.Duration

	mu    sync.Mutex
	calls int
}

// NewFetcher creates a mock fetcher for the given sync method.
func NewFetcher(method types.Method) *Fetcher {
	return &Fetcher{method: method, delay: 10 * time.Millisecond}
}

// Calls returns how many times Fetch ran.
func (f *Fetcher) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// Fetch returns the simulated ONU table.
func (f *Fetcher) Fetch(ctx context.Context, endpoint *types.DeviceEndpoint) ([]types.ONURecord, error) {
	if endpoint == nil {
		return nil, fmt.Errorf("endpoint is required")
	}

	f.mu.Lock()
	f.calls++
	f.mu.Unlock()

	// Simulate device latency
	select {
	case <-time.After(f.delay):
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	if msg, ok := common.GetMetadataString(endpoint.Metadata, "mock_error"); ok {
		return nil, fmt.Errorf("mock: %s", msg)
	}

	count := common.GetMetadataIntWithDefault(endpoint.Metadata, DefaultONUCount, "mock_onus")
	return generateONUs(endpoint.ID, count, f.method), nil
}

func generateONUs(seed int64, count int, method types.Method) []types.ONURecord {
	//nolint:gosec // mock data - all rand usage below is for simulating test data
	rng := rand.New(rand.NewSource(seed))
	now := time.Now()

	records := make([]types.ONURecord, 0, count)
	for i := 0; i < count; i++ {
		mac := fmt.Sprintf("02:00:%02x:%02x:%02x:%02x", byte(seed), byte(i), rng.Intn(256), rng.Intn(256))
		port := fmt.Sprintf("1/%d:%d", i%2+1, i+1)

		details := types.NewDetails()
		details.Set(types.FieldMACAddress, mac)
		details.Set(types.FieldPONInterface, port)
		details.Set(types.FieldStatus, common.StatusOnline)
		details.Set(types.FieldDistance, fmt.Sprintf("%d", 500+rng.Intn(5000)))
		rx := -15 - rng.Float64()*10

		rec := types.ONURecord{
			Identifier: mac,
			Interface:  port,
			VendorTag:  string(types.VendorMock),
			LastSeen:   now,
		}
		if method == types.MethodSNMP {
			details.Set(types.FieldRxPower, fmt.Sprintf("%.2f dBm", rx))
			rec.SNMPDetails = details
		} else {
			rec.Details = details
		}
		records = append(records, rec)
	}
	return records
}
