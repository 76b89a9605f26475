package snmp

import (
	"context"
	"sync"
	"time"

	"github.com/gosnmp/gosnmp"
)

// fakeWalker serves canned PDUs per root OID and tracks overlap. A root
// with an error first delivers errAfter[root] of its PDUs.
type fakeWalker struct {
	pdus     map[string][]gosnmp.SnmpPDU
	errs     map[string]error
	errAfter map[string]int
	delay    time.Duration

	mu          sync.Mutex
	inFlight    int
	maxInFlight int
	walked      []string
}

func (f *fakeWalker) Walk(ctx context.Context, rootOID string, fn WalkFunc) error {
	f.mu.Lock()
	f.inFlight++
	if f.inFlight > f.maxInFlight {
		f.maxInFlight = f.inFlight
	}
	f.walked = append(f.walked, rootOID)
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		f.inFlight--
		f.mu.Unlock()
	}()

	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	pdus := f.pdus[rootOID]
	walkErr := f.errs[rootOID]
	if walkErr != nil {
		n := f.errAfter[rootOID]
		if n < len(pdus) {
			pdus = pdus[:n]
		}
	}
	for _, p := range pdus {
		if err := fn(p); err != nil {
			return err
		}
	}
	return walkErr
}

func octet(oid, v string) gosnmp.SnmpPDU {
	return gosnmp.SnmpPDU{Name: oid, Type: gosnmp.OctetString, Value: []byte(v)}
}

func octetBytes(oid string, v []byte) gosnmp.SnmpPDU {
	return gosnmp.SnmpPDU{Name: oid, Type: gosnmp.OctetString, Value: v}
}

func integer(oid string, v int) gosnmp.SnmpPDU {
	return gosnmp.SnmpPDU{Name: oid, Type: gosnmp.Integer, Value: v}
}
