package mock

import (
	"context"
	"strings"
	"sync"

	"github.com/gosnmp/gosnmp"

	"github.com/nanoncore/nano-onusync/drivers/snmp"
)

// Walker is an in-memory SNMP agent. Walk returns every PDU whose OID lies
// under the requested root, in insertion order.
type Walker struct {
	mu     sync.Mutex
	pdus   []gosnmp.SnmpPDU
	errs   map[string]error
	walked []string
}

// NewWalker creates an agent serving pdus.
func NewWalker(pdus ...gosnmp.SnmpPDU) *Walker {
	return &Walker{pdus: pdus, errs: map[string]error{}}
}

// Fail makes walks of root return err.
func (w *Walker) Fail(root string, err error) *Walker {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.errs[trimOID(root)] = err
	return w
}

// Walked returns the roots walked so far.
func (w *Walker) Walked() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]string(nil), w.walked...)
}

// Walk implements snmp.Walker.
func (w *Walker) Walk(ctx context.Context, rootOID string, fn snmp.WalkFunc) error {
	root := trimOID(rootOID)

	w.mu.Lock()
	w.walked = append(w.walked, rootOID)
	err := w.errs[root]
	pdus := append([]gosnmp.SnmpPDU(nil), w.pdus...)
	w.mu.Unlock()

	if err != nil {
		return err
	}
	for _, p := range pdus {
		if err := ctx.Err(); err != nil {
			return err
		}
		name := trimOID(p.Name)
		if !strings.HasPrefix(name, root+".") {
			continue
		}
		if err := fn(p); err != nil {
			return err
		}
	}
	return nil
}

func trimOID(oid string) string {
	return strings.TrimPrefix(oid, ".")
}

// OctetPDU builds an OCTET STRING varbind.
func OctetPDU(oid string, v []byte) gosnmp.SnmpPDU {
	return gosnmp.SnmpPDU{Name: oid, Type: gosnmp.OctetString, Value: v}
}

// StringPDU builds a printable OCTET STRING varbind.
func StringPDU(oid, v string) gosnmp.SnmpPDU {
	return OctetPDU(oid, []byte(v))
}

// IntegerPDU builds an INTEGER varbind.
func IntegerPDU(oid string, v int) gosnmp.SnmpPDU {
	return gosnmp.SnmpPDU{Name: oid, Type: gosnmp.Integer, Value: v}
}
