package snmp

import (
	"testing"

	"github.com/gosnmp/gosnmp"

	"github.com/nanoncore/nano-onusync/types"
)

func TestRender(t *testing.T) {
	tests := []struct {
		name   string
		pdu    gosnmp.SnmpPDU
		want   string
		wantOK bool
	}{
		{name: "printable octets", pdu: octet(".1.1", "ONU-01"), want: "ONU-01", wantOK: true},
		{name: "nul padded", pdu: octetBytes(".1.1", []byte("HWTC0001\x00\x00")), want: "HWTC0001", wantOK: true},
		{name: "binary octets", pdu: octetBytes(".1.1", []byte{0x98, 0xc7, 0x01}), want: "0x98c701", wantOK: true},
		{name: "integer", pdu: integer(".1.1", -1234), want: "-1234", wantOK: true},
		{name: "gauge", pdu: gosnmp.SnmpPDU{Type: gosnmp.Gauge32, Value: uint(42)}, want: "42", wantOK: true},
		{name: "counter64", pdu: gosnmp.SnmpPDU{Type: gosnmp.Counter64, Value: uint64(1 << 40)}, want: "1099511627776", wantOK: true},
		{name: "no such object", pdu: gosnmp.SnmpPDU{Type: gosnmp.NoSuchObject}, want: "", wantOK: false},
		{name: "end of mib", pdu: gosnmp.SnmpPDU{Type: gosnmp.EndOfMibView}, want: "", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Render(tt.pdu)
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("Render() = %q, %v, want %q, %v", got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestRenderFieldMAC(t *testing.T) {
	// 0x41..0x46 is printable ("ABCDEF") but is still a MAC
	pdu := octetBytes(".1.1", []byte{0x41, 0x42, 0x43, 0x44, 0x45, 0x46})

	got, ok := RenderField(types.FieldMACAddress, pdu)
	if !ok || got != "41:42:43:44:45:46" {
		t.Errorf("RenderField(mac) = %q, %v", got, ok)
	}

	got, ok = RenderField(types.FieldName, pdu)
	if !ok || got != "ABCDEF" {
		t.Errorf("RenderField(name) = %q, %v", got, ok)
	}
}
