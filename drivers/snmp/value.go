package snmp

import (
	"fmt"
	"strings"

	"github.com/gosnmp/gosnmp"

	"github.com/nanoncore/nano-onusync/types"
	"github.com/nanoncore/nano-onusync/vendors/common"
)

// Render converts a PDU value into the raw string kept per field. Binary
// octet strings are rendered as 0x-prefixed hex. Exception values
// (noSuchObject, endOfMibView) report false.
func Render(pdu gosnmp.SnmpPDU) (string, bool) {
	switch pdu.Type {
	case gosnmp.OctetString:
		b, ok := pdu.Value.([]byte)
		if !ok {
			s, ok := common.ParseStringSNMPValue(pdu.Value)
			return s, ok
		}
		trimmed := []byte(strings.TrimRight(string(b), "\x00"))
		if common.IsPrintable(trimmed) {
			return strings.TrimSpace(string(trimmed)), true
		}
		return common.HexString(b), true
	case gosnmp.Integer, gosnmp.Counter32, gosnmp.Gauge32, gosnmp.Counter64,
		gosnmp.TimeTicks, gosnmp.Uinteger32:
		return gosnmp.ToBigInt(pdu.Value).String(), true
	case gosnmp.IPAddress, gosnmp.ObjectIdentifier:
		s, ok := pdu.Value.(string)
		return s, ok
	case gosnmp.NoSuchObject, gosnmp.NoSuchInstance, gosnmp.EndOfMibView, gosnmp.Null:
		return "", false
	default:
		return fmt.Sprint(pdu.Value), pdu.Value != nil
	}
}

// RenderField is Render with field-typed handling: six byte MAC octet
// strings become colon hex regardless of printability.
func RenderField(field types.Field, pdu gosnmp.SnmpPDU) (string, bool) {
	if field == types.FieldMACAddress && pdu.Type == gosnmp.OctetString {
		if b, ok := pdu.Value.([]byte); ok && len(b) == 6 {
			if mac, err := common.FormatMACBytes(b); err == nil {
				return mac, true
			}
		}
	}
	return Render(pdu)
}
