package common

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseIntSNMPValue extracts an int64 from the numeric types SNMP libraries
// return, or from a decimal string.
func ParseIntSNMPValue(value interface{}) (int64, bool) {
	if value == nil {
		return 0, false
	}

	switch v := value.(type) {
	case int:
		return int64(v), true
	case int32:
		return int64(v), true
	case int64:
		return v, true
	case uint:
		return int64(v), true
	case uint32:
		return int64(v), true
	case uint64:
		return int64(v), true
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		return n, err == nil
	default:
		return 0, false
	}
}

// ParseStringSNMPValue extracts a string from SNMP result.
// Handles both string and []byte types.
func ParseStringSNMPValue(value interface{}) (string, bool) {
	if value == nil {
		return "", false
	}

	switch v := value.(type) {
	case string:
		return v, true
	case []byte:
		return string(v), true
	default:
		return "", false
	}
}

// IsPrintable reports whether b is printable ASCII text (tabs and line
// breaks allowed).
func IsPrintable(b []byte) bool {
	for _, c := range b {
		if c == '\t' || c == '\r' || c == '\n' {
			continue
		}
		if c < 0x20 || c > 0x7e {
			return false
		}
	}
	return true
}

// HexString renders bytes as "0x" prefixed lower-case hex.
func HexString(b []byte) string {
	return fmt.Sprintf("0x%x", b)
}

// Status codes used by ONU status columns.
const (
	StatusOnline  = "Online"
	StatusOffline = "Offline"
	StatusUnknown = "Unknown"
)

// StatusText maps an integer status code to its symbolic name.
func StatusText(raw string) string {
	switch strings.TrimSpace(raw) {
	case "1":
		return StatusOnline
	case "2":
		return StatusOffline
	default:
		return StatusUnknown
	}
}

// CentiUnit converts a fixed-point hundredths reading ("-1234") into a two
// decimal string with unit ("-12.34 dBm").
func CentiUnit(raw, unit string) (string, error) {
	n, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return "", fmt.Errorf("parse %q: %w", raw, err)
	}
	return fmt.Sprintf("%.2f %s", n/100, unit), nil
}
