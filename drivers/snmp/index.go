package snmp

import (
	"regexp"
	"strings"
)

// IndexFunc extracts the per-ONU instance index from a returned OID.
type IndexFunc func(oid string) (string, bool)

// sentinelIndexRE takes the last component, or the component before a
// trailing .0.0 / .65535.65535 pair.
var sentinelIndexRE = regexp.MustCompile(`\.(\d+)$|(\d+)\.(?:0\.0|65535\.65535)$`)

// TrailingIndex returns the last numeric component, honouring the sentinel
// suffix form some agents append.
func TrailingIndex(oid string) (string, bool) {
	m := sentinelIndexRE.FindStringSubmatch(oid)
	if m == nil {
		return "", false
	}
	if m[1] != "" {
		return m[1], true
	}
	return m[2], m[2] != ""
}

// LastTwoComponents returns the final two components joined by a dot,
// e.g. "1.3.6...3.2.1.5.12" -> "5.12" (PON port and ONU id).
func LastTwoComponents(oid string) (string, bool) {
	parts := strings.Split(strings.Trim(oid, "."), ".")
	if len(parts) < 2 {
		return "", false
	}
	a, b := parts[len(parts)-2], parts[len(parts)-1]
	if a == "" || b == "" {
		return "", false
	}
	return a + "." + b, true
}
