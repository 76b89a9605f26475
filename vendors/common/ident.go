package common

import (
	"fmt"
	"strings"
)

// NormalizeMAC turns any common MAC rendering ("98C7.A45E.30B8",
// "98-c7-a4-5e-30-b8", "0x98c7a45e30b8", "98 C7 A4 5E 30 B8") into
// lower-case colon separated form. Anything that is not exactly
// twelve hex digits is rejected.
func NormalizeMAC(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		s = s[2:]
	}

	var b strings.Builder
	for _, r := range s {
		switch {
		case r == ':' || r == '-' || r == '.' || r == ' ':
			continue
		case isHex(r):
			b.WriteRune(r)
		default:
			return "", fmt.Errorf("invalid MAC %q", raw)
		}
	}

	hex := strings.ToLower(b.String())
	if len(hex) != 12 {
		return "", fmt.Errorf("invalid MAC %q: want 12 hex digits, got %d", raw, len(hex))
	}

	out := make([]string, 0, 6)
	for i := 0; i < 12; i += 2 {
		out = append(out, hex[i:i+2])
	}
	return strings.Join(out, ":"), nil
}

// FormatMACBytes renders a 6 byte hardware address in colon hex.
func FormatMACBytes(b []byte) (string, error) {
	if len(b) != 6 {
		return "", fmt.Errorf("invalid MAC length %d", len(b))
	}
	return fmt.Sprintf("%02x:%02x:%02x:%02x:%02x:%02x", b[0], b[1], b[2], b[3], b[4], b[5]), nil
}

// NormalizeSerial upper-cases and trims an ONU serial number.
func NormalizeSerial(raw string) (string, error) {
	s := strings.ToUpper(strings.TrimSpace(StripControl(raw)))
	if s == "" || s == "N/A" {
		return "", fmt.Errorf("empty serial")
	}
	if strings.ContainsAny(s, " \t") {
		return "", fmt.Errorf("invalid serial %q", raw)
	}
	return s, nil
}

func isHex(r rune) bool {
	return (r >= '0' && r <= '9') || (r >= 'a' && r <= 'f') || (r >= 'A' && r <= 'F')
}
