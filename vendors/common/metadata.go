package common

import (
	"fmt"
	"strconv"
	"strings"
)

// GetMetadataString retrieves a string value from endpoint metadata with
// optional fallback keys. Keys are checked in order - first match wins.
func GetMetadataString(metadata map[string]string, keys ...string) (string, bool) {
	if metadata == nil {
		return "", false
	}
	for _, key := range keys {
		if value, ok := metadata[key]; ok {
			return value, true
		}
	}
	return "", false
}

// GetMetadataIntWithDefault retrieves an integer from metadata, or returns defaultValue.
func GetMetadataIntWithDefault(metadata map[string]string, defaultValue int, keys ...string) int {
	if value, ok := GetMetadataString(metadata, keys...); ok {
		if n, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
			return n
		}
	}
	return defaultValue
}

// ParsePortList parses a comma separated list of PON ports ("1/1,1/2") or
// a range on the last component ("1/1-4").
func ParsePortList(s string) ([]string, error) {
	var ports []string
	for _, item := range strings.Split(s, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}

		slash := strings.LastIndex(item, "/")
		dash := strings.LastIndex(item, "-")
		if dash < 0 || dash < slash {
			ports = append(ports, item)
			continue
		}
		if slash < 0 {
			return nil, fmt.Errorf("invalid port range %q", item)
		}

		prefix := item[:slash+1]
		from, err := strconv.Atoi(item[slash+1 : dash])
		if err != nil {
			return nil, fmt.Errorf("invalid port range %q", item)
		}
		to, err := strconv.Atoi(item[dash+1:])
		if err != nil || to < from {
			return nil, fmt.Errorf("invalid port range %q", item)
		}
		for i := from; i <= to; i++ {
			ports = append(ports, prefix+strconv.Itoa(i))
		}
	}
	return ports, nil
}
