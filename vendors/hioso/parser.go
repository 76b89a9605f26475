package hioso

import (
	"regexp"
	"strings"
	"time"

	"github.com/nanoncore/nano-onusync/logger"
	"github.com/nanoncore/nano-onusync/types"
	"github.com/nanoncore/nano-onusync/vendors/common"
)

// VendorTag is stamped on every Hioso record
const VendorTag = "hioso"

// onuLineRE matches one row of "show onu all":
//
//	1/1:3  98:c7:a4:5e:30:b8  Online  1  HS8145  V1R2  0  MAC  1023  2 days 03:04:05
//
// onu id, mac, status, ports, chip id, version, flags, auth mode, distance, uptime
var onuLineRE = regexp.MustCompile(`^\s*(\d+/\d+:\d+)\s+([0-9a-fA-F:.\-]+)\s+(\w+)\s+(\d+)\s+(\S+)\s+(\S+)\s+(\d+)\s+(\w+)\s+(\d+)\s+(.+?)\s*$`)

// ParseONUTable parses the output of "show onu all". Lines that do not fit
// the grammar, and rows whose MAC does not normalize, are skipped.
func ParseONUTable(raw string, log logger.Logger) []types.ONURecord {
	if log == nil {
		log = logger.NewTestLogger()
	}
	now := time.Now()

	var records []types.ONURecord
	for i, line := range common.CleanLines(raw) {
		if strings.TrimSpace(line) == "" {
			continue
		}
		m := onuLineRE.FindStringSubmatch(line)
		if m == nil {
			log.Debug().Int("line", i+1).Str("text", line).Msg("unmatched line")
			continue
		}

		mac, err := common.NormalizeMAC(m[2])
		if err != nil {
			log.Warn().Err(err).Int("line", i+1).Str("onu", m[1]).Msg("skipping ONU with malformed MAC")
			continue
		}

		d := types.NewDetails()
		d.Set(types.FieldPONInterface, m[1])
		d.Set(types.FieldMACAddress, mac)
		d.SetExtra("onu_mac", m[2])
		d.Set(types.FieldStatus, m[3])
		d.Set(types.FieldPorts, m[4])
		d.Set(types.FieldChipID, m[5])
		d.Set(types.FieldVersion, m[6])
		d.SetExtra("flags", m[7])
		d.Set(types.FieldAuthMode, m[8])
		d.Set(types.FieldDistance, m[9])
		d.Set(types.FieldUptime, m[10])

		records = append(records, types.ONURecord{
			Identifier: mac,
			Interface:  m[1],
			VendorTag:  VendorTag,
			Details:    d,
			LastSeen:   now,
		})
	}
	return records
}
