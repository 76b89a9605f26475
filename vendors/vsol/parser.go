package vsol

import (
	"regexp"
	"strings"
	"time"

	"github.com/nanoncore/nano-onusync/logger"
	"github.com/nanoncore/nano-onusync/types"
	"github.com/nanoncore/nano-onusync/vendors/common"
)

// VendorTag is stamped on every V-SOL record
const VendorTag = "vsol"

// onuInfoRE matches one row of the V1600 "show onu info" table:
//
//	Onuindex   Model                Profile                Mode    AuthInfo
//	GPON0/1:1  HG6143D              AN5506-04-F1           sn      FHTT5929E410
var onuInfoRE = regexp.MustCompile(`^\s*(?:GPON)?(\d+/\d+):(\d+)\s+(\S+)\s+(\S+)\s+(\S+)\s+(\S+)\s*$`)

// ParseONUInfo parses "show onu info". Only serial-authenticated ONUs
// carry their serial in the AuthInfo column; others are skipped.
func ParseONUInfo(raw string, log logger.Logger) []types.ONURecord {
	if log == nil {
		log = logger.NewTestLogger()
	}
	now := time.Now()

	var records []types.ONURecord
	for i, line := range common.CleanLines(raw) {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "Onuindex") || strings.HasPrefix(trimmed, "-") {
			continue
		}
		m := onuInfoRE.FindStringSubmatch(line)
		if m == nil {
			log.Debug().Int("line", i+1).Str("text", line).Msg("unmatched line")
			continue
		}

		iface := m[1] + ":" + m[2]
		mode := strings.ToLower(m[5])
		if mode != "sn" {
			log.Warn().Str("onu", iface).Str("auth_mode", mode).Msg("skipping ONU without serial authentication")
			continue
		}
		serial, err := common.NormalizeSerial(m[6])
		if err != nil {
			log.Warn().Err(err).Str("onu", iface).Msg("skipping ONU with malformed serial")
			continue
		}

		d := types.NewDetails()
		d.Set(types.FieldPONInterface, m[1])
		d.Set(types.FieldONUID, m[2])
		d.Set(types.FieldSerialNumber, serial)
		d.Set(types.FieldAuthMode, mode)
		d.SetExtra("model", m[3])
		d.SetExtra("profile", m[4])

		records = append(records, types.ONURecord{
			Identifier: serial,
			Interface:  iface,
			VendorTag:  VendorTag,
			Details:    d,
			LastSeen:   now,
		})
	}
	return records
}
