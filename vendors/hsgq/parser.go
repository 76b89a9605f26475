package hsgq

import (
	"regexp"
	"strings"
	"time"

	"github.com/nanoncore/nano-onusync/logger"
	"github.com/nanoncore/nano-onusync/types"
	"github.com/nanoncore/nano-onusync/vendors/common"
)

// Vendor tags stamped on records.
const (
	VendorTag     = "hsgq"
	EPONSNMPTag   = "hsgq_epon"
	notApplicable = "N/A"
)

var (
	// 0/1  HWTC1A2B3C4D  41 C  3.28 V  12.50 mA  2.31 dBm  -21.55 dBm  cust-0001
	gponOpticalRE = regexp.MustCompile(`(\d+/\d+)\s+(\S+)\s+(-?\d+)\s+C\s+([\d.]+)\s+V\s+([\d.]+)\s+mA\s+([\d.\-]+)\s+dBm\s+([\d.\-]+)\s+dBm\s+(\S+)`)

	// 0/3  e0:67:b3:01:02:03  Online  TRUE  TRUE  2024/05/01 10:11:12  onu-3  lantai-2
	eponInfoRE = regexp.MustCompile(`(\d+/\d+)\s+([0-9a-fA-F:]{17})\s+(Online|Offline)\s+(TRUE|FALSE)\s+(TRUE|FALSE)\s+(\d{4}/\d{2}/\d{2}\s+\d{2}:\d{2}:\d{2})\s+(\S+)\s+(\S+)`)

	// 0/3  onu-3  e0:67:b3:01:02:03  38 °C  3.30 V  11 mA  2.05 dBm  -19.87 dBm
	eponOpticalRE = regexp.MustCompile(`(\d+/\d+)\s+(\S+)\s+([0-9a-fA-F:]+)\s+(-?\d+)\s*(?:°\s*)?C\s+([\d.]+)\s+V\s+([\d.]+)\s+mA\s+([\d.\-]+)\s+dBm\s+([\d.\-]+)\s+dBm`)
)

func lines(raw string) []string {
	var out []string
	for _, l := range common.CleanLines(raw) {
		if strings.TrimSpace(l) != "" {
			out = append(out, l)
		}
	}
	return out
}

func orNop(log logger.Logger) logger.Logger {
	if log == nil {
		return logger.NewTestLogger()
	}
	return log
}

// ParseGPONOptical parses "show ont-optical all". Records are keyed by
// the normalized ONT serial.
func ParseGPONOptical(raw string, log logger.Logger) []types.ONURecord {
	log = orNop(log)
	now := time.Now()

	var records []types.ONURecord
	for _, line := range lines(raw) {
		m := gponOpticalRE.FindStringSubmatch(line)
		if m == nil {
			log.Debug().Str("text", line).Msg("unmatched line")
			continue
		}
		sn, err := common.NormalizeSerial(m[2])
		if err != nil {
			log.Warn().Err(err).Str("onu", m[1]).Msg("skipping ONT with unusable serial")
			continue
		}

		d := types.NewDetails()
		d.Set(types.FieldPONInterface, m[1])
		d.Set(types.FieldSerialNumber, sn)
		d.SetExtra("ont_sn", m[2])
		d.Set(types.FieldTemperature, m[3]+" C")
		d.Set(types.FieldVoltage, m[4]+" V")
		d.Set(types.FieldBias, m[5]+" mA")
		d.Set(types.FieldTxPower, m[6]+" dBm")
		d.Set(types.FieldRxPower, m[7]+" dBm")
		d.Set(types.FieldName, m[8])

		records = append(records, types.ONURecord{
			Identifier: sn,
			Interface:  m[1],
			VendorTag:  VendorTag,
			Details:    d,
			LastSeen:   now,
		})
	}
	return records
}

// ParseEPONInfo parses "show onu-info all". Records are keyed by MAC.
func ParseEPONInfo(raw string, log logger.Logger) []types.ONURecord {
	log = orNop(log)
	now := time.Now()

	var records []types.ONURecord
	for _, line := range lines(raw) {
		m := eponInfoRE.FindStringSubmatch(line)
		if m == nil {
			log.Debug().Str("text", line).Msg("unmatched line")
			continue
		}
		mac, err := common.NormalizeMAC(m[2])
		if err != nil {
			log.Warn().Err(err).Str("onu", m[1]).Msg("skipping ONU with malformed MAC")
			continue
		}

		d := types.NewDetails()
		d.Set(types.FieldPONInterface, m[1])
		d.Set(types.FieldMACAddress, mac)
		d.Set(types.FieldStatus, m[3])
		d.SetExtra("auth", m[4])
		d.SetExtra("cfg", m[5])
		d.Set(types.FieldRegisteredAt, m[6])
		d.Set(types.FieldName, m[7])
		d.Set(types.FieldDescription, m[8])

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

// OpticalReading is one row of "show optical-diag".
type OpticalReading struct {
	MAC     string
	Details types.Details
}

// ParseEPONOptical parses "show optical-diag <port>".
func ParseEPONOptical(raw string, log logger.Logger) []OpticalReading {
	log = orNop(log)

	var readings []OpticalReading
	for _, line := range lines(raw) {
		m := eponOpticalRE.FindStringSubmatch(line)
		if m == nil {
			log.Debug().Str("text", line).Msg("unmatched line")
			continue
		}
		mac, err := common.NormalizeMAC(m[3])
		if err != nil {
			log.Debug().Err(err).Str("onu", m[1]).Msg("optical row without usable MAC")
			continue
		}

		d := types.NewDetails()
		d.Set(types.FieldPONInterface, m[1])
		d.Set(types.FieldName, m[2])
		d.Set(types.FieldMACAddress, mac)
		d.Set(types.FieldTemperature, m[4]+" C")
		d.Set(types.FieldVoltage, m[5]+" V")
		d.Set(types.FieldBias, m[6]+" mA")
		d.Set(types.FieldTxPower, m[7]+" dBm")
		d.Set(types.FieldRxPower, m[8]+" dBm")
		readings = append(readings, OpticalReading{MAC: mac, Details: d})
	}
	return readings
}

// mergeOptical copies optical readings into the records with the same MAC.
// Fields the record already has are kept, except the optical ones.
func mergeOptical(records []types.ONURecord, readings []OpticalReading) int {
	byMAC := make(map[string]int, len(records))
	for i, r := range records {
		byMAC[r.Identifier] = i
	}

	merged := 0
	for _, rd := range readings {
		i, ok := byMAC[rd.MAC]
		if !ok {
			continue
		}
		d := &records[i].Details
		d.Merge(opticalOnly(rd.Details))
		if _, ok := d.Get(types.FieldName); !ok {
			if v, ok := rd.Details.Get(types.FieldName); ok {
				d.Set(types.FieldName, v)
			}
		}
		merged++
	}
	return merged
}

var opticalFields = []types.Field{
	types.FieldTemperature, types.FieldVoltage, types.FieldBias, types.FieldTxPower, types.FieldRxPower,
}

func opticalOnly(d types.Details) types.Details {
	out := types.NewDetails()
	for _, f := range opticalFields {
		if v, ok := d.Get(f); ok {
			out.Set(f, v)
		}
	}
	return out
}
