package hsgq

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nanoncore/nano-onusync/logger"
	"github.com/nanoncore/nano-onusync/types"
)

const gponOptical = "show ont-optical all\r\n" +
	"PON/ONU  ONT-SN        Temp   Voltage  Bias      Tx-Power   Rx-Power    ONT-Name\r\n" +
	"0/1      hwtc1a2b3c4d  41 C   3.28 V   12.50 mA  2.31 dBm   -21.55 dBm  cust-0001\r\n" +
	"0/2      ZTEG00001111  39 C   3.30 V   10.00 mA  2.05 dBm   -19.87 dBm  cust_0002/b\r\n" +
	"0/3      N/A           0 C    0.00 V   0.00 mA   0.00 dBm   0.00 dBm    offline\r\n" +
	"OLT(config)# "

func TestParseGPONOptical(t *testing.T) {
	recs := ParseGPONOptical(gponOptical, nil)
	require.Len(t, recs, 2)

	r := recs[0]
	assert.Equal(t, "HWTC1A2B3C4D", r.Identifier)
	assert.Equal(t, "0/1", r.Interface)
	assert.Equal(t, VendorTag, r.VendorTag)

	want := map[types.Field]string{
		types.FieldSerialNumber: "HWTC1A2B3C4D",
		types.FieldTemperature:  "41 C",
		types.FieldVoltage:      "3.28 V",
		types.FieldBias:         "12.50 mA",
		types.FieldTxPower:      "2.31 dBm",
		types.FieldRxPower:      "-21.55 dBm",
		types.FieldName:         "cust-0001",
	}
	for f, v := range want {
		got, _ := r.Details.Get(f)
		assert.Equal(t, v, got, "field %s", f)
	}
	assert.Equal(t, "hwtc1a2b3c4d", r.Details.Extra["ont_sn"])

	name, _ := recs[1].Details.Get(types.FieldName)
	assert.Equal(t, "cust_0002/b", name)
}

const eponInfo = "show onu-info all\r\n" +
	"PON/ONU  MAC                Status   Auth  Cfg   Reg-time             ONU-Name  ONU-Desc\r\n" +
	"0/3      E0:67:B3:01:02:03  Online   TRUE  TRUE  2024/05/01 10:11:12  onu-3     lantai-2\r\n" +
	"--More--\r\n" +
	"0/4      e0:67:b3:01:02:04  Offline  TRUE  FALSE 2024/05/02 08:00:00  onu-4     gudang\r\n" +
	"MSNet_Fiber(config)# "

func TestParseEPONInfo(t *testing.T) {
	recs := ParseEPONInfo(eponInfo, nil)
	require.Len(t, recs, 2)

	r := recs[0]
	assert.Equal(t, "e0:67:b3:01:02:03", r.Identifier)
	assert.Equal(t, "0/3", r.Interface)

	want := map[types.Field]string{
		types.FieldPONInterface: "0/3",
		types.FieldMACAddress:   "e0:67:b3:01:02:03",
		types.FieldStatus:       "Online",
		types.FieldRegisteredAt: "2024/05/01 10:11:12",
		types.FieldName:         "onu-3",
		types.FieldDescription:  "lantai-2",
	}
	for f, v := range want {
		got, _ := r.Details.Get(f)
		assert.Equal(t, v, got, "field %s", f)
	}
	assert.Equal(t, "TRUE", r.Details.Extra["auth"])
	assert.Equal(t, "TRUE", r.Details.Extra["cfg"])
	assert.Equal(t, "FALSE", recs[1].Details.Extra["cfg"])
}

const eponOptical = "show optical-diag 3\r\n" +
	"PON/ONU  ONU-Name  MAC                Temp    Voltage  Bias   Tx-Power  Rx-Power\r\n" +
	"0/3      onu-3     e0:67:b3:01:02:03  38 °C   3.30 V   11 mA  2.05 dBm  -19.87 dBm\r\n" +
	"0/9      onu-9     e0:67:b3:01:02:09  40 C    3.31 V   9 mA   1.95 dBm  -23.10 dBm\r\n" +
	"MSNet_Fiber(config)# "

func TestParseEPONOptical(t *testing.T) {
	readings := ParseEPONOptical(eponOptical, nil)
	require.Len(t, readings, 2)

	assert.Equal(t, "e0:67:b3:01:02:03", readings[0].MAC)
	temp, _ := readings[0].Details.Get(types.FieldTemperature)
	assert.Equal(t, "38 C", temp)
	bias, _ := readings[0].Details.Get(types.FieldBias)
	assert.Equal(t, "11 mA", bias)
	rx, _ := readings[1].Details.Get(types.FieldRxPower)
	assert.Equal(t, "-23.10 dBm", rx)
}

func TestMergeOptical(t *testing.T) {
	recs := ParseEPONInfo(eponInfo, nil)
	merged := mergeOptical(recs, ParseEPONOptical(eponOptical, nil))
	assert.Equal(t, 1, merged, "reading for an unknown MAC is ignored")

	rx, ok := recs[0].Details.Get(types.FieldRxPower)
	assert.True(t, ok)
	assert.Equal(t, "-19.87 dBm", rx)
	name, _ := recs[0].Details.Get(types.FieldName)
	assert.Equal(t, "onu-3", name)

	_, ok = recs[1].Details.Get(types.FieldRxPower)
	assert.False(t, ok)
}

func TestParsersLogUnmatchedLines(t *testing.T) {
	const junk = "% Unknown command\r\nOLT(config)# "
	tests := []struct {
		name  string
		parse func(string, logger.Logger) int
	}{
		{"gpon optical", func(raw string, log logger.Logger) int { return len(ParseGPONOptical(raw, log)) }},
		{"epon info", func(raw string, log logger.Logger) int { return len(ParseEPONInfo(raw, log)) }},
		{"epon optical", func(raw string, log logger.Logger) int { return len(ParseEPONOptical(raw, log)) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			n := tt.parse(junk, logger.NewWithWriter(&buf, zerolog.DebugLevel))
			assert.Zero(t, n)
			assert.Equal(t, 2, strings.Count(buf.String(), "unmatched line"))
			assert.Contains(t, buf.String(), "Unknown command")
		})
	}
}
