package common

import "testing"

func TestParseIntSNMPValue(t *testing.T) {
	tests := []struct {
		name   string
		value  interface{}
		want   int64
		wantOK bool
	}{
		{name: "nil", value: nil, want: 0, wantOK: false},
		{name: "int", value: 42, want: 42, wantOK: true},
		{name: "uint32", value: uint32(7), want: 7, wantOK: true},
		{name: "decimal string", value: " -1234 ", want: -1234, wantOK: true},
		{name: "bad string", value: "abc", want: 0, wantOK: false},
		{name: "bytes", value: []byte{1}, want: 0, wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseIntSNMPValue(tt.value)
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("ParseIntSNMPValue(%v) = %d, %v, want %d, %v", tt.value, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestParseStringSNMPValue(t *testing.T) {
	if got, ok := ParseStringSNMPValue([]byte("ONU-1")); !ok || got != "ONU-1" {
		t.Errorf("ParseStringSNMPValue([]byte) = %q, %v", got, ok)
	}
	if _, ok := ParseStringSNMPValue(5); ok {
		t.Error("ParseStringSNMPValue(int) should fail")
	}
}

func TestIsPrintable(t *testing.T) {
	if !IsPrintable([]byte("HWTC 1234\r\n")) {
		t.Error("text reported as binary")
	}
	if IsPrintable([]byte{0x98, 0xc7, 0x00}) {
		t.Error("binary reported as text")
	}
}

func TestStatusText(t *testing.T) {
	tests := map[string]string{
		"1":  StatusOnline,
		"2":  StatusOffline,
		" 1": StatusOnline,
		"3":  StatusUnknown,
		"":   StatusUnknown,
	}
	for in, want := range tests {
		if got := StatusText(in); got != want {
			t.Errorf("StatusText(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestCentiUnit(t *testing.T) {
	tests := []struct {
		raw     string
		want    string
		wantErr bool
	}{
		{raw: "-1234", want: "-12.34 dBm"},
		{raw: "250", want: "2.50 dBm"},
		{raw: "0", want: "0.00 dBm"},
		{raw: "n/a", wantErr: true},
	}

	for _, tt := range tests {
		got, err := CentiUnit(tt.raw, "dBm")
		if (err != nil) != tt.wantErr {
			t.Fatalf("CentiUnit(%q) error = %v", tt.raw, err)
		}
		if got != tt.want {
			t.Errorf("CentiUnit(%q) = %q, want %q", tt.raw, got, tt.want)
		}
	}
}
