package common

import (
	"strings"
	"testing"
)

func TestStripANSI(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "empty string", input: "", want: ""},
		{name: "no ANSI codes", input: "Hello, World!", want: "Hello, World!"},
		{name: "red text", input: "\x1b[31mError\x1b[0m", want: "Error"},
		{name: "cursor movement", input: "\x1b[2J\x1b[HHello", want: "Hello"},
		{name: "private mode", input: "\x1b[?25lEPON#", want: "EPON#"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StripANSI(tt.input); got != tt.want {
				t.Errorf("StripANSI(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestStripControl(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "plain", input: "1/1:3 ok", want: "1/1:3 ok"},
		{name: "backspaces and bell", input: "\b\b\b\a1/1:3", want: "1/1:3"},
		{name: "tab becomes space", input: "a\tb", want: "a b"},
		{name: "nul and del", input: "x\x00y\x7fz", want: "xyz"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StripControl(tt.input); got != tt.want {
				t.Errorf("StripControl(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestStripPager(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "hsgq more", input: "a\r\n--More--b", want: "a\r\nb"},
		{name: "spaced more", input: "a -- More -- b", want: "a  b"},
		{name: "hioso banner", input: "x--- Press Enter Or Space To Continue ---y", want: "xy"},
		{name: "parenthesised", input: "--(more)--z", want: "z"},
		{name: "plain dashes kept", input: "-------", want: "-------"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StripPager(tt.input); got != tt.want {
				t.Errorf("StripPager(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestCleanLines(t *testing.T) {
	raw := "line1\r\n\x1b[1mline2\x1b[0m\r\n--More--\b\b\b\b\b\b\b\bline3\rline4"
	got := CleanLines(raw)
	want := []string{"line1", "line2", "line3", "line4"}

	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Errorf("CleanLines() = %q, want %q", got, want)
	}
}
