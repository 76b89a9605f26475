package common

import (
	"regexp"
	"strings"
)

// ansiRegex matches ANSI escape sequences (colors, cursor movement, etc.)
var ansiRegex = regexp.MustCompile(`\x1b\[[0-9;?]*[a-zA-Z]`)

// controlRegex matches C0 control characters and DEL.
var controlRegex = regexp.MustCompile(`[\x00-\x1F\x7F]`)

// PagerRegex matches the pagination banners OLT shells print while holding
// back output, e.g. "--More--", " --More-- " or
// "--- Press Enter Or Space To Continue ---".
var PagerRegex = regexp.MustCompile(`(?i)-+\s*\(?\s*(?:more|press enter or space to continue)\s*\)?\s*-+`)

// StripANSI removes ANSI escape codes from a string.
func StripANSI(s string) string {
	return ansiRegex.ReplaceAllString(s, "")
}

// StripControl removes control characters from a single line. Tabs become
// spaces so column separation survives.
func StripControl(s string) string {
	s = strings.ReplaceAll(s, "\t", " ")
	return controlRegex.ReplaceAllString(s, "")
}

// StripPager removes every pagination banner from s.
func StripPager(s string) string {
	return PagerRegex.ReplaceAllString(s, "")
}

// CleanLines splits raw shell output into lines with escape sequences,
// pager banners and control characters removed.
func CleanLines(raw string) []string {
	raw = StripANSI(raw)
	raw = StripPager(raw)
	raw = strings.ReplaceAll(raw, "\r\n", "\n")
	raw = strings.ReplaceAll(raw, "\r", "\n")

	parts := strings.Split(raw, "\n")
	lines := make([]string, 0, len(parts))
	for _, p := range parts {
		lines = append(lines, StripControl(p))
	}
	return lines
}
