package audit

import "regexp"

// ansiEscape matches all ANSI/VT escape sequences and 8-bit C1 control
// characters so device tool output (adb/idevice* stdout and stderr often
// carry color codes) can be stripped before it's stored for the dashboard.
//
// Patterns covered:
//   - CSI sequences:   ESC [ <params> <final-byte>   (colors, cursor movement, …)
//   - OSC sequences:   ESC ] … BEL  or  ESC ] … ESC \
//   - DCS/APC/PM/SOS: ESC P|_|^|X … ESC \
//   - Simple 2-char:   ESC <any single char>
//   - Lone ESC byte
//   - 8-bit C1 control codes (0x80–0x9F)
var ansiEscape = regexp.MustCompile(
	// CSI  ESC [ params final-byte
	`\x1b\[[0-?]*[ -/]*[@-~]` +
		// OSC  ESC ] ... BEL or ST
		`|\x1b\][^\x07\x1b]*(?:\x07|\x1b\\)` +
		// DCS / APC / PM / SOS  ESC P|_|^|X ... ST
		`|\x1b[P_\^X][^\x1b]*(?:\x1b\\)` +
		// Simple 2-char escape sequences  ESC <char>  (not already matched above)
		`|\x1b[^[\]PX_\^]` +
		// Lone ESC byte (unmatched)
		`|\x1b` +
		// 8-bit C1 control codes
		`|[\x80-\x9f]`,
)

// stripANSI removes all ANSI escape sequences from s.
func stripANSI(s string) string {
	return ansiEscape.ReplaceAllString(s, "")
}
