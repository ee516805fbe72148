// Package strutil holds small string helpers shared across packages.
package strutil

// Truncate shortens s to at most maxLen runes, appending "..." when
// anything was cut. Truncation is rune-based so multi-byte characters
// are never split. maxLen <= 0 returns "".
func Truncate(s string, maxLen int) string {
	if s == "" || maxLen <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen]) + "..."
}
