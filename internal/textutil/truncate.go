package textutil

import "strings"

const ellipsis = "..."

// TruncateWithEllipsis caps text at maxLength runes, replacing the tail with
// "..." when the text is too long. Lengths are counted in runes so multi-byte
// characters and emoji are not split mid-sequence.
func TruncateWithEllipsis(text string, maxLength int) string {
	if maxLength <= 0 {
		return ""
	}
	runes := []rune(text)
	if len(runes) <= maxLength {
		return text
	}
	if maxLength <= len(ellipsis) {
		return strings.Repeat(".", maxLength)
	}
	return strings.TrimSpace(string(runes[:maxLength-len(ellipsis)])) + ellipsis
}

// RuneLength returns the length of text in runes.
func RuneLength(text string) int {
	return len([]rune(text))
}
