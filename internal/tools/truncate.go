package tools

import (
	"fmt"
	"unicode/utf8"
)

// Truncate bounds text to limit characters. Oversized text is cut on a rune
// boundary and followed by a marker stating the original size.
func Truncate(text string, limit int) string {
	total := utf8.RuneCountInString(text)
	if limit <= 0 || total <= limit {
		return text
	}
	cut := 0
	for i := range text {
		if cut == limit {
			return text[:i] + TruncationMarker(limit, total)
		}
		cut++
	}
	return text
}

// TruncationMarker is appended wherever model-facing text was shortened.
func TruncationMarker(shown, total int) string {
	return fmt.Sprintf("\n[truncated: showing %d of %d characters, %d omitted]", shown, total, total-shown)
}
