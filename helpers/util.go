package helpers

import (
	"strings"
	"unicode/utf8"
)

// NonEmptyLines splits text on newlines and returns the trimmed, non-empty lines
func NonEmptyLines(text string) []string {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

// Truncate cuts s to at most n runes
func Truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

// GetSplitPart returns the index-th part of target split on separate, or "" when out of range
func GetSplitPart(target string, separate string, index int) string {
	parts := strings.Split(target, separate)
	if index < 0 || index >= len(parts) {
		return ""
	}
	return parts[index]
}
