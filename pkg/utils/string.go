// Package utils provides common utility functions.
package utils

import (
	"strings"

	"github.com/mattn/go-runewidth"
)

// StandardOutputPath derives the default output path for a converted file.
// A trailing sourceExt is replaced by suffix + "." + format; otherwise the
// suffix and extension are appended.
func StandardOutputPath(input, sourceExt, suffix, format string) string {
	target := suffix + "." + format

	if sourceExt != "" && strings.HasSuffix(input, sourceExt) {
		return strings.TrimSuffix(input, sourceExt) + target
	}

	return input + target
}

// TruncateString cuts str to maxWidth display columns and marks the cut with
// "...". Multibyte characters are never split.
func TruncateString(str string, maxWidth int) string {
	if runewidth.StringWidth(str) <= maxWidth {
		return str
	}

	return runewidth.Truncate(str, maxWidth, "") + "..."
}
