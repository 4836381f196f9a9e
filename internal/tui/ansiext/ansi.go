// Package ansiext keeps untrusted tool output from corrupting the TUI.
package ansiext

import (
	"strings"

	"github.com/charmbracelet/x/ansi"
)

// Escape replaces control characters with their Unicode control-picture
// representations so raw command output renders safely inside a card.
// Newlines and tabs survive; tabs become four spaces.
func Escape(content string) string {
	var sb strings.Builder
	sb.Grow(len(content))
	for _, r := range content {
		switch {
		case r == '\n':
			sb.WriteRune(r)
		case r == '\t':
			sb.WriteString("    ")
		case r >= 0 && r <= 0x1f:
			sb.WriteRune('␀' + r)
		case r == ansi.DEL:
			sb.WriteRune('␡')
		default:
			sb.WriteRune(r)
		}
	}
	return sb.String()
}
