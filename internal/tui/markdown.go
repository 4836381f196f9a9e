package tui

import (
	"strings"

	"github.com/charmbracelet/glamour/v2"

	"toolview/internal/tui/styles"
)

// renderMarkdown renders content with the theme's glamour config, falling
// back to the raw text when the renderer objects.
func renderMarkdown(width int, content string) string {
	if width < 1 {
		width = 1
	}

	renderer, err := glamour.NewTermRenderer(
		glamour.WithStyles(styles.CurrentTheme().S().Markdown),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return strings.TrimSuffix(content, "\n")
	}

	rendered, err := renderer.Render(content)
	if err != nil {
		return strings.TrimSuffix(content, "\n")
	}
	return strings.TrimSuffix(rendered, "\n")
}
