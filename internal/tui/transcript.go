package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/x/ansi"

	"toolview/internal/session"
	"toolview/internal/tui/ansiext"
	"toolview/internal/tui/styles"
)

// renderTranscript draws the conversation as a column of blocks and keeps
// the viewport pinned to the bottom unless the user scrolled up.
func (m *Model) renderTranscript(height int) string {
	width := m.w
	if width < 10 {
		width = 10
	}

	ids := m.callIDs()
	focusedIdx := -1
	if !m.inputFocused && len(ids) > 0 {
		focusedIdx = m.focusCall
		if focusedIdx < 0 || focusedIdx >= len(ids) {
			focusedIdx = len(ids) - 1
		}
	}

	var blocks []string
	callNo := 0
	for _, msg := range m.sess.Messages() {
		block := m.renderMessage(msg, width, callNo == focusedIdx && msg.Role == session.RoleTool)
		if msg.Role == session.RoleTool {
			callNo++
		}
		if block != "" {
			blocks = append(blocks, block)
		}
	}

	lines := strings.Split(strings.Join(blocks, "\n\n"), "\n")
	if len(blocks) == 0 {
		lines = []string{styles.CurrentTheme().S().Subtle.Render("Send a prompt to get started.")}
	}

	// Clamp the scroll so pgup past the top lands on the first line.
	maxScroll := len(lines) - height
	if maxScroll < 0 {
		maxScroll = 0
	}
	if m.scroll > maxScroll {
		m.scroll = maxScroll
	}
	end := len(lines) - m.scroll
	start := end - height
	if start < 0 {
		start = 0
	}
	visible := lines[start:end]

	for len(visible) < height {
		visible = append(visible, "")
	}
	return strings.Join(visible, "\n")
}

func (m *Model) renderMessage(msg session.Message, width int, focused bool) string {
	s := styles.CurrentTheme().S()
	switch msg.Role {
	case session.RoleUser:
		prompt := s.Subtitle.Render("❯ ")
		var out []string
		for i, line := range strings.Split(strings.TrimSuffix(msg.Text, "\n"), "\n") {
			prefix := prompt
			if i > 0 {
				prefix = "  "
			}
			out = append(out, ansi.Truncate(prefix+s.Text.Render(ansiext.Escape(line)), width, "…"))
		}
		return strings.Join(out, "\n")

	case session.RoleAssistant:
		text := msg.Text
		if msg.Streaming {
			text += " ▌"
		}
		return renderMarkdown(width, text)

	case session.RoleThinking:
		// Reasoning stays collapsed: one muted line, full text in the log.
		label := "thinking…"
		if !msg.Streaming && msg.Text != "" {
			label = fmt.Sprintf("thought for a moment (%d lines)", strings.Count(msg.Text, "\n")+1)
		}
		return s.Subtle.Render("✱ " + label)

	case session.RoleTool:
		call, ok := m.sess.Calls().Get(msg.CallID)
		if !ok {
			return ""
		}
		return renderToolCall(call, width, focused)

	case session.RoleError:
		return ansi.Truncate(s.Err.Render("✗ "+ansiext.Escape(firstLine(msg.Text))), width, "…")

	default:
		return ""
	}
}

// tokenSummary compacts token counts for the header: 1.2k↑ 15k↓.
func tokenSummary(in, out int) string {
	return fmt.Sprintf("%s↑ %s↓", compactCount(in), compactCount(out))
}

func compactCount(n int) string {
	switch {
	case n >= 1_000_000:
		return fmt.Sprintf("%.1fM", float64(n)/1_000_000)
	case n >= 10_000:
		return fmt.Sprintf("%dk", n/1000)
	case n >= 1_000:
		return fmt.Sprintf("%.1fk", float64(n)/1000)
	default:
		return fmt.Sprintf("%d", n)
	}
}
