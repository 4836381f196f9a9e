package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/x/ansi"

	"toolview/internal/display"
	"toolview/internal/toolcall"
	"toolview/internal/tui/ansiext"
	"toolview/internal/tui/highlight"
	"toolview/internal/tui/styles"
)

// previewBodyLines caps how many lines of output a card shows inline;
// the detail overlay has the rest.
const previewBodyLines = 8

var iconGlyphs = map[string]string{
	"file":      "▤",
	"pencil":    "✎",
	"terminal":  "❯",
	"search":    "⌕",
	"globe":     "◍",
	"agent":     "◆",
	"checklist": "☑",
	"question":  "?",
	"plan":      "▧",
	"slash":     "/",
	"plug":      "◇",
	"sparkle":   "✦",
	"thought":   "…",
	"tool":      "⚙",
}

func glyphFor(icon string) string {
	if g, ok := iconGlyphs[icon]; ok {
		return g
	}
	return iconGlyphs["tool"]
}

// renderToolCall draws one tool invocation as a card: a status dot, the
// action and its target, line badges, then a short body preview. The card
// is re-derived from the call on every render.
func renderToolCall(call toolcall.Call, width int, focused bool) string {
	if width < 10 {
		width = 10
	}
	s := styles.CurrentTheme().S()
	info := display.Extract(call)

	var dot string
	switch info.State {
	case display.StateSuccess:
		dot = s.Ok.Render("●")
	case display.StateError:
		dot = s.Err.Render("●")
	default:
		dot = s.Subtle.Render("●")
	}

	action := s.Title.Render(info.Action)
	if focused {
		action = s.Subtitle.Render(info.Action)
	}

	title := fmt.Sprintf("%s %s %s", dot, s.Muted.Render(glyphFor(info.Icon)), action)
	if info.Primary != "" {
		title += " " + s.Text.Render(firstLine(info.Primary))
	}
	if badges := lineBadges(info); badges != "" {
		title += " " + badges
	}
	if info.InputLoading {
		title += " " + s.Subtle.Render("(reading input…)")
	}
	lines := []string{ansi.Truncate(title, width, "…")}

	if info.Secondary != "" {
		lines = append(lines, "  "+ansi.Truncate(s.Muted.Render(firstLine(info.Secondary)), width-2, "…"))
	}

	for _, line := range cardBody(call, width-2) {
		lines = append(lines, "  "+line)
	}

	if info.ErrorMessage != "" {
		msg := ansiext.Escape(firstLine(info.ErrorMessage))
		lines = append(lines, "  "+ansi.Truncate(s.Err.Render(msg), width-2, "…"))
	}

	return strings.Join(lines, "\n")
}

// lineBadges renders the mutually-exclusive line counts: ± for edits, a
// single count for reads.
func lineBadges(info display.Info) string {
	s := styles.CurrentTheme().S()
	switch {
	case info.AddedLines != nil && info.RemovedLines != nil:
		return s.Added.Render(fmt.Sprintf("+%d", *info.AddedLines)) + " " +
			s.Removed.Render(fmt.Sprintf("-%d", *info.RemovedLines))
	case info.AddedLines != nil:
		return s.Added.Render(fmt.Sprintf("+%d", *info.AddedLines))
	case info.ReadLines != nil:
		return s.Muted.Render(fmt.Sprintf("%d lines", *info.ReadLines))
	default:
		return ""
	}
}

// cardBody renders the per-type preview under the title line.
func cardBody(call toolcall.Call, width int) []string {
	switch call.Type {
	case toolcall.TypeEdit:
		params := call.EditParams()
		diff, _, _ := display.DiffStats(params.FilePath, params.OldString, params.NewString)
		return diffLines(diff, width)
	case toolcall.TypeMultiEdit:
		params := call.MultiEditParams()
		var out []string
		for _, edit := range params.Edits {
			diff, _, _ := display.DiffStats(params.FilePath, edit.OldString, edit.NewString)
			out = append(out, diffLines(diff, width)...)
			if len(out) >= previewBodyLines {
				break
			}
		}
		return clampLines(out, width)
	case toolcall.TypeWrite:
		params := call.WriteParams()
		if params.Content == "" {
			return nil
		}
		preview := display.Truncate(params.Content, display.PreviewLimit)
		if colored, err := highlight.SyntaxHighlight(preview, params.FilePath); err == nil {
			preview = colored
		}
		return clampLines(strings.Split(strings.TrimSuffix(preview, "\n"), "\n"), width)
	default:
		return resultLines(call, width)
	}
}

// resultLines previews the result text, honoring the sniffed content kind.
func resultLines(call toolcall.Call, width int) []string {
	if call.Result == nil {
		return nil
	}
	preview, kind := display.Preview(call)
	if strings.TrimSpace(preview) == "" {
		return nil
	}
	switch kind {
	case display.ContentMarkdown:
		preview = renderMarkdown(width, preview)
	case display.ContentJSON:
		if colored, err := highlight.SyntaxHighlight(preview, "result.json"); err == nil {
			preview = colored
		}
	default:
		preview = ansiext.Escape(preview)
	}
	return clampLines(strings.Split(strings.TrimSuffix(preview, "\n"), "\n"), width)
}

// diffLines colors a unified diff body, dropping the file header.
func diffLines(diff string, width int) []string {
	if strings.TrimSpace(diff) == "" {
		return nil
	}
	s := styles.CurrentTheme().S()
	var out []string
	for _, line := range strings.Split(strings.TrimSuffix(diff, "\n"), "\n") {
		switch {
		case strings.HasPrefix(line, "+++"), strings.HasPrefix(line, "---"):
			continue
		case strings.HasPrefix(line, "@@"):
			out = append(out, s.Subtle.Render(ansi.Truncate(line, width, "…")))
		case strings.HasPrefix(line, "+"):
			out = append(out, s.Added.Render(ansi.Truncate(ansiext.Escape(line), width, "…")))
		case strings.HasPrefix(line, "-"):
			out = append(out, s.Removed.Render(ansi.Truncate(ansiext.Escape(line), width, "…")))
		default:
			out = append(out, s.Muted.Render(ansi.Truncate(ansiext.Escape(line), width, "…")))
		}
	}
	return clampLines(out, width)
}

// clampLines caps the body at previewBodyLines, noting how much is left.
func clampLines(lines []string, width int) []string {
	for i, line := range lines {
		lines[i] = ansi.Truncate(line, width, "…")
	}
	if len(lines) <= previewBodyLines {
		return lines
	}
	s := styles.CurrentTheme().S()
	hidden := len(lines) - previewBodyLines
	out := append([]string{}, lines[:previewBodyLines]...)
	out = append(out, s.Subtle.Render(fmt.Sprintf("… %d more lines (enter for details)", hidden)))
	return out
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
