package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea/v2"
	"github.com/charmbracelet/x/ansi"

	"toolview/internal/bridge"
	"toolview/internal/display"
	"toolview/internal/session"
	"toolview/internal/toolcall"
	"toolview/internal/tui/ansiext"
	"toolview/internal/tui/highlight"
	"toolview/internal/tui/styles"
)

// detailOverlay is the full-screen view of one tool call. Opening it is the
// "show more" of the card previews: the complete text, no truncation, plus
// the bridge hooks for leaving the terminal (open file, external diff,
// rendered markdown).
type detailOverlay struct {
	sess   *session.Session
	callID string

	scroll int
	w, h   int
}

func newDetailOverlay(sess *session.Session, callID string, w, h int) *detailOverlay {
	return &detailOverlay{sess: sess, callID: callID, w: w, h: h}
}

func (d *detailOverlay) SetSize(w, h int) {
	d.w, d.h = w, h
}

// HandleKey processes one key. The second return reports the overlay
// closing.
func (d *detailOverlay) HandleKey(k string, host bridge.Bridge) (tea.Cmd, bool) {
	call, ok := d.sess.Calls().Get(d.callID)
	if !ok {
		return nil, true
	}
	switch k {
	case "esc", "q", "enter":
		return nil, true
	case "j", "down":
		d.scroll++
	case "k", "up":
		d.scroll--
		if d.scroll < 0 {
			d.scroll = 0
		}
	case "pgdown":
		d.scroll += d.h / 2
	case "pgup":
		d.scroll -= d.h / 2
		if d.scroll < 0 {
			d.scroll = 0
		}
	case "g":
		d.scroll = 0
	case "y", "c":
		return copyCallOutput(d.callID, d.sess), false
	case "o":
		openInHost(call, host)
	case "d":
		showDiffInHost(call, host)
	case "m":
		if preview, kind := display.Preview(call); kind == display.ContentMarkdown && preview != "" {
			host.ShowMarkdown(display.ResultText(call), call.Name())
		}
	}
	return nil, false
}

// openInHost hands the call's file target to the host, with the read
// offset when the tool declared one.
func openInHost(call toolcall.Call, host bridge.Bridge) {
	switch call.Type {
	case toolcall.TypeRead:
		params, ok := call.ReadParams()
		if !ok {
			return
		}
		opts := bridge.OpenOptions{}
		if params.Offset > 0 {
			opts.Line = params.Offset
			opts.EndLine = params.Offset + params.Limit
		}
		host.OpenFile(params.FilePath, opts)
	case toolcall.TypeWrite:
		host.OpenFile(call.WriteParams().FilePath, bridge.OpenOptions{})
	case toolcall.TypeEdit:
		host.OpenFile(call.EditParams().FilePath, bridge.OpenOptions{})
	case toolcall.TypeMultiEdit:
		host.OpenFile(call.MultiEditParams().FilePath, bridge.OpenOptions{})
	}
}

// showDiffInHost sends an edit's before/after to the host differ.
func showDiffInHost(call toolcall.Call, host bridge.Bridge) {
	switch call.Type {
	case toolcall.TypeEdit:
		params := call.EditParams()
		host.ShowDiff(params.FilePath, params.OldString, params.NewString, []bridge.Edit{{
			OldString:  params.OldString,
			NewString:  params.NewString,
			ReplaceAll: params.ReplaceAll,
		}})
	case toolcall.TypeMultiEdit:
		params := call.MultiEditParams()
		edits := make([]bridge.Edit, 0, len(params.Edits))
		for _, e := range params.Edits {
			edits = append(edits, bridge.Edit{OldString: e.OldString, NewString: e.NewString, ReplaceAll: e.ReplaceAll})
		}
		if call.Result != nil && call.Result.Kind == toolcall.ResultFileEdit {
			host.ShowDiff(params.FilePath, call.Result.OldContent, call.Result.NewContent, edits)
		} else if len(edits) > 0 {
			host.ShowDiff(params.FilePath, edits[0].OldString, edits[0].NewString, edits)
		}
	}
}

func (d *detailOverlay) View() string {
	s := styles.CurrentTheme().S()
	width := d.w
	if width < 10 {
		width = 10
	}

	call, ok := d.sess.Calls().Get(d.callID)
	if !ok {
		return s.Err.Render("tool call is gone")
	}
	info := display.Extract(call)

	title := fmt.Sprintf("%s %s", info.Action, info.Primary)
	header := ansi.Truncate(s.Title.Render(strings.TrimSpace(title)), width, "…")
	meta := info.Secondary
	if badges := lineBadges(info); badges != "" {
		if meta != "" {
			meta += "  "
		}
		meta += badges
	}

	var body []string
	if call.InputJSON() != "" {
		input := call.InputJSON()
		if colored, err := highlight.SyntaxHighlight(input, "input.json"); err == nil {
			input = colored
		}
		body = append(body, s.Muted.Render("input"), input, "")
	}
	if info.ErrorMessage != "" {
		body = append(body, s.Err.Render(ansiext.Escape(info.ErrorMessage)), "")
	}
	if full := display.ResultText(call); full != "" {
		_, kind := display.Preview(call)
		switch kind {
		case display.ContentMarkdown:
			full = renderMarkdown(width, full)
		case display.ContentJSON:
			if colored, err := highlight.SyntaxHighlight(full, "result.json"); err == nil {
				full = colored
			}
		default:
			full = ansiext.Escape(full)
		}
		body = append(body, full)
	}

	lines := strings.Split(strings.Join(body, "\n"), "\n")
	for i := range lines {
		lines[i] = ansi.Truncate(lines[i], width, "…")
	}

	viewHeight := d.h - 3 // header, meta, help
	if viewHeight < 1 {
		viewHeight = 1
	}
	maxScroll := len(lines) - viewHeight
	if maxScroll < 0 {
		maxScroll = 0
	}
	if d.scroll > maxScroll {
		d.scroll = maxScroll
	}
	end := d.scroll + viewHeight
	if end > len(lines) {
		end = len(lines)
	}
	visible := lines[d.scroll:end]
	for len(visible) < viewHeight {
		visible = append(visible, "")
	}

	helpLine := s.Subtle.Render("esc close · j/k scroll · y copy · o open file · d diff · m markdown")
	out := []string{header, ansi.Truncate(s.Muted.Render(meta), width, "…")}
	out = append(out, visible...)
	out = append(out, ansi.Truncate(helpLine, width, "…"))
	return strings.Join(out, "\n")
}
