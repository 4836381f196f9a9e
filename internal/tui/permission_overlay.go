package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/v2/key"
	"github.com/charmbracelet/bubbles/v2/textinput"
	tea "github.com/charmbracelet/bubbletea/v2"
	"github.com/charmbracelet/lipgloss/v2"
	"github.com/charmbracelet/x/ansi"

	"toolview/internal/backend"
	"toolview/internal/display"
	"toolview/internal/interaction"
	"toolview/internal/permission"
	"toolview/internal/toolcall"
	"toolview/internal/tui/styles"
)

type permChoiceKind int

const (
	choiceApprove permChoiceKind = iota
	choicePlanMode
	choiceSuggestion
	choiceDeny
)

// permChoice is one row of the approval menu.
type permChoice struct {
	kind   permChoiceKind
	label  string
	mode   permission.Mode   // choicePlanMode
	update permission.Update // choiceSuggestion
}

// buildPermissionChoices lays out the menu for one request: plain approval
// first, the plan-mode shortcuts for the plan subtype, one row per backend
// suggestion, deny last.
func buildPermissionChoices(req backend.PermissionRequest) []permChoice {
	choices := []permChoice{{kind: choiceApprove, label: "Yes"}}
	if req.IsPlan() {
		for _, mode := range []permission.Mode{permission.ModeDefault, permission.ModeAcceptEdits, permission.ModeBypass} {
			choices = append(choices, permChoice{
				kind:  choicePlanMode,
				label: fmt.Sprintf("Yes, and switch to %s mode", mode.Label()),
				mode:  mode,
			})
		}
	}
	for _, u := range req.Suggestions {
		choices = append(choices, permChoice{
			kind:   choiceSuggestion,
			label:  permission.SuggestionLabel(u),
			update: u,
		})
	}
	choices = append(choices, permChoice{
		kind:  choiceDeny,
		label: "No, and tell the agent what to do differently",
	})
	return choices
}

// permissionOverlay is the approval panel for the head permission request.
// Escape denies with whatever reason text is in the field, from anywhere in
// the panel.
type permissionOverlay struct {
	req     backend.PermissionRequest
	choices []permChoice
	focus   int

	reason        textinput.Model
	reasonFocused bool

	w int
}

func newPermissionOverlay(req backend.PermissionRequest, width int) *permissionOverlay {
	ti := textinput.New()
	ti.Prompt = ""
	ti.Placeholder = "Optional: what should it do instead?"
	ti.CharLimit = 0

	p := &permissionOverlay{
		req:     req,
		choices: buildPermissionChoices(req),
		reason:  ti,
	}
	p.SetWidth(width)
	return p
}

func (p *permissionOverlay) Request() backend.PermissionRequest { return p.req }

func (p *permissionOverlay) SetWidth(width int) {
	p.w = width
	p.reason.SetWidth(max(1, p.boxWidth()-6))
}

func (p *permissionOverlay) boxWidth() int {
	w := p.w - 2
	if w > 100 {
		w = 100
	}
	if w < 30 {
		w = 30
	}
	return w
}

func (p *permissionOverlay) HandleKey(msg tea.KeyPressMsg, coord *interaction.Coordinator) tea.Cmd {
	k := msg.String()

	if p.reasonFocused {
		switch k {
		case "enter", "esc":
			return p.deny(coord)
		default:
			var cmd tea.Cmd
			p.reason, cmd = p.reason.Update(msg)
			return cmd
		}
	}

	switch k {
	case "down", "j", "ctrl+n":
		p.focus = (p.focus + 1) % len(p.choices)
		return nil
	case "up", "k", "ctrl+p":
		p.focus = (p.focus - 1 + len(p.choices)) % len(p.choices)
		return nil
	case "y":
		return p.approve(coord)
	case "a":
		// Approve with the first suggested rule when the backend offered one.
		for _, c := range p.choices {
			if c.kind == choiceSuggestion {
				return p.approveWith(coord, c.update)
			}
		}
		return p.approve(coord)
	case "n":
		p.focusReason()
		return p.reason.Focus()
	case "esc":
		return p.deny(coord)
	case "enter", " ":
		choice := p.choices[p.focus]
		switch choice.kind {
		case choiceApprove:
			return p.approve(coord)
		case choicePlanMode:
			return p.approvePlan(coord, choice.mode)
		case choiceSuggestion:
			return p.approveWith(coord, choice.update)
		case choiceDeny:
			p.focusReason()
			return p.reason.Focus()
		}
	}
	return nil
}

func (p *permissionOverlay) focusReason() {
	p.reasonFocused = true
	for i, c := range p.choices {
		if c.kind == choiceDeny {
			p.focus = i
		}
	}
}

func (p *permissionOverlay) approve(coord *interaction.Coordinator) tea.Cmd {
	id := p.req.ID
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
		defer cancel()
		return actionDoneMsg{err: coord.Approve(ctx, id)}
	}
}

func (p *permissionOverlay) approveWith(coord *interaction.Coordinator, update permission.Update) tea.Cmd {
	id := p.req.ID
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
		defer cancel()
		return actionDoneMsg{err: coord.ApproveWithUpdate(ctx, id, update)}
	}
}

func (p *permissionOverlay) approvePlan(coord *interaction.Coordinator, mode permission.Mode) tea.Cmd {
	id := p.req.ID
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
		defer cancel()
		return actionDoneMsg{err: coord.ApprovePlan(ctx, id, mode)}
	}
}

func (p *permissionOverlay) deny(coord *interaction.Coordinator) tea.Cmd {
	id, reason := p.req.ID, p.reason.Value()
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
		defer cancel()
		return actionDoneMsg{err: coord.Deny(ctx, id, reason)}
	}
}

func (p *permissionOverlay) View() string {
	t := styles.CurrentTheme()
	s := t.S()
	width := p.boxWidth()
	inner := width - 4

	// Reuse the display pipeline so the prompt shows the same summary the
	// tool card will.
	call := toolcall.Call{
		Type:          toolcall.ParseType(p.req.ToolName),
		RawName:       p.req.ToolName,
		Input:         p.req.Input,
		InputComplete: true,
		Status:        toolcall.StatusPending,
	}
	info := display.Extract(call)

	var lines []string
	lines = append(lines, s.Title.Render("Permission needed"))
	summary := info.Action
	if info.Primary != "" {
		summary += " " + info.Primary
	}
	lines = append(lines, ansi.Truncate(s.Text.Render(summary), inner, "…"))

	if plan := p.req.PlanText(); plan != "" {
		lines = append(lines, "")
		lines = append(lines, renderMarkdown(inner, display.Truncate(plan, display.ResultLimit)))
	}
	lines = append(lines, "")

	for i, choice := range p.choices {
		prefix := "  "
		style := s.Muted
		if i == p.focus && !p.reasonFocused {
			prefix = s.Subtitle.Render("❯ ")
			style = s.Text
		}
		lines = append(lines, ansi.Truncate(prefix+style.Render(choice.label), inner, "…"))
	}

	if p.reasonFocused {
		lines = append(lines, "")
		lines = append(lines, p.reason.View())
	}

	box := lipgloss.NewStyle().
		Width(width).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.BorderFocus).
		Padding(0, 1)
	return box.Render(strings.Join(lines, "\n"))
}

var permissionHelpBindings = []key.Binding{
	key.NewBinding(key.WithKeys("y", "enter"), key.WithHelp("enter/y", "approve")),
	key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "approve + rule")),
	key.NewBinding(key.WithKeys("j", "k"), key.WithHelp("j/k", "move")),
	key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "deny with reason")),
	key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "deny")),
}

type permissionHelpKeyMap struct{}

func (permissionHelpKeyMap) ShortHelp() []key.Binding  { return permissionHelpBindings }
func (permissionHelpKeyMap) FullHelp() [][]key.Binding { return [][]key.Binding{permissionHelpBindings} }

func (p *permissionOverlay) HelpKeyMap() permissionHelpKeyMap { return permissionHelpKeyMap{} }
