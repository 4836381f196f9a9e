package tui

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/v2/key"
	"github.com/charmbracelet/bubbles/v2/textinput"
	tea "github.com/charmbracelet/bubbletea/v2"
	"github.com/charmbracelet/lipgloss/v2"
	"github.com/charmbracelet/x/ansi"

	"toolview/internal/interaction"
	"toolview/internal/tui/styles"
)

// questionOverlay renders the head question batch. Every question gets its
// option rows plus a free-text "other" row; a submit row closes the batch.
// Single-select batches usually never reach the submit row because a final
// selection auto-submits through the coordinator.
type questionOverlay struct {
	form *interaction.Form

	qIdx int // focused question
	row  int // focused row within it; len(options) is the other row

	other        textinput.Model
	otherFocused bool
	onSubmitRow  bool

	w int
}

func newQuestionOverlay(form *interaction.Form, width int) *questionOverlay {
	ti := textinput.New()
	ti.Prompt = ""
	ti.Placeholder = "Type your own answer"
	ti.CharLimit = 0

	q := &questionOverlay{form: form, other: ti}
	q.SetWidth(width)
	return q
}

func (q *questionOverlay) Form() *interaction.Form { return q.form }

func (q *questionOverlay) SetWidth(width int) {
	q.w = width
	q.other.SetWidth(max(1, q.boxWidth()-8))
}

func (q *questionOverlay) boxWidth() int {
	w := q.w - 2
	if w > 100 {
		w = 100
	}
	if w < 30 {
		w = 30
	}
	return w
}

func (q *questionOverlay) HandleKey(msg tea.KeyPressMsg, coord *interaction.Coordinator) tea.Cmd {
	k := msg.String()

	if q.otherFocused {
		switch k {
		case "esc":
			return q.cancel(coord)
		case "enter":
			return q.commitOther(coord)
		case "tab", "down":
			q.blurOther()
			q.moveRow(1)
			return nil
		case "up":
			q.blurOther()
			q.moveRow(-1)
			return nil
		default:
			var cmd tea.Cmd
			q.other, cmd = q.other.Update(msg)
			// Multi-select answers track the text live; single-select
			// answers wait for the explicit commit.
			if question, ok := q.currentQuestion(); ok && question.MultiSelect {
				q.form.SetOther(q.qIdx, q.other.Value())
			}
			return cmd
		}
	}

	switch k {
	case "esc":
		return q.cancel(coord)
	case "down", "j":
		q.moveRow(1)
		return nil
	case "up", "k":
		q.moveRow(-1)
		return nil
	case "tab", "right", "l":
		q.moveQuestion(1)
		return nil
	case "shift+tab", "left", "h":
		q.moveQuestion(-1)
		return nil
	case "ctrl+s":
		return q.submit(coord)
	case "enter", " ":
		if q.onSubmitRow {
			return q.submit(coord)
		}
		if q.onOtherRow() {
			return q.focusOther()
		}
		return q.selectOption(coord)
	}
	return nil
}

func (q *questionOverlay) currentQuestion() (questionView, bool) {
	qs := q.form.Questions()
	if q.qIdx < 0 || q.qIdx >= len(qs) {
		return questionView{}, false
	}
	cur := qs[q.qIdx]
	return questionView{MultiSelect: cur.MultiSelect, Options: len(cur.Options)}, true
}

// questionView is the slice of a question the navigation logic needs.
type questionView struct {
	MultiSelect bool
	Options     int
}

func (q *questionOverlay) onOtherRow() bool {
	cur, ok := q.currentQuestion()
	return ok && q.row == cur.Options
}

func (q *questionOverlay) moveRow(step int) {
	if q.onSubmitRow {
		if step < 0 {
			q.onSubmitRow = false
			if cur, ok := q.currentQuestion(); ok {
				q.row = cur.Options
			}
		}
		return
	}
	cur, ok := q.currentQuestion()
	if !ok {
		return
	}
	next := q.row + step
	if next < 0 {
		next = 0
	}
	if next > cur.Options {
		// Past the other row of the last question sits the submit row.
		if q.qIdx == len(q.form.Questions())-1 {
			q.onSubmitRow = true
		}
		return
	}
	q.row = next
}

func (q *questionOverlay) moveQuestion(step int) {
	n := len(q.form.Questions())
	if n == 0 {
		return
	}
	q.onSubmitRow = false
	q.qIdx = ((q.qIdx+step)%n + n) % n
	q.row = 0
	q.blurOther()
}

func (q *questionOverlay) focusOther() tea.Cmd {
	q.otherFocused = true
	// Moving into the free-text field deselects a single-select choice.
	q.form.FocusOther(q.qIdx)
	q.other.SetValue(q.form.Other(q.qIdx))
	q.other.CursorEnd()
	return q.other.Focus()
}

func (q *questionOverlay) blurOther() {
	if !q.otherFocused {
		return
	}
	q.otherFocused = false
	q.other.Blur()
	q.form.SetOther(q.qIdx, q.other.Value())
}

func (q *questionOverlay) selectOption(coord *interaction.Coordinator) tea.Cmd {
	id, question, option := q.form.ID(), q.qIdx, q.row
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
		defer cancel()
		return actionDoneMsg{err: coord.SelectOption(ctx, id, question, option)}
	}
}

func (q *questionOverlay) commitOther(coord *interaction.Coordinator) tea.Cmd {
	q.form.SetOther(q.qIdx, q.other.Value())
	cur, _ := q.currentQuestion()
	if cur.MultiSelect {
		// Multi-select free text is already part of the answer; enter just
		// leaves the field.
		q.blurOther()
		return nil
	}
	q.otherFocused = false
	q.other.Blur()
	id, question := q.form.ID(), q.qIdx
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
		defer cancel()
		return actionDoneMsg{err: coord.CommitOther(ctx, id, question)}
	}
}

func (q *questionOverlay) submit(coord *interaction.Coordinator) tea.Cmd {
	if !q.form.AllAnswered() {
		return nil
	}
	q.blurOther()
	id := q.form.ID()
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
		defer cancel()
		return actionDoneMsg{err: coord.SubmitAnswers(ctx, id)}
	}
}

func (q *questionOverlay) cancel(coord *interaction.Coordinator) tea.Cmd {
	id := q.form.ID()
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
		defer cancel()
		return actionDoneMsg{err: coord.CancelQuestions(ctx, id)}
	}
}

func (q *questionOverlay) View() string {
	t := styles.CurrentTheme()
	s := t.S()
	width := q.boxWidth()
	inner := width - 4

	var lines []string
	for qi, question := range q.form.Questions() {
		if qi > 0 {
			lines = append(lines, "")
		}
		header := question.Header
		if header == "" {
			header = "Question"
		}
		focusedQ := qi == q.qIdx && !q.onSubmitRow
		headStyle := s.Muted
		if focusedQ {
			headStyle = s.Subtitle
		}
		lines = append(lines, ansi.Truncate(headStyle.Render(header), inner, "…"))
		lines = append(lines, ansi.Truncate(s.Text.Render(question.Text), inner, "…"))

		for oi, opt := range question.Options {
			marker := "( )"
			if question.MultiSelect {
				marker = "[ ]"
			}
			if q.form.Selected(qi, oi) {
				if question.MultiSelect {
					marker = "[x]"
				} else {
					marker = "(•)"
				}
			}
			prefix := "  "
			style := s.Muted
			if focusedQ && q.row == oi && !q.otherFocused {
				prefix = s.Subtitle.Render("❯ ")
				style = s.Text
			}
			label := opt.Label
			if opt.Description != "" {
				label += "  " + s.Subtle.Render(opt.Description)
			}
			lines = append(lines, ansi.Truncate(prefix+style.Render(marker+" ")+label, inner, "…"))
		}

		// Other row.
		prefix := "  "
		if focusedQ && q.row == len(question.Options) && !q.otherFocused {
			prefix = s.Subtitle.Render("❯ ")
		}
		if q.otherFocused && focusedQ {
			lines = append(lines, prefix+s.Text.Render("other: ")+q.other.View())
		} else {
			otherText := q.form.Other(qi)
			if otherText == "" {
				otherText = s.Subtle.Render("type your own…")
			}
			lines = append(lines, ansi.Truncate(prefix+s.Muted.Render("other: ")+otherText, inner, "…"))
		}
	}

	// The submit row only matters for batches with a multi-select question;
	// it stays visible either way so the flow reads the same.
	lines = append(lines, "")
	submitStyle := s.Subtle
	label := "[ Submit ]  (answer every question first)"
	if q.form.AllAnswered() {
		label = "[ Submit ]"
		submitStyle = s.Text
	}
	if q.onSubmitRow {
		label = s.Subtitle.Render("❯ ") + submitStyle.Render(label)
	} else {
		label = "  " + submitStyle.Render(label)
	}
	lines = append(lines, ansi.Truncate(label, inner, "…"))

	box := lipgloss.NewStyle().
		Width(width).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.BorderFocus).
		Padding(0, 1)
	return box.Render(strings.Join(lines, "\n"))
}

var questionHelpBindings = []key.Binding{
	key.NewBinding(key.WithKeys("enter", " "), key.WithHelp("enter", "select")),
	key.NewBinding(key.WithKeys("j", "k"), key.WithHelp("j/k", "move")),
	key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next question")),
	key.NewBinding(key.WithKeys("ctrl+s"), key.WithHelp("ctrl+s", "submit")),
	key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel")),
}

type questionHelpKeyMap struct{}

func (questionHelpKeyMap) ShortHelp() []key.Binding  { return questionHelpBindings }
func (questionHelpKeyMap) FullHelp() [][]key.Binding { return [][]key.Binding{questionHelpBindings} }

func (q *questionOverlay) HelpKeyMap() questionHelpKeyMap { return questionHelpKeyMap{} }
