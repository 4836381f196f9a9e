package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/v2/key"
	"github.com/charmbracelet/bubbles/v2/textarea"
	tea "github.com/charmbracelet/bubbletea/v2"

	"toolview/internal/tui/styles"
)

const inputHeight = 3

// promptInput wraps the textarea with recall of previously sent prompts.
// Up and down browse history only while the draft is a single line, the
// way shells do it.
type promptInput struct {
	ta      *textarea.Model
	history []string
	histIdx int
	draft   string // the unsent text stashed while browsing history
}

func newPromptInput() *promptInput {
	ta := textarea.New()
	ta.Prompt = "┃ "
	ta.Placeholder = "Ask anything. Enter sends, ctrl+j for a new line."
	ta.ShowLineNumbers = false
	ta.CharLimit = 0
	ta.SetHeight(inputHeight - 1)
	ta.SetStyles(styles.CurrentTheme().S().TextArea)
	// Enter is reserved for submit; ctrl+j inserts the newline.
	ta.KeyMap.InsertNewline = key.NewBinding(key.WithKeys("ctrl+j"))

	return &promptInput{ta: ta}
}

func (p *promptInput) SetHistory(entries []string) {
	p.history = entries
	p.histIdx = len(entries)
}

// Push records a sent prompt and resets browsing.
func (p *promptInput) Push(text string) {
	if strings.TrimSpace(text) == "" {
		return
	}
	if n := len(p.history); n == 0 || p.history[n-1] != text {
		p.history = append(p.history, text)
	}
	p.histIdx = len(p.history)
	p.draft = ""
}

func (p *promptInput) SetWidth(w int) {
	if w < 4 {
		w = 4
	}
	p.ta.SetWidth(w - 2)
}

func (p *promptInput) Focus() tea.Cmd  { return p.ta.Focus() }
func (p *promptInput) Blur()           { p.ta.Blur() }
func (p *promptInput) Focused() bool   { return p.ta.Focused() }
func (p *promptInput) Value() string   { return p.ta.Value() }
func (p *promptInput) View() string    { return p.ta.View() }

func (p *promptInput) Reset() {
	p.ta.SetValue("")
	p.draft = ""
	p.histIdx = len(p.history)
}

// Update handles history browsing first and hands everything else to the
// textarea.
func (p *promptInput) Update(msg tea.Msg) tea.Cmd {
	if keyMsg, ok := msg.(tea.KeyMsg); ok && p.ta.Focused() && p.ta.LineCount() <= 1 {
		switch keyMsg.String() {
		case "up":
			if p.browse(-1) {
				return nil
			}
		case "down":
			if p.browse(1) {
				return nil
			}
		}
	}
	var cmd tea.Cmd
	p.ta, cmd = p.ta.Update(msg)
	return cmd
}

func (p *promptInput) browse(step int) bool {
	if len(p.history) == 0 {
		return false
	}
	next := p.histIdx + step
	if next < 0 || next > len(p.history) {
		return false
	}
	if p.histIdx == len(p.history) {
		p.draft = p.ta.Value()
	}
	p.histIdx = next
	// SetValue leaves the cursor at the end of the inserted text.
	if next == len(p.history) {
		p.ta.SetValue(p.draft)
	} else {
		p.ta.SetValue(p.history[next])
	}
	return true
}
