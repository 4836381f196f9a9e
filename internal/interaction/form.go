package interaction

import (
	"strings"

	"toolview/internal/backend"
)

// Form accumulates the answers for one question batch. Single-select
// questions commit on selection; multi-select questions toggle a set and
// hold the batch open until an explicit submit. A free-text "other" field
// can answer a single-select question or extend a multi-select one.
//
// The form is not safe for concurrent use: the UI loop owns it, and the
// one-shot Submit plus queue removal make a racing double-submit harmless.
type Form struct {
	prompt    backend.QuestionPrompt
	states    []answerState
	submitted bool
}

type answerState struct {
	choice   int          // single-select option index, -1 when none
	selected map[int]bool // multi-select toggles
	other    string
	otherSet bool // single-select: other text has been committed
}

func NewForm(prompt backend.QuestionPrompt) *Form {
	states := make([]answerState, len(prompt.Questions))
	for i := range states {
		states[i] = answerState{choice: -1, selected: make(map[int]bool)}
	}
	return &Form{prompt: prompt, states: states}
}

func (f *Form) ID() string                     { return f.prompt.ID }
func (f *Form) Prompt() backend.QuestionPrompt { return f.prompt }
func (f *Form) Questions() []backend.Question  { return f.prompt.Questions }

// HasMultiSelect reports whether any question in the batch is multi-select;
// such batches never auto-submit.
func (f *Form) HasMultiSelect() bool {
	for _, q := range f.prompt.Questions {
		if q.MultiSelect {
			return true
		}
	}
	return false
}

// SelectOption commits a single-select answer or toggles a multi-select
// one. The return reports whether the whole batch should submit now: every
// question answered and nothing multi-select in the batch.
func (f *Form) SelectOption(question, option int) bool {
	state, q, ok := f.state(question)
	if !ok || option < 0 || option >= len(q.Options) {
		return false
	}
	if q.MultiSelect {
		state.selected[option] = !state.selected[option]
		return false
	}
	state.choice = option
	state.other = ""
	state.otherSet = false
	return f.shouldAutoSubmit()
}

// Selected reports whether an option is currently part of the answer.
func (f *Form) Selected(question, option int) bool {
	state, q, ok := f.state(question)
	if !ok {
		return false
	}
	if q.MultiSelect {
		return state.selected[option]
	}
	return state.choice == option
}

// FocusOther clears a single-select choice: moving into the free-text field
// deselects any previously chosen option.
func (f *Form) FocusOther(question int) {
	state, q, ok := f.state(question)
	if !ok || q.MultiSelect {
		return
	}
	state.choice = -1
}

// SetOther updates the free-text value. Multi-select answers pick it up
// immediately; single-select answers wait for CommitOther.
func (f *Form) SetOther(question int, text string) {
	state, _, ok := f.state(question)
	if !ok {
		return
	}
	state.other = text
}

// Other returns the current free-text value.
func (f *Form) Other(question int) string {
	state, _, ok := f.state(question)
	if !ok {
		return ""
	}
	return state.other
}

// CommitOther commits the trimmed free text as a single-select answer. The
// return reports auto-submit exactly like SelectOption. Committing an empty
// text leaves the question unanswered.
func (f *Form) CommitOther(question int) bool {
	state, q, ok := f.state(question)
	if !ok || q.MultiSelect {
		return false
	}
	trimmed := strings.TrimSpace(state.other)
	state.other = trimmed
	if trimmed == "" {
		state.otherSet = false
		return false
	}
	state.otherSet = true
	state.choice = -1
	return f.shouldAutoSubmit()
}

// Answer derives one question's answer string. Multi-select answers join
// the toggled options in option order and append any free text.
func (f *Form) Answer(question int) (string, bool) {
	state, q, ok := f.state(question)
	if !ok {
		return "", false
	}
	if q.MultiSelect {
		parts := make([]string, 0, len(q.Options)+1)
		for i, opt := range q.Options {
			if state.selected[i] {
				parts = append(parts, opt.Label)
			}
		}
		if other := strings.TrimSpace(state.other); other != "" {
			parts = append(parts, other)
		}
		if len(parts) == 0 {
			return "", false
		}
		return strings.Join(parts, ", "), true
	}
	if state.otherSet && state.other != "" {
		return state.other, true
	}
	if state.choice >= 0 && state.choice < len(q.Options) {
		return q.Options[state.choice].Label, true
	}
	return "", false
}

// AllAnswered reports whether every question in the batch has a non-empty
// answer; the explicit submit control stays disabled until it does.
func (f *Form) AllAnswered() bool {
	for i := range f.prompt.Questions {
		if _, ok := f.Answer(i); !ok {
			return false
		}
	}
	return len(f.prompt.Questions) > 0
}

// Submitted reports whether Submit already fired.
func (f *Form) Submitted() bool { return f.submitted }

// Submit builds the payload keyed by question text, dropping unanswered
// questions. It is one-shot: the second call reports false.
func (f *Form) Submit() (map[string]string, bool) {
	if f.submitted {
		return nil, false
	}
	f.submitted = true
	answers := make(map[string]string, len(f.prompt.Questions))
	for i, q := range f.prompt.Questions {
		if answer, ok := f.Answer(i); ok {
			answers[q.Text] = answer
		}
	}
	return answers, true
}

func (f *Form) shouldAutoSubmit() bool {
	if f.submitted || f.HasMultiSelect() {
		return false
	}
	return f.AllAnswered()
}

func (f *Form) state(question int) (*answerState, backend.Question, bool) {
	if question < 0 || question >= len(f.states) {
		return nil, backend.Question{}, false
	}
	return &f.states[question], f.prompt.Questions[question], true
}
