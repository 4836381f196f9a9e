package tui

import "github.com/charmbracelet/bubbles/v2/key"

type keyMap struct {
	Help        key.Binding
	Quit        key.Binding
	Newline     key.Binding
	Interrupt   key.Binding
	CycleMode   key.Binding
	ToggleFocus key.Binding
	PrevCall    key.Binding
	NextCall    key.Binding
	OpenDetail  key.Binding
	Copy        key.Binding
	CopyReply   key.Binding
}

// dynamicKeyMap surfaces only the bindings that apply to the current
// focus state in the help bar.
type dynamicKeyMap struct {
	km            keyMap
	inputFocused  bool
	cancelVisible bool
}

func (d dynamicKeyMap) ShortHelp() []key.Binding {
	var keys []key.Binding
	if d.cancelVisible {
		keys = append(keys, d.km.Interrupt)
	}
	keys = append(keys, d.km.CycleMode)
	if d.inputFocused {
		keys = append(keys, d.km.Newline, d.km.ToggleFocus, d.km.Quit)
		return keys
	}
	keys = append(keys, d.km.PrevCall, d.km.NextCall, d.km.OpenDetail, d.km.Copy, d.km.CopyReply, d.km.ToggleFocus, d.km.Quit)
	return keys
}

func (d dynamicKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{d.ShortHelp()}
}

var defaultKeys = keyMap{
	Help: key.NewBinding(
		key.WithKeys("?"),
		key.WithHelp("?", "toggle help"),
	),
	Quit: key.NewBinding(
		key.WithKeys("ctrl+c"),
		key.WithHelp("ctrl+c", "quit"),
	),
	Newline: key.NewBinding(
		key.WithKeys("ctrl+j"),
		key.WithHelp("ctrl+j", "new line"),
	),
	Interrupt: key.NewBinding(
		key.WithKeys("esc"),
		key.WithHelp("esc", "interrupt"),
	),
	CycleMode: key.NewBinding(
		key.WithKeys("shift+tab"),
		key.WithHelp("shift+tab", "permission mode"),
	),
	ToggleFocus: key.NewBinding(
		key.WithKeys("tab"),
		key.WithHelp("tab", "toggle focus"),
	),
	PrevCall: key.NewBinding(
		key.WithKeys("k", "up"),
		key.WithHelp("k", "prev tool"),
	),
	NextCall: key.NewBinding(
		key.WithKeys("j", "down"),
		key.WithHelp("j", "next tool"),
	),
	OpenDetail: key.NewBinding(
		key.WithKeys("enter", "o"),
		key.WithHelp("enter", "details"),
	),
	Copy: key.NewBinding(
		key.WithKeys("y", "c"),
		key.WithHelp("y", "copy output"),
	),
	CopyReply: key.NewBinding(
		key.WithKeys("ctrl+y"),
		key.WithHelp("ctrl+y", "copy reply"),
	),
}
