package tui

import (
	"context"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/v2/help"
	"github.com/charmbracelet/bubbles/v2/spinner"
	tea "github.com/charmbracelet/bubbletea/v2"
	"github.com/charmbracelet/lipgloss/v2"
	"github.com/charmbracelet/x/ansi"

	"toolview/internal/bridge"
	"toolview/internal/display"
	"toolview/internal/history"
	"toolview/internal/logging"
	"toolview/internal/pubsub"
	"toolview/internal/session"
	"toolview/internal/timeutil"
	"toolview/internal/tui/styles"
)

const actionTimeout = 30 * time.Second

// changeMsg forwards one session change notice into the event loop.
type changeMsg struct {
	change session.Change
}

// streamEndedMsg reports the subscription channel closing.
type streamEndedMsg struct{}

// actionDoneMsg reports an async session action (send, interrupt, mode
// switch, interaction resolution) finishing.
type actionDoneMsg struct {
	err error
}

// Model is the root of the terminal program: one session, its transcript,
// and at most one overlay at a time.
type Model struct {
	ctx    context.Context
	sess   *session.Session
	store  *history.Store
	host   bridge.Bridge
	events <-chan pubsub.Event[session.Change]

	w, h int

	input *promptInput
	help  help.Model
	spin  spinner.Model
	keys  keyMap

	inputFocused bool
	// focusCall indexes the transcript's tool entries; -1 follows the
	// newest card.
	focusCall int
	// scroll counts lines lifted above the bottom of the transcript.
	scroll int

	perm   *permissionOverlay
	quest  *questionOverlay
	detail *detailOverlay

	errLine string
}

func newModel(ctx context.Context, sess *session.Session, store *history.Store, host bridge.Bridge) *Model {
	s := styles.CurrentTheme().S()
	h := help.New()
	h.Styles = s.Help

	sp := spinner.New(spinner.WithSpinner(spinner.MiniDot))

	input := newPromptInput()
	if store != nil {
		input.SetHistory(recentInputs(ctx, store))
	}

	return &Model{
		ctx:          ctx,
		sess:         sess,
		store:        store,
		host:         host,
		events:       sess.Subscribe(ctx),
		input:        input,
		help:         h,
		spin:         sp,
		keys:         defaultKeys,
		inputFocused: true,
		focusCall:    -1,
	}
}

// recentInputs seeds prompt recall from the most recently touched session.
func recentInputs(ctx context.Context, store *history.Store) []string {
	recs, err := store.ListSessions(ctx)
	if err != nil || len(recs) == 0 {
		return nil
	}
	inputs, err := store.ListInputs(ctx, recs[0].ID)
	if err != nil {
		return nil
	}
	return inputs
}

func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.input.Focus(), m.spin.Tick, m.waitChange())
}

// waitChange blocks on the next session change notice. The command is
// re-issued after every delivery so the subscription never stalls.
func (m *Model) waitChange() tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-m.events
		if !ok {
			return streamEndedMsg{}
		}
		return changeMsg{change: ev.Payload}
	}
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.w, m.h = msg.Width, msg.Height
		m.input.SetWidth(msg.Width)
		if m.perm != nil {
			m.perm.SetWidth(msg.Width)
		}
		if m.quest != nil {
			m.quest.SetWidth(msg.Width)
		}
		if m.detail != nil {
			m.detail.SetSize(msg.Width, msg.Height)
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case changeMsg:
		if msg.change.Kind == session.ChangeInteraction {
			return m, tea.Batch(m.syncOverlays(), m.waitChange())
		}
		return m, m.waitChange()

	case streamEndedMsg:
		if _, err := m.sess.Closed(); err != nil {
			m.errLine = err.Error()
		}
		return m, nil

	case actionDoneMsg:
		if msg.err != nil {
			m.errLine = msg.err.Error()
		}
		return m, m.syncOverlays()

	case tea.KeyPressMsg:
		return m, m.handleKey(msg)
	}
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyPressMsg) tea.Cmd {
	key := msg.String()

	// Overlays own the keyboard while visible, detail view first.
	if m.detail != nil {
		cmd, closed := m.detail.HandleKey(key, m.host)
		if closed {
			m.detail = nil
		}
		return cmd
	}
	if m.perm != nil {
		return m.perm.HandleKey(msg, m.sess.Interactions())
	}
	if m.quest != nil {
		return m.quest.HandleKey(msg, m.sess.Interactions())
	}

	switch key {
	case "ctrl+c":
		return tea.Quit
	case "tab":
		m.toggleFocus()
		if m.inputFocused {
			return m.input.Focus()
		}
		return nil
	case "shift+tab":
		return m.cycleMode()
	case "esc":
		if m.sess.Busy() {
			return m.interrupt()
		}
		return nil
	case "pgup":
		m.scroll += m.bodyHeight() / 2
		return nil
	case "pgdown":
		m.scroll -= m.bodyHeight() / 2
		if m.scroll < 0 {
			m.scroll = 0
		}
		return nil
	case "ctrl+y":
		return m.copyLastReply()
	}

	if m.inputFocused {
		if key == "enter" {
			return m.sendPrompt()
		}
		return m.input.Update(tea.Msg(msg))
	}

	switch key {
	case "k", "up":
		m.moveFocusCall(-1)
	case "j", "down":
		m.moveFocusCall(1)
	case "enter", "o":
		if id, ok := m.focusedCallID(); ok {
			m.detail = newDetailOverlay(m.sess, id, m.w, m.h)
		}
	case "y", "c":
		if id, ok := m.focusedCallID(); ok {
			return copyCallOutput(id, m.sess)
		}
	}
	return nil
}

func (m *Model) toggleFocus() {
	m.inputFocused = !m.inputFocused
	if m.inputFocused {
		m.focusCall = -1
	} else {
		m.input.Blur()
		if ids := m.callIDs(); len(ids) > 0 && m.focusCall < 0 {
			m.focusCall = len(ids) - 1
		}
	}
}

func (m *Model) moveFocusCall(step int) {
	ids := m.callIDs()
	if len(ids) == 0 {
		return
	}
	next := m.focusCall + step
	if next < 0 {
		next = 0
	}
	if next >= len(ids) {
		next = len(ids) - 1
	}
	m.focusCall = next
}

// callIDs lists the transcript's tool entries in arrival order.
func (m *Model) callIDs() []string {
	var ids []string
	for _, msg := range m.sess.Messages() {
		if msg.Role == session.RoleTool && msg.CallID != "" {
			ids = append(ids, msg.CallID)
		}
	}
	return ids
}

func (m *Model) focusedCallID() (string, bool) {
	ids := m.callIDs()
	if len(ids) == 0 {
		return "", false
	}
	idx := m.focusCall
	if idx < 0 || idx >= len(ids) {
		idx = len(ids) - 1
	}
	return ids[idx], true
}

// copyCallOutput writes the call's full result text to the clipboard.
// Failures are logged, never surfaced (the clipboard is best effort).
func copyCallOutput(callID string, sess *session.Session) tea.Cmd {
	return func() tea.Msg {
		call, ok := sess.Calls().Get(callID)
		if !ok {
			return nil
		}
		if err := clipboard.WriteAll(display.ResultText(call)); err != nil {
			logging.Warn("clipboard write failed", "call", callID, "error", err)
		}
		return nil
	}
}

// copyLastReply puts the newest finished assistant message on the clipboard.
func (m *Model) copyLastReply() tea.Cmd {
	msgs := m.sess.Messages()
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role != session.RoleAssistant || msgs[i].Streaming || msgs[i].Text == "" {
			continue
		}
		text := msgs[i].Text
		return func() tea.Msg {
			if err := clipboard.WriteAll(text); err != nil {
				logging.Warn("clipboard write failed", "error", err)
			}
			return nil
		}
	}
	return nil
}

func (m *Model) sendPrompt() tea.Cmd {
	text := strings.TrimSpace(m.input.Value())
	if text == "" || m.sess.Busy() {
		return nil
	}
	m.input.Push(text)
	m.input.Reset()
	m.errLine = ""
	m.scroll = 0

	sess, store := m.sess, m.store
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
		defer cancel()
		if store != nil {
			if err := store.AddInput(ctx, sess.ID(), text); err != nil {
				logging.Warn("recording prompt history", "error", err)
			}
		}
		return actionDoneMsg{err: sess.Send(ctx, text)}
	}
}

func (m *Model) interrupt() tea.Cmd {
	sess := m.sess
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
		defer cancel()
		return actionDoneMsg{err: sess.Interrupt(ctx)}
	}
}

func (m *Model) cycleMode() tea.Cmd {
	sess := m.sess
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
		defer cancel()
		_, err := sess.CycleMode(ctx)
		return actionDoneMsg{err: err}
	}
}

// syncOverlays makes the visible overlays track the interaction queue
// heads: a resolved or cancelled item gives way to the next buffered one.
// A permission prompt takes precedence over a question batch.
func (m *Model) syncOverlays() tea.Cmd {
	coord := m.sess.Interactions()

	if req, ok := coord.CurrentPermission(); ok {
		if m.perm == nil || m.perm.Request().ID != req.ID {
			m.perm = newPermissionOverlay(req, m.w)
		}
	} else {
		m.perm = nil
	}

	if form, ok := coord.CurrentQuestions(); ok {
		if m.quest == nil || m.quest.Form().ID() != form.ID() {
			m.quest = newQuestionOverlay(form, m.w)
		}
	} else {
		m.quest = nil
	}

	if m.perm != nil || m.quest != nil {
		m.input.Blur()
		return nil
	}
	if m.inputFocused {
		return m.input.Focus()
	}
	return nil
}

func (m *Model) bodyHeight() int {
	// Header, input, and help each take one band of the screen.
	h := m.h - 1 - inputHeight - 1
	if overlay := m.overlayView(); overlay != "" {
		h -= lipgloss.Height(overlay)
	}
	if m.errLine != "" {
		h--
	}
	if h < 1 {
		h = 1
	}
	return h
}

func (m *Model) overlayView() string {
	switch {
	case m.perm != nil:
		return m.perm.View()
	case m.quest != nil:
		return m.quest.View()
	default:
		return ""
	}
}

func (m *Model) View() string {
	if m.w == 0 || m.h == 0 {
		return ""
	}
	if m.detail != nil {
		return m.detail.View()
	}
	s := styles.CurrentTheme().S()

	var parts []string
	parts = append(parts, m.renderHeader())
	parts = append(parts, m.renderTranscript(m.bodyHeight()))
	if overlay := m.overlayView(); overlay != "" {
		parts = append(parts, overlay)
	}
	if m.errLine != "" {
		parts = append(parts, ansi.Truncate(s.Err.Render(m.errLine), m.w, "…"))
	}
	parts = append(parts, m.input.View())
	parts = append(parts, m.renderHelp())
	return strings.Join(parts, "\n")
}

func (m *Model) renderHeader() string {
	t := styles.CurrentTheme()
	s := t.S()

	name := styles.ApplyBoldForegroundGrad("toolview", t.Primary, t.Secondary)
	var fields []string
	fields = append(fields, string(m.sess.Kind()))
	if model := m.sess.Model(); model != "" {
		fields = append(fields, model)
	}
	fields = append(fields, m.sess.Permissions().Mode().Label())
	if usage := m.sess.Usage(); usage.InputTokens+usage.OutputTokens > 0 {
		fields = append(fields, tokenSummary(usage.InputTokens, usage.OutputTokens))
	}
	if usage := m.sess.Usage(); usage.DurationMS > 0 {
		fields = append(fields, timeutil.FormatDuration(time.Duration(usage.DurationMS)*time.Millisecond))
	}

	status := ""
	switch {
	case m.sess.Canceling():
		status = " " + s.Err.Render("interrupting…")
	case m.sess.Busy():
		status = " " + m.spin.View() + s.Muted.Render(" working")
	}

	line := name + "  " + s.Muted.Render(strings.Join(fields, " · ")) + status
	if title := m.sess.Title(); title != "" {
		line += "  " + s.Subtle.Render(title)
	}
	return ansi.Truncate(line, m.w, "…")
}

func (m *Model) renderHelp() string {
	if m.perm != nil {
		return m.help.View(m.perm.HelpKeyMap())
	}
	if m.quest != nil {
		return m.help.View(m.quest.HelpKeyMap())
	}
	return m.help.View(dynamicKeyMap{
		km:            m.keys,
		inputFocused:  m.inputFocused,
		cancelVisible: m.sess.Busy(),
	})
}
