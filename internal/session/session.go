// Package session owns one live conversation. A Session drains the
// backend's canonical event stream on a single goroutine and fans the
// pieces out: tool calls into a toolcall.Store, permission requests and
// question batches into an interaction.Coordinator (after consulting the
// permission rules for an automatic verdict), prose into an ordered
// transcript. Subscribers get coarse change notices and re-read whatever
// state they render.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"toolview/internal/backend"
	"toolview/internal/interaction"
	"toolview/internal/logging"
	"toolview/internal/permission"
	"toolview/internal/pubsub"
	"toolview/internal/toolcall"
)

// ErrClosed is returned when operating on a finished session.
var ErrClosed = errors.New("session closed")

const respondTimeout = 30 * time.Second

// ChangeKind tells subscribers which slice of session state moved.
type ChangeKind int

const (
	// ChangeTranscript fires when messages are appended or updated.
	ChangeTranscript ChangeKind = iota
	// ChangeCalls fires when a tool call changes; CallID names it.
	ChangeCalls
	// ChangeInteraction fires when the permission or question queues move.
	ChangeInteraction
	// ChangeStatus fires on busy, mode, model, or usage updates.
	ChangeStatus
	// ChangeClosed fires once, when the backend stream ends.
	ChangeClosed
)

// Change is the payload published to session subscribers.
type Change struct {
	Kind   ChangeKind
	CallID string
}

// Config wires a session's collaborators.
type Config struct {
	ID    string
	Kind  backend.Kind
	Title string
	Cwd   string
	// Perms carries pre-bound settings scopes; nil gets a fresh store.
	Perms *permission.Store
}

// Session aggregates one conversation's state. All exported methods are
// safe for concurrent use.
type Session struct {
	id   string
	kind backend.Kind

	backend  backend.Session
	calls    *toolcall.Store
	perms    *permission.Store
	interact *interaction.Coordinator
	broker   *pubsub.Broker[Change]
	log      *slog.Logger

	mu        sync.Mutex
	messages  []Message
	textIdx   int // index of the streaming assistant message, -1 when none
	thinkIdx  int
	title     string
	backendID string
	model     string
	cwd       string
	busy      bool
	canceling bool
	closed    bool
	closeErr  error
	usage     backend.Usage

	done chan struct{}
}

// New wraps an already-started backend session and begins draining its
// event stream.
func New(b backend.Session, cfg Config) *Session {
	id := cfg.ID
	if id == "" {
		id = uuid.NewString()
	}
	perms := cfg.Perms
	if perms == nil {
		perms = permission.NewStore()
	}
	s := &Session{
		id:       id,
		kind:     cfg.Kind,
		backend:  b,
		calls:    toolcall.NewStore(),
		perms:    perms,
		broker:   pubsub.NewBroker[Change](),
		log:      logging.With("session", id),
		title:    cfg.Title,
		cwd:      cfg.Cwd,
		textIdx:  -1,
		thinkIdx: -1,
		done:     make(chan struct{}),
	}
	s.interact = interaction.NewCoordinator(b, perms)
	go s.loop()
	return s
}

func (s *Session) loop() {
	defer close(s.done)
	for ev := range s.backend.Events() {
		s.handle(ev)
	}
	// Stream ended without a terminal event: treat as a clean close.
	s.finish(nil)
}

func (s *Session) handle(ev backend.Event) {
	switch ev := ev.(type) {
	case backend.InitEvent:
		s.handleInit(ev)
	case backend.TextEvent:
		s.appendStream(RoleAssistant, ev.Text, ev.Final)
	case backend.ThinkingEvent:
		s.appendStream(RoleThinking, ev.Text, ev.Final)
	case backend.CallEvent:
		s.handleCall(ev.Call)
	case backend.CallDeltaEvent:
		if _, ok := s.calls.AppendInputDelta(ev.ID, ev.Delta); ok {
			s.publish(Change{Kind: ChangeCalls, CallID: ev.ID})
		}
	case backend.CallResultEvent:
		if _, ok := s.calls.Complete(ev.ID, ev.Result); ok {
			s.publish(Change{Kind: ChangeCalls, CallID: ev.ID})
		}
	case backend.PermissionEvent:
		s.handlePermission(ev.Request)
	case backend.PermissionCancelEvent:
		if s.interact.DropPermission(ev.ID) {
			s.publish(Change{Kind: ChangeInteraction})
		}
	case backend.QuestionEvent:
		s.interact.PushQuestions(ev.Prompt)
		s.publish(Change{Kind: ChangeInteraction})
	case backend.QuestionCancelEvent:
		if s.interact.DropQuestions(ev.ID) {
			s.publish(Change{Kind: ChangeInteraction})
		}
	case backend.ModeEvent:
		s.perms.SetMode(ev.Mode)
		s.publish(Change{Kind: ChangeStatus})
	case backend.TurnEvent:
		s.handleTurn(ev)
	case backend.ErrorEvent:
		if ev.Err != nil {
			s.appendMessage(newMessage(RoleError, ev.Err.Error()))
		}
	case backend.ClosedEvent:
		s.finish(ev.Err)
	}
}

func (s *Session) handleInit(ev backend.InitEvent) {
	s.mu.Lock()
	if ev.SessionID != "" {
		s.backendID = ev.SessionID
	}
	if ev.Model != "" {
		s.model = ev.Model
	}
	if ev.Cwd != "" {
		s.cwd = ev.Cwd
	}
	s.mu.Unlock()
	if ev.Mode.Valid() {
		s.perms.SetMode(ev.Mode)
	}
	s.publish(Change{Kind: ChangeStatus})
}

// appendStream folds one prose event into the transcript. Deltas extend
// the current streaming message; a final event replaces it wholesale, so
// backends that re-deliver the full text never double it up.
func (s *Session) appendStream(role Role, text string, final bool) {
	s.mu.Lock()
	idx := &s.textIdx
	if role == RoleThinking {
		idx = &s.thinkIdx
	}
	switch {
	case final && *idx >= 0:
		s.messages[*idx].Text = text
		s.messages[*idx].Streaming = false
		*idx = -1
	case final:
		s.messages = append(s.messages, newMessage(role, text))
	case *idx >= 0:
		s.messages[*idx].Text += text
	default:
		msg := newMessage(role, text)
		msg.Streaming = true
		s.messages = append(s.messages, msg)
		*idx = len(s.messages) - 1
	}
	s.mu.Unlock()
	s.publish(Change{Kind: ChangeTranscript})
}

func (s *Session) handleCall(call toolcall.Call) {
	_, known := s.calls.Get(call.ID)
	stored := s.calls.Ensure(call)
	if stored.ID == "" {
		return
	}
	if !known {
		msg := newMessage(RoleTool, "")
		msg.CallID = stored.ID
		s.appendMessage(msg)
	}
	s.publish(Change{Kind: ChangeCalls, CallID: stored.ID})
}

// handlePermission resolves a request from the rule stores when they have
// a verdict, otherwise queues it for the user.
func (s *Session) handlePermission(req backend.PermissionRequest) {
	switch s.perms.Evaluate(req.ToolName, specifierFor(req.ToolName, req.Input)) {
	case permission.DecisionAllow:
		s.respondAuto(req.ID, backend.PermissionResponse{Approved: true})
	case permission.DecisionDeny:
		s.respondAuto(req.ID, backend.PermissionResponse{DenyReason: "denied by permission rules"})
	default:
		s.interact.PushPermission(req)
		s.publish(Change{Kind: ChangeInteraction})
	}
}

func (s *Session) respondAuto(id string, resp backend.PermissionResponse) {
	ctx, cancel := context.WithTimeout(context.Background(), respondTimeout)
	defer cancel()
	if err := s.backend.RespondPermission(ctx, id, resp); err != nil {
		s.log.Warn("auto permission response failed", "id", id, "error", err)
	}
}

func (s *Session) handleTurn(ev backend.TurnEvent) {
	s.mu.Lock()
	s.busy = !ev.Done
	if ev.Done {
		s.canceling = false
		s.finalizeStreamsLocked()
	}
	if ev.Usage != nil {
		s.usage.InputTokens += ev.Usage.InputTokens
		s.usage.OutputTokens += ev.Usage.OutputTokens
		s.usage.CostUSD += ev.Usage.CostUSD
		s.usage.DurationMS += ev.Usage.DurationMS
	}
	s.mu.Unlock()
	if ev.Done {
		// Calls the turn left unfinished can never complete now.
		for _, id := range s.calls.CancelPending("") {
			s.publish(Change{Kind: ChangeCalls, CallID: id})
		}
	}
	s.publish(Change{Kind: ChangeStatus})
}

func (s *Session) finish(err error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.closeErr = err
	s.busy = false
	s.canceling = false
	s.finalizeStreamsLocked()
	s.mu.Unlock()

	s.calls.CancelPending("session closed")
	s.dropInteractions()
	if err != nil {
		s.appendMessage(newMessage(RoleError, err.Error()))
	}
	s.publish(Change{Kind: ChangeClosed})
}

// finalizeStreamsLocked settles any still-streaming prose; the text
// accumulated so far becomes the message.
func (s *Session) finalizeStreamsLocked() {
	if s.textIdx >= 0 {
		s.messages[s.textIdx].Streaming = false
		s.textIdx = -1
	}
	if s.thinkIdx >= 0 {
		s.messages[s.thinkIdx].Streaming = false
		s.thinkIdx = -1
	}
}

func (s *Session) dropInteractions() {
	changed := false
	for {
		req, ok := s.interact.CurrentPermission()
		if !ok {
			break
		}
		s.interact.DropPermission(req.ID)
		changed = true
	}
	for {
		form, ok := s.interact.CurrentQuestions()
		if !ok {
			break
		}
		s.interact.DropQuestions(form.ID())
		changed = true
	}
	if changed {
		s.publish(Change{Kind: ChangeInteraction})
	}
}

func (s *Session) appendMessage(msg Message) {
	s.mu.Lock()
	s.messages = append(s.messages, msg)
	s.mu.Unlock()
	s.publish(Change{Kind: ChangeTranscript})
}

func (s *Session) publish(c Change) {
	s.broker.Publish(pubsub.UpdatedEvent, c)
}

// Send submits a user prompt and marks the session busy until the turn
// completes.
func (s *Session) Send(ctx context.Context, text string) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	s.finalizeStreamsLocked()
	s.messages = append(s.messages, newMessage(RoleUser, text))
	if s.title == "" {
		s.title = titleFrom(text)
	}
	s.busy = true
	s.mu.Unlock()
	s.publish(Change{Kind: ChangeTranscript})
	s.publish(Change{Kind: ChangeStatus})

	if err := s.backend.Send(ctx, text); err != nil {
		s.mu.Lock()
		s.busy = false
		s.mu.Unlock()
		s.publish(Change{Kind: ChangeStatus})
		return err
	}
	return nil
}

// Interrupt aborts the in-flight turn. Unfinished calls are cancelled
// immediately and pending prompts dropped; the backend confirms with its
// own turn-end event.
func (s *Session) Interrupt(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	s.canceling = true
	s.mu.Unlock()
	s.publish(Change{Kind: ChangeStatus})

	err := s.backend.Interrupt(ctx)
	for _, id := range s.calls.CancelPending("interrupted") {
		s.publish(Change{Kind: ChangeCalls, CallID: id})
	}
	s.dropInteractions()
	return err
}

// SetMode switches the permission mode locally and on the backend.
func (s *Session) SetMode(ctx context.Context, mode permission.Mode) error {
	if !mode.Valid() {
		return fmt.Errorf("invalid permission mode %q", mode)
	}
	s.perms.SetMode(mode)
	s.publish(Change{Kind: ChangeStatus})
	return s.backend.SetPermissionMode(ctx, mode)
}

// CycleMode advances to the next permission mode and returns it.
func (s *Session) CycleMode(ctx context.Context) (permission.Mode, error) {
	next := s.perms.Mode().Next()
	return next, s.SetMode(ctx, next)
}

// Close terminates the backend and waits for the event loop to drain.
func (s *Session) Close() error {
	err := s.backend.Close()
	<-s.done
	s.calls.Shutdown()
	s.broker.Shutdown()
	return err
}

// Subscribe returns a channel of change notices. The subscription ends
// when ctx is done or the session closes.
func (s *Session) Subscribe(ctx context.Context) <-chan pubsub.Event[Change] {
	return s.broker.Subscribe(ctx)
}

// Done is closed once the backend stream has fully drained.
func (s *Session) Done() <-chan struct{} { return s.done }

func (s *Session) ID() string                             { return s.id }
func (s *Session) Kind() backend.Kind                     { return s.kind }
func (s *Session) Calls() *toolcall.Store                 { return s.calls }
func (s *Session) Permissions() *permission.Store         { return s.perms }
func (s *Session) Interactions() *interaction.Coordinator { return s.interact }

// Title returns the session title, derived from the first prompt when
// not set explicitly.
func (s *Session) Title() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.title
}

// BackendID returns the backend-assigned session identifier used for
// resuming, "" until the init event arrives.
func (s *Session) BackendID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.backendID
}

func (s *Session) Model() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.model
}

func (s *Session) Cwd() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cwd
}

// Busy reports whether a turn is in flight.
func (s *Session) Busy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.busy
}

// Canceling reports whether an interrupt is awaiting confirmation.
func (s *Session) Canceling() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.canceling
}

// Closed reports whether the stream ended, and with what error.
func (s *Session) Closed() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed, s.closeErr
}

// Usage returns the running token and cost totals across turns.
func (s *Session) Usage() backend.Usage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.usage
}

// Messages returns a snapshot of the transcript in arrival order.
func (s *Session) Messages() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// specifierFor extracts the rule-matching argument for a tool, mirroring
// the settings rule grammar: shell tools match on the command line, file
// tools on the path, web tools on the target.
func specifierFor(toolName string, input map[string]any) string {
	switch toolcall.ParseType(toolName) {
	case toolcall.TypeBash:
		return toolcall.StringField(input, "command")
	case toolcall.TypeRead, toolcall.TypeWrite, toolcall.TypeEdit, toolcall.TypeMultiEdit:
		return toolcall.StringField(input, "file_path")
	case toolcall.TypeNotebookEdit:
		return toolcall.StringField(input, "notebook_path")
	case toolcall.TypeWebFetch:
		return toolcall.StringField(input, "url")
	case toolcall.TypeWebSearch:
		return toolcall.StringField(input, "query")
	case toolcall.TypeGrep, toolcall.TypeGlob:
		return toolcall.StringField(input, "pattern")
	default:
		return ""
	}
}
