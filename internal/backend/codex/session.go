// Package codex drives the alternate backend CLI and adapts its item
// vocabulary onto the canonical call shape. Unlike the claude backend it has
// no interactive control plane: each prompt runs one subprocess to
// completion, permissions are enforced by the sandbox flags the process is
// launched with, and the thread id carries context across turns.
package codex

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"sync"

	"toolview/internal/backend"
	"toolview/internal/logging"
	"toolview/internal/permission"
	"toolview/internal/toolcall"
)

// ErrTurnActive is returned by Send while a previous turn is still running.
var ErrTurnActive = errors.New("turn already in progress")

// ErrNoPending is returned for interactive protocols this backend does not
// speak.
var ErrNoPending = errors.New("no pending request")

// Options configure a session. Command.Path defaults to "codex"; Args are
// extra flags appended to every turn.
type Options struct {
	Command backend.Command
	Model   string
	Resume  string
	Mode    permission.Mode
}

type Session struct {
	opts   Options
	events chan backend.Event

	mu       sync.Mutex
	proc     *backend.Process
	threadID string
	mode     permission.Mode

	wg        sync.WaitGroup
	quit      chan struct{}
	closeOnce sync.Once
	log       *slog.Logger
}

func NewSession(opts Options) *Session {
	if opts.Command.Path == "" {
		opts.Command.Path = "codex"
	}
	mode := opts.Mode
	if !mode.Valid() {
		mode = permission.ModeDefault
	}
	return &Session{
		opts:     opts,
		events:   make(chan backend.Event, 100),
		threadID: opts.Resume,
		mode:     mode,
		quit:     make(chan struct{}),
		log:      logging.With("backend", "codex"),
	}
}

func (s *Session) Events() <-chan backend.Event {
	return s.events
}

// Send spawns one subprocess for the prompt. The turn ends when the process
// exits; context carries over through the resumed thread id.
func (s *Session) Send(ctx context.Context, text string) error {
	s.mu.Lock()
	if s.proc != nil {
		s.mu.Unlock()
		return ErrTurnActive
	}
	cmd := s.opts.Command
	cmd.Args = s.turnArgs(text)
	proc, err := backend.StartProcess(cmd)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	s.proc = proc
	s.mu.Unlock()

	s.wg.Add(1)
	go s.pump(proc)
	return nil
}

func (s *Session) turnArgs(text string) []string {
	args := []string{"exec", "--json", "--skip-git-repo-check"}
	if s.threadID != "" {
		args = []string{"exec", "resume", s.threadID, "--json", "--skip-git-repo-check"}
	}
	switch s.mode {
	case permission.ModePlan:
		args = append(args, "--sandbox", "read-only")
	case permission.ModeBypass:
		args = append(args, "--dangerously-bypass-approvals-and-sandbox")
	default:
		args = append(args, "--full-auto")
	}
	if s.opts.Model != "" {
		args = append(args, "--model", s.opts.Model)
	}
	args = append(args, s.opts.Command.Args...)
	return append(args, text)
}

func (s *Session) pump(proc *backend.Process) {
	defer s.wg.Done()
	turnDone := false
	for line := range proc.Lines() {
		var ev wireEvent
		if err := json.Unmarshal(line, &ev); err != nil {
			s.log.Debug("skipping malformed line", "err", err)
			continue
		}
		for _, out := range s.translate(ev) {
			if turn, ok := out.(backend.TurnEvent); ok && turn.Done {
				turnDone = true
			}
			s.emit(out)
		}
	}

	err := proc.ExitErr()
	s.mu.Lock()
	if s.proc == proc {
		s.proc = nil
	}
	s.mu.Unlock()

	if err != nil {
		s.log.Warn("turn process exited with error", "err", err)
		s.emit(backend.ErrorEvent{Err: err})
	}
	if !turnDone {
		s.emit(backend.TurnEvent{Done: true})
	}
}

func (s *Session) emit(ev backend.Event) {
	select {
	case s.events <- ev:
	case <-s.quit:
	}
}

func (s *Session) translate(ev wireEvent) []backend.Event {
	switch ev.Type {
	case evThreadStarted:
		s.mu.Lock()
		s.threadID = ev.ThreadID
		mode := s.mode
		s.mu.Unlock()
		return []backend.Event{backend.InitEvent{
			SessionID: ev.ThreadID,
			Model:     s.opts.Model,
			Cwd:       s.opts.Command.Dir,
			Mode:      mode,
		}}
	case evTurnCompleted:
		return []backend.Event{backend.TurnEvent{Done: true, Usage: usageOf(ev.Usage)}}
	case evTurnFailed:
		var events []backend.Event
		if ev.Error != nil && ev.Error.Message != "" {
			events = append(events, backend.ErrorEvent{Err: errors.New(ev.Error.Message)})
		}
		return append(events, backend.TurnEvent{Done: true})
	case evError:
		msg := ev.Message
		if ev.Error != nil && ev.Error.Message != "" {
			msg = ev.Error.Message
		}
		if msg == "" {
			msg = "backend error"
		}
		return []backend.Event{backend.ErrorEvent{Err: errors.New(msg)}}
	case evItemStarted, evItemUpdated, evItemCompleted:
		return s.itemEvents(ev)
	default:
		return nil
	}
}

func (s *Session) itemEvents(ev wireEvent) []backend.Event {
	if ev.Item == nil {
		return nil
	}
	item := itemOf(ev.Item)
	completed := ev.Type == evItemCompleted
	switch item.Kind {
	case ItemAgentMessage:
		// Progress updates carry cumulative text; only the completed item
		// is emitted so the transcript never double-counts.
		if !completed {
			return nil
		}
		return []backend.Event{backend.TextEvent{
			Text:  toolcall.StringField(item.Fields, "text", "content", "message"),
			Final: true,
		}}
	case ItemReasoning:
		if !completed {
			return nil
		}
		return []backend.Event{backend.ThinkingEvent{
			Text:  toolcall.StringField(item.Fields, "text", "content"),
			Final: true,
		}}
	case ItemError:
		msg := toolcall.StringField(item.Fields, "message", "error")
		if msg == "" {
			msg = "backend error"
		}
		return []backend.Event{backend.ErrorEvent{Err: errors.New(msg)}}
	}

	call := Normalize(item)
	events := []backend.Event{backend.CallEvent{Call: call}}
	if completed {
		if res, ok := ResultFor(item); ok {
			events = append(events, backend.CallResultEvent{ID: call.ID, Result: res})
		}
	}
	return events
}

func usageOf(u *wireUsage) *backend.Usage {
	if u == nil {
		return nil
	}
	return &backend.Usage{
		InputTokens:  u.InputTokens + u.CachedInputTokens,
		OutputTokens: u.OutputTokens,
	}
}

// RespondPermission has no transport here: approvals are decided before
// launch by the sandbox flags.
func (s *Session) RespondPermission(ctx context.Context, id string, resp backend.PermissionResponse) error {
	return ErrNoPending
}

func (s *Session) AnswerQuestion(ctx context.Context, id string, answers map[string]string) error {
	return ErrNoPending
}

func (s *Session) CancelQuestion(ctx context.Context, id string) error {
	return nil
}

// SetPermissionMode records the mode for the next spawned turn; a running
// turn keeps the sandbox it started with.
func (s *Session) SetPermissionMode(ctx context.Context, mode permission.Mode) error {
	if !mode.Valid() {
		mode = permission.ModeDefault
	}
	s.mu.Lock()
	s.mode = mode
	s.mu.Unlock()
	s.emit(backend.ModeEvent{Mode: mode})
	return nil
}

func (s *Session) Interrupt(ctx context.Context) error {
	s.mu.Lock()
	proc := s.proc
	s.mu.Unlock()
	if proc == nil {
		return nil
	}
	return proc.Signal(os.Interrupt)
}

// ThreadID returns the backend conversation id, once known, for resume.
func (s *Session) ThreadID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.threadID
}

func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		close(s.quit)
		s.mu.Lock()
		proc := s.proc
		s.proc = nil
		s.mu.Unlock()
		if proc != nil {
			if err := proc.Close(); err != nil {
				s.log.Warn("closing turn process", "err", err)
			}
		}
		s.wg.Wait()
		select {
		case s.events <- backend.ClosedEvent{}:
		default:
		}
		close(s.events)
	})
	return nil
}
