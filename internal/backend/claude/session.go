package claude

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"toolview/internal/backend"
	"toolview/internal/csync"
	"toolview/internal/logging"
	"toolview/internal/permission"
	"toolview/internal/toolcall"
)

// ErrNoPending is returned when responding to a request the backend has
// already resolved or cancelled.
var ErrNoPending = errors.New("no pending request with that id")

// Options configure a claude session launch.
type Options struct {
	// Command locates the CLI binary; Args carry user-configured extras
	// and are extended with the stream-json flags.
	Command backend.Command
	// Resume continues an existing CLI session by ID.
	Resume string
	Model  string
	Mode   permission.Mode
}

// Session drives one claude CLI subprocess speaking stream-json.
type Session struct {
	proc       *backend.Process
	events     chan backend.Event
	translator *translator

	// pendingControls tracks our outbound control requests awaiting acks.
	pendingControls *csync.Map[string, chan wireControlResponse]
	// pendingInbound tracks the CLI's can_use_tool requests awaiting the
	// user, keyed by control request id.
	pendingInbound *csync.Map[string, *wireControlRequest]

	mu        sync.Mutex
	sessionID string

	reqSeq    atomic.Int64
	quit      chan struct{}
	closeOnce sync.Once
	log       *slog.Logger
}

// NewSession launches the CLI and starts the event loop.
func NewSession(opts Options) (*Session, error) {
	command := opts.Command
	if command.Path == "" {
		command.Path = "claude"
	}
	command.Args = append(command.Args,
		"--input-format", "stream-json",
		"--output-format", "stream-json",
		"--include-partial-messages",
		"--verbose",
	)
	if opts.Model != "" {
		command.Args = append(command.Args, "--model", opts.Model)
	}
	if opts.Mode != "" && opts.Mode != permission.ModeDefault {
		command.Args = append(command.Args, "--permission-mode", string(opts.Mode))
	}
	if opts.Resume != "" {
		command.Args = append(command.Args, "--resume", opts.Resume)
	}

	proc, err := backend.StartProcess(command)
	if err != nil {
		return nil, fmt.Errorf("launch claude: %w", err)
	}

	s := &Session{
		proc:            proc,
		events:          make(chan backend.Event, 100),
		translator:      newTranslator(),
		pendingControls: csync.NewMap[string, chan wireControlResponse](),
		pendingInbound:  csync.NewMap[string, *wireControlRequest](),
		quit:            make(chan struct{}),
		log:             logging.With("backend", "claude"),
	}
	go s.loop()
	go s.initialize()
	return s, nil
}

// initialize performs the streaming-mode handshake. Failure is logged, not
// fatal: older CLI builds answer prompts without it.
func (s *Session) initialize() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if _, err := s.sendControl(ctx, wireControlRequest{Subtype: subtypeInitialize}); err != nil {
		s.log.Debug("initialize handshake failed", "error", err)
	}
}

func (s *Session) loop() {
	defer close(s.events)
	for line := range s.proc.Lines() {
		var msg wireMessage
		if err := json.Unmarshal(line, &msg); err != nil {
			s.log.Debug("skipping malformed line", "error", err)
			continue
		}
		switch msg.Type {
		case msgTypeControlRequest:
			s.handleControlRequest(msg)
		case msgTypeControlResponse:
			s.routeControlResponse(msg)
		case msgTypeControlCancel:
			s.handleControlCancel(msg.RequestID)
		default:
			if msg.SessionID != "" {
				s.setSessionID(msg.SessionID)
			}
			for _, ev := range s.translator.translate(msg) {
				s.emit(ev)
			}
		}
	}
	<-s.proc.Done()
	s.emit(backend.ClosedEvent{Err: s.proc.ExitErr()})
}

func (s *Session) emit(ev backend.Event) {
	select {
	case s.events <- ev:
	case <-s.quit:
	}
}

func (s *Session) setSessionID(id string) {
	s.mu.Lock()
	s.sessionID = id
	s.mu.Unlock()
}

func (s *Session) currentSessionID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessionID
}

// handleControlRequest surfaces the CLI's inbound requests. can_use_tool
// becomes a permission request, or a question prompt when the tool is the
// question tool; anything else gets an error reply so the CLI never hangs.
func (s *Session) handleControlRequest(msg wireMessage) {
	if msg.Request == nil || msg.RequestID == "" {
		return
	}
	req := msg.Request
	switch req.Subtype {
	case subtypeCanUseTool:
		s.pendingInbound.Set(msg.RequestID, req)
		if toolcall.ParseType(req.ToolName) == toolcall.TypeAskUserQuestion {
			s.emit(backend.QuestionEvent{Prompt: backend.QuestionPrompt{
				ID:        msg.RequestID,
				CallID:    req.ToolUseID,
				Questions: backend.QuestionsFromInput(req.Input),
			}})
			return
		}
		s.emit(backend.PermissionEvent{Request: backend.PermissionRequest{
			ID:          msg.RequestID,
			CallID:      req.ToolUseID,
			ToolName:    req.ToolName,
			Input:       toolcall.CloneInput(req.Input),
			Suggestions: req.PermissionSuggestions,
		}})
	default:
		s.log.Debug("unhandled control request", "subtype", req.Subtype)
		if line, err := encodeControlError(msg.RequestID, fmt.Sprintf("unsupported subtype: %s", req.Subtype)); err == nil {
			if err := s.proc.WriteLine(line); err != nil {
				s.log.Warn("control error reply failed", "error", err)
			}
		}
	}
}

func (s *Session) routeControlResponse(msg wireMessage) {
	if msg.Response == nil {
		return
	}
	ch, ok := s.pendingControls.Take(msg.Response.RequestID)
	if !ok {
		s.log.Debug("control response without pending request", "request_id", msg.Response.RequestID)
		return
	}
	ch <- *msg.Response
}

// handleControlCancel withdraws a pending inbound request, surfacing the
// matching cancel event so the queue can drop the item.
func (s *Session) handleControlCancel(requestID string) {
	req, ok := s.pendingInbound.Take(requestID)
	if !ok {
		return
	}
	if toolcall.ParseType(req.ToolName) == toolcall.TypeAskUserQuestion {
		s.emit(backend.QuestionCancelEvent{ID: requestID})
		return
	}
	s.emit(backend.PermissionCancelEvent{ID: requestID})
}

// sendControl issues an outbound control request and waits for its ack.
func (s *Session) sendControl(ctx context.Context, req wireControlRequest) (wireControlResponse, error) {
	requestID := fmt.Sprintf("req_%d_%s", s.reqSeq.Add(1), uuid.NewString()[:8])
	line, err := encodeControlRequest(requestID, req)
	if err != nil {
		return wireControlResponse{}, err
	}
	ack := make(chan wireControlResponse, 1)
	s.pendingControls.Set(requestID, ack)
	if err := s.proc.WriteLine(line); err != nil {
		s.pendingControls.Del(requestID)
		return wireControlResponse{}, err
	}
	select {
	case resp := <-ack:
		if resp.Subtype == "error" {
			return resp, fmt.Errorf("control request %s failed: %s", req.Subtype, resp.Error)
		}
		return resp, nil
	case <-ctx.Done():
		s.pendingControls.Del(requestID)
		return wireControlResponse{}, ctx.Err()
	case <-s.quit:
		return wireControlResponse{}, errors.New("session closed")
	}
}

// Events implements backend.Session.
func (s *Session) Events() <-chan backend.Event {
	return s.events
}

// Send implements backend.Session.
func (s *Session) Send(ctx context.Context, text string) error {
	line, err := encodeUserMessage(s.currentSessionID(), text)
	if err != nil {
		return err
	}
	return s.proc.WriteLine(line)
}

// RespondPermission implements backend.Session. Approvals echo the
// original input and attach any chosen permission updates; denials carry
// the reason only when one was given.
func (s *Session) RespondPermission(ctx context.Context, id string, resp backend.PermissionResponse) error {
	req, ok := s.pendingInbound.Take(id)
	if !ok {
		return ErrNoPending
	}
	var result permissionResult
	if resp.Approved {
		result = permissionResult{
			Behavior:           behaviorAllow,
			UpdatedInput:       req.Input,
			UpdatedPermissions: resp.Updates,
		}
	} else {
		result = permissionResult{
			Behavior: behaviorDeny,
			Message:  resp.DenyReason,
		}
	}
	line, err := encodeControlResponse(id, result)
	if err != nil {
		return err
	}
	return s.proc.WriteLine(line)
}

// AnswerQuestion implements backend.Session. Answers ride back on the
// allow response, keyed by question text inside updatedInput.
func (s *Session) AnswerQuestion(ctx context.Context, id string, answers map[string]string) error {
	req, ok := s.pendingInbound.Take(id)
	if !ok {
		return ErrNoPending
	}
	updated := toolcall.CloneInput(req.Input)
	if updated == nil {
		updated = make(map[string]any)
	}
	answerMap := make(map[string]any, len(answers))
	for question, answer := range answers {
		answerMap[question] = answer
	}
	updated["answers"] = answerMap
	line, err := encodeControlResponse(id, permissionResult{
		Behavior:     behaviorAllow,
		UpdatedInput: updated,
	})
	if err != nil {
		return err
	}
	return s.proc.WriteLine(line)
}

// CancelQuestion implements backend.Session. Cancelling after the backend
// already withdrew the prompt is a no-op.
func (s *Session) CancelQuestion(ctx context.Context, id string) error {
	if _, ok := s.pendingInbound.Take(id); !ok {
		return nil
	}
	line, err := encodeControlResponse(id, permissionResult{Behavior: behaviorDeny})
	if err != nil {
		return err
	}
	return s.proc.WriteLine(line)
}

// SetPermissionMode implements backend.Session.
func (s *Session) SetPermissionMode(ctx context.Context, mode permission.Mode) error {
	_, err := s.sendControl(ctx, wireControlRequest{
		Subtype: subtypeSetPermissionMode,
		Mode:    string(mode),
	})
	return err
}

// Interrupt implements backend.Session.
func (s *Session) Interrupt(ctx context.Context) error {
	_, err := s.sendControl(ctx, wireControlRequest{Subtype: subtypeInterrupt})
	return err
}

// Close implements backend.Session.
func (s *Session) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.quit)
		err = s.proc.Close()
	})
	return err
}
