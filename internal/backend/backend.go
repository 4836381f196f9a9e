// Package backend defines the canonical event stream a coding-agent
// backend produces and the session interface the rest of the program
// drives. Concrete adapters live in the claude and codex subpackages;
// everything above this package is backend-agnostic.
package backend

import (
	"context"
	"strings"

	"toolview/internal/permission"
	"toolview/internal/toolcall"
)

// Kind names a supported backend flavor.
type Kind string

const (
	KindClaude Kind = "claude"
	KindCodex  Kind = "codex"
)

// ParseKind maps a config string onto a Kind.
func ParseKind(s string) (Kind, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case string(KindClaude):
		return KindClaude, true
	case string(KindCodex):
		return KindCodex, true
	default:
		return "", false
	}
}

// Event is one element of the canonical session stream. It is a closed
// union: consumers switch on the concrete type with a default arm so an
// unknown event degrades to a no-op instead of a crash.
type Event interface {
	event()
}

// TextEvent carries assistant prose. Delta events stream partial text for
// the same message until one arrives with Final set.
type TextEvent struct {
	Text  string
	Final bool
}

// ThinkingEvent carries reasoning text surfaced by the backend. It renders
// as a collapsed placeholder, never as regular prose. Like TextEvent, a
// Final event replaces the streamed deltas that preceded it.
type ThinkingEvent struct {
	Text  string
	Final bool
}

// CallEvent announces a new tool call or a merged update of one. The
// receiver folds it into the session's toolcall.Store.
type CallEvent struct {
	Call toolcall.Call
}

// CallDeltaEvent streams one chunk of a call's input JSON.
type CallDeltaEvent struct {
	ID    string
	Delta string
}

// CallResultEvent attaches the final (or, after an interrupt, partial)
// result of a call.
type CallResultEvent struct {
	ID     string
	Result toolcall.Result
}

// PermissionEvent surfaces a backend authorization request. The session
// stays blocked on this call until RespondPermission is invoked with the
// same ID or the backend cancels.
type PermissionEvent struct {
	Request PermissionRequest
}

// PermissionCancelEvent withdraws a pending authorization request, e.g.
// because the turn was interrupted.
type PermissionCancelEvent struct {
	ID string
}

// QuestionEvent surfaces an AskUserQuestion batch.
type QuestionEvent struct {
	Prompt QuestionPrompt
}

// QuestionCancelEvent withdraws a pending question batch.
type QuestionCancelEvent struct {
	ID string
}

// ModeEvent reports a permission mode change acknowledged by the backend.
type ModeEvent struct {
	Mode permission.Mode
}

// TurnEvent marks the start or end of an assistant turn.
type TurnEvent struct {
	Done  bool
	Usage *Usage
}

// InitEvent reports the backend's session bootstrap info.
type InitEvent struct {
	SessionID string
	Model     string
	Cwd       string
	Mode      permission.Mode
}

// ErrorEvent carries a non-fatal protocol error worth logging.
type ErrorEvent struct {
	Err error
}

// ClosedEvent is the terminal stream element; Err is nil on clean exit.
type ClosedEvent struct {
	Err error
}

func (TextEvent) event()             {}
func (ThinkingEvent) event()         {}
func (CallEvent) event()             {}
func (CallDeltaEvent) event()        {}
func (CallResultEvent) event()       {}
func (PermissionEvent) event()       {}
func (PermissionCancelEvent) event() {}
func (QuestionEvent) event()         {}
func (QuestionCancelEvent) event()   {}
func (ModeEvent) event()             {}
func (TurnEvent) event()             {}
func (InitEvent) event()             {}
func (ErrorEvent) event()            {}
func (ClosedEvent) event()           {}

// Usage summarizes token accounting for a finished turn.
type Usage struct {
	InputTokens  int
	OutputTokens int
	CostUSD      float64
	DurationMS   int64
}

// PermissionRequest asks the user to authorize one tool call.
type PermissionRequest struct {
	// ID correlates the eventual response; for stream backends it is the
	// control request id, not the tool call id.
	ID          string
	CallID      string
	ToolName    string
	Input       map[string]any
	Suggestions []permission.Update
}

// PlanText returns the proposed plan markdown when the request is the
// plan-approval subtype, and "" otherwise.
func (r PermissionRequest) PlanText() string {
	if toolcall.ParseType(r.ToolName) != toolcall.TypeExitPlanMode {
		return ""
	}
	return toolcall.StringField(r.Input, "plan")
}

// IsPlan reports whether this is the plan-approval permission subtype.
func (r PermissionRequest) IsPlan() bool {
	return toolcall.ParseType(r.ToolName) == toolcall.TypeExitPlanMode
}

// PermissionResponse is the user's resolution of a PermissionRequest.
type PermissionResponse struct {
	Approved bool
	// Updates carries the chosen suggestion(s) on approve-with-update.
	Updates []permission.Update
	// DenyReason is optional guidance for the model; it is omitted from
	// the wire payload when empty.
	DenyReason string
}

// QuestionOption is one selectable answer.
type QuestionOption struct {
	Label       string
	Description string
}

// Question is a single question in a batch.
type Question struct {
	Text        string
	Header      string
	MultiSelect bool
	Options     []QuestionOption
}

// QuestionPrompt is an AskUserQuestion batch awaiting answers keyed by
// question text.
type QuestionPrompt struct {
	ID        string
	CallID    string
	Questions []Question
}

// Session is a live conversation with one backend subprocess. All methods
// are safe for concurrent use; blocking calls honor their context.
type Session interface {
	// Events returns the canonical event stream. The channel closes after
	// a ClosedEvent is delivered.
	Events() <-chan Event
	// Send submits a user prompt.
	Send(ctx context.Context, text string) error
	// RespondPermission resolves a pending PermissionRequest by ID.
	RespondPermission(ctx context.Context, id string, resp PermissionResponse) error
	// AnswerQuestion submits a question batch's answers keyed by question
	// text. Unanswered questions are absent from the map.
	AnswerQuestion(ctx context.Context, id string, answers map[string]string) error
	// CancelQuestion abandons a question batch without answers.
	CancelQuestion(ctx context.Context, id string) error
	// SetPermissionMode switches the backend permission mode out of band.
	SetPermissionMode(ctx context.Context, mode permission.Mode) error
	// Interrupt aborts the in-flight turn.
	Interrupt(ctx context.Context) error
	// Close terminates the subprocess and closes the event stream.
	Close() error
}
