// Package toolcall defines the canonical, backend-agnostic record of one
// tool invocation and the per-session store that tracks its lifecycle.
package toolcall

import (
	"encoding/json"
	"strings"
	"time"
)

// Type is the closed set of canonical tool kinds. Dispatch on it is always an
// exhaustive switch with a default arm so an unknown tool can never crash a
// consumer.
type Type string

const (
	TypeRead            Type = "Read"
	TypeWrite           Type = "Write"
	TypeEdit            Type = "Edit"
	TypeMultiEdit       Type = "MultiEdit"
	TypeNotebookEdit    Type = "NotebookEdit"
	TypeBash            Type = "Bash"
	TypeBashOutput      Type = "BashOutput"
	TypeKillShell       Type = "KillShell"
	TypeGrep            Type = "Grep"
	TypeGlob            Type = "Glob"
	TypeLS              Type = "LS"
	TypeWebFetch        Type = "WebFetch"
	TypeWebSearch       Type = "WebSearch"
	TypeTask            Type = "Task"
	TypeTodoWrite       Type = "TodoWrite"
	TypeAskUserQuestion Type = "AskUserQuestion"
	TypeExitPlanMode    Type = "ExitPlanMode"
	TypeSlashCommand    Type = "SlashCommand"
	TypeMcp             Type = "Mcp"
	TypeSkill           Type = "Skill"
	// TypeThinking is a non-tool placeholder: some backends surface reasoning
	// through the tool channel and it still has to render without crashing.
	TypeThinking Type = "Thinking"
	TypeUnknown  Type = "Unknown"
)

// McpNamePrefix marks tool names routed through an MCP server
// (mcp__<server>__<tool>).
const McpNamePrefix = "mcp__"

var typeByName = map[string]Type{
	"read":            TypeRead,
	"view":            TypeRead,
	"write":           TypeWrite,
	"edit":            TypeEdit,
	"multiedit":       TypeMultiEdit,
	"notebookedit":    TypeNotebookEdit,
	"bash":            TypeBash,
	"bashoutput":      TypeBashOutput,
	"killshell":       TypeKillShell,
	"grep":            TypeGrep,
	"glob":            TypeGlob,
	"ls":              TypeLS,
	"webfetch":        TypeWebFetch,
	"websearch":       TypeWebSearch,
	"task":            TypeTask,
	"agent":           TypeTask,
	"todowrite":       TypeTodoWrite,
	"askuserquestion": TypeAskUserQuestion,
	"exitplanmode":    TypeExitPlanMode,
	"slashcommand":    TypeSlashCommand,
	"skill":           TypeSkill,
	"thinking":        TypeThinking,
}

// ParseType maps a backend-reported tool name onto the canonical Type.
// Unrecognized names degrade to TypeUnknown, never an error.
func ParseType(name string) Type {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return TypeUnknown
	}
	if strings.HasPrefix(trimmed, McpNamePrefix) {
		return TypeMcp
	}
	if t, ok := typeByName[strings.ToLower(trimmed)]; ok {
		return t
	}
	return TypeUnknown
}

// Status captures the execution lifecycle of a tool call. Transitions are
// monotonic except for the legal Running->Cancelled edge.
type Status int

const (
	StatusPending Status = iota
	StatusRunning
	StatusSuccess
	StatusFailed
	StatusCancelled
)

// Finished reports whether the status represents a terminal state.
func (s Status) Finished() bool {
	switch s {
	case StatusSuccess, StatusFailed, StatusCancelled:
		return true
	default:
		return false
	}
}

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusRunning:
		return "running"
	case StatusSuccess:
		return "success"
	case StatusFailed:
		return "failed"
	case StatusCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// CanTransition reports whether moving from s to next respects the lifecycle
// order. Terminal states accept nothing; Cancelled is reachable from any
// non-terminal state.
func (s Status) CanTransition(next Status) bool {
	if s.Finished() {
		return false
	}
	switch next {
	case StatusRunning:
		return s == StatusPending
	case StatusSuccess, StatusFailed, StatusCancelled:
		return true
	case StatusPending:
		return false
	default:
		return false
	}
}

// ResultKind discriminates the result payload variants.
type ResultKind string

const (
	ResultGeneric  ResultKind = "generic"
	ResultSuccess  ResultKind = "success"
	ResultFailure  ResultKind = "failure"
	ResultFileEdit ResultKind = "file_edit"
	ResultFileRead ResultKind = "file_read"
	ResultCommand  ResultKind = "command"
)

// Result is the outcome of a finished (or cancelled, partially) tool call.
// Content always holds the canonical textual payload; the variant fields are
// populated per Kind.
type Result struct {
	Kind    ResultKind
	Content string
	IsError bool

	// Failure
	Error string
	// FileEdit
	OldContent string
	NewContent string
	// Command
	ExitCode *int

	// Structured keeps the raw backend payload for content sniffing
	// (stdout/stderr/output/content selection, mime hints).
	Structured map[string]any
}

// SuccessResult wraps plain tool output.
func SuccessResult(output string) Result {
	return Result{Kind: ResultSuccess, Content: output}
}

// FailureResult wraps a failure message.
func FailureResult(errText string) Result {
	return Result{Kind: ResultFailure, Content: errText, Error: errText, IsError: true}
}

// FileEditResult carries both sides of a file modification.
func FileEditResult(oldContent, newContent string) Result {
	return Result{Kind: ResultFileEdit, OldContent: oldContent, NewContent: newContent, Content: newContent}
}

// FileReadResult carries the content returned by a read.
func FileReadResult(content string) Result {
	return Result{Kind: ResultFileRead, Content: content}
}

// CommandResult carries command output and its exit code.
func CommandResult(output string, exitCode int) Result {
	code := exitCode
	return Result{Kind: ResultCommand, Content: output, ExitCode: &code, IsError: exitCode != 0}
}

// GenericResult is the fallback {content, isError} shape.
func GenericResult(content string, isError bool) Result {
	return Result{Kind: ResultGeneric, Content: content, IsError: isError}
}

// Text returns the preferred human-readable payload for the result.
func (r Result) Text() string {
	if r.IsError && strings.TrimSpace(r.Error) != "" {
		return r.Error
	}
	return r.Content
}

// Call is the canonical record of one tool invocation. It is created when the
// backend emits the first delta of the invocation, mutated in place by later
// deltas and results, and retained for the transcript; it is never deleted.
type Call struct {
	ID      string
	Type    Type
	RawName string // backend-reported name, e.g. mcp__linear__list_issues
	Backend string // originating backend kind

	// Input holds the decoded parameters. While streaming it may be nil or
	// partial; RawInput accumulates the undecoded delta text until it parses.
	Input         map[string]any
	RawInput      string
	InputComplete bool

	Result *Result
	Status Status
	Reason string // assistant-stated reason, when the backend provides one

	StartedAt   time.Time
	CompletedAt *time.Time
}

// Name returns the display name: the raw backend name when present, else the
// canonical type.
func (c Call) Name() string {
	if trimmed := strings.TrimSpace(c.RawName); trimmed != "" {
		return trimmed
	}
	return string(c.Type)
}

// Finished reports whether the call reached a terminal status.
func (c Call) Finished() bool { return c.Status.Finished() }

// InputLoading reports whether the call is still waiting on streamed input.
func (c Call) InputLoading() bool {
	return c.Status == StatusPending && !c.InputComplete
}

// InputJSON renders the decoded input as compact JSON, falling back to the
// raw accumulator while the input is still streaming.
func (c Call) InputJSON() string {
	if len(c.Input) > 0 {
		if b, err := json.Marshal(c.Input); err == nil {
			return string(b)
		}
	}
	return c.RawInput
}

// DecodeInput attempts to parse the raw input accumulator. It returns true
// when the accumulator held a complete JSON object.
func (c *Call) DecodeInput() bool {
	trimmed := strings.TrimSpace(c.RawInput)
	if trimmed == "" {
		return false
	}
	var decoded map[string]any
	if err := json.Unmarshal([]byte(trimmed), &decoded); err != nil {
		return false
	}
	c.Input = decoded
	c.InputComplete = true
	return true
}
