package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/mattn/go-runewidth"

	"toolview/internal/backend"
	"toolview/internal/display"
	"toolview/internal/toolcall"
)

// EventEmitter renders replayed transcript activity. The JSON emitter is
// line-oriented for piping into other tools; the pretty emitter is for
// people reading a terminal.
type EventEmitter interface {
	EmitInit(sessionID, model, cwd string)
	EmitStreamingText(text string)
	EmitStreamingComplete()
	EmitText(text string)
	EmitThinking(text string)
	EmitMode(mode string)
	EmitCall(call toolcall.Call, info display.Info)
	EmitTurn(usage *backend.Usage)
	EmitError(err error)
	EmitSummary(calls, turns int)
}

// callRecord is the JSON line shape for one tool call.
type callRecord struct {
	Type         string `json:"type"`
	ID           string `json:"id"`
	Tool         string `json:"tool"`
	State        string `json:"state"`
	Icon         string `json:"icon"`
	Action       string `json:"action"`
	Primary      string `json:"primary"`
	Secondary    string `json:"secondary,omitempty"`
	AddedLines   *int   `json:"added_lines,omitempty"`
	RemovedLines *int   `json:"removed_lines,omitempty"`
	ReadLines    *int   `json:"read_lines,omitempty"`
	Error        string `json:"error,omitempty"`
}

// JSONEmitter writes one JSON line per tool call to stdout
type JSONEmitter struct {
	mu     sync.Mutex
	output io.Writer
}

// NewJSONEmitter creates a new JSON emitter that writes to stdout
func NewJSONEmitter() *JSONEmitter {
	return &JSONEmitter{
		output: os.Stdout,
	}
}

func (e *JSONEmitter) EmitCall(call toolcall.Call, info display.Info) {
	record := callRecord{
		Type:         "call",
		ID:           call.ID,
		Tool:         call.RawName,
		State:        string(info.State),
		Icon:         info.Icon,
		Action:       info.Action,
		Primary:      info.Primary,
		Secondary:    info.Secondary,
		AddedLines:   info.AddedLines,
		RemovedLines: info.RemovedLines,
		ReadLines:    info.ReadLines,
		Error:        info.ErrorMessage,
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	data, err := json.Marshal(record)
	if err != nil {
		// Log to stderr on serialization failure
		fmt.Fprintf(os.Stderr, "ERROR: Failed to serialize call: %v\n", err)
		return
	}

	fmt.Fprintln(e.output, string(data))

	// Flush to ensure streaming behavior
	if f, ok := e.output.(*os.File); ok {
		f.Sync()
	}
}

func (e *JSONEmitter) EmitError(err error) {
	fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
}

// Everything except calls is presentation-only and has no JSON form.
func (e *JSONEmitter) EmitInit(sessionID, model, cwd string) {}
func (e *JSONEmitter) EmitStreamingText(text string)         {}
func (e *JSONEmitter) EmitStreamingComplete()                {}
func (e *JSONEmitter) EmitText(text string)                  {}
func (e *JSONEmitter) EmitThinking(text string)              {}
func (e *JSONEmitter) EmitMode(mode string)                  {}
func (e *JSONEmitter) EmitTurn(usage *backend.Usage)         {}
func (e *JSONEmitter) EmitSummary(calls, turns int)          {}

// actionColumn keeps tool actions aligned so the primary text forms a
// readable column.
const actionColumn = 10

// PrettyEmitter writes styled output to stdout for human reading
type PrettyEmitter struct {
	mu     sync.Mutex
	output io.Writer
}

// NewPrettyEmitter creates a new pretty-print emitter
func NewPrettyEmitter() *PrettyEmitter {
	return &PrettyEmitter{
		output: os.Stdout,
	}
}

func (e *PrettyEmitter) EmitInit(sessionID, model, cwd string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	fmt.Fprintln(e.output, labelStyle.Render("Session:")+" "+valueStyle.Render(sessionID))
	if model != "" {
		fmt.Fprintln(e.output, "  "+mutedStyle.Render("Model: "+model))
	}
	if cwd != "" {
		fmt.Fprintln(e.output, "  "+mutedStyle.Render("Directory: "+cwd))
	}
	fmt.Fprintln(e.output, mutedStyle.Render(separatorLine))
}

func (e *PrettyEmitter) EmitStreamingText(text string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	fmt.Fprint(e.output, responseColorStart+text+colorReset)
}

func (e *PrettyEmitter) EmitStreamingComplete() {
	e.mu.Lock()
	defer e.mu.Unlock()
	fmt.Fprintln(e.output, "")
	fmt.Fprintln(e.output, "")
}

func (e *PrettyEmitter) EmitText(text string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	fmt.Fprintln(e.output, responseColorStart+strings.TrimRight(text, "\n")+colorReset)
	fmt.Fprintln(e.output, "")
}

func (e *PrettyEmitter) EmitThinking(text string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, line := range strings.Split(strings.TrimRight(text, "\n"), "\n") {
		fmt.Fprintln(e.output, "  "+veryMutedStyle.Render(line))
	}
	fmt.Fprintln(e.output, "")
}

func (e *PrettyEmitter) EmitMode(mode string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	fmt.Fprintln(e.output, veryMutedBracket.Render("[")+veryMutedStyle.Render("mode: "+mode)+veryMutedBracket.Render("]"))
}

func (e *PrettyEmitter) EmitCall(call toolcall.Call, info display.Info) {
	e.mu.Lock()
	defer e.mu.Unlock()

	action := runewidth.FillRight(info.Action, actionColumn)
	fmt.Fprintln(e.output, "  "+mutedStyle.Render(info.Icon)+" "+labelStyle.Render(action)+" "+valueStyle.Render(info.Primary))

	if badge := lineBadge(info); badge != "" {
		fmt.Fprintln(e.output, "    "+badge)
	}
	if info.Secondary != "" {
		for _, line := range strings.Split(info.Secondary, "\n") {
			fmt.Fprintln(e.output, "    "+mutedStyle.Render(line))
		}
	}

	switch info.State {
	case display.StateError:
		msg := info.ErrorMessage
		if msg == "" {
			msg = "failed"
		}
		fmt.Fprintln(e.output, "    "+errorStyle.Render("✗")+" "+mutedStyle.Render(msg))
	case display.StatePending:
		fmt.Fprintln(e.output, "    "+mutedStyle.Render("… no result recorded"))
	}
}

func lineBadge(info display.Info) string {
	var parts []string
	if info.AddedLines != nil {
		parts = append(parts, successStyle.Render(fmt.Sprintf("+%d", *info.AddedLines)))
	}
	if info.RemovedLines != nil {
		parts = append(parts, errorStyle.Render(fmt.Sprintf("-%d", *info.RemovedLines)))
	}
	if info.ReadLines != nil {
		parts = append(parts, mutedStyle.Render(fmt.Sprintf("%d lines", *info.ReadLines)))
	}
	return strings.Join(parts, " ")
}

func (e *PrettyEmitter) EmitTurn(usage *backend.Usage) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if usage == nil {
		fmt.Fprintln(e.output, "")
		return
	}

	parts := []string{fmt.Sprintf("%d in / %d out tokens", usage.InputTokens, usage.OutputTokens)}
	if usage.CostUSD > 0 {
		parts = append(parts, fmt.Sprintf("$%.4f", usage.CostUSD))
	}
	if usage.DurationMS > 0 {
		parts = append(parts, fmt.Sprintf("%.1fs", float64(usage.DurationMS)/1000))
	}

	fmt.Fprintln(e.output, "")
	fmt.Fprintln(e.output, bracketStyle.Render("[")+mutedStyle.Render("turn: "+strings.Join(parts, ", "))+bracketStyle.Render("]"))
	fmt.Fprintln(e.output, "")
}

func (e *PrettyEmitter) EmitError(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	fmt.Fprintln(e.output, "  "+errorStyle.Render("✗")+" "+mutedStyle.Render(err.Error()))
}

func (e *PrettyEmitter) EmitSummary(calls, turns int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	fmt.Fprintln(e.output, mutedStyle.Render(separatorLine))
	fmt.Fprintln(e.output, mutedStyle.Render(fmt.Sprintf("%d tool call(s) across %d turn(s)", calls, turns)))
}
