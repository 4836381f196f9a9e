package cli

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"toolview/internal/backend"
	"toolview/internal/display"
	"toolview/internal/toolcall"
)

// recordingEmitter captures everything the replay pipeline renders.
type recordingEmitter struct {
	inits     []string
	stream    string
	completes int
	texts     []string
	thinking  []string
	modes     []string
	calls     []toolcall.Call
	infos     []display.Info
	turns     []*backend.Usage
	errs      []error
	summary   []int
}

func (e *recordingEmitter) EmitInit(sessionID, model, cwd string) {
	e.inits = append(e.inits, sessionID)
}
func (e *recordingEmitter) EmitStreamingText(text string) { e.stream += text }
func (e *recordingEmitter) EmitStreamingComplete()        { e.completes++ }
func (e *recordingEmitter) EmitText(text string)          { e.texts = append(e.texts, text) }
func (e *recordingEmitter) EmitThinking(text string)      { e.thinking = append(e.thinking, text) }
func (e *recordingEmitter) EmitMode(mode string)          { e.modes = append(e.modes, mode) }
func (e *recordingEmitter) EmitCall(call toolcall.Call, info display.Info) {
	e.calls = append(e.calls, call)
	e.infos = append(e.infos, info)
}
func (e *recordingEmitter) EmitTurn(usage *backend.Usage) { e.turns = append(e.turns, usage) }
func (e *recordingEmitter) EmitError(err error)           { e.errs = append(e.errs, err) }
func (e *recordingEmitter) EmitSummary(calls, turns int)  { e.summary = []int{calls, turns} }

func writeTranscript(t *testing.T, lines ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "transcript.jsonl")
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0644); err != nil {
		t.Fatalf("write transcript: %v", err)
	}
	return path
}

func TestReplayClaudeTranscript(t *testing.T) {
	path := writeTranscript(t,
		`{"type":"system","subtype":"init","session_id":"sess-9","model":"opus","cwd":"/work"}`,
		`{"type":"assistant","message":{"content":[{"type":"text","text":"Running the tests."},{"type":"tool_use","id":"toolu_1","name":"Bash","input":{"command":"go test ./..."}}]},"session_id":"sess-9"}`,
		`{"type":"user","message":{"content":[{"type":"tool_result","tool_use_id":"toolu_1","content":"ok"}]}}`,
		`{"type":"result","subtype":"success","usage":{"input_tokens":10,"output_tokens":4},"total_cost_usd":0.02,"duration_ms":1500}`,
	)

	rec := &recordingEmitter{}
	if err := replayFile(path, ReplayOptions{Backend: "claude"}, rec); err != nil {
		t.Fatalf("replay: %v", err)
	}

	if len(rec.inits) != 1 || rec.inits[0] != "sess-9" {
		t.Errorf("inits = %v", rec.inits)
	}
	if len(rec.texts) != 1 || rec.texts[0] != "Running the tests." {
		t.Errorf("texts = %v", rec.texts)
	}
	if len(rec.calls) != 1 {
		t.Fatalf("got %d calls", len(rec.calls))
	}
	if rec.calls[0].ID != "toolu_1" || rec.calls[0].RawName != "Bash" {
		t.Errorf("call = %+v", rec.calls[0])
	}
	if rec.infos[0].State != display.StateSuccess {
		t.Errorf("state = %v", rec.infos[0].State)
	}
	if len(rec.turns) != 1 {
		t.Fatalf("got %d turns", len(rec.turns))
	}
	usage := rec.turns[0]
	if usage == nil || usage.InputTokens != 10 || usage.OutputTokens != 4 || usage.CostUSD != 0.02 {
		t.Errorf("usage = %+v", usage)
	}
	if len(rec.summary) != 2 || rec.summary[0] != 1 || rec.summary[1] != 1 {
		t.Errorf("summary = %v", rec.summary)
	}
}

func TestReplaySniffsCodexStream(t *testing.T) {
	path := writeTranscript(t,
		`{"type":"thread.started","thread_id":"th-7"}`,
		`{"type":"item.completed","item":{"id":"item_0","item_type":"command_execution","command":"ls","aggregated_output":"total 0","exit_code":0}}`,
		`{"type":"turn.completed","usage":{"input_tokens":5,"output_tokens":2}}`,
	)

	rec := &recordingEmitter{}
	// No backend given; the dotted event types identify the stream.
	if err := replayFile(path, ReplayOptions{}, rec); err != nil {
		t.Fatalf("replay: %v", err)
	}

	if len(rec.inits) != 1 || rec.inits[0] != "th-7" {
		t.Errorf("inits = %v", rec.inits)
	}
	if len(rec.calls) != 1 {
		t.Fatalf("got %d calls", len(rec.calls))
	}
	if rec.calls[0].ID != "item_0" || rec.calls[0].Type != toolcall.TypeBash {
		t.Errorf("call = %+v", rec.calls[0])
	}
	if rec.infos[0].State != display.StateSuccess {
		t.Errorf("state = %v", rec.infos[0].State)
	}
	if len(rec.turns) != 1 || rec.turns[0] == nil || rec.turns[0].InputTokens != 5 {
		t.Errorf("turns = %+v", rec.turns)
	}
}

func TestReplayStreamsTextDeltas(t *testing.T) {
	path := writeTranscript(t,
		`{"type":"stream_event","event":{"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":"Hel"}}}`,
		`{"type":"stream_event","event":{"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":"lo."}}}`,
		`{"type":"assistant","message":{"content":[{"type":"text","text":"Hello."}]}}`,
	)

	rec := &recordingEmitter{}
	if err := replayFile(path, ReplayOptions{Backend: "claude"}, rec); err != nil {
		t.Fatalf("replay: %v", err)
	}

	if rec.stream != "Hello." {
		t.Errorf("streamed = %q", rec.stream)
	}
	if rec.completes != 1 {
		t.Errorf("completes = %d", rec.completes)
	}
	// The final message only closes the stream; it must not print twice.
	if len(rec.texts) != 0 {
		t.Errorf("texts = %v", rec.texts)
	}
}

func TestReplayRendersUnfinishedCallsAtEOF(t *testing.T) {
	path := writeTranscript(t,
		`{"type":"assistant","message":{"content":[{"type":"tool_use","id":"toolu_5","name":"Read","input":{"file_path":"main.go"}}]}}`,
	)

	rec := &recordingEmitter{}
	if err := replayFile(path, ReplayOptions{Backend: "claude"}, rec); err != nil {
		t.Fatalf("replay: %v", err)
	}

	if len(rec.calls) != 1 || rec.calls[0].ID != "toolu_5" {
		t.Fatalf("calls = %+v", rec.calls)
	}
	if rec.infos[0].State != display.StatePending {
		t.Errorf("state = %v", rec.infos[0].State)
	}
	if len(rec.summary) != 2 || rec.summary[0] != 1 || rec.summary[1] != 0 {
		t.Errorf("summary = %v", rec.summary)
	}
}

func TestReplayHandlesUnterminatedFinalLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "transcript.jsonl")
	content := `{"type":"system","subtype":"init","session_id":"sess-1"}` + "\n" +
		`{"type":"result","subtype":"success"}` // no trailing newline
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write transcript: %v", err)
	}

	rec := &recordingEmitter{}
	if err := replayFile(path, ReplayOptions{Backend: "claude"}, rec); err != nil {
		t.Fatalf("replay: %v", err)
	}
	if len(rec.turns) != 1 {
		t.Errorf("got %d turns", len(rec.turns))
	}
}

func TestReplayRejectsUnknownBackend(t *testing.T) {
	path := writeTranscript(t, ``)
	err := replayFile(path, ReplayOptions{Backend: "gemini"}, &recordingEmitter{})
	if err == nil || !strings.Contains(err.Error(), "unknown backend") {
		t.Fatalf("err = %v", err)
	}
}

func TestSniffBackend(t *testing.T) {
	cases := []struct {
		line string
		want backend.Kind
	}{
		{`{"type":"system","subtype":"init"}`, backend.KindClaude},
		{`{"type":"assistant","message":{}}`, backend.KindClaude},
		{`{"type":"thread.started","thread_id":"t"}`, backend.KindCodex},
		{`{"type":"item.started","item":{}}`, backend.KindCodex},
		{`{"type":"error","message":"boom"}`, backend.KindCodex},
		{`not json at all`, backend.KindClaude},
	}
	for _, tc := range cases {
		if got := sniffBackend([]byte(tc.line)); got != tc.want {
			t.Errorf("sniff(%s) = %v, want %v", tc.line, got, tc.want)
		}
	}
}
