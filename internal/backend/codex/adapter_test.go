package codex

import (
	"encoding/json"
	"testing"

	"toolview/internal/backend"
	"toolview/internal/toolcall"
)

func itemFixture(t *testing.T, raw string) Item {
	t.Helper()
	var fields map[string]any
	if err := json.Unmarshal([]byte(raw), &fields); err != nil {
		t.Fatalf("unmarshal fixture: %v", err)
	}
	return itemOf(fields)
}

func TestNormalizeCommandExecution(t *testing.T) {
	item := itemFixture(t, `{"id":"item_0","item_type":"command_execution","command":"ls -la","cwd":"/tmp"}`)
	call := Normalize(item)
	if call.Type != toolcall.TypeBash || call.RawName != "Bash" {
		t.Fatalf("call = %+v", call)
	}
	if call.Backend != "codex" || !call.InputComplete {
		t.Errorf("call state = %+v", call)
	}
	if got := toolcall.StringField(call.Input, "command"); got != "ls -la" {
		t.Errorf("command = %q", got)
	}
	if got := toolcall.StringField(call.Input, "cwd"); got != "/tmp" {
		t.Errorf("cwd = %q", got)
	}

	// Successful result keeps the output and stays non-error.
	res := AdaptResult(map[string]any{"success": true, "output": "a.txt\nb.txt"}, "")
	if res.IsError || res.Content != "a.txt\nb.txt" {
		t.Errorf("result = %+v", res)
	}
}

func TestNormalizeCommandArgv(t *testing.T) {
	item := itemFixture(t, `{"id":"item_1","item_type":"command_execution","command":["bash","-lc","go vet"]}`)
	call := Normalize(item)
	if got := toolcall.StringField(call.Input, "command"); got != "bash -lc go vet" {
		t.Errorf("command = %q", got)
	}
}

func TestNormalizeFileChangeEdit(t *testing.T) {
	item := itemFixture(t, `{"id":"item_2","item_type":"file_change","operation":"edit","path":"/f.ts","before":"x","after":"y"}`)
	call := Normalize(item)
	if call.Type != toolcall.TypeEdit || call.RawName != "Edit" {
		t.Fatalf("call = %+v", call)
	}
	params := call.EditParams()
	if params.FilePath != "/f.ts" || params.OldString != "x" || params.NewString != "y" {
		t.Errorf("params = %+v", params)
	}
	if params.ReplaceAll {
		t.Error("replace_all should default to false")
	}
}

func TestNormalizeFileChangeCreate(t *testing.T) {
	item := itemFixture(t, `{"id":"item_3","item_type":"file_change","operation":"create","path":"/new.go","content":"package main\n"}`)
	call := Normalize(item)
	if call.Type != toolcall.TypeWrite || call.RawName != "Write" {
		t.Fatalf("call = %+v", call)
	}
	params := call.WriteParams()
	if params.FilePath != "/new.go" || params.Content != "package main\n" {
		t.Errorf("params = %+v", params)
	}
}

func TestNormalizeFileChangeList(t *testing.T) {
	// The batch shape carries paths without content; the first path still
	// lands on the card.
	item := itemFixture(t, `{"id":"item_4","item_type":"file_change","changes":[{"path":"/a.go","kind":"update"},{"path":"/b.go","kind":"update"}]}`)
	call := Normalize(item)
	if call.Type != toolcall.TypeEdit {
		t.Fatalf("type = %v", call.Type)
	}
	if got := toolcall.StringField(call.Input, "file_path"); got != "/a.go" {
		t.Errorf("file_path = %q", got)
	}
}

func TestNormalizeMcpToolCall(t *testing.T) {
	item := itemFixture(t, `{"id":"item_5","item_type":"mcp_tool_call","server":"linear","tool":"list_issues","parameters":{"team":"core"}}`)
	call := Normalize(item)
	if call.Type != toolcall.TypeMcp || call.RawName != "mcp__linear__list_issues" {
		t.Fatalf("call = %+v", call)
	}
	if got := toolcall.StringField(call.Input, "team"); got != "core" {
		t.Errorf("input = %+v", call.Input)
	}
}

func TestNormalizeMcpNameFallbacks(t *testing.T) {
	cases := []struct {
		raw  string
		want string
	}{
		{`{"item_type":"mcp_tool_call","toolName":"custom_tool"}`, "custom_tool"},
		{`{"item_type":"mcp_tool_call","name":"named"}`, "named"},
		{`{"item_type":"mcp_tool_call"}`, "mcp__unknown"},
	}
	for _, tc := range cases {
		call := Normalize(itemFixture(t, tc.raw))
		if call.RawName != tc.want {
			t.Errorf("raw %s: name = %q, want %q", tc.raw, call.RawName, tc.want)
		}
	}
}

func TestNormalizeReasoningPlaceholder(t *testing.T) {
	item := itemFixture(t, `{"id":"item_6","item_type":"reasoning","text":"weighing options"}`)
	call := Normalize(item)
	if call.Type != toolcall.TypeThinking {
		t.Fatalf("type = %v", call.Type)
	}
	if got := toolcall.StringField(call.Input, "text"); got != "weighing options" {
		t.Errorf("text = %q", got)
	}
}

func TestNormalizeUnknownNeverPanics(t *testing.T) {
	cases := []string{
		`{"id":"x","item_type":"quantum_leap","payload":{"a":1}}`,
		`{"item_type":""}`,
		`{}`,
	}
	for _, raw := range cases {
		call := Normalize(itemFixture(t, raw))
		if call.Type != toolcall.TypeUnknown {
			t.Errorf("raw %s: type = %v", raw, call.Type)
		}
		if call.RawName == "" {
			t.Errorf("raw %s: fallback name missing", raw)
		}
	}
}

func TestAdaptResult(t *testing.T) {
	// Absent payload falls back to the item's own output.
	res := AdaptResult(nil, "stdout text")
	if res.IsError || res.Content != "stdout text" {
		t.Errorf("absent = %+v", res)
	}
	res = AdaptResult(nil, "")
	if res.IsError || res.Content != "" {
		t.Errorf("absent empty = %+v", res)
	}

	// success=false flags an error even without an error message.
	res = AdaptResult(map[string]any{"success": false, "output": "partial"}, "")
	if !res.IsError || res.Content != "partial" {
		t.Errorf("success=false = %+v", res)
	}

	// error text wins the content chain.
	res = AdaptResult(map[string]any{"success": true, "error": "denied", "output": "x"}, "")
	if !res.IsError || res.Content != "denied" || res.Error != "denied" {
		t.Errorf("error wins = %+v", res)
	}

	// result field fills in when output is absent.
	res = AdaptResult(map[string]any{"success": true, "result": "42"}, "fallback")
	if res.IsError || res.Content != "42" {
		t.Errorf("result field = %+v", res)
	}

	// Already-canonical payloads pass through unchanged.
	res = AdaptResult(map[string]any{"content": "done", "is_error": true}, "ignored")
	if !res.IsError || res.Content != "done" {
		t.Errorf("canonical = %+v", res)
	}
	res = AdaptResult(map[string]any{"content": "fine"}, "ignored")
	if res.IsError || res.Content != "fine" {
		t.Errorf("canonical ok = %+v", res)
	}
}

func TestResultForCommandExitCode(t *testing.T) {
	item := itemFixture(t, `{"id":"item_7","item_type":"command_execution","command":"false","aggregated_output":"boom","exit_code":1}`)
	res, ok := ResultFor(item)
	if !ok {
		t.Fatal("expected a result")
	}
	if !res.IsError || res.Content != "boom" {
		t.Errorf("result = %+v", res)
	}
	if res.ExitCode == nil || *res.ExitCode != 1 {
		t.Errorf("exit code = %v", res.ExitCode)
	}

	item = itemFixture(t, `{"id":"item_8","item_type":"command_execution","command":"ls","aggregated_output":"a\nb","exit_code":0}`)
	res, _ = ResultFor(item)
	if res.IsError || res.Content != "a\nb" {
		t.Errorf("ok result = %+v", res)
	}
}

func TestResultForFailedStatus(t *testing.T) {
	item := itemFixture(t, `{"id":"item_9","item_type":"mcp_tool_call","server":"s","tool":"t","status":"failed","error":"upstream 500"}`)
	res, ok := ResultFor(item)
	if !ok || !res.IsError || res.Error != "upstream 500" {
		t.Errorf("result = %+v ok=%v", res, ok)
	}
}

func TestResultForProseKinds(t *testing.T) {
	item := itemFixture(t, `{"item_type":"reasoning","text":"thinking"}`)
	if _, ok := ResultFor(item); ok {
		t.Error("reasoning should carry no result")
	}
	item = itemFixture(t, `{"item_type":"agent_message","text":"hello"}`)
	if _, ok := ResultFor(item); ok {
		t.Error("agent message should carry no result")
	}
}

func TestSessionTranslateItems(t *testing.T) {
	s := NewSession(Options{})

	feed := func(raw string) []backend.Event {
		var ev wireEvent
		if err := json.Unmarshal([]byte(raw), &ev); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		return s.translate(ev)
	}

	events := feed(`{"type":"thread.started","thread_id":"th_1"}`)
	if len(events) != 1 {
		t.Fatalf("thread.started: %d events", len(events))
	}
	if init := events[0].(backend.InitEvent); init.SessionID != "th_1" {
		t.Errorf("init = %+v", init)
	}
	if s.ThreadID() != "th_1" {
		t.Errorf("thread id = %q", s.ThreadID())
	}

	// An in-flight agent message is held back; the completed one lands.
	events = feed(`{"type":"item.updated","item":{"id":"m1","item_type":"agent_message","text":"par"}}`)
	if len(events) != 0 {
		t.Errorf("partial message: %d events", len(events))
	}
	events = feed(`{"type":"item.completed","item":{"id":"m1","item_type":"agent_message","text":"partial now complete"}}`)
	text := events[0].(backend.TextEvent)
	if !text.Final || text.Text != "partial now complete" {
		t.Errorf("text = %+v", text)
	}

	// A completed command yields the call and its result together.
	events = feed(`{"type":"item.completed","item":{"id":"c1","item_type":"command_execution","command":"ls","aggregated_output":"a.txt","exit_code":0}}`)
	if len(events) != 2 {
		t.Fatalf("command: %d events", len(events))
	}
	call := events[0].(backend.CallEvent).Call
	res := events[1].(backend.CallResultEvent)
	if call.ID != "c1" || res.ID != "c1" || res.Result.Content != "a.txt" {
		t.Errorf("call=%+v res=%+v", call, res)
	}

	events = feed(`{"type":"turn.completed","usage":{"input_tokens":100,"cached_input_tokens":40,"output_tokens":9}}`)
	turn := events[0].(backend.TurnEvent)
	if !turn.Done || turn.Usage == nil || turn.Usage.InputTokens != 140 || turn.Usage.OutputTokens != 9 {
		t.Errorf("turn = %+v usage = %+v", turn, turn.Usage)
	}

	events = feed(`{"type":"turn.failed","error":{"message":"model overloaded"}}`)
	if len(events) != 2 {
		t.Fatalf("turn.failed: %d events", len(events))
	}
	if errEv := events[0].(backend.ErrorEvent); errEv.Err.Error() != "model overloaded" {
		t.Errorf("err = %v", errEv.Err)
	}
}
