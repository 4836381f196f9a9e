package claude

import (
	"encoding/json"
	"testing"

	"toolview/internal/backend"
	"toolview/internal/permission"
	"toolview/internal/toolcall"
)

func translateLine(t *testing.T, tr *translator, line string) []backend.Event {
	t.Helper()
	var msg wireMessage
	if err := json.Unmarshal([]byte(line), &msg); err != nil {
		t.Fatalf("unmarshal fixture: %v", err)
	}
	return tr.translate(msg)
}

func TestTranslateSystemInit(t *testing.T) {
	tr := newTranslator()
	events := translateLine(t, tr, `{"type":"system","subtype":"init","session_id":"sess-1","model":"opus","cwd":"/work","permissionMode":"acceptEdits","tools":["Bash","Read"]}`)
	if len(events) != 1 {
		t.Fatalf("got %d events", len(events))
	}
	init, ok := events[0].(backend.InitEvent)
	if !ok {
		t.Fatalf("event type %T", events[0])
	}
	if init.SessionID != "sess-1" || init.Model != "opus" || init.Cwd != "/work" {
		t.Errorf("init = %+v", init)
	}
	if init.Mode != permission.ModeAcceptEdits {
		t.Errorf("mode = %v", init.Mode)
	}
}

func TestTranslateAssistantPassesToolThroughUnchanged(t *testing.T) {
	tr := newTranslator()
	events := translateLine(t, tr, `{"type":"assistant","message":{"role":"assistant","content":[{"type":"text","text":"Running it."},{"type":"tool_use","id":"toolu_1","name":"Bash","input":{"command":"go test ./...","timeout":120000}}]},"session_id":"sess-1"}`)
	if len(events) != 2 {
		t.Fatalf("got %d events", len(events))
	}

	text, ok := events[0].(backend.TextEvent)
	if !ok || !text.Final || text.Text != "Running it." {
		t.Errorf("text event = %+v", events[0])
	}

	callEv, ok := events[1].(backend.CallEvent)
	if !ok {
		t.Fatalf("event type %T", events[1])
	}
	call := callEv.Call
	if call.ID != "toolu_1" || call.Type != toolcall.TypeBash || call.RawName != "Bash" {
		t.Errorf("call = %+v", call)
	}
	if !call.InputComplete || call.Status != toolcall.StatusRunning {
		t.Errorf("call state = %+v", call)
	}
	// The canonical backend's fields pass through without renaming.
	if got := toolcall.StringField(call.Input, "command"); got != "go test ./..." {
		t.Errorf("command = %q", got)
	}
}

func TestTranslateThinkingBlock(t *testing.T) {
	tr := newTranslator()
	events := translateLine(t, tr, `{"type":"assistant","message":{"content":[{"type":"thinking","thinking":"consider the diff"}]}}`)
	if len(events) != 1 {
		t.Fatalf("got %d events", len(events))
	}
	th, ok := events[0].(backend.ThinkingEvent)
	if !ok || th.Text != "consider the diff" || !th.Final {
		t.Errorf("thinking = %+v", events[0])
	}
}

func TestTranslateToolResult(t *testing.T) {
	tr := newTranslator()

	// Plain string content.
	events := translateLine(t, tr, `{"type":"user","message":{"role":"user","content":[{"type":"tool_result","tool_use_id":"toolu_1","content":"ok: 12 passed"}]}}`)
	if len(events) != 1 {
		t.Fatalf("got %d events", len(events))
	}
	res, ok := events[0].(backend.CallResultEvent)
	if !ok {
		t.Fatalf("event type %T", events[0])
	}
	if res.ID != "toolu_1" || res.Result.IsError || res.Result.Content != "ok: 12 passed" {
		t.Errorf("result = %+v", res)
	}

	// Error flag produces a failure result.
	events = translateLine(t, tr, `{"type":"user","message":{"content":[{"type":"tool_result","tool_use_id":"toolu_2","content":"exit status 1","is_error":true}]}}`)
	res = events[0].(backend.CallResultEvent)
	if !res.Result.IsError || res.Result.Text() != "exit status 1" {
		t.Errorf("error result = %+v", res.Result)
	}

	// Block-array content joins the text blocks.
	events = translateLine(t, tr, `{"type":"user","message":{"content":[{"type":"tool_result","tool_use_id":"toolu_3","content":[{"type":"text","text":"line a"},{"type":"text","text":"line b"}]}]}}`)
	res = events[0].(backend.CallResultEvent)
	if res.Result.Content != "line a\nline b" {
		t.Errorf("joined content = %q", res.Result.Content)
	}
}

func TestTranslateStreamDeltas(t *testing.T) {
	tr := newTranslator()

	events := translateLine(t, tr, `{"type":"stream_event","event":{"type":"content_block_start","index":0,"content_block":{"type":"tool_use","id":"toolu_9","name":"Write"}}}`)
	if len(events) != 1 {
		t.Fatalf("start: got %d events", len(events))
	}
	call := events[0].(backend.CallEvent).Call
	if call.ID != "toolu_9" || call.Status != toolcall.StatusPending || call.InputComplete {
		t.Errorf("streamed call = %+v", call)
	}
	if !call.InputLoading() {
		t.Error("streamed call should be input-loading")
	}

	events = translateLine(t, tr, `{"type":"stream_event","event":{"type":"content_block_delta","index":0,"delta":{"type":"input_json_delta","partial_json":"{\"file_path\":\"a."}}}`)
	delta, ok := events[0].(backend.CallDeltaEvent)
	if !ok || delta.ID != "toolu_9" || delta.Delta != `{"file_path":"a.` {
		t.Errorf("delta = %+v", events[0])
	}

	// Text deltas stream as non-final text.
	events = translateLine(t, tr, `{"type":"stream_event","event":{"type":"content_block_delta","index":1,"delta":{"type":"text_delta","text":"partial "}}}`)
	text := events[0].(backend.TextEvent)
	if text.Final || text.Text != "partial " {
		t.Errorf("text delta = %+v", text)
	}

	// Deltas for an unknown block index are dropped, not fatal.
	events = translateLine(t, tr, `{"type":"stream_event","event":{"type":"content_block_delta","index":7,"delta":{"type":"input_json_delta","partial_json":"x"}}}`)
	if len(events) != 0 {
		t.Errorf("orphan delta produced %d events", len(events))
	}
}

func TestTranslateResultMessage(t *testing.T) {
	tr := newTranslator()
	events := translateLine(t, tr, `{"type":"result","subtype":"success","is_error":false,"duration_ms":5120,"num_turns":3,"total_cost_usd":0.42,"usage":{"input_tokens":1000,"output_tokens":200,"cache_read_input_tokens":500},"session_id":"sess-1"}`)
	if len(events) != 1 {
		t.Fatalf("got %d events", len(events))
	}
	turn, ok := events[0].(backend.TurnEvent)
	if !ok || !turn.Done {
		t.Fatalf("event = %+v", events[0])
	}
	if turn.Usage == nil || turn.Usage.InputTokens != 1500 || turn.Usage.OutputTokens != 200 {
		t.Errorf("usage = %+v", turn.Usage)
	}
	if turn.Usage.CostUSD != 0.42 {
		t.Errorf("cost = %v", turn.Usage.CostUSD)
	}

	// Error results add an error event after the turn marker.
	events = translateLine(t, tr, `{"type":"result","subtype":"error_during_execution","is_error":true,"result":"session limit reached"}`)
	if len(events) != 2 {
		t.Fatalf("error result: got %d events", len(events))
	}
	errEv, ok := events[1].(backend.ErrorEvent)
	if !ok || errEv.Err == nil || errEv.Err.Error() != "session limit reached" {
		t.Errorf("error event = %+v", events[1])
	}
}

func TestTranslateUnknownMessageType(t *testing.T) {
	tr := newTranslator()
	events := translateLine(t, tr, `{"type":"telemetry","payload":{"x":1}}`)
	if len(events) != 0 {
		t.Errorf("unknown type produced %d events", len(events))
	}
}

func TestQuestionsFromInput(t *testing.T) {
	input := map[string]any{
		"questions": []any{
			map[string]any{
				"question":    "Which database?",
				"header":      "Storage",
				"multiSelect": false,
				"options": []any{
					map[string]any{"label": "sqlite", "description": "embedded"},
					map[string]any{"label": "postgres"},
				},
			},
			map[string]any{
				"question":    "Which features?",
				"multiSelect": true,
				"options":     []any{"search", "export"},
			},
			map[string]any{"header": "no question text, skipped"},
		},
	}
	questions := backend.QuestionsFromInput(input)
	if len(questions) != 2 {
		t.Fatalf("got %d questions", len(questions))
	}
	if questions[0].Text != "Which database?" || questions[0].Header != "Storage" || questions[0].MultiSelect {
		t.Errorf("q0 = %+v", questions[0])
	}
	if len(questions[0].Options) != 2 || questions[0].Options[0].Description != "embedded" {
		t.Errorf("q0 options = %+v", questions[0].Options)
	}
	if !questions[1].MultiSelect || len(questions[1].Options) != 2 || questions[1].Options[0].Label != "search" {
		t.Errorf("q1 = %+v", questions[1])
	}
}
