package claude

import (
	"encoding/json"
	"strings"

	"toolview/internal/backend"
	"toolview/internal/permission"
	"toolview/internal/toolcall"
)

// translator folds the wire stream into canonical events. It keeps just
// enough state to route partial-message deltas to the right content block;
// everything else is a stateless mapping.
type translator struct {
	sessionID string
	blocks    map[int]blockState
}

type blockState struct {
	kind   string
	callID string
}

func newTranslator() *translator {
	return &translator{blocks: make(map[int]blockState)}
}

// translate maps one wire message onto zero or more canonical events.
// Unknown message shapes translate to nothing, never to a failure.
func (t *translator) translate(msg wireMessage) []backend.Event {
	switch msg.Type {
	case msgTypeSystem:
		return t.systemEvents(msg)
	case msgTypeAssistant:
		return t.assistantEvents(msg)
	case msgTypeUser:
		return t.userEvents(msg)
	case msgTypeResult:
		return t.resultEvents(msg)
	case msgTypeStreamEvent:
		return t.streamEvents(msg)
	default:
		return nil
	}
}

func (t *translator) systemEvents(msg wireMessage) []backend.Event {
	if msg.Subtype != subtypeInit {
		return nil
	}
	if msg.SessionID != "" {
		t.sessionID = msg.SessionID
	}
	return []backend.Event{backend.InitEvent{
		SessionID: msg.SessionID,
		Model:     msg.Model,
		Cwd:       msg.Cwd,
		Mode:      permission.ParseMode(msg.PermissionMode),
	}}
}

func (t *translator) assistantEvents(msg wireMessage) []backend.Event {
	if msg.Message == nil {
		return nil
	}
	var events []backend.Event
	for _, block := range msg.Message.ContentBlocks() {
		switch block.Type {
		case "text":
			if block.Text != "" {
				events = append(events, backend.TextEvent{Text: block.Text, Final: true})
			}
		case "thinking":
			if block.Thinking != "" {
				events = append(events, backend.ThinkingEvent{Text: block.Thinking, Final: true})
			}
		case "tool_use":
			events = append(events, backend.CallEvent{Call: callFromBlock(block)})
		}
	}
	return events
}

// callFromBlock maps a complete tool_use block onto a canonical call. The
// full assistant message means the input finished streaming, so the call
// enters the running state directly.
func callFromBlock(block wireContentBlock) toolcall.Call {
	return toolcall.Call{
		ID:            block.ID,
		Type:          toolcall.ParseType(block.Name),
		RawName:       block.Name,
		Backend:       string(backend.KindClaude),
		Input:         toolcall.CloneInput(block.Input),
		InputComplete: true,
		Status:        toolcall.StatusRunning,
	}
}

func (t *translator) userEvents(msg wireMessage) []backend.Event {
	if msg.Message == nil {
		return nil
	}
	var events []backend.Event
	for _, block := range msg.Message.ContentBlocks() {
		if block.Type != "tool_result" || block.ToolUseID == "" {
			continue
		}
		events = append(events, backend.CallResultEvent{
			ID:     block.ToolUseID,
			Result: resultFromBlock(block),
		})
	}
	return events
}

// resultFromBlock adapts a tool_result block. Content arrives as a plain
// string, an array of text blocks, or a structured object kept for the
// display layer to sniff.
func resultFromBlock(block wireContentBlock) toolcall.Result {
	text, structured := decodeResultContent(block.Content)
	if block.IsError {
		errText := text
		if errText == "" && structured != nil {
			errText = toolcall.StringField(structured, "error", "message")
		}
		res := toolcall.FailureResult(errText)
		res.Structured = structured
		return res
	}
	res := toolcall.SuccessResult(text)
	res.Structured = structured
	return res
}

func decodeResultContent(raw json.RawMessage) (string, map[string]any) {
	if len(raw) == 0 {
		return "", nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, nil
	}
	var blocks []wireContentBlock
	if err := json.Unmarshal(raw, &blocks); err == nil {
		var sb strings.Builder
		for _, b := range blocks {
			if b.Type == "text" && b.Text != "" {
				if sb.Len() > 0 {
					sb.WriteByte('\n')
				}
				sb.WriteString(b.Text)
			}
		}
		return sb.String(), nil
	}
	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err == nil {
		return "", obj
	}
	return string(raw), nil
}

func (t *translator) resultEvents(msg wireMessage) []backend.Event {
	if msg.SessionID != "" {
		t.sessionID = msg.SessionID
	}
	usage := &backend.Usage{
		CostUSD:    msg.TotalCostUSD,
		DurationMS: msg.DurationMS,
	}
	if msg.Usage != nil {
		usage.InputTokens = msg.Usage.InputTokens + msg.Usage.CacheCreationInputTokens + msg.Usage.CacheReadInputTokens
		usage.OutputTokens = msg.Usage.OutputTokens
	}
	events := []backend.Event{backend.TurnEvent{Done: true, Usage: usage}}
	if msg.IsError {
		text := strings.TrimSpace(resultText(msg.Result))
		if text == "" {
			text = "turn failed"
		}
		events = append(events, backend.ErrorEvent{Err: &turnError{text}})
	}
	return events
}

func resultText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

type turnError struct{ msg string }

func (e *turnError) Error() string { return e.msg }

func (t *translator) streamEvents(msg wireMessage) []backend.Event {
	ev := msg.Event
	if ev == nil {
		return nil
	}
	switch ev.Type {
	case "content_block_start":
		if ev.ContentBlock == nil {
			return nil
		}
		t.blocks[ev.Index] = blockState{kind: ev.ContentBlock.Type, callID: ev.ContentBlock.ID}
		if ev.ContentBlock.Type == "tool_use" {
			call := toolcall.Call{
				ID:      ev.ContentBlock.ID,
				Type:    toolcall.ParseType(ev.ContentBlock.Name),
				RawName: ev.ContentBlock.Name,
				Backend: string(backend.KindClaude),
				Status:  toolcall.StatusPending,
			}
			// Some tools arrive with their input inline even in the
			// streaming envelope.
			if len(ev.ContentBlock.Input) > 0 {
				call.Input = toolcall.CloneInput(ev.ContentBlock.Input)
				call.InputComplete = true
			}
			return []backend.Event{backend.CallEvent{Call: call}}
		}
		return nil
	case "content_block_delta":
		if ev.Delta == nil {
			return nil
		}
		switch ev.Delta.Type {
		case "text_delta":
			if ev.Delta.Text == "" {
				return nil
			}
			return []backend.Event{backend.TextEvent{Text: ev.Delta.Text}}
		case "thinking_delta":
			if ev.Delta.Thinking == "" {
				return nil
			}
			return []backend.Event{backend.ThinkingEvent{Text: ev.Delta.Thinking}}
		case "input_json_delta":
			state, ok := t.blocks[ev.Index]
			if !ok || state.kind != "tool_use" || ev.Delta.PartialJSON == "" {
				return nil
			}
			return []backend.Event{backend.CallDeltaEvent{ID: state.callID, Delta: ev.Delta.PartialJSON}}
		default:
			return nil
		}
	case "content_block_stop":
		delete(t.blocks, ev.Index)
		return nil
	case "message_stop":
		t.blocks = make(map[int]blockState)
		return nil
	default:
		return nil
	}
}
