// Package claude adapts the stream-json protocol spoken by the claude CLI
// (--input-format stream-json --output-format stream-json) onto the
// canonical backend event stream. Tool events pass through nearly
// unchanged: this protocol is the canonical vocabulary.
package claude

import (
	"encoding/json"

	"toolview/internal/permission"
)

// Wire message types, both directions.
const (
	msgTypeSystem          = "system"
	msgTypeAssistant       = "assistant"
	msgTypeUser            = "user"
	msgTypeResult          = "result"
	msgTypeStreamEvent     = "stream_event"
	msgTypeControlRequest  = "control_request"
	msgTypeControlResponse = "control_response"
	msgTypeControlCancel   = "control_cancel_request"
)

// Control request subtypes.
const (
	subtypeInit              = "init"
	subtypeInitialize        = "initialize"
	subtypeInterrupt         = "interrupt"
	subtypeCanUseTool        = "can_use_tool"
	subtypeSetPermissionMode = "set_permission_mode"
)

// wireMessage is the top-level envelope of every stdout line.
type wireMessage struct {
	Type            string       `json:"type"`
	Subtype         string       `json:"subtype,omitempty"`
	SessionID       string       `json:"session_id,omitempty"`
	ParentToolUseID string       `json:"parent_tool_use_id,omitempty"`
	Message         *wireMessageBody `json:"message,omitempty"`
	Event           *wireStreamEvent `json:"event,omitempty"`

	// system/init
	Model          string   `json:"model,omitempty"`
	Cwd            string   `json:"cwd,omitempty"`
	PermissionMode string   `json:"permissionMode,omitempty"`
	Tools          []string `json:"tools,omitempty"`
	SlashCommands  []string `json:"slash_commands,omitempty"`

	// result
	IsError      bool            `json:"is_error,omitempty"`
	DurationMS   int64           `json:"duration_ms,omitempty"`
	NumTurns     int             `json:"num_turns,omitempty"`
	Result       json.RawMessage `json:"result,omitempty"`
	TotalCostUSD float64         `json:"total_cost_usd,omitempty"`
	Usage        *wireUsage      `json:"usage,omitempty"`

	// control plane
	RequestID string               `json:"request_id,omitempty"`
	Request   *wireControlRequest  `json:"request,omitempty"`
	Response  *wireControlResponse `json:"response,omitempty"`
}

// wireMessageBody is the nested assistant/user message payload.
type wireMessageBody struct {
	ID         string          `json:"id,omitempty"`
	Role       string          `json:"role,omitempty"`
	Model      string          `json:"model,omitempty"`
	Content    json.RawMessage `json:"content,omitempty"`
	StopReason string          `json:"stop_reason,omitempty"`
	Usage      *wireUsage      `json:"usage,omitempty"`
}

// ContentBlocks decodes the content field, which is either a plain string
// or an array of typed blocks.
func (m *wireMessageBody) ContentBlocks() []wireContentBlock {
	if m == nil || len(m.Content) == 0 {
		return nil
	}
	var blocks []wireContentBlock
	if err := json.Unmarshal(m.Content, &blocks); err == nil {
		return blocks
	}
	var text string
	if err := json.Unmarshal(m.Content, &text); err == nil && text != "" {
		return []wireContentBlock{{Type: "text", Text: text}}
	}
	return nil
}

// wireContentBlock is one element of a message content array.
type wireContentBlock struct {
	Type string `json:"type"`

	// text / thinking
	Text     string `json:"text,omitempty"`
	Thinking string `json:"thinking,omitempty"`

	// tool_use
	ID    string         `json:"id,omitempty"`
	Name  string         `json:"name,omitempty"`
	Input map[string]any `json:"input,omitempty"`

	// tool_result
	ToolUseID string          `json:"tool_use_id,omitempty"`
	Content   json.RawMessage `json:"content,omitempty"`
	IsError   bool            `json:"is_error,omitempty"`
}

// wireStreamEvent is the partial-message envelope emitted with
// --include-partial-messages.
type wireStreamEvent struct {
	Type         string            `json:"type"`
	Index        int               `json:"index,omitempty"`
	ContentBlock *wireContentBlock `json:"content_block,omitempty"`
	Delta        *wireStreamDelta  `json:"delta,omitempty"`
}

type wireStreamDelta struct {
	Type        string `json:"type"`
	Text        string `json:"text,omitempty"`
	Thinking    string `json:"thinking,omitempty"`
	PartialJSON string `json:"partial_json,omitempty"`
}

// wireControlRequest is the body of an inbound or outbound control_request.
type wireControlRequest struct {
	Subtype string `json:"subtype"`

	// can_use_tool
	ToolName              string              `json:"tool_name,omitempty"`
	Input                 map[string]any      `json:"input,omitempty"`
	ToolUseID             string              `json:"tool_use_id,omitempty"`
	PermissionSuggestions []permission.Update `json:"permission_suggestions,omitempty"`

	// set_permission_mode
	Mode string `json:"mode,omitempty"`
}

// wireControlResponse is the body of a control_response in either
// direction.
type wireControlResponse struct {
	Subtype   string          `json:"subtype"`
	RequestID string          `json:"request_id,omitempty"`
	Response  json.RawMessage `json:"response,omitempty"`
	Error     string          `json:"error,omitempty"`
}

type wireUsage struct {
	InputTokens              int `json:"input_tokens,omitempty"`
	OutputTokens             int `json:"output_tokens,omitempty"`
	CacheCreationInputTokens int `json:"cache_creation_input_tokens,omitempty"`
	CacheReadInputTokens     int `json:"cache_read_input_tokens,omitempty"`
}

// permissionResult is the response payload for a can_use_tool request.
// The deny message is omitted entirely when empty.
type permissionResult struct {
	Behavior           string              `json:"behavior"`
	UpdatedInput       map[string]any      `json:"updatedInput,omitempty"`
	UpdatedPermissions []permission.Update `json:"updatedPermissions,omitempty"`
	Message            string              `json:"message,omitempty"`
	Interrupt          bool                `json:"interrupt,omitempty"`
}

const (
	behaviorAllow = "allow"
	behaviorDeny  = "deny"
)

// encodeUserMessage builds the stdin line for a user prompt.
func encodeUserMessage(sessionID, text string) ([]byte, error) {
	msg := map[string]any{
		"type": msgTypeUser,
		"message": map[string]any{
			"role": "user",
			"content": []map[string]any{
				{"type": "text", "text": text},
			},
		},
		"parent_tool_use_id": nil,
	}
	if sessionID != "" {
		msg["session_id"] = sessionID
	}
	return json.Marshal(msg)
}

// encodeControlRequest builds a control_request stdin line.
func encodeControlRequest(requestID string, req wireControlRequest) ([]byte, error) {
	return json.Marshal(map[string]any{
		"type":       msgTypeControlRequest,
		"request_id": requestID,
		"request":    req,
	})
}

// encodeControlResponse builds a control_response stdin line answering an
// inbound control request.
func encodeControlResponse(requestID string, result permissionResult) ([]byte, error) {
	payload, err := json.Marshal(result)
	if err != nil {
		return nil, err
	}
	return json.Marshal(map[string]any{
		"type": msgTypeControlResponse,
		"response": wireControlResponse{
			Subtype:   "success",
			RequestID: requestID,
			Response:  payload,
		},
	})
}

// encodeControlError reports an unhandled inbound control request back to
// the CLI.
func encodeControlError(requestID, message string) ([]byte, error) {
	return json.Marshal(map[string]any{
		"type": msgTypeControlResponse,
		"response": wireControlResponse{
			Subtype:   "error",
			RequestID: requestID,
			Error:     message,
		},
	})
}
