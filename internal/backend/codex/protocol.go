package codex

import (
	"strings"

	"toolview/internal/toolcall"
)

// Wire event types, one JSON object per stdout line. Thread events frame the
// conversation, turn events frame one prompt/response cycle, and item events
// carry the work the assistant performs inside a turn.
const (
	evThreadStarted = "thread.started"
	evTurnStarted   = "turn.started"
	evTurnCompleted = "turn.completed"
	evTurnFailed    = "turn.failed"
	evItemStarted   = "item.started"
	evItemUpdated   = "item.updated"
	evItemCompleted = "item.completed"
	evError         = "error"
)

type wireEvent struct {
	Type     string         `json:"type"`
	ThreadID string         `json:"thread_id"`
	Item     map[string]any `json:"item"`
	Error    *wireError     `json:"error"`
	Usage    *wireUsage     `json:"usage"`
	Message  string         `json:"message"`
}

type wireError struct {
	Message string `json:"message"`
}

type wireUsage struct {
	InputTokens       int `json:"input_tokens"`
	CachedInputTokens int `json:"cached_input_tokens"`
	OutputTokens      int `json:"output_tokens"`
}

// ItemKind discriminates the item payload shapes this backend emits.
type ItemKind int

const (
	ItemUnknown ItemKind = iota
	ItemCommand
	ItemFileChange
	ItemMcpCall
	ItemReasoning
	ItemAgentMessage
	ItemWebSearch
	ItemTodoList
	ItemError
)

// ParseItemKind is tolerant of naming drift between releases: snake_case,
// camelCase, and dotted variants of the same kind all map to one value.
func ParseItemKind(name string) ItemKind {
	key := strings.ToLower(name)
	key = strings.NewReplacer("_", "", "-", "", ".", "").Replace(key)
	switch key {
	case "commandexecution", "command", "localshellcall":
		return ItemCommand
	case "filechange", "fileedit", "patch":
		return ItemFileChange
	case "mcptoolcall", "mcpcall":
		return ItemMcpCall
	case "reasoning":
		return ItemReasoning
	case "agentmessage", "assistantmessage", "message":
		return ItemAgentMessage
	case "websearch":
		return ItemWebSearch
	case "todolist", "plan":
		return ItemTodoList
	case "error":
		return ItemError
	default:
		return ItemUnknown
	}
}

// Item is one unit of assistant work, decoded loosely: Fields keeps every
// key the wire carried so the adapter can sniff whatever shape arrived.
type Item struct {
	ID      string
	Kind    ItemKind
	RawKind string
	Fields  map[string]any
}

func itemOf(fields map[string]any) Item {
	rawKind := toolcall.StringField(fields, "item_type", "type")
	return Item{
		ID:      toolcall.StringField(fields, "id", "item_id", "call_id"),
		Kind:    ParseItemKind(rawKind),
		RawKind: rawKind,
		Fields:  fields,
	}
}

func itemFailed(item Item) bool {
	if item.Kind == ItemError {
		return true
	}
	return toolcall.StringField(item.Fields, "status") == "failed"
}
