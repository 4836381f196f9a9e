package codex

import (
	"strings"

	"toolview/internal/toolcall"
)

// Normalize maps one item onto the canonical call shape. It is total:
// unrecognized kinds become a fallback card carrying the raw payload, and
// missing fields degrade to empty values rather than errors.
func Normalize(item Item) toolcall.Call {
	call := toolcall.Call{
		ID:            item.ID,
		Backend:       "codex",
		Status:        toolcall.StatusRunning,
		InputComplete: true,
	}
	switch item.Kind {
	case ItemCommand:
		call.Type = toolcall.TypeBash
		call.RawName = "Bash"
		call.Input = commandInput(item.Fields)
	case ItemFileChange:
		call.Type, call.RawName, call.Input = fileChangeCall(item.Fields)
	case ItemMcpCall:
		call.Type = toolcall.TypeMcp
		call.RawName = mcpName(item.Fields)
		call.Input = mcpInput(item.Fields)
	case ItemReasoning:
		// Reasoning is not a tool; when one is routed here anyway it gets
		// a minimal placeholder instead of crashing the stream.
		call.Type = toolcall.TypeThinking
		call.RawName = "Thinking"
		call.Input = map[string]any{"text": toolcall.StringField(item.Fields, "text", "content")}
	case ItemWebSearch:
		call.Type = toolcall.TypeWebSearch
		call.RawName = "WebSearch"
		call.Input = map[string]any{"query": toolcall.StringField(item.Fields, "query", "q")}
	case ItemTodoList:
		call.Type = toolcall.TypeTodoWrite
		call.RawName = "TodoWrite"
		call.Input = map[string]any{"todos": todoInput(item.Fields)}
	default:
		call.Type = toolcall.TypeUnknown
		call.RawName = fallbackName(item)
		call.Input = toolcall.CloneInput(item.Fields)
	}
	return call
}

func commandInput(fields map[string]any) map[string]any {
	input := map[string]any{"command": commandString(fields)}
	if cwd := toolcall.StringField(fields, "cwd", "working_dir"); cwd != "" {
		input["cwd"] = cwd
	}
	if desc := toolcall.StringField(fields, "description"); desc != "" {
		input["description"] = desc
	}
	if timeout, ok := toolcall.IntField(fields, "timeout", "timeout_ms"); ok {
		input["timeout"] = timeout
	}
	return input
}

// commandString accepts both a plain string and an argv array.
func commandString(fields map[string]any) string {
	if argv := toolcall.SliceField(fields, "command", "cmd"); argv != nil {
		parts := make([]string, 0, len(argv))
		for _, a := range argv {
			if s, ok := a.(string); ok {
				parts = append(parts, s)
			}
		}
		if len(parts) > 0 {
			return strings.Join(parts, " ")
		}
	}
	return toolcall.StringField(fields, "command", "cmd")
}

func fileChangeCall(fields map[string]any) (toolcall.Type, string, map[string]any) {
	path := toolcall.StringField(fields, "path", "file_path")
	if path == "" {
		if changes := toolcall.SliceField(fields, "changes"); len(changes) > 0 {
			if first, ok := changes[0].(map[string]any); ok {
				path = toolcall.StringField(first, "path", "file_path")
			}
		}
	}
	op := strings.ToLower(toolcall.StringField(fields, "operation", "op", "kind"))
	if op == "create" || op == "add" {
		return toolcall.TypeWrite, "Write", map[string]any{
			"file_path": path,
			"content":   toolcall.StringField(fields, "content", "after", "new_content"),
		}
	}
	return toolcall.TypeEdit, "Edit", map[string]any{
		"file_path":   path,
		"old_string":  toolcall.StringField(fields, "before", "old_content"),
		"new_string":  toolcall.StringField(fields, "after", "new_content"),
		"replace_all": false,
	}
}

// mcpName prefers the composite server/tool form and falls back through the
// loose name fields, ending at a recognizable placeholder.
func mcpName(fields map[string]any) string {
	server := toolcall.StringField(fields, "server", "server_name")
	tool := toolcall.StringField(fields, "tool", "tool_name")
	if server != "" && tool != "" {
		return "mcp__" + server + "__" + tool
	}
	if name := toolcall.StringField(fields, "tool_name", "name"); name != "" {
		return name
	}
	return "mcp__unknown"
}

func mcpInput(fields map[string]any) map[string]any {
	if m := toolcall.MapField(fields, "parameters", "args", "arguments", "input"); m != nil {
		return toolcall.CloneInput(m)
	}
	return map[string]any{}
}

func todoInput(fields map[string]any) []any {
	items := toolcall.SliceField(fields, "items", "todos")
	todos := make([]any, 0, len(items))
	for _, it := range items {
		m, ok := it.(map[string]any)
		if !ok {
			continue
		}
		status := toolcall.StringField(m, "status")
		if status == "" {
			if toolcall.BoolField(m, "completed") {
				status = "completed"
			} else {
				status = "pending"
			}
		}
		todos = append(todos, map[string]any{
			"content": toolcall.StringField(m, "text", "content"),
			"status":  status,
		})
	}
	return todos
}

func fallbackName(item Item) string {
	if item.RawKind != "" {
		return item.RawKind
	}
	return "unknown"
}

// AdaptResult converts a result payload to the canonical {content, isError}
// shape. Nil payloads fall back to the output string the item itself
// carried; payloads keyed by success/error are re-keyed; anything already
// canonical passes through unchanged.
func AdaptResult(payload map[string]any, fallback string) toolcall.Result {
	if payload == nil {
		return toolcall.SuccessResult(fallback)
	}
	successVal, hasSuccess := payload["success"]
	errText, hasError := fieldString(payload, "error")
	if hasSuccess || hasError {
		isError := hasError
		if hasSuccess && successVal != nil && !toolcall.BoolField(payload, "success") {
			isError = true
		}
		content, ok := fieldString(payload, "error")
		if !ok {
			content, ok = fieldString(payload, "output")
		}
		if !ok {
			content, ok = fieldString(payload, "result")
		}
		if !ok {
			content = fallback
		}
		res := toolcall.GenericResult(content, isError)
		if isError {
			res.Kind = toolcall.ResultFailure
			res.Error = errText
			if res.Error == "" {
				res.Error = content
			}
		}
		res.Structured = toolcall.CloneInput(payload)
		return res
	}
	content, ok := fieldString(payload, "content")
	if !ok {
		content = fallback
	}
	res := toolcall.GenericResult(content, toolcall.BoolField(payload, "is_error"))
	res.Structured = toolcall.CloneInput(payload)
	return res
}

// fieldString reports presence separately from value so an explicitly empty
// field still wins over later fallbacks.
func fieldString(payload map[string]any, key string) (string, bool) {
	v, present := payload[key]
	if !present || v == nil {
		return "", false
	}
	return toolcall.StringField(payload, key), true
}

// ResultFor derives the canonical result of a finished item. The second
// return is false for kinds that never carry one.
func ResultFor(item Item) (toolcall.Result, bool) {
	switch item.Kind {
	case ItemReasoning, ItemAgentMessage:
		return toolcall.Result{}, false
	}
	fallback := toolcall.StringField(item.Fields, "aggregated_output", "output", "stdout")
	if payload := toolcall.MapField(item.Fields, "result"); payload != nil {
		return AdaptResult(payload, fallback), true
	}
	if code, ok := toolcall.IntField(item.Fields, "exit_code"); ok {
		return toolcall.CommandResult(fallback, code), true
	}
	if itemFailed(item) {
		msg := toolcall.StringField(item.Fields, "error", "message")
		if msg == "" {
			msg = fallback
		}
		if msg == "" {
			msg = "failed"
		}
		return toolcall.FailureResult(msg), true
	}
	return AdaptResult(nil, fallback), true
}
