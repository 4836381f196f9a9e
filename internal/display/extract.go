package display

import (
	"fmt"
	"strings"

	"toolview/internal/toolcall"
)

// Extract derives the display model for one call. It is safe to call on
// every render: same call in, same info out.
func Extract(c toolcall.Call) Info {
	info := Info{
		Icon:         iconFor(c.Type),
		Action:       actionFor(c),
		State:        stateFor(c.Status),
		InputLoading: c.InputLoading(),
	}

	switch c.Type {
	case toolcall.TypeRead:
		params, hasLimit := c.ReadParams()
		info.Primary = params.FilePath
		if hasLimit {
			info.ReadLines = intPtr(params.Limit)
		} else if c.Result != nil {
			if text := ResultText(c); text != "" {
				info.ReadLines = intPtr(CountLines(text))
			}
		}
	case toolcall.TypeWrite:
		params := c.WriteParams()
		info.Primary = params.FilePath
		info.Secondary = Truncate(params.Content, PreviewLimit)
		// A write badges only the added count; edits are the one card
		// that carries both added and removed.
		if params.Content != "" {
			info.AddedLines = intPtr(CountLines(params.Content))
		}
	case toolcall.TypeEdit:
		params := c.EditParams()
		info.Primary = params.FilePath
		_, added, removed := DiffStats(params.FilePath, params.OldString, params.NewString)
		info.AddedLines = intPtr(added)
		info.RemovedLines = intPtr(removed)
	case toolcall.TypeMultiEdit:
		params := c.MultiEditParams()
		info.Primary = params.FilePath
		added, removed := 0, 0
		for _, edit := range params.Edits {
			_, a, r := DiffStats(params.FilePath, edit.OldString, edit.NewString)
			added += a
			removed += r
		}
		info.AddedLines = intPtr(added)
		info.RemovedLines = intPtr(removed)
		if n := len(params.Edits); n > 0 {
			info.Secondary = fmt.Sprintf("%d edits", n)
		}
	case toolcall.TypeNotebookEdit:
		info.Primary = toolcall.StringField(c.Input, "notebook_path")
	case toolcall.TypeBash:
		params := c.BashParams()
		info.Primary = Truncate(params.Command, PreviewLimit)
		info.Secondary = params.Description
	case toolcall.TypeBashOutput:
		params := c.ShellIDParams()
		info.Primary = params.ShellID
		info.Secondary = params.Filter
	case toolcall.TypeKillShell:
		info.Primary = c.ShellIDParams().ShellID
	case toolcall.TypeGrep:
		params := c.GrepParams()
		info.Primary = params.Pattern
		info.Secondary = strings.TrimSpace(params.Path + " " + params.Glob)
	case toolcall.TypeGlob:
		params := c.GlobParams()
		info.Primary = params.Pattern
		info.Secondary = params.Path
	case toolcall.TypeLS:
		info.Primary = toolcall.StringField(c.Input, "path")
	case toolcall.TypeWebFetch:
		params := c.WebFetchParams()
		info.Primary = params.URL
		info.Secondary = Truncate(params.Prompt, PreviewLimit)
	case toolcall.TypeWebSearch:
		info.Primary = c.WebSearchParams().Query
	case toolcall.TypeTask:
		params := c.TaskParams()
		info.Primary = params.Description
		info.Secondary = params.SubagentType
	case toolcall.TypeTodoWrite:
		info.Primary, info.Secondary = todoSummary(c.TodoParams())
	case toolcall.TypeAskUserQuestion:
		info.Primary, info.Secondary = questionSummary(c.Input)
	case toolcall.TypeExitPlanMode:
		info.Primary = Truncate(c.PlanParams(), PreviewLimit)
	case toolcall.TypeSlashCommand:
		info.Primary = c.SlashCommandParams()
	case toolcall.TypeSkill:
		info.Primary = c.SkillParams()
	case toolcall.TypeMcp:
		info.Primary = McpDisplayName(c.RawName)
		info.Secondary = Truncate(c.InputJSON(), PreviewLimit)
	case toolcall.TypeThinking:
		info.Primary = Truncate(toolcall.StringField(c.Input, "text", "thinking"), PreviewLimit)
	default:
		// Unknown tools still get a card: raw name, backend, raw input.
		info.Primary = Truncate(c.InputJSON(), PreviewLimit)
		info.Secondary = c.Backend
	}

	if info.State == StateError {
		info.ErrorMessage = errorText(c)
	}
	return info
}

func stateFor(s toolcall.Status) State {
	switch s {
	case toolcall.StatusSuccess:
		return StateSuccess
	case toolcall.StatusFailed, toolcall.StatusCancelled:
		return StateError
	default:
		return StatePending
	}
}

func errorText(c toolcall.Call) string {
	if res := c.Result; res != nil && res.IsError {
		if text := strings.TrimSpace(res.Text()); text != "" {
			return text
		}
	}
	if reason := strings.TrimSpace(c.Reason); reason != "" {
		return reason
	}
	if c.Status == toolcall.StatusCancelled {
		return "cancelled"
	}
	return "failed"
}

func actionFor(c toolcall.Call) string {
	switch c.Type {
	case toolcall.TypeRead:
		return "Read"
	case toolcall.TypeWrite:
		return "Write"
	case toolcall.TypeEdit:
		return "Edit"
	case toolcall.TypeMultiEdit:
		return "Multi-edit"
	case toolcall.TypeNotebookEdit:
		return "Notebook edit"
	case toolcall.TypeBash:
		return "Run"
	case toolcall.TypeBashOutput:
		return "Shell output"
	case toolcall.TypeKillShell:
		return "Kill shell"
	case toolcall.TypeGrep:
		return "Search"
	case toolcall.TypeGlob:
		return "Find files"
	case toolcall.TypeLS:
		return "List"
	case toolcall.TypeWebFetch:
		return "Fetch"
	case toolcall.TypeWebSearch:
		return "Web search"
	case toolcall.TypeTask:
		return "Task"
	case toolcall.TypeTodoWrite:
		return "Update todos"
	case toolcall.TypeAskUserQuestion:
		return "Question"
	case toolcall.TypeExitPlanMode:
		return "Plan"
	case toolcall.TypeSlashCommand:
		return "Command"
	case toolcall.TypeMcp:
		return "MCP"
	case toolcall.TypeSkill:
		return "Skill"
	case toolcall.TypeThinking:
		return "Thinking"
	default:
		return c.Name()
	}
}

func iconFor(t toolcall.Type) string {
	switch t {
	case toolcall.TypeRead, toolcall.TypeLS:
		return "file"
	case toolcall.TypeWrite, toolcall.TypeEdit, toolcall.TypeMultiEdit, toolcall.TypeNotebookEdit:
		return "pencil"
	case toolcall.TypeBash, toolcall.TypeBashOutput, toolcall.TypeKillShell:
		return "terminal"
	case toolcall.TypeGrep, toolcall.TypeGlob:
		return "search"
	case toolcall.TypeWebFetch, toolcall.TypeWebSearch:
		return "globe"
	case toolcall.TypeTask:
		return "agent"
	case toolcall.TypeTodoWrite:
		return "checklist"
	case toolcall.TypeAskUserQuestion:
		return "question"
	case toolcall.TypeExitPlanMode:
		return "plan"
	case toolcall.TypeSlashCommand:
		return "slash"
	case toolcall.TypeMcp:
		return "plug"
	case toolcall.TypeSkill:
		return "sparkle"
	case toolcall.TypeThinking:
		return "thought"
	default:
		return "tool"
	}
}

// McpDisplayName renders mcp__server__tool as "server · tool"; anything
// else passes through.
func McpDisplayName(rawName string) string {
	trimmed := strings.TrimSpace(rawName)
	if !strings.HasPrefix(trimmed, toolcall.McpNamePrefix) {
		if trimmed == "" {
			return "mcp"
		}
		return trimmed
	}
	rest := strings.TrimPrefix(trimmed, toolcall.McpNamePrefix)
	parts := strings.SplitN(rest, "__", 2)
	if len(parts) == 2 && parts[0] != "" && parts[1] != "" {
		return parts[0] + " · " + parts[1]
	}
	if rest == "" {
		return "mcp"
	}
	return rest
}

func todoSummary(todos []toolcall.TodoItem) (string, string) {
	if len(todos) == 0 {
		return "", ""
	}
	done := 0
	active := ""
	for _, todo := range todos {
		switch todo.Status {
		case "completed":
			done++
		case "in_progress":
			if active == "" {
				active = todo.ActiveForm
				if active == "" {
					active = todo.Content
				}
			}
		}
	}
	primary := active
	if primary == "" {
		primary = fmt.Sprintf("%d tasks", len(todos))
	}
	return primary, fmt.Sprintf("%d/%d done", done, len(todos))
}

func questionSummary(input map[string]any) (string, string) {
	questions := toolcall.SliceField(input, "questions")
	if len(questions) == 0 {
		return "", ""
	}
	first, ok := questions[0].(map[string]any)
	if !ok {
		return "", ""
	}
	primary := toolcall.StringField(first, "question", "text")
	secondary := ""
	if len(questions) > 1 {
		secondary = fmt.Sprintf("%d questions", len(questions))
	}
	return primary, secondary
}

func intPtr(n int) *int { return &n }
