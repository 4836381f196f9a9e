package toolcall

// Typed parameter views over Call.Input. Keys mirror the canonical wire shape
// ("file_path", "old_string", ...) with tolerant fallbacks for the aliases the
// alternate backend produces before normalization catches them.

const (
	// ReadDefaultLimit matches the canonical Read tool default window.
	ReadDefaultLimit = 2000
)

// EditParams are the parameters of an Edit call.
type EditParams struct {
	FilePath   string `json:"file_path"`
	OldString  string `json:"old_string"`
	NewString  string `json:"new_string"`
	ReplaceAll bool   `json:"replace_all,omitempty"`
}

// EditParams decodes the edit parameter view.
func (c Call) EditParams() EditParams {
	return EditParams{
		FilePath:   StringField(c.Input, "file_path", "path", "filePath"),
		OldString:  StringField(c.Input, "old_string", "before", "oldContent"),
		NewString:  StringField(c.Input, "new_string", "after", "newContent"),
		ReplaceAll: BoolField(c.Input, "replace_all"),
	}
}

// EditOp is one entry of a MultiEdit batch.
type EditOp struct {
	OldString  string `json:"old_string"`
	NewString  string `json:"new_string"`
	ReplaceAll bool   `json:"replace_all,omitempty"`
}

// MultiEditParams are the parameters of a MultiEdit call.
type MultiEditParams struct {
	FilePath string   `json:"file_path"`
	Edits    []EditOp `json:"edits"`
}

// MultiEditParams decodes the multi-edit parameter view.
func (c Call) MultiEditParams() MultiEditParams {
	params := MultiEditParams{
		FilePath: StringField(c.Input, "file_path", "path", "filePath"),
	}
	for _, item := range SliceField(c.Input, "edits") {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		params.Edits = append(params.Edits, EditOp{
			OldString:  StringField(m, "old_string"),
			NewString:  StringField(m, "new_string"),
			ReplaceAll: BoolField(m, "replace_all"),
		})
	}
	return params
}

// WriteParams are the parameters of a Write call.
type WriteParams struct {
	FilePath string `json:"file_path"`
	Content  string `json:"content"`
}

// WriteParams decodes the write parameter view.
func (c Call) WriteParams() WriteParams {
	return WriteParams{
		FilePath: StringField(c.Input, "file_path", "path", "filePath"),
		Content:  StringField(c.Input, "content"),
	}
}

// ReadParams are the parameters of a Read call.
type ReadParams struct {
	FilePath string `json:"file_path"`
	Offset   int    `json:"offset,omitempty"`
	Limit    int    `json:"limit,omitempty"`
}

// ReadParams decodes the read parameter view. HasLimit reports whether the
// caller supplied an explicit window.
func (c Call) ReadParams() (ReadParams, bool) {
	params := ReadParams{
		FilePath: StringField(c.Input, "file_path", "path", "filePath"),
	}
	if offset, ok := IntField(c.Input, "offset"); ok {
		params.Offset = offset
	}
	limit, hasLimit := IntField(c.Input, "limit")
	if hasLimit {
		params.Limit = limit
	}
	return params, hasLimit
}

// BashParams are the parameters of a Bash call.
type BashParams struct {
	Command     string `json:"command"`
	Description string `json:"description,omitempty"`
	Cwd         string `json:"cwd,omitempty"`
	Timeout     int    `json:"timeout,omitempty"`
	RunInBg     bool   `json:"run_in_background,omitempty"`
}

// BashParams decodes the bash parameter view.
func (c Call) BashParams() BashParams {
	params := BashParams{
		Command:     StringField(c.Input, "command", "cmd"),
		Description: StringField(c.Input, "description"),
		Cwd:         StringField(c.Input, "cwd", "working_dir"),
		RunInBg:     BoolField(c.Input, "run_in_background"),
	}
	if timeout, ok := IntField(c.Input, "timeout", "timeout_ms"); ok {
		params.Timeout = timeout
	}
	return params
}

// ShellIDParams cover BashOutput and KillShell, both keyed by a shell id.
type ShellIDParams struct {
	ShellID string `json:"bash_id"`
	Filter  string `json:"filter,omitempty"`
}

// ShellIDParams decodes the shell-id parameter view.
func (c Call) ShellIDParams() ShellIDParams {
	return ShellIDParams{
		ShellID: StringField(c.Input, "bash_id", "shell_id", "id"),
		Filter:  StringField(c.Input, "filter"),
	}
}

// GrepParams are the parameters of a Grep call.
type GrepParams struct {
	Pattern    string `json:"pattern"`
	Path       string `json:"path,omitempty"`
	Glob       string `json:"glob,omitempty"`
	OutputMode string `json:"output_mode,omitempty"`
}

// GrepParams decodes the grep parameter view.
func (c Call) GrepParams() GrepParams {
	return GrepParams{
		Pattern:    StringField(c.Input, "pattern", "query"),
		Path:       StringField(c.Input, "path"),
		Glob:       StringField(c.Input, "glob", "include"),
		OutputMode: StringField(c.Input, "output_mode"),
	}
}

// GlobParams are the parameters of a Glob call.
type GlobParams struct {
	Pattern string `json:"pattern"`
	Path    string `json:"path,omitempty"`
}

// GlobParams decodes the glob parameter view.
func (c Call) GlobParams() GlobParams {
	return GlobParams{
		Pattern: StringField(c.Input, "pattern"),
		Path:    StringField(c.Input, "path"),
	}
}

// WebFetchParams are the parameters of a WebFetch call.
type WebFetchParams struct {
	URL    string `json:"url"`
	Prompt string `json:"prompt,omitempty"`
}

// WebFetchParams decodes the web-fetch parameter view.
func (c Call) WebFetchParams() WebFetchParams {
	return WebFetchParams{
		URL:    StringField(c.Input, "url"),
		Prompt: StringField(c.Input, "prompt"),
	}
}

// WebSearchParams are the parameters of a WebSearch call.
type WebSearchParams struct {
	Query string `json:"query"`
}

// WebSearchParams decodes the web-search parameter view.
func (c Call) WebSearchParams() WebSearchParams {
	return WebSearchParams{Query: StringField(c.Input, "query")}
}

// TaskParams are the parameters of a sub-agent Task call.
type TaskParams struct {
	Description  string `json:"description"`
	Prompt       string `json:"prompt,omitempty"`
	SubagentType string `json:"subagent_type,omitempty"`
}

// TaskParams decodes the task parameter view.
func (c Call) TaskParams() TaskParams {
	return TaskParams{
		Description:  StringField(c.Input, "description"),
		Prompt:       StringField(c.Input, "prompt"),
		SubagentType: StringField(c.Input, "subagent_type"),
	}
}

// TodoItem is one entry of a TodoWrite batch.
type TodoItem struct {
	Content    string `json:"content"`
	Status     string `json:"status"`
	ActiveForm string `json:"activeForm,omitempty"`
}

// TodoParams decodes the todo list view.
func (c Call) TodoParams() []TodoItem {
	var todos []TodoItem
	for _, item := range SliceField(c.Input, "todos") {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		todos = append(todos, TodoItem{
			Content:    StringField(m, "content"),
			Status:     StringField(m, "status"),
			ActiveForm: StringField(m, "activeForm"),
		})
	}
	return todos
}

// PlanParams decodes the ExitPlanMode view (the proposed plan markdown).
func (c Call) PlanParams() string {
	return StringField(c.Input, "plan")
}

// SlashCommandParams decodes the SlashCommand view.
func (c Call) SlashCommandParams() string {
	return StringField(c.Input, "command")
}

// SkillParams decodes the Skill invocation view.
func (c Call) SkillParams() string {
	return StringField(c.Input, "skill", "name", "skill_name")
}
