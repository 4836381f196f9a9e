package backend

import "toolview/internal/toolcall"

// QuestionsFromInput decodes an AskUserQuestion tool input into the
// canonical question batch. Malformed entries are skipped, never fatal.
func QuestionsFromInput(input map[string]any) []Question {
	var out []Question
	for _, item := range toolcall.SliceField(input, "questions") {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		q := Question{
			Text:        toolcall.StringField(m, "question", "text"),
			Header:      toolcall.StringField(m, "header"),
			MultiSelect: toolcall.BoolField(m, "multiSelect", "multi_select"),
		}
		for _, o := range toolcall.SliceField(m, "options") {
			switch opt := o.(type) {
			case map[string]any:
				q.Options = append(q.Options, QuestionOption{
					Label:       toolcall.StringField(opt, "label", "value"),
					Description: toolcall.StringField(opt, "description"),
				})
			case string:
				q.Options = append(q.Options, QuestionOption{Label: opt})
			}
		}
		if q.Text != "" {
			out = append(out, q)
		}
	}
	return out
}
