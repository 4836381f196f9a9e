package display

import (
	"encoding/json"
	"strings"

	"toolview/internal/toolcall"
)

// ResultText picks the displayable text for a call's result. A plain string
// content wins outright; structured payloads are sniffed by tool type, with
// command tools preferring stdout and everything else preferring content.
func ResultText(c toolcall.Call) string {
	res := c.Result
	if res == nil {
		return ""
	}
	if res.Content != "" {
		return res.Content
	}
	st := res.Structured
	if st == nil {
		return res.Error
	}
	switch c.Type {
	case toolcall.TypeBash, toolcall.TypeBashOutput, toolcall.TypeKillShell:
		for _, key := range []string{"stdout", "output", "content", "stderr"} {
			if s := toolcall.StringField(st, key); s != "" {
				return s
			}
		}
	default:
		for _, key := range []string{"content", "output", "stdout", "stderr"} {
			if s := toolcall.StringField(st, key); s != "" {
				return s
			}
		}
	}
	return res.Error
}

// ResultContentKind classifies the result text of fetch-style tools using
// any mime hint the backend left in the structured payload.
func ResultContentKind(c toolcall.Call) ContentKind {
	var hint string
	if res := c.Result; res != nil && res.Structured != nil {
		hint = toolcall.StringField(res.Structured, "content-type", "contentType", "mimeType", "mime_type")
	}
	return Classify(ResultText(c), hint)
}

// Classify maps content onto a rendering kind. The mime hint decides when
// present; otherwise a parse check is the last-resort JSON classifier.
func Classify(content, mimeHint string) ContentKind {
	hint := strings.ToLower(mimeHint)
	switch {
	case strings.Contains(hint, "markdown"):
		return ContentMarkdown
	case strings.Contains(hint, "json"):
		return ContentJSON
	case strings.Contains(hint, "text/plain"):
		return ContentText
	}
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return ContentText
	}
	if trimmed[0] == '{' || trimmed[0] == '[' {
		if json.Valid([]byte(trimmed)) {
			return ContentJSON
		}
	}
	return ContentText
}

// Preview renders the result text capped to the per-type threshold, with
// its content kind. Fetch and search results get the wide cap, everything
// else the preview cap.
func Preview(c toolcall.Call) (string, ContentKind) {
	text := ResultText(c)
	switch c.Type {
	case toolcall.TypeWebFetch, toolcall.TypeWebSearch, toolcall.TypeMcp:
		return Truncate(text, ResultLimit), ResultContentKind(c)
	case toolcall.TypeBash, toolcall.TypeBashOutput, toolcall.TypeGrep, toolcall.TypeGlob, toolcall.TypeTask:
		return Truncate(text, ResultLimit), ContentText
	default:
		return Truncate(text, PreviewLimit), ContentText
	}
}
