package session

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Role classifies a transcript entry.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleThinking  Role = "thinking"
	RoleTool      Role = "tool"
	RoleError     Role = "error"
)

// Message is one transcript entry in arrival order. Tool entries carry
// only the call ID; the call itself lives in the session's call store and
// keeps mutating after the message is appended.
type Message struct {
	ID     string
	Role   Role
	Text   string
	CallID string
	// Streaming marks a message still accumulating deltas. The final
	// event replaces the accumulated text wholesale.
	Streaming bool
	At        time.Time
}

func newMessage(role Role, text string) Message {
	return Message{
		ID:   uuid.NewString(),
		Role: role,
		Text: text,
		At:   time.Now(),
	}
}

const maxTitleRunes = 60

// titleFrom derives a session title from the first prompt: the first
// non-empty line, capped to a readable length.
func titleFrom(text string) string {
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		runes := []rune(line)
		if len(runes) > maxTitleRunes {
			return string(runes[:maxTitleRunes-1]) + "…"
		}
		return line
	}
	return ""
}
