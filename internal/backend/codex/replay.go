package codex

import (
	"bytes"
	"encoding/json"

	"toolview/internal/backend"
)

// Replayer translates recorded thread JSONL without launching the CLI. It
// shares the live session's translation so a replayed transcript renders
// exactly like it did the first time.
type Replayer struct {
	s *Session
}

func NewReplayer() *Replayer {
	return &Replayer{s: NewSession(Options{})}
}

// Line maps one recorded line onto canonical events. Blank and malformed
// lines translate to nothing.
func (r *Replayer) Line(data []byte) []backend.Event {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil
	}
	var ev wireEvent
	if err := json.Unmarshal(trimmed, &ev); err != nil {
		return nil
	}
	return r.s.translate(ev)
}
