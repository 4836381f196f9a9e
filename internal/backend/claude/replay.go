package claude

import (
	"bytes"
	"encoding/json"

	"toolview/internal/backend"
)

// Replayer translates recorded stream-json lines without a live subprocess.
// Control traffic is a live-session concern and is skipped; everything else
// goes through the same translation a running session uses.
type Replayer struct {
	t *translator
}

func NewReplayer() *Replayer {
	return &Replayer{t: newTranslator()}
}

// Line maps one recorded line onto canonical events. Blank and malformed
// lines translate to nothing.
func (r *Replayer) Line(data []byte) []backend.Event {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil
	}
	var msg wireMessage
	if err := json.Unmarshal(trimmed, &msg); err != nil {
		return nil
	}
	switch msg.Type {
	case msgTypeControlRequest, msgTypeControlResponse, msgTypeControlCancel:
		return nil
	}
	return r.t.translate(msg)
}
