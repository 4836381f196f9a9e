package cli

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"toolview/internal/backend"
	"toolview/internal/backend/claude"
	"toolview/internal/backend/codex"
	"toolview/internal/display"
	"toolview/internal/toolcall"
)

// ReplayOptions select how a recorded transcript is rendered.
type ReplayOptions struct {
	// Backend names the adapter; empty sniffs it from the first line.
	Backend string
	// JSON emits one line per tool call instead of styled output.
	JSON bool
	// Follow keeps reading as the file grows.
	Follow bool
}

// lineTranslator maps one recorded line onto canonical events.
type lineTranslator interface {
	Line(data []byte) []backend.Event
}

// Replay renders a recorded backend stream through the adapter and the
// display extractor, with no live process behind it.
func Replay(path string, opts ReplayOptions) error {
	var emitter EventEmitter
	if opts.JSON {
		emitter = NewJSONEmitter()
	} else {
		emitter = NewPrettyEmitter()
	}
	return replayFile(path, opts, emitter)
}

func replayFile(path string, opts ReplayOptions, emitter EventEmitter) error {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}

	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open transcript: %w", err)
	}
	defer file.Close()

	run := &replayRun{
		emitter: emitter,
		calls:   toolcall.NewStore(),
		emitted: make(map[string]bool),
	}
	defer run.calls.Shutdown()

	if kind := strings.ToLower(strings.TrimSpace(opts.Backend)); kind != "" {
		k, ok := backend.ParseKind(kind)
		if !ok {
			return fmt.Errorf("unknown backend %q (want claude or codex)", opts.Backend)
		}
		run.translator = translatorFor(k)
	}

	var watcher *fsnotify.Watcher
	if opts.Follow {
		watcher, err = fsnotify.NewWatcher()
		if err != nil {
			return fmt.Errorf("failed to start watcher: %w", err)
		}
		defer watcher.Close()
		// Watch the directory: writers often replace the file, and
		// directory watches survive that.
		if err := watcher.Add(filepath.Dir(path)); err != nil {
			return fmt.Errorf("failed to watch transcript: %w", err)
		}
	}

	reader := bufio.NewReaderSize(file, 1024*1024)
	var pending []byte
	for {
		chunk, err := reader.ReadBytes('\n')
		pending = append(pending, chunk...)
		if err == nil {
			run.handleLine(pending)
			pending = pending[:0]
			continue
		}
		if !errors.Is(err, io.EOF) {
			return fmt.Errorf("failed to read transcript: %w", err)
		}
		if !opts.Follow {
			break
		}
		if err := waitForChange(watcher, path); err != nil {
			return err
		}
	}

	// A final line without a trailing newline still counts.
	run.handleLine(pending)
	run.flushPending()
	run.emitter.EmitSummary(run.callCount, run.turnCount)
	return nil
}

type replayRun struct {
	emitter    EventEmitter
	translator lineTranslator
	calls      *toolcall.Store
	emitted    map[string]bool
	streamed   bool
	callCount  int
	turnCount  int
}

func (r *replayRun) handleLine(line []byte) {
	trimmed := bytes.TrimSpace(line)
	if len(trimmed) == 0 {
		return
	}
	if r.translator == nil {
		r.translator = translatorFor(sniffBackend(trimmed))
	}
	for _, ev := range r.translator.Line(trimmed) {
		r.apply(ev)
	}
}

func (r *replayRun) apply(ev backend.Event) {
	switch ev := ev.(type) {
	case backend.InitEvent:
		r.emitter.EmitInit(ev.SessionID, ev.Model, ev.Cwd)
	case backend.TextEvent:
		if !ev.Final {
			r.streamed = true
			r.emitter.EmitStreamingText(ev.Text)
			return
		}
		if r.streamed {
			// Deltas already printed the text; just close the block.
			r.streamed = false
			r.emitter.EmitStreamingComplete()
			return
		}
		if ev.Text != "" {
			r.emitter.EmitText(ev.Text)
		}
	case backend.ThinkingEvent:
		// Replay has no live pacing, so only the final text renders.
		if ev.Final && ev.Text != "" {
			r.emitter.EmitThinking(ev.Text)
		}
	case backend.CallEvent:
		r.calls.Ensure(ev.Call)
	case backend.CallDeltaEvent:
		r.calls.AppendInputDelta(ev.ID, ev.Delta)
	case backend.CallResultEvent:
		if call, ok := r.calls.Complete(ev.ID, ev.Result); ok {
			r.render(call)
		}
	case backend.ModeEvent:
		r.emitter.EmitMode(string(ev.Mode))
	case backend.TurnEvent:
		if ev.Done {
			r.flushPending()
			r.turnCount++
			r.emitter.EmitTurn(ev.Usage)
		}
	case backend.ErrorEvent:
		r.emitter.EmitError(ev.Err)
	}
}

func (r *replayRun) render(call toolcall.Call) {
	if r.emitted[call.ID] {
		return
	}
	r.emitted[call.ID] = true
	r.callCount++
	r.emitter.EmitCall(call, display.Extract(call))
}

// flushPending renders calls that never saw a result, so a truncated
// recording still shows what was in flight.
func (r *replayRun) flushPending() {
	for _, call := range r.calls.List() {
		r.render(call)
	}
}

// sniffBackend guesses the adapter from the first recorded line. The codex
// stream names its events with dotted types ("thread.started"); the claude
// stream uses bare message types.
func sniffBackend(line []byte) backend.Kind {
	var probe struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(line, &probe); err != nil {
		return backend.KindClaude
	}
	if strings.Contains(probe.Type, ".") || probe.Type == "error" {
		return backend.KindCodex
	}
	return backend.KindClaude
}

func translatorFor(kind backend.Kind) lineTranslator {
	if kind == backend.KindCodex {
		return codex.NewReplayer()
	}
	return claude.NewReplayer()
}

func waitForChange(watcher *fsnotify.Watcher, path string) error {
	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return fmt.Errorf("transcript watcher closed")
			}
			if filepath.Clean(event.Name) != path {
				continue
			}
			if event.Op.Has(fsnotify.Write) || event.Op.Has(fsnotify.Create) {
				return nil
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return fmt.Errorf("transcript watcher closed")
			}
			return fmt.Errorf("failed to watch transcript: %w", err)
		case <-time.After(500 * time.Millisecond):
			// Some filesystems drop events; poll as a fallback.
			return nil
		}
	}
}
