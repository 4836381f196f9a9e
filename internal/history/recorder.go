package history

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"toolview/internal/logging"
	"toolview/internal/session"
)

const finalFlushTimeout = 5 * time.Second

// Recorder mirrors a live session into the store as it changes. Change
// notices are best-effort, so every sync re-reads current state rather
// than trusting the notice, and a final flush reconciles anything that
// was dropped along the way.
type Recorder struct {
	store *Store
	sess  *session.Session
	log   *slog.Logger

	// Touched only by the run goroutine.
	texts     map[string]string
	createdAt int64

	done chan struct{}
}

// Record starts mirroring sess into store until the session closes or
// ctx is cancelled.
func Record(ctx context.Context, store *Store, sess *session.Session) *Recorder {
	r := &Recorder{
		store:     store,
		sess:      sess,
		log:       logging.With("component", "history", "session", sess.ID()),
		texts:     make(map[string]string),
		createdAt: time.Now().Unix(),
		done:      make(chan struct{}),
	}
	go r.run(ctx)
	return r
}

// Done closes once the recorder has flushed its final state.
func (r *Recorder) Done() <-chan struct{} { return r.done }

func (r *Recorder) run(ctx context.Context) {
	ch := r.sess.Subscribe(ctx)
	r.sync(ctx)
	for ev := range ch {
		r.apply(ctx, ev.Payload)
	}

	flushCtx, cancel := context.WithTimeout(context.Background(), finalFlushTimeout)
	defer cancel()
	r.sync(flushCtx)
	close(r.done)
}

func (r *Recorder) apply(ctx context.Context, c session.Change) {
	switch c.Kind {
	case session.ChangeTranscript:
		r.syncMessages(ctx)
	case session.ChangeCalls:
		r.syncCall(ctx, c.CallID)
	case session.ChangeStatus:
		r.syncSession(ctx)
	case session.ChangeClosed:
		r.sync(ctx)
	}
}

// sync reconciles everything: the session row, the transcript, and all
// call payloads.
func (r *Recorder) sync(ctx context.Context) {
	r.syncSession(ctx)
	r.syncMessages(ctx)
	for _, call := range r.sess.Calls().List() {
		if err := r.store.SetCallJSON(ctx, r.sess.ID(), call.ID, marshalCall(call)); err != nil {
			r.log.Warn("failed to save call payload", "call_id", call.ID, "error", err)
		}
	}
}

func (r *Recorder) syncSession(ctx context.Context) {
	rec := SessionRecord{
		ID:               r.sess.ID(),
		Backend:          string(r.sess.Kind()),
		BackendSessionID: r.sess.BackendID(),
		Title:            r.sess.Title(),
		Cwd:              r.sess.Cwd(),
		Model:            r.sess.Model(),
		CreatedAt:        r.createdAt,
		UpdatedAt:        time.Now().Unix(),
	}
	if err := r.store.SaveSession(ctx, rec); err != nil {
		r.log.Warn("failed to save session", "error", err)
	}
}

func (r *Recorder) syncMessages(ctx context.Context) {
	for i, msg := range r.sess.Messages() {
		if prev, ok := r.texts[msg.ID]; ok && prev == msg.Text {
			continue
		}
		rec := MessageRecord{
			ID:        msg.ID,
			SessionID: r.sess.ID(),
			Seq:       i,
			Role:      string(msg.Role),
			Text:      msg.Text,
			CallID:    msg.CallID,
			CreatedAt: msg.At.Unix(),
		}
		if msg.CallID != "" {
			if call, ok := r.sess.Calls().Get(msg.CallID); ok {
				rec.CallJSON = marshalCall(call)
			}
		}
		if err := r.store.UpsertMessage(ctx, rec); err != nil {
			r.log.Warn("failed to save message", "message_id", msg.ID, "error", err)
			continue
		}
		r.texts[msg.ID] = msg.Text
	}
}

// syncCall refreshes one call's stored payload. A notice without a call
// ID means bulk state moved, so fall back to a full reconcile.
func (r *Recorder) syncCall(ctx context.Context, callID string) {
	if callID == "" {
		r.sync(ctx)
		return
	}
	call, ok := r.sess.Calls().Get(callID)
	if !ok {
		return
	}
	if err := r.store.SetCallJSON(ctx, r.sess.ID(), callID, marshalCall(call)); err != nil {
		r.log.Warn("failed to save call payload", "call_id", callID, "error", err)
	}
}

func marshalCall(call any) string {
	data, err := json.Marshal(call)
	if err != nil {
		return ""
	}
	return string(data)
}
