package toolcall

import (
	"context"
	"testing"
	"time"

	"toolview/internal/pubsub"
)

func TestStoreEnsureCreatesAndMerges(t *testing.T) {
	s := NewStore()
	defer s.Shutdown()

	c := s.Ensure(Call{ID: "t1", RawName: "Bash"})
	if c.Type != TypeBash {
		t.Fatalf("type = %v, want bash", c.Type)
	}
	if c.Status != StatusPending {
		t.Fatalf("status = %v, want pending", c.Status)
	}

	// A bare duplicate must not erase what we already know.
	c = s.Ensure(Call{ID: "t1"})
	if c.RawName != "Bash" {
		t.Errorf("merge dropped raw name: %q", c.RawName)
	}

	// Input upgrades once a complete object arrives.
	c = s.Ensure(Call{ID: "t1", Input: map[string]any{"command": "ls"}, InputComplete: true})
	if !c.InputComplete {
		t.Error("merge should adopt complete input")
	}
	if got := StringField(c.Input, "command"); got != "ls" {
		t.Errorf("command = %q", got)
	}

	if s.Len() != 1 {
		t.Errorf("len = %d, want 1", s.Len())
	}
}

func TestStoreAppendInputDelta(t *testing.T) {
	s := NewStore()
	defer s.Shutdown()
	s.Ensure(Call{ID: "t1", RawName: "Write"})

	c, ok := s.AppendInputDelta("t1", `{"file_path": "ma`)
	if !ok {
		t.Fatal("call not found")
	}
	if c.InputComplete {
		t.Fatal("partial JSON should stay incomplete")
	}

	c, _ = s.AppendInputDelta("t1", `in.go", "content": "package main"}`)
	if !c.InputComplete {
		t.Fatal("full JSON should decode")
	}
	if got := StringField(c.Input, "file_path"); got != "main.go" {
		t.Errorf("file_path = %q", got)
	}
}

func TestStoreCompleteSetsTerminalStatus(t *testing.T) {
	s := NewStore()
	defer s.Shutdown()
	s.Ensure(Call{ID: "ok", RawName: "Bash"})
	s.Ensure(Call{ID: "bad", RawName: "Bash"})

	c, _ := s.Complete("ok", CommandResult("done", 0))
	if c.Status != StatusSuccess {
		t.Errorf("status = %v, want success", c.Status)
	}
	if c.Result == nil {
		t.Fatal("result missing after complete")
	}
	if c.CompletedAt == nil {
		t.Error("completed timestamp missing")
	}

	c, _ = s.Complete("bad", CommandResult("oops", 1))
	if c.Status != StatusFailed {
		t.Errorf("status = %v, want failed", c.Status)
	}
}

func TestStoreResultOnlyWhenFinished(t *testing.T) {
	s := NewStore()
	defer s.Shutdown()
	s.Ensure(Call{ID: "t1", RawName: "Read"})
	s.SetRunning("t1")

	c, _ := s.Get("t1")
	if c.Result != nil {
		t.Fatal("live call must not carry a result")
	}
	if c.StartedAt.IsZero() {
		t.Error("running call should have a start time")
	}

	c, _ = s.Complete("t1", FileReadResult("line one\nline two"))
	if !c.Status.Finished() {
		t.Fatalf("status = %v after result", c.Status)
	}
}

func TestStoreCancelKeepsPartialResult(t *testing.T) {
	s := NewStore()
	defer s.Shutdown()
	s.Ensure(Call{ID: "t1", RawName: "Bash"})
	s.SetRunning("t1")

	c, _ := s.Cancel("t1", "interrupted")
	if c.Status != StatusCancelled {
		t.Fatalf("status = %v, want cancelled", c.Status)
	}

	// Partial output arriving after the interrupt attaches without
	// reviving the call.
	c, _ = s.Complete("t1", CommandResult("partial out", 0))
	if c.Status != StatusCancelled {
		t.Errorf("status = %v, cancel must stick", c.Status)
	}
	if c.Result == nil || c.Result.Content != "partial out" {
		t.Error("partial result should be kept")
	}
}

func TestStoreCancelPending(t *testing.T) {
	s := NewStore()
	defer s.Shutdown()
	s.Ensure(Call{ID: "a", RawName: "Bash"})
	s.Ensure(Call{ID: "b", RawName: "Read"})
	s.SetRunning("b")
	s.Ensure(Call{ID: "c", RawName: "Write"})
	s.Complete("c", SuccessResult("written"))

	ids := s.CancelPending("turn aborted")
	if len(ids) != 2 {
		t.Fatalf("cancelled %d calls, want 2", len(ids))
	}

	for _, id := range []string{"a", "b"} {
		c, _ := s.Get(id)
		if c.Status != StatusCancelled {
			t.Errorf("%s status = %v, want cancelled", id, c.Status)
		}
		if c.Reason != "turn aborted" {
			t.Errorf("%s reason = %q", id, c.Reason)
		}
	}

	c, _ := s.Get("c")
	if c.Status != StatusSuccess {
		t.Errorf("finished call flipped to %v", c.Status)
	}
}

func TestStoreFail(t *testing.T) {
	s := NewStore()
	defer s.Shutdown()
	s.Ensure(Call{ID: "t1", RawName: "WebFetch"})

	c, _ := s.Fail("t1", "network unreachable")
	if c.Status != StatusFailed {
		t.Fatalf("status = %v", c.Status)
	}
	if c.Result == nil || !c.Result.IsError {
		t.Fatal("failure result missing")
	}
	if c.Result.Text() != "network unreachable" {
		t.Errorf("error text = %q", c.Result.Text())
	}
}

func TestStoreListOrder(t *testing.T) {
	s := NewStore()
	defer s.Shutdown()
	for _, id := range []string{"z", "a", "m"} {
		s.Ensure(Call{ID: id, RawName: "Bash"})
	}

	list := s.List()
	if len(list) != 3 {
		t.Fatalf("len = %d", len(list))
	}
	for i, want := range []string{"z", "a", "m"} {
		if list[i].ID != want {
			t.Errorf("list[%d] = %q, want %q", i, list[i].ID, want)
		}
	}
}

func TestStorePublishesEvents(t *testing.T) {
	s := NewStore()
	defer s.Shutdown()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events := s.Subscribe(ctx)

	s.Ensure(Call{ID: "t1", RawName: "Bash"})
	ev := waitEvent(t, events)
	if ev.Type != pubsub.CreatedEvent {
		t.Errorf("first event = %v, want created", ev.Type)
	}

	s.SetRunning("t1")
	ev = waitEvent(t, events)
	if ev.Type != pubsub.UpdatedEvent {
		t.Errorf("second event = %v, want updated", ev.Type)
	}
	if ev.Payload.Status != StatusRunning {
		t.Errorf("payload status = %v", ev.Payload.Status)
	}

	// No-op mutations stay silent.
	s.SetRunning("t1")
	select {
	case ev := <-events:
		t.Errorf("unexpected event %v after no-op", ev.Type)
	case <-time.After(50 * time.Millisecond):
	}
}

func waitEvent(t *testing.T, ch <-chan pubsub.Event[Call]) pubsub.Event[Call] {
	t.Helper()
	select {
	case ev := <-ch:
		return ev
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return pubsub.Event[Call]{}
	}
}
