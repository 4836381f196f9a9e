package toolcall

import (
	"context"
	"reflect"
	"sync"
	"time"

	"toolview/internal/pubsub"
)

// Store tracks every tool call of one session, keyed by call ID, and
// publishes a created/updated event whenever a call materially changes.
// All mutations funnel through mutate so each entry settles into a
// consistent shape before anyone observes it.
type Store struct {
	broker *pubsub.Broker[Call]

	mu      sync.Mutex
	entries map[string]*Call
	order   []string
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		broker:  pubsub.NewBroker[Call](),
		entries: make(map[string]*Call),
	}
}

// Subscribe returns a channel of call change events. The subscription is
// dropped when ctx is done.
func (s *Store) Subscribe(ctx context.Context) <-chan pubsub.Event[Call] {
	return s.broker.Subscribe(ctx)
}

// Shutdown closes all subscriber channels.
func (s *Store) Shutdown() {
	s.broker.Shutdown()
}

// Ensure inserts the call if it is unknown, otherwise folds the incoming
// fields into the stored entry. Zero-value fields never overwrite known
// ones, so a late duplicate cannot erase accumulated state.
func (s *Store) Ensure(in Call) Call {
	if in.ID == "" {
		return in
	}
	s.mu.Lock()
	existing, ok := s.entries[in.ID]
	if !ok {
		entry := cloneCall(in)
		normalize(&entry)
		s.entries[in.ID] = &entry
		s.order = append(s.order, in.ID)
		out := cloneCall(entry)
		s.mu.Unlock()
		s.broker.Publish(pubsub.CreatedEvent, out)
		return out
	}
	before := cloneCall(*existing)
	mergeCall(existing, in)
	normalize(existing)
	out := cloneCall(*existing)
	changed := !reflect.DeepEqual(before, *existing)
	s.mu.Unlock()
	if changed {
		s.broker.Publish(pubsub.UpdatedEvent, out)
	}
	return out
}

// mutate applies fn to the stored call and publishes an update when the
// entry actually changed. Unknown IDs are ignored.
func (s *Store) mutate(id string, fn func(*Call)) (Call, bool) {
	s.mu.Lock()
	entry, ok := s.entries[id]
	if !ok {
		s.mu.Unlock()
		return Call{}, false
	}
	before := cloneCall(*entry)
	fn(entry)
	normalize(entry)
	out := cloneCall(*entry)
	changed := !reflect.DeepEqual(before, *entry)
	s.mu.Unlock()
	if changed {
		s.broker.Publish(pubsub.UpdatedEvent, out)
	}
	return out, true
}

// AppendInputDelta accumulates one chunk of streamed input JSON and
// re-attempts a decode. Input stays partial until the accumulated text
// parses as a whole object.
func (s *Store) AppendInputDelta(id, delta string) (Call, bool) {
	return s.mutate(id, func(c *Call) {
		c.RawInput += delta
		c.DecodeInput()
	})
}

// SetInput replaces the call input with a fully decoded object.
func (s *Store) SetInput(id string, input map[string]any) (Call, bool) {
	return s.mutate(id, func(c *Call) {
		c.Input = CloneInput(input)
		c.InputComplete = true
	})
}

// SetRunning moves a pending call to running.
func (s *Store) SetRunning(id string) (Call, bool) {
	return s.mutate(id, func(c *Call) {
		if c.Status.CanTransition(StatusRunning) {
			c.Status = StatusRunning
		}
	})
}

// Complete attaches the final result. The terminal status follows the
// result: an error result fails the call, anything else succeeds. A result
// landing after cancellation is kept as partial output without reviving
// the call.
func (s *Store) Complete(id string, res Result) (Call, bool) {
	return s.mutate(id, func(c *Call) {
		if c.Result != nil {
			return
		}
		c.Result = &res
	})
}

// Fail marks the call failed with the given message.
func (s *Store) Fail(id, msg string) (Call, bool) {
	return s.Complete(id, FailureResult(msg))
}

// Cancel moves an unfinished call to cancelled. A partial result already
// attached stays in place.
func (s *Store) Cancel(id, reason string) (Call, bool) {
	return s.mutate(id, func(c *Call) {
		cancel(c, reason)
	})
}

// CancelPending cancels every call that has not finished yet and returns
// the affected IDs. Used when the turn is interrupted.
func (s *Store) CancelPending(reason string) []string {
	s.mu.Lock()
	var ids []string
	var events []Call
	for _, id := range s.order {
		entry := s.entries[id]
		if entry.Status.Finished() {
			continue
		}
		cancel(entry, reason)
		normalize(entry)
		ids = append(ids, id)
		events = append(events, cloneCall(*entry))
	}
	s.mu.Unlock()
	for _, ev := range events {
		s.broker.Publish(pubsub.UpdatedEvent, ev)
	}
	return ids
}

// Get returns a copy of the call with the given ID.
func (s *Store) Get(id string) (Call, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[id]
	if !ok {
		return Call{}, false
	}
	return cloneCall(*entry), true
}

// List returns all calls in insertion order.
func (s *Store) List() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Call, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, cloneCall(*s.entries[id]))
	}
	return out
}

// Unfinished returns the calls still pending or running, in insertion order.
func (s *Store) Unfinished() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Call
	for _, id := range s.order {
		if entry := s.entries[id]; !entry.Status.Finished() {
			out = append(out, cloneCall(*entry))
		}
	}
	return out
}

// Len returns the number of tracked calls.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func cancel(c *Call, reason string) {
	if c.Status.Finished() {
		return
	}
	c.Status = StatusCancelled
	if reason != "" {
		c.Reason = reason
	}
}

// mergeCall folds incoming fields into dst without losing accumulated
// state: names and input only upgrade, results only attach once.
func mergeCall(dst *Call, in Call) {
	if dst.RawName == "" {
		dst.RawName = in.RawName
	}
	if dst.Type == "" || dst.Type == TypeUnknown {
		if in.Type != "" {
			dst.Type = in.Type
		}
	}
	if dst.Backend == "" {
		dst.Backend = in.Backend
	}
	if in.InputComplete || (len(in.Input) > 0 && !dst.InputComplete) {
		dst.Input = CloneInput(in.Input)
		dst.InputComplete = in.InputComplete
	}
	if in.RawInput != "" && dst.RawInput == "" {
		dst.RawInput = in.RawInput
	}
	if dst.Result == nil && in.Result != nil {
		res := cloneResult(*in.Result)
		dst.Result = &res
	}
	if !dst.Status.Finished() && dst.Status.CanTransition(in.Status) {
		dst.Status = in.Status
	}
	if dst.StartedAt.IsZero() {
		dst.StartedAt = in.StartedAt
	}
	if in.Reason != "" && dst.Reason == "" {
		dst.Reason = in.Reason
	}
}

// normalize settles a call into a consistent shape: the type follows the
// raw name, a result forces a terminal status, terminal calls get a
// completion time, and only finished or cancelled calls carry results.
func normalize(c *Call) {
	if c.Type == "" {
		c.Type = ParseType(c.RawName)
	}
	if c.Result != nil && !c.Status.Finished() {
		if c.Result.IsError {
			c.Status = StatusFailed
		} else {
			c.Status = StatusSuccess
		}
	}
	switch c.Status {
	case StatusRunning:
		if c.StartedAt.IsZero() {
			c.StartedAt = time.Now()
		}
	case StatusSuccess, StatusFailed, StatusCancelled:
		if c.CompletedAt == nil {
			now := time.Now()
			c.CompletedAt = &now
		}
	}
	if c.Status == StatusFailed && c.Result == nil {
		res := FailureResult(c.Reason)
		c.Result = &res
	}
}

func cloneCall(c Call) Call {
	out := c
	out.Input = CloneInput(c.Input)
	if c.Result != nil {
		res := cloneResult(*c.Result)
		out.Result = &res
	}
	if c.CompletedAt != nil {
		t := *c.CompletedAt
		out.CompletedAt = &t
	}
	return out
}

func cloneResult(r Result) Result {
	out := r
	if r.ExitCode != nil {
		code := *r.ExitCode
		out.ExitCode = &code
	}
	if r.Structured != nil {
		out.Structured = CloneInput(r.Structured)
	}
	return out
}
