package interaction

import (
	"context"
	"testing"

	"toolview/internal/backend"
	"toolview/internal/permission"
)

type fakeResponder struct {
	ops       []string
	responses map[string]backend.PermissionResponse
	answers   map[string]map[string]string
	cancelled []string
	modes     []permission.Mode
}

func newFakeResponder() *fakeResponder {
	return &fakeResponder{
		responses: make(map[string]backend.PermissionResponse),
		answers:   make(map[string]map[string]string),
	}
}

func (f *fakeResponder) RespondPermission(ctx context.Context, id string, resp backend.PermissionResponse) error {
	f.ops = append(f.ops, "respond:"+id)
	f.responses[id] = resp
	return nil
}

func (f *fakeResponder) AnswerQuestion(ctx context.Context, id string, answers map[string]string) error {
	f.ops = append(f.ops, "answer:"+id)
	f.answers[id] = answers
	return nil
}

func (f *fakeResponder) CancelQuestion(ctx context.Context, id string) error {
	f.ops = append(f.ops, "cancel:"+id)
	f.cancelled = append(f.cancelled, id)
	return nil
}

func (f *fakeResponder) SetPermissionMode(ctx context.Context, mode permission.Mode) error {
	f.ops = append(f.ops, "mode:"+string(mode))
	f.modes = append(f.modes, mode)
	return nil
}

func bashRequest(id string) backend.PermissionRequest {
	return backend.PermissionRequest{
		ID:       id,
		CallID:   "toolu_" + id,
		ToolName: "Bash",
		Input:    map[string]any{"command": "rm -rf build"},
	}
}

func TestApproveResolvesHead(t *testing.T) {
	responder := newFakeResponder()
	coord := NewCoordinator(responder, permission.NewStore())

	coord.PushPermission(bashRequest("p1"))
	coord.PushPermission(bashRequest("p2"))

	head, ok := coord.CurrentPermission()
	if !ok || head.ID != "p1" {
		t.Fatalf("head = %+v ok=%v", head, ok)
	}

	if err := coord.Approve(context.Background(), "p1"); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if !responder.responses["p1"].Approved {
		t.Error("p1 should be approved")
	}

	// The next buffered request surfaces.
	head, ok = coord.CurrentPermission()
	if !ok || head.ID != "p2" {
		t.Errorf("next head = %+v ok=%v", head, ok)
	}
}

func TestApproveWithBypassUpdateFlipsSkipFlag(t *testing.T) {
	responder := newFakeResponder()
	store := permission.NewStore()
	coord := NewCoordinator(responder, store)

	coord.PushPermission(bashRequest("p1"))
	update := permission.SetModeUpdate(permission.ModeBypass)
	if err := coord.ApproveWithUpdate(context.Background(), "p1", update); err != nil {
		t.Fatalf("approve with update: %v", err)
	}

	resp := responder.responses["p1"]
	if !resp.Approved || len(resp.Updates) != 1 {
		t.Fatalf("response = %+v", resp)
	}
	if resp.Updates[0].Type != permission.UpdateSetMode || resp.Updates[0].Mode != permission.ModeBypass {
		t.Errorf("update = %+v", resp.Updates[0])
	}
	if !store.SkipRequests() {
		t.Error("bypass suggestion should flip the session skip flag")
	}
	if store.Mode() != permission.ModeBypass {
		t.Errorf("mode = %v", store.Mode())
	}
}

func TestApproveWithRuleUpdateAppliesLocally(t *testing.T) {
	responder := newFakeResponder()
	store := permission.NewStore()
	coord := NewCoordinator(responder, store)

	coord.PushPermission(bashRequest("p1"))
	update := permission.Update{
		Type:        permission.UpdateAddRules,
		Behavior:    permission.BehaviorAllow,
		Rules:       []permission.Rule{{ToolName: "Bash", RuleContent: "git diff:*"}},
		Destination: permission.DestSession,
	}
	if err := coord.ApproveWithUpdate(context.Background(), "p1", update); err != nil {
		t.Fatalf("approve with update: %v", err)
	}
	if got := store.Evaluate("Bash", "git diff --stat"); got != permission.DecisionAllow {
		t.Errorf("evaluate after update = %v", got)
	}
}

func TestApprovePlanSendsResultBeforeModeSwitch(t *testing.T) {
	responder := newFakeResponder()
	store := permission.NewStore()
	coord := NewCoordinator(responder, store)

	coord.PushPermission(backend.PermissionRequest{
		ID:       "plan1",
		ToolName: "ExitPlanMode",
		Input:    map[string]any{"plan": "1. do the thing"},
	})
	if err := coord.ApprovePlan(context.Background(), "plan1", permission.ModeAcceptEdits); err != nil {
		t.Fatalf("approve plan: %v", err)
	}

	if len(responder.ops) != 2 || responder.ops[0] != "respond:plan1" || responder.ops[1] != "mode:acceptEdits" {
		t.Errorf("op order = %v", responder.ops)
	}
	if store.Mode() != permission.ModeAcceptEdits {
		t.Errorf("store mode = %v", store.Mode())
	}

	// Without a mode choice only the result goes out.
	coord.PushPermission(backend.PermissionRequest{ID: "plan2", ToolName: "ExitPlanMode"})
	responder.ops = nil
	if err := coord.ApprovePlan(context.Background(), "plan2", ""); err != nil {
		t.Fatalf("approve plan: %v", err)
	}
	if len(responder.ops) != 1 || responder.ops[0] != "respond:plan2" {
		t.Errorf("ops = %v", responder.ops)
	}
}

func TestDenyOmitsEmptyReason(t *testing.T) {
	responder := newFakeResponder()
	coord := NewCoordinator(responder, permission.NewStore())

	coord.PushPermission(bashRequest("p1"))
	if err := coord.Deny(context.Background(), "p1", "   "); err != nil {
		t.Fatalf("deny: %v", err)
	}
	resp := responder.responses["p1"]
	if resp.Approved {
		t.Error("deny must resolve approved=false")
	}
	if resp.DenyReason != "" {
		t.Errorf("blank reason should be omitted, got %q", resp.DenyReason)
	}

	coord.PushPermission(bashRequest("p2"))
	if err := coord.Deny(context.Background(), "p2", " too risky "); err != nil {
		t.Fatalf("deny: %v", err)
	}
	if got := responder.responses["p2"].DenyReason; got != "too risky" {
		t.Errorf("reason = %q", got)
	}
}

func TestResolveUnknownIDIsNoOp(t *testing.T) {
	responder := newFakeResponder()
	coord := NewCoordinator(responder, permission.NewStore())

	if err := coord.Approve(context.Background(), "ghost"); err != nil {
		t.Fatalf("approve ghost: %v", err)
	}
	if err := coord.Deny(context.Background(), "ghost", "no"); err != nil {
		t.Fatalf("deny ghost: %v", err)
	}
	if len(responder.ops) != 0 {
		t.Errorf("unexpected calls: %v", responder.ops)
	}
}

func TestDroppedRequestNeverResolves(t *testing.T) {
	responder := newFakeResponder()
	coord := NewCoordinator(responder, permission.NewStore())

	coord.PushPermission(bashRequest("p1"))
	if !coord.DropPermission("p1") {
		t.Fatal("drop should find the request")
	}
	if err := coord.Approve(context.Background(), "p1"); err != nil {
		t.Fatalf("approve after drop: %v", err)
	}
	if len(responder.ops) != 0 {
		t.Errorf("cancelled request still resolved: %v", responder.ops)
	}
}

func TestQuestionFlowAutoSubmit(t *testing.T) {
	responder := newFakeResponder()
	coord := NewCoordinator(responder, permission.NewStore())

	coord.PushQuestions(twoSingleSelects())
	ctx := context.Background()

	if err := coord.SelectOption(ctx, "q-batch-1", 0, 0); err != nil {
		t.Fatalf("select: %v", err)
	}
	if len(responder.answers) != 0 {
		t.Fatal("batch submitted too early")
	}

	if err := coord.SelectOption(ctx, "q-batch-1", 1, 0); err != nil {
		t.Fatalf("select: %v", err)
	}
	answers, ok := responder.answers["q-batch-1"]
	if !ok {
		t.Fatal("batch should auto-submit after the last answer")
	}
	if answers["Which database?"] != "sqlite" || answers["Which transport?"] != "http" {
		t.Errorf("answers = %v", answers)
	}
	if _, ok := coord.CurrentQuestions(); ok {
		t.Error("submitted batch should leave the queue")
	}
}

func TestQuestionFlowExplicitSubmit(t *testing.T) {
	responder := newFakeResponder()
	coord := NewCoordinator(responder, permission.NewStore())

	coord.PushQuestions(mixedBatch())
	ctx := context.Background()

	coord.SelectOption(ctx, "q-batch-2", 0, 1)
	coord.SelectOption(ctx, "q-batch-2", 1, 0)
	coord.SelectOption(ctx, "q-batch-2", 1, 2)
	if len(responder.answers) != 0 {
		t.Fatal("mixed batch must wait for explicit submit")
	}

	if err := coord.SubmitAnswers(ctx, "q-batch-2"); err != nil {
		t.Fatalf("submit: %v", err)
	}
	answers := responder.answers["q-batch-2"]
	if answers["Pick one"] != "b" || answers["Pick any"] != "x, z" {
		t.Errorf("answers = %v", answers)
	}

	// A second submit is a no-op.
	responder.ops = nil
	if err := coord.SubmitAnswers(ctx, "q-batch-2"); err != nil {
		t.Fatalf("resubmit: %v", err)
	}
	if len(responder.ops) != 0 {
		t.Errorf("double submit reached the backend: %v", responder.ops)
	}
}

func TestCancelQuestionsSendsNoAnswers(t *testing.T) {
	responder := newFakeResponder()
	coord := NewCoordinator(responder, permission.NewStore())

	coord.PushQuestions(twoSingleSelects())
	ctx := context.Background()
	coord.SelectOption(ctx, "q-batch-1", 0, 0)

	if err := coord.CancelQuestions(ctx, "q-batch-1"); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if len(responder.answers) != 0 {
		t.Error("cancel must not send partial answers")
	}
	if len(responder.cancelled) != 1 || responder.cancelled[0] != "q-batch-1" {
		t.Errorf("cancelled = %v", responder.cancelled)
	}
}

func TestQueueOrder(t *testing.T) {
	q := NewQueue[int]()
	q.Push("a", 1)
	q.Push("b", 2)
	q.Push("a", 99) // duplicate id ignored

	if q.Len() != 2 {
		t.Fatalf("len = %d", q.Len())
	}
	id, v, ok := q.Head()
	if !ok || id != "a" || v != 1 {
		t.Errorf("head = %s %d %v", id, v, ok)
	}

	if _, ok := q.Remove("a"); !ok {
		t.Fatal("remove a")
	}
	if _, ok := q.Remove("a"); ok {
		t.Error("second remove should miss")
	}
	id, _, _ = q.Head()
	if id != "b" {
		t.Errorf("head after remove = %s", id)
	}
}
