package tui

import (
	"context"
	"testing"

	"toolview/internal/backend"
	"toolview/internal/interaction"
	"toolview/internal/permission"
)

type recordingResponder struct {
	responses map[string]backend.PermissionResponse
	answers   map[string]map[string]string
	cancelled []string
	modes     []permission.Mode
}

func newRecordingResponder() *recordingResponder {
	return &recordingResponder{
		responses: make(map[string]backend.PermissionResponse),
		answers:   make(map[string]map[string]string),
	}
}

func (r *recordingResponder) RespondPermission(ctx context.Context, id string, resp backend.PermissionResponse) error {
	r.responses[id] = resp
	return nil
}

func (r *recordingResponder) AnswerQuestion(ctx context.Context, id string, answers map[string]string) error {
	r.answers[id] = answers
	return nil
}

func (r *recordingResponder) CancelQuestion(ctx context.Context, id string) error {
	r.cancelled = append(r.cancelled, id)
	return nil
}

func (r *recordingResponder) SetPermissionMode(ctx context.Context, mode permission.Mode) error {
	r.modes = append(r.modes, mode)
	return nil
}

func editRequest(id string) backend.PermissionRequest {
	return backend.PermissionRequest{
		ID:       id,
		CallID:   "toolu_" + id,
		ToolName: "Edit",
		Input:    map[string]any{"file_path": "/tmp/main.go", "old_string": "a", "new_string": "b"},
	}
}

func TestBuildPermissionChoicesPlainRequest(t *testing.T) {
	choices := buildPermissionChoices(editRequest("p1"))

	if len(choices) != 2 {
		t.Fatalf("choices = %d, want approve and deny", len(choices))
	}
	if choices[0].kind != choiceApprove || choices[0].label != "Yes" {
		t.Errorf("first choice = %+v", choices[0])
	}
	if choices[len(choices)-1].kind != choiceDeny {
		t.Errorf("last choice = %+v", choices[len(choices)-1])
	}
}

func TestBuildPermissionChoicesIncludesSuggestions(t *testing.T) {
	req := editRequest("p1")
	req.Suggestions = []permission.Update{
		permission.SetModeUpdate(permission.ModeAcceptEdits),
		{
			Type:        permission.UpdateAddRules,
			Behavior:    permission.BehaviorAllow,
			Rules:       []permission.Rule{{ToolName: "Bash", RuleContent: "git status"}},
			Destination: permission.DestSession,
		},
	}
	choices := buildPermissionChoices(req)

	if len(choices) != 4 {
		t.Fatalf("choices = %d, want approve + 2 suggestions + deny", len(choices))
	}
	for i, u := range req.Suggestions {
		got := choices[1+i]
		if got.kind != choiceSuggestion {
			t.Errorf("choice %d kind = %v", 1+i, got.kind)
		}
		if want := permission.SuggestionLabel(u); got.label != want {
			t.Errorf("choice %d label = %q, want %q", 1+i, got.label, want)
		}
	}
}

func TestBuildPermissionChoicesPlanShortcuts(t *testing.T) {
	req := backend.PermissionRequest{
		ID:       "plan1",
		ToolName: "ExitPlanMode",
		Input:    map[string]any{"plan": "1. refactor"},
	}
	choices := buildPermissionChoices(req)

	var modes []permission.Mode
	for _, c := range choices {
		if c.kind == choicePlanMode {
			modes = append(modes, c.mode)
		}
	}
	want := []permission.Mode{permission.ModeDefault, permission.ModeAcceptEdits, permission.ModeBypass}
	if len(modes) != len(want) {
		t.Fatalf("plan shortcuts = %v", modes)
	}
	for i := range want {
		if modes[i] != want[i] {
			t.Errorf("shortcut %d = %v, want %v", i, modes[i], want[i])
		}
	}
	// The shortcuts sit between plain approval and the suggestions/deny.
	if choices[0].kind != choiceApprove || choices[1].kind != choicePlanMode {
		t.Errorf("ordering = %+v", choices[:2])
	}
}

func TestPermissionOverlayApprove(t *testing.T) {
	responder := newRecordingResponder()
	coord := interaction.NewCoordinator(responder, permission.NewStore())
	coord.PushPermission(editRequest("p1"))

	overlay := newPermissionOverlay(editRequest("p1"), 80)
	msg := overlay.approve(coord)()
	if done, ok := msg.(actionDoneMsg); !ok || done.err != nil {
		t.Fatalf("msg = %#v", msg)
	}
	if !responder.responses["p1"].Approved {
		t.Error("request should be approved")
	}
}

func TestPermissionOverlayDenyCarriesReason(t *testing.T) {
	responder := newRecordingResponder()
	coord := interaction.NewCoordinator(responder, permission.NewStore())
	coord.PushPermission(editRequest("p1"))

	overlay := newPermissionOverlay(editRequest("p1"), 80)
	overlay.reason.SetValue("rename with git mv instead")
	msg := overlay.deny(coord)()
	if done, ok := msg.(actionDoneMsg); !ok || done.err != nil {
		t.Fatalf("msg = %#v", msg)
	}

	resp := responder.responses["p1"]
	if resp.Approved {
		t.Error("deny must resolve approved=false")
	}
	if resp.DenyReason != "rename with git mv instead" {
		t.Errorf("reason = %q", resp.DenyReason)
	}
}

func TestPermissionOverlaySuggestionAppliesUpdate(t *testing.T) {
	responder := newRecordingResponder()
	store := permission.NewStore()
	coord := interaction.NewCoordinator(responder, store)

	req := editRequest("p1")
	update := permission.SetModeUpdate(permission.ModeBypass)
	req.Suggestions = []permission.Update{update}
	coord.PushPermission(req)

	overlay := newPermissionOverlay(req, 80)
	msg := overlay.approveWith(coord, update)()
	if done, ok := msg.(actionDoneMsg); !ok || done.err != nil {
		t.Fatalf("msg = %#v", msg)
	}

	resp := responder.responses["p1"]
	if !resp.Approved || len(resp.Updates) != 1 {
		t.Fatalf("response = %+v", resp)
	}
	if !store.SkipRequests() {
		t.Error("bypass suggestion should flip the skip flag")
	}
}

func TestPermissionOverlayPlanModeShortcut(t *testing.T) {
	responder := newRecordingResponder()
	store := permission.NewStore()
	coord := interaction.NewCoordinator(responder, store)

	req := backend.PermissionRequest{ID: "plan1", ToolName: "ExitPlanMode", Input: map[string]any{"plan": "do it"}}
	coord.PushPermission(req)

	overlay := newPermissionOverlay(req, 80)
	msg := overlay.approvePlan(coord, permission.ModeAcceptEdits)()
	if done, ok := msg.(actionDoneMsg); !ok || done.err != nil {
		t.Fatalf("msg = %#v", msg)
	}
	if len(responder.modes) != 1 || responder.modes[0] != permission.ModeAcceptEdits {
		t.Errorf("modes = %v", responder.modes)
	}
	if store.Mode() != permission.ModeAcceptEdits {
		t.Errorf("store mode = %v", store.Mode())
	}
}

func TestFocusReasonMovesCursorToDeny(t *testing.T) {
	overlay := newPermissionOverlay(editRequest("p1"), 80)
	overlay.focusReason()

	if !overlay.reasonFocused {
		t.Fatal("reason field should be focused")
	}
	if overlay.choices[overlay.focus].kind != choiceDeny {
		t.Errorf("focus landed on %+v", overlay.choices[overlay.focus])
	}
}
