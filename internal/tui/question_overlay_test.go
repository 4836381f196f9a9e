package tui

import (
	"testing"

	"toolview/internal/backend"
	"toolview/internal/interaction"
	"toolview/internal/permission"
)

func pushedForm(t *testing.T, coord *interaction.Coordinator, prompt backend.QuestionPrompt) *interaction.Form {
	t.Helper()
	coord.PushQuestions(prompt)
	form, ok := coord.CurrentQuestions()
	if !ok {
		t.Fatal("no head question batch")
	}
	return form
}

func singleSelectBatch() backend.QuestionPrompt {
	return backend.QuestionPrompt{
		ID: "q1",
		Questions: []backend.Question{
			{
				Text:    "Which approach?",
				Options: []backend.QuestionOption{{Label: "rewrite"}, {Label: "patch"}},
			},
			{
				Text:    "Which branch?",
				Options: []backend.QuestionOption{{Label: "main"}, {Label: "release"}},
			},
		},
	}
}

func mixedSelectBatch() backend.QuestionPrompt {
	return backend.QuestionPrompt{
		ID: "q2",
		Questions: []backend.Question{
			{
				Text:    "Pick one",
				Options: []backend.QuestionOption{{Label: "a"}, {Label: "b"}},
			},
			{
				Text:        "Pick any",
				MultiSelect: true,
				Options:     []backend.QuestionOption{{Label: "x"}, {Label: "y"}},
			},
		},
	}
}

func TestQuestionOverlaySelectionAutoSubmits(t *testing.T) {
	responder := newRecordingResponder()
	coord := interaction.NewCoordinator(responder, permission.NewStore())
	form := pushedForm(t, coord, singleSelectBatch())

	overlay := newQuestionOverlay(form, 80)

	overlay.row = 1
	if msg := overlay.selectOption(coord)(); msg.(actionDoneMsg).err != nil {
		t.Fatalf("select: %v", msg)
	}
	if len(responder.answers) != 0 {
		t.Fatal("batch submitted before every question was answered")
	}

	overlay.moveQuestion(1)
	overlay.row = 0
	if msg := overlay.selectOption(coord)(); msg.(actionDoneMsg).err != nil {
		t.Fatalf("select: %v", msg)
	}

	answers := responder.answers["q1"]
	if answers["Which approach?"] != "patch" || answers["Which branch?"] != "main" {
		t.Errorf("answers = %v", answers)
	}
	if _, ok := coord.CurrentQuestions(); ok {
		t.Error("submitted batch should leave the queue")
	}
}

func TestQuestionOverlaySubmitGatedUntilAnswered(t *testing.T) {
	responder := newRecordingResponder()
	coord := interaction.NewCoordinator(responder, permission.NewStore())
	form := pushedForm(t, coord, mixedSelectBatch())

	overlay := newQuestionOverlay(form, 80)
	if cmd := overlay.submit(coord); cmd != nil {
		t.Fatal("submit must be a no-op while questions are unanswered")
	}

	overlay.row = 0
	if msg := overlay.selectOption(coord)(); msg.(actionDoneMsg).err != nil {
		t.Fatalf("select: %v", msg)
	}
	overlay.moveQuestion(1)
	overlay.row = 1
	if msg := overlay.selectOption(coord)(); msg.(actionDoneMsg).err != nil {
		t.Fatalf("select: %v", msg)
	}
	if len(responder.answers) != 0 {
		t.Fatal("mixed batch must wait for explicit submit")
	}

	cmd := overlay.submit(coord)
	if cmd == nil {
		t.Fatal("submit should be live once every question has an answer")
	}
	if msg := cmd(); msg.(actionDoneMsg).err != nil {
		t.Fatalf("submit: %v", msg)
	}
	answers := responder.answers["q2"]
	if answers["Pick one"] != "a" || answers["Pick any"] != "y" {
		t.Errorf("answers = %v", answers)
	}
}

func TestQuestionOverlayNavigation(t *testing.T) {
	responder := newRecordingResponder()
	coord := interaction.NewCoordinator(responder, permission.NewStore())
	form := pushedForm(t, coord, singleSelectBatch())

	overlay := newQuestionOverlay(form, 80)

	// Two options plus the other row; past it on the first question is a wall.
	overlay.moveRow(1)
	overlay.moveRow(1)
	if !overlay.onOtherRow() {
		t.Fatalf("row = %d, want the other row", overlay.row)
	}
	overlay.moveRow(1)
	if overlay.onSubmitRow {
		t.Error("submit row is only reachable from the last question")
	}

	// On the last question the same move lands on submit, and back again.
	overlay.moveQuestion(1)
	overlay.row = len(form.Questions()[1].Options)
	overlay.moveRow(1)
	if !overlay.onSubmitRow {
		t.Error("expected the submit row")
	}
	overlay.moveRow(-1)
	if overlay.onSubmitRow || !overlay.onOtherRow() {
		t.Errorf("row after leaving submit = %d", overlay.row)
	}

	// Question cycling wraps.
	overlay.moveQuestion(1)
	if overlay.qIdx != 0 {
		t.Errorf("qIdx = %d, want wrap to 0", overlay.qIdx)
	}
}

func TestQuestionOverlayFocusOtherDeselects(t *testing.T) {
	responder := newRecordingResponder()
	coord := interaction.NewCoordinator(responder, permission.NewStore())
	form := pushedForm(t, coord, mixedSelectBatch())

	overlay := newQuestionOverlay(form, 80)
	overlay.row = 1
	if msg := overlay.selectOption(coord)(); msg.(actionDoneMsg).err != nil {
		t.Fatalf("select: %v", msg)
	}
	if !form.Selected(0, 1) {
		t.Fatal("option should be selected")
	}

	overlay.row = len(form.Questions()[0].Options)
	overlay.focusOther()
	if form.Selected(0, 1) {
		t.Error("focusing the free-text field should deselect a single-select choice")
	}
	if !overlay.otherFocused {
		t.Error("other field should be focused")
	}
}

func TestQuestionOverlayCancel(t *testing.T) {
	responder := newRecordingResponder()
	coord := interaction.NewCoordinator(responder, permission.NewStore())
	form := pushedForm(t, coord, singleSelectBatch())

	overlay := newQuestionOverlay(form, 80)
	if msg := overlay.cancel(coord)(); msg.(actionDoneMsg).err != nil {
		t.Fatalf("cancel: %v", msg)
	}
	if len(responder.cancelled) != 1 || responder.cancelled[0] != "q1" {
		t.Errorf("cancelled = %v", responder.cancelled)
	}
	if len(responder.answers) != 0 {
		t.Error("cancel must not send answers")
	}
}
