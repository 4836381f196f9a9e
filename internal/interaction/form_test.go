package interaction

import (
	"testing"

	"toolview/internal/backend"
)

func twoSingleSelects() backend.QuestionPrompt {
	return backend.QuestionPrompt{
		ID: "q-batch-1",
		Questions: []backend.Question{
			{
				Text: "Which database?",
				Options: []backend.QuestionOption{
					{Label: "sqlite"}, {Label: "postgres"},
				},
			},
			{
				Text: "Which transport?",
				Options: []backend.QuestionOption{
					{Label: "http"}, {Label: "grpc"},
				},
			},
		},
	}
}

func mixedBatch() backend.QuestionPrompt {
	return backend.QuestionPrompt{
		ID: "q-batch-2",
		Questions: []backend.Question{
			{
				Text:    "Pick one",
				Options: []backend.QuestionOption{{Label: "a"}, {Label: "b"}},
			},
			{
				Text:        "Pick any",
				MultiSelect: true,
				Options:     []backend.QuestionOption{{Label: "x"}, {Label: "y"}, {Label: "z"}},
			},
		},
	}
}

func TestSingleSelectBatchAutoSubmits(t *testing.T) {
	form := NewForm(twoSingleSelects())

	if form.SelectOption(0, 0) {
		t.Fatal("first answer must not auto-submit")
	}
	if !form.SelectOption(1, 1) {
		t.Fatal("last answer should trigger auto-submit")
	}

	answers, ok := form.Submit()
	if !ok {
		t.Fatal("submit failed")
	}
	if answers["Which database?"] != "sqlite" || answers["Which transport?"] != "grpc" {
		t.Errorf("answers = %v", answers)
	}
	if len(answers) != 2 {
		t.Errorf("payload has %d entries", len(answers))
	}

	// One-shot: a second submit reports nothing to send.
	if _, ok := form.Submit(); ok {
		t.Error("second submit should be rejected")
	}
}

func TestMixedBatchNeverAutoSubmits(t *testing.T) {
	form := NewForm(mixedBatch())

	if form.SelectOption(0, 0) {
		t.Fatal("mixed batch must not auto-submit on the single-select answer")
	}
	if form.AllAnswered() {
		t.Fatal("multi-select question is still unanswered")
	}

	// Toggling a multi-select option never auto-submits either.
	if form.SelectOption(1, 0) {
		t.Fatal("multi-select toggle must not auto-submit")
	}
	if !form.AllAnswered() {
		t.Error("both questions answered; submit should be enabled")
	}
}

func TestMultiSelectAnswerJoins(t *testing.T) {
	form := NewForm(mixedBatch())
	form.SelectOption(1, 2)
	form.SelectOption(1, 0)
	answer, ok := form.Answer(1)
	if !ok || answer != "x, z" {
		t.Errorf("answer = %q ok=%v", answer, ok)
	}

	// Other text is appended to the joined answer whenever present.
	form.SetOther(1, "something else")
	answer, _ = form.Answer(1)
	if answer != "x, z, something else" {
		t.Errorf("answer with other = %q", answer)
	}

	// Toggling off removes the option from the join.
	form.SelectOption(1, 0)
	answer, _ = form.Answer(1)
	if answer != "z, something else" {
		t.Errorf("answer after toggle-off = %q", answer)
	}
}

func TestOtherTextOnSingleSelect(t *testing.T) {
	form := NewForm(twoSingleSelects())
	form.SelectOption(0, 1)

	// Focusing the free-text field deselects the chosen option.
	form.FocusOther(0)
	if form.Selected(0, 1) {
		t.Error("focus should deselect the option")
	}
	if _, ok := form.Answer(0); ok {
		t.Error("question should be unanswered after deselect")
	}

	// Committing trims and answers the question.
	form.SetOther(0, "  custom answer  ")
	if form.CommitOther(0) {
		t.Error("batch not complete yet; no auto-submit")
	}
	answer, ok := form.Answer(0)
	if !ok || answer != "custom answer" {
		t.Errorf("answer = %q ok=%v", answer, ok)
	}

	// Committing empty text leaves the question unanswered.
	form.SetOther(0, "   ")
	if form.CommitOther(0) {
		t.Error("empty commit must not auto-submit")
	}
	if _, ok := form.Answer(0); ok {
		t.Error("blank other should not answer the question")
	}

	// Selecting an option again overrides the free text entirely.
	form.SetOther(0, "stale")
	form.CommitOther(0)
	form.SelectOption(0, 0)
	answer, _ = form.Answer(0)
	if answer != "sqlite" {
		t.Errorf("answer after reselect = %q", answer)
	}
}

func TestCommitOtherCompletesBatch(t *testing.T) {
	form := NewForm(twoSingleSelects())
	form.SelectOption(0, 0)
	form.SetOther(1, "use both")
	if !form.CommitOther(1) {
		t.Fatal("committed other on the last question should auto-submit")
	}
	answers, _ := form.Submit()
	if answers["Which transport?"] != "use both" {
		t.Errorf("answers = %v", answers)
	}
}

func TestSubmitDropsUnanswered(t *testing.T) {
	form := NewForm(twoSingleSelects())
	form.SelectOption(0, 1)
	answers, ok := form.Submit()
	if !ok {
		t.Fatal("submit failed")
	}
	if len(answers) != 1 {
		t.Errorf("payload = %v", answers)
	}
	if _, present := answers["Which transport?"]; present {
		t.Error("unanswered question must be dropped, not sent empty")
	}
}

func TestFormIgnoresOutOfRange(t *testing.T) {
	form := NewForm(twoSingleSelects())
	if form.SelectOption(5, 0) || form.SelectOption(0, 9) || form.SelectOption(-1, -1) {
		t.Error("out-of-range selection must be a no-op")
	}
	form.SetOther(7, "x")
	form.FocusOther(-2)
	if form.CommitOther(9) {
		t.Error("out-of-range commit must be a no-op")
	}
}

func TestEmptyBatchNeverAnswered(t *testing.T) {
	form := NewForm(backend.QuestionPrompt{ID: "empty"})
	if form.AllAnswered() {
		t.Error("an empty batch has nothing to answer")
	}
	answers, ok := form.Submit()
	if !ok || len(answers) != 0 {
		t.Errorf("submit = %v ok=%v", answers, ok)
	}
}
