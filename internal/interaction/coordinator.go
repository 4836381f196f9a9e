package interaction

import (
	"context"
	"strings"

	"toolview/internal/backend"
	"toolview/internal/logging"
	"toolview/internal/permission"
)

// Responder is the slice of the backend session the coordinator resolves
// through.
type Responder interface {
	RespondPermission(ctx context.Context, id string, resp backend.PermissionResponse) error
	AnswerQuestion(ctx context.Context, id string, answers map[string]string) error
	CancelQuestion(ctx context.Context, id string) error
	SetPermissionMode(ctx context.Context, mode permission.Mode) error
}

// Coordinator owns the pending permission and question queues of one
// session and turns user decisions into backend resolutions plus local
// permission bookkeeping.
type Coordinator struct {
	responder Responder
	store     *permission.Store

	permissions *Queue[backend.PermissionRequest]
	questions   *Queue[*Form]
}

func NewCoordinator(responder Responder, store *permission.Store) *Coordinator {
	return &Coordinator{
		responder:   responder,
		store:       store,
		permissions: NewQueue[backend.PermissionRequest](),
		questions:   NewQueue[*Form](),
	}
}

// PushPermission buffers an authorization request.
func (c *Coordinator) PushPermission(req backend.PermissionRequest) {
	c.permissions.Push(req.ID, req)
}

// PushQuestions buffers a question batch.
func (c *Coordinator) PushQuestions(prompt backend.QuestionPrompt) {
	c.questions.Push(prompt.ID, NewForm(prompt))
}

// DropPermission removes a request the backend cancelled itself.
func (c *Coordinator) DropPermission(id string) bool {
	_, ok := c.permissions.Remove(id)
	return ok
}

// DropQuestions removes a batch the backend cancelled itself.
func (c *Coordinator) DropQuestions(id string) bool {
	_, ok := c.questions.Remove(id)
	return ok
}

// CurrentPermission returns the head authorization request.
func (c *Coordinator) CurrentPermission() (backend.PermissionRequest, bool) {
	_, req, ok := c.permissions.Head()
	return req, ok
}

// CurrentQuestions returns the head question form.
func (c *Coordinator) CurrentQuestions() (*Form, bool) {
	_, form, ok := c.questions.Head()
	return form, ok
}

func (c *Coordinator) PendingPermissions() int { return c.permissions.Len() }
func (c *Coordinator) PendingQuestions() int   { return c.questions.Len() }

// Approve resolves a request with a bare approval.
func (c *Coordinator) Approve(ctx context.Context, id string) error {
	if _, ok := c.permissions.Remove(id); !ok {
		return nil
	}
	return c.responder.RespondPermission(ctx, id, backend.PermissionResponse{Approved: true})
}

// ApproveWithUpdate resolves a request carrying the chosen suggestion. The
// update is also applied to the local permission store; a bypass mode
// switch flips the session's skip flag there regardless of how the
// round-trip went.
func (c *Coordinator) ApproveWithUpdate(ctx context.Context, id string, update permission.Update) error {
	if _, ok := c.permissions.Remove(id); !ok {
		return nil
	}
	err := c.responder.RespondPermission(ctx, id, backend.PermissionResponse{
		Approved: true,
		Updates:  []permission.Update{update},
	})
	if applyErr := c.store.Apply(update); applyErr != nil {
		logging.Warn("applying permission update", "type", update.Type, "err", applyErr)
	}
	return err
}

// ApprovePlan resolves a plan-approval request, sending the permission
// result first and the chosen mode switch as a separate side effect after.
func (c *Coordinator) ApprovePlan(ctx context.Context, id string, mode permission.Mode) error {
	if _, ok := c.permissions.Remove(id); !ok {
		return nil
	}
	err := c.responder.RespondPermission(ctx, id, backend.PermissionResponse{Approved: true})
	if mode == "" {
		return err
	}
	c.store.SetMode(mode)
	if modeErr := c.responder.SetPermissionMode(ctx, mode); modeErr != nil && err == nil {
		err = modeErr
	}
	return err
}

// Deny resolves a request negatively. An empty reason is omitted from the
// payload, never sent as "".
func (c *Coordinator) Deny(ctx context.Context, id, reason string) error {
	if _, ok := c.permissions.Remove(id); !ok {
		return nil
	}
	return c.responder.RespondPermission(ctx, id, backend.PermissionResponse{
		Approved:   false,
		DenyReason: strings.TrimSpace(reason),
	})
}

// SelectOption forwards a selection to the batch's form and submits the
// whole batch when the selection completed a single-select-only batch.
func (c *Coordinator) SelectOption(ctx context.Context, id string, question, option int) error {
	form, ok := c.questions.Get(id)
	if !ok {
		return nil
	}
	if form.SelectOption(question, option) {
		return c.SubmitAnswers(ctx, id)
	}
	return nil
}

// CommitOther commits free text for a single-select question, with the
// same auto-submit check as option selection.
func (c *Coordinator) CommitOther(ctx context.Context, id string, question int) error {
	form, ok := c.questions.Get(id)
	if !ok {
		return nil
	}
	if form.CommitOther(question) {
		return c.SubmitAnswers(ctx, id)
	}
	return nil
}

// SubmitAnswers sends the batch's answers and removes it from the queue.
// A batch that already submitted is left alone.
func (c *Coordinator) SubmitAnswers(ctx context.Context, id string) error {
	form, ok := c.questions.Get(id)
	if !ok {
		return nil
	}
	answers, ok := form.Submit()
	if !ok {
		return nil
	}
	c.questions.Remove(id)
	return c.responder.AnswerQuestion(ctx, id, answers)
}

// CancelQuestions abandons the whole batch; no partial answers are sent.
func (c *Coordinator) CancelQuestions(ctx context.Context, id string) error {
	if _, ok := c.questions.Remove(id); !ok {
		return nil
	}
	return c.responder.CancelQuestion(ctx, id)
}
