package policy

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"taskhub/internal/domain"
)

type stubResolver struct {
	targets map[string]any
	err     error
}

func (s *stubResolver) ResolveTarget(_ context.Context, ref domain.TargetRef) (any, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.targets[ref.String()], nil
}

func newEngine(resolver TargetResolver) *Engine {
	return NewEngine(DefaultGrants(), resolver)
}

func TestAdminOverridesEverything(t *testing.T) {
	e := newEngine(&stubResolver{})
	admin := Subject{ID: 1, Roles: []string{domain.RoleAdmin}}

	task := &domain.Task{ID: 7, CreatedBy: 99}
	d := e.Authorize(context.Background(), admin, ActionDeleteTask, task)
	assert.True(t, d.Allowed)
}

func TestMissingPermissionDenies(t *testing.T) {
	e := newEngine(&stubResolver{})
	member := Subject{ID: 2, Roles: []string{domain.RoleMember}}

	d := e.Authorize(context.Background(), member, ActionDeleteTask, &domain.Task{CreatedBy: 2})
	assert.False(t, d.Allowed)
	assert.Contains(t, d.Reason, "delete-task")
}

func TestTeamOwnerHasNoTaskGrants(t *testing.T) {
	e := newEngine(&stubResolver{})
	owner := Subject{ID: 3, Roles: []string{domain.RoleTeamOwner}}

	d := e.Authorize(context.Background(), owner, ActionCreateTask, nil)
	assert.False(t, d.Allowed)
}

func TestOwnershipGatesUpdates(t *testing.T) {
	e := newEngine(&stubResolver{})
	manager := Subject{ID: 4, Roles: []string{domain.RoleProjectManager}}

	own := &domain.Task{ID: 1, CreatedBy: 4}
	other := &domain.Task{ID: 2, CreatedBy: 5}

	assert.True(t, e.Authorize(context.Background(), manager, ActionUpdateTask, own).Allowed)
	assert.False(t, e.Authorize(context.Background(), manager, ActionUpdateTask, other).Allowed)
}

func TestTaskViewAllowsAssignee(t *testing.T) {
	e := newEngine(&stubResolver{})
	assignee := int64(4)
	manager := Subject{ID: 4, Roles: []string{domain.RoleProjectManager}}

	task := &domain.Task{ID: 1, CreatedBy: 9, AssignedTo: &assignee}
	assert.True(t, e.Authorize(context.Background(), manager, ActionViewTask, task).Allowed)

	task.AssignedTo = nil
	assert.False(t, e.Authorize(context.Background(), manager, ActionViewTask, task).Allowed)
}

func TestGrantAloneAllowsUnscopedAction(t *testing.T) {
	e := newEngine(&stubResolver{})
	member := Subject{ID: 5, Roles: []string{domain.RoleMember}}

	d := e.Authorize(context.Background(), member, ActionAddComment, nil)
	assert.True(t, d.Allowed)
}

func TestAttachmentDelegatesToTaskOwner(t *testing.T) {
	task := &domain.Task{ID: 10, CreatedBy: 6}
	resolver := &stubResolver{targets: map[string]any{"task#10": task}}
	e := newEngine(resolver)

	att := &domain.Attachment{ID: 1, Owner: domain.TargetRef{Kind: domain.KindTask, ID: 10}}
	creator := Subject{ID: 6, Roles: []string{domain.RoleProjectManager}}
	stranger := Subject{ID: 7, Roles: []string{domain.RoleProjectManager}}

	// Delete on the attachment delegates to update on the task.
	assert.True(t, e.Authorize(context.Background(), creator, ActionDeleteAttachment, att).Allowed)
	assert.False(t, e.Authorize(context.Background(), stranger, ActionDeleteAttachment, att).Allowed)
}

func TestCommentAttachmentViewIsPublic(t *testing.T) {
	comment := &domain.Comment{ID: 3, UserID: 8}
	resolver := &stubResolver{targets: map[string]any{"comment#3": comment}}
	e := newEngine(resolver)

	att := &domain.Attachment{ID: 2, Owner: domain.TargetRef{Kind: domain.KindComment, ID: 3}}
	anyone := Subject{ID: 99, Roles: []string{domain.RoleMember}}

	assert.True(t, e.Authorize(context.Background(), anyone, ActionViewAttachment, att).Allowed)

	// Mutation still delegates to the comment author.
	assert.False(t, e.Authorize(context.Background(), anyone, ActionDeleteAttachment, att).Allowed)
	author := Subject{ID: 8, Roles: []string{domain.RoleProjectManager}}
	assert.True(t, e.Authorize(context.Background(), author, ActionDeleteAttachment, att).Allowed)
}

func TestUnresolvableOwnerDenies(t *testing.T) {
	resolver := &stubResolver{err: errors.New("gone")}
	e := newEngine(resolver)

	att := &domain.Attachment{ID: 4, Owner: domain.TargetRef{Kind: domain.KindTask, ID: 404}}
	sub := Subject{ID: 1, Roles: []string{domain.RoleProjectManager}}

	d := e.Authorize(context.Background(), sub, ActionViewAttachment, att)
	assert.False(t, d.Allowed)
	assert.Contains(t, d.Reason, "could not be resolved")
}
