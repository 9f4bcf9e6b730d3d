package policy

import (
	"context"
	"fmt"

	"taskhub/internal/domain"
)

// Action names one permission-gated operation. Most names double as the
// permission names granted to roles; the attachment view/update actions
// are resolved purely by delegation to the attachment's owner.
type Action string

const (
	ActionCreateTeam       Action = "create-team"
	ActionUpdateTeam       Action = "update-team"
	ActionDeleteTeam       Action = "delete-team"
	ActionViewTeam         Action = "view-team"
	ActionManageTeamMember Action = "manage-team-member"

	ActionCreateProject       Action = "create-project"
	ActionUpdateProject       Action = "update-project"
	ActionDeleteProject       Action = "delete-project"
	ActionViewProject         Action = "view-project"
	ActionManageProjectMember Action = "manage-project-member"

	ActionCreateTask Action = "create-task"
	ActionUpdateTask Action = "update-task"
	ActionDeleteTask Action = "delete-task"
	ActionViewTask   Action = "view-task"

	ActionAddComment    Action = "add-comment"
	ActionUpdateComment Action = "update-comment"
	ActionDeleteComment Action = "delete-comment"

	ActionAddAttachment    Action = "add-attachment"
	ActionViewAttachment   Action = "view-attachment"
	ActionUpdateAttachment Action = "update-attachment"
	ActionDeleteAttachment Action = "delete-attachment"

	ActionInviteUser Action = "invite-user"
	ActionRemoveUser Action = "remove-user"
	ActionViewUsers  Action = "view-users"

	ActionViewNotifications Action = "view-notifications"
)

// Subject is the resolved acting user: id plus role set. It is threaded
// explicitly through every core call; the core never reads an ambient
// "current user".
type Subject struct {
	ID    int64
	Roles []string
}

func (s Subject) HasRole(name string) bool {
	for _, r := range s.Roles {
		if r == name {
			return true
		}
	}
	return false
}

// Decision is a typed authorization outcome, not an error.
type Decision struct {
	Allowed bool
	Reason  string
}

func Allow() Decision {
	return Decision{Allowed: true}
}

func Deny(reason string) Decision {
	return Decision{Allowed: false, Reason: reason}
}

// PermissionSource answers whether a role has been granted an action.
type PermissionSource interface {
	HasPermission(role string, action Action) bool
}

// TargetResolver loads the entity behind a polymorphic reference so
// attachment checks can delegate to their owner.
type TargetResolver interface {
	ResolveTarget(ctx context.Context, ref domain.TargetRef) (any, error)
}

// Engine evaluates an ordered list of authorization strategies until
// one yields a definitive outcome. The admin override is always first.
type Engine struct {
	perms    PermissionSource
	resolver TargetResolver
}

func NewEngine(perms PermissionSource, resolver TargetResolver) *Engine {
	return &Engine{perms: perms, resolver: resolver}
}

// Authorize answers "can subject perform action on resource". A nil
// resource means the action is not resource-scoped.
func (e *Engine) Authorize(ctx context.Context, sub Subject, action Action, resource any) Decision {
	strategies := []func(context.Context, Subject, Action, any) (Decision, bool){
		e.adminOverride,
		e.attachmentDelegation,
		e.permissionGrant,
		e.ownership,
	}

	for _, s := range strategies {
		if d, definitive := s(ctx, sub, action, resource); definitive {
			return d
		}
	}
	return Allow()
}

// adminOverride short-circuits every further check for admins.
func (e *Engine) adminOverride(_ context.Context, sub Subject, _ Action, _ any) (Decision, bool) {
	if sub.HasRole(domain.RoleAdmin) {
		return Allow(), true
	}
	return Decision{}, false
}

// attachmentDelegation resolves view/update/delete on an attachment as
// the equivalent check against the attachment's polymorphic owner:
// view delegates to viewing the owner, update and delete both delegate
// to updating it. The recursion applies the owner's own permission and
// ownership rules.
func (e *Engine) attachmentDelegation(ctx context.Context, sub Subject, action Action, resource any) (Decision, bool) {
	a, ok := resource.(*domain.Attachment)
	if !ok {
		return Decision{}, false
	}

	switch action {
	case ActionViewAttachment, ActionUpdateAttachment, ActionDeleteAttachment:
	default:
		return Decision{}, false
	}

	owner, err := e.resolver.ResolveTarget(ctx, a.Owner)
	if err != nil {
		return Deny(fmt.Sprintf("attachment owner %s could not be resolved", a.Owner)), true
	}

	ownerAction, public := ownerActionFor(a.Owner.Kind, action == ActionViewAttachment)
	if public {
		return Allow(), true
	}
	return e.Authorize(ctx, sub, ownerAction, owner), true
}

// permissionGrant denies unless some role of the subject was granted
// the action. A grant alone is not definitive: resource-scoped actions
// still need the ownership strategy to pass.
func (e *Engine) permissionGrant(_ context.Context, sub Subject, action Action, _ any) (Decision, bool) {
	for _, role := range sub.Roles {
		if e.perms.HasPermission(role, action) {
			return Decision{}, false
		}
	}
	return Deny(fmt.Sprintf("missing permission %q", action)), true
}

// ownership applies the resource-scoped relationship rules.
func (e *Engine) ownership(_ context.Context, sub Subject, action Action, resource any) (Decision, bool) {
	switch res := resource.(type) {
	case nil:
		return Allow(), true

	case *domain.Task:
		switch action {
		case ActionUpdateTask, ActionDeleteTask:
			if sub.ID == res.CreatedBy {
				return Allow(), true
			}
			return Deny("only the task creator may modify it"), true
		case ActionViewTask:
			if sub.ID == res.CreatedBy || (res.AssignedTo != nil && sub.ID == *res.AssignedTo) {
				return Allow(), true
			}
			return Deny("task is visible to its creator and assignee only"), true
		}

	case *domain.Comment:
		switch action {
		case ActionUpdateComment, ActionDeleteComment:
			if sub.ID == res.UserID {
				return Allow(), true
			}
			return Deny("only the comment author may modify it"), true
		}

	case *domain.Project:
		switch action {
		case ActionUpdateProject, ActionDeleteProject, ActionManageProjectMember:
			if sub.ID == res.CreatedBy {
				return Allow(), true
			}
			return Deny("only the project creator may modify it"), true
		}

	case *domain.Team:
		switch action {
		case ActionUpdateTeam, ActionDeleteTeam, ActionManageTeamMember:
			if sub.ID == res.OwnerID {
				return Allow(), true
			}
			return Deny("only the team owner may modify it"), true
		}
	}

	return Allow(), true
}

// ownerActionFor picks the owner-side action for attachment delegation.
// Comments have no view permission: reading them is public, so viewing
// a comment's attachment is too.
func ownerActionFor(kind domain.TargetKind, view bool) (action Action, public bool) {
	switch kind {
	case domain.KindTask:
		if view {
			return ActionViewTask, false
		}
		return ActionUpdateTask, false
	case domain.KindProject:
		if view {
			return ActionViewProject, false
		}
		return ActionUpdateProject, false
	case domain.KindComment:
		if view {
			return "", true
		}
		return ActionUpdateComment, false
	}
	return "", true
}
