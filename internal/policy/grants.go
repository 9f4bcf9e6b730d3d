package policy

import "taskhub/internal/domain"

// Grants is a role -> granted-action table. It satisfies
// PermissionSource and is normally loaded from the seeded
// roles/permissions tables at startup.
type Grants map[string]map[Action]bool

func (g Grants) HasPermission(role string, action Action) bool {
	return g[role][action]
}

// FromNames converts the repository's string grant table.
func FromNames(grants map[string]map[string]bool) Grants {
	out := make(Grants, len(grants))
	for role, perms := range grants {
		set := make(map[Action]bool, len(perms))
		for name := range perms {
			set[Action(name)] = true
		}
		out[role] = set
	}
	return out
}

// DefaultGrants mirrors the seeded role/permission assignment. Used as
// a fallback when the permission tables are empty and by tests.
func DefaultGrants() Grants {
	all := []Action{
		ActionCreateTeam, ActionUpdateTeam, ActionDeleteTeam, ActionViewTeam, ActionManageTeamMember,
		ActionCreateProject, ActionUpdateProject, ActionDeleteProject, ActionViewProject, ActionManageProjectMember,
		ActionCreateTask, ActionUpdateTask, ActionDeleteTask, ActionViewTask,
		ActionAddComment, ActionUpdateComment, ActionDeleteComment,
		ActionAddAttachment, ActionDeleteAttachment,
		ActionInviteUser, ActionRemoveUser, ActionViewUsers,
		ActionViewNotifications,
	}

	g := Grants{
		domain.RoleAdmin:          {},
		domain.RoleTeamOwner:      {},
		domain.RoleProjectManager: {},
		domain.RoleMember:         {},
	}

	for _, a := range all {
		g[domain.RoleAdmin][a] = true
	}

	for _, a := range []Action{
		ActionCreateTeam, ActionUpdateTeam, ActionDeleteTeam, ActionViewTeam,
		ActionInviteUser, ActionRemoveUser, ActionViewUsers,
		ActionViewNotifications, ActionManageTeamMember,
	} {
		g[domain.RoleTeamOwner][a] = true
	}

	for _, a := range []Action{
		ActionCreateProject, ActionUpdateProject, ActionDeleteProject, ActionViewProject,
		ActionCreateTask, ActionUpdateTask, ActionDeleteTask, ActionViewTask,
		ActionAddComment, ActionUpdateComment, ActionDeleteComment,
		ActionAddAttachment, ActionDeleteAttachment,
		ActionViewNotifications, ActionManageProjectMember,
	} {
		g[domain.RoleProjectManager][a] = true
	}

	for _, a := range []Action{
		ActionViewProject, ActionViewTask,
		ActionAddComment, ActionAddAttachment,
		ActionViewNotifications,
	} {
		g[domain.RoleMember][a] = true
	}

	return g
}
