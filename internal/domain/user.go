package domain

import "time"

// Role names. Users may hold several roles; permission grants hang off
// the role, not the user.
const (
	RoleAdmin          = "admin"
	RoleTeamOwner      = "team_owner"
	RoleProjectManager = "project_manager"
	RoleMember         = "member"
)

type Role struct {
	ID          int64        `json:"id"`
	Name        string       `json:"name" gorm:"uniqueIndex"`
	Permissions []Permission `json:"permissions,omitempty" gorm:"many2many:role_permissions"`
}

type Permission struct {
	ID   int64  `json:"id"`
	Name string `json:"name" gorm:"uniqueIndex"`
}

type User struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email" validate:"required,email" gorm:"uniqueIndex"`
	PasswordHash string    `json:"-"`
	Name         string    `json:"name"`
	Roles        []Role    `json:"roles,omitempty" gorm:"many2many:user_roles"`
	Teams        []Team    `json:"teams,omitempty" gorm:"many2many:team_members"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// HasRole reports whether the user holds the named role.
func (u *User) HasRole(name string) bool {
	for _, r := range u.Roles {
		if r.Name == name {
			return true
		}
	}
	return false
}

// RoleNames returns the user's role names, used for token claims.
func (u *User) RoleNames() []string {
	names := make([]string, 0, len(u.Roles))
	for _, r := range u.Roles {
		names = append(names, r.Name)
	}
	return names
}
