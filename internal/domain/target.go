package domain

import "fmt"

// TargetKind identifies the entity type behind a polymorphic reference.
// The set is closed: adding a kind means touching every switch that
// resolves one, which is intentional.
type TargetKind string

const (
	KindTask    TargetKind = "task"
	KindProject TargetKind = "project"
	KindComment TargetKind = "comment"
)

// ParseTargetKind maps a route parameter ("task", "tasks", ...) to a kind.
func ParseTargetKind(s string) (TargetKind, error) {
	switch s {
	case "task", "tasks":
		return KindTask, nil
	case "project", "projects":
		return KindProject, nil
	case "comment", "comments":
		return KindComment, nil
	default:
		return "", fmt.Errorf("unsupported target type %q", s)
	}
}

// TargetRef is a typed (kind, id) pair pointing at one of the ownerable
// entities. Comments and attachments embed it to attach to unrelated
// entity types through a single table.
type TargetRef struct {
	Kind TargetKind `gorm:"column:kind" json:"kind"`
	ID   int64      `gorm:"column:id" json:"id"`
}

func (r TargetRef) String() string {
	return fmt.Sprintf("%s#%d", r.Kind, r.ID)
}

// IsZero reports whether the reference was never finalized. Stale
// attachments with a zero owner are reaped by the cleanup sweep.
func (r TargetRef) IsZero() bool {
	return r.ID == 0
}
