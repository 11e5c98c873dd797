package client

import (
	"time"
)

type Visibility string

const (
	VisibilityPublic  Visibility = "public"  // shown to the student
	VisibilityPrivate Visibility = "private" // staff only
)

// Note is a staff note on a student's record.
type Note struct {
	ID         string     `json:"id"`
	UserID     string     `json:"user_id"`
	Visibility Visibility `json:"visibility"`
	Content    string     `json:"content"`
	CreatedBy  string     `json:"created_by"`
	CreatedAt  time.Time  `json:"created_at"` // UTC
}

func (n Note) IsPublic() bool { return n.Visibility == VisibilityPublic }

type NewNote struct {
	Visibility Visibility `json:"visibility" validate:"required,oneof=public private"`
	Content    string     `json:"content" validate:"required,notblank,max=5000"`
}

type NoteFilter struct {
	UserID     string
	Visibility Visibility
}
