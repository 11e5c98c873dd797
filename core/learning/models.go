package learning

import (
	"time"

	"github.com/estetika/academy/core"
)

type SubmissionStatus string

const (
	SubmissionSubmitted SubmissionStatus = "submitted"
	SubmissionApproved  SubmissionStatus = "approved"
	SubmissionRejected  SubmissionStatus = "rejected"
)

// LessonStatus is what a student sees next to a lesson of the outline.
type LessonStatus string

const (
	LessonLocked     LessonStatus = "locked"
	LessonScheduled  LessonStatus = "scheduled"
	LessonAvailable  LessonStatus = "available"
	LessonInProgress LessonStatus = "in-progress"
	LessonCompleted  LessonStatus = "completed"
)

// Progress percents
const (
	percentVideoWatched      = 80 // homework still expected
	percentHomeworkSubmitted = 90
	percentCompleted         = 100
)

// AccessGrant opens a program to a student, from StartDate until EndDate (open ended when nil).
type AccessGrant struct {
	ID        string     `json:"id"`
	UserID    string     `json:"user_id"`
	ProgramID string     `json:"program_id"`
	StartDate time.Time  `json:"start_date"`         // UTC
	EndDate   *time.Time `json:"end_date,omitempty"` // UTC
	Reason    string     `json:"reason"`
	GrantedBy string     `json:"granted_by,omitempty"`
	CreatedAt time.Time  `json:"created_at"` // UTC
}

// IsActive reports whether the grant window contains t.
func (g AccessGrant) IsActive(t time.Time) bool {
	if t.Before(g.StartDate) {
		return false
	}
	return g.EndDate == nil || !t.After(*g.EndDate)
}

// Progress of a student on one lesson.
type Progress struct {
	ID                string    `json:"id"`
	UserID            string    `json:"user_id"`
	ProgramID         string    `json:"program_id"`
	LessonID          string    `json:"lesson_id"`
	VideoWatched      bool      `json:"video_watched"`
	Acknowledged      bool      `json:"acknowledged"`
	HomeworkSubmitted bool      `json:"homework_submitted"`
	HomeworkApproved  bool      `json:"homework_approved"`
	Percent           int       `json:"percent"`
	UpdatedAt         time.Time `json:"updated_at"` // UTC
}

func (p Progress) IsCompleted() bool { return p.Percent >= percentCompleted }

// raise sets the percent to pct unless it is already higher.
func (p *Progress) raise(pct int) {
	if pct > p.Percent {
		p.Percent = pct
	}
}

type Submission struct {
	ID         string           `json:"id"`
	UserID     string           `json:"user_id"`
	ProgramID  string           `json:"program_id"`
	LessonID   string           `json:"lesson_id"`
	Content    string           `json:"content"`
	FileURL    string           `json:"file_url,omitempty"`
	Status     SubmissionStatus `json:"status"`
	AdminReply string           `json:"admin_reply,omitempty"`
	CreatedAt  time.Time        `json:"created_at"`            // UTC
	ReviewedAt *time.Time       `json:"reviewed_at,omitempty"` // UTC
}

// IsOpen reports whether the submission blocks a new one: pending or approved.
func (s Submission) IsOpen() bool { return s.Status != SubmissionRejected }

// NewGrant contains information needed to open a program to a student.
// StartDate defaults to now.
type NewGrant struct {
	UserID    string     `json:"user_id" validate:"required"`
	ProgramID string     `json:"program_id" validate:"required"`
	StartDate *time.Time `json:"start_date"`
	EndDate   *time.Time `json:"end_date"`
	Reason    string     `json:"reason" validate:"max=500"`
}

type NewSubmission struct {
	Content string `json:"content" validate:"required,notblank"`
	FileURL string `json:"file_url" validate:"omitempty,url"`
}

type ReviewSubmission struct {
	Status     SubmissionStatus `json:"status" validate:"required,oneof=approved rejected"`
	AdminReply string           `json:"admin_reply"`
}

// Filters: empty fields do not filter.
type (
	GrantFilter struct {
		UserID    string `query:"user_id"`
		ProgramID string `query:"program_id"`
	}

	ProgressFilter struct {
		UserID    string
		ProgramID string
		LessonIDs []string
	}

	SubmissionFilter struct {
		UserID    string           `query:"user_id"`
		ProgramID string           `query:"program_id"`
		LessonID  string           `query:"lesson_id"`
		Status    SubmissionStatus `query:"status"`
	}
)

func (sf *SubmissionFilter) Clean() {
	sf.UserID = core.CleanString(sf.UserID)
	sf.ProgramID = core.CleanString(sf.ProgramID)
	sf.LessonID = core.CleanString(sf.LessonID)
}
