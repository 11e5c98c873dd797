package program

import (
	"time"

	"github.com/estetika/academy/core"
	"github.com/estetika/academy/core/outline"
)

type Status string

const (
	StatusPublished Status = "published"
	StatusHidden    Status = "hidden"
)

type StopLessonMode string

const (
	StopNone   StopLessonMode = "none"
	StopAuto   StopLessonMode = "auto"
	StopManual StopLessonMode = "manual"
)

type BlockType string

const (
	BlockRichText BlockType = "richtext"
	BlockVideo    BlockType = "video"
	BlockImage    BlockType = "image"
	BlockAudio    BlockType = "audio"
	BlockDivider  BlockType = "divider"
	BlockCallout  BlockType = "callout"
)

type PracticeType string

const (
	PracticeOpen       PracticeType = "open"
	PracticeCheckboxes PracticeType = "checkboxes"
)

// Program is the aggregate root owning the outline tree.
type Program struct {
	ID          string       `json:"id"`
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Status      Status       `json:"status"`
	CoverImage  string       `json:"cover_image,omitempty"`
	Outline     outline.Tree `json:"outline"`
	Attachments []Attachment `json:"attachments"`
	CreatedAt   time.Time    `json:"created_at"` // UTC
	UpdatedAt   time.Time    `json:"updated_at"` // UTC
}

func (p Program) IsPublished() bool { return p.Status == StatusPublished }

// Lesson lives in the flat lesson store. Outline lesson nodes point to it by ID.
type Lesson struct {
	ID             string         `json:"id"`
	ProgramID      string         `json:"program_id"`
	Title          string         `json:"title"`
	Description    string         `json:"description"`
	Published      bool           `json:"published"`
	AccessStart    *time.Time     `json:"access_start,omitempty"`
	DeadlineAt     *time.Time     `json:"deadline_at,omitempty"`
	StopLessonMode StopLessonMode `json:"stop_lesson_mode"`
	StopReason     string         `json:"stop_reason,omitempty"`
	Blocks         []Block        `json:"blocks"`
	Practice       *Practice      `json:"practice,omitempty"`
	Tasks          []Task         `json:"tasks"`
	Attachments    []Attachment   `json:"attachments"`
	CreatedAt      time.Time      `json:"created_at"` // UTC
	UpdatedAt      time.Time      `json:"updated_at"` // UTC
}

// HasPractice reports whether the lesson expects homework.
func (l Lesson) HasPractice() bool { return l.Practice != nil && l.Practice.Enabled }

// IsStopped reports whether the lesson is closed for new submissions at t.
func (l Lesson) IsStopped(t time.Time) bool {
	switch l.StopLessonMode {
	case StopManual:
		return true
	case StopAuto:
		return l.DeadlineAt != nil && t.After(*l.DeadlineAt)
	}
	return false
}

type Block struct {
	ID      string    `json:"id"`
	Type    BlockType `json:"type" validate:"oneof=richtext video image audio divider callout"`
	Order   int       `json:"order"`
	Content string    `json:"content"` // HTML for richtext & callout, a URL for media blocks
}

type Practice struct {
	Enabled       bool         `json:"enabled"`
	Title         string       `json:"title"`
	Description   string       `json:"description"`
	Required      bool         `json:"required"`
	Type          PracticeType `json:"type" validate:"omitempty,oneof=open checkboxes"`
	CheckboxItems []string     `json:"checkbox_items,omitempty"`
}

type Task struct {
	ID    string `json:"id"`
	Title string `json:"title" validate:"notblank"`
	Order int    `json:"order"`
}

type Attachment struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	URL   string `json:"url"`
}

// NewProgram contains information needed to create a new Program.
type NewProgram struct {
	Title       string `json:"title" validate:"required,notblank,max=255"`
	Description string `json:"description"`
	Status      Status `json:"status" validate:"omitempty,oneof=published hidden"`
	CoverImage  string `json:"cover_image" validate:"omitempty,url"`
}

// UpdateProgram defines what information may be provided to modify an existing Program.
type UpdateProgram struct {
	Title       *string `json:"title" validate:"omitempty,notblank,max=255"`
	Description *string `json:"description"`
	Status      *Status `json:"status" validate:"omitempty,oneof=published hidden"`
	CoverImage  *string `json:"cover_image" validate:"omitempty,url"`
}

// NewLesson contains the initial content of a lesson added to an outline,
// under ParentID or at the root when empty.
type NewLesson struct {
	ParentID    string     `json:"parent_id"`
	Title       string     `json:"title" validate:"max=255"`
	Description string     `json:"description"`
	Published   *bool      `json:"published"`
	AccessStart *time.Time `json:"access_start"`
	DeadlineAt  *time.Time `json:"deadline_at"`
}

// UpdateLesson defines what information may be provided to modify an existing Lesson.
type UpdateLesson struct {
	Title          *string         `json:"title" validate:"omitempty,notblank,max=255"`
	Description    *string         `json:"description"`
	Published      *bool           `json:"published"`
	AccessStart    *time.Time      `json:"access_start"`
	DeadlineAt     *time.Time      `json:"deadline_at"`
	StopLessonMode *StopLessonMode `json:"stop_lesson_mode" validate:"omitempty,oneof=none auto manual"`
	StopReason     *string         `json:"stop_reason"`
	Blocks         []Block         `json:"blocks" validate:"omitempty,dive"`
	Practice       *Practice       `json:"practice"`
	Tasks          []Task          `json:"tasks" validate:"omitempty,dive"`
}

// NewNode is the body of the outline insert endpoints.
type NewNode struct {
	ParentID string `json:"parent_id"`
	Title    string `json:"title" validate:"max=255"`
}

// MoveNode is the target of an outline move: a parent (root when empty) and a position.
type MoveNode struct {
	ParentID string `json:"parent_id"`
	Index    int    `json:"index" validate:"min=0"`
}

type RenameNode struct {
	Title string `json:"title" validate:"required,notblank,max=255"`
}

type NewAttachment struct {
	Title string `json:"title" validate:"required,notblank,max=255"`
	URL   string `json:"url" validate:"required,url"`
}

// Navigation holds the neighbours of a lesson in the flattened outline.
type Navigation struct {
	PrevID string `json:"prev_id,omitempty"`
	NextID string `json:"next_id,omitempty"`
}

type QueryFilter struct {
	Search string `query:"search"`
	Status Status `query:"status"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.Search == "" && qf.Status == ""
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
}

// LessonFilter selects lessons of the lesson store. Empty fields do not filter.
type LessonFilter struct {
	ProgramID string
	IDs       []string
}
