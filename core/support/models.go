package support

import (
	"time"

	"github.com/estetika/academy/core"
)

type Status string

const (
	StatusOpen   Status = "open"
	StatusClosed Status = "closed"
)

// Ticket is a support request a student sends to the school.
type Ticket struct {
	ID            string     `json:"id"`
	UserID        string     `json:"user_id"`
	Subject       string     `json:"subject"`
	Message       string     `json:"message"`
	AttachmentURL string     `json:"attachment_url,omitempty"`
	Status        Status     `json:"status"`
	AdminReply    string     `json:"admin_reply,omitempty"`
	RepliedBy     string     `json:"replied_by,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`           // UTC
	UpdatedAt     time.Time  `json:"updated_at"`           // UTC
	RepliedAt     *time.Time `json:"replied_at,omitempty"` // UTC
	ClosedAt      *time.Time `json:"closed_at,omitempty"`  // UTC
}

func (t Ticket) IsOpen() bool { return t.Status == StatusOpen }

// NewTicket contains information needed to open a ticket.
type NewTicket struct {
	Subject       string `json:"subject" validate:"required,notblank,max=200"`
	Message       string `json:"message" validate:"required,notblank,max=5000"`
	AttachmentURL string `json:"attachment_url" validate:"omitempty,url"`
}

// ReplyTicket answers a ticket, and closes it when Close is set.
type ReplyTicket struct {
	Reply string `json:"reply" validate:"required,notblank"`
	Close bool   `json:"close"`
}

// Filter: empty fields do not filter.
type Filter struct {
	UserID string `query:"user_id"`
	Status Status `query:"status"`
	Search string `query:"search"` // subject, case-insensitive
}

func (f *Filter) Clean() {
	f.UserID = core.CleanString(f.UserID)
	f.Search = core.CleanString(f.Search)
}
