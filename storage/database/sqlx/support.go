package sqlxrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/estetika/academy/core"
	"github.com/estetika/academy/core/support"
)

const ticketColumns = "id, user_id, subject, message, attachment_url, status, admin_reply, replied_by, " +
	"created_at, updated_at, replied_at, closed_at"

type ticketRow struct {
	ID            string      `db:"id"`
	UserID        string      `db:"user_id"`
	Subject       string      `db:"subject"`
	Message       string      `db:"message"`
	AttachmentURL null.String `db:"attachment_url"`
	Status        string      `db:"status"`
	AdminReply    null.String `db:"admin_reply"`
	RepliedBy     null.String `db:"replied_by"`
	CreatedAt     time.Time   `db:"created_at"`
	UpdatedAt     time.Time   `db:"updated_at"`
	RepliedAt     null.Time   `db:"replied_at"`
	ClosedAt      null.Time   `db:"closed_at"`
}

func (row ticketRow) toModel() support.Ticket {
	return support.Ticket{
		ID:            row.ID,
		UserID:        row.UserID,
		Subject:       row.Subject,
		Message:       row.Message,
		AttachmentURL: row.AttachmentURL.String,
		Status:        support.Status(row.Status),
		AdminReply:    row.AdminReply.String,
		RepliedBy:     row.RepliedBy.String,
		CreatedAt:     row.CreatedAt.UTC(),
		UpdatedAt:     row.UpdatedAt.UTC(),
		RepliedAt:     timePtr(row.RepliedAt),
		ClosedAt:      timePtr(row.ClosedAt),
	}
}

type supportRepository struct {
	repository
}

var _ support.Repository = (*supportRepository)(nil) // interface compliance check

func NewSupportRepository(db *sqlx.DB) support.Repository {
	return &supportRepository{repository{db: db}}
}

func (repo supportRepository) queryTickets(ctx context.Context, exec core.DBExecutor, query string, args ...interface{}) ([]support.Ticket, error) {
	var rows []ticketRow
	if err := repo.selectAll(ctx, exec, &rows, query, args...); err != nil {
		return nil, err
	}
	tickets := make([]support.Ticket, 0, len(rows))
	for _, row := range rows {
		tickets = append(tickets, row.toModel())
	}
	return tickets, nil
}

func (repo supportRepository) CreateTicket(ctx context.Context, t support.Ticket, exec ...core.DBExecutor) (support.Ticket, error) {
	t.ID = uuid.New().String()
	t.CreatedAt = t.CreatedAt.UTC()
	t.UpdatedAt = t.UpdatedAt.UTC()
	_, err := repo.exec(ctx, repo.getExec(exec),
		"INSERT INTO tickets ("+ticketColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		t.ID, t.UserID, t.Subject, t.Message, nullString(t.AttachmentURL), string(t.Status), nullString(t.AdminReply),
		nullString(t.RepliedBy), t.CreatedAt, t.UpdatedAt, nullTime(t.RepliedAt), nullTime(t.ClosedAt))
	if err != nil {
		return support.Ticket{}, errors.Wrap(err, "inserting ticket")
	}
	return t, nil
}

func (repo supportRepository) GetTicket(ctx context.Context, id string, exec ...core.DBExecutor) (support.Ticket, error) {
	if _, err := uuid.Parse(id); err != nil {
		return support.Ticket{}, support.ErrNotFound
	}
	tickets, err := repo.queryTickets(ctx, repo.getExec(exec), "SELECT "+ticketColumns+" FROM tickets WHERE id = ?", id)
	if err != nil {
		return support.Ticket{}, errors.Wrap(err, "finding ticket")
	}
	if err = trapNoRows(len(tickets), support.ErrNotFound); err != nil {
		return support.Ticket{}, err
	}
	return tickets[0], nil
}

func (repo supportRepository) QueryTickets(ctx context.Context, filter support.Filter, exec ...core.DBExecutor) ([]support.Ticket, error) {
	w := new(where)
	if filter.UserID != "" {
		w.add("user_id = ?", filter.UserID)
	}
	if filter.Status != "" {
		w.add("status = ?", string(filter.Status))
	}
	if filter.Search != "" {
		w.add("LOWER(subject) LIKE ?", likePattern(filter.Search))
	}

	query := "SELECT " + ticketColumns + " FROM tickets" + w.String() + " ORDER BY created_at DESC, id DESC"
	tickets, err := repo.queryTickets(ctx, repo.getExec(exec), query, w.args...)
	if err != nil {
		return nil, errors.Wrap(err, "querying tickets")
	}
	return tickets, nil
}

func (repo supportRepository) UpdateTicket(ctx context.Context, t support.Ticket, exec ...core.DBExecutor) (support.Ticket, error) {
	t.UpdatedAt = t.UpdatedAt.UTC()
	n, err := repo.exec(ctx, repo.getExec(exec),
		"UPDATE tickets SET subject = ?, message = ?, attachment_url = ?, status = ?, admin_reply = ?, replied_by = ?, "+
			"updated_at = ?, replied_at = ?, closed_at = ? WHERE id = ?",
		t.Subject, t.Message, nullString(t.AttachmentURL), string(t.Status), nullString(t.AdminReply),
		nullString(t.RepliedBy), t.UpdatedAt, nullTime(t.RepliedAt), nullTime(t.ClosedAt), t.ID)
	if err != nil {
		return support.Ticket{}, errors.Wrap(err, "updating ticket")
	}
	if err = trapNoRows(int(n), support.ErrNotFound); err != nil {
		return support.Ticket{}, err
	}
	return t, nil
}
