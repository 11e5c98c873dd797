package support

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"github.com/pkg/errors"

	"github.com/estetika/academy/core"
	"github.com/estetika/academy/core/user"
)

var (
	// errors
	ErrNotFound      = errors.New("ticket not found")
	ErrTicketClosed  = errors.New("ticket is closed")
	ErrAlreadyClosed = errors.New("ticket already closed")

	ticketRepliedTemplate = "ticket_replied"
)

type (
	Repository interface {
		CreateTicket(ctx context.Context, t Ticket, exec ...core.DBExecutor) (Ticket, error)
		GetTicket(ctx context.Context, id string, exec ...core.DBExecutor) (Ticket, error)
		// QueryTickets returns the matching tickets, newest first.
		QueryTickets(ctx context.Context, filter Filter, exec ...core.DBExecutor) ([]Ticket, error)
		UpdateTicket(ctx context.Context, t Ticket, exec ...core.DBExecutor) (Ticket, error)
	}

	Users interface {
		GetByID(ctx context.Context, id string) (user.User, error)
	}

	Service struct {
		repo    Repository
		users   Users
		mailSvc core.EmailService
		logger  core.Logger
		conf    *core.Config
	}
)

var NowFunc = time.Now // mockable

func now() time.Time { return NowFunc().UTC() }

func NewService(repo Repository, users Users, mailSvc core.EmailService, logger core.Logger, conf *core.Config) *Service {
	return &Service{
		repo:    repo,
		users:   users,
		mailSvc: mailSvc,
		logger:  logger,
		conf:    conf,
	}
}

// Open files a new ticket for userID.
func (svc *Service) Open(ctx context.Context, userID string, nt NewTicket) (Ticket, error) {
	if _, err := svc.users.GetByID(ctx, userID); err != nil {
		return Ticket{}, errors.Wrap(err, "finding user")
	}
	tstamp := now()
	t, err := svc.repo.CreateTicket(ctx, Ticket{
		UserID:        userID,
		Subject:       nt.Subject,
		Message:       nt.Message,
		AttachmentURL: nt.AttachmentURL,
		Status:        StatusOpen,
		CreatedAt:     tstamp,
		UpdatedAt:     tstamp,
	})
	if err != nil {
		return Ticket{}, errors.Wrap(err, "opening ticket")
	}
	svc.logger.Info(fmt.Sprintf("ticket %s opened by user %s", t.ID, userID))
	return t, nil
}

func (svc *Service) GetByID(ctx context.Context, id string) (Ticket, error) {
	return svc.repo.GetTicket(ctx, id)
}

// GetOwn returns ticket id when userID filed it.
func (svc *Service) GetOwn(ctx context.Context, userID, id string) (Ticket, error) {
	t, err := svc.repo.GetTicket(ctx, id)
	if err != nil {
		return Ticket{}, err
	}
	if t.UserID != userID {
		return Ticket{}, ErrNotFound
	}
	return t, nil
}

func (svc *Service) Query(ctx context.Context, filter Filter) ([]Ticket, error) {
	return svc.repo.QueryTickets(ctx, filter)
}

// Reply answers an open ticket and emails the student. A new reply replaces the previous one.
func (svc *Service) Reply(ctx context.Context, adminID, id string, rt ReplyTicket) (Ticket, error) {
	t, err := svc.repo.GetTicket(ctx, id)
	if err != nil {
		return Ticket{}, err
	}
	if !t.IsOpen() {
		return Ticket{}, ErrTicketClosed
	}

	tstamp := now()
	t.AdminReply = rt.Reply
	t.RepliedBy = adminID
	t.RepliedAt = &tstamp
	t.UpdatedAt = tstamp
	if rt.Close {
		t.Status = StatusClosed
		t.ClosedAt = &tstamp
	}
	if t, err = svc.repo.UpdateTicket(ctx, t); err != nil {
		return Ticket{}, errors.Wrap(err, "replying to ticket")
	}
	svc.logger.Info(fmt.Sprintf("ticket %s answered, status %s", t.ID, t.Status))

	if usr, err := svc.users.GetByID(ctx, t.UserID); err == nil {
		svc.sendTicketRepliedMail(usr, t)
	} else {
		svc.logger.Warn(fmt.Sprintf("ticket %s: student not found, no email sent", t.ID), err)
	}
	return t, nil
}

// Close closes a ticket without replying.
func (svc *Service) Close(ctx context.Context, id string) (Ticket, error) {
	t, err := svc.repo.GetTicket(ctx, id)
	if err != nil {
		return Ticket{}, err
	}
	if !t.IsOpen() {
		return Ticket{}, ErrAlreadyClosed
	}
	tstamp := now()
	t.Status = StatusClosed
	t.ClosedAt = &tstamp
	t.UpdatedAt = tstamp
	if t, err = svc.repo.UpdateTicket(ctx, t); err != nil {
		return Ticket{}, errors.Wrap(err, "closing ticket")
	}
	svc.logger.Info(fmt.Sprintf("ticket %s closed", t.ID))
	return t, nil
}

func (svc *Service) sendTicketRepliedMail(usr user.User, t Ticket) {
	msg := &core.EmailMessage{
		To:           []mail.Address{{Name: usr.Name, Address: usr.Email}},
		Subject:      fmt.Sprintf("Re: %s", t.Subject),
		TemplateName: ticketRepliedTemplate,
		TemplateData: map[string]string{
			"Subject":  t.Subject,
			"Reply":    t.AdminReply,
			"Status":   string(t.Status),
			"TicketID": t.ID,
		},
	}
	msg.SetFrontendBaseURL(svc.conf.FrontendBaseURL)
	svc.mailSvc.SendMessages(msg)
}
