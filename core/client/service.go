package client

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/estetika/academy/core"
	"github.com/estetika/academy/core/user"
)

// ErrNoteNotFound is returned when a note does not exist.
var ErrNoteNotFound = errors.New("note not found")

type (
	Repository interface {
		CreateNote(ctx context.Context, n Note, exec ...core.DBExecutor) (Note, error)
		GetNote(ctx context.Context, id string, exec ...core.DBExecutor) (Note, error)
		// QueryNotes returns the matching notes, newest first.
		QueryNotes(ctx context.Context, filter NoteFilter, exec ...core.DBExecutor) ([]Note, error)
		DeleteNote(ctx context.Context, id string, exec ...core.DBExecutor) error
	}

	Users interface {
		GetByID(ctx context.Context, id string) (user.User, error)
	}

	Service struct {
		repo   Repository
		users  Users
		logger core.Logger
	}
)

var NowFunc = time.Now // mockable

func NewService(repo Repository, users Users, logger core.Logger) *Service {
	return &Service{repo: repo, users: users, logger: logger}
}

// AddNote writes a note by authorID on userID's record.
func (svc *Service) AddNote(ctx context.Context, authorID, userID string, nn NewNote) (Note, error) {
	if _, err := svc.users.GetByID(ctx, userID); err != nil {
		return Note{}, errors.Wrap(err, "finding student")
	}
	n, err := svc.repo.CreateNote(ctx, Note{
		UserID:     userID,
		Visibility: nn.Visibility,
		Content:    nn.Content,
		CreatedBy:  authorID,
		CreatedAt:  NowFunc().UTC(),
	})
	if err != nil {
		return Note{}, errors.Wrap(err, "creating note")
	}
	svc.logger.Info(fmt.Sprintf("note %s added to user %s", n.ID, userID))
	return n, nil
}

// Notes lists the notes on userID's record, private ones only when includePrivate is set.
func (svc *Service) Notes(ctx context.Context, userID string, includePrivate bool) ([]Note, error) {
	filter := NoteFilter{UserID: userID}
	if !includePrivate {
		filter.Visibility = VisibilityPublic
	}
	return svc.repo.QueryNotes(ctx, filter)
}

func (svc *Service) DeleteNote(ctx context.Context, id string) error {
	if err := svc.repo.DeleteNote(ctx, id); err != nil {
		return errors.Wrap(err, "deleting note")
	}
	svc.logger.Info(fmt.Sprintf("note %s deleted", id))
	return nil
}
