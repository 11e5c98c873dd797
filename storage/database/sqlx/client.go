package sqlxrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/estetika/academy/core"
	"github.com/estetika/academy/core/client"
)

const noteColumns = "id, user_id, visibility, content, created_by, created_at"

type noteRow struct {
	ID         string      `db:"id"`
	UserID     string      `db:"user_id"`
	Visibility string      `db:"visibility"`
	Content    string      `db:"content"`
	CreatedBy  null.String `db:"created_by"`
	CreatedAt  time.Time   `db:"created_at"`
}

func (row noteRow) toModel() client.Note {
	return client.Note{
		ID:         row.ID,
		UserID:     row.UserID,
		Visibility: client.Visibility(row.Visibility),
		Content:    row.Content,
		CreatedBy:  row.CreatedBy.String,
		CreatedAt:  row.CreatedAt.UTC(),
	}
}

type clientRepository struct {
	repository
}

var _ client.Repository = (*clientRepository)(nil) // interface compliance check

func NewClientRepository(db *sqlx.DB) client.Repository {
	return &clientRepository{repository{db: db}}
}

func (repo clientRepository) queryNotes(ctx context.Context, exec core.DBExecutor, query string, args ...interface{}) ([]client.Note, error) {
	var rows []noteRow
	if err := repo.selectAll(ctx, exec, &rows, query, args...); err != nil {
		return nil, err
	}
	notes := make([]client.Note, 0, len(rows))
	for _, row := range rows {
		notes = append(notes, row.toModel())
	}
	return notes, nil
}

func (repo clientRepository) CreateNote(ctx context.Context, n client.Note, exec ...core.DBExecutor) (client.Note, error) {
	n.ID = uuid.New().String()
	n.CreatedAt = n.CreatedAt.UTC()
	_, err := repo.exec(ctx, repo.getExec(exec),
		"INSERT INTO client_notes ("+noteColumns+") VALUES (?, ?, ?, ?, ?, ?)",
		n.ID, n.UserID, string(n.Visibility), n.Content, nullString(n.CreatedBy), n.CreatedAt)
	if err != nil {
		return client.Note{}, errors.Wrap(err, "inserting note")
	}
	return n, nil
}

func (repo clientRepository) GetNote(ctx context.Context, id string, exec ...core.DBExecutor) (client.Note, error) {
	if _, err := uuid.Parse(id); err != nil {
		return client.Note{}, client.ErrNoteNotFound
	}
	notes, err := repo.queryNotes(ctx, repo.getExec(exec), "SELECT "+noteColumns+" FROM client_notes WHERE id = ?", id)
	if err != nil {
		return client.Note{}, errors.Wrap(err, "finding note")
	}
	if err = trapNoRows(len(notes), client.ErrNoteNotFound); err != nil {
		return client.Note{}, err
	}
	return notes[0], nil
}

func (repo clientRepository) QueryNotes(ctx context.Context, filter client.NoteFilter, exec ...core.DBExecutor) ([]client.Note, error) {
	w := new(where)
	if filter.UserID != "" {
		w.add("user_id = ?", filter.UserID)
	}
	if filter.Visibility != "" {
		w.add("visibility = ?", string(filter.Visibility))
	}

	query := "SELECT " + noteColumns + " FROM client_notes" + w.String() + " ORDER BY created_at DESC, id DESC"
	notes, err := repo.queryNotes(ctx, repo.getExec(exec), query, w.args...)
	if err != nil {
		return nil, errors.Wrap(err, "querying notes")
	}
	return notes, nil
}

func (repo clientRepository) DeleteNote(ctx context.Context, id string, exec ...core.DBExecutor) error {
	if _, err := uuid.Parse(id); err != nil {
		return client.ErrNoteNotFound
	}
	n, err := repo.exec(ctx, repo.getExec(exec), "DELETE FROM client_notes WHERE id = ?", id)
	if err != nil {
		return errors.Wrap(err, "deleting note")
	}
	return trapNoRows(int(n), client.ErrNoteNotFound)
}
