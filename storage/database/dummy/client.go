package dummydb

import (
	"context"

	"github.com/google/uuid"

	"github.com/estetika/academy/core"
	"github.com/estetika/academy/core/client"
)

type clientRepository struct {
	notes *table[client.Note]
}

var _ client.Repository = (*clientRepository)(nil) // interface compliance check

func NewClientRepository(db *DB) client.Repository {
	return &clientRepository{notes: db.note}
}

func (repo *clientRepository) CreateNote(_ context.Context, n client.Note, _ ...core.DBExecutor) (client.Note, error) {
	n.ID = uuid.New().String()
	repo.notes.put(n.ID, n)
	return n, nil
}

func (repo *clientRepository) GetNote(_ context.Context, id string, _ ...core.DBExecutor) (client.Note, error) {
	if n, ok := repo.notes.get(id); ok {
		return n, nil
	}
	return client.Note{}, client.ErrNoteNotFound
}

func (repo *clientRepository) QueryNotes(_ context.Context, filter client.NoteFilter, _ ...core.DBExecutor) ([]client.Note, error) {
	notes := repo.notes.all(func(n client.Note) bool {
		return (filter.UserID == "" || n.UserID == filter.UserID) &&
			(filter.Visibility == "" || n.Visibility == filter.Visibility)
	})
	reverse(notes)
	sortRows(notes, []core.DBOrdering{{Field: "created_at"}}, func(n client.Note, _ string) interface{} {
		return n.CreatedAt.Format(sortableTime)
	})
	return notes, nil
}

func (repo *clientRepository) DeleteNote(_ context.Context, id string, _ ...core.DBExecutor) error {
	if !repo.notes.has(id) {
		return client.ErrNoteNotFound
	}
	repo.notes.delete(id)
	return nil
}
