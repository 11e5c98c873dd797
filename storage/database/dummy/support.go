package dummydb

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/estetika/academy/core"
	"github.com/estetika/academy/core/support"
)

type supportRepository struct {
	tickets *table[support.Ticket]
}

var _ support.Repository = (*supportRepository)(nil) // interface compliance check

func NewSupportRepository(db *DB) support.Repository {
	return &supportRepository{tickets: db.ticket}
}

func (repo *supportRepository) CreateTicket(_ context.Context, t support.Ticket, _ ...core.DBExecutor) (support.Ticket, error) {
	t.ID = uuid.New().String()
	repo.tickets.put(t.ID, t)
	return t, nil
}

func (repo *supportRepository) GetTicket(_ context.Context, id string, _ ...core.DBExecutor) (support.Ticket, error) {
	if t, ok := repo.tickets.get(id); ok {
		return t, nil
	}
	return support.Ticket{}, support.ErrNotFound
}

func (repo *supportRepository) QueryTickets(_ context.Context, filter support.Filter, _ ...core.DBExecutor) ([]support.Ticket, error) {
	search := strings.ToLower(filter.Search)
	tickets := repo.tickets.all(func(t support.Ticket) bool {
		return (filter.UserID == "" || t.UserID == filter.UserID) &&
			(filter.Status == "" || t.Status == filter.Status) &&
			(search == "" || strings.Contains(strings.ToLower(t.Subject), search))
	})
	reverse(tickets)
	sortRows(tickets, []core.DBOrdering{{Field: "created_at"}}, func(t support.Ticket, _ string) interface{} {
		return t.CreatedAt.Format(sortableTime)
	})
	return tickets, nil
}

func (repo *supportRepository) UpdateTicket(_ context.Context, t support.Ticket, _ ...core.DBExecutor) (support.Ticket, error) {
	if !repo.tickets.has(t.ID) {
		return support.Ticket{}, support.ErrNotFound
	}
	repo.tickets.put(t.ID, t)
	return t, nil
}
