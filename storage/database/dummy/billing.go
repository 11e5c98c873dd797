package dummydb

import (
	"context"

	"github.com/google/uuid"

	"github.com/estetika/academy/core"
	"github.com/estetika/academy/core/billing"
)

type billingRepository struct {
	payments *table[billing.Payment]
	expenses *table[billing.Expense]
}

var _ billing.Repository = (*billingRepository)(nil) // interface compliance check

func NewBillingRepository(db *DB) billing.Repository {
	return &billingRepository{payments: db.payment, expenses: db.expense}
}

// latest date first, then latest recorded
var byDateDesc = []core.DBOrdering{{Field: "date"}, {Field: "created_at"}}

// Payments

func (repo *billingRepository) CreatePayment(_ context.Context, p billing.Payment, _ ...core.DBExecutor) (billing.Payment, error) {
	p.ID = uuid.New().String()
	repo.payments.put(p.ID, p)
	return p, nil
}

func (repo *billingRepository) GetPayment(_ context.Context, id string, _ ...core.DBExecutor) (billing.Payment, error) {
	if p, ok := repo.payments.get(id); ok {
		return p, nil
	}
	return billing.Payment{}, billing.ErrPaymentNotFound
}

func (repo *billingRepository) QueryPayments(_ context.Context, filter billing.PaymentFilter, _ ...core.DBExecutor) ([]billing.Payment, error) {
	payments := repo.payments.all(func(p billing.Payment) bool {
		return (filter.UserID == "" || p.UserID == filter.UserID) &&
			(filter.ProgramID == "" || p.ProgramID == filter.ProgramID) &&
			(filter.Status == "" || p.Status == filter.Status) &&
			filter.Contains(p.Date)
	})
	reverse(payments)
	sortRows(payments, byDateDesc, func(p billing.Payment, field string) interface{} {
		if field == "date" {
			return p.Date.Format(sortableTime)
		}
		return p.CreatedAt.Format(sortableTime)
	})
	return payments, nil
}

func (repo *billingRepository) UpdatePayment(_ context.Context, p billing.Payment, _ ...core.DBExecutor) (billing.Payment, error) {
	if !repo.payments.has(p.ID) {
		return billing.Payment{}, billing.ErrPaymentNotFound
	}
	repo.payments.put(p.ID, p)
	return p, nil
}

func (repo *billingRepository) DeletePayment(_ context.Context, id string, _ ...core.DBExecutor) error {
	if !repo.payments.has(id) {
		return billing.ErrPaymentNotFound
	}
	repo.payments.delete(id)
	return nil
}

// Expenses

func (repo *billingRepository) CreateExpense(_ context.Context, e billing.Expense, _ ...core.DBExecutor) (billing.Expense, error) {
	e.ID = uuid.New().String()
	repo.expenses.put(e.ID, e)
	return e, nil
}

func (repo *billingRepository) GetExpense(_ context.Context, id string, _ ...core.DBExecutor) (billing.Expense, error) {
	if e, ok := repo.expenses.get(id); ok {
		return e, nil
	}
	return billing.Expense{}, billing.ErrExpenseNotFound
}

func (repo *billingRepository) QueryExpenses(_ context.Context, filter billing.ExpenseFilter, _ ...core.DBExecutor) ([]billing.Expense, error) {
	expenses := repo.expenses.all(func(e billing.Expense) bool {
		return (filter.Category == "" || e.Category == filter.Category) &&
			(filter.ProgramID == "" || e.ProgramID == filter.ProgramID) &&
			filter.Contains(e.Date)
	})
	reverse(expenses)
	sortRows(expenses, byDateDesc, func(e billing.Expense, field string) interface{} {
		if field == "date" {
			return e.Date.Format(sortableTime)
		}
		return e.CreatedAt.Format(sortableTime)
	})
	return expenses, nil
}

func (repo *billingRepository) UpdateExpense(_ context.Context, e billing.Expense, _ ...core.DBExecutor) (billing.Expense, error) {
	if !repo.expenses.has(e.ID) {
		return billing.Expense{}, billing.ErrExpenseNotFound
	}
	repo.expenses.put(e.ID, e)
	return e, nil
}

func (repo *billingRepository) DeleteExpense(_ context.Context, id string, _ ...core.DBExecutor) error {
	if !repo.expenses.has(id) {
		return billing.ErrExpenseNotFound
	}
	repo.expenses.delete(id)
	return nil
}
