package sqlxrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/estetika/academy/core"
	"github.com/estetika/academy/core/billing"
)

const (
	paymentColumns = "id, user_id, program_id, amount, date, status, installment_remaining, comment, created_at, updated_at"
	expenseColumns = "id, amount, date, description, category, program_id, created_at, updated_at"
)

type (
	paymentRow struct {
		ID                   string    `db:"id"`
		UserID               string    `db:"user_id"`
		ProgramID            string    `db:"program_id"`
		Amount               int64     `db:"amount"`
		Date                 time.Time `db:"date"`
		Status               string    `db:"status"`
		InstallmentRemaining int64     `db:"installment_remaining"`
		Comment              string    `db:"comment"`
		CreatedAt            time.Time `db:"created_at"`
		UpdatedAt            time.Time `db:"updated_at"`
	}

	expenseRow struct {
		ID          string      `db:"id"`
		Amount      int64       `db:"amount"`
		Date        time.Time   `db:"date"`
		Description string      `db:"description"`
		Category    string      `db:"category"`
		ProgramID   null.String `db:"program_id"`
		CreatedAt   time.Time   `db:"created_at"`
		UpdatedAt   time.Time   `db:"updated_at"`
	}
)

func (row paymentRow) toModel() billing.Payment {
	return billing.Payment{
		ID:                   row.ID,
		UserID:               row.UserID,
		ProgramID:            row.ProgramID,
		Amount:               row.Amount,
		Date:                 row.Date.UTC(),
		Status:               billing.PaymentStatus(row.Status),
		InstallmentRemaining: row.InstallmentRemaining,
		Comment:              row.Comment,
		CreatedAt:            row.CreatedAt.UTC(),
		UpdatedAt:            row.UpdatedAt.UTC(),
	}
}

func (row expenseRow) toModel() billing.Expense {
	return billing.Expense{
		ID:          row.ID,
		Amount:      row.Amount,
		Date:        row.Date.UTC(),
		Description: row.Description,
		Category:    billing.Category(row.Category),
		ProgramID:   row.ProgramID.String,
		CreatedAt:   row.CreatedAt.UTC(),
		UpdatedAt:   row.UpdatedAt.UTC(),
	}
}

type billingRepository struct {
	repository
}

var _ billing.Repository = (*billingRepository)(nil) // interface compliance check

func NewBillingRepository(db *sqlx.DB) billing.Repository {
	return &billingRepository{repository{db: db}}
}

func addPeriod(w *where, p billing.Period) {
	if !p.From.IsZero() {
		w.add("date >= ?", p.From.UTC())
	}
	if !p.To.IsZero() {
		w.add("date <= ?", p.To.UTC())
	}
}

// Payments

func (repo billingRepository) queryPayments(ctx context.Context, exec core.DBExecutor, query string, args ...interface{}) ([]billing.Payment, error) {
	var rows []paymentRow
	if err := repo.selectAll(ctx, exec, &rows, query, args...); err != nil {
		return nil, err
	}
	payments := make([]billing.Payment, 0, len(rows))
	for _, row := range rows {
		payments = append(payments, row.toModel())
	}
	return payments, nil
}

func (repo billingRepository) CreatePayment(ctx context.Context, p billing.Payment, exec ...core.DBExecutor) (billing.Payment, error) {
	p.ID = uuid.New().String()
	p.Date = p.Date.UTC()
	p.CreatedAt = p.CreatedAt.UTC()
	p.UpdatedAt = p.UpdatedAt.UTC()
	_, err := repo.exec(ctx, repo.getExec(exec),
		"INSERT INTO payments ("+paymentColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		p.ID, p.UserID, p.ProgramID, p.Amount, p.Date, string(p.Status), p.InstallmentRemaining, p.Comment,
		p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return billing.Payment{}, errors.Wrap(err, "inserting payment")
	}
	return p, nil
}

func (repo billingRepository) GetPayment(ctx context.Context, id string, exec ...core.DBExecutor) (billing.Payment, error) {
	if _, err := uuid.Parse(id); err != nil {
		return billing.Payment{}, billing.ErrPaymentNotFound
	}
	payments, err := repo.queryPayments(ctx, repo.getExec(exec), "SELECT "+paymentColumns+" FROM payments WHERE id = ?", id)
	if err != nil {
		return billing.Payment{}, errors.Wrap(err, "finding payment")
	}
	if err = trapNoRows(len(payments), billing.ErrPaymentNotFound); err != nil {
		return billing.Payment{}, err
	}
	return payments[0], nil
}

func (repo billingRepository) QueryPayments(ctx context.Context, filter billing.PaymentFilter, exec ...core.DBExecutor) ([]billing.Payment, error) {
	w := new(where)
	if filter.UserID != "" {
		w.add("user_id = ?", filter.UserID)
	}
	if filter.ProgramID != "" {
		w.add("program_id = ?", filter.ProgramID)
	}
	if filter.Status != "" {
		w.add("status = ?", string(filter.Status))
	}
	addPeriod(w, filter.Period)

	query := "SELECT " + paymentColumns + " FROM payments" + w.String() + " ORDER BY date DESC, created_at DESC"
	payments, err := repo.queryPayments(ctx, repo.getExec(exec), query, w.args...)
	if err != nil {
		return nil, errors.Wrap(err, "querying payments")
	}
	return payments, nil
}

func (repo billingRepository) UpdatePayment(ctx context.Context, p billing.Payment, exec ...core.DBExecutor) (billing.Payment, error) {
	p.Date = p.Date.UTC()
	p.UpdatedAt = p.UpdatedAt.UTC()
	n, err := repo.exec(ctx, repo.getExec(exec),
		"UPDATE payments SET amount = ?, date = ?, status = ?, installment_remaining = ?, comment = ?, updated_at = ? WHERE id = ?",
		p.Amount, p.Date, string(p.Status), p.InstallmentRemaining, p.Comment, p.UpdatedAt, p.ID)
	if err != nil {
		return billing.Payment{}, errors.Wrap(err, "updating payment")
	}
	if err = trapNoRows(int(n), billing.ErrPaymentNotFound); err != nil {
		return billing.Payment{}, err
	}
	return p, nil
}

func (repo billingRepository) DeletePayment(ctx context.Context, id string, exec ...core.DBExecutor) error {
	if _, err := uuid.Parse(id); err != nil {
		return billing.ErrPaymentNotFound
	}
	n, err := repo.exec(ctx, repo.getExec(exec), "DELETE FROM payments WHERE id = ?", id)
	if err != nil {
		return errors.Wrap(err, "deleting payment")
	}
	return trapNoRows(int(n), billing.ErrPaymentNotFound)
}

// Expenses

func (repo billingRepository) queryExpenses(ctx context.Context, exec core.DBExecutor, query string, args ...interface{}) ([]billing.Expense, error) {
	var rows []expenseRow
	if err := repo.selectAll(ctx, exec, &rows, query, args...); err != nil {
		return nil, err
	}
	expenses := make([]billing.Expense, 0, len(rows))
	for _, row := range rows {
		expenses = append(expenses, row.toModel())
	}
	return expenses, nil
}

func (repo billingRepository) CreateExpense(ctx context.Context, e billing.Expense, exec ...core.DBExecutor) (billing.Expense, error) {
	e.ID = uuid.New().String()
	e.Date = e.Date.UTC()
	e.CreatedAt = e.CreatedAt.UTC()
	e.UpdatedAt = e.UpdatedAt.UTC()
	_, err := repo.exec(ctx, repo.getExec(exec),
		"INSERT INTO expenses ("+expenseColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
		e.ID, e.Amount, e.Date, e.Description, string(e.Category), nullString(e.ProgramID), e.CreatedAt, e.UpdatedAt)
	if err != nil {
		return billing.Expense{}, errors.Wrap(err, "inserting expense")
	}
	return e, nil
}

func (repo billingRepository) GetExpense(ctx context.Context, id string, exec ...core.DBExecutor) (billing.Expense, error) {
	if _, err := uuid.Parse(id); err != nil {
		return billing.Expense{}, billing.ErrExpenseNotFound
	}
	expenses, err := repo.queryExpenses(ctx, repo.getExec(exec), "SELECT "+expenseColumns+" FROM expenses WHERE id = ?", id)
	if err != nil {
		return billing.Expense{}, errors.Wrap(err, "finding expense")
	}
	if err = trapNoRows(len(expenses), billing.ErrExpenseNotFound); err != nil {
		return billing.Expense{}, err
	}
	return expenses[0], nil
}

func (repo billingRepository) QueryExpenses(ctx context.Context, filter billing.ExpenseFilter, exec ...core.DBExecutor) ([]billing.Expense, error) {
	w := new(where)
	if filter.Category != "" {
		w.add("category = ?", string(filter.Category))
	}
	if filter.ProgramID != "" {
		w.add("program_id = ?", filter.ProgramID)
	}
	addPeriod(w, filter.Period)

	query := "SELECT " + expenseColumns + " FROM expenses" + w.String() + " ORDER BY date DESC, created_at DESC"
	expenses, err := repo.queryExpenses(ctx, repo.getExec(exec), query, w.args...)
	if err != nil {
		return nil, errors.Wrap(err, "querying expenses")
	}
	return expenses, nil
}

func (repo billingRepository) UpdateExpense(ctx context.Context, e billing.Expense, exec ...core.DBExecutor) (billing.Expense, error) {
	e.Date = e.Date.UTC()
	e.UpdatedAt = e.UpdatedAt.UTC()
	n, err := repo.exec(ctx, repo.getExec(exec),
		"UPDATE expenses SET amount = ?, date = ?, description = ?, category = ?, program_id = ?, updated_at = ? WHERE id = ?",
		e.Amount, e.Date, e.Description, string(e.Category), nullString(e.ProgramID), e.UpdatedAt, e.ID)
	if err != nil {
		return billing.Expense{}, errors.Wrap(err, "updating expense")
	}
	if err = trapNoRows(int(n), billing.ErrExpenseNotFound); err != nil {
		return billing.Expense{}, err
	}
	return e, nil
}

func (repo billingRepository) DeleteExpense(ctx context.Context, id string, exec ...core.DBExecutor) error {
	if _, err := uuid.Parse(id); err != nil {
		return billing.ErrExpenseNotFound
	}
	n, err := repo.exec(ctx, repo.getExec(exec), "DELETE FROM expenses WHERE id = ?", id)
	if err != nil {
		return errors.Wrap(err, "deleting expense")
	}
	return trapNoRows(int(n), billing.ErrExpenseNotFound)
}
