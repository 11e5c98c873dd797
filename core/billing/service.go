package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/estetika/academy/core"
	"github.com/estetika/academy/core/program"
	"github.com/estetika/academy/core/user"
)

var (
	// errors
	ErrPaymentNotFound = errors.New("payment not found")
	ErrExpenseNotFound = errors.New("expense not found")

	errRemainingRequired = core.NewValidationError(nil, core.FieldError{
		Field: "installment_remaining",
		Error: "an installment must have a remaining amount",
	})
	errRemainingNotAllowed = core.NewValidationError(nil, core.FieldError{
		Field: "installment_remaining",
		Error: "only installments can have a remaining amount",
	})
)

type (
	Repository interface {
		CreatePayment(ctx context.Context, p Payment, exec ...core.DBExecutor) (Payment, error)
		GetPayment(ctx context.Context, id string, exec ...core.DBExecutor) (Payment, error)
		// QueryPayments returns the matching payments, latest date first.
		QueryPayments(ctx context.Context, filter PaymentFilter, exec ...core.DBExecutor) ([]Payment, error)
		UpdatePayment(ctx context.Context, p Payment, exec ...core.DBExecutor) (Payment, error)
		DeletePayment(ctx context.Context, id string, exec ...core.DBExecutor) error

		CreateExpense(ctx context.Context, e Expense, exec ...core.DBExecutor) (Expense, error)
		GetExpense(ctx context.Context, id string, exec ...core.DBExecutor) (Expense, error)
		// QueryExpenses returns the matching expenses, latest date first.
		QueryExpenses(ctx context.Context, filter ExpenseFilter, exec ...core.DBExecutor) ([]Expense, error)
		UpdateExpense(ctx context.Context, e Expense, exec ...core.DBExecutor) (Expense, error)
		DeleteExpense(ctx context.Context, id string, exec ...core.DBExecutor) error
	}

	Users interface {
		GetByID(ctx context.Context, id string) (user.User, error)
	}

	Programs interface {
		GetByID(ctx context.Context, id string) (program.Program, error)
	}

	Service struct {
		repo     Repository
		users    Users
		programs Programs
		logger   core.Logger
	}
)

var NowFunc = time.Now // mockable

func now() time.Time { return NowFunc().UTC() }

func NewService(repo Repository, users Users, programs Programs, logger core.Logger) *Service {
	return &Service{repo: repo, users: users, programs: programs, logger: logger}
}

// Payments

func (svc *Service) CreatePayment(ctx context.Context, np NewPayment) (Payment, error) {
	if _, err := svc.users.GetByID(ctx, np.UserID); err != nil {
		return Payment{}, errors.Wrap(err, "finding student")
	}
	if _, err := svc.programs.GetByID(ctx, np.ProgramID); err != nil {
		return Payment{}, errors.Wrap(err, "finding program")
	}

	tstamp := now()
	p := Payment{
		UserID:               np.UserID,
		ProgramID:            np.ProgramID,
		Amount:               np.Amount,
		Date:                 dateOr(np.Date, tstamp),
		Status:               np.Status,
		InstallmentRemaining: np.InstallmentRemaining,
		Comment:              np.Comment,
		CreatedAt:            tstamp,
		UpdatedAt:            tstamp,
	}
	if err := checkInstallment(p); err != nil {
		return Payment{}, err
	}

	p, err := svc.repo.CreatePayment(ctx, p)
	if err != nil {
		return Payment{}, errors.Wrap(err, "creating payment")
	}
	svc.logger.Info(fmt.Sprintf("payment %s recorded for user %s", p.ID, p.UserID))
	return p, nil
}

func (svc *Service) GetPayment(ctx context.Context, id string) (Payment, error) {
	return svc.repo.GetPayment(ctx, id)
}

func (svc *Service) UpdatePayment(ctx context.Context, id string, up UpdatePayment) (Payment, error) {
	p, err := svc.repo.GetPayment(ctx, id)
	if err != nil {
		return Payment{}, err
	}
	if up.Amount != nil {
		p.Amount = *up.Amount
	}
	if up.Date != nil {
		p.Date = up.Date.UTC()
	}
	if up.Status != nil {
		p.Status = *up.Status
		if p.Status != PaymentInstallment && up.InstallmentRemaining == nil {
			p.InstallmentRemaining = 0
		}
	}
	if up.InstallmentRemaining != nil {
		p.InstallmentRemaining = *up.InstallmentRemaining
	}
	if up.Comment != nil {
		p.Comment = *up.Comment
	}
	if err := checkInstallment(p); err != nil {
		return Payment{}, err
	}
	p.UpdatedAt = now()

	if p, err = svc.repo.UpdatePayment(ctx, p); err != nil {
		return Payment{}, errors.Wrap(err, "updating payment")
	}
	return p, nil
}

func (svc *Service) DeletePayment(ctx context.Context, id string) error {
	if err := svc.repo.DeletePayment(ctx, id); err != nil {
		return errors.Wrap(err, "deleting payment")
	}
	svc.logger.Info(fmt.Sprintf("payment %s deleted", id))
	return nil
}

func (svc *Service) Payments(ctx context.Context, filter PaymentFilter) ([]Payment, error) {
	return svc.repo.QueryPayments(ctx, filter)
}

// checkInstallment: an installment has money left to pay, other statuses have none.
func checkInstallment(p Payment) error {
	if p.Status == PaymentInstallment && p.InstallmentRemaining <= 0 {
		return errRemainingRequired
	}
	if p.Status != PaymentInstallment && p.InstallmentRemaining != 0 {
		return errRemainingNotAllowed
	}
	return nil
}

// Expenses

func (svc *Service) CreateExpense(ctx context.Context, ne NewExpense) (Expense, error) {
	if ne.ProgramID != "" {
		if _, err := svc.programs.GetByID(ctx, ne.ProgramID); err != nil {
			return Expense{}, errors.Wrap(err, "finding program")
		}
	}

	tstamp := now()
	e, err := svc.repo.CreateExpense(ctx, Expense{
		Amount:      ne.Amount,
		Date:        dateOr(ne.Date, tstamp),
		Description: ne.Description,
		Category:    ne.Category,
		ProgramID:   ne.ProgramID,
		CreatedAt:   tstamp,
		UpdatedAt:   tstamp,
	})
	if err != nil {
		return Expense{}, errors.Wrap(err, "creating expense")
	}
	svc.logger.Info(fmt.Sprintf("expense %s recorded", e.ID))
	return e, nil
}

func (svc *Service) GetExpense(ctx context.Context, id string) (Expense, error) {
	return svc.repo.GetExpense(ctx, id)
}

func (svc *Service) UpdateExpense(ctx context.Context, id string, ue UpdateExpense) (Expense, error) {
	e, err := svc.repo.GetExpense(ctx, id)
	if err != nil {
		return Expense{}, err
	}
	if ue.Amount != nil {
		e.Amount = *ue.Amount
	}
	if ue.Date != nil {
		e.Date = ue.Date.UTC()
	}
	if ue.Description != nil {
		e.Description = *ue.Description
	}
	if ue.Category != nil {
		e.Category = *ue.Category
	}
	if ue.ProgramID != nil && *ue.ProgramID != e.ProgramID {
		if *ue.ProgramID != "" {
			if _, err := svc.programs.GetByID(ctx, *ue.ProgramID); err != nil {
				return Expense{}, errors.Wrap(err, "finding program")
			}
		}
		e.ProgramID = *ue.ProgramID
	}
	e.UpdatedAt = now()

	if e, err = svc.repo.UpdateExpense(ctx, e); err != nil {
		return Expense{}, errors.Wrap(err, "updating expense")
	}
	return e, nil
}

func (svc *Service) DeleteExpense(ctx context.Context, id string) error {
	if err := svc.repo.DeleteExpense(ctx, id); err != nil {
		return errors.Wrap(err, "deleting expense")
	}
	svc.logger.Info(fmt.Sprintf("expense %s deleted", id))
	return nil
}

func (svc *Service) Expenses(ctx context.Context, filter ExpenseFilter) ([]Expense, error) {
	return svc.repo.QueryExpenses(ctx, filter)
}

// Report sums the payments and expenses dated within filter's period. With a program,
// only the expenses linked to that program count.
func (svc *Service) Report(ctx context.Context, filter ReportFilter) (Report, error) {
	payments, err := svc.repo.QueryPayments(ctx, PaymentFilter{ProgramID: filter.ProgramID, Period: filter.Period})
	if err != nil {
		return Report{}, errors.Wrap(err, "querying payments")
	}
	expenses, err := svc.repo.QueryExpenses(ctx, ExpenseFilter{ProgramID: filter.ProgramID, Period: filter.Period})
	if err != nil {
		return Report{}, errors.Wrap(err, "querying expenses")
	}

	var rep Report
	buyers := make(map[string]struct{})
	for _, p := range payments {
		rep.Income += p.Income()
		rep.Outstanding += p.Outstanding()
		if p.Status != PaymentPending {
			buyers[p.UserID] = struct{}{}
		}
	}
	for _, e := range expenses {
		rep.Expenses += e.Amount
	}
	rep.Profit = rep.Income - rep.Expenses
	rep.Buyers = len(buyers)
	rep.Payments = len(payments)
	return rep, nil
}

func dateOr(d *time.Time, def time.Time) time.Time {
	if d == nil {
		return def
	}
	return d.UTC()
}
