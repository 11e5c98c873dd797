package sqlxrepos

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/estetika/academy/core/billing"
	"github.com/estetika/academy/core/program"
	"github.com/estetika/academy/core/user"
	"github.com/estetika/academy/tests"
)

func TestBillingRepository(t *testing.T) {
	ctx := context.Background()
	db := testutil.PrepareDB(t)
	repo := NewBillingRepository(db)
	progs := NewProgramRepository(db)
	now := time.Now().UTC().Truncate(time.Microsecond)
	day := func(d int) time.Time { return time.Date(2024, 3, d, 12, 0, 0, 0, time.UTC) }

	joe := testutil.CreateUser(t, NewUserRepository(db), "Joe", "joe@x.com", "", []string{user.RoleStudent}, true)
	prog, err := progs.CreateProgram(ctx, program.Program{Title: "Brows", CreatedAt: now, UpdatedAt: now})
	require.NoError(t, err)

	t.Run("payments", func(t *testing.T) {
		pay := func(amount int64, date time.Time, status billing.PaymentStatus, remaining int64) billing.Payment {
			p, err := repo.CreatePayment(ctx, billing.Payment{
				UserID:               joe.ID,
				ProgramID:            prog.ID,
				Amount:               amount,
				Date:                 date,
				Status:               status,
				InstallmentRemaining: remaining,
				CreatedAt:            now,
				UpdatedAt:            now,
			})
			require.NoError(t, err)
			return p
		}
		early := pay(100, day(1), billing.PaymentCompleted, 0)
		late := pay(200, day(20), billing.PaymentInstallment, 300)

		tests := []struct {
			name   string
			filter billing.PaymentFilter
			want   []string
		}{
			{"latest date first", billing.PaymentFilter{UserID: joe.ID}, []string{late.ID, early.ID}},
			{"status", billing.PaymentFilter{Status: billing.PaymentInstallment}, []string{late.ID}},
			{"period", billing.PaymentFilter{Period: billing.Period{From: day(1), To: day(10)}}, []string{early.ID}},
			{"other program", billing.PaymentFilter{ProgramID: "other"}, []string{}},
		}
		for _, tc := range tests {
			t.Run(tc.name, func(t *testing.T) {
				payments, err := repo.QueryPayments(ctx, tc.filter)
				require.NoError(t, err)
				ids := []string{}
				for _, p := range payments {
					ids = append(ids, p.ID)
				}
				assert.Equal(t, tc.want, ids)
			})
		}

		late.Status = billing.PaymentCompleted
		late.InstallmentRemaining = 0
		_, err := repo.UpdatePayment(ctx, late)
		require.NoError(t, err)
		got, err := repo.GetPayment(ctx, late.ID)
		require.NoError(t, err)
		assert.Equal(t, billing.PaymentCompleted, got.Status)
		assert.Equal(t, int64(200), got.Amount)
		assert.True(t, day(20).Equal(got.Date))

		require.NoError(t, repo.DeletePayment(ctx, early.ID))
		assert.Equal(t, billing.ErrPaymentNotFound, repo.DeletePayment(ctx, early.ID))
		_, err = repo.GetPayment(ctx, "nope")
		assert.Equal(t, billing.ErrPaymentNotFound, err)
	})

	t.Run("expenses", func(t *testing.T) {
		ads, err := repo.CreateExpense(ctx, billing.Expense{
			Amount: 50, Date: day(2), Description: "Ads", Category: billing.CategoryMarketing,
			ProgramID: prog.ID, CreatedAt: now, UpdatedAt: now,
		})
		require.NoError(t, err)
		hosting, err := repo.CreateExpense(ctx, billing.Expense{
			Amount: 20, Date: day(3), Description: "Hosting", Category: billing.CategorySoftware,
			CreatedAt: now, UpdatedAt: now,
		})
		require.NoError(t, err)

		expenses, err := repo.QueryExpenses(ctx, billing.ExpenseFilter{})
		require.NoError(t, err)
		if assert.Len(t, expenses, 2) {
			assert.Equal(t, hosting.ID, expenses[0].ID)
			assert.Equal(t, "", expenses[0].ProgramID)
		}

		expenses, err = repo.QueryExpenses(ctx, billing.ExpenseFilter{ProgramID: prog.ID})
		require.NoError(t, err)
		if assert.Len(t, expenses, 1) {
			assert.Equal(t, ads.ID, expenses[0].ID)
		}

		hosting.Amount = 25
		_, err = repo.UpdateExpense(ctx, hosting)
		require.NoError(t, err)
		got, err := repo.GetExpense(ctx, hosting.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(25), got.Amount)

		require.NoError(t, repo.DeleteExpense(ctx, hosting.ID))
		_, err = repo.GetExpense(ctx, hosting.ID)
		assert.Equal(t, billing.ErrExpenseNotFound, err)
	})

	t.Run("program deletion", func(t *testing.T) {
		require.NoError(t, progs.DeletePrograms(ctx, []string{prog.ID}))

		payments, err := repo.QueryPayments(ctx, billing.PaymentFilter{})
		require.NoError(t, err)
		assert.Empty(t, payments)

		expenses, err := repo.QueryExpenses(ctx, billing.ExpenseFilter{Category: billing.CategoryMarketing})
		require.NoError(t, err)
		if assert.Len(t, expenses, 1) {
			assert.Equal(t, "", expenses[0].ProgramID)
		}
	})
}
