package echoapi

import (
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/estetika/academy/core"
	"github.com/estetika/academy/core/billing"
)

const dateLayout = "2006-01-02"

type billingApi struct {
	svc      *billing.Service
	validate *validator.Validate
}

func registerBillingAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *billing.Service, validate *validator.Validate) {
	api := billingApi{
		svc:      svc,
		validate: validate,
	}

	pg := g.Group("/payments", jwt, adminMiddleware())
	pg.GET("", api.queryPayments)
	pg.POST("", api.createPayment)
	pg.GET("/:id", api.retrievePayment)
	pg.PUT("/:id", api.updatePayment)
	pg.DELETE("/:id", api.deletePayment)

	eg := g.Group("/expenses", jwt, adminMiddleware())
	eg.GET("", api.queryExpenses)
	eg.POST("", api.createExpense)
	eg.GET("/:id", api.retrieveExpense)
	eg.PUT("/:id", api.updateExpense)
	eg.DELETE("/:id", api.deleteExpense)

	g.GET("/finance/report", api.report, jwt, adminMiddleware())
}

// bindPeriod reads the from and to query params, as YYYY-MM-DD days. To covers its whole day.
func bindPeriod(ctx echo.Context) (billing.Period, error) {
	var p billing.Period
	if s := ctx.QueryParam("from"); s != "" {
		from, err := time.Parse(dateLayout, s)
		if err != nil {
			return p, core.NewValidationError(nil, core.FieldError{Field: "from", Error: "date must be YYYY-MM-DD"})
		}
		p.From = from
	}
	if s := ctx.QueryParam("to"); s != "" {
		to, err := time.Parse(dateLayout, s)
		if err != nil {
			return p, core.NewValidationError(nil, core.FieldError{Field: "to", Error: "date must be YYYY-MM-DD"})
		}
		p.To = to.Add(24*time.Hour - time.Nanosecond)
	}
	return p, nil
}

// Payments

func (api *billingApi) queryPayments(ctx echo.Context) error {
	var filter billing.PaymentFilter
	if err := ctx.Bind(&filter); err != nil {
		return ctx.JSON(http.StatusOK, []billing.Payment{})
	}
	filter.Clean()
	period, err := bindPeriod(ctx)
	if err != nil {
		return err
	}
	filter.Period = period
	payments, err := api.svc.Payments(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying payments")
	}
	return ctx.JSON(http.StatusOK, payments)
}

func (api *billingApi) createPayment(ctx echo.Context) error {
	var data billing.NewPayment
	if err := bindValid(ctx, &data, api.validate); err != nil {
		return err
	}
	p, err := api.svc.CreatePayment(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating payment")
	}
	return ctx.JSON(http.StatusCreated, p)
}

func (api *billingApi) retrievePayment(ctx echo.Context) error {
	p, err := api.svc.GetPayment(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding payment")
	}
	return ctx.JSON(http.StatusOK, p)
}

func (api *billingApi) updatePayment(ctx echo.Context) error {
	var data billing.UpdatePayment
	if err := bindValid(ctx, &data, api.validate); err != nil {
		return err
	}
	p, err := api.svc.UpdatePayment(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating payment")
	}
	return ctx.JSON(http.StatusOK, p)
}

func (api *billingApi) deletePayment(ctx echo.Context) error {
	if err := api.svc.DeletePayment(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting payment")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Expenses

func (api *billingApi) queryExpenses(ctx echo.Context) error {
	var filter billing.ExpenseFilter
	if err := ctx.Bind(&filter); err != nil {
		return ctx.JSON(http.StatusOK, []billing.Expense{})
	}
	period, err := bindPeriod(ctx)
	if err != nil {
		return err
	}
	filter.Period = period
	expenses, err := api.svc.Expenses(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying expenses")
	}
	return ctx.JSON(http.StatusOK, expenses)
}

func (api *billingApi) createExpense(ctx echo.Context) error {
	var data billing.NewExpense
	if err := bindValid(ctx, &data, api.validate); err != nil {
		return err
	}
	e, err := api.svc.CreateExpense(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating expense")
	}
	return ctx.JSON(http.StatusCreated, e)
}

func (api *billingApi) retrieveExpense(ctx echo.Context) error {
	e, err := api.svc.GetExpense(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding expense")
	}
	return ctx.JSON(http.StatusOK, e)
}

func (api *billingApi) updateExpense(ctx echo.Context) error {
	var data billing.UpdateExpense
	if err := bindValid(ctx, &data, api.validate); err != nil {
		return err
	}
	e, err := api.svc.UpdateExpense(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating expense")
	}
	return ctx.JSON(http.StatusOK, e)
}

func (api *billingApi) deleteExpense(ctx echo.Context) error {
	if err := api.svc.DeleteExpense(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting expense")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *billingApi) report(ctx echo.Context) error {
	period, err := bindPeriod(ctx)
	if err != nil {
		return err
	}
	rep, err := api.svc.Report(ctx.Request().Context(), billing.ReportFilter{
		ProgramID: core.CleanString(ctx.QueryParam("program_id")),
		Period:    period,
	})
	if err != nil {
		return errors.Wrap(err, "building finance report")
	}
	return ctx.JSON(http.StatusOK, rep)
}
