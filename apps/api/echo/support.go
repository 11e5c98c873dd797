package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/estetika/academy/core/support"
	"github.com/estetika/academy/core/user"
)

type supportApi struct {
	users    user.Service
	svc      *support.Service
	validate *validator.Validate
}

func registerSupportAPI(g *echo.Group, jwt echo.MiddlewareFunc, users user.Service, svc *support.Service, validate *validator.Validate) {
	api := supportApi{
		users:    users,
		svc:      svc,
		validate: validate,
	}

	tg := g.Group("/tickets", jwt, adminMiddleware())
	tg.GET("", api.query)
	tg.GET("/:id", api.retrieve)
	tg.PUT("/:id/reply", api.reply)
	tg.PUT("/:id/close", api.close)

	mg := g.Group("/me/tickets", jwt, activeUserMiddleware(users))
	mg.GET("", api.myTickets)
	mg.POST("", api.open)
	mg.GET("/:id", api.myTicket)
}

func (api *supportApi) query(ctx echo.Context) error {
	var filter support.Filter
	if err := ctx.Bind(&filter); err != nil {
		return ctx.JSON(http.StatusOK, []support.Ticket{})
	}
	filter.Clean()
	tickets, err := api.svc.Query(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying tickets")
	}
	return ctx.JSON(http.StatusOK, tickets)
}

func (api *supportApi) retrieve(ctx echo.Context) error {
	t, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding ticket")
	}
	return ctx.JSON(http.StatusOK, t)
}

func (api *supportApi) reply(ctx echo.Context) error {
	var data support.ReplyTicket
	if err := bindValid(ctx, &data, api.validate); err != nil {
		return err
	}
	ctxUsr, err := getContextUser(ctx, api.users)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	t, err := api.svc.Reply(ctx.Request().Context(), ctxUsr.ID, ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "replying to ticket")
	}
	return ctx.JSON(http.StatusOK, t)
}

func (api *supportApi) close(ctx echo.Context) error {
	t, err := api.svc.Close(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "closing ticket")
	}
	return ctx.JSON(http.StatusOK, t)
}

// Student side

func (api *supportApi) myTickets(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.users)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	tickets, err := api.svc.Query(ctx.Request().Context(), support.Filter{UserID: ctxUsr.ID})
	if err != nil {
		return errors.Wrap(err, "querying tickets")
	}
	return ctx.JSON(http.StatusOK, tickets)
}

func (api *supportApi) myTicket(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.users)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	t, err := api.svc.GetOwn(ctx.Request().Context(), ctxUsr.ID, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding ticket")
	}
	return ctx.JSON(http.StatusOK, t)
}

func (api *supportApi) open(ctx echo.Context) error {
	var data support.NewTicket
	if err := bindValid(ctx, &data, api.validate); err != nil {
		return err
	}
	ctxUsr, err := getContextUser(ctx, api.users)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	t, err := api.svc.Open(ctx.Request().Context(), ctxUsr.ID, data)
	if err != nil {
		return errors.Wrap(err, "opening ticket")
	}
	return ctx.JSON(http.StatusCreated, t)
}
