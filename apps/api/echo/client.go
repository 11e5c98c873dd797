package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/estetika/academy/core/client"
	"github.com/estetika/academy/core/user"
)

type clientApi struct {
	users    user.Service
	svc      *client.Service
	validate *validator.Validate
}

func registerClientAPI(g *echo.Group, jwt echo.MiddlewareFunc, users user.Service, svc *client.Service, validate *validator.Validate) {
	api := clientApi{
		users:    users,
		svc:      svc,
		validate: validate,
	}

	g.GET("/users/:id/notes", api.userNotes, jwt, adminMiddleware())
	g.POST("/users/:id/notes", api.addNote, jwt, adminMiddleware())
	g.DELETE("/notes/:id", api.deleteNote, jwt, adminMiddleware())

	g.GET("/me/notes", api.myNotes, jwt, activeUserMiddleware(users))
}

func (api *clientApi) userNotes(ctx echo.Context) error {
	notes, err := api.svc.Notes(ctx.Request().Context(), ctx.Param("id"), true)
	if err != nil {
		return errors.Wrap(err, "querying notes")
	}
	return ctx.JSON(http.StatusOK, notes)
}

func (api *clientApi) addNote(ctx echo.Context) error {
	var data client.NewNote
	if err := bindValid(ctx, &data, api.validate); err != nil {
		return err
	}
	ctxUsr, err := getContextUser(ctx, api.users)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	n, err := api.svc.AddNote(ctx.Request().Context(), ctxUsr.ID, ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "adding note")
	}
	return ctx.JSON(http.StatusCreated, n)
}

func (api *clientApi) deleteNote(ctx echo.Context) error {
	if err := api.svc.DeleteNote(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting note")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// myNotes lists the public notes on the context user's record.
func (api *clientApi) myNotes(ctx echo.Context) error {
	ctxUsr, err := getContextUser(ctx, api.users)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	notes, err := api.svc.Notes(ctx.Request().Context(), ctxUsr.ID, false)
	if err != nil {
		return errors.Wrap(err, "querying notes")
	}
	return ctx.JSON(http.StatusOK, notes)
}
