package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/estetika/academy/core/learning"
	"github.com/estetika/academy/core/program"
	"github.com/estetika/academy/core/user"
)

type learningApi struct {
	users    user.Service
	programs *program.Service
	svc      *learning.Service
	validate *validator.Validate
}

func registerLearningAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	users user.Service,
	programs *program.Service,
	svc *learning.Service,
	validate *validator.Validate,
) {
	api := learningApi{
		users:    users,
		programs: programs,
		svc:      svc,
		validate: validate,
	}

	gg := g.Group("/grants", jwt, adminMiddleware())
	gg.GET("", api.queryGrants)
	gg.POST("", api.grant)
	gg.DELETE("", api.revoke)

	sg := g.Group("/submissions", jwt, adminMiddleware())
	sg.GET("", api.querySubmissions)
	sg.GET("/:id", api.retrieveSubmission)
	sg.PUT("/:id/review", api.review)

	g.GET("/users/:id/progress", api.userProgress, jwt, adminMiddleware())
}

// Grants

func (api *learningApi) queryGrants(ctx echo.Context) error {
	var filter learning.GrantFilter
	if err := ctx.Bind(&filter); err != nil {
		return ctx.JSON(http.StatusOK, []learning.AccessGrant{})
	}
	grants, err := api.svc.Grants(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying access grants")
	}
	return ctx.JSON(http.StatusOK, grants)
}

func (api *learningApi) grant(ctx echo.Context) error {
	var data learning.NewGrant
	if err := bindValid(ctx, &data, api.validate); err != nil {
		return err
	}
	ctxUsr, err := getContextUser(ctx, api.users)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	grant, err := api.svc.Grant(ctx.Request().Context(), ctxUsr.ID, data)
	if err != nil {
		return errors.Wrap(err, "granting access")
	}
	return ctx.JSON(http.StatusCreated, grant)
}

func (api *learningApi) revoke(ctx echo.Context) error {
	var query RevokeRequest
	if err := bindValid(ctx, &query, api.validate); err != nil {
		return err
	}
	if err := api.svc.Revoke(ctx.Request().Context(), query.UserID, query.ProgramID); err != nil {
		return errors.Wrap(err, "revoking access")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Submissions

func (api *learningApi) querySubmissions(ctx echo.Context) error {
	var filter learning.SubmissionFilter
	if err := ctx.Bind(&filter); err != nil {
		return ctx.JSON(http.StatusOK, []learning.Submission{})
	}
	filter.Clean()
	subs, err := api.svc.Submissions(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying submissions")
	}
	return ctx.JSON(http.StatusOK, subs)
}

func (api *learningApi) retrieveSubmission(ctx echo.Context) error {
	sub, err := api.svc.GetSubmission(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding submission")
	}
	return ctx.JSON(http.StatusOK, sub)
}

func (api *learningApi) review(ctx echo.Context) error {
	var data learning.ReviewSubmission
	if err := bindValid(ctx, &data, api.validate); err != nil {
		return err
	}
	sub, err := api.svc.Review(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "reviewing submission")
	}
	return ctx.JSON(http.StatusOK, sub)
}

// userProgress returns the progress of a student on every program they were granted.
func (api *learningApi) userProgress(ctx echo.Context) error {
	usr, err := api.users.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding user")
	}
	grants, err := api.svc.Grants(ctx.Request().Context(), learning.GrantFilter{UserID: usr.ID})
	if err != nil {
		return errors.Wrap(err, "querying access grants")
	}

	seen := make(map[string]struct{}, len(grants))
	res := make([]ProgramProgressResponse, 0, len(grants))
	for _, g := range grants {
		if _, ok := seen[g.ProgramID]; ok {
			continue
		}
		seen[g.ProgramID] = struct{}{}

		prog, err := api.programs.GetByID(ctx.Request().Context(), g.ProgramID)
		if err != nil {
			if errors.Cause(err) == program.ErrNotFound {
				continue
			}
			return errors.Wrap(err, "finding program")
		}
		pct, err := api.svc.ProgramProgress(ctx.Request().Context(), usr.ID, prog)
		if err != nil {
			return errors.Wrap(err, "computing progress")
		}
		res = append(res, ProgramProgressResponse{ProgramID: prog.ID, Title: prog.Title, Progress: pct})
	}
	return ctx.JSON(http.StatusOK, res)
}

type (
	RevokeRequest struct {
		UserID    string `json:"user_id" query:"user_id" validate:"required"`
		ProgramID string `json:"program_id" query:"program_id" validate:"required"`
	}

	ProgramProgressResponse struct {
		ProgramID string `json:"program_id"`
		Title     string `json:"title"`
		Progress  int    `json:"progress"`
	}
)

func (rr *RevokeRequest) Validate(validate *validator.Validate) error {
	return validate.Struct(rr)
}
