package echoapi

import (
	"context"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/estetika/academy/core/outline"
	"github.com/estetika/academy/core/program"
)

type addNodeFunc func(ctx context.Context, programID string, nn program.NewNode) (program.Program, outline.Node, error)

type programApi struct {
	svc      *program.Service
	validate *validator.Validate
}

func registerProgramAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *program.Service, validate *validator.Validate) {
	api := programApi{
		svc:      svc,
		validate: validate,
	}

	pg := g.Group("/programs", jwt, adminMiddleware())
	pg.GET("", api.query)
	pg.POST("", api.create)
	pg.GET("/:id", api.retrieve)
	pg.PUT("/:id", api.update)
	pg.DELETE("/:id", api.destroy)
	pg.POST("/:id/clone", api.clone)
	pg.GET("/:id/lessons", api.lessons)
	pg.POST("/:id/attachments", api.addAttachment)
	pg.DELETE("/:id/attachments/:attachment", api.removeAttachment)

	// outline
	og := pg.Group("/:id/outline")
	og.POST("/sections", api.addSection)
	og.POST("/subsections", api.addSubsection)
	og.POST("/lessons", api.addLesson)
	og.PUT("/:node/move", api.moveNode)
	og.PUT("/:node/title", api.renameNode)
	og.DELETE("/:node", api.deleteNode)

	lg := g.Group("/lessons", jwt, adminMiddleware())
	lg.GET("/:id", api.retrieveLesson)
	lg.PUT("/:id", api.updateLesson)
	lg.GET("/:id/navigation", api.lessonNavigation)
	lg.POST("/:id/attachments", api.addLessonAttachment)
	lg.DELETE("/:id/attachments/:attachment", api.removeLessonAttachment)
}

// Programs

func (api *programApi) query(ctx echo.Context) error {
	filter := new(program.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []program.Program{})
	}
	filter.Clean()
	ordering := new(Ordering)
	ordering.Bind(ctx)

	progs, err := api.svc.Query(ctx.Request().Context(), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying programs")
	}
	if progs == nil {
		progs = []program.Program{}
	}
	return ctx.JSON(http.StatusOK, progs)
}

func (api *programApi) create(ctx echo.Context) error {
	var data program.NewProgram
	if err := bindValid(ctx, &data, api.validate); err != nil {
		return err
	}
	prog, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating program")
	}
	return ctx.JSON(http.StatusCreated, prog)
}

func (api *programApi) retrieve(ctx echo.Context) error {
	prog, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding program")
	}
	return ctx.JSON(http.StatusOK, prog)
}

func (api *programApi) update(ctx echo.Context) error {
	var data program.UpdateProgram
	if err := bindValid(ctx, &data, api.validate); err != nil {
		return err
	}
	prog, err := api.svc.Update(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating program")
	}
	return ctx.JSON(http.StatusOK, prog)
}

func (api *programApi) destroy(ctx echo.Context) error {
	if err := api.svc.Delete(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting program")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *programApi) clone(ctx echo.Context) error {
	prog, err := api.svc.Clone(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "cloning program")
	}
	return ctx.JSON(http.StatusCreated, prog)
}

func (api *programApi) lessons(ctx echo.Context) error {
	prog, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding program")
	}
	lessons, err := api.svc.Lessons(ctx.Request().Context(), prog)
	if err != nil {
		return errors.Wrap(err, "listing lessons")
	}
	return ctx.JSON(http.StatusOK, lessons)
}

func (api *programApi) addAttachment(ctx echo.Context) error {
	var data program.NewAttachment
	if err := bindValid(ctx, &data, api.validate); err != nil {
		return err
	}
	prog, err := api.svc.AddProgramAttachment(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "adding attachment")
	}
	return ctx.JSON(http.StatusCreated, prog)
}

func (api *programApi) removeAttachment(ctx echo.Context) error {
	prog, err := api.svc.RemoveProgramAttachment(ctx.Request().Context(), ctx.Param("id"), ctx.Param("attachment"))
	if err != nil {
		return errors.Wrap(err, "removing attachment")
	}
	return ctx.JSON(http.StatusOK, prog)
}

// Outline

func (api *programApi) addSection(ctx echo.Context) error {
	return api.addContainer(ctx, api.svc.AddSection)
}

func (api *programApi) addSubsection(ctx echo.Context) error {
	return api.addContainer(ctx, api.svc.AddSubsection)
}

func (api *programApi) addContainer(ctx echo.Context, add addNodeFunc) error {
	var data program.NewNode
	if err := bindValid(ctx, &data, api.validate); err != nil {
		return err
	}
	prog, node, err := add(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "adding outline node")
	}
	return ctx.JSON(http.StatusCreated, OutlineNodeResponse{Program: prog, NodeID: node.Head().ID})
}

func (api *programApi) addLesson(ctx echo.Context) error {
	var data program.NewLesson
	if err := bindValid(ctx, &data, api.validate); err != nil {
		return err
	}
	prog, lesson, err := api.svc.AddLesson(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "adding lesson")
	}
	return ctx.JSON(http.StatusCreated, LessonCreatedResponse{Program: prog, Lesson: lesson})
}

func (api *programApi) moveNode(ctx echo.Context) error {
	var data program.MoveNode
	if err := bindValid(ctx, &data, api.validate); err != nil {
		return err
	}
	prog, err := api.svc.MoveNode(ctx.Request().Context(), ctx.Param("id"), ctx.Param("node"), data)
	if err != nil {
		return errors.Wrap(err, "moving outline node")
	}
	return ctx.JSON(http.StatusOK, prog)
}

func (api *programApi) renameNode(ctx echo.Context) error {
	var data program.RenameNode
	if err := bindValid(ctx, &data, api.validate); err != nil {
		return err
	}
	prog, err := api.svc.RenameNode(ctx.Request().Context(), ctx.Param("id"), ctx.Param("node"), data.Title)
	if err != nil {
		return errors.Wrap(err, "renaming outline node")
	}
	return ctx.JSON(http.StatusOK, prog)
}

func (api *programApi) deleteNode(ctx echo.Context) error {
	prog, deleted, err := api.svc.DeleteNode(ctx.Request().Context(), ctx.Param("id"), ctx.Param("node"))
	if err != nil {
		return errors.Wrap(err, "deleting outline node")
	}
	return ctx.JSON(http.StatusOK, NodeDeletedResponse{Program: prog, DeletedLessonIDs: deleted})
}

// Lessons

func (api *programApi) retrieveLesson(ctx echo.Context) error {
	lesson, err := api.svc.GetLesson(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding lesson")
	}
	return ctx.JSON(http.StatusOK, lesson)
}

func (api *programApi) updateLesson(ctx echo.Context) error {
	var data program.UpdateLesson
	if err := bindValid(ctx, &data, api.validate); err != nil {
		return err
	}
	lesson, err := api.svc.UpdateLesson(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating lesson")
	}
	return ctx.JSON(http.StatusOK, lesson)
}

func (api *programApi) lessonNavigation(ctx echo.Context) error {
	lesson, err := api.svc.GetLesson(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding lesson")
	}
	prog, err := api.svc.GetByID(ctx.Request().Context(), lesson.ProgramID)
	if err != nil {
		return errors.Wrap(err, "finding program")
	}
	nav, err := api.svc.Navigation(ctx.Request().Context(), prog, lesson.ID, false)
	if err != nil {
		return errors.Wrap(err, "computing navigation")
	}
	return ctx.JSON(http.StatusOK, nav)
}

func (api *programApi) addLessonAttachment(ctx echo.Context) error {
	var data program.NewAttachment
	if err := bindValid(ctx, &data, api.validate); err != nil {
		return err
	}
	lesson, err := api.svc.AddLessonAttachment(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "adding lesson attachment")
	}
	return ctx.JSON(http.StatusCreated, lesson)
}

func (api *programApi) removeLessonAttachment(ctx echo.Context) error {
	lesson, err := api.svc.RemoveLessonAttachment(ctx.Request().Context(), ctx.Param("id"), ctx.Param("attachment"))
	if err != nil {
		return errors.Wrap(err, "removing lesson attachment")
	}
	return ctx.JSON(http.StatusOK, lesson)
}

type (
	OutlineNodeResponse struct {
		Program program.Program `json:"program"`
		NodeID  string          `json:"node_id"`
	}

	LessonCreatedResponse struct {
		Program program.Program `json:"program"`
		Lesson  program.Lesson  `json:"lesson"`
	}

	NodeDeletedResponse struct {
		Program          program.Program `json:"program"`
		DeletedLessonIDs []string        `json:"deleted_lesson_ids"`
	}
)
