package echoapi

import (
	"context"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/estetika/academy/core/learning"
	"github.com/estetika/academy/core/outline"
	"github.com/estetika/academy/core/program"
	"github.com/estetika/academy/core/user"
)

type trackFunc func(ctx context.Context, userID, lessonID string) (learning.Progress, error)

// studentApi serves the programs of the context user, as they see them.
type studentApi struct {
	users    user.Service
	programs *program.Service
	svc      *learning.Service
	validate *validator.Validate
}

func registerStudentAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	users user.Service,
	programs *program.Service,
	svc *learning.Service,
	validate *validator.Validate,
) {
	api := studentApi{
		users:    users,
		programs: programs,
		svc:      svc,
		validate: validate,
	}

	mg := g.Group("/me", jwt, activeUserMiddleware(users))
	mg.GET("/programs", api.programList)
	mg.GET("/programs/:id", api.programDetail)

	lg := mg.Group("/programs/:id/lessons/:lesson")
	lg.GET("", api.lesson)
	lg.POST("/video-watched", api.videoWatched)
	lg.POST("/acknowledge", api.acknowledge)
	lg.GET("/submissions", api.submissions)
	lg.POST("/submissions", api.submit)
}

func (api *studentApi) contextUserID(ctx echo.Context) (string, error) {
	usr, err := getContextUser(ctx, api.users)
	if err != nil {
		return "", errors.Wrap(err, "getting context user")
	}
	return usr.ID, nil
}

// contextLesson returns the :lesson a student may open, provided it belongs to :id.
func (api *studentApi) contextLesson(ctx echo.Context, userID string) (program.Lesson, error) {
	lesson, err := api.svc.StudentLesson(ctx.Request().Context(), userID, ctx.Param("lesson"))
	if err != nil {
		return program.Lesson{}, err
	}
	if lesson.ProgramID != ctx.Param("id") {
		return program.Lesson{}, program.ErrLessonNotFound
	}
	return lesson, nil
}

func (api *studentApi) programList(ctx echo.Context) error {
	userID, err := api.contextUserID(ctx)
	if err != nil {
		return err
	}
	progs, err := api.svc.AccessiblePrograms(ctx.Request().Context(), userID)
	if err != nil {
		return errors.Wrap(err, "listing accessible programs")
	}

	res := make([]StudentProgramSummary, 0, len(progs))
	for _, prog := range progs {
		pct, err := api.svc.ProgramProgress(ctx.Request().Context(), userID, prog)
		if err != nil {
			return errors.Wrap(err, "computing progress")
		}
		res = append(res, StudentProgramSummary{
			ID:          prog.ID,
			Title:       prog.Title,
			Description: prog.Description,
			CoverImage:  prog.CoverImage,
			Progress:    pct,
		})
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *studentApi) programDetail(ctx echo.Context) error {
	userID, err := api.contextUserID(ctx)
	if err != nil {
		return err
	}
	prog, err := api.svc.StudentProgram(ctx.Request().Context(), userID, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding program")
	}

	lessons, err := api.programs.Lessons(ctx.Request().Context(), prog)
	if err != nil {
		return errors.Wrap(err, "listing lessons")
	}
	published := make(map[string]struct{}, len(lessons))
	visible := make([]program.Lesson, 0, len(lessons))
	for _, l := range lessons {
		if l.Published {
			published[l.ID] = struct{}{}
			visible = append(visible, l)
		}
	}

	statuses, err := api.svc.LessonStatuses(ctx.Request().Context(), userID, prog, visible)
	if err != nil {
		return errors.Wrap(err, "computing lesson statuses")
	}
	pct, err := api.svc.ProgramProgress(ctx.Request().Context(), userID, prog)
	if err != nil {
		return errors.Wrap(err, "computing progress")
	}

	return ctx.JSON(http.StatusOK, StudentProgramDetail{
		ID:          prog.ID,
		Title:       prog.Title,
		Description: prog.Description,
		CoverImage:  prog.CoverImage,
		Attachments: prog.Attachments,
		Outline: prog.Outline.Prune(func(ref *outline.LessonRef) bool {
			_, ok := published[ref.LessonID]
			return ok
		}),
		Statuses: statuses,
		Progress: pct,
	})
}

func (api *studentApi) lesson(ctx echo.Context) error {
	userID, err := api.contextUserID(ctx)
	if err != nil {
		return err
	}
	lesson, err := api.contextLesson(ctx, userID)
	if err != nil {
		return errors.Wrap(err, "finding lesson")
	}
	prog, err := api.programs.GetByID(ctx.Request().Context(), lesson.ProgramID)
	if err != nil {
		return errors.Wrap(err, "finding program")
	}
	nav, err := api.programs.Navigation(ctx.Request().Context(), prog, lesson.ID, true)
	if err != nil {
		return errors.Wrap(err, "computing navigation")
	}

	res := StudentLessonDetail{Lesson: lesson, Navigation: nav}
	progress, err := api.svc.Progress(ctx.Request().Context(), learning.ProgressFilter{UserID: userID, LessonIDs: []string{lesson.ID}})
	if err != nil {
		return errors.Wrap(err, "querying progress")
	}
	if len(progress) > 0 {
		res.Progress = &progress[0]
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *studentApi) videoWatched(ctx echo.Context) error {
	return api.trackProgress(ctx, api.svc.MarkVideoWatched)
}

func (api *studentApi) acknowledge(ctx echo.Context) error {
	return api.trackProgress(ctx, api.svc.Acknowledge)
}

func (api *studentApi) trackProgress(ctx echo.Context, track trackFunc) error {
	userID, err := api.contextUserID(ctx)
	if err != nil {
		return err
	}
	lesson, err := api.contextLesson(ctx, userID)
	if err != nil {
		return errors.Wrap(err, "finding lesson")
	}
	p, err := track(ctx.Request().Context(), userID, lesson.ID)
	if err != nil {
		return errors.Wrap(err, "tracking progress")
	}
	return ctx.JSON(http.StatusOK, p)
}

func (api *studentApi) submissions(ctx echo.Context) error {
	userID, err := api.contextUserID(ctx)
	if err != nil {
		return err
	}
	lesson, err := api.contextLesson(ctx, userID)
	if err != nil {
		return errors.Wrap(err, "finding lesson")
	}
	subs, err := api.svc.Submissions(ctx.Request().Context(), learning.SubmissionFilter{UserID: userID, LessonID: lesson.ID})
	if err != nil {
		return errors.Wrap(err, "querying submissions")
	}
	return ctx.JSON(http.StatusOK, subs)
}

func (api *studentApi) submit(ctx echo.Context) error {
	var data learning.NewSubmission
	if err := bindValid(ctx, &data, api.validate); err != nil {
		return err
	}
	userID, err := api.contextUserID(ctx)
	if err != nil {
		return err
	}
	lesson, err := api.contextLesson(ctx, userID)
	if err != nil {
		return errors.Wrap(err, "finding lesson")
	}
	sub, err := api.svc.Submit(ctx.Request().Context(), userID, lesson.ID, data)
	if err != nil {
		return errors.Wrap(err, "submitting homework")
	}
	return ctx.JSON(http.StatusCreated, sub)
}

type (
	StudentProgramSummary struct {
		ID          string `json:"id"`
		Title       string `json:"title"`
		Description string `json:"description"`
		CoverImage  string `json:"cover_image,omitempty"`
		Progress    int    `json:"progress"`
	}

	// StudentProgramDetail is a program without its unpublished lessons.
	StudentProgramDetail struct {
		ID          string                           `json:"id"`
		Title       string                           `json:"title"`
		Description string                           `json:"description"`
		CoverImage  string                           `json:"cover_image,omitempty"`
		Attachments []program.Attachment             `json:"attachments"`
		Outline     outline.Tree                     `json:"outline"`
		Statuses    map[string]learning.LessonStatus `json:"statuses"` // by lesson id
		Progress    int                              `json:"progress"`
	}

	StudentLessonDetail struct {
		Lesson     program.Lesson     `json:"lesson"`
		Navigation program.Navigation `json:"navigation"`
		Progress   *learning.Progress `json:"progress,omitempty"`
	}
)
