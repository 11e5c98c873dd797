package learning

import (
	"context"
	"fmt"
	"math"
	"net/mail"
	"time"

	"github.com/pkg/errors"

	"github.com/estetika/academy/core"
	"github.com/estetika/academy/core/program"
	"github.com/estetika/academy/core/user"
)

var (
	// errors
	ErrGrantNotFound      = errors.New("access grant not found")
	ErrProgressNotFound   = errors.New("progress not found")
	ErrSubmissionNotFound = errors.New("submission not found")
	ErrNoAccess           = errors.New("no access to this program")
	ErrLessonLocked       = errors.New("lesson is not available yet")
	ErrNoPractice         = errors.New("lesson has no practice")
	ErrLessonStopped      = errors.New("lesson is closed for submissions")
	ErrAlreadySubmitted   = errors.New("homework already submitted")
	ErrAlreadyReviewed    = errors.New("submission already reviewed")

	errEndBeforeStart = core.NewValidationError(nil, core.FieldError{Field: "end_date", Error: "end date must be after start date"})

	accessGrantedTemplate      = "access_granted"
	submissionReviewedTemplate = "submission_reviewed"
)

type (
	Repository interface {
		CreateGrant(ctx context.Context, grant AccessGrant, exec ...core.DBExecutor) (AccessGrant, error)
		QueryGrants(ctx context.Context, filter GrantFilter, exec ...core.DBExecutor) ([]AccessGrant, error)
		DeleteGrants(ctx context.Context, ids []string, exec ...core.DBExecutor) error

		GetProgress(ctx context.Context, userID, lessonID string, exec ...core.DBExecutor) (Progress, error)
		QueryProgress(ctx context.Context, filter ProgressFilter, exec ...core.DBExecutor) ([]Progress, error)
		// SaveProgress inserts p, or updates the progress of the same user and lesson.
		SaveProgress(ctx context.Context, p Progress, exec ...core.DBExecutor) (Progress, error)

		CreateSubmission(ctx context.Context, sub Submission, exec ...core.DBExecutor) (Submission, error)
		GetSubmission(ctx context.Context, id string, exec ...core.DBExecutor) (Submission, error)
		// QuerySubmissions returns the matching submissions, newest first.
		QuerySubmissions(ctx context.Context, filter SubmissionFilter, exec ...core.DBExecutor) ([]Submission, error)
		UpdateSubmission(ctx context.Context, sub Submission, exec ...core.DBExecutor) (Submission, error)
	}

	// Programs gives read access to the program aggregates and their lesson store.
	Programs interface {
		GetByID(ctx context.Context, id string) (program.Program, error)
		GetLesson(ctx context.Context, id string) (program.Lesson, error)
	}

	Users interface {
		GetByID(ctx context.Context, id string) (user.User, error)
	}

	Service struct {
		db       core.Transactor
		repo     Repository
		programs Programs
		users    Users
		mailSvc  core.EmailService
		logger   core.Logger
		conf     *core.Config
	}
)

var NowFunc = time.Now // mockable

func now() time.Time { return NowFunc().UTC() }

func NewService(
	db core.Transactor,
	repo Repository,
	programs Programs,
	users Users,
	mailSvc core.EmailService,
	logger core.Logger,
	conf *core.Config,
) *Service {
	return &Service{
		db:       db,
		repo:     repo,
		programs: programs,
		users:    users,
		mailSvc:  mailSvc,
		logger:   logger,
		conf:     conf,
	}
}

// Access

// Grant opens a program to a student and emails them about it.
func (svc *Service) Grant(ctx context.Context, grantedBy string, ng NewGrant) (AccessGrant, error) {
	usr, err := svc.users.GetByID(ctx, ng.UserID)
	if err != nil {
		return AccessGrant{}, errors.Wrap(err, "finding student")
	}
	prog, err := svc.programs.GetByID(ctx, ng.ProgramID)
	if err != nil {
		return AccessGrant{}, errors.Wrap(err, "finding program")
	}

	tstamp := now()
	grant := AccessGrant{
		UserID:    usr.ID,
		ProgramID: prog.ID,
		StartDate: tstamp,
		EndDate:   utcPtr(ng.EndDate),
		Reason:    ng.Reason,
		GrantedBy: grantedBy,
		CreatedAt: tstamp,
	}
	if ng.StartDate != nil {
		grant.StartDate = ng.StartDate.UTC()
	}
	if grant.EndDate != nil && !grant.EndDate.After(grant.StartDate) {
		return AccessGrant{}, errEndBeforeStart
	}

	if grant, err = svc.repo.CreateGrant(ctx, grant); err != nil {
		return AccessGrant{}, errors.Wrap(err, "creating access grant")
	}
	svc.logger.Info(fmt.Sprintf("program %s opened to user %s", prog.ID, usr.ID))
	svc.sendAccessGrantedMail(usr, prog, grant)
	return grant, nil
}

func (svc *Service) sendAccessGrantedMail(usr user.User, prog program.Program, grant AccessGrant) {
	var endDate string
	if grant.EndDate != nil {
		endDate = grant.EndDate.Format("2006-01-02")
	}
	msg := &core.EmailMessage{
		To:           []mail.Address{{Name: usr.Name, Address: usr.Email}},
		Subject:      fmt.Sprintf("Access to %s", prog.Title),
		TemplateName: accessGrantedTemplate,
		TemplateData: map[string]string{
			"ProgramTitle": prog.Title,
			"ProgramID":    prog.ID,
			"EndDate":      endDate,
		},
	}
	msg.SetFrontendBaseURL(svc.conf.FrontendBaseURL)
	svc.mailSvc.SendMessages(msg)
}

// Revoke closes a program to a student by removing all of their grants to it.
func (svc *Service) Revoke(ctx context.Context, userID, programID string) error {
	err := svc.db.WithinTx(ctx, func(exec core.DBExecutor) error {
		grants, err := svc.repo.QueryGrants(ctx, GrantFilter{UserID: userID, ProgramID: programID}, exec)
		if err != nil {
			return err
		}
		if len(grants) == 0 {
			return ErrGrantNotFound
		}
		ids := make([]string, 0, len(grants))
		for _, g := range grants {
			ids = append(ids, g.ID)
		}
		return svc.repo.DeleteGrants(ctx, ids, exec)
	})
	if err != nil {
		return errors.Wrap(err, "revoking access")
	}
	svc.logger.Info(fmt.Sprintf("program %s closed to user %s", programID, userID))
	return nil
}

func (svc *Service) Grants(ctx context.Context, filter GrantFilter) ([]AccessGrant, error) {
	return svc.repo.QueryGrants(ctx, filter)
}

// HasAccess reports whether userID holds a grant to programID active now.
func (svc *Service) HasAccess(ctx context.Context, userID, programID string) (bool, error) {
	grants, err := svc.repo.QueryGrants(ctx, GrantFilter{UserID: userID, ProgramID: programID})
	if err != nil {
		return false, errors.Wrap(err, "querying access grants")
	}
	t := now()
	for _, g := range grants {
		if g.IsActive(t) {
			return true, nil
		}
	}
	return false, nil
}

// AccessiblePrograms returns the published programs userID has an active grant to.
func (svc *Service) AccessiblePrograms(ctx context.Context, userID string) ([]program.Program, error) {
	grants, err := svc.repo.QueryGrants(ctx, GrantFilter{UserID: userID})
	if err != nil {
		return nil, errors.Wrap(err, "querying access grants")
	}
	t := now()
	seen := make(map[string]struct{}, len(grants))
	progs := make([]program.Program, 0, len(grants))
	for _, g := range grants {
		if _, ok := seen[g.ProgramID]; ok || !g.IsActive(t) {
			continue
		}
		seen[g.ProgramID] = struct{}{}

		prog, err := svc.programs.GetByID(ctx, g.ProgramID)
		if err != nil {
			if errors.Cause(err) == program.ErrNotFound {
				continue
			}
			return nil, errors.Wrap(err, "finding program")
		}
		if prog.IsPublished() {
			progs = append(progs, prog)
		}
	}
	return progs, nil
}

// StudentProgram returns a published program userID has access to.
func (svc *Service) StudentProgram(ctx context.Context, userID, programID string) (program.Program, error) {
	prog, err := svc.programs.GetByID(ctx, programID)
	if err != nil {
		return program.Program{}, err
	}
	if !prog.IsPublished() {
		return program.Program{}, program.ErrNotFound
	}
	ok, err := svc.HasAccess(ctx, userID, programID)
	if err != nil {
		return program.Program{}, err
	}
	if !ok {
		return program.Program{}, ErrNoAccess
	}
	return prog, nil
}

// StudentLesson returns a lesson userID may open: published, in a program they have
// access to and past its access start.
func (svc *Service) StudentLesson(ctx context.Context, userID, lessonID string) (program.Lesson, error) {
	lesson, err := svc.programs.GetLesson(ctx, lessonID)
	if err != nil {
		return program.Lesson{}, err
	}
	if !lesson.Published {
		return program.Lesson{}, program.ErrLessonNotFound
	}
	if _, err = svc.StudentProgram(ctx, userID, lesson.ProgramID); err != nil {
		return program.Lesson{}, err
	}
	if lesson.AccessStart != nil && lesson.AccessStart.After(now()) {
		return program.Lesson{}, ErrLessonLocked
	}
	return lesson, nil
}

// Progress

func (svc *Service) Progress(ctx context.Context, filter ProgressFilter) ([]Progress, error) {
	return svc.repo.QueryProgress(ctx, filter)
}

// updateProgress applies fn to the progress of userID on lesson, starting from a blank
// progress when there is none yet, and saves it.
func (svc *Service) updateProgress(ctx context.Context, userID string, lesson program.Lesson, fn func(p *Progress), exec core.DBExecutor) (Progress, error) {
	p, err := svc.repo.GetProgress(ctx, userID, lesson.ID, exec)
	if err != nil {
		if errors.Cause(err) != ErrProgressNotFound {
			return Progress{}, err
		}
		p = Progress{UserID: userID, ProgramID: lesson.ProgramID, LessonID: lesson.ID}
	}
	fn(&p)
	p.UpdatedAt = now()
	return svc.repo.SaveProgress(ctx, p, exec)
}

// MarkVideoWatched completes a lesson without practice. A lesson with practice
// stays in progress until its homework is approved.
func (svc *Service) MarkVideoWatched(ctx context.Context, userID, lessonID string) (Progress, error) {
	lesson, err := svc.StudentLesson(ctx, userID, lessonID)
	if err != nil {
		return Progress{}, err
	}
	var p Progress
	err = svc.db.WithinTx(ctx, func(exec core.DBExecutor) error {
		p, err = svc.updateProgress(ctx, userID, lesson, func(p *Progress) {
			p.VideoWatched = true
			if lesson.HasPractice() {
				p.raise(percentVideoWatched)
			} else {
				p.raise(percentCompleted)
			}
		}, exec)
		return err
	})
	if err != nil {
		return Progress{}, errors.Wrap(err, "marking video watched")
	}
	return p, nil
}

// Acknowledge completes a lesson the student has read through.
func (svc *Service) Acknowledge(ctx context.Context, userID, lessonID string) (Progress, error) {
	lesson, err := svc.StudentLesson(ctx, userID, lessonID)
	if err != nil {
		return Progress{}, err
	}
	var p Progress
	err = svc.db.WithinTx(ctx, func(exec core.DBExecutor) error {
		p, err = svc.updateProgress(ctx, userID, lesson, func(p *Progress) {
			p.Acknowledged = true
			p.raise(percentCompleted)
		}, exec)
		return err
	})
	if err != nil {
		return Progress{}, errors.Wrap(err, "acknowledging lesson")
	}
	return p, nil
}

// ProgramProgress returns the share of the outline lessons userID completed, in percent.
func (svc *Service) ProgramProgress(ctx context.Context, userID string, prog program.Program) (int, error) {
	ids := prog.Outline.LessonIDs()
	if len(ids) == 0 {
		return 0, nil
	}
	progress, err := svc.repo.QueryProgress(ctx, ProgressFilter{UserID: userID, ProgramID: prog.ID, LessonIDs: ids})
	if err != nil {
		return 0, errors.Wrap(err, "querying progress")
	}
	completed := make(map[string]struct{}, len(progress))
	for _, p := range progress {
		if p.IsCompleted() {
			completed[p.LessonID] = struct{}{}
		}
	}
	var n int
	for _, id := range ids {
		if _, ok := completed[id]; ok {
			n++
		}
	}
	return int(math.Round(float64(n) / float64(len(ids)) * 100)), nil
}

// LessonStatuses returns the status of each of lessons for userID, keyed by lesson id.
func (svc *Service) LessonStatuses(ctx context.Context, userID string, prog program.Program, lessons []program.Lesson) (map[string]LessonStatus, error) {
	statuses := make(map[string]LessonStatus, len(lessons))
	ok, err := svc.HasAccess(ctx, userID, prog.ID)
	if err != nil {
		return nil, err
	}
	if !ok {
		for _, l := range lessons {
			statuses[l.ID] = LessonLocked
		}
		return statuses, nil
	}

	progress, err := svc.repo.QueryProgress(ctx, ProgressFilter{UserID: userID, ProgramID: prog.ID})
	if err != nil {
		return nil, errors.Wrap(err, "querying progress")
	}
	percents := make(map[string]int, len(progress))
	for _, p := range progress {
		percents[p.LessonID] = p.Percent
	}

	t := now()
	for _, l := range lessons {
		switch pct := percents[l.ID]; {
		case l.AccessStart != nil && l.AccessStart.After(t):
			statuses[l.ID] = LessonScheduled
		case pct >= percentCompleted:
			statuses[l.ID] = LessonCompleted
		case pct > 0:
			statuses[l.ID] = LessonInProgress
		default:
			statuses[l.ID] = LessonAvailable
		}
	}
	return statuses, nil
}

// Submissions

// Submit hands in the homework of a lesson. A student may submit again only after
// their previous submission was rejected.
func (svc *Service) Submit(ctx context.Context, userID, lessonID string, ns NewSubmission) (Submission, error) {
	lesson, err := svc.StudentLesson(ctx, userID, lessonID)
	if err != nil {
		return Submission{}, err
	}
	if !lesson.HasPractice() {
		return Submission{}, ErrNoPractice
	}
	tstamp := now()
	if lesson.IsStopped(tstamp) {
		return Submission{}, ErrLessonStopped
	}

	var sub Submission
	err = svc.db.WithinTx(ctx, func(exec core.DBExecutor) error {
		prev, err := svc.repo.QuerySubmissions(ctx, SubmissionFilter{UserID: userID, LessonID: lessonID}, exec)
		if err != nil {
			return err
		}
		for _, s := range prev {
			if s.IsOpen() {
				return ErrAlreadySubmitted
			}
		}

		sub, err = svc.repo.CreateSubmission(ctx, Submission{
			UserID:    userID,
			ProgramID: lesson.ProgramID,
			LessonID:  lesson.ID,
			Content:   ns.Content,
			FileURL:   ns.FileURL,
			Status:    SubmissionSubmitted,
			CreatedAt: tstamp,
		}, exec)
		if err != nil {
			return err
		}
		_, err = svc.updateProgress(ctx, userID, lesson, func(p *Progress) {
			p.HomeworkSubmitted = true
			p.raise(percentHomeworkSubmitted)
		}, exec)
		return err
	})
	if err != nil {
		return Submission{}, errors.Wrap(err, "submitting homework")
	}
	svc.logger.Info(fmt.Sprintf("lesson %s: homework %s submitted by user %s", lessonID, sub.ID, userID))
	return sub, nil
}

func (svc *Service) GetSubmission(ctx context.Context, id string) (Submission, error) {
	return svc.repo.GetSubmission(ctx, id)
}

func (svc *Service) Submissions(ctx context.Context, filter SubmissionFilter) ([]Submission, error) {
	return svc.repo.QuerySubmissions(ctx, filter)
}

// Review approves or rejects a pending submission and emails the student.
// An approval completes the lesson. A rejection lets the student submit again.
func (svc *Service) Review(ctx context.Context, id string, rs ReviewSubmission) (Submission, error) {
	sub, err := svc.repo.GetSubmission(ctx, id)
	if err != nil {
		return Submission{}, err
	}
	lesson, err := svc.programs.GetLesson(ctx, sub.LessonID)
	if err != nil {
		return Submission{}, errors.Wrap(err, "finding lesson")
	}

	err = svc.db.WithinTx(ctx, func(exec core.DBExecutor) error {
		var err error
		if sub, err = svc.repo.GetSubmission(ctx, id, exec); err != nil {
			return err
		}
		if sub.Status != SubmissionSubmitted {
			return ErrAlreadyReviewed
		}

		tstamp := now()
		sub.Status = rs.Status
		sub.AdminReply = rs.AdminReply
		sub.ReviewedAt = &tstamp
		if sub, err = svc.repo.UpdateSubmission(ctx, sub, exec); err != nil {
			return err
		}

		_, err = svc.updateProgress(ctx, sub.UserID, lesson, func(p *Progress) {
			if sub.Status == SubmissionApproved {
				p.HomeworkApproved = true
				p.raise(percentCompleted)
			} else {
				p.HomeworkSubmitted = false
			}
		}, exec)
		return err
	})
	if err != nil {
		return Submission{}, errors.Wrap(err, "reviewing submission")
	}
	svc.logger.Info(fmt.Sprintf("submission %s %s", sub.ID, sub.Status))

	if usr, err := svc.users.GetByID(ctx, sub.UserID); err == nil {
		svc.sendSubmissionReviewedMail(usr, lesson, sub)
	} else {
		svc.logger.Warn(fmt.Sprintf("submission %s: student not found, no email sent", sub.ID), err)
	}
	return sub, nil
}

func (svc *Service) sendSubmissionReviewedMail(usr user.User, lesson program.Lesson, sub Submission) {
	msg := &core.EmailMessage{
		To:           []mail.Address{{Name: usr.Name, Address: usr.Email}},
		Subject:      fmt.Sprintf("Your homework for %s was %s", lesson.Title, sub.Status),
		TemplateName: submissionReviewedTemplate,
		TemplateData: map[string]string{
			"LessonTitle": lesson.Title,
			"Status":      string(sub.Status),
			"AdminReply":  sub.AdminReply,
			"ProgramID":   sub.ProgramID,
			"LessonID":    sub.LessonID,
		},
	}
	msg.SetFrontendBaseURL(svc.conf.FrontendBaseURL)
	svc.mailSvc.SendMessages(msg)
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
