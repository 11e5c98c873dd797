package sqlxrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/estetika/academy/core"
	"github.com/estetika/academy/core/learning"
)

const (
	grantColumns    = "id, user_id, program_id, start_date, end_date, reason, granted_by, created_at"
	progressColumns = "id, user_id, program_id, lesson_id, video_watched, acknowledged, homework_submitted, " +
		"homework_approved, percent, updated_at"
	submissionColumns = "id, user_id, program_id, lesson_id, content, file_url, status, admin_reply, created_at, reviewed_at"
)

type (
	grantRow struct {
		ID        string      `db:"id"`
		UserID    string      `db:"user_id"`
		ProgramID string      `db:"program_id"`
		StartDate time.Time   `db:"start_date"`
		EndDate   null.Time   `db:"end_date"`
		Reason    string      `db:"reason"`
		GrantedBy null.String `db:"granted_by"`
		CreatedAt time.Time   `db:"created_at"`
	}

	progressRow struct {
		ID                string    `db:"id"`
		UserID            string    `db:"user_id"`
		ProgramID         string    `db:"program_id"`
		LessonID          string    `db:"lesson_id"`
		VideoWatched      bool      `db:"video_watched"`
		Acknowledged      bool      `db:"acknowledged"`
		HomeworkSubmitted bool      `db:"homework_submitted"`
		HomeworkApproved  bool      `db:"homework_approved"`
		Percent           int       `db:"percent"`
		UpdatedAt         time.Time `db:"updated_at"`
	}

	submissionRow struct {
		ID         string      `db:"id"`
		UserID     string      `db:"user_id"`
		ProgramID  string      `db:"program_id"`
		LessonID   string      `db:"lesson_id"`
		Content    string      `db:"content"`
		FileURL    null.String `db:"file_url"`
		Status     string      `db:"status"`
		AdminReply null.String `db:"admin_reply"`
		CreatedAt  time.Time   `db:"created_at"`
		ReviewedAt null.Time   `db:"reviewed_at"`
	}
)

func timePtr(t null.Time) *time.Time {
	if !t.Valid {
		return nil
	}
	utc := t.Time.UTC()
	return &utc
}

func (row grantRow) toModel() learning.AccessGrant {
	return learning.AccessGrant{
		ID:        row.ID,
		UserID:    row.UserID,
		ProgramID: row.ProgramID,
		StartDate: row.StartDate.UTC(),
		EndDate:   timePtr(row.EndDate),
		Reason:    row.Reason,
		GrantedBy: row.GrantedBy.String,
		CreatedAt: row.CreatedAt.UTC(),
	}
}

func (row progressRow) toModel() learning.Progress {
	return learning.Progress{
		ID:                row.ID,
		UserID:            row.UserID,
		ProgramID:         row.ProgramID,
		LessonID:          row.LessonID,
		VideoWatched:      row.VideoWatched,
		Acknowledged:      row.Acknowledged,
		HomeworkSubmitted: row.HomeworkSubmitted,
		HomeworkApproved:  row.HomeworkApproved,
		Percent:           row.Percent,
		UpdatedAt:         row.UpdatedAt.UTC(),
	}
}

func (row submissionRow) toModel() learning.Submission {
	return learning.Submission{
		ID:         row.ID,
		UserID:     row.UserID,
		ProgramID:  row.ProgramID,
		LessonID:   row.LessonID,
		Content:    row.Content,
		FileURL:    row.FileURL.String,
		Status:     learning.SubmissionStatus(row.Status),
		AdminReply: row.AdminReply.String,
		CreatedAt:  row.CreatedAt.UTC(),
		ReviewedAt: timePtr(row.ReviewedAt),
	}
}

type learningRepository struct {
	repository
}

var _ learning.Repository = (*learningRepository)(nil) // interface compliance check

func NewLearningRepository(db *sqlx.DB) learning.Repository {
	return &learningRepository{repository{db: db}}
}

// Access grants

func (repo learningRepository) CreateGrant(ctx context.Context, grant learning.AccessGrant, exec ...core.DBExecutor) (learning.AccessGrant, error) {
	grant.ID = uuid.New().String()
	grant.StartDate = grant.StartDate.UTC()
	grant.CreatedAt = grant.CreatedAt.UTC()
	_, err := repo.exec(ctx, repo.getExec(exec),
		"INSERT INTO access_grants ("+grantColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
		grant.ID, grant.UserID, grant.ProgramID, grant.StartDate, nullTime(grant.EndDate), grant.Reason,
		nullString(grant.GrantedBy), grant.CreatedAt)
	if err != nil {
		return learning.AccessGrant{}, errors.Wrap(err, "inserting access grant")
	}
	if grant.EndDate != nil {
		end := grant.EndDate.UTC()
		grant.EndDate = &end
	}
	return grant, nil
}

func (repo learningRepository) QueryGrants(ctx context.Context, filter learning.GrantFilter, exec ...core.DBExecutor) ([]learning.AccessGrant, error) {
	w := new(where)
	if filter.UserID != "" {
		w.add("user_id = ?", filter.UserID)
	}
	if filter.ProgramID != "" {
		w.add("program_id = ?", filter.ProgramID)
	}

	var rows []grantRow
	query := "SELECT " + grantColumns + " FROM access_grants" + w.String() + " ORDER BY created_at ASC"
	if err := repo.selectAll(ctx, repo.getExec(exec), &rows, query, w.args...); err != nil {
		return nil, errors.Wrap(err, "querying access grants")
	}
	grants := make([]learning.AccessGrant, 0, len(rows))
	for _, row := range rows {
		grants = append(grants, row.toModel())
	}
	return grants, nil
}

func (repo learningRepository) DeleteGrants(ctx context.Context, ids []string, exec ...core.DBExecutor) error {
	return errors.Wrap(repo.deleteIn(ctx, repo.getExec(exec), "access_grants", ids), "deleting access grants")
}

// Progress

func (repo learningRepository) GetProgress(ctx context.Context, userID, lessonID string, exec ...core.DBExecutor) (learning.Progress, error) {
	found, err := repo.QueryProgress(ctx, learning.ProgressFilter{UserID: userID, LessonIDs: []string{lessonID}}, exec...)
	if err != nil {
		return learning.Progress{}, err
	}
	if err = trapNoRows(len(found), learning.ErrProgressNotFound); err != nil {
		return learning.Progress{}, err
	}
	return found[0], nil
}

func (repo learningRepository) QueryProgress(ctx context.Context, filter learning.ProgressFilter, exec ...core.DBExecutor) ([]learning.Progress, error) {
	w := new(where)
	if filter.UserID != "" {
		w.add("user_id = ?", filter.UserID)
	}
	if filter.ProgramID != "" {
		w.add("program_id = ?", filter.ProgramID)
	}
	if len(filter.LessonIDs) > 0 {
		if err := w.addIn("lesson_id", filter.LessonIDs); err != nil {
			return nil, errors.Wrap(err, "querying progress")
		}
	}

	var rows []progressRow
	query := "SELECT " + progressColumns + " FROM progress" + w.String() + " ORDER BY updated_at ASC"
	if err := repo.selectAll(ctx, repo.getExec(exec), &rows, query, w.args...); err != nil {
		return nil, errors.Wrap(err, "querying progress")
	}
	progress := make([]learning.Progress, 0, len(rows))
	for _, row := range rows {
		progress = append(progress, row.toModel())
	}
	return progress, nil
}

func (repo learningRepository) SaveProgress(ctx context.Context, p learning.Progress, exec ...core.DBExecutor) (learning.Progress, error) {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	_, err := repo.exec(ctx, repo.getExec(exec),
		"INSERT INTO progress ("+progressColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?) "+
			"ON CONFLICT (user_id, lesson_id) DO UPDATE SET video_watched = EXCLUDED.video_watched, "+
			"acknowledged = EXCLUDED.acknowledged, homework_submitted = EXCLUDED.homework_submitted, "+
			"homework_approved = EXCLUDED.homework_approved, percent = EXCLUDED.percent, updated_at = EXCLUDED.updated_at",
		p.ID, p.UserID, p.ProgramID, p.LessonID, p.VideoWatched, p.Acknowledged, p.HomeworkSubmitted,
		p.HomeworkApproved, p.Percent, p.UpdatedAt.UTC())
	if err != nil {
		return learning.Progress{}, errors.Wrap(err, "saving progress")
	}
	// the stored row keeps its id on conflict
	return repo.GetProgress(ctx, p.UserID, p.LessonID, exec...)
}

// Submissions

func (repo learningRepository) querySubmissions(ctx context.Context, exec core.DBExecutor, query string, args ...interface{}) ([]learning.Submission, error) {
	var rows []submissionRow
	if err := repo.selectAll(ctx, exec, &rows, query, args...); err != nil {
		return nil, err
	}
	subs := make([]learning.Submission, 0, len(rows))
	for _, row := range rows {
		subs = append(subs, row.toModel())
	}
	return subs, nil
}

func (repo learningRepository) CreateSubmission(ctx context.Context, sub learning.Submission, exec ...core.DBExecutor) (learning.Submission, error) {
	sub.ID = uuid.New().String()
	sub.CreatedAt = sub.CreatedAt.UTC()
	_, err := repo.exec(ctx, repo.getExec(exec),
		"INSERT INTO submissions ("+submissionColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		sub.ID, sub.UserID, sub.ProgramID, sub.LessonID, sub.Content, nullString(sub.FileURL), string(sub.Status),
		nullString(sub.AdminReply), sub.CreatedAt, nullTime(sub.ReviewedAt))
	if err != nil {
		return learning.Submission{}, errors.Wrap(err, "inserting submission")
	}
	return sub, nil
}

func (repo learningRepository) GetSubmission(ctx context.Context, id string, exec ...core.DBExecutor) (learning.Submission, error) {
	if _, err := uuid.Parse(id); err != nil {
		return learning.Submission{}, learning.ErrSubmissionNotFound
	}
	subs, err := repo.querySubmissions(ctx, repo.getExec(exec), "SELECT "+submissionColumns+" FROM submissions WHERE id = ?", id)
	if err != nil {
		return learning.Submission{}, errors.Wrap(err, "finding submission")
	}
	if err = trapNoRows(len(subs), learning.ErrSubmissionNotFound); err != nil {
		return learning.Submission{}, err
	}
	return subs[0], nil
}

func (repo learningRepository) QuerySubmissions(ctx context.Context, filter learning.SubmissionFilter, exec ...core.DBExecutor) ([]learning.Submission, error) {
	w := new(where)
	if filter.UserID != "" {
		w.add("user_id = ?", filter.UserID)
	}
	if filter.ProgramID != "" {
		w.add("program_id = ?", filter.ProgramID)
	}
	if filter.LessonID != "" {
		w.add("lesson_id = ?", filter.LessonID)
	}
	if filter.Status != "" {
		w.add("status = ?", string(filter.Status))
	}

	query := "SELECT " + submissionColumns + " FROM submissions" + w.String() + " ORDER BY created_at DESC, id DESC"
	subs, err := repo.querySubmissions(ctx, repo.getExec(exec), query, w.args...)
	if err != nil {
		return nil, errors.Wrap(err, "querying submissions")
	}
	return subs, nil
}

func (repo learningRepository) UpdateSubmission(ctx context.Context, sub learning.Submission, exec ...core.DBExecutor) (learning.Submission, error) {
	n, err := repo.exec(ctx, repo.getExec(exec),
		"UPDATE submissions SET content = ?, file_url = ?, status = ?, admin_reply = ?, reviewed_at = ? WHERE id = ?",
		sub.Content, nullString(sub.FileURL), string(sub.Status), nullString(sub.AdminReply), nullTime(sub.ReviewedAt), sub.ID)
	if err != nil {
		return learning.Submission{}, errors.Wrap(err, "updating submission")
	}
	if err = trapNoRows(int(n), learning.ErrSubmissionNotFound); err != nil {
		return learning.Submission{}, err
	}
	return sub, nil
}
