package sqlxrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/estetika/academy/core"
	"github.com/estetika/academy/core/outline"
	"github.com/estetika/academy/core/program"
)

const (
	programColumns = "id, title, description, status, cover_image, outline, attachments, created_at, updated_at"
	lessonColumns  = "id, program_id, title, description, published, access_start, deadline_at, stop_lesson_mode, " +
		"stop_reason, blocks, practice, tasks, attachments, created_at, updated_at"
)

var programOrderings = map[string]string{
	"title":      "title",
	"status":     "status",
	"created_at": "created_at",
	"updated_at": "updated_at",
}

type (
	programRow struct {
		ID          string      `db:"id"`
		Title       string      `db:"title"`
		Description string      `db:"description"`
		Status      string      `db:"status"`
		CoverImage  null.String `db:"cover_image"`
		Outline     string      `db:"outline"`
		Attachments string      `db:"attachments"`
		CreatedAt   time.Time   `db:"created_at"`
		UpdatedAt   time.Time   `db:"updated_at"`
	}

	lessonRow struct {
		ID             string      `db:"id"`
		ProgramID      string      `db:"program_id"`
		Title          string      `db:"title"`
		Description    string      `db:"description"`
		Published      bool        `db:"published"`
		AccessStart    null.Time   `db:"access_start"`
		DeadlineAt     null.Time   `db:"deadline_at"`
		StopLessonMode string      `db:"stop_lesson_mode"`
		StopReason     null.String `db:"stop_reason"`
		Blocks         string      `db:"blocks"`
		Practice       null.String `db:"practice"`
		Tasks          string      `db:"tasks"`
		Attachments    string      `db:"attachments"`
		CreatedAt      time.Time   `db:"created_at"`
		UpdatedAt      time.Time   `db:"updated_at"`
	}
)

type programRepository struct {
	repository
}

var _ program.Repository = (*programRepository)(nil) // interface compliance check

func NewProgramRepository(db *sqlx.DB) program.Repository {
	return &programRepository{repository{db: db}}
}

// Programs

func (repo programRepository) programToRow(prog program.Program) (programRow, error) {
	tree := prog.Outline
	if tree == nil {
		tree = outline.Tree{}
	}
	tr, err := toJSON(tree)
	if err != nil {
		return programRow{}, err
	}
	atts, err := toJSON(nonNilAttachments(prog.Attachments))
	if err != nil {
		return programRow{}, err
	}
	return programRow{
		ID:          prog.ID,
		Title:       prog.Title,
		Description: prog.Description,
		Status:      string(prog.Status),
		CoverImage:  nullString(prog.CoverImage),
		Outline:     tr,
		Attachments: atts,
		CreatedAt:   prog.CreatedAt.UTC(),
		UpdatedAt:   prog.UpdatedAt.UTC(),
	}, nil
}

func (repo programRepository) programFromRow(row programRow) (program.Program, error) {
	prog := program.Program{
		ID:          row.ID,
		Title:       row.Title,
		Description: row.Description,
		Status:      program.Status(row.Status),
		CoverImage:  row.CoverImage.String,
		Outline:     outline.Tree{},
		Attachments: []program.Attachment{},
		CreatedAt:   row.CreatedAt.UTC(),
		UpdatedAt:   row.UpdatedAt.UTC(),
	}
	if err := fromJSON(row.Outline, &prog.Outline); err != nil {
		return program.Program{}, errors.Wrapf(err, "program %s outline", row.ID)
	}
	if err := prog.Outline.Validate(); err != nil {
		return program.Program{}, errors.Wrapf(err, "program %s outline", row.ID)
	}
	if err := fromJSON(row.Attachments, &prog.Attachments); err != nil {
		return program.Program{}, errors.Wrapf(err, "program %s attachments", row.ID)
	}
	return prog, nil
}

func (repo programRepository) queryPrograms(ctx context.Context, exec core.DBExecutor, query string, args ...interface{}) ([]program.Program, error) {
	var rows []programRow
	if err := repo.selectAll(ctx, exec, &rows, query, args...); err != nil {
		return nil, err
	}
	progs := make([]program.Program, 0, len(rows))
	for _, row := range rows {
		prog, err := repo.programFromRow(row)
		if err != nil {
			return nil, err
		}
		progs = append(progs, prog)
	}
	return progs, nil
}

func (repo programRepository) CreateProgram(ctx context.Context, prog program.Program, exec ...core.DBExecutor) (program.Program, error) {
	prog.ID = uuid.New().String()
	row, err := repo.programToRow(prog)
	if err != nil {
		return program.Program{}, err
	}
	_, err = repo.exec(ctx, repo.getExec(exec),
		"INSERT INTO programs ("+programColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)",
		row.ID, row.Title, row.Description, row.Status, row.CoverImage, row.Outline, row.Attachments, row.CreatedAt, row.UpdatedAt)
	if err != nil {
		return program.Program{}, errors.Wrap(err, "inserting program")
	}
	return repo.programFromRow(row)
}

func (repo programRepository) GetProgram(ctx context.Context, id string, exec ...core.DBExecutor) (program.Program, error) {
	if _, err := uuid.Parse(id); err != nil {
		return program.Program{}, program.ErrNotFound
	}
	progs, err := repo.queryPrograms(ctx, repo.getExec(exec), "SELECT "+programColumns+" FROM programs WHERE id = ?", id)
	if err != nil {
		return program.Program{}, errors.Wrap(err, "finding program")
	}
	if err = trapNoRows(len(progs), program.ErrNotFound); err != nil {
		return program.Program{}, err
	}
	return progs[0], nil
}

func (repo programRepository) QueryPrograms(ctx context.Context, filter *program.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]program.Program, error) {
	w := new(where)
	if filter != nil {
		if filter.Search != "" {
			w.add("LOWER(title) LIKE ?", likePattern(filter.Search))
		}
		if filter.Status != "" {
			w.add("status = ?", string(filter.Status))
		}
	}
	query := "SELECT " + programColumns + " FROM programs" + w.String() + orderBy(ordering, programOrderings, "created_at ASC")
	progs, err := repo.queryPrograms(ctx, repo.getExec(exec), query, w.args...)
	if err != nil {
		return nil, errors.Wrap(err, "querying programs")
	}
	return progs, nil
}

func (repo programRepository) UpdateProgram(ctx context.Context, prog program.Program, exec ...core.DBExecutor) (program.Program, error) {
	row, err := repo.programToRow(prog)
	if err != nil {
		return program.Program{}, err
	}
	n, err := repo.exec(ctx, repo.getExec(exec),
		"UPDATE programs SET title = ?, description = ?, status = ?, cover_image = ?, outline = ?, attachments = ?, updated_at = ? WHERE id = ?",
		row.Title, row.Description, row.Status, row.CoverImage, row.Outline, row.Attachments, row.UpdatedAt, row.ID)
	if err != nil {
		return program.Program{}, errors.Wrap(err, "updating program")
	}
	if err = trapNoRows(int(n), program.ErrNotFound); err != nil {
		return program.Program{}, err
	}
	return repo.programFromRow(row)
}

func (repo programRepository) DeletePrograms(ctx context.Context, ids []string, exec ...core.DBExecutor) error {
	return errors.Wrap(repo.deleteIn(ctx, repo.getExec(exec), "programs", ids), "deleting programs")
}

// Lessons

func (repo programRepository) lessonToRow(lesson program.Lesson) (lessonRow, error) {
	row := lessonRow{
		ID:             lesson.ID,
		ProgramID:      lesson.ProgramID,
		Title:          lesson.Title,
		Description:    lesson.Description,
		Published:      lesson.Published,
		AccessStart:    nullTime(lesson.AccessStart),
		DeadlineAt:     nullTime(lesson.DeadlineAt),
		StopLessonMode: string(lesson.StopLessonMode),
		StopReason:     nullString(lesson.StopReason),
		CreatedAt:      lesson.CreatedAt.UTC(),
		UpdatedAt:      lesson.UpdatedAt.UTC(),
	}
	if row.StopLessonMode == "" {
		row.StopLessonMode = string(program.StopNone)
	}

	var err error
	blocks := lesson.Blocks
	if blocks == nil {
		blocks = []program.Block{}
	}
	if row.Blocks, err = toJSON(blocks); err != nil {
		return lessonRow{}, err
	}
	tasks := lesson.Tasks
	if tasks == nil {
		tasks = []program.Task{}
	}
	if row.Tasks, err = toJSON(tasks); err != nil {
		return lessonRow{}, err
	}
	if row.Attachments, err = toJSON(nonNilAttachments(lesson.Attachments)); err != nil {
		return lessonRow{}, err
	}
	if lesson.Practice != nil {
		practice, err := toJSON(lesson.Practice)
		if err != nil {
			return lessonRow{}, err
		}
		row.Practice = null.StringFrom(practice)
	}
	return row, nil
}

func (repo programRepository) lessonFromRow(row lessonRow) (program.Lesson, error) {
	lesson := program.Lesson{
		ID:             row.ID,
		ProgramID:      row.ProgramID,
		Title:          row.Title,
		Description:    row.Description,
		Published:      row.Published,
		StopLessonMode: program.StopLessonMode(row.StopLessonMode),
		StopReason:     row.StopReason.String,
		Blocks:         []program.Block{},
		Tasks:          []program.Task{},
		Attachments:    []program.Attachment{},
		CreatedAt:      row.CreatedAt.UTC(),
		UpdatedAt:      row.UpdatedAt.UTC(),
	}
	if row.AccessStart.Valid {
		t := row.AccessStart.Time.UTC()
		lesson.AccessStart = &t
	}
	if row.DeadlineAt.Valid {
		t := row.DeadlineAt.Time.UTC()
		lesson.DeadlineAt = &t
	}
	if err := fromJSON(row.Blocks, &lesson.Blocks); err != nil {
		return program.Lesson{}, errors.Wrapf(err, "lesson %s blocks", row.ID)
	}
	if err := fromJSON(row.Tasks, &lesson.Tasks); err != nil {
		return program.Lesson{}, errors.Wrapf(err, "lesson %s tasks", row.ID)
	}
	if err := fromJSON(row.Attachments, &lesson.Attachments); err != nil {
		return program.Lesson{}, errors.Wrapf(err, "lesson %s attachments", row.ID)
	}
	if row.Practice.Valid {
		lesson.Practice = new(program.Practice)
		if err := fromJSON(row.Practice.String, lesson.Practice); err != nil {
			return program.Lesson{}, errors.Wrapf(err, "lesson %s practice", row.ID)
		}
	}
	return lesson, nil
}

func (repo programRepository) queryLessons(ctx context.Context, exec core.DBExecutor, query string, args ...interface{}) ([]program.Lesson, error) {
	var rows []lessonRow
	if err := repo.selectAll(ctx, exec, &rows, query, args...); err != nil {
		return nil, err
	}
	lessons := make([]program.Lesson, 0, len(rows))
	for _, row := range rows {
		lesson, err := repo.lessonFromRow(row)
		if err != nil {
			return nil, err
		}
		lessons = append(lessons, lesson)
	}
	return lessons, nil
}

func (repo programRepository) CreateLesson(ctx context.Context, lesson program.Lesson, exec ...core.DBExecutor) (program.Lesson, error) {
	lesson.ID = uuid.New().String()
	row, err := repo.lessonToRow(lesson)
	if err != nil {
		return program.Lesson{}, err
	}
	_, err = repo.exec(ctx, repo.getExec(exec),
		"INSERT INTO lessons ("+lessonColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		row.ID, row.ProgramID, row.Title, row.Description, row.Published, row.AccessStart, row.DeadlineAt, row.StopLessonMode,
		row.StopReason, row.Blocks, row.Practice, row.Tasks, row.Attachments, row.CreatedAt, row.UpdatedAt)
	if err != nil {
		return program.Lesson{}, errors.Wrap(err, "inserting lesson")
	}
	return repo.lessonFromRow(row)
}

func (repo programRepository) GetLesson(ctx context.Context, id string, exec ...core.DBExecutor) (program.Lesson, error) {
	if _, err := uuid.Parse(id); err != nil {
		return program.Lesson{}, program.ErrLessonNotFound
	}
	lessons, err := repo.queryLessons(ctx, repo.getExec(exec), "SELECT "+lessonColumns+" FROM lessons WHERE id = ?", id)
	if err != nil {
		return program.Lesson{}, errors.Wrap(err, "finding lesson")
	}
	if err = trapNoRows(len(lessons), program.ErrLessonNotFound); err != nil {
		return program.Lesson{}, err
	}
	return lessons[0], nil
}

func (repo programRepository) QueryLessons(ctx context.Context, filter program.LessonFilter, exec ...core.DBExecutor) ([]program.Lesson, error) {
	w := new(where)
	if filter.ProgramID != "" {
		w.add("program_id = ?", filter.ProgramID)
	}
	if len(filter.IDs) > 0 {
		if err := w.addIn("id", filter.IDs); err != nil {
			return nil, errors.Wrap(err, "querying lessons")
		}
	}
	lessons, err := repo.queryLessons(ctx, repo.getExec(exec), "SELECT "+lessonColumns+" FROM lessons"+w.String()+" ORDER BY created_at ASC", w.args...)
	if err != nil {
		return nil, errors.Wrap(err, "querying lessons")
	}
	return lessons, nil
}

func (repo programRepository) UpdateLesson(ctx context.Context, lesson program.Lesson, exec ...core.DBExecutor) (program.Lesson, error) {
	row, err := repo.lessonToRow(lesson)
	if err != nil {
		return program.Lesson{}, err
	}
	n, err := repo.exec(ctx, repo.getExec(exec),
		"UPDATE lessons SET title = ?, description = ?, published = ?, access_start = ?, deadline_at = ?, stop_lesson_mode = ?, "+
			"stop_reason = ?, blocks = ?, practice = ?, tasks = ?, attachments = ?, updated_at = ? WHERE id = ?",
		row.Title, row.Description, row.Published, row.AccessStart, row.DeadlineAt, row.StopLessonMode,
		row.StopReason, row.Blocks, row.Practice, row.Tasks, row.Attachments, row.UpdatedAt, row.ID)
	if err != nil {
		return program.Lesson{}, errors.Wrap(err, "updating lesson")
	}
	if err = trapNoRows(int(n), program.ErrLessonNotFound); err != nil {
		return program.Lesson{}, err
	}
	return repo.lessonFromRow(row)
}

func (repo programRepository) DeleteLessons(ctx context.Context, ids []string, exec ...core.DBExecutor) error {
	return errors.Wrap(repo.deleteIn(ctx, repo.getExec(exec), "lessons", ids), "deleting lessons")
}

func nonNilAttachments(atts []program.Attachment) []program.Attachment {
	if atts == nil {
		return []program.Attachment{}
	}
	return atts
}
