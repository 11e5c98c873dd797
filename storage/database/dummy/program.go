package dummydb

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/estetika/academy/core"
	"github.com/estetika/academy/core/program"
)

type programRepository struct {
	programs *table[program.Program]
	lessons  *table[program.Lesson]
}

var _ program.Repository = (*programRepository)(nil) // interface compliance check

func NewProgramRepository(db *DB) program.Repository {
	return &programRepository{programs: db.program, lessons: db.lesson}
}

func (repo *programRepository) CreateProgram(_ context.Context, prog program.Program, _ ...core.DBExecutor) (program.Program, error) {
	prog.ID = uuid.New().String()
	repo.programs.put(prog.ID, prog)
	return prog, nil
}

func (repo *programRepository) GetProgram(_ context.Context, id string, _ ...core.DBExecutor) (program.Program, error) {
	if prog, ok := repo.programs.get(id); ok {
		return prog, nil
	}
	return program.Program{}, program.ErrNotFound
}

func (repo *programRepository) QueryPrograms(_ context.Context, filter *program.QueryFilter, ordering []core.DBOrdering, _ ...core.DBExecutor) ([]program.Program, error) {
	var keep func(program.Program) bool
	if filter != nil && !filter.IsEmpty() {
		search := strings.ToLower(filter.Search)
		keep = func(p program.Program) bool {
			if search != "" && !strings.Contains(strings.ToLower(p.Title), search) {
				return false
			}
			return filter.Status == "" || p.Status == filter.Status
		}
	}

	progs := repo.programs.all(keep)
	sortRows(progs, ordering, func(p program.Program, field string) interface{} {
		switch field {
		case "title":
			return strings.ToLower(p.Title)
		case "status":
			return string(p.Status)
		case "updated_at":
			return p.UpdatedAt.Format(sortableTime)
		default:
			return p.CreatedAt.Format(sortableTime)
		}
	})
	return progs, nil
}

func (repo *programRepository) UpdateProgram(_ context.Context, prog program.Program, _ ...core.DBExecutor) (program.Program, error) {
	if !repo.programs.has(prog.ID) {
		return program.Program{}, program.ErrNotFound
	}
	repo.programs.put(prog.ID, prog)
	return prog, nil
}

func (repo *programRepository) DeletePrograms(_ context.Context, ids []string, _ ...core.DBExecutor) error {
	repo.programs.delete(ids...)
	return nil
}

func (repo *programRepository) CreateLesson(_ context.Context, lesson program.Lesson, _ ...core.DBExecutor) (program.Lesson, error) {
	lesson.ID = uuid.New().String()
	repo.lessons.put(lesson.ID, lesson)
	return lesson, nil
}

func (repo *programRepository) GetLesson(_ context.Context, id string, _ ...core.DBExecutor) (program.Lesson, error) {
	if lesson, ok := repo.lessons.get(id); ok {
		return lesson, nil
	}
	return program.Lesson{}, program.ErrLessonNotFound
}

func (repo *programRepository) QueryLessons(_ context.Context, filter program.LessonFilter, _ ...core.DBExecutor) ([]program.Lesson, error) {
	ids := make(map[string]struct{}, len(filter.IDs))
	for _, id := range filter.IDs {
		ids[id] = struct{}{}
	}
	lessons := repo.lessons.all(func(l program.Lesson) bool {
		if filter.ProgramID != "" && l.ProgramID != filter.ProgramID {
			return false
		}
		if len(ids) > 0 {
			if _, ok := ids[l.ID]; !ok {
				return false
			}
		}
		return true
	})
	sortRows(lessons, nil, func(l program.Lesson, _ string) interface{} {
		return l.CreatedAt.Format(sortableTime)
	})
	return lessons, nil
}

func (repo *programRepository) UpdateLesson(_ context.Context, lesson program.Lesson, _ ...core.DBExecutor) (program.Lesson, error) {
	if !repo.lessons.has(lesson.ID) {
		return program.Lesson{}, program.ErrLessonNotFound
	}
	repo.lessons.put(lesson.ID, lesson)
	return lesson, nil
}

func (repo *programRepository) DeleteLessons(_ context.Context, ids []string, _ ...core.DBExecutor) error {
	repo.lessons.delete(ids...)
	return nil
}
