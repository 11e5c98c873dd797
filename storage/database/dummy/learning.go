package dummydb

import (
	"context"

	"github.com/google/uuid"

	"github.com/estetika/academy/core"
	"github.com/estetika/academy/core/learning"
)

type learningRepository struct {
	grants      *table[learning.AccessGrant]
	progress    *table[learning.Progress]
	submissions *table[learning.Submission]
}

var _ learning.Repository = (*learningRepository)(nil) // interface compliance check

func NewLearningRepository(db *DB) learning.Repository {
	return &learningRepository{grants: db.grant, progress: db.progress, submissions: db.submission}
}

// Access grants

func (repo *learningRepository) CreateGrant(_ context.Context, grant learning.AccessGrant, _ ...core.DBExecutor) (learning.AccessGrant, error) {
	grant.ID = uuid.New().String()
	repo.grants.put(grant.ID, grant)
	return grant, nil
}

func (repo *learningRepository) QueryGrants(_ context.Context, filter learning.GrantFilter, _ ...core.DBExecutor) ([]learning.AccessGrant, error) {
	grants := repo.grants.all(func(g learning.AccessGrant) bool {
		return (filter.UserID == "" || g.UserID == filter.UserID) &&
			(filter.ProgramID == "" || g.ProgramID == filter.ProgramID)
	})
	sortRows(grants, nil, func(g learning.AccessGrant, _ string) interface{} {
		return g.CreatedAt.Format(sortableTime)
	})
	return grants, nil
}

func (repo *learningRepository) DeleteGrants(_ context.Context, ids []string, _ ...core.DBExecutor) error {
	repo.grants.delete(ids...)
	return nil
}

// Progress

func (repo *learningRepository) GetProgress(_ context.Context, userID, lessonID string, _ ...core.DBExecutor) (learning.Progress, error) {
	found := repo.progress.all(func(p learning.Progress) bool {
		return p.UserID == userID && p.LessonID == lessonID
	})
	if len(found) == 0 {
		return learning.Progress{}, learning.ErrProgressNotFound
	}
	return found[0], nil
}

func (repo *learningRepository) QueryProgress(_ context.Context, filter learning.ProgressFilter, _ ...core.DBExecutor) ([]learning.Progress, error) {
	lessonIDs := make(map[string]struct{}, len(filter.LessonIDs))
	for _, id := range filter.LessonIDs {
		lessonIDs[id] = struct{}{}
	}
	progress := repo.progress.all(func(p learning.Progress) bool {
		if filter.UserID != "" && p.UserID != filter.UserID {
			return false
		}
		if filter.ProgramID != "" && p.ProgramID != filter.ProgramID {
			return false
		}
		if len(lessonIDs) > 0 {
			if _, ok := lessonIDs[p.LessonID]; !ok {
				return false
			}
		}
		return true
	})
	sortRows(progress, nil, func(p learning.Progress, _ string) interface{} {
		return p.UpdatedAt.Format(sortableTime)
	})
	return progress, nil
}

func (repo *learningRepository) SaveProgress(ctx context.Context, p learning.Progress, _ ...core.DBExecutor) (learning.Progress, error) {
	if existing, err := repo.GetProgress(ctx, p.UserID, p.LessonID); err == nil {
		p.ID = existing.ID
	} else if p.ID == "" {
		p.ID = uuid.New().String()
	}
	repo.progress.put(p.ID, p)
	return p, nil
}

// Submissions

func (repo *learningRepository) CreateSubmission(_ context.Context, sub learning.Submission, _ ...core.DBExecutor) (learning.Submission, error) {
	sub.ID = uuid.New().String()
	repo.submissions.put(sub.ID, sub)
	return sub, nil
}

func (repo *learningRepository) GetSubmission(_ context.Context, id string, _ ...core.DBExecutor) (learning.Submission, error) {
	if sub, ok := repo.submissions.get(id); ok {
		return sub, nil
	}
	return learning.Submission{}, learning.ErrSubmissionNotFound
}

func (repo *learningRepository) QuerySubmissions(_ context.Context, filter learning.SubmissionFilter, _ ...core.DBExecutor) ([]learning.Submission, error) {
	subs := repo.submissions.all(func(s learning.Submission) bool {
		return (filter.UserID == "" || s.UserID == filter.UserID) &&
			(filter.ProgramID == "" || s.ProgramID == filter.ProgramID) &&
			(filter.LessonID == "" || s.LessonID == filter.LessonID) &&
			(filter.Status == "" || s.Status == filter.Status)
	})
	// newest first, the last inserted first among equal timestamps
	reverse(subs)
	sortRows(subs, []core.DBOrdering{{Field: "created_at"}}, func(s learning.Submission, _ string) interface{} {
		return s.CreatedAt.Format(sortableTime)
	})
	return subs, nil
}

func (repo *learningRepository) UpdateSubmission(_ context.Context, sub learning.Submission, _ ...core.DBExecutor) (learning.Submission, error) {
	if !repo.submissions.has(sub.ID) {
		return learning.Submission{}, learning.ErrSubmissionNotFound
	}
	repo.submissions.put(sub.ID, sub)
	return sub, nil
}
