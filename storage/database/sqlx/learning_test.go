package sqlxrepos

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/estetika/academy/core/learning"
	"github.com/estetika/academy/core/program"
	"github.com/estetika/academy/core/user"
	"github.com/estetika/academy/tests"
)

func TestLearningRepository(t *testing.T) {
	ctx := context.Background()
	db := testutil.PrepareDB(t)
	repo := NewLearningRepository(db)
	now := time.Now().UTC()

	joe := testutil.CreateUser(t, NewUserRepository(db), "Joe", "joe@x.com", "", []string{user.RoleStudent}, true)
	prog, err := NewProgramRepository(db).CreateProgram(ctx, program.Program{Title: "Brows", CreatedAt: now, UpdatedAt: now})
	require.NoError(t, err)

	t.Run("grants", func(t *testing.T) {
		end := now.Add(30 * 24 * time.Hour).Truncate(time.Microsecond)
		grant, err := repo.CreateGrant(ctx, learning.AccessGrant{
			UserID:    joe.ID,
			ProgramID: prog.ID,
			StartDate: now,
			EndDate:   &end,
			Reason:    "paid",
			CreatedAt: now,
		})
		require.NoError(t, err)

		grants, err := repo.QueryGrants(ctx, learning.GrantFilter{UserID: joe.ID})
		require.NoError(t, err)
		if assert.Len(t, grants, 1) {
			assert.Equal(t, grant.ID, grants[0].ID)
			assert.Equal(t, "", grants[0].GrantedBy)
			if assert.NotNil(t, grants[0].EndDate) {
				assert.True(t, end.Equal(*grants[0].EndDate))
			}
		}

		grants, err = repo.QueryGrants(ctx, learning.GrantFilter{ProgramID: "other"})
		require.NoError(t, err)
		assert.Empty(t, grants)

		require.NoError(t, repo.DeleteGrants(ctx, []string{grant.ID}))
		grants, err = repo.QueryGrants(ctx, learning.GrantFilter{})
		require.NoError(t, err)
		assert.Empty(t, grants)
	})

	t.Run("progress upsert", func(t *testing.T) {
		_, err := repo.GetProgress(ctx, joe.ID, "lesson-1")
		assert.Equal(t, learning.ErrProgressNotFound, err)

		first, err := repo.SaveProgress(ctx, learning.Progress{
			UserID: joe.ID, ProgramID: prog.ID, LessonID: "lesson-1", VideoWatched: true, Percent: 80, UpdatedAt: now,
		})
		require.NoError(t, err)
		assert.NotEmpty(t, first.ID)

		second, err := repo.SaveProgress(ctx, learning.Progress{
			UserID: joe.ID, ProgramID: prog.ID, LessonID: "lesson-1", VideoWatched: true, HomeworkSubmitted: true, Percent: 90,
			UpdatedAt: now,
		})
		require.NoError(t, err)
		assert.Equal(t, first.ID, second.ID)
		assert.Equal(t, 90, second.Percent)
		assert.True(t, second.HomeworkSubmitted)

		_, err = repo.SaveProgress(ctx, learning.Progress{UserID: joe.ID, ProgramID: prog.ID, LessonID: "lesson-2", UpdatedAt: now})
		require.NoError(t, err)

		all, err := repo.QueryProgress(ctx, learning.ProgressFilter{UserID: joe.ID, ProgramID: prog.ID})
		require.NoError(t, err)
		assert.Len(t, all, 2)
		some, err := repo.QueryProgress(ctx, learning.ProgressFilter{LessonIDs: []string{"lesson-2"}})
		require.NoError(t, err)
		assert.Len(t, some, 1)
	})

	t.Run("submissions", func(t *testing.T) {
		older, err := repo.CreateSubmission(ctx, learning.Submission{
			UserID: joe.ID, ProgramID: prog.ID, LessonID: "lesson-1", Content: "v1",
			Status: learning.SubmissionSubmitted, CreatedAt: now.Add(-time.Minute),
		})
		require.NoError(t, err)
		newer, err := repo.CreateSubmission(ctx, learning.Submission{
			UserID: joe.ID, ProgramID: prog.ID, LessonID: "lesson-1", Content: "v2", FileURL: "https://x.com/f.jpg",
			Status: learning.SubmissionSubmitted, CreatedAt: now,
		})
		require.NoError(t, err)

		subs, err := repo.QuerySubmissions(ctx, learning.SubmissionFilter{LessonID: "lesson-1"})
		require.NoError(t, err)
		if assert.Len(t, subs, 2) {
			assert.Equal(t, newer.ID, subs[0].ID)
			assert.Equal(t, older.ID, subs[1].ID)
			assert.Equal(t, "https://x.com/f.jpg", subs[0].FileURL)
		}

		reviewed := now.Truncate(time.Microsecond)
		older.Status = learning.SubmissionRejected
		older.AdminReply = "redo"
		older.ReviewedAt = &reviewed
		_, err = repo.UpdateSubmission(ctx, older)
		require.NoError(t, err)

		got, err := repo.GetSubmission(ctx, older.ID)
		require.NoError(t, err)
		assert.Equal(t, learning.SubmissionRejected, got.Status)
		assert.Equal(t, "redo", got.AdminReply)
		assert.NotNil(t, got.ReviewedAt)

		subs, err = repo.QuerySubmissions(ctx, learning.SubmissionFilter{Status: learning.SubmissionSubmitted})
		require.NoError(t, err)
		assert.Len(t, subs, 1)

		_, err = repo.GetSubmission(ctx, "nope")
		assert.Equal(t, learning.ErrSubmissionNotFound, err)
		older.ID = "3f0b7c1e-0000-4000-8000-000000000000"
		_, err = repo.UpdateSubmission(ctx, older)
		assert.Equal(t, learning.ErrSubmissionNotFound, err)
	})
}
