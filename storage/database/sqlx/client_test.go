package sqlxrepos

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/estetika/academy/core/client"
	"github.com/estetika/academy/core/user"
	"github.com/estetika/academy/tests"
)

func TestClientRepository(t *testing.T) {
	ctx := context.Background()
	db := testutil.PrepareDB(t)
	repo := NewClientRepository(db)
	now := time.Now().UTC().Truncate(time.Microsecond)

	joe := testutil.CreateUser(t, NewUserRepository(db), "Joe", "joe@x.com", "", []string{user.RoleStudent}, true)
	ada := testutil.CreateUser(t, NewUserRepository(db), "Ada", "ada@x.com", "", []string{user.RoleAdmin}, true)

	note := func(vis client.Visibility, content string, at time.Time) client.Note {
		n, err := repo.CreateNote(ctx, client.Note{UserID: joe.ID, Visibility: vis, Content: content, CreatedBy: ada.ID, CreatedAt: at})
		require.NoError(t, err)
		return n
	}
	public := note(client.VisibilityPublic, "Great progress", now.Add(-time.Hour))
	private := note(client.VisibilityPrivate, "Asked for a discount", now)

	tests := []struct {
		name   string
		filter client.NoteFilter
		want   []string
	}{
		{"all, newest first", client.NoteFilter{UserID: joe.ID}, []string{private.ID, public.ID}},
		{"public only", client.NoteFilter{UserID: joe.ID, Visibility: client.VisibilityPublic}, []string{public.ID}},
		{"other user", client.NoteFilter{UserID: ada.ID}, []string{}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			notes, err := repo.QueryNotes(ctx, tc.filter)
			require.NoError(t, err)
			ids := []string{}
			for _, n := range notes {
				ids = append(ids, n.ID)
			}
			assert.Equal(t, tc.want, ids)
		})
	}

	got, err := repo.GetNote(ctx, private.ID)
	require.NoError(t, err)
	assert.Equal(t, ada.ID, got.CreatedBy)

	require.NoError(t, repo.DeleteNote(ctx, private.ID))
	assert.Equal(t, client.ErrNoteNotFound, repo.DeleteNote(ctx, private.ID))
	_, err = repo.GetNote(ctx, private.ID)
	assert.Equal(t, client.ErrNoteNotFound, err)
}
