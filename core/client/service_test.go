package client_test

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/estetika/academy/core"
	"github.com/estetika/academy/core/client"
	"github.com/estetika/academy/core/user"
	"github.com/estetika/academy/services/email"
	"github.com/estetika/academy/storage/database/dummy"
	"github.com/estetika/academy/tests"
)

func TestService_Notes(t *testing.T) {
	ctx := context.Background()
	db, err := dummydb.Open()
	require.NoError(t, err)

	conf := core.NewTestConfig()
	logger := testutil.NewLogger(t)
	usrRepo := dummydb.NewUserRepository(db)
	users := user.NewServiceMock(usrRepo, emailsvc.NewConsoleServiceMock(logger, conf), logger, conf)
	svc := client.NewService(dummydb.NewClientRepository(db), users, logger)

	ada := testutil.CreateUser(t, usrRepo, "Ada", "ada@x.com", "", []string{user.RoleAdmin}, true)
	joe := testutil.CreateUser(t, usrRepo, "Joe", "joe@x.com", "", []string{user.RoleStudent}, true)

	public, err := svc.AddNote(ctx, ada.ID, joe.ID, client.NewNote{Visibility: client.VisibilityPublic, Content: "Great progress"})
	require.NoError(t, err)
	assert.Equal(t, ada.ID, public.CreatedBy)
	private, err := svc.AddNote(ctx, ada.ID, joe.ID, client.NewNote{Visibility: client.VisibilityPrivate, Content: "Asked for a discount"})
	require.NoError(t, err)

	_, err = svc.AddNote(ctx, ada.ID, "nope", client.NewNote{Visibility: client.VisibilityPublic, Content: "?"})
	assert.Equal(t, user.ErrNotFound, errors.Cause(err))

	tests := []struct {
		name           string
		userID         string
		includePrivate bool
		want           []string
	}{
		{"staff view, newest first", joe.ID, true, []string{private.ID, public.ID}},
		{"student view", joe.ID, false, []string{public.ID}},
		{"no notes", ada.ID, true, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			notes, err := svc.Notes(ctx, tt.userID, tt.includePrivate)
			require.NoError(t, err)
			ids := []string{}
			for _, n := range notes {
				ids = append(ids, n.ID)
			}
			assert.Equal(t, tt.want, ids)
		})
	}

	require.NoError(t, svc.DeleteNote(ctx, private.ID))
	assert.Equal(t, client.ErrNoteNotFound, errors.Cause(svc.DeleteNote(ctx, private.ID)))
}
