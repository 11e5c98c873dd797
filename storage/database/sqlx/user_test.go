package sqlxrepos

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/estetika/academy/core"
	"github.com/estetika/academy/core/user"
	"github.com/estetika/academy/tests"
)

func TestUserRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository(testutil.PrepareDB(t))

	now := time.Now().UTC()
	admin := testutil.CreateUser(t, repo, "Ada Admin", "ada@x.com", "pwd", []string{user.RoleAdmin}, true, now.Add(-2*time.Hour))
	joe := testutil.CreateUser(t, repo, "Joe Student", "joe@x.com", "", []string{user.RoleStudent}, true, now.Add(-time.Hour))
	gone := testutil.CreateUser(t, repo, "Gone", "gone@x.com", "", nil, false, now)

	t.Run("get", func(t *testing.T) {
		got, err := repo.GetUserByID(ctx, admin.ID)
		require.NoError(t, err)
		assert.Equal(t, admin.Email, got.Email)
		assert.NoError(t, got.CheckPassword("pwd"))
		assert.Equal(t, []string{"admin:"}, got.Roles)

		got, err = repo.GetUserByEmail(ctx, "joe@x.com")
		require.NoError(t, err)
		assert.Equal(t, joe.ID, got.ID)

		got, err = repo.GetUserByID(ctx, gone.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{}, got.Roles)

		_, err = repo.GetUserByID(ctx, "not-a-uuid")
		assert.Equal(t, user.ErrNotFound, err)
		_, err = repo.GetUserByEmail(ctx, "nobody@x.com")
		assert.Equal(t, user.ErrNotFound, err)
	})

	t.Run("email uniqueness", func(t *testing.T) {
		assert.Equal(t, user.ErrEmailExists, repo.CheckEmailUniqueness(ctx, "joe@x.com", nil))
		assert.NoError(t, repo.CheckEmailUniqueness(ctx, "joe@x.com", []user.User{joe}))
		assert.NoError(t, repo.CheckEmailUniqueness(ctx, "new@x.com", nil))
	})

	t.Run("query", func(t *testing.T) {
		active := true
		tests := []struct {
			name     string
			filter   *user.QueryFilter
			ordering []core.DBOrdering
			want     []string
		}{
			{name: "all", want: []string{admin.ID, joe.ID, gone.ID}},
			{name: "search", filter: &user.QueryFilter{Search: "joe"}, want: []string{joe.ID}},
			{name: "role", filter: &user.QueryFilter{Roles: []string{"admin"}}, want: []string{admin.ID}},
			{name: "active", filter: &user.QueryFilter{IsActive: &active}, want: []string{admin.ID, joe.ID}},
			{name: "created from", filter: &user.QueryFilter{CreatedFrom: now.Add(-90 * time.Minute)}, want: []string{joe.ID, gone.ID}},
			{
				name:     "ordering",
				ordering: []core.DBOrdering{{Field: "name", Ascending: false}},
				want:     []string{joe.ID, gone.ID, admin.ID},
			},
			{
				name:     "unknown ordering falls back",
				ordering: []core.DBOrdering{{Field: "password_hash"}},
				want:     []string{admin.ID, joe.ID, gone.ID},
			},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				users, err := repo.QueryUsers(ctx, tt.filter, tt.ordering)
				require.NoError(t, err)
				ids := make([]string, 0, len(users))
				for _, u := range users {
					ids = append(ids, u.ID)
				}
				assert.Equal(t, tt.want, ids)
			})
		}
	})

	t.Run("update & delete", func(t *testing.T) {
		login := time.Now().UTC().Truncate(time.Microsecond)
		joe.Name = "Joe Updated"
		joe.LastLogin = &login
		_, err := repo.UpdateUser(ctx, joe)
		require.NoError(t, err)

		got, err := repo.GetUserByID(ctx, joe.ID)
		require.NoError(t, err)
		assert.Equal(t, "Joe Updated", got.Name)
		if assert.NotNil(t, got.LastLogin) {
			assert.True(t, login.Equal(*got.LastLogin))
		}

		require.NoError(t, repo.DeleteUsersByID(ctx, []string{joe.ID, gone.ID}))
		_, err = repo.GetUserByID(ctx, joe.ID)
		assert.Equal(t, user.ErrNotFound, err)
		_, err = repo.UpdateUser(ctx, gone)
		assert.Equal(t, user.ErrNotFound, err)
	})
}
