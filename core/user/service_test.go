package user_test

import (
	"context"
	"testing"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/estetika/academy/core"
	"github.com/estetika/academy/core/user"
	"github.com/estetika/academy/services/email"
	"github.com/estetika/academy/storage/database/dummy"
	"github.com/estetika/academy/tests"
)

const goodPwd = "Xk9#mQ2!vL"

type resetTokenMaker interface {
	MakeResetToken(usr user.User) (uid, token string)
}

type env struct {
	svc      user.Service
	repo     user.Repository
	mail     *emailsvc.ConsoleServiceMock
	validate *validator.Validate
}

func setup(t *testing.T) env {
	db, err := dummydb.Open()
	require.NoError(t, err)

	conf := core.NewTestConfig()
	logger := testutil.NewLogger(t)
	repo := dummydb.NewUserRepository(db)
	mail := emailsvc.NewConsoleServiceMock(logger, conf)

	enLocale := en.New()
	translator, _ := ut.New(enLocale, enLocale).GetTranslator("en")
	validate := validator.New()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)

	return env{
		svc:      user.NewServiceMock(repo, mail, logger, conf),
		repo:     repo,
		mail:     mail,
		validate: validate,
	}
}

func TestNewUser_Validate(t *testing.T) {
	e := setup(t)
	testutil.CreateUser(t, e.repo, "Taken", "taken@x.com", goodPwd, nil, true)

	tests := []struct {
		name      string
		nu        user.NewUser
		wantField bool // a validator.ValidationErrors
		wantTaken bool
	}{
		{name: "valid", nu: user.NewUser{Name: " Joe ", Email: "JOE@x.com", Password: goodPwd, PasswordConfirm: goodPwd}},
		{name: "blank name", nu: user.NewUser{Name: "  ", Email: "a@x.com", Password: goodPwd, PasswordConfirm: goodPwd}, wantField: true},
		{name: "bad email", nu: user.NewUser{Name: "A", Email: "nope", Password: goodPwd, PasswordConfirm: goodPwd}, wantField: true},
		{name: "confirm mismatch", nu: user.NewUser{Name: "A", Email: "a@x.com", Password: goodPwd, PasswordConfirm: "other"}, wantField: true},
		{name: "unknown role", nu: user.NewUser{Name: "A", Email: "a@x.com", Password: goodPwd, PasswordConfirm: goodPwd, Roles: []string{"root"}}, wantField: true},
		{name: "too short", nu: user.NewUser{Name: "A", Email: "a@x.com", Password: "Ab1!", PasswordConfirm: "Ab1!"}, wantField: true},
		{name: "whitespace", nu: user.NewUser{Name: "A", Email: "a@x.com", Password: "Ab1! cdefg", PasswordConfirm: "Ab1! cdefg"}, wantField: true},
		{name: "all numeric", nu: user.NewUser{Name: "A", Email: "a@x.com", Password: "1234567890", PasswordConfirm: "1234567890"}, wantField: true},
		{name: "not complex", nu: user.NewUser{Name: "A", Email: "a@x.com", Password: "abcdefgh1", PasswordConfirm: "abcdefgh1"}, wantField: true},
		{
			name:      "similar to name",
			nu:        user.NewUser{Name: "Josephine Baker", Email: "a@x.com", Password: "JosephineB1!", PasswordConfirm: "JosephineB1!"},
			wantField: true,
		},
		{name: "common", nu: user.NewUser{Name: "A", Email: "a@x.com", Password: "P@ssw0rd", PasswordConfirm: "P@ssw0rd"}, wantField: true},
		{name: "email taken", nu: user.NewUser{Name: "A", Email: "Taken@x.com", Password: goodPwd, PasswordConfirm: goodPwd}, wantTaken: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.nu.Validate(context.Background(), e.validate, e.svc)
			switch {
			case tt.wantField:
				var verrs validator.ValidationErrors
				assert.True(t, errors.As(err, &verrs), "got %v", err)
			case tt.wantTaken:
				var verr *core.ValidationError
				if assert.True(t, errors.As(err, &verr)) {
					assert.Contains(t, verr.FieldErrors(), "email")
				}
			default:
				assert.NoError(t, err)
				assert.Equal(t, "Joe", tt.nu.Name)
				assert.Equal(t, "joe@x.com", tt.nu.Email)
			}
		})
	}
}

func TestService_Create(t *testing.T) {
	e := setup(t)
	ctx := context.Background()

	usr, err := e.svc.Create(ctx, user.NewUser{Name: "Joe", Email: "joe@x.com", Password: goodPwd})
	require.NoError(t, err)
	assert.True(t, usr.IsActive)
	assert.Equal(t, []string{user.RoleStudent}, usr.Roles)
	assert.True(t, usr.IsStudent())
	assert.NoError(t, usr.CheckPassword(goodPwd))

	admin, err := e.svc.Create(ctx, user.NewUser{Name: "Ada", Email: "ada@x.com", Password: goodPwd, Roles: []string{user.RoleAdminOwner}})
	require.NoError(t, err)
	assert.True(t, admin.IsAdmin())
}

func TestService_Update(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	joe := testutil.CreateUser(t, e.repo, "Joe", "joe@x.com", goodPwd, []string{user.RoleStudent}, true)
	testutil.CreateUser(t, e.repo, "Ann", "ann@x.com", goodPwd, nil, true)

	inactive := false
	uu := user.UpdateUser{Email: "ann@x.com", IsActive: &inactive}
	err := uu.Validate(ctx, joe, e.validate, e.svc)
	var verr *core.ValidationError
	assert.True(t, errors.As(err, &verr))

	uu = user.UpdateUser{Name: "Joseph", IsActive: &inactive}
	require.NoError(t, uu.Validate(ctx, joe, e.validate, e.svc))
	got, err := e.svc.Update(ctx, joe.ID, uu)
	require.NoError(t, err)
	assert.Equal(t, "Joseph", got.Name)
	assert.Equal(t, "joe@x.com", got.Email)
	assert.False(t, got.IsActive)

	_, err = e.svc.Update(ctx, "missing", uu)
	assert.Equal(t, user.ErrNotFound, errors.Cause(err))
}

func TestService_SetLastLogin(t *testing.T) {
	e := setup(t)
	joe := testutil.CreateUser(t, e.repo, "Joe", "joe@x.com", goodPwd, nil, true)
	assert.Nil(t, joe.LastLogin)

	got, err := e.svc.SetLastLogin(context.Background(), joe)
	require.NoError(t, err)
	assert.NotNil(t, got.LastLogin)
}

func TestService_Delete(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	joe := testutil.CreateUser(t, e.repo, "Joe", "joe@x.com", goodPwd, nil, true)
	ann := testutil.CreateUser(t, e.repo, "Ann", "ann@x.com", goodPwd, nil, true)

	require.NoError(t, e.svc.Delete(ctx, joe.ID, ann.ID))
	users, err := e.svc.Query(ctx, nil, nil)
	require.NoError(t, err)
	assert.Empty(t, users)
}

func TestService_RequestPasswordReset(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	testutil.CreateUser(t, e.repo, "Joe", "joe@x.com", goodPwd, nil, true)
	testutil.CreateUser(t, e.repo, "Gone", "gone@x.com", goodPwd, nil, false)

	tests := []struct {
		name     string
		email    string
		wantErr  error
		wantSent bool
	}{
		{name: "active user", email: " JOE@x.com", wantSent: true},
		{name: "inactive user", email: "gone@x.com", wantErr: user.ErrNotFound},
		{name: "unknown email", email: "nobody@x.com", wantErr: user.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e.mail.Reset()
			err := e.svc.RequestPasswordReset(ctx, tt.email)
			assert.Equal(t, tt.wantErr, errors.Cause(err))

			sent := e.mail.SentMessages()
			if !tt.wantSent {
				assert.Empty(t, sent)
				return
			}
			if assert.Len(t, sent, 1) {
				assert.Equal(t, "joe@x.com", sent[0].To[0].Address)
				assert.Contains(t, sent[0].TextContent, "http://localhost:3000/password-reset/")
			}
		})
	}
}

func TestService_ResetPassword(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	joe := testutil.CreateUser(t, e.repo, "Joe", "joe@x.com", goodPwd, nil, true)
	uid, token := e.svc.(resetTokenMaker).MakeResetToken(joe)
	newPwd := "Zq8$wE3@rT"

	tests := []struct {
		name    string
		data    user.ResetUserPassword
		wantErr bool
	}{
		{name: "bad uid", data: user.ResetUserPassword{UID: "xx", Token: token, Password: newPwd}, wantErr: true},
		{name: "bad token", data: user.ResetUserPassword{UID: uid, Token: "1-abc", Password: newPwd}, wantErr: true},
		{name: "valid", data: user.ResetUserPassword{UID: uid, Token: token, Password: newPwd}},
		// the password changed: the link is spent
		{name: "reused", data: user.ResetUserPassword{UID: uid, Token: token, Password: goodPwd}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := e.svc.ResetPassword(ctx, tt.data)
			if tt.wantErr {
				var verr *core.ValidationError
				assert.True(t, errors.As(err, &verr))
				return
			}
			require.NoError(t, err)
		})
	}

	got, err := e.svc.GetByID(ctx, joe.ID)
	require.NoError(t, err)
	assert.NoError(t, got.CheckPassword(newPwd))
}
