package echoapi_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/estetika/academy/core/client"
	"github.com/estetika/academy/core/user"
	"github.com/estetika/academy/tests"
)

func Test_clientApi(t *testing.T) {
	env, adminToken := adminEnv(t)
	joe := testutil.CreateUser(t, env.usrRepo, "Joe", "joe@x.com", goodPwd, []string{user.RoleStudent}, true)
	joeToken := getToken(t, env.conf, joe)
	notesPath := "/v1/users/" + joe.ID + "/notes"

	addNote := func(vis client.Visibility, content string) client.Note {
		rec := env.do(http.MethodPost, notesPath, adminToken, marchallObj(t, client.NewNote{Visibility: vis, Content: content}))
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		var n client.Note
		unmarshal(t, rec, &n)
		return n
	}
	public := addNote(client.VisibilityPublic, "Great progress")
	private := addNote(client.VisibilityPrivate, "Asked for a discount")

	tests := []httpTest{
		{name: "notes need admin", path: notesPath, token: joeToken, wantCode: http.StatusForbidden},
		{
			name: "unknown visibility", method: http.MethodPost, path: notesPath, token: adminToken,
			body: marchallObj(t, client.NewNote{Visibility: "team", Content: "?"}), wantCode: http.StatusBadRequest,
		},
		{
			name: "unknown student", method: http.MethodPost, path: "/v1/users/nope/notes", token: adminToken,
			body: marchallObj(t, client.NewNote{Visibility: client.VisibilityPublic, Content: "?"}), wantCode: http.StatusNotFound,
		},
		{name: "student sees public notes", path: "/v1/me/notes", token: joeToken, wantCode: http.StatusOK, wantData: marchallObj(t, []client.Note{public})},
		{name: "staff sees all notes", path: notesPath, token: adminToken, wantCode: http.StatusOK, wantData: marchallObj(t, []client.Note{private, public})},
		{name: "delete needs admin", method: http.MethodDelete, path: "/v1/notes/" + private.ID, token: joeToken, wantCode: http.StatusForbidden},
		{name: "delete", method: http.MethodDelete, path: "/v1/notes/" + private.ID, token: adminToken, wantCode: http.StatusNoContent},
		{name: "delete again", method: http.MethodDelete, path: "/v1/notes/" + private.ID, token: adminToken, wantCode: http.StatusNotFound},
	}
	runHTTPTests(t, env, tests)

	rec := env.do(http.MethodGet, notesPath, adminToken)
	var notes []client.Note
	unmarshal(t, rec, &notes)
	assert.Len(t, notes, 1)
}
