package echoapi_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/estetika/academy/core/support"
	"github.com/estetika/academy/core/user"
	"github.com/estetika/academy/tests"
)

func Test_supportApi(t *testing.T) {
	env, adminToken := adminEnv(t)
	joe := testutil.CreateUser(t, env.usrRepo, "Joe", "joe@x.com", goodPwd, []string{user.RoleStudent}, true)
	ann := testutil.CreateUser(t, env.usrRepo, "Ann", "ann@x.com", goodPwd, []string{user.RoleStudent}, true)
	joeToken, annToken := getToken(t, env.conf, joe), getToken(t, env.conf, ann)

	rec := env.do(http.MethodPost, "/v1/me/tickets", joeToken,
		marchallObj(t, support.NewTicket{Subject: " Video ", Message: "It does not play"}))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var tk support.Ticket
	unmarshal(t, rec, &tk)
	assert.Equal(t, "Video", tk.Subject)
	assert.Equal(t, joe.ID, tk.UserID)

	notFound := marchallObj(t, httpErr{Error: "ticket not found"})
	tests := []httpTest{
		{name: "auth required", path: "/v1/me/tickets", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "blank subject", method: http.MethodPost, path: "/v1/me/tickets", token: joeToken,
			body: marchallObj(t, support.NewTicket{Subject: "  ", Message: "?"}), wantCode: http.StatusBadRequest,
		},
		{name: "own ticket", path: "/v1/me/tickets/" + tk.ID, token: joeToken, wantCode: http.StatusOK},
		{name: "someone else's ticket", path: "/v1/me/tickets/" + tk.ID, token: annToken, wantCode: http.StatusNotFound, wantData: notFound},
		{name: "others see none", path: "/v1/me/tickets", token: annToken, wantCode: http.StatusOK, wantData: []byte(`[]`)},
		{name: "admin list needs admin", path: "/v1/tickets", token: joeToken, wantCode: http.StatusForbidden},
		{name: "admin unknown ticket", path: "/v1/tickets/nope", token: adminToken, wantCode: http.StatusNotFound, wantData: notFound},
		{
			name: "blank reply", method: http.MethodPut, path: "/v1/tickets/" + tk.ID + "/reply", token: adminToken,
			body: marchallObj(t, support.ReplyTicket{Reply: " "}), wantCode: http.StatusBadRequest,
		},
	}
	runHTTPTests(t, env, tests)

	t.Run("reply and close", func(t *testing.T) {
		env.mail.Reset()
		rec := env.do(http.MethodPut, "/v1/tickets/"+tk.ID+"/reply", adminToken,
			marchallObj(t, support.ReplyTicket{Reply: "Try another browser", Close: true}))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var replied support.Ticket
		unmarshal(t, rec, &replied)
		assert.Equal(t, support.StatusClosed, replied.Status)
		assert.Equal(t, "Try another browser", replied.AdminReply)
		if sent := env.mail.SentMessages(); assert.Len(t, sent, 1) {
			assert.Equal(t, "joe@x.com", sent[0].To[0].Address)
			assert.Contains(t, sent[0].TextContent, "Try another browser")
		}

		rec = env.do(http.MethodPut, "/v1/tickets/"+tk.ID+"/reply", adminToken, marchallObj(t, support.ReplyTicket{Reply: "Again"}))
		assert.Equal(t, http.StatusConflict, rec.Code)
		rec = env.do(http.MethodPut, "/v1/tickets/"+tk.ID+"/close", adminToken)
		assert.Equal(t, http.StatusConflict, rec.Code)

		rec = env.do(http.MethodGet, "/v1/tickets?status=closed", adminToken)
		require.Equal(t, http.StatusOK, rec.Code)
		var tickets []support.Ticket
		unmarshal(t, rec, &tickets)
		if assert.Len(t, tickets, 1) {
			assert.Equal(t, tk.ID, tickets[0].ID)
		}
	})
}
