package echoapi_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/estetika/academy/apps/api/echo"
	"github.com/estetika/academy/core"
	"github.com/estetika/academy/core/billing"
	"github.com/estetika/academy/core/client"
	"github.com/estetika/academy/core/learning"
	"github.com/estetika/academy/core/program"
	"github.com/estetika/academy/core/support"
	"github.com/estetika/academy/core/user"
	"github.com/estetika/academy/services/email"
	"github.com/estetika/academy/storage/database/dummy"
	"github.com/estetika/academy/tests"
)

const goodPwd = "Xk9#mQ2!vL"

var errMissingToken = httpErr{Error: "missing or malformed jwt"}

type testEnv struct {
	app      *Server
	conf     *core.Config
	usrRepo  user.Repository
	programs *program.Service
	learning *learning.Service
	support  *support.Service
	billing  *billing.Service
	client   *client.Service
	mail     *emailsvc.ConsoleServiceMock
}

func setup(t *testing.T) *testEnv {
	// set up DB & repos
	db, err := dummydb.Open()
	require.NoError(t, err)
	usrRepo := dummydb.NewUserRepository(db)

	// set up services
	conf := core.NewTestConfig()
	logger := testutil.NewLogger(t)
	mailSvc := emailsvc.NewConsoleServiceMock(logger, conf)
	usrSvc := user.NewServiceMock(usrRepo, mailSvc, logger, conf)
	progSvc := program.NewService(db, dummydb.NewProgramRepository(db), logger)
	learnSvc := learning.NewService(db, dummydb.NewLearningRepository(db), progSvc, usrSvc, mailSvc, logger, conf)
	supportSvc := support.NewService(dummydb.NewSupportRepository(db), usrSvc, mailSvc, logger, conf)
	billingSvc := billing.NewService(dummydb.NewBillingRepository(db), usrSvc, progSvc, logger)
	clientSvc := client.NewService(dummydb.NewClientRepository(db), usrSvc, logger)

	enLocale := en.New()
	translator, _ := ut.New(enLocale, enLocale).GetTranslator("en")
	validate := validator.New()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	program.InitValidators(validate, translator)
	billing.InitValidators(validate, translator)

	// set up server
	app := NewServer(ServerDeps{
		Conf:        conf,
		Logger:      logger,
		UserSvc:     usrSvc,
		ProgramSvc:  progSvc,
		LearningSvc: learnSvc,
		SupportSvc:  supportSvc,
		BillingSvc:  billingSvc,
		ClientSvc:   clientSvc,
		Validate:    validate,
		Translator:  translator,
	})
	return &testEnv{
		app:      app,
		conf:     conf,
		usrRepo:  usrRepo,
		programs: progSvc,
		learning: learnSvc,
		support:  supportSvc,
		billing:  billingSvc,
		client:   clientSvc,
		mail:     mailSvc,
	}
}

// do serves one request and returns the recorded response.
func (env *testEnv) do(method, path, token string, data ...[]byte) *httptest.ResponseRecorder {
	req, rec := newAuthRequest(method, path, token, data...)
	env.app.ServeHTTP(rec, req)
	return rec
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func getToken(t *testing.T, conf *core.Config, usr user.User) string {
	token, err := GenerateToken(GetUserClaims(usr, conf), conf.SecretKey)
	if err != nil {
		t.Fatalf("getToken(): %v", err)
	}
	return token
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj(): %v", err)
	}
	return data
}

func unmarshal(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("unmarshal(%s): %v", rec.Body.String(), err)
	}
}

func jsonBytesEqual(b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	return reflect.DeepEqual(j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	assert.Equal(t, tt.wantCode, rec.Code, "body: %s", rec.Body.String())
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}

func runHTTPTests(t *testing.T, env *testEnv, tests []httpTest) {
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			method := tt.method
			if method == "" {
				method = http.MethodGet
			}
			checkCodeAndData(t, tt, env.do(method, tt.path, tt.token, tt.body))
		})
	}
}
