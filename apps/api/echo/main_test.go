package echoapi_test

import (
	"bytes"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/stretchr/testify/require"

	. "github.com/trezcool/pondok/apps/api/echo"
	"github.com/trezcool/pondok/core"
	"github.com/trezcool/pondok/core/report"
	"github.com/trezcool/pondok/fs"
	"github.com/trezcool/pondok/services/email"
	"github.com/trezcool/pondok/services/logger"
	"github.com/trezcool/pondok/services/report"
	"github.com/trezcool/pondok/tests"
)

var errMissingToken = httpErr{Error: "missing or malformed jwt"}

type testServer struct {
	*Server
	env    *testutil.Env
	seeded testutil.Seeded
	outbox *emailsvc.ConsoleServiceMock
}

func setup(t *testing.T) testServer {
	env := testutil.NewEnv()
	seeded := testutil.Seed(t, env, 2024)

	logger := logsvc.NewRollbarLogger(log.New(io.Discard, "", 0), env.Conf)
	logger.Enable(false)
	tmpls, err := core.LoadEmailTemplates(env.Conf, fs.EmailTemplates, fs.EmailTemplatesDir, true)
	require.NoError(t, err)
	outbox := emailsvc.NewConsoleServiceMock(env.Conf, tmpls, logger)

	srv := NewServer(ServerDeps{
		Conf:           env.Conf,
		Logger:         logger,
		Validate:       env.Validate,
		Translator:     env.Translator,
		DisableReqLogs: true,
		Auth:           env.Auth,
		Students:       env.Students,
		Teachers:       env.Teachers,
		Schools:        env.Schools,
		Semesters:      env.Semesters,
		Curriculum:     env.Curriculum,
		Grading:        env.Grading,
		Families:       env.Families,
		Addresses:      env.Addresses,
		Profiles:       env.Profiles,
		Reports:        report.NewBuilder(env.Students, env.Schools, env.Semesters, env.Grading),
		Mailer:         report.NewMailer(outbox),
		Renderers: report.Renderers{
			"pdf":  reportsvc.NewPDFRenderer(env.Conf),
			"xlsx": reportsvc.NewXLSXRenderer(),
		},
	})
	return testServer{Server: srv, env: env, seeded: seeded, outbox: outbox}
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

func (s testServer) do(method, path, token string, data ...[]byte) *httptest.ResponseRecorder {
	req, rec := newAuthRequest(method, path, token, data...)
	s.ServeHTTP(rec, req)
	return rec
}

func (s testServer) run(t *testing.T, tests []httpTest) {
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			method := tt.method
			if method == "" {
				method = http.MethodGet
			}
			if tt.wantCode == 0 {
				tt.wantCode = http.StatusOK
			}
			checkCodeAndData(t, tt, s.do(method, tt.path, tt.token, tt.body))
		})
	}
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

func getToken(t *testing.T, conf *core.Config, p core.Principal) string {
	token, err := GenerateToken(conf, NewClaims(conf, p))
	if err != nil {
		t.Fatalf("getToken() failed: %v", err)
	}
	return token
}

func studentPrincipal(id string) core.Principal {
	return core.Principal{ID: id, Kind: core.PrincipalStudent}
}

func teacherPrincipal(id string) core.Principal {
	return core.Principal{ID: id, Kind: core.PrincipalTeacher}
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj() failed: %v", err)
	}
	return data
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
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
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

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}
