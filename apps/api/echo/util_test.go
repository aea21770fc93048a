package echoapi_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	. "github.com/trezcool/masomo-portal/apps/api/echo"
	"github.com/trezcool/masomo-portal/core"
	"github.com/trezcool/masomo-portal/core/classroom"
	"github.com/trezcool/masomo-portal/core/user"
	"github.com/trezcool/masomo-portal/fs"
	"github.com/trezcool/masomo-portal/services/email"
	"github.com/trezcool/masomo-portal/storage/inmem"
	"github.com/trezcool/masomo-portal/testutil"
)

var errMissingToken = httpErr{Error: "missing or malformed jwt"}

type fixture struct {
	testutil.Classroom
	app          *Server
	conf         *core.Config
	usrRepo      user.Repository
	classroomSvc *classroom.Service
}

func setup(t *testing.T) fixture {
	t.Helper()
	require.NoError(t, core.ParseEmailTemplates(appfs.FS, true))
	now := time.Date(2021, time.February, 2, 10, 0, 0, 0, time.UTC)
	classroom.NowFunc = func() time.Time { return now }
	t.Cleanup(func() { classroom.NowFunc = time.Now })

	conf := core.NewTestConfig()
	db := inmemdb.Open()
	usrRepo := inmemdb.NewUserRepository(db)
	repo := inmemdb.NewClassroomRepository(db)
	usrSvc := user.NewService(usrRepo)
	classroomSvc := classroom.NewService(repo, usrSvc, emailsvc.NewConsoleServiceMock(conf), nil)
	validate, translator := testutil.NewValidator()

	app := NewServer(&Options{
		Conf:           conf,
		Validate:       validate,
		Translator:     translator,
		UserSvc:        usrSvc,
		ClassroomSvc:   classroomSvc,
		DisableReqLogs: true,
	})
	return fixture{
		Classroom:    testutil.SeedClassroom(t, usrRepo, repo),
		app:          app,
		conf:         conf,
		usrRepo:      usrRepo,
		classroomSvc: classroomSvc,
	}
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	header   map[string]string
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

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

func (f fixture) serve(tt httpTest) *httptest.ResponseRecorder {
	method := tt.method
	if method == "" {
		method = http.MethodGet
	}
	req, rec := newAuthRequest(method, tt.path, tt.token, tt.body)
	for k, v := range tt.header {
		req.Header.Set(k, v)
	}
	f.app.ServeHTTP(rec, req)
	return rec
}

func getToken(t *testing.T, conf *core.Config, usr user.User, origIat ...int64) string {
	token, err := GenerateToken(conf, GetUserClaims(conf, usr, origIat...))
	if err != nil {
		t.Fatalf("getToken() failed: %v", err)
	}
	return token
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
	t.Helper()
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
