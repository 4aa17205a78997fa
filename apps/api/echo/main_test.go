package echoapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/access"
	"github.com/trezcool/campus/core/attendance"
	"github.com/trezcool/campus/core/complaint"
	"github.com/trezcool/campus/core/user"
	cachesvc "github.com/trezcool/campus/services/cache"
	emailsvc "github.com/trezcool/campus/services/email"
	"github.com/trezcool/campus/storage/database"
	"github.com/trezcool/campus/storage/database/inmem"
	"github.com/trezcool/campus/tests"
)

type testApp struct {
	srv     *Server
	conf    *core.Config
	repos   database.Repositories
	usrSvc  *user.Service
	mailSvc *emailsvc.ConsoleServiceMock
	errs    *errorRecorder
}

// errorRecorder keeps the errors passed to Logger.Error.
type errorRecorder struct {
	core.Logger
	mu     sync.Mutex
	errors []error
}

func (r *errorRecorder) Error(msg string, args ...interface{}) {
	r.mu.Lock()
	for _, arg := range args {
		if err, ok := arg.(error); ok {
			r.errors = append(r.errors, err)
		}
	}
	r.mu.Unlock()
	r.Logger.Error(msg, args...)
}

func (r *errorRecorder) Errors() []error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]error(nil), r.errors...)
}

func setup(t *testing.T) *testApp {
	conf := core.NewTestConfig()
	logger := &errorRecorder{Logger: testutil.NewLogger(conf)}
	validate, translator := testutil.NewValidator()

	// set up stores & services
	repos := inmem.NewRepositories()
	mailSvc := emailsvc.NewConsoleServiceMock(conf, logger)
	usrSvc := user.NewService(repos.Accounts, repos.Profiles, mailSvc, conf)

	cache := cachesvc.NewMemoryCache(time.Minute, time.Minute)
	t.Cleanup(func() { _ = cache.Close() })

	// set up server
	srv := NewServer(
		"",  /* addr */
		nil, /* shutdown */
		&Deps{
			Conf:           conf,
			Logger:         logger,
			Validate:       validate,
			Translator:     translator,
			Authorizer:     access.NewAuthorizer(access.DefaultPolicy),
			Cache:          cache,
			UserSvc:        usrSvc,
			ComplaintSvc:   complaint.NewService(repos.Complaints),
			AttendanceSvc:  attendance.NewService(repos.Attendance),
			Catalog:        NewCatalogServices(repos),
			DisableReqLogs: true,
		},
	)
	return &testApp{srv: srv, conf: conf, repos: repos, usrSvc: usrSvc, mailSvc: mailSvc, errs: logger}
}

type httpErr struct {
	Error   string            `json:"error"`
	Details []core.FieldError `json:"details,omitempty"`
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

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

// serve runs one request through the app.
func (app *testApp) serve(method, path, token string, data ...[]byte) *httptest.ResponseRecorder {
	req, rec := newAuthRequest(method, path, token, data...)
	app.srv.ServeHTTP(rec, req)
	return rec
}

func (app *testApp) run(t *testing.T, tests []httpTest) {
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			method := tt.method
			if method == "" {
				method = http.MethodGet
			}
			rec := app.serve(method, tt.path, tt.token, tt.body)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func (app *testApp) getToken(t *testing.T, usr user.User) string {
	token, err := app.srv.Tokens().Issue(usr.Account)
	if err != nil {
		t.Fatalf("getToken() failed: %v", err)
	}
	return token
}

func marshalObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marshalObj() failed: %v", err)
	}
	return data
}

// decode reads the body of rec into v.
func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
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

// checkCodeAndData checks the status code, and the body when the test names one.
func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v; body %s", rec.Code, tt.wantCode, rec.Body.String())
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

// listBody is a list response with its items left raw.
type listBody struct {
	Data       []json.RawMessage `json:"data"`
	Pagination core.PageInfo     `json:"pagination"`
}

type dataBody[T any] struct {
	Data    T      `json:"data"`
	Message string `json:"message"`
}

// fixtures is the cast shared by most tests.
type fixtures struct {
	admin, staff, director, hod   user.User
	faculty, otherFaculty         user.User
	student, otherStudent, warden user.User
	otherWarden, messSupervisor   user.User
}

func (app *testApp) fixtures(t *testing.T) fixtures {
	svc := app.usrSvc
	return fixtures{
		admin:          testutil.CreateUser(t, svc, "Ada Admin", "admin@campus.test", user.RoleSuperAdmin, user.Attributes{}),
		staff:          testutil.CreateUser(t, svc, "Sam Staff", "staff@campus.test", user.RoleAcademicStaff, user.Attributes{}),
		director:       testutil.CreateUser(t, svc, "Dana Director", "director@campus.test", user.RoleDirector, user.Attributes{}),
		hod:            testutil.CreateUser(t, svc, "Hugo Hod", "hod@campus.test", user.RoleHOD, testutil.Faculty("CSE")),
		faculty:        testutil.CreateUser(t, svc, "Fay Faculty", "faculty@campus.test", user.RoleFaculty, testutil.Faculty("CSE")),
		otherFaculty:   testutil.CreateUser(t, svc, "Otto Faculty", "faculty2@campus.test", user.RoleFaculty, testutil.Faculty("ECE")),
		student:        testutil.CreateUser(t, svc, "Stella Student", "student@campus.test", user.RoleStudent, testutil.Student("CSE001", "B1")),
		otherStudent:   testutil.CreateUser(t, svc, "Oscar Student", "student2@campus.test", user.RoleStudent, testutil.Student("CSE002", "B2")),
		warden:         testutil.CreateUser(t, svc, "Wanda Warden", "warden@campus.test", user.RoleHostelWarden, testutil.Warden("B1")),
		otherWarden:    testutil.CreateUser(t, svc, "Walt Warden", "warden2@campus.test", user.RoleHostelWarden, testutil.Warden("B2")),
		messSupervisor: testutil.CreateUser(t, svc, "Mia Mess", "mess@campus.test", user.RoleMessSupervisor, user.Attributes{}),
	}
}

var (
	errMissingTokenBody = httpErr{Error: "missing or malformed bearer token"}
	errForbiddenBody    = httpErr{Error: core.ErrForbidden.Error()}
	errNotFoundBody     = httpErr{Error: core.ErrNotFound.Error()}
)
