package tests

import (
	"bytes"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	. "github.com/trezcool/kanisa/apps/api/echo"
	"github.com/trezcool/kanisa/core"
	"github.com/trezcool/kanisa/core/attendance"
	"github.com/trezcool/kanisa/core/calendar"
	"github.com/trezcool/kanisa/core/followup"
	"github.com/trezcool/kanisa/core/person"
	"github.com/trezcool/kanisa/core/staff"
	appfs "github.com/trezcool/kanisa/fs"
	"github.com/trezcool/kanisa/services/email"
	"github.com/trezcool/kanisa/services/logger"
	"github.com/trezcool/kanisa/storage/database/inmem"
	"github.com/trezcool/kanisa/tests"
)

// 2024-05-08 is a Wednesday; its service week is testutil.Friday(0).
var now = time.Date(2024, time.May, 8, 12, 0, 0, 0, time.UTC)

type testApp struct {
	server    *Server
	conf      *core.Config
	people    person.Repository
	records   attendance.Repository
	ignores   followup.IgnoreRepository
	staffRepo staff.Repository
}

func setup(t *testing.T) *testApp {
	conf := testutil.NewConfig()
	conf.Debug = false
	conf.FollowUp.TimeZone = "UTC"

	// set up DB & repos
	db := inmemdb.Open()
	app := &testApp{
		conf:      conf,
		people:    inmemdb.NewPersonRepository(db),
		records:   inmemdb.NewAttendanceRepository(db),
		ignores:   inmemdb.NewIgnoreRepository(db),
		staffRepo: inmemdb.NewStaffRepository(db),
	}

	// set up services
	logger := logsvc.NewRollbarLogger(log.New(io.Discard, "", 0), conf)
	renderer, err := core.NewEmailRenderer(appfs.FS, appfs.EmailTemplatesDir, conf)
	if err != nil {
		t.Fatalf("setup() failed: %v", err)
	}
	mailSvc := emailsvc.NewConsoleServiceMock(renderer, logger, conf)
	validate, translator := testutil.NewValidator()
	cal := calendar.New(time.UTC, func() time.Time { return now })

	// set up server
	app.server = NewServer(conf, logger, &Deps{
		FollowUpSvc: followup.NewService(app.people, app.records, app.ignores, cal, conf, validate, translator, mailSvc),
		StaffSvc:    staff.NewService(app.staffRepo, validate, translator),
		Validate:    validate,
		Translator:  translator,
	})
	return app
}

func (app *testApp) serve(req *http.Request, rec *httptest.ResponseRecorder) {
	app.server.ServeHTTP(rec, req)
}

func (app *testApp) createStaff(t *testing.T, uname string, roles ...string) staff.Staff {
	return testutil.CreateStaff(t, app.staffRepo, "Staff "+uname, uname, uname+"@test.eg", "Secret1234", roles, true)
}

func (app *testApp) token(t *testing.T, s staff.Staff) string {
	token, err := GenerateToken(app.conf, NewStaffClaims(app.conf, s))
	if err != nil {
		t.Fatalf("token() failed: %v", err)
	}
	return token
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

var errMissingToken = httpErr{Error: "missing or malformed jwt"}

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

func marshalObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marshalObj() failed: %v", err)
	}
	return data
}

func unmarshal(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("unmarshal(%s) failed: %v", rec.Body.String(), err)
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
	assert.Equal(t, tt.wantCode, rec.Code, "code")
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

func runHTTPTests(t *testing.T, app *testApp, tests []httpTest) {
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			method := tt.method
			if method == "" {
				method = http.MethodGet
			}
			req, rec := newAuthRequest(method, tt.path, tt.token, tt.body)
			app.serve(req, rec)
			checkCodeAndData(t, tt, rec)
		})
	}
}
