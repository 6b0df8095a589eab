package tests

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/kanisa/core/staff"
	"github.com/trezcool/kanisa/tests"
)

func TestAttendanceApi_weeks(t *testing.T) {
	app := setup(t)
	pop := app.seed(t)
	teacher := app.token(t, app.createStaff(t, "teacher", staff.RoleClassTeacher))

	path := "/v1/attendance/children/" + pop.twoAgo.ID + "/weeks?lookbackWeeks=4"
	req, rec := newAuthRequest(http.MethodGet, path, teacher)
	app.serve(req, rec)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var weeks []struct {
		Week    string                 `json:"week"`
		Present bool                   `json:"present"`
		Record  map[string]interface{} `json:"record"`
	}
	unmarshal(t, rec, &weeks)
	require.Len(t, weeks, 4)
	for i, wk := range weeks {
		assert.Equal(t, testutil.Friday(i).String(), wk.Week)
	}
	assert.Equal(t, []bool{false, false, true, false}, []bool{weeks[0].Present, weeks[1].Present, weeks[2].Present, weeks[3].Present})
	require.NotNil(t, weeks[0].Record)
	assert.Equal(t, "absent", weeks[0].Record["status"])
	assert.Equal(t, "sick", weeks[0].Record["notes"])
	assert.Nil(t, weeks[1].Record)

	runHTTPTests(t, app, []httpTest{
		{name: "auth required", path: path, wantCode: http.StatusUnauthorized},
		{
			name: "class teachers do not follow servants up", path: "/v1/attendance/servants/" + pop.servant.ID + "/weeks", token: teacher,
			wantCode: http.StatusForbidden,
		},
		{name: "unknown population", path: "/v1/attendance/parents/" + pop.twoAgo.ID + "/weeks", token: teacher, wantCode: http.StatusBadRequest},
		{name: "population mismatch", path: "/v1/attendance/child/" + pop.servant.ID + "/weeks", token: teacher, wantCode: http.StatusNotFound},
		{name: "unknown person", path: "/v1/attendance/child/unknown/weeks", token: teacher, wantCode: http.StatusNotFound},
		{name: "zero lookback", path: "/v1/attendance/child/" + pop.twoAgo.ID + "/weeks?lookbackWeeks=0", token: teacher, wantCode: http.StatusBadRequest},
	})
}
