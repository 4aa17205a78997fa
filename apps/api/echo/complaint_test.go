package echoapi

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/campus/core/complaint"
	"github.com/trezcool/campus/core/user"
	"github.com/trezcool/campus/tests"
)

func (app *testApp) fileComplaint(t *testing.T, by user.User, title string) complaint.Complaint {
	rec := app.serve(http.MethodPost, "/api/complaints", app.getToken(t, by), marshalObj(t, map[string]string{
		"title":       title,
		"description": "The ceiling fan stopped working last night.",
		"category":    "Electrical",
	}))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created dataBody[complaint.Complaint]
	decode(t, rec, &created)
	return created.Data
}

func (app *testApp) listComplaints(t *testing.T, by user.User, query string) []complaint.Complaint {
	rec := app.serve(http.MethodGet, "/api/complaints"+query, app.getToken(t, by))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var body listBody
	decode(t, rec, &body)
	out := make([]complaint.Complaint, 0, len(body.Data))
	for _, raw := range body.Data {
		var c complaint.Complaint
		require.NoError(t, json.Unmarshal(raw, &c))
		out = append(out, c)
	}
	return out
}

func complaintIDs(cs []complaint.Complaint) []string {
	out := make([]string, 0, len(cs))
	for _, c := range cs {
		out = append(out, c.ID.Hex())
	}
	return out
}

func Test_complaintApi_create(t *testing.T) {
	app := setup(t)
	fx := app.fixtures(t)

	t.Run("student files", func(t *testing.T) {
		c := app.fileComplaint(t, fx.student, "Broken fan in room")
		assert.Equal(t, complaint.StatusOpen, c.Status)
		assert.Equal(t, fx.student.Profile.ID, c.StudentID)
		assert.Equal(t, "B1", c.StudentInfo.HostelBlock)
		assert.Equal(t, "CSE001", c.StudentInfo.RollNumber)
		assert.Equal(t, "electrical", c.Category)
		assert.Equal(t, "medium", c.Priority)
	})

	tests := []httpTest{
		{
			name: "title is required", method: http.MethodPost, path: "/api/complaints", token: app.getToken(t, fx.student),
			body:     []byte(`{"description":"The ceiling fan stopped working.","category":"electrical"}`),
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"error":"validation failed","details":[{"field":"title","message":"this field is required"}]}`),
		},
		{
			name: "warden cannot file", method: http.MethodPost, path: "/api/complaints", token: app.getToken(t, fx.warden),
			body:     []byte(`{"title":"Broken fan","description":"The ceiling fan stopped working.","category":"electrical"}`),
			wantCode: http.StatusForbidden, wantData: marshalObj(t, errForbiddenBody),
		},
		{
			name: "admin cannot file", method: http.MethodPost, path: "/api/complaints", token: app.getToken(t, fx.admin),
			body:     []byte(`{"title":"Broken fan","description":"The ceiling fan stopped working.","category":"electrical"}`),
			wantCode: http.StatusForbidden,
		},
	}
	app.run(t, tests)

	t.Run("every violation at once", func(t *testing.T) {
		rec := app.serve(http.MethodPost, "/api/complaints", app.getToken(t, fx.student),
			[]byte(`{"title":"Fan","description":"short","category":"weather","priority":"asap"}`))
		require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
		var body httpErr
		decode(t, rec, &body)
		assert.Equal(t, "validation failed", body.Error)
		fields := make([]string, 0, len(body.Details))
		for _, d := range body.Details {
			fields = append(fields, d.Field)
		}
		assert.ElementsMatch(t, []string{"title", "description", "category", "priority"}, fields)
		assert.Len(t, app.listComplaints(t, fx.admin, ""), 1, "nothing was stored")
	})
}

func Test_complaintApi_createWithoutHostel(t *testing.T) {
	app := setup(t)
	attrs := user.Attributes{RollNumber: "CSE009", Branch: "CSE", Section: "A", Year: 1}
	dayScholar := testutil.CreateUser(t, app.usrSvc, "Dora Day", "day@campus.test", user.RoleStudent, attrs)

	rec := app.serve(http.MethodPost, "/api/complaints", app.getToken(t, dayScholar),
		[]byte(`{"title":"Broken fan","description":"The ceiling fan stopped working.","category":"electrical"}`))
	assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"error":"validation failed","details":[{"field":"hostelBlock","message":"you have no hostel block assigned"}]}`, rec.Body.String())
}

func Test_complaintApi_query(t *testing.T) {
	app := setup(t)
	fx := app.fixtures(t)

	mine := app.fileComplaint(t, fx.student, "Broken fan in room")
	theirs := app.fileComplaint(t, fx.otherStudent, "Leaking tap in bathroom")

	t.Run("student sees own only", func(t *testing.T) {
		got := app.listComplaints(t, fx.student, "?studentId="+fx.otherStudent.Profile.ID.Hex())
		assert.ElementsMatch(t, []string{mine.ID.Hex()}, complaintIDs(got))
	})

	t.Run("warden sees own block only", func(t *testing.T) {
		got := app.listComplaints(t, fx.warden, "?hostelBlock=B2")
		assert.ElementsMatch(t, []string{mine.ID.Hex()}, complaintIDs(got))
		got = app.listComplaints(t, fx.otherWarden, "")
		assert.ElementsMatch(t, []string{theirs.ID.Hex()}, complaintIDs(got))
	})

	t.Run("director sees everything", func(t *testing.T) {
		got := app.listComplaints(t, fx.director, "")
		assert.ElementsMatch(t, []string{mine.ID.Hex(), theirs.ID.Hex()}, complaintIDs(got))
	})

	t.Run("search", func(t *testing.T) {
		got := app.listComplaints(t, fx.admin, "?search=TAP")
		assert.ElementsMatch(t, []string{theirs.ID.Hex()}, complaintIDs(got))
	})

	t.Run("new complaints show up in cached lists", func(t *testing.T) {
		require.Len(t, app.listComplaints(t, fx.admin, "?status=open"), 2)
		app.fileComplaint(t, fx.student, "Window does not close")
		assert.Len(t, app.listComplaints(t, fx.admin, "?status=open"), 3)
	})

	tests := []httpTest{
		{name: "faculty cannot list", path: "/api/complaints", token: app.getToken(t, fx.faculty), wantCode: http.StatusForbidden},
		{
			name: "unknown status", path: "/api/complaints?status=lost", token: app.getToken(t, fx.admin),
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"error":"validation failed","details":[{"field":"status","message":"invalid status"}]}`),
		},
	}
	app.run(t, tests)
}

func Test_complaintApi_lifecycle(t *testing.T) {
	app := setup(t)
	fx := app.fixtures(t)

	c := app.fileComplaint(t, fx.student, "Broken fan in room")
	path := "/api/complaints/" + c.ID.Hex()
	status := func(s complaint.Status) []byte {
		return marshalObj(t, map[string]string{"status": string(s), "remarks": "electrician called"})
	}
	completion := marshalObj(t, map[string]string{"feedback": "works again, thanks"})

	wardenToken := app.getToken(t, fx.warden)
	studentToken := app.getToken(t, fx.student)

	tests := []httpTest{
		// reads
		{name: "owner reads", path: path, token: studentToken, wantCode: http.StatusOK},
		{name: "other student cannot read", path: path, token: app.getToken(t, fx.otherStudent), wantCode: http.StatusForbidden},
		{name: "block warden reads", path: path, token: wardenToken, wantCode: http.StatusOK},
		{name: "other block warden cannot read", path: path, token: app.getToken(t, fx.otherWarden), wantCode: http.StatusForbidden},

		// status updates
		{
			name: "other block warden cannot update", method: http.MethodPut, path: path + "/status",
			token: app.getToken(t, fx.otherWarden), body: status(complaint.StatusInProgress),
			wantCode: http.StatusForbidden, wantData: marshalObj(t, errForbiddenBody),
		},
		{
			name: "admin cannot update status", method: http.MethodPut, path: path + "/status",
			token: app.getToken(t, fx.admin), body: status(complaint.StatusInProgress), wantCode: http.StatusForbidden,
		},
		{
			name: "status cannot be skipped", method: http.MethodPut, path: path + "/status",
			token: wardenToken, body: status(complaint.StatusResolved),
			wantCode: http.StatusBadRequest, wantData: []byte(`{"error":"cannot move complaint from open to resolved"}`),
		},
		{
			name: "status must be known", method: http.MethodPut, path: path + "/status",
			token: wardenToken, body: status(complaint.StatusCompleted), wantCode: http.StatusBadRequest,
		},
		{
			name: "completion only from resolved", method: http.MethodPut, path: path + "/complete",
			token: studentToken, body: completion,
			wantCode: http.StatusBadRequest, wantData: []byte(`{"error":"cannot move complaint from open to completed"}`),
		},
		{name: "in progress", method: http.MethodPut, path: path + "/status", token: wardenToken, body: status(complaint.StatusInProgress), wantCode: http.StatusOK},
		{
			name: "owner can no longer withdraw", method: http.MethodDelete, path: path, token: studentToken,
			wantCode: http.StatusBadRequest, wantData: []byte(`{"error":"a complaint in_progress can no longer be withdrawn"}`),
		},
		{name: "resolved", method: http.MethodPut, path: path + "/status", token: wardenToken, body: status(complaint.StatusResolved), wantCode: http.StatusOK},
		{
			name: "other student cannot complete", method: http.MethodPut, path: path + "/complete",
			token: app.getToken(t, fx.otherStudent), body: completion, wantCode: http.StatusForbidden,
		},
		{name: "warden cannot complete", method: http.MethodPut, path: path + "/complete", token: wardenToken, body: completion, wantCode: http.StatusForbidden},
		{name: "owner completes", method: http.MethodPut, path: path + "/complete", token: studentToken, body: completion, wantCode: http.StatusOK},
		{
			name: "completed is final", method: http.MethodPut, path: path + "/status",
			token: wardenToken, body: status(complaint.StatusInProgress), wantCode: http.StatusBadRequest,
		},
		{name: "admin deletes", method: http.MethodDelete, path: path, token: app.getToken(t, fx.admin), wantCode: http.StatusOK},
		{name: "gone", path: path, token: studentToken, wantCode: http.StatusNotFound, wantData: marshalObj(t, errNotFoundBody)},
	}
	app.run(t, tests)
}

func Test_complaintApi_history(t *testing.T) {
	app := setup(t)
	fx := app.fixtures(t)

	c := app.fileComplaint(t, fx.student, "Broken fan in room")
	path := "/api/complaints/" + c.ID.Hex()
	wardenToken := app.getToken(t, fx.warden)

	for _, s := range []complaint.Status{complaint.StatusInProgress, complaint.StatusResolved} {
		rec := app.serve(http.MethodPut, path+"/status", wardenToken, marshalObj(t, map[string]string{"status": string(s)}))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	}
	rec := app.serve(http.MethodPut, path+"/complete", app.getToken(t, fx.student), []byte(`{}`))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var body dataBody[complaint.Complaint]
	decode(t, rec, &body)
	got := body.Data
	assert.Equal(t, complaint.StatusCompleted, got.Status)
	assert.NotNil(t, got.ResolvedAt)
	assert.NotNil(t, got.CompletedAt)
	require.Len(t, got.History, 3)
	assert.Equal(t, complaint.StatusOpen, got.History[0].From)
	assert.Equal(t, fx.warden.Profile.ID, got.History[0].By)
	assert.Equal(t, complaint.StatusCompleted, got.History[2].To)
	assert.Equal(t, fx.student.Profile.ID, got.History[2].By)
}

func Test_complaintApi_withdraw(t *testing.T) {
	app := setup(t)
	fx := app.fixtures(t)

	c := app.fileComplaint(t, fx.student, "Broken fan in room")
	path := "/api/complaints/" + c.ID.Hex()

	tests := []httpTest{
		{name: "other student cannot withdraw", method: http.MethodDelete, path: path, token: app.getToken(t, fx.otherStudent), wantCode: http.StatusForbidden},
		{name: "warden cannot delete", method: http.MethodDelete, path: path, token: app.getToken(t, fx.warden), wantCode: http.StatusForbidden},
		{name: "owner withdraws open complaint", method: http.MethodDelete, path: path, token: app.getToken(t, fx.student), wantCode: http.StatusOK},
	}
	app.run(t, tests)
}
