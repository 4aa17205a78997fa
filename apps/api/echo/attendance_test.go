package echoapi

import (
	"encoding/json"
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/campus/core/attendance"
	"github.com/trezcool/campus/core/user"
)

type mark struct {
	student user.User
	status  attendance.Status
}

func newAttendanceBody(date, startTime, facultyID string, marks ...mark) map[string]interface{} {
	students := make([]map[string]string, 0, len(marks))
	for _, m := range marks {
		students = append(students, map[string]string{
			"studentId":  m.student.Profile.ID.Hex(),
			"name":       m.student.Profile.Name,
			"rollNumber": m.student.Profile.RollNumber,
			"status":     string(m.status),
		})
	}
	body := map[string]interface{}{
		"date":              date,
		"subject":           "Data Structures",
		"startTime":         startTime,
		"endTime":           "17:00",
		"branch":            "CSE",
		"section":           "A",
		"year":              2,
		"semester":          3,
		"studentAttendance": students,
	}
	if facultyID != "" {
		body["facultyId"] = facultyID
	}
	return body
}

// markAttendance creates a record as `by` and returns it.
func (app *testApp) markAttendance(t *testing.T, by user.User, body map[string]interface{}) attendance.Attendance {
	rec := app.serve(http.MethodPost, "/api/attendance", app.getToken(t, by), marshalObj(t, body))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created dataBody[attendance.Attendance]
	decode(t, rec, &created)
	return created.Data
}

func (app *testApp) listAttendance(t *testing.T, token string, query url.Values) []attendance.Attendance {
	path := "/api/attendance"
	if len(query) > 0 {
		path += "?" + query.Encode()
	}
	rec := app.serve(http.MethodGet, path, token)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var body listBody
	decode(t, rec, &body)
	records := make([]attendance.Attendance, 0, len(body.Data))
	for _, raw := range body.Data {
		var a attendance.Attendance
		require.NoError(t, json.Unmarshal(raw, &a))
		records = append(records, a)
	}
	return records
}

func Test_attendanceApi_create(t *testing.T) {
	app := setup(t)
	fx := app.fixtures(t)
	facultyToken := app.getToken(t, fx.faculty)

	body := newAttendanceBody("2026-03-02", "09:00", "", mark{fx.student, attendance.StatusPresent}, mark{fx.otherStudent, attendance.StatusAbsent})

	t.Run("faculty marks own class", func(t *testing.T) {
		a := app.markAttendance(t, fx.faculty, body)
		assert.Equal(t, fx.faculty.Profile.ID, a.ClassInfo.FacultyID)
		assert.Equal(t, fx.faculty.Profile.ID, a.CreatedBy)
		assert.Len(t, a.StudentAttendance, 2)
		assert.Equal(t, 2, a.Summary.TotalStudents)
		assert.Equal(t, 1, a.Summary.Present)
		assert.Equal(t, 1, a.Summary.Absent)
	})

	tests := []httpTest{
		{
			name: "same class twice", method: http.MethodPost, path: "/api/attendance", token: facultyToken,
			body:     marshalObj(t, body),
			wantCode: http.StatusConflict, wantData: marshalObj(t, httpErr{Error: attendance.ErrAlreadyMarked.Error()}),
		},
		{
			name: "faculty marks another faculty's class", method: http.MethodPost, path: "/api/attendance", token: facultyToken,
			body: marshalObj(t, newAttendanceBody("2026-03-02", "11:00", fx.otherFaculty.Profile.ID.Hex(), mark{fx.student, attendance.StatusPresent})),
			wantCode: http.StatusForbidden, wantData: marshalObj(t, errForbiddenBody),
		},
		{
			name: "student cannot mark", method: http.MethodPost, path: "/api/attendance", token: app.getToken(t, fx.student),
			body:     marshalObj(t, newAttendanceBody("2026-03-03", "09:00", "", mark{fx.student, attendance.StatusPresent})),
			wantCode: http.StatusForbidden, wantData: marshalObj(t, errForbiddenBody),
		},
		{
			name: "warden cannot mark", method: http.MethodPost, path: "/api/attendance", token: app.getToken(t, fx.warden),
			body:     marshalObj(t, newAttendanceBody("2026-03-03", "09:00", "", mark{fx.student, attendance.StatusPresent})),
			wantCode: http.StatusForbidden, wantData: marshalObj(t, errForbiddenBody),
		},
		{
			name: "staff marks for a faculty", method: http.MethodPost, path: "/api/attendance", token: app.getToken(t, fx.staff),
			body: marshalObj(t, newAttendanceBody("2026-03-02", "11:00", fx.otherFaculty.Profile.ID.Hex(), mark{fx.student, attendance.StatusLate})),
			wantCode: http.StatusCreated,
		},
	}
	app.run(t, tests)
}

func Test_attendanceApi_createValidation(t *testing.T) {
	app := setup(t)
	fx := app.fixtures(t)
	token := app.getToken(t, fx.faculty)

	details := func(rec []byte) map[string]string {
		var body httpErr
		require.NoError(t, json.Unmarshal(rec, &body))
		out := make(map[string]string)
		for _, d := range body.Details {
			out[d.Field] = d.Error
		}
		return out
	}

	t.Run("empty body", func(t *testing.T) {
		rec := app.serve(http.MethodPost, "/api/attendance", token, []byte(`{}`))
		require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
		got := details(rec.Body.Bytes())
		for _, f := range []string{"date", "subject", "startTime", "endTime", "branch", "section", "year", "semester", "studentAttendance"} {
			assert.Equal(t, "this field is required", got[f], f)
		}
	})

	t.Run("bad values", func(t *testing.T) {
		body := newAttendanceBody("2026-02-30", "18:00", "", mark{fx.student, "sleeping"})
		rec := app.serve(http.MethodPost, "/api/attendance", token, marshalObj(t, body))
		require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
		got := details(rec.Body.Bytes())
		assert.Equal(t, "must be a valid date (YYYY-MM-DD)", got["date"])
		assert.Equal(t, "end time must be after start time", got["endTime"])
		assert.Contains(t, got, "studentAttendance[0].status")
	})

	t.Run("student marked twice", func(t *testing.T) {
		body := newAttendanceBody("2026-03-02", "09:00", "", mark{fx.student, attendance.StatusPresent})
		marks := body["studentAttendance"].([]map[string]string)
		body["studentAttendance"] = append(marks, marks[0])
		rec := app.serve(http.MethodPost, "/api/attendance", token, marshalObj(t, body))
		require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
		assert.Equal(t, "a student can only be marked once per class", details(rec.Body.Bytes())["studentAttendance"])
	})
}

func Test_attendanceApi_query(t *testing.T) {
	app := setup(t)
	fx := app.fixtures(t)

	both := app.markAttendance(t, fx.faculty, newAttendanceBody("2026-03-02", "09:00", "", mark{fx.student, attendance.StatusPresent}, mark{fx.otherStudent, attendance.StatusAbsent}))
	onlyOther := app.markAttendance(t, fx.otherFaculty, newAttendanceBody("2026-03-03", "09:00", "", mark{fx.otherStudent, attendance.StatusPresent}))

	ids := func(records []attendance.Attendance) []string {
		out := make([]string, 0, len(records))
		for _, a := range records {
			out = append(out, a.ID.Hex())
		}
		return out
	}

	t.Run("admin sees everything", func(t *testing.T) {
		got := app.listAttendance(t, app.getToken(t, fx.admin), nil)
		assert.ElementsMatch(t, []string{both.ID.Hex(), onlyOther.ID.Hex()}, ids(got))
	})

	t.Run("admin filters by student", func(t *testing.T) {
		got := app.listAttendance(t, app.getToken(t, fx.admin), url.Values{"studentId": {fx.student.Profile.ID.Hex()}})
		assert.ElementsMatch(t, []string{both.ID.Hex()}, ids(got))
	})

	t.Run("student scope overrides the studentId param", func(t *testing.T) {
		got := app.listAttendance(t, app.getToken(t, fx.student), url.Values{"studentId": {fx.otherStudent.Profile.ID.Hex()}})
		require.Len(t, got, 1)
		assert.Equal(t, both.ID, got[0].ID)
		// only their own mark is returned
		require.Len(t, got[0].StudentAttendance, 1)
		assert.Equal(t, fx.student.Profile.ID, got[0].StudentAttendance[0].StudentID)
	})

	t.Run("faculty scope overrides the facultyId param", func(t *testing.T) {
		got := app.listAttendance(t, app.getToken(t, fx.faculty), url.Values{"facultyId": {fx.otherFaculty.Profile.ID.Hex()}})
		assert.ElementsMatch(t, []string{both.ID.Hex()}, ids(got))
	})

	t.Run("date range", func(t *testing.T) {
		got := app.listAttendance(t, app.getToken(t, fx.staff), url.Values{"dateFrom": {"2026-03-03"}})
		assert.ElementsMatch(t, []string{onlyOther.ID.Hex()}, ids(got))
	})

	tests := []httpTest{
		{name: "warden cannot list", path: "/api/attendance", token: app.getToken(t, fx.warden), wantCode: http.StatusForbidden},
		{
			name: "malformed filter id", path: "/api/attendance?studentId=nope", token: app.getToken(t, fx.admin),
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"error":"validation failed","details":[{"field":"studentId","message":"must be a valid identifier"}]}`),
		},
		{
			name: "unknown ordering", path: "/api/attendance?ordering=-password", token: app.getToken(t, fx.admin),
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"error":"validation failed","details":[{"field":"ordering","message":"cannot order by \"password\""}]}`),
		},
		{
			name: "bad page", path: "/api/attendance?page=0", token: app.getToken(t, fx.admin),
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"error":"validation failed","details":[{"field":"page","message":"must be a positive integer"}]}`),
		},
	}
	app.run(t, tests)
}

func Test_attendanceApi_object(t *testing.T) {
	app := setup(t)
	fx := app.fixtures(t)

	a := app.markAttendance(t, fx.faculty, newAttendanceBody("2026-03-02", "09:00", "", mark{fx.student, attendance.StatusPresent}))
	path := "/api/attendance/" + a.ID.Hex()
	update := marshalObj(t, map[string]interface{}{
		"studentAttendance": []map[string]string{
			{"studentId": fx.student.Profile.ID.Hex(), "status": "excused", "remarks": "medical"},
			{"studentId": fx.otherStudent.Profile.ID.Hex(), "status": "present"},
		},
	})

	tests := []httpTest{
		{name: "owner student reads", path: path, token: app.getToken(t, fx.student), wantCode: http.StatusOK},
		{name: "other student cannot read", path: path, token: app.getToken(t, fx.otherStudent), wantCode: http.StatusForbidden, wantData: marshalObj(t, errForbiddenBody)},
		{name: "other faculty cannot read", path: path, token: app.getToken(t, fx.otherFaculty), wantCode: http.StatusForbidden},
		{name: "director reads", path: path, token: app.getToken(t, fx.director), wantCode: http.StatusOK},
		{name: "malformed id", path: "/api/attendance/42", token: app.getToken(t, fx.admin), wantCode: http.StatusNotFound, wantData: marshalObj(t, errNotFoundBody)},
		{name: "unknown id", path: "/api/attendance/0123456789abcdef01234567", token: app.getToken(t, fx.admin), wantCode: http.StatusNotFound},

		{name: "other faculty cannot update", method: http.MethodPut, path: path, token: app.getToken(t, fx.otherFaculty), body: update, wantCode: http.StatusForbidden},
		{name: "student cannot update", method: http.MethodPut, path: path, token: app.getToken(t, fx.student), body: update, wantCode: http.StatusForbidden},
		{name: "faculty updates", method: http.MethodPut, path: path, token: app.getToken(t, fx.faculty), body: update, wantCode: http.StatusOK},

		{name: "faculty cannot delete", method: http.MethodDelete, path: path, token: app.getToken(t, fx.faculty), wantCode: http.StatusForbidden},
		{name: "staff deletes", method: http.MethodDelete, path: path, token: app.getToken(t, fx.staff), wantCode: http.StatusOK},
		{name: "gone", path: path, token: app.getToken(t, fx.admin), wantCode: http.StatusNotFound},
	}
	app.run(t, tests)
}

func Test_attendanceApi_updateRecomputesSummary(t *testing.T) {
	app := setup(t)
	fx := app.fixtures(t)

	a := app.markAttendance(t, fx.faculty, newAttendanceBody("2026-03-02", "09:00", "", mark{fx.student, attendance.StatusPresent}))
	rec := app.serve(http.MethodPut, "/api/attendance/"+a.ID.Hex(), app.getToken(t, fx.faculty), marshalObj(t, map[string]interface{}{
		"studentAttendance": []map[string]string{
			{"studentId": fx.student.Profile.ID.Hex(), "status": "absent"},
			{"studentId": fx.otherStudent.Profile.ID.Hex(), "status": "late"},
		},
	}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var updated dataBody[attendance.Attendance]
	decode(t, rec, &updated)
	assert.Equal(t, 2, updated.Data.Summary.TotalStudents)
	assert.Equal(t, 0, updated.Data.Summary.Present)
	assert.Equal(t, 1, updated.Data.Summary.Absent)
	assert.Equal(t, 1, updated.Data.Summary.Late)
	assert.Equal(t, a.ClassInfo, updated.Data.ClassInfo)
}

func Test_attendanceApi_studentSummary(t *testing.T) {
	app := setup(t)
	fx := app.fixtures(t)

	app.markAttendance(t, fx.faculty, newAttendanceBody("2026-03-02", "09:00", "", mark{fx.student, attendance.StatusPresent}, mark{fx.otherStudent, attendance.StatusAbsent}))
	app.markAttendance(t, fx.faculty, newAttendanceBody("2026-03-03", "09:00", "", mark{fx.student, attendance.StatusAbsent}))

	path := "/api/attendance/students/" + fx.student.Profile.ID.Hex() + "/summary"

	t.Run("own summary", func(t *testing.T) {
		rec := app.serve(http.MethodGet, path, app.getToken(t, fx.student))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var body dataBody[attendance.StudentSummary]
		decode(t, rec, &body)
		assert.Equal(t, fx.student.Profile.ID, body.Data.StudentID)
		assert.Equal(t, 2, body.Data.Overall.Total)
		assert.Equal(t, 1, body.Data.Overall.Present)
		assert.Equal(t, 1, body.Data.Overall.Absent)
		assert.InDelta(t, 50.0, body.Data.Overall.Percentage, 0.01)
		require.Len(t, body.Data.Subjects, 1)
		assert.Equal(t, "Data Structures", body.Data.Subjects[0].Subject)
	})

	t.Run("studentId param cannot switch student", func(t *testing.T) {
		rec := app.serve(http.MethodGet, path+"?studentId="+fx.otherStudent.Profile.ID.Hex(), app.getToken(t, fx.student))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var body dataBody[attendance.StudentSummary]
		decode(t, rec, &body)
		assert.Equal(t, 2, body.Data.Overall.Total)
	})

	tests := []httpTest{
		{name: "another student's summary", path: path, token: app.getToken(t, fx.otherStudent), wantCode: http.StatusForbidden},
		{name: "faculty reads", path: path, token: app.getToken(t, fx.faculty), wantCode: http.StatusOK},
		{name: "warden cannot read", path: path, token: app.getToken(t, fx.warden), wantCode: http.StatusForbidden},
		{name: "malformed id", path: "/api/attendance/students/x/summary", token: app.getToken(t, fx.admin), wantCode: http.StatusNotFound},
	}
	app.run(t, tests)
}
