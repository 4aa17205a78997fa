package echoapi

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/campus/core/catalog"
	"github.com/trezcool/campus/core/course"
	"github.com/trezcool/campus/core/user"
	"github.com/trezcool/campus/tests"
)

// post creates a document and returns its id.
func (app *testApp) post(t *testing.T, path string, by user.User, body string) string {
	rec := app.serve(http.MethodPost, path, app.getToken(t, by), []byte(body))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created dataBody[struct {
		ID string `json:"id"`
	}]
	decode(t, rec, &created)
	return created.Data.ID
}

func (app *testApp) list(t *testing.T, path string, by user.User) listBody {
	rec := app.serve(http.MethodGet, path, app.getToken(t, by))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var body listBody
	decode(t, rec, &body)
	return body
}

func Test_catalogApi_departments(t *testing.T) {
	app := setup(t)
	fx := app.fixtures(t)

	const cse = `{"name":"Computer Science","code":"cse","description":"CS and engineering"}`
	id := app.post(t, "/api/departments", fx.staff, cse)
	path := "/api/departments/" + id

	tests := []httpTest{
		{name: "anyone reads", path: path, token: app.getToken(t, fx.student), wantCode: http.StatusOK},
		{name: "anyone lists", path: "/api/departments", token: app.getToken(t, fx.messSupervisor), wantCode: http.StatusOK},
		{
			name: "student cannot create", method: http.MethodPost, path: "/api/departments", token: app.getToken(t, fx.student),
			body: []byte(`{"name":"Mechanical","code":"ME"}`), wantCode: http.StatusForbidden, wantData: marshalObj(t, errForbiddenBody),
		},
		{
			name: "hod cannot create", method: http.MethodPost, path: "/api/departments", token: app.getToken(t, fx.hod),
			body: []byte(`{"name":"Mechanical","code":"ME"}`), wantCode: http.StatusForbidden,
		},
		{
			name: "code is unique", method: http.MethodPost, path: "/api/departments", token: app.getToken(t, fx.admin),
			body: []byte(cse), wantCode: http.StatusConflict, wantData: []byte(`{"error":"department already exists"}`),
		},
		{
			name: "code is alphanumeric", method: http.MethodPost, path: "/api/departments", token: app.getToken(t, fx.admin),
			body:     []byte(`{"name":"Mechanical","code":"M-E"}`),
			wantCode: http.StatusBadRequest,
		},
		{
			name: "update", method: http.MethodPut, path: path, token: app.getToken(t, fx.staff),
			body: []byte(`{"name":"Computer Science","code":"CSE","isActive":false}`), wantCode: http.StatusOK,
		},
		{name: "malformed id", path: "/api/departments/42", token: app.getToken(t, fx.staff), wantCode: http.StatusNotFound},
		{name: "requires a token", path: "/api/departments", wantCode: http.StatusUnauthorized, wantData: marshalObj(t, errMissingTokenBody)},
	}
	app.run(t, tests)

	t.Run("isActive filter", func(t *testing.T) {
		app.post(t, "/api/departments", fx.admin, `{"name":"Electronics","code":"ECE"}`)

		inactive := app.list(t, "/api/departments?isActive=false", fx.student)
		require.Len(t, inactive.Data, 1)
		var dept catalog.Department
		require.NoError(t, json.Unmarshal(inactive.Data[0], &dept))
		assert.Equal(t, "CSE", dept.Code)
		assert.False(t, dept.IsActive)
		assert.Equal(t, fx.staff.Profile.ID, dept.CreatedBy)

		assert.Len(t, app.list(t, "/api/departments?isActive=true", fx.student).Data, 1)
		assert.Equal(t, int64(2), app.list(t, "/api/departments", fx.student).Pagination.TotalItems)
	})

	t.Run("delete", func(t *testing.T) {
		rec := app.serve(http.MethodDelete, path, app.getToken(t, fx.admin))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.JSONEq(t, `{"message":"department deleted successfully"}`, rec.Body.String())

		rec = app.serve(http.MethodGet, path, app.getToken(t, fx.admin))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func Test_catalogApi_coursesCreatorScope(t *testing.T) {
	app := setup(t)
	fx := app.fixtures(t)

	const ds = `{"code":"cs201","name":"Data Structures","department":"CSE","credits":4,"semester":3,"type":"theory"}`
	const update = `{"code":"CS201","name":"Data Structures and Algorithms","department":"CSE","credits":4,"semester":3,"type":"theory"}`
	id := app.post(t, "/api/courses", fx.faculty, ds)
	path := "/api/courses/" + id

	tests := []httpTest{
		{
			name: "other faculty cannot update", method: http.MethodPut, path: path, token: app.getToken(t, fx.otherFaculty),
			body: []byte(update), wantCode: http.StatusForbidden, wantData: marshalObj(t, errForbiddenBody),
		},
		{name: "other faculty cannot delete", method: http.MethodDelete, path: path, token: app.getToken(t, fx.otherFaculty), wantCode: http.StatusForbidden},
		{name: "other faculty still reads", path: path, token: app.getToken(t, fx.otherFaculty), wantCode: http.StatusOK},
		{name: "creator updates", method: http.MethodPut, path: path, token: app.getToken(t, fx.faculty), body: []byte(update), wantCode: http.StatusOK},
		{name: "hod updates any course", method: http.MethodPut, path: path, token: app.getToken(t, fx.hod), body: []byte(update), wantCode: http.StatusOK},
		{
			name: "student cannot create", method: http.MethodPost, path: "/api/courses", token: app.getToken(t, fx.student),
			body: []byte(ds), wantCode: http.StatusForbidden,
		},
		{
			name: "type must be known", path: "/api/courses?type=seminar", token: app.getToken(t, fx.student),
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"error":"validation failed","details":[{"field":"type","message":"must be one of [theory lab elective]"}]}`),
		},
	}
	app.run(t, tests)

	t.Run("faculty lists every course", func(t *testing.T) {
		app.post(t, "/api/courses", fx.otherFaculty, `{"code":"EC101","name":"Circuits","department":"ECE","credits":3,"semester":1,"type":"lab"}`)
		body := app.list(t, "/api/courses?ordering=code", fx.faculty)
		require.Len(t, body.Data, 2)

		var first course.Course
		require.NoError(t, json.Unmarshal(body.Data[0], &first))
		assert.Equal(t, "CS201", first.Code)
		assert.Equal(t, "Data Structures and Algorithms", first.Name)
		assert.Equal(t, fx.faculty.Profile.ID, first.CreatedBy, "updates keep the creator")
	})

	t.Run("creator deletes", func(t *testing.T) {
		rec := app.serve(http.MethodDelete, path, app.getToken(t, fx.faculty))
		assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	})
}

func Test_catalogApi_messMenu(t *testing.T) {
	app := setup(t)
	fx := app.fixtures(t)

	const lunch = `{"day":"Monday","mealType":"lunch","items":["Rice","Dal"," Paneer "],"timing":"12:30-14:00"}`

	t.Run("supervisor writes", func(t *testing.T) {
		id := app.post(t, "/api/mess-menu", fx.messSupervisor, lunch)

		rec := app.serve(http.MethodGet, "/api/mess-menu/"+id, app.getToken(t, fx.student))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var got dataBody[catalog.MessMenu]
		decode(t, rec, &got)
		assert.Equal(t, "monday", got.Data.Day)
		assert.Equal(t, []string{"Rice", "Dal", "Paneer"}, got.Data.Items)
	})

	tests := []httpTest{
		{
			name: "same meal twice", method: http.MethodPost, path: "/api/mess-menu", token: app.getToken(t, fx.admin),
			body: []byte(lunch), wantCode: http.StatusConflict, wantData: []byte(`{"error":"mess menu already exists"}`),
		},
		{
			name: "warden cannot write", method: http.MethodPost, path: "/api/mess-menu", token: app.getToken(t, fx.warden),
			body: []byte(`{"day":"monday","mealType":"dinner","items":["Roti"]}`), wantCode: http.StatusForbidden,
		},
		{
			name: "staff cannot write", method: http.MethodPost, path: "/api/mess-menu", token: app.getToken(t, fx.staff),
			body: []byte(`{"day":"monday","mealType":"dinner","items":["Roti"]}`), wantCode: http.StatusForbidden,
		},
		{
			name: "items are required", method: http.MethodPost, path: "/api/mess-menu", token: app.getToken(t, fx.messSupervisor),
			body:     []byte(`{"day":"monday","mealType":"dinner"}`),
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"error":"validation failed","details":[{"field":"items","message":"this field is required"}]}`),
		},
	}
	app.run(t, tests)

	t.Run("day filter", func(t *testing.T) {
		app.post(t, "/api/mess-menu", fx.messSupervisor, `{"day":"tuesday","mealType":"lunch","items":["Biryani"]}`)
		assert.Len(t, app.list(t, "/api/mess-menu?day=TUESDAY", fx.student).Data, 1)
		assert.Len(t, app.list(t, "/api/mess-menu", fx.student).Data, 2)
	})
}

func Test_catalogApi_inactiveProfile(t *testing.T) {
	app := setup(t)
	fx := app.fixtures(t)
	staff := testutil.Deactivate(t, app.usrSvc, fx.staff)
	token := app.getToken(t, staff)

	tests := []httpTest{
		{name: "reads still work", path: "/api/holidays", token: token, wantCode: http.StatusOK},
		{
			name: "writes are refused", method: http.MethodPost, path: "/api/holidays", token: token,
			body: []byte(`{"name":"Diwali","date":"2026-11-08","type":"national"}`), wantCode: http.StatusForbidden,
			wantData: marshalObj(t, errForbiddenBody),
		},
	}
	app.run(t, tests)
}
