package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/access"
	"github.com/trezcool/campus/core/attendance"
	"github.com/trezcool/campus/core/user"
)

const attendanceResource = "attendance"

var attendanceOrdering = orderable{
	"id":        "_id",
	"createdAt": "createdAt",
	"updatedAt": "updatedAt",
	"date":      "classInfo.date",
	"subject":   "classInfo.subject",
	"startTime": "classInfo.startTime",
}

type attendanceApi struct {
	*Server
	svc *attendance.Service
}

func registerAttendanceAPI(s *Server, ag *echo.Group) {
	api := attendanceApi{Server: s, svc: s.deps.AttendanceSvc}

	ag.GET("", api.query, s.guard(access.Attendance.List))
	ag.POST("", api.create, s.guard(access.Attendance.Create))
	ag.GET("/students/:id/summary", api.studentSummary, s.guard(access.AttendanceStudentSummary))
	ag.GET("/:id", api.retrieve, s.guard(access.Attendance.Read))
	ag.PUT("/:id", api.update, s.guard(access.Attendance.Update))
	ag.DELETE("/:id", api.destroy, s.guard(access.Attendance.Delete))
}

// forViewer trims the marks of other students when a student is looking.
func forViewer(a attendance.Attendance, prof user.Profile) attendance.Attendance {
	if prof.Role == user.RoleStudent {
		return a.OnlyFor(prof.ID)
	}
	return a
}

// Handlers

func (api *attendanceApi) query(ctx echo.Context) error {
	usr, err := contextUser(ctx)
	if err != nil {
		return err
	}
	scope, restricted, err := api.authz.Narrow(access.Attendance.List, usr.Profile)
	if err != nil {
		return err
	}

	filter := new(attendance.QueryFilter)
	if err := bindFilter(ctx, filter); err != nil {
		return err
	}
	q, err := filter.Query(scope, restricted)
	if err != nil {
		return err
	}
	opts, err := listParams(ctx, attendanceOrdering)
	if err != nil {
		return err
	}

	return api.cache.serve(ctx, attendanceResource, usr, scope, func() (interface{}, error) {
		records, total, err := api.svc.Query(ctx.Request().Context(), q, opts)
		if err != nil {
			return nil, errors.Wrap(err, "querying attendance")
		}
		data := make([]attendance.Attendance, 0, len(records))
		for _, rec := range records {
			data = append(data, forViewer(rec, usr.Profile))
		}
		return listResponse{Data: data, Pagination: opts.Page.Info(total)}, nil
	})
}

func (api *attendanceApi) create(ctx echo.Context) error {
	usr, err := contextUser(ctx)
	if err != nil {
		return err
	}
	var data attendance.NewAttendance
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewAttendance")
	}
	if err := data.Validate(api.deps.Validate); err != nil {
		return err
	}

	a := api.svc.Build(data, usr.Profile)
	// faculty may only mark their own classes
	if err := api.authz.AuthorizeRecord(access.Attendance.Create, usr.Profile, a); err != nil {
		return err
	}
	a, err = api.svc.Create(ctx.Request().Context(), a)
	if err != nil {
		return errors.Wrap(err, "creating attendance")
	}
	api.cache.invalidate(ctx, attendanceResource)
	return ctx.JSON(http.StatusCreated, dataResponse{Data: a, Message: "attendance marked successfully"})
}

// object loads the :id record and checks `ep`'s record scope on it.
func (api *attendanceApi) object(ctx echo.Context, ep access.Endpoint) (attendance.Attendance, user.Profile, error) {
	usr, err := contextUser(ctx)
	if err != nil {
		return attendance.Attendance{}, user.Profile{}, err
	}
	id, err := core.ParseID(ctx.Param("id"))
	if err != nil {
		return attendance.Attendance{}, user.Profile{}, err
	}
	a, err := api.svc.Get(ctx.Request().Context(), id)
	if err != nil {
		return attendance.Attendance{}, user.Profile{}, errors.Wrap(err, "loading attendance")
	}
	if err := api.authz.AuthorizeRecord(ep, usr.Profile, a); err != nil {
		return attendance.Attendance{}, user.Profile{}, err
	}
	return a, usr.Profile, nil
}

func (api *attendanceApi) retrieve(ctx echo.Context) error {
	a, prof, err := api.object(ctx, access.Attendance.Read)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, dataResponse{Data: forViewer(a, prof)})
}

func (api *attendanceApi) update(ctx echo.Context) error {
	a, _, err := api.object(ctx, access.Attendance.Update)
	if err != nil {
		return err
	}
	var data attendance.UpdateMarks
	if err := (&echo.DefaultBinder{}).BindBody(ctx, &data); err != nil {
		return errors.Wrap(err, "binding to UpdateMarks")
	}
	if err := data.Validate(api.deps.Validate); err != nil {
		return err
	}

	a, err = api.svc.ReplaceMarks(ctx.Request().Context(), a, data)
	if err != nil {
		return errors.Wrap(err, "updating attendance")
	}
	api.cache.invalidate(ctx, attendanceResource)
	return ctx.JSON(http.StatusOK, dataResponse{Data: a, Message: "attendance updated successfully"})
}

func (api *attendanceApi) destroy(ctx echo.Context) error {
	a, _, err := api.object(ctx, access.Attendance.Delete)
	if err != nil {
		return err
	}
	if err := api.svc.Delete(ctx.Request().Context(), a); err != nil {
		return errors.Wrap(err, "deleting attendance")
	}
	api.cache.invalidate(ctx, attendanceResource)
	return ctx.JSON(http.StatusOK, dataResponse{Message: "attendance deleted successfully"})
}

func (api *attendanceApi) studentSummary(ctx echo.Context) error {
	usr, err := contextUser(ctx)
	if err != nil {
		return err
	}
	studentID, err := core.ParseID(ctx.Param("id"))
	if err != nil {
		return err
	}
	ep := access.AttendanceStudentSummary
	if err := api.authz.AuthorizeRecord(ep, usr.Profile, attendance.StudentRecord(studentID)); err != nil {
		return err
	}

	filter := new(attendance.QueryFilter)
	if err := bindFilter(ctx, filter); err != nil {
		return err
	}
	filter.StudentID, filter.FacultyID = "", "" // the student is in the path
	q, err := filter.Query(access.Attributes{}, false)
	if err != nil {
		return err
	}

	summary, err := api.svc.StudentSummary(ctx.Request().Context(), studentID, q)
	if err != nil {
		return errors.Wrap(err, "summarizing attendance")
	}
	return ctx.JSON(http.StatusOK, dataResponse{Data: summary})
}
