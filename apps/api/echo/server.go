package echoapi

import (
	"context"
	"net/http"
	"os"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"github.com/pkg/errors"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/access"
	"github.com/trezcool/campus/core/attendance"
	"github.com/trezcool/campus/core/catalog"
	"github.com/trezcool/campus/core/complaint"
	"github.com/trezcool/campus/core/course"
	"github.com/trezcool/campus/core/user"
)

type (
	// CatalogServices are the plain CRUD services of the reference data.
	CatalogServices struct {
		Courses            *catalog.Service[course.Course]
		Departments        *catalog.Service[catalog.Department]
		FacultyDepartments *catalog.Service[catalog.FacultyDepartment]
		StudentBatches     *catalog.Service[catalog.StudentBatch]
		BatchSections      *catalog.Service[catalog.BatchSection]
		SubjectAssignments *catalog.Service[catalog.SubjectAssignment]
		Holidays           *catalog.Service[catalog.Holiday]
		MessMenus          *catalog.Service[catalog.MessMenu]
	}

	Deps struct {
		Conf       *core.Config
		Logger     core.Logger
		Validate   *validator.Validate
		Translator ut.Translator
		Authorizer *access.Authorizer
		Cache      core.Cache // optional

		UserSvc       *user.Service
		ComplaintSvc  *complaint.Service
		AttendanceSvc *attendance.Service
		Catalog       CatalogServices

		DisableReqLogs bool
	}

	Server struct {
		*http.Server
		app      *echo.Echo
		deps     *Deps
		tokens   *TokenIssuer
		authz    *access.Authorizer
		cache    *listCache
		metrics  *metrics
		errors   chan error
		shutdown chan os.Signal
	}
)

// NewServer builds the API. `shutdown` receives the signals that stop the server; it may be nil.
func NewServer(addr string, shutdown chan os.Signal, deps *Deps) *Server {
	if shutdown == nil {
		shutdown = make(chan os.Signal, 1)
	}
	app := echo.New()
	s := &Server{
		Server: &http.Server{
			Addr:    addr,
			Handler: app,
		},
		app:      app,
		deps:     deps,
		tokens:   NewTokenIssuer(deps.Conf),
		authz:    deps.Authorizer,
		metrics:  newMetrics(),
		errors:   make(chan error, 1),
		shutdown: shutdown,
	}
	s.cache = newListCache(deps.Cache, deps.Conf.Redis.CacheTTL, deps.Logger, s.metrics)
	s.setup()
	return s
}

func (s *Server) setup() {
	conf := s.deps.Conf

	s.app.HideBanner = true
	s.app.Debug = conf.Debug
	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.deps.Logger, s.deps.Translator, s.SignalShutdown)

	s.app.Pre(middleware.RemoveTrailingSlash())
	s.app.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{Generator: uuid.NewString}))
	if !s.deps.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}
	s.app.Use(s.metrics.middleware())

	s.app.GET("/", home)
	s.app.GET("/metrics", s.metrics.handler())

	api := s.app.Group("/api")
	authn := authMiddleware(s.tokens, s.deps.UserSvc)
	loginLimiter := newIPRateLimiter(conf.Server.LoginRateLimit, conf.Server.LoginRateBurst)

	registerAuthAPI(s, api, authn, loginLimiter.middleware())
	registerProfileAPI(s, api.Group("/profiles", authn))
	registerUserAPI(s, api.Group("/users", authn))
	registerAttendanceAPI(s, api.Group("/attendance", authn))
	registerComplaintAPI(s, api.Group("/complaints", authn))

	cat := s.deps.Catalog
	registerCatalogAPI(s, api, authn, catalogResource[course.Course]{
		path:      "/courses",
		eps:       access.Courses,
		svc:       cat.Courses,
		newInput:  func() catalog.Input[course.Course] { return new(course.Input) },
		newFilter: func() catalog.Filter { return new(course.QueryFilter) },
		ordering:  orderingFields("code", "name", "department", "credits", "semester"),
	})
	registerCatalogAPI(s, api, authn, catalogResource[catalog.Department]{
		path:      "/departments",
		eps:       access.Departments,
		svc:       cat.Departments,
		newInput:  func() catalog.Input[catalog.Department] { return new(catalog.DepartmentInput) },
		newFilter: func() catalog.Filter { return new(catalog.DepartmentFilter) },
		ordering:  orderingFields("name", "code"),
	})
	registerCatalogAPI(s, api, authn, catalogResource[catalog.FacultyDepartment]{
		path:      "/faculty-departments",
		eps:       access.FacultyDepartments,
		svc:       cat.FacultyDepartments,
		newInput:  func() catalog.Input[catalog.FacultyDepartment] { return new(catalog.FacultyDepartmentInput) },
		newFilter: func() catalog.Filter { return new(catalog.FacultyDepartmentFilter) },
		ordering:  orderingFields("designation"),
	})
	registerCatalogAPI(s, api, authn, catalogResource[catalog.StudentBatch]{
		path:      "/student-batches",
		eps:       access.StudentBatches,
		svc:       cat.StudentBatches,
		newInput:  func() catalog.Input[catalog.StudentBatch] { return new(catalog.StudentBatchInput) },
		newFilter: func() catalog.Filter { return new(catalog.StudentBatchFilter) },
		ordering:  orderingFields("name", "branch", "startYear", "endYear"),
	})
	registerCatalogAPI(s, api, authn, catalogResource[catalog.BatchSection]{
		path:      "/student-batch-sections",
		eps:       access.StudentBatchSection,
		svc:       cat.BatchSections,
		newInput:  func() catalog.Input[catalog.BatchSection] { return new(catalog.BatchSectionInput) },
		newFilter: func() catalog.Filter { return new(catalog.BatchSectionFilter) },
		ordering:  orderingFields("name", "capacity"),
	})
	registerCatalogAPI(s, api, authn, catalogResource[catalog.SubjectAssignment]{
		path:      "/subject-assignments",
		eps:       access.SubjectAssignments,
		svc:       cat.SubjectAssignments,
		newInput:  func() catalog.Input[catalog.SubjectAssignment] { return new(catalog.SubjectAssignmentInput) },
		newFilter: func() catalog.Filter { return new(catalog.SubjectAssignmentFilter) },
		ordering:  orderingFields("academicYear", "semester", "section"),
	})
	registerCatalogAPI(s, api, authn, catalogResource[catalog.Holiday]{
		path:      "/holidays",
		eps:       access.Holidays,
		svc:       cat.Holidays,
		newInput:  func() catalog.Input[catalog.Holiday] { return new(catalog.HolidayInput) },
		newFilter: func() catalog.Filter { return new(catalog.HolidayFilter) },
		ordering:  orderingFields("name", "date", "type"),
	})
	registerCatalogAPI(s, api, authn, catalogResource[catalog.MessMenu]{
		path:      "/mess-menu",
		eps:       access.MessMenu,
		svc:       cat.MessMenus,
		newInput:  func() catalog.Input[catalog.MessMenu] { return new(catalog.MessMenuInput) },
		newFilter: func() catalog.Filter { return new(catalog.MessMenuFilter) },
		ordering:  orderingFields("day", "mealType", "hostelBlock"),
	})
}

// Start listens until the server is shut down; listener failures are sent to Errors.
func (s *Server) Start() {
	s.deps.Logger.Info("API listening on " + s.Addr)
	if err := s.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		s.errors <- err
	}
}

// Stop gracefully shuts the server down.
func (s *Server) Stop(ctx context.Context) error {
	return s.Shutdown(ctx)
}

func (s *Server) Errors() <-chan error {
	return s.errors
}

func (s *Server) ShutdownSignal() <-chan os.Signal {
	return s.shutdown
}

// SignalShutdown asks the owner of the server to shut it down.
func (s *Server) SignalShutdown() {
	select {
	case s.shutdown <- syscall.SIGTERM:
	default: // already signaled
	}
}

// Tokens returns the issuer of the access tokens accepted by the server.
func (s *Server) Tokens() *TokenIssuer {
	return s.tokens
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to Campus API!")
}
