package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/access"
	"github.com/trezcool/campus/core/catalog"
	"github.com/trezcool/campus/core/course"
	"github.com/trezcool/campus/storage/database"
)

// NewCatalogServices builds the reference data services on top of `repos`.
func NewCatalogServices(repos database.Repositories) CatalogServices {
	return CatalogServices{
		Courses:            course.NewService(repos.Courses),
		Departments:        catalog.NewService[catalog.Department]("department", repos.Departments),
		FacultyDepartments: catalog.NewService[catalog.FacultyDepartment]("faculty department", repos.FacultyDepartments),
		StudentBatches:     catalog.NewService[catalog.StudentBatch]("student batch", repos.StudentBatches),
		BatchSections:      catalog.NewService[catalog.BatchSection]("batch section", repos.BatchSections),
		SubjectAssignments: catalog.NewService[catalog.SubjectAssignment]("subject assignment", repos.SubjectAssignments),
		Holidays:           catalog.NewService[catalog.Holiday]("holiday", repos.Holidays),
		MessMenus:          catalog.NewService[catalog.MessMenu]("mess menu", repos.MessMenus),
	}
}

// catalogResource describes one plain CRUD resource.
type catalogResource[T catalog.Entry] struct {
	path      string
	eps       access.CRUD
	svc       *catalog.Service[T]
	newInput  func() catalog.Input[T]
	newFilter func() catalog.Filter
	ordering  orderable
}

type catalogApi[T catalog.Entry] struct {
	*Server
	catalogResource[T]
}

func registerCatalogAPI[T catalog.Entry](s *Server, g *echo.Group, authn echo.MiddlewareFunc, res catalogResource[T]) {
	api := &catalogApi[T]{Server: s, catalogResource: res}

	cg := g.Group(res.path, authn)
	cg.GET("", api.query, s.guard(res.eps.List))
	cg.POST("", api.create, s.guard(res.eps.Create))
	cg.GET("/:id", api.retrieve, s.guard(res.eps.Read))
	cg.PUT("/:id", api.update, s.guard(res.eps.Update))
	cg.DELETE("/:id", api.destroy, s.guard(res.eps.Delete))
}

func (api *catalogApi[T]) query(ctx echo.Context) error {
	usr, err := contextUser(ctx)
	if err != nil {
		return err
	}
	scope, restricted, err := api.authz.Narrow(api.eps.List, usr.Profile)
	if err != nil {
		return err
	}

	filter := api.newFilter()
	if err := bindFilter(ctx, filter); err != nil {
		return err
	}
	q, err := filter.Query()
	if err != nil {
		return err
	}
	if q, err = catalog.ScopeQuery(q, scope, restricted); err != nil {
		return err
	}
	opts, err := listParams(ctx, api.ordering)
	if err != nil {
		return err
	}

	return api.cache.serve(ctx, api.path, usr, scope, func() (interface{}, error) {
		docs, total, err := api.svc.Query(ctx.Request().Context(), q, opts)
		if err != nil {
			return nil, errors.Wrapf(err, "querying %s", api.svc.Name())
		}
		if docs == nil {
			docs = []T{}
		}
		return listResponse{Data: docs, Pagination: opts.Page.Info(total)}, nil
	})
}

// load fetches the :id document and checks `ep`'s record scope on it.
func (api *catalogApi[T]) load(ctx echo.Context, ep access.Endpoint) (T, error) {
	var zero T
	usr, err := contextUser(ctx)
	if err != nil {
		return zero, err
	}
	id, err := core.ParseID(ctx.Param("id"))
	if err != nil {
		return zero, err
	}
	doc, err := api.svc.Get(ctx.Request().Context(), id)
	if err != nil {
		return zero, errors.Wrapf(err, "loading %s", api.svc.Name())
	}
	if err := api.authz.AuthorizeRecord(ep, usr.Profile, doc); err != nil {
		return zero, err
	}
	return doc, nil
}

func (api *catalogApi[T]) retrieve(ctx echo.Context) error {
	doc, err := api.load(ctx, api.eps.Read)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, dataResponse{Data: doc})
}

func (api *catalogApi[T]) create(ctx echo.Context) error {
	usr, err := contextUser(ctx)
	if err != nil {
		return err
	}
	in := api.newInput()
	if err := ctx.Bind(in); err != nil {
		return errors.Wrapf(err, "binding %s input", api.svc.Name())
	}
	if err := in.Validate(api.deps.Validate); err != nil {
		return err
	}

	doc, err := api.svc.Create(ctx.Request().Context(), in, usr.Profile)
	if err != nil {
		return errors.Wrapf(err, "creating %s", api.svc.Name())
	}
	api.cache.invalidate(ctx, api.path)
	return ctx.JSON(http.StatusCreated, dataResponse{Data: doc, Message: api.svc.Name() + " created successfully"})
}

func (api *catalogApi[T]) update(ctx echo.Context) error {
	orig, err := api.load(ctx, api.eps.Update)
	if err != nil {
		return err
	}
	in := api.newInput()
	if err := (&echo.DefaultBinder{}).BindBody(ctx, in); err != nil {
		return errors.Wrapf(err, "binding %s input", api.svc.Name())
	}
	if err := in.Validate(api.deps.Validate); err != nil {
		return err
	}

	doc, err := api.svc.Update(ctx.Request().Context(), orig, in)
	if err != nil {
		return errors.Wrapf(err, "updating %s", api.svc.Name())
	}
	api.cache.invalidate(ctx, api.path)
	return ctx.JSON(http.StatusOK, dataResponse{Data: doc, Message: api.svc.Name() + " updated successfully"})
}

func (api *catalogApi[T]) destroy(ctx echo.Context) error {
	doc, err := api.load(ctx, api.eps.Delete)
	if err != nil {
		return err
	}
	if err := api.svc.Delete(ctx.Request().Context(), doc); err != nil {
		return errors.Wrapf(err, "deleting %s", api.svc.Name())
	}
	api.cache.invalidate(ctx, api.path)
	return ctx.JSON(http.StatusOK, dataResponse{Message: api.svc.Name() + " deleted successfully"})
}
