package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/access"
	"github.com/trezcool/campus/core/user"
)

const profilesResource = "profiles"

var profileOrdering = orderingFields("name", "email", "role", "rollNumber")

type userApi struct {
	*Server
	svc *user.Service
}

func registerUserAPI(s *Server, ug *echo.Group) {
	api := userApi{Server: s, svc: s.deps.UserSvc}

	ug.GET("", api.query, s.guard(access.Users.List))
	ug.POST("", api.create, s.guard(access.Users.Create))
	ug.GET("/roles", api.queryRoles, s.guard(access.UserRoles))
	ug.GET("/:id", api.retrieve, s.guard(access.Users.Read))
	ug.PUT("/:id", api.update, s.guard(access.Users.Update))
	ug.DELETE("/:id", api.destroy, s.guard(access.Users.Delete))
}

// Handlers

func (api *userApi) query(ctx echo.Context) error {
	return queryProfiles(api.Server, ctx, access.Users.List)
}

// queryProfiles is shared by /users and /profiles.
func queryProfiles(s *Server, ctx echo.Context, ep access.Endpoint) error {
	usr, err := contextUser(ctx)
	if err != nil {
		return err
	}
	filter := new(user.QueryFilter)
	if err := bindFilter(ctx, filter); err != nil {
		return err
	}
	q, err := filter.Query()
	if err != nil {
		return err
	}
	opts, err := listParams(ctx, profileOrdering)
	if err != nil {
		return err
	}

	return s.cache.serve(ctx, profilesResource+":"+string(ep), usr, access.Attributes{}, func() (interface{}, error) {
		profs, total, err := s.deps.UserSvc.Query(ctx.Request().Context(), q, opts)
		if err != nil {
			return nil, errors.Wrap(err, "querying profiles")
		}
		if profs == nil {
			profs = []user.Profile{}
		}
		return listResponse{Data: profs, Pagination: opts.Page.Info(total)}, nil
	})
}

func (api *userApi) create(ctx echo.Context) error {
	var data user.NewUser
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewUser")
	}
	if err := data.Validate(api.deps.Validate); err != nil {
		return err
	}

	usr, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating user")
	}
	api.invalidateProfiles(ctx)
	return ctx.JSON(http.StatusCreated, dataResponse{Data: usr, Message: "user created successfully"})
}

func (api *userApi) queryRoles(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, dataResponse{Data: user.Roles})
}

// object loads the User owning the :id Profile.
func (api *userApi) object(ctx echo.Context) (user.User, error) {
	id, err := core.ParseID(ctx.Param("id"))
	if err != nil {
		return user.User{}, err
	}
	usr, err := api.svc.Get(ctx.Request().Context(), id)
	if err != nil {
		return user.User{}, errors.Wrap(err, "loading user")
	}
	return usr, nil
}

func (api *userApi) retrieve(ctx echo.Context) error {
	usr, err := api.object(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, dataResponse{Data: usr})
}

func (api *userApi) update(ctx echo.Context) error {
	usr, err := api.object(ctx)
	if err != nil {
		return err
	}

	var data user.UpdateUser
	if err := (&echo.DefaultBinder{}).BindBody(ctx, &data); err != nil {
		return errors.Wrap(err, "binding to UpdateUser")
	}
	if err := data.Validate(api.deps.Validate, usr.Profile); err != nil {
		return err
	}

	usr, err = api.svc.Update(ctx.Request().Context(), usr, data)
	if err != nil {
		return errors.Wrap(err, "updating user")
	}
	api.invalidateProfiles(ctx)
	return ctx.JSON(http.StatusOK, dataResponse{Data: usr, Message: "user updated successfully"})
}

func (api *userApi) destroy(ctx echo.Context) error {
	usr, err := api.object(ctx)
	if err != nil {
		return err
	}

	// ctxUser cannot delete themselves
	ctxUsr, err := contextUser(ctx)
	if err != nil {
		return err
	}
	if usr.Profile.ID == ctxUsr.Profile.ID {
		return errors.Wrap(core.ErrForbidden, "deleting own account")
	}

	if err := api.svc.Delete(ctx.Request().Context(), usr); err != nil {
		return errors.Wrap(err, "deleting user")
	}
	api.invalidateProfiles(ctx)
	return ctx.JSON(http.StatusOK, dataResponse{Message: "user deleted successfully"})
}

func (s *Server) invalidateProfiles(ctx echo.Context) {
	s.cache.invalidate(ctx, profilesResource+":"+string(access.Users.List), profilesResource+":"+string(access.ProfileList))
}
