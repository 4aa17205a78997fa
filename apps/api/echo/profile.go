package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/access"
	"github.com/trezcool/campus/core/user"
)

type profileApi struct {
	*Server
	svc *user.Service
}

func registerProfileAPI(s *Server, pg *echo.Group) {
	api := profileApi{Server: s, svc: s.deps.UserSvc}

	pg.GET("/me", api.me, s.guard(access.ProfileMeRead))
	pg.PUT("/me", api.updateMe, s.guard(access.ProfileMeUpdate))
	pg.GET("", api.query, s.guard(access.ProfileList))
	pg.GET("/:id", api.retrieve) // guarded in the handler: anyone may read their own
}

func (api *profileApi) me(ctx echo.Context) error {
	usr, err := contextUser(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, dataResponse{Data: usr.Profile})
}

func (api *profileApi) updateMe(ctx echo.Context) error {
	usr, err := contextUser(ctx)
	if err != nil {
		return err
	}
	var data user.UpdateProfile
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateProfile")
	}
	if err := data.Validate(api.deps.Validate); err != nil {
		return err
	}

	usr, err = api.svc.UpdateProfile(ctx.Request().Context(), usr, data)
	if err != nil {
		return errors.Wrap(err, "updating profile")
	}
	api.invalidateProfiles(ctx)
	return ctx.JSON(http.StatusOK, dataResponse{Data: usr.Profile, Message: "profile updated successfully"})
}

func (api *profileApi) query(ctx echo.Context) error {
	return queryProfiles(api.Server, ctx, access.ProfileList)
}

func (api *profileApi) retrieve(ctx echo.Context) error {
	usr, err := contextUser(ctx)
	if err != nil {
		return err
	}
	id, idErr := core.ParseID(ctx.Param("id"))
	if idErr == nil && id == usr.Profile.ID {
		if err := api.authz.Authorize(access.ProfileMeRead, usr.Profile); err != nil {
			return err
		}
		return ctx.JSON(http.StatusOK, dataResponse{Data: usr.Profile})
	}

	if err := api.authz.Authorize(access.ProfileRead, usr.Profile); err != nil {
		return err
	}
	if idErr != nil {
		return idErr
	}
	prof, err := api.svc.GetProfile(ctx.Request().Context(), id)
	if err != nil {
		return errors.Wrap(err, "loading profile")
	}
	return ctx.JSON(http.StatusOK, dataResponse{Data: prof})
}
