package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/access"
	"github.com/trezcool/campus/core/complaint"
)

const complaintsResource = "complaints"

var complaintOrdering = orderingFields("status", "priority", "category", "title")

type complaintApi struct {
	*Server
	svc *complaint.Service
}

func registerComplaintAPI(s *Server, cg *echo.Group) {
	api := complaintApi{Server: s, svc: s.deps.ComplaintSvc}

	cg.GET("", api.query, s.guard(access.Complaints.List))
	cg.POST("", api.create, s.guard(access.Complaints.Create))
	cg.GET("/:id", api.retrieve, s.guard(access.Complaints.Read))
	cg.PUT("/:id/status", api.updateStatus, s.guard(access.ComplaintUpdateStatus))
	cg.PUT("/:id/complete", api.complete, s.guard(access.ComplaintComplete))
	cg.DELETE("/:id", api.destroy, s.guard(access.Complaints.Delete))
}

// Handlers

func (api *complaintApi) query(ctx echo.Context) error {
	usr, err := contextUser(ctx)
	if err != nil {
		return err
	}
	scope, restricted, err := api.authz.Narrow(access.Complaints.List, usr.Profile)
	if err != nil {
		return err
	}

	filter := new(complaint.QueryFilter)
	if err := bindFilter(ctx, filter); err != nil {
		return err
	}
	q, err := filter.Query(scope, restricted)
	if err != nil {
		return err
	}
	opts, err := listParams(ctx, complaintOrdering)
	if err != nil {
		return err
	}

	return api.cache.serve(ctx, complaintsResource, usr, scope, func() (interface{}, error) {
		complaints, total, err := api.svc.Query(ctx.Request().Context(), q, opts)
		if err != nil {
			return nil, errors.Wrap(err, "querying complaints")
		}
		if complaints == nil {
			complaints = []complaint.Complaint{}
		}
		return listResponse{Data: complaints, Pagination: opts.Page.Info(total)}, nil
	})
}

func (api *complaintApi) create(ctx echo.Context) error {
	usr, err := contextUser(ctx)
	if err != nil {
		return err
	}
	var data complaint.NewComplaint
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewComplaint")
	}
	if err := data.Validate(api.deps.Validate); err != nil {
		return err
	}

	c, err := api.svc.Create(ctx.Request().Context(), data, usr.Profile)
	if err != nil {
		return errors.Wrap(err, "creating complaint")
	}
	api.cache.invalidate(ctx, complaintsResource)
	return ctx.JSON(http.StatusCreated, dataResponse{Data: c, Message: "complaint submitted successfully"})
}

// object loads the :id complaint and checks `ep`'s record scope on it.
func (api *complaintApi) object(ctx echo.Context, ep access.Endpoint) (complaint.Complaint, error) {
	usr, err := contextUser(ctx)
	if err != nil {
		return complaint.Complaint{}, err
	}
	id, err := core.ParseID(ctx.Param("id"))
	if err != nil {
		return complaint.Complaint{}, err
	}
	c, err := api.svc.Get(ctx.Request().Context(), id)
	if err != nil {
		return complaint.Complaint{}, errors.Wrap(err, "loading complaint")
	}
	if err := api.authz.AuthorizeRecord(ep, usr.Profile, c); err != nil {
		return complaint.Complaint{}, err
	}
	return c, nil
}

func (api *complaintApi) retrieve(ctx echo.Context) error {
	c, err := api.object(ctx, access.Complaints.Read)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, dataResponse{Data: c})
}

func (api *complaintApi) updateStatus(ctx echo.Context) error {
	c, err := api.object(ctx, access.ComplaintUpdateStatus)
	if err != nil {
		return err
	}
	usr, _ := contextUser(ctx)

	var data complaint.StatusUpdate
	if err := (&echo.DefaultBinder{}).BindBody(ctx, &data); err != nil {
		return errors.Wrap(err, "binding to StatusUpdate")
	}
	if err := data.Validate(api.deps.Validate); err != nil {
		return err
	}

	c, err = api.svc.UpdateStatus(ctx.Request().Context(), c, data, usr.Profile)
	if err != nil {
		return errors.Wrap(err, "updating complaint status")
	}
	api.cache.invalidate(ctx, complaintsResource)
	return ctx.JSON(http.StatusOK, dataResponse{Data: c, Message: "complaint status updated successfully"})
}

func (api *complaintApi) complete(ctx echo.Context) error {
	c, err := api.object(ctx, access.ComplaintComplete)
	if err != nil {
		return err
	}
	usr, _ := contextUser(ctx)

	var data complaint.Completion
	if err := (&echo.DefaultBinder{}).BindBody(ctx, &data); err != nil {
		return errors.Wrap(err, "binding to Completion")
	}
	if err := data.Validate(api.deps.Validate); err != nil {
		return err
	}

	c, err = api.svc.Complete(ctx.Request().Context(), c, data, usr.Profile)
	if err != nil {
		return errors.Wrap(err, "completing complaint")
	}
	api.cache.invalidate(ctx, complaintsResource)
	return ctx.JSON(http.StatusOK, dataResponse{Data: c, Message: "complaint marked as completed"})
}

func (api *complaintApi) destroy(ctx echo.Context) error {
	c, err := api.object(ctx, access.Complaints.Delete)
	if err != nil {
		return err
	}
	usr, _ := contextUser(ctx)

	if err := api.svc.Delete(ctx.Request().Context(), c, usr.Profile); err != nil {
		return errors.Wrap(err, "deleting complaint")
	}
	api.cache.invalidate(ctx, complaintsResource)
	return ctx.JSON(http.StatusOK, dataResponse{Message: "complaint deleted successfully"})
}
