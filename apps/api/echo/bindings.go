package echoapi

import (
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/campus/core"
)

var (
	orderingParam = "ordering"
	pageParam     = "page"
	limitParam    = "limit"
)

// orderable maps the field names clients may order by to document paths.
type orderable map[string]string

// orderingFields returns the orderable fields of a resource; id, createdAt and updatedAt always are.
func orderingFields(fields ...string) orderable {
	o := orderable{"id": "_id", "createdAt": "createdAt", "updatedAt": "updatedAt"}
	for _, f := range fields {
		o[f] = f
	}
	return o
}

type Ordering struct {
	Orderings []core.DBOrdering
}

// Bind reads `ordering=field,-field`. Unknown fields are a validation failure.
func (ord *Ordering) Bind(ctx echo.Context, fields orderable) error {
	val := ctx.QueryParam(orderingParam)
	if val == "" {
		return nil
	}

	for _, field := range strings.Split(val, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		descending := strings.HasPrefix(field, "-")
		if descending {
			field = field[1:] // drop "-"
		}
		path, ok := fields[field]
		if !ok {
			return core.NewFieldError(orderingParam, "cannot order by "+strconv.Quote(field))
		}
		ord.Orderings = append(ord.Orderings, core.DBOrdering{Field: path, Ascending: !descending})
	}
	return nil
}

// Pagination reads `page` (from 1) and `limit` (10 by default, 100 at most).
type Pagination struct {
	Page core.Page
}

func (pg *Pagination) Bind(ctx echo.Context) error {
	var fldErrs []core.FieldError
	number := func(param string) int {
		raw := strings.TrimSpace(ctx.QueryParam(param))
		if raw == "" {
			return 0
		}
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			fldErrs = append(fldErrs, core.FieldError{Field: param, Error: "must be a positive integer"})
			return 0
		}
		return n
	}

	page, limit := number(pageParam), number(limitParam)
	if len(fldErrs) > 0 {
		return core.NewValidationError(errInvalidQuery, fldErrs...)
	}
	pg.Page = core.NewPage(page, limit)
	return nil
}

// listParams binds pagination and ordering together.
func listParams(ctx echo.Context, fields orderable) (core.FindOptions, error) {
	pagination := new(Pagination)
	if err := pagination.Bind(ctx); err != nil {
		return core.FindOptions{}, err
	}
	ordering := new(Ordering)
	if err := ordering.Bind(ctx, fields); err != nil {
		return core.FindOptions{}, err
	}
	if len(ordering.Orderings) == 0 {
		ordering.Orderings = []core.DBOrdering{{Field: "createdAt", Ascending: false}}
	}
	return core.FindOptions{Page: &pagination.Page, Orderings: ordering.Orderings}, nil
}

// bindFilter binds query params onto a filter struct (`query` tags).
func bindFilter(ctx echo.Context, filter interface{}) error {
	if err := (&echo.DefaultBinder{}).BindQueryParams(ctx, filter); err != nil {
		return core.NewValidationError(errInvalidQuery, core.FieldError{Field: "query", Error: "malformed query parameters"})
	}
	return nil
}

type (
	listResponse struct {
		Data       interface{}   `json:"data"`
		Pagination core.PageInfo `json:"pagination"`
	}

	dataResponse struct {
		Data    interface{} `json:"data,omitempty"`
		Message string      `json:"message,omitempty"`
	}
)
