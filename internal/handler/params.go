package handler

import (
	"strconv"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/ssiitsupport/SSI360V2/internal/apperr"
	"github.com/ssiitsupport/SSI360V2/internal/store"
)

func pathID(c echo.Context, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		return uuid.Nil, apperr.Invalid("invalid %s", name)
	}
	return id, nil
}

func bind(c echo.Context, dst interface{}) error {
	if err := c.Bind(dst); err != nil {
		return apperr.Invalid("invalid request body")
	}
	return nil
}

// listQuery reads ?page=&pageSize=&search=&tenantId=
func listQuery(c echo.Context) (store.ListQuery, error) {
	q := store.ListQuery{Search: c.QueryParam("search")}

	if v := c.QueryParam("page"); v != "" {
		page, err := strconv.Atoi(v)
		if err != nil {
			return q, apperr.Invalid("invalid page")
		}
		q.Page = page
	}
	if v := c.QueryParam("pageSize"); v != "" {
		size, err := strconv.Atoi(v)
		if err != nil {
			return q, apperr.Invalid("invalid pageSize")
		}
		q.PageSize = size
	}
	if v := c.QueryParam("tenantId"); v != "" {
		tenantID, err := uuid.Parse(v)
		if err != nil {
			return q, apperr.Invalid("invalid tenantId")
		}
		q.TenantID = &tenantID
	}
	return q.Normalize(), nil
}
