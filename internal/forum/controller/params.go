package controller

import (
	"strconv"
	"strings"

	pkgerrors "stackit/pkg/errors"
	"stackit/pkg/utils/response"

	"github.com/gin-gonic/gin"
)

const (
	defaultPage     = 1
	defaultPageSize = 20
)

// pageParams reads page and limit from the query string. Missing values take the
// defaults; range checks are left to the services.
func pageParams(c *gin.Context) (int, int, error) {
	page, err := intQuery(c, "page", defaultPage)
	if err != nil {
		return 0, 0, err
	}
	size, err := intQuery(c, "limit", defaultPageSize)
	if err != nil {
		return 0, 0, err
	}
	return page, size, nil
}

func intQuery(c *gin.Context, name string, fallback int) (int, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, pkgerrors.ValidationError(name, "must be an integer")
	}
	return v, nil
}

func boolQuery(c *gin.Context, name string) (bool, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return false, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, pkgerrors.ValidationError(name, "must be a boolean")
	}
	return v, nil
}

func pathID(c *gin.Context, name string) (string, bool) {
	id := strings.TrimSpace(c.Param(name))
	if id == "" {
		response.BadRequest(c, "Invalid "+name)
		return "", false
	}
	return id, true
}

func pagination[T any](c *gin.Context, items []T, total int64, page, pageSize, totalPages int) {
	if items == nil {
		items = []T{}
	}
	response.SuccessWithPagination(c, items, total, page, pageSize, totalPages)
}
