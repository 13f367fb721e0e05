package utils

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/task-hierarchy-api/internal/constants"
	apierrors "github.com/yukikurage/task-hierarchy-api/internal/errors"
)

// PaginationParams holds the pagination parameters
type PaginationParams struct {
	Page     int
	PageSize int
}

// GetPaginationParams reads page and page_size from the query string.
// Missing values take their defaults; malformed or out of range values are
// reported as validation errors rather than silently corrected.
func GetPaginationParams(c *gin.Context) (PaginationParams, error) {
	page, err := strconv.Atoi(c.DefaultQuery("page", strconv.Itoa(constants.DefaultPage)))
	if err != nil || page < 1 {
		return PaginationParams{}, apierrors.NewValidationError("page", "page must be a positive integer")
	}

	pageSize, err := strconv.Atoi(c.DefaultQuery("page_size", strconv.Itoa(constants.DefaultPageSize)))
	if err != nil || pageSize < constants.MinPageSize || pageSize > constants.MaxPageSize {
		return PaginationParams{}, apierrors.NewValidationError("page_size",
			"page_size must be between "+strconv.Itoa(constants.MinPageSize)+" and "+strconv.Itoa(constants.MaxPageSize))
	}

	return PaginationParams{Page: page, PageSize: pageSize}, nil
}
