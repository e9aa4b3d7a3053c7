package utils

import (
	"math"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/cms-resource-broker/internal/constants"
)

// PaginationParams holds the pagination parameters
type PaginationParams struct {
	Page   int
	Limit  int
	Offset int
}

// PaginationResponse represents the pagination metadata in API responses
type PaginationResponse struct {
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Total int64 `json:"total"`
}

// GetPaginationParams extracts and validates pagination parameters from the request
func GetPaginationParams(c *gin.Context) PaginationParams {
	page, _ := strconv.Atoi(c.DefaultQuery("page", strconv.Itoa(constants.MinPageSize)))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(constants.DefaultPageSize)))

	if page < constants.MinPageSize {
		page = constants.MinPageSize
	}
	if limit < constants.MinPageSize || limit > constants.MaxPageSize {
		limit = constants.DefaultPageSize
	}
	// page*limit must fit in an int
	if maxPage := math.MaxInt / limit; page > maxPage {
		page = maxPage
	}

	return PaginationParams{
		Page:   page,
		Limit:  limit,
		Offset: (page - 1) * limit,
	}
}

// Paginate cuts one page out of an already ordered listing. The broker
// returns directory listings whole, so paging happens after the read.
func Paginate[T any](items []T, p PaginationParams) ([]T, PaginationResponse) {
	meta := PaginationResponse{Page: p.Page, Limit: p.Limit, Total: int64(len(items))}
	if p.Offset < 0 || p.Offset >= len(items) || p.Limit <= 0 {
		return []T{}, meta
	}
	end := p.Offset + min(p.Limit, len(items)-p.Offset)
	return items[p.Offset:end], meta
}
