package utils

import (
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/yukikurage/cms-resource-broker/internal/constants"
)

func paramsFor(t *testing.T, query string) PaginationParams {
	t.Helper()
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/?"+query, nil)
	return GetPaginationParams(c)
}

func TestGetPaginationParams(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  PaginationParams
	}{
		{"defaults", "", PaginationParams{Page: 1, Limit: constants.DefaultPageSize, Offset: 0}},
		{"explicit", "page=3&limit=10", PaginationParams{Page: 3, Limit: 10, Offset: 20}},
		{"page below minimum", "page=0&limit=10", PaginationParams{Page: 1, Limit: 10, Offset: 0}},
		{"limit above maximum", "limit=100000", PaginationParams{Page: 1, Limit: constants.DefaultPageSize, Offset: 0}},
		{"garbage", "page=x&limit=y", PaginationParams{Page: 1, Limit: constants.DefaultPageSize, Offset: 0}},
		{"page too large for the offset", "page=2305843009213693953&limit=4", PaginationParams{
			Page:   math.MaxInt / 4,
			Limit:  4,
			Offset: (math.MaxInt/4 - 1) * 4,
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, paramsFor(t, tt.query))
		})
	}
}

func TestPaginate(t *testing.T) {
	items := []string{"a", "b", "c", "d", "e"}

	page, meta := Paginate(items, PaginationParams{Page: 2, Limit: 2, Offset: 2})
	assert.Equal(t, []string{"c", "d"}, page)
	assert.Equal(t, PaginationResponse{Page: 2, Limit: 2, Total: 5}, meta)

	page, _ = Paginate(items, PaginationParams{Page: 3, Limit: 2, Offset: 4})
	assert.Equal(t, []string{"e"}, page)

	page, meta = Paginate(items, PaginationParams{Page: 9, Limit: 2, Offset: 16})
	assert.Empty(t, page)
	assert.NotNil(t, page)
	assert.EqualValues(t, 5, meta.Total)

	page, _ = Paginate(items, PaginationParams{Page: 1, Limit: 2, Offset: -4})
	assert.Empty(t, page)
}

func TestPaginate_HugePage(t *testing.T) {
	p := paramsFor(t, "page=2305843009213693953&limit=4")
	assert.Positive(t, p.Offset)

	var page []int
	assert.NotPanics(t, func() {
		page, _ = Paginate([]int{1, 2, 3}, p)
	})
	assert.Empty(t, page)

	p = paramsFor(t, "page=9223372036854775807&limit=500")
	assert.NotPanics(t, func() {
		page, _ = Paginate([]int{1, 2, 3}, p)
	})
	assert.Empty(t, page)
}
