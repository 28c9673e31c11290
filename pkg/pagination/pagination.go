// Package pagination normalizes the page/limit query parameters shared by
// the request, eligibility and audit listing endpoints.
package pagination

import (
	"strconv"

	"github.com/gin-gonic/gin"
)

const (
	DefaultPage  = 1
	DefaultLimit = 20
	MaxLimit     = 100
	MinLimit     = 1
)

// Params is a sanitized page request. Offset is precomputed for
// repositories that paginate in SQL.
type Params struct {
	Page   int
	Limit  int
	Offset int
}

// Parse reads page and limit from the query string. Missing or malformed
// values fall back to the defaults; limit is clamped to MaxLimit.
func Parse(c *gin.Context) Params {
	page, err := strconv.Atoi(c.DefaultQuery("page", strconv.Itoa(DefaultPage)))
	if err != nil || page < 1 {
		page = DefaultPage
	}

	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(DefaultLimit)))
	if err != nil || limit < MinLimit {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	return Params{
		Page:   page,
		Limit:  limit,
		Offset: (page - 1) * limit,
	}
}
