package utils

import (
	"math"
	"net/http"
	"strconv"
)

const (
	DefaultPageLimit = 10
	MaxPageLimit     = 50

	// MaxPage keeps (page-1)*limit within int for every accepted limit.
	MaxPage = math.MaxInt/MaxPageLimit - 1
)

type Pagination struct {
	Page  int
	Limit int
}

// Offset saturates instead of overflowing, so Offset()+Limit always fits in int.
func (p Pagination) Offset() int {
	if p.Page <= 1 || p.Limit <= 0 {
		return 0
	}
	if p.Page-1 > (math.MaxInt-p.Limit)/p.Limit {
		return math.MaxInt - p.Limit
	}
	return (p.Page - 1) * p.Limit
}

// HasMore reports whether rows remain after the current page.
func (p Pagination) HasMore(total int64) bool {
	return int64(p.Offset()+p.Limit) < total
}

// ParsePagination reads page and limit from the query string, clamping
// them to 1 <= page <= MaxPage and 1 <= limit <= MaxPageLimit.
func ParsePagination(r *http.Request) Pagination {
	q := r.URL.Query()
	page, err := strconv.Atoi(q.Get("page"))
	if err != nil || page < 1 {
		page = 1
	}
	if page > MaxPage {
		page = MaxPage
	}
	limit, err := strconv.Atoi(q.Get("limit"))
	if err != nil || limit < 1 {
		limit = DefaultPageLimit
	}
	if limit > MaxPageLimit {
		limit = MaxPageLimit
	}
	return Pagination{Page: page, Limit: limit}
}

// ParseIDParam parses a positive integer path or query value.
func ParseIDParam(raw, name string) (uint, error) {
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, BadRequest("Invalid " + name)
	}
	return uint(id), nil
}
