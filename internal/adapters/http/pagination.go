package http

import (
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/maproute/internal/core/domain"
)

// Route point paging limits.
const (
	DefaultPointLimit = 100
	MaxPointLimit     = 1000
)

// Pagination describes where a page of route points sits in the full path.
type Pagination struct {
	Offset int `json:"offset"`
	Limit  int `json:"limit"`
	Total  int `json:"total"`
}

// RoutePointsPage is one page of a session's route path.
type RoutePointsPage struct {
	Data       []domain.GeoPoint `json:"data"`
	Pagination Pagination        `json:"pagination"`
}

// pointPageParams reads offset and limit from the query. A negative offset
// starts at the first point and an out of range limit falls back to
// DefaultPointLimit.
func pointPageParams(c *fiber.Ctx) (offset, limit int) {
	offset = c.QueryInt("offset", 0)
	limit = c.QueryInt("limit", DefaultPointLimit)
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 || limit > MaxPointLimit {
		limit = DefaultPointLimit
	}
	return offset, limit
}

// setPointLinks adds RFC 8288 Link headers for walking the route points of
// the current session.
func setPointLinks(c *fiber.Ctx, p Pagination) {
	last := max(p.Total-p.Limit, 0)
	rels := []struct {
		rel    string
		offset int
		ok     bool
	}{
		{"first", 0, true},
		{"prev", max(p.Offset-p.Limit, 0), p.Offset > 0},
		{"next", p.Offset + p.Limit, p.Offset+p.Limit < p.Total},
		{"last", last, true},
	}

	path := c.Path()
	links := make([]string, 0, len(rels))
	for _, r := range rels {
		if !r.ok {
			continue
		}
		links = append(links, fmt.Sprintf(`<%s?offset=%d&limit=%d>; rel="%s"`, path, r.offset, p.Limit, r.rel))
	}
	c.Set(fiber.HeaderLink, strings.Join(links, ", "))
}
