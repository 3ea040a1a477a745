package http

import (
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/MATTHEWPURBA/Memory-Lane-Backend/internal/core/domain"
)

// SetPageLinkHeaders adds RFC 8288 Link headers for a page of discovery
// results, preserving the request path.
func SetPageLinkHeaders(c *fiber.Ctx, p *domain.MemoryPage) {
	base := c.Path()
	link := func(page int, rel string) string {
		return fmt.Sprintf(`<%s?page=%d&per_page=%d>; rel="%s"`, base, page, p.PerPage, rel)
	}

	links := []string{link(1, "first")}
	if p.HasPrev {
		links = append(links, link(p.Page-1, "prev"))
	}
	if p.HasNext {
		links = append(links, link(p.Page+1, "next"))
	}
	if p.Pages > 0 {
		links = append(links, link(p.Pages, "last"))
	}

	c.Set("Link", strings.Join(links, ", "))
}
