package http

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/MATTHEWPURBA/Memory-Lane-Backend/internal/core/domain"
)

// queryPoint reads lat/lon query parameters. Presence is checked explicitly
// so (0, 0) can be told apart from missing parameters.
func queryPoint(c *fiber.Ctx, latKey, lonKey string) (domain.GeoPoint, bool) {
	if c.Query(latKey) == "" || c.Query(lonKey) == "" {
		return domain.GeoPoint{}, false
	}
	return domain.GeoPoint{
		Lat: c.QueryFloat(latKey),
		Lon: c.QueryFloat(lonKey),
	}, true
}

// discoveryFilter reads the optional nearby-query filters.
func discoveryFilter(c *fiber.Ctx) (domain.DiscoveryFilter, error) {
	var f domain.DiscoveryFilter
	if ct := c.Query("content_type"); ct != "" {
		f.ContentType = domain.ContentType(ct)
	}
	if after := c.Query("created_after"); after != "" {
		t, err := time.Parse(time.RFC3339, after)
		if err != nil {
			return f, err
		}
		f.CreatedAfter = &t
	} else if tr := c.Query("time_range"); tr != "" {
		var span time.Duration
		switch tr {
		case "today":
			span = 24 * time.Hour
		case "week":
			span = 7 * 24 * time.Hour
		case "month":
			span = 30 * 24 * time.Hour
		default:
			return f, fmt.Errorf("unknown time_range %q", tr)
		}
		t := time.Now().Add(-span)
		f.CreatedAfter = &t
	}
	f.ExcludeOwn = c.QueryBool("exclude_own", false)
	return f, nil
}

// NearbyMemoriesHandler returns memories around a point, nearest first.
func NearbyMemoriesHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		center, ok := queryPoint(c, "lat", "lon")
		if !ok {
			return errBadRequest(c, "lat and lon are required")
		}
		radius := c.QueryFloat("radius", 500)
		limit := c.QueryInt("limit", 50)

		filter, err := discoveryFilter(c)
		if err != nil {
			return errBadRequest(c, "invalid created_after or time_range filter")
		}

		memories, err := deps.Proximity.FindNearby(c.Context(), center, radius, limit, viewerID(c), filter)
		if err != nil {
			return domainError(c, err)
		}
		if memories == nil {
			memories = []domain.NearbyMemory{}
		}
		return c.JSON(fiber.Map{
			"memories": memories,
			"count":    len(memories),
			"radius":   radius,
		})
	}
}

// DiscoverMemoriesHandler is the paginated variant of nearby discovery.
func DiscoverMemoriesHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		center, ok := queryPoint(c, "lat", "lon")
		if !ok {
			return errBadRequest(c, "lat and lon are required")
		}
		radius := c.QueryFloat("radius", 500)
		page := c.QueryInt("page", 1)
		perPage := c.QueryInt("per_page", 20)

		filter, err := discoveryFilter(c)
		if err != nil {
			return errBadRequest(c, "invalid created_after or time_range filter")
		}

		result, err := deps.Proximity.DiscoverPage(c.Context(), center, radius, page, perPage, viewerID(c), filter)
		if err != nil {
			return domainError(c, err)
		}
		SetPageLinkHeaders(c, result)
		return c.JSON(result)
	}
}

// HeatmapHandler returns occupied density cells for a bounding box.
func HeatmapHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		for _, key := range []string{"north", "south", "east", "west"} {
			if c.Query(key) == "" {
				return errBadRequest(c, "north, south, east and west are required")
			}
		}
		bounds := domain.Bounds{
			North: c.QueryFloat("north"),
			South: c.QueryFloat("south"),
			East:  c.QueryFloat("east"),
			West:  c.QueryFloat("west"),
		}
		gridSize := c.QueryInt("grid_size", 20)

		cells, err := deps.Proximity.Heatmap(c.Context(), bounds, gridSize)
		if err != nil {
			return domainError(c, err)
		}
		return c.JSON(fiber.Map{
			"cells":     cells,
			"grid_size": gridSize,
			"bounds":    bounds,
		})
	}
}

// PopularAreasHandler returns engagement clusters around a point.
func PopularAreasHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		center, ok := queryPoint(c, "lat", "lon")
		if !ok {
			return errBadRequest(c, "lat and lon are required")
		}
		radius := c.QueryFloat("radius", 2000)
		minCluster := c.QueryInt("min_cluster", 1)
		maxAreas := c.QueryInt("max_areas", 10)

		areas, err := deps.Proximity.PopularAreas(c.Context(), center, radius, minCluster, maxAreas)
		if err != nil {
			return domainError(c, err)
		}
		if areas == nil {
			areas = []domain.PopularArea{}
		}
		return c.JSON(fiber.Map{"areas": areas, "count": len(areas)})
	}
}

// DistanceHandler returns the distance in meters between two points.
func DistanceHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		from, okFrom := queryPoint(c, "from_lat", "from_lon")
		to, okTo := queryPoint(c, "to_lat", "to_lon")
		if !okFrom || !okTo {
			return errBadRequest(c, "from_lat, from_lon, to_lat and to_lon are required")
		}

		meters, err := deps.Proximity.Distance(from, to)
		if err != nil {
			return domainError(c, err)
		}
		return c.JSON(fiber.Map{
			"from":            from,
			"to":              to,
			"distance_meters": meters,
		})
	}
}

// LocationStatsHandler returns aggregated public activity around a point.
func LocationStatsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		center, ok := queryPoint(c, "lat", "lon")
		if !ok {
			return errBadRequest(c, "lat and lon are required")
		}
		radius := c.QueryFloat("radius", 1000)

		stats, err := deps.Proximity.LocationStats(c.Context(), center, radius)
		if err != nil {
			return domainError(c, err)
		}
		return c.JSON(stats)
	}
}

// createMemoryRequest is the POST /v1/memories body.
type createMemoryRequest struct {
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	ContentType  string     `json:"content_type"`
	ContentText  string     `json:"content_text"`
	ContentURL   string     `json:"content_url"`
	Latitude     *float64   `json:"latitude"`
	Longitude    *float64   `json:"longitude"`
	LocationName string     `json:"location_name"`
	Privacy      string     `json:"privacy_level"`
	ExpiresAt    *time.Time `json:"expiration_date"`
}

// CreateMemoryHandler persists a new memory for the authenticated user.
func CreateMemoryHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req createMemoryRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid JSON body")
		}
		if req.Latitude == nil || req.Longitude == nil {
			return errBadRequest(c, "latitude and longitude are required")
		}

		m := &domain.Memory{
			CreatorID:    currentUser(c).ID,
			Title:        req.Title,
			Description:  req.Description,
			ContentType:  domain.ContentType(req.ContentType),
			ContentText:  req.ContentText,
			ContentURL:   req.ContentURL,
			Location:     domain.GeoPoint{Lat: *req.Latitude, Lon: *req.Longitude},
			LocationName: req.LocationName,
			Privacy:      domain.PrivacyLevel(req.Privacy),
			ExpiresAt:    req.ExpiresAt,
		}
		if err := deps.Memories.Create(c.Context(), m); err != nil {
			return domainError(c, err)
		}
		return c.Status(201).JSON(m)
	}
}

// GetMemoryHandler returns a single memory, applying the visibility rule.
func GetMemoryHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		m, err := deps.Memories.Get(c.Context(), c.Params("id"), viewerID(c))
		if err != nil {
			return domainError(c, err)
		}
		return c.JSON(m)
	}
}

// LikeMemoryHandler records a like by the authenticated user.
func LikeMemoryHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := deps.Memories.Like(c.Context(), c.Params("id"), currentUser(c)); err != nil {
			return domainError(c, err)
		}
		return c.JSON(fiber.Map{"status": "liked"})
	}
}

type commentRequest struct {
	Text string `json:"text"`
}

// CommentMemoryHandler records a comment by the authenticated user.
func CommentMemoryHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req commentRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid JSON body")
		}
		if err := deps.Memories.Comment(c.Context(), c.Params("id"), currentUser(c), req.Text); err != nil {
			return domainError(c, err)
		}
		return c.Status(201).JSON(fiber.Map{"status": "commented"})
	}
}

type reportRequest struct {
	Reason string `json:"reason"`
}

// ReportMemoryHandler flags a memory for moderation.
func ReportMemoryHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req reportRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid JSON body")
		}
		if err := deps.Memories.Report(c.Context(), c.Params("id"), currentUser(c), req.Reason); err != nil {
			return domainError(c, err)
		}
		return c.JSON(fiber.Map{"status": "reported"})
	}
}

// RealtimeStatsHandler exposes the presence counters for dashboards.
func RealtimeStatsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"active_connections": deps.Registry.Len(),
		})
	}
}
