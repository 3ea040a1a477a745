package ports

import (
	"context"

	"github.com/MATTHEWPURBA/Memory-Lane-Backend/internal/core/domain"
)

// MemoryRepository is the spatial index contract: the storage layer must be
// able to find memories within a radius of a point ordered by distance, and
// count memories inside bounding boxes.
type MemoryRepository interface {
	Create(ctx context.Context, m *domain.Memory) error
	GetByID(ctx context.Context, id string) (*domain.Memory, error)

	// FindNearby returns visible memories within radiusMeters of the point,
	// ordered by ascending distance with creation time (newest first) as the
	// tie-break. viewerID widens visibility to the viewer's own non-public
	// memories; an empty viewerID means public only.
	FindNearby(ctx context.Context, center domain.GeoPoint, radiusMeters float64, limit int, viewerID string, f domain.DiscoveryFilter) ([]domain.NearbyMemory, error)

	// CountNearby returns the total number of memories FindNearby would
	// match, ignoring limit/offset. Used for discovery pagination.
	CountNearby(ctx context.Context, center domain.GeoPoint, radiusMeters float64, viewerID string, f domain.DiscoveryFilter) (int, error)

	// FindNearbyPage is FindNearby with an offset, same predicate and order.
	FindNearbyPage(ctx context.Context, center domain.GeoPoint, radiusMeters float64, offset, limit int, viewerID string, f domain.DiscoveryFilter) ([]domain.NearbyMemory, error)

	// HeatmapCounts returns per-cell counts of public active non-expired
	// memories for a grid laid over bounds. Implementations may use a single
	// grouped aggregate as long as results are equivalent to independent
	// per-cell counts. Cells with no memories are omitted.
	HeatmapCounts(ctx context.Context, bounds domain.Bounds, gridSize int) ([]domain.HeatmapCell, error)

	// PopularInArea returns public memories within the radius ordered by
	// engagement descending, for popular-area clustering.
	PopularInArea(ctx context.Context, center domain.GeoPoint, radiusMeters float64, limit int) ([]domain.Memory, error)

	// AreaStats aggregates engagement statistics for public memories around
	// a point.
	AreaStats(ctx context.Context, center domain.GeoPoint, radiusMeters float64) (*domain.LocationStats, error)

	IncrementLikes(ctx context.Context, memoryID string) error
	IncrementComments(ctx context.Context, memoryID string) error
	IncrementDiscoveries(ctx context.Context, memoryID string) error
	MarkReported(ctx context.Context, memoryID string) error
}

// UserRepository resolves user identity and active status.
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
	TouchLastSeen(ctx context.Context, id string) error
}

// InteractionRepository persists likes/comments/shares/reports.
type InteractionRepository interface {
	Create(ctx context.Context, in *domain.Interaction) error
	HasInteracted(ctx context.Context, userID, memoryID string, t domain.InteractionType) (bool, error)
}
