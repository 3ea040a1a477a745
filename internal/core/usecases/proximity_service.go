package usecases

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/MATTHEWPURBA/Memory-Lane-Backend/internal/core/domain"
	"github.com/MATTHEWPURBA/Memory-Lane-Backend/internal/core/ports"
	"github.com/MATTHEWPURBA/Memory-Lane-Backend/internal/pkg/config"
	"github.com/MATTHEWPURBA/Memory-Lane-Backend/internal/pkg/geospatial"
	"github.com/MATTHEWPURBA/Memory-Lane-Backend/internal/pkg/metrics"
)

const (
	heatmapCacheTTL = 60  // seconds
	popularCacheTTL = 120 // seconds

	sampleMemoriesPerArea = 3
)

// ProximityService answers location queries: nearby memories, discovery
// pages, density heatmaps, popular-area clusters and area statistics.
type ProximityService struct {
	memories ports.MemoryRepository
	cache    ports.CacheService
	policy   config.DiscoveryConfig
}

// NewProximityService builds the query service. cache may be nil, in which
// case every query goes straight to the repository.
func NewProximityService(memories ports.MemoryRepository, cache ports.CacheService, policy config.DiscoveryConfig) *ProximityService {
	return &ProximityService{memories: memories, cache: cache, policy: policy}
}

// validateRadius enforces the query radius policy. Discovery queries are held
// to the tight band; map-scale queries may go up to maxMeters.
func (s *ProximityService) validateRadius(radiusMeters, maxMeters float64) error {
	if radiusMeters < s.policy.MinRadiusMeters || radiusMeters > maxMeters {
		return fmt.Errorf("%w: radius must be between %.0f and %.0f meters",
			domain.ErrInvalidParameter, s.policy.MinRadiusMeters, maxMeters)
	}
	return nil
}

// FindNearby returns memories visible to viewerID within radiusMeters of
// center, ordered by ascending distance. Each returned memory counts as a
// discovery.
func (s *ProximityService) FindNearby(ctx context.Context, center domain.GeoPoint, radiusMeters float64, limit int, viewerID string, f domain.DiscoveryFilter) ([]domain.NearbyMemory, error) {
	if err := center.Validate(); err != nil {
		return nil, err
	}
	if err := s.validateRadius(radiusMeters, s.policy.MaxRadiusMeters); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > s.policy.MaxPageSize {
		limit = s.policy.MaxPageSize
	}

	timer := prometheus.NewTimer(metrics.NearbyQueryDuration)
	found, err := s.memories.FindNearby(ctx, center, radiusMeters, limit, viewerID, f)
	timer.ObserveDuration()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrQueryFailed, err)
	}

	metrics.MemoriesDiscovered.Add(float64(len(found)))
	s.recordDiscoveries(ctx, found)
	return found, nil
}

// DiscoverPage is FindNearby with pagination metadata.
func (s *ProximityService) DiscoverPage(ctx context.Context, center domain.GeoPoint, radiusMeters float64, page, perPage int, viewerID string, f domain.DiscoveryFilter) (*domain.MemoryPage, error) {
	if err := center.Validate(); err != nil {
		return nil, err
	}
	if err := s.validateRadius(radiusMeters, s.policy.MaxRadiusMeters); err != nil {
		return nil, err
	}
	if page < 1 {
		page = 1
	}
	if perPage <= 0 || perPage > s.policy.MaxPageSize {
		perPage = s.policy.MaxPageSize
	}

	total, err := s.memories.CountNearby(ctx, center, radiusMeters, viewerID, f)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrQueryFailed, err)
	}

	pages := (total + perPage - 1) / perPage
	offset := (page - 1) * perPage

	var found []domain.NearbyMemory
	if offset < total {
		timer := prometheus.NewTimer(metrics.NearbyQueryDuration)
		found, err = s.memories.FindNearbyPage(ctx, center, radiusMeters, offset, perPage, viewerID, f)
		timer.ObserveDuration()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrQueryFailed, err)
		}
	}
	if found == nil {
		found = []domain.NearbyMemory{}
	}

	metrics.MemoriesDiscovered.Add(float64(len(found)))
	s.recordDiscoveries(ctx, found)

	return &domain.MemoryPage{
		Memories: found,
		Page:     page,
		PerPage:  perPage,
		Total:    total,
		Pages:    pages,
		HasNext:  page < pages,
		HasPrev:  page > 1,
	}, nil
}

// Heatmap returns the occupied cells of a gridSize×gridSize density grid over
// bounds. gridSize is clamped to the configured range rather than rejected.
func (s *ProximityService) Heatmap(ctx context.Context, bounds domain.Bounds, gridSize int) ([]domain.HeatmapCell, error) {
	if err := bounds.Validate(); err != nil {
		return nil, err
	}
	if gridSize < s.policy.MinGridSize {
		gridSize = s.policy.MinGridSize
	}
	if gridSize > s.policy.MaxGridSize {
		gridSize = s.policy.MaxGridSize
	}

	// Full-precision key components; rounding would alias nearby viewports
	// onto one cache entry.
	key := fmt.Sprintf("heatmap:%v:%v:%v:%v:%d",
		bounds.North, bounds.South, bounds.East, bounds.West, gridSize)
	var cells []domain.HeatmapCell
	if s.cacheGet(ctx, "heatmap", key, &cells) {
		return cells, nil
	}

	cells, err := s.memories.HeatmapCounts(ctx, bounds, gridSize)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrQueryFailed, err)
	}
	if cells == nil {
		cells = []domain.HeatmapCell{}
	}

	s.cacheSet(ctx, key, cells, heatmapCacheTTL)
	return cells, nil
}

// PopularAreas groups the most engaged public memories around center into
// clusters. Memories are taken in descending engagement order and each joins
// the first existing cluster within the configured cluster radius, in
// founding order, or founds a new one. The greedy order means
// high-engagement memories anchor the clusters. Clusters smaller than
// minClusterSize are dropped before ranking.
func (s *ProximityService) PopularAreas(ctx context.Context, center domain.GeoPoint, radiusMeters float64, minClusterSize, maxAreas int) ([]domain.PopularArea, error) {
	if err := center.Validate(); err != nil {
		return nil, err
	}
	if err := s.validateRadius(radiusMeters, s.policy.MapMaxRadiusMeters); err != nil {
		return nil, err
	}
	if minClusterSize < 1 {
		minClusterSize = 1
	}
	if maxAreas <= 0 {
		maxAreas = 10
	}

	key := fmt.Sprintf("popular:%v:%v:%v:%d:%d",
		center.Lat, center.Lon, radiusMeters, minClusterSize, maxAreas)
	var areas []domain.PopularArea
	if s.cacheGet(ctx, "popular_areas", key, &areas) {
		return areas, nil
	}

	found, err := s.memories.PopularInArea(ctx, center, radiusMeters, s.policy.MaxPageSize)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrQueryFailed, err)
	}

	areas = clusterByProximity(found, s.policy.ClusterRadiusM)
	if minClusterSize > 1 {
		kept := areas[:0]
		for _, a := range areas {
			if a.MemoryCount >= minClusterSize {
				kept = append(kept, a)
			}
		}
		areas = kept
	}
	sort.SliceStable(areas, func(i, j int) bool {
		return areas[i].TotalEngagement > areas[j].TotalEngagement
	})
	if len(areas) > maxAreas {
		areas = areas[:maxAreas]
	}

	s.cacheSet(ctx, key, areas, popularCacheTTL)
	return areas, nil
}

// clusterByProximity runs a single greedy pass over memories, which must be
// ordered by engagement descending. Cluster centers are fixed at the founding
// memory's location. A memory within range of several clusters joins the
// oldest one, not the nearest, so results are reproducible for a given
// engagement ordering.
func clusterByProximity(memories []domain.Memory, clusterRadiusMeters float64) []domain.PopularArea {
	areas := []domain.PopularArea{}
	for i := range memories {
		m := &memories[i]

		best := -1
		for j := range areas {
			d := geospatial.Distance(m.Location.Lat, m.Location.Lon,
				areas[j].Center.Lat, areas[j].Center.Lon)
			if d <= clusterRadiusMeters {
				best = j
				break
			}
		}

		if best < 0 {
			areas = append(areas, domain.PopularArea{
				Center:          m.Location,
				MemoryCount:     1,
				TotalEngagement: m.Engagement(),
				SampleMemories:  []domain.Memory{*m},
			})
			continue
		}

		areas[best].MemoryCount++
		areas[best].TotalEngagement += m.Engagement()
		if len(areas[best].SampleMemories) < sampleMemoriesPerArea {
			areas[best].SampleMemories = append(areas[best].SampleMemories, *m)
		}
	}
	return areas
}

// Distance validates both endpoints and returns the great-circle distance in
// meters.
func (s *ProximityService) Distance(from, to domain.GeoPoint) (float64, error) {
	if err := from.Validate(); err != nil {
		return 0, err
	}
	if err := to.Validate(); err != nil {
		return 0, err
	}
	return geospatial.Distance(from.Lat, from.Lon, to.Lat, to.Lon), nil
}

// LocationStats aggregates public activity around a point. Map-scale radius
// policy applies.
func (s *ProximityService) LocationStats(ctx context.Context, center domain.GeoPoint, radiusMeters float64) (*domain.LocationStats, error) {
	if err := center.Validate(); err != nil {
		return nil, err
	}
	if err := s.validateRadius(radiusMeters, s.policy.MapMaxRadiusMeters); err != nil {
		return nil, err
	}

	stats, err := s.memories.AreaStats(ctx, center, radiusMeters)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrQueryFailed, err)
	}
	stats.Location = center
	stats.RadiusMeters = radiusMeters
	return stats, nil
}

// recordDiscoveries bumps discovery counters for memories another user just
// found. Best effort: counter drift is acceptable, failed queries are not.
func (s *ProximityService) recordDiscoveries(ctx context.Context, found []domain.NearbyMemory) {
	for i := range found {
		if err := s.memories.IncrementDiscoveries(ctx, found[i].ID); err != nil {
			slog.Debug("discovery counter update failed", "memory_id", found[i].ID, "error", err)
			return
		}
	}
}

func (s *ProximityService) cacheGet(ctx context.Context, op, key string, out any) bool {
	if s.cache == nil {
		return false
	}
	raw, err := s.cache.Get(ctx, key)
	if err != nil || raw == nil {
		metrics.CacheMisses.WithLabelValues(op).Inc()
		return false
	}
	if err := json.Unmarshal(raw, out); err != nil {
		metrics.CacheMisses.WithLabelValues(op).Inc()
		return false
	}
	metrics.CacheHits.WithLabelValues(op).Inc()
	return true
}

func (s *ProximityService) cacheSet(ctx context.Context, key string, v any, ttlSeconds int) {
	if s.cache == nil {
		return
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, raw, ttlSeconds); err != nil {
		slog.Debug("cache write failed", "key", key, "error", err)
	}
}
