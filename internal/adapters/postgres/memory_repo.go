package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/MATTHEWPURBA/Memory-Lane-Backend/internal/core/domain"
	"github.com/MATTHEWPURBA/Memory-Lane-Backend/internal/pkg/geospatial"
)

// MemoryRepo implements ports.MemoryRepository with pgx on PostGIS.
type MemoryRepo struct {
	db *DB
}

// NewMemoryRepo creates a new MemoryRepo.
func NewMemoryRepo(db *DB) *MemoryRepo {
	return &MemoryRepo{db: db}
}

const memoryColumns = `
	m.id, m.creator_id, u.username, m.title, COALESCE(m.description, ''),
	m.content_type, COALESCE(m.content_text, ''), COALESCE(m.content_url, ''),
	ST_Y(m.location::geometry), ST_X(m.location::geometry),
	COALESCE(m.location_name, ''), m.privacy_level, m.is_active, m.expires_at,
	m.likes_count, m.comments_count, m.views_count, m.discoveries_count,
	m.created_at, m.updated_at`

// visibleWhere is the discovery predicate. $1 is the viewer id; an empty
// string matches no creator and leaves public-only visibility. Friends-level
// memories are excluded for everyone but their creator.
const visibleWhere = `
	m.is_active
	AND (m.expires_at IS NULL OR m.expires_at > now())
	AND (m.privacy_level = 'public' OR m.creator_id = $1)`

func scanMemory(row pgx.Row) (*domain.Memory, error) {
	var m domain.Memory
	err := row.Scan(
		&m.ID, &m.CreatorID, &m.CreatorUsername, &m.Title, &m.Description,
		&m.ContentType, &m.ContentText, &m.ContentURL,
		&m.Location.Lat, &m.Location.Lon,
		&m.LocationName, &m.Privacy, &m.IsActive, &m.ExpiresAt,
		&m.LikesCount, &m.CommentsCount, &m.ViewsCount, &m.DiscoveriesCnt,
		&m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// Create inserts a memory. The location is stored as a geography point so
// ST_DWithin operates in meters.
func (r *MemoryRepo) Create(ctx context.Context, m *domain.Memory) error {
	_, err := r.db.Pool.Exec(ctx, `
		INSERT INTO memories (
			id, creator_id, title, description, content_type, content_text,
			content_url, location, location_name, privacy_level, is_active,
			expires_at, created_at, updated_at
		) VALUES (
			$1, $2, $3, NULLIF($4, ''), $5, NULLIF($6, ''), NULLIF($7, ''),
			ST_SetSRID(ST_MakePoint($8, $9), 4326)::geography,
			NULLIF($10, ''), $11, $12, $13, $14, $15
		)
	`, m.ID, m.CreatorID, m.Title, m.Description, m.ContentType, m.ContentText,
		m.ContentURL, m.Location.Lon, m.Location.Lat, m.LocationName,
		m.Privacy, m.IsActive, m.ExpiresAt, m.CreatedAt, m.UpdatedAt)
	return err
}

// GetByID returns a memory regardless of visibility. Callers apply the
// visibility rule.
func (r *MemoryRepo) GetByID(ctx context.Context, id string) (*domain.Memory, error) {
	m, err := scanMemory(r.db.Pool.QueryRow(ctx, `
		SELECT`+memoryColumns+`
		FROM memories m JOIN users u ON u.id = m.creator_id
		WHERE m.id = $1
	`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: memory %s", domain.ErrNotFound, id)
	}
	return m, err
}

// nearbyFilterSQL appends the optional discovery filters to the nearby
// predicate. Positional arguments start after viewer, lon, lat, radius.
func nearbyFilterSQL(f domain.DiscoveryFilter, args []any) (string, []any) {
	sql := ""
	if f.ContentType != "" {
		args = append(args, f.ContentType)
		sql += fmt.Sprintf(" AND m.content_type = $%d", len(args))
	}
	if f.CreatedAfter != nil {
		args = append(args, *f.CreatedAfter)
		sql += fmt.Sprintf(" AND m.created_at >= $%d", len(args))
	}
	if f.ExcludeOwn {
		sql += " AND m.creator_id <> $1"
	}
	return sql, args
}

// FindNearby returns visible memories within radiusMeters of the point,
// nearest first, newest first among equal distances.
func (r *MemoryRepo) FindNearby(ctx context.Context, center domain.GeoPoint, radiusMeters float64, limit int, viewerID string, f domain.DiscoveryFilter) ([]domain.NearbyMemory, error) {
	return r.findNearby(ctx, center, radiusMeters, 0, limit, viewerID, f)
}

// FindNearbyPage is FindNearby with an offset.
func (r *MemoryRepo) FindNearbyPage(ctx context.Context, center domain.GeoPoint, radiusMeters float64, offset, limit int, viewerID string, f domain.DiscoveryFilter) ([]domain.NearbyMemory, error) {
	return r.findNearby(ctx, center, radiusMeters, offset, limit, viewerID, f)
}

func (r *MemoryRepo) findNearby(ctx context.Context, center domain.GeoPoint, radiusMeters float64, offset, limit int, viewerID string, f domain.DiscoveryFilter) ([]domain.NearbyMemory, error) {
	args := []any{viewerID, center.Lon, center.Lat, radiusMeters}
	filterSQL, args := nearbyFilterSQL(f, args)
	args = append(args, limit, offset)

	rows, err := r.db.Pool.Query(ctx, `
		SELECT`+memoryColumns+`,
		       ST_Distance(m.location, ST_SetSRID(ST_MakePoint($2, $3), 4326)::geography) AS distance
		FROM memories m JOIN users u ON u.id = m.creator_id
		WHERE `+visibleWhere+`
		  AND ST_DWithin(m.location, ST_SetSRID(ST_MakePoint($2, $3), 4326)::geography, $4)
		`+filterSQL+`
		ORDER BY distance ASC, m.created_at DESC
		LIMIT $`+fmt.Sprint(len(args)-1)+` OFFSET $`+fmt.Sprint(len(args)), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var found []domain.NearbyMemory
	for rows.Next() {
		var nm domain.NearbyMemory
		if err := rows.Scan(
			&nm.ID, &nm.CreatorID, &nm.CreatorUsername, &nm.Title, &nm.Description,
			&nm.ContentType, &nm.ContentText, &nm.ContentURL,
			&nm.Location.Lat, &nm.Location.Lon,
			&nm.LocationName, &nm.Privacy, &nm.IsActive, &nm.ExpiresAt,
			&nm.LikesCount, &nm.CommentsCount, &nm.ViewsCount, &nm.DiscoveriesCnt,
			&nm.CreatedAt, &nm.UpdatedAt, &nm.DistanceMeters,
		); err != nil {
			return nil, err
		}
		found = append(found, nm)
	}
	return found, rows.Err()
}

// CountNearby returns how many memories the nearby predicate matches.
func (r *MemoryRepo) CountNearby(ctx context.Context, center domain.GeoPoint, radiusMeters float64, viewerID string, f domain.DiscoveryFilter) (int, error) {
	args := []any{viewerID, center.Lon, center.Lat, radiusMeters}
	filterSQL, args := nearbyFilterSQL(f, args)

	var total int
	err := r.db.Pool.QueryRow(ctx, `
		SELECT count(*)
		FROM memories m
		WHERE `+visibleWhere+`
		  AND ST_DWithin(m.location, ST_SetSRID(ST_MakePoint($2, $3), 4326)::geography, $4)
		`+filterSQL, args...).Scan(&total)
	return total, err
}

// HeatmapCounts buckets public active memories into a gridSize×gridSize grid
// over bounds with one grouped aggregate. Empty cells produce no rows.
func (r *MemoryRepo) HeatmapCounts(ctx context.Context, bounds domain.Bounds, gridSize int) ([]domain.HeatmapCell, error) {
	latStep, lonStep := geospatial.CellGrid(bounds.North, bounds.South, bounds.East, bounds.West, gridSize)

	rows, err := r.db.Pool.Query(ctx, `
		SELECT least(floor((ST_X(location::geometry) - $1) / $2), $5 - 1)::int AS cx,
		       least(floor((ST_Y(location::geometry) - $3) / $4), $5 - 1)::int AS cy,
		       count(*)
		FROM memories
		WHERE is_active
		  AND (expires_at IS NULL OR expires_at > now())
		  AND privacy_level = 'public'
		  AND ST_X(location::geometry) BETWEEN $1 AND $6
		  AND ST_Y(location::geometry) BETWEEN $3 AND $7
		GROUP BY cx, cy
	`, bounds.West, lonStep, bounds.South, latStep, gridSize, bounds.East, bounds.North)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cells []domain.HeatmapCell
	for rows.Next() {
		var cx, cy, count int
		if err := rows.Scan(&cx, &cy, &count); err != nil {
			return nil, err
		}
		west := bounds.West + float64(cx)*lonStep
		south := bounds.South + float64(cy)*latStep
		cells = append(cells, domain.HeatmapCell{
			Bounds: domain.Bounds{
				North: south + latStep,
				South: south,
				East:  west + lonStep,
				West:  west,
			},
			Center: domain.GeoPoint{
				Lat: south + latStep/2,
				Lon: west + lonStep/2,
			},
			Intensity: count,
		})
	}
	return cells, rows.Err()
}

// PopularInArea returns public memories within the radius ordered by
// engagement descending for popular-area clustering.
func (r *MemoryRepo) PopularInArea(ctx context.Context, center domain.GeoPoint, radiusMeters float64, limit int) ([]domain.Memory, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT`+memoryColumns+`
		FROM memories m JOIN users u ON u.id = m.creator_id
		WHERE m.is_active
		  AND (m.expires_at IS NULL OR m.expires_at > now())
		  AND m.privacy_level = 'public'
		  AND ST_DWithin(m.location, ST_SetSRID(ST_MakePoint($1, $2), 4326)::geography, $3)
		ORDER BY (m.likes_count + m.comments_count + m.discoveries_count) DESC, m.created_at DESC
		LIMIT $4
	`, center.Lon, center.Lat, radiusMeters, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var memories []domain.Memory
	for rows.Next() {
		m, err := scanMemory(rows)
		if err != nil {
			return nil, err
		}
		memories = append(memories, *m)
	}
	return memories, rows.Err()
}

// AreaStats aggregates public activity around a point.
func (r *MemoryRepo) AreaStats(ctx context.Context, center domain.GeoPoint, radiusMeters float64) (*domain.LocationStats, error) {
	const areaWhere = `
		is_active
		AND (expires_at IS NULL OR expires_at > now())
		AND privacy_level = 'public'
		AND ST_DWithin(location, ST_SetSRID(ST_MakePoint($1, $2), 4326)::geography, $3)`

	stats := &domain.LocationStats{ContentDistribution: map[domain.ContentType]int{}}
	err := r.db.Pool.QueryRow(ctx, `
		SELECT count(*), count(DISTINCT creator_id),
		       COALESCE(sum(likes_count), 0), COALESCE(sum(comments_count), 0),
		       COALESCE(sum(views_count), 0), COALESCE(sum(discoveries_count), 0)
		FROM memories
		WHERE `+areaWhere,
		center.Lon, center.Lat, radiusMeters,
	).Scan(&stats.TotalMemories, &stats.UniqueCreators,
		&stats.TotalLikes, &stats.TotalComments,
		&stats.TotalViews, &stats.TotalDiscoveries)
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Pool.Query(ctx, `
		SELECT content_type, count(*)
		FROM memories
		WHERE `+areaWhere+`
		GROUP BY content_type
	`, center.Lon, center.Lat, radiusMeters)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var ct domain.ContentType
		var n int
		if err := rows.Scan(&ct, &n); err != nil {
			return nil, err
		}
		stats.ContentDistribution[ct] = n
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if stats.TotalMemories > 0 {
		top, err := scanMemory(r.db.Pool.QueryRow(ctx, `
			SELECT`+memoryColumns+`
			FROM memories m JOIN users u ON u.id = m.creator_id
			WHERE m.is_active
			  AND (m.expires_at IS NULL OR m.expires_at > now())
			  AND m.privacy_level = 'public'
			  AND ST_DWithin(m.location, ST_SetSRID(ST_MakePoint($1, $2), 4326)::geography, $3)
			ORDER BY (m.likes_count + m.comments_count + m.discoveries_count) DESC, m.created_at DESC
			LIMIT 1
		`, center.Lon, center.Lat, radiusMeters))
		if err != nil && !errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		stats.MostPopular = top
	}
	return stats, nil
}

func (r *MemoryRepo) IncrementLikes(ctx context.Context, memoryID string) error {
	_, err := r.db.Pool.Exec(ctx,
		`UPDATE memories SET likes_count = likes_count + 1, updated_at = now() WHERE id = $1`, memoryID)
	return err
}

func (r *MemoryRepo) IncrementComments(ctx context.Context, memoryID string) error {
	_, err := r.db.Pool.Exec(ctx,
		`UPDATE memories SET comments_count = comments_count + 1, updated_at = now() WHERE id = $1`, memoryID)
	return err
}

func (r *MemoryRepo) IncrementDiscoveries(ctx context.Context, memoryID string) error {
	_, err := r.db.Pool.Exec(ctx,
		`UPDATE memories SET discoveries_count = discoveries_count + 1 WHERE id = $1`, memoryID)
	return err
}

// MarkReported flags a memory for moderation review.
func (r *MemoryRepo) MarkReported(ctx context.Context, memoryID string) error {
	_, err := r.db.Pool.Exec(ctx,
		`UPDATE memories SET reports_count = reports_count + 1, updated_at = now() WHERE id = $1`, memoryID)
	return err
}
