package domain

import (
	"time"
)

// ContentType classifies what a memory carries.
type ContentType string

const (
	ContentText  ContentType = "text"
	ContentPhoto ContentType = "photo"
	ContentAudio ContentType = "audio"
	ContentVideo ContentType = "video"
)

// PrivacyLevel controls who may discover a memory.
type PrivacyLevel string

const (
	PrivacyPublic  PrivacyLevel = "public"
	PrivacyFriends PrivacyLevel = "friends"
	PrivacyPrivate PrivacyLevel = "private"
)

// User is an account that creates memories and connects to the realtime
// channel.
type User struct {
	ID              string    `json:"user_id"`
	Username        string    `json:"username"`
	DisplayName     string    `json:"display_name,omitempty"`
	ProfilePhotoURL string    `json:"profile_photo_url,omitempty"`
	IsActive        bool      `json:"is_active"`
	MemoriesCount   int       `json:"memories_count"`
	LastSeen        time.Time `json:"last_seen"`
	CreatedAt       time.Time `json:"created_at"`
}

// Memory is a geo-tagged post.
type Memory struct {
	ID              string       `json:"memory_id"`
	CreatorID       string       `json:"creator_id"`
	CreatorUsername string       `json:"creator_username,omitempty"`
	Title           string       `json:"title"`
	Description     string       `json:"description,omitempty"`
	ContentType     ContentType  `json:"content_type"`
	ContentText     string       `json:"content_text,omitempty"`
	ContentURL      string       `json:"content_url,omitempty"`
	Location        GeoPoint     `json:"location"`
	LocationName    string       `json:"location_name,omitempty"`
	Privacy         PrivacyLevel `json:"privacy_level"`
	IsActive        bool         `json:"is_active"`
	ExpiresAt       *time.Time   `json:"expiration_date,omitempty"`
	LikesCount      int          `json:"likes_count"`
	CommentsCount   int          `json:"comments_count"`
	ViewsCount      int          `json:"views_count"`
	DiscoveriesCnt  int          `json:"discoveries_count"`
	CreatedAt       time.Time    `json:"created_at"`
	UpdatedAt       time.Time    `json:"updated_at"`
}

// Expired reports whether the memory is past its optional expiry.
func (m *Memory) Expired(now time.Time) bool {
	return m.ExpiresAt != nil && now.After(*m.ExpiresAt)
}

// Engagement is the ranking score used by popular-area clustering.
func (m *Memory) Engagement() int {
	return m.LikesCount + m.CommentsCount + m.DiscoveriesCnt
}

// CanView applies the discovery visibility rule: a memory is visible iff it
// is active, not expired, and either public or owned by the viewer. The
// "friends" level is always excluded since there is no friend graph; this is an
// explicit policy, not an oversight.
func (m *Memory) CanView(viewerID string, now time.Time) bool {
	if !m.IsActive || m.Expired(now) {
		return false
	}
	if viewerID != "" && viewerID == m.CreatorID {
		return true
	}
	return m.Privacy == PrivacyPublic
}

// NearbyMemory pairs a memory with its distance from a query center.
type NearbyMemory struct {
	Memory
	DistanceMeters float64 `json:"distance_meters"`
}

// MemoryPage is a page of discovery results with pagination metadata.
type MemoryPage struct {
	Memories []NearbyMemory `json:"memories"`
	Page     int            `json:"page"`
	PerPage  int            `json:"per_page"`
	Total    int            `json:"total"`
	Pages    int            `json:"pages"`
	HasNext  bool           `json:"has_next"`
	HasPrev  bool           `json:"has_prev"`
}

// DiscoveryFilter narrows a nearby query. Zero value means no filtering.
type DiscoveryFilter struct {
	ContentType  ContentType `json:"content_type,omitempty"`
	CreatedAfter *time.Time  `json:"created_after,omitempty"`
	ExcludeOwn   bool        `json:"exclude_own,omitempty"`
}

// HeatmapCell is one occupied cell of a density grid. Cells with zero
// intensity are never emitted.
type HeatmapCell struct {
	Center    GeoPoint `json:"center"`
	Bounds    Bounds   `json:"bounds"`
	Intensity int      `json:"intensity"`
}

// PopularArea is a cluster of nearby memories ranked by engagement.
type PopularArea struct {
	Center          GeoPoint `json:"center"`
	MemoryCount     int      `json:"memory_count"`
	TotalEngagement int      `json:"total_engagement"`
	SampleMemories  []Memory `json:"sample_memories"`
}

// InteractionType classifies a user action on a memory.
type InteractionType string

const (
	InteractionLike    InteractionType = "like"
	InteractionComment InteractionType = "comment"
	InteractionShare   InteractionType = "share"
	InteractionReport  InteractionType = "report"
)

// Interaction records one like/comment/share/report on a memory.
type Interaction struct {
	ID        string          `json:"interaction_id"`
	MemoryID  string          `json:"memory_id"`
	UserID    string          `json:"user_id"`
	Type      InteractionType `json:"type"`
	Content   string          `json:"content,omitempty"` // comment text
	CreatedAt time.Time       `json:"created_at"`
}

// InteractionEvent is the broker payload emitted when a memory is liked or
// commented on. CommentPreview is already truncated by the publisher.
type InteractionEvent struct {
	Type           InteractionType `json:"type"`
	MemoryID       string          `json:"memory_id"`
	MemoryTitle    string          `json:"memory_title"`
	CreatorID      string          `json:"creator_id"`
	ActorID        string          `json:"actor_id"`
	ActorUsername  string          `json:"from_user"`
	CommentPreview string          `json:"comment_preview,omitempty"`
	Timestamp      time.Time       `json:"timestamp"`
}

// LocationStats summarises public activity around a point.
type LocationStats struct {
	Location            GeoPoint            `json:"location"`
	RadiusMeters        float64             `json:"radius"`
	TotalMemories       int                 `json:"total_memories"`
	UniqueCreators      int                 `json:"unique_creators"`
	ContentDistribution map[ContentType]int `json:"content_distribution"`
	TotalLikes          int                 `json:"total_likes"`
	TotalComments       int                 `json:"total_comments"`
	TotalViews          int                 `json:"total_views"`
	TotalDiscoveries    int                 `json:"total_discoveries"`
	MostPopular         *Memory             `json:"most_popular_memory,omitempty"`
}
