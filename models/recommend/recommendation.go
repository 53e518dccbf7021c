package recommend

import "time"

// Recommendation algorithms
const (
	AlgorithmRelated        = "related"
	AlgorithmTrending       = "trending"
	AlgorithmPopular        = "popular"
	AlgorithmPersonalized   = "personalized"
	AlgorithmAlsoViewed     = "also_viewed"
	AlgorithmBoughtTogether = "bought_together"
	AlgorithmSimilarUsers   = "similar_users"
)

// RecommendationItem - один кандидат с оценкой (не хранится в базе)
type RecommendationItem struct {
	ID       uint                   `json:"id"`
	Type     string                 `json:"type"`
	Title    string                 `json:"title"`
	Slug     string                 `json:"slug"`
	Excerpt  string                 `json:"excerpt,omitempty"`
	Image    string                 `json:"image,omitempty"`
	Score    float64                `json:"score"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// RecommendationResult is the envelope every recommendation endpoint returns.
type RecommendationResult struct {
	Items      []RecommendationItem `json:"items"`
	Algorithm  string               `json:"algorithm"`
	SourceType string               `json:"sourceType"`
	SourceID   uint                 `json:"sourceId"`
	Cached     bool                 `json:"cached"`
}

// CacheEntry - закэшированный результат, уникальный по составному ключу.
// Просроченная запись считается промахом, новая запись перезаписывает её.
type CacheEntry struct {
	ID              uint   `gorm:"primaryKey"`
	SourceType      string `gorm:"not null;uniqueIndex:idx_rec_cache_key"`
	SourceID        uint   `gorm:"not null;uniqueIndex:idx_rec_cache_key"`
	TargetType      string `gorm:"not null;uniqueIndex:idx_rec_cache_key"`
	Algorithm       string `gorm:"not null;uniqueIndex:idx_rec_cache_key"`
	Recommendations string `gorm:"type:text"` // JSON-список RecommendationItem
	ExpiresAt       time.Time `gorm:"index"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (CacheEntry) TableName() string {
	return "recommendation_caches"
}
