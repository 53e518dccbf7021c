package tracking

import (
	"time"
)

// Content types that can be tracked and recommended
const (
	ContentTypePost    = "post"
	ContentTypePage    = "page"
	ContentTypeProduct = "product"
	ContentTypeCourse  = "course"
)

// Interaction types
const (
	InteractionView                = "view"
	InteractionClick               = "click"
	InteractionPurchase            = "purchase"
	InteractionEnroll              = "enroll"
	InteractionRecommendationClick = "recommendation_click"
)

func ValidContentType(contentType string) bool {
	switch contentType {
	case ContentTypePost, ContentTypePage, ContentTypeProduct, ContentTypeCourse:
		return true
	}
	return false
}

// Interaction - одно действие пользователя или сессии над единицей контента.
// Строки никогда не обновляются, удаляются только ретеншн-очисткой.
type Interaction struct {
	ID              uint   `gorm:"primaryKey"`
	ContentType     string `gorm:"not null;index:idx_interactions_content"`
	ContentID       uint   `gorm:"not null;index:idx_interactions_content"`
	InteractionType string `gorm:"not null;index"`
	UserID          *uint  `gorm:"index"`
	SessionID       string `gorm:"index"`
	Metadata        string `gorm:"type:text"` // JSON с деталями события
	CreatedAt       time.Time `gorm:"index"`
}

// RecommendationClick tracks that a shown recommendation was clicked.
// Each click is also mirrored into interactions as a recommendation_click
// row so click-through shows up in the general aggregates.
type RecommendationClick struct {
	ID                 uint   `gorm:"primaryKey"`
	SourceType         string `gorm:"not null;index:idx_rec_clicks_source"`
	SourceID           uint   `gorm:"not null;index:idx_rec_clicks_source"`
	RecommendationType string `gorm:"not null"`
	ClickedType        string `gorm:"not null"`
	ClickedID          uint   `gorm:"not null"`
	Position           int    `gorm:"default:0"` // Позиция в показанном списке
	UserID             *uint  `gorm:"index"`
	SessionID          string `gorm:"index"`
	CreatedAt          time.Time `gorm:"index"`
}
