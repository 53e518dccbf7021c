package content

import (
	"time"

	"gorm.io/gorm"
)

type Post struct {
	ID          uint   `gorm:"primaryKey"`
	Title       string `gorm:"not null"`
	Slug        string `gorm:"uniqueIndex;not null"`
	Excerpt     string `gorm:"type:text"`
	Image       string
	AuthorID    uint      `gorm:"index;not null"` // ID автора поста
	Status      string    `gorm:"index;default:published"`
	PublishedAt time.Time `gorm:"index"`
	CreatedAt   time.Time `gorm:"default:current_timestamp"`
	UpdatedAt   time.Time
	DeletedAt   gorm.DeletedAt `gorm:"index"`
}
