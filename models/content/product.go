package content

import (
	"time"

	"gorm.io/gorm"
)

type Product struct {
	ID        uint    `gorm:"primaryKey"`
	Title     string  `gorm:"not null"`
	Slug      string  `gorm:"uniqueIndex;not null"`
	Excerpt   string  `gorm:"type:text"`
	Image     string
	Category  string  `gorm:"index"`
	Price     float64 `gorm:"default:0"`
	Status    string  `gorm:"index;default:published"`
	CreatedAt time.Time
	UpdatedAt time.Time `gorm:"index"`
	DeletedAt gorm.DeletedAt `gorm:"index"`
}
