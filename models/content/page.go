package content

import (
	"time"

	"gorm.io/gorm"
)

type Page struct {
	ID        uint   `gorm:"primaryKey"`
	Title     string `gorm:"not null"`
	Slug      string `gorm:"uniqueIndex;not null"`
	Excerpt   string `gorm:"type:text"`
	Template  string `gorm:"index;default:default"` // Шаблон страницы
	Status    string `gorm:"index;default:published"`
	CreatedAt time.Time
	UpdatedAt time.Time `gorm:"index"`
	DeletedAt gorm.DeletedAt `gorm:"index"`
}
