package content

import (
	"time"

	"gorm.io/gorm"
)

type Course struct {
	ID           uint   `gorm:"primaryKey"`
	Title        string `gorm:"not null"`
	Slug         string `gorm:"uniqueIndex;not null"`
	Excerpt      string `gorm:"type:text"`
	Image        string
	Category     string `gorm:"index"`
	Level        string `gorm:"index"` // beginner, intermediate, advanced
	InstructorID uint   `gorm:"index"`
	Status       string `gorm:"index;default:published"`
	CreatedAt    time.Time
	UpdatedAt    time.Time `gorm:"index"`
	DeletedAt    gorm.DeletedAt `gorm:"index"`
}
