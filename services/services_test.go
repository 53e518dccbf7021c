package services

import (
	"testing"
	"time"

	"pulse-cms-backend/models/content"
	"pulse-cms-backend/models/recommend"
	"pulse-cms-backend/models/tracking"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	// A single connection keeps every query on the same in-memory database.
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	err = db.AutoMigrate(
		&content.Post{},
		&content.Page{},
		&content.Product{},
		&content.Course{},
		&tracking.Interaction{},
		&tracking.RecommendationClick{},
		&recommend.CacheEntry{},
	)
	if err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	return db
}

func seedPost(t *testing.T, db *gorm.DB, id, authorID uint, publishedAt time.Time) {
	t.Helper()
	post := content.Post{
		ID:          id,
		Title:       "Post",
		Slug:        "post-" + itoa(id),
		AuthorID:    authorID,
		Status:      StatusPublished,
		PublishedAt: publishedAt,
	}
	if err := db.Create(&post).Error; err != nil {
		t.Fatalf("failed to seed post %d: %v", id, err)
	}
}

func seedProduct(t *testing.T, db *gorm.DB, id uint, category string, updatedAt time.Time) {
	t.Helper()
	product := content.Product{
		ID:       id,
		Title:    "Product",
		Slug:     "product-" + itoa(id),
		Category: category,
		Price:    9.99,
		Status:   StatusPublished,
	}
	if err := db.Create(&product).Error; err != nil {
		t.Fatalf("failed to seed product %d: %v", id, err)
	}
	if err := db.Model(&content.Product{}).Where("id = ?", id).Update("updated_at", updatedAt).Error; err != nil {
		t.Fatalf("failed to set product %d updated_at: %v", id, err)
	}
}

func seedCourse(t *testing.T, db *gorm.DB, id uint, category, level string) {
	t.Helper()
	course := content.Course{
		ID:       id,
		Title:    "Course",
		Slug:     "course-" + itoa(id),
		Category: category,
		Level:    level,
		Status:   StatusPublished,
	}
	if err := db.Create(&course).Error; err != nil {
		t.Fatalf("failed to seed course %d: %v", id, err)
	}
}

func seedInteraction(t *testing.T, db *gorm.DB, contentType string, contentID uint, interactionType string, userID *uint, sessionID string, createdAt time.Time) {
	t.Helper()
	interaction := tracking.Interaction{
		ContentType:     contentType,
		ContentID:       contentID,
		InteractionType: interactionType,
		UserID:          userID,
		SessionID:       sessionID,
		CreatedAt:       createdAt,
	}
	if err := db.Create(&interaction).Error; err != nil {
		t.Fatalf("failed to seed interaction: %v", err)
	}
}

func uintPtr(v uint) *uint {
	return &v
}

func itoa(v uint) string {
	if v == 0 {
		return "0"
	}
	var digits []byte
	for v > 0 {
		digits = append([]byte{byte('0' + v%10)}, digits...)
		v /= 10
	}
	return string(digits)
}

// assertRankedList checks the invariants every returned list must hold:
// descending scores, unique IDs, and no occurrence of the source ID.
func assertRankedList(t *testing.T, items []recommend.RecommendationItem, sourceID uint) {
	t.Helper()
	seen := make(map[uint]bool)
	for i, item := range items {
		if item.ID == sourceID {
			t.Fatalf("item %d has the source ID %d", i, sourceID)
		}
		if seen[item.ID] {
			t.Fatalf("duplicate item ID %d", item.ID)
		}
		seen[item.ID] = true
		if i > 0 && items[i-1].Score < item.Score {
			t.Fatalf("scores not descending at index %d: %f < %f", i, items[i-1].Score, item.Score)
		}
	}
}
