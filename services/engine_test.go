package services

import (
	"testing"
	"time"

	"pulse-cms-backend/models/content"
	"pulse-cms-backend/models/tracking"
)

func TestRelatedPostsSameAuthorFirst(t *testing.T) {
	db := testDB(t)
	engine := &RecommendationEngine{DB: db}
	now := time.Now().UTC()

	seedPost(t, db, 1, 1, now.Add(-4*time.Hour)) // source
	seedPost(t, db, 2, 1, now.Add(-3*time.Hour))
	seedPost(t, db, 3, 1, now.Add(-2*time.Hour))
	seedPost(t, db, 4, 1, now.Add(-1*time.Hour))

	var source content.Post
	if err := db.First(&source, 1).Error; err != nil {
		t.Fatalf("failed to load source: %v", err)
	}

	items, err := engine.RelatedPosts(&source, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected exactly 2 items, got %d", len(items))
	}
	assertRankedList(t, items, 1)
	if items[0].Score != 1.0 {
		t.Fatalf("first same-author match should score 1.0, got %f", items[0].Score)
	}
	if items[0].ID != 4 {
		t.Fatalf("expected the most recent same-author post first, got %d", items[0].ID)
	}
}

func TestRelatedPostsBackfillsToLimit(t *testing.T) {
	db := testDB(t)
	engine := &RecommendationEngine{DB: db}
	now := time.Now().UTC()

	seedPost(t, db, 1, 1, now.Add(-3*time.Hour)) // source
	seedPost(t, db, 2, 1, now.Add(-2*time.Hour)) // same author
	seedPost(t, db, 3, 2, now.Add(-1*time.Hour)) // backfill
	seedPost(t, db, 4, 2, now)                   // backfill

	var source content.Post
	db.First(&source, 1)

	items, err := engine.RelatedPosts(&source, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("backfill must top the list up to the limit, got %d items", len(items))
	}
	assertRankedList(t, items, 1)
	if items[0].ID != 2 {
		t.Fatalf("same-author post must rank first, got %d", items[0].ID)
	}
}

func TestRelatedCoursesMatchCategoryOrLevel(t *testing.T) {
	db := testDB(t)
	engine := &RecommendationEngine{DB: db}

	seedCourse(t, db, 1, "go", "beginner") // source
	seedCourse(t, db, 2, "go", "advanced") // category match
	seedCourse(t, db, 3, "js", "beginner") // level match
	seedCourse(t, db, 4, "js", "advanced") // no match

	var source content.Course
	db.First(&source, 1)

	items, err := engine.RelatedCourses(&source, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	for _, item := range items {
		if item.ID != 2 && item.ID != 3 {
			t.Fatalf("category-OR-level match expected, got course %d", item.ID)
		}
	}
}

func TestTrendingPrefersWindowedCounts(t *testing.T) {
	db := testDB(t)
	engine := &RecommendationEngine{DB: db}
	now := time.Now().UTC()

	seedProduct(t, db, 1, "tools", now)
	seedProduct(t, db, 2, "tools", now)

	for i := 0; i < 5; i++ {
		seedInteraction(t, db, tracking.ContentTypeProduct, 1, tracking.InteractionView, nil, "s", now.Add(-time.Duration(i)*time.Hour))
	}

	items, err := engine.Trending(tracking.ContentTypeProduct, 7, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 1 || items[0].ID != 1 {
		t.Fatalf("expected the interacted-with product, got %+v", items)
	}
	if items[0].Score != 1.0 {
		t.Fatalf("top trending item should score 1.0, got %f", items[0].Score)
	}
}

func TestTrendingFallsBackToRecent(t *testing.T) {
	db := testDB(t)
	engine := &RecommendationEngine{DB: db}
	now := time.Now().UTC()

	seedPost(t, db, 1, 1, now.Add(-2*time.Hour))
	seedPost(t, db, 2, 1, now.Add(-1*time.Hour))

	items, err := engine.Trending(tracking.ContentTypePost, 7, 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected recent fallback with 2 posts, got %d", len(items))
	}
	if items[0].ID != 2 || items[0].Score != 1.0 {
		t.Fatalf("most recent post should lead with score 1.0, got %+v", items[0])
	}
	assertRankedList(t, items, 0)
}

func TestPopularCountsAllTime(t *testing.T) {
	db := testDB(t)
	engine := &RecommendationEngine{DB: db}
	now := time.Now().UTC()

	seedProduct(t, db, 1, "tools", now)
	seedProduct(t, db, 2, "tools", now)

	// Старые просмотры не попадают в trending-окно, но popular их считает
	old := now.AddDate(0, 0, -60)
	seedInteraction(t, db, tracking.ContentTypeProduct, 1, tracking.InteractionView, nil, "s", old)
	seedInteraction(t, db, tracking.ContentTypeProduct, 1, tracking.InteractionView, nil, "s", old)
	seedInteraction(t, db, tracking.ContentTypeProduct, 2, tracking.InteractionView, nil, "s", old)

	items, err := engine.Popular(tracking.ContentTypeProduct, 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 2 || items[0].ID != 1 {
		t.Fatalf("expected product 1 to lead the popular list, got %+v", items)
	}
	if items[1].Score != 0.5 {
		t.Fatalf("expected count/maxCount score 0.5, got %f", items[1].Score)
	}
}

func TestPersonalized(t *testing.T) {
	db := testDB(t)
	engine := &RecommendationEngine{DB: db}
	now := time.Now().UTC()

	seedPost(t, db, 1, 1, now.Add(-3*time.Hour))
	seedPost(t, db, 2, 1, now.Add(-2*time.Hour))
	seedPost(t, db, 3, 1, now.Add(-1*time.Hour))

	seedInteraction(t, db, tracking.ContentTypePost, 1, tracking.InteractionView, uintPtr(9), "", now)

	items, err := engine.Personalized(9, tracking.ContentTypePost, 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, item := range items {
		if item.ID == 1 {
			t.Fatalf("personalized list must not contain already-viewed content")
		}
	}
	if len(items) != 2 {
		t.Fatalf("expected the 2 unseen posts, got %d", len(items))
	}

	// Без истории - trending за последние 7 дней
	fallback, err := engine.Personalized(8, tracking.ContentTypePost, 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(fallback) == 0 {
		t.Fatalf("expected trending fallback for a user without history")
	}
}

func TestAlsoViewed(t *testing.T) {
	db := testDB(t)
	engine := &RecommendationEngine{DB: db}
	now := time.Now().UTC()

	seedProduct(t, db, 1, "a", now)
	seedProduct(t, db, 2, "a", now)
	seedProduct(t, db, 3, "b", now)

	// Два пользователя смотрели источник, затем другие товары
	seedInteraction(t, db, tracking.ContentTypeProduct, 1, tracking.InteractionView, uintPtr(1), "", now)
	seedInteraction(t, db, tracking.ContentTypeProduct, 1, tracking.InteractionView, uintPtr(2), "", now)
	seedInteraction(t, db, tracking.ContentTypeProduct, 2, tracking.InteractionView, uintPtr(1), "", now)
	seedInteraction(t, db, tracking.ContentTypeProduct, 2, tracking.InteractionPurchase, uintPtr(2), "", now)
	seedInteraction(t, db, tracking.ContentTypeProduct, 3, tracking.InteractionView, uintPtr(1), "", now)

	items, err := engine.AlsoViewed(tracking.ContentTypeProduct, 1, 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assertRankedList(t, items, 1)
	if len(items) != 2 {
		t.Fatalf("expected 2 co-viewed products, got %d", len(items))
	}
	if items[0].ID != 2 || items[0].Score != 1.0 {
		t.Fatalf("product 2 should lead with score 1.0, got %+v", items[0])
	}
	if items[1].Score != 0.5 {
		t.Fatalf("expected count/maxCount score 0.5, got %f", items[1].Score)
	}
}

func TestAlsoViewedFallsBackToPopular(t *testing.T) {
	db := testDB(t)
	engine := &RecommendationEngine{DB: db}
	now := time.Now().UTC()

	seedProduct(t, db, 1, "a", now)
	seedProduct(t, db, 5, "b", now)
	seedInteraction(t, db, tracking.ContentTypeProduct, 5, tracking.InteractionView, nil, "anon", now)

	// Источник никто не смотрел - короткое замыкание на popular
	items, err := engine.AlsoViewed(tracking.ContentTypeProduct, 1, 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) == 0 {
		t.Fatalf("expected popular fallback, got empty list")
	}
	if items[0].ID != 5 {
		t.Fatalf("expected the popular product, got %d", items[0].ID)
	}
}

func TestBoughtTogetherWindow(t *testing.T) {
	db := testDB(t)
	engine := &RecommendationEngine{DB: db}
	now := time.Now().UTC()

	seedProduct(t, db, 1, "a", now) // source
	seedProduct(t, db, 2, "a", now)
	seedProduct(t, db, 3, "b", now)

	// Y куплен через 10 минут после X, W - через два часа (вне окна)
	seedInteraction(t, db, tracking.ContentTypeProduct, 1, tracking.InteractionPurchase, uintPtr(1), "", now)
	seedInteraction(t, db, tracking.ContentTypeProduct, 2, tracking.InteractionPurchase, uintPtr(1), "", now.Add(10*time.Minute))
	seedInteraction(t, db, tracking.ContentTypeProduct, 3, tracking.InteractionPurchase, uintPtr(1), "", now.Add(2*time.Hour))

	var source content.Product
	db.First(&source, 1)

	items, err := engine.BoughtTogether(&source, 4)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected only the in-window co-purchase, got %d items", len(items))
	}
	if items[0].ID != 2 || items[0].Score != 1.0 {
		t.Fatalf("expected product 2 with score 1.0, got %+v", items[0])
	}
}

func TestBoughtTogetherSessionAttribution(t *testing.T) {
	db := testDB(t)
	engine := &RecommendationEngine{DB: db}
	now := time.Now().UTC()

	seedProduct(t, db, 1, "a", now)
	seedProduct(t, db, 2, "a", now)

	// Анонимная корзина: обе покупки только с session id
	seedInteraction(t, db, tracking.ContentTypeProduct, 1, tracking.InteractionPurchase, nil, "sess-1", now)
	seedInteraction(t, db, tracking.ContentTypeProduct, 2, tracking.InteractionPurchase, nil, "sess-1", now.Add(5*time.Minute))

	var source content.Product
	db.First(&source, 1)

	items, err := engine.BoughtTogether(&source, 4)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 1 || items[0].ID != 2 {
		t.Fatalf("session-scoped co-purchase expected, got %+v", items)
	}
}

func TestBoughtTogetherFallsBackToCategory(t *testing.T) {
	db := testDB(t)
	engine := &RecommendationEngine{DB: db}
	now := time.Now().UTC()

	seedProduct(t, db, 1, "a", now)
	seedProduct(t, db, 2, "a", now)
	seedProduct(t, db, 3, "b", now)

	var source content.Product
	db.First(&source, 1)

	items, err := engine.BoughtTogether(&source, 4)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 1 || items[0].ID != 2 {
		t.Fatalf("expected the same-category product, got %+v", items)
	}
}

func TestSimilarUsers(t *testing.T) {
	db := testDB(t)
	engine := &RecommendationEngine{DB: db}
	now := time.Now().UTC()

	seedPost(t, db, 1, 1, now.Add(-3*time.Hour))
	seedPost(t, db, 2, 1, now.Add(-2*time.Hour))
	seedPost(t, db, 3, 1, now.Add(-1*time.Hour))

	// Пользователь 2 пересекается с целевым по посту 1
	seedInteraction(t, db, tracking.ContentTypePost, 1, tracking.InteractionView, uintPtr(1), "", now)
	seedInteraction(t, db, tracking.ContentTypePost, 1, tracking.InteractionView, uintPtr(2), "", now)
	seedInteraction(t, db, tracking.ContentTypePost, 2, tracking.InteractionView, uintPtr(2), "", now)
	seedInteraction(t, db, tracking.ContentTypePost, 3, tracking.InteractionView, uintPtr(2), "", now)

	items, err := engine.SimilarUsers(1, tracking.ContentTypePost, 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assertRankedList(t, items, 0)
	if len(items) != 2 {
		t.Fatalf("expected posts 2 and 3, got %d items", len(items))
	}
	for _, item := range items {
		if item.ID == 1 {
			t.Fatalf("content the target user already touched must be excluded")
		}
	}
}

func TestSimilarUsersFallsBackToPopular(t *testing.T) {
	db := testDB(t)
	engine := &RecommendationEngine{DB: db}
	now := time.Now().UTC()

	seedPost(t, db, 1, 1, now)
	seedInteraction(t, db, tracking.ContentTypePost, 1, tracking.InteractionView, uintPtr(2), "", now)

	// У целевого пользователя нет истории
	items, err := engine.SimilarUsers(99, tracking.ContentTypePost, 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 1 || items[0].ID != 1 {
		t.Fatalf("expected popular fallback, got %+v", items)
	}
}
