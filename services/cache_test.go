package services

import (
	"testing"
	"time"

	"pulse-cms-backend/models/recommend"
	"pulse-cms-backend/models/tracking"
)

func sampleItems() []recommend.RecommendationItem {
	return []recommend.RecommendationItem{
		{ID: 2, Type: tracking.ContentTypePost, Title: "First", Slug: "first", Score: 1.0},
		{ID: 3, Type: tracking.ContentTypePost, Title: "Second", Slug: "second", Score: 0.9},
	}
}

func TestCacheRoundTrip(t *testing.T) {
	db := testDB(t)
	store := &DBCacheStore{DB: db}

	store.Set(tracking.ContentTypePost, 1, tracking.ContentTypePost, recommend.AlgorithmRelated, sampleItems(), 30*time.Minute)

	items, ok := store.Get(tracking.ContentTypePost, 1, tracking.ContentTypePost, recommend.AlgorithmRelated)
	if !ok {
		t.Fatalf("expected a cache hit")
	}
	if len(items) != 2 || items[0].ID != 2 || items[1].ID != 3 {
		t.Fatalf("cache round-trip must preserve the item list, got %+v", items)
	}
	if items[0].Score != 1.0 {
		t.Fatalf("scores must survive the round-trip, got %f", items[0].Score)
	}
}

func TestCacheMissAfterExpiry(t *testing.T) {
	db := testDB(t)
	store := &DBCacheStore{DB: db}

	store.Set(tracking.ContentTypePost, 1, tracking.ContentTypePost, recommend.AlgorithmRelated, sampleItems(), -time.Minute)

	if _, ok := store.Get(tracking.ContentTypePost, 1, tracking.ContentTypePost, recommend.AlgorithmRelated); ok {
		t.Fatalf("expired entry must read as a miss")
	}

	// Запись не удаляется, следующая успешная запись перезаписывает её
	var count int64
	db.Model(&recommend.CacheEntry{}).Count(&count)
	if count != 1 {
		t.Fatalf("expired entry should remain until overwritten, got %d rows", count)
	}
}

func TestCacheUpsertReplaces(t *testing.T) {
	db := testDB(t)
	store := &DBCacheStore{DB: db}

	store.Set(tracking.ContentTypePost, 1, tracking.ContentTypePost, recommend.AlgorithmRelated, sampleItems(), 30*time.Minute)

	replacement := []recommend.RecommendationItem{{ID: 9, Type: tracking.ContentTypePost, Title: "New", Slug: "new", Score: 1.0}}
	store.Set(tracking.ContentTypePost, 1, tracking.ContentTypePost, recommend.AlgorithmRelated, replacement, 30*time.Minute)

	var count int64
	db.Model(&recommend.CacheEntry{}).Count(&count)
	if count != 1 {
		t.Fatalf("upsert must not create a second row, got %d", count)
	}

	items, ok := store.Get(tracking.ContentTypePost, 1, tracking.ContentTypePost, recommend.AlgorithmRelated)
	if !ok || len(items) != 1 || items[0].ID != 9 {
		t.Fatalf("expected the replacement entry, got %+v", items)
	}
}

func TestCacheKeyIsolation(t *testing.T) {
	db := testDB(t)
	store := &DBCacheStore{DB: db}

	store.Set(tracking.ContentTypePost, 1, tracking.ContentTypePost, recommend.AlgorithmRelated, sampleItems(), 30*time.Minute)

	if _, ok := store.Get(tracking.ContentTypePost, 1, tracking.ContentTypePost, recommend.AlgorithmAlsoViewed); ok {
		t.Fatalf("different algorithm must be a different key")
	}
	if _, ok := store.Get(tracking.ContentTypePost, 2, tracking.ContentTypePost, recommend.AlgorithmRelated); ok {
		t.Fatalf("different source ID must be a different key")
	}
}

func TestCacheClear(t *testing.T) {
	db := testDB(t)
	store := &DBCacheStore{DB: db}

	store.Set(tracking.ContentTypePost, 1, tracking.ContentTypePost, recommend.AlgorithmRelated, sampleItems(), 30*time.Minute)
	store.Set(tracking.ContentTypeProduct, 2, tracking.ContentTypeProduct, recommend.AlgorithmRelated, sampleItems(), 30*time.Minute)

	if err := store.Clear(tracking.ContentTypePost, 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, ok := store.Get(tracking.ContentTypePost, 1, tracking.ContentTypePost, recommend.AlgorithmRelated); ok {
		t.Fatalf("post entries should be cleared")
	}
	if _, ok := store.Get(tracking.ContentTypeProduct, 2, tracking.ContentTypeProduct, recommend.AlgorithmRelated); !ok {
		t.Fatalf("product entries should survive a filtered clear")
	}

	if err := store.Clear("", 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var count int64
	db.Model(&recommend.CacheEntry{}).Count(&count)
	if count != 0 {
		t.Fatalf("unfiltered clear must wipe the table, got %d rows", count)
	}
}

func TestClearExpired(t *testing.T) {
	db := testDB(t)
	store := &DBCacheStore{DB: db}

	store.Set(tracking.ContentTypePost, 1, tracking.ContentTypePost, recommend.AlgorithmRelated, sampleItems(), -time.Minute)
	store.Set(tracking.ContentTypePost, 2, tracking.ContentTypePost, recommend.AlgorithmRelated, sampleItems(), 30*time.Minute)

	if err := store.ClearExpired(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var count int64
	db.Model(&recommend.CacheEntry{}).Count(&count)
	if count != 1 {
		t.Fatalf("only the live entry should remain, got %d rows", count)
	}
}
