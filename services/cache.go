package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"pulse-cms-backend/models/recommend"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Per-algorithm cache durations, ordered by how fast the underlying data
// moves. Similar-users is shortest because it is semi-personalized.
var CacheDurations = map[string]time.Duration{
	recommend.AlgorithmRelated:        30 * time.Minute,
	recommend.AlgorithmTrending:       60 * time.Minute,
	recommend.AlgorithmPopular:        120 * time.Minute,
	recommend.AlgorithmAlsoViewed:     30 * time.Minute,
	recommend.AlgorithmBoughtTogether: 60 * time.Minute,
	recommend.AlgorithmSimilarUsers:   15 * time.Minute,
}

// CacheStore хранит вычисленные списки рекомендаций по составному ключу
// (sourceType, sourceId, targetType, algorithm). Ошибка чтения трактуется
// как промах, ошибка записи логируется и проглатывается.
type CacheStore interface {
	Get(sourceType string, sourceID uint, targetType, algorithm string) ([]recommend.RecommendationItem, bool)
	Set(sourceType string, sourceID uint, targetType, algorithm string, items []recommend.RecommendationItem, duration time.Duration)
	Clear(sourceType string, sourceID uint) error
	ClearExpired() error
}

// DBCacheStore keeps cache entries in a relational table with upsert
// semantics. Expired rows are treated as misses and overwritten by the next
// successful write; only ClearExpired actively removes them.
type DBCacheStore struct {
	DB *gorm.DB
}

func (s *DBCacheStore) Get(sourceType string, sourceID uint, targetType, algorithm string) ([]recommend.RecommendationItem, bool) {
	var entry recommend.CacheEntry
	err := s.DB.Where("source_type = ? AND source_id = ? AND target_type = ? AND algorithm = ?",
		sourceType, sourceID, targetType, algorithm).First(&entry).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("Cache read failed for %s/%d/%s/%s: %v", sourceType, sourceID, targetType, algorithm, err)
		}
		return nil, false
	}

	if !time.Now().UTC().Before(entry.ExpiresAt) {
		return nil, false
	}

	var items []recommend.RecommendationItem
	if err := json.Unmarshal([]byte(entry.Recommendations), &items); err != nil {
		log.Printf("Cache entry for %s/%d/%s/%s is corrupt: %v", sourceType, sourceID, targetType, algorithm, err)
		return nil, false
	}

	return items, true
}

func (s *DBCacheStore) Set(sourceType string, sourceID uint, targetType, algorithm string, items []recommend.RecommendationItem, duration time.Duration) {
	raw, err := json.Marshal(items)
	if err != nil {
		log.Printf("Failed to encode cache entry for %s/%d/%s/%s: %v", sourceType, sourceID, targetType, algorithm, err)
		return
	}

	entry := recommend.CacheEntry{
		SourceType:      sourceType,
		SourceID:        sourceID,
		TargetType:      targetType,
		Algorithm:       algorithm,
		Recommendations: string(raw),
		ExpiresAt:       time.Now().UTC().Add(duration),
	}

	err = s.DB.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "source_type"}, {Name: "source_id"}, {Name: "target_type"}, {Name: "algorithm"},
		},
		DoUpdates: clause.AssignmentColumns([]string{"recommendations", "expires_at", "updated_at"}),
	}).Create(&entry).Error
	if err != nil {
		log.Printf("Cache write failed for %s/%d/%s/%s: %v", sourceType, sourceID, targetType, algorithm, err)
	}
}

// Clear deletes matching entries. With neither filter it wipes the table.
func (s *DBCacheStore) Clear(sourceType string, sourceID uint) error {
	query := s.DB
	if sourceType != "" {
		query = query.Where("source_type = ?", sourceType)
	}
	if sourceID != 0 {
		query = query.Where("source_id = ?", sourceID)
	}
	if sourceType == "" && sourceID == 0 {
		query = query.Where("1 = 1")
	}
	return query.Delete(&recommend.CacheEntry{}).Error
}

func (s *DBCacheStore) ClearExpired() error {
	return s.DB.Where("expires_at <= ?", time.Now().UTC()).Delete(&recommend.CacheEntry{}).Error
}

// RedisCacheStore is the same contract on a Redis tier. Entry expiry rides on
// the key TTL, so ClearExpired has nothing to do.
type RedisCacheStore struct {
	Client *redis.Client
}

func redisCacheKey(sourceType string, sourceID uint, targetType, algorithm string) string {
	return fmt.Sprintf("rec:%s:%d:%s:%s", sourceType, sourceID, targetType, algorithm)
}

func (s *RedisCacheStore) Get(sourceType string, sourceID uint, targetType, algorithm string) ([]recommend.RecommendationItem, bool) {
	ctx := context.Background()
	raw, err := s.Client.Get(ctx, redisCacheKey(sourceType, sourceID, targetType, algorithm)).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Printf("Redis cache read failed for %s/%d/%s/%s: %v", sourceType, sourceID, targetType, algorithm, err)
		}
		return nil, false
	}

	var items []recommend.RecommendationItem
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		log.Printf("Redis cache entry for %s/%d/%s/%s is corrupt: %v", sourceType, sourceID, targetType, algorithm, err)
		return nil, false
	}
	return items, true
}

func (s *RedisCacheStore) Set(sourceType string, sourceID uint, targetType, algorithm string, items []recommend.RecommendationItem, duration time.Duration) {
	raw, err := json.Marshal(items)
	if err != nil {
		log.Printf("Failed to encode cache entry for %s/%d/%s/%s: %v", sourceType, sourceID, targetType, algorithm, err)
		return
	}

	ctx := context.Background()
	if err := s.Client.Set(ctx, redisCacheKey(sourceType, sourceID, targetType, algorithm), raw, duration).Err(); err != nil {
		log.Printf("Redis cache write failed for %s/%d/%s/%s: %v", sourceType, sourceID, targetType, algorithm, err)
	}
}

func (s *RedisCacheStore) Clear(sourceType string, sourceID uint) error {
	pattern := "rec:*"
	switch {
	case sourceType != "" && sourceID != 0:
		pattern = fmt.Sprintf("rec:%s:%d:*", sourceType, sourceID)
	case sourceType != "":
		pattern = fmt.Sprintf("rec:%s:*", sourceType)
	case sourceID != 0:
		pattern = fmt.Sprintf("rec:*:%d:*", sourceID)
	}

	ctx := context.Background()
	var cursor uint64
	for {
		keys, next, err := s.Client.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return err
		}
		if len(keys) > 0 {
			if err := s.Client.Del(ctx, keys...).Err(); err != nil {
				return err
			}
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}

func (s *RedisCacheStore) ClearExpired() error {
	return nil
}
