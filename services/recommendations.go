package services

import (
	"errors"
	"log"

	"pulse-cms-backend/models/content"
	"pulse-cms-backend/models/recommend"
	"pulse-cms-backend/models/tracking"

	"gorm.io/gorm"
)

const (
	DefaultRecommendationLimit = 6
	DefaultBoughtTogetherLimit = 4

	// Extra candidates requested when a per-user seen-filter will run.
	filterHeadroom = 10
)

// RecommendationService - единственная точка входа для остальных подсистем.
// Каждый метод - одноразовый конвейер cache-check -> engine -> user-filter ->
// cache-write, и любой внутренний сбой деградирует до пустого результата:
// упавший виджет рекомендаций не должен ломать страницу, в которую он встроен.
type RecommendationService struct {
	DB       *gorm.DB
	Engine   *RecommendationEngine
	Cache    CacheStore
	Tracking *TrackingService
}

func emptyResult(algorithm, sourceType string, sourceID uint) recommend.RecommendationResult {
	return recommend.RecommendationResult{
		Items:      []recommend.RecommendationItem{},
		Algorithm:  algorithm,
		SourceType: sourceType,
		SourceID:   sourceID,
	}
}

// GetRelatedPosts returns posts related to the given post. When userID is
// present the cache is bypassed and already-viewed posts are filtered out.
func (s *RecommendationService) GetRelatedPosts(postID uint, userID *uint, limit int) recommend.RecommendationResult {
	if limit <= 0 {
		limit = DefaultRecommendationLimit
	}
	result := emptyResult(recommend.AlgorithmRelated, tracking.ContentTypePost, postID)

	if userID == nil {
		if items, ok := s.Cache.Get(tracking.ContentTypePost, postID, tracking.ContentTypePost, recommend.AlgorithmRelated); ok {
			result.Items = items
			result.Cached = true
			return result
		}
	}

	var source content.Post
	if err := s.DB.First(&source, postID).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("Failed to load post %d for recommendations: %v", postID, err)
		}
		return result
	}

	fetch := limit
	if userID != nil {
		fetch = limit + filterHeadroom
	}

	items, err := s.Engine.RelatedPosts(&source, fetch)
	if err != nil {
		log.Printf("Related posts lookup for %d failed: %v", postID, err)
		return result
	}

	if userID != nil {
		items = s.filterSeen(items, *userID, tracking.ContentTypePost, []string{tracking.InteractionView}, limit)
	} else {
		s.Cache.Set(tracking.ContentTypePost, postID, tracking.ContentTypePost, recommend.AlgorithmRelated, items, CacheDurations[recommend.AlgorithmRelated])
	}

	result.Items = truncateItems(items, limit)
	return result
}

// GetRelatedPages is the unfiltered variant: pages have no per-user seen set.
func (s *RecommendationService) GetRelatedPages(pageID uint, limit int) recommend.RecommendationResult {
	if limit <= 0 {
		limit = DefaultRecommendationLimit
	}
	result := emptyResult(recommend.AlgorithmRelated, tracking.ContentTypePage, pageID)

	if items, ok := s.Cache.Get(tracking.ContentTypePage, pageID, tracking.ContentTypePage, recommend.AlgorithmRelated); ok {
		result.Items = items
		result.Cached = true
		return result
	}

	var source content.Page
	if err := s.DB.First(&source, pageID).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("Failed to load page %d for recommendations: %v", pageID, err)
		}
		return result
	}

	items, err := s.Engine.RelatedPages(&source, limit)
	if err != nil {
		log.Printf("Related pages lookup for %d failed: %v", pageID, err)
		return result
	}

	s.Cache.Set(tracking.ContentTypePage, pageID, tracking.ContentTypePage, recommend.AlgorithmRelated, items, CacheDurations[recommend.AlgorithmRelated])
	result.Items = items
	return result
}

// GetRelatedProducts filters out products the user already viewed or bought.
func (s *RecommendationService) GetRelatedProducts(productID uint, userID *uint, limit int) recommend.RecommendationResult {
	if limit <= 0 {
		limit = DefaultRecommendationLimit
	}
	result := emptyResult(recommend.AlgorithmRelated, tracking.ContentTypeProduct, productID)

	if userID == nil {
		if items, ok := s.Cache.Get(tracking.ContentTypeProduct, productID, tracking.ContentTypeProduct, recommend.AlgorithmRelated); ok {
			result.Items = items
			result.Cached = true
			return result
		}
	}

	var source content.Product
	if err := s.DB.First(&source, productID).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("Failed to load product %d for recommendations: %v", productID, err)
		}
		return result
	}

	fetch := limit
	if userID != nil {
		fetch = limit + filterHeadroom
	}

	items, err := s.Engine.RelatedProducts(&source, fetch)
	if err != nil {
		log.Printf("Related products lookup for %d failed: %v", productID, err)
		return result
	}

	if userID != nil {
		items = s.filterSeen(items, *userID, tracking.ContentTypeProduct,
			[]string{tracking.InteractionView, tracking.InteractionPurchase}, limit)
	} else {
		s.Cache.Set(tracking.ContentTypeProduct, productID, tracking.ContentTypeProduct, recommend.AlgorithmRelated, items, CacheDurations[recommend.AlgorithmRelated])
	}

	result.Items = truncateItems(items, limit)
	return result
}

func (s *RecommendationService) GetRelatedCourses(courseID uint, limit int) recommend.RecommendationResult {
	if limit <= 0 {
		limit = DefaultRecommendationLimit
	}
	result := emptyResult(recommend.AlgorithmRelated, tracking.ContentTypeCourse, courseID)

	if items, ok := s.Cache.Get(tracking.ContentTypeCourse, courseID, tracking.ContentTypeCourse, recommend.AlgorithmRelated); ok {
		result.Items = items
		result.Cached = true
		return result
	}

	var source content.Course
	if err := s.DB.First(&source, courseID).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("Failed to load course %d for recommendations: %v", courseID, err)
		}
		return result
	}

	items, err := s.Engine.RelatedCourses(&source, limit)
	if err != nil {
		log.Printf("Related courses lookup for %d failed: %v", courseID, err)
		return result
	}

	s.Cache.Set(tracking.ContentTypeCourse, courseID, tracking.ContentTypeCourse, recommend.AlgorithmRelated, items, CacheDurations[recommend.AlgorithmRelated])
	result.Items = items
	return result
}

// GetTrending returns the most interacted-with content of the type within the
// window. Only the default window is cached so custom windows never collide
// with the shared entry.
func (s *RecommendationService) GetTrending(contentType string, days, limit int) recommend.RecommendationResult {
	if limit <= 0 {
		limit = DefaultRecommendationLimit
	}
	if days <= 0 {
		days = DefaultTrendingDays
	}
	result := emptyResult(recommend.AlgorithmTrending, contentType, 0)
	if !tracking.ValidContentType(contentType) {
		return result
	}

	cacheable := days == DefaultTrendingDays
	if cacheable {
		if items, ok := s.Cache.Get(contentType, 0, contentType, recommend.AlgorithmTrending); ok {
			result.Items = items
			result.Cached = true
			return result
		}
	}

	items, err := s.Engine.Trending(contentType, days, limit)
	if err != nil {
		log.Printf("Trending lookup for %s failed: %v", contentType, err)
		return result
	}

	if cacheable {
		s.Cache.Set(contentType, 0, contentType, recommend.AlgorithmTrending, items, CacheDurations[recommend.AlgorithmTrending])
	}
	result.Items = items
	return result
}

func (s *RecommendationService) GetPopular(contentType string, limit int) recommend.RecommendationResult {
	if limit <= 0 {
		limit = DefaultRecommendationLimit
	}
	result := emptyResult(recommend.AlgorithmPopular, contentType, 0)
	if !tracking.ValidContentType(contentType) {
		return result
	}

	if items, ok := s.Cache.Get(contentType, 0, contentType, recommend.AlgorithmPopular); ok {
		result.Items = items
		result.Cached = true
		return result
	}

	items, err := s.Engine.Popular(contentType, limit)
	if err != nil {
		log.Printf("Popular lookup for %s failed: %v", contentType, err)
		return result
	}

	s.Cache.Set(contentType, 0, contentType, recommend.AlgorithmPopular, items, CacheDurations[recommend.AlgorithmPopular])
	result.Items = items
	return result
}

// GetPersonalized is always computed fresh: per-user lists never go through
// the shared cache. Anonymous callers get the popular list instead.
func (s *RecommendationService) GetPersonalized(contentType string, userID *uint, limit int) recommend.RecommendationResult {
	if limit <= 0 {
		limit = DefaultRecommendationLimit
	}
	if userID == nil {
		return s.GetPopular(contentType, limit)
	}

	result := emptyResult(recommend.AlgorithmPersonalized, contentType, 0)
	if !tracking.ValidContentType(contentType) {
		return result
	}

	items, err := s.Engine.Personalized(*userID, contentType, limit)
	if err != nil {
		log.Printf("Personalized lookup for user %d on %s failed: %v", *userID, contentType, err)
		return result
	}

	result.Items = items
	return result
}

func (s *RecommendationService) GetAlsoViewed(contentType string, contentID uint, limit int) recommend.RecommendationResult {
	if limit <= 0 {
		limit = DefaultRecommendationLimit
	}
	result := emptyResult(recommend.AlgorithmAlsoViewed, contentType, contentID)
	if !tracking.ValidContentType(contentType) {
		return result
	}

	if items, ok := s.Cache.Get(contentType, contentID, contentType, recommend.AlgorithmAlsoViewed); ok {
		result.Items = items
		result.Cached = true
		return result
	}

	exists, err := s.contentExists(contentType, contentID)
	if err != nil {
		log.Printf("Failed to check %s %d for also-viewed: %v", contentType, contentID, err)
		return result
	}
	if !exists {
		return result
	}

	items, err := s.Engine.AlsoViewed(contentType, contentID, limit)
	if err != nil {
		log.Printf("Also-viewed lookup for %s %d failed: %v", contentType, contentID, err)
		return result
	}

	s.Cache.Set(contentType, contentID, contentType, recommend.AlgorithmAlsoViewed, items, CacheDurations[recommend.AlgorithmAlsoViewed])
	result.Items = items
	return result
}

func (s *RecommendationService) GetBoughtTogether(productID uint, limit int) recommend.RecommendationResult {
	if limit <= 0 {
		limit = DefaultBoughtTogetherLimit
	}
	result := emptyResult(recommend.AlgorithmBoughtTogether, tracking.ContentTypeProduct, productID)

	if items, ok := s.Cache.Get(tracking.ContentTypeProduct, productID, tracking.ContentTypeProduct, recommend.AlgorithmBoughtTogether); ok {
		result.Items = items
		result.Cached = true
		return result
	}

	var source content.Product
	if err := s.DB.First(&source, productID).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("Failed to load product %d for bought-together: %v", productID, err)
		}
		return result
	}

	items, err := s.Engine.BoughtTogether(&source, limit)
	if err != nil {
		log.Printf("Bought-together lookup for %d failed: %v", productID, err)
		return result
	}

	s.Cache.Set(tracking.ContentTypeProduct, productID, tracking.ContentTypeProduct, recommend.AlgorithmBoughtTogether, items, CacheDurations[recommend.AlgorithmBoughtTogether])
	result.Items = items
	return result
}

// GetSimilarUsers is semi-personalized, so it is cached per user under the
// shortest duration. Anonymous callers get the popular list.
func (s *RecommendationService) GetSimilarUsers(contentType string, userID *uint, limit int) recommend.RecommendationResult {
	if limit <= 0 {
		limit = DefaultRecommendationLimit
	}
	if userID == nil {
		return s.GetPopular(contentType, limit)
	}

	result := emptyResult(recommend.AlgorithmSimilarUsers, contentType, 0)
	if !tracking.ValidContentType(contentType) {
		return result
	}

	if items, ok := s.Cache.Get("user", *userID, contentType, recommend.AlgorithmSimilarUsers); ok {
		result.Items = items
		result.Cached = true
		return result
	}

	items, err := s.Engine.SimilarUsers(*userID, contentType, limit)
	if err != nil {
		log.Printf("Similar-users lookup for user %d on %s failed: %v", *userID, contentType, err)
		return result
	}

	s.Cache.Set("user", *userID, contentType, recommend.AlgorithmSimilarUsers, items, CacheDurations[recommend.AlgorithmSimilarUsers])
	result.Items = items
	return result
}

// filterSeen drops items the user already interacted with, then truncates to
// limit. A failed lookup degrades to the unfiltered list.
func (s *RecommendationService) filterSeen(items []recommend.RecommendationItem, userID uint, contentType string, interactionTypes []string, limit int) []recommend.RecommendationItem {
	seenIDs, err := s.Tracking.GetSeenContentIDs(userID, contentType, interactionTypes, seenLookbackLimit)
	if err != nil {
		log.Printf("Seen-content lookup for user %d failed, returning unfiltered list: %v", userID, err)
		return truncateItems(items, limit)
	}

	seen := make(map[uint]bool, len(seenIDs))
	for _, id := range seenIDs {
		seen[id] = true
	}

	filtered := make([]recommend.RecommendationItem, 0, limit)
	for _, item := range items {
		if seen[item.ID] {
			continue
		}
		filtered = append(filtered, item)
		if len(filtered) >= limit {
			break
		}
	}
	return filtered
}

func (s *RecommendationService) contentExists(contentType string, contentID uint) (bool, error) {
	var count int64
	var err error
	switch contentType {
	case tracking.ContentTypePost:
		err = s.DB.Model(&content.Post{}).Where("id = ?", contentID).Count(&count).Error
	case tracking.ContentTypePage:
		err = s.DB.Model(&content.Page{}).Where("id = ?", contentID).Count(&count).Error
	case tracking.ContentTypeProduct:
		err = s.DB.Model(&content.Product{}).Where("id = ?", contentID).Count(&count).Error
	case tracking.ContentTypeCourse:
		err = s.DB.Model(&content.Course{}).Where("id = ?", contentID).Count(&count).Error
	}
	return count > 0, err
}

func truncateItems(items []recommend.RecommendationItem, limit int) []recommend.RecommendationItem {
	if len(items) > limit {
		return items[:limit]
	}
	return items
}
