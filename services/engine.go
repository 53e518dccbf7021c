package services

import (
	"sort"
	"time"

	"pulse-cms-backend/models/content"
	"pulse-cms-backend/models/recommend"
	"pulse-cms-backend/models/tracking"

	"gorm.io/gorm"
)

const (
	StatusPublished = "published"

	DefaultTrendingDays = 7

	personalizedHistoryLimit = 20
	similarUsersHistoryLimit = 50
	similarUsersCap          = 20
	alsoViewedUsersCap       = 100
	purchaseScanCap          = 500
	boughtTogetherWindow     = 30 * time.Minute
)

// RecommendationEngine вычисляет ранжированные списки кандидатов. Движок не
// хранит состояние: каждый метод читает журнал взаимодействий и метаданные
// контента и возвращает не больше limit элементов, отсортированных по score.
type RecommendationEngine struct {
	DB *gorm.DB
}

type contentCount struct {
	ContentID uint
	Total     int64
}

type userCount struct {
	UserID uint
	Total  int64
}

// rankScore assigns a position-based score so lists without a numeric
// relevance signal still come back in descending order.
func rankScore(index int) float64 {
	score := 1 - float64(index)*0.1
	if score < 0 {
		score = 0
	}
	return score
}

func postToItem(p content.Post, score float64) recommend.RecommendationItem {
	return recommend.RecommendationItem{
		ID:      p.ID,
		Type:    tracking.ContentTypePost,
		Title:   p.Title,
		Slug:    p.Slug,
		Excerpt: p.Excerpt,
		Image:   p.Image,
		Score:   score,
		Metadata: map[string]interface{}{
			"authorId": p.AuthorID,
		},
	}
}

func pageToItem(p content.Page, score float64) recommend.RecommendationItem {
	return recommend.RecommendationItem{
		ID:      p.ID,
		Type:    tracking.ContentTypePage,
		Title:   p.Title,
		Slug:    p.Slug,
		Excerpt: p.Excerpt,
		Score:   score,
		Metadata: map[string]interface{}{
			"template": p.Template,
		},
	}
}

func productToItem(p content.Product, score float64) recommend.RecommendationItem {
	return recommend.RecommendationItem{
		ID:      p.ID,
		Type:    tracking.ContentTypeProduct,
		Title:   p.Title,
		Slug:    p.Slug,
		Excerpt: p.Excerpt,
		Image:   p.Image,
		Score:   score,
		Metadata: map[string]interface{}{
			"category": p.Category,
			"price":    p.Price,
		},
	}
}

func courseToItem(c content.Course, score float64) recommend.RecommendationItem {
	return recommend.RecommendationItem{
		ID:      c.ID,
		Type:    tracking.ContentTypeCourse,
		Title:   c.Title,
		Slug:    c.Slug,
		Excerpt: c.Excerpt,
		Image:   c.Image,
		Score:   score,
		Metadata: map[string]interface{}{
			"category":   c.Category,
			"level":      c.Level,
			"instructor": c.InstructorID,
		},
	}
}

// RelatedPosts returns posts by the same author, backfilled with the most
// recently published posts so the list is never shorter than limit while
// enough content exists.
func (e *RecommendationEngine) RelatedPosts(source *content.Post, limit int) ([]recommend.RecommendationItem, error) {
	var primary []content.Post
	err := e.DB.Where("author_id = ? AND id <> ? AND status = ?", source.AuthorID, source.ID, StatusPublished).
		Order("published_at DESC").
		Limit(limit).
		Find(&primary).Error
	if err != nil {
		return nil, err
	}

	exclude := []uint{source.ID}
	items := make([]recommend.RecommendationItem, 0, limit)
	for _, p := range primary {
		items = append(items, postToItem(p, rankScore(len(items))))
		exclude = append(exclude, p.ID)
	}

	if len(items) < limit {
		var backfill []content.Post
		err = e.DB.Where("id NOT IN ? AND status = ?", exclude, StatusPublished).
			Order("published_at DESC").
			Limit(limit - len(items)).
			Find(&backfill).Error
		if err != nil {
			return nil, err
		}
		for _, p := range backfill {
			items = append(items, postToItem(p, rankScore(len(items))))
		}
	}

	return items, nil
}

// RelatedPages returns pages sharing the source's template, backfilled by
// most recently updated pages.
func (e *RecommendationEngine) RelatedPages(source *content.Page, limit int) ([]recommend.RecommendationItem, error) {
	var primary []content.Page
	err := e.DB.Where("template = ? AND id <> ? AND status = ?", source.Template, source.ID, StatusPublished).
		Order("updated_at DESC").
		Limit(limit).
		Find(&primary).Error
	if err != nil {
		return nil, err
	}

	exclude := []uint{source.ID}
	items := make([]recommend.RecommendationItem, 0, limit)
	for _, p := range primary {
		items = append(items, pageToItem(p, rankScore(len(items))))
		exclude = append(exclude, p.ID)
	}

	if len(items) < limit {
		var backfill []content.Page
		err = e.DB.Where("id NOT IN ? AND status = ?", exclude, StatusPublished).
			Order("updated_at DESC").
			Limit(limit - len(items)).
			Find(&backfill).Error
		if err != nil {
			return nil, err
		}
		for _, p := range backfill {
			items = append(items, pageToItem(p, rankScore(len(items))))
		}
	}

	return items, nil
}

// RelatedProducts returns products in the same category with a recency
// backfill.
func (e *RecommendationEngine) RelatedProducts(source *content.Product, limit int) ([]recommend.RecommendationItem, error) {
	var primary []content.Product
	err := e.DB.Where("category = ? AND id <> ? AND status = ?", source.Category, source.ID, StatusPublished).
		Order("updated_at DESC").
		Limit(limit).
		Find(&primary).Error
	if err != nil {
		return nil, err
	}

	exclude := []uint{source.ID}
	items := make([]recommend.RecommendationItem, 0, limit)
	for _, p := range primary {
		items = append(items, productToItem(p, rankScore(len(items))))
		exclude = append(exclude, p.ID)
	}

	if len(items) < limit {
		var backfill []content.Product
		err = e.DB.Where("id NOT IN ? AND status = ?", exclude, StatusPublished).
			Order("updated_at DESC").
			Limit(limit - len(items)).
			Find(&backfill).Error
		if err != nil {
			return nil, err
		}
		for _, p := range backfill {
			items = append(items, productToItem(p, rankScore(len(items))))
		}
	}

	return items, nil
}

// RelatedCourses matches category OR level to widen the pool, then backfills
// by recency.
func (e *RecommendationEngine) RelatedCourses(source *content.Course, limit int) ([]recommend.RecommendationItem, error) {
	var primary []content.Course
	err := e.DB.Where("(category = ? OR level = ?) AND id <> ? AND status = ?", source.Category, source.Level, source.ID, StatusPublished).
		Order("updated_at DESC").
		Limit(limit).
		Find(&primary).Error
	if err != nil {
		return nil, err
	}

	exclude := []uint{source.ID}
	items := make([]recommend.RecommendationItem, 0, limit)
	for _, c := range primary {
		items = append(items, courseToItem(c, rankScore(len(items))))
		exclude = append(exclude, c.ID)
	}

	if len(items) < limit {
		var backfill []content.Course
		err = e.DB.Where("id NOT IN ? AND status = ?", exclude, StatusPublished).
			Order("updated_at DESC").
			Limit(limit - len(items)).
			Find(&backfill).Error
		if err != nil {
			return nil, err
		}
		for _, c := range backfill {
			items = append(items, courseToItem(c, rankScore(len(items))))
		}
	}

	return items, nil
}

// Trending counts interactions per content item within the timeframe. With no
// interactions in the window it falls back to the most recent content.
func (e *RecommendationEngine) Trending(contentType string, timeframeDays, limit int) ([]recommend.RecommendationItem, error) {
	if timeframeDays <= 0 {
		timeframeDays = DefaultTrendingDays
	}
	since := time.Now().UTC().AddDate(0, 0, -timeframeDays)

	var counts []contentCount
	err := e.DB.Model(&tracking.Interaction{}).
		Select("content_id, COUNT(*) as total").
		Where("content_type = ? AND created_at >= ?", contentType, since).
		Group("content_id").
		Order("total DESC").
		Limit(limit).
		Scan(&counts).Error
	if err != nil {
		return nil, err
	}

	if len(counts) == 0 {
		return e.Recent(contentType, limit, nil)
	}

	return e.itemsFromCounts(contentType, counts, limit)
}

// Popular is the all-time variant of Trending.
func (e *RecommendationEngine) Popular(contentType string, limit int) ([]recommend.RecommendationItem, error) {
	var counts []contentCount
	err := e.DB.Model(&tracking.Interaction{}).
		Select("content_id, COUNT(*) as total").
		Where("content_type = ?", contentType).
		Group("content_id").
		Order("total DESC").
		Limit(limit).
		Scan(&counts).Error
	if err != nil {
		return nil, err
	}

	if len(counts) == 0 {
		return e.Recent(contentType, limit, nil)
	}

	return e.itemsFromCounts(contentType, counts, limit)
}

// Recent returns the most recently published content of the type, excluding
// the given IDs, with rank-decay scores.
func (e *RecommendationEngine) Recent(contentType string, limit int, excludeIDs []uint) ([]recommend.RecommendationItem, error) {
	items := make([]recommend.RecommendationItem, 0, limit)

	switch contentType {
	case tracking.ContentTypePost:
		var posts []content.Post
		query := e.DB.Where("status = ?", StatusPublished)
		if len(excludeIDs) > 0 {
			query = query.Where("id NOT IN ?", excludeIDs)
		}
		if err := query.Order("published_at DESC").Limit(limit).Find(&posts).Error; err != nil {
			return nil, err
		}
		for i, p := range posts {
			items = append(items, postToItem(p, rankScore(i)))
		}
	case tracking.ContentTypePage:
		var pages []content.Page
		query := e.DB.Where("status = ?", StatusPublished)
		if len(excludeIDs) > 0 {
			query = query.Where("id NOT IN ?", excludeIDs)
		}
		if err := query.Order("updated_at DESC").Limit(limit).Find(&pages).Error; err != nil {
			return nil, err
		}
		for i, p := range pages {
			items = append(items, pageToItem(p, rankScore(i)))
		}
	case tracking.ContentTypeProduct:
		var products []content.Product
		query := e.DB.Where("status = ?", StatusPublished)
		if len(excludeIDs) > 0 {
			query = query.Where("id NOT IN ?", excludeIDs)
		}
		if err := query.Order("updated_at DESC").Limit(limit).Find(&products).Error; err != nil {
			return nil, err
		}
		for i, p := range products {
			items = append(items, productToItem(p, rankScore(i)))
		}
	case tracking.ContentTypeCourse:
		var courses []content.Course
		query := e.DB.Where("status = ?", StatusPublished)
		if len(excludeIDs) > 0 {
			query = query.Where("id NOT IN ?", excludeIDs)
		}
		if err := query.Order("updated_at DESC").Limit(limit).Find(&courses).Error; err != nil {
			return nil, err
		}
		for i, c := range courses {
			items = append(items, courseToItem(c, rankScore(i)))
		}
	}

	return items, nil
}

// Personalized returns content the user has not viewed yet, most recent
// first. Users without history get trending over the last 7 days.
func (e *RecommendationEngine) Personalized(userID uint, contentType string, limit int) ([]recommend.RecommendationItem, error) {
	var history []tracking.Interaction
	err := e.DB.Where("user_id = ? AND content_type = ?", userID, contentType).
		Order("created_at DESC").
		Limit(personalizedHistoryLimit).
		Find(&history).Error
	if err != nil {
		return nil, err
	}

	if len(history) == 0 {
		return e.Trending(contentType, DefaultTrendingDays, limit)
	}

	seen := make([]uint, 0, len(history))
	for _, h := range history {
		seen = append(seen, h.ContentID)
	}

	return e.Recent(contentType, limit, dedupeIDs(seen))
}

// AlsoViewed finds what users who viewed/clicked the source item also
// interacted with. Sparse data short-circuits to Popular.
func (e *RecommendationEngine) AlsoViewed(contentType string, contentID uint, limit int) ([]recommend.RecommendationItem, error) {
	var userIDs []uint
	err := e.DB.Model(&tracking.Interaction{}).
		Where("content_type = ? AND content_id = ? AND interaction_type IN ? AND user_id IS NOT NULL",
			contentType, contentID, []string{tracking.InteractionView, tracking.InteractionClick}).
		Distinct().
		Limit(alsoViewedUsersCap).
		Pluck("user_id", &userIDs).Error
	if err != nil {
		return nil, err
	}

	if len(userIDs) == 0 {
		return e.Popular(contentType, limit)
	}

	var counts []contentCount
	err = e.DB.Model(&tracking.Interaction{}).
		Select("content_id, COUNT(*) as total").
		Where("user_id IN ? AND content_type = ? AND content_id <> ? AND interaction_type IN ?",
			userIDs, contentType, contentID,
			[]string{tracking.InteractionView, tracking.InteractionClick, tracking.InteractionPurchase}).
		Group("content_id").
		Order("total DESC").
		Limit(limit * 2).
		Scan(&counts).Error
	if err != nil {
		return nil, err
	}

	if len(counts) == 0 {
		return e.Popular(contentType, limit)
	}

	return e.itemsFromCounts(contentType, counts, limit)
}

// BoughtTogether accumulates co-occurring purchases within a ±30 minute
// window of each purchase of the source product. Without purchase data it
// falls back to same-category products rather than global popularity.
func (e *RecommendationEngine) BoughtTogether(source *content.Product, limit int) ([]recommend.RecommendationItem, error) {
	var purchases []tracking.Interaction
	err := e.DB.Where("content_type = ? AND content_id = ? AND interaction_type = ?",
		tracking.ContentTypeProduct, source.ID, tracking.InteractionPurchase).
		Order("created_at DESC").
		Limit(purchaseScanCap).
		Find(&purchases).Error
	if err != nil {
		return nil, err
	}

	if len(purchases) == 0 {
		return e.sameCategoryProducts(source, limit)
	}

	occurrences := make(map[uint]int64)
	for _, purchase := range purchases {
		if purchase.UserID == nil && purchase.SessionID == "" {
			continue
		}

		query := e.DB.Model(&tracking.Interaction{}).
			Where("content_type = ? AND interaction_type = ? AND content_id <> ? AND created_at BETWEEN ? AND ?",
				tracking.ContentTypeProduct, tracking.InteractionPurchase, source.ID,
				purchase.CreatedAt.Add(-boughtTogetherWindow), purchase.CreatedAt.Add(boughtTogetherWindow))

		switch {
		case purchase.UserID != nil && purchase.SessionID != "":
			query = query.Where("user_id = ? OR session_id = ?", *purchase.UserID, purchase.SessionID)
		case purchase.UserID != nil:
			query = query.Where("user_id = ?", *purchase.UserID)
		default:
			query = query.Where("session_id = ?", purchase.SessionID)
		}

		var ids []uint
		if err := query.Pluck("content_id", &ids).Error; err != nil {
			return nil, err
		}
		for _, id := range ids {
			occurrences[id]++
		}
	}

	if len(occurrences) == 0 {
		return e.sameCategoryProducts(source, limit)
	}

	counts := make([]contentCount, 0, len(occurrences))
	for id, total := range occurrences {
		counts = append(counts, contentCount{ContentID: id, Total: total})
	}
	sort.Slice(counts, func(i, j int) bool {
		if counts[i].Total != counts[j].Total {
			return counts[i].Total > counts[j].Total
		}
		return counts[i].ContentID < counts[j].ContentID
	})
	if len(counts) > limit {
		counts = counts[:limit]
	}

	return e.itemsFromCounts(tracking.ContentTypeProduct, counts, limit)
}

// SimilarUsers aggregates what users with overlapping history interacted
// with, excluding content the target user already touched.
func (e *RecommendationEngine) SimilarUsers(userID uint, contentType string, limit int) ([]recommend.RecommendationItem, error) {
	var history []tracking.Interaction
	err := e.DB.Where("user_id = ? AND content_type = ?", userID, contentType).
		Order("created_at DESC").
		Limit(similarUsersHistoryLimit).
		Find(&history).Error
	if err != nil {
		return nil, err
	}

	if len(history) == 0 {
		return e.Popular(contentType, limit)
	}

	touched := make([]uint, 0, len(history))
	for _, h := range history {
		touched = append(touched, h.ContentID)
	}
	touched = dedupeIDs(touched)

	var similar []userCount
	err = e.DB.Model(&tracking.Interaction{}).
		Select("user_id, COUNT(*) as total").
		Where("content_type = ? AND content_id IN ? AND user_id IS NOT NULL AND user_id <> ?",
			contentType, touched, userID).
		Group("user_id").
		Order("total DESC").
		Limit(similarUsersCap).
		Scan(&similar).Error
	if err != nil {
		return nil, err
	}

	if len(similar) == 0 {
		return e.Popular(contentType, limit)
	}

	similarIDs := make([]uint, 0, len(similar))
	for _, u := range similar {
		similarIDs = append(similarIDs, u.UserID)
	}

	var counts []contentCount
	err = e.DB.Model(&tracking.Interaction{}).
		Select("content_id, COUNT(*) as total").
		Where("user_id IN ? AND content_type = ? AND content_id NOT IN ?", similarIDs, contentType, touched).
		Group("content_id").
		Order("total DESC").
		Limit(limit).
		Scan(&counts).Error
	if err != nil {
		return nil, err
	}

	if len(counts) == 0 {
		return e.Popular(contentType, limit)
	}

	return e.itemsFromCounts(contentType, counts, limit)
}

// sameCategoryProducts is the bought-together fallback: a plain category
// match without the recency backfill related lists get.
func (e *RecommendationEngine) sameCategoryProducts(source *content.Product, limit int) ([]recommend.RecommendationItem, error) {
	var products []content.Product
	err := e.DB.Where("category = ? AND id <> ? AND status = ?", source.Category, source.ID, StatusPublished).
		Order("updated_at DESC").
		Limit(limit).
		Find(&products).Error
	if err != nil {
		return nil, err
	}

	items := make([]recommend.RecommendationItem, 0, len(products))
	for i, p := range products {
		items = append(items, productToItem(p, rankScore(i)))
	}
	return items, nil
}

// itemsFromCounts hydrates counted candidates and scores them count/maxCount.
// The counts must already be sorted descending.
func (e *RecommendationEngine) itemsFromCounts(contentType string, counts []contentCount, limit int) ([]recommend.RecommendationItem, error) {
	ids := make([]uint, 0, len(counts))
	for _, c := range counts {
		ids = append(ids, c.ContentID)
	}

	byID, err := e.hydrate(contentType, ids)
	if err != nil {
		return nil, err
	}

	maxCount := counts[0].Total
	items := make([]recommend.RecommendationItem, 0, limit)
	for _, c := range counts {
		item, ok := byID[c.ContentID]
		if !ok {
			continue
		}
		item.Score = float64(c.Total) / float64(maxCount)
		items = append(items, item)
		if len(items) >= limit {
			break
		}
	}
	return items, nil
}

// hydrate loads published content details for the given IDs.
func (e *RecommendationEngine) hydrate(contentType string, ids []uint) (map[uint]recommend.RecommendationItem, error) {
	byID := make(map[uint]recommend.RecommendationItem, len(ids))
	if len(ids) == 0 {
		return byID, nil
	}

	switch contentType {
	case tracking.ContentTypePost:
		var posts []content.Post
		if err := e.DB.Where("id IN ? AND status = ?", ids, StatusPublished).Find(&posts).Error; err != nil {
			return nil, err
		}
		for _, p := range posts {
			byID[p.ID] = postToItem(p, 0)
		}
	case tracking.ContentTypePage:
		var pages []content.Page
		if err := e.DB.Where("id IN ? AND status = ?", ids, StatusPublished).Find(&pages).Error; err != nil {
			return nil, err
		}
		for _, p := range pages {
			byID[p.ID] = pageToItem(p, 0)
		}
	case tracking.ContentTypeProduct:
		var products []content.Product
		if err := e.DB.Where("id IN ? AND status = ?", ids, StatusPublished).Find(&products).Error; err != nil {
			return nil, err
		}
		for _, p := range products {
			byID[p.ID] = productToItem(p, 0)
		}
	case tracking.ContentTypeCourse:
		var courses []content.Course
		if err := e.DB.Where("id IN ? AND status = ?", ids, StatusPublished).Find(&courses).Error; err != nil {
			return nil, err
		}
		for _, c := range courses {
			byID[c.ID] = courseToItem(c, 0)
		}
	}

	return byID, nil
}
