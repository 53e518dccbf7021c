package services

import (
	"encoding/json"
	"log"
	"time"

	"pulse-cms-backend/models/tracking"

	"gorm.io/gorm"
)

const (
	DefaultInteractionRetentionDays = 90
	DefaultClickRetentionDays       = 30
	seenLookbackLimit               = 100
)

// TrackingService записывает взаимодействия и клики. Все записи best-effort:
// ошибка хранилища логируется и возвращается флагом, но никогда не прерывает
// запрос, который вызвал трекинг.
type TrackingService struct {
	DB *gorm.DB
}

// TrackInteraction writes one interaction row. Anonymous rows (no user, no
// session) are accepted. Returns false when the write failed.
func (s *TrackingService) TrackInteraction(contentType string, contentID uint, interactionType string, userID *uint, sessionID string, metadata map[string]interface{}) bool {
	interaction := tracking.Interaction{
		ContentType:     contentType,
		ContentID:       contentID,
		InteractionType: interactionType,
		UserID:          userID,
		SessionID:       sessionID,
		CreatedAt:       time.Now().UTC(),
	}

	if len(metadata) > 0 {
		raw, err := json.Marshal(metadata)
		if err != nil {
			log.Printf("Failed to encode interaction metadata: %v", err)
		} else {
			interaction.Metadata = string(raw)
		}
	}

	if err := s.DB.Create(&interaction).Error; err != nil {
		log.Printf("Failed to track %s interaction for %s/%d: %v", interactionType, contentType, contentID, err)
		return false
	}

	return true
}

// TrackRecommendationClick writes the dedicated click row and mirrors it into
// the interaction log so both tables can answer click-through questions.
func (s *TrackingService) TrackRecommendationClick(sourceType string, sourceID uint, recommendationType, clickedType string, clickedID uint, position int, userID *uint, sessionID string) bool {
	click := tracking.RecommendationClick{
		SourceType:         sourceType,
		SourceID:           sourceID,
		RecommendationType: recommendationType,
		ClickedType:        clickedType,
		ClickedID:          clickedID,
		Position:           position,
		UserID:             userID,
		SessionID:          sessionID,
		CreatedAt:          time.Now().UTC(),
	}

	if err := s.DB.Create(&click).Error; err != nil {
		log.Printf("Failed to track recommendation click %s/%d -> %s/%d: %v", sourceType, sourceID, clickedType, clickedID, err)
		return false
	}

	return s.TrackInteraction(clickedType, clickedID, tracking.InteractionRecommendationClick, userID, sessionID, map[string]interface{}{
		"sourceType":         sourceType,
		"sourceId":           sourceID,
		"recommendationType": recommendationType,
		"position":           position,
	})
}

// GetUserInteractions возвращает последние взаимодействия пользователя,
// опционально отфильтрованные по типу контента.
func (s *TrackingService) GetUserInteractions(userID uint, contentType string, limit int) ([]tracking.Interaction, error) {
	query := s.DB.Where("user_id = ?", userID)
	if contentType != "" {
		query = query.Where("content_type = ?", contentType)
	}

	var interactions []tracking.Interaction
	err := query.Order("created_at DESC").Limit(limit).Find(&interactions).Error
	if err != nil {
		return nil, err
	}
	return interactions, nil
}

func (s *TrackingService) GetInteractionCount(contentType string, contentID uint) (int64, error) {
	var count int64
	err := s.DB.Model(&tracking.Interaction{}).
		Where("content_type = ? AND content_id = ?", contentType, contentID).
		Count(&count).Error
	return count, err
}

// GetInteractionBreakdown returns counts grouped by interaction type.
func (s *TrackingService) GetInteractionBreakdown(contentType string, contentID uint) (map[string]int64, error) {
	type typeCount struct {
		InteractionType string
		Total           int64
	}

	var counts []typeCount
	err := s.DB.Model(&tracking.Interaction{}).
		Select("interaction_type, COUNT(*) as total").
		Where("content_type = ? AND content_id = ?", contentType, contentID).
		Group("interaction_type").
		Scan(&counts).Error
	if err != nil {
		return nil, err
	}

	breakdown := make(map[string]int64, len(counts))
	for _, c := range counts {
		breakdown[c.InteractionType] = c.Total
	}
	return breakdown, nil
}

// GetSeenContentIDs returns up to limit content IDs the user already touched
// with one of the given interaction types, most recent first.
func (s *TrackingService) GetSeenContentIDs(userID uint, contentType string, interactionTypes []string, limit int) ([]uint, error) {
	if limit <= 0 {
		limit = seenLookbackLimit
	}

	var ids []uint
	err := s.DB.Model(&tracking.Interaction{}).
		Where("user_id = ? AND content_type = ? AND interaction_type IN ?", userID, contentType, interactionTypes).
		Order("created_at DESC").
		Limit(limit).
		Pluck("content_id", &ids).Error
	if err != nil {
		return nil, err
	}

	return dedupeIDs(ids), nil
}

// CleanupOldInteractions deletes interactions older than daysToKeep.
// Purchases and enrollments are kept regardless of age.
func (s *TrackingService) CleanupOldInteractions(daysToKeep int) (int64, error) {
	if daysToKeep <= 0 {
		daysToKeep = DefaultInteractionRetentionDays
	}
	cutoff := time.Now().UTC().AddDate(0, 0, -daysToKeep)

	result := s.DB.Where("created_at < ? AND interaction_type NOT IN ?",
		cutoff, []string{tracking.InteractionPurchase, tracking.InteractionEnroll}).
		Delete(&tracking.Interaction{})
	if result.Error != nil {
		return 0, result.Error
	}

	log.Printf("Interaction cleanup removed %d rows older than %d days", result.RowsAffected, daysToKeep)
	return result.RowsAffected, nil
}

func (s *TrackingService) CleanupOldClicks(daysToKeep int) (int64, error) {
	if daysToKeep <= 0 {
		daysToKeep = DefaultClickRetentionDays
	}
	cutoff := time.Now().UTC().AddDate(0, 0, -daysToKeep)

	result := s.DB.Where("created_at < ?", cutoff).Delete(&tracking.RecommendationClick{})
	if result.Error != nil {
		return 0, result.Error
	}

	log.Printf("Recommendation click cleanup removed %d rows older than %d days", result.RowsAffected, daysToKeep)
	return result.RowsAffected, nil
}

func dedupeIDs(ids []uint) []uint {
	seen := make(map[uint]bool, len(ids))
	unique := make([]uint, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			unique = append(unique, id)
		}
	}
	return unique
}
