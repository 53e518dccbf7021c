package recommendations

import (
	"encoding/json"
	"net/http"

	"pulse-cms-backend/controllers/authentication"
	"pulse-cms-backend/models/tracking"
)

func validInteractionType(interactionType string) bool {
	switch interactionType {
	case tracking.InteractionView, tracking.InteractionClick,
		tracking.InteractionPurchase, tracking.InteractionEnroll:
		return true
	}
	return false
}

// TrackInteraction записывает одно взаимодействие. Сервер сам дополняет
// событие идентификатором пользователя (из токена) и сессии (из cookie).
func (c *RecommendationController) TrackInteraction(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ContentType     string                 `json:"contentType"`
		ContentID       uint                   `json:"contentId"`
		InteractionType string                 `json:"interactionType"`
		Metadata        map[string]interface{} `json:"metadata"`
	}

	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if !tracking.ValidContentType(body.ContentType) || body.ContentID == 0 || !validInteractionType(body.InteractionType) {
		http.Error(w, "Invalid interaction fields", http.StatusBadRequest)
		return
	}

	userID := callerUserID(r)
	sessionID := authentication.EnsureSessionID(w, r)

	ok := c.Tracking.TrackInteraction(body.ContentType, body.ContentID, body.InteractionType, userID, sessionID, body.Metadata)
	respondJSON(w, http.StatusOK, map[string]bool{"success": ok})
}

// TrackClick записывает клик по показанной рекомендации
func (c *RecommendationController) TrackClick(w http.ResponseWriter, r *http.Request) {
	var body struct {
		SourceType         string `json:"sourceType"`
		SourceID           uint   `json:"sourceId"`
		RecommendationType string `json:"recommendationType"`
		ClickedType        string `json:"clickedType"`
		ClickedID          uint   `json:"clickedId"`
		Position           int    `json:"position"`
	}

	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if !tracking.ValidContentType(body.SourceType) || body.SourceID == 0 ||
		!tracking.ValidContentType(body.ClickedType) || body.ClickedID == 0 ||
		body.RecommendationType == "" {
		http.Error(w, "Invalid click fields", http.StatusBadRequest)
		return
	}

	userID := callerUserID(r)
	sessionID := authentication.EnsureSessionID(w, r)

	ok := c.Tracking.TrackRecommendationClick(body.SourceType, body.SourceID, body.RecommendationType,
		body.ClickedType, body.ClickedID, body.Position, userID, sessionID)
	respondJSON(w, http.StatusOK, map[string]bool{"success": ok})
}
