package recommendations

import (
	"encoding/json"
	"net/http"
	"strconv"

	"pulse-cms-backend/controllers/authentication"
	"pulse-cms-backend/models/tracking"
	"pulse-cms-backend/services"

	"github.com/gorilla/mux"
)

// RecommendationController exposes the recommendation service over HTTP.
// Виджеты на страницах дергают эти ручки после загрузки основного контента.
type RecommendationController struct {
	Service  *services.RecommendationService
	Tracking *services.TrackingService
}

func NewRecommendationController(service *services.RecommendationService, trackingService *services.TrackingService) *RecommendationController {
	return &RecommendationController{Service: service, Tracking: trackingService}
}

// RegisterRecommendationRoutes sets up all routes under /recommendations
func RegisterRecommendationRoutes(r *mux.Router, service *services.RecommendationService, trackingService *services.TrackingService, cache services.CacheStore) {
	controller := NewRecommendationController(service, trackingService)
	admin := NewAdminController(trackingService, cache)

	rec := r.PathPrefix("/recommendations").Subrouter()

	rec.HandleFunc("/posts/{postId}", controller.GetRelatedPosts).Methods("GET")
	rec.HandleFunc("/pages/{pageId}", controller.GetRelatedPages).Methods("GET")
	rec.HandleFunc("/products/{productId}", controller.GetRelatedProducts).Methods("GET")
	rec.HandleFunc("/courses/{courseId}", controller.GetRelatedCourses).Methods("GET")

	rec.HandleFunc("/trending/{contentType}", controller.GetTrending).Methods("GET")
	rec.HandleFunc("/popular/{contentType}", controller.GetPopular).Methods("GET")
	rec.HandleFunc("/personalized/{contentType}", controller.GetPersonalized).Methods("GET")
	rec.HandleFunc("/also-viewed/{contentType}/{contentId}", controller.GetAlsoViewed).Methods("GET")
	rec.HandleFunc("/bought-together/{productId}", controller.GetBoughtTogether).Methods("GET")
	rec.HandleFunc("/similar-users/{contentType}", controller.GetSimilarUsers).Methods("GET")

	rec.HandleFunc("/track", controller.TrackInteraction).Methods("POST")
	rec.HandleFunc("/track-click", controller.TrackClick).Methods("POST")

	rec.HandleFunc("/analytics/{contentType}/{contentId}", controller.GetAnalytics).Methods("GET")

	rec.HandleFunc("/admin/cleanup", admin.Cleanup).Methods("POST")
	rec.HandleFunc("/admin/cache/clear", admin.ClearCache).Methods("POST")
	rec.HandleFunc("/admin/cache/clear-expired", admin.ClearExpiredCache).Methods("POST")
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func parseLimit(r *http.Request) int {
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit <= 0 {
		return 0 // сервис подставит значение по умолчанию
	}
	if limit > 50 {
		limit = 50
	}
	return limit
}

func parseID(r *http.Request, name string) (uint, bool) {
	raw := mux.Vars(r)[name]
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

func callerUserID(r *http.Request) *uint {
	claims := authentication.OptionalIdentity(r)
	if claims == nil {
		return nil
	}
	return &claims.UserID
}

func (c *RecommendationController) GetRelatedPosts(w http.ResponseWriter, r *http.Request) {
	postID, ok := parseID(r, "postId")
	if !ok {
		http.Error(w, "Invalid post ID", http.StatusBadRequest)
		return
	}

	result := c.Service.GetRelatedPosts(postID, callerUserID(r), parseLimit(r))
	respondJSON(w, http.StatusOK, result)
}

func (c *RecommendationController) GetRelatedPages(w http.ResponseWriter, r *http.Request) {
	pageID, ok := parseID(r, "pageId")
	if !ok {
		http.Error(w, "Invalid page ID", http.StatusBadRequest)
		return
	}

	result := c.Service.GetRelatedPages(pageID, parseLimit(r))
	respondJSON(w, http.StatusOK, result)
}

func (c *RecommendationController) GetRelatedProducts(w http.ResponseWriter, r *http.Request) {
	productID, ok := parseID(r, "productId")
	if !ok {
		http.Error(w, "Invalid product ID", http.StatusBadRequest)
		return
	}

	result := c.Service.GetRelatedProducts(productID, callerUserID(r), parseLimit(r))
	respondJSON(w, http.StatusOK, result)
}

func (c *RecommendationController) GetRelatedCourses(w http.ResponseWriter, r *http.Request) {
	courseID, ok := parseID(r, "courseId")
	if !ok {
		http.Error(w, "Invalid course ID", http.StatusBadRequest)
		return
	}

	result := c.Service.GetRelatedCourses(courseID, parseLimit(r))
	respondJSON(w, http.StatusOK, result)
}

func (c *RecommendationController) GetTrending(w http.ResponseWriter, r *http.Request) {
	contentType := mux.Vars(r)["contentType"]

	days, err := strconv.Atoi(r.URL.Query().Get("days"))
	if err != nil || days <= 0 {
		days = 0
	}

	result := c.Service.GetTrending(contentType, days, parseLimit(r))
	respondJSON(w, http.StatusOK, result)
}

func (c *RecommendationController) GetPopular(w http.ResponseWriter, r *http.Request) {
	result := c.Service.GetPopular(mux.Vars(r)["contentType"], parseLimit(r))
	respondJSON(w, http.StatusOK, result)
}

func (c *RecommendationController) GetPersonalized(w http.ResponseWriter, r *http.Request) {
	result := c.Service.GetPersonalized(mux.Vars(r)["contentType"], callerUserID(r), parseLimit(r))
	respondJSON(w, http.StatusOK, result)
}

func (c *RecommendationController) GetAlsoViewed(w http.ResponseWriter, r *http.Request) {
	contentID, ok := parseID(r, "contentId")
	if !ok {
		http.Error(w, "Invalid content ID", http.StatusBadRequest)
		return
	}

	result := c.Service.GetAlsoViewed(mux.Vars(r)["contentType"], contentID, parseLimit(r))
	respondJSON(w, http.StatusOK, result)
}

func (c *RecommendationController) GetBoughtTogether(w http.ResponseWriter, r *http.Request) {
	productID, ok := parseID(r, "productId")
	if !ok {
		http.Error(w, "Invalid product ID", http.StatusBadRequest)
		return
	}

	result := c.Service.GetBoughtTogether(productID, parseLimit(r))
	respondJSON(w, http.StatusOK, result)
}

func (c *RecommendationController) GetSimilarUsers(w http.ResponseWriter, r *http.Request) {
	result := c.Service.GetSimilarUsers(mux.Vars(r)["contentType"], callerUserID(r), parseLimit(r))
	respondJSON(w, http.StatusOK, result)
}

func (c *RecommendationController) GetAnalytics(w http.ResponseWriter, r *http.Request) {
	contentType := mux.Vars(r)["contentType"]
	contentID, ok := parseID(r, "contentId")
	if !ok || !tracking.ValidContentType(contentType) {
		http.Error(w, "Invalid content reference", http.StatusBadRequest)
		return
	}

	total, err := c.Tracking.GetInteractionCount(contentType, contentID)
	if err != nil {
		http.Error(w, "Failed to load analytics", http.StatusInternalServerError)
		return
	}

	breakdown, err := c.Tracking.GetInteractionBreakdown(contentType, contentID)
	if err != nil {
		http.Error(w, "Failed to load analytics", http.StatusInternalServerError)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"contentType": contentType,
		"contentId":   contentID,
		"total":       total,
		"breakdown":   breakdown,
	})
}
