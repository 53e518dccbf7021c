package recommendations

import (
	"net/http"
	"strconv"

	"pulse-cms-backend/controllers/authentication"
	"pulse-cms-backend/services"
)

// AdminController handles the maintenance surface: retention sweeps and cache
// clearing. Сами чистки запускает внешний планировщик, здесь только ручки.
type AdminController struct {
	Tracking *services.TrackingService
	Cache    services.CacheStore
}

func NewAdminController(trackingService *services.TrackingService, cache services.CacheStore) *AdminController {
	return &AdminController{Tracking: trackingService, Cache: cache}
}

func requireAdmin(w http.ResponseWriter, r *http.Request) bool {
	claims, err := authentication.ValidateToken(r)
	if err != nil {
		http.Error(w, "Unauthorized: "+err.Error(), http.StatusUnauthorized)
		return false
	}
	if claims.Role != "admin" {
		http.Error(w, "Permission denied", http.StatusForbidden)
		return false
	}
	return true
}

// Cleanup runs both retention sweeps and reports how many rows each removed.
func (c *AdminController) Cleanup(w http.ResponseWriter, r *http.Request) {
	if !requireAdmin(w, r) {
		return
	}

	interactionDays, _ := strconv.Atoi(r.URL.Query().Get("interactionDays"))
	clickDays, _ := strconv.Atoi(r.URL.Query().Get("clickDays"))

	interactions, err := c.Tracking.CleanupOldInteractions(interactionDays)
	if err != nil {
		http.Error(w, "Interaction cleanup failed", http.StatusInternalServerError)
		return
	}

	clicks, err := c.Tracking.CleanupOldClicks(clickDays)
	if err != nil {
		http.Error(w, "Click cleanup failed", http.StatusInternalServerError)
		return
	}

	respondJSON(w, http.StatusOK, map[string]int64{
		"interactionsRemoved": interactions,
		"clicksRemoved":       clicks,
	})
}

// ClearCache deletes cache entries matching the optional filters. Without
// filters the whole cache goes.
func (c *AdminController) ClearCache(w http.ResponseWriter, r *http.Request) {
	if !requireAdmin(w, r) {
		return
	}

	sourceType := r.URL.Query().Get("sourceType")
	sourceID, _ := strconv.ParseUint(r.URL.Query().Get("sourceId"), 10, 32)

	if err := c.Cache.Clear(sourceType, uint(sourceID)); err != nil {
		http.Error(w, "Cache clear failed", http.StatusInternalServerError)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

func (c *AdminController) ClearExpiredCache(w http.ResponseWriter, r *http.Request) {
	if !requireAdmin(w, r) {
		return
	}

	if err := c.Cache.ClearExpired(); err != nil {
		http.Error(w, "Expired cache clear failed", http.StatusInternalServerError)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}
