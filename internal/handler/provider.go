package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	internalRedis "facilita/internal/redis"
)

const defaultNearbyRadiusKm = 5

// ProviderHandler handles HTTP requests for provider discovery.
type ProviderHandler struct {
	locations internalRedis.LocationStoreInterface
}

// NewProviderHandler creates a new ProviderHandler.
func NewProviderHandler(locations internalRedis.LocationStoreInterface) *ProviderHandler {
	return &ProviderHandler{locations: locations}
}

// ProviderLocationResponse is the HTTP representation of a provider's last
// known position.
type ProviderLocationResponse struct {
	ProviderID string  `json:"provider_id"`
	Lat        float64 `json:"lat"`
	Lng        float64 `json:"lng"`
}

// Nearby handles GET /prestadores/proximos?lat=&lng=&raio=
func (h *ProviderHandler) Nearby(c *gin.Context) {
	lat, errLat := strconv.ParseFloat(c.Query("lat"), 64)
	lng, errLng := strconv.ParseFloat(c.Query("lng"), 64)
	if errLat != nil || errLng != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "lat and lng are required"})
		return
	}
	if lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid coordinates"})
		return
	}

	radiusKm := float64(defaultNearbyRadiusKm)
	if raw := c.Query("raio"); raw != "" {
		parsed, err := strconv.ParseFloat(raw, 64)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid raio"})
			return
		}
		radiusKm = parsed
	}

	providers, err := h.locations.FindNearbyProviders(c.Request.Context(), lat, lng, radiusKm)
	if err != nil {
		respondError(c, err)
		return
	}

	response := make([]ProviderLocationResponse, 0, len(providers))
	for _, p := range providers {
		response = append(response, ProviderLocationResponse{
			ProviderID: p.ProviderID,
			Lat:        p.Lat,
			Lng:        p.Lng,
		})
	}

	respondJSON(c, http.StatusOK, response)
}
