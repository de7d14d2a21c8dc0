package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"facilita/internal/domain"
	"facilita/internal/service"
)

// WaypointHandler handles HTTP requests for service route waypoints.
type WaypointHandler struct {
	waypoints *service.WaypointService
}

// NewWaypointHandler creates a new WaypointHandler.
func NewWaypointHandler(waypoints *service.WaypointService) *WaypointHandler {
	return &WaypointHandler{waypoints: waypoints}
}

// AddWaypointRequest is the HTTP request body for adding a waypoint.
type AddWaypointRequest struct {
	Lat         float64 `json:"lat"`
	Lng         float64 `json:"lng"`
	Description string  `json:"description,omitempty"`
	ETA         string  `json:"eta,omitempty"`
}

// WaypointResponse is the HTTP representation of a waypoint.
type WaypointResponse struct {
	ID          string  `json:"id"`
	ServiceID   string  `json:"service_id"`
	Position    int     `json:"position"`
	Lat         float64 `json:"lat"`
	Lng         float64 `json:"lng"`
	Description string  `json:"description,omitempty"`
	ETA         string  `json:"eta,omitempty"`
}

func toWaypointResponse(wp *domain.Waypoint) WaypointResponse {
	resp := WaypointResponse{
		ID:          wp.ID,
		ServiceID:   wp.ServiceID,
		Position:    wp.Position,
		Lat:         wp.Lat,
		Lng:         wp.Lng,
		Description: wp.Description,
	}
	if wp.HasETA {
		resp.ETA = wp.ETA.Format(time.RFC3339)
	}
	return resp
}

// Add handles POST /servico/:id/paradas
func (h *WaypointHandler) Add(c *gin.Context) {
	var req AddWaypointRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	input := service.AddWaypointRequest{
		ServiceID:    c.Param("id"),
		ContractorID: actorID(c),
		Lat:          req.Lat,
		Lng:          req.Lng,
		Description:  req.Description,
	}
	if req.ETA != "" {
		eta, err := time.Parse(time.RFC3339, req.ETA)
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid eta"})
			return
		}
		input.ETA = eta
	}

	wp, err := h.waypoints.Add(c.Request.Context(), input)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusCreated, toWaypointResponse(wp))
}

// List handles GET /servico/:id/paradas
func (h *WaypointHandler) List(c *gin.Context) {
	waypoints, err := h.waypoints.List(c.Request.Context(), c.Param("id"), actorID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	response := make([]WaypointResponse, 0, len(waypoints))
	for _, wp := range waypoints {
		response = append(response, toWaypointResponse(wp))
	}

	respondJSON(c, http.StatusOK, response)
}

// Remove handles DELETE /servico/:id/paradas/:pos
func (h *WaypointHandler) Remove(c *gin.Context) {
	pos, err := strconv.Atoi(c.Param("pos"))
	if err != nil || pos < 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid waypoint position"})
		return
	}

	if err := h.waypoints.Remove(c.Request.Context(), c.Param("id"), actorID(c), pos); err != nil {
		respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
