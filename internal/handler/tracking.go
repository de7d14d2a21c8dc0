package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"facilita/internal/domain"
	"facilita/internal/service"
)

// TrackingHandler handles HTTP requests for service tracking.
type TrackingHandler struct {
	tracking *service.TrackingService
}

// NewTrackingHandler creates a new TrackingHandler.
func NewTrackingHandler(tracking *service.TrackingService) *TrackingHandler {
	return &TrackingHandler{tracking: tracking}
}

// TransitionRequest is the HTTP request body for a tracking transition.
// Location is optional; when present both coordinates are required.
type TransitionRequest struct {
	Lat     *float64 `json:"lat,omitempty"`
	Lng     *float64 `json:"lng,omitempty"`
	Address string   `json:"address,omitempty"`
	Note    string   `json:"note,omitempty"`
}

// TrackingResponse is the HTTP representation of a tracking record.
type TrackingResponse struct {
	ID        string  `json:"id"`
	ServiceID string  `json:"service_id"`
	Status    string  `json:"status"`
	Lat       float64 `json:"lat,omitempty"`
	Lng       float64 `json:"lng,omitempty"`
	Address   string  `json:"address,omitempty"`
	Note      string  `json:"note,omitempty"`
	CreatedAt string  `json:"created_at"`
}

func toTrackingResponse(rec *domain.TrackingRecord) TrackingResponse {
	resp := TrackingResponse{
		ID:        rec.ID,
		ServiceID: rec.ServiceID,
		Status:    string(rec.Status),
		Address:   rec.Address,
		Note:      rec.Note,
		CreatedAt: formatTime(rec.CreatedAt),
	}
	if rec.HasLocation {
		resp.Lat = rec.Lat
		resp.Lng = rec.Lng
	}
	return resp
}

// StartRoute handles POST /rastreamento/:id/iniciar-deslocamento
func (h *TrackingHandler) StartRoute(c *gin.Context) {
	h.transition(c, domain.ServiceStatusEnRoute)
}

// Arrived handles POST /rastreamento/:id/chegou-local
func (h *TrackingHandler) Arrived(c *gin.Context) {
	h.transition(c, domain.ServiceStatusArrived)
}

// StartWork handles POST /rastreamento/:id/iniciar-servico
func (h *TrackingHandler) StartWork(c *gin.Context) {
	h.transition(c, domain.ServiceStatusStarted)
}

// FinishWork handles POST /rastreamento/:id/finalizar-servico
func (h *TrackingHandler) FinishWork(c *gin.Context) {
	h.transition(c, domain.ServiceStatusFinished)
}

func (h *TrackingHandler) transition(c *gin.Context, target domain.ServiceStatus) {
	var req TransitionRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	input := service.TransitionRequest{
		ServiceID: c.Param("id"),
		ActorID:   actorID(c),
		ActorRole: actorRole(c),
		Target:    target,
		Address:   req.Address,
		Note:      req.Note,
	}
	if req.Lat != nil && req.Lng != nil {
		input.Lat = *req.Lat
		input.Lng = *req.Lng
		input.HasLocation = true
	}

	rec, err := h.tracking.Transition(c.Request.Context(), input)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusCreated, toTrackingResponse(rec))
}

// History handles GET /rastreamento/:id/historico
func (h *TrackingHandler) History(c *gin.Context) {
	records, err := h.tracking.History(c.Request.Context(), c.Param("id"), actorID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	response := make([]TrackingResponse, 0, len(records))
	for _, rec := range records {
		response = append(response, toTrackingResponse(rec))
	}

	respondJSON(c, http.StatusOK, response)
}

// LastStatus handles GET /rastreamento/:id/ultimo-status
func (h *TrackingHandler) LastStatus(c *gin.Context) {
	rec, err := h.tracking.LastStatus(c.Request.Context(), c.Param("id"), actorID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toTrackingResponse(rec))
}
