package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"facilita/internal/domain"
	"facilita/internal/service"
)

// ServiceHandler handles HTTP requests for the service lifecycle.
type ServiceHandler struct {
	lifecycle *service.LifecycleService
	tracking  *service.TrackingService
}

// NewServiceHandler creates a new ServiceHandler.
func NewServiceHandler(lifecycle *service.LifecycleService, tracking *service.TrackingService) *ServiceHandler {
	return &ServiceHandler{lifecycle: lifecycle, tracking: tracking}
}

// WaypointRequest is one route stop in the create request body.
type WaypointRequest struct {
	Lat         float64 `json:"lat"`
	Lng         float64 `json:"lng"`
	Description string  `json:"description,omitempty"`
	ETA         string  `json:"eta,omitempty"`
}

// CreateServiceRequest is the HTTP request body for creating a service.
type CreateServiceRequest struct {
	CategoryID  string            `json:"category_id,omitempty"`
	Description string            `json:"description"`
	Value       *float64          `json:"value,omitempty"`
	Lat         *float64          `json:"lat,omitempty"`
	Lng         *float64          `json:"lng,omitempty"`
	Address     string            `json:"address,omitempty"`
	Waypoints   []WaypointRequest `json:"waypoints,omitempty"`
}

// CancelServiceRequest is the HTTP request body for cancelling a service.
type CancelServiceRequest struct {
	Reason string `json:"reason,omitempty"`
}

// RefuseServiceRequest is the HTTP request body for refusing a service.
type RefuseServiceRequest struct {
	Reason string `json:"reason,omitempty"`
}

// ServiceResponse is the HTTP representation of a service.
type ServiceResponse struct {
	ID           string  `json:"id"`
	ContractorID string  `json:"contractor_id"`
	ProviderID   string  `json:"provider_id,omitempty"`
	CategoryID   string  `json:"category_id,omitempty"`
	Description  string  `json:"description"`
	Value        float64 `json:"value,omitempty"`
	Status       string  `json:"status"`
	Lat          float64 `json:"lat,omitempty"`
	Lng          float64 `json:"lng,omitempty"`
	Address      string  `json:"address,omitempty"`
	CancelReason string  `json:"cancel_reason,omitempty"`
	Version      int64   `json:"version"`
	RequestedAt  string  `json:"requested_at"`
	StartedAt    string  `json:"started_at,omitempty"`
	CompletedAt  string  `json:"completed_at,omitempty"`
	ConfirmedAt  string  `json:"confirmed_at,omitempty"`
}

// RefuseServiceResponse is the HTTP response for refusing a service.
type RefuseServiceResponse struct {
	RefusalCount  int  `json:"refusal_count"`
	AutoCancelled bool `json:"auto_cancelled"`
}

// CancelServiceResponse is the HTTP response for cancelling a service.
type CancelServiceResponse struct {
	Service           ServiceResponse `json:"service"`
	RefundEligible    bool            `json:"refund_eligible"`
	CancelledPayments int             `json:"cancelled_payments"`
}

func toServiceResponse(svc *domain.Service) ServiceResponse {
	resp := ServiceResponse{
		ID:           svc.ID,
		ContractorID: svc.ContractorID,
		ProviderID:   svc.ProviderID,
		CategoryID:   svc.CategoryID,
		Description:  svc.Description,
		Status:       string(svc.Status),
		Address:      svc.Address,
		CancelReason: svc.CancelReason,
		Version:      svc.Version,
		RequestedAt:  formatTime(svc.RequestedAt),
		StartedAt:    formatTime(svc.StartedAt),
		CompletedAt:  formatTime(svc.CompletedAt),
		ConfirmedAt:  formatTime(svc.ConfirmedAt),
	}
	if svc.HasValue {
		resp.Value = svc.Value
	}
	if svc.HasLocation {
		resp.Lat = svc.Lat
		resp.Lng = svc.Lng
	}
	return resp
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}

// Create handles POST /servico
func (h *ServiceHandler) Create(c *gin.Context) {
	var req CreateServiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	input := service.CreateServiceRequest{
		ContractorID: actorID(c),
		CategoryID:   req.CategoryID,
		Description:  req.Description,
		Address:      req.Address,
	}
	if req.Value != nil {
		input.Value = *req.Value
		input.HasValue = true
	}
	if req.Lat != nil && req.Lng != nil {
		input.Lat = *req.Lat
		input.Lng = *req.Lng
		input.HasLocation = true
	}
	for _, wp := range req.Waypoints {
		in := service.WaypointInput{Lat: wp.Lat, Lng: wp.Lng, Description: wp.Description}
		if wp.ETA != "" {
			if eta, err := time.Parse(time.RFC3339, wp.ETA); err == nil {
				in.ETA = eta
			}
		}
		input.Waypoints = append(input.Waypoints, in)
	}

	svc, err := h.lifecycle.Create(c.Request.Context(), input)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusCreated, toServiceResponse(svc))
}

// Get handles GET /servico/:id
func (h *ServiceHandler) Get(c *gin.Context) {
	svc, err := h.lifecycle.Get(c.Request.Context(), c.Param("id"), actorID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toServiceResponse(svc))
}

// Delete handles DELETE /servico/:id
func (h *ServiceHandler) Delete(c *gin.Context) {
	if err := h.lifecycle.Delete(c.Request.Context(), c.Param("id"), actorID(c)); err != nil {
		respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// Accept handles PATCH /servico/:id/aceitar
func (h *ServiceHandler) Accept(c *gin.Context) {
	svc, err := h.lifecycle.Accept(c.Request.Context(), c.Param("id"), actorID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toServiceResponse(svc))
}

// Refuse handles POST /servico/:id/recusar
func (h *ServiceHandler) Refuse(c *gin.Context) {
	var req RefuseServiceRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	result, err := h.lifecycle.Refuse(c.Request.Context(), c.Param("id"), actorID(c), req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, RefuseServiceResponse{
		RefusalCount:  result.RefusalCount,
		AutoCancelled: result.AutoCancelled,
	})
}

// Cancel handles PATCH /servico/:id/cancelar
func (h *ServiceHandler) Cancel(c *gin.Context) {
	var req CancelServiceRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	result, err := h.lifecycle.Cancel(c.Request.Context(), c.Param("id"), actorID(c), req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, CancelServiceResponse{
		Service:           toServiceResponse(result.Service),
		RefundEligible:    result.RefundEligible,
		CancelledPayments: result.CancelledPayments,
	})
}

// Finish handles PATCH /servico/:id/finalizar
func (h *ServiceHandler) Finish(c *gin.Context) {
	rec, err := h.tracking.Transition(c.Request.Context(), service.TransitionRequest{
		ServiceID: c.Param("id"),
		ActorID:   actorID(c),
		ActorRole: actorRole(c),
		Target:    domain.ServiceStatusFinished,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toTrackingResponse(rec))
}

// ConfirmCompletion handles PATCH /servico/:id/confirmar-conclusao
func (h *ServiceHandler) ConfirmCompletion(c *gin.Context) {
	rec, err := h.lifecycle.ConfirmCompletion(c.Request.Context(), c.Param("id"), actorID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toTrackingResponse(rec))
}

// ListPending handles GET /servicos/pendentes
func (h *ServiceHandler) ListPending(c *gin.Context) {
	services, err := h.lifecycle.ListPending(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	response := make([]ServiceResponse, 0, len(services))
	for _, svc := range services {
		response = append(response, toServiceResponse(svc))
	}

	respondJSON(c, http.StatusOK, response)
}

// ListMine handles GET /servicos/meus
func (h *ServiceHandler) ListMine(c *gin.Context) {
	services, err := h.lifecycle.ListByContractor(c.Request.Context(), actorID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	response := make([]ServiceResponse, 0, len(services))
	for _, svc := range services {
		response = append(response, toServiceResponse(svc))
	}

	respondJSON(c, http.StatusOK, response)
}
