package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"facilita/internal/domain"
	"facilita/internal/service"
)

// PaymentHandler handles HTTP requests for payments.
type PaymentHandler struct {
	paymentService *service.PaymentService
}

// NewPaymentHandler creates a new PaymentHandler.
func NewPaymentHandler(paymentService *service.PaymentService) *PaymentHandler {
	return &PaymentHandler{paymentService: paymentService}
}

// WebhookRequest is the HTTP request body posted by the payment gateway.
type WebhookRequest struct {
	ExternalID string  `json:"external_id"`
	ServiceID  string  `json:"service_id"`
	Amount     float64 `json:"amount"`
	Status     string  `json:"status"`
}

// PaymentResponse is the HTTP response for payment operations.
type PaymentResponse struct {
	ID         string  `json:"id"`
	ServiceID  string  `json:"service_id"`
	Amount     float64 `json:"amount"`
	Status     string  `json:"status"`
	ExternalID string  `json:"external_id"`
}

func toPaymentResponse(p *domain.Payment) PaymentResponse {
	return PaymentResponse{
		ID:         p.ID,
		ServiceID:  p.ServiceID,
		Amount:     p.Amount,
		Status:     string(p.Status),
		ExternalID: p.ExternalID,
	}
}

// Webhook handles POST /pagamentos/webhook
func (h *PaymentHandler) Webhook(c *gin.Context) {
	var req WebhookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	status := domain.PaymentStatus(req.Status)
	switch status {
	case domain.PaymentStatusPending, domain.PaymentStatusPaid,
		domain.PaymentStatusCancelled, domain.PaymentStatusFailed:
	default:
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "unknown payment status"})
		return
	}

	payment, err := h.paymentService.Reconcile(c.Request.Context(), service.ReconcileRequest{
		ExternalID: req.ExternalID,
		ServiceID:  req.ServiceID,
		Amount:     req.Amount,
		Status:     status,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toPaymentResponse(payment))
}

// GetPayment handles GET /pagamentos/:id
func (h *PaymentHandler) GetPayment(c *gin.Context) {
	payment, err := h.paymentService.GetPayment(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toPaymentResponse(payment))
}
