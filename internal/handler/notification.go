package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"facilita/internal/domain"
	"facilita/internal/service"
)

// NotificationHandler handles HTTP requests for user notifications.
type NotificationHandler struct {
	notifications *service.NotificationService
}

// NewNotificationHandler creates a new NotificationHandler.
func NewNotificationHandler(notifications *service.NotificationService) *NotificationHandler {
	return &NotificationHandler{notifications: notifications}
}

// NotificationResponse is the HTTP representation of a notification.
type NotificationResponse struct {
	ID        string `json:"id"`
	ServiceID string `json:"service_id"`
	Type      string `json:"type"`
	Title     string `json:"title"`
	Body      string `json:"body"`
	ReadAt    string `json:"read_at,omitempty"`
	CreatedAt string `json:"created_at"`
}

func toNotificationResponse(n *domain.Notification) NotificationResponse {
	return NotificationResponse{
		ID:        n.ID,
		ServiceID: n.ServiceID,
		Type:      string(n.Type),
		Title:     n.Title,
		Body:      n.Body,
		ReadAt:    formatTime(n.ReadAt),
		CreatedAt: formatTime(n.CreatedAt),
	}
}

// List handles GET /notificacoes
func (h *NotificationHandler) List(c *gin.Context) {
	notifications, err := h.notifications.ListForUser(c.Request.Context(), actorID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	response := make([]NotificationResponse, 0, len(notifications))
	for _, n := range notifications {
		response = append(response, toNotificationResponse(n))
	}

	respondJSON(c, http.StatusOK, response)
}
