package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"facilita/internal/domain"
	"facilita/internal/repository"
)

// NotificationService persists notifications and pushes them to the
// recipient's realtime channel. Delivery is fire-and-forget from the
// caller's perspective.
type NotificationService struct {
	repo        repository.NotificationRepository
	broadcaster Broadcaster
}

// NewNotificationService creates a new NotificationService.
func NewNotificationService(repo repository.NotificationRepository, broadcaster Broadcaster) *NotificationService {
	if broadcaster == nil {
		broadcaster = NopBroadcaster{}
	}
	return &NotificationService{repo: repo, broadcaster: broadcaster}
}

// ServiceAccepted builds the notification sent to the contractor when a
// provider accepts their service.
func ServiceAccepted(svc *domain.Service) *domain.Notification {
	return newNotification(svc.ContractorID, svc.ID, domain.NotificationServiceAccepted,
		"Serviço aceito",
		"Um prestador aceitou seu serviço.")
}

// ServiceCancelled builds the notification sent to the assigned provider
// when the contractor cancels.
func ServiceCancelled(svc *domain.Service, reason string) *domain.Notification {
	body := "O contratante cancelou o serviço."
	if reason != "" {
		body = fmt.Sprintf("O contratante cancelou o serviço. Motivo: %s", reason)
	}
	return newNotification(svc.ProviderID, svc.ID, domain.NotificationServiceCancelled,
		"Serviço cancelado", body)
}

// ServiceAutoCancelled builds the notification sent to the contractor when
// the refusal threshold cancels their service.
func ServiceAutoCancelled(svc *domain.Service) *domain.Notification {
	return newNotification(svc.ContractorID, svc.ID, domain.NotificationServiceCancelled,
		"Serviço cancelado",
		"Seu serviço foi cancelado automaticamente após recusas de vários prestadores.")
}

// ServiceFinished builds the notification sent to the contractor when the
// provider finishes the work.
func ServiceFinished(svc *domain.Service) *domain.Notification {
	return newNotification(svc.ContractorID, svc.ID, domain.NotificationServiceFinished,
		"Serviço finalizado",
		"O prestador finalizou o serviço. Confirme a conclusão para encerrar.")
}

func newNotification(userID, serviceID string, typ domain.NotificationType, title, body string) *domain.Notification {
	return &domain.Notification{
		ID:        uuid.New().String(),
		UserID:    userID,
		ServiceID: serviceID,
		Type:      typ,
		Title:     title,
		Body:      body,
		CreatedAt: time.Now(),
	}
}

// Notify persists a notification and pushes it to the user's channel.
// Store failures are logged, not propagated: lifecycle operations must not
// fail because a notification could not be written.
func (s *NotificationService) Notify(ctx context.Context, n *domain.Notification) {
	if n == nil || n.UserID == "" {
		return
	}

	if s.repo != nil {
		if err := s.repo.Create(ctx, n); err != nil {
			log.Printf("notification: persist failed for user %s: %v", n.UserID, err)
		}
	}

	s.Push(n)
}

// Push sends an already-persisted notification over the realtime layer.
func (s *NotificationService) Push(n *domain.Notification) {
	if n == nil || n.UserID == "" {
		return
	}
	s.broadcaster.BroadcastToUser(n.UserID, EventNotification, n)
}

// ListForUser retrieves a user's notifications.
func (s *NotificationService) ListForUser(ctx context.Context, userID string) ([]*domain.Notification, error) {
	if userID == "" {
		return nil, ErrInvalidUserID
	}
	return s.repo.ListByUser(ctx, userID)
}
