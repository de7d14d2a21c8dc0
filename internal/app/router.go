package app

import (
	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/integrations/nrgin"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/redis/go-redis/v9"

	"facilita/internal/auth"
	"facilita/internal/domain"
	"facilita/internal/handler"
	"facilita/internal/middleware"
)

// RouterDeps contains all dependencies needed for the router.
type RouterDeps struct {
	ServiceHandler      *handler.ServiceHandler
	TrackingHandler     *handler.TrackingHandler
	WaypointHandler     *handler.WaypointHandler
	PaymentHandler      *handler.PaymentHandler
	NotificationHandler *handler.NotificationHandler
	ProviderHandler     *handler.ProviderHandler
	UserHandler         *handler.UserHandler
	WSHandler           *handler.WSHandler
	Tokens              *auth.TokenManager
	RedisClient         *redis.Client
	NewRelicApp         *newrelic.Application
}

// NewRouter creates a new Gin router with all routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	router := gin.New()

	// Global middleware.
	router.Use(gin.Recovery())
	router.Use(gin.Logger())
	router.Use(middleware.CORSMiddleware())

	// Add New Relic middleware if enabled.
	if deps.NewRelicApp != nil {
		router.Use(nrgin.Middleware(deps.NewRelicApp))
	}

	router.Use(middleware.IdempotencyMiddleware(deps.RedisClient))

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	authRequired := middleware.AuthMiddleware(deps.Tokens)
	contractorOnly := middleware.RequireRole(domain.RoleContractor)
	providerOnly := middleware.RequireRole(domain.RoleProvider)

	// Public routes.
	router.POST("/usuarios/registrar", deps.UserHandler.Register)

	// Payment gateway webhook. Authenticated by the idempotent external id,
	// not by a user token.
	router.POST("/pagamentos/webhook", deps.PaymentHandler.Webhook)

	// Service lifecycle routes.
	servico := router.Group("/servico", authRequired)
	{
		servico.POST("", contractorOnly, deps.ServiceHandler.Create)
		servico.GET("/:id", deps.ServiceHandler.Get)
		servico.DELETE("/:id", contractorOnly, deps.ServiceHandler.Delete)
		servico.PATCH("/:id/aceitar", providerOnly, deps.ServiceHandler.Accept)
		servico.POST("/:id/recusar", providerOnly, deps.ServiceHandler.Refuse)
		servico.PATCH("/:id/cancelar", contractorOnly, deps.ServiceHandler.Cancel)
		servico.PATCH("/:id/finalizar", providerOnly, deps.ServiceHandler.Finish)
		servico.PATCH("/:id/confirmar-conclusao", contractorOnly, deps.ServiceHandler.ConfirmCompletion)

		servico.POST("/:id/paradas", contractorOnly, deps.WaypointHandler.Add)
		servico.GET("/:id/paradas", deps.WaypointHandler.List)
		servico.DELETE("/:id/paradas/:pos", contractorOnly, deps.WaypointHandler.Remove)
	}

	// Service listings.
	servicos := router.Group("/servicos", authRequired)
	{
		servicos.GET("/pendentes", providerOnly, deps.ServiceHandler.ListPending)
		servicos.GET("/meus", contractorOnly, deps.ServiceHandler.ListMine)
	}

	// Tracking routes.
	rastreamento := router.Group("/rastreamento", authRequired)
	{
		rastreamento.POST("/:id/iniciar-deslocamento", providerOnly, deps.TrackingHandler.StartRoute)
		rastreamento.POST("/:id/chegou-local", providerOnly, deps.TrackingHandler.Arrived)
		rastreamento.POST("/:id/iniciar-servico", providerOnly, deps.TrackingHandler.StartWork)
		rastreamento.POST("/:id/finalizar-servico", providerOnly, deps.TrackingHandler.FinishWork)
		rastreamento.GET("/:id/historico", deps.TrackingHandler.History)
		rastreamento.GET("/:id/ultimo-status", deps.TrackingHandler.LastStatus)
	}

	// Payment lookup.
	router.GET("/pagamentos/:id", authRequired, deps.PaymentHandler.GetPayment)

	// Notifications.
	router.GET("/notificacoes", authRequired, deps.NotificationHandler.List)

	// Provider discovery.
	router.GET("/prestadores/proximos", authRequired, contractorOnly, deps.ProviderHandler.Nearby)

	// Realtime websocket.
	router.GET("/ws", authRequired, deps.WSHandler.Connect)

	return router
}
