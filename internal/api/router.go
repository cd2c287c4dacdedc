package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Alexjoshwa/agri-1.0/internal/api/handlers"
	"github.com/Alexjoshwa/agri-1.0/internal/api/middleware"
	"github.com/Alexjoshwa/agri-1.0/internal/config"
	"github.com/Alexjoshwa/agri-1.0/internal/platform/metrics"
	"github.com/Alexjoshwa/agri-1.0/internal/services"
	"github.com/Alexjoshwa/agri-1.0/internal/tasks"
)

// Services bundles the domain services the HTTP layer dispatches to.
type Services struct {
	Listings      services.IListingService
	Orders        services.IOrderService
	Conversations services.IConversationService
	Sessions      services.ISessionService
	Prices        services.IPriceService
	Admin         services.IAdminService // service port only
}

// SetupRouter configures and returns the main Gin engine together with its
// rate limiter, which the caller stops on shutdown. m may be nil.
func SetupRouter(cfg *config.Config, svc Services, taskClient tasks.IAsynqClient, m *metrics.MetricsManager, log *zap.SugaredLogger) (*gin.Engine, *middleware.RateLimiterMiddleware) {
	r := gin.New()
	r.Use(gin.Recovery())

	rateLimiter := middleware.NewRateLimiterMiddleware(cfg, log)

	// Apply global middleware first (order matters)
	r.Use(middleware.CORSMiddleware())
	r.Use(rateLimiter.Limit())

	var observer handlers.CallObserver
	if m != nil {
		observer = m
	}
	jsonApiHandler := handlers.NewJsonApiHandler(
		svc.Listings, svc.Orders, svc.Conversations, svc.Sessions, svc.Prices, taskClient, observer, log)
	restListingHandler := handlers.NewRestListingHandler(svc.Listings)
	restPriceHandler := handlers.NewRestPriceHandler(svc.Prices)

	v1 := r.Group("/v1")
	{
		v1.POST("/api", middleware.ActorMiddleware(svc.Sessions, log), jsonApiHandler.HandleRequest)

		// Listing routes
		v1.GET("/listing/search", restListingHandler.SearchListings)
		v1.GET("/listing/:id", restListingHandler.GetListingByID)
		v1.GET("/crops", restListingHandler.ListCrops)

		v1.GET("/prices", restPriceHandler.GetPrices)

		v1.GET("/ping", func(c *gin.Context) {
			c.String(http.StatusOK, "pong")
		})
	}

	return r, rateLimiter
}

// SetupServiceRouter configures and returns the service Gin engine. It is
// meant for operators on a private port and serves /metrics when m is set.
func SetupServiceRouter(admin services.IAdminService, m *metrics.MetricsManager, shutdownChan chan<- struct{}, log *zap.SugaredLogger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	if m != nil {
		r.GET("/metrics", gin.WrapH(m.Handler()))
	}

	r.POST("/api", func(c *gin.Context) {
		var req struct {
			Method    string          `json:"method"`
			Arguments json.RawMessage `json:"arguments"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid request format"})
			return
		}

		switch req.Method {
		case "shutdown":
			log.Info("Received shutdown command via Service API")
			c.JSON(http.StatusOK, gin.H{"success": true, "data": "Shutdown initiated"})
			select {
			case shutdownChan <- struct{}{}:
				log.Info("Shutdown signal sent")
			default:
				log.Warn("Shutdown channel already signaled or blocked")
			}
		case "reset":
			if err := admin.Reset(c.Request.Context()); err != nil {
				log.Errorw("Service API reset failed", "error", err)
				c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Reset failed"})
				return
			}
			c.JSON(http.StatusOK, gin.H{"success": true, "data": "Reset complete"})
		default:
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": fmt.Sprintf("Unknown service method: %s", req.Method)})
		}
	})
	return r
}
