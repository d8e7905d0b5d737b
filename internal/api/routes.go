// routes.go - Route registration helpers
// This file provides a clean way to register all API routes
package api

import (
	"github.com/labstack/echo/v4"
	"github.com/portfolio-collage/backend/internal/session"
	"github.com/portfolio-collage/backend/internal/storage"
)

// Dependencies holds all handler dependencies
type Dependencies struct {
	Content          storage.Store
	Sessions         SessionManager
	Analytics        AnalyticsStore // nil when analytics are disabled
	Sources          SourceProvider
	Defaults         session.Options
	AllowEditing     bool
	WSMaxMessageSize int // KB
	Version          string
}

// Handlers holds all handler instances
type Handlers struct {
	Health    HealthHandler
	Portfolio PortfolioHandler
	Collage   CollageHandler
	Analytics AnalyticsHandler
	WebSocket *WebSocketHandler
}

// NewHandlers creates all handler instances
func NewHandlers(deps *Dependencies) *Handlers {
	return &Handlers{
		Health:    NewHealthHandler(deps.Version, deps.Sessions),
		Portfolio: NewPortfolioHandler(deps.Content, deps.AllowEditing),
		Collage:   NewCollageHandler(deps.Sessions, deps.Defaults, deps.Sources),
		Analytics: NewAnalyticsHandler(deps.Analytics),
		WebSocket: NewWebSocketHandler(deps.Sessions, deps.WSMaxMessageSize),
	}
}

// RegisterRoutes registers all API routes with the Echo instance
func RegisterRoutes(e *echo.Echo, handlers *Handlers) {
	apiGroup := e.Group("/api")

	// Health check
	apiGroup.GET("/health", handlers.Health.HandleHealth)

	// Portfolio content
	portfolioGroup := apiGroup.Group("/portfolio")
	portfolioGroup.GET("", handlers.Portfolio.HandleListItems)
	portfolioGroup.GET("/:slug", handlers.Portfolio.HandleGetItem)
	portfolioGroup.PUT("/:slug", handlers.Portfolio.HandlePutItem)
	portfolioGroup.DELETE("/:slug", handlers.Portfolio.HandleDeleteItem)

	// Collage sessions
	collageGroup := apiGroup.Group("/collage")
	collageGroup.POST("", handlers.Collage.HandleCreateCollage)
	collageGroup.GET("/:id", handlers.Collage.HandleGetCollage)
	collageGroup.DELETE("/:id", handlers.Collage.HandleDeleteCollage)
	collageGroup.POST("/:id/keepalive", handlers.Collage.HandleKeepAlive)
	collageGroup.POST("/:id/relayout", handlers.Collage.HandleRelayout)
	collageGroup.GET("/:id/state", handlers.Collage.HandleGetState)
	collageGroup.GET("/:id/state/msgpack", handlers.Collage.HandleGetStateMsgpack)
	collageGroup.PUT("/:id/images/:index/position", handlers.Collage.HandleMoveImage)

	// Drag state
	collageGroup.GET("/:id/drags/stream", handlers.Collage.HandleDragStream)
	collageGroup.DELETE("/:id/drags", handlers.Collage.HandleResetDrags)
	collageGroup.GET("/:id/drags/:index", handlers.Collage.HandleGetDrag)
	collageGroup.POST("/:id/drags/:index", handlers.Collage.HandleStartDrag)
	collageGroup.DELETE("/:id/drags/:index", handlers.Collage.HandleStopDrag)

	// Real pointers
	collageGroup.GET("/:id/ws", handlers.WebSocket.HandleWebSocket)

	// Analytics
	analyticsGroup := apiGroup.Group("/analytics")
	analyticsGroup.GET("/top-dragged", handlers.Analytics.HandleTopDragged)
	analyticsGroup.GET("/collage/:id", handlers.Analytics.HandleCollageSummary)
}

// SetupMiddleware configures the error handler shared by all routes
func SetupMiddleware(e *echo.Echo) {
	e.HTTPErrorHandler = ErrorHandler
}
