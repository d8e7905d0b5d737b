// interfaces.go - Handler interface definitions for clean separation of concerns
package api

import (
	"context"

	"github.com/labstack/echo/v4"
	"github.com/portfolio-collage/backend/internal/analytics"
	"github.com/portfolio-collage/backend/internal/collage"
	"github.com/portfolio-collage/backend/internal/dragstate"
	"github.com/portfolio-collage/backend/internal/models"
	"github.com/portfolio-collage/backend/internal/session"
)

// HealthHandler handles health check operations
type HealthHandler interface {
	HandleHealth(c echo.Context) error
}

// PortfolioHandler serves portfolio case studies
type PortfolioHandler interface {
	HandleListItems(c echo.Context) error
	HandleGetItem(c echo.Context) error
	HandlePutItem(c echo.Context) error
	HandleDeleteItem(c echo.Context) error
}

// CollageHandler handles mounted collage operations
type CollageHandler interface {
	HandleCreateCollage(c echo.Context) error
	HandleGetCollage(c echo.Context) error
	HandleDeleteCollage(c echo.Context) error
	HandleKeepAlive(c echo.Context) error
	HandleRelayout(c echo.Context) error
	HandleGetState(c echo.Context) error
	HandleGetStateMsgpack(c echo.Context) error
	HandleStartDrag(c echo.Context) error
	HandleStopDrag(c echo.Context) error
	HandleGetDrag(c echo.Context) error
	HandleResetDrags(c echo.Context) error
	HandleMoveImage(c echo.Context) error
	HandleDragStream(c echo.Context) error
}

// AnalyticsHandler serves drag statistics
type AnalyticsHandler interface {
	HandleTopDragged(c echo.Context) error
	HandleCollageSummary(c echo.Context) error
}

// SessionManager defines the interface for collage session management
// This allows mocking in tests
type SessionManager interface {
	CreateSession(sources []collage.ImageSource, opts session.Options) (*models.CollageSession, error)
	GetSession(id string) (*models.CollageSession, bool)
	TouchSession(id string) bool
	CloseSession(id string) error
	StartDrag(id string, imageIndex int, actor string) (bool, error)
	StopDrag(id string, imageIndex int, actor string) error
	IsBeingDragged(id string, imageIndex int) (bool, error)
	ResetDrags(id string) error
	MoveImage(id string, imageIndex int, left, top float64) (*models.CollageImage, error)
	Relayout(id string, sources []collage.ImageSource, opts collage.LayoutOptions) (*models.CollageSession, error)
	Snapshot(id string) (*models.CollageSnapshot, error)
	Subscribe(id string, fn dragstate.Subscriber) (func(), error)
	Count() int
}

// AnalyticsStore answers aggregate drag queries
type AnalyticsStore interface {
	TopImages(ctx context.Context, limit int) ([]analytics.ImageStat, error)
	SessionSummary(ctx context.Context, sessionID string) (*analytics.SessionStats, error)
}

// SourceProvider returns the images a collage is built from when the
// client does not send its own.
type SourceProvider func() ([]collage.ImageSource, error)
