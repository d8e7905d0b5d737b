// handlers_portfolio.go - Portfolio content handlers
package api

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/portfolio-collage/backend/internal/models"
	"github.com/portfolio-collage/backend/internal/storage"
)

// PortfolioHandlerImpl implements the PortfolioHandler interface
type PortfolioHandlerImpl struct {
	store       storage.Store
	allowWrites bool
}

// NewPortfolioHandler creates a new portfolio handler. When allowWrites is
// false, PUT and DELETE answer 403.
func NewPortfolioHandler(store storage.Store, allowWrites bool) PortfolioHandler {
	return &PortfolioHandlerImpl{
		store:       store,
		allowWrites: allowWrites,
	}
}

// HandleListItems returns every portfolio item in display order
func (h *PortfolioHandlerImpl) HandleListItems(c echo.Context) error {
	items, err := h.store.List(c.Request().Context())
	if err != nil {
		return NewInternalError("failed to list portfolio items", err)
	}
	return c.JSON(http.StatusOK, items)
}

// HandleGetItem returns one portfolio item by slug
func (h *PortfolioHandlerImpl) HandleGetItem(c echo.Context) error {
	slug := c.Param("slug")
	item, err := h.store.Get(c.Request().Context(), slug)
	if err != nil {
		return domainError(err, "portfolio item", slug)
	}
	return c.JSON(http.StatusOK, item)
}

// HandlePutItem creates or replaces a portfolio item
func (h *PortfolioHandlerImpl) HandlePutItem(c echo.Context) error {
	if !h.allowWrites {
		return NewForbiddenError("content editing is disabled")
	}

	slug := c.Param("slug")
	var item models.PortfolioItem
	if err := c.Bind(&item); err != nil {
		return NewBadRequestError("invalid request body", err)
	}
	if item.Slug == "" {
		item.Slug = slug
	}
	if item.Slug != slug {
		return NewBadRequestError(fmt.Sprintf("slug in body (%s) does not match path (%s)", item.Slug, slug), nil)
	}

	if err := h.store.Save(c.Request().Context(), &item); err != nil {
		return domainError(err, "portfolio item", slug)
	}
	fmt.Printf("[Portfolio] Saved item %s\n", slug)
	return c.JSON(http.StatusOK, item)
}

// HandleDeleteItem removes a portfolio item
func (h *PortfolioHandlerImpl) HandleDeleteItem(c echo.Context) error {
	if !h.allowWrites {
		return NewForbiddenError("content editing is disabled")
	}

	slug := c.Param("slug")
	if err := h.store.Delete(c.Request().Context(), slug); err != nil {
		return domainError(err, "portfolio item", slug)
	}
	fmt.Printf("[Portfolio] Deleted item %s\n", slug)
	return c.NoContent(http.StatusNoContent)
}
