// handlers_collage.go - Collage session and drag-state handlers
package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/portfolio-collage/backend/internal/collage"
	"github.com/portfolio-collage/backend/internal/dragstate"
	"github.com/portfolio-collage/backend/internal/models"
	"github.com/portfolio-collage/backend/internal/session"
	"github.com/vmihailenco/msgpack/v5"
)

// sseHeartbeat is how often an idle drag stream checks that its collage
// is still mounted.
var sseHeartbeat = 15 * time.Second

// CollageHandlerImpl implements the CollageHandler interface
type CollageHandlerImpl struct {
	sessions SessionManager
	defaults session.Options
	sources  SourceProvider
}

// NewCollageHandler creates a new collage handler. defaults supplies the
// layout and simulator settings for fields a request leaves out.
func NewCollageHandler(sessions SessionManager, defaults session.Options, sources SourceProvider) CollageHandler {
	return &CollageHandlerImpl{
		sessions: sessions,
		defaults: defaults,
		sources:  sources,
	}
}

// collageRequest is the body of POST /collage and POST /collage/:id/relayout.
// Every field is optional.
type collageRequest struct {
	Images       []imageRequest `json:"images,omitempty"`
	CanvasWidth  float64        `json:"canvasWidth,omitempty"`
	CanvasHeight float64        `json:"canvasHeight,omitempty"`
	Seed         *uint64        `json:"seed,omitempty"`
	Simulate     *bool          `json:"simulate,omitempty"`
	MaxCursors   *int           `json:"maxCursors,omitempty"`
}

type imageRequest struct {
	Src            string         `json:"src"`
	Alt            string         `json:"alt"`
	Width          float64        `json:"width,omitempty"`
	Height         float64        `json:"height,omitempty"`
	Special        string         `json:"special,omitempty"`
	ContentOffsets *models.Insets `json:"contentOffsets,omitempty"`
}

type positionRequest struct {
	Left *float64 `json:"left"`
	Top  *float64 `json:"top"`
}

// bindCollageRequest reads an optional JSON body. An empty body means
// "use the defaults".
func bindCollageRequest(c echo.Context) (*collageRequest, error) {
	var req collageRequest
	if c.Request().ContentLength == 0 {
		return &req, nil
	}
	if err := c.Bind(&req); err != nil {
		return nil, NewBadRequestError("invalid request body", err)
	}
	if req.CanvasWidth < 0 {
		return nil, NewValidationError("canvasWidth")
	}
	if req.CanvasHeight < 0 {
		return nil, NewValidationError("canvasHeight")
	}
	if req.MaxCursors != nil && *req.MaxCursors < 0 {
		return nil, NewValidationError("maxCursors")
	}
	for i, img := range req.Images {
		if img.Src == "" {
			return nil, NewValidationError(fmt.Sprintf("images[%d].src", i))
		}
		if img.Width < 0 || img.Height < 0 {
			return nil, NewValidationError(fmt.Sprintf("images[%d].size", i))
		}
	}
	return &req, nil
}

// resolveSources returns the request's images, or the default set.
func (h *CollageHandlerImpl) resolveSources(req *collageRequest) ([]collage.ImageSource, error) {
	if len(req.Images) == 0 {
		if h.sources == nil {
			return nil, nil
		}
		sources, err := h.sources()
		if err != nil {
			return nil, NewInternalError("failed to load collage images", err)
		}
		return sources, nil
	}

	sources := make([]collage.ImageSource, len(req.Images))
	for i, img := range req.Images {
		sources[i] = collage.ImageSource{
			Src:            img.Src,
			Alt:            img.Alt,
			Width:          img.Width,
			Height:         img.Height,
			Special:        img.Special,
			ContentOffsets: img.ContentOffsets,
		}
	}
	return sources, nil
}

func (h *CollageHandlerImpl) layoutOptions(req *collageRequest) collage.LayoutOptions {
	opts := h.defaults.Layout
	if req.CanvasWidth > 0 {
		opts.CanvasWidth = req.CanvasWidth
	}
	if req.CanvasHeight > 0 {
		opts.CanvasHeight = req.CanvasHeight
	}
	if req.Seed != nil {
		opts.Seed = *req.Seed
	}
	return opts
}

// HandleCreateCollage mounts a new collage
func (h *CollageHandlerImpl) HandleCreateCollage(c echo.Context) error {
	req, err := bindCollageRequest(c)
	if err != nil {
		return err
	}
	sources, err := h.resolveSources(req)
	if err != nil {
		return err
	}

	opts := h.defaults
	opts.Layout = h.layoutOptions(req)
	if req.Simulate != nil {
		opts.Simulate = *req.Simulate
	}
	if req.MaxCursors != nil {
		opts.Simulator.MaxCursors = *req.MaxCursors
	}

	sess, err := h.sessions.CreateSession(sources, opts)
	if err != nil {
		return domainError(err, "collage", "")
	}
	return c.JSON(http.StatusCreated, sess)
}

// HandleGetCollage returns the session record
func (h *CollageHandlerImpl) HandleGetCollage(c echo.Context) error {
	id := c.Param("id")
	sess, ok := h.sessions.GetSession(id)
	if !ok {
		return NewNotFoundError("collage", id)
	}
	h.sessions.TouchSession(id)
	return c.JSON(http.StatusOK, sess)
}

// HandleDeleteCollage unmounts a collage and clears its drag state
func (h *CollageHandlerImpl) HandleDeleteCollage(c echo.Context) error {
	id := c.Param("id")
	if err := h.sessions.CloseSession(id); err != nil {
		return domainError(err, "collage", id)
	}
	return c.NoContent(http.StatusNoContent)
}

// HandleKeepAlive allows clients to keep a collage mounted while the page
// is open but idle.
func (h *CollageHandlerImpl) HandleKeepAlive(c echo.Context) error {
	id := c.Param("id")
	if !h.sessions.TouchSession(id) {
		return NewNotFoundError("collage", id)
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// HandleRelayout replaces a collage's images, e.g. after a viewport resize
func (h *CollageHandlerImpl) HandleRelayout(c echo.Context) error {
	id := c.Param("id")
	req, err := bindCollageRequest(c)
	if err != nil {
		return err
	}
	sources, err := h.resolveSources(req)
	if err != nil {
		return err
	}

	sess, err := h.sessions.Relayout(id, sources, h.layoutOptions(req))
	if err != nil {
		return domainError(err, "collage", id)
	}
	h.sessions.TouchSession(id)
	return c.JSON(http.StatusOK, sess)
}

// HandleGetState returns images, cursors and active drags
func (h *CollageHandlerImpl) HandleGetState(c echo.Context) error {
	id := c.Param("id")
	snap, err := h.sessions.Snapshot(id)
	if err != nil {
		return domainError(err, "collage", id)
	}
	h.sessions.TouchSession(id)
	return c.JSON(http.StatusOK, snap)
}

// HandleGetStateMsgpack returns the same snapshot in MessagePack format.
// Field names follow the JSON representation.
func (h *CollageHandlerImpl) HandleGetStateMsgpack(c echo.Context) error {
	id := c.Param("id")
	snap, err := h.sessions.Snapshot(id)
	if err != nil {
		return domainError(err, "collage", id)
	}
	h.sessions.TouchSession(id)

	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetCustomStructTag("json")
	if err := enc.Encode(snap); err != nil {
		return NewInternalError("failed to encode msgpack", err)
	}
	return c.Blob(http.StatusOK, "application/msgpack", buf.Bytes())
}

func imageIndexParam(c echo.Context) (int, error) {
	idx, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		return 0, NewBadRequestError("image index must be an integer", err)
	}
	return idx, nil
}

func actorParam(c echo.Context) string {
	if actor := c.QueryParam("actor"); actor != "" {
		return actor
	}
	return "api"
}

type dragResponse struct {
	Index    int  `json:"index"`
	Dragging bool `json:"dragging"`
	// Started is false when the image was already marked.
	Started  bool `json:"started,omitempty"`
}

// HandleStartDrag marks an image as being dragged
func (h *CollageHandlerImpl) HandleStartDrag(c echo.Context) error {
	id := c.Param("id")
	idx, err := imageIndexParam(c)
	if err != nil {
		return err
	}
	started, err := h.sessions.StartDrag(id, idx, actorParam(c))
	if err != nil {
		return domainError(err, "collage", id)
	}
	return c.JSON(http.StatusOK, dragResponse{Index: idx, Dragging: true, Started: started})
}

// HandleStopDrag clears an image's drag marker
func (h *CollageHandlerImpl) HandleStopDrag(c echo.Context) error {
	id := c.Param("id")
	idx, err := imageIndexParam(c)
	if err != nil {
		return err
	}
	if err := h.sessions.StopDrag(id, idx, actorParam(c)); err != nil {
		return domainError(err, "collage", id)
	}
	return c.JSON(http.StatusOK, dragResponse{Index: idx, Dragging: false})
}

// HandleGetDrag reports whether an image is being dragged
func (h *CollageHandlerImpl) HandleGetDrag(c echo.Context) error {
	id := c.Param("id")
	idx, err := imageIndexParam(c)
	if err != nil {
		return err
	}
	dragging, err := h.sessions.IsBeingDragged(id, idx)
	if err != nil {
		return domainError(err, "collage", id)
	}
	return c.JSON(http.StatusOK, dragResponse{Index: idx, Dragging: dragging})
}

// HandleResetDrags clears every drag marker of a collage
func (h *CollageHandlerImpl) HandleResetDrags(c echo.Context) error {
	id := c.Param("id")
	if err := h.sessions.ResetDrags(id); err != nil {
		return domainError(err, "collage", id)
	}
	return c.NoContent(http.StatusNoContent)
}

// HandleMoveImage places an image and raises it to the top
func (h *CollageHandlerImpl) HandleMoveImage(c echo.Context) error {
	id := c.Param("id")
	idx, err := imageIndexParam(c)
	if err != nil {
		return err
	}
	var req positionRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid request body", err)
	}
	if req.Left == nil {
		return NewValidationError("left")
	}
	if req.Top == nil {
		return NewValidationError("top")
	}

	img, err := h.sessions.MoveImage(id, idx, *req.Left, *req.Top)
	if err != nil {
		return domainError(err, "collage", id)
	}
	return c.JSON(http.StatusOK, img)
}

// HandleDragStream streams the drag state via SSE. The current state is
// sent immediately, then the latest state after each change; changes that
// pile up while writing collapse into one event. When the collage is
// unmounted a final "closed" event ends the stream.
func (h *CollageHandlerImpl) HandleDragStream(c echo.Context) error {
	id := c.Param("id")

	feed := newDragFeed()
	unsubscribe, err := h.sessions.Subscribe(id, feed.push)
	if err != nil {
		return domainError(err, "collage", id)
	}
	defer unsubscribe()

	// Set SSE headers
	c.Response().Header().Set("Content-Type", "text/event-stream")
	c.Response().Header().Set("Cache-Control", "no-cache")
	c.Response().Header().Set("Connection", "keep-alive")
	c.Response().Header().Set("X-Accel-Buffering", "no")
	c.Response().WriteHeader(http.StatusOK)

	writeDrags := func(state dragstate.State) {
		data, err := json.Marshal(map[string]interface{}{
			"drags": state.Indices(),
		})
		if err != nil {
			return
		}
		fmt.Fprintf(c.Response(), "event: drags\ndata: %s\n\n", data)
		c.Response().Flush()
	}

	// Subscribe delivered the current state synchronously.
	writeDrags(<-feed.C())

	ticker := time.NewTicker(sseHeartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-c.Request().Context().Done():
			return nil
		case state := <-feed.C():
			writeDrags(state)
		case <-ticker.C:
			if _, ok := h.sessions.GetSession(id); !ok {
				fmt.Fprintf(c.Response(), "event: closed\ndata: {}\n\n")
				c.Response().Flush()
				return nil
			}
			fmt.Fprintf(c.Response(), ": keepalive\n\n")
			c.Response().Flush()
		}
	}
}
