package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/portfolio-collage/backend/internal/session"
)

// WebSocket message types for the pointer-drag protocol
const (
	// Client -> Server messages
	MsgTypeDragStart = "drag:start"
	MsgTypeDragMove  = "drag:move"
	MsgTypeDragStop  = "drag:stop"
	MsgTypePing      = "ping"

	// Server -> Client messages
	MsgTypeConnected = "connected"
	MsgTypeDrags     = "drags"
	MsgTypeAck       = "ack"
	MsgTypeError     = "error"
	MsgTypePong      = "pong"
)

const wsWriteWait = 5 * time.Second

// WebSocket message structure
type WSMessage struct {
	Type      string          `json:"type"`
	ID        string          `json:"id,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp int64           `json:"timestamp"`
}

// DragPayload addresses one image. Left and Top are only read for drag:move.
type DragPayload struct {
	Index int      `json:"index"`
	Left  *float64 `json:"left,omitempty"`
	Top   *float64 `json:"top,omitempty"`
}

// WSConnectedResponse is sent once after the upgrade
type WSConnectedResponse struct {
	ClientID  string `json:"clientId"`
	SessionID string `json:"sessionId"`
}

// WSDragsResponse carries the full drag state
type WSDragsResponse struct {
	Drags []int `json:"drags"`
}

// WebSocket error response
type WSErrorResponse struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// WebSocketHandler lets real pointers drag collage images and pushes
// drag-state changes back to every connected client.
type WebSocketHandler struct {
	sessions       SessionManager
	upgrader       websocket.Upgrader
	maxMessageSize int64
}

// NewWebSocketHandler creates a new pointer-drag WebSocket handler.
// maxMessageKB limits incoming messages; zero means 64KB.
func NewWebSocketHandler(sessions SessionManager, maxMessageKB int) *WebSocketHandler {
	if maxMessageKB <= 0 {
		maxMessageKB = 64
	}
	return &WebSocketHandler{
		sessions: sessions,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				// Allow connections from dev server
				return true
			},
			ReadBufferSize:  4 * 1024,
			WriteBufferSize: 4 * 1024,
		},
		maxMessageSize: int64(maxMessageKB) * 1024,
	}
}

// wsClient is one connected pointer. Writes go through send so the read
// loop and the drag feed never write to the socket concurrently.
type wsClient struct {
	id        string
	sessionID string
	ws        *websocket.Conn
	writeMu   sync.Mutex

	// image indices this client has started dragging
	held map[int]bool
}

func (cl *wsClient) send(msg WSMessage) {
	cl.writeMu.Lock()
	defer cl.writeMu.Unlock()

	cl.ws.SetWriteDeadline(time.Now().Add(wsWriteWait))
	if err := cl.ws.WriteJSON(msg); err != nil {
		fmt.Printf("[WebSocket] Failed to send message: %v\n", err)
	}
}

// close sends a close frame and closes the socket, which ends the read loop.
func (cl *wsClient) close(code int, reason string) {
	cl.writeMu.Lock()
	defer cl.writeMu.Unlock()

	msg := websocket.FormatCloseMessage(code, reason)
	cl.ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(wsWriteWait))
	cl.ws.Close()
}

func (cl *wsClient) sendError(id, message, code string) {
	cl.send(WSMessage{
		Type:      MsgTypeError,
		ID:        id,
		Timestamp: time.Now().UnixMilli(),
		Payload: mustJSON(WSErrorResponse{
			Type:    MsgTypeError,
			Message: message,
			Code:    code,
		}),
	})
}

func (cl *wsClient) ack(id string) {
	cl.send(WSMessage{Type: MsgTypeAck, ID: id, Timestamp: time.Now().UnixMilli()})
}

// HandleWebSocket upgrades the connection and runs the drag protocol
// until the client disconnects. Drags the client still holds are stopped
// on disconnect.
func (wsh *WebSocketHandler) HandleWebSocket(c echo.Context) error {
	sessionID := c.Param("id")
	if _, ok := wsh.sessions.GetSession(sessionID); !ok {
		return NewNotFoundError("collage", sessionID)
	}

	ws, err := wsh.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}
	defer ws.Close()
	ws.SetReadLimit(wsh.maxMessageSize)

	client := &wsClient{
		id:        uuid.New().String(),
		sessionID: sessionID,
		ws:        ws,
		held:      make(map[int]bool),
	}
	fmt.Printf("[WebSocket] Client %s connected to collage %s\n", shortID(client.id), shortID(sessionID))

	client.send(WSMessage{
		Type:      MsgTypeConnected,
		Timestamp: time.Now().UnixMilli(),
		Payload:   mustJSON(WSConnectedResponse{ClientID: client.id, SessionID: sessionID}),
	})

	feed := newDragFeed()
	unsubscribe, err := wsh.sessions.Subscribe(sessionID, feed.push)
	if err != nil {
		client.sendError("", "Collage not found: "+sessionID, "SESSION_NOT_FOUND")
		return nil
	}

	done := make(chan struct{})
	ctx := c.Request().Context()
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				// Server is shutting down; hijacked conns are not closed for us.
				client.close(websocket.CloseGoingAway, "server shutting down")
				return
			case state := <-feed.C():
				client.send(WSMessage{
					Type:      MsgTypeDrags,
					Timestamp: time.Now().UnixMilli(),
					Payload:   mustJSON(WSDragsResponse{Drags: state.Indices()}),
				})
			}
		}
	}()

	// Main message loop
	for {
		var msg WSMessage
		if err := ws.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				fmt.Printf("[WebSocket] Connection error: %v\n", err)
			}
			break
		}

		switch msg.Type {
		case MsgTypePing:
			client.send(WSMessage{Type: MsgTypePong, ID: msg.ID, Timestamp: time.Now().UnixMilli()})
		case MsgTypeDragStart:
			wsh.handleDragStart(client, msg)
		case MsgTypeDragMove:
			wsh.handleDragMove(client, msg)
		case MsgTypeDragStop:
			wsh.handleDragStop(client, msg)
		default:
			client.sendError(msg.ID, "Unknown message type: "+msg.Type, "INVALID_TYPE")
		}
	}

	unsubscribe()
	close(done)
	wg.Wait()
	wsh.releaseAll(client)

	fmt.Printf("[WebSocket] Client %s disconnected\n", shortID(client.id))
	return nil
}

func (wsh *WebSocketHandler) decodeDrag(client *wsClient, msg WSMessage) (DragPayload, bool) {
	var payload DragPayload
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		client.sendError(msg.ID, "Invalid drag payload: "+err.Error(), "INVALID_PAYLOAD")
		return payload, false
	}
	return payload, true
}

func (wsh *WebSocketHandler) handleDragStart(client *wsClient, msg WSMessage) {
	payload, ok := wsh.decodeDrag(client, msg)
	if !ok {
		return
	}
	started, err := wsh.sessions.StartDrag(client.sessionID, payload.Index, client.id)
	if err != nil {
		wsh.sendSessionError(client, msg.ID, err)
		return
	}
	if !started && !client.held[payload.Index] {
		client.sendError(msg.ID, fmt.Sprintf("Image %d is already being dragged", payload.Index), "BUSY")
		return
	}
	client.held[payload.Index] = true
	client.ack(msg.ID)
}

func (wsh *WebSocketHandler) handleDragMove(client *wsClient, msg WSMessage) {
	payload, ok := wsh.decodeDrag(client, msg)
	if !ok {
		return
	}
	if !client.held[payload.Index] {
		client.sendError(msg.ID, fmt.Sprintf("Image %d is not being dragged by this client", payload.Index), "NOT_DRAGGING")
		return
	}
	if payload.Left == nil || payload.Top == nil {
		client.sendError(msg.ID, "drag:move requires left and top", "INVALID_PAYLOAD")
		return
	}
	if _, err := wsh.sessions.MoveImage(client.sessionID, payload.Index, *payload.Left, *payload.Top); err != nil {
		wsh.sendSessionError(client, msg.ID, err)
	}
}

func (wsh *WebSocketHandler) handleDragStop(client *wsClient, msg WSMessage) {
	payload, ok := wsh.decodeDrag(client, msg)
	if !ok {
		return
	}
	if err := wsh.sessions.StopDrag(client.sessionID, payload.Index, client.id); err != nil {
		wsh.sendSessionError(client, msg.ID, err)
		return
	}
	delete(client.held, payload.Index)
	client.ack(msg.ID)
}

// releaseAll stops every drag the client still holds, lowest index first.
func (wsh *WebSocketHandler) releaseAll(client *wsClient) {
	indices := make([]int, 0, len(client.held))
	for idx := range client.held {
		indices = append(indices, idx)
	}
	sort.Ints(indices)

	for _, idx := range indices {
		if err := wsh.sessions.StopDrag(client.sessionID, idx, client.id); err != nil {
			// Collage already unmounted; its store was reset with it.
			break
		}
	}
	client.held = map[int]bool{}
}

func (wsh *WebSocketHandler) sendSessionError(client *wsClient, id string, err error) {
	switch {
	case errors.Is(err, session.ErrSessionNotFound):
		client.sendError(id, "Collage not found: "+client.sessionID, "SESSION_NOT_FOUND")
	case errors.Is(err, session.ErrImageOutOfRange):
		client.sendError(id, err.Error(), "IMAGE_OUT_OF_RANGE")
	default:
		client.sendError(id, err.Error(), "INTERNAL_ERROR")
	}
}

func mustJSON(v interface{}) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		return []byte("{}")
	}
	return data
}

// shortID safely truncates an ID for logging
func shortID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}
