package models

import "time"

// CollageStatus represents the lifecycle state of a mounted collage.
type CollageStatus string

const (
	CollageStatusActive CollageStatus = "active"
	CollageStatusClosed CollageStatus = "closed"
)

// CollageSession describes one mounted collage view.
type CollageSession struct {
	ID           string        `json:"id"`
	Status       CollageStatus `json:"status"`
	CreatedAt    time.Time     `json:"createdAt"`
	ImageCount   int           `json:"imageCount"`
	CursorCount  int           `json:"cursorCount"`
	CanvasWidth  float64       `json:"canvasWidth"`
	CanvasHeight float64       `json:"canvasHeight"`
}

// NewCollageSession creates an active session record.
func NewCollageSession(id string, width, height float64) *CollageSession {
	return &CollageSession{
		ID:           id,
		Status:       CollageStatusActive,
		CreatedAt:    time.Now(),
		CanvasWidth:  width,
		CanvasHeight: height,
	}
}

// CollageSnapshot is the full observable state of a collage at one instant.
type CollageSnapshot struct {
	Session *CollageSession `json:"session"`
	Images  []CollageImage  `json:"images"`
	Cursors []Cursor        `json:"cursors"`
	Drags   []int           `json:"drags"` // image indices being dragged
}

// DragEventKind distinguishes drag starts from drag stops.
type DragEventKind string

const (
	DragStarted DragEventKind = "start"
	DragStopped DragEventKind = "stop"
)

// DragEvent is one drag transition, recorded for analytics.
type DragEvent struct {
	SessionID  string        `json:"sessionId"`
	ImageIndex int           `json:"imageIndex"`
	ImageSrc   string        `json:"imageSrc"`
	Actor      string        `json:"actor"` // cursor ID or websocket client ID
	Kind       DragEventKind `json:"kind"`
	Timestamp  time.Time     `json:"timestamp"`
}
