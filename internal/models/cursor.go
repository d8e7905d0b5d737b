package models

import (
	"encoding/json"
	"time"
)

// CursorMode is the motion mode of a cursor. A cursor is in exactly one
// mode, so it can never be moving to a target and dragging at once.
type CursorMode string

const (
	CursorIdle     CursorMode = "idle"
	CursorMoving   CursorMode = "moving"
	CursorDragging CursorMode = "dragging"
)

// Point is a 2D offset.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Cursor is a simulated or real pointer that can drag collage images.
type Cursor struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`

	X float64 `json:"x"`
	Y float64 `json:"y"`

	Mode     CursorMode `json:"mode"`
	IsStatic bool       `json:"isStatic"`

	// TargetImage is nil or an index into the collage's current images.
	TargetImage  *int    `json:"targetImage"`
	TargetX      float64 `json:"targetX"`
	TargetY      float64 `json:"targetY"`
	DestinationX float64 `json:"destinationX"`
	DestinationY float64 `json:"destinationY"`

	DelayCount   int     `json:"delayCount"`
	CurveOffsetX float64 `json:"curveOffsetX"`
	CurveOffsetY float64 `json:"curveOffsetY"`
	TimeFactor   float64 `json:"timeFactor"`
	RandomOffset Point   `json:"randomOffset"`
	OffsetX      float64 `json:"offsetX"`
	OffsetY      float64 `json:"offsetY"`
	Rotation     float64 `json:"rotation"`
	OriginX      float64 `json:"originX"`
	OriginY      float64 `json:"originY"`
	GrabOffsetX  float64 `json:"grabOffsetX"`
	GrabOffsetY  float64 `json:"grabOffsetY"`

	// HeldGeneration is the drag-store stamp of the marker this cursor set.
	HeldGeneration uint64 `json:"-"`

	// Progress along the current leg, 0..1.
	Progress float64 `json:"progress"`

	HoldDuration   time.Duration `json:"holdDuration"`
	RestingPeriod  time.Duration `json:"restingPeriod"`
	Lifespan       time.Duration `json:"lifespan"`
	LastActiveTime time.Time     `json:"lastActiveTime"`
}

// IsDragging reports whether the cursor currently holds an image.
func (c *Cursor) IsDragging() bool { return c.Mode == CursorDragging }

// IsMovingToTarget reports whether the cursor is travelling to an image.
func (c *Cursor) IsMovingToTarget() bool { return c.Mode == CursorMoving }

// HasTarget reports whether the cursor has a target image.
func (c *Cursor) HasTarget() bool { return c.TargetImage != nil }

// Target returns the target image index, or -1 if there is none.
func (c *Cursor) Target() int {
	if c.TargetImage == nil {
		return -1
	}
	return *c.TargetImage
}

// SetTarget points the cursor at image idx.
func (c *Cursor) SetTarget(idx int) {
	c.TargetImage = &idx
}

// ClearTarget drops the target image and returns the cursor to idle.
func (c *Cursor) ClearTarget() {
	c.TargetImage = nil
	c.Mode = CursorIdle
	c.Progress = 0
	c.HeldGeneration = 0
}

// MarshalJSON adds the isDragging/isMovingToTarget flags clients expect.
func (c Cursor) MarshalJSON() ([]byte, error) {
	type plain Cursor
	return json.Marshal(struct {
		plain
		IsDragging       bool `json:"isDragging"`
		IsMovingToTarget bool `json:"isMovingToTarget"`
	}{
		plain:            plain(c),
		IsDragging:       c.IsDragging(),
		IsMovingToTarget: c.IsMovingToTarget(),
	})
}
