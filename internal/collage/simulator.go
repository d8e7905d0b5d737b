package collage

import (
	"math"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"github.com/portfolio-collage/backend/internal/models"
)

// DragTracker is the part of the drag-state store the simulator needs.
type DragTracker interface {
	StartDragging(imageIndex int)
	StopDragging(imageIndex int)
	IsBeingDragged(imageIndex int) bool
	Generation(imageIndex int) uint64
}

// DragObserver is told about every drag a simulated cursor starts or stops.
type DragObserver func(cursor *models.Cursor, imageIndex int, kind models.DragEventKind)

// World is the mutable collage state a simulation step operates on.
// The caller must hold whatever lock guards Images and Cursors.
type World struct {
	Images  []models.CollageImage
	Cursors []models.Cursor
	Width   float64
	Height  float64
	Drags   DragTracker
	OnDrag  DragObserver
}

// SimulatorConfig tunes the demo cursors.
type SimulatorConfig struct {
	MaxCursors     int
	TickInterval   time.Duration
	Speed          float64 // legs per second at TimeFactor 1
	CurveAmplitude float64
	HoldDuration   time.Duration
	RestingMin     time.Duration
	RestingMax     time.Duration
	LifespanMin    time.Duration
	LifespanMax    time.Duration
	Names          []string
	Colors         []string
}

// DefaultSimulatorConfig returns the settings used on the landing page.
func DefaultSimulatorConfig() SimulatorConfig {
	return SimulatorConfig{
		MaxCursors:     3,
		TickInterval:   50 * time.Millisecond,
		Speed:          0.8,
		CurveAmplitude: 120,
		HoldDuration:   600 * time.Millisecond,
		RestingMin:     800 * time.Millisecond,
		RestingMax:     3 * time.Second,
		LifespanMin:    20 * time.Second,
		LifespanMax:    45 * time.Second,
		Names:          []string{"Ada", "Grace", "Linus", "Rob", "Ken", "Barbara"},
		Colors:         []string{"#ff5c5c", "#3d9cff", "#ffb224", "#2fcf8a", "#b17aff", "#ff7ac6"},
	}
}

// Simulator moves demo cursors that pick up and carry collage images.
type Simulator struct {
	cfg  SimulatorConfig
	rng  *rand.Rand
	last time.Time
}

// NewSimulator creates a simulator. A nil rng gets a time-seeded source.
func NewSimulator(cfg SimulatorConfig, rng *rand.Rand) *Simulator {
	if rng == nil {
		seed := uint64(time.Now().UnixNano())
		rng = rand.New(rand.NewPCG(seed, seed>>1))
	}
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = 50 * time.Millisecond
	}
	return &Simulator{cfg: cfg, rng: rng}
}

// Config returns the simulator settings.
func (s *Simulator) Config() SimulatorConfig {
	return s.cfg
}

// Spawn creates a resting cursor at a random point inside the canvas.
func (s *Simulator) Spawn(now time.Time, width, height float64) models.Cursor {
	c := models.Cursor{
		ID:             uuid.New().String(),
		Name:           pick(s.rng, s.cfg.Names, "Guest"),
		Color:          pick(s.rng, s.cfg.Colors, "#000000"),
		X:              s.rng.Float64() * width,
		Y:              s.rng.Float64() * height,
		Mode:           models.CursorIdle,
		IsStatic:       true,
		TimeFactor:     1,
		HoldDuration:   s.cfg.HoldDuration,
		RestingPeriod:  s.between(s.cfg.RestingMin, s.cfg.RestingMax),
		Lifespan:       s.between(s.cfg.LifespanMin, s.cfg.LifespanMax),
		LastActiveTime: now,
	}
	c.OriginX, c.OriginY = c.X, c.Y
	return c
}

// Step advances every cursor in w to time now, expires cursors whose
// lifespan ran out and spawns replacements up to MaxCursors.
func (s *Simulator) Step(w *World, now time.Time) {
	dt := s.cfg.TickInterval
	if !s.last.IsZero() && now.After(s.last) {
		dt = now.Sub(s.last)
	}
	s.last = now

	for i := range w.Cursors {
		c := &w.Cursors[i]
		c.Lifespan -= dt
		if c.Lifespan <= 0 {
			s.release(w, c)
			continue
		}

		switch c.Mode {
		case models.CursorIdle:
			s.stepIdle(w, c, now)
		case models.CursorMoving:
			s.stepMoving(w, c, now, dt)
		case models.CursorDragging:
			s.stepDragging(w, c, now, dt)
		}
	}

	alive := w.Cursors[:0]
	for _, c := range w.Cursors {
		if c.Lifespan > 0 {
			alive = append(alive, c)
		}
	}
	w.Cursors = alive

	for len(w.Cursors) < s.cfg.MaxCursors {
		w.Cursors = append(w.Cursors, s.Spawn(now, w.Width, w.Height))
	}
}

func (s *Simulator) stepIdle(w *World, c *models.Cursor, now time.Time) {
	if now.Sub(c.LastActiveTime) < c.RestingPeriod {
		return
	}

	target, ok := s.pickFreeImage(w)
	if !ok {
		return
	}
	img := &w.Images[target]

	c.SetTarget(target)
	c.Mode = models.CursorMoving
	c.IsStatic = false
	c.OriginX, c.OriginY = c.X, c.Y
	c.RandomOffset = models.Point{
		X: (s.rng.Float64() - 0.5) * img.Width * 0.5,
		Y: (s.rng.Float64() - 0.5) * img.Height * 0.5,
	}
	cx, cy := img.Center()
	c.TargetX, c.TargetY = cx+c.RandomOffset.X, cy+c.RandomOffset.Y
	c.CurveOffsetX = (s.rng.Float64()*2 - 1) * s.cfg.CurveAmplitude
	c.CurveOffsetY = (s.rng.Float64()*2 - 1) * s.cfg.CurveAmplitude
	c.TimeFactor = 0.75 + s.rng.Float64()*0.5
	c.Progress = 0
}

func (s *Simulator) stepMoving(w *World, c *models.Cursor, now time.Time, dt time.Duration) {
	target := c.Target()
	if target < 0 || target >= len(w.Images) || w.Drags.IsBeingDragged(target) {
		// Image vanished or someone else grabbed it first.
		s.rest(c, now)
		return
	}

	s.advance(c, c.TargetX, c.TargetY, dt)
	if c.Progress < 1 {
		return
	}

	img := &w.Images[target]
	w.Drags.StartDragging(target)
	c.HeldGeneration = w.Drags.Generation(target)
	c.Mode = models.CursorDragging
	c.GrabOffsetX = c.X - img.Left
	c.GrabOffsetY = c.Y - img.Top
	img.ZIndex = TopZIndex(w.Images) + 1

	destLeft := s.rng.Float64() * math.Max(0, w.Width-img.Width)
	destTop := s.rng.Float64() * math.Max(0, w.Height-img.Height)
	c.DestinationX = destLeft + c.GrabOffsetX
	c.DestinationY = destTop + c.GrabOffsetY
	c.OriginX, c.OriginY = c.X, c.Y
	c.CurveOffsetX /= 2
	c.CurveOffsetY /= 2
	c.Progress = 0
	c.DelayCount = int(c.HoldDuration / s.cfg.TickInterval)

	if w.OnDrag != nil {
		w.OnDrag(c, target, models.DragStarted)
	}
}

func (s *Simulator) stepDragging(w *World, c *models.Cursor, now time.Time, dt time.Duration) {
	target := c.Target()
	if target < 0 || target >= len(w.Images) || !holds(w, c) {
		// Marker was cleared (and maybe re-taken) behind the cursor's back.
		s.rest(c, now)
		return
	}

	if c.Progress < 1 {
		s.advance(c, c.DestinationX, c.DestinationY, dt)
		w.Images[target].MoveTo(c.X-c.GrabOffsetX, c.Y-c.GrabOffsetY)
		return
	}
	if c.DelayCount > 0 {
		c.DelayCount--
		return
	}

	w.Drags.StopDragging(target)
	if w.OnDrag != nil {
		w.OnDrag(c, target, models.DragStopped)
	}
	s.rest(c, now)
}

// advance moves c along a quadratic curve from its origin to (tx, ty).
func (s *Simulator) advance(c *models.Cursor, tx, ty float64, dt time.Duration) {
	c.Progress = math.Min(1, c.Progress+dt.Seconds()*s.cfg.Speed*c.TimeFactor)

	t := easeInOut(c.Progress)
	ctrlX := (c.OriginX+tx)/2 + c.CurveOffsetX
	ctrlY := (c.OriginY+ty)/2 + c.CurveOffsetY
	u := 1 - t
	nx := u*u*c.OriginX + 2*u*t*ctrlX + t*t*tx
	ny := u*u*c.OriginY + 2*u*t*ctrlY + t*t*ty

	c.Rotation = clamp((nx-c.X)*0.5, -15, 15)
	c.X, c.Y = nx, ny
}

// holds reports whether the marker on c's target is still the one c set.
func holds(w *World, c *models.Cursor) bool {
	return c.HeldGeneration != 0 && w.Drags.Generation(c.Target()) == c.HeldGeneration
}

// release stops the drag a cursor holds before it is removed.
func (s *Simulator) release(w *World, c *models.Cursor) {
	if c.IsDragging() && holds(w, c) {
		target := c.Target()
		w.Drags.StopDragging(target)
		if w.OnDrag != nil {
			w.OnDrag(c, target, models.DragStopped)
		}
	}
	c.ClearTarget()
}

func (s *Simulator) rest(c *models.Cursor, now time.Time) {
	c.ClearTarget()
	c.IsStatic = true
	c.Rotation = 0
	c.DelayCount = 0
	c.LastActiveTime = now
	c.RestingPeriod = s.between(s.cfg.RestingMin, s.cfg.RestingMax)
}

// pickFreeImage chooses a random image that nobody is dragging or
// heading towards.
func (s *Simulator) pickFreeImage(w *World) (int, bool) {
	claimed := make(map[int]bool, len(w.Cursors))
	for i := range w.Cursors {
		if w.Cursors[i].HasTarget() {
			claimed[w.Cursors[i].Target()] = true
		}
	}

	free := make([]int, 0, len(w.Images))
	for i := range w.Images {
		if !claimed[i] && !w.Drags.IsBeingDragged(i) {
			free = append(free, i)
		}
	}
	if len(free) == 0 {
		return 0, false
	}
	return free[s.rng.IntN(len(free))], true
}

func (s *Simulator) between(lo, hi time.Duration) time.Duration {
	if hi <= lo {
		return lo
	}
	return lo + time.Duration(s.rng.Int64N(int64(hi-lo)))
}

func pick(rng *rand.Rand, options []string, fallback string) string {
	if len(options) == 0 {
		return fallback
	}
	return options[rng.IntN(len(options))]
}

func easeInOut(t float64) float64 {
	return t * t * (3 - 2*t)
}
