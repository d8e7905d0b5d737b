package collage

import (
	"math/rand/v2"
	"testing"
	"time"

	"github.com/portfolio-collage/backend/internal/dragstate"
	"github.com/portfolio-collage/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type dragRecord struct {
	image int
	kind  models.DragEventKind
}

func newTestWorld(store *dragstate.Store, events *[]dragRecord) *World {
	opts := DefaultLayoutOptions()
	opts.CanvasWidth, opts.CanvasHeight = 800, 600
	return &World{
		Images: Layout(sampleSources()[:3], opts),
		Width:  opts.CanvasWidth,
		Height: opts.CanvasHeight,
		Drags:  store,
		OnDrag: func(_ *models.Cursor, image int, kind models.DragEventKind) {
			*events = append(*events, dragRecord{image, kind})
		},
	}
}

func fastConfig() SimulatorConfig {
	cfg := DefaultSimulatorConfig()
	cfg.MaxCursors = 1
	cfg.Speed = 4
	cfg.HoldDuration = 100 * time.Millisecond
	cfg.RestingMin, cfg.RestingMax = 0, 0
	cfg.LifespanMin, cfg.LifespanMax = time.Hour, time.Hour
	return cfg
}

func TestSimulator_PicksUpCarriesAndReleases(t *testing.T) {
	store := dragstate.New()
	var events []dragRecord
	w := newTestWorld(store, &events)
	sim := NewSimulator(fastConfig(), rand.New(rand.NewPCG(7, 7)))

	now := time.Unix(1_700_000_000, 0)
	for i := 0; i < 200; i++ {
		now = now.Add(50 * time.Millisecond)
		sim.Step(w, now)

		require.Len(t, w.Cursors, 1)
		c := w.Cursors[0]
		// The store must agree with what the cursor believes it holds.
		if c.IsDragging() {
			assert.True(t, store.IsBeingDragged(c.Target()))
			img := w.Images[c.Target()]
			assert.True(t, img.Consistent())
		} else {
			assert.Equal(t, 0, store.Len())
		}
		assert.False(t, c.IsDragging() && c.IsMovingToTarget())
	}

	require.GreaterOrEqual(t, len(events), 2)
	assert.Equal(t, models.DragStarted, events[0].kind)
	assert.Equal(t, models.DragStopped, events[1].kind)
	assert.Equal(t, events[0].image, events[1].image)
}

func TestSimulator_DraggedImageIsRaisedAndMoved(t *testing.T) {
	store := dragstate.New()
	var events []dragRecord
	w := newTestWorld(store, &events)
	before := make([]models.CollageImage, len(w.Images))
	copy(before, w.Images)
	sim := NewSimulator(fastConfig(), rand.New(rand.NewPCG(3, 3)))

	now := time.Unix(1_700_000_000, 0)
	for i := 0; i < 200 && len(events) < 2; i++ {
		now = now.Add(50 * time.Millisecond)
		sim.Step(w, now)
	}
	require.Len(t, events, 2)

	idx := events[0].image
	assert.Greater(t, w.Images[idx].ZIndex, before[idx].ZIndex)
	assert.NotEqual(t, before[idx].Left, w.Images[idx].Left)
	assert.True(t, w.Images[idx].Consistent())
}

func TestSimulator_ExpiredCursorReleasesImage(t *testing.T) {
	store := dragstate.New()
	var events []dragRecord
	w := newTestWorld(store, &events)

	cfg := fastConfig()
	cfg.MaxCursors = 0
	sim := NewSimulator(cfg, rand.New(rand.NewPCG(1, 1)))

	c := models.Cursor{ID: "c1", Mode: models.CursorDragging, Lifespan: 10 * time.Millisecond}
	c.SetTarget(1)
	store.StartDragging(1)
	c.HeldGeneration = store.Generation(1)
	w.Cursors = []models.Cursor{c}

	sim.Step(w, time.Now())

	assert.Empty(t, w.Cursors)
	assert.False(t, store.IsBeingDragged(1))
	assert.Equal(t, []dragRecord{{1, models.DragStopped}}, events)
}

// draggingCursor returns a cursor that has just picked up image idx.
func draggingCursor(store *dragstate.Store, idx int, lifespan time.Duration) models.Cursor {
	c := models.Cursor{ID: "c1", Mode: models.CursorDragging, Lifespan: lifespan, TimeFactor: 1}
	c.SetTarget(idx)
	store.StartDragging(idx)
	c.HeldGeneration = store.Generation(idx)
	return c
}

func TestSimulator_LeavesRegrabbedImageAlone(t *testing.T) {
	store := dragstate.New()
	var events []dragRecord
	w := newTestWorld(store, &events)
	sim := NewSimulator(fastConfig(), rand.New(rand.NewPCG(1, 1)))

	c := draggingCursor(store, 0, time.Hour)
	c.Progress = 1 // hold finished, next step would let go
	w.Cursors = []models.Cursor{c}
	left := w.Images[0].Left

	// The marker is reset and a real pointer grabs the same image.
	store.Reset()
	store.StartDragging(0)

	sim.Step(w, time.Now())

	assert.True(t, store.IsBeingDragged(0))
	assert.Empty(t, events)
	require.Len(t, w.Cursors, 1)
	assert.Equal(t, models.CursorIdle, w.Cursors[0].Mode)
	assert.Equal(t, left, w.Images[0].Left)
}

func TestSimulator_StopsCarryingClearedImage(t *testing.T) {
	store := dragstate.New()
	var events []dragRecord
	w := newTestWorld(store, &events)
	sim := NewSimulator(fastConfig(), rand.New(rand.NewPCG(1, 1)))

	c := draggingCursor(store, 1, time.Hour)
	c.DestinationX, c.DestinationY = 700, 500
	w.Cursors = []models.Cursor{c}
	left, top := w.Images[1].Left, w.Images[1].Top

	store.StopDragging(1)
	sim.Step(w, time.Now())

	assert.Equal(t, left, w.Images[1].Left)
	assert.Equal(t, top, w.Images[1].Top)
	assert.False(t, w.Cursors[0].HasTarget())
	assert.Empty(t, events)
}

func TestSimulator_ExpiringCursorKeepsOthersDrag(t *testing.T) {
	store := dragstate.New()
	var events []dragRecord
	w := newTestWorld(store, &events)

	cfg := fastConfig()
	cfg.MaxCursors = 0
	sim := NewSimulator(cfg, rand.New(rand.NewPCG(1, 1)))

	w.Cursors = []models.Cursor{draggingCursor(store, 2, 10*time.Millisecond)}
	store.Reset()
	store.StartDragging(2)

	sim.Step(w, time.Now())

	assert.Empty(t, w.Cursors)
	assert.True(t, store.IsBeingDragged(2))
	assert.Empty(t, events)
}

func TestSimulator_GivesUpWhenTargetTaken(t *testing.T) {
	store := dragstate.New()
	var events []dragRecord
	w := newTestWorld(store, &events)
	sim := NewSimulator(fastConfig(), rand.New(rand.NewPCG(1, 1)))

	c := models.Cursor{ID: "c1", Mode: models.CursorMoving, Lifespan: time.Hour, TimeFactor: 1}
	c.SetTarget(0)
	w.Cursors = []models.Cursor{c}
	store.StartDragging(0) // a real pointer got there first

	sim.Step(w, time.Now())

	require.Len(t, w.Cursors, 1)
	assert.Equal(t, models.CursorIdle, w.Cursors[0].Mode)
	assert.False(t, w.Cursors[0].HasTarget())
	assert.Empty(t, events)
}

func TestSimulator_SkipsBusyImages(t *testing.T) {
	store := dragstate.New()
	var events []dragRecord
	w := newTestWorld(store, &events)
	sim := NewSimulator(fastConfig(), rand.New(rand.NewPCG(5, 5)))

	store.StartDragging(0)
	store.StartDragging(1)

	for i := 0; i < 20; i++ {
		idx, ok := sim.pickFreeImage(w)
		require.True(t, ok)
		assert.Equal(t, 2, idx)
	}

	store.StartDragging(2)
	_, ok := sim.pickFreeImage(w)
	assert.False(t, ok)
}

func TestSimulator_SpawnsUpToMax(t *testing.T) {
	store := dragstate.New()
	var events []dragRecord
	w := newTestWorld(store, &events)

	cfg := fastConfig()
	cfg.MaxCursors = 3
	sim := NewSimulator(cfg, nil)
	sim.Step(w, time.Now())

	require.Len(t, w.Cursors, 3)
	ids := map[string]bool{}
	for _, c := range w.Cursors {
		ids[c.ID] = true
		assert.GreaterOrEqual(t, c.X, 0.0)
		assert.LessOrEqual(t, c.X, w.Width)
	}
	assert.Len(t, ids, 3)
}
